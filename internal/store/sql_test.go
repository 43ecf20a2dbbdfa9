package store

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"testing"

	"magistrant/internal/components/telemetry"
	"magistrant/internal/curriculum"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/go-cmp/cmp"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func openTestSqlite(t *testing.T, path string) *SQLStore {
	t.Helper()
	s, err := OpenSqlite(path, telemetry.NewRecorder(), testClock)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestSqliteStore(t *testing.T) {
	dir := t.TempDir()
	testReplaceSemantics(t, openTestSqlite(t, filepath.Join(dir, "plans.db")))
	testConcurrentUpserts(t, openTestSqlite(t, filepath.Join(dir, "concurrent.db")))
}

func TestSqliteStoreMigrateTwice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plans.db")
	s := openTestSqlite(t, path)
	require.NoError(t, s.Migrate(context.Background()))
	version, err := s.Version()
	require.NoError(t, err)
	require.Equal(t, int64(1), version)

	key := curriculum.Key{UserKey: "alice", Term: 4}
	require.NoError(t, s.Upsert(context.Background(), key, records(key, "Алгебра")))
	entry, err := s.Lookup(context.Background(), key)
	require.NoError(t, err)
	require.True(t, entry.FetchedAt.Equal(testClock.At))
}

func newMockStore(t *testing.T) (*SQLStore, sqlmock.Sqlmock, *telemetry.Recorder) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tel := telemetry.NewRecorder()
	return NewSQLStore(sqlx.NewDb(db, "pgx"), "postgres", tel, testClock), mock, tel
}

func TestPostgresUpsert(t *testing.T) {
	s, mock, _ := newMockStore(t)
	key := curriculum.Key{UserKey: "alice", Term: 1}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("insert into plan_fetches (login, semester, fetched_at) values ($1, $2, $3)")).
		WithArgs("alice", int64(1), testClock.At.Unix()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("delete from plan_records where login = $1 and semester = $2")).
		WithArgs("alice", int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("insert into plan_records").
		WithArgs("alice", int64(1), int64(0), "Математика", int64(10), "Экзамен").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("insert into plan_records").
		WithArgs("alice", int64(1), int64(1), "Физика", int64(11), "Зачёт").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, s.Upsert(context.Background(), key, records(key, "Математика", "Физика")))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpsertRollsBack(t *testing.T) {
	s, mock, tel := newMockStore(t)
	key := curriculum.Key{UserKey: "alice", Term: 1}
	failure := errors.New("connection reset")

	mock.ExpectBegin()
	mock.ExpectExec("insert into plan_fetches").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("delete from plan_records").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("insert into plan_records").WillReturnError(failure)
	mock.ExpectRollback()

	err := s.Upsert(context.Background(), key, records(key, "Математика"))
	require.ErrorIs(t, err, failure)
	require.NoError(t, mock.ExpectationsWereMet())
	require.Len(t, tel.Reports(telemetry.KindBroken, "upsert"), 1)
}

func TestPostgresLookup(t *testing.T) {
	s, mock, _ := newMockStore(t)
	key := curriculum.Key{UserKey: "bob", Term: 2}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("select fetched_at from plan_fetches where login = $1 and semester = $2")).
		WithArgs("bob", int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"fetched_at"}).AddRow(testClock.At.Unix()))
	mock.ExpectQuery("select name, hours, control_type from plan_records").
		WithArgs("bob", int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"name", "hours", "control_type"}).
			AddRow("Физика", 8, "Экзамен").
			AddRow("Химия", 4, "Зачёт"))
	mock.ExpectCommit()

	entry, err := s.Lookup(context.Background(), key)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
	require.True(t, entry.Fetched)
	require.True(t, entry.FetchedAt.Equal(testClock.At))
	require.Empty(t, cmp.Diff([]curriculum.Record{
		{Name: "Физика", Hours: 8, Control: curriculum.ControlExam, Term: 2, UserKey: "bob"},
		{Name: "Химия", Hours: 4, Control: curriculum.ControlPass, Term: 2, UserKey: "bob"},
	}, entry.Records))
}

func TestPostgresLookupMissingKey(t *testing.T) {
	s, mock, _ := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("select fetched_at from plan_fetches").
		WillReturnRows(sqlmock.NewRows([]string{"fetched_at"}))
	mock.ExpectCommit()

	entry, err := s.Lookup(context.Background(), curriculum.Key{UserKey: "nobody", Term: 1})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
	require.False(t, entry.Fetched)
	require.Empty(t, entry.Records)
}

func TestPostgresLookupCorruptedRow(t *testing.T) {
	s, mock, tel := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("select fetched_at from plan_fetches").
		WillReturnRows(sqlmock.NewRows([]string{"fetched_at"}).AddRow(int64(1)))
	mock.ExpectQuery("select name, hours, control_type from plan_records").
		WillReturnRows(sqlmock.NewRows([]string{"name", "hours", "control_type"}).AddRow("Физика", 8, "???"))
	mock.ExpectCommit()

	entry, err := s.Lookup(context.Background(), curriculum.Key{UserKey: "bob", Term: 2})
	require.NoError(t, err)
	require.False(t, entry.Fetched)
	require.Len(t, tel.Reports(telemetry.KindWarning, "lookup"), 1)
}
