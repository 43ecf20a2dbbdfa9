package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"magistrant/internal/components/assert"
	"magistrant/internal/components/chrono"
	"magistrant/internal/components/telemetry"
	"magistrant/internal/curriculum"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

const (
	report_sql_store_lookup  = "lookup"
	report_sql_store_upsert  = "upsert"
	report_sql_store_migrate = "migrate"
)

func init() {
	// sqlx only knows the cgo driver names, both of these take `?`
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
	sqlx.BindDriver("libsql", sqlx.QUESTION)
}

// SQLStore keeps records in a relational database, one row per record plus
// one row per key that remembers when it was written.
type SQLStore struct {
	db      *sqlx.DB
	dialect string
	tel     telemetry.API
	time    chrono.API
}

// NewSQLStore wraps an open database, dialect is the goose dialect used for
// migrations ("sqlite3" or "postgres").
func NewSQLStore(db *sqlx.DB, dialect string, tel telemetry.API, clock chrono.API) *SQLStore {
	assert.NotNil(db)
	assert.NotEmptyStr(dialect)
	assert.NotNil(tel)
	assert.NotNil(clock)
	return &SQLStore{
		db:      db,
		dialect: dialect,
		tel:     telemetry.NewScopedAPI("sql_store", tel),
		time:    clock,
	}
}

// OpenSqlite opens (creating if needed) a local sqlite database.
func OpenSqlite(path string, tel telemetry.API, clock chrono.API) (*SQLStore, error) {
	if path == "" {
		return nil, fmt.Errorf("a path was not specified")
	}
	if path != ":memory:" {
		err := os.MkdirAll(filepath.Dir(path), 0777)
		if err != nil {
			return nil, err
		}
		_, statErr := os.Stat(path)
		if os.IsNotExist(statErr) {
			f, err := os.Create(path)
			if err != nil {
				return nil, err
			}
			f.Close()
		}
	}

	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// sqlite allows a single writer, one connection avoids SQLITE_BUSY under
	// concurrent upserts
	db.SetMaxOpenConns(1)
	_, err = db.Exec("PRAGMA journal_mode=WAL")
	if err != nil {
		db.Close()
		return nil, err
	}
	return NewSQLStore(db, "sqlite3", tel, clock), nil
}

// OpenLibsql connects to a remote libsql server, ex. `libsql://db.turso.io?authToken=...`.
func OpenLibsql(dsn string, tel telemetry.API, clock chrono.API) (*SQLStore, error) {
	db, err := sqlx.Open("libsql", dsn)
	if err != nil {
		return nil, err
	}
	return NewSQLStore(db, "sqlite3", tel, clock), nil
}

// OpenPostgres connects through the pgx database/sql driver.
func OpenPostgres(dsn string, tel telemetry.API, clock chrono.API) (*SQLStore, error) {
	db, err := sqlx.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	return NewSQLStore(db, "postgres", tel, clock), nil
}

// goose keeps its base filesystem and dialect in package globals
var migrateMutex sync.Mutex

// Migrate applies the embedded migrations that have not run yet.
func (s *SQLStore) Migrate(ctx context.Context) error {
	migrateMutex.Lock()
	defer migrateMutex.Unlock()

	goose.SetBaseFS(migrationFiles)
	err := goose.SetDialect(s.dialect)
	if err != nil {
		return err
	}
	err = goose.UpContext(ctx, s.db.DB, "migrations")
	if err != nil {
		s.tel.ReportBroken(report_sql_store_migrate, err)
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Version returns the latest migration applied to the database.
func (s *SQLStore) Version() (int64, error) {
	migrateMutex.Lock()
	defer migrateMutex.Unlock()

	err := goose.SetDialect(s.dialect)
	if err != nil {
		return 0, err
	}
	return goose.GetDBVersion(s.db.DB)
}

type recordRow struct {
	Name        string `db:"name"`
	Hours       int    `db:"hours"`
	ControlType string `db:"control_type"`
}

func (s *SQLStore) Lookup(ctx context.Context, key curriculum.Key) (Entry, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return Entry{}, err
	}
	defer tx.Rollback()

	var fetchedAt int64
	err = tx.GetContext(
		ctx, &fetchedAt,
		tx.Rebind("select fetched_at from plan_fetches where login = ? and semester = ?"),
		key.UserKey, key.Term,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, tx.Commit()
	}
	if err != nil {
		s.tel.ReportBroken(report_sql_store_lookup, err, key.String())
		return Entry{}, err
	}

	var rows []recordRow
	err = tx.SelectContext(
		ctx, &rows,
		tx.Rebind("select name, hours, control_type from plan_records where login = ? and semester = ? order by position"),
		key.UserKey, key.Term,
	)
	if err != nil {
		s.tel.ReportBroken(report_sql_store_lookup, err, key.String())
		return Entry{}, err
	}
	err = tx.Commit()
	if err != nil {
		return Entry{}, err
	}

	records := make([]curriculum.Record, 0, len(rows))
	for _, row := range rows {
		control, err := curriculum.ParseControlType(row.ControlType)
		if err != nil {
			// a key with an unreadable row is treated as never fetched so
			// the next request scrapes it again
			s.tel.ReportWarning(report_sql_store_lookup, fmt.Errorf("corrupted row, ignoring key: %w", err), key.String())
			return Entry{}, nil
		}
		records = append(records, curriculum.Record{
			Name:    row.Name,
			Hours:   row.Hours,
			Control: control,
			Term:    key.Term,
			UserKey: key.UserKey,
		})
	}

	return Entry{
		Records:   records,
		Fetched:   true,
		FetchedAt: time.Unix(fetchedAt, 0).In(s.time.Location()),
	}, nil
}

func (s *SQLStore) Upsert(ctx context.Context, key curriculum.Key, records []curriculum.Record) error {
	err := s.upsert(ctx, key, records)
	if err != nil {
		s.tel.ReportBroken(report_sql_store_upsert, err, key.String())
		return fmt.Errorf("upsert %s: %w", key, err)
	}
	return nil
}

func (s *SQLStore) upsert(ctx context.Context, key curriculum.Key, records []curriculum.Record) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// the marker goes first, its row lock orders concurrent writers of the
	// same key
	_, err = tx.ExecContext(
		ctx,
		tx.Rebind(`insert into plan_fetches (login, semester, fetched_at) values (?, ?, ?)
on conflict (login, semester) do update set fetched_at = excluded.fetched_at`),
		key.UserKey, key.Term, s.time.Now().Unix(),
	)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(
		ctx,
		tx.Rebind("delete from plan_records where login = ? and semester = ?"),
		key.UserKey, key.Term,
	)
	if err != nil {
		return err
	}

	insert := tx.Rebind(`insert into plan_records (login, semester, position, name, hours, control_type)
values (?, ?, ?, ?, ?, ?)`)
	for i, r := range records {
		_, err = tx.ExecContext(ctx, insert, key.UserKey, key.Term, i, r.Name, r.Hours, r.Control.String())
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
