package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"magistrant/internal/components/telemetry"
	"magistrant/internal/curriculum"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func openTestFileStore(t *testing.T, path string) (*FileStore, *telemetry.Recorder) {
	t.Helper()
	tel := telemetry.NewRecorder()
	s, err := OpenFileStore(path, tel, testClock)
	require.NoError(t, err)
	return s, tel
}

func TestFileStore(t *testing.T) {
	dir := t.TempDir()

	s, tel := openTestFileStore(t, filepath.Join(dir, "data.json"))
	require.Empty(t, tel.Reports(telemetry.KindWarning, ""))
	testReplaceSemantics(t, s)

	s, _ = openTestFileStore(t, filepath.Join(dir, "concurrent.json"))
	testConcurrentUpserts(t, s)
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	ctx := context.Background()
	key := curriculum.Key{UserKey: "bob", Term: 2}
	empty := curriculum.Key{UserKey: "carol", Term: 4}

	s, _ := openTestFileStore(t, path)
	require.NoError(t, s.Upsert(ctx, key, records(key, "Физика", "Химия")))
	require.NoError(t, s.Upsert(ctx, empty, nil))

	reopened, tel := openTestFileStore(t, path)
	require.Empty(t, tel.Reports(telemetry.KindWarning, ""))

	entry, err := reopened.Lookup(ctx, key)
	require.NoError(t, err)
	require.True(t, entry.Fetched)
	require.True(t, entry.FetchedAt.Equal(testClock.At))
	require.Empty(t, cmp.Diff(records(key, "Физика", "Химия"), entry.Records))

	entry, err = reopened.Lookup(ctx, empty)
	require.NoError(t, err)
	require.True(t, entry.Fetched)
	require.Empty(t, entry.Records)

	// no temp files are left behind
	files, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	var names []string
	for _, f := range files {
		names = append(names, f.Name())
	}
	require.ElementsMatch(t, []string{"data.json", "data.json.fetched.json"}, names)
}

func TestFileStoreCorrupted(t *testing.T) {
	testCases := []struct {
		name    string
		content string
	}{
		{name: "syntax", content: `[{"name": "Математика", "hours": 1`},
		{name: "wrong shape", content: `{"name": "Математика"}`},
		{name: "unknown control type", content: `[{"name": "A", "hours": 1, "type": "Курсовая", "semester": 1, "login": "alice"}]`},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "data.json")
			require.NoError(t, os.WriteFile(path, []byte(test.content), 0644))

			s, tel := openTestFileStore(t, path)
			require.Len(t, tel.Reports(telemetry.KindWarning, "load"), 1)

			key := curriculum.Key{UserKey: "alice", Term: 1}
			entry, err := s.Lookup(context.Background(), key)
			require.NoError(t, err)
			require.Empty(t, entry.Records)

			require.NoError(t, s.Upsert(context.Background(), key, records(key, "A")))
			reopened, tel := openTestFileStore(t, path)
			require.Empty(t, tel.Reports(telemetry.KindWarning, ""))
			entry, err = reopened.Lookup(context.Background(), key)
			require.NoError(t, err)
			require.Len(t, entry.Records, 1)
		})
	}
}

func TestFileStoreReadsRecordsWithoutMarkers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	content := `[
  {"name": "Математика", "hours": 15, "type": "Экзамен", "semester": 1, "login": "alice"},
  {"name": "Философия", "hours": 3, "type": "Зачёт", "semester": 1, "login": "alice"},
  {"name": "История", "hours": 6, "type": "Зачёт", "semester": 2, "login": "alice"}
]`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	s, _ := openTestFileStore(t, path)
	entry, err := s.Lookup(context.Background(), curriculum.Key{UserKey: "alice", Term: 1})
	require.NoError(t, err)
	require.True(t, entry.Fetched)
	require.True(t, entry.FetchedAt.IsZero())
	require.Empty(t, cmp.Diff([]curriculum.Record{
		{Name: "Математика", Hours: 15, Control: curriculum.ControlExam, Term: 1, UserKey: "alice"},
		{Name: "Философия", Hours: 3, Control: curriculum.ControlPass, Term: 1, UserKey: "alice"},
	}, entry.Records))
}
