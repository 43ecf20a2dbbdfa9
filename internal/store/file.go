package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"magistrant/internal/components/assert"
	"magistrant/internal/components/chrono"
	"magistrant/internal/components/telemetry"
	"magistrant/internal/curriculum"
)

const (
	report_file_store_load   = "load"
	report_file_store_upsert = "upsert"
)

type fetchMarker struct {
	UserKey   string `json:"login"`
	Term      int    `json:"semester"`
	FetchedAt int64  `json:"fetched_at"`
}

// FileStore keeps every record in a single JSON array, the file is rewritten
// as a whole on each upsert. When each key was written is kept in a sidecar
// file next to it.
type FileStore struct {
	path    string
	markers string
	tel     telemetry.API
	time    chrono.API

	mutex   sync.Mutex
	records []curriculum.Record
	fetched map[curriculum.Key]time.Time
}

// OpenFileStore loads the store at path. A missing file starts an empty store,
// so does a file that cannot be decoded, in which case a warning is reported.
func OpenFileStore(path string, tel telemetry.API, clock chrono.API) (*FileStore, error) {
	assert.NotEmptyStr(path)
	assert.NotNil(tel)
	assert.NotNil(clock)

	s := &FileStore{
		path:    path,
		markers: path + ".fetched.json",
		tel:     telemetry.NewScopedAPI("file_store", tel),
		time:    clock,
		fetched: make(map[curriculum.Key]time.Time),
	}

	err := readJSON(s.path, &s.records)
	if errors.Is(err, os.ErrNotExist) {
		s.records = nil
	} else if err != nil {
		if !isDecodeError(err) {
			return nil, err
		}
		s.tel.ReportWarning(report_file_store_load, fmt.Errorf("corrupted data file, starting empty: %w", err), s.path)
		s.records = nil
		return s, nil
	}

	var markers []fetchMarker
	err = readJSON(s.markers, &markers)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		s.tel.ReportWarning(report_file_store_load, fmt.Errorf("corrupted marker file, ignoring it: %w", err), s.markers)
		markers = nil
	}
	for _, m := range markers {
		s.fetched[curriculum.Key{UserKey: m.UserKey, Term: m.Term}] = time.Unix(m.FetchedAt, 0).In(clock.Location())
	}

	return s, nil
}

// decodeError marks content that could not be decoded, as opposed to a file
// that could not be read.
type decodeError struct {
	err error
}

func (e decodeError) Error() string {
	return e.err.Error()
}

func (e decodeError) Unwrap() error {
	return e.err
}

func isDecodeError(err error) bool {
	var target decodeError
	return errors.As(err, &target)
}

func readJSON(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	err = json.Unmarshal(data, out)
	if err != nil {
		return decodeError{err: err}
	}
	return nil
}

// writeJSON replaces path with the encoding of value, the file is either the
// old or the new content even if the process dies midway.
func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	_, err = tmp.Write(data)
	if err != nil {
		tmp.Close()
		return err
	}
	err = tmp.Sync()
	if err != nil {
		tmp.Close()
		return err
	}
	err = tmp.Close()
	if err != nil {
		return err
	}
	err = os.Rename(tmpPath, path)
	if err != nil {
		return err
	}

	dirHandle, err := os.Open(dir)
	if err != nil {
		return nil
	}
	defer dirHandle.Close()
	dirHandle.Sync()
	return nil
}

func (s *FileStore) Lookup(ctx context.Context, key curriculum.Key) (Entry, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	var entry Entry
	for _, r := range s.records {
		if r.Key() == key {
			entry.Records = append(entry.Records, r)
		}
	}
	fetchedAt, ok := s.fetched[key]
	entry.Fetched = ok || len(entry.Records) > 0
	entry.FetchedAt = fetchedAt
	return entry, nil
}

func (s *FileStore) Upsert(ctx context.Context, key curriculum.Key, records []curriculum.Record) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	next := make([]curriculum.Record, 0, len(s.records)+len(records))
	for _, r := range s.records {
		if r.Key() != key {
			next = append(next, r)
		}
	}
	next = append(next, stamp(key, records)...)

	err := writeJSON(s.path, next)
	if err != nil {
		s.tel.ReportBroken(report_file_store_upsert, err, key.String())
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	s.records = next

	now := s.time.Now()
	s.fetched[key] = now
	markers := make([]fetchMarker, 0, len(s.fetched))
	for k, at := range s.fetched {
		markers = append(markers, fetchMarker{UserKey: k.UserKey, Term: k.Term, FetchedAt: at.Unix()})
	}
	sort.Slice(markers, func(i, j int) bool {
		if markers[i].UserKey != markers[j].UserKey {
			return markers[i].UserKey < markers[j].UserKey
		}
		return markers[i].Term < markers[j].Term
	})
	err = writeJSON(s.markers, markers)
	if err != nil {
		// the records are already durable, only the timestamp is lost
		s.tel.ReportWarning(report_file_store_upsert, err, s.markers)
	}
	return nil
}

func (s *FileStore) Close() error {
	return nil
}
