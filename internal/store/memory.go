package store

import (
	"context"
	"sync"

	"magistrant/internal/components/assert"
	"magistrant/internal/components/chrono"
	"magistrant/internal/curriculum"
)

// MemoryStore keeps entries in a map, nothing survives the process.
type MemoryStore struct {
	mutex   sync.Mutex
	entries map[curriculum.Key]Entry
	time    chrono.API
}

func NewMemoryStore(clock chrono.API) *MemoryStore {
	assert.NotNil(clock)
	return &MemoryStore{
		entries: make(map[curriculum.Key]Entry),
		time:    clock,
	}
}

func (s *MemoryStore) Lookup(ctx context.Context, key curriculum.Key) (Entry, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return Entry{}, nil
	}
	entry.Records = append([]curriculum.Record(nil), entry.Records...)
	return entry, nil
}

func (s *MemoryStore) Upsert(ctx context.Context, key curriculum.Key, records []curriculum.Record) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.entries[key] = Entry{
		Records:   stamp(key, records),
		Fetched:   true,
		FetchedAt: s.time.Now(),
	}
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
