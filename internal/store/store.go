package store

import (
	"context"
	"fmt"
	"time"

	"magistrant/internal/components/chrono"
	"magistrant/internal/components/telemetry"
	"magistrant/internal/curriculum"
)

// Entry is what a store holds for one key.
type Entry struct {
	Records []curriculum.Record
	// Fetched is set once an extraction was persisted for the key, even one
	// that produced no records.
	Fetched bool
	// FetchedAt is zero when the backend does not know when the key was
	// written.
	FetchedAt time.Time
}

// Store persists the records extracted for each (user, term) key.
//
// For a given key a store holds exactly the records of the latest Upsert, in
// the order they were given. Upserts for the same key are serialized, upserts
// for different keys may run concurrently.
type Store interface {
	// Lookup returns the entry of a key, a key that was never written returns
	// an empty entry and no error.
	Lookup(ctx context.Context, key curriculum.Key) (Entry, error)
	// Upsert replaces every record of the key, it is durable once it returns.
	Upsert(ctx context.Context, key curriculum.Key, records []curriculum.Record) error
}

// Backend is a Store that owns resources.
type Backend interface {
	Store
	Close() error
}

const (
	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverSqlite   = "sqlite"
	DriverLibsql   = "libsql"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

type Config struct {
	Driver string `json:"driver"`
	// Path is the data file of the file driver or the database file of the
	// sqlite driver.
	Path string `json:"path"`
	// DSN is the connection string of the libsql, postgres and redis drivers.
	DSN string `json:"dsn"`
	// KeyPrefix namespaces the keys written by the redis driver.
	KeyPrefix string `json:"key_prefix"`
}

func (c Config) Validate() error {
	switch c.Driver {
	case DriverMemory:
	case DriverFile, DriverSqlite:
		if c.Path == "" {
			return fmt.Errorf("store: driver %q requires a path", c.Driver)
		}
	case DriverLibsql, DriverPostgres, DriverRedis:
		if c.DSN == "" {
			return fmt.Errorf("store: driver %q requires a dsn", c.Driver)
		}
	default:
		return fmt.Errorf("store: unknown driver %q", c.Driver)
	}
	return nil
}

// Open creates the backend named by the config. SQL backends are migrated
// before they are returned.
func Open(ctx context.Context, config Config, tel telemetry.API, clock chrono.API) (Backend, error) {
	err := config.Validate()
	if err != nil {
		return nil, err
	}

	switch config.Driver {
	case DriverMemory:
		return NewMemoryStore(clock), nil
	case DriverFile:
		return OpenFileStore(config.Path, tel, clock)
	case DriverRedis:
		return OpenRedisStore(ctx, config.DSN, config.KeyPrefix, tel, clock)
	}

	var store *SQLStore
	switch config.Driver {
	case DriverSqlite:
		store, err = OpenSqlite(config.Path, tel, clock)
	case DriverLibsql:
		store, err = OpenLibsql(config.DSN, tel, clock)
	case DriverPostgres:
		store, err = OpenPostgres(config.DSN, tel, clock)
	}
	if err != nil {
		return nil, err
	}
	err = store.Migrate(ctx)
	if err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

// stamp returns a copy of the records carrying the key they are stored under.
func stamp(key curriculum.Key, records []curriculum.Record) []curriculum.Record {
	out := make([]curriculum.Record, len(records))
	for i, r := range records {
		r.UserKey = key.UserKey
		r.Term = key.Term
		out[i] = r
	}
	return out
}
