package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"magistrant/internal/components/assert"
	"magistrant/internal/components/chrono"
	"magistrant/internal/components/telemetry"
	"magistrant/internal/curriculum"

	"github.com/redis/go-redis/v9"
)

const (
	report_redis_store_lookup = "lookup"
	report_redis_store_upsert = "upsert"
)

const defaultKeyPrefix = "magistrant:plan"

type redisEntry struct {
	FetchedAt int64               `json:"fetched_at"`
	Records   []curriculum.Record `json:"records"`
}

// RedisStore keeps each key's entry as one JSON value, a SET replaces it in a
// single step. Values never expire.
type RedisStore struct {
	client *redis.Client
	prefix string
	tel    telemetry.API
	time   chrono.API
}

func NewRedisStore(client *redis.Client, prefix string, tel telemetry.API, clock chrono.API) *RedisStore {
	assert.NotNil(client)
	assert.NotNil(tel)
	assert.NotNil(clock)
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &RedisStore{
		client: client,
		prefix: prefix,
		tel:    telemetry.NewScopedAPI("redis_store", tel),
		time:   clock,
	}
}

// OpenRedisStore connects to the server named by a redis:// url and checks it
// is reachable.
func OpenRedisStore(ctx context.Context, url, prefix string, tel telemetry.API, clock chrono.API) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	err = client.Ping(ctx).Err()
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisStore(client, prefix, tel, clock), nil
}

func (s *RedisStore) redisKey(key curriculum.Key) string {
	return fmt.Sprintf("%s:%s:%d", s.prefix, key.UserKey, key.Term)
}

func (s *RedisStore) Lookup(ctx context.Context, key curriculum.Key) (Entry, error) {
	data, err := s.client.Get(ctx, s.redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, nil
	}
	if err != nil {
		s.tel.ReportBroken(report_redis_store_lookup, err, key.String())
		return Entry{}, err
	}

	var stored redisEntry
	err = json.Unmarshal(data, &stored)
	if err != nil {
		s.tel.ReportWarning(report_redis_store_lookup, fmt.Errorf("corrupted value, ignoring key: %w", err), key.String())
		return Entry{}, nil
	}
	return Entry{
		Records:   stamp(key, stored.Records),
		Fetched:   true,
		FetchedAt: time.Unix(stored.FetchedAt, 0).In(s.time.Location()),
	}, nil
}

func (s *RedisStore) Upsert(ctx context.Context, key curriculum.Key, records []curriculum.Record) error {
	data, err := json.Marshal(redisEntry{
		FetchedAt: s.time.Now().Unix(),
		Records:   stamp(key, records),
	})
	if err != nil {
		return err
	}
	err = s.client.Set(ctx, s.redisKey(key), data, 0).Err()
	if err != nil {
		s.tel.ReportBroken(report_redis_store_upsert, err, key.String())
		return fmt.Errorf("upsert %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
