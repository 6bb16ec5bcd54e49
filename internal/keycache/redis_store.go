package keycache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sing3demons/authgateway/pkg/logAction"
	"github.com/sing3demons/authgateway/pkg/logger"
	"github.com/sing3demons/authgateway/pkg/mlog"
)

// SharedStore lets several gateway replicas share one fetched document.
type SharedStore interface {
	// Load returns ErrSharedMiss when nothing is stored.
	Load(ctx context.Context) (doc []byte, fetchedAt time.Time, err error)
	Save(ctx context.Context, doc []byte, fetchedAt time.Time, ttl time.Duration) error
}

type sharedEntry struct {
	FetchedAt int64           `json:"fetchedAt"`
	Document  json.RawMessage `json:"document"`
}

type RedisStore struct {
	client redis.Cmdable
	key    string
}

func NewRedisStore(client redis.Cmdable, prefix string) *RedisStore {
	return &RedisStore{client: client, key: prefix + ":document"}
}

func (s *RedisStore) Load(ctx context.Context) ([]byte, time.Time, error) {
	start := time.Now()
	raw, err := s.client.Get(ctx, s.key).Bytes()
	mlog.L(ctx).SetDependencyMetadata(logger.DependencyMetadata{
		Dependency:   "redis",
		ResponseTime: time.Since(start).Milliseconds(),
	}).Debug(logAction.DB_REQUEST(logAction.DB_READ, "GET "+s.key), map[string]any{"found": err == nil})

	if errors.Is(err, redis.Nil) {
		return nil, time.Time{}, ErrSharedMiss
	}
	if err != nil {
		return nil, time.Time{}, err
	}

	var entry sharedEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, time.Time{}, fmt.Errorf("decode shared key set: %w", err)
	}
	return entry.Document, time.UnixMilli(entry.FetchedAt), nil
}

func (s *RedisStore) Save(ctx context.Context, doc []byte, fetchedAt time.Time, ttl time.Duration) error {
	raw, err := json.Marshal(sharedEntry{FetchedAt: fetchedAt.UnixMilli(), Document: doc})
	if err != nil {
		return err
	}

	start := time.Now()
	err = s.client.Set(ctx, s.key, raw, ttl).Err()
	mlog.L(ctx).SetDependencyMetadata(logger.DependencyMetadata{
		Dependency:   "redis",
		ResponseTime: time.Since(start).Milliseconds(),
	}).Debug(logAction.DB_REQUEST(logAction.DB_CREATE, "SET "+s.key), map[string]any{"ttl": ttl.String()})
	return err
}
