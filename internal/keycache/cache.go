// Package keycache holds the identity provider's signing keys in memory.
//
// A set younger than the TTL is served without I/O. An expired or missing set
// is fetched synchronously; when that fails a previously fetched set is served
// stale. Concurrent fetches are not coalesced: every fetch is numbered when it
// starts and only a fetch newer than the stored one may replace it.
package keycache

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sing3demons/authgateway/pkg/jwks"
	"github.com/sing3demons/authgateway/pkg/logAction"
	"github.com/sing3demons/authgateway/pkg/mlog"
)

const (
	DefaultTTL          = 24 * time.Hour
	DefaultFetchTimeout = 5 * time.Second
)

type Cache struct {
	source  Source
	shared  SharedStore
	ttl     time.Duration
	timeout time.Duration
	now     func() time.Time

	seq atomic.Uint64

	mu        sync.RWMutex
	keys      jwks.Set
	fetchedAt time.Time
	storedSeq uint64
}

type Option func(*Cache)

func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

func WithFetchTimeout(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithSharedStore adds a tier consulted before the remote source on a miss.
func WithSharedStore(s SharedStore) Option {
	return func(c *Cache) { c.shared = s }
}

func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

func New(source Source, opts ...Option) *Cache {
	c := &Cache{
		source:  source,
		ttl:     DefaultTTL,
		timeout: DefaultFetchTimeout,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Keys returns the current key set, fetching it when absent or expired.
func (c *Cache) Keys(ctx context.Context) (jwks.Set, error) {
	c.mu.RLock()
	keys, fetchedAt := c.keys, c.fetchedAt
	c.mu.RUnlock()

	if keys != nil && c.now().Sub(fetchedAt) < c.ttl {
		return keys, nil
	}

	if c.shared != nil {
		if keys, ok := c.loadShared(ctx); ok {
			return keys, nil
		}
	}
	return c.fetch(ctx)
}

// Refresh fetches from the remote source regardless of age, skipping the
// shared tier. Used when a token names a kid the cached set does not have.
func (c *Cache) Refresh(ctx context.Context) (jwks.Set, error) {
	return c.fetch(ctx)
}

type Snapshot struct {
	KIDs      []string      `json:"kids"`
	FetchedAt time.Time     `json:"fetchedAt"`
	Age       time.Duration `json:"age"`
	Expired   bool          `json:"expired"`
	Sequence  uint64        `json:"sequence"`
}

func (c *Cache) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	kids := c.keys.KIDs()
	sort.Strings(kids)
	s := Snapshot{KIDs: kids, FetchedAt: c.fetchedAt, Sequence: c.storedSeq}
	if !c.fetchedAt.IsZero() {
		s.Age = c.now().Sub(c.fetchedAt)
		s.Expired = s.Age >= c.ttl
	}
	return s
}

func (c *Cache) fetch(ctx context.Context) (jwks.Set, error) {
	seq := c.seq.Add(1)
	log := mlog.L(ctx)

	fctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	doc, keys, err := c.fetchRemote(fctx)
	if err != nil {
		c.mu.RLock()
		stale := c.keys
		c.mu.RUnlock()

		if stale != nil {
			log.Warn(logAction.BUSINESS("serving stale signing keys"), map[string]any{
				"source": c.source.Location(),
				"error":  err.Error(),
			})
			return stale, nil
		}
		return nil, &FetchError{URL: c.source.Location(), Err: err}
	}

	fetchedAt := c.now()
	if !c.store(seq, keys, fetchedAt) {
		log.Debug(logAction.BUSINESS("discarded out of order key fetch"), map[string]any{"sequence": seq})
		return keys, nil
	}

	log.Info(logAction.BUSINESS("signing keys refreshed"), map[string]any{
		"kids":     keys.KIDs(),
		"sequence": seq,
	})

	if c.shared != nil {
		// shared tier failures only cost other replicas a fetch
		if err := c.shared.Save(ctx, doc, fetchedAt, c.ttl); err != nil {
			log.Warn(logAction.EXCEPTION("save shared key set"), err.Error())
		}
	}
	return keys, nil
}

func (c *Cache) fetchRemote(ctx context.Context) ([]byte, jwks.Set, error) {
	doc, err := c.source.Fetch(ctx)
	if err != nil {
		return nil, nil, err
	}
	keys, err := c.decode(ctx, doc)
	if err != nil {
		return nil, nil, err
	}
	return doc, keys, nil
}

func (c *Cache) decode(ctx context.Context, doc []byte) (jwks.Set, error) {
	keys, skipped, err := jwks.DecodeSet(doc)
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		mlog.L(ctx).Warn(logAction.BUSINESS("skipped unusable signing keys"), map[string]any{"skipped": skipped})
	}
	if len(keys) == 0 {
		return nil, ErrNoUsableKeys
	}
	return keys, nil
}

func (c *Cache) loadShared(ctx context.Context) (jwks.Set, bool) {
	seq := c.seq.Add(1)
	log := mlog.L(ctx)

	doc, fetchedAt, err := c.shared.Load(ctx)
	if err != nil {
		if !errors.Is(err, ErrSharedMiss) {
			log.Warn(logAction.EXCEPTION("load shared key set"), err.Error())
		}
		return nil, false
	}
	if c.now().Sub(fetchedAt) >= c.ttl {
		return nil, false
	}
	keys, err := c.decode(ctx, doc)
	if err != nil {
		log.Warn(logAction.EXCEPTION("decode shared key set"), err.Error())
		return nil, false
	}

	c.store(seq, keys, fetchedAt)
	return keys, true
}

// store swaps in keys unless a fetch that started later already stored its set.
func (c *Cache) store(seq uint64, keys jwks.Set, fetchedAt time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if seq < c.storedSeq {
		return false
	}
	c.keys = keys
	c.fetchedAt = fetchedAt
	c.storedSeq = seq
	return true
}
