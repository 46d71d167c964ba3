// Package cache provides cache-first loading of provider responses.
// Entries carry their own expiry so that expired data can still serve as a
// fallback when the provider fails.
package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/aristath/marketintel/internal/metrics"
)

// Entry is a cached payload and the moment it stops being fresh
type Entry struct {
	Data      []byte    `msgpack:"d"`
	ExpiresAt time.Time `msgpack:"e"`
}

// Fresh reports whether the entry is still within its TTL
func (e Entry) Fresh(now time.Time) bool {
	return now.Before(e.ExpiresAt)
}

// Store persists cache entries. Get returns found=false for unknown keys,
// and returns expired entries so callers can fall back to them.
type Store interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
}

// Memory is an in-process Store
type Memory struct {
	mu      sync.RWMutex
	entries map[string]Entry
	now     func() time.Time
}

// NewMemory creates an empty in-process store
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]Entry), now: time.Now}
}

// Get returns the entry for key, fresh or not
func (m *Memory) Get(_ context.Context, key string) (Entry, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[key]
	return e, ok, nil
}

// Set stores data for ttl
func (m *Memory) Set(_ context.Context, key string, data []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = Entry{Data: data, ExpiresAt: m.now().Add(ttl)}
	return nil
}

// Loader wraps a Store with encoding, metrics and stale fallback
type Loader struct {
	store   Store
	metrics *metrics.Registry
	log     zerolog.Logger
	now     func() time.Time
}

// NewLoader creates a loader. A nil store disables caching.
func NewLoader(store Store, m *metrics.Registry, log zerolog.Logger) *Loader {
	return &Loader{
		store:   store,
		metrics: m,
		log:     log.With().Str("component", "cache").Logger(),
		now:     time.Now,
	}
}

// Key joins key parts with ':' after normalising case
func Key(parts ...string) string {
	for i, p := range parts {
		parts[i] = strings.ToLower(strings.TrimSpace(p))
	}
	return strings.Join(parts, ":")
}

// Fetch returns the cached value for key when fresh. Otherwise it calls fetch,
// caches the result for ttl and returns it. If fetch fails and an expired entry
// exists, the expired value is returned instead of the error.
func Fetch[T any](ctx context.Context, l *Loader, key string, ttl time.Duration, fetch func(context.Context) (T, error)) (T, error) {
	if l == nil || l.store == nil {
		return fetch(ctx)
	}

	namespace := key
	if i := strings.IndexByte(key, ':'); i > 0 {
		namespace = key[:i]
	}

	var stale *T
	entry, found, err := l.store.Get(ctx, key)
	if err != nil {
		l.log.Warn().Err(err).Str("key", key).Msg("Failed to read from cache")
	} else if found {
		var cached T
		if err := msgpack.Unmarshal(entry.Data, &cached); err != nil {
			l.log.Warn().Err(err).Str("key", key).Msg("Failed to decode cached data")
		} else if entry.Fresh(l.now()) {
			l.metrics.ObserveCache(namespace, "fresh")
			l.log.Debug().Str("key", key).Msg("Cache hit")
			return cached, nil
		} else {
			stale = &cached
		}
	}

	value, fetchErr := fetch(ctx)
	if fetchErr != nil {
		if stale != nil {
			l.metrics.ObserveCache(namespace, "stale")
			l.log.Warn().
				Err(fetchErr).
				Str("key", key).
				Msg("Provider failed, using stale cached data")
			return *stale, nil
		}
		l.metrics.ObserveCache(namespace, "miss")
		return value, fetchErr
	}
	l.metrics.ObserveCache(namespace, "miss")

	data, err := msgpack.Marshal(value)
	if err != nil {
		l.log.Warn().Err(err).Str("key", key).Msg("Failed to encode value for cache")
		return value, nil
	}
	if err := l.store.Set(ctx, key, data, ttl); err != nil {
		l.log.Warn().Err(err).Str("key", key).Msg("Failed to write to cache")
	}
	return value, nil
}

// Invalidate drops key by writing an already expired entry
func (l *Loader) Invalidate(ctx context.Context, key string) error {
	if l == nil || l.store == nil {
		return nil
	}
	if err := l.store.Set(ctx, key, nil, -time.Second); err != nil {
		return fmt.Errorf("failed to invalidate %s: %w", key, err)
	}
	return nil
}
