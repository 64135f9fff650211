// Package axisstore shares discovered axis properties between replicas
// through Redis.
package axisstore

import (
	"context"
	"log/slog"
	"time"

	"github.com/goccy/go-json"

	"github.com/mohammed-shakir/edr-coverage-engine/internal/axes"
	"github.com/mohammed-shakir/edr-coverage-engine/internal/cache"
	"github.com/mohammed-shakir/edr-coverage-engine/internal/cache/keys"
	"github.com/mohammed-shakir/edr-coverage-engine/internal/core/observability"
)

const cacheName = "axes"

type Options struct {
	Logger *slog.Logger
	// TTL returns the lifetime of a collection's entries. Zero means no expiry.
	TTL func(collection string) time.Duration
	// OpTimeout bounds each Redis round trip.
	OpTimeout time.Duration
}

// Store is a provider.AxisCache. Redis failures degrade to misses.
type Store struct {
	rc      cache.Interface
	log     *slog.Logger
	ttl     func(string) time.Duration
	timeout time.Duration
}

func New(rc cache.Interface, opts Options) *Store {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.TTL == nil {
		opts.TTL = func(string) time.Duration { return 10 * time.Minute }
	}
	if opts.OpTimeout <= 0 {
		opts.OpTimeout = 250 * time.Millisecond
	}
	return &Store{rc: rc, log: opts.Logger, ttl: opts.TTL, timeout: opts.OpTimeout}
}

func (s *Store) Get(ctx context.Context, collection, fingerprint string) (axes.Properties, bool) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	k := keys.AxisKey(collection, fingerprint)
	got, err := s.rc.MGet(ctx, []string{k})
	if err != nil {
		s.log.WarnContext(ctx, "axis cache read failed", "key", k, "err", err)
		observability.IncCacheResult(cacheName, "error")
		return axes.Properties{}, false
	}
	b, ok := got[k]
	if !ok {
		observability.IncCacheResult(cacheName, "miss")
		return axes.Properties{}, false
	}
	var p axes.Properties
	if err := json.Unmarshal(b, &p); err != nil {
		s.log.WarnContext(ctx, "axis cache entry unreadable", "key", k, "err", err)
		observability.IncCacheResult(cacheName, "error")
		return axes.Properties{}, false
	}
	observability.IncCacheResult(cacheName, "hit")
	return p, true
}

func (s *Store) Put(ctx context.Context, collection, fingerprint string, p axes.Properties) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	k := keys.AxisKey(collection, fingerprint)
	b, err := json.Marshal(p)
	if err != nil {
		s.log.WarnContext(ctx, "axis cache encode failed", "key", k, "err", err)
		return
	}
	if err := s.rc.Set(ctx, k, b, s.ttl(collection)); err != nil {
		s.log.WarnContext(ctx, "axis cache write failed", "key", k, "err", err)
	}
}

// EvictCollection drops every cached dataset version of collection.
func (s *Store) EvictCollection(ctx context.Context, collection string) (int, error) {
	return s.rc.DelPattern(ctx, keys.AxisPattern(collection))
}
