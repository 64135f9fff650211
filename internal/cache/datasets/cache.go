// Package datasets keeps recently opened datasets in memory.
package datasets

import (
	"context"
	"log/slog"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/mohammed-shakir/edr-coverage-engine/internal/cache/keys"
	"github.com/mohammed-shakir/edr-coverage-engine/internal/core/edrerr"
	"github.com/mohammed-shakir/edr-coverage-engine/internal/core/observability"
	"github.com/mohammed-shakir/edr-coverage-engine/internal/dataset"
	"github.com/mohammed-shakir/edr-coverage-engine/internal/dataset/ncio"
	"github.com/mohammed-shakir/edr-coverage-engine/internal/logger"
)

const cacheName = "datasets"

// Opener reads a dataset from disk.
type Opener func(path string) (*dataset.Dataset, error)

type entry struct {
	path string
	ds   *dataset.Dataset
}

// Cache is a read-through provider.DatasetSource keyed by file fingerprint,
// so a rewritten file is read again on its next use.
type Cache struct {
	mu    sync.Mutex
	lru   *lru.Cache[string, entry]
	open  Opener
	stat  func(path string) (string, error)
	loads singleflight.Group
	log   *slog.Logger
}

type Options struct {
	Logger *slog.Logger
	Opener Opener
}

func New(size int, opts Options) *Cache {
	if size <= 0 {
		size = 8
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Opener == nil {
		opts.Opener = ncio.Open
	}
	c, _ := lru.New[string, entry](size)
	return &Cache{lru: c, open: opts.Opener, stat: keys.Stat, log: opts.Logger}
}

func (c *Cache) Open(ctx context.Context, path string) (*dataset.Dataset, string, error) {
	fp, err := c.stat(path)
	if err != nil {
		observability.IncCacheResult(cacheName, "error")
		return nil, "", edrerr.Wrap(edrerr.Internal, err, "open dataset")
	}
	if e, ok := c.lru.Get(fp); ok {
		observability.IncCacheResult(cacheName, "hit")
		c.log.DebugContext(logger.WithCacheOutcome(ctx, "hit"), "dataset served from cache", "path", path)
		return e.ds, fp, nil
	}
	observability.IncCacheResult(cacheName, "miss")
	ctx = logger.WithCacheOutcome(ctx, "miss")

	v, err, _ := c.loads.Do(fp, func() (any, error) {
		ds, err := c.open(path)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.dropPath(path)
		c.lru.Add(fp, entry{path: path, ds: ds})
		c.mu.Unlock()
		c.log.DebugContext(ctx, "dataset loaded", "path", path, "fingerprint", fp)
		return ds, nil
	})
	if err != nil {
		return nil, "", edrerr.Wrap(edrerr.Internal, err, "open dataset")
	}
	return v.(*dataset.Dataset), fp, nil
}

// Evict drops every cached version of the file at path and reports how
// many entries were removed.
func (c *Cache) Evict(path string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropPath(path)
}

func (c *Cache) dropPath(path string) int {
	n := 0
	for _, k := range c.lru.Keys() {
		if e, ok := c.lru.Peek(k); ok && e.path == path {
			c.lru.Remove(k)
			n++
		}
	}
	return n
}

func (c *Cache) Len() int { return c.lru.Len() }
