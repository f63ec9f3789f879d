package core

import (
	"context"
	"path/filepath"
	"sort"
	"sync"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// Catalog holds the datasets of several sessions by name and rebuilds them
// on request. Datasets are immutable; a reload builds a new one and swaps it
// in, so readers holding the old one are unaffected.
type Catalog struct {
	loader  *Loader
	limiter *LoadLimiter
	log     *zap.Logger

	mu    sync.RWMutex
	roots map[string]string
	logs  map[string]*Dataset
}

// NewCatalog returns an empty catalog. A nil limiter uses the defaults and a
// nil logger discards output.
func NewCatalog(loader *Loader, limiter *LoadLimiter, log *zap.Logger) *Catalog {
	if limiter == nil {
		limiter = NewLoadLimiter(0, 0)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Catalog{
		loader:  loader,
		limiter: limiter,
		log:     log,
		roots:   make(map[string]string),
		logs:    make(map[string]*Dataset),
	}
}

// LoadSessions discovers the sessions under dir and loads each one. A session
// that fails to load is logged and skipped; only discovery errors and
// cancellation are returned.
func (c *Catalog) LoadSessions(ctx context.Context, dir string, subset []string) error {
	roots, err := DiscoverSessions(dir, c.loader.Options().ParsedDir, subset)
	if err != nil {
		return err
	}
	if len(roots) == 0 {
		c.log.Warn("no sessions found", zap.String("dir", dir))
	}
	for _, root := range roots {
		if _, err := c.Add(ctx, root); err != nil {
			if ctx.Err() != nil {
				return err
			}
			c.log.Error("session not loaded", zap.String("root", root), zap.Error(err))
		}
	}
	return nil
}

// Add loads the session at root and registers it under its directory name,
// replacing any dataset of the same name.
func (c *Catalog) Add(ctx context.Context, root string) (*Dataset, error) {
	if err := c.limiter.Acquire(ctx); err != nil {
		return nil, errors.Wrapf(err, "load %s", filepath.Base(root))
	}
	defer c.limiter.Release()

	d, err := c.loader.Load(ctx, root)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.roots[d.Name] = root
	c.logs[d.Name] = d
	c.mu.Unlock()
	return d, nil
}

// Reload rebuilds a registered session from disk.
func (c *Catalog) Reload(ctx context.Context, name string) (*Dataset, error) {
	c.mu.RLock()
	root, ok := c.roots[name]
	c.mu.RUnlock()
	if !ok {
		return nil, c.missing(name)
	}
	return c.Add(ctx, root)
}

// Get returns the dataset registered under name.
func (c *Catalog) Get(name string) (*Dataset, error) {
	c.mu.RLock()
	d, ok := c.logs[name]
	c.mu.RUnlock()
	if !ok {
		return nil, c.missing(name)
	}
	return d, nil
}

// Names returns the registered session names in lexicographic order.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.logs))
	for name := range c.logs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Datasets returns every registered dataset ordered by name.
func (c *Catalog) Datasets() []*Dataset {
	names := c.Names()
	out := make([]*Dataset, 0, len(names))
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, name := range names {
		if d, ok := c.logs[name]; ok {
			out = append(out, d)
		}
	}
	return out
}

// Options returns the loader options every dataset is built with.
func (c *Catalog) Options() Options {
	return c.loader.Options()
}

// Limiter exposes the load limiter for status reporting and shutdown.
func (c *Catalog) Limiter() *LoadLimiter {
	return c.limiter
}

func (c *Catalog) missing(name string) error {
	return errors.Mark(errors.Newf("log %s not found", name), ErrNotFound)
}
