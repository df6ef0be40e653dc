package flags

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/faultline/pkg/domain"
	"github.com/aretw0/faultline/pkg/ports"
	"golang.org/x/sync/singleflight"
)

// entry is a cached lookup result. Unknown flags are cached as known=false.
type entry struct {
	enabled bool
	known   bool
	expires time.Time
}

func (e entry) resolve(fallback bool) bool {
	if !e.known {
		return fallback
	}
	return e.enabled
}

// CachedProvider is a FlagProvider reading through a TTL cache.
// Concurrent misses for the same flag share a single backend read.
// Safe for concurrent use.
type CachedProvider struct {
	store        ports.FlagStore
	ttl          time.Duration
	fetchTimeout time.Duration
	logger       *slog.Logger
	now          func() time.Time

	mu      sync.Mutex
	entries map[domain.FlagName]entry
	group   singleflight.Group
}

var _ ports.FlagProvider = (*CachedProvider)(nil)

// NewCached creates a cached provider over store.
// A ttl of zero disables caching but keeps miss collapsing.
func NewCached(store ports.FlagStore, ttl time.Duration, opts ...Option) *CachedProvider {
	o := newOptions(opts)
	return &CachedProvider{
		store:        store,
		ttl:          ttl,
		fetchTimeout: o.fetchTimeout,
		logger:       o.logger,
		now:          time.Now,
		entries:      make(map[domain.FlagName]entry),
	}
}

// FlagState returns the cached state of name, refreshing it when expired.
// If the refresh fails the last known value is served; without one, fallback.
func (c *CachedProvider) FlagState(ctx context.Context, name domain.FlagName, fallback bool) (bool, error) {
	if err := ctx.Err(); err != nil {
		return fallback, err
	}

	cached, ok := c.lookup(name)
	if ok && c.now().Before(cached.expires) {
		return cached.resolve(fallback), nil
	}

	ch := c.group.DoChan(name, func() (v any, err error) {
		// DoChan re-panics on its own goroutine, out of reach of any recoverer.
		defer func() {
			if p := recover(); p != nil {
				c.logger.Error("Flag refresh panicked", "flag", name, "panic", p)
				err = fmt.Errorf("flag refresh panicked: %v", p)
			}
		}()
		return c.refresh(ctx, name)
	})

	select {
	case <-ctx.Done():
		return fallback, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			if stale, ok := c.lookup(name); ok {
				c.logger.Debug("Serving stale flag state", "flag", name, "enabled", stale.resolve(fallback))
				return stale.resolve(fallback), nil
			}
			return fallback, nil
		}
		return res.Val.(entry).resolve(fallback), nil
	}
}

// Invalidate drops the cached state of name so the next lookup reads the backend.
func (c *CachedProvider) Invalidate(name domain.FlagName) {
	c.mu.Lock()
	delete(c.entries, name)
	c.mu.Unlock()
	c.group.Forget(name)
}

func (c *CachedProvider) lookup(name domain.FlagName) (entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[name]
	return e, ok
}

// refresh reads the backend on behalf of every waiter, so it must not be
// aborted by the cancellation of whichever request happened to start it.
func (c *CachedProvider) refresh(ctx context.Context, name domain.FlagName) (entry, error) {
	fetchCtx := context.WithoutCancel(ctx)
	if c.fetchTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(fetchCtx, c.fetchTimeout)
		defer cancel()
	}

	flag, err := c.store.Get(fetchCtx, name)

	var e entry
	switch {
	case err == nil:
		e = entry{enabled: flag.Enabled, known: true}
	case errors.Is(err, domain.ErrFlagNotFound):
		c.logger.Debug("Flag unknown, caching miss", "flag", name)
	default:
		c.logger.Warn("Flag refresh failed", "flag", name, "error", err)
		return entry{}, err
	}

	e.expires = c.now().Add(c.ttl)

	c.mu.Lock()
	c.entries[name] = e
	c.mu.Unlock()

	return e, nil
}
