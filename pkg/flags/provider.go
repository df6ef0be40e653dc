package flags

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aretw0/faultline/internal/logging"
	"github.com/aretw0/faultline/pkg/domain"
	"github.com/aretw0/faultline/pkg/ports"
)

// Option configures the providers of this package.
type Option func(*options)

type options struct {
	logger       *slog.Logger
	fetchTimeout time.Duration
}

// WithLogger configures a logger for backend failures.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithFetchTimeout bounds each backend read issued by a cached provider.
// Zero (the default) leaves the read unbounded.
func WithFetchTimeout(d time.Duration) Option {
	return func(o *options) {
		o.fetchTimeout = d
	}
}

func newOptions(opts []Option) options {
	o := options{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// StoreProvider resolves flag states by reading records from a FlagStore.
type StoreProvider struct {
	store  ports.FlagStore
	logger *slog.Logger
}

var _ ports.FlagProvider = (*StoreProvider)(nil)

// FromStore wraps a FlagStore as a FlagProvider.
func FromStore(store ports.FlagStore, opts ...Option) *StoreProvider {
	o := newOptions(opts)
	return &StoreProvider{store: store, logger: o.logger}
}

// FlagState returns the Enabled field of the stored flag, or fallback when the
// flag is unknown or the store fails. Only context errors are returned.
func (p *StoreProvider) FlagState(ctx context.Context, name domain.FlagName, fallback bool) (bool, error) {
	if err := ctx.Err(); err != nil {
		return fallback, err
	}

	flag, err := p.store.Get(ctx, name)
	if err == nil {
		return flag.Enabled, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return fallback, ctxErr
	}
	if errors.Is(err, domain.ErrFlagNotFound) {
		p.logger.Debug("Flag unknown, using fallback", "flag", name, "fallback", fallback)
		return fallback, nil
	}

	p.logger.Warn("Flag lookup failed, using fallback", "flag", name, "fallback", fallback, "error", err)
	return fallback, nil
}

// Static returns a provider answering from a fixed map.
// Names missing from the map resolve to the fallback.
func Static(states map[domain.FlagName]bool) ports.FlagProvider {
	snapshot := make(map[domain.FlagName]bool, len(states))
	for k, v := range states {
		snapshot[k] = v
	}
	return ports.FlagProviderFunc(func(ctx context.Context, name domain.FlagName, fallback bool) (bool, error) {
		if err := ctx.Err(); err != nil {
			return fallback, err
		}
		if v, ok := snapshot[name]; ok {
			return v, nil
		}
		return fallback, nil
	})
}
