package ports

import (
	"context"

	"github.com/aretw0/faultline/pkg/domain"
)

// FlagProvider resolves the current state of a flag.
//
// Implementations must return fallback (and a nil error) when the state cannot be
// determined: unknown flag, unreachable backend or malformed record.
// The only errors surfaced are those of the context (cancellation or deadline),
// so that a request that went away unwinds instead of being processed.
type FlagProvider interface {
	FlagState(ctx context.Context, name domain.FlagName, fallback bool) (bool, error)
}

// FlagProviderFunc adapts a function to FlagProvider.
type FlagProviderFunc func(ctx context.Context, name domain.FlagName, fallback bool) (bool, error)

// FlagState calls f.
func (f FlagProviderFunc) FlagState(ctx context.Context, name domain.FlagName, fallback bool) (bool, error) {
	return f(ctx, name, fallback)
}
