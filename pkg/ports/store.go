package ports

import (
	"context"

	"github.com/aretw0/faultline/pkg/domain"
)

// FlagStore defines the interface for reading and toggling flag records.
type FlagStore interface {
	// Get retrieves a single flag.
	// Returns domain.ErrFlagNotFound if the flag does not exist.
	Get(ctx context.Context, id domain.FlagName) (domain.Flag, error)

	// List returns every known flag ordered by ID.
	List(ctx context.Context) ([]domain.Flag, error)

	// Put creates or replaces a flag record.
	Put(ctx context.Context, flag domain.Flag) error
}

// FlagSeeder is implemented by stores able to register flags without
// overwriting records that already exist (e.g. toggled by an operator).
type FlagSeeder interface {
	Seed(ctx context.Context, flags []domain.Flag) error
}

// FlagToggler is implemented by stores able to flip Enabled atomically,
// so concurrent toggles of the same flag cannot overwrite each other.
type FlagToggler interface {
	// SetEnabled updates Enabled and returns the stored flag.
	// Returns domain.ErrFlagNotFound for unknown flags and
	// domain.ErrFlagNotModifiable for read-only ones.
	SetEnabled(ctx context.Context, id domain.FlagName, enabled bool) (domain.Flag, error)
}
