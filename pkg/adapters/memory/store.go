package memory

import (
	"context"
	"sync"

	"github.com/aretw0/faultline/pkg/domain"
)

// Store implements ports.FlagStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[domain.FlagName]domain.Flag
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store, optionally pre-populated.
func NewStore(flags ...domain.Flag) *Store {
	s := &Store{
		data: make(map[domain.FlagName]domain.Flag, len(flags)),
	}
	for _, f := range flags {
		s.data[f.ID] = f
	}
	return s
}

// Get retrieves a flag from memory.
func (s *Store) Get(ctx context.Context, id domain.FlagName) (domain.Flag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	flag, ok := s.data[id]
	if !ok {
		return domain.Flag{}, domain.ErrFlagNotFound
	}
	return flag, nil
}

// List returns all flags ordered by ID.
func (s *Store) List(ctx context.Context) ([]domain.Flag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	flags := make([]domain.Flag, 0, len(s.data))
	for _, f := range s.data {
		flags = append(flags, f)
	}
	domain.SortFlags(flags)
	return flags, nil
}

// Put creates or replaces a flag.
func (s *Store) Put(ctx context.Context, flag domain.Flag) error {
	if err := flag.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[flag.ID] = flag
	return nil
}

// Seed adds flags that are not yet known, leaving existing ones untouched.
func (s *Store) Seed(ctx context.Context, flags []domain.Flag) error {
	for _, f := range flags {
		if err := f.Validate(); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, f := range flags {
		if _, exists := s.data[f.ID]; !exists {
			s.data[f.ID] = f
		}
	}
	return nil
}

// SetEnabled toggles a modifiable flag under the store lock.
func (s *Store) SetEnabled(ctx context.Context, id domain.FlagName, enabled bool) (domain.Flag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	flag, ok := s.data[id]
	if !ok {
		return domain.Flag{}, domain.ErrFlagNotFound
	}
	if !flag.Modifiable {
		return domain.Flag{}, domain.ErrFlagNotModifiable
	}
	flag.Enabled = enabled
	s.data[id] = flag
	return flag, nil
}
