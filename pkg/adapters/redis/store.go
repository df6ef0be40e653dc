package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aretw0/faultline/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// Store implements ports.FlagStore using a Redis hash.
// Each field is a flag ID and each value the JSON encoded flag.
type Store struct {
	client *backend.Client
	prefix string
}

type Option func(*Store)

// WithPrefix sets the key prefix for the flag hash.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: "faultline:",
	}

	for _, opt := range opts {
		opt(store)
	}

	return store
}

func (s *Store) key() string {
	return s.prefix + "flags"
}

// Get retrieves a flag from Redis.
func (s *Store) Get(ctx context.Context, id domain.FlagName) (domain.Flag, error) {
	val, err := s.client.HGet(ctx, s.key(), id).Result()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return domain.Flag{}, domain.ErrFlagNotFound
		}
		return domain.Flag{}, fmt.Errorf("failed to get flag from redis: %w", err)
	}

	var flag domain.Flag
	if err := json.Unmarshal([]byte(val), &flag); err != nil {
		return domain.Flag{}, fmt.Errorf("failed to unmarshal flag %q: %w", id, err)
	}
	flag.ID = id

	return flag, nil
}

// List returns every flag stored in the hash, ordered by ID.
func (s *Store) List(ctx context.Context) ([]domain.Flag, error) {
	vals, err := s.client.HGetAll(ctx, s.key()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list flags: %w", err)
	}

	flags := make([]domain.Flag, 0, len(vals))
	for id, val := range vals {
		var flag domain.Flag
		if err := json.Unmarshal([]byte(val), &flag); err != nil {
			return nil, fmt.Errorf("failed to unmarshal flag %q: %w", id, err)
		}
		flag.ID = id
		flags = append(flags, flag)
	}
	domain.SortFlags(flags)

	return flags, nil
}

// Put persists the flag to Redis, replacing any previous value.
func (s *Store) Put(ctx context.Context, flag domain.Flag) error {
	if err := flag.Validate(); err != nil {
		return err
	}

	data, err := json.Marshal(flag)
	if err != nil {
		return fmt.Errorf("failed to marshal flag: %w", err)
	}

	if err := s.client.HSet(ctx, s.key(), flag.ID, data).Err(); err != nil {
		return fmt.Errorf("failed to save flag to redis: %w", err)
	}
	return nil
}

// Seed registers flags with HSETNX so that values toggled by an operator
// survive process restarts. Nothing is written unless every flag is valid.
func (s *Store) Seed(ctx context.Context, flags []domain.Flag) error {
	pipe := s.client.Pipeline()

	for _, flag := range flags {
		if err := flag.Validate(); err != nil {
			return err
		}
		data, err := json.Marshal(flag)
		if err != nil {
			return fmt.Errorf("failed to marshal flag: %w", err)
		}
		pipe.HSetNX(ctx, s.key(), flag.ID, data)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to seed flags: %w", err)
	}
	return nil
}

// maxToggleRetries bounds optimistic retries when concurrent writers race on the hash.
const maxToggleRetries = 50

// SetEnabled toggles a modifiable flag inside a WATCH/MULTI transaction,
// retrying when another client modified the hash in between.
func (s *Store) SetEnabled(ctx context.Context, id domain.FlagName, enabled bool) (domain.Flag, error) {
	var updated domain.Flag

	txf := func(tx *backend.Tx) error {
		val, err := tx.HGet(ctx, s.key(), id).Result()
		if err != nil {
			if errors.Is(err, backend.Nil) {
				return domain.ErrFlagNotFound
			}
			return fmt.Errorf("failed to get flag from redis: %w", err)
		}

		var flag domain.Flag
		if err := json.Unmarshal([]byte(val), &flag); err != nil {
			return fmt.Errorf("failed to unmarshal flag %q: %w", id, err)
		}
		flag.ID = id
		if !flag.Modifiable {
			return domain.ErrFlagNotModifiable
		}
		flag.Enabled = enabled

		data, err := json.Marshal(flag)
		if err != nil {
			return fmt.Errorf("failed to marshal flag: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
			pipe.HSet(ctx, s.key(), id, data)
			return nil
		})
		if err != nil {
			return err
		}
		updated = flag
		return nil
	}

	for i := 0; i < maxToggleRetries; i++ {
		err := s.client.Watch(ctx, txf, s.key())
		if err == nil {
			return updated, nil
		}
		if errors.Is(err, backend.TxFailedErr) {
			continue
		}
		if errors.Is(err, domain.ErrFlagNotFound) || errors.Is(err, domain.ErrFlagNotModifiable) {
			return domain.Flag{}, err
		}
		return domain.Flag{}, fmt.Errorf("failed to toggle flag %q: %w", id, err)
	}
	return domain.Flag{}, fmt.Errorf("failed to toggle flag %q: too much contention", id)
}

// Ping checks connectivity with the server.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
