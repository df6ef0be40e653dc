package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/faultline/internal/config"
	faulthttp "github.com/aretw0/faultline/pkg/adapters/http"
	"github.com/aretw0/faultline/pkg/adapters/memory"
	"github.com/aretw0/faultline/pkg/adapters/redis"
	"github.com/aretw0/faultline/pkg/ports"
)

// openStore builds the configured flag backend and seeds it.
// The returned closer releases backend connections.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (ports.FlagStore, func() error, error) {
	noop := func() error { return nil }

	var (
		store  ports.FlagStore
		closer = noop
	)
	switch cfg.Backend {
	case config.BackendMemory:
		store = memory.NewStore()
	case config.BackendRedis:
		rs := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, redis.WithPrefix(cfg.Redis.Prefix))
		if err := rs.Ping(ctx); err != nil {
			rs.Close()
			return nil, noop, fmt.Errorf("redis backend unreachable at %s: %w", cfg.Redis.Addr, err)
		}
		store, closer = rs, rs.Close
	case config.BackendRemote:
		// The remote service owns its flags; nothing to seed.
		logger.Info("Using remote flag service", "url", cfg.Remote.URL)
		return faulthttp.NewClient(cfg.Remote.URL), noop, nil
	default:
		return nil, noop, fmt.Errorf("unknown backend %q", cfg.Backend)
	}

	if seeder, ok := store.(ports.FlagSeeder); ok {
		seed := cfg.SeedFlags()
		if err := seeder.Seed(ctx, seed); err != nil {
			closer()
			return nil, noop, fmt.Errorf("failed to seed flags: %w", err)
		}
		logger.Debug("Flags seeded", "backend", cfg.Backend, "count", len(seed))
	}
	return store, closer, nil
}
