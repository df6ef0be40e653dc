package ports

import (
	"context"
	"sync"
	"testing"

	"github.com/aretw0/faultline/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunFlagStoreContract runs a suite of tests to verify that a FlagStore implementation
// adheres to the defined interface contract. The store must start empty.
func RunFlagStoreContract(t *testing.T, store FlagStore) {
	ctx := context.Background()

	t.Run("Put and Get", func(t *testing.T) {
		flag := domain.Flag{
			ID:          "contract-flag",
			Enabled:     true,
			Name:        "Contract flag",
			Description: "Used by the store contract suite",
			Modifiable:  true,
			Tag:         domain.TagProblemPattern,
			Group:       domain.GroupPerformance,
		}

		err := store.Put(ctx, flag)
		require.NoError(t, err, "Put should not return error")

		loaded, err := store.Get(ctx, flag.ID)
		require.NoError(t, err, "Get should not return error")
		assert.Equal(t, flag, loaded)
	})

	t.Run("Get Non-Existent", func(t *testing.T) {
		_, err := store.Get(ctx, "non-existent-flag")
		assert.ErrorIs(t, err, domain.ErrFlagNotFound)
	})

	t.Run("Names Are Case-Sensitive", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, domain.Flag{ID: "CaseFlag", Enabled: true}))

		_, err := store.Get(ctx, "caseflag")
		assert.ErrorIs(t, err, domain.ErrFlagNotFound)
	})

	t.Run("Put Overwrites", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, domain.Flag{ID: "toggle", Enabled: true}))
		require.NoError(t, store.Put(ctx, domain.Flag{ID: "toggle", Enabled: false}))

		loaded, err := store.Get(ctx, "toggle")
		require.NoError(t, err)
		assert.False(t, loaded.Enabled)
	})

	t.Run("List", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, domain.Flag{ID: "list-b"}))
		require.NoError(t, store.Put(ctx, domain.Flag{ID: "list-a"}))

		flags, err := store.List(ctx)
		require.NoError(t, err)

		ids := make([]string, 0, len(flags))
		for _, f := range flags {
			ids = append(ids, f.ID)
		}
		assert.Contains(t, ids, "list-a")
		assert.Contains(t, ids, "list-b")
		assert.IsIncreasing(t, ids, "List should be ordered by ID")
	})

	if seeder, ok := store.(FlagSeeder); ok {
		t.Run("Seed Keeps Existing", func(t *testing.T) {
			require.NoError(t, store.Put(ctx, domain.Flag{ID: "seeded", Enabled: true}))

			err := seeder.Seed(ctx, []domain.Flag{
				{ID: "seeded", Enabled: false},
				{ID: "seeded-new", Enabled: true},
			})
			require.NoError(t, err)

			existing, err := store.Get(ctx, "seeded")
			require.NoError(t, err)
			assert.True(t, existing.Enabled, "Seed must not overwrite existing flags")

			added, err := store.Get(ctx, "seeded-new")
			require.NoError(t, err)
			assert.True(t, added.Enabled)
		})

		t.Run("Seed Is All Or Nothing", func(t *testing.T) {
			err := seeder.Seed(ctx, []domain.Flag{
				{ID: "seed-valid", Enabled: true},
				{ID: ""},
			})
			require.Error(t, err)

			_, err = store.Get(ctx, "seed-valid")
			assert.ErrorIs(t, err, domain.ErrFlagNotFound, "an invalid seed must not leave earlier flags applied")
		})
	}

	if toggler, ok := store.(FlagToggler); ok {
		t.Run("SetEnabled", func(t *testing.T) {
			flag := domain.Flag{ID: "switch", Name: "Switch", Description: "kept", Modifiable: true}
			require.NoError(t, store.Put(ctx, flag))

			updated, err := toggler.SetEnabled(ctx, "switch", true)
			require.NoError(t, err)
			assert.True(t, updated.Enabled)
			assert.Equal(t, "kept", updated.Description)

			loaded, err := store.Get(ctx, "switch")
			require.NoError(t, err)
			assert.Equal(t, updated, loaded)
		})

		t.Run("SetEnabled Unknown", func(t *testing.T) {
			_, err := toggler.SetEnabled(ctx, "switch-missing", true)
			assert.ErrorIs(t, err, domain.ErrFlagNotFound)
		})

		t.Run("SetEnabled Read-Only", func(t *testing.T) {
			require.NoError(t, store.Put(ctx, domain.Flag{ID: "switch-locked", Enabled: true}))

			_, err := toggler.SetEnabled(ctx, "switch-locked", false)
			assert.ErrorIs(t, err, domain.ErrFlagNotModifiable)

			loaded, err := store.Get(ctx, "switch-locked")
			require.NoError(t, err)
			assert.True(t, loaded.Enabled)
		})

		t.Run("SetEnabled Concurrent", func(t *testing.T) {
			require.NoError(t, store.Put(ctx, domain.Flag{ID: "switch-busy", Description: "kept", Modifiable: true}))

			var wg sync.WaitGroup
			errs := make(chan error, 20)
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func(enabled bool) {
					defer wg.Done()
					_, err := toggler.SetEnabled(ctx, "switch-busy", enabled)
					errs <- err
				}(i%2 == 0)
			}
			wg.Wait()
			close(errs)
			for err := range errs {
				assert.NoError(t, err)
			}

			loaded, err := store.Get(ctx, "switch-busy")
			require.NoError(t, err)
			assert.Equal(t, "kept", loaded.Description)
			assert.True(t, loaded.Modifiable)
		})
	}
}
