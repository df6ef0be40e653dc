package memory_test

import (
	"context"
	"sync"
	"testing"

	"github.com/aretw0/faultline/pkg/adapters/memory"
	"github.com/aretw0/faultline/pkg/domain"
	"github.com/aretw0/faultline/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Contract(t *testing.T) {
	store := memory.NewStore()
	ports.RunFlagStoreContract(t, store)
}

func TestMemoryStore_Prepopulated(t *testing.T) {
	store := memory.NewStore(domain.DefaultFlags(true)...)

	flags, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, flags, 2)
	assert.Equal(t, domain.FlagDelaySimulation, flags[0].ID)
	assert.Equal(t, domain.FlagTimeoutError, flags[1].ID)
}

func TestMemoryStore_RejectsEmptyID(t *testing.T) {
	store := memory.NewStore()
	err := store.Put(context.Background(), domain.Flag{})
	assert.Error(t, err)
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	store := memory.NewStore(domain.Flag{ID: "race"})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(enabled bool) {
			defer wg.Done()
			_ = store.Put(ctx, domain.Flag{ID: "race", Enabled: enabled})
		}(i%2 == 0)
		go func() {
			defer wg.Done()
			_, _ = store.Get(ctx, "race")
		}()
	}
	wg.Wait()

	_, err := store.Get(ctx, "race")
	assert.NoError(t, err)
}
