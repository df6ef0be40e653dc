package flags_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/faultline/pkg/adapters/memory"
	"github.com/aretw0/faultline/pkg/domain"
	"github.com/aretw0/faultline/pkg/flags"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// FakeStore is a FlagStore with injectable failures and latency.
type FakeStore struct {
	mu    sync.Mutex
	flags map[string]domain.Flag
	err   error
	gate  chan struct{}
	panic any
	calls atomic.Int32
}

func NewFakeStore(flags ...domain.Flag) *FakeStore {
	s := &FakeStore{flags: make(map[string]domain.Flag)}
	for _, f := range flags {
		s.flags[f.ID] = f
	}
	return s
}

func (s *FakeStore) Get(ctx context.Context, id string) (domain.Flag, error) {
	s.calls.Add(1)
	s.mu.Lock()
	gate := s.gate
	s.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return domain.Flag{}, ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.panic != nil {
		panic(s.panic)
	}
	if s.err != nil {
		return domain.Flag{}, s.err
	}
	f, ok := s.flags[id]
	if !ok {
		return domain.Flag{}, domain.ErrFlagNotFound
	}
	return f, nil
}

func (s *FakeStore) List(ctx context.Context) ([]domain.Flag, error) { return nil, nil }

func (s *FakeStore) Put(ctx context.Context, flag domain.Flag) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flags[flag.ID] = flag
	return nil
}

func (s *FakeStore) SetErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *FakeStore) SetPanic(v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.panic = v
}

func (s *FakeStore) SetGate(gate chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gate = gate
}

func TestStoreProvider_Resolves(t *testing.T) {
	store := memory.NewStore(
		domain.Flag{ID: domain.FlagDelaySimulation, Enabled: true},
		domain.Flag{ID: domain.FlagTimeoutError, Enabled: false},
	)
	p := flags.FromStore(store)
	ctx := context.Background()

	on, err := p.FlagState(ctx, domain.FlagDelaySimulation, false)
	require.NoError(t, err)
	assert.True(t, on)

	on, err = p.FlagState(ctx, domain.FlagTimeoutError, true)
	require.NoError(t, err)
	assert.False(t, on, "stored value wins over fallback")
}

func TestStoreProvider_UnknownFlagUsesFallback(t *testing.T) {
	p := flags.FromStore(memory.NewStore())

	on, err := p.FlagState(context.Background(), "Missing", false)
	require.NoError(t, err)
	assert.False(t, on)

	on, err = p.FlagState(context.Background(), "Missing", true)
	require.NoError(t, err)
	assert.True(t, on)
}

func TestStoreProvider_BackendFailureUsesFallback(t *testing.T) {
	store := NewFakeStore()
	store.SetErr(errors.New("connection refused"))
	p := flags.FromStore(store)

	on, err := p.FlagState(context.Background(), domain.FlagTimeoutError, false)
	assert.NoError(t, err, "backend failures must not surface")
	assert.False(t, on)
}

func TestStoreProvider_Cancelled(t *testing.T) {
	p := flags.FromStore(memory.NewStore(domain.Flag{ID: "x", Enabled: true}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.FlagState(ctx, "x", false)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStatic(t *testing.T) {
	states := map[string]bool{domain.FlagDelaySimulation: true}
	p := flags.Static(states)
	states[domain.FlagDelaySimulation] = false

	on, err := p.FlagState(context.Background(), domain.FlagDelaySimulation, false)
	require.NoError(t, err)
	assert.True(t, on, "Static must snapshot its input")

	on, err = p.FlagState(context.Background(), domain.FlagTimeoutError, false)
	require.NoError(t, err)
	assert.False(t, on)
}

func TestCached_HitsWithinTTL(t *testing.T) {
	store := NewFakeStore(domain.Flag{ID: "f", Enabled: true})
	p := flags.NewCached(store, time.Minute)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		on, err := p.FlagState(ctx, "f", false)
		require.NoError(t, err)
		assert.True(t, on)
	}
	assert.Equal(t, int32(1), store.calls.Load())
}

func TestCached_RefreshAfterExpiry(t *testing.T) {
	store := NewFakeStore(domain.Flag{ID: "f", Enabled: true})
	p := flags.NewCached(store, time.Second)

	now := time.Now()
	flags.SetClock(p, func() time.Time { return now })
	ctx := context.Background()

	on, _ := p.FlagState(ctx, "f", false)
	assert.True(t, on)

	_ = store.Put(ctx, domain.Flag{ID: "f", Enabled: false})
	on, _ = p.FlagState(ctx, "f", false)
	assert.True(t, on, "still cached")

	now = now.Add(2 * time.Second)
	on, _ = p.FlagState(ctx, "f", false)
	assert.False(t, on, "refreshed after TTL")
	assert.Equal(t, int32(2), store.calls.Load())
}

func TestCached_ServesStaleOnFailure(t *testing.T) {
	store := NewFakeStore(domain.Flag{ID: "f", Enabled: true})
	p := flags.NewCached(store, time.Second)

	now := time.Now()
	flags.SetClock(p, func() time.Time { return now })
	ctx := context.Background()

	on, _ := p.FlagState(ctx, "f", false)
	require.True(t, on)

	store.SetErr(errors.New("redis down"))
	now = now.Add(time.Hour)

	on, err := p.FlagState(ctx, "f", false)
	require.NoError(t, err)
	assert.True(t, on, "last known value wins over fallback")
}

func TestCached_FailureWithoutHistoryUsesFallback(t *testing.T) {
	store := NewFakeStore()
	store.SetErr(errors.New("redis down"))
	p := flags.NewCached(store, time.Second)

	on, err := p.FlagState(context.Background(), "f", true)
	require.NoError(t, err)
	assert.True(t, on)
}

func TestCached_UnknownFlagIsCached(t *testing.T) {
	store := NewFakeStore()
	p := flags.NewCached(store, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		on, err := p.FlagState(ctx, "ghost", false)
		require.NoError(t, err)
		assert.False(t, on)
	}
	assert.Equal(t, int32(1), store.calls.Load())
}

func TestCached_CollapsesConcurrentMisses(t *testing.T) {
	store := NewFakeStore(domain.Flag{ID: "f", Enabled: true})
	gate := make(chan struct{})
	store.SetGate(gate)
	p := flags.NewCached(store, time.Minute)

	var wg sync.WaitGroup
	results := make(chan bool, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			on, err := p.FlagState(context.Background(), "f", false)
			assert.NoError(t, err)
			results <- on
		}()
	}

	assert.Eventually(t, func() bool { return store.calls.Load() >= 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(gate)
	wg.Wait()
	close(results)

	for on := range results {
		assert.True(t, on)
	}
	assert.Equal(t, int32(1), store.calls.Load())
}

func TestCached_WaiterObservesOwnCancellation(t *testing.T) {
	store := NewFakeStore(domain.Flag{ID: "f", Enabled: true})
	gate := make(chan struct{})
	store.SetGate(gate)
	defer close(gate)
	p := flags.NewCached(store, time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := p.FlagState(ctx, "f", false)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestCached_FetchTimeout(t *testing.T) {
	store := NewFakeStore(domain.Flag{ID: "f", Enabled: true})
	gate := make(chan struct{})
	store.SetGate(gate)
	defer close(gate)
	p := flags.NewCached(store, time.Minute, flags.WithFetchTimeout(20*time.Millisecond))

	on, err := p.FlagState(context.Background(), "f", true)
	require.NoError(t, err)
	assert.True(t, on, "timed out fetch resolves to fallback")
}

func TestCached_Invalidate(t *testing.T) {
	store := NewFakeStore(domain.Flag{ID: "f", Enabled: false})
	p := flags.NewCached(store, time.Hour)
	ctx := context.Background()

	on, _ := p.FlagState(ctx, "f", false)
	assert.False(t, on)

	_ = store.Put(ctx, domain.Flag{ID: "f", Enabled: true})
	p.Invalidate("f")

	on, _ = p.FlagState(ctx, "f", false)
	assert.True(t, on)
}

func TestCached_PanickingStoreUsesFallback(t *testing.T) {
	store := NewFakeStore(domain.Flag{ID: "f", Enabled: true})
	store.SetPanic("backend exploded")
	p := flags.NewCached(store, time.Minute)

	var (
		on  bool
		err error
	)
	require.NotPanics(t, func() {
		on, err = p.FlagState(context.Background(), "f", false)
	})
	require.NoError(t, err)
	assert.False(t, on)
}

func TestCached_PanicServesStaleState(t *testing.T) {
	store := NewFakeStore(domain.Flag{ID: "f", Enabled: true})
	p := flags.NewCached(store, time.Second)

	now := time.Now()
	flags.SetClock(p, func() time.Time { return now })
	ctx := context.Background()

	on, err := p.FlagState(ctx, "f", false)
	require.NoError(t, err)
	require.True(t, on)

	store.SetPanic("backend exploded")
	now = now.Add(time.Hour)

	require.NotPanics(t, func() {
		on, err = p.FlagState(ctx, "f", false)
	})
	require.NoError(t, err)
	assert.True(t, on, "last known value wins over fallback")
}
