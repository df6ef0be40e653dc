package http_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	faulthttp "github.com/aretw0/faultline/pkg/adapters/http"
	"github.com/aretw0/faultline/pkg/domain"
	"github.com/aretw0/faultline/pkg/flags"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_RoundTrip(t *testing.T) {
	ts, store := newTestServer(t)
	client := faulthttp.NewClient(ts.URL + "/")
	ctx := context.Background()

	list, err := client.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	flag, err := client.Get(ctx, domain.FlagDelaySimulation)
	require.NoError(t, err)
	assert.False(t, flag.Enabled)
	assert.True(t, flag.Modifiable)

	flag.Enabled = true
	require.NoError(t, client.Put(ctx, flag))

	stored, err := store.Get(ctx, domain.FlagDelaySimulation)
	require.NoError(t, err)
	assert.True(t, stored.Enabled)
}

func TestClient_Errors(t *testing.T) {
	ts, _ := newTestServer(t)
	client := faulthttp.NewClient(ts.URL)
	ctx := context.Background()

	_, err := client.Get(ctx, "Nope")
	assert.ErrorIs(t, err, domain.ErrFlagNotFound)

	err = client.Put(ctx, domain.Flag{ID: domain.FlagTimeoutError, Enabled: false})
	assert.ErrorIs(t, err, domain.ErrFlagNotModifiable)
}

func TestClient_ServerFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer ts.Close()

	_, err := faulthttp.NewClient(ts.URL).List(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestClient_AsFlagProvider(t *testing.T) {
	ts, _ := newTestServer(t)
	provider := flags.FromStore(faulthttp.NewClient(ts.URL))
	ctx := context.Background()

	on, err := provider.FlagState(ctx, domain.FlagTimeoutError, false)
	require.NoError(t, err)
	assert.True(t, on)

	on, err = provider.FlagState(ctx, "Nope", true)
	require.NoError(t, err)
	assert.True(t, on)
}

func TestClient_ContextCanceled(t *testing.T) {
	ts, _ := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := faulthttp.NewClient(ts.URL).Get(ctx, domain.FlagTimeoutError)
	assert.ErrorIs(t, err, context.Canceled)
}
