package faultline_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aretw0/faultline"
	"github.com/aretw0/faultline/pkg/domain"
	"github.com/aretw0/faultline/pkg/fault"
	"github.com/aretw0/faultline/pkg/flags"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hello(w http.ResponseWriter, r *http.Request) error {
	_, err := w.Write([]byte("hello"))
	return err
}

func TestNewPipeline_Order(t *testing.T) {
	provider := flags.Static(map[domain.FlagName]bool{
		domain.FlagTimeoutError:    true,
		domain.FlagDelaySimulation: true,
	})
	p := faultline.NewPipeline(provider, fault.ConfigMap{fault.DelayConfigKey: "200"})
	require.Equal(t, 2, p.Len())

	rec := httptest.NewRecorder()
	start := time.Now()
	p.Handler(hello).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	// Timeout runs before the delay, so no latency is added.
	assert.Less(t, time.Since(start), 200*time.Millisecond)
	assert.Equal(t, fault.TimeoutStatus, rec.Code)
	assert.Equal(t, fault.TimeoutMessage, rec.Body.String())
}

func TestNewPipeline_Delay(t *testing.T) {
	provider := flags.Static(map[domain.FlagName]bool{
		domain.FlagDelaySimulation: true,
	})
	p := faultline.NewPipeline(provider, fault.ConfigMap{fault.DelayConfigKey: "50"})

	rec := httptest.NewRecorder()
	start := time.Now()
	p.Handler(hello).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hello", rec.Body.String())
}
