package fault

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/faultline/internal/logging"
	"github.com/aretw0/faultline/pkg/domain"
	"github.com/aretw0/faultline/pkg/ports"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Injector is the Stage applying one Behavior when its flag is enabled.
// It holds no per-request state; one Injector serves all requests.
type Injector struct {
	provider ports.FlagProvider
	behavior Behavior
	logger   *slog.Logger
	metrics  *Metrics
}

var _ Stage = (*Injector)(nil)

// Option configures an Injector.
type Option func(*Injector)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(i *Injector) {
		i.logger = logger
	}
}

// WithMetrics records evaluations and injections.
func WithMetrics(m *Metrics) Option {
	return func(i *Injector) {
		i.metrics = m
	}
}

// NewInjector creates an Injector applying behavior whenever provider reports
// its flag enabled. Flags default to off.
func NewInjector(provider ports.FlagProvider, behavior Behavior, opts ...Option) *Injector {
	i := &Injector{
		provider: provider,
		behavior: behavior,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Behavior returns the behavior bound to the injector.
func (i *Injector) Behavior() Behavior {
	return i.behavior
}

// Serve resolves the flag, applies the behavior if enabled and, unless the
// behavior short-circuits, forwards to next.
// Errors and panics are logged, then propagated unchanged. A canceled request
// is logged at debug level only.
func (i *Injector) Serve(w http.ResponseWriter, r *http.Request, next HandlerFunc) (err error) {
	ctx := r.Context()
	flag := i.behavior.Flag()
	logger := i.logger.With(
		"flag", flag,
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", RequestID(r),
	)

	defer func() {
		if v := recover(); v != nil {
			logger.Error("Panic in fault injection middleware", "panic", v)
			panic(v)
		}
		switch {
		case err == nil:
		case errors.Is(err, context.Canceled):
			// Client went away; not a failure of the pipeline.
			logger.Debug("Request canceled in fault injection middleware", "error", err)
		default:
			logger.Error("An error occurred in fault injection middleware", "error", err)
		}
	}()

	enabled, err := i.resolve(ctx, flag)
	if err != nil {
		return err
	}
	logger.Debug("Feature flag state", "enabled", enabled)

	if enabled {
		logger.Warn("Fault injection flag enabled", "fault", i.behavior)
		i.metrics.observeInjection(flag, i.behavior.Kind())
		recordInjection(ctx, flag, i.behavior.Kind())

		proceed, err := i.behavior.Apply(ctx, w)
		if err != nil || !proceed {
			return err
		}
	}

	return next(w, r)
}

func (i *Injector) resolve(ctx context.Context, flag domain.FlagName) (bool, error) {
	start := time.Now()
	enabled, err := i.provider.FlagState(ctx, flag, false)
	if err != nil {
		return false, err
	}
	i.metrics.observeLookup(flag, enabled, time.Since(start))
	return enabled, nil
}

// recordInjection annotates the active span, if any.
func recordInjection(ctx context.Context, flag domain.FlagName, kind Kind) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.AddEvent("fault.injected", trace.WithAttributes(
		attribute.String("fault.flag", flag),
		attribute.String("fault.kind", string(kind)),
	))
}
