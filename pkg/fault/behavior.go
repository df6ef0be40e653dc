package fault

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/faultline/pkg/domain"
)

// Kind identifies the family of a Behavior.
type Kind string

const (
	// KindDelay adds latency and then continues the chain.
	KindDelay Kind = "delay"
	// KindTerminate answers the request itself and stops the chain.
	KindTerminate Kind = "terminate"
)

const (
	// TimeoutStatus is the status written by the TimeoutError behavior.
	TimeoutStatus = http.StatusGatewayTimeout
	// TimeoutMessage is the body written by the TimeoutError behavior.
	TimeoutMessage = "Simulated timeout error occurred."
)

// Behavior is one deliberate failure mode. Implementations must be immutable:
// a single value is shared by every concurrent request.
type Behavior interface {
	// Flag is the name of the flag gating the behavior.
	Flag() domain.FlagName
	// Kind reports the behavior family, used for metrics and tracing.
	Kind() Kind
	// Apply performs the fault for one request. proceed reports whether the
	// rest of the chain must still run.
	Apply(ctx context.Context, w http.ResponseWriter) (proceed bool, err error)
}

// Delay suspends the request for a fixed duration, then lets it through.
type Delay struct {
	flag     domain.FlagName
	duration time.Duration
}

var _ Behavior = Delay{}

// NewDelay creates a Delay gated by flag. Negative durations are treated as zero.
func NewDelay(flag domain.FlagName, d time.Duration) Delay {
	if d < 0 {
		d = 0
	}
	return Delay{flag: flag, duration: d}
}

// Flag returns the flag that gates the delay.
func (d Delay) Flag() domain.FlagName { return d.flag }

// Kind reports KindDelay.
func (d Delay) Kind() Kind { return KindDelay }

// Duration is how long Apply waits.
func (d Delay) Duration() time.Duration { return d.duration }

// Apply waits for the configured duration. If ctx ends first the wait is
// abandoned and ctx.Err() returned, so nothing else runs for the request.
func (d Delay) Apply(ctx context.Context, w http.ResponseWriter) (bool, error) {
	if d.duration == 0 {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		return true, nil
	}

	timer := time.NewTimer(d.duration)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case <-timer.C:
		return true, nil
	}
}

// LogValue implements slog.LogValuer.
func (d Delay) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("kind", string(KindDelay)),
		slog.Int64("delay_ms", d.duration.Milliseconds()),
	)
}

// Terminate short-circuits the request with a fixed status and plain-text body.
type Terminate struct {
	flag   domain.FlagName
	status int
	body   string
}

var _ Behavior = Terminate{}

// NewTerminate creates a Terminate gated by flag.
func NewTerminate(flag domain.FlagName, status int, body string) Terminate {
	return Terminate{flag: flag, status: status, body: body}
}

// Flag returns the flag that gates the termination.
func (t Terminate) Flag() domain.FlagName { return t.flag }

// Kind reports KindTerminate.
func (t Terminate) Kind() Kind { return KindTerminate }

// Status is the HTTP status code written by Apply.
func (t Terminate) Status() int { return t.status }

// Body is the plain-text response body written by Apply.
func (t Terminate) Body() string { return t.body }

// Apply writes the canned response. Nothing is written for a request whose
// context is already done.
func (t Terminate) Apply(ctx context.Context, w http.ResponseWriter) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(t.status)
	if _, err := io.WriteString(w, t.body); err != nil {
		return false, err
	}
	return false, nil
}

// LogValue implements slog.LogValuer.
func (t Terminate) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("kind", string(KindTerminate)),
		slog.Int("status", t.status),
	)
}
