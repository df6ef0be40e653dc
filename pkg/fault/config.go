package fault

import (
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/faultline/pkg/domain"
)

const (
	// DelayConfigKey holds the DelaySimulation duration in milliseconds.
	DelayConfigKey = "DelaySimulationRequestDelayMs"
	// DefaultDelay applies when DelayConfigKey is absent or unparsable.
	DefaultDelay = 4000 * time.Millisecond
)

// ConfigSource is a read-only key/value configuration surface.
type ConfigSource interface {
	Lookup(key string) (string, bool)
}

// ConfigMap is a ConfigSource backed by a plain map.
type ConfigMap map[string]string

// Lookup implements ConfigSource.
func (m ConfigMap) Lookup(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

// DelayFromConfig reads DelayConfigKey. Missing, non-integer, negative and
// out-of-range (beyond 32 bits) values resolve to DefaultDelay; configuration
// never fails startup.
func DelayFromConfig(src ConfigSource) time.Duration {
	if src == nil {
		return DefaultDelay
	}
	raw, ok := src.Lookup(DelayConfigKey)
	if !ok {
		return DefaultDelay
	}
	ms, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 32)
	if err != nil || ms < 0 {
		return DefaultDelay
	}
	return time.Duration(ms) * time.Millisecond
}

// DelaySimulation is the Delay gated by domain.FlagDelaySimulation,
// with its duration read from src.
func DelaySimulation(src ConfigSource) Delay {
	return NewDelay(domain.FlagDelaySimulation, DelayFromConfig(src))
}

// TimeoutError is the 504 Terminate gated by domain.FlagTimeoutError.
func TimeoutError() Terminate {
	return NewTerminate(domain.FlagTimeoutError, TimeoutStatus, TimeoutMessage)
}
