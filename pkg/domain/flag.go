package domain

import (
	"fmt"
	"sort"
)

// FlagName identifies a flag. Names are case-sensitive and stable across restarts.
type FlagName = string

// Well-known flags gating the built-in fault behaviors.
const (
	FlagDelaySimulation FlagName = "DelaySimulation"
	FlagTimeoutError    FlagName = "TimeoutError"
)

// Flag groups and tags used by the default registry.
const (
	TagProblemPattern = "problem_pattern"
	TagConfig         = "config"

	GroupPerformance   = "Performance Issues"
	GroupErrorHandling = "Error Handling"
)

// Flag is the persisted representation of a toggle.
// Consumers of the fault pipeline only ever see Enabled.
type Flag struct {
	ID          FlagName `json:"id" yaml:"id" mapstructure:"id"`
	Enabled     bool     `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	Name        string   `json:"name,omitempty" yaml:"name" mapstructure:"name"`
	Description string   `json:"description,omitempty" yaml:"description" mapstructure:"description"`
	Modifiable  bool     `json:"modifiable" yaml:"modifiable" mapstructure:"modifiable"`
	Tag         string   `json:"tag,omitempty" yaml:"tag" mapstructure:"tag"`
	Group       string   `json:"group,omitempty" yaml:"group" mapstructure:"group"`
}

// Validate checks the structural integrity of the flag.
func (f Flag) Validate() error {
	if f.ID == "" {
		return fmt.Errorf("flag id is required")
	}
	return nil
}

// DefaultFlags returns the registry seeded when no flags are configured.
// Both faults start disabled.
func DefaultFlags(modifiable bool) []Flag {
	return []Flag{
		{
			ID:          FlagDelaySimulation,
			Name:        "Simulate delays in broker service",
			Description: "When enabled, the broker service will introduce artificial delays to simulate network latency.",
			Modifiable:  modifiable,
			Tag:         TagProblemPattern,
			Group:       GroupPerformance,
		},
		{
			ID:          FlagTimeoutError,
			Name:        "Simulate timeout error",
			Description: "When enabled, it will simulate a timeout error due to a large delay.",
			Modifiable:  modifiable,
			Tag:         TagProblemPattern,
			Group:       GroupErrorHandling,
		},
	}
}

// SortFlags orders flags by ID in place.
func SortFlags(flags []Flag) {
	sort.Slice(flags, func(i, j int) bool { return flags[i].ID < flags[j].ID })
}
