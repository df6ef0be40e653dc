package faultline

import (
	"github.com/aretw0/faultline/pkg/fault"
	"github.com/aretw0/faultline/pkg/ports"
)

// Version is the release version reported by the CLI and the MCP server.
const Version = "0.3.0"

// NewPipeline composes the standard fault stages: the TimeoutError
// terminator first, then the DelaySimulation delay read from src.
// Both stages share provider and opts.
func NewPipeline(provider ports.FlagProvider, src fault.ConfigSource, opts ...fault.Option) *fault.Pipeline {
	return fault.Compose(
		fault.NewInjector(provider, fault.TimeoutError(), opts...),
		fault.NewInjector(provider, fault.DelaySimulation(src), opts...),
	)
}
