/*
Package fault provides feature-flag driven fault injection for HTTP handlers.

A Behavior describes one deliberate failure mode gated by a flag. An Injector is a
pipeline Stage that asks a ports.FlagProvider whether its behavior's flag is on and,
if so, applies it before (Delay) or instead of (Terminate) the rest of the chain.
A Pipeline orders stages at startup and hands each one an explicit continuation.

# Usage

	provider := flags.NewCached(store, 2*time.Second)
	pipeline := fault.Compose(
		fault.NewInjector(provider, fault.TimeoutError(), fault.WithLogger(logger)),
		fault.NewInjector(provider, fault.DelaySimulation(cfg), fault.WithLogger(logger)),
	)
	r := chi.NewRouter()
	r.Use(pipeline.Middleware())

# Error Propagation

Stages return errors instead of writing them. An Injector logs every error it sees,
from the flag lookup, the behavior or the next stage, and returns it unchanged.
Only the outermost adapter (Pipeline.Handler) turns an error into a response.
*/
package fault
