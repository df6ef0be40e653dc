/*
Package faultline injects controlled faults into HTTP request pipelines.

A pipeline is an ordered list of stages. Each fault stage is gated by a named
boolean flag that is resolved once per request: when the flag is off the stage
forwards untouched, when it is on the stage applies its behavior. Two
behaviors exist:

  - Delay sleeps for a configured duration, then lets the request proceed.
  - Terminate answers 504 with a fixed body and stops the pipeline.

Flags live in a store (in memory, Redis, or a remote faultline service) and
are read through a provider that never fails because of the store: unknown
flags and backend errors resolve to the fallback value.

# Usage

	store := memory.NewStore(domain.DefaultFlags(true)...)
	provider := flags.NewCached(store, 2*time.Second)

	pipeline := faultline.NewPipeline(provider, fault.ConfigMap{
		fault.DelayConfigKey: "250",
	})

	http.ListenAndServe(":8080", pipeline.Handler(fault.Wrap(broker)))

Toggle DelaySimulation or TimeoutError in the store to start injecting faults
without restarting the process.
*/
package faultline
