/*
Package flags implements ports.FlagProvider on top of the flag backends.

FromStore turns any ports.FlagStore into a provider honoring the no-throw-on-miss
contract: unknown flags, unreachable backends and malformed records resolve to the
caller supplied fallback. NewCached does the same behind a TTL cache, collapsing
concurrent misses and serving the last known value when the backend fails.
SetEnabled is the single toggle path used by the admin API, MCP and the CLI.

	store := redis.New("localhost:6379", "", 0)
	provider := flags.NewCached(store, 2*time.Second)
	on, err := provider.FlagState(ctx, domain.FlagDelaySimulation, false)
*/
package flags
