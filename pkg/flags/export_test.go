package flags

import "time"

// SetClock replaces the time source of a cached provider.
func SetClock(c *CachedProvider, now func() time.Time) {
	c.now = now
}
