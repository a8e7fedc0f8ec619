package sim

import (
	"time"
)

// Clock accounts for requested delays without waiting.
type Clock struct {
	Total time.Duration
	// Settles holds every delay of a millisecond or more.
	Settles []time.Duration
}

func (c *Clock) Delay(d time.Duration) {
	c.Total += d
	if d >= time.Millisecond {
		c.Settles = append(c.Settles, d)
	}
}
