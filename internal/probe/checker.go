package probe

import (
	"context"
	"fmt"
	"time"
)

// Checker reports the prober as ready once a round has resolved every topic,
// and for as long as such a round happened within the staleness window.
type Checker struct {
	p          *Prober
	staleAfter time.Duration
}

// Checker returns a readiness check for p. The window is three intervals.
func (p *Prober) Checker() *Checker {
	return &Checker{p: p, staleAfter: 3 * p.cfg.Interval}
}

func (c *Checker) Name() string { return "prober" }

func (c *Checker) CheckReady(_ context.Context) error {
	c.p.mu.RLock()
	last, rounds := c.p.lastSuccess, c.p.rounds
	c.p.mu.RUnlock()

	if last.IsZero() {
		return fmt.Errorf("no successful probe round yet (%d attempted)", rounds)
	}
	if age := c.p.now().Sub(last); age > c.staleAfter {
		return fmt.Errorf("last successful probe round was %s ago", age.Truncate(time.Second))
	}
	return nil
}
