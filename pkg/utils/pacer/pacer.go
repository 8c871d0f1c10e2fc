package pacer

import (
	"context"
	"time"
)

// Pacer inserts a fixed delay between consecutive operations. The first call
// to Wait returns immediately; every following call blocks for the configured
// interval or until the context is cancelled. A zero or negative interval
// disables pacing entirely.
type Pacer struct {
	interval time.Duration
	started  bool
}

// New creates a pacer with the given inter-operation interval.
func New(interval time.Duration) *Pacer {
	return &Pacer{interval: interval}
}

// Wait blocks until the next operation may proceed. Returns the context
// error when cancelled mid-wait.
func (p *Pacer) Wait(ctx context.Context) error {
	if !p.started {
		p.started = true
		return nil
	}
	if p.interval <= 0 {
		return nil
	}

	t := time.NewTimer(p.interval)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
