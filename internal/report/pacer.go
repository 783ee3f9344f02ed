package report

import (
	"context"
	"math/rand/v2"
	"time"
)

// Pacer sleeps for a random duration in [Min, Max] between sequential upstream calls.
type Pacer struct {
	Min, Max time.Duration
}

// Wait blocks for one randomized pause or until ctx is done.
func (p Pacer) Wait(ctx context.Context) error {
	d := p.next()
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (p Pacer) next() time.Duration {
	if p.Max <= p.Min {
		return p.Min
	}
	return p.Min + time.Duration(rand.Int64N(int64(p.Max-p.Min)+1))
}
