// Package scheduler runs the periodic retention sweeps that purge expired
// token and session rows. The token and session sweeps are two instances
// of the same loop, parameterized by interval, retention window and sweep
// function.
package scheduler

import (
	"context"
	"log"
	"time"
)

// SweepFunc deletes rows whose expiry precedes the threshold and returns
// how many were removed. Each pass runs to completion or fails whole; it
// is never cancelled mid-flight.
type SweepFunc func(ctx context.Context, threshold time.Time) (int64, error)

// Sweeper is one periodic retention sweep. Every Interval it computes
// threshold = now - Retention and invokes Sweep. A failed pass is logged
// and the next wake-up moves to RetryInterval; after the next success the
// normal cadence resumes.
type Sweeper struct {
	Name          string        // identifies the sweep in log lines
	Interval      time.Duration // normal cadence between passes
	RetryInterval time.Duration // shortened delay after a failed pass
	Retention     time.Duration // age past expiry before rows are purged
	Sweep         SweepFunc     // the store's cleanup operation
}

// Run blocks until ctx is cancelled, sleeping between passes. Cancellation
// is observed at the sleep point; a pass already started finishes on its
// own (one DELETE, atomic). Store failures never terminate the loop.
func (s *Sweeper) Run(ctx context.Context) {
	wait := s.Interval
	timer := time.NewTimer(wait)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("%s sweep: stopping (%v)", s.Name, ctx.Err())
			return
		case <-timer.C:
		}

		threshold := time.Now().UTC().Add(-s.Retention)
		n, err := s.Sweep(ctx, threshold)
		if err != nil {
			log.Printf("%s sweep: pass failed: %v; retrying in %s", s.Name, err, s.RetryInterval)
			wait = s.RetryInterval
		} else {
			if n > 0 {
				log.Printf("%s sweep: purged %d rows older than %s", s.Name, n, threshold.Format(time.RFC3339))
			}
			wait = s.Interval
		}
		timer.Reset(wait)
	}
}
