package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSweep counts invocations and hands back canned results.
type recordingSweep struct {
	mu         sync.Mutex
	thresholds []time.Time
	results    []error
}

func (r *recordingSweep) fn(_ context.Context, threshold time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.thresholds = append(r.thresholds, threshold)
	if len(r.results) > 0 {
		err := r.results[0]
		r.results = r.results[1:]
		return 0, err
	}
	return 1, nil
}

func (r *recordingSweep) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.thresholds)
}

func (r *recordingSweep) lastThreshold() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.thresholds[len(r.thresholds)-1]
}

func TestSweeperRunsOnInterval(t *testing.T) {
	rec := &recordingSweep{}
	s := &Sweeper{
		Name:          "test",
		Interval:      5 * time.Millisecond,
		RetryInterval: 5 * time.Millisecond,
		Retention:     time.Hour,
		Sweep:         rec.fn,
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return rec.calls() >= 3 }, time.Second, time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancellation")
	}

	// Threshold is now - retention, not now - interval.
	got := rec.lastThreshold()
	assert.WithinDuration(t, time.Now().UTC().Add(-time.Hour), got, time.Second)
}

func TestSweeperSurvivesFailuresAndRetries(t *testing.T) {
	rec := &recordingSweep{
		results: []error{errors.New("db down"), errors.New("db still down")},
	}
	s := &Sweeper{
		Name:          "flaky",
		Interval:      5 * time.Millisecond,
		RetryInterval: time.Millisecond,
		Retention:     time.Minute,
		Sweep:         rec.fn,
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	// Two failing passes then successes: the loop must keep going.
	require.Eventually(t, func() bool { return rec.calls() >= 4 }, time.Second, time.Millisecond)
}

// expiryStore mimics a retention store: rows carry an expiry and a pass
// deletes exactly those expiring before the threshold.
type expiryStore struct {
	mu       sync.Mutex
	expiries map[string]time.Time
}

func (s *expiryStore) cleanup(_ context.Context, threshold time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, exp := range s.expiries {
		if exp.Before(threshold) {
			delete(s.expiries, id)
			n++
		}
	}
	return n, nil
}

func (s *expiryStore) remaining() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.expiries))
	for id := range s.expiries {
		out = append(out, id)
	}
	return out
}

func TestSweeperPurgesOnlyRowsPastRetention(t *testing.T) {
	now := time.Now().UTC()
	store := &expiryStore{expiries: map[string]time.Time{
		"expired-30d-ago": now.AddDate(0, 0, -30),
		"expired-20d-ago": now.AddDate(0, 0, -20),
		"expired-10d-ago": now.AddDate(0, 0, -10),
	}}
	s := &Sweeper{
		Name:          "retention",
		Interval:      5 * time.Millisecond,
		RetryInterval: 5 * time.Millisecond,
		Retention:     15 * 24 * time.Hour, // threshold lands between day-20 and day-10
		Sweep:         store.cleanup,
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	require.Eventually(t, func() bool { return len(store.remaining()) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, []string{"expired-10d-ago"}, store.remaining())
}

func TestSweeperStopsPromptlyWhileSleeping(t *testing.T) {
	rec := &recordingSweep{}
	s := &Sweeper{
		Name:          "sleepy",
		Interval:      time.Hour, // would never fire on its own
		RetryInterval: time.Hour,
		Retention:     time.Hour,
		Sweep:         rec.fn,
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not observe cancellation at its sleep point")
	}
	assert.Zero(t, rec.calls())
}
