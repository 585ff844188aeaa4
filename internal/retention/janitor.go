// Package retention purges idle chat sessions.
//
// The janitor runs as a background goroutine and respects context
// cancellation for graceful shutdown. A session is idle when it has not
// been updated within the retention window; purging it removes its messages
// and drops any operations still awaiting confirmation in it.
package retention

import (
	"context"
	"time"

	"github.com/binarjoin/agent-engine/internal/pending"
	"github.com/binarjoin/agent-engine/internal/store"
	"github.com/rs/zerolog/log"
)

// DefaultInterval is how often the janitor sweeps.
const DefaultInterval = time.Hour

// CycleStats tracks what happened in a single retention cycle.
type CycleStats struct {
	SessionsPurged    int
	OperationsDropped int
	Errors            []error
}

// Janitor periodically purges idle sessions.
type Janitor struct {
	store     store.SessionStore
	pending   *pending.Registry
	retention time.Duration
	interval  time.Duration
	now       func() time.Time
}

// Option customises a Janitor.
type Option func(*Janitor)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(j *Janitor) { j.now = now }
}

// NewJanitor creates a janitor that purges sessions idle for longer than
// retention, sweeping every interval.
func NewJanitor(s store.SessionStore, reg *pending.Registry, retention, interval time.Duration, opts ...Option) *Janitor {
	if interval < time.Minute {
		interval = DefaultInterval
	}
	j := &Janitor{
		store:     s,
		pending:   reg,
		retention: retention,
		interval:  interval,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Start runs the janitor until ctx is canceled.
func (j *Janitor) Start(ctx context.Context) {
	log.Info().
		Dur("interval", j.interval).
		Dur("retention", j.retention).
		Msg("Retention janitor started")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	// Run once immediately on startup
	j.RunCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Retention janitor stopped")
			return
		case <-ticker.C:
			j.RunCycle(ctx)
		}
	}
}

// RunCycle performs one sweep. A session that fails to delete keeps its
// pending operations.
func (j *Janitor) RunCycle(ctx context.Context) CycleStats {
	var stats CycleStats
	start := j.now()
	cutoff := start.Add(-j.retention)

	ids, err := j.store.ListIdleSessions(ctx, cutoff)
	if err != nil {
		log.Warn().Err(err).Msg("Retention janitor: failed to list idle sessions")
		stats.Errors = append(stats.Errors, err)
		return stats
	}

	for _, id := range ids {
		if err := j.store.DeleteSession(ctx, id); err != nil && !store.IsNotFound(err) {
			log.Warn().Err(err).Str("session", id).Msg("Retention cycle error")
			stats.Errors = append(stats.Errors, err)
			continue
		}
		stats.SessionsPurged++
		stats.OperationsDropped += j.pending.DropSession(id)
	}

	if stats.SessionsPurged > 0 {
		log.Info().
			Int("purged_sessions", stats.SessionsPurged).
			Int("dropped_operations", stats.OperationsDropped).
			Time("cutoff", cutoff).
			Dur("elapsed", j.now().Sub(start)).
			Msg("Retention cycle complete")
	}
	return stats
}
