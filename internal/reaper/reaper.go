// Package reaper runs the supplemental lease reaper: a periodic sweep that
// reopens StartedExecuting tasks whose lease has disappeared, so a worker
// that died mid-execution doesn't strand the task forever. It is the only
// component allowed to move a task backwards (StartedExecuting -> Submitted).
package reaper

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/mendymm/task-scheduler/internal/lease"
	"github.com/mendymm/task-scheduler/internal/store"
)

type Reaper struct {
	gw       *store.Gateway
	leases   *lease.Manager
	leaseTTL time.Duration
	interval time.Duration
	log      zerolog.Logger
}

func New(gw *store.Gateway, leases *lease.Manager, leaseTTL, interval time.Duration, log zerolog.Logger) *Reaper {
	return &Reaper{gw: gw, leases: leases, leaseTTL: leaseTTL, interval: interval, log: log}
}

// Run blocks, sweeping on interval until ctx is canceled.
func (r *Reaper) Run(ctx context.Context) {
	tkr := time.NewTicker(r.interval)
	defer tkr.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tkr.C:
			r.sweep(ctx)
		}
	}
}

// sweep considers a StartedExecuting task abandoned once its claim predates
// now by more than twice the lease TTL, matching the grace period the
// teacher's reaper uses before acting on a claim it hasn't renewed.
func (r *Reaper) sweep(ctx context.Context) {
	before := time.Now().Add(-2 * r.leaseTTL)
	stale, err := r.gw.FindStaleStartedExecuting(ctx, before)
	if err != nil {
		r.log.Error().Err(err).Msg("reaper: list stale claims failed")
		return
	}
	for _, t := range stale {
		held, err := r.leases.Held(ctx, t.ID.String())
		if err != nil {
			r.log.Error().Err(err).Str("task_id", t.ID.String()).Msg("reaper: lease check failed")
			continue
		}
		if held {
			continue
		}
		if err := r.gw.ReopenStale(ctx, t.ID); err != nil {
			r.log.Error().Err(err).Str("task_id", t.ID.String()).Msg("reaper: reopen failed")
			continue
		}
		r.log.Warn().Str("task_id", t.ID.String()).Msg("reaper: reopened abandoned claim")
	}
}
