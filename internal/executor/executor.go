// Package executor implements the claim protocol and the task body
// invocation that follows a successful claim. This is the exactly-once
// choke point: Claim is the only place a task moves from Submitted to
// StartedExecuting, and it is guarded by a SKIP LOCKED row lock so two
// processes racing on the same id never both succeed.
package executor

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/mendymm/task-scheduler/internal/domain"
	"github.com/mendymm/task-scheduler/internal/handler"
	"github.com/mendymm/task-scheduler/internal/lease"
	"github.com/mendymm/task-scheduler/internal/metrics"
	"github.com/mendymm/task-scheduler/internal/store"
)

type Executor struct {
	gw            *store.Gateway
	handlers      handler.Registry
	leases        *lease.Manager // nil when Redis is not configured
	rdb           *redis.Client  // nil when Redis is not configured
	workerID      string
	leaseTTL      time.Duration
	shutdownGrace time.Duration
	log           zerolog.Logger
}

func New(gw *store.Gateway, handlers handler.Registry, leases *lease.Manager, rdb *redis.Client, workerID string, leaseTTL, shutdownGrace time.Duration, log zerolog.Logger) *Executor {
	return &Executor{gw: gw, handlers: handlers, leases: leases, rdb: rdb, workerID: workerID, leaseTTL: leaseTTL, shutdownGrace: shutdownGrace, log: log}
}

// Execute attempts the claim and, if won, runs the task body to completion.
// Losing the claim race is the routine, expected outcome when two processes
// observe the same hint; it is logged at debug level only.
//
// Once a claim is won the row is StartedExecuting, so the handler invocation
// is deliberately run on a context derived from context.Background() rather
// than the caller's ctx. That context has no deadline of its own; only when
// ctx is canceled (process shutdown) does a shutdownGrace timer start, so a
// shutdown lets an already-claimed task run to completion or to the grace
// deadline, after which the claim is left for the reaper rather than marked
// Failed.
func (e *Executor) Execute(ctx context.Context, id uuid.UUID) {
	t, err := e.gw.Claim(ctx, id, e.workerID)
	if err != nil {
		if err == store.ErrLost {
			e.log.Debug().Str("task_id", id.String()).Msg("executor: claim lost")
			return
		}
		e.log.Error().Err(err).Str("task_id", id.String()).Msg("executor: claim failed")
		return
	}

	runCtx, cancel := context.WithCancelCause(context.Background())
	defer cancel(nil)
	go func() {
		select {
		case <-ctx.Done():
			select {
			case <-time.After(e.shutdownGrace):
				cancel(context.DeadlineExceeded)
			case <-runCtx.Done():
			}
		case <-runCtx.Done():
		}
	}()

	if e.leases != nil {
		renewCtx, rcancel := context.WithCancel(runCtx)
		defer rcancel()
		if ok, err := e.leases.Set(runCtx, id.String(), e.workerID, e.leaseTTL); err != nil || !ok {
			e.log.Warn().Err(err).Str("task_id", id.String()).Msg("executor: lease not acquired, proceeding anyway")
		} else {
			go e.renewLoop(renewCtx, id)
			defer func() {
				_, _ = e.leases.Release(context.Background(), id.String(), e.workerID)
			}()
		}
	}

	outcome := e.run(runCtx, t.TaskType, id)
	if e.rdb != nil {
		metrics.IncrDispatched(context.Background(), e.rdb, string(t.TaskType), outcome)
	}
}

func (e *Executor) renewLoop(ctx context.Context, id uuid.UUID) {
	tkr := time.NewTicker(e.leaseTTL / 3)
	defer tkr.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tkr.C:
			_, _ = e.leases.Renew(ctx, id.String(), e.workerID, e.leaseTTL)
		}
	}
}

// run invokes the handler, recovering from a panic so one bad task body
// never takes down the dispatcher, and writes the terminal status.
func (e *Executor) run(ctx context.Context, taskType domain.TaskType, id uuid.UUID) (outcome string) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error().Interface("panic", r).Str("task_id", id.String()).Msg("executor: handler panicked")
			if err := e.gw.MarkFailed(context.Background(), id); err != nil {
				e.log.Error().Err(err).Str("task_id", id.String()).Msg("executor: mark failed after panic failed")
			}
			outcome = "failed"
		}
	}()

	fn, ok := e.handlers[taskType]
	if !ok {
		e.log.Error().Str("task_id", id.String()).Msg("executor: no handler registered")
		_ = e.gw.MarkFailed(context.Background(), id)
		return "failed"
	}

	if err := fn(ctx, id); err != nil {
		if context.Cause(ctx) == context.DeadlineExceeded {
			e.log.Warn().Str("task_id", id.String()).Msg("executor: shutdown grace elapsed, abandoning claim for the reaper")
			return "abandoned"
		}
		e.log.Error().Err(err).Str("task_id", id.String()).Msg("executor: task failed")
		if mErr := e.gw.MarkFailed(context.Background(), id); mErr != nil {
			e.log.Error().Err(mErr).Str("task_id", id.String()).Msg("executor: mark failed failed")
		}
		return "failed"
	}

	if err := e.gw.MarkDone(context.Background(), id); err != nil {
		e.log.Error().Err(err).Str("task_id", id.String()).Msg("executor: mark done failed")
		return "failed"
	}
	return "done"
}
