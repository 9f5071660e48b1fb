// Package dispatch drains the admission queue and, for each hint, spawns an
// independent timed goroutine that waits until execution_time then contends
// for a global concurrency permit before invoking the claim protocol. The
// dispatcher itself never blocks on a single task's delay.
package dispatch

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mendymm/task-scheduler/internal/admission"
	"github.com/mendymm/task-scheduler/internal/domain"
	"github.com/mendymm/task-scheduler/internal/executor"
	"github.com/mendymm/task-scheduler/internal/store"
)

// Dispatcher drains queue, applies the global execution-concurrency gate,
// and hands winning claims to an Executor.
type Dispatcher struct {
	queue *admission.Queue
	gw    *store.Gateway
	exec  *executor.Executor
	gate  chan struct{} // buffered channel used as a FIFO-fair counting semaphore
	log   zerolog.Logger
}

func New(queue *admission.Queue, gw *store.Gateway, exec *executor.Executor, maxConcurrentExecuting int, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		queue: queue,
		gw:    gw,
		exec:  exec,
		gate:  make(chan struct{}, maxConcurrentExecuting),
		log:   log,
	}
}

// Run blocks, draining the queue until ctx is canceled. Each hint spawns its
// own timed goroutine and Run immediately loops back to Dequeue.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		id, ok := d.queue.Dequeue(ctx)
		if !ok {
			return
		}
		go d.timedWorker(ctx, id)
	}
}

func (d *Dispatcher) timedWorker(ctx context.Context, id uuid.UUID) {
	t, err := d.gw.Get(ctx, id)
	if err != nil {
		d.log.Debug().Err(err).Str("task_id", id.String()).Msg("dispatch: task vanished before dispatch")
		return
	}
	if t.Status != domain.StatusSubmitted {
		return
	}

	delay := time.Until(t.ExecutionTime)
	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return
		}
	}

	select {
	case d.gate <- struct{}{}:
	case <-ctx.Done():
		return
	}
	defer func() { <-d.gate }()

	// ctx only gates whether this hint gets claimed at all; once Execute wins
	// the claim it switches to its own shutdown-grace-bounded context, so
	// cancelling ctx here never aborts a task that's already StartedExecuting.
	d.exec.Execute(ctx, id)
}
