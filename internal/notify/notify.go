// Package notify implements the low-latency, lossy task-discovery path: a
// dedicated connection LISTENing on the broadcast channel, translating each
// notified id into an admission-queue hint. It is a pure optimization over
// the range poller — losing a notification (dropped connection, full queue)
// is always compensated by the poller's next tick.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/mendymm/task-scheduler/internal/admission"
	"github.com/mendymm/task-scheduler/internal/domain"
	"github.com/mendymm/task-scheduler/internal/store"
)

type Subscriber struct {
	pool            *pgxpool.Pool
	gw              *store.Gateway
	queue           *admission.Queue
	maxSecondsAhead time.Duration
	log             zerolog.Logger
}

func New(pool *pgxpool.Pool, gw *store.Gateway, queue *admission.Queue, maxSecondsAhead time.Duration, log zerolog.Logger) *Subscriber {
	return &Subscriber{pool: pool, gw: gw, queue: queue, maxSecondsAhead: maxSecondsAhead, log: log}
}

// Run blocks until ctx is canceled, reconnecting with backoff on any
// connection-level failure rather than giving up — the poller keeps the
// system correct in the meantime.
func (s *Subscriber) Run(ctx context.Context) {
	backoff := time.Second
	const maxBackoff = 30 * time.Second
	for {
		if ctx.Err() != nil {
			return
		}
		if err := s.listenOnce(ctx); err != nil {
			s.log.Warn().Err(err).Dur("retry_in", backoff).Msg("notify: listener disconnected")
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}
		backoff = time.Second
	}
}

func (s *Subscriber) listenOnce(ctx context.Context) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+store.BroadcastChannel); err != nil {
		return err
	}
	s.log.Debug().Str("channel", store.BroadcastChannel).Msg("notify: subscribed")

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		s.handle(ctx, n.Payload)
	}
}

// handle resolves the id to its current row, filters anything outside the
// admission horizon (the poller will pick it up when it's actually due),
// and enqueues a hint. Any error here is swallowed: this path is
// best-effort by design.
func (s *Subscriber) handle(ctx context.Context, payload string) {
	id, err := uuid.Parse(payload)
	if err != nil {
		s.log.Warn().Str("payload", payload).Msg("notify: unparseable payload")
		return
	}
	t, err := s.gw.Get(ctx, id)
	if err != nil {
		return
	}
	if t.Status != domain.StatusSubmitted {
		return
	}
	if t.ExecutionTime.After(time.Now().Add(s.maxSecondsAhead)) {
		return
	}
	if !s.queue.EnqueueFromSubscriber(id) {
		s.log.Debug().Str("task_id", id.String()).Msg("notify: admission queue full, dropping hint")
	}
}
