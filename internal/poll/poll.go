// Package poll implements the Range Poller: the authoritative recovery path
// for task discovery. On every tick it asks the store for Submitted tasks
// due within the lookahead window and feeds their ids into the admission
// queue, oldest execution_time first. Anything the LISTEN subscriber missed
// — a dropped connection, a process that starts mid-flight, a full queue —
// is picked up here on the next tick.
package poll

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/mendymm/task-scheduler/internal/admission"
	"github.com/mendymm/task-scheduler/internal/metrics"
	"github.com/mendymm/task-scheduler/internal/store"
)

type Poller struct {
	gw       *store.Gateway
	queue    *admission.Queue
	rdb      *redis.Client // optional, nil disables metrics recording
	window   time.Duration
	pageSize int
	interval time.Duration
	log      zerolog.Logger
}

func New(gw *store.Gateway, queue *admission.Queue, rdb *redis.Client, window, interval time.Duration, pageSize int, log zerolog.Logger) *Poller {
	return &Poller{gw: gw, queue: queue, rdb: rdb, window: window, pageSize: pageSize, interval: interval, log: log}
}

// Run ticks immediately on entry (so a freshly started process doesn't wait
// a full interval before recovering in-flight work) and then every interval
// until ctx is canceled.
func (p *Poller) Run(ctx context.Context) {
	p.tick(ctx)
	tkr := time.NewTicker(p.interval)
	defer tkr.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tkr.C:
			p.tick(ctx)
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	due, err := p.gw.FindUpcoming(ctx, p.window, p.pageSize)
	if err != nil {
		p.log.Error().Err(err).Msg("poll: FindUpcoming failed")
		return
	}
	admitted, dropped := 0, 0
	for _, t := range due {
		if p.queue.EnqueueFromPoller(t.ID) {
			admitted++
		} else {
			dropped++
		}
	}
	if dropped > 0 {
		p.log.Warn().Int("dropped", dropped).Msg("poll: admission queue full")
	}
	if p.rdb != nil {
		metrics.RecordPollerTick(ctx, p.rdb, len(due), admitted, dropped)
	}
}
