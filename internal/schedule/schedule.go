// Package schedule runs the supplemental recurring-schedule engine: on each
// tick it evaluates every enabled Schedule's cron expression, inserts a new
// Task for every firing time since the schedule last fired (bounded
// catch-up), and advances last_triggered_at before considering the next
// candidate time so a given (schedule, firing time) pair is never inserted
// twice even across restarts.
package schedule

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/mendymm/task-scheduler/internal/domain"
	"github.com/mendymm/task-scheduler/internal/metrics"
	"github.com/mendymm/task-scheduler/internal/redisutil"
	"github.com/mendymm/task-scheduler/internal/store"
)

const (
	maxCatchupWindows  = 10
	maxCatchupDuration = time.Hour

	tickLockKey = "lock:schedule:tick"
	tickLockTTL = 5 * time.Second
)

var parser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

type Scheduler struct {
	gw       *store.Gateway
	rdb      *redis.Client // optional, nil disables metrics recording and the cross-process lock
	interval time.Duration
	timezone *time.Location
	holder   string
	log      zerolog.Logger
}

func New(gw *store.Gateway, rdb *redis.Client, interval time.Duration, tz string, log zerolog.Logger) (*Scheduler, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, err
	}
	return &Scheduler{gw: gw, rdb: rdb, interval: interval, timezone: loc, holder: uuid.NewString(), log: log}, nil
}

func (s *Scheduler) Run(ctx context.Context) {
	tkr := time.NewTicker(s.interval)
	defer tkr.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tkr.C:
			if err := s.tick(ctx); err != nil {
				s.log.Error().Err(err).Msg("schedule: tick failed")
			}
		}
	}
}

// tick evaluates every enabled schedule, guarded by a short-lived Redis lock
// so that when several executor processes run the supplemental scheduler
// concurrently only one of them evaluates a given tick.
func (s *Scheduler) tick(ctx context.Context) error {
	if s.rdb != nil {
		got, err := redisutil.AcquireLock(ctx, s.rdb, tickLockKey, s.holder, tickLockTTL)
		if err != nil {
			return err
		}
		if !got {
			s.log.Debug().Msg("schedule: tick lock held by another process, skipping")
			return nil
		}
		defer func() {
			_, _ = redisutil.ReleaseLock(context.Background(), s.rdb, tickLockKey, s.holder)
		}()
	}

	enabled := true
	schedules, err := s.gw.ListSchedules(ctx, &enabled)
	if err != nil {
		return err
	}
	now := time.Now().In(s.timezone)

	totalCatchup, totalTriggered := 0, 0
	for _, sch := range schedules {
		catchup, triggered, err := s.evaluate(ctx, sch, now)
		if err != nil {
			s.log.Error().Err(err).Str("schedule_id", sch.ID.String()).Msg("schedule: evaluate failed")
			continue
		}
		totalCatchup += catchup
		totalTriggered += triggered
	}

	if s.rdb != nil {
		metrics.RecordSchedulerTick(ctx, s.rdb, now, len(schedules), totalCatchup, totalTriggered)
	}
	s.log.Info().Int("enabled", len(schedules)).Int("catchup", totalCatchup).Int("triggered", totalTriggered).Msg("schedule: tick")
	return nil
}

// evaluate walks every firing time the schedule owes since it last
// triggered, bounded by maxCatchupWindows and maxCatchupDuration so a
// schedule that was disabled for a month doesn't flood the table on
// re-enable.
func (s *Scheduler) evaluate(ctx context.Context, sch domain.Schedule, now time.Time) (catchup, triggered int, err error) {
	sched, err := parser.Parse(sch.CronExpr)
	if err != nil {
		return 0, 0, err
	}

	cutoff := now.Add(-maxCatchupDuration)
	var last time.Time
	if sch.LastTriggeredAt != nil {
		last = sch.LastTriggeredAt.In(s.timezone)
	} else {
		last = now.Add(-s.interval)
	}
	if last.Before(cutoff) {
		last = cutoff
	}

	for {
		next := sched.Next(last)
		if next.After(now) {
			break
		}
		if next.Before(cutoff) {
			break
		}
		if catchup >= maxCatchupWindows {
			break
		}

		if err := s.gw.UpdateScheduleLastTriggeredAt(ctx, sch.ID, next); err != nil {
			return catchup, triggered, err
		}
		if err := s.fire(ctx, sch, next); err != nil {
			s.log.Error().Err(err).Str("schedule_id", sch.ID.String()).Msg("schedule: fire failed")
		} else {
			triggered++
		}

		last = next
		catchup++
	}
	return catchup, triggered, nil
}

// fire inserts a new Task using the template task's type at the given
// firing time.
func (s *Scheduler) fire(ctx context.Context, sch domain.Schedule, at time.Time) error {
	tpl, err := s.gw.Get(ctx, sch.TaskTemplateID)
	if err != nil {
		return err
	}
	t := &domain.Task{
		ID:            uuid.New(),
		TaskType:      tpl.TaskType,
		ExecutionTime: at,
	}
	return s.gw.Insert(ctx, t)
}
