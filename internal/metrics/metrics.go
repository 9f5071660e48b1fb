// Package metrics records lightweight Redis-backed counters for the poller,
// the scheduler and the executor's per-task outcomes; the poller and
// scheduler counters are read back over HTTP. Like the rest of the supplemental
// stack, this is a convenience surface: nothing about the claim protocol's
// correctness depends on these counters existing.
package metrics

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	pollerTicksKey    = "metrics:poller:ticks"
	pollerLastKey     = "metrics:poller:last"
	schedulerTicksKey = "metrics:scheduler:ticks"
	schedulerLastKey  = "metrics:scheduler:last"
	dispatchPrefix    = "metrics:dispatch:"
)

// RecordPollerTick records one poller pass: how many due tasks it found and
// how many the admission queue accepted versus dropped.
func RecordPollerTick(ctx context.Context, rdb *redis.Client, found, admitted, dropped int) {
	_ = rdb.Incr(ctx, pollerTicksKey).Err()
	_ = rdb.HSet(ctx, pollerLastKey, map[string]any{
		"time":     time.Now().Format(time.RFC3339),
		"found":    found,
		"admitted": admitted,
		"dropped":  dropped,
	}).Err()
}

// PollerSnapshot is the read-side view of the poller counters.
type PollerSnapshot struct {
	Ticks int64             `json:"ticks"`
	Last  map[string]string `json:"last"`
}

func GetPollerMetrics(ctx context.Context, rdb *redis.Client) (PollerSnapshot, error) {
	ticks, err := rdb.Get(ctx, pollerTicksKey).Int64()
	if err != nil && err != redis.Nil {
		return PollerSnapshot{}, err
	}
	last, err := rdb.HGetAll(ctx, pollerLastKey).Result()
	if err != nil {
		return PollerSnapshot{}, err
	}
	return PollerSnapshot{Ticks: ticks, Last: last}, nil
}

// IncrDispatched bumps the per-task-type, per-outcome counter the executor
// writes after every claimed execution (outcome done, failed or abandoned).
func IncrDispatched(ctx context.Context, rdb *redis.Client, taskType, outcome string) {
	_ = rdb.Incr(ctx, dispatchPrefix+taskType+":"+outcome).Err()
}

// RecordSchedulerTick records one recurring-schedule evaluation pass.
func RecordSchedulerTick(ctx context.Context, rdb *redis.Client, now time.Time, enabledCount, catchupCount, triggeredCount int) {
	_ = rdb.Incr(ctx, schedulerTicksKey).Err()
	_ = rdb.HSet(ctx, schedulerLastKey, map[string]any{
		"time":            now.Format(time.RFC3339),
		"enabled_count":   enabledCount,
		"catchup_count":   catchupCount,
		"triggered_count": triggeredCount,
	}).Err()
}

func GetSchedulerMetrics(ctx context.Context, rdb *redis.Client) (PollerSnapshot, error) {
	ticks, err := rdb.Get(ctx, schedulerTicksKey).Int64()
	if err != nil && err != redis.Nil {
		return PollerSnapshot{}, err
	}
	last, err := rdb.HGetAll(ctx, schedulerLastKey).Result()
	if err != nil {
		return PollerSnapshot{}, err
	}
	return PollerSnapshot{Ticks: ticks, Last: last}, nil
}
