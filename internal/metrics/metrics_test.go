package metrics

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) *redis.Client {
	t.Helper()
	s, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return redis.NewClient(&redis.Options{Addr: s.Addr()})
}

func TestPollerMetrics_RoundTrip(t *testing.T) {
	rdb := newTestClient(t)
	ctx := context.Background()

	RecordPollerTick(ctx, rdb, 5, 3, 2)
	RecordPollerTick(ctx, rdb, 1, 1, 0)

	snap, err := GetPollerMetrics(ctx, rdb)
	require.NoError(t, err)
	require.Equal(t, int64(2), snap.Ticks)
	require.Equal(t, "1", snap.Last["found"])
	require.Equal(t, "1", snap.Last["admitted"])
	require.Equal(t, "0", snap.Last["dropped"])
}

func TestSchedulerMetrics_RoundTrip(t *testing.T) {
	rdb := newTestClient(t)
	ctx := context.Background()
	now := time.Now()

	RecordSchedulerTick(ctx, rdb, now, 4, 2, 1)

	snap, err := GetSchedulerMetrics(ctx, rdb)
	require.NoError(t, err)
	require.Equal(t, int64(1), snap.Ticks)
	require.Equal(t, "4", snap.Last["enabled_count"])
	require.Equal(t, "2", snap.Last["catchup_count"])
	require.Equal(t, "1", snap.Last["triggered_count"])
}

func TestGetPollerMetrics_NoDataYet(t *testing.T) {
	rdb := newTestClient(t)
	snap, err := GetPollerMetrics(context.Background(), rdb)
	require.NoError(t, err)
	require.Equal(t, int64(0), snap.Ticks)
}
