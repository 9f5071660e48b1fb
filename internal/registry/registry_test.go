package registry

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestList_ReturnsOnlyLiveHeartbeats(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()
	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go Heartbeat(ctx, rdb, "worker-1", time.Minute, 5*time.Millisecond)

	require.Eventually(t, func() bool {
		workers, err := List(context.Background(), rdb)
		return err == nil && len(workers) == 1 && workers[0].ID == "worker-1"
	}, time.Second, 5*time.Millisecond)
}

func TestList_ExpiredHeartbeatIsNotListed(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()
	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})

	require.NoError(t, rdb.Set(context.Background(), heartbeatKey("worker-2"), "x", time.Second).Err())
	s.FastForward(2 * time.Second)

	workers, err := List(context.Background(), rdb)
	require.NoError(t, err)
	require.Empty(t, workers)
}
