package lease

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) (*Manager, *miniredis.Miniredis) {
	t.Helper()
	s, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(s.Close)
	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	return NewManager(rdb), s
}

func TestManager_SetIsExclusive(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	ok, err := m.Set(ctx, "task-1", "worker-a", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = m.Set(ctx, "task-1", "worker-b", time.Minute)
	require.NoError(t, err)
	require.False(t, ok, "second worker should not acquire a held lease")
}

func TestManager_RenewOnlySucceedsForHolder(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	_, err := m.Set(ctx, "task-1", "worker-a", time.Minute)
	require.NoError(t, err)

	ok, err := m.Renew(ctx, "task-1", "worker-b", time.Minute)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = m.Renew(ctx, "task-1", "worker-a", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestManager_ReleaseOnlySucceedsForHolder(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	_, err := m.Set(ctx, "task-1", "worker-a", time.Minute)
	require.NoError(t, err)

	ok, err := m.Release(ctx, "task-1", "worker-b")
	require.NoError(t, err)
	require.False(t, ok)

	held, err := m.Held(ctx, "task-1")
	require.NoError(t, err)
	require.True(t, held)

	ok, err = m.Release(ctx, "task-1", "worker-a")
	require.NoError(t, err)
	require.True(t, ok)

	held, err = m.Held(ctx, "task-1")
	require.NoError(t, err)
	require.False(t, held)
}
