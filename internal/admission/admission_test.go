package admission

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_PollerPreferredOverSubscriber(t *testing.T) {
	q := New(4)
	subID := uuid.New()
	pollID := uuid.New()

	require.True(t, q.EnqueueFromSubscriber(subID))
	require.True(t, q.EnqueueFromPoller(pollID))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	got, ok := q.Dequeue(ctx)
	require.True(t, ok)
	assert.Equal(t, pollID, got, "poller hint should drain before subscriber hint")

	got, ok = q.Dequeue(ctx)
	require.True(t, ok)
	assert.Equal(t, subID, got)
}

func TestQueue_EnqueueDropsWhenFull(t *testing.T) {
	q := New(1)
	require.True(t, q.EnqueueFromPoller(uuid.New()))
	assert.False(t, q.EnqueueFromPoller(uuid.New()), "second poller hint should be dropped once full")
	assert.True(t, q.EnqueueFromSubscriber(uuid.New()), "subscriber channel has its own capacity")
}

func TestQueue_DequeueCancelsWithContext(t *testing.T) {
	q := New(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, ok := q.Dequeue(ctx)
	assert.False(t, ok)
}
