// Package admission implements the bounded priority hint queue between the
// two task-discovery producers (the LISTEN subscriber and the range poller)
// and the dispatcher. It carries opaque task-id hints only: the store is the
// sole arbiter of whether a hint is still actionable.
package admission

import (
	"context"

	"github.com/google/uuid"
)

// Queue is two channels behind one Dequeue: the poller side is drained
// preferentially, since it is the authoritative recovery path and the
// subscriber is only a latency optimization on top of it.
type Queue struct {
	poller     chan uuid.UUID
	subscriber chan uuid.UUID
}

func New(capacity int) *Queue {
	return &Queue{
		poller:     make(chan uuid.UUID, capacity),
		subscriber: make(chan uuid.UUID, capacity),
	}
}

// EnqueueFromPoller submits a hint discovered by the range poller.
// Drop-on-full: the next poll tick will simply rediscover the same task.
func (q *Queue) EnqueueFromPoller(id uuid.UUID) (accepted bool) {
	select {
	case q.poller <- id:
		return true
	default:
		return false
	}
}

// EnqueueFromSubscriber submits a hint received over LISTEN/NOTIFY.
// Drop-on-full: the poller's next tick is the backstop.
func (q *Queue) EnqueueFromSubscriber(id uuid.UUID) (accepted bool) {
	select {
	case q.subscriber <- id:
		return true
	default:
		return false
	}
}

// Dequeue blocks until a hint is available or ctx is canceled, preferring
// the poller channel whenever both have something ready.
func (q *Queue) Dequeue(ctx context.Context) (uuid.UUID, bool) {
	select {
	case id := <-q.poller:
		return id, true
	default:
	}
	select {
	case id := <-q.poller:
		return id, true
	case id := <-q.subscriber:
		return id, true
	case <-ctx.Done():
		return uuid.UUID{}, false
	}
}
