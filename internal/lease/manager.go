// Package lease provides the Redis-backed execution lease the supplemental
// reaper uses to tell an abandoned claim from one that is simply slow.
// Nothing on the core claim path depends on this package.
package lease

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

func Key(taskID string) string {
	return "lease:" + taskID
}

type Manager struct {
	rdb *redis.Client
}

func NewManager(rdb *redis.Client) *Manager {
	return &Manager{rdb: rdb}
}

// Set takes the lease, succeeding only if no other worker holds it.
func (m *Manager) Set(ctx context.Context, taskID, workerID string, ttl time.Duration) (bool, error) {
	return m.rdb.SetNX(ctx, Key(taskID), workerID, ttl).Result()
}

// Renew extends the lease, succeeding only while workerID is still the holder.
func (m *Manager) Renew(ctx context.Context, taskID, workerID string, ttl time.Duration) (bool, error) {
	script := `
		if redis.call('GET', KEYS[1]) == ARGV[1] then
			return redis.call('PEXPIRE', KEYS[1], ARGV[2])
		else
			return 0
		end`
	cmd := m.rdb.Eval(ctx, script, []string{Key(taskID)}, workerID, int(ttl.Milliseconds()))
	if err := cmd.Err(); err != nil {
		return false, err
	}
	n, _ := cmd.Int()
	return n == 1, nil
}

// Release drops the lease, succeeding only while workerID is still the holder.
func (m *Manager) Release(ctx context.Context, taskID, workerID string) (bool, error) {
	script := `
		if redis.call('GET', KEYS[1]) == ARGV[1] then
			return redis.call('DEL', KEYS[1])
		else
			return 0
		end`
	cmd := m.rdb.Eval(ctx, script, []string{Key(taskID)}, workerID)
	if err := cmd.Err(); err != nil {
		return false, err
	}
	n, _ := cmd.Int()
	return n == 1, nil
}

// Held reports whether any worker currently holds the lease for taskID.
func (m *Manager) Held(ctx context.Context, taskID string) (bool, error) {
	err := m.rdb.Get(ctx, Key(taskID)).Err()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
