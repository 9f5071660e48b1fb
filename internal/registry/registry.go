// Package registry tracks the live executor fleet in Redis: each process
// refreshes a TTL key on an interval, and the HTTP surface lists whichever
// keys haven't expired. There is no authoritative worker list anywhere else;
// a worker that stops heartbeating simply ages out.
package registry

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "worker:"
const keySuffix = ":heartbeat"

func heartbeatKey(workerID string) string {
	return keyPrefix + workerID + keySuffix
}

// Heartbeat blocks, refreshing workerID's presence key every interval until
// ctx is canceled. The key carries ttl so a crashed process disappears from
// List once ttl elapses without a fresh refresh.
func Heartbeat(ctx context.Context, rdb *redis.Client, workerID string, ttl, interval time.Duration) {
	tkr := time.NewTicker(interval)
	defer tkr.Stop()
	_ = rdb.Set(ctx, heartbeatKey(workerID), time.Now().Format(time.RFC3339), ttl).Err()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tkr.C:
			_ = rdb.Set(ctx, heartbeatKey(workerID), time.Now().Format(time.RFC3339), ttl).Err()
		}
	}
}

type Worker struct {
	ID          string `json:"id"`
	LastBeat    string `json:"last_heartbeat_at"`
	TTLSeconds  int64  `json:"ttl_seconds"`
}

// List scans for live worker keys. Cursor-based SCAN is used instead of
// KEYS so a large fleet never blocks Redis with a single O(n) command.
func List(ctx context.Context, rdb *redis.Client) ([]Worker, error) {
	var out []Worker
	var cursor uint64
	for {
		keys, next, err := rdb.Scan(ctx, cursor, keyPrefix+"*"+keySuffix, 200).Result()
		if err != nil {
			return nil, err
		}
		for _, k := range keys {
			id := strings.TrimSuffix(strings.TrimPrefix(k, keyPrefix), keySuffix)
			val, _ := rdb.Get(ctx, k).Result()
			ttl, _ := rdb.TTL(ctx, k).Result()
			out = append(out, Worker{ID: id, LastBeat: val, TTLSeconds: int64(ttl.Seconds())})
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return out, nil
}
