// Package redisutil holds the thin Redis plumbing shared by the
// supplemental components (lease manager, worker registry, metrics,
// schedule lock). None of it is on the core claim-protocol path: the core
// pipeline's exactly-once guarantee depends only on Postgres.
package redisutil

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, err
	}
	return rdb, nil
}

// releaseScript deletes key only if it is still held by the caller, the
// same compare-and-delete idiom the lease manager uses for its own locks.
const releaseScript = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('DEL', KEYS[1])
else
	return 0
end`

// AcquireLock takes a best-effort mutual-exclusion lock, used to keep only
// one scheduler process evaluating a given cron tick at a time when several
// executor processes run the supplemental scheduler concurrently.
func AcquireLock(ctx context.Context, rdb *redis.Client, key, holder string, ttl time.Duration) (bool, error) {
	return rdb.SetNX(ctx, key, holder, ttl).Result()
}

// ReleaseLock releases the lock only if holder still owns it.
func ReleaseLock(ctx context.Context, rdb *redis.Client, key, holder string) (bool, error) {
	cmd := rdb.Eval(ctx, releaseScript, []string{key}, holder)
	if err := cmd.Err(); err != nil {
		return false, err
	}
	n, _ := cmd.Int()
	return n == 1, nil
}
