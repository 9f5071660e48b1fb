// Package store is the Datastore Gateway: the only component that talks to
// Postgres. Every operation here is safe under concurrent callers and uses
// short transactions; claims take row locks with SKIP LOCKED so concurrent
// claimers never serialize against each other.
package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
)

// BroadcastChannel is the single logical pg_notify channel carrying newly
// submitted task ids, best-effort, to every subscriber.
const BroadcastChannel = "new_task"

var (
	ErrNotFound    = errors.New("store: task not found")
	ErrNotDeletable = errors.New("store: task is not in a deletable state")
	ErrLost        = errors.New("store: claim lost")
)

// Gateway wraps a pgx pool with the typed operations the dispatch engine and
// HTTP surface need. It holds no in-memory state of its own.
type Gateway struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Gateway {
	return &Gateway{pool: pool}
}

func (g *Gateway) Pool() *pgxpool.Pool { return g.pool }

func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// EnsureSchema creates the tables and indexes this gateway depends on if
// they don't already exist. Production deployments would drive this with
// migrations instead; kept inline here to match the teacher's minimal
// bootstrap style.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS tasks (
			id UUID PRIMARY KEY,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			status TEXT NOT NULL,
			execution_time TIMESTAMPTZ NOT NULL,
			task_type TEXT NOT NULL,
			started_executing_at TIMESTAMPTZ,
			completed_at TIMESTAMPTZ,
			failed_at TIMESTAMPTZ,
			deleted_at TIMESTAMPTZ,
			claimed_by TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_execution_time ON tasks(execution_time);`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_task_type ON tasks(task_type);`,
		`CREATE TABLE IF NOT EXISTS schedules (
			id UUID PRIMARY KEY,
			task_template_id UUID NOT NULL REFERENCES tasks(id),
			cron_expr TEXT NOT NULL,
			timezone TEXT NOT NULL,
			enabled BOOLEAN NOT NULL DEFAULT TRUE,
			last_triggered_at TIMESTAMPTZ
		);`,
		`CREATE INDEX IF NOT EXISTS idx_schedules_enabled ON schedules(enabled);`,
	}
	for _, stmt := range ddl {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
