package store

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mendymm/task-scheduler/internal/domain"
)

const taskColumns = `id, created_at, status, execution_time, task_type,
	started_executing_at, completed_at, failed_at, deleted_at, claimed_by`

func scanTask(row pgx.Row) (*domain.Task, error) {
	var t domain.Task
	if err := row.Scan(
		&t.ID, &t.CreatedAt, &t.Status, &t.ExecutionTime, &t.TaskType,
		&t.StartedExecutingAt, &t.CompletedAt, &t.FailedAt, &t.DeletedAt, &t.ClaimedBy,
	); err != nil {
		return nil, err
	}
	return &t, nil
}

// Insert writes a Submitted task and, in the same transaction, publishes
// pg_notify(new_task, id) so a subscriber never observes an id before the
// row is visible.
func (g *Gateway) Insert(ctx context.Context, t *domain.Task) error {
	tx, err := g.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO tasks (id, created_at, status, execution_time, task_type)
		VALUES ($1, NOW(), $2, $3, $4)
	`, t.ID, domain.StatusSubmitted, t.ExecutionTime, t.TaskType); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `SELECT pg_notify($1, $2)`, BroadcastChannel, t.ID.String()); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Get returns the task record or ErrNotFound.
func (g *Gateway) Get(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	row := g.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)
	t, err := scanTask(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return t, nil
}

// List returns all matching records; ordering is not guaranteed.
func (g *Gateway) List(ctx context.Context, status *domain.Status, taskType *domain.TaskType) ([]domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE TRUE`
	args := []any{}
	if status != nil {
		args = append(args, *status)
		query += ` AND status = $` + strconv.Itoa(len(args))
	}
	if taskType != nil {
		args = append(args, *taskType)
		query += ` AND task_type = $` + strconv.Itoa(len(args))
	}
	rows, err := g.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// DeleteResult is the outcome of a conditional delete.
type DeleteResult int

const (
	Deleted DeleteResult = iota
	NotDeletable
	NotFoundResult
)

// DeleteIfSubmitted performs the conditional transition Submitted -> Deleted.
// Because it is conditional on status = Submitted, once a claim has
// committed this always returns NotDeletable, preserving the guarantee that
// a 200-OK delete means the task will never execute.
func (g *Gateway) DeleteIfSubmitted(ctx context.Context, id uuid.UUID) (DeleteResult, domain.Status, error) {
	tx, err := g.pool.Begin(ctx)
	if err != nil {
		return NotFoundResult, "", err
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `SELECT status FROM tasks WHERE id = $1 FOR UPDATE`, id)
	var current domain.Status
	if err := row.Scan(&current); err != nil {
		if err == pgx.ErrNoRows {
			return NotFoundResult, "", nil
		}
		return NotFoundResult, "", err
	}
	if current != domain.StatusSubmitted {
		return NotDeletable, current, nil
	}
	if _, err := tx.Exec(ctx, `
		UPDATE tasks SET status = $2, deleted_at = NOW() WHERE id = $1
	`, id, domain.StatusDeleted); err != nil {
		return NotFoundResult, "", err
	}
	if err := tx.Commit(ctx); err != nil {
		return NotFoundResult, "", err
	}
	return Deleted, domain.StatusDeleted, nil
}

// FindUpcoming returns Submitted tasks due within window, oldest
// execution_time first, bounded by limit. Extra rows are left for the next
// poll tick.
func (g *Gateway) FindUpcoming(ctx context.Context, window time.Duration, limit int) ([]domain.Task, error) {
	rows, err := g.pool.Query(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE status = $1 AND execution_time <= NOW() + $2::interval
		ORDER BY execution_time ASC
		LIMIT $3
	`, domain.StatusSubmitted, window, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// Claim attempts the conditional transition Submitted -> StartedExecuting.
// It locks the row with FOR UPDATE SKIP LOCKED so a concurrently racing
// claimer simply sees zero rows and returns ErrLost instead of blocking.
func (g *Gateway) Claim(ctx context.Context, id uuid.UUID, workerID string) (*domain.Task, error) {
	tx, err := g.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE id = $1 AND status = $2
		FOR UPDATE SKIP LOCKED
	`, id, domain.StatusSubmitted)
	t, err := scanTask(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrLost
		}
		return nil, err
	}

	if _, err := tx.Exec(ctx, `
		UPDATE tasks SET status = $2, started_executing_at = NOW(), claimed_by = $3
		WHERE id = $1
	`, id, domain.StatusStartedExecuting, workerID); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	t.Status = domain.StatusStartedExecuting
	return t, nil
}

// MarkDone writes the terminal Done status; only legal from StartedExecuting.
func (g *Gateway) MarkDone(ctx context.Context, id uuid.UUID) error {
	_, err := g.pool.Exec(ctx, `
		UPDATE tasks SET status = $2, completed_at = NOW()
		WHERE id = $1 AND status = $3
	`, id, domain.StatusDone, domain.StatusStartedExecuting)
	return err
}

// MarkFailed writes the terminal Failed status; only legal from
// StartedExecuting. No retry of the task body happens in this version.
func (g *Gateway) MarkFailed(ctx context.Context, id uuid.UUID) error {
	_, err := g.pool.Exec(ctx, `
		UPDATE tasks SET status = $2, failed_at = NOW()
		WHERE id = $1 AND status = $3
	`, id, domain.StatusFailed, domain.StatusStartedExecuting)
	return err
}

// FindStaleStartedExecuting returns StartedExecuting rows whose
// started_executing_at predates the given watermark. Used only by the
// supplemental lease reaper.
func (g *Gateway) FindStaleStartedExecuting(ctx context.Context, olderThan time.Time) ([]domain.Task, error) {
	rows, err := g.pool.Query(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE status = $1 AND started_executing_at < $2
	`, domain.StatusStartedExecuting, olderThan)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// ReopenStale is the reaper's sole write: it moves an abandoned claim back
// to Submitted so it re-enters the normal claim race. Conditional on the
// row still being StartedExecuting, so a task that legitimately finished
// between the reaper's scan and this call is left untouched.
func (g *Gateway) ReopenStale(ctx context.Context, id uuid.UUID) error {
	_, err := g.pool.Exec(ctx, `
		UPDATE tasks SET status = $2, started_executing_at = NULL, claimed_by = NULL
		WHERE id = $1 AND status = $3
	`, id, domain.StatusSubmitted, domain.StatusStartedExecuting)
	return err
}
