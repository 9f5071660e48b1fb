package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mendymm/task-scheduler/internal/domain"
)

const scheduleColumns = `id, task_template_id, cron_expr, timezone, enabled, last_triggered_at`

func scanSchedule(row pgx.Row) (*domain.Schedule, error) {
	var s domain.Schedule
	if err := row.Scan(&s.ID, &s.TaskTemplateID, &s.CronExpr, &s.Timezone, &s.Enabled, &s.LastTriggeredAt); err != nil {
		return nil, err
	}
	return &s, nil
}

func (g *Gateway) CreateSchedule(ctx context.Context, s *domain.Schedule) error {
	_, err := g.pool.Exec(ctx, `
		INSERT INTO schedules (id, task_template_id, cron_expr, timezone, enabled, last_triggered_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, s.ID, s.TaskTemplateID, s.CronExpr, s.Timezone, s.Enabled, s.LastTriggeredAt)
	return err
}

// ListSchedules filters by enabled when non-nil.
func (g *Gateway) ListSchedules(ctx context.Context, enabled *bool) ([]domain.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules`
	args := []any{}
	if enabled != nil {
		query += ` WHERE enabled = $1`
		args = append(args, *enabled)
	}
	rows, err := g.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Schedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func (g *Gateway) GetScheduleByID(ctx context.Context, id uuid.UUID) (*domain.Schedule, error) {
	row := g.pool.QueryRow(ctx, `SELECT `+scheduleColumns+` FROM schedules WHERE id = $1`, id)
	s, err := scanSchedule(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s, nil
}

func (g *Gateway) UpdateScheduleLastTriggeredAt(ctx context.Context, id uuid.UUID, t time.Time) error {
	_, err := g.pool.Exec(ctx, `UPDATE schedules SET last_triggered_at = $2 WHERE id = $1`, id, t)
	return err
}

func (g *Gateway) ToggleScheduleEnabled(ctx context.Context, id uuid.UUID, enabled bool) error {
	_, err := g.pool.Exec(ctx, `UPDATE schedules SET enabled = $2 WHERE id = $1`, id, enabled)
	return err
}
