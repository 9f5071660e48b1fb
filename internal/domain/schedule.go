package domain

import (
	"time"

	"github.com/google/uuid"
)

// Schedule is a recurring rule: on every firing time its cron expression
// produces, the scheduler inserts a new Task cloned from TaskTemplateID.
type Schedule struct {
	ID             uuid.UUID `json:"id"`
	TaskTemplateID uuid.UUID `json:"task_template_id"`
	CronExpr       string    `json:"cron_expr"`
	Timezone       string    `json:"timezone"`
	Enabled        bool      `json:"enabled"`
	// LastTriggeredAt anchors catch-up: the scheduler walks firing times
	// forward from here, never from "now", so a disabled-then-re-enabled
	// schedule still produces every bounded-catch-up window it owes.
	LastTriggeredAt *time.Time `json:"last_triggered_at"`
}
