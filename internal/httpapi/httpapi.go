// Package httpapi wires the gin HTTP surface: task CRUD, the supplemental
// schedule/worker/metrics reads, and health/readiness probes.
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/mendymm/task-scheduler/internal/domain"
	"github.com/mendymm/task-scheduler/internal/metrics"
	"github.com/mendymm/task-scheduler/internal/registry"
	"github.com/mendymm/task-scheduler/internal/store"
)

type API struct {
	gw      *store.Gateway
	pool    *pgxpool.Pool
	rdb     *redis.Client // nil when Redis is not configured
	limiter *rate.Limiter
}

// New builds the API. createRPS and createBurst bound the rate of task
// creation so one noisy client can't flood the admission queue; 0 disables
// the limit.
func New(gw *store.Gateway, pool *pgxpool.Pool, rdb *redis.Client, createRPS float64, createBurst int) *API {
	var limiter *rate.Limiter
	if createRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(createRPS), createBurst)
	}
	return &API{gw: gw, pool: pool, rdb: rdb, limiter: limiter}
}

// throttleCreate rejects task creation once the limiter's token bucket is
// empty, rather than letting an unbounded burst of inserts outpace what the
// poller/dispatcher can admit.
func (a *API) throttleCreate(c *gin.Context) {
	if a.limiter != nil && !a.limiter.Allow() {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
		return
	}
	c.Next()
}

// Router builds the gin engine with every route this surface exposes.
func (a *API) Router() *gin.Engine {
	r := gin.Default()

	r.GET("/healthz", a.Healthz)
	r.GET("/readyz", a.Readyz)

	v1 := r.Group("/api/v1")
	{
		v1.POST("/tasks", a.throttleCreate, a.CreateTask)
		v1.GET("/tasks/:id", a.GetTask)
		v1.GET("/tasks", a.ListTasks)
		v1.DELETE("/tasks/:id", a.DeleteTask)

		v1.POST("/schedules", a.CreateSchedule)
		v1.GET("/schedules", a.ListSchedules)
		v1.GET("/schedules/:id", a.GetSchedule)
		v1.POST("/schedules/:id/toggle", a.ToggleSchedule)

		v1.GET("/workers", a.ListWorkers)
		v1.GET("/metrics/poller", a.PollerMetrics)
		v1.GET("/metrics/scheduler", a.SchedulerMetrics)
	}
	return r
}

func (a *API) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readyz checks the store, and Redis only when the supplemental features
// are configured: a process running without Redis is ready once the store
// answers, while a configured Redis that stops answering fails readiness.
func (a *API) Readyz(c *gin.Context) {
	ctx := c.Request.Context()
	if err := a.pool.Ping(ctx); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ready": false, "error": "db ping failed"})
		return
	}
	if a.rdb != nil {
		if err := a.rdb.Ping(ctx).Err(); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"ready": false, "error": "redis ping failed"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"ready": true, "timestamp": time.Now().UTC()})
}

type createTaskRequest struct {
	TaskType      string    `json:"task_type" binding:"required"`
	ExecutionTime time.Time `json:"execution_time" binding:"required"`
}

// POST /api/v1/tasks
func (a *API) CreateTask(c *gin.Context) {
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "detail": err.Error()})
		return
	}
	if !domain.ValidType(domain.TaskType(req.TaskType)) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown task_type"})
		return
	}
	t := &domain.Task{
		ID:            uuid.New(),
		TaskType:      domain.TaskType(req.TaskType),
		ExecutionTime: req.ExecutionTime,
	}
	if err := a.gw.Insert(c.Request.Context(), t); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create task failed", "detail": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"task_id": t.ID.String()})
}

// GET /api/v1/tasks/:id
func (a *API) GetTask(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task id"})
		return
	}
	t, err := a.gw.Get(c.Request.Context(), id)
	if err != nil {
		if err == store.ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, t)
}

// GET /api/v1/tasks?status=&type=
func (a *API) ListTasks(c *gin.Context) {
	var status *domain.Status
	if v := c.Query("status"); v != "" {
		s := domain.Status(v)
		status = &s
	}
	var taskType *domain.TaskType
	if v := c.Query("type"); v != "" {
		tt := domain.TaskType(v)
		taskType = &tt
	}
	tasks, err := a.gw.List(c.Request.Context(), status, taskType)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks, "count": len(tasks)})
}

// DELETE /api/v1/tasks/:id
func (a *API) DeleteTask(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task id"})
		return
	}
	result, status, err := a.gw.DeleteIfSubmitted(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	switch result {
	case store.Deleted:
		c.JSON(http.StatusOK, gin.H{"task_id": id.String(), "status": status})
	case store.NotDeletable:
		c.JSON(http.StatusConflict, gin.H{"error": "task is not in a deletable state", "status": status})
	default:
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
	}
}

type createScheduleRequest struct {
	TaskTemplateID string `json:"task_template_id" binding:"required"`
	CronExpr       string `json:"cron_expr" binding:"required"`
	Timezone       string `json:"timezone" binding:"required"`
	Enabled        *bool  `json:"enabled"`
}

// POST /api/v1/schedules
func (a *API) CreateSchedule(c *gin.Context) {
	var req createScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tplID, err := uuid.Parse(req.TaskTemplateID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task_template_id"})
		return
	}
	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}
	s := &domain.Schedule{
		ID:             uuid.New(),
		TaskTemplateID: tplID,
		CronExpr:       req.CronExpr,
		Timezone:       req.Timezone,
		Enabled:        enabled,
	}
	if err := a.gw.CreateSchedule(c.Request.Context(), s); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"schedule_id": s.ID.String()})
}

// GET /api/v1/schedules?enabled=
func (a *API) ListSchedules(c *gin.Context) {
	var enabled *bool
	if v := c.Query("enabled"); v != "" {
		b := v == "true"
		enabled = &b
	}
	schedules, err := a.gw.ListSchedules(c.Request.Context(), enabled)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"schedules": schedules, "count": len(schedules)})
}

// GET /api/v1/schedules/:id
func (a *API) GetSchedule(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid schedule id"})
		return
	}
	s, err := a.gw.GetScheduleByID(c.Request.Context(), id)
	if err != nil {
		if err == store.ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "schedule not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, s)
}

type toggleScheduleRequest struct {
	Enabled bool `json:"enabled"`
}

// POST /api/v1/schedules/:id/toggle
func (a *API) ToggleSchedule(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid schedule id"})
		return
	}
	var req toggleScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := a.gw.ToggleScheduleEnabled(c.Request.Context(), id, req.Enabled); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id.String(), "enabled": req.Enabled})
}

// GET /api/v1/workers
func (a *API) ListWorkers(c *gin.Context) {
	if a.rdb == nil {
		c.JSON(http.StatusOK, gin.H{"workers": []registry.Worker{}, "count": 0})
		return
	}
	workers, err := registry.List(c.Request.Context(), a.rdb)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"workers": workers, "count": len(workers)})
}

// GET /api/v1/metrics/poller
func (a *API) PollerMetrics(c *gin.Context) {
	if a.rdb == nil {
		c.JSON(http.StatusOK, metrics.PollerSnapshot{})
		return
	}
	snap, err := metrics.GetPollerMetrics(c.Request.Context(), a.rdb)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, snap)
}

// GET /api/v1/metrics/scheduler
func (a *API) SchedulerMetrics(c *gin.Context) {
	if a.rdb == nil {
		c.JSON(http.StatusOK, metrics.PollerSnapshot{})
		return
	}
	snap, err := metrics.GetSchedulerMetrics(c.Request.Context(), a.rdb)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, snap)
}
