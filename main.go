package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/mendymm/task-scheduler/internal/admission"
	"github.com/mendymm/task-scheduler/internal/config"
	"github.com/mendymm/task-scheduler/internal/dispatch"
	"github.com/mendymm/task-scheduler/internal/executor"
	"github.com/mendymm/task-scheduler/internal/handler"
	"github.com/mendymm/task-scheduler/internal/httpapi"
	"github.com/mendymm/task-scheduler/internal/lease"
	"github.com/mendymm/task-scheduler/internal/logging"
	"github.com/mendymm/task-scheduler/internal/notify"
	"github.com/mendymm/task-scheduler/internal/poll"
	"github.com/mendymm/task-scheduler/internal/reaper"
	"github.com/mendymm/task-scheduler/internal/redisutil"
	"github.com/mendymm/task-scheduler/internal/registry"
	"github.com/mendymm/task-scheduler/internal/schedule"
	"github.com/mendymm/task-scheduler/internal/store"
)

func main() {
	usage := "please provide either 'http' or 'executor' as the first argument"
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(1)
	}
	mode := os.Args[1]
	if mode != "http" && mode != "executor" {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(1)
	}

	cfg := config.Load()
	log := logging.Init(mode, cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	pool, err := store.Connect(ctx, cfg.PostgresDSN)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connect failed")
	}
	defer pool.Close()

	ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
	err = store.EnsureSchema(ctx, pool)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Msg("ensure schema failed")
	}

	gw := store.New(pool)

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		rdb, err = redisutil.Connect(ctx, cfg.RedisURL)
		cancel()
		if err != nil {
			log.Warn().Err(err).Msg("redis connect failed, supplemental features disabled")
			rdb = nil
		} else {
			defer rdb.Close()
		}
	} else {
		log.Warn().Msg("REDIS_URL not set, supplemental features disabled")
	}

	switch mode {
	case "http":
		runHTTP(cfg, gw, pool, rdb, log)
	case "executor":
		runExecutor(cfg, gw, rdb, log)
	}
}

func runHTTP(cfg config.AppConfig, gw *store.Gateway, pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) {
	api := httpapi.New(gw, pool, rdb, cfg.CreateTaskRPS, cfg.CreateTaskBurst)
	srv := &http.Server{Addr: ":" + cfg.HTTPPort, Handler: api.Router()}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("http server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForSignal()
	log.Info().Msg("shutting down http server")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("http server shutdown error")
	}
}

// runExecutor starts the dispatch engine: the two discovery producers feeding
// the admission queue, the dispatcher draining it, and the supplemental
// reaper/heartbeat/schedule loops. Every loop is supervised by ctx and stops
// admitting new work on shutdown signal; cancelAll never reaches into an
// already-claimed task, since Execute runs those on their own
// shutdown-grace-bounded context. The trailing sleep just gives those
// in-flight goroutines the same grace window to finish before the process
// exits.
func runExecutor(cfg config.AppConfig, gw *store.Gateway, rdb *redis.Client, log zerolog.Logger) {
	ctx, cancelAll := context.WithCancel(context.Background())
	defer cancelAll()

	workerID := uuid.NewString()
	log.Info().Str("worker_id", workerID).Msg("executor starting")

	queue := admission.New(cfg.MaxInMemory)
	handlers := handler.Default(log)

	var leases *lease.Manager
	if rdb != nil {
		leases = lease.NewManager(rdb)
	}
	exec := executor.New(gw, handlers, leases, rdb, workerID, cfg.LeaseTTL, cfg.ShutdownGrace, log)
	disp := dispatch.New(queue, gw, exec, cfg.MaxConcurrentExecuting, log)

	p := poll.New(gw, queue, rdb, cfg.PollInterval, cfg.PollInterval, cfg.PollPageLimit, log)
	go p.Run(ctx)

	go disp.Run(ctx)

	if pool := gw.Pool(); pool != nil {
		sub := notify.New(pool, gw, queue, cfg.MaxSecondsToSleep, log)
		go sub.Run(ctx)
	}

	if rdb != nil {
		go registry.Heartbeat(ctx, rdb, workerID, cfg.HeartbeatTTL, cfg.HeartbeatRefreshInterval)

		r := reaper.New(gw, leases, cfg.LeaseTTL, cfg.ReaperInterval, log)
		go r.Run(ctx)

		sch, err := schedule.New(gw, rdb, cfg.SchedulerTickInterval, cfg.SchedulerTimezone, log)
		if err != nil {
			log.Error().Err(err).Msg("schedule: disabled, bad timezone")
		} else {
			go sch.Run(ctx)
		}
	}

	waitForSignal()
	log.Info().Msg("shutting down executor")
	cancelAll()
	time.Sleep(cfg.ShutdownGrace)
}

func waitForSignal() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
}
