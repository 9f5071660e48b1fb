// Package handler implements the task-type bodies the executor invokes once
// a task is claimed. Each handler receives a context bound to the
// shutdown-grace deadline and returns an error to mark the task Failed.
package handler

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mendymm/task-scheduler/internal/domain"
)

// Func runs a claimed task's body.
type Func func(ctx context.Context, id uuid.UUID) error

// Registry maps task type to its handler.
type Registry map[domain.TaskType]Func

func Default(log zerolog.Logger) Registry {
	return Registry{
		domain.TypeFoo: RunFoo(log),
		domain.TypeBar: RunBar(log, http.DefaultClient),
		domain.TypeBaz: RunBaz(log),
	}
}

// RunFoo sleeps for 3 seconds and logs.
func RunFoo(log zerolog.Logger) Func {
	return func(ctx context.Context, id uuid.UUID) error {
		select {
		case <-time.After(3 * time.Second):
		case <-ctx.Done():
			return ctx.Err()
		}
		log.Info().Str("task_id", id.String()).Msg("foo")
		return nil
	}
}

// RunBar makes a GET request and logs the response status code.
func RunBar(log zerolog.Logger, client *http.Client) Func {
	return func(ctx context.Context, id uuid.UUID) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://www.whattimeisitrightnow.com/", nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		log.Info().Str("task_id", id.String()).Int("status", resp.StatusCode).Msg("bar")
		return nil
	}
}

// RunBaz logs a random integer in [0, 343].
func RunBaz(log zerolog.Logger) Func {
	return func(ctx context.Context, id uuid.UUID) error {
		n := rand.Intn(344)
		log.Info().Str("task_id", id.String()).Int("n", n).Msg(fmt.Sprintf("baz %d", n))
		return nil
	}
}
