package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunBaz_Succeeds(t *testing.T) {
	fn := RunBaz(zerolog.Nop())
	err := fn(context.Background(), uuid.New())
	assert.NoError(t, err)
}

func TestRunFoo_RespectsContextCancellation(t *testing.T) {
	fn := RunFoo(zerolog.Nop())
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := fn(ctx, uuid.New())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRunBar_FailsClosedOnExpiredContext(t *testing.T) {
	// RunBar hardcodes the production URL, so without a client seam this
	// only exercises that a dead deadline surfaces as an error instead of
	// hanging until the real request completes.
	fn := RunBar(zerolog.Nop(), http.DefaultClient)
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	err := fn(ctx, uuid.New())
	require.Error(t, err)
}
