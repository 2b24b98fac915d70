package reward

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradon-app/tradon/internal/app/storage/memory"
)

func TestRunnerSettlesExpiredTimer(t *testing.T) {
	svc := New(memory.New(), DefaultConfig(), nil)
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.WithClock(fixedClock(start))
	svc.StartEarningTimer(30)
	svc.WithClock(fixedClock(start.Add(time.Minute)))

	r := NewRunner(svc, nil)
	r.interval = 5 * time.Millisecond
	r.minGap = 0

	ctx := context.Background()
	require.NoError(t, r.Start(ctx))
	defer r.Stop(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if svc.State().Points == 2000 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	assert.EqualValues(t, 2000, svc.State().Points)
}

func TestRunnerStartStopIdempotent(t *testing.T) {
	svc := New(memory.New(), DefaultConfig(), nil)
	r := NewRunner(svc, nil)
	ctx := context.Background()

	require.NoError(t, r.Start(ctx))
	require.NoError(t, r.Start(ctx), "second start is a no-op")

	stopCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	require.NoError(t, r.Stop(stopCtx))
	require.NoError(t, r.Stop(stopCtx), "second stop is a no-op")
}
