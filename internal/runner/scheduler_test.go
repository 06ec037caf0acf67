package runner

import (
	"context"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forwarder/internal/errors"
	"forwarder/internal/logging"
)

// countingRunnable counts runs and optionally panics on the first one
type countingRunnable struct {
	runs       atomic.Int32
	panicFirst bool
}

func (c *countingRunnable) Run(ctx context.Context) Outcome {
	n := c.runs.Add(1)
	if c.panicFirst && n == 1 {
		panic("first run blew up")
	}
	return Outcome{RunID: "r", Status: StatusSucceeded}
}

func quietLogger() *logging.Logger {
	return logging.NewLogger(logging.LevelError, io.Discard, "scheduler")
}

func TestNewSchedulerRejectsBadSpec(t *testing.T) {
	_, err := NewScheduler("every five minutes", &countingRunnable{}, false, quietLogger())

	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfiguration))
}

func TestSchedulerRunOnStartup(t *testing.T) {
	runnable := &countingRunnable{}
	s, err := NewScheduler("0 */5 * * * *", runnable, true, quietLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, s.Run(ctx))

	assert.Equal(t, int32(1), runnable.runs.Load())
	assert.Equal(t, 1, s.Runs())
	last, ok := s.LastOutcome()
	require.True(t, ok)
	assert.Equal(t, StatusSucceeded, last.Status)
}

func TestSchedulerKeepsTickingAfterPanic(t *testing.T) {
	runnable := &countingRunnable{panicFirst: true}
	s, err := NewScheduler("@every 1s", runnable, false, quietLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return runnable.runs.Load() >= 2 }, 5*time.Second, 50*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	_, ok := s.LastOutcome()
	assert.True(t, ok)
}

func TestSchedulerRecordsPanickingStartupRun(t *testing.T) {
	runnable := &countingRunnable{panicFirst: true}
	s, err := NewScheduler("0 */5 * * * *", runnable, true, quietLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NotPanics(t, func() { require.NoError(t, s.Run(ctx)) })

	assert.Equal(t, 1, s.Runs())
	last, ok := s.LastOutcome()
	require.True(t, ok)
	assert.True(t, last.Failed())
	assert.True(t, errors.IsType(last.Err, errors.ErrorTypeInternal))
}

func TestSchedulerTicksAfterEveryPanic(t *testing.T) {
	var runs atomic.Int32
	s, err := NewScheduler("@every 1s", runnableFunc(func(context.Context) Outcome {
		runs.Add(1)
		panic("always fails")
	}), false, quietLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return runs.Load() >= 3 }, 6*time.Second, 50*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
	assert.GreaterOrEqual(t, s.Runs(), 3)
}

type runnableFunc func(ctx context.Context) Outcome

func (f runnableFunc) Run(ctx context.Context) Outcome {
	return f(ctx)
}
