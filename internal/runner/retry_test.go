package runner

import (
	"bytes"
	"context"
	stderrors "errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forwarder/internal/clients/loganalytics"
	"forwarder/internal/clock"
	"forwarder/internal/errors"
	"forwarder/internal/logging"
)

// MockExecutor replays a scripted sequence of query outcomes
type MockExecutor struct {
	errs    []error
	result  *loganalytics.Result
	calls   int
	queries []string
}

func (m *MockExecutor) Query(ctx context.Context, query string) (*loganalytics.Result, error) {
	m.calls++
	m.queries = append(m.queries, query)
	if m.calls <= len(m.errs) && m.errs[m.calls-1] != nil {
		return nil, m.errs[m.calls-1]
	}
	return m.result, nil
}

func transient(msg string) error {
	return errors.TransientQuery(msg, nil)
}

func countLevel(buf *bytes.Buffer, level string) int {
	n := 0
	for _, line := range strings.Split(buf.String(), "\n") {
		if strings.Contains(line, "] "+level+" ") {
			n++
		}
	}
	return n
}

func newTestRetrier(exec loganalytics.QueryInterface) (*Retrier, *clock.FakeClock, *bytes.Buffer) {
	var buf bytes.Buffer
	clk := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	r := NewRetrier(exec, DefaultRetryPolicy(), clk, logging.NewLogger(logging.LevelDebug, &buf, "retry"))
	return r, clk, &buf
}

func TestRetrierSucceedsFirstAttempt(t *testing.T) {
	want := loganalytics.NewResult(map[string]any{})
	exec := &MockExecutor{result: want}
	r, clk, buf := newTestRetrier(exec)

	got, err := r.Do(context.Background(), "Heartbeat")

	require.NoError(t, err)
	assert.Same(t, want, got)
	assert.Equal(t, 1, exec.calls)
	assert.Empty(t, clk.Waits())
	assert.Zero(t, countLevel(buf, "WARN"))
}

func TestRetrierRecoversOnThirdAttempt(t *testing.T) {
	want := loganalytics.NewResult(map[string]any{})
	exec := &MockExecutor{
		errs:   []error{transient("status 503"), transient("connection reset")},
		result: want,
	}
	r, clk, buf := newTestRetrier(exec)

	got, err := r.Do(context.Background(), "Heartbeat")

	require.NoError(t, err)
	assert.Same(t, want, got)
	assert.Equal(t, 3, exec.calls)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, clk.Waits())
	assert.Equal(t, 2, countLevel(buf, "WARN"))
	assert.Zero(t, countLevel(buf, "ERROR"))
	assert.Contains(t, buf.String(), "Retry attempt 1 failed: transient_query: status 503")
	assert.Contains(t, buf.String(), "Retry attempt 2 failed: transient_query: connection reset")
}

func TestRetrierExhaustsAttempts(t *testing.T) {
	last := transient("status 500")
	exec := &MockExecutor{errs: []error{transient("a"), transient("b"), last}}
	r, clk, buf := newTestRetrier(exec)

	_, err := r.Do(context.Background(), "Heartbeat")

	require.Error(t, err)
	assert.Same(t, last, err)
	assert.True(t, errors.IsTransient(err))
	assert.Equal(t, 3, exec.calls)
	assert.Equal(t, 6*time.Second, clk.Elapsed())
	assert.Equal(t, 3, countLevel(buf, "WARN"))
	assert.Equal(t, 1, countLevel(buf, "ERROR"))
	assert.Contains(t, buf.String(), "Max retry attempts reached.")
}

func TestRetrierDoesNotRetryParseErrors(t *testing.T) {
	parseErr := errors.Parse("query response is not valid JSON", stderrors.New("unexpected EOF"))
	exec := &MockExecutor{errs: []error{parseErr}}
	r, clk, buf := newTestRetrier(exec)

	_, err := r.Do(context.Background(), "Heartbeat")

	assert.Same(t, parseErr, err)
	assert.Equal(t, 1, exec.calls)
	assert.Empty(t, clk.Waits())
	assert.Zero(t, countLevel(buf, "WARN"))
}

func TestRetrierDoesNotRetryOtherErrors(t *testing.T) {
	for _, err := range []error{
		errors.Credential(stderrors.New("no identity")),
		stderrors.New("unclassified"),
	} {
		exec := &MockExecutor{errs: []error{err}}
		r, clk, _ := newTestRetrier(exec)

		_, got := r.Do(context.Background(), "Heartbeat")

		assert.Equal(t, err, got)
		assert.Equal(t, 1, exec.calls)
		assert.Empty(t, clk.Waits())
	}
}

func TestRetrierStopsRetryingAfterLaterNonTransientError(t *testing.T) {
	parseErr := errors.Parse("bad body", nil)
	exec := &MockExecutor{errs: []error{transient("503"), parseErr}}
	r, clk, _ := newTestRetrier(exec)

	_, err := r.Do(context.Background(), "Heartbeat")

	assert.Same(t, parseErr, err)
	assert.Equal(t, 2, exec.calls)
	assert.Equal(t, []time.Duration{2 * time.Second}, clk.Waits())
}

func TestRetrierHonoursCancelledContext(t *testing.T) {
	exec := &MockExecutor{errs: []error{transient("503"), transient("503"), transient("503")}}
	var buf bytes.Buffer
	r := NewRetrier(exec, DefaultRetryPolicy(), blockingClock{}, logging.NewLogger(logging.LevelDebug, &buf, "retry"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Do(ctx, "Heartbeat")

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, exec.calls)
}

func TestRetryPolicyNormalized(t *testing.T) {
	p := RetryPolicy{InitialDelay: -time.Second}.normalized()

	assert.Equal(t, 3, p.MaxAttempts)
	assert.Equal(t, 2, p.Multiplier)
	assert.Equal(t, time.Duration(0), p.InitialDelay)
}

// blockingClock never fires
type blockingClock struct{}

func (blockingClock) Now() time.Time                       { return time.Time{} }
func (blockingClock) After(time.Duration) <-chan time.Time { return nil }
