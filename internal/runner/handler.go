package runner

import (
	"context"
	stderrors "errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"forwarder/internal/clients/loganalytics"
	"forwarder/internal/clock"
	"forwarder/internal/errors"
	"forwarder/internal/logging"
)

// QueryRunner produces a query result, retrying as it sees fit
type QueryRunner interface {
	Do(ctx context.Context, query string) (*loganalytics.Result, error)
}

// RowForwarder emits query rows as telemetry
type RowForwarder interface {
	Forward(ctx context.Context, rows [][]any) (int, error)
}

// Status is the terminal state of one run
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Outcome describes one finished run. Failures are captured here rather
// than returned, so the trigger can log and discard them.
type Outcome struct {
	RunID     string
	StartedAt time.Time
	Duration  time.Duration
	Rows      int
	Status    Status
	Err       error
}

// Failed reports whether the run ended in an error
func (o Outcome) Failed() bool {
	return o.Status == StatusFailed
}

func (o Outcome) String() string {
	if o.Failed() {
		return fmt.Sprintf("run %s failed after %s: %v", o.RunID, o.Duration, o.Err)
	}
	return fmt.Sprintf("run %s forwarded %d rows in %s", o.RunID, o.Rows, o.Duration)
}

// Handler is the per-tick entry point: query with retries, forward the
// rows, and contain every failure inside the run.
type Handler struct {
	query     string
	queries   QueryRunner
	forwarder RowForwarder
	clock     clock.Clock
	logger    *logging.Logger
	newID     func() string
}

func NewHandler(query string, queries QueryRunner, forwarder RowForwarder, clk clock.Clock, logger *logging.Logger) *Handler {
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = logging.NewDefaultLogger("run")
	}
	return &Handler{
		query:     query,
		queries:   queries,
		forwarder: forwarder,
		clock:     clk,
		logger:    logger,
		newID:     func() string { return uuid.NewString() },
	}
}

// Run executes one scheduled tick. It never panics and never returns an
// error; the outcome carries what happened.
func (h *Handler) Run(ctx context.Context) (outcome Outcome) {
	outcome = Outcome{
		RunID:     h.newID(),
		StartedAt: h.clock.Now(),
		Status:    StatusSucceeded,
	}
	h.logger.Info("Run %s executed at: %s", outcome.RunID, outcome.StartedAt.Format(time.RFC3339))

	defer func() {
		if r := recover(); r != nil {
			outcome.Err = errors.Internal(fmt.Sprintf("panic: %v", r)).
				WithContext("stack", string(debug.Stack()))
		}
		outcome.Duration = h.clock.Now().Sub(outcome.StartedAt)
		if outcome.Err != nil {
			outcome.Status = StatusFailed
			h.logger.Error("Run %s failed while processing Log Analytics data: %s", outcome.RunID, describe(outcome.Err))
		}
	}()

	outcome.Rows, outcome.Err = h.execute(ctx)
	return outcome
}

func (h *Handler) execute(ctx context.Context) (int, error) {
	result, err := h.queries.Do(ctx, h.query)
	if err != nil {
		return 0, err
	}

	rows := result.Rows()
	if len(rows) == 0 {
		h.logger.Info("Query returned no rows; nothing to forward.")
		return 0, nil
	}

	n, err := h.forwarder.Forward(ctx, rows)
	if err != nil {
		return n, err
	}
	h.logger.Info("Successfully processed %d rows from Log Analytics query.", n)
	return n, nil
}

// describe renders an error with its type and any attached context
func describe(err error) string {
	var fe *errors.ForwarderError
	if !stderrors.As(err, &fe) || len(fe.Context) == 0 {
		return err.Error()
	}
	return fmt.Sprintf("%v %v", err, fe.Context)
}
