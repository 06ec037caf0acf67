package runner

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	"forwarder/internal/config"
	"forwarder/internal/errors"
	"forwarder/internal/logging"
)

// Runnable is one scheduled unit of work
type Runnable interface {
	Run(ctx context.Context) Outcome
}

// Scheduler fires a Runnable on a cron schedule. A tick that arrives
// while the previous run is still in flight is skipped.
type Scheduler struct {
	cron         *cron.Cron
	handler      Runnable
	runOnStartup bool
	logger       *logging.Logger

	mu   sync.Mutex
	last *Outcome
	runs int
}

// NewScheduler parses spec (six-field cron with seconds, five-field cron,
// or a descriptor such as "@every 5m") and prepares the schedule.
func NewScheduler(spec string, handler Runnable, runOnStartup bool, logger *logging.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = logging.NewDefaultLogger("scheduler")
	}
	cronLogger := cron.PrintfLogger(logger)

	s := &Scheduler{
		handler:      handler,
		runOnStartup: runOnStartup,
		logger:       logger,
	}
	s.cron = cron.New(
		cron.WithParser(config.ScheduleParser),
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger), cron.Recover(cronLogger)),
	)
	if _, err := s.cron.AddFunc(spec, s.tick); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfiguration, "invalid schedule").
			WithContext("schedule", spec)
	}
	return s, nil
}

// Run starts the schedule and blocks until ctx is done. On return any
// in-flight run has completed; runs are never cut short.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.runOnStartup {
		s.tick()
	}

	s.cron.Start()
	for _, entry := range s.cron.Entries() {
		s.logger.Info("Next run scheduled at %s", entry.Next.Format("2006-01-02 15:04:05"))
	}

	<-ctx.Done()
	s.logger.Info("Stopping scheduler; waiting for in-flight run to finish")
	<-s.cron.Stop().Done()
	return nil
}

// tick runs the handler on a fresh context, detached from the scheduler's
// lifetime, so shutdown never cancels a run mid-flight. A panic escaping
// the handler is recorded as a failed outcome and never leaves tick.
func (s *Scheduler) tick() {
	var outcome Outcome
	func() {
		defer func() {
			if r := recover(); r != nil {
				outcome = Outcome{
					Status: StatusFailed,
					Err:    errors.Internal(fmt.Sprintf("panic: %v", r)),
				}
				s.logger.Error("Scheduled run panicked: %v", r)
			}
		}()
		outcome = s.handler.Run(context.Background())
	}()

	s.mu.Lock()
	s.last = &outcome
	s.runs++
	s.mu.Unlock()
}

// LastOutcome returns the most recent run's outcome, if any
func (s *Scheduler) LastOutcome() (Outcome, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return Outcome{}, false
	}
	return *s.last, true
}

// Runs returns how many ticks have completed
func (s *Scheduler) Runs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs
}
