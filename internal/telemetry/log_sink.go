package telemetry

import (
	"context"
	"sort"
	"strings"
	"sync"

	"forwarder/internal/logging"
)

// LogSink writes events to the logger instead of a backend. Used for dry
// runs and local development.
type LogSink struct {
	logger *logging.Logger

	mu      sync.Mutex
	tracked int
}

func NewLogSink(logger *logging.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Name() string {
	return "log"
}

func (s *LogSink) Track(event Event) {
	keys := make([]string, 0, len(event.Properties))
	for k := range event.Properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+event.Properties[k])
	}

	s.mu.Lock()
	s.tracked++
	s.mu.Unlock()
	s.logger.Info("event %s %s", event.Name, strings.Join(parts, " "))
}

func (s *LogSink) Flush(ctx context.Context) error {
	s.mu.Lock()
	n := s.tracked
	s.tracked = 0
	s.mu.Unlock()

	s.logger.Debug("flushed %d events", n)
	return nil
}
