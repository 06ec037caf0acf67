package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/microsoft/ApplicationInsights-Go/appinsights"

	"forwarder/internal/errors"
	"forwarder/internal/logging"
)

// AppInsightsSink sends events to Application Insights.
//
// The SDK channel only guarantees delivery on Close, so the sink opens a
// client on the first Track after a flush and closes it on Flush. Each run
// therefore gets its own channel.
type AppInsightsSink struct {
	config *appinsights.TelemetryConfiguration
	grace  time.Duration
	logger *logging.Logger

	mu     sync.Mutex
	client appinsights.TelemetryClient
}

// NewAppInsightsSink creates a sink for the given instrumentation key.
// endpointURL overrides the ingestion endpoint when non-empty.
func NewAppInsightsSink(instrumentationKey, endpointURL string, grace time.Duration, logger *logging.Logger) *AppInsightsSink {
	cfg := appinsights.NewTelemetryConfiguration(instrumentationKey)
	if endpointURL != "" {
		cfg.EndpointUrl = endpointURL
	}
	if logger == nil {
		logger = logging.NewDefaultLogger("appinsights")
	}
	return &AppInsightsSink{
		config: cfg,
		grace:  grace,
		logger: logger,
	}
}

func (s *AppInsightsSink) Name() string {
	return "appinsights"
}

func (s *AppInsightsSink) Track(event Event) {
	telemetry := appinsights.NewEventTelemetry(event.Name)
	for k, v := range event.Properties {
		telemetry.Properties[k] = v
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil {
		s.client = appinsights.NewTelemetryClientFromConfig(s.config)
	}
	s.client.Track(telemetry)
}

// Flush closes the current channel and waits for it to drain, bounded by
// the grace period and ctx.
func (s *AppInsightsSink) Flush(ctx context.Context) error {
	s.mu.Lock()
	client := s.client
	s.client = nil
	s.mu.Unlock()

	if client == nil {
		return nil
	}

	done := client.Channel().Close(s.grace)
	timer := time.NewTimer(s.grace)
	defer timer.Stop()

	select {
	case <-done:
		return nil
	case <-timer.C:
		return errors.Telemetry(s.Name(), context.DeadlineExceeded).
			WithContext("grace", s.grace.String())
	case <-ctx.Done():
		return errors.Telemetry(s.Name(), ctx.Err())
	}
}
