package di

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"

	"forwarder/internal/clients/datadog"
	"forwarder/internal/clients/loganalytics"
	"forwarder/internal/clock"
	"forwarder/internal/config"
	"forwarder/internal/logging"
	"forwarder/internal/runner"
	"forwarder/internal/telemetry"
)

// Container holds all application dependencies
type Container struct {
	config     *config.Config
	logger     *logging.Logger
	credential azcore.TokenCredential
	httpClient loganalytics.HTTPDoer
	sink       telemetry.Sink
	query      *loganalytics.Client
	retrier    *runner.Retrier
	handler    *runner.Handler
	mu         sync.RWMutex
}

// Option overrides a dependency before initialization
type Option func(*Container)

// WithCredential replaces the ambient Azure credential chain
func WithCredential(cred azcore.TokenCredential) Option {
	return func(c *Container) { c.credential = cred }
}

// WithHTTPClient replaces the HTTP client used for queries
func WithHTTPClient(doer loganalytics.HTTPDoer) Option {
	return func(c *Container) { c.httpClient = doer }
}

// WithSink replaces the configured telemetry sink
func WithSink(sink telemetry.Sink) Option {
	return func(c *Container) { c.sink = sink }
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *config.Config, logger *logging.Logger, opts ...Option) *Container {
	if logger == nil {
		logger = logging.NewDefaultLogger("")
	}
	c := &Container{config: cfg, logger: logger}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Initialize builds the query, retry, telemetry and run components
func (c *Container) Initialize() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.credential == nil {
		cred, err := loganalytics.NewDefaultCredential()
		if err != nil {
			return fmt.Errorf("failed to initialize credential: %w", err)
		}
		c.credential = cred
	}

	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: c.config.HTTPTimeout}
	}

	query, err := loganalytics.NewClient(loganalytics.ClientConfig{
		Endpoint:    c.config.Endpoint,
		WorkspaceID: c.config.WorkspaceID,
		Scope:       c.config.Scope(),
	}, c.credential, c.httpClient, c.logger.WithPrefix("loganalytics"))
	if err != nil {
		return fmt.Errorf("failed to initialize query client: %w", err)
	}
	c.query = query

	if c.sink == nil {
		sink, err := c.buildSink()
		if err != nil {
			return err
		}
		c.sink = sink
	}

	c.retrier = runner.NewRetrier(query, runner.RetryPolicy{
		MaxAttempts:  c.config.Retry.MaxAttempts,
		InitialDelay: c.config.Retry.InitialDelay,
		Multiplier:   c.config.Retry.Multiplier,
	}, clock.Real(), c.logger.WithPrefix("retry"))

	forwarder := telemetry.NewForwarder(c.sink, c.config.Telemetry.EventName, c.logger.WithPrefix("forwarder"))
	c.handler = runner.NewHandler(c.config.Query, c.retrier, forwarder, clock.Real(), c.logger.WithPrefix("run"))

	c.logger.Debug("Initialized forwarder for workspace %s with %s sink", c.config.WorkspaceID, c.sink.Name())
	return nil
}

func (c *Container) buildSink() (telemetry.Sink, error) {
	tc := c.config.Telemetry
	switch tc.Sink {
	case config.SinkAppInsights:
		return telemetry.NewAppInsightsSink(tc.AppInsights.InstrumentationKey, tc.AppInsights.EndpointURL,
			tc.FlushGrace, c.logger.WithPrefix("appinsights")), nil
	case config.SinkDatadog:
		client := datadog.NewDatadogClient(datadog.DatadogConfig{
			IntakeURL: tc.Datadog.IntakeURL,
			APIKey:    tc.Datadog.APIKey,
			Timeout:   int(c.config.HTTPTimeout.Seconds()),
		}, c.logger.WithPrefix("datadog"))
		return telemetry.NewDatadogSink(client, telemetry.DatadogSinkConfig{
			Service:  tc.Datadog.Service,
			Source:   tc.Datadog.Source,
			Hostname: tc.Datadog.Hostname,
			Tags:     tc.Datadog.Tags,
			Grace:    tc.FlushGrace,
		}), nil
	case config.SinkLog:
		return telemetry.NewLogSink(c.logger.WithPrefix("sink")), nil
	default:
		return nil, fmt.Errorf("unknown telemetry sink %q", tc.Sink)
	}
}

// Config returns the configuration the container was built from
func (c *Container) Config() *config.Config {
	return c.config
}

// QueryClient returns the Log Analytics query client
func (c *Container) QueryClient() *loganalytics.Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.query
}

// Sink returns the telemetry sink
func (c *Container) Sink() telemetry.Sink {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sink
}

// Handler returns the scheduled run handler
func (c *Container) Handler() *runner.Handler {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.handler
}
