package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"forwarder/internal/errors"
	"forwarder/internal/logging"
)

// Sink names accepted in telemetry.sink
const (
	SinkAppInsights = "appinsights"
	SinkDatadog     = "datadog"
	SinkLog         = "log"
)

const (
	DefaultEndpoint     = "https://api.loganalytics.io"
	DefaultSchedule     = "0 */5 * * * *"
	DefaultEventName    = "LogAnalyticsEvent"
	DefaultDatadogURL   = "https://http-intake.logs.datadoghq.com"
	DefaultDatadogSrc   = "loganalytics"
	DefaultDatadogSvc   = "loganalytics-forwarder"
	defaultHTTPTimeout  = 30 * time.Second
	defaultFlushGrace   = 5 * time.Second
	defaultInitialDelay = 2 * time.Second
	defaultMaxAttempts  = 3
	defaultMultiplier   = 2
)

// ScheduleParser accepts six-field cron expressions (leading seconds),
// classic five-field expressions and descriptors such as @every 5m.
var ScheduleParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Config is the full forwarder configuration, read once at startup
type Config struct {
	WorkspaceID  string          `yaml:"workspace_id"`
	Endpoint     string          `yaml:"endpoint"`
	Query        string          `yaml:"query"`
	Schedule     string          `yaml:"schedule"`
	RunOnStartup bool            `yaml:"run_on_startup"`
	HTTPTimeout  time.Duration   `yaml:"http_timeout"`
	LogLevel     string          `yaml:"log_level"`
	Retry        RetryConfig     `yaml:"retry"`
	Telemetry    TelemetryConfig `yaml:"telemetry"`
}

// RetryConfig controls the query retry policy
type RetryConfig struct {
	MaxAttempts  int           `yaml:"max_attempts"`
	InitialDelay time.Duration `yaml:"initial_delay"`
	Multiplier   int           `yaml:"multiplier"`
}

// TelemetryConfig selects and configures the event sink
type TelemetryConfig struct {
	Sink        string            `yaml:"sink"`
	EventName   string            `yaml:"event_name"`
	FlushGrace  time.Duration     `yaml:"flush_grace"`
	AppInsights AppInsightsConfig `yaml:"appinsights"`
	Datadog     DatadogConfig     `yaml:"datadog"`
}

// AppInsightsConfig configures the Application Insights sink
type AppInsightsConfig struct {
	InstrumentationKey string `yaml:"instrumentation_key"`
	EndpointURL        string `yaml:"endpoint_url"`
}

// DatadogConfig configures the Datadog log intake sink
type DatadogConfig struct {
	APIKey    string   `yaml:"api_key"`
	IntakeURL string   `yaml:"intake_url"`
	Service   string   `yaml:"service"`
	Source    string   `yaml:"source"`
	Hostname  string   `yaml:"hostname"`
	Tags      []string `yaml:"tags,omitempty"`
}

// Default returns a configuration with every optional field populated
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills zero-valued optional fields
func (c *Config) ApplyDefaults() {
	if c.Endpoint == "" {
		c.Endpoint = DefaultEndpoint
	}
	c.Endpoint = strings.TrimRight(c.Endpoint, "/")
	if c.Schedule == "" {
		c.Schedule = DefaultSchedule
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = defaultHTTPTimeout
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = defaultMaxAttempts
	}
	if c.Retry.InitialDelay <= 0 {
		c.Retry.InitialDelay = defaultInitialDelay
	}
	if c.Retry.Multiplier <= 0 {
		c.Retry.Multiplier = defaultMultiplier
	}
	if c.Telemetry.Sink == "" {
		c.Telemetry.Sink = SinkAppInsights
	}
	c.Telemetry.Sink = strings.ToLower(c.Telemetry.Sink)
	if c.Telemetry.EventName == "" {
		c.Telemetry.EventName = DefaultEventName
	}
	if c.Telemetry.FlushGrace <= 0 {
		c.Telemetry.FlushGrace = defaultFlushGrace
	}
	if c.Telemetry.Datadog.IntakeURL == "" {
		c.Telemetry.Datadog.IntakeURL = DefaultDatadogURL
	}
	if c.Telemetry.Datadog.Service == "" {
		c.Telemetry.Datadog.Service = DefaultDatadogSvc
	}
	if c.Telemetry.Datadog.Source == "" {
		c.Telemetry.Datadog.Source = DefaultDatadogSrc
	}
}

// Scope returns the token audience for the configured endpoint
func (c *Config) Scope() string {
	return c.Endpoint + "/.default"
}

// Validate checks that the configuration can drive a run
func (c *Config) Validate() error {
	if strings.TrimSpace(c.WorkspaceID) == "" {
		return errors.Configuration("workspace_id is required")
	}
	if strings.TrimSpace(c.Query) == "" {
		return errors.Configuration("query is required")
	}
	if _, err := ScheduleParser.Parse(c.Schedule); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfiguration,
			fmt.Sprintf("invalid schedule %q", c.Schedule))
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfiguration, "invalid log_level")
	}

	switch c.Telemetry.Sink {
	case SinkAppInsights:
		if c.Telemetry.AppInsights.InstrumentationKey == "" {
			return errors.Configuration("telemetry.appinsights.instrumentation_key is required for the appinsights sink")
		}
	case SinkDatadog:
		if c.Telemetry.Datadog.APIKey == "" {
			return errors.Configuration("telemetry.datadog.api_key is required for the datadog sink")
		}
	case SinkLog:
	default:
		return errors.Configuration(fmt.Sprintf("unknown telemetry sink %q", c.Telemetry.Sink))
	}
	return nil
}

// Masked returns a copy with secrets replaced, for display
func (c *Config) Masked() *Config {
	out := *c
	out.Telemetry.AppInsights.InstrumentationKey = mask(c.Telemetry.AppInsights.InstrumentationKey)
	out.Telemetry.Datadog.APIKey = mask(c.Telemetry.Datadog.APIKey)
	out.Telemetry.Datadog.Tags = append([]string(nil), c.Telemetry.Datadog.Tags...)
	return &out
}

func mask(secret string) string {
	if len(secret) <= 4 {
		if secret == "" {
			return ""
		}
		return "****"
	}
	return "****" + secret[len(secret)-4:]
}
