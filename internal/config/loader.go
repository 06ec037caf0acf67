package config

import (
	"bytes"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"forwarder/internal/errors"
)

// Environment variables that override values from the config file
const (
	EnvWorkspaceID        = "LOG_ANALYTICS_WORKSPACE_ID"
	EnvEndpoint           = "LOG_ANALYTICS_ENDPOINT"
	EnvQuery              = "LOG_ANALYTICS_QUERY"
	EnvSchedule           = "FORWARDER_SCHEDULE"
	EnvRunOnStartup       = "FORWARDER_RUN_ON_STARTUP"
	EnvLogLevel           = "FORWARDER_LOG_LEVEL"
	EnvSink               = "FORWARDER_SINK"
	EnvFlushGrace         = "FORWARDER_FLUSH_GRACE"
	EnvInstrumentationKey = "APPINSIGHTS_INSTRUMENTATIONKEY"
	EnvDatadogAPIKey      = "DD_API_KEY"
	EnvDatadogIntakeURL   = "DD_LOGS_INTAKE_URL"
)

// LookupFunc resolves an environment variable
type LookupFunc func(key string) (string, bool)

// Loader reads configuration from a YAML file, a .env file and the process environment
type Loader struct {
	DotEnvPath string
	Lookup     LookupFunc
}

// NewLoader creates a loader backed by the process environment
func NewLoader() *Loader {
	return &Loader{
		DotEnvPath: ".env",
		Lookup:     os.LookupEnv,
	}
}

// Load reads the YAML file at path (optional when empty), applies
// environment overrides and defaults. It does not validate.
func (l *Loader) Load(path string) (*Config, error) {
	if l.DotEnvPath != "" {
		if err := godotenv.Load(l.DotEnvPath); err != nil && !os.IsNotExist(err) {
			return nil, errors.Wrap(err, errors.ErrorTypeConfiguration,
				"failed to load "+l.DotEnvPath)
		}
	}

	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfiguration,
				"failed to read config file").WithContext("path", path)
		}
		if err := decode(data, cfg); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfiguration,
				"failed to parse config YAML").WithContext("path", path)
		}
	}

	if err := l.applyEnv(cfg); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return err
	}
	return nil
}

func (l *Loader) applyEnv(cfg *Config) error {
	lookup := l.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}

	setString := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}

	setString(EnvWorkspaceID, &cfg.WorkspaceID)
	setString(EnvEndpoint, &cfg.Endpoint)
	setString(EnvQuery, &cfg.Query)
	setString(EnvSchedule, &cfg.Schedule)
	setString(EnvLogLevel, &cfg.LogLevel)
	setString(EnvSink, &cfg.Telemetry.Sink)
	setString(EnvInstrumentationKey, &cfg.Telemetry.AppInsights.InstrumentationKey)
	setString(EnvDatadogAPIKey, &cfg.Telemetry.Datadog.APIKey)
	setString(EnvDatadogIntakeURL, &cfg.Telemetry.Datadog.IntakeURL)

	if v, ok := lookup(EnvRunOnStartup); ok && v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeConfiguration, "invalid "+EnvRunOnStartup)
		}
		cfg.RunOnStartup = parsed
	}
	if v, ok := lookup(EnvFlushGrace); ok && v != "" {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeConfiguration, "invalid "+EnvFlushGrace)
		}
		cfg.Telemetry.FlushGrace = parsed
	}
	return nil
}

// Save writes cfg as YAML to path with owner-only permissions
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "failed to encode config")
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfiguration,
			"failed to write config file").WithContext("path", path)
	}
	return nil
}
