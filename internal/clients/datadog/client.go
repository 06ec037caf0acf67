package datadog

import (
	"context"
	"net/http"
	"strings"
	"time"

	datadogapi "github.com/DataDog/datadog-api-client-go/v2/api/datadog"
	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV2"

	"forwarder/internal/errors"
	"forwarder/internal/logging"
)

type DatadogClient struct {
	config  DatadogConfig
	logsAPI *datadogV2.LogsApi
	apiKeys map[string]datadogapi.APIKey
	logger  *logging.Logger
}

func NewDatadogClient(cfg DatadogConfig, logger *logging.Logger) *DatadogClient {
	if logger == nil {
		logger = logging.NewDefaultLogger("datadog")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30
	}

	httpClient := &http.Client{Timeout: time.Duration(cfg.Timeout) * time.Second}
	apiCfg := datadogapi.NewConfiguration()
	apiCfg.HTTPClient = httpClient
	apiCfg.Servers = datadogapi.ServerConfigurations{{URL: cfg.IntakeURL}}
	apiCfg.OperationServers = map[string]datadogapi.ServerConfigurations{
		"v2.LogsApi.SubmitLog": {{URL: cfg.IntakeURL}},
	}

	apiClient := datadogapi.NewAPIClient(apiCfg)

	return &DatadogClient{
		config:  cfg,
		logsAPI: datadogV2.NewLogsApi(apiClient),
		apiKeys: map[string]datadogapi.APIKey{
			"apiKeyAuth": {Key: cfg.APIKey},
		},
		logger: logger,
	}
}

// SubmitLogs sends one batch to the log intake
func (c *DatadogClient) SubmitLogs(ctx context.Context, body []datadogV2.HTTPLogItem) error {
	if len(body) == 0 {
		return nil
	}

	authCtx := datadogapi.NewDefaultContext(ctx)
	authCtx = context.WithValue(authCtx, datadogapi.ContextAPIKeys, c.apiKeys)

	_, httpResp, err := c.logsAPI.SubmitLog(authCtx, body)
	if httpResp != nil && httpResp.Body != nil {
		defer func() { _ = httpResp.Body.Close() }()
	}
	if err != nil {
		wrapped := errors.Telemetry("datadog", err)
		if httpResp != nil {
			wrapped.WithContext("status_code", httpResp.StatusCode)
		}
		return wrapped
	}

	c.logger.Debug("Submitted %d log items to %s", len(body), c.config.IntakeURL)
	return nil
}

// NewLogItem builds an intake item for one telemetry event
func NewLogItem(message, service, source, hostname string, tags []string) datadogV2.HTTPLogItem {
	item := datadogV2.NewHTTPLogItem(message)
	if service != "" {
		item.SetService(service)
	}
	if source != "" {
		item.SetDdsource(source)
	}
	if hostname != "" {
		item.SetHostname(hostname)
	}
	if len(tags) > 0 {
		item.SetDdtags(strings.Join(tags, ","))
	}
	return *item
}

