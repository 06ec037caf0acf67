package datadog

import (
	"context"

	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV2"
)

// DatadogConfig holds the log intake settings
type DatadogConfig struct {
	IntakeURL string
	APIKey    string
	Timeout   int
}

// DatadogInterface submits log items to the Datadog intake
type DatadogInterface interface {
	SubmitLogs(ctx context.Context, body []datadogV2.HTTPLogItem) error
}
