package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV2"

	"forwarder/internal/clients/datadog"
)

// Datadog accepts at most 1000 entries per intake request
const datadogMaxBatch = 1000

// DatadogSinkConfig describes how events map onto intake items
type DatadogSinkConfig struct {
	Service  string
	Source   string
	Hostname string
	Tags     []string
	Grace    time.Duration
}

// DatadogSink buffers events as log items and submits them on Flush. The
// event name travels as an "event:<name>" tag, the Message property as the
// log message, and any other property as a "<key>:<value>" tag.
type DatadogSink struct {
	client datadog.DatadogInterface
	config DatadogSinkConfig

	mu      sync.Mutex
	pending []datadogV2.HTTPLogItem
}

func NewDatadogSink(client datadog.DatadogInterface, cfg DatadogSinkConfig) *DatadogSink {
	return &DatadogSink{client: client, config: cfg}
}

func (s *DatadogSink) Name() string {
	return "datadog"
}

func (s *DatadogSink) Track(event Event) {
	tags := make([]string, 0, len(s.config.Tags)+1+len(event.Properties))
	tags = append(tags, s.config.Tags...)
	tags = append(tags, "event:"+event.Name)
	for k, v := range event.Properties {
		if k == MessageProperty {
			continue
		}
		tags = append(tags, k+":"+v)
	}

	item := datadog.NewLogItem(event.Properties[MessageProperty],
		s.config.Service, s.config.Source, s.config.Hostname, tags)

	s.mu.Lock()
	s.pending = append(s.pending, item)
	s.mu.Unlock()
}

// Flush submits the buffered items in intake-sized batches. Items from a
// failed batch onwards are dropped; telemetry is never redelivered.
func (s *DatadogSink) Flush(ctx context.Context) error {
	s.mu.Lock()
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()

	if len(pending) == 0 {
		return nil
	}

	if s.config.Grace > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.Grace)
		defer cancel()
	}

	for start := 0; start < len(pending); start += datadogMaxBatch {
		end := start + datadogMaxBatch
		if end > len(pending) {
			end = len(pending)
		}
		if err := s.client.SubmitLogs(ctx, pending[start:end]); err != nil {
			return err
		}
	}
	return nil
}
