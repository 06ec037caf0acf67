package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"forwarder/internal/logging"
)

// RowSeparator joins the values of one row into an event message
const RowSeparator = " | "

// Forwarder emits one event per query row and flushes the sink before
// returning, so a host that suspends the process right after a run does
// not lose buffered events.
type Forwarder struct {
	sink      Sink
	eventName string
	logger    *logging.Logger
}

func NewForwarder(sink Sink, eventName string, logger *logging.Logger) *Forwarder {
	if logger == nil {
		logger = logging.NewDefaultLogger("forwarder")
	}
	return &Forwarder{
		sink:      sink,
		eventName: eventName,
		logger:    logger,
	}
}

// Forward emits rows and returns how many events were tracked. With no
// rows nothing is tracked and the sink is not flushed.
func (f *Forwarder) Forward(ctx context.Context, rows [][]any) (int, error) {
	if len(rows) == 0 {
		f.logger.Debug("no rows to forward")
		return 0, nil
	}

	for _, row := range rows {
		f.sink.Track(Event{
			Name:       f.eventName,
			Properties: map[string]string{MessageProperty: JoinRow(row)},
		})
	}

	if err := f.sink.Flush(ctx); err != nil {
		return len(rows), err
	}
	f.logger.Debug("flushed %d events to %s", len(rows), f.sink.Name())
	return len(rows), nil
}

// JoinRow renders a row's values in column order, separated by RowSeparator
func JoinRow(row []any) string {
	parts := make([]string, len(row))
	for i, v := range row {
		parts[i] = FormatValue(v)
	}
	return strings.Join(parts, RowSeparator)
}

// FormatValue renders one scalar in its natural textual form. Null is the
// empty string; nested arrays and objects render as compact JSON.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		if val {
			return "true"
		}
		return "false"
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case []any, map[string]any:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(data)
	default:
		return fmt.Sprint(val)
	}
}
