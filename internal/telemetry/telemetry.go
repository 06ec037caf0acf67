// Package telemetry turns query rows into named events and ships them to a
// monitoring backend.
package telemetry

import (
	"context"
)

// MessageProperty is the single property carried by forwarded row events
const MessageProperty = "Message"

// Event is a named telemetry record with string properties. Events are
// created, emitted and discarded; nothing here persists them.
type Event struct {
	Name       string
	Properties map[string]string
}

// Sink accepts events and ships them to a backend.
//
// Track may buffer. Flush blocks until buffered events have left the
// process or ctx is done, whichever comes first.
type Sink interface {
	Track(event Event)
	Flush(ctx context.Context) error
	Name() string
}
