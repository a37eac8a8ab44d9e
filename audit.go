package authkit

import (
	"io"

	"github.com/bezrook/authkit/internal/audit"
)

// AuditEvent is the structured record handed to audit sinks.
type AuditEvent = audit.Event

// AuditSink receives emitted audit events. Implementations must be safe
// for concurrent use; the dispatcher calls Emit from its own goroutine.
type AuditSink = audit.Sink

// NoOpSink drops audit events.
type NoOpSink = audit.NoOpSink

// ChannelSink buffers audit events in a channel for test and pipeline
// consumers.
type ChannelSink = audit.ChannelSink

// JSONWriterSink writes one JSON object per line to an io.Writer.
type JSONWriterSink = audit.JSONWriterSink

// NewChannelSink returns a ChannelSink with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return audit.NewChannelSink(buffer)
}

// NewJSONWriterSink returns a sink writing newline-delimited JSON to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return audit.NewJSONWriterSink(w)
}
