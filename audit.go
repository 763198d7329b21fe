package sessiongate

import (
	"io"

	internalaudit "github.com/MrEthical07/sessiongate/internal/audit"
	"github.com/rs/zerolog"
)

// AuditEvent is a structured audit record emitted by the engine.
// It never contains a raw token; TokenFP is a short fingerprint.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the engine's audit dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that silently discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an [AuditSink] that writes JSON-encoded events to an
// [io.Writer], one per line.
type JSONWriterSink = internalaudit.JSONWriterSink

// LoggerSink is an [AuditSink] that writes events through zerolog.
type LoggerSink = internalaudit.LoggerSink

func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

func NewLoggerSink(logger zerolog.Logger) *LoggerSink {
	return internalaudit.NewLoggerSink(logger)
}
