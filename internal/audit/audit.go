package audit

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Event is the canonical audit event model used by internal dispatching and root APIs.
//
// Raw token values never appear in an Event; TokenFP holds a short fingerprint.
type Event struct {
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	EventType string            `json:"event_type"`
	TokenFP   string            `json:"token_fp,omitempty"`
	IP        string            `json:"ip,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// NewEventID returns a random event identifier.
func NewEventID() string {
	return uuid.NewString()
}

// Sink receives emitted audit events.
type Sink interface {
	Emit(ctx context.Context, event Event)
}

// NoOpSink drops audit events.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, Event) {}

// ChannelSink writes audit events into a buffered channel.
type ChannelSink struct {
	events chan Event
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{
		events: make(chan Event, buffer),
	}
}

func (s *ChannelSink) Emit(ctx context.Context, event Event) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Events() <-chan Event {
	return s.events
}

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{
		writer: w,
	}
}

func (s *JSONWriterSink) Emit(ctx context.Context, event Event) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = s.writer.Write(data)
}

// LoggerSink writes each event as a structured log line.
type LoggerSink struct {
	logger zerolog.Logger
}

func NewLoggerSink(logger zerolog.Logger) *LoggerSink {
	return &LoggerSink{logger: logger.With().Str("component", "audit").Logger()}
}

func (s *LoggerSink) Emit(_ context.Context, event Event) {
	level := zerolog.InfoLevel
	if !event.Success {
		level = zerolog.WarnLevel
	}

	e := s.logger.WithLevel(level).
		Str("event_id", event.ID).
		Str("event_type", event.EventType).
		Time("event_time", event.Timestamp).
		Bool("success", event.Success)
	if event.TokenFP != "" {
		e = e.Str("token_fp", event.TokenFP)
	}
	if event.IP != "" {
		e = e.Str("ip", event.IP)
	}
	if event.RequestID != "" {
		e = e.Str("request_id", event.RequestID)
	}
	if event.Error != "" {
		e = e.Str("error", event.Error)
	}
	for k, v := range event.Metadata {
		e = e.Str("meta_"+k, v)
	}
	e.Msg("audit")
}
