package reconcile

import (
	"context"

	"go.uber.org/zap"
)

// EventSink receives reconciliation events. Sinks are called from a single
// goroutine and must not block for long.
type EventSink interface {
	Record(ctx context.Context, ev Event)
}

// SinkFunc adapts a function to EventSink.
type SinkFunc func(ctx context.Context, ev Event)

// Record calls f.
func (f SinkFunc) Record(ctx context.Context, ev Event) {
	f(ctx, ev)
}

// MultiSink fans events out to several sinks in order. Nil sinks are skipped.
type MultiSink []EventSink

// Record forwards ev to every sink.
func (m MultiSink) Record(ctx context.Context, ev Event) {
	for _, s := range m {
		if s != nil {
			s.Record(ctx, ev)
		}
	}
}

// LogSink writes events to a zap logger.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a sink logging through l.
func NewLogSink(l *zap.Logger) *LogSink {
	return &LogSink{logger: l}
}

var eventMessages = map[EventKind]string{
	EventMalformed:       "Malformed chunk",
	EventRepaired:        "Malformed chunk replaced with backup chunk",
	EventRestored:        "Missing chunk replaced with backup chunk",
	EventDamagedInBackup: "Malformed chunk in backup",
	EventUnrecoverable:   "Malformed chunk not found in any backup",
	EventDeleted:         "Damaged chunk deleted",
}

// Record logs ev at a level matching its severity.
func (s *LogSink) Record(_ context.Context, ev Event) {
	msg, ok := eventMessages[ev.Kind]
	if !ok {
		msg = string(ev.Kind)
	}

	fields := []zap.Field{
		zap.Int("x", ev.Box.Origin.X),
		zap.Int("y", ev.Box.Origin.Y),
		zap.Int("z", ev.Box.Origin.Z),
		zap.String("source", ev.Source),
	}
	if ev.Reason != nil {
		fields = append(fields, zap.NamedError("reason", ev.Reason))
	}

	switch ev.Kind {
	case EventMalformed, EventDamagedInBackup:
		s.logger.Warn(msg, fields...)
	case EventUnrecoverable, EventDeleted:
		s.logger.Error(msg, fields...)
	default:
		s.logger.Info(msg, fields...)
	}
}
