package trace

import (
	"context"

	"go.uber.org/zap"
)

// ConsoleSink logs span lifecycle through zap. Attributes are logged on
// close only, so a span produces at most start/events/end lines.
type ConsoleSink struct {
	logger *zap.Logger
}

var _ Sink = (*ConsoleSink)(nil)

// NewConsoleSink creates a console sink.
func NewConsoleSink(logger *zap.Logger) *ConsoleSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConsoleSink{logger: logger.With(zap.String("component", "trace_console"))}
}

func (s *ConsoleSink) OnStart(span *Span) error {
	s.logger.Info("span started",
		zap.String("span", span.Name),
		zap.String("span_id", span.ID),
		zap.String("parent_id", span.ParentID),
	)
	return nil
}

func (s *ConsoleSink) OnAttribute(span *Span, key string, value any) error {
	return nil
}

func (s *ConsoleSink) OnEvent(span *Span, event Event) error {
	s.logger.Debug("span event",
		zap.String("span", span.Name),
		zap.String("span_id", span.ID),
		zap.String("event", event.Name),
		zap.Any("payload", event.Payload),
	)
	return nil
}

func (s *ConsoleSink) OnEnd(span *Span) error {
	fields := []zap.Field{
		zap.String("span", span.Name),
		zap.String("span_id", span.ID),
		zap.String("status", string(span.Status)),
		zap.Duration("duration", span.EndedAt.Sub(span.StartedAt)),
		zap.Any("attributes", span.Attributes),
	}
	if span.Status == StatusError {
		fields = append(fields, zap.String("error", span.StatusDescription))
		s.logger.Warn("span ended", fields...)
		return nil
	}
	s.logger.Info("span ended", fields...)
	return nil
}

func (s *ConsoleSink) Close(ctx context.Context) error { return nil }
