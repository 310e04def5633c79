package trace

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// OTelSink bridges recorder spans onto an OpenTelemetry tracer so runs show
// up in whatever backend the global provider exports to. Parent links are
// preserved by keeping the otel context of every open span.
type OTelSink struct {
	tracer oteltrace.Tracer
	open   map[string]otelEntry
}

type otelEntry struct {
	ctx  context.Context
	span oteltrace.Span
}

var _ Sink = (*OTelSink)(nil)

// NewOTelSink wraps the given tracer. The tracer may come from the global
// provider or from a test provider.
func NewOTelSink(tracer oteltrace.Tracer) *OTelSink {
	return &OTelSink{
		tracer: tracer,
		open:   make(map[string]otelEntry),
	}
}

func (s *OTelSink) OnStart(span *Span) error {
	ctx := context.Background()
	if parent, ok := s.open[span.ParentID]; ok {
		ctx = parent.ctx
	}
	ctx, otelSpan := s.tracer.Start(ctx, span.Name)
	s.open[span.ID] = otelEntry{ctx: ctx, span: otelSpan}
	return nil
}

func (s *OTelSink) OnAttribute(span *Span, key string, value any) error {
	entry, ok := s.open[span.ID]
	if !ok {
		return fmt.Errorf("unknown span %s", span.ID)
	}
	entry.span.SetAttributes(attrKV(key, value))
	return nil
}

func (s *OTelSink) OnEvent(span *Span, event Event) error {
	entry, ok := s.open[span.ID]
	if !ok {
		return fmt.Errorf("unknown span %s", span.ID)
	}
	attrs := make([]attribute.KeyValue, 0, len(event.Payload))
	for k, v := range event.Payload {
		attrs = append(attrs, attrKV(k, v))
	}
	entry.span.AddEvent(event.Name, oteltrace.WithAttributes(attrs...))
	return nil
}

func (s *OTelSink) OnEnd(span *Span) error {
	entry, ok := s.open[span.ID]
	if !ok {
		return fmt.Errorf("unknown span %s", span.ID)
	}
	delete(s.open, span.ID)
	switch span.Status {
	case StatusError:
		entry.span.SetStatus(codes.Error, span.StatusDescription)
	default:
		entry.span.SetStatus(codes.Ok, "")
	}
	entry.span.End()
	return nil
}

// Close ends any spans still open, which only happens if the recorder is
// shut down mid-run. Provider shutdown is owned by the telemetry package.
func (s *OTelSink) Close(ctx context.Context) error {
	for id, entry := range s.open {
		entry.span.SetStatus(codes.Error, "sink closed before span end")
		entry.span.End()
		delete(s.open, id)
	}
	return nil
}

func attrKV(key string, value any) attribute.KeyValue {
	switch v := value.(type) {
	case string:
		return attribute.String(key, v)
	case bool:
		return attribute.Bool(key, v)
	case int:
		return attribute.Int(key, v)
	case int64:
		return attribute.Int64(key, v)
	case float64:
		return attribute.Float64(key, v)
	default:
		return attribute.String(key, fmt.Sprintf("%v", v))
	}
}
