package trace

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Sink receives span lifecycle callbacks. Implementations must tolerate
// being called from a single goroutine in span order: OnStart before any
// OnAttribute/OnEvent for that span, OnEnd last.
type Sink interface {
	OnStart(span *Span) error
	OnAttribute(span *Span, key string, value any) error
	OnEvent(span *Span, event Event) error
	OnEnd(span *Span) error
	// Close flushes and releases the sink's resources.
	Close(ctx context.Context) error
}

// Recorder creates spans and fans their lifecycle out to sinks. A Recorder
// with no sinks is a valid no-op recorder.
type Recorder struct {
	sinks  []Sink
	logger *zap.Logger
}

// NewRecorder creates a recorder over the given sinks.
func NewRecorder(logger *zap.Logger, sinks ...Sink) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{
		sinks:  sinks,
		logger: logger.With(zap.String("component", "trace_recorder")),
	}
}

// StartSpan opens a new span. A nil parent starts a root span.
func (r *Recorder) StartSpan(name string, parent *Span) *Span {
	s := newSpan(r, name, parent)
	for _, sink := range r.sinks {
		if err := sink.OnStart(s); err != nil {
			r.warnSink("start", s, err)
		}
	}
	return s
}

func (r *Recorder) onAttribute(s *Span, key string, value any) {
	for _, sink := range r.sinks {
		if err := sink.OnAttribute(s, key, value); err != nil {
			r.warnSink("attribute", s, err)
		}
	}
}

func (r *Recorder) onEvent(s *Span, ev Event) {
	for _, sink := range r.sinks {
		if err := sink.OnEvent(s, ev); err != nil {
			r.warnSink("event", s, err)
		}
	}
}

func (r *Recorder) onEnd(s *Span) {
	for _, sink := range r.sinks {
		if err := sink.OnEnd(s); err != nil {
			r.warnSink("end", s, err)
		}
	}
}

// warnSink logs a sink failure. Sink errors are never propagated to the
// run loop: a broken trace backend must not break the conversation.
func (r *Recorder) warnSink(op string, s *Span, err error) {
	r.logger.Warn("trace sink write failed",
		zap.String("op", op),
		zap.String("span", s.Name),
		zap.String("span_id", s.ID),
		zap.Error(err),
	)
}

// Close flushes and closes all sinks concurrently.
func (r *Recorder) Close(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, sink := range r.sinks {
		sink := sink
		g.Go(func() error {
			return sink.Close(ctx)
		})
	}
	return g.Wait()
}
