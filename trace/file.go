package trace

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// FileSink appends each closed span as one JSON line, children before
// parents (spans close inside-out), so the run span is the last line of
// its trace.
type FileSink struct {
	f   *os.File
	enc *json.Encoder
}

var _ Sink = (*FileSink)(nil)

// NewFileSink opens (or creates) the trace file in append mode.
func NewFileSink(path string) (*FileSink, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open trace file: %w", err)
	}
	return &FileSink{f: f, enc: json.NewEncoder(f)}, nil
}

func (s *FileSink) OnStart(span *Span) error                        { return nil }
func (s *FileSink) OnAttribute(span *Span, key string, v any) error { return nil }
func (s *FileSink) OnEvent(span *Span, event Event) error           { return nil }

func (s *FileSink) OnEnd(span *Span) error {
	return s.enc.Encode(span)
}

func (s *FileSink) Close(ctx context.Context) error {
	if err := s.f.Sync(); err != nil {
		return err
	}
	return s.f.Close()
}
