// Package trace records hierarchical spans for chat runs: one root span per
// run, one child span per attempted turn. Spans carry attributes, timestamped
// events, and a terminal ok/error status, and are forwarded to pluggable
// sinks (console, JSONL file, SQLite, OpenTelemetry). Sink failures never
// propagate; tracing is best-effort by design of the run loop.
package trace

import (
	"time"

	"github.com/google/uuid"
)

// Status is the terminal state of a span.
type Status string

const (
	StatusUnset Status = "unset"
	StatusOK    Status = "ok"
	StatusError Status = "error"
)

// Event is a timestamped annotation on a span.
type Event struct {
	Name      string         `json:"name"`
	Payload   map[string]any `json:"payload,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Span is one traced unit of work. A span is created by Recorder.StartSpan,
// mutated through SetAttribute/AddEvent, and closed exactly once through
// End, EndOK, EndError, or Abandon. All spans of a run belong to a single
// goroutine; no locking is needed.
type Span struct {
	ID                string         `json:"id"`
	ParentID          string         `json:"parent_id,omitempty"`
	Name              string         `json:"name"`
	StartedAt         time.Time      `json:"started_at"`
	EndedAt           time.Time      `json:"ended_at,omitempty"`
	Attributes        map[string]any `json:"attributes,omitempty"`
	Events            []Event        `json:"events,omitempty"`
	Status            Status         `json:"status"`
	StatusDescription string         `json:"status_description,omitempty"`

	rec      *Recorder
	children []*Span
	ended    bool
}

// Ended reports whether the span has been closed.
func (s *Span) Ended() bool { return s.ended }

// SetAttribute records a key-value attribute. Ignored after the span ends.
func (s *Span) SetAttribute(key string, value any) {
	if s.ended {
		return
	}
	if s.Attributes == nil {
		s.Attributes = make(map[string]any)
	}
	s.Attributes[key] = value
	s.rec.onAttribute(s, key, value)
}

// AddEvent records a timestamped event. Ignored after the span ends.
func (s *Span) AddEvent(name string, payload map[string]any) {
	if s.ended {
		return
	}
	ev := Event{Name: name, Payload: payload, Timestamp: time.Now()}
	s.Events = append(s.Events, ev)
	s.rec.onEvent(s, ev)
}

// End closes the span with the given status. The status is set exactly once;
// later calls are ignored. An error status with an empty description is
// coerced to a non-empty one so every error span carries a reason. Open
// child spans are force-closed first so a child never outlives its parent.
func (s *Span) End(status Status, description string) {
	if s.ended {
		return
	}
	for _, child := range s.children {
		child.Abandon("parent span closed")
	}
	if status == StatusError && description == "" {
		description = "unspecified error"
	}
	s.Status = status
	s.StatusDescription = description
	s.EndedAt = time.Now()
	s.ended = true
	s.rec.onEnd(s)
}

// EndOK closes the span with StatusOK.
func (s *Span) EndOK() { s.End(StatusOK, "") }

// EndError closes the span with StatusError and the error's message.
func (s *Span) EndError(err error) {
	desc := "unspecified error"
	if err != nil {
		desc = err.Error()
	}
	s.End(StatusError, desc)
}

// Abandon closes the span with an error status only if it is still open.
// Intended for deferred safety nets on early-return and panic paths.
func (s *Span) Abandon(description string) {
	if s.ended {
		return
	}
	s.End(StatusError, description)
}

func newSpan(rec *Recorder, name string, parent *Span) *Span {
	s := &Span{
		ID:        uuid.New().String(),
		Name:      name,
		StartedAt: time.Now(),
		Status:    StatusUnset,
		rec:       rec,
	}
	if parent != nil {
		s.ParentID = parent.ID
		parent.children = append(parent.children, s)
	}
	return s
}
