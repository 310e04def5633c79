package trace

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// recordingSink captures every lifecycle callback for assertions.
type recordingSink struct {
	started []string
	attrs   map[string]map[string]any
	events  map[string][]Event
	ended   []*Span
	closed  bool

	failWith error
}

func newRecordingSink() *recordingSink {
	return &recordingSink{
		attrs:  make(map[string]map[string]any),
		events: make(map[string][]Event),
	}
}

func (r *recordingSink) OnStart(span *Span) error {
	r.started = append(r.started, span.Name)
	return r.failWith
}

func (r *recordingSink) OnAttribute(span *Span, key string, value any) error {
	if r.attrs[span.ID] == nil {
		r.attrs[span.ID] = make(map[string]any)
	}
	r.attrs[span.ID][key] = value
	return r.failWith
}

func (r *recordingSink) OnEvent(span *Span, event Event) error {
	r.events[span.ID] = append(r.events[span.ID], event)
	return r.failWith
}

func (r *recordingSink) OnEnd(span *Span) error {
	r.ended = append(r.ended, span)
	return r.failWith
}

func (r *recordingSink) Close(ctx context.Context) error {
	r.closed = true
	return r.failWith
}

func TestSpanLifecycle(t *testing.T) {
	sink := newRecordingSink()
	rec := NewRecorder(zaptest.NewLogger(t), sink)

	root := rec.StartSpan("run", nil)
	root.SetAttribute("max_rounds", 8)
	root.AddEvent("seeded", map[string]any{"sender": "user_proxy"})

	child := rec.StartSpan("turn", root)
	require.Equal(t, root.ID, child.ParentID)
	child.EndOK()

	root.EndOK()

	assert.Equal(t, []string{"run", "turn"}, sink.started)
	assert.Equal(t, 8, sink.attrs[root.ID]["max_rounds"])
	require.Len(t, sink.events[root.ID], 1)
	assert.Equal(t, "seeded", sink.events[root.ID][0].Name)

	require.Len(t, sink.ended, 2)
	assert.Equal(t, "turn", sink.ended[0].Name)
	assert.Equal(t, "run", sink.ended[1].Name)
	assert.Equal(t, StatusOK, root.Status)
	assert.True(t, root.EndedAt.After(root.StartedAt) || root.EndedAt.Equal(root.StartedAt))
}

func TestSpanEndIsIdempotent(t *testing.T) {
	sink := newRecordingSink()
	rec := NewRecorder(zaptest.NewLogger(t), sink)

	s := rec.StartSpan("turn", nil)
	s.EndError(errors.New("model unavailable"))
	s.EndOK()
	s.End(StatusError, "again")

	assert.Equal(t, StatusError, s.Status)
	assert.Equal(t, "model unavailable", s.StatusDescription)
	assert.Len(t, sink.ended, 1)
}

func TestSpanMutationAfterEndIsIgnored(t *testing.T) {
	sink := newRecordingSink()
	rec := NewRecorder(zaptest.NewLogger(t), sink)

	s := rec.StartSpan("turn", nil)
	s.EndOK()
	s.SetAttribute("late", true)
	s.AddEvent("late", nil)

	assert.Empty(t, sink.attrs[s.ID])
	assert.Empty(t, sink.events[s.ID])
	assert.Empty(t, s.Attributes)
	assert.Empty(t, s.Events)
}

func TestSpanErrorDescriptionNeverEmpty(t *testing.T) {
	rec := NewRecorder(zaptest.NewLogger(t))

	s := rec.StartSpan("turn", nil)
	s.End(StatusError, "")
	assert.NotEmpty(t, s.StatusDescription)

	s2 := rec.StartSpan("turn", nil)
	s2.EndError(nil)
	assert.NotEmpty(t, s2.StatusDescription)
}

func TestParentEndForcesChildrenClosed(t *testing.T) {
	sink := newRecordingSink()
	rec := NewRecorder(zaptest.NewLogger(t), sink)

	root := rec.StartSpan("run", nil)
	open := rec.StartSpan("turn", root)
	done := rec.StartSpan("turn", root)
	done.EndOK()

	root.EndOK()

	assert.True(t, open.Ended())
	assert.Equal(t, StatusError, open.Status)
	assert.NotEmpty(t, open.StatusDescription)
	// done keeps its original status
	assert.Equal(t, StatusOK, done.Status)
	// children end before the parent
	require.Len(t, sink.ended, 3)
	assert.Same(t, root, sink.ended[2])
}

func TestAbandonOnlyClosesOpenSpans(t *testing.T) {
	rec := NewRecorder(zaptest.NewLogger(t))

	s := rec.StartSpan("turn", nil)
	s.EndOK()
	s.Abandon("deferred cleanup")
	assert.Equal(t, StatusOK, s.Status)
}

func TestSinkFailuresDoNotPropagate(t *testing.T) {
	sink := newRecordingSink()
	sink.failWith = errors.New("backend down")
	rec := NewRecorder(zaptest.NewLogger(t), sink)

	s := rec.StartSpan("run", nil)
	s.SetAttribute("k", "v")
	s.AddEvent("ev", nil)
	s.EndOK()

	assert.Equal(t, StatusOK, s.Status)
	assert.Error(t, rec.Close(context.Background()))
}

func TestRecorderCloseClosesAllSinks(t *testing.T) {
	a := newRecordingSink()
	b := newRecordingSink()
	rec := NewRecorder(zaptest.NewLogger(t), a, b)

	require.NoError(t, rec.Close(context.Background()))
	assert.True(t, a.closed)
	assert.True(t, b.closed)
}
