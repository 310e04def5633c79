package groupchat

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ChinmayBH/Agents-Evaluation/trace"
	"github.com/ChinmayBH/Agents-Evaluation/types"
)

// scriptedAgent replays a fixed list of outcomes, then keeps producing
// generated messages so runs can exercise the round ceiling.
type scriptedAgent struct {
	name    string
	kind    Kind
	replies []scriptedReply
	calls   int
}

type scriptedReply struct {
	reply *Reply
	err   error
}

func newScriptedAgent(name string, kind Kind) *scriptedAgent {
	return &scriptedAgent{name: name, kind: kind}
}

func (a *scriptedAgent) says(content string) *scriptedAgent {
	a.replies = append(a.replies, scriptedReply{reply: &Reply{Kind: ReplyMessage, Content: content}})
	return a
}

func (a *scriptedAgent) terminates() *scriptedAgent {
	a.replies = append(a.replies, scriptedReply{reply: &Reply{Kind: ReplyTerminate}})
	return a
}

func (a *scriptedAgent) fails(err error) *scriptedAgent {
	a.replies = append(a.replies, scriptedReply{err: err})
	return a
}

func (a *scriptedAgent) Name() string        { return a.name }
func (a *scriptedAgent) Description() string { return "scripted " + a.name }
func (a *scriptedAgent) Kind() Kind          { return a.kind }

func (a *scriptedAgent) Reply(ctx context.Context, transcript *Transcript) (*Reply, error) {
	defer func() { a.calls++ }()
	if a.calls < len(a.replies) {
		r := a.replies[a.calls]
		return r.reply, r.err
	}
	return &Reply{Kind: ReplyMessage, Content: fmt.Sprintf("%s says %d", a.name, a.calls)}, nil
}

// spanSink captures span lifecycle for audits.
type spanSink struct {
	started []*trace.Span
	ended   []*trace.Span
}

func (s *spanSink) OnStart(span *trace.Span) error                        { s.started = append(s.started, span); return nil }
func (s *spanSink) OnAttribute(span *trace.Span, key string, v any) error { return nil }
func (s *spanSink) OnEvent(span *trace.Span, event trace.Event) error     { return nil }
func (s *spanSink) OnEnd(span *trace.Span) error                          { s.ended = append(s.ended, span); return nil }
func (s *spanSink) Close(ctx context.Context) error                       { return nil }

func (s *spanSink) byName(name string) []*trace.Span {
	var out []*trace.Span
	for _, span := range s.ended {
		if span.Name == name {
			out = append(out, span)
		}
	}
	return out
}

func senders(tr *Transcript) []string {
	var out []string
	for _, turn := range tr.Turns() {
		out = append(out, turn.Sender)
	}
	return out
}

func TestRunRoundRobinUntilTermination(t *testing.T) {
	writer := newScriptedAgent("writer", KindAssistant).
		says("rough draft").says("second draft").says("final draft")
	critic := newScriptedAgent("critic", KindAssistant).
		says("needs work").says("better").says("good")
	editor := newScriptedAgent("editor", KindAssistant).
		says("tightened").says("polished").says("TERMINATE")

	sink := &spanSink{}
	chat, err := New([]Agent{writer, critic, editor},
		WithMaxRounds(12),
		WithTerminationWords("TERMINATE"),
		WithRecorder(trace.NewRecorder(zaptest.NewLogger(t), sink)),
		WithLogger(zaptest.NewLogger(t)),
	)
	require.NoError(t, err)
	assert.Equal(t, StatusIdle, chat.Status())

	res, err := chat.Run(context.Background(), "write a short story about rocks")
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, res.Status)
	assert.Equal(t, StatusCompleted, chat.Status())
	assert.Equal(t, "termination word spoken", res.TerminationReason)
	assert.Equal(t, "TERMINATE", res.FinalMessage)
	assert.Equal(t, 0, res.FailedTurns)
	assert.NotEmpty(t, res.RunID)
	assert.False(t, res.EndedAt.Before(res.StartedAt))

	assert.Equal(t, []string{
		"user",
		"writer", "critic", "editor",
		"writer", "critic", "editor",
		"writer", "critic", "editor",
	}, senders(res.Transcript))
	assert.Equal(t, 9, res.Rounds)

	// one run span plus one span per attempted turn, all closed ok
	require.Len(t, sink.byName("groupchat.run"), 1)
	assert.Equal(t, trace.StatusOK, sink.byName("groupchat.run")[0].Status)
	turns := sink.byName("groupchat.turn")
	require.Len(t, turns, 9)
	for _, span := range turns {
		assert.Equal(t, trace.StatusOK, span.Status)
	}
	assert.Len(t, sink.started, len(sink.ended))
}

func TestRunFailsFastWhenAbortOnFailure(t *testing.T) {
	a := newScriptedAgent("a", KindAssistant).says("hello")
	b := newScriptedAgent("b", KindAssistant).fails(errors.New("model unavailable"))
	c := newScriptedAgent("c", KindAssistant)

	sink := &spanSink{}
	chat, err := New([]Agent{a, b, c},
		WithMaxRounds(8),
		WithAbortOnFailure(true),
		WithRecorder(trace.NewRecorder(zaptest.NewLogger(t), sink)),
	)
	require.NoError(t, err)

	res, err := chat.Run(context.Background(), "seed")
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrRunAborted))

	assert.Equal(t, StatusFailed, res.Status)
	assert.Equal(t, StatusFailed, chat.Status())
	assert.Equal(t, 1, res.FailedTurns)
	// only the seed and a's message made it in
	assert.Equal(t, []string{"user", "a"}, senders(res.Transcript))
	assert.Equal(t, 0, c.calls)

	runSpans := sink.byName("groupchat.run")
	require.Len(t, runSpans, 1)
	assert.Equal(t, trace.StatusError, runSpans[0].Status)
	turns := sink.byName("groupchat.turn")
	require.Len(t, turns, 2)
	assert.Equal(t, trace.StatusOK, turns[0].Status)
	assert.Equal(t, trace.StatusError, turns[1].Status)
	assert.NotEmpty(t, turns[1].StatusDescription)
}

func TestRunRetriesFailedSpeakerWithoutAbort(t *testing.T) {
	a := newScriptedAgent("a", KindAssistant).says("hello").terminates()
	b := newScriptedAgent("b", KindAssistant).
		fails(errors.New("timeout")).fails(errors.New("timeout")).says("finally")

	chat, err := New([]Agent{a, b},
		WithMaxRounds(8),
		WithLogger(zaptest.NewLogger(t)),
	)
	require.NoError(t, err)

	res, err := chat.Run(context.Background(), "seed")
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, res.Status)
	assert.Equal(t, 2, res.FailedTurns)
	// failed attempts record nothing and the same speaker is retried
	assert.Equal(t, []string{"user", "a", "b"}, senders(res.Transcript))
	assert.Equal(t, "finally", res.Transcript.Turns()[2].Content)
	assert.Equal(t, "agent requested termination", res.TerminationReason)
}

func TestRunStopsAtMaxRounds(t *testing.T) {
	a := newScriptedAgent("a", KindAssistant)
	b := newScriptedAgent("b", KindAssistant)

	chat, err := New([]Agent{a, b}, WithMaxRounds(5))
	require.NoError(t, err)

	res, err := chat.Run(context.Background(), "seed")
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, res.Status)
	assert.Equal(t, "max rounds reached", res.TerminationReason)
	assert.Equal(t, 5, res.Rounds)
	assert.Equal(t, 6, res.Transcript.Len())
}

func TestRunFailsOnCancelledContext(t *testing.T) {
	canceller := &cancellingAgent{}
	a := newScriptedAgent("a", KindAssistant)

	chat, err := New([]Agent{canceller.bind("a2"), a}, WithMaxRounds(8))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	canceller.cancel = cancel

	res, err := chat.Run(ctx, "seed")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StatusFailed, res.Status)
	assert.Equal(t, "run cancelled", res.TerminationReason)
}

// cancellingAgent cancels the run from inside its own turn.
type cancellingAgent struct {
	name   string
	cancel context.CancelFunc
}

func (c *cancellingAgent) bind(name string) *cancellingAgent { c.name = name; return c }
func (c *cancellingAgent) Name() string                      { return c.name }
func (c *cancellingAgent) Description() string               { return "cancelling" }
func (c *cancellingAgent) Kind() Kind                        { return KindAssistant }

func (c *cancellingAgent) Reply(ctx context.Context, tr *Transcript) (*Reply, error) {
	c.cancel()
	return &Reply{Kind: ReplyMessage, Content: "last words"}, nil
}

func TestRunConsultsHumanAlways(t *testing.T) {
	writer := newScriptedAgent("writer", KindAssistant).says("draft one").says("draft two")
	proxy := newScriptedAgent("human", KindUserProxy).says("add a mountain").terminates()

	chat, err := New([]Agent{proxy, writer},
		WithMaxRounds(8),
		WithHumanInputMode(InputAlways),
	)
	require.NoError(t, err)

	res, err := chat.Run(context.Background(), "seed")
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, res.Status)
	assert.Equal(t, "human requested termination", res.TerminationReason)
	assert.Equal(t, []string{"human", "writer", "human", "writer"}, senders(res.Transcript))
}

func TestRunHumanConfirmsTermination(t *testing.T) {
	editor := newScriptedAgent("editor", KindAssistant).says("TERMINATE")
	proxy := newScriptedAgent("human", KindUserProxy).terminates()

	chat, err := New([]Agent{proxy, editor},
		WithMaxRounds(8),
		WithTerminationWords("TERMINATE"),
		WithHumanInputMode(InputOnTerminate),
	)
	require.NoError(t, err)

	res, err := chat.Run(context.Background(), "seed")
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, res.Status)
	assert.Equal(t, "termination word confirmed", res.TerminationReason)
	assert.Equal(t, 1, proxy.calls)
}

func TestRunHumanOverridesTermination(t *testing.T) {
	editor := newScriptedAgent("editor", KindAssistant).
		says("TERMINATE").says("one more pass").says("TERMINATE")
	proxy := newScriptedAgent("human", KindUserProxy).says("not done yet").terminates()

	chat, err := New([]Agent{proxy, editor},
		WithMaxRounds(8),
		WithTerminationWords("TERMINATE"),
		WithHumanInputMode(InputOnTerminate),
	)
	require.NoError(t, err)

	res, err := chat.Run(context.Background(), "seed")
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, res.Status)
	assert.Equal(t, "termination word confirmed", res.TerminationReason)
	assert.Equal(t, []string{"human", "editor", "human", "editor", "editor"}, senders(res.Transcript))
}

func TestRunWithoutTerminationWordMatchIsExact(t *testing.T) {
	a := newScriptedAgent("a", KindAssistant).
		says("we should not TERMINATE mid-sentence").says("  TERMINATE  ").terminates()

	chat, err := New([]Agent{a},
		WithMaxRounds(8),
		WithTerminationWords("TERMINATE"),
	)
	require.NoError(t, err)

	res, err := chat.Run(context.Background(), "seed")
	require.NoError(t, err)

	// the first message only mentions the word; the second is the word
	assert.Equal(t, "termination word spoken", res.TerminationReason)
	assert.Equal(t, 2, res.Rounds)
}

func TestRunOnlyOnce(t *testing.T) {
	a := newScriptedAgent("a", KindAssistant).terminates()
	chat, err := New([]Agent{a}, WithMaxRounds(3))
	require.NoError(t, err)

	_, err = chat.Run(context.Background(), "seed")
	require.NoError(t, err)

	_, err = chat.Run(context.Background(), "seed")
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrRunState))
}

func TestNewRejectsBadRosters(t *testing.T) {
	cases := []struct {
		name   string
		roster []Agent
	}{
		{"empty", nil},
		{"no assistants", []Agent{newScriptedAgent("h", KindUserProxy)}},
		{"duplicate names", []Agent{
			newScriptedAgent("a", KindAssistant),
			newScriptedAgent("a", KindAssistant),
		}},
		{"two proxies", []Agent{
			newScriptedAgent("a", KindAssistant),
			newScriptedAgent("h1", KindUserProxy),
			newScriptedAgent("h2", KindUserProxy),
		}},
		{"empty name", []Agent{newScriptedAgent("", KindAssistant)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.roster)
			require.Error(t, err)
			assert.True(t, types.IsCode(err, types.ErrInvalidRoster))
		})
	}
}

func TestNewRejectsNonPositiveMaxRounds(t *testing.T) {
	_, err := New([]Agent{newScriptedAgent("a", KindAssistant)}, WithMaxRounds(0))
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrInvalidConfig))
}
