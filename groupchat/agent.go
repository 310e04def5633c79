// Package groupchat runs fixed-roster, turn-based conversations: a round of
// agents collaborating on one task, one speaker at a time, until an agent
// terminates the chat or the round ceiling is hit. The engine owns the
// transcript, speaker selection, and the run state machine; what an agent
// says is entirely the agent's business.
package groupchat

import "context"

// Kind distinguishes automated agents from the human stand-in.
type Kind string

const (
	// KindAssistant is an automated agent backed by a language model.
	KindAssistant Kind = "assistant"
	// KindUserProxy relays input from a human.
	KindUserProxy Kind = "user_proxy"
)

// ReplyKind is the outcome of a successful Reply call.
type ReplyKind string

const (
	// ReplyMessage carries content to append to the transcript.
	ReplyMessage ReplyKind = "message"
	// ReplyTerminate asks the chat to end without contributing content.
	ReplyTerminate ReplyKind = "terminate"
)

// Reply is what an agent produced for its turn. Content is meaningful only
// for ReplyMessage.
type Reply struct {
	Kind    ReplyKind
	Content string
}

// Agent is one participant in a group chat. Reply receives a read-only view
// of the conversation so far and either produces an outcome or reports a
// failure through the error; how the outcome is produced (model call, human
// input, script) is opaque to the engine.
type Agent interface {
	// Name uniquely identifies the agent within a roster.
	Name() string
	// Description is a short human-readable summary of the agent's role.
	Description() string
	// Kind reports whether the agent is automated or a human stand-in.
	Kind() Kind
	// Reply produces the agent's contribution for the current turn.
	Reply(ctx context.Context, transcript *Transcript) (*Reply, error)
}
