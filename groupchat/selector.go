package groupchat

import (
	"github.com/ChinmayBH/Agents-Evaluation/types"
)

// SpeakerSelector decides which agent speaks next. Implementations must be
// deterministic given the same transcript and roster, and must not mutate
// either.
type SpeakerSelector interface {
	Next(transcript *Transcript, roster []Agent) (Agent, error)
}

// RoundRobinSelector cycles through the roster's assistant agents in roster
// order. It keeps no state of its own: the next speaker is derived from how
// many assistant turns the transcript already holds, so a failed turn (which
// records nothing) is retried by the same speaker.
type RoundRobinSelector struct{}

var _ SpeakerSelector = RoundRobinSelector{}

// NewRoundRobinSelector creates a round-robin selector.
func NewRoundRobinSelector() RoundRobinSelector { return RoundRobinSelector{} }

// Next returns the assistant whose turn it is.
func (RoundRobinSelector) Next(transcript *Transcript, roster []Agent) (Agent, error) {
	var assistants []Agent
	names := make(map[string]bool)
	for _, a := range roster {
		if a.Kind() == KindAssistant {
			assistants = append(assistants, a)
			names[a.Name()] = true
		}
	}
	if len(assistants) == 0 {
		return nil, types.NewError(types.ErrInvalidRoster, "roster has no assistant agents")
	}
	spoken := transcript.CountBy(names)
	return assistants[spoken%len(assistants)], nil
}
