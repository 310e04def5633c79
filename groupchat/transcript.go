package groupchat

import (
	"time"

	"github.com/google/uuid"

	"github.com/ChinmayBH/Agents-Evaluation/types"
)

// Turn is one recorded message. Index is the position in the transcript,
// starting at 0 for the seed message.
type Turn struct {
	ID        string    `json:"id"`
	Sender    string    `json:"sender"`
	Role      Kind      `json:"role"`
	Content   string    `json:"content"`
	Index     int       `json:"index"`
	Timestamp time.Time `json:"timestamp"`
}

// Transcript is the append-only record of a single run. Turns are never
// edited or removed once appended, and the total number of turns is capped
// at construction time. A Transcript is not safe for concurrent use; the
// run loop is single-goroutine.
type Transcript struct {
	turns    []Turn
	capacity int
}

// NewTranscript creates an empty transcript holding at most capacity turns.
// A capacity of zero or less means unbounded.
func NewTranscript(capacity int) *Transcript {
	return &Transcript{capacity: capacity}
}

// Append records a new turn and returns it.
func (t *Transcript) Append(sender string, role Kind, content string) (Turn, error) {
	if t.capacity > 0 && len(t.turns) >= t.capacity {
		return Turn{}, types.Errorf(types.ErrTranscriptFull,
			"transcript already holds %d turns", len(t.turns))
	}
	turn := Turn{
		ID:        uuid.New().String(),
		Sender:    sender,
		Role:      role,
		Content:   content,
		Index:     len(t.turns),
		Timestamp: time.Now(),
	}
	t.turns = append(t.turns, turn)
	return turn, nil
}

// Len is the total number of turns, seed included.
func (t *Transcript) Len() int { return len(t.turns) }

// Rounds is the number of turns after the seed message.
func (t *Transcript) Rounds() int {
	if len(t.turns) == 0 {
		return 0
	}
	return len(t.turns) - 1
}

// Full reports whether the transcript has reached its capacity.
func (t *Transcript) Full() bool {
	return t.capacity > 0 && len(t.turns) >= t.capacity
}

// Turns returns a copy of all turns in order.
func (t *Transcript) Turns() []Turn {
	out := make([]Turn, len(t.turns))
	copy(out, t.turns)
	return out
}

// Last returns the most recent turn, if any.
func (t *Transcript) Last() (Turn, bool) {
	if len(t.turns) == 0 {
		return Turn{}, false
	}
	return t.turns[len(t.turns)-1], true
}

// Tail returns a copy of the last n turns, or all turns when n exceeds the
// length. n of zero or less returns an empty slice.
func (t *Transcript) Tail(n int) []Turn {
	if n <= 0 {
		return nil
	}
	if n > len(t.turns) {
		n = len(t.turns)
	}
	out := make([]Turn, n)
	copy(out, t.turns[len(t.turns)-n:])
	return out
}

// CountBy returns how many turns were sent by senders in the given set.
func (t *Transcript) CountBy(senders map[string]bool) int {
	n := 0
	for _, turn := range t.turns {
		if senders[turn.Sender] {
			n++
		}
	}
	return n
}
