package groupchat

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ChinmayBH/Agents-Evaluation/internal/metrics"
	"github.com/ChinmayBH/Agents-Evaluation/trace"
	"github.com/ChinmayBH/Agents-Evaluation/types"
)

// RunStatus is the lifecycle state of a GroupChat.
type RunStatus string

const (
	StatusIdle      RunStatus = "idle"
	StatusRunning   RunStatus = "running"
	StatusCompleted RunStatus = "completed"
	StatusFailed    RunStatus = "failed"
)

// RunResult is the outcome of a finished run. It is populated for failed
// runs too, so callers can inspect how far the conversation got.
type RunResult struct {
	RunID             string
	Status            RunStatus
	Transcript        *Transcript
	Rounds            int
	FailedTurns       int
	TerminationReason string
	FinalMessage      string
	StartedAt         time.Time
	EndedAt           time.Time
}

// Option customizes a GroupChat.
type Option func(*GroupChat)

// WithMaxRounds caps turns after the seed message. Defaults to 8.
func WithMaxRounds(n int) Option {
	return func(g *GroupChat) { g.maxRounds = n }
}

// WithAbortOnFailure makes a single reply failure fail the whole run.
// Without it, a failed turn is recorded and the same speaker is retried.
func WithAbortOnFailure(abort bool) Option {
	return func(g *GroupChat) { g.abortOnFailure = abort }
}

// WithTerminationWords sets the messages that end the run when an assistant
// replies with one of them verbatim.
func WithTerminationWords(words ...string) Option {
	return func(g *GroupChat) { g.terminationWords = words }
}

// WithHumanInputMode controls when the roster's user proxy is consulted.
// Defaults to InputNever; ignored if the roster has no user proxy.
func WithHumanInputMode(mode InputMode) Option {
	return func(g *GroupChat) { g.humanInputMode = mode }
}

// WithSelector replaces the default round-robin speaker selector.
func WithSelector(s SpeakerSelector) Option {
	return func(g *GroupChat) { g.selector = s }
}

// WithRecorder sets the trace recorder. Defaults to a sinkless recorder.
func WithRecorder(r *trace.Recorder) Option {
	return func(g *GroupChat) { g.recorder = r }
}

// WithMetrics sets the metrics collector. Nil disables metrics.
func WithMetrics(c *metrics.Collector) Option {
	return func(g *GroupChat) { g.metrics = c }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(g *GroupChat) { g.logger = l }
}

// GroupChat drives one conversation over a fixed roster. A GroupChat runs
// exactly once: Run moves it from idle to running and then to a terminal
// completed or failed state.
type GroupChat struct {
	roster           []Agent
	proxy            Agent
	selector         SpeakerSelector
	recorder         *trace.Recorder
	metrics          *metrics.Collector
	logger           *zap.Logger
	maxRounds        int
	abortOnFailure   bool
	terminationWords []string
	humanInputMode   InputMode

	mu     sync.Mutex
	status RunStatus
}

// New validates the roster and builds a chat. The roster needs at least one
// assistant, unique names, and at most one user proxy.
func New(roster []Agent, opts ...Option) (*GroupChat, error) {
	g := &GroupChat{
		roster:         roster,
		selector:       NewRoundRobinSelector(),
		maxRounds:      8,
		humanInputMode: InputNever,
		status:         StatusIdle,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.logger == nil {
		g.logger = zap.NewNop()
	}
	if g.recorder == nil {
		g.recorder = trace.NewRecorder(g.logger)
	}
	if g.maxRounds <= 0 {
		return nil, types.Errorf(types.ErrInvalidConfig, "max rounds must be > 0, got %d", g.maxRounds)
	}
	if err := g.validateRoster(); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *GroupChat) validateRoster() error {
	if len(g.roster) == 0 {
		return types.NewError(types.ErrInvalidRoster, "roster is empty")
	}
	seen := make(map[string]bool, len(g.roster))
	assistants := 0
	for _, a := range g.roster {
		name := a.Name()
		if name == "" {
			return types.NewError(types.ErrInvalidRoster, "agent with empty name")
		}
		if seen[name] {
			return types.Errorf(types.ErrInvalidRoster, "duplicate agent name %q", name)
		}
		seen[name] = true
		switch a.Kind() {
		case KindAssistant:
			assistants++
		case KindUserProxy:
			if g.proxy != nil {
				return types.Errorf(types.ErrInvalidRoster,
					"more than one user proxy: %q and %q", g.proxy.Name(), name)
			}
			g.proxy = a
		default:
			return types.Errorf(types.ErrInvalidRoster, "agent %q has unknown kind %q", name, a.Kind())
		}
	}
	if assistants == 0 {
		return types.NewError(types.ErrInvalidRoster, "roster has no assistant agents")
	}
	return nil
}

// Status reports the chat's lifecycle state.
func (g *GroupChat) Status() RunStatus {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.status
}

func (g *GroupChat) setStatus(s RunStatus) {
	g.mu.Lock()
	g.status = s
	g.mu.Unlock()
}

// Run executes the conversation seeded with the given task. It returns the
// result together with a non-nil error exactly when the run failed. Run may
// be called once per GroupChat.
func (g *GroupChat) Run(ctx context.Context, seed string) (*RunResult, error) {
	g.mu.Lock()
	if g.status != StatusIdle {
		status := g.status
		g.mu.Unlock()
		return nil, types.Errorf(types.ErrRunState, "chat already %s", status)
	}
	g.status = StatusRunning
	g.mu.Unlock()

	res := &RunResult{
		RunID:      uuid.New().String(),
		Transcript: NewTranscript(g.maxRounds + 1),
		StartedAt:  time.Now(),
	}
	logger := g.logger.With(zap.String("run_id", res.RunID))
	logger.Info("run started",
		zap.Int("roster_size", len(g.roster)),
		zap.Int("max_rounds", g.maxRounds),
	)

	root := g.recorder.StartSpan("groupchat.run", nil)
	defer root.Abandon("run loop exited unexpectedly")
	root.SetAttribute("run_id", res.RunID)
	root.SetAttribute("max_rounds", g.maxRounds)
	root.SetAttribute("roster_size", len(g.roster))

	err := g.runLoop(ctx, root, res, seed)

	res.EndedAt = time.Now()
	res.Rounds = res.Transcript.Rounds()
	if last, ok := res.Transcript.Last(); ok {
		res.FinalMessage = last.Content
	}

	if err != nil {
		res.Status = StatusFailed
		if res.TerminationReason == "" {
			res.TerminationReason = err.Error()
		}
		root.SetAttribute("rounds", res.Rounds)
		root.EndError(err)
		logger.Error("run failed",
			zap.Int("rounds", res.Rounds),
			zap.String("reason", res.TerminationReason),
			zap.Error(err),
		)
	} else {
		res.Status = StatusCompleted
		root.SetAttribute("rounds", res.Rounds)
		root.AddEvent("run_completed", map[string]any{
			"reason":        res.TerminationReason,
			"final_message": res.FinalMessage,
		})
		root.EndOK()
		logger.Info("run completed",
			zap.Int("rounds", res.Rounds),
			zap.String("reason", res.TerminationReason),
		)
	}
	g.setStatus(res.Status)
	g.metrics.RecordRun(string(res.Status), res.Rounds, res.EndedAt.Sub(res.StartedAt))
	return res, err
}

func (g *GroupChat) runLoop(ctx context.Context, root *trace.Span, res *RunResult, seed string) error {
	seedSender := "user"
	if g.proxy != nil {
		seedSender = g.proxy.Name()
	}
	if _, err := res.Transcript.Append(seedSender, KindUserProxy, seed); err != nil {
		return err
	}
	root.AddEvent("seeded", map[string]any{"sender": seedSender})

	for attempt := 0; attempt < g.maxRounds && !res.Transcript.Full(); attempt++ {
		if err := ctx.Err(); err != nil {
			res.TerminationReason = "run cancelled"
			return err
		}
		speaker, err := g.selector.Next(res.Transcript, g.roster)
		if err != nil {
			return err
		}

		reply, turnErr := g.takeTurn(ctx, root, res, attempt, speaker)
		if turnErr != nil {
			res.FailedTurns++
			if g.abortOnFailure {
				res.TerminationReason = "turn failed with abort on failure"
				return types.Errorf(types.ErrRunAborted,
					"agent %s failed", speaker.Name()).WithCause(turnErr)
			}
			g.logger.Warn("turn failed, retrying speaker",
				zap.String("agent", speaker.Name()),
				zap.Error(turnErr),
			)
			continue
		}

		if reply.Kind == ReplyTerminate {
			res.TerminationReason = "agent requested termination"
			return nil
		}

		if _, err := res.Transcript.Append(speaker.Name(), speaker.Kind(), reply.Content); err != nil {
			return err
		}

		done, err := g.afterMessage(ctx, root, res, reply.Content)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
	res.TerminationReason = "max rounds reached"
	return nil
}

// takeTurn runs one attempted turn under its own span.
func (g *GroupChat) takeTurn(ctx context.Context, root *trace.Span, res *RunResult, attempt int, speaker Agent) (reply *Reply, err error) {
	span := g.recorder.StartSpan("groupchat.turn", root)
	defer span.Abandon("turn exited unexpectedly")
	span.SetAttribute("agent", speaker.Name())
	span.SetAttribute("attempt", attempt)

	started := time.Now()
	reply, err = speaker.Reply(ctx, res.Transcript)
	duration := time.Since(started)

	switch {
	case err != nil:
		span.EndError(err)
		g.metrics.RecordTurn(speaker.Name(), "failure", duration)
		return nil, err
	case reply == nil:
		err = types.Errorf(types.ErrReplyFailed, "agent %s returned no reply", speaker.Name())
		span.EndError(err)
		g.metrics.RecordTurn(speaker.Name(), "failure", duration)
		return nil, err
	case reply.Kind == ReplyTerminate:
		span.AddEvent("terminate_requested", nil)
		span.EndOK()
		g.metrics.RecordTurn(speaker.Name(), "terminate", duration)
		return reply, nil
	default:
		span.AddEvent("message", map[string]any{"content_len": len(reply.Content)})
		span.EndOK()
		g.metrics.RecordTurn(speaker.Name(), "message", duration)
		return reply, nil
	}
}

// afterMessage applies the termination words and the human input policy to a
// freshly appended assistant message. It reports whether the run is done.
func (g *GroupChat) afterMessage(ctx context.Context, root *trace.Span, res *RunResult, content string) (bool, error) {
	terminated := g.matchesTerminationWord(content)
	if terminated {
		root.AddEvent("termination_word", map[string]any{"content": content})
	}

	consult := g.proxy != nil &&
		(g.humanInputMode == InputAlways || (g.humanInputMode == InputOnTerminate && terminated))
	if !consult {
		if terminated {
			res.TerminationReason = "termination word spoken"
			return true, nil
		}
		return false, nil
	}

	reply, err := g.takeTurn(ctx, root, res, res.Transcript.Rounds(), g.proxy)
	if err != nil {
		res.FailedTurns++
		if g.abortOnFailure {
			res.TerminationReason = "human input failed with abort on failure"
			return false, types.Errorf(types.ErrRunAborted,
				"agent %s failed", g.proxy.Name()).WithCause(err)
		}
		g.logger.Warn("human input failed, continuing", zap.Error(err))
		if terminated {
			res.TerminationReason = "termination word spoken"
			return true, nil
		}
		return false, nil
	}
	if reply.Kind == ReplyTerminate {
		if terminated {
			res.TerminationReason = "termination word confirmed"
		} else {
			res.TerminationReason = "human requested termination"
		}
		return true, nil
	}
	// a human message overrides a pending termination and keeps the chat going
	if res.Transcript.Full() {
		res.TerminationReason = "max rounds reached"
		return true, nil
	}
	if _, err := res.Transcript.Append(g.proxy.Name(), KindUserProxy, reply.Content); err != nil {
		return false, err
	}
	return false, nil
}

func (g *GroupChat) matchesTerminationWord(content string) bool {
	trimmed := strings.TrimSpace(content)
	for _, w := range g.terminationWords {
		if trimmed == w {
			return true
		}
	}
	return false
}
