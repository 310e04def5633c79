package groupchat

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/ChinmayBH/Agents-Evaluation/types"
)

// InputMode controls when the chat consults the user proxy.
type InputMode string

const (
	// InputAlways consults the human after every assistant message.
	InputAlways InputMode = "always"
	// InputNever runs fully automated.
	InputNever InputMode = "never"
	// InputOnTerminate consults the human only when an assistant's message
	// matches a termination word, to confirm or override the ending.
	InputOnTerminate InputMode = "terminate"
)

// InputFunc obtains one line of human input. It blocks until input arrives,
// the context is cancelled, or the input source fails.
type InputFunc func(ctx context.Context, prompt string) (string, error)

// UserProxyConfig describes the human stand-in.
type UserProxyConfig struct {
	Name        string
	Description string
	// ExitWord terminates the run when entered verbatim. Empty input
	// terminates as well.
	ExitWord string
	// ContextTurns is how many recent turns the prompt shows before asking
	// for input. Zero or less shows only the latest turn.
	ContextTurns int
}

// UserProxyAgent relays human input into the chat. Empty input or the exit
// word yields a terminate outcome; anything else becomes a regular message
// spoken under the proxy's name.
type UserProxyAgent struct {
	cfg    UserProxyConfig
	input  InputFunc
	logger *zap.Logger
}

var _ Agent = (*UserProxyAgent)(nil)

// NewUserProxy creates a user proxy over the given input source.
func NewUserProxy(cfg UserProxyConfig, input InputFunc, logger *zap.Logger) (*UserProxyAgent, error) {
	if strings.TrimSpace(cfg.Name) == "" {
		return nil, types.NewError(types.ErrInvalidConfig, "user proxy name must not be empty")
	}
	if input == nil {
		return nil, types.NewError(types.ErrInvalidConfig, "user proxy requires an input source")
	}
	if cfg.ContextTurns <= 0 {
		cfg.ContextTurns = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserProxyAgent{
		cfg:    cfg,
		input:  input,
		logger: logger.With(zap.String("agent", cfg.Name)),
	}, nil
}

func (u *UserProxyAgent) Name() string        { return u.cfg.Name }
func (u *UserProxyAgent) Description() string { return u.cfg.Description }
func (u *UserProxyAgent) Kind() Kind          { return KindUserProxy }

// Reply prompts the human with the recent conversation and interprets the
// answer.
func (u *UserProxyAgent) Reply(ctx context.Context, transcript *Transcript) (*Reply, error) {
	line, err := u.input(ctx, u.buildPrompt(transcript))
	if err != nil {
		return nil, types.Errorf(types.ErrReplyFailed, "agent %s input", u.cfg.Name).WithCause(err)
	}
	line = strings.TrimSpace(line)
	if line == "" || (u.cfg.ExitWord != "" && line == u.cfg.ExitWord) {
		u.logger.Info("human requested termination")
		return &Reply{Kind: ReplyTerminate}, nil
	}
	return &Reply{Kind: ReplyMessage, Content: line}, nil
}

func (u *UserProxyAgent) buildPrompt(transcript *Transcript) string {
	var b strings.Builder
	for _, turn := range transcript.Tail(u.cfg.ContextTurns) {
		fmt.Fprintf(&b, "%s: %s\n", turn.Sender, turn.Content)
	}
	if u.cfg.ExitWord != "" {
		fmt.Fprintf(&b, "Your reply (%q or empty to stop): ", u.cfg.ExitWord)
	} else {
		b.WriteString("Your reply (empty to stop): ")
	}
	return b.String()
}

// StdinInput reads one line per prompt from r, typically os.Stdin, writing
// prompts to w. The context is checked before each read; the read itself is
// not interruptible.
func StdinInput(r io.Reader, w io.Writer) InputFunc {
	reader := bufio.NewReader(r)
	return func(ctx context.Context, prompt string) (string, error) {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if _, err := fmt.Fprint(w, prompt); err != nil {
			return "", err
		}
		line, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return "", err
		}
		return strings.TrimRight(line, "\r\n"), nil
	}
}
