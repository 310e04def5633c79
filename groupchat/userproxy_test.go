package groupchat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ChinmayBH/Agents-Evaluation/types"
)

func staticInput(line string, err error) InputFunc {
	return func(ctx context.Context, prompt string) (string, error) {
		return line, err
	}
}

func TestUserProxyRelaysMessage(t *testing.T) {
	proxy, err := NewUserProxy(UserProxyConfig{Name: "human", ExitWord: "exit"},
		staticInput("make the rock sentient", nil), zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, KindUserProxy, proxy.Kind())

	tr := NewTranscript(0)
	_, err = tr.Append("writer", KindAssistant, "a story about a rock")
	require.NoError(t, err)

	reply, err := proxy.Reply(context.Background(), tr)
	require.NoError(t, err)
	assert.Equal(t, ReplyMessage, reply.Kind)
	assert.Equal(t, "make the rock sentient", reply.Content)
}

func TestUserProxyTerminatesOnExitWordOrEmptyInput(t *testing.T) {
	for _, line := range []string{"", "   ", "exit"} {
		proxy, err := NewUserProxy(UserProxyConfig{Name: "human", ExitWord: "exit"},
			staticInput(line, nil), zaptest.NewLogger(t))
		require.NoError(t, err)

		reply, err := proxy.Reply(context.Background(), NewTranscript(0))
		require.NoError(t, err)
		assert.Equal(t, ReplyTerminate, reply.Kind, "input %q", line)
	}
}

func TestUserProxyInputErrorIsReplyFailure(t *testing.T) {
	proxy, err := NewUserProxy(UserProxyConfig{Name: "human"},
		staticInput("", errors.New("tty closed")), zaptest.NewLogger(t))
	require.NoError(t, err)

	_, err = proxy.Reply(context.Background(), NewTranscript(0))
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrReplyFailed))
}

func TestUserProxyPromptShowsRecentTurns(t *testing.T) {
	var seenPrompt string
	input := func(ctx context.Context, prompt string) (string, error) {
		seenPrompt = prompt
		return "ok", nil
	}
	proxy, err := NewUserProxy(UserProxyConfig{Name: "human", ContextTurns: 2, ExitWord: "exit"},
		input, zaptest.NewLogger(t))
	require.NoError(t, err)

	tr := NewTranscript(0)
	for _, turn := range []struct{ sender, content string }{
		{"human", "seed"},
		{"writer", "draft"},
		{"critic", "too short"},
	} {
		_, err := tr.Append(turn.sender, KindAssistant, turn.content)
		require.NoError(t, err)
	}

	_, err = proxy.Reply(context.Background(), tr)
	require.NoError(t, err)

	assert.NotContains(t, seenPrompt, "seed")
	assert.Contains(t, seenPrompt, "writer: draft")
	assert.Contains(t, seenPrompt, "critic: too short")
	assert.Contains(t, seenPrompt, `"exit"`)
}

func TestUserProxyValidation(t *testing.T) {
	_, err := NewUserProxy(UserProxyConfig{Name: "  "}, staticInput("", nil), nil)
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrInvalidConfig))

	_, err = NewUserProxy(UserProxyConfig{Name: "human"}, nil, nil)
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrInvalidConfig))
}

func TestStdinInputReadsLines(t *testing.T) {
	in := strings.NewReader("first line\nsecond\n")
	var out strings.Builder
	input := StdinInput(in, &out)

	line, err := input(context.Background(), "> ")
	require.NoError(t, err)
	assert.Equal(t, "first line", line)

	line, err = input(context.Background(), "> ")
	require.NoError(t, err)
	assert.Equal(t, "second", line)
	assert.Equal(t, "> > ", out.String())
}

func TestStdinInputHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	input := StdinInput(strings.NewReader("x\n"), &strings.Builder{})
	_, err := input(ctx, "> ")
	assert.ErrorIs(t, err, context.Canceled)
}
