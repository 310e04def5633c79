package groupchat

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/ChinmayBH/Agents-Evaluation/llm"
	"github.com/ChinmayBH/Agents-Evaluation/types"
)

// AssistantConfig describes one automated roster member.
type AssistantConfig struct {
	// Name must be unique within the roster.
	Name string
	// Description is shown in logs and traces.
	Description string
	// SystemPrompt shapes the agent's behavior. The engine never inspects it.
	SystemPrompt string
	// Model and the sampling knobs are passed through to the provider.
	Model       string
	Temperature float32
	MaxTokens   int
	// CacheSeed keys the provider-side reply cache so reruns with the same
	// seed replay identical conversations.
	CacheSeed int64
}

// AssistantAgent is an automated agent backed by a chat completion provider.
// On its turn it replays the whole transcript to the model: its own past
// turns as assistant messages, everyone else's as named user messages.
type AssistantAgent struct {
	cfg      AssistantConfig
	provider llm.Provider
	logger   *zap.Logger
}

var _ Agent = (*AssistantAgent)(nil)

// NewAssistant creates an assistant agent.
func NewAssistant(cfg AssistantConfig, provider llm.Provider, logger *zap.Logger) (*AssistantAgent, error) {
	if strings.TrimSpace(cfg.Name) == "" {
		return nil, types.NewError(types.ErrInvalidConfig, "assistant name must not be empty")
	}
	if provider == nil {
		return nil, types.NewError(types.ErrInvalidConfig, "assistant requires a provider")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssistantAgent{
		cfg:      cfg,
		provider: provider,
		logger:   logger.With(zap.String("agent", cfg.Name)),
	}, nil
}

func (a *AssistantAgent) Name() string        { return a.cfg.Name }
func (a *AssistantAgent) Description() string { return a.cfg.Description }
func (a *AssistantAgent) Kind() Kind          { return KindAssistant }

// Reply asks the provider for the agent's next message.
func (a *AssistantAgent) Reply(ctx context.Context, transcript *Transcript) (*Reply, error) {
	req := &llm.ChatRequest{
		Model:       a.cfg.Model,
		Messages:    a.buildMessages(transcript),
		Temperature: a.cfg.Temperature,
		MaxTokens:   a.cfg.MaxTokens,
		CacheSeed:   a.cfg.CacheSeed,
	}
	resp, err := a.provider.Completion(ctx, req)
	if err != nil {
		return nil, types.Errorf(types.ErrReplyFailed, "agent %s completion", a.cfg.Name).WithCause(err)
	}
	content := strings.TrimSpace(resp.FirstContent())
	if content == "" {
		return nil, types.Errorf(types.ErrReplyFailed, "agent %s returned an empty message", a.cfg.Name)
	}
	a.logger.Debug("assistant replied",
		zap.Int("transcript_len", transcript.Len()),
		zap.Int("content_len", len(content)),
	)
	return &Reply{Kind: ReplyMessage, Content: content}, nil
}

func (a *AssistantAgent) buildMessages(transcript *Transcript) []llm.Message {
	msgs := make([]llm.Message, 0, transcript.Len()+1)
	if a.cfg.SystemPrompt != "" {
		msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: a.cfg.SystemPrompt})
	}
	for _, turn := range transcript.Turns() {
		if turn.Sender == a.cfg.Name {
			msgs = append(msgs, llm.Message{Role: llm.RoleAssistant, Content: turn.Content})
			continue
		}
		msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: turn.Content, Name: turn.Sender})
	}
	return msgs
}
