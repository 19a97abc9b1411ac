package llm

import (
	"context"
	"fmt"

	"github.com/RichardoC/padi-bot/internal/models"
	"github.com/RichardoC/padi-bot/internal/session"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"
)

// Service is the chat-completion Client, backed by langchaingo.
type Service struct {
	llm    llms.Model
	logger *zap.Logger
}

// New creates a Service for an OpenAI-compatible chat endpoint.
func New(baseURL, token, model string, logger *zap.Logger) (*Service, error) {
	llm, err := openai.New(
		openai.WithToken(token),
		openai.WithBaseURL(baseURL),
		openai.WithModel(model),
		openai.WithHTTPClient(NewStatusDoer(nil)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize chat client: %w", err)
	}
	return NewWithModel(llm, logger), nil
}

// NewWithModel wraps an existing langchaingo model.
func NewWithModel(llm llms.Model, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{llm: llm, logger: logger}
}

// Renderer implements Client.
func (s *Service) Renderer() session.Renderer { return session.ChatRenderer{} }

// Complete implements Client.
func (s *Service) Complete(ctx context.Context, history []models.Turn, opts Options) (*Completion, error) {
	ctx, cancel := withTimeout(ctx, opts.Timeout)
	defer cancel()

	resp, err := s.llm.GenerateContent(ctx, toMessageContent(history), callOptions(opts)...)
	if err != nil {
		return nil, classify(err)
	}
	if len(resp.Choices) == 0 {
		return nil, &Error{Kind: Unknown, Err: ErrEmptyResponse}
	}

	choice := resp.Choices[0]
	c := &Completion{
		Text:             choice.Content,
		PromptTokens:     generationInt(choice.GenerationInfo, "PromptTokens"),
		CompletionTokens: generationInt(choice.GenerationInfo, "CompletionTokens"),
		TotalTokens:      generationInt(choice.GenerationInfo, "TotalTokens"),
	}
	s.logger.Debug("chat completion",
		zap.String("model", opts.Model),
		zap.String("stop_reason", choice.StopReason),
		zap.Int("completion_tokens", c.CompletionTokens),
		zap.Int("total_tokens", c.TotalTokens))
	return c, nil
}

func callOptions(opts Options) []llms.CallOption {
	call := []llms.CallOption{
		llms.WithTemperature(opts.Temperature),
		llms.WithFrequencyPenalty(opts.FrequencyPenalty),
		llms.WithPresencePenalty(opts.PresencePenalty),
	}
	if opts.Model != "" {
		call = append(call, llms.WithModel(opts.Model))
	}
	if opts.MaxTokens > 0 {
		call = append(call, llms.WithMaxTokens(opts.MaxTokens))
	}
	if opts.TopP > 0 {
		call = append(call, llms.WithTopP(opts.TopP))
	}
	return call
}

func toMessageContent(history []models.Turn) []llms.MessageContent {
	msgs := make([]llms.MessageContent, 0, len(history))
	for _, t := range history {
		var role llms.ChatMessageType
		switch t.Role {
		case models.RoleSystem:
			role = llms.ChatMessageTypeSystem
		case models.RoleAssistant:
			role = llms.ChatMessageTypeAI
		default:
			role = llms.ChatMessageTypeHuman
		}
		msgs = append(msgs, llms.TextParts(role, t.Content))
	}
	return msgs
}

// generationInt reads a usage counter out of a choice's GenerationInfo,
// whose value types differ between providers.
func generationInt(info map[string]any, key string) int {
	switch v := info[key].(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}
