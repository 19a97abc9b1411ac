package llm

import (
	"context"
	"errors"

	"github.com/RichardoC/padi-bot/internal/models"
	"github.com/RichardoC/padi-bot/internal/session"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"
)

// CompletionClient sends the history as one raw-text prompt to the legacy
// /completions endpoint.
type CompletionClient struct {
	client openai.Client
	logger *zap.Logger
}

// NewCompletionClient creates a CompletionClient. Retries are disabled in
// the SDK; the bot applies its own retry policy.
func NewCompletionClient(baseURL, token string, logger *zap.Logger) *CompletionClient {
	opts := []option.RequestOption{
		option.WithAPIKey(token),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CompletionClient{client: openai.NewClient(opts...), logger: logger}
}

// Renderer implements Client.
func (c *CompletionClient) Renderer() session.Renderer { return session.PromptRenderer{} }

// Complete implements Client.
func (c *CompletionClient) Complete(ctx context.Context, history []models.Turn, opts Options) (*Completion, error) {
	ctx, cancel := withTimeout(ctx, opts.Timeout)
	defer cancel()

	params := openai.CompletionNewParams{
		Model:            openai.CompletionNewParamsModel(opts.Model),
		Prompt:           openai.CompletionNewParamsPromptUnion{OfString: openai.String(c.Renderer().Render(history))},
		Temperature:      openai.Float(opts.Temperature),
		FrequencyPenalty: openai.Float(opts.FrequencyPenalty),
		PresencePenalty:  openai.Float(opts.PresencePenalty),
		Stop:             openai.CompletionNewParamsStopUnion{OfStringArray: []string{"\n\n\n"}},
	}
	if opts.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(opts.MaxTokens))
	}
	if opts.TopP > 0 {
		params.TopP = openai.Float(opts.TopP)
	}

	resp, err := c.client.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return nil, &Error{Kind: KindFromStatus(apiErr.StatusCode), StatusCode: apiErr.StatusCode, Err: err}
		}
		return nil, classify(err)
	}
	if len(resp.Choices) == 0 {
		return nil, &Error{Kind: Unknown, Err: ErrEmptyResponse}
	}

	out := &Completion{
		Text:             resp.Choices[0].Text,
		PromptTokens:     int(resp.Usage.PromptTokens),
		CompletionTokens: int(resp.Usage.CompletionTokens),
		TotalTokens:      int(resp.Usage.TotalTokens),
	}
	c.logger.Debug("text completion",
		zap.String("model", opts.Model),
		zap.String("finish_reason", string(resp.Choices[0].FinishReason)),
		zap.Int("completion_tokens", out.CompletionTokens),
		zap.Int("total_tokens", out.TotalTokens))
	return out, nil
}
