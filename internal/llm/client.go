// Package llm talks to the hosted completion API. Two clients are
// provided: Service sends the history as a chat message list, and
// CompletionClient sends it as one raw-text prompt to the legacy
// completions endpoint. Both return failures as *Error.
package llm

import (
	"context"
	"errors"
	"time"

	"github.com/RichardoC/padi-bot/internal/models"
	"github.com/RichardoC/padi-bot/internal/session"
)

// ErrEmptyResponse is returned when the API answers without any choice.
var ErrEmptyResponse = errors.New("empty response from model")

// Options are sent along with every completion request.
type Options struct {
	Model            string
	Temperature      float64
	MaxTokens        int
	TopP             float64
	FrequencyPenalty float64
	PresencePenalty  float64
	Timeout          time.Duration
}

// Completion is a successful answer and its token usage.
type Completion struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Client performs one completion request. Renderer tells sessions which
// textual shape the client sends, so their token accounting matches.
type Client interface {
	Renderer() session.Renderer
	Complete(ctx context.Context, history []models.Turn, opts Options) (*Completion, error)
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}
