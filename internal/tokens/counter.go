// Package tokens estimates how many model tokens a serialized conversation costs.
package tokens

import (
	"errors"
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// ErrTokenizationUnavailable is returned when no tokenizer can be resolved
// for a model. Callers are expected to fall back to an approximate count.
var ErrTokenizationUnavailable = errors.New("tokenization unavailable")

// Counter counts the tokens of text as seen by model.
type Counter interface {
	Count(text, model string) (int, error)
}

// Tiktoken counts tokens with the BPE encodings shipped by tiktoken-go.
type Tiktoken struct {
	fallback string

	mu        sync.Mutex
	encodings map[string]*tiktoken.Tiktoken
}

// NewTiktoken returns a Counter that uses the model's own encoding and,
// when the model is unknown to tiktoken, the fallback encoding (e.g.
// "cl100k_base"). An empty fallback disables the second lookup.
func NewTiktoken(fallback string) *Tiktoken {
	return &Tiktoken{
		fallback:  fallback,
		encodings: make(map[string]*tiktoken.Tiktoken),
	}
}

// Count implements Counter.
func (t *Tiktoken) Count(text, model string) (int, error) {
	enc, err := t.encoding(model)
	if err != nil {
		return 0, err
	}
	// "all" lets end-of-text markers in the prompt encode as single tokens
	// instead of tripping the disallowed-special check.
	return len(enc.Encode(text, []string{"all"}, nil)), nil
}

func (t *Tiktoken) encoding(model string) (*tiktoken.Tiktoken, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if enc, ok := t.encodings[model]; ok {
		return enc, nil
	}

	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		if t.fallback == "" {
			return nil, fmt.Errorf("%w: model %q: %v", ErrTokenizationUnavailable, model, err)
		}
		enc, err = tiktoken.GetEncoding(t.fallback)
		if err != nil {
			return nil, fmt.Errorf("%w: encoding %q: %v", ErrTokenizationUnavailable, t.fallback, err)
		}
	}

	t.encodings[model] = enc
	return enc, nil
}
