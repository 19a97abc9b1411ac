// Package session keeps the bounded, ordered conversation history of each
// chat session and trims it to the model's token budget.
package session

import (
	"fmt"

	"github.com/RichardoC/padi-bot/internal/models"
	"github.com/RichardoC/padi-bot/internal/tokens"
	"go.uber.org/zap"
)

// Session is the turn history of one conversation. A Session is not safe
// for concurrent mutation; Manager.Lock serializes access per session id.
type Session struct {
	ID           string
	Model        string
	SystemPrompt string

	messages []models.Turn
	counter  tokens.Counter
	renderer Renderer
	logger   *zap.Logger
}

// New creates a session holding only the system turn (or nothing when
// systemPrompt is empty).
func New(id, systemPrompt, model string, counter tokens.Counter, renderer Renderer, logger *zap.Logger) *Session {
	if renderer == nil {
		renderer = PromptRenderer{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Session{
		ID:           id,
		Model:        model,
		SystemPrompt: systemPrompt,
		counter:      counter,
		renderer:     renderer,
		logger:       logger,
	}
	s.Reset()
	return s
}

// Reset drops every turn except the system directive.
func (s *Session) Reset() {
	s.messages = s.messages[:0]
	if s.SystemPrompt != "" {
		s.messages = append(s.messages, models.Turn{Role: models.RoleSystem, Content: s.SystemPrompt})
	}
}

// SetSystemPrompt replaces the system directive and resets the history.
func (s *Session) SetSystemPrompt(prompt string) {
	s.SystemPrompt = prompt
	s.Reset()
}

// AppendUser appends a user turn.
func (s *Session) AppendUser(content string) {
	s.messages = append(s.messages, models.Turn{Role: models.RoleUser, Content: content})
}

// AppendAssistant appends an assistant turn.
func (s *Session) AppendAssistant(content string) {
	s.messages = append(s.messages, models.Turn{Role: models.RoleAssistant, Content: content})
}

// Messages returns a copy of the history in chronological order.
func (s *Session) Messages() []models.Turn {
	out := make([]models.Turn, len(s.messages))
	copy(out, s.messages)
	return out
}

// Len returns the number of turns, system turn included.
func (s *Session) Len() int { return len(s.messages) }

// Serialize renders the history with the session's renderer.
func (s *Session) Serialize() string {
	return s.renderer.Render(s.messages)
}

// CountTokens counts the serialized history precisely.
func (s *Session) CountTokens() (int, error) {
	if s.counter == nil {
		return 0, fmt.Errorf("%w: no counter configured", tokens.ErrTokenizationUnavailable)
	}
	return s.counter.Count(s.Serialize(), s.Model)
}

// DiscardExceeding evicts the oldest non-system turns until the history
// fits in maxTokens and returns the resulting token count.
//
// When the history cannot be counted precisely, approx is used as the
// starting count and each eviction subtracts maxTokens from it. Without
// approx the counting error is returned. The latest user turn is never
// evicted, even when it alone exceeds the budget.
func (s *Session) DiscardExceeding(maxTokens int, approx *int) (int, error) {
	precise := true
	cur, err := s.CountTokens()
	if err != nil {
		if approx == nil {
			return 0, err
		}
		precise = false
		cur = *approx
		s.logger.Debug("counting tokens precisely failed, using approximation",
			zap.String("session_id", s.ID),
			zap.Int("approx_tokens", cur),
			zap.Error(err))
	}

	recount := func() error {
		if !precise {
			cur -= maxTokens
			return nil
		}
		n, err := s.CountTokens()
		if err != nil {
			return err
		}
		cur = n
		return nil
	}

	for cur > maxTokens {
		first := 0
		if len(s.messages) > 0 && s.messages[0].Role == models.RoleSystem {
			first = 1
		}

		switch {
		case len(s.messages) > first+1:
			s.evict(first)
			if err := recount(); err != nil {
				return cur, err
			}
			continue
		case len(s.messages) == first+1 && s.messages[first].Role == models.RoleAssistant:
			s.evict(first)
			if err := recount(); err != nil {
				return cur, err
			}
		case len(s.messages) == first+1 && s.messages[first].Role == models.RoleUser:
			s.logger.Warn("user message exceeds max_tokens",
				zap.String("session_id", s.ID),
				zap.Int("total_tokens", cur),
				zap.Int("max_tokens", maxTokens))
		default:
			s.logger.Debug("nothing left to evict",
				zap.String("session_id", s.ID),
				zap.Int("max_tokens", maxTokens),
				zap.Int("total_tokens", cur),
				zap.Int("messages", len(s.messages)))
		}
		break
	}
	return cur, nil
}

func (s *Session) evict(i int) {
	s.messages = append(s.messages[:i], s.messages[i+1:]...)
}
