// Package bot answers chat queries: it handles control commands, keeps
// the per-session history through a session.Manager, calls the completion
// client with retries and maps the outcome to a typed Reply.
package bot

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/RichardoC/padi-bot/internal/config"
	"github.com/RichardoC/padi-bot/internal/llm"
	"github.com/RichardoC/padi-bot/internal/models"
	"github.com/RichardoC/padi-bot/internal/session"
	"go.uber.org/zap"
)

// ErrMissingSessionID is returned for queries without a session id.
var ErrMissingSessionID = errors.New("missing session id")

// UsageRecorder stores what each exchange cost.
type UsageRecorder interface {
	RecordUsage(ctx context.Context, rec *models.UsageRecord) error
}

// Adapter is the bot. It is safe for concurrent use; queries on the same
// session are serialized.
type Adapter struct {
	client   llm.Client
	sessions *session.Manager
	config   *config.Store
	usage    UsageRecorder
	logger   *zap.Logger
	sleep    Sleeper
	delays   map[llm.Kind]time.Duration
}

// Option customizes an Adapter.
type Option func(*Adapter)

// WithUsageRecorder records every exchange.
func WithUsageRecorder(r UsageRecorder) Option {
	return func(a *Adapter) { a.usage = r }
}

// WithSleeper replaces the wait between retries.
func WithSleeper(s Sleeper) Option {
	return func(a *Adapter) { a.sleep = s }
}

// WithRetryDelays replaces the per-kind back-off.
func WithRetryDelays(d map[llm.Kind]time.Duration) Option {
	return func(a *Adapter) { a.delays = d }
}

// New creates an Adapter.
func New(client llm.Client, sessions *session.Manager, store *config.Store, logger *zap.Logger, opts ...Option) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Adapter{
		client:   client,
		sessions: sessions,
		config:   store,
		logger:   logger,
		sleep:    sleepWithContext,
		delays:   DefaultRetryDelays,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Reply answers q. Remote failures never surface as an error: they are
// reported to the user as an Error reply. A nil reply means the query
// kind is not handled by this bot.
func (a *Adapter) Reply(ctx context.Context, q Query) (*Reply, error) {
	if q.Kind != QueryText {
		a.logger.Debug("ignoring unsupported query kind", zap.Int("kind", int(q.Kind)))
		return nil, nil
	}
	if q.SessionID == "" {
		return nil, ErrMissingSessionID
	}

	a.logger.Info("query received", zap.String("session_id", q.SessionID), zap.String("query", q.Text))

	cfg := a.config.Get()
	if r := a.command(q, cfg); r != nil {
		return r, nil
	}

	unlock := a.sessions.Lock(q.SessionID)
	defer unlock()

	s := a.sessions.Query(q.Text, q.SessionID)
	a.logger.Debug("session query", zap.String("session_id", q.SessionID), zap.Any("messages", s.Messages()))

	c, attempts, err := a.complete(ctx, s, options(cfg))
	rec := &models.UsageRecord{SessionID: q.SessionID, Model: cfg.Model, Attempts: attempts}

	var reply *Reply
	switch {
	case err != nil:
		kind := llm.KindOf(err)
		if clearsSession(kind) {
			a.sessions.ClearSession(q.SessionID)
		}
		reply = &Reply{Type: ReplyError, Content: errorMessage(err)}
	case c.CompletionTokens > 0:
		a.sessions.Reply(c.Text, q.SessionID, c.TotalTokens)
		reply = &Reply{Type: ReplyText, Content: c.Text}
	case c.Text != "":
		// Zero completion tokens means the API generated no real answer.
		reply = &Reply{Type: ReplyError, Content: c.Text}
	default:
		a.logger.Debug("reply used 0 tokens", zap.String("session_id", q.SessionID))
		reply = &Reply{Type: ReplyError, Content: apology}
	}
	if c != nil {
		rec.PromptTokens, rec.CompletionTokens, rec.TotalTokens = c.PromptTokens, c.CompletionTokens, c.TotalTokens
	}
	rec.ReplyType = string(reply.Type)
	a.record(ctx, rec)

	a.logger.Debug("reply",
		zap.String("session_id", q.SessionID),
		zap.String("type", string(reply.Type)),
		zap.Int("completion_tokens", rec.CompletionTokens),
		zap.Int("attempts", attempts))
	return reply, nil
}

// command handles control commands; nil means q is a regular query.
func (a *Adapter) command(q Query, cfg config.Config) *Reply {
	text := strings.TrimSpace(q.Text)
	switch {
	case contains(cfg.ClearMemoryCommands, text):
		unlock := a.sessions.Lock(q.SessionID)
		a.sessions.ClearSession(q.SessionID)
		unlock()
		return &Reply{Type: ReplyInfo, Content: "memory cleared"}
	case cfg.ClearAllCommand != "" && text == cfg.ClearAllCommand:
		a.sessions.ClearAllSessions()
		return &Reply{Type: ReplyInfo, Content: "memory cleared for all sessions"}
	case cfg.ReloadConfigCommand != "" && text == cfg.ReloadConfigCommand:
		next, err := a.config.Reload()
		if err != nil {
			a.logger.Warn("config reload failed", zap.Error(err))
			return &Reply{Type: ReplyError, Content: "failed to reload config: " + err.Error()}
		}
		a.sessions.Reconfigure(next.Model, next.CharacterDesc, next.ConversationMaxTokens, next.SessionTTL())
		a.logger.Info("config reloaded", zap.String("model", next.Model))
		return &Reply{Type: ReplyInfo, Content: "config reloaded"}
	}
	return nil
}

// complete runs the retry state machine: transient failures are retried
// up to MaxRetries times, everything else fails on the first attempt.
func (a *Adapter) complete(ctx context.Context, s *session.Session, opts llm.Options) (*llm.Completion, int, error) {
	for attempt := 0; ; attempt++ {
		c, err := a.client.Complete(ctx, s.Messages(), opts)
		if err == nil {
			return c, attempt + 1, nil
		}

		kind := llm.KindOf(err)
		a.logger.Warn("completion failed",
			zap.String("session_id", s.ID),
			zap.String("kind", kind.String()),
			zap.Int("attempt", attempt+1),
			zap.Error(err))

		if !kind.Transient() || attempt >= MaxRetries || ctx.Err() != nil {
			return nil, attempt + 1, err
		}
		if serr := a.sleep(ctx, a.retryDelay(kind)); serr != nil {
			return nil, attempt + 1, err
		}
	}
}

func (a *Adapter) retryDelay(kind llm.Kind) time.Duration {
	if d, ok := a.delays[kind]; ok {
		return d
	}
	return defaultRetryDelay
}

func (a *Adapter) record(ctx context.Context, rec *models.UsageRecord) {
	if a.usage == nil {
		return
	}
	if err := a.usage.RecordUsage(ctx, rec); err != nil {
		a.logger.Warn("failed to record usage", zap.String("session_id", rec.SessionID), zap.Error(err))
	}
}

func options(cfg config.Config) llm.Options {
	return llm.Options{
		Model:            cfg.Model,
		Temperature:      cfg.Temperature,
		MaxTokens:        cfg.MaxTokens,
		TopP:             cfg.TopP,
		FrequencyPenalty: cfg.FrequencyPenalty,
		PresencePenalty:  cfg.PresencePenalty,
		Timeout:          cfg.Timeout(),
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
