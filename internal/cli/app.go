package cli

import (
	"fmt"

	"github.com/RichardoC/padi-bot/internal/bot"
	"github.com/RichardoC/padi-bot/internal/config"
	"github.com/RichardoC/padi-bot/internal/db"
	"github.com/RichardoC/padi-bot/internal/llm"
	"github.com/RichardoC/padi-bot/internal/session"
	"github.com/RichardoC/padi-bot/internal/tokens"
	"go.uber.org/zap"
)

// app is the wired bot shared by serve and chat.
type app struct {
	store    *config.Store
	sessions *session.Manager
	ledger   *db.Database
	bot      *bot.Adapter
}

func newApp(cfgPath string, logger *zap.Logger) (*app, error) {
	store, err := config.NewStore(cfgPath)
	if err != nil {
		return nil, err
	}
	cfg := store.Get()
	if cfg.APIKey == "" {
		logger.Warn("no API key configured, set api_key or OPENAI_API_KEY")
	}

	client, err := newClient(cfg, logger)
	if err != nil {
		return nil, err
	}

	sessions := session.NewManager(session.Options{
		Model:        cfg.Model,
		SystemPrompt: cfg.CharacterDesc,
		MaxTokens:    cfg.ConversationMaxTokens,
		TTL:          cfg.SessionTTL(),
		Counter:      tokens.NewTiktoken(cfg.TokenizerEncoding),
		Renderer:     client.Renderer(),
	}, logger.Named("session"))

	ledger, err := db.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open usage database %s: %w", cfg.DBPath, err)
	}

	adapter := bot.New(client, sessions, store, logger.Named("bot"), bot.WithUsageRecorder(ledger))
	return &app{store: store, sessions: sessions, ledger: ledger, bot: adapter}, nil
}

func (a *app) Close() error {
	return a.ledger.Close()
}

// newClient picks the completion client for the configured backend. The
// endpoint and key are fixed for the process; a config reload only
// changes per-request options.
func newClient(cfg config.Config, logger *zap.Logger) (llm.Client, error) {
	switch cfg.Backend {
	case config.BackendCompletion:
		return llm.NewCompletionClient(cfg.BaseURL, cfg.APIKey, logger.Named("llm")), nil
	case config.BackendChat:
		return llm.New(cfg.BaseURL, cfg.APIKey, cfg.Model, logger.Named("llm"))
	}
	return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}
