// Package config loads the bot configuration.
//
// Values come from a YAML file, then from the environment
// (OPENAI_API_KEY, PADI_BASE_URL, PADI_MODEL), then from built-in
// defaults for anything still unset. A Store holds the active
// configuration and can re-read its file at runtime.
package config

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Backends select the completion client.
const (
	BackendChat       = "chat"
	BackendCompletion = "completion"
)

// Config is the full bot configuration.
type Config struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
	// Backend is "chat" (message list) or "completion" (raw prompt).
	Backend string `yaml:"backend"`

	// CharacterDesc is the system prompt every new session starts with.
	CharacterDesc         string `yaml:"character_desc"`
	ConversationMaxTokens int    `yaml:"conversation_max_tokens"`
	ExpiresInSeconds      int    `yaml:"expires_in_seconds"`
	// TokenizerEncoding is used for models tiktoken does not know.
	TokenizerEncoding string `yaml:"tokenizer_encoding"`

	Temperature      float64 `yaml:"temperature"`
	TopP             float64 `yaml:"top_p"`
	MaxTokens        int     `yaml:"max_tokens"`
	FrequencyPenalty float64 `yaml:"frequency_penalty"`
	PresencePenalty  float64 `yaml:"presence_penalty"`
	RequestTimeout   int     `yaml:"request_timeout"`

	ClearMemoryCommands []string `yaml:"clear_memory_commands"`
	ClearAllCommand     string   `yaml:"clear_all_command"`
	ReloadConfigCommand string   `yaml:"reload_config_command"`

	ListenAddr string `yaml:"listen_addr"`
	DBPath     string `yaml:"db_path"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		BaseURL:               "https://api.deepseek.com/v1",
		Model:                 "deepseek-chat",
		Backend:               BackendChat,
		CharacterDesc:         "You are a helpful assistant.",
		ConversationMaxTokens: 1000,
		TokenizerEncoding:     "cl100k_base",
		Temperature:           1.3,
		TopP:                  1,
		MaxTokens:             4096,
		ClearMemoryCommands:   []string{"#clear memory"},
		ClearAllCommand:       "#clear all",
		ReloadConfigCommand:   "#reload config",
		ListenAddr:            ":8100",
		DBPath:                "padi-bot.db",
	}
}

// SessionTTL is the idle time after which a session expires; zero never expires.
func (c Config) SessionTTL() time.Duration {
	return time.Duration(c.ExpiresInSeconds) * time.Second
}

// Timeout is the per-request deadline; zero means none.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

// Validate reports configuration the bot cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.Model == "" {
		errs = append(errs, errors.New("model is required"))
	}
	if c.Backend != BackendChat && c.Backend != BackendCompletion {
		errs = append(errs, fmt.Errorf("backend must be %q or %q, got %q", BackendChat, BackendCompletion, c.Backend))
	}
	if c.ConversationMaxTokens <= 0 {
		errs = append(errs, errors.New("conversation_max_tokens must be positive"))
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		errs = append(errs, fmt.Errorf("temperature must be within [0, 2], got %v", c.Temperature))
	}
	return errors.Join(errs...)
}

// Load reads path (when non-empty), applies environment overrides and
// fills defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
		// Unset keys keep their defaults; an explicit empty list is kept.
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("PADI_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("PADI_MODEL"); v != "" {
		cfg.Model = v
	}
}

// Store holds the active configuration.
type Store struct {
	path string

	mu  sync.RWMutex
	cfg Config
}

// NewStore loads path into a new Store.
func NewStore(path string) (*Store, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	return &Store{path: path, cfg: cfg}, nil
}

// NewStaticStore wraps an already built configuration; Reload keeps it.
func NewStaticStore(cfg Config) *Store {
	return &Store{cfg: cfg}
}

// Get returns a copy of the active configuration.
func (s *Store) Get() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Reload re-reads the config file. On error the active configuration is kept.
func (s *Store) Reload() (Config, error) {
	if s.path == "" {
		return s.Get(), nil
	}
	cfg, err := Load(s.path)
	if err != nil {
		return s.Get(), err
	}

	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
	return cfg, nil
}
