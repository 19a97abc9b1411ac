package session

import (
	"sync"
	"time"

	"github.com/RichardoC/padi-bot/internal/tokens"
	"go.uber.org/zap"
)

// DefaultMaxTokens is the conversation budget used when none is configured.
const DefaultMaxTokens = 1000

// Options configures a Manager.
type Options struct {
	Model        string
	SystemPrompt string
	// MaxTokens bounds the serialized history of every session.
	MaxTokens int
	// TTL expires sessions idle for longer than this. Zero keeps them
	// for the lifetime of the process.
	TTL      time.Duration
	Counter  tokens.Counter
	Renderer Renderer
}

type entry struct {
	session      *Session
	lastActivity time.Time
}

// idLock is a per-id mutex. refs counts its holder and waiters; the entry
// leaves the locks map only when refs drops to zero.
type idLock struct {
	mu   sync.Mutex
	refs int
}

// Manager owns every live session, keyed by session id.
type Manager struct {
	logger *zap.Logger
	now    func() time.Time

	mu       sync.RWMutex
	opts     Options
	sessions map[string]*entry

	locksMu sync.Mutex
	locks   map[string]*idLock
}

// NewManager creates an empty session store.
func NewManager(opts Options, logger *zap.Logger) *Manager {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		logger:   logger,
		now:      time.Now,
		opts:     opts,
		sessions: make(map[string]*entry),
		locks:    make(map[string]*idLock),
	}
}

// Lock serializes work on one session id. Different ids never block each
// other. The returned func releases the lock.
func (m *Manager) Lock(id string) func() {
	m.locksMu.Lock()
	l, ok := m.locks[id]
	if !ok {
		l = &idLock{}
		m.locks[id] = l
	}
	l.refs++
	m.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		m.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(m.locks, id)
		}
		m.locksMu.Unlock()
	}
}

// Session returns the live session for id, creating it if needed.
func (m *Manager) Session(id string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.build(id)
}

// build must be called with m.mu held.
func (m *Manager) build(id string) *Session {
	now := m.now()
	e, ok := m.sessions[id]
	if ok && m.opts.TTL > 0 && now.Sub(e.lastActivity) > m.opts.TTL {
		m.logger.Debug("session expired", zap.String("session_id", id))
		ok = false
	}
	if !ok {
		e = &entry{session: New(id, m.opts.SystemPrompt, m.opts.Model, m.opts.Counter, m.opts.Renderer, m.logger)}
		m.sessions[id] = e
	}
	e.lastActivity = now
	return e.session
}

// Query appends a user turn to the session and trims it to the budget.
// A tokenizer failure is logged and the untrimmed session returned.
func (m *Manager) Query(query, id string) *Session {
	m.mu.Lock()
	s := m.build(id)
	maxTokens := m.opts.MaxTokens
	m.mu.Unlock()

	s.AppendUser(query)
	total, err := s.DiscardExceeding(maxTokens, nil)
	if err != nil {
		m.logger.Warn("counting tokens precisely for prompt failed",
			zap.String("session_id", id),
			zap.Error(err))
		return s
	}
	m.logger.Debug("prompt tokens used", zap.String("session_id", id), zap.Int("tokens", total))
	return s
}

// Reply appends the assistant answer and trims the session, using the
// remote API's total token count when precise counting is unavailable.
func (m *Manager) Reply(reply, id string, totalTokens int) *Session {
	m.mu.Lock()
	s := m.build(id)
	maxTokens := m.opts.MaxTokens
	m.mu.Unlock()

	s.AppendAssistant(reply)
	total, err := s.DiscardExceeding(maxTokens, &totalTokens)
	if err != nil {
		m.logger.Warn("counting tokens for reply failed",
			zap.String("session_id", id),
			zap.Error(err))
		return s
	}
	m.logger.Debug("raw total tokens", zap.String("session_id", id),
		zap.Int("total_tokens", totalTokens), zap.Int("history_tokens", total))
	return s
}

// ClearSession resets a session to its system turn. The next query on
// the id starts a fresh conversation.
func (m *Manager) ClearSession(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.sessions[id]; ok {
		e.session.Reset()
	}
}

// ClearAllSessions drops every session.
func (m *Manager) ClearAllSessions() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = make(map[string]*entry)
}

// SetSystemPrompt gives one session its own system directive and resets it.
func (m *Manager) SetSystemPrompt(id, prompt string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.build(id)
	s.SetSystemPrompt(prompt)
	return s
}

// Reconfigure applies new defaults to sessions created from now on. The
// TTL applies to live sessions too; zero stops expiry. Switching the model
// drops every live session, since histories are counted per model.
func (m *Manager) Reconfigure(model, systemPrompt string, maxTokens int, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if maxTokens > 0 {
		m.opts.MaxTokens = maxTokens
	}
	m.opts.SystemPrompt = systemPrompt
	m.opts.TTL = ttl
	if model == m.opts.Model {
		return
	}

	m.logger.Info("model switched, resetting sessions",
		zap.String("from", m.opts.Model),
		zap.String("to", model),
		zap.Int("sessions", len(m.sessions)))
	m.opts.Model = model
	m.sessions = make(map[string]*entry)
}

// Model returns the model new sessions are counted against.
func (m *Manager) Model() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.opts.Model
}

// CleanupExpired removes sessions idle for longer than the TTL and
// returns how many were removed.
func (m *Manager) CleanupExpired() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.opts.TTL <= 0 {
		return 0
	}
	now := m.now()
	expired := 0
	for id, e := range m.sessions {
		if now.Sub(e.lastActivity) > m.opts.TTL {
			delete(m.sessions, id)
			expired++
		}
	}
	return expired
}

// Stats returns current session statistics.
func (m *Manager) Stats() map[string]int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	active := 0
	now := m.now()
	for _, e := range m.sessions {
		if m.opts.TTL <= 0 || now.Sub(e.lastActivity) <= m.opts.TTL {
			active++
		}
	}
	return map[string]int{
		"total":  len(m.sessions),
		"active": active,
	}
}
