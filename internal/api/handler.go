package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/RichardoC/padi-bot/internal/bot"
	"github.com/RichardoC/padi-bot/internal/models"
	"go.uber.org/zap"
)

// Replier answers chat queries.
type Replier interface {
	Reply(ctx context.Context, q bot.Query) (*bot.Reply, error)
}

// Sessions is the part of the session store the API exposes.
type Sessions interface {
	Stats() map[string]int
	ClearSession(id string)
	Lock(id string) func()
}

// UsageStore reads and prunes the usage ledger.
type UsageStore interface {
	Summary(ctx context.Context, sessionID string) (*models.UsageSummary, error)
	RecentUsage(ctx context.Context, sessionID string, limit int) ([]models.UsageRecord, error)
	DeleteSession(ctx context.Context, sessionID string) error
}

const defaultUsageLimit = 50

type Handler struct {
	bot      Replier
	sessions Sessions
	usage    UsageStore
	logger   *zap.Logger
}

func NewHandler(replier Replier, sessions Sessions, usage UsageStore, logger *zap.Logger) *Handler {
	return &Handler{
		bot:      replier,
		sessions: sessions,
		usage:    usage,
		logger:   logger,
	}
}

// Routes registers every endpoint on mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/api/message", h.HandleMessage)
	mux.HandleFunc("/api/usage", h.GetUsage)
	mux.HandleFunc("/api/sessions", h.Sessions)
}

type MessageRequest struct {
	SessionID string `json:"session_id"`
	Content   string `json:"content"`
}

type UsageResponse struct {
	Summary *models.UsageSummary `json:"summary"`
	Recent  []models.UsageRecord `json:"recent"`
}

func (h *Handler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.SessionID == "" {
		http.Error(w, "session_id is required", http.StatusBadRequest)
		return
	}

	reply, err := h.bot.Reply(r.Context(), bot.Query{
		Kind:      bot.QueryText,
		SessionID: req.SessionID,
		Text:      req.Content,
	})
	if err != nil {
		if errors.Is(err, bot.ErrMissingSessionID) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error("Failed to process message", zap.String("session_id", req.SessionID), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if reply == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	h.writeJSON(w, reply)
}

func (h *Handler) GetUsage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		http.Error(w, "Query parameter 'session_id' is required", http.StatusBadRequest)
		return
	}
	limit := defaultUsageLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	summary, err := h.usage.Summary(r.Context(), sessionID)
	if err != nil {
		h.logger.Error("Failed to get usage summary", zap.String("session_id", sessionID), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	recent, err := h.usage.RecentUsage(r.Context(), sessionID, limit)
	if err != nil {
		h.logger.Error("Failed to get usage records", zap.String("session_id", sessionID), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, UsageResponse{Summary: summary, Recent: recent})
}

// Sessions reports session statistics on GET and forgets one session,
// memory and usage history, on DELETE.
func (h *Handler) Sessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		stats := h.sessions.Stats()
		h.logger.Debug("Retrieved session stats",
			zap.Int("total", stats["total"]),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path))
		h.writeJSON(w, stats)

	case http.MethodDelete:
		sessionID := r.URL.Query().Get("session_id")
		if sessionID == "" {
			http.Error(w, "Query parameter 'session_id' is required", http.StatusBadRequest)
			return
		}

		unlock := h.sessions.Lock(sessionID)
		h.sessions.ClearSession(sessionID)
		unlock()

		if err := h.usage.DeleteSession(r.Context(), sessionID); err != nil {
			h.logger.Error("Failed to delete usage records", zap.String("session_id", sessionID), zap.Error(err))
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}
