package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/RichardoC/padi-bot/internal/bot"
	"github.com/RichardoC/padi-bot/internal/config"
	"github.com/RichardoC/padi-bot/internal/db"
	"github.com/RichardoC/padi-bot/internal/llm"
	"github.com/RichardoC/padi-bot/internal/models"
	"github.com/RichardoC/padi-bot/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type wordCounter struct{}

func (wordCounter) Count(text, _ string) (int, error) {
	return len(strings.Fields(text)), nil
}

type echoClient struct{}

func (echoClient) Renderer() session.Renderer { return session.ChatRenderer{} }

func (echoClient) Complete(_ context.Context, history []models.Turn, _ llm.Options) (*llm.Completion, error) {
	last := history[len(history)-1].Content
	return &llm.Completion{Text: "echo: " + last, PromptTokens: 5, CompletionTokens: 2, TotalTokens: 7}, nil
}

type stubReplier struct {
	reply *bot.Reply
	err   error
}

func (s stubReplier) Reply(context.Context, bot.Query) (*bot.Reply, error) {
	return s.reply, s.err
}

type testServer struct {
	mux      *http.ServeMux
	sessions *session.Manager
	ledger   *db.Database
}

func newTestServer(t *testing.T, replier Replier) *testServer {
	t.Helper()
	logger := zaptest.NewLogger(t)

	ledger, err := db.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { ledger.Close() })

	cfg := config.Default()
	sessions := session.NewManager(session.Options{
		Model:        cfg.Model,
		SystemPrompt: cfg.CharacterDesc,
		MaxTokens:    cfg.ConversationMaxTokens,
		Counter:      wordCounter{},
		Renderer:     echoClient{}.Renderer(),
	}, logger)
	if replier == nil {
		replier = bot.New(echoClient{}, sessions, config.NewStaticStore(cfg), logger, bot.WithUsageRecorder(ledger))
	}

	mux := http.NewServeMux()
	NewHandler(replier, sessions, ledger, logger).Routes(mux)
	return &testServer{mux: mux, sessions: sessions, ledger: ledger}
}

func (s *testServer) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	return rec
}

func TestHandleMessage(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, http.MethodPost, "/api/message", `{"session_id":"u1","content":"hello"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var reply bot.Reply
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reply))
	assert.Equal(t, bot.Reply{Type: bot.ReplyText, Content: "echo: hello"}, reply)
	assert.Len(t, s.sessions.Session("u1").Messages(), 3)
}

func TestHandleMessage_Command(t *testing.T) {
	s := newTestServer(t, nil)

	s.do(t, http.MethodPost, "/api/message", `{"session_id":"u1","content":"hello"}`)
	rec := s.do(t, http.MethodPost, "/api/message", `{"session_id":"u1","content":"#clear memory"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"type":"info","content":"memory cleared"}`, rec.Body.String())
	assert.Len(t, s.sessions.Session("u1").Messages(), 1)
}

func TestHandleMessage_BadRequests(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		name   string
		method string
		body   string
		want   int
	}{
		{"wrong method", http.MethodGet, "", http.StatusMethodNotAllowed},
		{"invalid json", http.MethodPost, "{", http.StatusBadRequest},
		{"missing session", http.MethodPost, `{"content":"hello"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, tt.method, "/api/message", tt.body)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestHandleMessage_ReplierResults(t *testing.T) {
	rec := newTestServer(t, stubReplier{}).do(t, http.MethodPost, "/api/message", `{"session_id":"u1","content":"draw"}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = newTestServer(t, stubReplier{err: errors.New("exploded")}).do(t, http.MethodPost, "/api/message", `{"session_id":"u1","content":"hi"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "exploded")
}

func TestGetUsage(t *testing.T) {
	s := newTestServer(t, nil)

	s.do(t, http.MethodPost, "/api/message", `{"session_id":"u1","content":"one"}`)
	s.do(t, http.MethodPost, "/api/message", `{"session_id":"u1","content":"two"}`)
	s.do(t, http.MethodPost, "/api/message", `{"session_id":"u2","content":"other"}`)

	rec := s.do(t, http.MethodGet, "/api/usage?session_id=u1&limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp UsageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Summary)
	assert.Equal(t, 2, resp.Summary.Exchanges)
	assert.Equal(t, 4, resp.Summary.CompletionTokens)
	assert.Equal(t, 14, resp.Summary.TotalTokens)
	assert.Len(t, resp.Recent, 1)

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/api/usage", "").Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/api/usage?session_id=u1&limit=x", "").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, s.do(t, http.MethodPost, "/api/usage?session_id=u1", "").Code)
}

func TestSessions(t *testing.T) {
	s := newTestServer(t, nil)

	s.do(t, http.MethodPost, "/api/message", `{"session_id":"u1","content":"one"}`)
	s.do(t, http.MethodPost, "/api/message", `{"session_id":"u2","content":"two"}`)

	rec := s.do(t, http.MethodGet, "/api/sessions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var stats map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 2, stats["total"])

	rec = s.do(t, http.MethodDelete, "/api/sessions?session_id=u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, s.sessions.Session("u1").Messages(), 1)

	summary, err := s.ledger.Summary(context.Background(), "u1")
	require.NoError(t, err)
	assert.Zero(t, summary.Exchanges)

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodDelete, "/api/sessions", "").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, s.do(t, http.MethodPut, "/api/sessions", "").Code)
}
