package models

import "time"

// Role tags the speaker of a turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message of a conversation. Turns are never mutated after
// they are appended to a session.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// UsageRecord is one answered (or failed) query as written to the usage ledger.
type UsageRecord struct {
	ID               string    `json:"id"`
	SessionID        string    `json:"session_id"`
	Model            string    `json:"model"`
	ReplyType        string    `json:"reply_type"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	TotalTokens      int       `json:"total_tokens"`
	Attempts         int       `json:"attempts"`
	CreatedAt        time.Time `json:"created_at"`
}

// UsageSummary aggregates the ledger for one session.
type UsageSummary struct {
	SessionID        string `json:"session_id"`
	Exchanges        int    `json:"exchanges"`
	CompletionTokens int    `json:"completion_tokens"`
	TotalTokens      int    `json:"total_tokens"`
	Errors           int    `json:"errors"`
}
