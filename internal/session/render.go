package session

import (
	"strings"

	"github.com/RichardoC/padi-bot/internal/models"
)

// EndOfText separates turns in the legacy completion prompt.
const EndOfText = "<|endoftext|>"

// Renderer turns an ordered history into the text sent to (or counted
// for) the remote model. Which renderer a session uses is decided by the
// completion client it talks to.
type Renderer interface {
	Render(turns []models.Turn) string
}

// PromptRenderer renders the raw-text prompt of a legacy completion API:
//
//	{system}<|endoftext|>
//
//
//	Q: {user}
//
//
//	A: {assistant}<|endoftext|>
//	Q: {user}
//	A:
type PromptRenderer struct{}

// Render implements Renderer.
func (PromptRenderer) Render(turns []models.Turn) string {
	var b strings.Builder
	for _, t := range turns {
		switch t.Role {
		case models.RoleSystem:
			b.WriteString(t.Content + EndOfText + "\n\n\n")
		case models.RoleUser:
			b.WriteString("Q: " + t.Content + "\n")
		case models.RoleAssistant:
			b.WriteString("\n\nA: " + t.Content + EndOfText + "\n")
		}
	}
	if endsWithUser(turns) {
		b.WriteString("A: ")
	}
	return b.String()
}

// ChatRenderer renders a chat message list in ChatML form, which is how
// chat-completion endpoints account for it.
type ChatRenderer struct{}

// Render implements Renderer.
func (ChatRenderer) Render(turns []models.Turn) string {
	var b strings.Builder
	for _, t := range turns {
		b.WriteString("<|im_start|>" + string(t.Role) + "\n" + t.Content + "<|im_end|>\n")
	}
	if endsWithUser(turns) {
		b.WriteString("<|im_start|>assistant\n")
	}
	return b.String()
}

func endsWithUser(turns []models.Turn) bool {
	return len(turns) > 0 && turns[len(turns)-1].Role == models.RoleUser
}
