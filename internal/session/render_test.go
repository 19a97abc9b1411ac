package session

import (
	"testing"

	"github.com/RichardoC/padi-bot/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestPromptRenderer(t *testing.T) {
	tests := []struct {
		name  string
		turns []models.Turn
		want  string
	}{
		{
			name: "empty",
			want: "",
		},
		{
			name: "open question",
			turns: []models.Turn{
				{Role: models.RoleSystem, Content: "sys"},
				{Role: models.RoleUser, Content: "hi"},
			},
			want: "sys<|endoftext|>\n\n\nQ: hi\nA: ",
		},
		{
			name: "answered",
			turns: []models.Turn{
				{Role: models.RoleSystem, Content: "sys"},
				{Role: models.RoleUser, Content: "hi"},
				{Role: models.RoleAssistant, Content: "hello"},
			},
			want: "sys<|endoftext|>\n\n\nQ: hi\n\n\nA: hello<|endoftext|>\n",
		},
		{
			name: "follow up",
			turns: []models.Turn{
				{Role: models.RoleUser, Content: "hi"},
				{Role: models.RoleAssistant, Content: "hello"},
				{Role: models.RoleUser, Content: "how are you"},
			},
			want: "Q: hi\n\n\nA: hello<|endoftext|>\nQ: how are you\nA: ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PromptRenderer{}.Render(tt.turns))
		})
	}
}

func TestChatRenderer(t *testing.T) {
	turns := []models.Turn{
		{Role: models.RoleSystem, Content: "sys"},
		{Role: models.RoleUser, Content: "hi"},
	}
	want := "<|im_start|>system\nsys<|im_end|>\n" +
		"<|im_start|>user\nhi<|im_end|>\n" +
		"<|im_start|>assistant\n"
	assert.Equal(t, want, ChatRenderer{}.Render(turns))

	turns = append(turns, models.Turn{Role: models.RoleAssistant, Content: "hello"})
	want = "<|im_start|>system\nsys<|im_end|>\n" +
		"<|im_start|>user\nhi<|im_end|>\n" +
		"<|im_start|>assistant\nhello<|im_end|>\n"
	assert.Equal(t, want, ChatRenderer{}.Render(turns))
}
