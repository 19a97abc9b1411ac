package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/RichardoC/padi-bot/internal/bot"
	"github.com/RichardoC/padi-bot/internal/config"
	"github.com/RichardoC/padi-bot/internal/db"
	"github.com/RichardoC/padi-bot/internal/llm"
	"github.com/RichardoC/padi-bot/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type cannedReplier struct {
	queries []bot.Query
	replies map[string]*bot.Reply
	err     error
}

func (c *cannedReplier) Reply(_ context.Context, q bot.Query) (*bot.Reply, error) {
	c.queries = append(c.queries, q)
	if c.err != nil {
		return nil, c.err
	}
	return c.replies[q.Text], nil
}

func TestRootCmd_Subcommands(t *testing.T) {
	root := NewRootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"serve", "chat", "usage"}, names)
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
}

func TestNewClient(t *testing.T) {
	logger := zaptest.NewLogger(t)
	cfg := config.Default()
	cfg.APIKey = "test-key"

	client, err := newClient(cfg, logger)
	require.NoError(t, err)
	assert.IsType(t, &llm.Service{}, client)

	cfg.Backend = config.BackendCompletion
	client, err = newClient(cfg, logger)
	require.NoError(t, err)
	assert.IsType(t, &llm.CompletionClient{}, client)

	cfg.Backend = "smoke-signals"
	_, err = newClient(cfg, logger)
	assert.Error(t, err)
}

func TestChatLoop(t *testing.T) {
	replier := &cannedReplier{replies: map[string]*bot.Reply{
		"hello":         {Type: bot.ReplyText, Content: "hi!"},
		"#clear memory": {Type: bot.ReplyInfo, Content: "memory cleared"},
		"broken":        {Type: bot.ReplyError, Content: "the model server failed"},
	}}
	in := strings.NewReader("hello\n\n#clear memory\nbroken\nunknown kind\n")
	var out bytes.Buffer

	require.NoError(t, chatLoop(context.Background(), replier, "term", in, &out))

	assert.Len(t, replier.queries, 4, "blank lines are skipped")
	for _, q := range replier.queries {
		assert.Equal(t, "term", q.SessionID)
		assert.Equal(t, bot.QueryText, q.Kind)
	}
	got := out.String()
	assert.Contains(t, got, "hi!\n")
	assert.Contains(t, got, "[info] memory cleared\n")
	assert.Contains(t, got, "[error] the model server failed\n")
}

func TestChatLoop_ReplierError(t *testing.T) {
	replier := &cannedReplier{err: errors.New("no session")}
	err := chatLoop(context.Background(), replier, "term", strings.NewReader("hello\n"), &bytes.Buffer{})
	assert.EqualError(t, err, "no session")
}

func TestPrintUsage(t *testing.T) {
	ledger, err := db.New(":memory:")
	require.NoError(t, err)
	defer ledger.Close()

	ctx := context.Background()
	require.NoError(t, ledger.RecordUsage(ctx, &models.UsageRecord{
		SessionID: "term", Model: "deepseek-chat", ReplyType: "text",
		PromptTokens: 12, CompletionTokens: 3, TotalTokens: 15, Attempts: 1,
	}))
	require.NoError(t, ledger.RecordUsage(ctx, &models.UsageRecord{
		SessionID: "term", Model: "deepseek-chat", ReplyType: "error", Attempts: 3,
	}))

	var out bytes.Buffer
	require.NoError(t, printUsage(ctx, ledger, "term", 10, &out))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "session term: 2 exchanges, 1 errors, 3 completion tokens, 15 total tokens", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "TIME"))

	out.Reset()
	require.NoError(t, printUsage(ctx, ledger, "nobody", 10, &out))
	assert.Equal(t, "session nobody: 0 exchanges, 0 errors, 0 completion tokens, 0 total tokens\n", out.String())
}
