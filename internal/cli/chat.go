package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/RichardoC/padi-bot/internal/api"
	"github.com/RichardoC/padi-bot/internal/bot"
	"github.com/spf13/cobra"
)

func newChatCmd() *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the bot on the terminal",
		Long:  "Reads one message per line from stdin. Control commands such as \"#clear memory\" work as they do over HTTP.",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger()
			if err != nil {
				return err
			}
			defer logger.Sync()

			a, err := newApp(cfgFile, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return chatLoop(ctx, a.bot, sessionID, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&sessionID, "session", "s", "terminal", "session id to chat in")
	return cmd
}

func chatLoop(ctx context.Context, replier api.Replier, sessionID string, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		reply, err := replier.Reply(ctx, bot.Query{Kind: bot.QueryText, SessionID: sessionID, Text: text})
		if err != nil {
			return err
		}
		if reply == nil {
			continue
		}
		switch reply.Type {
		case bot.ReplyInfo:
			fmt.Fprintf(out, "[info] %s\n", reply.Content)
		case bot.ReplyError:
			fmt.Fprintf(out, "[error] %s\n", reply.Content)
		default:
			fmt.Fprintln(out, reply.Content)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}
