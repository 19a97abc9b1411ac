package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/RichardoC/padi-bot/internal/api"
	"github.com/RichardoC/padi-bot/internal/config"
	"github.com/RichardoC/padi-bot/internal/db"
	"github.com/spf13/cobra"
)

func newUsageCmd() *cobra.Command {
	var (
		sessionID string
		limit     int
	)

	cmd := &cobra.Command{
		Use:     "usage",
		Short:   "Show token usage recorded for a session",
		Example: "  padi-bot usage --session terminal --limit 10",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			ledger, err := db.New(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("failed to open usage database %s: %w", cfg.DBPath, err)
			}
			defer ledger.Close()
			return printUsage(cmd.Context(), ledger, sessionID, limit, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "session id")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of recent exchanges to list")
	cmd.MarkFlagRequired("session")
	return cmd
}

func printUsage(ctx context.Context, usage api.UsageStore, sessionID string, limit int, out io.Writer) error {
	sum, err := usage.Summary(ctx, sessionID)
	if err != nil {
		return err
	}
	recent, err := usage.RecentUsage(ctx, sessionID, limit)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "session %s: %d exchanges, %d errors, %d completion tokens, %d total tokens\n",
		sum.SessionID, sum.Exchanges, sum.Errors, sum.CompletionTokens, sum.TotalTokens)
	if len(recent) == 0 {
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tMODEL\tTYPE\tPROMPT\tCOMPLETION\tTOTAL\tATTEMPTS")
	for _, r := range recent {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%d\n",
			r.CreatedAt.Local().Format(time.DateTime), r.Model, r.ReplyType,
			r.PromptTokens, r.CompletionTokens, r.TotalTokens, r.Attempts)
	}
	return w.Flush()
}
