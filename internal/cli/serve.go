package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/RichardoC/padi-bot/internal/api"
	"github.com/RichardoC/padi-bot/internal/session"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the bot over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(addr)
		},
	}
	cmd.Flags().StringVar(&addr, "listen", "", "listen address (overrides listen_addr)")
	return cmd
}

func runServe(addr string) error {
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

	if addr == "" {
		addr = a.store.Get().ListenAddr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	janitor := session.NewJanitor(a.sessions, session.DefaultCleanupInterval, logger.Named("janitor"))
	janitor.Start(ctx)
	defer janitor.Stop()

	mux := http.NewServeMux()
	api.NewHandler(a.bot, a.sessions, a.ledger, logger.Named("api")).Routes(mux)

	srv := &http.Server{Addr: addr, Handler: mux}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
