package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/futdex/futdex/internal/api"
	"github.com/futdex/futdex/internal/progress"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the roster API",
		Long: `Starts the HTTP API over the archived roster. The most recent
archived snapshot is published at boot; POST /v1/refresh triggers a new
crawl in the background.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := newRuntime()
			if err != nil {
				return err
			}
			defer rt.close()

			orch, err := rt.buildOrchestrator(progress.NewLogSink(rt.logger))
			if err != nil {
				return err
			}
			store, err := rt.openArchive()
			if err != nil {
				return err
			}
			defer store.Close()

			holder := &api.Holder{}
			if snap, ok, err := store.Latest(cmd.Context()); err != nil {
				rt.logger.Warn("could not load archived snapshot", zap.Error(err))
			} else if ok {
				holder.Publish(snap)
				rt.logger.Info("published archived snapshot",
					zap.Int("players", len(snap.Players)),
					zap.Time("generated_at", snap.GeneratedAt),
				)
			}

			server := api.NewServer(orch, store, holder, rt.logger)
			httpServer := &http.Server{
				Addr:              fmt.Sprintf(":%d", rt.cfg.Server.Port),
				Handler:           server.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				rt.logger.Info("api listening", zap.String("addr", httpServer.Addr))
				errCh <- httpServer.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				return fmt.Errorf("serve: %w", err)
			case <-ctx.Done():
			}

			rt.logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("shutdown: %w", err)
			}
			return nil
		},
	}
}
