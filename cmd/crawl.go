package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/futdex/futdex/internal/progress"
)

func newCrawlCmd() *cobra.Command {
	var skipArchive bool

	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Run one crawl and archive the resulting snapshot",
		Long: `Walks the source site page by page, resuming from the last
checkpoint if a previous run was interrupted, and writes the deduplicated
snapshot into the local archive.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := newRuntime()
			if err != nil {
				return err
			}
			defer rt.close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			sink := progress.Multi{
				progress.NewWriterSink(cmd.OutOrStdout()),
				progress.NewLogSink(rt.logger),
			}
			orch, err := rt.buildOrchestrator(sink)
			if err != nil {
				return err
			}

			started := time.Now()
			snap, runErr := orch.Run(ctx)
			if runErr != nil {
				rt.logger.Error("crawl failed",
					zap.Int("players_collected", len(snap.Players)),
					zap.Error(runErr),
				)
				return fmt.Errorf("crawl: %w", runErr)
			}

			if !skipArchive {
				store, err := rt.openArchive()
				if err != nil {
					return err
				}
				defer store.Close()
				if err := store.Save(ctx, snap); err != nil {
					return fmt.Errorf("archive snapshot: %w", err)
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "crawled %d page(s), %d player(s) in %s\n",
				snap.PageCount, len(snap.Players), time.Since(started).Round(time.Second))
			return nil
		},
	}
	cmd.Flags().BoolVar(&skipArchive, "skip-archive", false, "do not persist the snapshot")
	return cmd
}
