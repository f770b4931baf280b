// Package cmd defines and implements the CLI commands for the futdex
// executable.
package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/futdex/futdex/internal/archive"
	"github.com/futdex/futdex/internal/checkpoint"
	"github.com/futdex/futdex/internal/config"
	"github.com/futdex/futdex/internal/crawl"
	"github.com/futdex/futdex/internal/extract"
	"github.com/futdex/futdex/internal/fetcher"
	collygetter "github.com/futdex/futdex/internal/fetcher/colly"
	"github.com/futdex/futdex/internal/logging"
	"github.com/futdex/futdex/internal/progress"
	"github.com/futdex/futdex/internal/storage/local"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "futdex",
		Short: "A polite harvester for paginated player-rating tables",
		Long: `futdex incrementally harvests player records from a paginated,
rate-limited rating site and maintains a locally queryable snapshot.
Crawls are resumable: an interrupted run picks up from the last fully
processed page.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to config file")
	cmd.AddCommand(newCrawlCmd())
	cmd.AddCommand(newServeCmd())
	return cmd
}

// Execute runs the CLI.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// runtime holds the long-lived services a command needs.
type runtime struct {
	cfg    config.Config
	logger *zap.Logger
}

func newRuntime() (*runtime, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return &runtime{cfg: cfg, logger: logger}, nil
}

func (rt *runtime) close() {
	_ = rt.logger.Sync()
}

// buildOrchestrator wires the full crawl pipeline from config.
func (rt *runtime) buildOrchestrator(sink progress.Sink) (*crawl.Orchestrator, error) {
	blobs, err := local.New(local.Config{BaseDir: rt.cfg.Storage.DataDir})
	if err != nil {
		return nil, fmt.Errorf("open blob store: %w", err)
	}
	checkpoints := checkpoint.NewStore(blobs, "", rt.logger)

	getter := collygetter.New(collygetter.Config{
		UserAgent: rt.cfg.Source.UserAgent,
		Timeout:   rt.cfg.HTTPTimeout(),
	})
	pages := fetcher.New(getter, fetcher.Config{
		UserAgent:      rt.cfg.Source.UserAgent,
		AcceptLanguage: rt.cfg.Source.AcceptLanguage,
		MaxAttempts:    rt.cfg.HTTP.MaxAttempts,
		BackoffCap:     time.Duration(rt.cfg.HTTP.BackoffCapMs) * time.Millisecond,
		JitterMin:      time.Duration(rt.cfg.HTTP.RetryJitterMinMs) * time.Millisecond,
		JitterMax:      time.Duration(rt.cfg.HTTP.RetryJitterMaxMs) * time.Millisecond,
	}, sink, rt.logger)

	// Detail links resolve against the page-1 URL.
	baseURL := fmt.Sprintf(rt.cfg.Source.PageURLPattern, 1)
	extractor := extract.New(extract.DefaultLocator(), baseURL, rt.logger)

	return crawl.New(crawl.Config{
		PageURLPattern: rt.cfg.Source.PageURLPattern,
		DelayMin:       time.Duration(rt.cfg.Crawl.DelayMinMs) * time.Millisecond,
		DelayMax:       time.Duration(rt.cfg.Crawl.DelayMaxMs) * time.Millisecond,
		DebugPageCap:   rt.cfg.Crawl.DebugPageCap,
	}, pages, extractor, checkpoints, sink, rt.logger), nil
}

func (rt *runtime) openArchive() (*archive.Archive, error) {
	store, err := archive.Open(rt.cfg.Storage.ArchivePath)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	return store, nil
}
