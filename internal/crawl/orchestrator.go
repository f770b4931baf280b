// Package crawl drives the page walk: fetch, extract, checkpoint, and merge
// into a snapshot. One crawl run is strictly sequential with a single
// outstanding request at a time; callers must not run two crawls at once or
// checkpoint semantics break. That serialization is the caller's obligation.
package crawl

import (
	"context"
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/futdex/futdex/internal/checkpoint"
	"github.com/futdex/futdex/internal/extract"
	"github.com/futdex/futdex/internal/fetcher"
	"github.com/futdex/futdex/internal/metrics"
	"github.com/futdex/futdex/internal/progress"
	"github.com/futdex/futdex/internal/roster"
)

// PageFetcher fetches one URL and returns its body text.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Extractor turns a parsed document into player records.
type Extractor interface {
	Players(doc *goquery.Document) []roster.Player
}

// Config controls the walk.
type Config struct {
	// PageURLPattern holds one %d for the 1-based page number.
	PageURLPattern string
	// DelayMin/DelayMax bound the jittered politeness delay between pages.
	DelayMin time.Duration
	DelayMax time.Duration
	// DebugPageCap truncates the walk when > 0.
	DebugPageCap int
}

// Orchestrator runs crawl runs and produces snapshots.
type Orchestrator struct {
	cfg         Config
	fetcher     PageFetcher
	extractor   Extractor
	checkpoints *checkpoint.Store
	sink        progress.Sink
	logger      *zap.Logger
	pauser      fetcher.Pauser
	jitter      func(min, max time.Duration) time.Duration
	now         func() time.Time
}

// New builds an Orchestrator.
func New(
	cfg Config,
	pages PageFetcher,
	extractor Extractor,
	checkpoints *checkpoint.Store,
	sink progress.Sink,
	logger *zap.Logger,
) *Orchestrator {
	if sink == nil {
		sink = progress.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		cfg:         cfg,
		fetcher:     pages,
		extractor:   extractor,
		checkpoints: checkpoints,
		sink:        sink,
		logger:      logger,
		pauser:      fetcher.TimerPauser{},
		jitter:      fetcher.Jitter,
		now:         time.Now,
	}
}

// Run walks the source from the resume point through the last page and
// returns the deduplicated snapshot. On interruption it returns whatever was
// accumulated, with the error, leaving the checkpoint where the next run
// can pick up.
func (o *Orchestrator) Run(ctx context.Context) (roster.Snapshot, error) {
	runID := uuid.NewString()
	started := o.now()

	// Resume decision: a zero checkpoint starts at page 1; otherwise the
	// checkpointed page itself is re-fetched and re-extracted. Extraction
	// is idempotent and the dedupe pass makes the repeat merge-safe.
	cp := o.checkpoints.Load(ctx)
	startPage := 1
	if cp.LastPageDone > 0 {
		startPage = cp.LastPageDone
		o.sink.Line(fmt.Sprintf("crawl %s resuming from page %d", runID, startPage))
	}

	firstBody, err := o.fetcher.Fetch(ctx, o.pageURL(startPage))
	if err != nil {
		// Nothing recorded yet; the whole run aborts before any progress.
		metrics.ObserveRun("interrupted", o.now().Sub(started).Seconds())
		return roster.Snapshot{}, fmt.Errorf("crawl init page %d: %w", startPage, err)
	}
	firstDoc, limit := o.probe(firstBody)

	o.sink.Line(fmt.Sprintf("crawl %s walking pages %d..%d", runID, startPage, limit))

	var accumulator []roster.Player
	accumulator = o.appendPage(accumulator, firstDoc)
	if err := o.checkpoints.Save(ctx, startPage); err != nil {
		return o.finalize(accumulator, limit, started, "interrupted"),
			fmt.Errorf("checkpoint page %d: %w", startPage, err)
	}

	for page := startPage + 1; page <= limit; page++ {
		if err := o.pauser.Pause(ctx, o.jitter(o.cfg.DelayMin, o.cfg.DelayMax)); err != nil {
			return o.finalize(accumulator, limit, started, "interrupted"),
				fmt.Errorf("crawl canceled before page %d: %w", page, err)
		}
		body, err := o.fetcher.Fetch(ctx, o.pageURL(page))
		if err != nil {
			// The loop stops here; the last saved checkpoint stays intact
			// so a later run resumes at the failed page's predecessor.
			return o.finalize(accumulator, limit, started, "interrupted"),
				fmt.Errorf("crawl page %d: %w", page, err)
		}
		doc, parseErr := extract.Parse(body)
		if parseErr != nil {
			// Unparsable markup is an extraction mismatch: zero records
			// for this page, the walk continues.
			o.logger.Warn("page parse failed", zap.Int("page", page), zap.Error(parseErr))
		} else {
			accumulator = o.appendPage(accumulator, doc)
		}
		if err := o.checkpoints.Save(ctx, page); err != nil {
			return o.finalize(accumulator, limit, started, "interrupted"),
				fmt.Errorf("checkpoint page %d: %w", page, err)
		}
		if page%10 == 0 {
			o.sink.Line(fmt.Sprintf("page %d/%d done, %d players so far", page, limit, len(accumulator)))
		}
	}

	if err := o.checkpoints.Reset(ctx); err != nil {
		// A stale checkpoint at the final page is safe: the next run would
		// re-fetch one already-processed page and dedupe it away.
		o.logger.Warn("checkpoint reset failed", zap.Error(err))
	}

	snapshot := o.finalize(accumulator, limit, started, "completed")
	o.sink.Line(fmt.Sprintf("crawl %s complete: %d pages, %d players", runID, limit, len(snapshot.Players)))
	return snapshot, nil
}

// probe parses the first document and computes the page limit from the
// paginator, honoring the debug cap.
func (o *Orchestrator) probe(body string) (*goquery.Document, int) {
	doc, err := extract.Parse(body)
	if err != nil {
		o.logger.Warn("first page parse failed", zap.Error(err))
		return nil, 1
	}
	limit := extract.LastPage(doc)
	if o.cfg.DebugPageCap > 0 && o.cfg.DebugPageCap < limit {
		limit = o.cfg.DebugPageCap
	}
	return doc, limit
}

func (o *Orchestrator) appendPage(accumulator []roster.Player, doc *goquery.Document) []roster.Player {
	if doc == nil {
		return accumulator
	}
	players := o.extractor.Players(doc)
	metrics.ObservePage(len(players))
	return append(accumulator, players...)
}

func (o *Orchestrator) finalize(accumulator []roster.Player, limit int, started time.Time, status string) roster.Snapshot {
	metrics.ObserveRun(status, o.now().Sub(started).Seconds())
	return roster.Snapshot{
		Players:     roster.Dedupe(accumulator),
		PageCount:   limit,
		GeneratedAt: o.now(),
	}
}

func (o *Orchestrator) pageURL(page int) string {
	return fmt.Sprintf(o.cfg.PageURLPattern, page)
}
