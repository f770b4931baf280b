package crawl

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/futdex/futdex/internal/checkpoint"
	"github.com/futdex/futdex/internal/extract"
	"github.com/futdex/futdex/internal/roster"
	"github.com/futdex/futdex/internal/storage/memory"
)

const urlPattern = "https://ratings.example.com/players?page=%d"

// buildPage renders a source page with a paginator up to totalPages and one
// row per player id.
func buildPage(totalPages int, ids ...int) string {
	var sb strings.Builder
	sb.WriteString(`<html><body><table>`)
	sb.WriteString(`<tr><th>Name</th><th>Position</th><th>Team</th><th>Nation</th><th>Height</th><th>Weight</th><th>Age</th><th>Overall</th></tr>`)
	for _, id := range ids {
		fmt.Fprintf(&sb,
			`<tr><td><a href="/player/%d">Player %d</a></td><td>CM</td><td>Team %d</td><td>None</td><td>180</td><td>75</td><td>25</td><td>70</td></tr>`,
			id, id, id%3)
	}
	sb.WriteString(`</table><div class="pagination">`)
	for p := 1; p <= totalPages; p++ {
		fmt.Fprintf(&sb, `<a href="?page=%d">%d</a>`, p, p)
	}
	sb.WriteString(`</div></body></html>`)
	return sb.String()
}

// fakeFetcher serves scripted pages and can fail specific pages once.
type fakeFetcher struct {
	pages    map[string]string
	failOnce map[string]error
	requests []string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (string, error) {
	f.requests = append(f.requests, url)
	if err, ok := f.failOnce[url]; ok {
		delete(f.failOnce, url)
		return "", err
	}
	body, ok := f.pages[url]
	if !ok {
		return "", fmt.Errorf("unexpected url %s", url)
	}
	return body, nil
}

type instantPauser struct{ calls int }

func (p *instantPauser) Pause(context.Context, time.Duration) error {
	p.calls++
	return nil
}

func threePageSource() map[string]string {
	return map[string]string{
		fmt.Sprintf(urlPattern, 1): buildPage(3, 1, 2, 3, 4, 5),
		fmt.Sprintf(urlPattern, 2): buildPage(3, 6, 7, 8, 9, 10),
		fmt.Sprintf(urlPattern, 3): buildPage(3, 11, 12, 13, 14, 15),
	}
}

func newTestOrchestrator(cfg Config, pages *fakeFetcher, cp *checkpoint.Store) (*Orchestrator, *instantPauser) {
	if cfg.PageURLPattern == "" {
		cfg.PageURLPattern = urlPattern
	}
	o := New(cfg, pages, extract.New(nil, "https://ratings.example.com/", nil), cp, nil, nil)
	p := &instantPauser{}
	o.pauser = p
	o.jitter = func(min, _ time.Duration) time.Duration { return min }
	return o, p
}

func mergeKeys(players []roster.Player) map[string]struct{} {
	keys := make(map[string]struct{}, len(players))
	for _, p := range players {
		keys[p.MergeKey()] = struct{}{}
	}
	return keys
}

func TestRunFullCrawl(t *testing.T) {
	t.Parallel()

	cp := checkpoint.NewStore(memory.NewBlobStore(), "", nil)
	pages := &fakeFetcher{pages: threePageSource()}
	o, pauser := newTestOrchestrator(Config{}, pages, cp)

	snap, err := o.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, snap.PageCount)
	require.Len(t, snap.Players, 15)
	require.Equal(t, 2, pauser.calls, "politeness delay before every page after the first")
	require.Equal(t, 0, cp.Load(context.Background()).LastPageDone, "checkpoint reset on completion")

	require.Len(t, mergeKeys(snap.Players), 15, "merge keys pairwise distinct")
	require.Equal(t, "Player 1", snap.Players[0].Name, "page order preserved")
	require.Equal(t, "Player 15", snap.Players[14].Name)
}

func TestRunDeduplicatesAcrossPages(t *testing.T) {
	t.Parallel()

	source := threePageSource()
	// Player 10 appears on pages 2 and 3, with drifted details on page 3.
	dupRow := `<tr><td><a href="/player/10">Player 10 (stale)</a></td><td>CDM</td><td>Elsewhere</td><td>None</td><td>180</td><td>75</td><td>26</td><td>71</td></tr>`
	page3 := buildPage(3, 12, 13, 14, 15)
	source[fmt.Sprintf(urlPattern, 3)] = strings.Replace(page3, "</table>", dupRow+"</table>", 1)
	cp := checkpoint.NewStore(memory.NewBlobStore(), "", nil)
	o, _ := newTestOrchestrator(Config{}, &fakeFetcher{pages: source}, cp)

	snap, err := o.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, snap.Players, 14, "cross-page duplicate dropped")

	for _, p := range snap.Players {
		if p.ExternalID == "10" {
			require.Equal(t, "Player 10", p.Name, "first-seen copy from page 2 retained")
		}
	}
}

func TestRunIdempotentOverUnchangedSource(t *testing.T) {
	t.Parallel()

	cp := checkpoint.NewStore(memory.NewBlobStore(), "", nil)
	o, _ := newTestOrchestrator(Config{}, &fakeFetcher{pages: threePageSource()}, cp)

	first, err := o.Run(context.Background())
	require.NoError(t, err)
	second, err := o.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, first.Players, second.Players)
}

func TestRunInterruptionPreservesCheckpointAndPartialWork(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	blobs := memory.NewBlobStore()
	cp := checkpoint.NewStore(blobs, "", nil)

	pages := &fakeFetcher{
		pages:    threePageSource(),
		failOnce: map[string]error{fmt.Sprintf(urlPattern, 3): fmt.Errorf("status 500 after 5 attempt(s)")},
	}
	o, _ := newTestOrchestrator(Config{}, pages, cp)

	partial, err := o.Run(ctx)
	require.Error(t, err)
	require.Contains(t, err.Error(), "crawl page 3")
	require.Len(t, partial.Players, 10, "pages 1 and 2 accumulated before the failure")
	require.Equal(t, 2, cp.Load(ctx).LastPageDone, "checkpoint stays at the last completed page")

	// Second run resumes by reprocessing page 2, then continues through 3.
	resumed, err := o.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, fmt.Sprintf(urlPattern, 2), pages.requests[len(pages.requests)-2])
	require.Equal(t, fmt.Sprintf(urlPattern, 3), pages.requests[len(pages.requests)-1])
	require.Equal(t, 0, cp.Load(ctx).LastPageDone)

	// The partial and resumed runs together cover exactly what one clean
	// run of pages 1..3 covers.
	uninterrupted, err := newUninterrupted(t).Run(ctx)
	require.NoError(t, err)
	combined := mergeKeys(roster.Dedupe(append(partial.Players, resumed.Players...)))
	require.Equal(t, mergeKeys(uninterrupted.Players), combined)
}

func newUninterrupted(t *testing.T) *Orchestrator {
	t.Helper()
	cp := checkpoint.NewStore(memory.NewBlobStore(), "", nil)
	o, _ := newTestOrchestrator(Config{}, &fakeFetcher{pages: threePageSource()}, cp)
	return o
}

func TestRunInitFailureAbortsBeforeProgress(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cp := checkpoint.NewStore(memory.NewBlobStore(), "", nil)
	pages := &fakeFetcher{
		pages:    threePageSource(),
		failOnce: map[string]error{fmt.Sprintf(urlPattern, 1): fmt.Errorf("status 403")},
	}
	o, _ := newTestOrchestrator(Config{}, pages, cp)

	snap, err := o.Run(ctx)
	require.Error(t, err)
	require.Contains(t, err.Error(), "crawl init page 1")
	require.Empty(t, snap.Players)
	require.Equal(t, 0, cp.Load(ctx).LastPageDone, "no checkpoint written")
}

func TestRunDebugCapTruncatesWalk(t *testing.T) {
	t.Parallel()

	cp := checkpoint.NewStore(memory.NewBlobStore(), "", nil)
	pages := &fakeFetcher{pages: threePageSource()}
	o, _ := newTestOrchestrator(Config{DebugPageCap: 2}, pages, cp)

	snap, err := o.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, snap.PageCount)
	require.Len(t, snap.Players, 10)
	require.Len(t, pages.requests, 2, "page 3 never fetched")
}

func TestRunSinglePageSourceWithoutPaginator(t *testing.T) {
	t.Parallel()

	cp := checkpoint.NewStore(memory.NewBlobStore(), "", nil)
	pages := &fakeFetcher{pages: map[string]string{
		fmt.Sprintf(urlPattern, 1): buildPage(0, 1, 2),
	}}
	o, _ := newTestOrchestrator(Config{}, pages, cp)

	snap, err := o.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, snap.PageCount)
	require.Len(t, snap.Players, 2)
	require.Len(t, pages.requests, 1)
}

func TestRunEmitsProgressEveryTenPages(t *testing.T) {
	t.Parallel()

	source := make(map[string]string, 20)
	for p := 1; p <= 20; p++ {
		source[fmt.Sprintf(urlPattern, p)] = buildPage(20, p)
	}
	cp := checkpoint.NewStore(memory.NewBlobStore(), "", nil)
	pages := &fakeFetcher{pages: source}

	var lines []string
	o := New(Config{PageURLPattern: urlPattern}, pages,
		extract.New(nil, "https://ratings.example.com/", nil), cp,
		progressRecorder(&lines), nil)
	o.pauser = &instantPauser{}
	o.jitter = func(min, _ time.Duration) time.Duration { return min }

	_, err := o.Run(context.Background())
	require.NoError(t, err)

	var milestones []string
	for _, l := range lines {
		if strings.Contains(l, "/20 done") {
			milestones = append(milestones, l)
		}
	}
	require.Len(t, milestones, 2)
	require.Contains(t, milestones[0], "page 10/20")
	require.Contains(t, milestones[1], "page 20/20")
}

func TestRunCanceledContextReturnsPartial(t *testing.T) {
	t.Parallel()

	cp := checkpoint.NewStore(memory.NewBlobStore(), "", nil)
	pages := &fakeFetcher{pages: threePageSource()}
	o, _ := newTestOrchestrator(Config{}, pages, cp)

	ctx, cancel := context.WithCancel(context.Background())
	o.pauser = cancelingPauser{cancel: cancel}

	partial, err := o.Run(ctx)
	require.Error(t, err)
	require.Len(t, partial.Players, 5, "page 1 captured before cancellation")
	require.Equal(t, 1, cp.Load(context.Background()).LastPageDone)
}

type cancelingPauser struct{ cancel context.CancelFunc }

func (p cancelingPauser) Pause(ctx context.Context, _ time.Duration) error {
	p.cancel()
	return ctx.Err()
}

func progressRecorder(lines *[]string) progressFunc {
	return func(text string) { *lines = append(*lines, text) }
}

type progressFunc func(string)

func (f progressFunc) Line(text string) { f(text) }
