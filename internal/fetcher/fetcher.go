// Package fetcher implements the politeness-aware retry layer over a plain
// HTTP GET capability. Retry policy lives entirely here; the Getter below is
// expected to issue exactly one request per call.
package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/futdex/futdex/internal/metrics"
	"github.com/futdex/futdex/internal/progress"
)

// Response is the raw outcome of one HTTP GET.
type Response struct {
	Status int
	Body   string
}

// Getter issues a single HTTP GET with the supplied headers, following
// redirects, with no built-in retry. HTTP error statuses are returned in
// Response, not as an error; the error return is for transport failures.
type Getter interface {
	Get(ctx context.Context, url string, headers http.Header) (Response, error)
}

// Pauser abstracts how the fetcher waits between attempts so tests never
// sleep for real.
type Pauser interface {
	Pause(ctx context.Context, delay time.Duration) error
}

// TimerPauser waits on a timer, honoring context cancellation.
type TimerPauser struct{}

// Pause implements Pauser.
func (TimerPauser) Pause(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// FetchError is the terminal failure for a URL: either a non-retryable
// status, or a retryable one that survived the whole attempt budget.
type FetchError struct {
	URL      string
	Status   int
	Attempts int
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: status %d after %d attempt(s)", e.URL, e.Status, e.Attempts)
}

// Config controls retry behavior.
type Config struct {
	UserAgent      string
	AcceptLanguage string
	// MaxAttempts is the total attempt budget, including the first try.
	MaxAttempts int
	// BackoffBase is the unit multiplied by 2^attempt; BackoffCap bounds
	// the result per attempt.
	BackoffBase time.Duration
	BackoffCap  time.Duration
	// JitterMin/JitterMax bound the uniform jitter added to every backoff.
	JitterMin time.Duration
	JitterMax time.Duration
}

const (
	defaultMaxAttempts = 5
	defaultBackoffBase = time.Second
	defaultBackoffCap  = 60 * time.Second
	defaultJitterMin   = 2500 * time.Millisecond
	defaultJitterMax   = 4000 * time.Millisecond
)

// Fetcher retries transient remote errors with capped, jittered exponential
// backoff and reports each retry through the progress sink.
type Fetcher struct {
	getter Getter
	cfg    Config
	pauser Pauser
	sink   progress.Sink
	logger *zap.Logger
	jitter func(min, max time.Duration) time.Duration
}

// New builds a Fetcher with config defaults filled in.
func New(getter Getter, cfg Config, sink progress.Sink, logger *zap.Logger) *Fetcher {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = defaultBackoffBase
	}
	if cfg.BackoffCap <= 0 {
		cfg.BackoffCap = defaultBackoffCap
	}
	if cfg.JitterMin <= 0 {
		cfg.JitterMin = defaultJitterMin
	}
	if cfg.JitterMax < cfg.JitterMin {
		cfg.JitterMax = defaultJitterMax
	}
	if sink == nil {
		sink = progress.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{
		getter: getter,
		cfg:    cfg,
		pauser: TimerPauser{},
		sink:   sink,
		logger: logger,
		jitter: Jitter,
	}
}

// Fetch returns the body of url, retrying 429/5xx responses until the
// attempt budget runs out. Any other non-2xx status fails immediately.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	headers := f.headers()
	for attempt := 1; ; attempt++ {
		resp, err := f.getter.Get(ctx, url, headers)
		if err != nil {
			// Transport failures are not retried; a dead connection is
			// indistinguishable from a source that wants us gone.
			metrics.ObserveFetch("fatal")
			return "", fmt.Errorf("fetch %s: %w", url, err)
		}
		if resp.Status >= 200 && resp.Status < 400 {
			metrics.ObserveFetch("ok")
			return resp.Body, nil
		}
		if !retryable(resp.Status) {
			metrics.ObserveFetch("fatal")
			f.logger.Warn("non-retryable status",
				zap.String("url", url),
				zap.Int("status", resp.Status),
			)
			return "", &FetchError{URL: url, Status: resp.Status, Attempts: attempt}
		}
		metrics.ObserveFetch("retryable")
		if attempt >= f.cfg.MaxAttempts {
			return "", &FetchError{URL: url, Status: resp.Status, Attempts: attempt}
		}
		wait := f.backoff(attempt)
		f.sink.Line(fmt.Sprintf("status %d on %s, retry %d of %d in %s",
			resp.Status, url, attempt, f.cfg.MaxAttempts-1, wait.Round(time.Millisecond)))
		metrics.ObserveRetry()
		if err := f.pauser.Pause(ctx, wait); err != nil {
			return "", fmt.Errorf("fetch %s: %w", url, err)
		}
	}
}

func (f *Fetcher) headers() http.Header {
	h := http.Header{}
	if f.cfg.UserAgent != "" {
		h.Set("User-Agent", f.cfg.UserAgent)
	}
	if f.cfg.AcceptLanguage != "" {
		h.Set("Accept-Language", f.cfg.AcceptLanguage)
	}
	h.Set("Accept", "text/html,application/xhtml+xml")
	return h
}

// backoff returns min(cap, base*2^attempt) plus uniform jitter drawn from
// the configured window.
func (f *Fetcher) backoff(attempt int) time.Duration {
	delay := f.cfg.BackoffBase
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= f.cfg.BackoffCap {
			delay = f.cfg.BackoffCap
			break
		}
	}
	return delay + f.jitter(f.cfg.JitterMin, f.cfg.JitterMax)
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}
