// Package collygetter implements the fetcher.Getter capability using the
// gocolly collector. It performs exactly one GET per call; retry policy is
// the caller's business.
package collygetter

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/futdex/futdex/internal/fetcher"
)

// Config controls collector behavior.
type Config struct {
	UserAgent string
	Timeout   time.Duration
}

// Getter wraps a base colly collector cloned per request.
type Getter struct {
	cfg           Config
	baseCollector *colly.Collector
}

// New builds a Getter with a pooled transport.
func New(cfg Config) *Getter {
	c := colly.NewCollector(colly.Async(false))
	c.AllowURLRevisit = true
	c.IgnoreRobotsTxt = true
	c.WithTransport(&http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          16,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: cfg.Timeout,
		ForceAttemptHTTP2:     true,
	})
	if cfg.Timeout > 0 {
		c.SetRequestTimeout(cfg.Timeout)
	}
	return &Getter{cfg: cfg, baseCollector: c}
}

// Get issues one GET for url. HTTP error statuses come back in the Response
// with a nil error so the retry layer can classify them; the error return is
// reserved for transport-level failures.
func (g *Getter) Get(ctx context.Context, url string, headers http.Header) (fetcher.Response, error) {
	if err := ctx.Err(); err != nil {
		return fetcher.Response{}, err
	}

	collector := g.baseCollector.Clone()
	if g.cfg.UserAgent != "" {
		collector.UserAgent = g.cfg.UserAgent
	}

	var (
		result   fetcher.Response
		got      bool
		fetchErr error
	)

	collector.OnRequest(func(r *colly.Request) {
		for key, values := range headers {
			for _, v := range values {
				r.Headers.Set(key, v)
			}
		}
	})
	collector.OnResponse(func(r *colly.Response) {
		result = fetcher.Response{Status: r.StatusCode, Body: string(r.Body)}
		got = true
	})
	collector.OnError(func(r *colly.Response, err error) {
		// Colly routes non-2xx statuses here; surface them as responses.
		if r != nil && r.StatusCode > 0 {
			result = fetcher.Response{Status: r.StatusCode, Body: string(r.Body)}
			got = true
			return
		}
		fetchErr = err
	})

	if err := collector.Visit(url); err != nil && fetchErr == nil && !got {
		fetchErr = err
	}
	collector.Wait()

	if err := ctx.Err(); err != nil {
		return fetcher.Response{}, err
	}
	if got {
		return result, nil
	}
	if fetchErr == nil {
		fetchErr = errors.New("colly fetch produced no result")
	}
	return fetcher.Response{}, fetchErr
}
