// Package inlaycore composes the building blocks of document augmentation:
// cached content fetching for acquisition handlers, an atomic output
// publisher, and a deadline wrapper for whole-document runs.
package inlaycore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/inlay-dev/inlay-core/cache"
	"github.com/inlay-dev/inlay-core/handler/ports"
	"github.com/inlay-dev/inlay-core/netutil"
	"github.com/inlay-dev/inlay-core/schedule"
)

// DefaultMaxFetchBytes bounds one fetched document.
const DefaultMaxFetchBytes int64 = 8 << 20

// ErrContentUnavailable is returned when a fetch fails and the cache holds
// nothing to fall back to.
var ErrContentUnavailable = errors.New("content unavailable")

// Fetcher retrieves content through the cache: a valid entry short-circuits
// the network, a successful fetch refreshes the cache, and a failed fetch
// degrades to a stale entry when one exists.
type Fetcher struct {
	cache      *cache.Cache
	httpClient *http.Client
	maxBytes   int64
	logger     *slog.Logger
}

var _ ports.Fetcher = (*Fetcher)(nil)

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithHTTPClient substitutes the HTTP client, dropping the default retrying
// transport.
func WithHTTPClient(hc *http.Client) FetcherOption {
	return func(f *Fetcher) { f.httpClient = hc }
}

// WithMaxFetchBytes overrides the per-document size bound.
func WithMaxFetchBytes(n int64) FetcherOption {
	return func(f *Fetcher) { f.maxBytes = n }
}

// WithFetchLogger sets the fetcher's logger.
func WithFetchLogger(logger *slog.Logger) FetcherOption {
	return func(f *Fetcher) { f.logger = logger }
}

// NewFetcher creates a cache-composing fetcher.
func NewFetcher(contentCache *cache.Cache, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		cache: contentCache,
		httpClient: &http.Client{
			Transport: &netutil.RetryTransport{Base: http.DefaultTransport},
			Timeout:   30 * time.Second,
		},
		maxBytes: DefaultMaxFetchBytes,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch returns the content of url under the given refresh schedule.
func (f *Fetcher) Fetch(ctx context.Context, url string, spec schedule.Spec) ([]byte, error) {
	cached, status, err := f.cache.Lookup(url, spec)
	if err != nil {
		// A corrupt entry is a hard local failure; the network cannot make
		// the cache trustworthy again for this URL.
		return nil, fmt.Errorf("cache lookup for %s: %w", netutil.StripCredentials(url), err)
	}
	if status == cache.StatusValid {
		return cached, nil
	}

	data, fetchErr := f.fetch(ctx, url)
	if fetchErr == nil {
		if err := f.cache.Store(url, data); err != nil {
			f.logger.Warn("caching fetched content failed",
				"url", netutil.StripCredentials(url), "error", err)
		}
		return data, nil
	}

	if status == cache.StatusStale {
		f.logger.Warn("fetch failed, using stale cache entry",
			"url", netutil.StripCredentials(url), "error", fetchErr)
		return cached, nil
	}
	return nil, fmt.Errorf("%w: %s: %v", ErrContentUnavailable, netutil.StripCredentials(url), fetchErr)
}

func (f *Fetcher) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(netutil.NewLimitedReader(resp.Body, f.maxBytes))
}
