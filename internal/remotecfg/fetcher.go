// ABOUTME: Breaker-gated fetcher for remote configuration values
// ABOUTME: Caches last-known-good values to survive remote outages

package remotecfg

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/2389/chatsync/internal/breaker"
)

// Source is the configuration proxy's contract: fetch one or many named
// values. Both operations may fail transiently.
type Source interface {
	Get(ctx context.Context, name string) (string, error)
	GetMany(ctx context.Context, names []string) (map[string]string, error)
}

// Fetcher wraps a Source with breaker gating and a last-known-good cache.
type Fetcher struct {
	source  Source
	breaker *breaker.Breaker
	logger  *slog.Logger

	mu    sync.RWMutex
	cache map[string]string
}

// NewFetcher creates a Fetcher. A nil source yields only cache misses.
func NewFetcher(source Source, brk *breaker.Breaker, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		source:  source,
		breaker: brk,
		logger:  logger.With("component", "remotecfg"),
		cache:   make(map[string]string),
	}
}

// Get returns the named value, preferring a fresh fetch and falling back
// to the cached last-known-good value. The second result is false only
// when no value has ever been seen.
func (f *Fetcher) Get(ctx context.Context, name string) (string, bool) {
	if f.source == nil || f.breaker.IsOpen() {
		return f.cached(name)
	}

	value, err := f.source.Get(ctx, name)
	if err != nil {
		f.breaker.RecordFailure()
		f.logger.Warn("config fetch failed, using cached value", "name", name, "error", err)
		return f.cached(name)
	}
	f.breaker.RecordSuccess()

	f.mu.Lock()
	f.cache[name] = value
	f.mu.Unlock()
	return value, true
}

// GetMany returns the named values that are available, fetched or cached.
func (f *Fetcher) GetMany(ctx context.Context, names []string) map[string]string {
	if f.source == nil || f.breaker.IsOpen() {
		return f.cachedMany(names)
	}

	values, err := f.source.GetMany(ctx, names)
	if err != nil {
		f.breaker.RecordFailure()
		f.logger.Warn("config batch fetch failed, using cached values", "error", err)
		return f.cachedMany(names)
	}
	f.breaker.RecordSuccess()

	f.mu.Lock()
	for name, value := range values {
		f.cache[name] = value
	}
	f.mu.Unlock()
	return values
}

func (f *Fetcher) cached(name string) (string, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	v, ok := f.cache[name]
	return v, ok
}

func (f *Fetcher) cachedMany(names []string) map[string]string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make(map[string]string, len(names))
	for _, name := range names {
		if v, ok := f.cache[name]; ok {
			out[name] = v
		}
	}
	return out
}

// HTTPSource implements Source against the configuration proxy's JSON API.
type HTTPSource struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPSource creates a Source for the proxy at baseURL.
func NewHTTPSource(baseURL string, timeout time.Duration) *HTTPSource {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPSource{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Get fetches one named value.
func (s *HTTPSource) Get(ctx context.Context, name string) (string, error) {
	var out struct {
		Value string `json:"value"`
	}
	if err := s.get(ctx, "/v1/config/"+url.PathEscape(name), &out); err != nil {
		return "", err
	}
	return out.Value, nil
}

// GetMany fetches several named values in one round trip.
func (s *HTTPSource) GetMany(ctx context.Context, names []string) (map[string]string, error) {
	q := url.Values{}
	q.Set("names", strings.Join(names, ","))

	var out struct {
		Values map[string]string `json:"values"`
	}
	if err := s.get(ctx, "/v1/config?"+q.Encode(), &out); err != nil {
		return nil, err
	}
	return out.Values, nil
}

func (s *HTTPSource) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("config proxy: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("config proxy: status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
