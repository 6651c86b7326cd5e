package realtime

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"catabus.org/transit/internal/logging"
)

const (
	DefaultRequestTimeout = 30 * time.Second
	maxFeedSize           = 32 * 1024 * 1024
)

// Fetcher retrieves one raw feed payload.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// HTTPFetcher fetches feeds over HTTP with optional static headers.
type HTTPFetcher struct {
	Client  *http.Client
	Headers map[string]string
	Logger  *slog.Logger
}

// NewHTTPFetcher returns a fetcher whose requests time out after timeout (30s when zero).
func NewHTTPFetcher(timeout time.Duration, headers map[string]string, logger *slog.Logger) *HTTPFetcher {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPFetcher{
		Client:  &http.Client{Timeout: timeout},
		Headers: headers,
		Logger:  logger.With(slog.String("component", "gtfs_realtime_downloader")),
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &NetworkError{URL: url, Err: err}
	}
	for key, value := range f.Headers {
		req.Header.Add(key, value)
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, &NetworkError{URL: url, Err: err}
	}
	defer logging.SafeCloseWithLogging(resp.Body, f.Logger, "http_response_body")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &NetworkError{
			URL:        url,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedSize))
	if err != nil {
		return nil, &NetworkError{URL: url, StatusCode: resp.StatusCode, Err: err}
	}
	return b, nil
}
