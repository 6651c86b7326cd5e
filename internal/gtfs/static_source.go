package gtfs

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"catabus.org/transit/internal/logging"
)

const (
	cachedZipName   = "google_transit.zip"
	downloadTimeout = 60 * time.Second
	maxStaticSize   = 200 * 1024 * 1024
)

// staticSource resolves the schedule zip from a local path, a fresh cache file, or the network.
type staticSource struct {
	config Config
	client *http.Client
	logger *slog.Logger
	now    func() time.Time
}

func newStaticSource(config Config, logger *slog.Logger) *staticSource {
	return &staticSource{
		config: config,
		client: &http.Client{Timeout: downloadTimeout},
		logger: logger,
		now:    time.Now,
	}
}

func (s *staticSource) cachePath() string {
	dir := s.config.CacheDir
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, cachedZipName)
}

// fetch returns the raw zip bytes. A cache younger than the TTL short-circuits the download;
// an expired cache is still used when the download fails.
func (s *staticSource) fetch(ctx context.Context) ([]byte, error) {
	if s.config.isLocalFile() {
		b, err := os.ReadFile(s.config.StaticURL)
		if err != nil {
			return nil, fmt.Errorf("error reading local GTFS file: %w", err)
		}
		return b, nil
	}

	path := s.cachePath()
	if path != "" {
		if info, err := os.Stat(path); err == nil && s.now().Sub(info.ModTime()) < s.config.cacheTTL() {
			b, err := os.ReadFile(path)
			if err == nil {
				logging.LogOperation(s.logger, "gtfs_static_cache_hit", slog.String("path", path))
				return b, nil
			}
			logging.LogError(s.logger, "Failed to read GTFS cache", err, slog.String("path", path))
		}
	}

	b, downloadErr := s.download(ctx)
	if downloadErr == nil {
		s.writeCache(path, b)
		return b, nil
	}

	if path != "" {
		if cached, err := os.ReadFile(path); err == nil {
			logging.LogError(s.logger, "GTFS download failed, using stale cache", downloadErr,
				slog.String("path", path))
			return cached, nil
		}
	}
	return nil, downloadErr
}

func (s *staticSource) download(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.config.StaticURL, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating GTFS request: %w", err)
	}
	if s.config.StaticAuthHeaderKey != "" && s.config.StaticAuthHeaderValue != "" {
		req.Header.Set(s.config.StaticAuthHeaderKey, s.config.StaticAuthHeaderValue)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error downloading GTFS data: %w", err)
	}
	defer logging.SafeCloseWithLogging(resp.Body, s.logger, "http_response_body")

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("error downloading GTFS data: unexpected status %d", resp.StatusCode)
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxStaticSize))
	if err != nil {
		return nil, fmt.Errorf("error reading GTFS data: %w", err)
	}
	return b, nil
}

func (s *staticSource) writeCache(path string, b []byte) {
	if path == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		logging.LogError(s.logger, "Failed to create GTFS cache directory", err, slog.String("path", path))
		return
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		logging.LogError(s.logger, "Failed to write GTFS cache", err, slog.String("path", path))
		return
	}
	if err := os.Rename(tmp, path); err != nil {
		logging.LogError(s.logger, "Failed to replace GTFS cache", err, slog.String("path", path))
	}
}
