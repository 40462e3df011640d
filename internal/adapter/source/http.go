package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/coastal-loads-etl/internal/domain"
)

// HTTPFetcher downloads model tables over HTTP. Requests are not retried.
type HTTPFetcher struct {
	urlTemplate string
	httpClient  *http.Client
	logger      *slog.Logger
}

// NewHTTPFetcher creates a fetcher for urlTemplate, which must contain one
// %d verb for the year.
func NewHTTPFetcher(urlTemplate string, timeout time.Duration, logger *slog.Logger) *HTTPFetcher {
	return &HTTPFetcher{
		urlTemplate: urlTemplate,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Fetch downloads the table of one year. Any transport failure or non-200
// response is reported as domain.ErrDataUnavailable.
func (f *HTTPFetcher) Fetch(ctx context.Context, year int) ([]byte, error) {
	u := fmt.Sprintf(f.urlTemplate, year)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch %d: %w", domain.ErrDataUnavailable, year, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: fetch %d: status %d: %s",
			domain.ErrDataUnavailable, year, resp.StatusCode, bytes.TrimSpace(body))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read %d: %w", domain.ErrDataUnavailable, year, err)
	}
	f.logger.Debug("model table downloaded",
		"year", year,
		"bytes", len(data),
		"duration", time.Since(start),
	)
	return data, nil
}
