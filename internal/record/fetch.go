package record

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/joescharf/curate/internal/models"
)

// DefaultUserAgent identifies the tool to repository APIs.
const DefaultUserAgent = "curate (+https://github.com/joescharf/curate)"

// HTTPError is returned for a non-200 API response.
type HTTPError struct {
	StatusCode int
	URL        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d for %s", e.StatusCode, e.URL)
}

// Fetcher retrieves raw record documents.
type Fetcher struct {
	client    *http.Client
	userAgent string
}

// NewFetcher creates a fetcher. A zero timeout uses 30 seconds.
func NewFetcher(userAgent string, timeout time.Duration) *Fetcher {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Fetcher{client: &http.Client{Timeout: timeout}, userAgent: userAgent}
}

// Fetch GETs apiURL and returns the response body.
func (f *Fetcher) Fetch(ctx context.Context, apiURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", apiURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &HTTPError{StatusCode: resp.StatusCode, URL: apiURL}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", apiURL, err)
	}
	return body, nil
}

// Load fetches and decodes the record behind t.
func (f *Fetcher) Load(ctx context.Context, t Target) (*models.Record, error) {
	raw, err := f.Fetch(ctx, t.APIURL)
	if err != nil {
		return nil, err
	}
	r, err := Decode(raw)
	if err != nil {
		return nil, err
	}
	if r.LandingURL == "" {
		r.LandingURL = t.PageURL
	}
	return r, nil
}
