// Package zenodo lists the pending submission requests of a Zenodo
// community.
package zenodo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/joescharf/curate/internal/record"
)

// DefaultBaseURL is the public Zenodo instance.
const DefaultBaseURL = "https://zenodo.org"

// Request is a community inclusion request.
type Request struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Status   string    `json:"status"`
	RecordID string    `json:"record_id"`
	Created  time.Time `json:"created"`
}

type requestsPage struct {
	Hits struct {
		Hits []struct {
			ID      string    `json:"id"`
			Title   string    `json:"title"`
			Status  string    `json:"status"`
			Created time.Time `json:"created"`
			Topic   struct {
				Record string `json:"record"`
			} `json:"topic"`
		} `json:"hits"`
		Total int `json:"total"`
	} `json:"hits"`
}

// Client talks to the Zenodo REST API.
type Client struct {
	baseURL   string
	token     string
	userAgent string
	http      *http.Client
}

// NewClient creates a client. An empty baseURL uses zenodo.org.
func NewClient(baseURL, token, userAgent string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if userAgent == "" {
		userAgent = record.DefaultUserAgent
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		token:     token,
		userAgent: userAgent,
		http:      &http.Client{Timeout: timeout},
	}
}

// CommunityRequests returns the open requests of a community. Requests
// without a record are skipped.
func (c *Client) CommunityRequests(ctx context.Context, community string) ([]Request, error) {
	if community == "" {
		return nil, fmt.Errorf("community is required")
	}
	u := fmt.Sprintf("%s/api/communities/%s/requests?is_open=true&size=100", c.baseURL, url.PathEscape(community))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching community requests: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &record.HTTPError{StatusCode: resp.StatusCode, URL: u}
	}

	var page requestsPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode community requests: %w", err)
	}

	var out []Request
	for _, h := range page.Hits.Hits {
		if h.Topic.Record == "" {
			continue
		}
		out = append(out, Request{
			ID:       h.ID,
			Title:    h.Title,
			Status:   h.Status,
			RecordID: h.Topic.Record,
			Created:  h.Created,
		})
	}
	return out, nil
}

// RecordURL returns the landing page of a record.
func (c *Client) RecordURL(id string) string {
	return c.baseURL + "/records/" + id
}
