// Package page scrapes the facts a record's API does not expose from its
// human landing page.
package page

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/joescharf/curate/internal/models"
	"github.com/joescharf/curate/internal/record"
)

// Selectors used on landing pages.
var (
	bannerSelector     = "div.panel-body, .ui.message, .alert, [role=alert]"
	fileSelector       = "a.filename, table.files a"
	universityTerm     = "awarding university"
	supervisorsHeading = "thesis supervisor"
	headingSelector    = "h3, h4, h5, h6"
)

// Extract parses a landing page.
func Extract(r io.Reader) (*models.Facts, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}

	f := &models.Facts{
		Banners:   texts(doc.Find(bannerSelector)),
		FileNames: texts(doc.Find(fileSelector)),
	}

	var university string
	doc.Find("dt").EachWithBreak(func(_ int, dt *goquery.Selection) bool {
		if !strings.Contains(strings.ToLower(dt.Text()), universityTerm) {
			return true
		}
		university = clean(dt.NextFiltered("dd").Text())
		return false
	})

	var supervisors []string
	doc.Find(headingSelector).EachWithBreak(func(_ int, h *goquery.Selection) bool {
		if !strings.Contains(strings.ToLower(h.Text()), supervisorsHeading) {
			return true
		}
		p := h.NextAllFiltered("p").First()
		if spans := p.Find("span"); spans.Length() > 0 {
			supervisors = texts(spans)
		} else {
			for _, s := range strings.Split(p.Text(), ";") {
				if s = clean(s); s != "" {
					supervisors = append(supervisors, s)
				}
			}
		}
		return false
	})

	if university != "" || len(supervisors) > 0 {
		f.Thesis = &models.Thesis{University: university, Supervisors: supervisors}
	}
	return f, nil
}

func texts(sel *goquery.Selection) []string {
	var out []string
	seen := make(map[string]bool)
	sel.Each(func(_ int, s *goquery.Selection) {
		t := clean(s.Text())
		if t != "" && !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	})
	return out
}

func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Fetcher downloads and parses landing pages.
type Fetcher struct {
	client    *http.Client
	userAgent string
}

// NewFetcher creates a page fetcher.
func NewFetcher(userAgent string, timeout time.Duration) *Fetcher {
	if userAgent == "" {
		userAgent = record.DefaultUserAgent
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Fetcher{client: &http.Client{Timeout: timeout}, userAgent: userAgent}
}

// Facts fetches pageURL and extracts its facts.
func (f *Fetcher) Facts(ctx context.Context, pageURL string) (*models.Facts, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "text/html")
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &record.HTTPError{StatusCode: resp.StatusCode, URL: pageURL}
	}
	return Extract(io.LimitReader(resp.Body, 16<<20))
}
