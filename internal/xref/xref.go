// Package xref checks whether the publications a record relates to are
// already present in the institutional repository.
package xref

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"

	"github.com/joescharf/curate/internal/models"
)

// Defaults for the Infoscience discovery endpoint.
const (
	DefaultSearchURL   = "https://infoscience.epfl.ch/server/api/discover/search/objects?query={query}"
	DefaultTotalPath   = "_embedded.searchResult.page.totalElements"
	DefaultConcurrency = 4
)

// Identifier is a normalized publication identifier.
type Identifier struct {
	Scheme string `json:"scheme"`
	Value  string `json:"value"`
}

func (id Identifier) String() string {
	if id.Scheme == "doi" {
		return id.Value
	}
	return id.Scheme + ":" + id.Value
}

var publicationTypes = []string{"publication", "article", "preprint", "journal", "book", "conference", "thesis", "report", "text"}

// Candidates returns the deduplicated, normalized publication identifiers a
// record relates to. Relations without a declared resource type are skipped.
func Candidates(r *models.Record) []Identifier {
	if r == nil {
		return nil
	}
	seen := make(map[Identifier]bool)
	var out []Identifier
	for _, rel := range r.Related {
		if !publicationLike(rel.ResourceType) {
			continue
		}
		id, ok := Normalize(rel.Scheme, rel.Identifier)
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func publicationLike(resourceType string) bool {
	rt := strings.ToLower(strings.TrimSpace(resourceType))
	if rt == "" {
		return false
	}
	for _, p := range publicationTypes {
		if strings.Contains(rt, p) {
			return true
		}
	}
	return false
}

// Normalize canonicalizes an identifier of a supported scheme (doi, arxiv,
// isbn, pmid).
func Normalize(scheme, value string) (Identifier, bool) {
	scheme = strings.ToLower(strings.TrimSpace(scheme))
	v := strings.TrimSpace(value)

	switch scheme {
	case "doi":
		v = strings.ToLower(v)
		for _, p := range []string{"https://doi.org/", "http://doi.org/", "https://dx.doi.org/", "http://dx.doi.org/", "doi:"} {
			v = strings.TrimPrefix(v, p)
		}
		v = strings.TrimSpace(v)
	case "arxiv":
		if len(v) >= 6 && strings.EqualFold(v[:6], "arxiv:") {
			v = v[6:]
		}
	case "isbn":
		v = keep(strings.ToUpper(v), func(r rune) bool { return (r >= '0' && r <= '9') || r == 'X' })
	case "pmid":
		v = keep(v, func(r rune) bool { return r >= '0' && r <= '9' })
	default:
		return Identifier{}, false
	}
	if v == "" {
		return Identifier{}, false
	}
	return Identifier{Scheme: scheme, Value: v}, true
}

func keep(s string, f func(rune) bool) string {
	var b strings.Builder
	for _, r := range s {
		if f(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Index answers whether an identifier is known to a repository.
type Index interface {
	Exists(ctx context.Context, id Identifier) (bool, error)
}

// HTTPIndex queries a JSON search endpoint and reads the hit count.
type HTTPIndex struct {
	// SearchURL contains a {query} placeholder.
	SearchURL string
	// TotalPath is a gjson path to the hit count.
	TotalPath string
	UserAgent string
	Client    *http.Client
}

// NewHTTPIndex returns an index with the Infoscience defaults applied to
// empty fields.
func NewHTTPIndex(searchURL, totalPath, userAgent string, timeout time.Duration) *HTTPIndex {
	if searchURL == "" {
		searchURL = DefaultSearchURL
	}
	if totalPath == "" {
		totalPath = DefaultTotalPath
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPIndex{
		SearchURL: searchURL,
		TotalPath: totalPath,
		UserAgent: userAgent,
		Client:    &http.Client{Timeout: timeout},
	}
}

// Exists reports whether the search returns at least one hit.
func (x *HTTPIndex) Exists(ctx context.Context, id Identifier) (bool, error) {
	u := strings.ReplaceAll(x.SearchURL, "{query}", url.QueryEscape(`"`+id.Value+`"`))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return false, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if x.UserAgent != "" {
		req.Header.Set("User-Agent", x.UserAgent)
	}

	client := x.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return false, fmt.Errorf("search %s: %w", id, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return false, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("search %s: status %d", id, resp.StatusCode)
	}

	total := gjson.GetBytes(body, x.TotalPath)
	if !total.Exists() {
		return false, fmt.Errorf("search %s: no %q in response", id, x.TotalPath)
	}
	return total.Int() > 0, nil
}

// Checker runs the lookups of one record.
type Checker struct {
	Index       Index
	Concurrency int
	Logger      *slog.Logger
}

// NewChecker creates a checker with at most concurrency lookups in flight.
func NewChecker(idx Index, concurrency int) *Checker {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Checker{Index: idx, Concurrency: concurrency, Logger: slog.Default()}
}

// Check looks up every candidate identifier and waits for all of them.
// It returns nil when the record relates to no publication. Lookup errors
// are collected in Failed and never abort the other lookups.
func (c *Checker) Check(ctx context.Context, r *models.Record) *models.CrossRef {
	ids := Candidates(r)
	if len(ids) == 0 || c.Index == nil {
		return nil
	}
	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}

	found := make([]bool, len(ids))
	errs := make([]error, len(ids))

	var g errgroup.Group
	g.SetLimit(max(c.Concurrency, 1))
	for i, id := range ids {
		g.Go(func() error {
			ok, err := c.Index.Exists(ctx, id)
			found[i], errs[i] = ok, err
			return nil
		})
	}
	_ = g.Wait()

	out := &models.CrossRef{}
	for i, id := range ids {
		out.Checked = append(out.Checked, id.String())
		switch {
		case errs[i] != nil:
			logger.Warn("cross-reference lookup failed", "identifier", id.String(), "error", errs[i])
			out.Failed = append(out.Failed, id.String())
		case !found[i]:
			out.Missing = append(out.Missing, id.String())
		}
	}
	return out
}
