package record

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/joescharf/curate/internal/models"
)

// ErrUnsupportedURL is returned when no API endpoint is known for a URL.
var ErrUnsupportedURL = errors.New("unsupported record URL")

// Target is the pair of URLs needed to inspect a record.
type Target struct {
	// APIURL returns the machine-readable record.
	APIURL string `json:"api_url"`
	// PageURL is the human landing page, scraped for page-only facts.
	PageURL string        `json:"page_url,omitempty"`
	Source  models.Source `json:"source"`
}

const (
	dataciteAPI = "https://api.datacite.org/dois/"
	dspaceEmbed = "embed=owningCollection%2FparentCommunity%2FparentCommunity&embed=relationships&embed=bundles%2Fbitstreams"
)

var (
	bareDOI       = regexp.MustCompile(`^(?i:doi:)?\s*(10\.\d{4,9}/\S+)$`)
	zenodoRecord  = regexp.MustCompile(`^/(?:records?|deposit|uploads)/(\d+)`)
	zenodoAPI     = regexp.MustCompile(`^/api/records/(\d+)`)
	dspaceProduct = regexp.MustCompile(`^/entities/[a-z]+/([0-9a-fA-F-]{36})`)
	dspaceItemAPI = regexp.MustCompile(`^/server/api/core/items/([0-9a-fA-F-]{36})`)
)

// Resolve maps a landing page, API URL or DOI to its API endpoint.
func Resolve(ref string) (Target, error) {
	ref = strings.TrimSpace(ref)
	if m := bareDOI.FindStringSubmatch(ref); m != nil {
		return doiTarget(m[1]), nil
	}

	u, err := url.Parse(ref)
	if err != nil || u.Host == "" {
		return Target{}, fmt.Errorf("%w: %q", ErrUnsupportedURL, ref)
	}
	host := strings.ToLower(u.Host)
	origin := u.Scheme + "://" + u.Host

	switch {
	case host == "doi.org" || host == "dx.doi.org":
		return doiTarget(strings.TrimPrefix(u.Path, "/")), nil

	case host == "api.datacite.org":
		return Target{APIURL: ref, Source: models.SourceDataCite}, nil

	case zenodoAPI.MatchString(u.Path):
		id := zenodoAPI.FindStringSubmatch(u.Path)[1]
		return Target{APIURL: ref, PageURL: origin + "/records/" + id, Source: models.SourceInvenioRDM}, nil

	case zenodoRecord.MatchString(u.Path):
		id := zenodoRecord.FindStringSubmatch(u.Path)[1]
		return Target{APIURL: origin + "/api/records/" + id, PageURL: ref, Source: models.SourceInvenioRDM}, nil

	case dspaceProduct.MatchString(u.Path):
		id := dspaceProduct.FindStringSubmatch(u.Path)[1]
		return Target{APIURL: origin + "/server/api/core/items/" + id + "?" + dspaceEmbed, PageURL: ref, Source: models.SourceDSpace}, nil

	case dspaceItemAPI.MatchString(u.Path):
		id := dspaceItemAPI.FindStringSubmatch(u.Path)[1]
		return Target{APIURL: ref, PageURL: origin + "/entities/product/" + id, Source: models.SourceDSpace}, nil
	}
	return Target{}, fmt.Errorf("%w: %q", ErrUnsupportedURL, ref)
}

func doiTarget(doi string) Target {
	doi = strings.ToLower(strings.TrimSpace(doi))
	return Target{
		APIURL:  dataciteAPI + doi + "?affiliation=true",
		PageURL: "https://doi.org/" + doi,
		Source:  models.SourceDataCite,
	}
}
