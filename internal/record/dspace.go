package record

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/joescharf/curate/internal/models"
)

type dspaceValue struct {
	Value     string `json:"value"`
	Authority string `json:"authority"`
	Place     int    `json:"place"`
}

// dspaceDoc is a DSpace 7 item as returned by /server/api/core/items.
type dspaceDoc struct {
	UUID     string                   `json:"uuid"`
	Handle   string                   `json:"handle"`
	Metadata map[string][]dspaceValue `json:"metadata"`
}

// Metadata fields read from DSpace items. Affiliations and ORCIDs are
// aligned with authors by position.
const (
	dcTitle        = "dc.title"
	dcAuthor       = "dc.contributor.author"
	dcAdvisor      = "dc.contributor.advisor"
	dcAbstract     = "dc.description.abstract"
	dcSubject      = "dc.subject"
	dcRights       = "dc.rights"
	dcRightsURI    = "dc.rights.uri"
	dcLicense      = "dc.rights.license"
	dcDOI          = "dc.identifier.doi"
	dcType         = "dc.type"
	dcPublisher    = "dc.publisher"
	dcSponsorship  = "dc.description.sponsorship"
	dcAccessRights = "datacite.rights"
	authorAffil    = "oairecerif.author.affiliation"
	authorORCID    = "cris.virtual.orcid"
	awardNumber    = "oaire.awardNumber"
	relationPrefix = "dc.relation."
)

func decodeDSpace(raw []byte) (*models.Record, error) {
	var doc dspaceDoc
	if err := unmarshalLenient(raw, &doc); err != nil {
		return nil, err
	}
	meta := dspaceMetadata(doc.Metadata)

	r := &models.Record{
		ID:    firstNonEmpty(doc.UUID, rawID(json.RawMessage(gjson.GetBytes(raw, "id").Raw))),
		Title: meta.first(dcTitle),
		DOI:   meta.first(dcDOI),
	}
	if doc.Handle != "" {
		r.LandingURL = "https://hdl.handle.net/" + doc.Handle
	}
	if meta.has(dcAbstract) {
		setDescription(r, meta.first(dcAbstract), true)
	}
	if meta.has(dcSubject) {
		r.Keywords = meta.all(dcSubject)
	}

	if meta.has(dcAuthor) {
		authors := meta[dcAuthor]
		affil, orcid := meta[authorAffil], meta[authorORCID]
		r.Creators = make([]models.Creator, 0, len(authors))
		for i, a := range authors {
			c := models.Creator{Name: a.Value, Affiliations: []string{}}
			if i < len(affil) && usable(affil[i].Value) {
				c.Affiliations = append(c.Affiliations, affil[i].Value)
			}
			if i < len(orcid) && usable(orcid[i].Value) {
				c.Identifiers = []models.NameIdentifier{{Scheme: "orcid", Value: normalizeORCID(orcid[i].Value)}}
			}
			r.Creators = append(r.Creators, c)
		}
	}

	if meta.has(dcLicense) || meta.has(dcRightsURI) || meta.has(dcRights) {
		r.Licenses = nonNil(meta.all(dcLicense))
		for i, l := range r.Licenses {
			r.Licenses[i] = strings.ToLower(l)
		}
		if len(r.Licenses) == 0 {
			if id := licenseFromURI(meta.first(dcRightsURI)); id != "" {
				r.Licenses = append(r.Licenses, id)
			}
		}
	}

	for key, values := range meta {
		if !strings.HasPrefix(key, relationPrefix) {
			continue
		}
		if r.Related == nil {
			r.Related = []models.RelatedIdentifier{}
		}
		for _, v := range values {
			if !usable(v.Value) {
				continue
			}
			r.Related = append(r.Related, models.RelatedIdentifier{
				Identifier: v.Value,
				Scheme:     schemeOf(v.Value),
				Relation:   strings.TrimPrefix(key, relationPrefix),
			})
		}
	}

	if meta.has(awardNumber) || meta.has(dcSponsorship) {
		r.Funding = append(meta.all(awardNumber), meta.all(dcSponsorship)...)
	}

	switch strings.ToLower(meta.first(dcAccessRights)) {
	case "open access", "openaccess", "open":
		r.Access = models.AccessOpen
	case "restricted access", "restricted":
		r.Access = models.AccessRestricted
	case "embargoed access", "embargoed":
		r.Access = models.AccessEmbargoed
	case "metadata only access", "closed":
		r.Access = models.AccessClosed
	}

	if strings.Contains(strings.ToLower(meta.first(dcType)), "thesis") || meta.has(dcAdvisor) {
		r.Thesis = &models.Thesis{University: meta.first(dcPublisher), Supervisors: meta.all(dcAdvisor)}
	}

	// Bitstreams of the ORIGINAL bundle, when embedded.
	bundles := gjson.GetBytes(raw, "_embedded.bundles._embedded.bundles")
	if bundles.Exists() {
		r.Files = []models.File{}
		bundles.ForEach(func(_, b gjson.Result) bool {
			if b.Get("name").String() != "ORIGINAL" {
				return true
			}
			b.Get("_embedded.bitstreams._embedded.bitstreams").ForEach(func(_, bs gjson.Result) bool {
				var size fileSize
				_ = size.UnmarshalJSON([]byte(bs.Get("sizeBytes").Raw))
				r.Files = append(r.Files, models.File{Name: bs.Get("name").String(), Size: size.n})
				return true
			})
			return true
		})
	}
	return r, nil
}

type dspaceMetadata map[string][]dspaceValue

func (m dspaceMetadata) has(key string) bool {
	_, ok := m[key]
	return ok
}

func (m dspaceMetadata) first(key string) string {
	for _, v := range m[key] {
		if usable(v.Value) {
			return strings.TrimSpace(v.Value)
		}
	}
	return ""
}

func (m dspaceMetadata) all(key string) []string {
	values, ok := m[key]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if usable(v.Value) {
			out = append(out, strings.TrimSpace(v.Value))
		}
	}
	return out
}

// usable filters DSpace placeholders for missing aligned values.
func usable(v string) bool {
	v = strings.TrimSpace(v)
	return v != "" && !strings.HasPrefix(v, "#PLACEHOLDER")
}

func schemeOf(v string) string {
	lower := strings.ToLower(v)
	switch {
	case strings.HasPrefix(lower, "10.") || strings.Contains(lower, "doi.org/") || strings.HasPrefix(lower, "doi:"):
		return "doi"
	case strings.HasPrefix(lower, "arxiv:"):
		return "arxiv"
	case strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://"):
		return "url"
	}
	return ""
}

// licenseFromURI maps a Creative Commons or SPDX URI to an identifier.
func licenseFromURI(uri string) string {
	u := strings.ToLower(strings.TrimSuffix(strings.TrimSpace(uri), "/"))
	switch {
	case u == "":
		return ""
	case strings.Contains(u, "creativecommons.org/publicdomain/zero/1.0"):
		return "cc0-1.0"
	case strings.Contains(u, "creativecommons.org/licenses/"):
		parts := strings.Split(u[strings.Index(u, "/licenses/")+len("/licenses/"):], "/")
		if len(parts) >= 2 {
			return "cc-" + parts[0] + "-" + parts[1]
		}
		return "cc-" + parts[0]
	case strings.Contains(u, "spdx.org/licenses/"):
		return strings.TrimSuffix(u[strings.LastIndex(u, "/")+1:], ".html")
	case strings.Contains(u, "opensource.org/licenses/"):
		return u[strings.LastIndex(u, "/")+1:]
	}
	return u
}
