package models

import "strings"

// Source identifies the upstream API schema a record was decoded from.
type Source string

const (
	SourceDataCite   Source = "datacite"
	SourceZenodo     Source = "zenodo"
	SourceInvenioRDM Source = "inveniordm"
	SourceDSpace     Source = "dspace"
)

// AccessStatus is the access level a record declares for its files.
type AccessStatus string

const (
	AccessUnknown    AccessStatus = ""
	AccessOpen       AccessStatus = "open"
	AccessRestricted AccessStatus = "restricted"
	AccessEmbargoed  AccessStatus = "embargoed"
	AccessClosed     AccessStatus = "closed"
)

// Record is the normalized metadata of the submission under review.
//
// A nil slice means the upstream record did not carry the field at all; an
// empty, non-nil slice means the field was present but empty. Rules rely on
// that distinction to tell "missing" from "empty".
type Record struct {
	Source          Source              `json:"source"`
	ID              string              `json:"id"`
	Title           string              `json:"title"`
	DOI             string              `json:"doi,omitempty"`
	LandingURL      string              `json:"landing_url,omitempty"`
	Description     *string             `json:"description,omitempty"`
	DescriptionHTML string              `json:"-"`
	Creators        []Creator           `json:"creators"`
	Licenses        []string            `json:"licenses"`
	Keywords        []string            `json:"keywords"`
	Related         []RelatedIdentifier `json:"related"`
	Funding         []string            `json:"funding"`
	Files           []File              `json:"files"`
	Access          AccessStatus        `json:"access,omitempty"`
	Thesis          *Thesis             `json:"thesis,omitempty"`
}

// DescriptionText returns the plain-text description, or "" when absent.
func (r *Record) DescriptionText() string {
	if r == nil || r.Description == nil {
		return ""
	}
	return *r.Description
}

// Creator is one author of the record.
type Creator struct {
	Name         string           `json:"name"`
	Affiliations []string         `json:"affiliations"`
	Identifiers  []NameIdentifier `json:"identifiers"`
}

// HasScheme reports whether the creator carries an identifier of the given
// scheme (compared case-insensitively).
func (c Creator) HasScheme(scheme string) bool {
	for _, id := range c.Identifiers {
		if strings.EqualFold(id.Scheme, scheme) && id.Value != "" {
			return true
		}
	}
	return false
}

// NameIdentifier is an external author identifier such as an ORCID.
type NameIdentifier struct {
	Scheme string `json:"scheme"`
	Value  string `json:"value"`
}

// RelatedIdentifier links the record to another resource.
type RelatedIdentifier struct {
	Identifier   string `json:"identifier"`
	Scheme       string `json:"scheme"`
	Relation     string `json:"relation,omitempty"`
	ResourceType string `json:"resource_type,omitempty"`
}

// File is one entry of the record's file listing. Size is nil when the
// listing does not report it.
type File struct {
	Name string `json:"name"`
	Size *int64 `json:"size,omitempty"`
}

// Thesis holds the thesis declaration of a record.
type Thesis struct {
	University  string   `json:"university,omitempty"`
	Supervisors []string `json:"supervisors,omitempty"`
}
