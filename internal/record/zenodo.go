package record

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/joescharf/curate/internal/models"
)

// zenodoDoc is a record of the legacy Zenodo REST API.
type zenodoDoc struct {
	ID    json.RawMessage `json:"id"`
	DOI   string          `json:"doi"`
	Links struct {
		HTML string `json:"html"`
	} `json:"links"`
	Metadata struct {
		Title    string `json:"title"`
		DOI      string `json:"doi"`
		Creators []struct {
			Name        string   `json:"name"`
			Affiliation flexList `json:"affiliation"`
			ORCID       string   `json:"orcid"`
		} `json:"creators"`
		Keywords           flexList `json:"keywords"`
		RelatedIdentifiers []struct {
			Identifier   string `json:"identifier"`
			Relation     string `json:"relation"`
			Scheme       string `json:"scheme"`
			ResourceType string `json:"resource_type"`
		} `json:"related_identifiers"`
		Grants []struct {
			Code   string     `json:"code"`
			Title  flexString `json:"title"`
			Funder flexString `json:"funder"`
		} `json:"grants"`
		AccessRight       string       `json:"access_right"`
		ThesisUniversity  string       `json:"thesis_university"`
		ThesisSupervisors []flexString `json:"thesis_supervisors"`
		Thesis            *struct {
			University  string       `json:"university"`
			Supervisors []flexString `json:"supervisors"`
		} `json:"thesis"`
	} `json:"metadata"`
	Files []struct {
		Key      string   `json:"key"`
		Filename string   `json:"filename"`
		Size     fileSize `json:"size"`
		Filesize fileSize `json:"filesize"`
	} `json:"files"`
}

func decodeZenodo(raw []byte) (*models.Record, error) {
	var doc zenodoDoc
	if err := unmarshalLenient(raw, &doc); err != nil {
		return nil, err
	}
	m := doc.Metadata

	r := &models.Record{
		ID:         rawID(doc.ID),
		Title:      strings.TrimSpace(m.Title),
		DOI:        firstNonEmpty(doc.DOI, m.DOI),
		LandingURL: doc.Links.HTML,
		Keywords:   m.Keywords.values(),
		Access:     accessFromString(m.AccessRight),
	}
	// A description of any other JSON type is treated as absent.
	if d := gjson.GetBytes(raw, "metadata.description"); d.Type == gjson.String {
		setDescription(r, d.String(), true)
	}

	if m.Creators != nil {
		r.Creators = make([]models.Creator, 0, len(m.Creators))
		for _, c := range m.Creators {
			mc := models.Creator{Name: c.Name, Affiliations: nonNil(c.Affiliation.values())}
			if c.ORCID != "" {
				mc.Identifiers = []models.NameIdentifier{{Scheme: "orcid", Value: normalizeORCID(c.ORCID)}}
			}
			r.Creators = append(r.Creators, mc)
		}
	}

	// The license is either an identifier or an object with an id.
	if lic := gjson.GetBytes(raw, "metadata.license"); lic.Exists() {
		id := lic.String()
		if lic.IsObject() {
			id = lic.Get("id").String()
		}
		r.Licenses = []string{strings.ToLower(strings.TrimSpace(id))}
	}

	if m.RelatedIdentifiers != nil {
		r.Related = make([]models.RelatedIdentifier, 0, len(m.RelatedIdentifiers))
		for _, rel := range m.RelatedIdentifiers {
			r.Related = append(r.Related, models.RelatedIdentifier{
				Identifier:   rel.Identifier,
				Scheme:       strings.ToLower(rel.Scheme),
				Relation:     rel.Relation,
				ResourceType: strings.ToLower(rel.ResourceType),
			})
		}
	}

	if m.Grants != nil {
		r.Funding = make([]string, 0, len(m.Grants))
		for _, g := range m.Grants {
			r.Funding = append(r.Funding, joinNonEmpty(" ", string(g.Funder), g.Code, string(g.Title)))
		}
	}

	if doc.Files != nil {
		r.Files = make([]models.File, 0, len(doc.Files))
		for _, f := range doc.Files {
			r.Files = append(r.Files, models.File{
				Name: firstNonEmpty(f.Key, f.Filename),
				Size: firstSize(f.Size, f.Filesize),
			})
		}
	}

	university, supervisors := m.ThesisUniversity, flexList(m.ThesisSupervisors).values()
	if m.Thesis != nil {
		university = firstNonEmpty(m.Thesis.University, university)
		supervisors = append(supervisors, flexList(m.Thesis.Supervisors).values()...)
	}
	if university != "" || len(supervisors) > 0 || gjson.GetBytes(raw, "metadata.resource_type.subtype").String() == "thesis" {
		r.Thesis = &models.Thesis{University: university, Supervisors: supervisors}
	}
	return r, nil
}

func firstSize(sizes ...fileSize) *int64 {
	for _, s := range sizes {
		if s.n != nil {
			return s.n
		}
	}
	return nil
}

func rawID(raw json.RawMessage) string {
	return strings.Trim(strings.TrimSpace(string(raw)), `"`)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func accessFromString(s string) models.AccessStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "open", "public":
		return models.AccessOpen
	case "restricted":
		return models.AccessRestricted
	case "embargoed":
		return models.AccessEmbargoed
	case "closed":
		return models.AccessClosed
	}
	return models.AccessUnknown
}
