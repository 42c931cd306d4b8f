package record

import (
	"sort"
	"strings"

	"github.com/joescharf/curate/internal/models"
)

// invenioDoc is a record of an InvenioRDM instance (current Zenodo).
type invenioDoc struct {
	ID   string `json:"id"`
	PIDs struct {
		DOI struct {
			Identifier string `json:"identifier"`
		} `json:"doi"`
	} `json:"pids"`
	Links struct {
		SelfHTML string `json:"self_html"`
	} `json:"links"`
	Metadata struct {
		Title        string          `json:"title"`
		Description  *string         `json:"description"`
		Creators     []invenioPerson `json:"creators"`
		Contributors []invenioPerson `json:"contributors"`
		Rights       []struct {
			ID    string     `json:"id"`
			Title flexString `json:"title"`
		} `json:"rights"`
		Subjects           flexList `json:"subjects"`
		RelatedIdentifiers []struct {
			Identifier   string     `json:"identifier"`
			Scheme       string     `json:"scheme"`
			RelationType flexString `json:"relation_type"`
			ResourceType flexString `json:"resource_type"`
		} `json:"related_identifiers"`
		Funding []struct {
			Funder flexString `json:"funder"`
			Award  struct {
				Number string     `json:"number"`
				Title  flexString `json:"title"`
			} `json:"award"`
		} `json:"funding"`
		ResourceType flexString `json:"resource_type"`
	} `json:"metadata"`
	Custom struct {
		Thesis *struct {
			University string `json:"university"`
		} `json:"thesis:thesis"`
	} `json:"custom_fields"`
	Access struct {
		Record  string `json:"record"`
		Files   string `json:"files"`
		Embargo struct {
			Active bool `json:"active"`
		} `json:"embargo"`
	} `json:"access"`
	Files struct {
		Entries map[string]struct {
			Key  string   `json:"key"`
			Size fileSize `json:"size"`
		} `json:"entries"`
	} `json:"files"`
}

type invenioPerson struct {
	PersonOrOrg struct {
		Name        string `json:"name"`
		Identifiers []struct {
			Scheme     string `json:"scheme"`
			Identifier string `json:"identifier"`
		} `json:"identifiers"`
	} `json:"person_or_org"`
	Affiliations flexList   `json:"affiliations"`
	Role         flexString `json:"role"`
}

func (p invenioPerson) model() models.Creator {
	c := models.Creator{Name: p.PersonOrOrg.Name, Affiliations: nonNil(p.Affiliations.values())}
	for _, id := range p.PersonOrOrg.Identifiers {
		v := id.Identifier
		if strings.EqualFold(id.Scheme, "orcid") {
			v = normalizeORCID(v)
		}
		c.Identifiers = append(c.Identifiers, models.NameIdentifier{Scheme: strings.ToLower(id.Scheme), Value: v})
	}
	return c
}

func decodeInvenio(raw []byte) (*models.Record, error) {
	var doc invenioDoc
	if err := unmarshalLenient(raw, &doc); err != nil {
		return nil, err
	}
	m := doc.Metadata

	r := &models.Record{
		ID:         doc.ID,
		Title:      strings.TrimSpace(m.Title),
		DOI:        doc.PIDs.DOI.Identifier,
		LandingURL: doc.Links.SelfHTML,
		Keywords:   m.Subjects.values(),
		Access:     invenioAccess(doc.Access.Record, doc.Access.Files, doc.Access.Embargo.Active),
	}
	if m.Description != nil {
		setDescription(r, *m.Description, true)
	}

	if m.Creators != nil {
		r.Creators = make([]models.Creator, 0, len(m.Creators))
		for _, p := range m.Creators {
			r.Creators = append(r.Creators, p.model())
		}
	}

	if m.Rights != nil {
		r.Licenses = make([]string, 0, len(m.Rights))
		for _, l := range m.Rights {
			id := firstNonEmpty(l.ID, string(l.Title))
			r.Licenses = append(r.Licenses, strings.ToLower(id))
		}
	}

	if m.RelatedIdentifiers != nil {
		r.Related = make([]models.RelatedIdentifier, 0, len(m.RelatedIdentifiers))
		for _, rel := range m.RelatedIdentifiers {
			r.Related = append(r.Related, models.RelatedIdentifier{
				Identifier:   rel.Identifier,
				Scheme:       strings.ToLower(rel.Scheme),
				Relation:     string(rel.RelationType),
				ResourceType: strings.ToLower(string(rel.ResourceType)),
			})
		}
	}

	if m.Funding != nil {
		r.Funding = make([]string, 0, len(m.Funding))
		for _, f := range m.Funding {
			r.Funding = append(r.Funding, joinNonEmpty(" ", string(f.Funder), f.Award.Number, string(f.Award.Title)))
		}
	}

	if doc.Files.Entries != nil {
		r.Files = make([]models.File, 0, len(doc.Files.Entries))
		for name, f := range doc.Files.Entries {
			r.Files = append(r.Files, models.File{Name: firstNonEmpty(f.Key, name), Size: f.Size.n})
		}
		sort.Slice(r.Files, func(i, j int) bool { return r.Files[i].Name < r.Files[j].Name })
	}

	var supervisors []string
	for _, p := range m.Contributors {
		if strings.EqualFold(string(p.Role), "supervisor") {
			supervisors = append(supervisors, p.PersonOrOrg.Name)
		}
	}
	isThesis := strings.Contains(strings.ToLower(string(m.ResourceType)), "thesis")
	if doc.Custom.Thesis != nil || isThesis || supervisors != nil {
		t := &models.Thesis{Supervisors: supervisors}
		if doc.Custom.Thesis != nil {
			t.University = doc.Custom.Thesis.University
		}
		r.Thesis = t
	}
	return r, nil
}

func invenioAccess(record, files string, embargo bool) models.AccessStatus {
	switch {
	case embargo:
		return models.AccessEmbargoed
	case record == "restricted" || files == "restricted":
		return models.AccessRestricted
	case record == "public":
		return models.AccessOpen
	}
	return models.AccessUnknown
}
