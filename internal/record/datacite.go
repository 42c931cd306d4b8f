package record

import (
	"strings"

	"github.com/joescharf/curate/internal/models"
)

type dataciteDoc struct {
	Data struct {
		ID         string             `json:"id"`
		Attributes dataciteAttributes `json:"attributes"`
	} `json:"data"`
}

type dataciteAttributes struct {
	DOI    string `json:"doi"`
	URL    string `json:"url"`
	Titles []struct {
		Title string `json:"title"`
	} `json:"titles"`
	Descriptions []struct {
		Description     string `json:"description"`
		DescriptionType string `json:"descriptionType"`
	} `json:"descriptions"`
	Creators     []dataciteCreator `json:"creators"`
	Contributors []struct {
		dataciteCreator
		ContributorType string `json:"contributorType"`
	} `json:"contributors"`
	RightsList []struct {
		Rights           string `json:"rights"`
		RightsIdentifier string `json:"rightsIdentifier"`
		RightsURI        string `json:"rightsUri"`
	} `json:"rightsList"`
	Subjects           flexList `json:"subjects"`
	RelatedIdentifiers []struct {
		RelatedIdentifier     string `json:"relatedIdentifier"`
		RelatedIdentifierType string `json:"relatedIdentifierType"`
		RelationType          string `json:"relationType"`
		ResourceTypeGeneral   string `json:"resourceTypeGeneral"`
	} `json:"relatedIdentifiers"`
	FundingReferences []struct {
		FunderName  string `json:"funderName"`
		AwardNumber string `json:"awardNumber"`
		AwardTitle  string `json:"awardTitle"`
	} `json:"fundingReferences"`
	Types struct {
		ResourceTypeGeneral string `json:"resourceTypeGeneral"`
		ResourceType        string `json:"resourceType"`
	} `json:"types"`
}

type dataciteCreator struct {
	Name            string   `json:"name"`
	Affiliation     flexList `json:"affiliation"`
	NameIdentifiers []struct {
		NameIdentifier       string `json:"nameIdentifier"`
		NameIdentifierScheme string `json:"nameIdentifierScheme"`
	} `json:"nameIdentifiers"`
}

func (c dataciteCreator) model() models.Creator {
	out := models.Creator{Name: c.Name, Affiliations: c.Affiliation.values()}
	for _, id := range c.NameIdentifiers {
		v := id.NameIdentifier
		if strings.EqualFold(id.NameIdentifierScheme, "orcid") {
			v = normalizeORCID(v)
		}
		out.Identifiers = append(out.Identifiers, models.NameIdentifier{Scheme: strings.ToLower(id.NameIdentifierScheme), Value: v})
	}
	return out
}

func decodeDataCite(raw []byte) (*models.Record, error) {
	var doc dataciteDoc
	if err := unmarshalLenient(raw, &doc); err != nil {
		return nil, err
	}
	a := doc.Data.Attributes

	r := &models.Record{
		ID:         doc.Data.ID,
		DOI:        a.DOI,
		LandingURL: a.URL,
		Keywords:   a.Subjects.values(),
	}
	if len(a.Titles) > 0 {
		r.Title = strings.TrimSpace(a.Titles[0].Title)
	}

	if a.Descriptions != nil {
		var abstract string
		for _, d := range a.Descriptions {
			if d.DescriptionType == "" || strings.EqualFold(d.DescriptionType, "Abstract") {
				abstract = d.Description
				break
			}
		}
		setDescription(r, abstract, true)
	}

	if a.Creators != nil {
		r.Creators = make([]models.Creator, 0, len(a.Creators))
		for _, c := range a.Creators {
			r.Creators = append(r.Creators, c.model())
		}
	}

	if a.RightsList != nil {
		r.Licenses = make([]string, 0, len(a.RightsList))
		for _, l := range a.RightsList {
			id := l.RightsIdentifier
			if id == "" {
				id = l.Rights
			}
			if id = strings.TrimSpace(id); id != "" {
				r.Licenses = append(r.Licenses, strings.ToLower(id))
			}
		}
	}

	if a.RelatedIdentifiers != nil {
		r.Related = make([]models.RelatedIdentifier, 0, len(a.RelatedIdentifiers))
		for _, rel := range a.RelatedIdentifiers {
			r.Related = append(r.Related, models.RelatedIdentifier{
				Identifier:   rel.RelatedIdentifier,
				Scheme:       strings.ToLower(rel.RelatedIdentifierType),
				Relation:     rel.RelationType,
				ResourceType: strings.ToLower(rel.ResourceTypeGeneral),
			})
		}
	}

	if a.FundingReferences != nil {
		r.Funding = make([]string, 0, len(a.FundingReferences))
		for _, f := range a.FundingReferences {
			r.Funding = append(r.Funding, joinNonEmpty(" ", f.FunderName, f.AwardNumber))
		}
	}

	var supervisors []string
	for _, c := range a.Contributors {
		if strings.EqualFold(c.ContributorType, "Supervisor") {
			supervisors = append(supervisors, c.Name)
		}
	}
	if strings.Contains(strings.ToLower(a.Types.ResourceType), "thesis") || supervisors != nil {
		r.Thesis = &models.Thesis{Supervisors: supervisors}
	}
	return r, nil
}

func joinNonEmpty(sep string, parts ...string) string {
	var out []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}
