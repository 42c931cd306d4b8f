// Package catalog holds the curation criteria, declared once at startup from
// an embedded YAML document and never mutated afterwards.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/joescharf/curate/internal/models"
)

//go:embed criteria.yaml
var defaultCriteria []byte

// ErrUnknownCriterion is returned when a criterion id is not registered.
var ErrUnknownCriterion = errors.New("unknown criterion")

// Catalog is an immutable, ordered set of criteria.
type Catalog struct {
	tiers    []models.TierInfo
	criteria []models.Criterion
	byID     map[string]int
}

type fileFormat struct {
	Tiers    []models.TierInfo         `yaml:"tiers"`
	Defaults map[models.Verdict]string `yaml:"defaults"`
	Criteria []criterionEntry          `yaml:"criteria"`
}

type criterionEntry struct {
	ID          string                    `yaml:"id"`
	Tier        models.Tier               `yaml:"tier"`
	Short       string                    `yaml:"short"`
	Description string                    `yaml:"description"`
	Answers     map[models.Verdict]string `yaml:"answers"`
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the process-wide catalog parsed from the embedded criteria.
// It panics if the embedded document is invalid, which is a build defect.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := Parse(defaultCriteria)
		if err != nil {
			panic(fmt.Sprintf("catalog: embedded criteria: %v", err))
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// Parse builds a catalog from a YAML document.
func Parse(data []byte) (*Catalog, error) {
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse criteria: %w", err)
	}
	if len(f.Tiers) == 0 {
		return nil, errors.New("no tiers declared")
	}

	rank := make(map[models.Tier]int, len(f.Tiers))
	for i, t := range f.Tiers {
		if !t.Tier.Valid() {
			return nil, fmt.Errorf("invalid tier %q", t.Tier)
		}
		if _, dup := rank[t.Tier]; dup {
			return nil, fmt.Errorf("duplicate tier %q", t.Tier)
		}
		rank[t.Tier] = i
	}

	c := &Catalog{
		tiers: append([]models.TierInfo(nil), f.Tiers...),
		byID:  make(map[string]int, len(f.Criteria)),
	}
	seen := make(map[string]bool, len(f.Criteria))
	for _, e := range f.Criteria {
		if e.ID == "" {
			return nil, errors.New("criterion without id")
		}
		if seen[e.ID] {
			return nil, fmt.Errorf("duplicate criterion %s", e.ID)
		}
		seen[e.ID] = true
		if _, ok := rank[e.Tier]; !ok {
			return nil, fmt.Errorf("criterion %s: undeclared tier %q", e.ID, e.Tier)
		}

		answers := make(map[models.Verdict]string, len(models.Verdicts))
		for v, text := range f.Defaults {
			if !v.Valid() {
				return nil, fmt.Errorf("defaults: unknown verdict %q", v)
			}
			answers[v] = text
		}
		for v, text := range e.Answers {
			if !v.Valid() {
				return nil, fmt.Errorf("criterion %s: unknown verdict %q", e.ID, v)
			}
			answers[v] = text
		}
		answers[models.VerdictOK] = ""

		c.criteria = append(c.criteria, models.Criterion{
			ID:          e.ID,
			Tier:        e.Tier,
			Short:       e.Short,
			Description: e.Description,
			Answers:     answers,
		})
	}

	sort.SliceStable(c.criteria, func(i, j int) bool {
		ri, rj := rank[c.criteria[i].Tier], rank[c.criteria[j].Tier]
		if ri != rj {
			return ri < rj
		}
		return c.criteria[i].ID < c.criteria[j].ID
	})
	for i, cr := range c.criteria {
		c.byID[cr.ID] = i
	}
	return c, nil
}

// Lookup returns the criterion registered under id.
func (c *Catalog) Lookup(id string) (models.Criterion, error) {
	i, ok := c.byID[id]
	if !ok {
		return models.Criterion{}, fmt.Errorf("%w: %s", ErrUnknownCriterion, id)
	}
	return c.criteria[i], nil
}

// All returns every criterion grouped by tier in declaration order, sorted by
// id within a tier.
func (c *Catalog) All() []models.Criterion {
	return append([]models.Criterion(nil), c.criteria...)
}

// IDs returns the criterion ids in catalog order.
func (c *Catalog) IDs() []string {
	ids := make([]string, len(c.criteria))
	for i, cr := range c.criteria {
		ids[i] = cr.ID
	}
	return ids
}

// Tiers returns the tiers in declaration order.
func (c *Catalog) Tiers() []models.TierInfo {
	return append([]models.TierInfo(nil), c.tiers...)
}

// TierLabel returns the display label of a tier, or the tier name itself.
func (c *Catalog) TierLabel(t models.Tier) string {
	for _, ti := range c.tiers {
		if ti.Tier == t {
			return ti.Label
		}
	}
	return string(t)
}
