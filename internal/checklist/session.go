package checklist

import (
	"fmt"
	"strings"

	"github.com/joescharf/curate/internal/catalog"
	"github.com/joescharf/curate/internal/models"
)

// Entry associates a criterion with its current verdict.
type Entry struct {
	Criterion models.Criterion `json:"criterion"`
	Verdict   models.Verdict   `json:"verdict"`
}

// Markers returns the rendered button state of the entry.
func (e Entry) Markers() Markers {
	return VerdictMarkers(e.Verdict)
}

// Session holds the checklist state of one reviewed record. The verdict map
// is the only source of truth; markers are derived from it on demand.
// A Session is not safe for concurrent use.
type Session struct {
	catalog  *catalog.Catalog
	verdicts map[string]models.Verdict
}

// NewSession creates one entry per catalog criterion, seeded from seeds.
// Criteria without a valid seed start neutral; seeds for unknown ids are
// ignored.
func NewSession(cat *catalog.Catalog, seeds map[string]models.Verdict) *Session {
	s := &Session{
		catalog:  cat,
		verdicts: make(map[string]models.Verdict),
	}
	for _, id := range cat.IDs() {
		v := seeds[id]
		if !v.Valid() {
			v = models.VerdictNeutral
		}
		s.verdicts[id] = v
	}
	return s
}

// Catalog returns the catalog the session was created from.
func (s *Session) Catalog() *catalog.Catalog {
	return s.catalog
}

// Verdict returns the current verdict of a criterion.
func (s *Session) Verdict(id string) (models.Verdict, error) {
	v, ok := s.verdicts[id]
	if !ok {
		return "", fmt.Errorf("%w: %s", catalog.ErrUnknownCriterion, id)
	}
	return v, nil
}

// Markers returns the rendered button state of a criterion.
func (s *Session) Markers(id string) (Markers, error) {
	v, err := s.Verdict(id)
	if err != nil {
		return Markers{}, err
	}
	return VerdictMarkers(v), nil
}

// Set overrides the verdict of a criterion.
func (s *Session) Set(id string, v models.Verdict) error {
	if _, ok := s.verdicts[id]; !ok {
		return fmt.Errorf("%w: %s", catalog.ErrUnknownCriterion, id)
	}
	if !v.Valid() {
		return fmt.Errorf("invalid verdict %q", v)
	}
	s.verdicts[id] = v
	return nil
}

// Click applies a user click on one slot of a criterion and returns the
// resulting verdict.
func (s *Session) Click(id string, slot Slot) (models.Verdict, error) {
	v, err := s.Verdict(id)
	if err != nil {
		return "", err
	}
	next := MarkersVerdict(Click(VerdictMarkers(v), slot))
	s.verdicts[id] = next
	return next, nil
}

// Entries returns all entries in catalog order.
func (s *Session) Entries() []Entry {
	all := s.catalog.All()
	entries := make([]Entry, len(all))
	for i, c := range all {
		entries[i] = Entry{Criterion: c, Verdict: s.verdicts[c.ID]}
	}
	return entries
}

// Verdicts returns a copy of the criterion id to verdict map.
func (s *Session) Verdicts() map[string]models.Verdict {
	out := make(map[string]models.Verdict, len(s.verdicts))
	for id, v := range s.verdicts {
		out[id] = v
	}
	return out
}

// Counts tallies entries per verdict.
func (s *Session) Counts() map[models.Verdict]int {
	counts := make(map[models.Verdict]int, len(models.Verdicts))
	for _, v := range s.verdicts {
		counts[v]++
	}
	return counts
}

// ParseOverrides parses assignments of the form "R2=ok". Criterion ids are
// upper-cased; they are not checked against a catalog here.
func ParseOverrides(assignments []string) (map[string]models.Verdict, error) {
	out := make(map[string]models.Verdict, len(assignments))
	for _, a := range assignments {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		id, val, ok := strings.Cut(a, "=")
		if !ok {
			return nil, fmt.Errorf("invalid override %q: want ID=verdict", a)
		}
		v, ok := models.ParseVerdict(val)
		if !ok {
			return nil, fmt.Errorf("invalid override %q: unknown verdict %q", a, val)
		}
		out[strings.ToUpper(strings.TrimSpace(id))] = v
	}
	return out, nil
}

// Apply sets every override on the session.
func (s *Session) Apply(overrides map[string]models.Verdict) error {
	for id, v := range overrides {
		if err := s.Set(id, v); err != nil {
			return err
		}
	}
	return nil
}
