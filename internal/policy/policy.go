// Package policy infers initial checklist verdicts from a record and the
// facts gathered about its landing page. Every rule is a pure function; no
// I/O happens here.
package policy

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/joescharf/curate/internal/catalog"
	"github.com/joescharf/curate/internal/models"
)

// Rule infers the verdict of one criterion.
type Rule func(e *Evaluator, r *models.Record, f *models.Facts) models.Verdict

// Evaluator applies the per-criterion rules of a policy.
type Evaluator struct {
	cfg         Config
	institution *regexp.Regexp
	email       *regexp.Regexp
	funding     *regexp.Regexp
	thesis      *regexp.Regexp
	licenses    map[string]bool
	rules       map[string]Rule
}

// New compiles the policy configuration into an Evaluator.
func New(cfg Config) (*Evaluator, error) {
	institution, err := regexp.Compile("(?i)" + cfg.InstitutionPattern)
	if err != nil {
		return nil, fmt.Errorf("institution pattern: %w", err)
	}
	email, err := regexp.Compile("(?i)" + cfg.EmailPattern)
	if err != nil {
		return nil, fmt.Errorf("email pattern: %w", err)
	}

	e := &Evaluator{
		cfg:         cfg,
		institution: institution,
		email:       email,
		funding:     phraseRegexp(cfg.FundingPhrases),
		thesis:      phraseRegexp(cfg.ThesisPhrases),
		licenses:    make(map[string]bool, len(cfg.AllowedLicenses)),
		rules:       defaultRules(),
	}
	for _, l := range cfg.AllowedLicenses {
		e.licenses[strings.ToLower(strings.TrimSpace(l))] = true
	}
	return e, nil
}

// MustNew is like New but panics on an invalid configuration.
func MustNew(cfg Config) *Evaluator {
	e, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return e
}

func defaultRules() map[string]Rule {
	return map[string]Rule{
		"M1": affiliationRule,
		"M2": contactRule,
		"M3": accessRule,
		"M4": descriptionRule,
		"M5": readmeRule,
		"M6": repositoryDOIRule,
		"R1": orcidRule,
		"R2": titleRule,
		"R3": relatedRule,
		"R4": fundingRule,
		"N1": cleanContentRule,
		"N2": licenseRule,
		"N4": thesisRule,
		"N5": openFormatRule,
		"N7": keywordRule,
	}
}

// Supports reports whether a rule exists for the criterion.
func (e *Evaluator) Supports(id string) bool {
	_, ok := e.rules[id]
	return ok
}

// Evaluate infers the verdict of criterion id. Unsupported criteria and
// rules that hit malformed input resolve to neutral.
func (e *Evaluator) Evaluate(id string, r *models.Record, f *models.Facts) (v models.Verdict) {
	rule, ok := e.rules[id]
	if !ok {
		return models.VerdictNeutral
	}
	if r == nil {
		r = &models.Record{}
	}
	if f == nil {
		f = &models.Facts{}
	}

	defer func() {
		if recover() != nil || !v.Valid() {
			v = models.VerdictNeutral
		}
	}()
	return rule(e, r, f)
}

// Seed evaluates every criterion of the catalog.
func (e *Evaluator) Seed(cat *catalog.Catalog, r *models.Record, f *models.Facts) map[string]models.Verdict {
	seeds := make(map[string]models.Verdict)
	for _, id := range cat.IDs() {
		seeds[id] = e.Evaluate(id, r, f)
	}
	return seeds
}

func phraseRegexp(phrases []string) *regexp.Regexp {
	if len(phrases) == 0 {
		return nil
	}
	quoted := make([]string, len(phrases))
	for i, p := range phrases {
		quoted[i] = regexp.QuoteMeta(strings.ToLower(p))
	}
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
}

func matches(re *regexp.Regexp, s string) bool {
	return re != nil && s != "" && re.MatchString(s)
}
