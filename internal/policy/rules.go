package policy

import (
	"path"
	"regexp"
	"strings"

	"github.com/joescharf/curate/internal/models"
)

// fraction maps "how many of n satisfy" onto a verdict.
func fraction(matched, total int, none models.Verdict) models.Verdict {
	switch {
	case total == 0:
		return models.VerdictNeutral
	case matched == total:
		return models.VerdictOK
	case matched > 0:
		return models.VerdictMaybe
	default:
		return none
	}
}

func (e *Evaluator) affiliated(c models.Creator) bool {
	for _, a := range c.Affiliations {
		if e.institution.MatchString(a) {
			return true
		}
	}
	return false
}

func affiliationRule(e *Evaluator, r *models.Record, _ *models.Facts) models.Verdict {
	n := 0
	for _, c := range r.Creators {
		if e.affiliated(c) {
			n++
		}
	}
	return fraction(n, len(r.Creators), models.VerdictBad)
}

func contactRule(e *Evaluator, r *models.Record, _ *models.Facts) models.Verdict {
	if len(r.Creators) == 0 {
		return models.VerdictNeutral
	}
	for _, c := range r.Creators {
		if e.affiliated(c) && c.HasScheme("orcid") {
			return models.VerdictOK
		}
	}
	if e.email.MatchString(r.DescriptionText()) {
		return models.VerdictMaybe
	}
	return models.VerdictBad
}

// accessRule never answers ok: password-protected but technically public
// content cannot be told apart without opening the files.
func accessRule(e *Evaluator, r *models.Record, f *models.Facts) models.Verdict {
	switch r.Access {
	case models.AccessRestricted, models.AccessEmbargoed, models.AccessClosed:
		return models.VerdictBad
	}
	for _, banner := range f.Banners {
		lower := strings.ToLower(banner)
		for _, phrase := range e.cfg.RestrictedPhrases {
			if phrase != "" && strings.Contains(lower, strings.ToLower(phrase)) {
				return models.VerdictBad
			}
		}
	}
	return models.VerdictMaybe
}

var (
	urlOrDOI  = regexp.MustCompile(`(?i)(https?://\S+|\bdoi:\s*\S+|\b10\.\d{4,9}/\S+)`)
	wordChars = regexp.MustCompile(`[\p{L}\p{N}]{2,}`)
	doiInText = regexp.MustCompile(`\b10\.\d{4,9}/[^\s"<>]+`)
)

func descriptionRule(_ *Evaluator, r *models.Record, f *models.Facts) models.Verdict {
	if r.Description == nil {
		return models.VerdictNeutral
	}
	text := strings.TrimSpace(*r.Description)
	if text == "" {
		return models.VerdictBad
	}
	// Only references, no prose of its own.
	rest := urlOrDOI.ReplaceAllString(text, " ")
	if len(wordChars.FindAllString(rest, -1)) < 4 {
		return models.VerdictMeh
	}
	if f.Assessment != nil && f.Assessment.Verdict.Valid() {
		return f.Assessment.Verdict
	}
	return models.VerdictNeutral
}

// fileNames prefers the record's listing and falls back to the page.
func fileNames(r *models.Record, f *models.Facts) []string {
	if len(r.Files) > 0 {
		names := make([]string, 0, len(r.Files))
		for _, file := range r.Files {
			names = append(names, file.Name)
		}
		return names
	}
	return f.FileNames
}

func readmeRule(_ *Evaluator, r *models.Record, f *models.Facts) models.Verdict {
	names := fileNames(r, f)
	for _, name := range names {
		i := strings.Index(strings.ToLower(path.Base(name)), "readme")
		if i >= 0 && i < 4 {
			return models.VerdictOK
		}
	}
	if len(names) >= 2 {
		return models.VerdictMeh
	}
	return models.VerdictNeutral
}

func repositoryDOIRule(e *Evaluator, r *models.Record, _ *models.Facts) models.Verdict {
	doi := normalizeDOI(r.DOI)
	switch {
	case doi == "":
		return models.VerdictNeutral
	case e.cfg.RepositoryDOIPrefix != "" && strings.HasPrefix(doi, strings.ToLower(e.cfg.RepositoryDOIPrefix)):
		return models.VerdictOK
	default:
		// Re-using an existing DOI is allowed for exact copies.
		return models.VerdictMaybe
	}
}

func normalizeDOI(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, p := range []string{"https://doi.org/", "http://doi.org/", "https://dx.doi.org/", "doi:"} {
		s = strings.TrimPrefix(s, p)
	}
	return s
}

func orcidRule(_ *Evaluator, r *models.Record, _ *models.Facts) models.Verdict {
	n := 0
	for _, c := range r.Creators {
		if c.HasScheme("orcid") {
			n++
		}
	}
	return fraction(n, len(r.Creators), models.VerdictNeutral)
}

var fileLikeTitle = regexp.MustCompile(`(?i)\.(zip|tar|gz|csv|txt|xlsx?|h5|hdf5|mat|json|npy|npz|pdf|docx?)$`)

func titleRule(_ *Evaluator, r *models.Record, _ *models.Facts) models.Verdict {
	title := strings.TrimSpace(r.Title)
	if title == "" {
		return models.VerdictNeutral
	}
	if fileLikeTitle.MatchString(title) || (strings.Contains(title, "_") && !strings.Contains(title, " ")) {
		return models.VerdictMeh
	}
	return models.VerdictNeutral
}

func relatedRule(_ *Evaluator, r *models.Record, f *models.Facts) models.Verdict {
	if len(r.Related) == 0 {
		// Nothing declared; a DOI cited in the description is a hint that
		// a publication exists.
		if doiInText.MatchString(r.DescriptionText()) {
			return models.VerdictBad
		}
	}
	x := f.CrossRef
	if x == nil || len(x.Checked) == 0 {
		return models.VerdictNeutral
	}
	if len(x.Missing) > 0 {
		return models.VerdictMaybe
	}
	if len(x.Failed) > 0 {
		return models.VerdictNeutral
	}
	return models.VerdictOK
}

func fundingRule(e *Evaluator, r *models.Record, _ *models.Facts) models.Verdict {
	if len(r.Funding) > 0 {
		return models.VerdictOK
	}
	if matches(e.funding, r.DescriptionText()) {
		return models.VerdictBad
	}
	return models.VerdictNeutral
}

var junkFiles = regexp.MustCompile(`(?i)(^|/)(\.ds_store|__macosx|thumbs\.db|desktop\.ini|~\$[^/]*|[^/]*\.tmp|[^/]*~)(/|$)`)

// cleanContentRule flags OS junk, empty files and files over the size
// ceiling. Sizes are only known from the record's own listing.
func cleanContentRule(e *Evaluator, r *models.Record, f *models.Facts) models.Verdict {
	for _, name := range fileNames(r, f) {
		if junkFiles.MatchString(name) {
			return models.VerdictBad
		}
	}
	for _, file := range r.Files {
		if file.Size == nil {
			continue
		}
		if size := *file.Size; size == 0 || (e.cfg.MaxFileSize > 0 && size > e.cfg.MaxFileSize) {
			return models.VerdictBad
		}
	}
	return models.VerdictNeutral
}

// licenseRule accepts the record when any declared license is allow-listed.
// An absent license field leaves the criterion undetermined.
func licenseRule(e *Evaluator, r *models.Record, _ *models.Facts) models.Verdict {
	if r.Licenses == nil {
		return models.VerdictNeutral
	}
	declared := false
	for _, l := range r.Licenses {
		id := strings.ToLower(strings.TrimSpace(l))
		if id == "" {
			continue
		}
		declared = true
		if e.licenses[id] {
			return models.VerdictOK
		}
	}
	if !declared {
		return models.VerdictBad
	}
	return models.VerdictNeutral
}

func thesisRule(e *Evaluator, r *models.Record, f *models.Facts) models.Verdict {
	for _, t := range []*models.Thesis{r.Thesis, f.Thesis} {
		if t == nil {
			continue
		}
		if len(t.Supervisors) > 0 {
			return models.VerdictOK
		}
		return models.VerdictBad
	}
	if matches(e.thesis, r.DescriptionText()) {
		return models.VerdictBad
	}
	return models.VerdictNeutral
}

func openFormatRule(e *Evaluator, r *models.Record, f *models.Facts) models.Verdict {
	for _, name := range fileNames(r, f) {
		ext := strings.ToLower(path.Ext(name))
		for _, p := range e.cfg.ProprietaryExtensions {
			if ext == strings.ToLower(p) {
				return models.VerdictMeh
			}
		}
	}
	return models.VerdictNeutral
}

func keywordRule(_ *Evaluator, r *models.Record, _ *models.Facts) models.Verdict {
	kw := r.Keywords
	if kw == nil {
		return models.VerdictNeutral
	}
	if len(kw) == 0 {
		return models.VerdictMeh
	}
	if len(kw) == 1 && strings.ContainsAny(kw[0], ",;") {
		return models.VerdictBad
	}
	distinct := make(map[string]bool, len(kw))
	for _, k := range kw {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			distinct[k] = true
		}
	}
	switch {
	case len(distinct) > 2:
		return models.VerdictOK
	case len(distinct) == 2:
		return models.VerdictMaybe
	}
	return models.VerdictNeutral
}
