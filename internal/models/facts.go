package models

// Facts carries everything the policy evaluator consumes besides the record:
// facts read from the rendered landing page and the outcome of asynchronous
// lookups that were joined before evaluation.
type Facts struct {
	// Banners holds the text of notice panels shown on the landing page.
	Banners []string `json:"banners,omitempty"`
	// FileNames lists file names rendered on the page. Used when the record
	// itself has no file listing.
	FileNames []string `json:"file_names,omitempty"`
	// Thesis is set when the page declares an awarding university.
	Thesis *Thesis `json:"thesis,omitempty"`

	CrossRef   *CrossRef   `json:"cross_ref,omitempty"`
	Assessment *Assessment `json:"assessment,omitempty"`
}

// CrossRef is the joined outcome of the related-publication lookups.
type CrossRef struct {
	Checked []string `json:"checked"`
	Missing []string `json:"missing"`
	Failed  []string `json:"failed"`
}

// Assessment is an automated judgement of the description's quality.
type Assessment struct {
	Verdict Verdict `json:"verdict"`
	Comment string  `json:"comment"`
}
