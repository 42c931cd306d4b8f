package policy

// Config holds the institution-specific parameters of the curation policy.
type Config struct {
	// InstitutionPattern is a case-insensitive regular expression matched
	// against creator affiliations.
	InstitutionPattern string
	// EmailPattern matches an institutional e-mail address in the description.
	EmailPattern string
	// AllowedLicenses lists permissive license identifiers, lower-case.
	AllowedLicenses []string
	// RestrictedPhrases are banner texts signalling non-public content.
	RestrictedPhrases []string
	// FundingPhrases signal an acknowledgement of funding in free text.
	FundingPhrases []string
	// ThesisPhrases signal that the work relates to a thesis.
	ThesisPhrases []string
	// ProprietaryExtensions are file extensions of closed formats.
	ProprietaryExtensions []string
	// RepositoryDOIPrefix is the prefix of DOIs minted by the repository.
	RepositoryDOIPrefix string
	// MaxFileSize is the largest acceptable file in bytes. Zero disables
	// the check.
	MaxFileSize int64
}

// DefaultConfig returns the policy used for the EPFL community.
func DefaultConfig() Config {
	return Config{
		InstitutionPattern: `\bEPFL\b|[ée]cole polytechnique f[ée]d[ée]rale de lausanne|swiss federal institute of technology (in )?lausanne`,
		EmailPattern:       `[A-Za-z0-9._%+-]+@epfl\.ch\b`,
		AllowedLicenses: []string{
			"cc0-1.0", "cc-by-4.0", "cc-by-sa-4.0", "mit", "bsd-3-clause", "gpl",
			"gpl-3.0", "gpl-2.0", "gpl-3.0-or-later", "bsd-2-clause", "apache-2.0",
		},
		RestrictedPhrases: []string{
			"Files are not publicly accessible.",
			"Files are currently under embargo",
			"Restricted",
			"Embargoed",
		},
		FundingPhrases: []string{
			"funded by", "funding from", "grant no", "grant number", "grant agreement",
			"supported by the swiss national science foundation", "snsf", "horizon 2020", "erc",
		},
		ThesisPhrases: []string{
			"phd thesis", "doctoral thesis", "ph.d. thesis", "master thesis", "master's thesis", "dissertation",
		},
		ProprietaryExtensions: []string{
			".xlsx", ".xls", ".docx", ".doc", ".pptx", ".ppt", ".mat", ".sav", ".dta", ".opj", ".spe",
		},
		RepositoryDOIPrefix: "10.5281/zenodo.",
		MaxFileSize:         100 << 20,
	}
}
