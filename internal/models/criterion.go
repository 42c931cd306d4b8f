package models

// Tier is the importance classification of a criterion.
type Tier string

const (
	TierMust        Tier = "must"
	TierRecommended Tier = "recommended"
	TierNiceToHave  Tier = "nth"
)

// Valid reports whether t is a known tier.
func (t Tier) Valid() bool {
	return t == TierMust || t == TierRecommended || t == TierNiceToHave
}

// TierInfo describes a tier as displayed in feedback messages.
type TierInfo struct {
	Tier  Tier   `json:"tier"`
	Label string `json:"label"`
}

// Criterion is one curation policy rule.
type Criterion struct {
	ID          string             `json:"id"`
	Tier        Tier               `json:"tier"`
	Short       string             `json:"short"`
	Description string             `json:"description"`
	Answers     map[Verdict]string `json:"answers"`
}

// Answer returns the feedback text for the given verdict. Verdict ok always
// yields an empty answer.
func (c Criterion) Answer(v Verdict) string {
	if v == VerdictOK {
		return ""
	}
	return c.Answers[v]
}
