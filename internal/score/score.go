package score

import (
	"math"

	"github.com/joescharf/curate/internal/checklist"
	"github.com/joescharf/curate/internal/models"
)

// Score is the computed quality of a checklist.
type Score struct {
	Total       int  `json:"total"`
	Must        int  `json:"must"`         // 0-50
	Recommended int  `json:"recommended"`  // 0-30
	NiceToHave  int  `json:"nice_to_have"` // 0-20
	Acceptable  bool `json:"acceptable"`
}

// Scorer computes checklist scores.
type Scorer struct {
	weights map[models.Tier]int
	points  map[models.Verdict]float64
}

// NewScorer returns a Scorer with the default tier weights.
func NewScorer() *Scorer {
	return &Scorer{
		weights: map[models.Tier]int{
			models.TierMust:        50,
			models.TierRecommended: 30,
			models.TierNiceToHave:  20,
		},
		points: map[models.Verdict]float64{
			models.VerdictOK:      1,
			models.VerdictMaybe:   0.75,
			models.VerdictNeutral: 0.5,
			models.VerdictMeh:     0.25,
			models.VerdictBad:     0,
		},
	}
}

// Score computes a score (0-100) for the entries of a checklist. A record
// is acceptable when no MUST criterion is bad or meh.
func (s *Scorer) Score(entries []checklist.Entry) *Score {
	sum := make(map[models.Tier]float64)
	count := make(map[models.Tier]int)
	sc := &Score{Acceptable: true}

	for _, e := range entries {
		t := e.Criterion.Tier
		sum[t] += s.points[e.Verdict]
		count[t]++
		if t == models.TierMust && (e.Verdict == models.VerdictBad || e.Verdict == models.VerdictMeh) {
			sc.Acceptable = false
		}
	}

	sc.Must = s.tierPoints(models.TierMust, sum, count)
	sc.Recommended = s.tierPoints(models.TierRecommended, sum, count)
	sc.NiceToHave = s.tierPoints(models.TierNiceToHave, sum, count)
	sc.Total = sc.Must + sc.Recommended + sc.NiceToHave
	return sc
}

// tierPoints scales the average verdict of a tier to its weight. A tier
// without entries earns full points.
func (s *Scorer) tierPoints(t models.Tier, sum map[models.Tier]float64, count map[models.Tier]int) int {
	w := s.weights[t]
	if count[t] == 0 {
		return w
	}
	return int(math.Round(float64(w) * sum[t] / float64(count[t])))
}
