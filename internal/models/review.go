package models

import "time"

// Review records one finished curation review: the final checklist and the
// feedback that was drafted from it.
type Review struct {
	ID        string             `json:"id"`
	RecordID  string             `json:"record_id"`
	RequestID string             `json:"request_id,omitempty"` // community request id, empty for ad-hoc checks
	Source    Source             `json:"source"`
	Title     string             `json:"title"`
	URL       string             `json:"url"`
	Verdicts  map[string]Verdict `json:"verdicts"`
	Score     int                `json:"score"`
	Positive  bool               `json:"positive"`
	Feedback  string             `json:"feedback"`
	CreatedAt time.Time          `json:"created_at"`
}
