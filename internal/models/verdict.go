package models

import "strings"

// Verdict is the tri-state checklist value of one criterion for one record.
type Verdict string

const (
	VerdictBad     Verdict = "bad"
	VerdictMeh     Verdict = "meh"
	VerdictMaybe   Verdict = "maybe"
	VerdictOK      Verdict = "ok"
	VerdictNeutral Verdict = "neutral"
)

// Verdicts lists every verdict from worst to best, neutral last.
var Verdicts = []Verdict{VerdictBad, VerdictMeh, VerdictMaybe, VerdictOK, VerdictNeutral}

// Valid reports whether v is one of the five enumerated verdicts.
func (v Verdict) Valid() bool {
	switch v {
	case VerdictBad, VerdictMeh, VerdictMaybe, VerdictOK, VerdictNeutral:
		return true
	}
	return false
}

// NeedsFeedback reports whether v flags a criterion as not met (bad, meh or maybe).
func (v Verdict) NeedsFeedback() bool {
	return v == VerdictBad || v == VerdictMeh || v == VerdictMaybe
}

// ParseVerdict converts a user-supplied string into a Verdict.
func ParseVerdict(s string) (Verdict, bool) {
	v := Verdict(strings.ToLower(strings.TrimSpace(s)))
	return v, v.Valid()
}
