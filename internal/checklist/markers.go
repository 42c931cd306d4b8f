// Package checklist models the tri-state buttons of the curation checklist
// and the per-record session that holds their state.
package checklist

import (
	"strings"

	"github.com/joescharf/curate/internal/models"
)

// Mark is the symbol rendered in one slot of an entry's button group.
type Mark string

const (
	MarkNone   Mark = " "
	MarkWeak   Mark = "?"
	MarkStrong Mark = "x"
)

// Slot indexes the three buttons of an entry.
type Slot int

const (
	SlotNegative Slot = iota
	SlotUndecided
	SlotPositive
)

// Valid reports whether s addresses one of the three slots.
func (s Slot) Valid() bool {
	return s >= SlotNegative && s <= SlotPositive
}

// ParseSlot accepts a slot index or one of the names bad, undecided, ok.
func ParseSlot(s string) (Slot, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "0", "bad", "negative":
		return SlotNegative, true
	case "1", "undecided", "neutral":
		return SlotUndecided, true
	case "2", "ok", "positive":
		return SlotPositive, true
	}
	return 0, false
}

// Markers is the rendered state of an entry: [negative, undecided, positive].
type Markers [3]Mark

// String renders the markers as "[x| | ]".
func (m Markers) String() string {
	return "[" + string(m[0]) + "|" + string(m[1]) + "|" + string(m[2]) + "]"
}

var verdictMarkers = map[models.Verdict]Markers{
	models.VerdictNeutral: {MarkNone, MarkWeak, MarkNone},
	models.VerdictOK:      {MarkNone, MarkNone, MarkStrong},
	models.VerdictMaybe:   {MarkNone, MarkNone, MarkWeak},
	models.VerdictBad:     {MarkStrong, MarkNone, MarkNone},
	models.VerdictMeh:     {MarkWeak, MarkNone, MarkNone},
}

// VerdictMarkers projects a verdict onto its marker triple. Unknown verdicts
// render as neutral.
func VerdictMarkers(v models.Verdict) Markers {
	if m, ok := verdictMarkers[v]; ok {
		return m
	}
	return verdictMarkers[models.VerdictNeutral]
}

// SlotVerdict maps the active slot and its mark back to a verdict.
func SlotVerdict(slot Slot, mark Mark) models.Verdict {
	switch {
	case slot == SlotNegative && mark == MarkStrong:
		return models.VerdictBad
	case slot == SlotNegative && mark == MarkWeak:
		return models.VerdictMeh
	case slot == SlotPositive && mark == MarkWeak:
		return models.VerdictMaybe
	case slot == SlotPositive && mark == MarkStrong:
		return models.VerdictOK
	}
	return models.VerdictNeutral
}

// MarkersVerdict reads the verdict from the first set slot.
func MarkersVerdict(m Markers) models.Verdict {
	for i, mark := range m {
		if mark != MarkNone && mark != "" {
			return SlotVerdict(Slot(i), mark)
		}
	}
	return models.VerdictNeutral
}

// Advance returns the mark a slot takes when clicked: an unset or weak slot
// becomes strong, a strong slot is downgraded to weak.
func Advance(m Mark) Mark {
	if m == MarkStrong {
		return MarkWeak
	}
	return MarkStrong
}

// Click applies a user click on slot. Setting a slot strong clears its
// siblings so at most one slot is set; a downgrade leaves them untouched.
func Click(m Markers, slot Slot) Markers {
	if !slot.Valid() {
		return m
	}
	next := Advance(m[slot])
	if next == MarkStrong {
		m = Markers{MarkNone, MarkNone, MarkNone}
	}
	m[slot] = next
	return m
}
