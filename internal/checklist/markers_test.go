package checklist

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/joescharf/curate/internal/models"
)

func TestVerdictMarkers_RoundTrip(t *testing.T) {
	for _, v := range models.Verdicts {
		t.Run(string(v), func(t *testing.T) {
			assert.Equal(t, v, MarkersVerdict(VerdictMarkers(v)))
		})
	}
}

func TestVerdictMarkers_OneSlotSet(t *testing.T) {
	tests := []struct {
		verdict models.Verdict
		slot    Slot
		mark    Mark
	}{
		{models.VerdictBad, SlotNegative, MarkStrong},
		{models.VerdictMeh, SlotNegative, MarkWeak},
		{models.VerdictMaybe, SlotPositive, MarkWeak},
		{models.VerdictOK, SlotPositive, MarkStrong},
		{models.VerdictNeutral, SlotUndecided, MarkWeak},
	}
	for _, tt := range tests {
		t.Run(string(tt.verdict), func(t *testing.T) {
			m := VerdictMarkers(tt.verdict)
			set := 0
			for i, mark := range m {
				if mark != MarkNone {
					set++
					assert.Equal(t, tt.slot, Slot(i))
					assert.Equal(t, tt.mark, mark)
				}
			}
			assert.Equal(t, 1, set)
		})
	}
}

func TestVerdictMarkers_Unknown(t *testing.T) {
	assert.Equal(t, VerdictMarkers(models.VerdictNeutral), VerdictMarkers("great"))
}

func TestSlotVerdict(t *testing.T) {
	assert.Equal(t, models.VerdictBad, SlotVerdict(SlotNegative, MarkStrong))
	assert.Equal(t, models.VerdictMeh, SlotVerdict(SlotNegative, MarkWeak))
	assert.Equal(t, models.VerdictMaybe, SlotVerdict(SlotPositive, MarkWeak))
	assert.Equal(t, models.VerdictOK, SlotVerdict(SlotPositive, MarkStrong))
	assert.Equal(t, models.VerdictNeutral, SlotVerdict(SlotUndecided, MarkStrong))
	assert.Equal(t, models.VerdictNeutral, SlotVerdict(SlotNegative, MarkNone))
}

func TestMarkersVerdict_Empty(t *testing.T) {
	assert.Equal(t, models.VerdictNeutral, MarkersVerdict(Markers{MarkNone, MarkNone, MarkNone}))
	assert.Equal(t, models.VerdictNeutral, MarkersVerdict(Markers{}))
}

func TestAdvance(t *testing.T) {
	assert.Equal(t, MarkStrong, Advance(MarkNone))
	assert.Equal(t, MarkStrong, Advance(MarkWeak))
	assert.Equal(t, MarkWeak, Advance(MarkStrong))
}

func TestClick(t *testing.T) {
	tests := []struct {
		name  string
		start Markers
		slot  Slot
		want  Markers
	}{
		{"unset slot becomes strong and clears siblings", Markers{" ", "?", " "}, SlotPositive, Markers{" ", " ", "x"}},
		{"strong slot downgrades", Markers{" ", " ", "x"}, SlotPositive, Markers{" ", " ", "?"}},
		{"weak slot upgrades", Markers{"?", " ", " "}, SlotNegative, Markers{"x", " ", " "}},
		{"switch side", Markers{"x", " ", " "}, SlotPositive, Markers{" ", " ", "x"}},
		{"downgrade keeps siblings", Markers{"x", " ", "x"}, SlotNegative, Markers{"?", " ", "x"}},
		{"out of range ignored", Markers{"x", " ", " "}, Slot(7), Markers{"x", " ", " "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Click(tt.start, tt.slot))
		})
	}
}

func TestParseSlot(t *testing.T) {
	s, ok := ParseSlot("bad")
	assert.True(t, ok)
	assert.Equal(t, SlotNegative, s)

	s, ok = ParseSlot("2")
	assert.True(t, ok)
	assert.Equal(t, SlotPositive, s)

	_, ok = ParseSlot("left")
	assert.False(t, ok)
}

func TestMarkersString(t *testing.T) {
	assert.Equal(t, "[x| | ]", VerdictMarkers(models.VerdictBad).String())
}
