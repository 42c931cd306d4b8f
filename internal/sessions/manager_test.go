package sessions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/curate/internal/catalog"
	"github.com/joescharf/curate/internal/checklist"
	"github.com/joescharf/curate/internal/feedback"
	"github.com/joescharf/curate/internal/inspect"
	"github.com/joescharf/curate/internal/models"
	"github.com/joescharf/curate/internal/policy"
)

func newInspection(t *testing.T) *inspect.Inspection {
	t.Helper()
	in := &inspect.Inspector{Catalog: catalog.Default(), Evaluator: policy.MustNew(policy.DefaultConfig())}
	return in.InspectRecord(context.Background(), &models.Record{
		Title:      "Lake data",
		LandingURL: "https://zenodo.org/records/1",
		Licenses:   []string{"mit"},
	}, "")
}

func TestManager_Lifecycle(t *testing.T) {
	m := NewManager()

	snap, err := m.Create(newInspection(t))
	require.NoError(t, err)
	assert.NotEmpty(t, snap.ID)
	assert.Equal(t, "Lake data", snap.Title)
	assert.Len(t, snap.Entries, len(catalog.Default().IDs()))

	got, err := m.Get(snap.ID)
	require.NoError(t, err)
	assert.Equal(t, snap.ID, got.ID)

	var n2 EntryView
	for _, e := range got.Entries {
		if e.ID == "N2" {
			n2 = e
		}
	}
	assert.Equal(t, models.VerdictOK, n2.Verdict)
	assert.Equal(t, "[ | |x]", n2.Markers)

	got, err = m.Click(snap.ID, "N2", checklist.SlotNegative)
	require.NoError(t, err)
	assert.Equal(t, models.VerdictBad, got.Verdicts["N2"])

	got, err = m.Set(snap.ID, "M1", models.VerdictMaybe)
	require.NoError(t, err)
	assert.Equal(t, models.VerdictMaybe, got.Verdicts["M1"])
	assert.Equal(t, 2, got.Counts[models.VerdictMaybe], "M1 plus the seeded M3")

	_, err = m.Set(snap.ID, "XX", models.VerdictOK)
	assert.ErrorIs(t, err, catalog.ErrUnknownCriterion)

	require.Len(t, m.List(), 1)
	assert.Empty(t, m.List()[0].Entries, "list returns summaries")

	require.NoError(t, m.Delete(snap.ID))
	_, err = m.Get(snap.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.ErrorIs(t, m.Delete(snap.ID), ErrNotFound)
}

func TestManager_CreateRequiresSession(t *testing.T) {
	_, err := NewManager().Create(&inspect.Inspection{})
	assert.Error(t, err)
}

func TestManager_Prune(t *testing.T) {
	m := NewManager()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	old, err := m.Create(newInspection(t))
	require.NoError(t, err)

	now = now.Add(2 * time.Hour)
	fresh, err := m.Create(newInspection(t))
	require.NoError(t, err)

	assert.Equal(t, 1, m.Prune(time.Hour))
	_, err = m.Get(old.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.Get(fresh.ID)
	assert.NoError(t, err)
}

func TestManager_ConcurrentClicks(t *testing.T) {
	m := NewManager()
	snap, err := m.Create(newInspection(t))
	require.NoError(t, err)

	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 20; j++ {
				_, _ = m.Click(snap.ID, "M1", checklist.SlotPositive)
				_, _ = m.Get(snap.ID)
			}
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}
	got, err := m.Get(snap.ID)
	require.NoError(t, err)
	assert.Contains(t, []models.Verdict{models.VerdictOK, models.VerdictMaybe}, got.Verdicts["M1"])
}

func TestSnapshot_ComposeAndReview(t *testing.T) {
	m := NewManager()
	snap, err := m.Create(newInspection(t))
	require.NoError(t, err)

	msg, err := snap.Compose(catalog.Default().Tiers(), feedback.Context{Signature: "Curators"})
	require.NoError(t, err)
	assert.False(t, msg.Positive)
	assert.Contains(t, msg.Header, `"Lake data"`)

	r := snap.Review(msg, "req-7")
	assert.Equal(t, "req-7", r.RequestID)
	assert.Equal(t, "Lake data", r.Title)
	assert.Equal(t, snap.Score.Total, r.Score)
	assert.Equal(t, msg.Text(), r.Feedback)
	assert.Equal(t, models.VerdictOK, r.Verdicts["N2"])
}
