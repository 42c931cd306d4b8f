package sessions

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/joescharf/curate/internal/checklist"
	"github.com/joescharf/curate/internal/feedback"
	"github.com/joescharf/curate/internal/inspect"
	"github.com/joescharf/curate/internal/models"
	"github.com/joescharf/curate/internal/score"
)

// ErrNotFound is returned for an unknown session id.
var ErrNotFound = errors.New("session not found")

type entry struct {
	id         string
	inspection *inspect.Inspection
	createdAt  time.Time
	updatedAt  time.Time
}

// Manager keeps the checklist sessions of the HTTP and MCP surfaces in
// memory. It is safe for concurrent use.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*entry
	scorer   *score.Scorer
	now      func() time.Time
}

// NewManager creates an empty session registry.
func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*entry),
		scorer:   score.NewScorer(),
		now:      time.Now,
	}
}

// EntryView is one checklist line of a snapshot.
type EntryView struct {
	ID          string         `json:"id"`
	Tier        models.Tier    `json:"tier"`
	Short       string         `json:"short"`
	Description string         `json:"description"`
	Verdict     models.Verdict `json:"verdict"`
	Markers     string         `json:"markers"`
	Answer      string         `json:"answer,omitempty"`
}

// Snapshot is a consistent copy of a session's state.
type Snapshot struct {
	ID        string                 `json:"id"`
	Title     string                 `json:"title"`
	URL       string                 `json:"url"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
	Entries   []EntryView            `json:"entries,omitempty"`
	Counts    map[models.Verdict]int `json:"counts"`
	Score     *score.Score           `json:"score"`
	Warnings  []string               `json:"warnings,omitempty"`
	Missing   []string               `json:"missing_related,omitempty"`

	Record   *models.Record            `json:"-"`
	Verdicts map[string]models.Verdict `json:"-"`
	Raw      []checklist.Entry         `json:"-"`
}

// newULID generates a new ULID string.
func newULID() string {
	entropy := rand.New(rand.NewSource(time.Now().UnixNano()))
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulid.Monotonic(entropy, 0)).String()
}

// Create registers an inspection and returns its snapshot.
func (m *Manager) Create(insp *inspect.Inspection) (*Snapshot, error) {
	if insp == nil || insp.Session == nil {
		return nil, fmt.Errorf("inspection has no checklist")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now().UTC()
	e := &entry{id: newULID(), inspection: insp, createdAt: now, updatedAt: now}
	m.sessions[e.id] = e
	return m.snapshot(e, true), nil
}

// Get returns the snapshot of a session.
func (m *Manager) Get(id string) (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return m.snapshot(e, true), nil
}

// List returns summary snapshots, newest first.
func (m *Manager) List() []*Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*Snapshot, 0, len(m.sessions))
	for _, e := range m.sessions {
		out = append(out, m.snapshot(e, false))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Click presses a marker slot of one criterion.
func (m *Manager) Click(id, criterion string, slot checklist.Slot) (*Snapshot, error) {
	return m.update(id, func(s *checklist.Session) error {
		_, err := s.Click(criterion, slot)
		return err
	})
}

// Set overrides the verdict of one criterion.
func (m *Manager) Set(id, criterion string, v models.Verdict) (*Snapshot, error) {
	return m.update(id, func(s *checklist.Session) error {
		return s.Set(criterion, v)
	})
}

func (m *Manager) update(id string, fn func(*checklist.Session) error) (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err := fn(e.inspection.Session); err != nil {
		return nil, err
	}
	e.updatedAt = m.now().UTC()
	return m.snapshot(e, true), nil
}

// Delete discards a session.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(m.sessions, id)
	return nil
}

// Prune discards sessions untouched for longer than maxAge and returns how
// many were removed.
func (m *Manager) Prune(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().UTC().Add(-maxAge)
	n := 0
	for id, e := range m.sessions {
		if e.updatedAt.Before(cutoff) {
			delete(m.sessions, id)
			n++
		}
	}
	return n
}

// snapshot copies the state of e. Callers hold m.mu.
func (m *Manager) snapshot(e *entry, full bool) *Snapshot {
	insp := e.inspection
	entries := insp.Session.Entries()

	snap := &Snapshot{
		ID:        e.id,
		CreatedAt: e.createdAt,
		UpdatedAt: e.updatedAt,
		Counts:    insp.Session.Counts(),
		Score:     m.scorer.Score(entries),
		Warnings:  append([]string(nil), insp.Warnings...),
		Verdicts:  insp.Session.Verdicts(),
	}
	if insp.Record != nil {
		snap.Title = insp.Record.Title
		snap.URL = insp.Record.LandingURL
		snap.Record = insp.Record
	}
	if snap.URL == "" {
		snap.URL = insp.Target.PageURL
	}
	if insp.Facts != nil && insp.Facts.CrossRef != nil {
		snap.Missing = append([]string(nil), insp.Facts.CrossRef.Missing...)
	}
	if !full {
		return snap
	}

	snap.Raw = entries
	snap.Entries = make([]EntryView, 0, len(entries))
	for _, en := range entries {
		snap.Entries = append(snap.Entries, EntryView{
			ID:          en.Criterion.ID,
			Tier:        en.Criterion.Tier,
			Short:       en.Criterion.Short,
			Description: en.Criterion.Description,
			Verdict:     en.Verdict,
			Markers:     en.Markers().String(),
			Answer:      en.Criterion.Answer(en.Verdict),
		})
	}
	return snap
}

// Compose drafts the feedback message of the snapshot.
func (s *Snapshot) Compose(tiers []models.TierInfo, base feedback.Context) (feedback.Message, error) {
	return feedback.Compose(tiers, s.Raw, base.WithRecord(s.Record, s.Missing))
}

// Review builds the ledger row for a finished snapshot.
func (s *Snapshot) Review(msg feedback.Message, requestID string) *models.Review {
	r := &models.Review{
		RequestID: requestID,
		URL:       s.URL,
		Title:     s.Title,
		Verdicts:  s.Verdicts,
		Positive:  msg.Positive,
		Feedback:  msg.Text(),
	}
	if s.Score != nil {
		r.Score = s.Score.Total
	}
	if s.Record != nil {
		r.RecordID = s.Record.ID
		r.Source = s.Record.Source
	}
	return r
}
