package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/joescharf/curate/internal/catalog"
	"github.com/joescharf/curate/internal/checklist"
	"github.com/joescharf/curate/internal/feedback"
	"github.com/joescharf/curate/internal/inspect"
	"github.com/joescharf/curate/internal/models"
	"github.com/joescharf/curate/internal/record"
	"github.com/joescharf/curate/internal/sessions"
	"github.com/joescharf/curate/internal/store"
)

// sessionTTL bounds how long an untouched session is kept.
const sessionTTL = 24 * time.Hour

// MailSettings configures the drafted feedback e-mails.
type MailSettings struct {
	To      string
	Context feedback.Context
}

// Server provides the REST API handlers.
type Server struct {
	catalog   *catalog.Catalog
	inspector *inspect.Inspector
	sessions  *sessions.Manager
	store     store.Store
	mail      MailSettings
}

// NewServer creates a new API server.
// The store may be nil, in which case reviews are not recorded.
func NewServer(in *inspect.Inspector, s store.Store, mail MailSettings) *Server {
	return &Server{
		catalog:   in.Catalog,
		inspector: in,
		sessions:  sessions.NewManager(),
		store:     s,
		mail:      mail,
	}
}

// Router returns an http.Handler for the API routes.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/criteria", s.listCriteria)

	mux.HandleFunc("GET /api/v1/sessions", s.listSessions)
	mux.HandleFunc("POST /api/v1/sessions", s.createSession)
	mux.HandleFunc("GET /api/v1/sessions/{id}", s.getSession)
	mux.HandleFunc("DELETE /api/v1/sessions/{id}", s.deleteSession)
	mux.HandleFunc("POST /api/v1/sessions/{id}/click", s.clickEntry)
	mux.HandleFunc("PUT /api/v1/sessions/{id}/entries/{criterion}", s.setEntry)
	mux.HandleFunc("POST /api/v1/sessions/{id}/feedback", s.composeFeedback)

	mux.HandleFunc("GET /api/v1/reviews", s.listReviews)
	mux.HandleFunc("GET /api/v1/reviews/{id}", s.getReview)

	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// sessionError maps registry and checklist errors to HTTP statuses.
func sessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, sessions.ErrNotFound), errors.Is(err, catalog.ErrUnknownCriterion):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusBadRequest, err.Error())
	}
}

// --- Criteria ---

// CriteriaResponse is the catalog as served to clients.
type CriteriaResponse struct {
	Tiers    []models.TierInfo  `json:"tiers"`
	Criteria []models.Criterion `json:"criteria"`
}

func (s *Server) listCriteria(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, CriteriaResponse{Tiers: s.catalog.Tiers(), Criteria: s.catalog.All()})
}

// --- Sessions ---

// CreateSessionRequest starts a session from a URL or an inline record.
type CreateSessionRequest struct {
	URL     string          `json:"url"`
	Record  json.RawMessage `json:"record"`
	PageURL string          `json:"page_url"`
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	var insp *inspect.Inspection
	switch {
	case len(req.Record) > 0:
		rec, err := record.Decode(req.Record)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		insp = s.inspector.InspectRecord(ctx, rec, req.PageURL)
	case req.URL != "":
		target, err := record.Resolve(req.URL)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		insp = s.inspector.Inspect(ctx, target)
	default:
		writeError(w, http.StatusBadRequest, "url or record is required")
		return
	}

	if n := s.sessions.Prune(sessionTTL); n > 0 {
		slog.Info("pruned idle sessions", "count", n)
	}

	snap, err := s.sessions.Create(insp)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	slog.Info("session created", "id", snap.ID, "url", snap.URL, "warnings", len(snap.Warnings))
	writeJSON(w, http.StatusCreated, snap)
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sessions.List())
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	snap, err := s.sessions.Get(r.PathValue("id"))
	if err != nil {
		sessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Delete(r.PathValue("id")); err != nil {
		sessionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClickRequest presses one marker slot.
type ClickRequest struct {
	Criterion string `json:"criterion"`
	Slot      string `json:"slot"`
}

func (s *Server) clickEntry(w http.ResponseWriter, r *http.Request) {
	var req ClickRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	slot, ok := checklist.ParseSlot(req.Slot)
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid slot %q", req.Slot))
		return
	}
	snap, err := s.sessions.Click(r.PathValue("id"), req.Criterion, slot)
	if err != nil {
		sessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) setEntry(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Verdict string `json:"verdict"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	v, ok := models.ParseVerdict(req.Verdict)
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid verdict %q", req.Verdict))
		return
	}
	snap, err := s.sessions.Set(r.PathValue("id"), r.PathValue("criterion"), v)
	if err != nil {
		sessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// FeedbackRequest customizes the drafted e-mail.
type FeedbackRequest struct {
	To        string `json:"to"`
	Recipient string `json:"recipient"`
	Save      bool   `json:"save"`
	RequestID string `json:"request_id"`
}

// FeedbackResponse is the drafted e-mail.
type FeedbackResponse struct {
	Subject  string `json:"subject"`
	Text     string `json:"text"`
	Mailto   string `json:"mailto"`
	Positive bool   `json:"positive"`
	ReviewID string `json:"review_id,omitempty"`
}

func (s *Server) composeFeedback(w http.ResponseWriter, r *http.Request) {
	var req FeedbackRequest
	// An empty body drafts with the defaults.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	snap, err := s.sessions.Get(r.PathValue("id"))
	if err != nil {
		sessionError(w, err)
		return
	}

	fc := s.mail.Context
	if req.Recipient != "" {
		fc.Recipient = req.Recipient
	}
	msg, err := snap.Compose(s.catalog.Tiers(), fc)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	to := req.To
	if to == "" {
		to = s.mail.To
	}
	resp := FeedbackResponse{
		Subject:  msg.Subject,
		Text:     msg.Text(),
		Mailto:   feedback.MailtoURI(to, msg.Subject, msg.Text()),
		Positive: msg.Positive,
	}

	if req.Save {
		if s.store == nil {
			writeError(w, http.StatusServiceUnavailable, "review ledger not configured")
			return
		}
		review := snap.Review(msg, req.RequestID)
		if err := s.store.CreateReview(r.Context(), review); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		resp.ReviewID = review.ID
		slog.Info("review recorded", "id", review.ID, "session", snap.ID, "positive", review.Positive)
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- Reviews ---

func (s *Server) listReviews(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "review ledger not configured")
		return
	}
	q := r.URL.Query()
	filter := store.ReviewListFilter{
		Source:    models.Source(q.Get("source")),
		RequestID: q.Get("request_id"),
	}
	if v := q.Get("positive"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid positive filter")
			return
		}
		filter.Positive = &b
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		filter.Limit = n
	}

	reviews, err := s.store.ListReviews(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if reviews == nil {
		reviews = []*models.Review{}
	}
	writeJSON(w, http.StatusOK, reviews)
}

func (s *Server) getReview(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "review ledger not configured")
		return
	}
	review, err := s.store.GetReview(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, review)
}
