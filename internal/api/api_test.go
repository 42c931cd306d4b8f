package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/curate/internal/catalog"
	"github.com/joescharf/curate/internal/feedback"
	"github.com/joescharf/curate/internal/inspect"
	"github.com/joescharf/curate/internal/models"
	"github.com/joescharf/curate/internal/policy"
	"github.com/joescharf/curate/internal/sessions"
	"github.com/joescharf/curate/internal/store"
)

func setupTestServer(t *testing.T) (*Server, store.Store) {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")

	s, err := store.NewSQLiteStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })

	in := &inspect.Inspector{
		Catalog:   catalog.Default(),
		Evaluator: policy.MustNew(policy.DefaultConfig()),
	}
	srv := NewServer(in, s, MailSettings{
		To:      "curators@example.org",
		Context: feedback.Context{Signature: "The curation team"},
	})
	return srv, s
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func createSession(t *testing.T, h http.Handler) *sessions.Snapshot {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join("..", "record", "testdata", "zenodo.json"))
	require.NoError(t, err)

	body, err := json.Marshal(map[string]json.RawMessage{"record": raw})
	require.NoError(t, err)

	w := do(t, h, "POST", "/api/v1/sessions", string(body))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var snap sessions.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	require.NotEmpty(t, snap.ID)
	return &snap
}

func entryVerdict(snap *sessions.Snapshot, id string) models.Verdict {
	for _, e := range snap.Entries {
		if e.ID == id {
			return e.Verdict
		}
	}
	return ""
}

func TestListCriteria(t *testing.T) {
	srv, _ := setupTestServer(t)

	w := do(t, srv.Router(), "GET", "/api/v1/criteria", "")
	assert.Equal(t, http.StatusOK, w.Code)

	var resp CriteriaResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Tiers, 3)
	assert.Len(t, resp.Criteria, len(catalog.Default().IDs()))
}

func TestCreateSession_FromRecord(t *testing.T) {
	srv, _ := setupTestServer(t)
	router := srv.Router()

	snap := createSession(t, router)
	assert.Equal(t, "raw_data_2021", snap.Title)
	assert.Equal(t, models.VerdictOK, entryVerdict(snap, "M1"))
	assert.Equal(t, models.VerdictMeh, entryVerdict(snap, "R2"))
	require.NotNil(t, snap.Score)

	// Listed
	w := do(t, router, "GET", "/api/v1/sessions", "")
	assert.Equal(t, http.StatusOK, w.Code)
	var list []*sessions.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, snap.ID, list[0].ID)

	// Fetched
	w = do(t, router, "GET", "/api/v1/sessions/"+snap.ID, "")
	assert.Equal(t, http.StatusOK, w.Code)

	// Deleted
	w = do(t, router, "DELETE", "/api/v1/sessions/"+snap.ID, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = do(t, router, "GET", "/api/v1/sessions/"+snap.ID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateSession_BadRequests(t *testing.T) {
	srv, _ := setupTestServer(t)
	router := srv.Router()

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{`},
		{"empty", `{}`},
		{"unsupported url", `{"url":"https://example.org/nothing"}`},
		{"unknown record", `{"record":{"foo":1}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, router, "POST", "/api/v1/sessions", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)

			var resp map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp["error"])
		})
	}
}

func TestClickAndSet(t *testing.T) {
	srv, _ := setupTestServer(t)
	router := srv.Router()
	snap := createSession(t, router)

	w := do(t, router, "POST", "/api/v1/sessions/"+snap.ID+"/click", `{"criterion":"R2","slot":"ok"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated sessions.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.Equal(t, models.VerdictOK, entryVerdict(&updated, "R2"))

	w = do(t, router, "PUT", "/api/v1/sessions/"+snap.ID+"/entries/R2", `{"verdict":"bad"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.Equal(t, models.VerdictBad, entryVerdict(&updated, "R2"))

	// Errors
	w = do(t, router, "POST", "/api/v1/sessions/"+snap.ID+"/click", `{"criterion":"R2","slot":"sideways"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = do(t, router, "POST", "/api/v1/sessions/"+snap.ID+"/click", `{"criterion":"Z9","slot":"ok"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = do(t, router, "PUT", "/api/v1/sessions/"+snap.ID+"/entries/R2", `{"verdict":"great"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = do(t, router, "POST", "/api/v1/sessions/missing/click", `{"criterion":"R2","slot":"ok"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestComposeFeedback_SavesReview(t *testing.T) {
	srv, s := setupTestServer(t)
	router := srv.Router()
	snap := createSession(t, router)

	w := do(t, router, "POST", "/api/v1/sessions/"+snap.ID+"/feedback", `{"recipient":"Jane","save":true,"request_id":"req-1"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp FeedbackResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Positive)
	assert.Contains(t, resp.Text, "Dear Jane")
	assert.Contains(t, resp.Text, "The curation team")
	assert.True(t, strings.HasPrefix(resp.Mailto, "mailto:curators@example.org?"))
	require.NotEmpty(t, resp.ReviewID)

	got, err := s.GetReview(context.Background(), resp.ReviewID)
	require.NoError(t, err)
	assert.Equal(t, "req-1", got.RequestID)
	assert.Equal(t, resp.Text, got.Feedback)

	has, err := s.HasRequest(context.Background(), "req-1")
	require.NoError(t, err)
	assert.True(t, has)

	// Listed through the API
	w = do(t, router, "GET", "/api/v1/reviews?request_id=req-1", "")
	require.Equal(t, http.StatusOK, w.Code)
	var reviews []*models.Review
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reviews))
	require.Len(t, reviews, 1)
	assert.Equal(t, resp.ReviewID, reviews[0].ID)

	w = do(t, router, "GET", "/api/v1/reviews/"+resp.ReviewID, "")
	assert.Equal(t, http.StatusOK, w.Code)
	w = do(t, router, "GET", "/api/v1/reviews/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestComposeFeedback_NoBodyDoesNotSave(t *testing.T) {
	srv, s := setupTestServer(t)
	router := srv.Router()
	snap := createSession(t, router)

	w := do(t, router, "POST", "/api/v1/sessions/"+snap.ID+"/feedback", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp FeedbackResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp.ReviewID)

	reviews, err := s.ListReviews(context.Background(), store.ReviewListFilter{})
	require.NoError(t, err)
	assert.Empty(t, reviews)
}

func TestListReviews_Empty(t *testing.T) {
	srv, _ := setupTestServer(t)

	w := do(t, srv.Router(), "GET", "/api/v1/reviews", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = do(t, srv.Router(), "GET", "/api/v1/reviews?positive=maybe", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReviews_NoStore(t *testing.T) {
	in := &inspect.Inspector{Catalog: catalog.Default(), Evaluator: policy.MustNew(policy.DefaultConfig())}
	srv := NewServer(in, nil, MailSettings{})

	w := do(t, srv.Router(), "GET", "/api/v1/reviews", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := setupTestServer(t)

	w := do(t, srv.Router(), "OPTIONS", "/api/v1/sessions", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
