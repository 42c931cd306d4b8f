package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/curate/internal/catalog"
	"github.com/joescharf/curate/internal/feedback"
	"github.com/joescharf/curate/internal/inspect"
	"github.com/joescharf/curate/internal/models"
	"github.com/joescharf/curate/internal/policy"
	"github.com/joescharf/curate/internal/record"
)

// ---------------------------------------------------------------------------
// Mock implementations
// ---------------------------------------------------------------------------

// mockLoader implements inspect.RecordLoader for testing.
type mockLoader struct {
	rec     *models.Record
	err     error
	targets []record.Target
}

func (m *mockLoader) Load(_ context.Context, t record.Target) (*models.Record, error) {
	m.targets = append(m.targets, t)
	return m.rec, m.err
}

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

func newTestServer(t *testing.T) (*Server, *mockLoader) {
	t.Helper()

	ml := &mockLoader{rec: &models.Record{
		ID:         "42",
		Source:     models.SourceZenodo,
		Title:      "Glacier melt measurements 2020-2023",
		LandingURL: "https://zenodo.org/records/42",
		Creators: []models.Creator{
			{Name: "Doe, Jane", Affiliations: []string{"EPFL"}},
		},
		Licenses: []string{"cc-by-4.0"},
	}}
	in := &inspect.Inspector{
		Catalog:   catalog.Default(),
		Evaluator: policy.MustNew(policy.DefaultConfig()),
		Records:   ml,
	}
	srv := NewServer(in, feedback.Context{Signature: "Curators"}, "authors@example.org", "test")
	require.NotNil(t, srv)
	return srv, ml
}

// callToolReq builds a mcpgo.CallToolRequest with the given name and arguments.
func callToolReq(name string, args map[string]any) mcpgo.CallToolRequest {
	return mcpgo.CallToolRequest{
		Params: mcpgo.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

// resultText extracts the concatenated text from a CallToolResult.
func resultText(t *testing.T, result *mcpgo.CallToolResult) string {
	t.Helper()
	var b strings.Builder
	for _, c := range result.Content {
		tc, ok := c.(mcpgo.TextContent)
		if ok {
			b.WriteString(tc.Text)
		}
	}
	return b.String()
}

// resultJSON parses the text result as JSON into the provided target.
func resultJSON(t *testing.T, result *mcpgo.CallToolResult, target any) {
	t.Helper()
	text := resultText(t, result)
	err := json.Unmarshal([]byte(text), target)
	require.NoError(t, err, "failed to parse result JSON: %s", text)
}

type inspectResult struct {
	Title   string `json:"title"`
	Score   int    `json:"score"`
	Entries []struct {
		ID      string         `json:"id"`
		Verdict models.Verdict `json:"verdict"`
		Markers string         `json:"markers"`
	} `json:"entries"`
	Warnings []string `json:"warnings"`
}

func (r inspectResult) verdict(id string) models.Verdict {
	for _, e := range r.Entries {
		if e.ID == id {
			return e.Verdict
		}
	}
	return ""
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestNewServer(t *testing.T) {
	srv, _ := newTestServer(t)
	mcpSrv := srv.MCPServer()
	require.NotNil(t, mcpSrv, "MCPServer() should return non-nil")
}

func TestListCriteria(t *testing.T) {
	srv, _ := newTestServer(t)

	result, err := srv.handleListCriteria(context.Background(), callToolReq("curate_list_criteria", nil))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var all []map[string]any
	resultJSON(t, result, &all)
	assert.Len(t, all, len(catalog.Default().IDs()))

	result, err = srv.handleListCriteria(context.Background(), callToolReq("curate_list_criteria", map[string]any{"tier": "must"}))
	require.NoError(t, err)
	var must []map[string]any
	resultJSON(t, result, &must)
	require.NotEmpty(t, must)
	for _, c := range must {
		assert.Equal(t, "must", c["tier"])
	}
	assert.Less(t, len(must), len(all))

	result, err = srv.handleListCriteria(context.Background(), callToolReq("curate_list_criteria", map[string]any{"tier": "optional"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestInspect_URL(t *testing.T) {
	srv, ml := newTestServer(t)

	result, err := srv.handleInspect(context.Background(), callToolReq("curate_inspect", map[string]any{
		"url": "https://zenodo.org/records/42",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, resultText(t, result))

	require.Len(t, ml.targets, 1)
	assert.Equal(t, "https://zenodo.org/api/records/42", ml.targets[0].APIURL)

	var out inspectResult
	resultJSON(t, result, &out)
	assert.Equal(t, "Glacier melt measurements 2020-2023", out.Title)
	assert.Equal(t, models.VerdictOK, out.verdict("M1"))
	assert.Equal(t, models.VerdictOK, out.verdict("N2"))

	// Sessions are not retained between calls.
	assert.Empty(t, srv.sessions.List())
}

func TestInspect_Record(t *testing.T) {
	srv, ml := newTestServer(t)
	raw, err := os.ReadFile(filepath.Join("..", "record", "testdata", "zenodo.json"))
	require.NoError(t, err)

	result, err := srv.handleInspect(context.Background(), callToolReq("curate_inspect", map[string]any{
		"record": string(raw),
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, resultText(t, result))
	assert.Empty(t, ml.targets)

	var out inspectResult
	resultJSON(t, result, &out)
	assert.Equal(t, "raw_data_2021", out.Title)
	assert.Equal(t, models.VerdictMeh, out.verdict("R2"))
}

func TestInspect_Errors(t *testing.T) {
	srv, ml := newTestServer(t)

	tests := []struct {
		name string
		args map[string]any
	}{
		{"missing", nil},
		{"unsupported url", map[string]any{"url": "https://example.org/nothing"}},
		{"bad record", map[string]any{"record": `{"foo":1}`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := srv.handleInspect(context.Background(), callToolReq("curate_inspect", tt.args))
			require.NoError(t, err)
			assert.True(t, result.IsError)
		})
	}

	// A failed fetch still yields a checklist, with a warning.
	ml.err = errors.New("boom")
	result, err := srv.handleInspect(context.Background(), callToolReq("curate_inspect", map[string]any{
		"url": "10.5281/zenodo.42",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)
	var out inspectResult
	resultJSON(t, result, &out)
	require.NotEmpty(t, out.Warnings)
	assert.Contains(t, out.Warnings[0], "boom")
}

func TestComposeFeedback(t *testing.T) {
	srv, _ := newTestServer(t)

	result, err := srv.handleComposeFeedback(context.Background(), callToolReq("curate_compose_feedback", map[string]any{
		"url":       "https://zenodo.org/records/42",
		"overrides": "M4=bad, R2=ok",
		"recipient": "Dr. Doe",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, resultText(t, result))

	var out struct {
		Subject  string `json:"subject"`
		Text     string `json:"text"`
		Mailto   string `json:"mailto"`
		Positive bool   `json:"positive"`
	}
	resultJSON(t, result, &out)
	assert.False(t, out.Positive)
	assert.Contains(t, out.Subject, "Glacier melt measurements 2020-2023")
	assert.Contains(t, out.Text, "Dear Dr. Doe")
	assert.Contains(t, out.Text, "M4")
	assert.Contains(t, out.Text, "Curators")
	assert.True(t, strings.HasPrefix(out.Mailto, "mailto:authors@example.org?"))
}

func TestComposeFeedback_BadOverrides(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, o := range []string{"M4", "M4=great", "Z9=ok"} {
		result, err := srv.handleComposeFeedback(context.Background(), callToolReq("curate_compose_feedback", map[string]any{
			"url":       "https://zenodo.org/records/42",
			"overrides": o,
		}))
		require.NoError(t, err)
		assert.True(t, result.IsError, o)
	}
	assert.Empty(t, srv.sessions.List())
}
