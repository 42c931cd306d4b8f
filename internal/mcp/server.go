package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/joescharf/curate/internal/checklist"
	"github.com/joescharf/curate/internal/feedback"
	"github.com/joescharf/curate/internal/inspect"
	"github.com/joescharf/curate/internal/models"
	"github.com/joescharf/curate/internal/record"
	"github.com/joescharf/curate/internal/sessions"
)

// Server exposes record inspection and feedback drafting as MCP tools.
type Server struct {
	inspector *inspect.Inspector
	sessions  *sessions.Manager
	mail      feedback.Context
	to        string
	version   string
}

// NewServer creates the MCP server wrapper. mail provides the defaults of
// every drafted message and to the default recipient address.
func NewServer(in *inspect.Inspector, mail feedback.Context, to, version string) *Server {
	if version == "" {
		version = "dev"
	}
	return &Server{
		inspector: in,
		sessions:  sessions.NewManager(),
		mail:      mail,
		to:        to,
		version:   version,
	}
}

// MCPServer returns a configured mcp-go server with all tools registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("curate", s.version, server.WithToolCapabilities(true))

	srv.AddTool(s.listCriteriaTool())
	srv.AddTool(s.inspectTool())
	srv.AddTool(s.composeFeedbackTool())

	return srv
}

// ServeStdio starts the stdio transport, blocking until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	srv := s.MCPServer()
	stdioServer := server.NewStdioServer(srv)
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

// ---------------------------------------------------------------------------
// Tool definitions and handlers
// ---------------------------------------------------------------------------

// curate_list_criteria
func (s *Server) listCriteriaTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("curate_list_criteria",
		mcp.WithDescription("List the curation checklist criteria. Returns a JSON array with id, tier, short label, and description."),
		mcp.WithString("tier", mcp.Description("Filter by tier: must, recommended, or nth")),
	)
	return tool, s.handleListCriteria
}

func (s *Server) handleListCriteria(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tier := models.Tier(strings.ToLower(request.GetString("tier", "")))
	if tier != "" && !tier.Valid() {
		return mcp.NewToolResultError(fmt.Sprintf("invalid tier: %s", tier)), nil
	}

	type criterionOut struct {
		ID          string      `json:"id"`
		Tier        models.Tier `json:"tier"`
		Short       string      `json:"short"`
		Description string      `json:"description"`
	}

	var out []criterionOut
	for _, c := range s.inspector.Catalog.All() {
		if tier != "" && c.Tier != tier {
			continue
		}
		out = append(out, criterionOut{ID: c.ID, Tier: c.Tier, Short: c.Short, Description: c.Description})
	}
	return jsonResult(out)
}

// curate_inspect
func (s *Server) inspectTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("curate_inspect",
		mcp.WithDescription("Fetch a Zenodo, DataCite, InvenioRDM, or DSpace record and pre-fill the curation checklist. Returns the inferred verdict of every criterion, the score, and any warnings."),
		mcp.WithString("url", mcp.Description("Record URL or DOI")),
		mcp.WithString("record", mcp.Description("Raw record JSON, used instead of fetching url")),
		mcp.WithString("page_url", mcp.Description("Landing page to scrape when record is given")),
	)
	return tool, s.handleInspect
}

func (s *Server) handleInspect(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snap, errResult := s.open(ctx, request, nil)
	if errResult != nil {
		return errResult, nil
	}
	defer func() { _ = s.sessions.Delete(snap.ID) }()

	type entryOut struct {
		ID      string         `json:"id"`
		Short   string         `json:"short"`
		Verdict models.Verdict `json:"verdict"`
		Markers string         `json:"markers"`
	}
	type inspectOut struct {
		Title    string     `json:"title"`
		URL      string     `json:"url"`
		Score    int        `json:"score"`
		Entries  []entryOut `json:"entries"`
		Warnings []string   `json:"warnings,omitempty"`
		Missing  []string   `json:"missing_related,omitempty"`
	}

	out := inspectOut{Title: snap.Title, URL: snap.URL, Warnings: snap.Warnings, Missing: snap.Missing}
	if snap.Score != nil {
		out.Score = snap.Score.Total
	}
	for _, e := range snap.Entries {
		out.Entries = append(out.Entries, entryOut{ID: e.ID, Short: e.Short, Verdict: e.Verdict, Markers: e.Markers})
	}
	return jsonResult(out)
}

// curate_compose_feedback
func (s *Server) composeFeedbackTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("curate_compose_feedback",
		mcp.WithDescription("Inspect a record, apply verdict overrides, and draft the feedback e-mail to its authors. Returns subject, text, and a mailto link."),
		mcp.WithString("url", mcp.Description("Record URL or DOI")),
		mcp.WithString("record", mcp.Description("Raw record JSON, used instead of fetching url")),
		mcp.WithString("page_url", mcp.Description("Landing page to scrape when record is given")),
		mcp.WithString("overrides", mcp.Description("Comma-separated verdict overrides, e.g. R2=ok,M3=bad")),
		mcp.WithString("recipient", mcp.Description("Name used in the greeting")),
		mcp.WithString("to", mcp.Description("E-mail address for the mailto link")),
	)
	return tool, s.handleComposeFeedback
}

func (s *Server) handleComposeFeedback(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	overrides, err := checklist.ParseOverrides(strings.Split(request.GetString("overrides", ""), ","))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	snap, errResult := s.open(ctx, request, overrides)
	if errResult != nil {
		return errResult, nil
	}
	defer func() { _ = s.sessions.Delete(snap.ID) }()

	fc := s.mail
	if r := request.GetString("recipient", ""); r != "" {
		fc.Recipient = r
	}
	msg, err := snap.Compose(s.inspector.Catalog.Tiers(), fc)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to compose feedback: %v", err)), nil
	}

	to := request.GetString("to", s.to)
	out := map[string]any{
		"subject":  msg.Subject,
		"text":     msg.Text(),
		"mailto":   feedback.MailtoURI(to, msg.Subject, msg.Text()),
		"positive": msg.Positive,
	}
	return jsonResult(out)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// open inspects the record named by the request and registers a session
// with the overrides applied.
func (s *Server) open(ctx context.Context, request mcp.CallToolRequest, overrides map[string]models.Verdict) (*sessions.Snapshot, *mcp.CallToolResult) {
	var insp *inspect.Inspection
	if raw := request.GetString("record", ""); raw != "" {
		rec, err := record.Decode([]byte(raw))
		if err != nil {
			return nil, mcp.NewToolResultError(fmt.Sprintf("failed to decode record: %v", err))
		}
		insp = s.inspector.InspectRecord(ctx, rec, request.GetString("page_url", ""))
	} else {
		ref := request.GetString("url", "")
		if ref == "" {
			return nil, mcp.NewToolResultError("missing required parameter: url or record")
		}
		target, err := record.Resolve(ref)
		if err != nil {
			return nil, mcp.NewToolResultError(err.Error())
		}
		insp = s.inspector.Inspect(ctx, target)
	}

	if err := insp.Session.Apply(overrides); err != nil {
		return nil, mcp.NewToolResultError(err.Error())
	}
	snap, err := s.sessions.Create(insp)
	if err != nil {
		return nil, mcp.NewToolResultError(err.Error())
	}
	return snap, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
