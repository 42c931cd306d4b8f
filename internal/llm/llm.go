package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/joescharf/curate/internal/models"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "claude-sonnet-4-5"

// Client wraps the Anthropic API for description assessment.
type Client struct {
	api   *anthropic.Client
	model anthropic.Model
}

// NewClient creates an LLM client with the given API key and model.
func NewClient(apiKey, model string) *Client {
	opts := []option.RequestOption{}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	if model == "" {
		model = DefaultModel
	}
	client := anthropic.NewClient(opts...)
	return &Client{
		api:   &client,
		model: anthropic.Model(model),
	}
}

// buildAssessPrompt constructs the system and user prompts for judging a
// dataset description.
func buildAssessPrompt(title, description string) (system string, user string) {
	system = `You review dataset descriptions for a research data curation service. A good description lets a potential user understand what the data is, how it was produced, and how it can be reused, without opening the files. Return ONLY a JSON object with these fields:
- "verdict": one of "ok", "maybe", "meh", "bad"
- "comment": one or two sentences addressed to the authors explaining what is missing (empty string when the verdict is "ok")

Rules:
- "ok": the description explains the content, its origin and its structure
- "maybe": understandable but a key element is missing (methods, file structure, units)
- "meh": very short or only restates the title
- "bad": unintelligible, placeholder text, or unrelated to the dataset
- Return valid JSON only, no markdown fencing or explanation`

	var sb strings.Builder
	sb.WriteString("Dataset title: ")
	sb.WriteString(title)
	sb.WriteString("\n\nDescription (markdown):\n")
	sb.WriteString(description)
	sb.WriteString("\n")
	user = sb.String()
	return
}

// AssessDescription asks the model to judge the description of a record.
func (c *Client) AssessDescription(ctx context.Context, title, description string) (*models.Assessment, error) {
	systemPrompt, userPrompt := buildAssessPrompt(title, description)

	msg, err := c.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: 512,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic API call: %w", err)
	}

	// Extract text from response
	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}
	if text == "" {
		return nil, fmt.Errorf("no text content in API response")
	}
	return parseAssessment(text)
}

// parseAssessment decodes the model's JSON answer. Verdicts other than the
// four feedback levels are rejected.
func parseAssessment(text string) (*models.Assessment, error) {
	text = stripFence(text)

	var a models.Assessment
	if err := json.Unmarshal([]byte(text), &a); err != nil {
		return nil, fmt.Errorf("parse LLM response as JSON: %w\nraw response: %s", err, text)
	}
	a.Verdict = models.Verdict(strings.ToLower(strings.TrimSpace(string(a.Verdict))))
	switch a.Verdict {
	case models.VerdictOK, models.VerdictMaybe, models.VerdictMeh, models.VerdictBad:
	default:
		return nil, fmt.Errorf("unexpected verdict %q", a.Verdict)
	}
	a.Comment = strings.TrimSpace(a.Comment)
	return &a, nil
}

// stripFence removes markdown code fencing if present.
func stripFence(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		lines := strings.SplitN(text, "\n", 2)
		if len(lines) > 1 {
			text = lines[1]
		}
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}
	return text
}
