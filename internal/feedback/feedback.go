// Package feedback drafts the curator's e-mail from a finished checklist.
package feedback

import (
	"bytes"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"text/template"

	"github.com/joescharf/curate/internal/checklist"
	"github.com/joescharf/curate/internal/models"
)

// Context carries the record and institution details interpolated into the
// message.
type Context struct {
	Greeting    string
	Recipient   string
	Title       string
	Identifier  string
	Institution string
	Collection  string
	CurationURL string
	Subject     string
	Signature   string
	// MissingRelated lists related identifiers that could not be found in
	// the institutional repository.
	MissingRelated []string
}

// WithRecord fills the record-specific fields of c.
func (c Context) WithRecord(r *models.Record, missing []string) Context {
	if r != nil {
		c.Title = r.Title
		c.Identifier = r.DOI
		if c.Identifier == "" {
			c.Identifier = r.LandingURL
		}
	}
	c.MissingRelated = missing
	return c
}

// Message is a composed feedback e-mail.
type Message struct {
	Subject  string `json:"subject"`
	Header   string `json:"header"`
	Body     string `json:"body"`
	Footer   string `json:"footer"`
	Positive bool   `json:"positive"`
}

// Text joins the message parts into the e-mail body.
func (m Message) Text() string {
	return m.Header + m.Body + m.Footer
}

const positiveHeader = `{{.Greeting}} {{.Recipient}},

You are designated as {{.Institution}} creators for "{{.Title}}" ({{.Identifier}}), which has been submitted to the {{.Collection}}. Thanks for this contribution! It is my pleasure to report that the dataset meets all of our quality requirements and is now accepted in the collection.

If you have any question about these steps, do not hesitate to ask!

`

const improvementHeader = `{{.Greeting}} {{.Recipient}},

You are designated as {{.Institution}} creators for "{{.Title}}" ({{.Identifier}}), which has been submitted to the {{.Collection}}. We thank you and your coworkers for this contribution.

Within our curation procedure{{if .CurationURL}} ( {{.CurationURL}} ){{end}}, we have identified a few details that could be improved:

`

const improvementFooter = `When the above feedback is addressed, we will be able to add value to your results and potentially save some of your time.
Please note that we cannot keep a case open for an indefinite time: we need your input regarding the possible delays. If our messages are left unanswered for too long, we will process the submission according to its current state. If you would like us to re-open the case after an update on your side, just let us know and we will be happy to do so.

If you have any questions or comments about this service, do not hesitate to ask. We will be glad to answer or receive your feedback.

`

const signOff = `Best regards,
{{.Signature}}`

var (
	positiveTmpl    = template.Must(template.New("positive").Parse(positiveHeader))
	improvementTmpl = template.Must(template.New("improvement").Parse(improvementHeader))
	footerTmpl      = template.Must(template.New("footer").Parse(improvementFooter))
	signOffTmpl     = template.Must(template.New("signoff").Parse(signOff))
)

// Compose groups the entries by tier and renders the feedback message.
// A tier block is emitted only when at least one of its entries needs
// feedback; neutral entries are listed inside an emitted block so the
// curator sees what was left unchecked. When nothing needs feedback but
// some entries are still neutral, the tiers holding them are listed
// instead. The message is positive only when every entry is ok.
func Compose(tiers []models.TierInfo, entries []checklist.Entry, c Context) (Message, error) {
	c = c.withDefaults()

	byTier := make(map[models.Tier][]checklist.Entry)
	positive, anyFeedback := true, false
	for _, e := range entries {
		byTier[e.Criterion.Tier] = append(byTier[e.Criterion.Tier], e)
		if e.Verdict != models.VerdictOK {
			positive = false
		}
		if e.Verdict.NeedsFeedback() {
			anyFeedback = true
		}
	}

	var body strings.Builder
	for _, t := range tiers {
		group := byTier[t.Tier]
		if anyFeedback && !needsBlock(group) {
			continue
		}

		var listed []checklist.Entry
		for _, e := range group {
			if e.Verdict != models.VerdictOK {
				listed = append(listed, e)
			}
		}
		if len(listed) == 0 {
			continue
		}
		sort.Slice(listed, func(i, j int) bool { return listed[i].Criterion.ID < listed[j].Criterion.ID })

		fmt.Fprintf(&body, "Total %d %s criteria not fully met:\n", len(listed), t.Label)
		for _, e := range listed {
			answer := e.Criterion.Answer(e.Verdict)
			if e.Criterion.ID == "R3" && len(c.MissingRelated) > 0 {
				answer += " (not found: " + strings.Join(c.MissingRelated, ", ") + ")"
			}
			fmt.Fprintf(&body, "**%s: %s**\n=> %s\n\n", e.Criterion.ID, e.Criterion.Description, answer)
		}
	}

	m := Message{
		Subject:  c.Subject,
		Body:     body.String(),
		Positive: positive,
	}
	if c.Title != "" {
		m.Subject += ": " + c.Title
	}

	header := improvementTmpl
	if m.Positive {
		header = positiveTmpl
	}
	var err error
	if m.Header, err = render(header, c); err != nil {
		return Message{}, err
	}
	if !m.Positive {
		if m.Footer, err = render(footerTmpl, c); err != nil {
			return Message{}, err
		}
	}
	sig, err := render(signOffTmpl, c)
	if err != nil {
		return Message{}, err
	}
	m.Footer += sig
	return m, nil
}

func needsBlock(group []checklist.Entry) bool {
	for _, e := range group {
		if e.Verdict.NeedsFeedback() {
			return true
		}
	}
	return false
}

func render(t *template.Template, c Context) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, c); err != nil {
		return "", fmt.Errorf("render %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}

func (c Context) withDefaults() Context {
	if c.Greeting == "" {
		c.Greeting = "Dear"
	}
	if c.Recipient == "" {
		c.Recipient = "XXX"
	}
	if c.Identifier == "" {
		c.Identifier = "unpublished"
	}
	if c.Institution == "" {
		c.Institution = "EPFL"
	}
	if c.Collection == "" {
		c.Collection = c.Institution + " Community on Zenodo"
	}
	if c.Subject == "" {
		c.Subject = "Infoscience bibliographic check"
	}
	if c.Signature == "" {
		c.Signature = "ZZZZZZ"
	}
	return c
}

// MailtoURI builds a mailto: URI. Query values are percent-encoded with
// spaces as %20 so mail clients do not show literal plus signs.
func MailtoURI(to, subject, body string) string {
	var q []string
	if subject != "" {
		q = append(q, "subject="+escape(subject))
	}
	if body != "" {
		q = append(q, "body="+escape(body))
	}
	uri := "mailto:" + escapeAddress(to)
	if len(q) > 0 {
		uri += "?" + strings.Join(q, "&")
	}
	return uri
}

func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

func escapeAddress(to string) string {
	parts := strings.Split(to, ",")
	for i, p := range parts {
		parts[i] = url.PathEscape(strings.TrimSpace(p))
	}
	return strings.Join(parts, ",")
}
