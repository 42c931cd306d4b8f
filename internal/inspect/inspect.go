// Package inspect gathers everything known about a record and seeds its
// curation checklist.
package inspect

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/joescharf/curate/internal/catalog"
	"github.com/joescharf/curate/internal/checklist"
	"github.com/joescharf/curate/internal/models"
	"github.com/joescharf/curate/internal/policy"
	"github.com/joescharf/curate/internal/record"
)

// RecordLoader fetches and decodes a record.
type RecordLoader interface {
	Load(ctx context.Context, t record.Target) (*models.Record, error)
}

// PageSource scrapes a landing page.
type PageSource interface {
	Facts(ctx context.Context, pageURL string) (*models.Facts, error)
}

// CrossChecker looks up the publications a record relates to.
type CrossChecker interface {
	Check(ctx context.Context, r *models.Record) *models.CrossRef
}

// Assessor judges a record description.
type Assessor interface {
	AssessDescription(ctx context.Context, title, description string) (*models.Assessment, error)
}

// Inspection is the outcome of inspecting one record.
type Inspection struct {
	Target   record.Target             `json:"target"`
	Record   *models.Record            `json:"record"`
	Facts    *models.Facts             `json:"facts"`
	Seeds    map[string]models.Verdict `json:"seeds"`
	Warnings []string                  `json:"warnings,omitempty"`
	Session  *checklist.Session        `json:"-"`
}

// Inspector runs inspections. Only Catalog and Evaluator are required;
// every other collaborator is optional.
type Inspector struct {
	Catalog   *catalog.Catalog
	Evaluator *policy.Evaluator
	Records   RecordLoader
	Pages     PageSource
	CrossRef  CrossChecker
	Assessor  Assessor
	Logger    *slog.Logger
}

func (in *Inspector) logger() *slog.Logger {
	if in.Logger != nil {
		return in.Logger
	}
	return slog.Default()
}

// Inspect fetches the record behind t and seeds a checklist from it.
// Failures of individual steps become warnings; an Inspection is always
// returned.
func (in *Inspector) Inspect(ctx context.Context, t record.Target) *Inspection {
	insp := &Inspection{Target: t}

	var r *models.Record
	if in.Records != nil {
		var err error
		r, err = in.Records.Load(ctx, t)
		if err != nil {
			in.logger().Warn("record fetch failed", "url", t.APIURL, "error", err)
			insp.warn("record fetch failed: %v", err)
			r = nil
		}
	}
	if r == nil {
		r = &models.Record{}
	}
	in.inspect(ctx, insp, r, t.PageURL)
	return insp
}

// InspectRecord seeds a checklist for an already decoded record. pageURL
// may be empty.
func (in *Inspector) InspectRecord(ctx context.Context, r *models.Record, pageURL string) *Inspection {
	if r == nil {
		r = &models.Record{}
	}
	if pageURL == "" {
		pageURL = r.LandingURL
	}
	insp := &Inspection{Target: record.Target{PageURL: pageURL, Source: r.Source}}
	in.inspect(ctx, insp, r, pageURL)
	return insp
}

func (in *Inspector) inspect(ctx context.Context, insp *Inspection, r *models.Record, pageURL string) {
	insp.Record = r

	facts := &models.Facts{}
	if in.Pages != nil && pageURL != "" {
		f, err := in.Pages.Facts(ctx, pageURL)
		if err != nil {
			in.logger().Warn("page scrape failed", "url", pageURL, "error", err)
			insp.warn("landing page unavailable: %v", err)
		} else if f != nil {
			facts = f
		}
	}

	// Both lookups only read r and each writes its own field.
	var g errgroup.Group
	if in.CrossRef != nil {
		g.Go(func() error {
			facts.CrossRef = in.CrossRef.Check(ctx, r)
			return nil
		})
	}
	var assessErr error
	if in.Assessor != nil && r.Description != nil && *r.Description != "" {
		g.Go(func() error {
			desc := r.DescriptionText()
			if r.DescriptionHTML != "" {
				desc = record.Markdown(r.DescriptionHTML)
			}
			facts.Assessment, assessErr = in.Assessor.AssessDescription(ctx, r.Title, desc)
			return nil
		})
	}
	_ = g.Wait()

	if assessErr != nil {
		in.logger().Warn("description assessment failed", "error", assessErr)
		insp.warn("description assessment failed: %v", assessErr)
		facts.Assessment = nil
	}
	if facts.CrossRef != nil && len(facts.CrossRef.Failed) > 0 {
		insp.warn("cross-reference lookup failed for %d identifier(s)", len(facts.CrossRef.Failed))
	}

	insp.Facts = facts
	insp.Seeds = in.Evaluator.Seed(in.Catalog, r, facts)
	insp.Session = checklist.NewSession(in.Catalog, insp.Seeds)
}

func (insp *Inspection) warn(format string, args ...any) {
	insp.Warnings = append(insp.Warnings, fmt.Sprintf(format, args...))
}
