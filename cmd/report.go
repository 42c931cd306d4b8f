package cmd

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joescharf/curate/internal/catalog"
	"github.com/joescharf/curate/internal/models"
	"github.com/joescharf/curate/internal/store"
)

var (
	reportFormat string
	exportType   string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export data as JSON, CSV, or Markdown",
	Long:  "Export the review ledger or the criteria catalog in various formats.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return exportRun(cmd.Context())
	},
}

func init() {
	exportCmd.Flags().StringVar(&reportFormat, "format", "json", "Output format: json, csv, markdown")
	exportCmd.Flags().StringVar(&exportType, "type", "reviews", "Data type: reviews, criteria")
	rootCmd.AddCommand(exportCmd)
}

func exportRun(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	switch exportType {
	case "reviews":
		s, err := getStore()
		if err != nil {
			return err
		}
		reviews, err := s.ListReviews(ctx, store.ReviewListFilter{})
		if err != nil {
			return err
		}
		return exportReviews(ui.Out, reviews)
	case "criteria":
		return exportCriteria(ui.Out, catalog.Default())
	default:
		return fmt.Errorf("unknown export type: %s (use: reviews, criteria)", exportType)
	}
}

func exportReviews(out io.Writer, reviews []*models.Review) error {
	switch reportFormat {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if reviews == nil {
			reviews = []*models.Review{}
		}
		return enc.Encode(reviews)
	case "csv":
		w := csv.NewWriter(out)
		w.Write([]string{"ID", "RecordID", "RequestID", "Source", "Title", "URL", "Score", "Positive", "Failed", "Created"})
		for _, r := range reviews {
			w.Write([]string{
				r.ID, r.RecordID, r.RequestID, string(r.Source), r.Title, r.URL,
				strconv.Itoa(r.Score), strconv.FormatBool(r.Positive),
				strings.Join(failedCriteria(r), " "), r.CreatedAt.Format("2006-01-02"),
			})
		}
		w.Flush()
		return w.Error()
	case "markdown":
		fmt.Fprintln(out, "# Reviews")
		fmt.Fprintln(out)
		fmt.Fprintln(out, "| Date | Title | Score | Accepted | Failed |")
		fmt.Fprintln(out, "|------|-------|-------|----------|--------|")
		for _, r := range reviews {
			fmt.Fprintf(out, "| %s | %s | %d | %s | %s |\n",
				r.CreatedAt.Format("2006-01-02"), markdownCell(r.Title), r.Score, yesNo(r.Positive), strings.Join(failedCriteria(r), ", "))
		}
		return nil
	default:
		return fmt.Errorf("unknown format: %s", reportFormat)
	}
}

func exportCriteria(out io.Writer, cat *catalog.Catalog) error {
	criteria := cat.All()
	switch reportFormat {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(criteria)
	case "csv":
		w := csv.NewWriter(out)
		w.Write([]string{"ID", "Tier", "Short", "Description"})
		for _, c := range criteria {
			w.Write([]string{c.ID, string(c.Tier), c.Short, c.Description})
		}
		w.Flush()
		return w.Error()
	case "markdown":
		for _, t := range cat.Tiers() {
			fmt.Fprintf(out, "## %s\n\n", t.Label)
			for _, c := range criteria {
				if c.Tier == t.Tier {
					fmt.Fprintf(out, "- **%s** %s: %s\n", c.ID, c.Short, c.Description)
				}
			}
			fmt.Fprintln(out)
		}
		return nil
	default:
		return fmt.Errorf("unknown format: %s", reportFormat)
	}
}

// failedCriteria lists the ids of criteria that need feedback, sorted.
func failedCriteria(r *models.Review) []string {
	var ids []string
	for id, v := range r.Verdicts {
		if v.NeedsFeedback() {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

func markdownCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
