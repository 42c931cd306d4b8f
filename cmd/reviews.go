package cmd

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/joescharf/curate/internal/feedback"
	"github.com/joescharf/curate/internal/models"
	"github.com/joescharf/curate/internal/output"
	"github.com/joescharf/curate/internal/sessions"
	"github.com/joescharf/curate/internal/store"
)

var (
	reviewsLimit    int
	reviewsSource   string
	reviewsPositive string
)

var reviewsCmd = &cobra.Command{
	Use:     "reviews",
	Aliases: []string{"review"},
	Short:   "Browse the review ledger",
	Long: `List and show recorded curation reviews.

Running bare 'curate reviews' is the same as 'curate reviews list'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return reviewsListRun(cmd.Context())
	},
}

var reviewsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded reviews, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		return reviewsListRun(cmd.Context())
	},
}

var reviewsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a review with its verdicts and feedback",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return reviewsShowRun(cmd.Context(), args[0])
	},
}

func init() {
	for _, c := range []*cobra.Command{reviewsCmd, reviewsListCmd} {
		c.Flags().IntVar(&reviewsLimit, "limit", 20, "Maximum number of reviews (0 for all)")
		c.Flags().StringVar(&reviewsSource, "source", "", "Filter by source: zenodo, datacite, inveniordm, dspace")
		c.Flags().StringVar(&reviewsPositive, "accepted", "", "Filter by outcome: yes or no")
	}
	reviewsCmd.AddCommand(reviewsListCmd)
	reviewsCmd.AddCommand(reviewsShowCmd)
	rootCmd.AddCommand(reviewsCmd)
}

func reviewsListRun(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	filter := store.ReviewListFilter{Source: models.Source(reviewsSource), Limit: reviewsLimit}
	switch reviewsPositive {
	case "":
	case "yes", "true":
		b := true
		filter.Positive = &b
	case "no", "false":
		b := false
		filter.Positive = &b
	default:
		return fmt.Errorf("invalid --accepted value: %s (use yes or no)", reviewsPositive)
	}

	s, err := getStore()
	if err != nil {
		return err
	}
	reviews, err := s.ListReviews(ctx, filter)
	if err != nil {
		return err
	}
	if len(reviews) == 0 {
		ui.Info("No reviews recorded")
		return nil
	}

	table := ui.Table([]string{"ID", "Date", "Score", "Accepted", "Title"})
	for _, r := range reviews {
		accepted := output.Red("no")
		if r.Positive {
			accepted = output.Green("yes")
		}
		table.Append([]string{
			r.ID,
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
			output.ScoreColor(r.Score),
			accepted,
			truncate(r.Title, 60),
		})
	}
	return table.Render()
}

func reviewsShowRun(ctx context.Context, id string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := getStore()
	if err != nil {
		return err
	}
	r, err := s.GetReview(ctx, id)
	if err != nil {
		return err
	}

	ui.Info("%s", output.Cyan(r.Title))
	fmt.Fprintf(ui.Out, "  ID:       %s\n", r.ID)
	fmt.Fprintf(ui.Out, "  Record:   %s (%s)\n", r.RecordID, r.Source)
	fmt.Fprintf(ui.Out, "  URL:      %s\n", r.URL)
	if r.RequestID != "" {
		fmt.Fprintf(ui.Out, "  Request:  %s\n", r.RequestID)
	}
	fmt.Fprintf(ui.Out, "  Score:    %s\n", output.ScoreColor(r.Score))
	fmt.Fprintf(ui.Out, "  Reviewed: %s\n", r.CreatedAt.Local().Format("2006-01-02 15:04"))
	fmt.Fprintln(ui.Out)

	ids := make([]string, 0, len(r.Verdicts))
	for id := range r.Verdicts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	table := ui.Table([]string{"ID", "Verdict"})
	for _, id := range ids {
		table.Append([]string{id, output.VerdictColor(string(r.Verdicts[id]))})
	}
	if err := table.Render(); err != nil {
		return err
	}

	if r.Feedback != "" {
		fmt.Fprintln(ui.Out)
		fmt.Fprint(ui.Out, r.Feedback)
	}
	return nil
}

// saveReview records a finished check in the ledger.
func saveReview(ctx context.Context, snap *sessions.Snapshot, msg feedback.Message) error {
	review := snap.Review(msg, checkRequest)
	if dryRun {
		ui.DryRunMsg("Would record review of %q (score %d)", review.Title, review.Score)
		return nil
	}
	s, err := getStore()
	if err != nil {
		return err
	}
	if err := s.CreateReview(ctx, review); err != nil {
		return err
	}
	ui.Success("Review recorded: %s", review.ID)
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
