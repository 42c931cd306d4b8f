package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/curate/internal/output"
	"github.com/joescharf/curate/internal/record"
	"github.com/joescharf/curate/internal/sessions"
	"github.com/joescharf/curate/internal/zenodo"
)

var (
	inboxCommunity string
	inboxAll       bool
	inboxCheck     bool
)

var inboxCmd = &cobra.Command{
	Use:   "inbox",
	Short: "List open inclusion requests of the Zenodo community",
	Long: `List the records awaiting curation in the Zenodo community.
Requests that already have a recorded review are hidden unless --all is set.

With --check every listed request is inspected and its review recorded
in the ledger, so it is skipped next time.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return inboxRun(cmd.Context())
	},
}

func init() {
	inboxCmd.Flags().StringVar(&inboxCommunity, "community", "", "Community slug (default zenodo.community)")
	inboxCmd.Flags().BoolVar(&inboxAll, "all", false, "Include requests that were already reviewed")
	inboxCmd.Flags().BoolVar(&inboxCheck, "check", false, "Inspect every listed request and record its review")
	rootCmd.AddCommand(inboxCmd)
}

func inboxRun(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	community := inboxCommunity
	if community == "" {
		community = viper.GetString("zenodo.community")
	}
	if community == "" {
		return fmt.Errorf("no community configured (set zenodo.community or use --community)")
	}

	c := zenodo.NewClient(
		viper.GetString("zenodo.base_url"),
		viper.GetString("zenodo.token"),
		viper.GetString("http.user_agent"),
		viper.GetDuration("http.timeout"),
	)
	requests, err := c.CommunityRequests(ctx, community)
	if err != nil {
		return err
	}
	pending, err := pendingRequests(ctx, requests)
	if err != nil {
		return err
	}
	if err := printInbox(c, pending); err != nil {
		return err
	}
	if inboxCheck {
		return checkRequests(ctx, c, pending)
	}
	return nil
}

// pendingRequests drops requests that already have a review, unless --all.
func pendingRequests(ctx context.Context, requests []zenodo.Request) ([]zenodo.Request, error) {
	if inboxAll {
		return requests, nil
	}
	s, err := getStore()
	if err != nil {
		return nil, err
	}
	var pending []zenodo.Request
	for _, r := range requests {
		done, err := s.HasRequest(ctx, r.ID)
		if err != nil {
			return nil, err
		}
		if !done {
			pending = append(pending, r)
		}
	}
	return pending, nil
}

func printInbox(c *zenodo.Client, pending []zenodo.Request) error {
	if len(pending) == 0 {
		ui.Success("No open requests")
		return nil
	}

	table := ui.Table([]string{"Request", "Submitted", "Title", "Record"})
	for _, r := range pending {
		table.Append([]string{r.ID, r.Created.Local().Format("2006-01-02"), truncate(r.Title, 50), c.RecordURL(r.RecordID)})
	}
	if err := table.Render(); err != nil {
		return err
	}
	if !inboxCheck {
		ui.VerboseLog("Check one with: curate check <record> --save --request <request>")
	}
	return nil
}

// checkRequests inspects each request's record and records a review.
// A request whose record cannot be resolved is reported and skipped.
func checkRequests(ctx context.Context, c *zenodo.Client, pending []zenodo.Request) error {
	if len(pending) == 0 {
		return nil
	}
	in, err := newInspector()
	if err != nil {
		return err
	}
	mgr := sessions.NewManager()
	fmt.Fprintln(ui.Out)

	for _, req := range pending {
		target, err := record.Resolve(c.RecordURL(req.RecordID))
		if err != nil {
			ui.Error("%s: %v", req.ID, err)
			continue
		}
		snap, err := mgr.Create(in.Inspect(ctx, target))
		if err != nil {
			ui.Error("%s: %v", req.ID, err)
			continue
		}
		for _, w := range snap.Warnings {
			ui.Warning("%s: %s", req.ID, w)
		}

		msg, err := snap.Compose(in.Catalog.Tiers(), mailContext())
		if err != nil {
			return fmt.Errorf("compose feedback for %s: %w", req.ID, err)
		}
		review := snap.Review(msg, req.ID)
		_ = mgr.Delete(snap.ID)

		if dryRun {
			ui.DryRunMsg("Would record review of %s (score %d)", req.ID, review.Score)
			continue
		}
		s, err := getStore()
		if err != nil {
			return err
		}
		if err := s.CreateReview(ctx, review); err != nil {
			return err
		}
		outcome := output.Red("needs changes")
		if review.Positive {
			outcome = output.Green("accepted")
		}
		ui.Success("%s: score %s, %s (review %s)", req.ID, output.ScoreColor(review.Score), outcome, review.ID)
	}
	return nil
}
