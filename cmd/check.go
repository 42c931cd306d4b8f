package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/curate/internal/checklist"
	"github.com/joescharf/curate/internal/feedback"
	"github.com/joescharf/curate/internal/inspect"
	"github.com/joescharf/curate/internal/output"
	"github.com/joescharf/curate/internal/record"
	"github.com/joescharf/curate/internal/sessions"
)

var (
	checkFile      string
	checkPage      string
	checkSet       []string
	checkFormat    string
	checkMail      bool
	checkOpen      bool
	checkSave      bool
	checkTo        string
	checkRecipient string
	checkRequest   string
)

var checkCmd = &cobra.Command{
	Use:   "check [url|doi]",
	Short: "Inspect a record and pre-fill its curation checklist",
	Long: `Fetch a record, infer a verdict for every checklist criterion, and
print the checklist. Verdicts can be overridden with --set, e.g.

  curate check https://zenodo.org/records/123 --set R2=ok --set M3=bad --mail

Use --file to check a record JSON document saved on disk.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ref := ""
		if len(args) == 1 {
			ref = args[0]
		}
		return checkRun(cmd.Context(), ref)
	},
}

func init() {
	checkCmd.Flags().StringVarP(&checkFile, "file", "f", "", "Read the record from a JSON file instead of fetching it")
	checkCmd.Flags().StringVar(&checkPage, "page", "", "Landing page to scrape (with --file)")
	checkCmd.Flags().StringArrayVar(&checkSet, "set", nil, "Override a verdict: ID=verdict (repeatable)")
	checkCmd.Flags().StringVar(&checkFormat, "format", "table", "Output format: table or json")
	checkCmd.Flags().BoolVar(&checkMail, "mail", false, "Print the drafted feedback e-mail")
	checkCmd.Flags().BoolVar(&checkOpen, "open", false, "Open the drafted e-mail in the mail client")
	checkCmd.Flags().BoolVar(&checkSave, "save", false, "Record the review in the ledger")
	checkCmd.Flags().StringVar(&checkTo, "to", "", "Recipient address of the e-mail (default mail.to)")
	checkCmd.Flags().StringVar(&checkRecipient, "recipient", "", "Name used in the greeting")
	checkCmd.Flags().StringVar(&checkRequest, "request", "", "Community request id recorded with --save")
	rootCmd.AddCommand(checkCmd)
}

func checkRun(ctx context.Context, ref string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if checkFormat != "table" && checkFormat != "json" {
		return fmt.Errorf("unsupported format: %s (use table or json)", checkFormat)
	}
	overrides, err := checklist.ParseOverrides(checkSet)
	if err != nil {
		return err
	}

	in, err := newInspector()
	if err != nil {
		return err
	}

	insp, err := runInspection(ctx, in, ref)
	if err != nil {
		return err
	}
	if err := insp.Session.Apply(overrides); err != nil {
		return err
	}

	snap, err := sessions.NewManager().Create(insp)
	if err != nil {
		return err
	}

	for _, w := range snap.Warnings {
		ui.Warning("%s", w)
	}

	if checkFormat == "json" {
		if err := printSnapshotJSON(snap); err != nil {
			return err
		}
	} else {
		printSnapshot(snap)
	}

	if !checkMail && !checkOpen && !checkSave {
		return nil
	}

	fc := mailContext()
	if checkRecipient != "" {
		fc.Recipient = checkRecipient
	}
	msg, err := snap.Compose(in.Catalog.Tiers(), fc)
	if err != nil {
		return fmt.Errorf("compose feedback: %w", err)
	}

	to := checkTo
	if to == "" {
		to = viper.GetString("mail.to")
	}
	uri := feedback.MailtoURI(to, msg.Subject, msg.Text())

	if checkMail {
		fmt.Fprintln(ui.Out)
		fmt.Fprintln(ui.Out, msg.Subject)
		fmt.Fprintln(ui.Out)
		fmt.Fprint(ui.Out, msg.Text())
		ui.VerboseLog("mailto: %s", uri)
	}

	if checkSave {
		if err := saveReview(ctx, snap, msg); err != nil {
			return err
		}
	}

	if checkOpen {
		if dryRun {
			ui.DryRunMsg("Would open %s", uri)
			return nil
		}
		if err := openURI(uri); err != nil {
			return fmt.Errorf("open mail client: %w", err)
		}
	}
	return nil
}

// runInspection inspects a record file or a record reference.
func runInspection(ctx context.Context, in *inspect.Inspector, ref string) (*inspect.Inspection, error) {
	if checkFile != "" {
		raw, err := os.ReadFile(checkFile)
		if err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}
		rec, err := record.Decode(raw)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", checkFile, err)
		}
		ui.VerboseLog("Decoded %s record %s", rec.Source, rec.ID)
		return in.InspectRecord(ctx, rec, checkPage), nil
	}

	if ref == "" {
		return nil, fmt.Errorf("a record URL, DOI, or --file is required")
	}
	target, err := record.Resolve(ref)
	if err != nil {
		return nil, err
	}
	ui.VerboseLog("Fetching %s", target.APIURL)
	return in.Inspect(ctx, target), nil
}

func printSnapshot(snap *sessions.Snapshot) {
	if snap.Title != "" {
		ui.Info("%s", output.Cyan(snap.Title))
	}
	if snap.URL != "" {
		ui.Info("%s", snap.URL)
	}
	fmt.Fprintln(ui.Out)

	table := ui.Table([]string{"ID", "Tier", "Check", "Verdict", "Criterion"})
	for _, e := range snap.Entries {
		table.Append([]string{
			e.ID,
			output.TierLabel(string(e.Tier)),
			output.MarkersString(e.Markers),
			output.VerdictColor(string(e.Verdict)),
			e.Short,
		})
	}
	_ = table.Render()

	fmt.Fprintln(ui.Out)
	if snap.Score != nil {
		fmt.Fprintf(ui.Out, "Score: %s/100", output.ScoreColor(snap.Score.Total))
		if snap.Score.Acceptable {
			fmt.Fprintf(ui.Out, "  %s\n", output.Green("acceptable"))
		} else {
			fmt.Fprintf(ui.Out, "  %s\n", output.Red("needs changes"))
		}
	}
	if len(snap.Missing) > 0 {
		ui.Warning("Related publications not found: %v", snap.Missing)
	}
}

func printSnapshotJSON(snap *sessions.Snapshot) error {
	enc := json.NewEncoder(ui.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}

// openURI hands a URI to the platform's default handler.
func openURI(uri string) error {
	var c *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		c = exec.Command("open", uri)
	case "windows":
		c = exec.Command("rundll32", "url.dll,FileProtocolHandler", uri)
	default:
		c = exec.Command("xdg-open", uri)
	}
	return c.Start()
}
