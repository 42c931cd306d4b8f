package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joescharf/curate/internal/catalog"
	"github.com/joescharf/curate/internal/output"
)

var criteriaCmd = &cobra.Command{
	Use:   "criteria",
	Short: "List the curation checklist criteria",
	RunE: func(cmd *cobra.Command, args []string) error {
		return criteriaRun()
	},
}

func init() {
	rootCmd.AddCommand(criteriaCmd)
}

func criteriaRun() error {
	cat := catalog.Default()
	for i, t := range cat.Tiers() {
		if i > 0 {
			fmt.Fprintln(ui.Out)
		}
		fmt.Fprintln(ui.Out, output.TierLabel(string(t.Tier)))
		table := ui.Table([]string{"ID", "Criterion"})
		for _, c := range cat.All() {
			if c.Tier == t.Tier {
				table.Append([]string{c.ID, c.Short})
			}
		}
		if err := table.Render(); err != nil {
			return err
		}
		if verbose {
			for _, c := range cat.All() {
				if c.Tier == t.Tier {
					ui.VerboseLog("%s: %s", c.ID, c.Description)
				}
			}
		}
	}
	return nil
}
