package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/curate/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP stdio server",
	Long: `Start an MCP (Model Context Protocol) server on stdio.

This lets an MCP client inspect records and draft feedback. Configure it with:

  {
    "mcpServers": {
      "curate": { "command": "curate", "args": ["mcp"] }
    }
  }

Available tools: curate_list_criteria, curate_inspect, curate_compose_feedback`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// stdout carries the protocol.
		ui.Out = ui.ErrOut

		in, err := newInspector()
		if err != nil {
			return err
		}
		srv := mcp.NewServer(in, mailContext(), viper.GetString("mail.to"), buildVersion)
		return srv.ServeStdio(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
