package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/gradereports/internal/config"
	"github.com/JonMunkholm/gradereports/internal/core"
)

var columnsCmd = &cobra.Command{
	Use:   "columns",
	Short: "List the workbook columns that --columns accepts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.LoadOffline()
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "KEY\tLABEL")
		for _, c := range core.NewColumnCatalog(cfg.Report.MaxSemesters).All() {
			fmt.Fprintf(tw, "%s\t%s\n", c.Key, c.Label)
		}
		return tw.Flush()
	},
}
