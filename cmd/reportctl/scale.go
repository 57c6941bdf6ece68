package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/gradereports/internal/config"
	"github.com/JonMunkholm/gradereports/internal/core"
)

var scaleCmd = &cobra.Command{
	Use:   "scale",
	Short: "Print the grade scale reports are scored with",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.LoadOffline()
		if err != nil {
			return err
		}

		scale := core.DefaultGradeScale()
		if path := cfg.Report.GradeScaleFile; path != "" {
			if scale, err = core.LoadGradeScale(path); err != nil {
				return err
			}
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "GRADE\tPOINT\tSTATUS")
		for _, e := range scale.Entries() {
			status := string(core.StatusPass)
			if e.Failing {
				status = failColor.Sprint(core.StatusFail)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Symbol, core.FormatMetric(e.Point), status)
		}
		return tw.Flush()
	},
}
