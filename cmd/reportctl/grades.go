package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/gradereports/internal/application"
	"github.com/JonMunkholm/gradereports/internal/core"
)

var (
	failColor    = color.New(color.FgRed, color.Bold)
	headingColor = color.New(color.FgCyan, color.Bold)
	missingColor = color.New(color.FgYellow)
)

var gradesCmd = &cobra.Command{
	Use:   "grades <registration-number>...",
	Short: "Print the aggregated semester grades of students",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runGrades,
}

func init() {
	gradesCmd.Flags().Bool("json", false, "print aggregated records as JSON")
}

func runGrades(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	asJSON, _ := cmd.Flags().GetBool("json")

	cfg, grades, closeSource, err := openSource(ctx, cmd)
	if err != nil {
		return err
	}
	defer closeSource()

	// Aggregation alone never launches a browser.
	pipeline, err := application.NewPipeline(cfg, grades, engineLauncher)
	if err != nil {
		return err
	}

	records, err := pipeline.Aggregator.Aggregate(ctx, args)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}
	for i, rec := range records {
		if i > 0 {
			fmt.Fprintln(out)
		}
		printRecord(out, rec)
	}
	return nil
}

func printRecord(w io.Writer, rec core.AggregatedRecord) {
	s := rec.Student
	if !rec.Valid() {
		missingColor.Fprintf(w, "%s: %s\n", s.RegistrationNumber, rec.Error)
		return
	}

	headingColor.Fprintf(w, "%s  %s\n", s.RegistrationNumber, s.Name)
	fmt.Fprintf(w, "Branch: %s  Current semester: %d\n", orNA(s.Branch), s.CurrentSemester)

	for _, sem := range rec.Semesters {
		fmt.Fprintf(w, "\nSemester %d\n", sem.Number)
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "CODE\tSUBJECT\tGRADE\tCREDITS\tPOINT\tSTATUS")
		for _, sub := range sem.Subjects {
			status := string(sub.Status)
			if sub.Status == core.StatusFail {
				status = failColor.Sprint(status)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
				sub.Code, sub.Name, sub.Grade, sub.Credits, core.FormatMetric(sub.Point), status)
		}
		tw.Flush()
		fmt.Fprintf(w, "SGPA %s  Credits %s\n", core.FormatMetric(sem.SGPA), core.FormatCredits(sem))
	}
	fmt.Fprintf(w, "\nCGPA %s\n", core.FormatMetric(rec.CGPA))
}

func orNA(s string) string {
	if s == "" {
		return core.NotApplicable
	}
	return s
}
