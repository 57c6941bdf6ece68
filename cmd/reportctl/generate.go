package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/gradereports/internal/application"
	"github.com/JonMunkholm/gradereports/internal/core"
)

var generateCmd = &cobra.Command{
	Use:   "generate <registration-number>...",
	Short: "Generate a PDF or workbook report for students",
	Long: `Generate aggregates the given students and writes one artifact:
a combined PDF, a ZIP of per-student PDFs, or an Excel workbook.

Students that do not exist are skipped and listed on stderr.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGenerate,
}

// engineLauncher prints PDFs. Nil selects headless Chrome.
var engineLauncher core.EngineLauncher

func init() {
	generateCmd.Flags().String("format", "pdf", "output format (pdf|excel)")
	generateCmd.Flags().String("mode", "combined", "PDF packaging (combined|individual)")
	generateCmd.Flags().StringSlice("columns", nil, "workbook column keys; empty selects every column")
	generateCmd.Flags().String("name", "", "report name, used in the file name")
	generateCmd.Flags().StringP("out", "o", "", "output file (default: generated name in --dir)")
	generateCmd.Flags().String("dir", ".", "directory for the generated file name")
	generateCmd.Flags().String("faculty", "", "check that this faculty may see every student first")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	format, _ := cmd.Flags().GetString("format")
	mode, _ := cmd.Flags().GetString("mode")
	columns, _ := cmd.Flags().GetStringSlice("columns")
	name, _ := cmd.Flags().GetString("name")
	out, _ := cmd.Flags().GetString("out")
	dir, _ := cmd.Flags().GetString("dir")
	faculty, _ := cmd.Flags().GetString("faculty")

	cfg, grades, closeSource, err := openSource(ctx, cmd)
	if err != nil {
		return err
	}
	defer closeSource()

	req := core.ReportRequest{
		Name:       name,
		Type:       "cli",
		Format:     core.Format(format),
		StudentIDs: args,
		Columns:    columns,
	}
	if req.Format == core.FormatPDF {
		req.Mode = core.PackagingMode(strings.ToLower(mode))
	}
	core.NormalizeRequest(&req)
	if err := core.ValidateRequest(req, cfg.Report.MaxStudents); err != nil {
		return err
	}

	if faculty != "" {
		if err := grades.Authorize(ctx, faculty, req.StudentIDs); err != nil {
			return err
		}
	}

	pipeline, err := application.NewPipeline(cfg, grades, engineLauncher)
	if err != nil {
		return err
	}

	sink := &fileSink{path: out, dir: dir}
	outcome, genErr := pipeline.Service.Generate(ctx, req, sink)
	written := sink.written
	if err := sink.finish(genErr); err != nil {
		return fmt.Errorf("%s: %w", core.FormatUserError(err), err)
	}

	stderr := cmd.ErrOrStderr()
	if omitted := outcome.Artifact.Omitted; len(omitted) > 0 {
		fmt.Fprintf(stderr, "skipped unknown students: %s\n", strings.Join(omitted, ", "))
	}
	if len(outcome.RenderOmitted) > 0 {
		fmt.Fprintf(stderr, "could not render: %s\n", strings.Join(outcome.RenderOmitted, ", "))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", written, outcome.BytesWritten)
	return nil
}
