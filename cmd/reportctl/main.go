// Command reportctl generates academic reports without the HTTP server.
//
// Grades come from the configured database, or from a JSON fixture with
// --fixture for offline runs.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/gradereports/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:           "reportctl",
	Short:         "Generate academic reports from the command line",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		level, _ := cmd.Flags().GetString("log-level")
		logging.Setup(level, "text")
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(columnsCmd)
	rootCmd.AddCommand(gradesCmd)
	rootCmd.AddCommand(scaleCmd)

	rootCmd.PersistentFlags().String("fixture", "", "read grades from a JSON fixture instead of the database")
	rootCmd.PersistentFlags().String("log-level", "warn", "log level (debug|info|warn|error)")
}

func main() {
	// .env is optional; a missing file is not an error for a CLI.
	_ = godotenv.Load()

	// Ctrl-C cancels the report and closes any browser it started.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		slog.Error("reportctl failed", "error", err)
		stop()
		os.Exit(1)
	}
}
