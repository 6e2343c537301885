package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/blevlabs/TuningTracker/internal/config"
	"github.com/blevlabs/TuningTracker/internal/ui"
)

var statusJSON bool

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server status and defined classes",
	Long: `Display information about the configured server including:
- Readiness
- Version and hostname
- Enabled modules
- Defined classes

Examples:
  aitracker status
  aitracker status --url http://localhost:8080 --json`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output status as JSON")
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	log.Debug("Showing status", "url", cfg.Server.URL)

	ctx, cancel := signalContext()
	defer cancel()

	t, err := openTracker(ctx)
	if err != nil {
		return err
	}

	status, err := t.Status(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if statusJSON {
		return writeJSON(out, status)
	}

	ready := ui.Success.Render("ready")
	if !status.Ready {
		ready = ui.Warning.Render("not ready")
	}

	fmt.Fprintln(out, ui.Header.Render("Server Status"))
	fmt.Fprintln(out)
	fmt.Fprintf(out, "%s %s\n", ui.Highlight.Render("Server:"), ui.Bold.Render(t.URL()))
	fmt.Fprintf(out, "  %s %s\n", ui.Dim.Render("State:"), ready)
	fmt.Fprintf(out, "  %s %s\n", ui.Dim.Render("Version:"), orUnknown(status.Version))
	fmt.Fprintf(out, "  %s %s\n", ui.Dim.Render("Hostname:"), orUnknown(status.Hostname))
	fmt.Fprintf(out, "  %s %s\n", ui.Dim.Render("Modules:"), joinOrNone(status.Modules))
	fmt.Fprintf(out, "  %s %s\n", ui.Dim.Render("Classes:"), joinOrNone(status.Classes))

	fmt.Fprintln(out)
	fmt.Fprintln(out, ui.Dim.Render("Configuration:"))
	fmt.Fprintf(out, "  Certainty: %.2f\n", t.Certainty())
	fmt.Fprintf(out, "  Vectorizer: %s\n", orNone(cfg.Vectorizer.Provider))

	return nil
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

func orNone(s string) string {
	if s == "" {
		return config.VectorizerNone
	}
	return s
}

func joinOrNone(values []string) string {
	if len(values) == 0 {
		return ui.Dim.Render("(none)")
	}
	return strings.Join(values, ", ")
}
