package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blevlabs/TuningTracker/internal/config"
	"github.com/blevlabs/TuningTracker/internal/ui"
)

var configShowPath bool

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show configuration",
	Long: `Display current configuration settings and config file locations.
Secrets are masked.

Examples:
  # Show current configuration
  aitracker config

  # Show config file paths
  aitracker config --path`,
	Args: cobra.NoArgs,
	RunE: runConfig,
}

func init() {
	configCmd.Flags().BoolVar(&configShowPath, "path", false, "show config file paths")
}

func runConfig(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if configShowPath {
		active := config.ConfigFilePath()
		if active == "" {
			active = "(none, using defaults)"
		}
		fmt.Fprintln(out, ui.SectionTitle.Render("Configuration Paths"))
		fmt.Fprintln(out)
		fmt.Fprintf(out, "Global config: %s\n", config.GlobalConfigPath())
		fmt.Fprintf(out, "Local config:  %s (searched from cwd upward)\n", config.RCFileName)
		fmt.Fprintf(out, "Active config: %s\n", active)
		return nil
	}

	cfg := config.Get()

	fmt.Fprintln(out, ui.SectionTitle.Render("Current Configuration"))
	fmt.Fprintln(out)

	fmt.Fprintln(out, ui.Bold.Render("Server:"))
	fmt.Fprintf(out, "  URL: %s\n", cfg.Server.URL)
	fmt.Fprintf(out, "  Username: %s\n", orNotSet(cfg.Server.Username))
	fmt.Fprintf(out, "  Password: %s\n", mask(cfg.Server.Password))
	fmt.Fprintf(out, "  Timeout: %s\n", cfg.Server.Timeout)
	fmt.Fprintln(out)

	fmt.Fprintln(out, ui.Bold.Render("Search:"))
	fmt.Fprintf(out, "  Certainty: %.2f\n", cfg.Search.Certainty)
	if cfg.Search.Limit > 0 {
		fmt.Fprintf(out, "  Limit: %d\n", cfg.Search.Limit)
	} else {
		fmt.Fprintln(out, "  Limit: server default")
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, ui.Bold.Render("Export:"))
	fmt.Fprintf(out, "  Path: %s\n", cfg.Export.Path)
	fmt.Fprintf(out, "  Page Size: %d\n", cfg.Export.PageSize)
	fmt.Fprintln(out)

	fmt.Fprintln(out, ui.Bold.Render("Vectorizer:"))
	fmt.Fprintf(out, "  Provider: %s\n", orNone(cfg.Vectorizer.Provider))
	switch cfg.Vectorizer.Provider {
	case "ollama":
		fmt.Fprintf(out, "  Ollama URL: %s\n", cfg.Vectorizer.Ollama.URL)
		fmt.Fprintf(out, "  Ollama Model: %s\n", cfg.Vectorizer.Ollama.Model)
	case "openai":
		fmt.Fprintf(out, "  OpenAI Model: %s\n", cfg.Vectorizer.OpenAI.Model)
		if cfg.Vectorizer.OpenAI.BaseURL != "" {
			fmt.Fprintf(out, "  OpenAI Base URL: %s\n", cfg.Vectorizer.OpenAI.BaseURL)
		}
		fmt.Fprintf(out, "  OpenAI API Key: %s\n", mask(cfg.Vectorizer.OpenAI.APIKey))
	}

	return nil
}

func orNotSet(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}

// mask hides a secret, showing only whether it is set.
func mask(s string) string {
	if s == "" {
		return "(not set)"
	}
	return "********"
}
