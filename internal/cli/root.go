// Package cli implements the command-line interface for aitracker.
package cli

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/blevlabs/TuningTracker/internal/config"
	"github.com/blevlabs/TuningTracker/internal/ui"
)

var (
	// Version information set at build time
	version = "dev"
	commit  = "none"
	date    = "unknown"

	// Global flags
	cfgFile string
	debug   bool
)

// SetVersionInfo sets the version information from build flags.
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "aitracker",
	Short: "Manage and search a Weaviate vector database",
	Long: `aitracker manages schemas and data objects in a Weaviate vector database,
runs semantic searches over them and exports whole classes to JSON.

Examples:
  # Create classes from a schema file
  aitracker schema create schema.yaml

  # Store an object
  aitracker object add Article '{"title": "Summer fashion trends"}'

  # Search by meaning
  aitracker search Article "summer fashion" --certainty 0.7

  # Dump a class
  aitracker export Article -o articles.json`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		ui.SetDebug(debug)
		if debug {
			log.Debug("Debug logging enabled")
		}

		if err := config.Load(cfgFile); err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	ui.InitLogger()

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/aitracker/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().String("url", "", "Weaviate server URL (overrides server.url)")

	_ = viper.BindPFlag("server.url", rootCmd.PersistentFlags().Lookup("url"))

	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(objectCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(uninstallCmd)
}

// versionCmd shows version information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "aitracker %s\n", version)
		fmt.Fprintf(out, "  commit: %s\n", commit)
		fmt.Fprintf(out, "  built:  %s\n", date)
	},
}
