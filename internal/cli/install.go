package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/blevlabs/TuningTracker/internal/install"
	"github.com/blevlabs/TuningTracker/internal/ui"
)

var installCmd = &cobra.Command{
	Use:   "install <agent>",
	Short: "Register the MCP server with an AI agent",
	Long: `Add aitracker to an agent's MCP server list so the agent can search and
manage objects. The --config and --url flags given here are passed on to
the server.

Supported agents: ` + strings.Join(install.Agents(), ", ") + `

Examples:
  aitracker install claude-code
  aitracker install opencode --url http://localhost:8080`,
	Args: cobra.ExactArgs(1),
	RunE: runInstall,
}

var uninstallCmd = &cobra.Command{
	Use:   "uninstall <agent>",
	Short: "Remove the MCP server from an AI agent",
	Args:  cobra.ExactArgs(1),
	RunE:  runUninstall,
}

func runInstall(cmd *cobra.Command, args []string) error {
	agent, err := install.Lookup(args[0])
	if err != nil {
		return err
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to find home directory: %w", err)
	}

	path, err := install.Install(agent, home, mcpCommandLine(cmd))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s aitracker into %s\n", ui.Success.Render("Installed"), agent.Name)
	fmt.Fprintf(out, "Config updated: %s\n", path)
	fmt.Fprintln(out, ui.Dim.Render("To remove it: aitracker uninstall "+agent.ID))
	return nil
}

func runUninstall(cmd *cobra.Command, args []string) error {
	agent, err := install.Lookup(args[0])
	if err != nil {
		return err
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to find home directory: %w", err)
	}

	removed, err := install.Uninstall(agent, home)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if !removed {
		fmt.Fprintf(out, "aitracker is not registered with %s, nothing to uninstall\n", agent.Name)
		return nil
	}
	fmt.Fprintf(out, "%s aitracker from %s\n", ui.Warning.Render("Uninstalled"), agent.Name)
	return nil
}

// mcpCommandLine is the command an agent runs to start the server.
func mcpCommandLine(cmd *cobra.Command) []string {
	line := []string{"aitracker", "mcp"}
	if cfgFile != "" {
		line = append(line, "--config", cfgFile)
	}
	if f := cmd.Flags().Lookup("url"); f != nil && f.Changed {
		line = append(line, "--url", f.Value.String())
	}
	return line
}
