package cli

import (
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/blevlabs/TuningTracker/internal/mcp"
	"github.com/blevlabs/TuningTracker/internal/ui"
)

// mcpCmd represents the MCP server command.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server for AI agent integration",
	Long: `Start a Model Context Protocol (MCP) server for integration with AI agents.

The server communicates via stdin/stdout using JSON-RPC 2.0 and provides tools for:
  - tracker_search: Semantic search within a class
  - tracker_get_object: Fetch one object
  - tracker_add_object: Store a new object
  - tracker_delete_object: Delete one object
  - tracker_export: Export a class to a JSON file
  - tracker_list_classes: List defined classes

This command is typically invoked by an agent and not run directly by users.`,
	Args: cobra.NoArgs,
	RunE: runMcpCmd,
}

func runMcpCmd(cmd *cobra.Command, args []string) error {
	// stdout carries the protocol, so logs go to stderr
	ui.SetLogOutput(cmd.ErrOrStderr())

	ctx, cancel := signalContext()
	defer cancel()

	t, err := openTracker(ctx)
	if err != nil {
		return err
	}

	log.Info("Starting MCP server", "url", t.URL())

	server := mcp.NewServer(t, mcp.WithIO(cmd.InOrStdin(), cmd.OutOrStdout()), mcp.WithVersion(version))
	return server.Run(ctx)
}
