package cli

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/blevlabs/TuningTracker/internal/config"
	"github.com/blevlabs/TuningTracker/internal/tracker"
	"github.com/blevlabs/TuningTracker/internal/ui"
)

var (
	searchProps     []string
	searchCertainty float64
	searchLimit     int
	searchJSON      bool
)

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:   "search <class> <concept>...",
	Short: "Find objects by semantic similarity",
	Long: `Search a class for the objects nearest to one or more concepts.

Only objects whose certainty reaches the threshold are shown, most similar
first. The threshold defaults to search.certainty from the configuration.

Examples:
  # Basic search
  aitracker search Article "summer fashion"

  # Several concepts, a stricter threshold and selected properties
  aitracker search Article fashion summer --certainty 0.8 --props title,url

  # Machine-readable output
  aitracker search Article "stock market" --limit 5 --json`,
	Args: cobra.MinimumNArgs(2),
	RunE: runSearchCmd,
}

func init() {
	searchCmd.Flags().StringSliceVar(&searchProps, "props", nil, "properties to return (default: all primitive properties)")
	searchCmd.Flags().Float64Var(&searchCertainty, "certainty", config.DefaultCertainty, "minimum similarity (0-1)")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "m", 0, "maximum number of results (default: search.limit, 0 for server default)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
}

func runSearchCmd(cmd *cobra.Command, args []string) error {
	class, concepts := args[0], args[1:]
	cfg := config.Get()

	certainty := cfg.Search.Certainty
	if cmd.Flags().Changed("certainty") {
		certainty = searchCertainty
	}
	limit := cfg.Search.Limit
	if cmd.Flags().Changed("limit") {
		limit = searchLimit
	}

	log.Debug("Starting search",
		"class", class,
		"concepts", concepts,
		"certainty", certainty,
		"limit", limit,
	)

	ctx, cancel := signalContext()
	defer cancel()

	t, err := openTracker(ctx)
	if err != nil {
		return err
	}

	results, err := t.Search(ctx, class, concepts,
		tracker.WithCertainty(certainty),
		tracker.WithLimit(limit),
		tracker.WithProperties(searchProps...),
	)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if searchJSON {
		return writeJSON(out, results)
	}

	if len(results) == 0 {
		fmt.Fprintln(out, "No results found.")
		return nil
	}

	fmt.Fprintf(out, "%s\n\n", ui.Header.Render(fmt.Sprintf("Found %d results", len(results))))
	for i, r := range results {
		fmt.Fprintf(out, "%s %s %s\n",
			ui.ResultHeader.Render(fmt.Sprintf("%d.", i+1)),
			ui.FormatObjectRef(r.Class, r.ID),
			ui.FormatCertainty(r.Certainty),
		)
		printProperties(out, r.Properties)
		if i < len(results)-1 {
			fmt.Fprintln(out, ui.HorizontalRule(60))
		}
	}
	return nil
}
