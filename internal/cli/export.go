package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blevlabs/TuningTracker/internal/config"
	"github.com/blevlabs/TuningTracker/internal/ui"
)

var (
	exportOutput string
	exportProps  []string
)

var exportCmd = &cobra.Command{
	Use:   "export <class>",
	Short: "Write every object of a class to a JSON file",
	Long: `Export all objects of a class as a JSON array indented with two spaces.
An existing file is overwritten. An empty class produces [].

Examples:
  aitracker export Article
  aitracker export Article -o articles.json --props title,url`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default: export.path, output.json)")
	exportCmd.Flags().StringSliceVar(&exportProps, "props", nil, "properties to export (default: all)")
}

func runExport(cmd *cobra.Command, args []string) error {
	path := exportOutput
	if path == "" {
		path = config.Get().Export.Path
	}

	ctx, cancel := signalContext()
	defer cancel()

	t, err := openTracker(ctx)
	if err != nil {
		return err
	}

	var spinner *ui.Spinner
	if isTerminal(cmd.ErrOrStderr()) {
		spinner = ui.StartSpinner(cmd.ErrOrStderr(), "Exporting "+args[0])
	}
	result, err := t.ExportAll(ctx, args[0], path, exportProps...)
	if spinner != nil {
		spinner.Stop()
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s %d objects to %s %s\n",
		ui.Success.Render("Exported"),
		result.Count,
		result.Path,
		ui.Dim.Render(fmt.Sprintf("(%d bytes, %s)", result.Bytes, result.Checksum)),
	)
	return nil
}
