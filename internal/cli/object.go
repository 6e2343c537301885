package cli

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/blevlabs/TuningTracker/internal/tracker"
	"github.com/blevlabs/TuningTracker/internal/ui"
)

var (
	objectProps   []string
	objectJSON    bool
	objectReplace bool
)

var objectCmd = &cobra.Command{
	Use:   "object",
	Short: "Add, get, update or delete data objects",
	Long: `Manage individual data objects.

Properties are a JSON object given inline, read from a file with @path, or
read from stdin with "-".

Examples:
  aitracker object add Article '{"title": "Hello", "views": 3}'
  aitracker object add Article @article.json
  aitracker object get Article 0f8b6a2e-3c47-4d1a-9a55-6f1f4f2a8c11 --props title
  aitracker object update Article 0f8b6a2e-3c47-4d1a-9a55-6f1f4f2a8c11 '{"views": 4}'
  aitracker object delete Article 0f8b6a2e-3c47-4d1a-9a55-6f1f4f2a8c11`,
}

var objectAddCmd = &cobra.Command{
	Use:   "add <class> <properties>",
	Short: "Store a new object and print its UUID",
	Args:  cobra.ExactArgs(2),
	RunE:  runObjectAdd,
}

var objectGetCmd = &cobra.Command{
	Use:   "get <class> <id>",
	Short: "Fetch one object",
	Args:  cobra.ExactArgs(2),
	RunE:  runObjectGet,
}

var objectUpdateCmd = &cobra.Command{
	Use:   "update <class> <id> <properties>",
	Short: "Merge properties into an object, or replace them with --replace",
	Args:  cobra.ExactArgs(3),
	RunE:  runObjectUpdate,
}

var objectDeleteCmd = &cobra.Command{
	Use:   "delete <class> <id>",
	Short: "Delete one object",
	Args:  cobra.ExactArgs(2),
	RunE:  runObjectDelete,
}

func init() {
	objectGetCmd.Flags().StringSliceVar(&objectProps, "props", nil, "properties to return (default: all)")
	objectGetCmd.Flags().BoolVar(&objectJSON, "json", false, "output the object as JSON")
	objectUpdateCmd.Flags().BoolVar(&objectReplace, "replace", false, "replace all properties instead of merging")

	objectCmd.AddCommand(objectAddCmd)
	objectCmd.AddCommand(objectGetCmd)
	objectCmd.AddCommand(objectUpdateCmd)
	objectCmd.AddCommand(objectDeleteCmd)
}

func runObjectAdd(cmd *cobra.Command, args []string) error {
	props, err := readProperties(args[1], cmd.InOrStdin())
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	t, err := openTracker(ctx)
	if err != nil {
		return err
	}

	id, err := t.AddObject(ctx, args[0], props)
	if err != nil {
		return err
	}

	// Only the ID goes to stdout so it can be captured by scripts.
	fmt.Fprintln(cmd.OutOrStdout(), id)
	return nil
}

func runObjectGet(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	t, err := openTracker(ctx)
	if err != nil {
		return err
	}

	obj, err := t.GetObject(ctx, args[0], args[1], objectProps...)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if objectJSON {
		return writeJSON(out, obj)
	}
	printObject(out, obj)
	return nil
}

func runObjectUpdate(cmd *cobra.Command, args []string) error {
	props, err := readProperties(args[2], cmd.InOrStdin())
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	t, err := openTracker(ctx)
	if err != nil {
		return err
	}

	verb := "Updated"
	if objectReplace {
		verb = "Replaced"
		err = t.ReplaceObject(ctx, args[0], args[1], props)
	} else {
		err = t.UpdateObject(ctx, args[0], args[1], props)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", ui.Success.Render(verb), ui.FormatObjectRef(args[0], args[1]))
	return nil
}

func runObjectDelete(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	t, err := openTracker(ctx)
	if err != nil {
		return err
	}

	if err := t.DeleteObject(ctx, args[0], args[1]); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", ui.Warning.Render("Deleted"), ui.FormatObjectRef(args[0], args[1]))
	return nil
}

// printObject writes an object header followed by its properties in name order.
func printObject(w io.Writer, obj *tracker.DataObject) {
	fmt.Fprintln(w, ui.FormatObjectRef(obj.Class, obj.ID))
	printProperties(w, obj.Properties)
}

func printProperties(w io.Writer, props map[string]any) {
	names := make([]string, 0, len(props))
	for k := range props {
		names = append(names, k)
	}
	sort.Strings(names)

	for _, name := range names {
		fmt.Fprintf(w, "    %s %s\n", ui.PropName.Render(name+":"), ui.FormatValue(props[name]))
	}
}
