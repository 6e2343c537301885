package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/blevlabs/TuningTracker/internal/tracker"
	"github.com/blevlabs/TuningTracker/internal/ui"
)

var (
	schemaShowJSON bool
	schemaYes      bool
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Create, show or delete schema classes",
}

var schemaCreateCmd = &cobra.Command{
	Use:   "create <file>",
	Short: "Create the classes defined in a JSON or YAML file",
	Long: `Create classes from a schema file. The file holds either a "classes" list
or a single class definition, in JSON or YAML.

If any class is rejected, classes created by this command are removed again.

Example schema.yaml:
  classes:
    - class: Article
      vectorizer: text2vec-openai
      properties:
        - name: title
          dataType: [text]`,
	Args: cobra.ExactArgs(1),
	RunE: runSchemaCreate,
}

var schemaShowCmd = &cobra.Command{
	Use:   "show [class]",
	Short: "Show the schema, or one class",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSchemaShow,
}

var schemaDeleteAllCmd = &cobra.Command{
	Use:   "delete-all",
	Short: "Delete every class and all stored objects",
	Long: `Delete every class in the schema. All objects stored in those classes are
deleted with them. This cannot be undone, so --yes is required.`,
	Args: cobra.NoArgs,
	RunE: runSchemaDeleteAll,
}

func init() {
	schemaShowCmd.Flags().BoolVar(&schemaShowJSON, "json", false, "output the schema as JSON")
	schemaDeleteAllCmd.Flags().BoolVar(&schemaYes, "yes", false, "confirm deletion of all data")

	schemaCmd.AddCommand(schemaCreateCmd)
	schemaCmd.AddCommand(schemaShowCmd)
	schemaCmd.AddCommand(schemaDeleteAllCmd)
}

func runSchemaCreate(cmd *cobra.Command, args []string) error {
	schema, err := tracker.LoadSchemaFile(args[0])
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	t, err := openTracker(ctx)
	if err != nil {
		return err
	}

	log.Debug("Creating schema", "file", args[0], "classes", len(schema.Classes))

	if err := t.CreateSchema(ctx, schema); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, c := range schema.Classes {
		fmt.Fprintf(out, "%s %s (%d properties)\n", ui.Success.Render("Created"), ui.ClassName.Render(c.Class), len(c.Properties))
	}
	return nil
}

func runSchemaShow(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	t, err := openTracker(ctx)
	if err != nil {
		return err
	}

	var classes []tracker.Class
	if len(args) == 1 {
		c, err := t.GetClass(ctx, args[0])
		if err != nil {
			return err
		}
		classes = []tracker.Class{*c}
	} else {
		schema, err := t.GetSchema(ctx)
		if err != nil {
			return err
		}
		classes = schema.Classes
	}

	out := cmd.OutOrStdout()
	if schemaShowJSON {
		if len(args) == 1 {
			return writeJSON(out, classes[0])
		}
		return writeJSON(out, tracker.Schema{Classes: classes})
	}

	if len(classes) == 0 {
		fmt.Fprintln(out, "No classes defined.")
		return nil
	}
	return writeMarkdown(out, schemaMarkdown(classes))
}

// schemaMarkdown renders classes as markdown tables.
func schemaMarkdown(classes []tracker.Class) string {
	var sb strings.Builder
	for i, c := range classes {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "## %s\n\n", c.Class)
		if c.Description != "" {
			fmt.Fprintf(&sb, "%s\n\n", c.Description)
		}
		if c.Vectorizer != "" {
			fmt.Fprintf(&sb, "Vectorizer: `%s`\n\n", c.Vectorizer)
		}
		if len(c.Properties) == 0 {
			sb.WriteString("_No properties._\n")
			continue
		}
		sb.WriteString("| Property | Type | Description |\n")
		sb.WriteString("|---|---|---|\n")
		for _, p := range c.Properties {
			desc := strings.ReplaceAll(p.Description, "|", `\|`)
			fmt.Fprintf(&sb, "| %s | %s | %s |\n", p.Name, strings.Join(p.DataType, ", "), desc)
		}
	}
	return sb.String()
}

// writeMarkdown renders markdown on a terminal and writes it unchanged otherwise.
func writeMarkdown(w io.Writer, md string) error {
	if isTerminal(w) {
		rendered, err := ui.RenderMarkdown(md)
		if err == nil {
			_, err = fmt.Fprint(w, rendered)
			return err
		}
		log.Debug("Markdown rendering failed", "error", err)
	}
	_, err := fmt.Fprint(w, md)
	return err
}

func runSchemaDeleteAll(cmd *cobra.Command, args []string) error {
	if !schemaYes {
		return fmt.Errorf("refusing to delete all classes and their objects without --yes")
	}

	ctx, cancel := signalContext()
	defer cancel()

	t, err := openTracker(ctx)
	if err != nil {
		return err
	}

	n, err := t.DeleteAllSchemas(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s %d classes\n", ui.Warning.Render("Deleted"), n)
	return nil
}
