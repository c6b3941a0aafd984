package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var flagSchemaJSON bool

var schemaCmd = &cobra.Command{
	Use:   "schema <file>",
	Short: "Inspect the inferred schema of a JSON collection",
	Long: `Load a JSON collection and print its inferred schema: detected format,
record count, field types, and the designated timestamp, content, and
identifier fields.`,
	Args: cobra.ExactArgs(1),
	RunE: runSchema,
}

func init() {
	schemaCmd.Flags().BoolVar(&flagSchemaJSON, "json", false, "output the schema as JSON")
	rootCmd.AddCommand(schemaCmd)
}

func runSchema(cmd *cobra.Command, args []string) error {
	schema, err := queryService.LoadCollection(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("loading collection: %w", err)
	}

	if flagSchemaJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(schema)
	}

	fmt.Print(schema.Summary())
	return nil
}
