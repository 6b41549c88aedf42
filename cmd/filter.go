package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/schemalink/schemalink/internal/linker"
)

var filterCmd = &cobra.Command{
	Use:   "filter [query]",
	Short: "Filter the schema by a natural language query",
	Long: `Retrieve the tables and columns relevant to a query. The selection is
expanded along foreign keys so join paths remain usable, and the filtered
schema is written as M-Schema JSON.`,
	Args: cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		query, _ := cmd.Flags().GetString("query")
		if query == "" {
			query = strings.Join(args, " ")
		}

		if strings.TrimSpace(query) == "" {
			return fmt.Errorf("no query given: pass it as an argument or with --query")
		}

		topTables, _ := cmd.Flags().GetInt("top-tables")
		topColumns, _ := cmd.Flags().GetInt("top-columns")
		threshold, _ := cmd.Flags().GetFloat64("threshold")
		fkHops, _ := cmd.Flags().GetInt("fk-hops")
		output, _ := cmd.Flags().GetString("output")

		l, err := newLinker(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = l.Close() }()

		filtered, err := l.FilterSchema(cmd.Context(), query, linker.FilterOptions{
			TopKTables:          topTables,
			TopKColumns:         topColumns,
			SimilarityThreshold: threshold,
			FKHops:              fkHops,
		})
		if err != nil {
			return err
		}

		data, err := json.MarshalIndent(filtered, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode filtered schema: %w", err)
		}

		if output != "" {
			if err := os.WriteFile(output, append(data, '\n'), 0644); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}

			fmt.Printf("Wrote filtered schema (%d tables) to %s\n", len(filtered.Tables), output)

			return nil
		}

		fmt.Println(string(data))

		return nil
	},
}

func init() {
	filterCmd.Flags().StringP("query", "q", "", "Natural language query")
	filterCmd.Flags().Int("top-tables", 0, "Maximum number of tables to select (0 = configured default)")
	filterCmd.Flags().Int("top-columns", 0, "Maximum number of columns per table (0 = configured default)")
	filterCmd.Flags().Float64("threshold", 0, "Minimum similarity score in [0,1] (0 = configured default)")
	filterCmd.Flags().Int("fk-hops", 1, "Foreign key hops to expand the selection by")
	filterCmd.Flags().StringP("output", "o", "", "Write the filtered schema to a file instead of stdout")
}
