package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show schema and index statistics",
	Long:  `Display the size of the loaded schema and what the vector index currently holds.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		l, err := newLinker(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = l.Close() }()

		stats, err := l.Statistics(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("Schema\n")
		fmt.Printf("======\n")
		fmt.Printf("Tables:       %d\n", stats.NumTables)
		fmt.Printf("Columns:      %d\n", stats.NumColumns)
		fmt.Printf("Foreign keys: %d\n", stats.NumForeignKeys)

		fmt.Printf("\nVector Index\n")
		fmt.Printf("============\n")
		fmt.Printf("Table elements:  %d\n", stats.StoredElements.Tables)
		fmt.Printf("Column elements: %d\n", stats.StoredElements.Columns)
		fmt.Printf("Total records:   %d\n", stats.StoredElements.Total)

		if len(stats.StoredTables) > 0 {
			fmt.Printf("Indexed tables:  %s\n", strings.Join(stats.StoredTables, ", "))
		} else {
			fmt.Printf("Indexed tables:  none (run 'schemalink embed')\n")
		}

		return nil
	},
}
