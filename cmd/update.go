package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Refresh embeddings after a schema change",
	Long: `Regenerate embeddings for a single table with --table, or for the whole
schema when no table is given. Stale records for the table are removed
before the new ones are stored.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		tableName, _ := cmd.Flags().GetString("table")

		l, err := newLinker(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = l.Close() }()

		if err := l.UpdateTable(cmd.Context(), tableName); err != nil {
			return err
		}

		if tableName == "" {
			fmt.Println("Refreshed embeddings for all tables.")
		} else {
			fmt.Printf("Refreshed embeddings for table %s.\n", tableName)
		}

		return nil
	},
}

func init() {
	updateCmd.Flags().StringP("table", "t", "", "Table to refresh (empty refreshes everything)")
}
