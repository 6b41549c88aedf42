package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/schemalink/schemalink/internal/embedding"
)

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the vector index and embedding cache",
	Long:  `Remove the vector database file and the on-disk embedding cache. This action requires confirmation.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		force, _ := cmd.Flags().GetBool("force")

		if !force {
			fmt.Printf("This will delete:\n")
			fmt.Printf("  - vector database: %s\n", cfg.VectorDB.Path)
			fmt.Printf("  - embedding cache: %s\n", cfg.Cache.Path)
			fmt.Printf("\nType 'yes' to confirm: ")

			reader := bufio.NewReader(os.Stdin)
			response, err := reader.ReadString('\n')
			if err != nil {
				return fmt.Errorf("failed to read input: %w", err)
			}

			if strings.TrimSpace(strings.ToLower(response)) != "yes" {
				fmt.Println("Operation cancelled.")
				return nil
			}
		}

		if err := os.Remove(cfg.VectorDB.Path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove vector database: %w", err)
		}

		if err := embedding.NewCache(cfg.Cache.Path).Clear(); err != nil {
			return err
		}

		fmt.Println("Vector index and embedding cache cleared.")

		return nil
	},
}

func init() {
	clearCmd.Flags().BoolP("force", "f", false, "Skip confirmation prompt")
}
