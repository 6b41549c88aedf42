// Package cmd implements the schemalink command line interface.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/schemalink/schemalink/internal/config"
	"github.com/schemalink/schemalink/internal/linker"
	"github.com/schemalink/schemalink/internal/logging"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "schemalink",
	Short: "Filter large database schemas down to what a query needs",
	Long: `schemalink indexes the tables and columns of an M-Schema document as
embedding vectors and, given a natural language query, retrieves the
relevant subset of the schema: similarity search over tables and columns,
optional cross-encoder reranking, and foreign key expansion so join paths
stay intact.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		overrides := map[string]interface{}{}

		if v, _ := cmd.Flags().GetString("vector-db"); v != "" {
			overrides["vector-db"] = v
		}

		if v, _ := cmd.Flags().GetString("cache-path"); v != "" {
			overrides["cache-path"] = v
		}

		if v, _ := cmd.Flags().GetString("log-level"); v != "" {
			overrides["log-level"] = v
		}

		if cmd.Flags().Changed("reranker") {
			v, _ := cmd.Flags().GetBool("reranker")
			overrides["reranker"] = v
		}

		loaded, err := config.LoadConfigWithOverrides(overrides)
		if err != nil {
			return err
		}

		loaded.ExpandAllPaths()

		if err := loaded.EnsureDirectories(); err != nil {
			return err
		}

		if err := logging.InitializeLogger(loaded.Logging); err != nil {
			logging.SetupFallbackLogger()
			logging.Warnf("failed to initialize logger, using fallback: %v", err)
		}

		cfg = loaded

		return nil
	},
}

// Execute runs the CLI.
func Execute() error {
	err := rootCmd.ExecuteContext(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}

	return err
}

// newLinker builds the pipeline for commands that need the full stack.
func newLinker(cmd *cobra.Command) (*linker.SchemaLinker, error) {
	schemaPath, _ := cmd.Flags().GetString("schema")

	return linker.New(cmd.Context(), cfg, schemaPath)
}

func init() {
	rootCmd.PersistentFlags().String("schema", "schema.json", "Path to the M-Schema JSON file")
	rootCmd.PersistentFlags().String("vector-db", "", "Override the vector database path")
	rootCmd.PersistentFlags().String("cache-path", "", "Override the embedding cache path")
	rootCmd.PersistentFlags().String("log-level", "", "Override the log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("reranker", false, "Enable the reranking stage")

	rootCmd.AddCommand(embedCmd)
	rootCmd.AddCommand(filterCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(clearCmd)
}
