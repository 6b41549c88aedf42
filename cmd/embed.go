package cmd

import (
	"fmt"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"
)

var embedCmd = &cobra.Command{
	Use:   "embed",
	Short: "Generate and index embeddings for the schema",
	Long: `Generate embedding vectors for every table and column in the schema and
store them in the vector database. Cached embeddings are reused unless
--force is given.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		force, _ := cmd.Flags().GetBool("force")

		l, err := newLinker(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = l.Close() }()

		s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
		s.Suffix = " Generating embeddings..."
		s.Start()

		err = l.PrecomputeEmbeddings(cmd.Context(), force)
		s.Stop()

		if err != nil {
			return err
		}

		schema := l.Schema()
		fmt.Printf(
			"Indexed %d tables and %d columns (%d elements).\n",
			schema.TableCount(),
			schema.ColumnCount(),
			schema.ElementCount(),
		)

		return nil
	},
}

func init() {
	embedCmd.Flags().BoolP("force", "f", false, "Regenerate embeddings even if a cache exists")
}
