// Package filter narrows a schema to the tables and columns relevant to a
// natural language query using similarity search and optional reranking.
package filter

import (
	"context"

	"github.com/google/uuid"

	"github.com/schemalink/schemalink/internal/config"
	apperrors "github.com/schemalink/schemalink/internal/errors"
	"github.com/schemalink/schemalink/internal/logging"
	"github.com/schemalink/schemalink/internal/reranker"
	"github.com/schemalink/schemalink/internal/schema"
	"github.com/schemalink/schemalink/internal/vectorstore"
)

// QueryEmbedder turns a query into an embedding vector.
type QueryEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Searcher serves similarity searches over indexed schema elements.
type Searcher interface {
	Search(
		ctx context.Context,
		queryVector []float32,
		opts vectorstore.SearchOptions,
	) ([]vectorstore.Candidate, error)
}

// Reranker rescores search candidates. A nil Reranker disables the stage.
type Reranker interface {
	RerankTables(
		ctx context.Context,
		query string,
		candidates []vectorstore.Candidate,
		topK int,
	) (reranker.Result, error)
	RerankColumns(
		ctx context.Context,
		query string,
		candidates []vectorstore.Candidate,
		topK int,
	) (reranker.Result, error)
}

// Options are the per-query filtering knobs.
type Options struct {
	TopKTables          int
	TopKColumns         int
	SimilarityThreshold float64
}

// Result is the outcome of filtering a schema by a query.
type Result struct {
	// Tables are the selected table names in relevance order.
	Tables []string

	// Columns maps each selected table to its selected columns in relevance
	// order. An empty list means the column search found nothing for the
	// table.
	Columns map[string][]string

	// Schema is the filtered schema built from the selections.
	Schema *schema.Schema

	// UsedFallback is set when a reranking stage failed and the vector
	// similarity ordering was kept instead.
	UsedFallback bool
}

// QueryFilter runs the multi-stage retrieval pipeline.
type QueryFilter struct {
	embedder    QueryEmbedder
	searcher    Searcher
	reranker    Reranker
	rerankerCfg config.RerankerConfig
	policy      config.EmptyColumnPolicy
}

// New creates a query filter. Pass a nil reranker to disable reranking.
func New(
	embedder QueryEmbedder,
	searcher Searcher,
	rr Reranker,
	rerankerCfg config.RerankerConfig,
	policy config.EmptyColumnPolicy,
) *QueryFilter {
	return &QueryFilter{
		embedder:    embedder,
		searcher:    searcher,
		reranker:    rr,
		rerankerCfg: rerankerCfg,
		policy:      policy,
	}
}

// FilterByQuery embeds the query once, selects relevant tables and columns,
// and builds the filtered schema. Finding nothing is not an error: the
// result carries an empty schema and a warning is logged.
func (f *QueryFilter) FilterByQuery(
	ctx context.Context,
	query string,
	s *schema.Schema,
	opts Options,
) (*Result, error) {
	log := logging.GetLogger()
	if log == nil {
		logging.SetupFallbackLogger()
		log = logging.GetLogger()
	}

	log = log.WithField("query_id", uuid.New().String())

	queryVector, err := f.embedder.Embed(ctx, query)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrTypeEmbedding, "failed to embed query")
	}

	tables, tableFallback, err := f.relevantTables(ctx, query, queryVector, opts)
	if err != nil {
		return nil, err
	}

	usedFallback := tableFallback

	if len(tables) == 0 {
		log.Warnf(
			"no tables matched query %q at threshold %.2f; consider lowering the threshold",
			query,
			opts.SimilarityThreshold,
		)
	}

	columns := make(map[string][]string, len(tables))

	for _, tableName := range tables {
		tableColumns, columnFallback, err := f.relevantColumns(ctx, query, queryVector, tableName, opts)
		if err != nil {
			return nil, err
		}

		usedFallback = usedFallback || columnFallback

		if len(tableColumns) == 0 {
			log.Warnf("no columns matched for table %s at threshold %.2f", tableName, opts.SimilarityThreshold)
		}

		columns[tableName] = tableColumns
	}

	log.WithFields(map[string]interface{}{
		"tables": len(tables),
	}).Debugf("query filtering complete")

	return &Result{
		Tables:       tables,
		Columns:      columns,
		Schema:       BuildFilteredSchema(s, tables, columns, f.policy),
		UsedFallback: usedFallback,
	}, nil
}

// relevantTables runs the table-level search and optional rerank stage. A
// reranker failure is never fatal: the similarity ordering is kept and the
// fallback flag is set.
func (f *QueryFilter) relevantTables(
	ctx context.Context,
	query string,
	queryVector []float32,
	opts Options,
) ([]string, bool, error) {
	initialTopK := opts.TopKTables
	if f.reranker != nil {
		initialTopK = f.rerankerCfg.InitialTopK
	}

	candidates, err := f.searcher.Search(ctx, queryVector, vectorstore.SearchOptions{
		TopK:        initialTopK,
		Threshold:   opts.SimilarityThreshold,
		ElementType: "table",
	})
	if err != nil {
		return nil, false, err
	}

	usedFallback := false

	if f.reranker != nil && len(candidates) > 0 {
		result, err := f.reranker.RerankTables(ctx, query, candidates, f.rerankerCfg.FinalTopKTables)
		if err != nil {
			logging.Warnf("table reranking failed, keeping similarity order: %v", err)

			usedFallback = true
		} else {
			candidates = result.Candidates
		}

		if len(candidates) > opts.TopKTables {
			candidates = candidates[:opts.TopKTables]
		}
	}

	return dedupeNames(candidates, func(c vectorstore.Candidate) string {
		return c.TableName
	}, 0), usedFallback, nil
}

// relevantColumns runs the column-level search for one table. The search is
// global over column elements, so hits are narrowed to the table before
// reranking.
func (f *QueryFilter) relevantColumns(
	ctx context.Context,
	query string,
	queryVector []float32,
	tableName string,
	opts Options,
) ([]string, bool, error) {
	// Without a reranker, over-fetch to survive the per-table narrowing.
	initialTopK := opts.TopKColumns * 2
	if f.reranker != nil {
		initialTopK = f.rerankerCfg.InitialTopK
	}

	candidates, err := f.searcher.Search(ctx, queryVector, vectorstore.SearchOptions{
		TopK:        initialTopK,
		Threshold:   opts.SimilarityThreshold,
		ElementType: "column",
	})
	if err != nil {
		return nil, false, err
	}

	tableCandidates := make([]vectorstore.Candidate, 0, len(candidates))

	for _, candidate := range candidates {
		if candidate.TableName == tableName {
			tableCandidates = append(tableCandidates, candidate)
		}
	}

	if f.reranker != nil && len(tableCandidates) > 0 {
		result, err := f.reranker.RerankColumns(ctx, query, tableCandidates, f.rerankerCfg.FinalTopKColumns)
		if err != nil {
			logging.Warnf("column reranking failed for table %s, keeping similarity order: %v", tableName, err)

			return dedupeNames(tableCandidates, func(c vectorstore.Candidate) string {
				return c.ColumnName
			}, opts.TopKColumns), true, nil
		}

		tableCandidates = result.Candidates
		if len(tableCandidates) > opts.TopKColumns {
			tableCandidates = tableCandidates[:opts.TopKColumns]
		}

		return dedupeNames(tableCandidates, func(c vectorstore.Candidate) string {
			return c.ColumnName
		}, 0), false, nil
	}

	return dedupeNames(tableCandidates, func(c vectorstore.Candidate) string {
		return c.ColumnName
	}, opts.TopKColumns), false, nil
}

// dedupeNames extracts names in first-seen order, skipping blanks and
// duplicates. A positive limit caps the result.
func dedupeNames(
	candidates []vectorstore.Candidate,
	name func(vectorstore.Candidate) string,
	limit int,
) []string {
	seen := make(map[string]bool, len(candidates))
	names := make([]string, 0, len(candidates))

	for _, candidate := range candidates {
		n := name(candidate)
		if n == "" || seen[n] {
			continue
		}

		seen[n] = true
		names = append(names, n)

		if limit > 0 && len(names) >= limit {
			break
		}
	}

	return names
}

// BuildFilteredSchema assembles a schema containing only the selected tables
// and columns. A table with no selected columns gets all of its columns or
// none, per the policy. Foreign keys survive only when both endpoints are
// selected.
func BuildFilteredSchema(
	s *schema.Schema,
	tables []string,
	columns map[string][]string,
	policy config.EmptyColumnPolicy,
) *schema.Schema {
	filtered := &schema.Schema{
		DBID:        s.DBID,
		SchemaName:  s.SchemaName,
		Tables:      make(map[string]schema.Table, len(tables)),
		ForeignKeys: []schema.ForeignKey{},
	}

	selected := make(map[string]bool, len(tables))

	for _, tableName := range tables {
		original, ok := s.Tables[tableName]
		if !ok {
			continue
		}

		selected[tableName] = true

		table := schema.Table{
			Description: original.Description,
			Examples:    original.Examples,
			Fields:      make(map[string]schema.Column),
		}

		tableColumns := columns[tableName]

		switch {
		case len(tableColumns) == 0 && policy == config.EmptyColumnsAll:
			for columnName, column := range original.Fields {
				table.Fields[columnName] = column
			}
		case len(tableColumns) == 0:
			// EmptyColumnsNone keeps the table with no columns.
		default:
			for _, columnName := range tableColumns {
				if column, ok := original.Fields[columnName]; ok {
					table.Fields[columnName] = column
				}
			}
		}

		filtered.Tables[tableName] = table
	}

	for _, fk := range s.ForeignKeys {
		if selected[fk.SourceTable] && selected[fk.RefTable] {
			filtered.ForeignKeys = append(filtered.ForeignKeys, fk)
		}
	}

	return filtered
}
