// Package linker wires the schema retrieval pipeline together: embedding
// generation, vector indexing, query filtering, and foreign key expansion.
package linker

import (
	"context"
	"io"

	"github.com/schemalink/schemalink/internal/config"
	"github.com/schemalink/schemalink/internal/embedding"
	apperrors "github.com/schemalink/schemalink/internal/errors"
	"github.com/schemalink/schemalink/internal/filter"
	"github.com/schemalink/schemalink/internal/fkgraph"
	"github.com/schemalink/schemalink/internal/logging"
	"github.com/schemalink/schemalink/internal/reranker"
	"github.com/schemalink/schemalink/internal/schema"
	"github.com/schemalink/schemalink/internal/vectorstore"
)

// VectorIndex is the slice of the vector store the linker drives.
type VectorIndex interface {
	Store(ctx context.Context, records []embedding.Record) error
	Search(
		ctx context.Context,
		queryVector []float32,
		opts vectorstore.SearchOptions,
	) ([]vectorstore.Candidate, error)
	DeleteByTable(ctx context.Context, tableName string) error
	ListTableNames(ctx context.Context) ([]string, error)
	Stats(ctx context.Context) (vectorstore.Stats, error)
}

// Filterer runs the query filtering pipeline.
type Filterer interface {
	FilterByQuery(
		ctx context.Context,
		query string,
		s *schema.Schema,
		opts filter.Options,
	) (*filter.Result, error)
}

// FilterOptions are the per-request knobs of FilterSchema. Zero values fall
// back to the configured defaults.
type FilterOptions struct {
	TopKTables          int
	TopKColumns         int
	SimilarityThreshold float64
	FKHops              int
}

// Statistics describes the loaded schema and the state of the index.
type Statistics struct {
	NumTables      int
	NumColumns     int
	NumForeignKeys int
	StoredElements vectorstore.Stats
	StoredTables   []string
}

// SchemaLinker is the facade over the retrieval pipeline.
type SchemaLinker struct {
	cfg      *config.Config
	schema   *schema.Schema
	embedder *embedding.SchemaEmbedder
	index    VectorIndex
	filterer Filterer
	cache    *embedding.Cache
	expander *fkgraph.Expander
}

// New builds the full pipeline from configuration: embedding provider,
// DuckDB-backed index, optional reranker, query filter, and foreign key
// expander. The schema is loaded from schemaPath.
func New(ctx context.Context, cfg *config.Config, schemaPath string) (*SchemaLinker, error) {
	s, err := schema.Load(schemaPath)
	if err != nil {
		return nil, err
	}

	provider, err := embedding.NewOpenAIProvider(cfg.Embedding)
	if err != nil {
		return nil, err
	}

	store, err := vectorstore.New(cfg.VectorDB.Path, cfg.VectorDB.Collection)
	if err != nil {
		return nil, err
	}

	if err := store.Initialize(ctx, false); err != nil {
		_ = store.Close()
		return nil, err
	}

	var rr filter.Reranker

	if cfg.Reranker.Enabled {
		rerankerCfg := cfg.Reranker

		var validator reranker.Validator

		if rerankerCfg.LLMValidation {
			validator, err = reranker.NewLLMValidator(rerankerCfg)
			if err != nil {
				_ = store.Close()
				return nil, err
			}
		}

		rr = reranker.New(
			func() (reranker.PairScorer, error) { return reranker.NewHFScorer(rerankerCfg) },
			validator,
			rerankerCfg.ValidationThreshold,
		)
	}

	qf := filter.New(provider, store, rr, cfg.Reranker, cfg.Filter.EmptyColumnPolicy)

	linker := NewWithComponents(cfg, s, provider, store, qf, embedding.NewCache(cfg.Cache.Path))

	return linker, nil
}

// NewWithComponents builds a linker from pre-constructed components. Tests
// and embedding callers use this to substitute fakes.
func NewWithComponents(
	cfg *config.Config,
	s *schema.Schema,
	provider embedding.Provider,
	index VectorIndex,
	filterer Filterer,
	cache *embedding.Cache,
) *SchemaLinker {
	return &SchemaLinker{
		cfg:      cfg,
		schema:   s,
		embedder: embedding.NewSchemaEmbedder(provider),
		index:    index,
		filterer: filterer,
		cache:    cache,
		expander: fkgraph.NewExpander(s),
	}
}

// Schema returns the loaded schema.
func (l *SchemaLinker) Schema() *schema.Schema {
	return l.schema
}

// PrecomputeEmbeddings generates embeddings for every schema element and
// loads them into the index. Without force, a valid disk cache short-circuits
// generation.
func (l *SchemaLinker) PrecomputeEmbeddings(ctx context.Context, force bool) error {
	if !force {
		if records, ok := l.cache.Load(); ok {
			logging.Infof("loaded %d embeddings from cache %s", len(records), l.cache.Path())
			return l.index.Store(ctx, records)
		}
	}

	records, err := l.embedder.EmbedSchema(ctx, l.schema)
	if err != nil {
		return err
	}

	if err := l.index.Store(ctx, records); err != nil {
		return err
	}

	if err := l.cache.Save(records); err != nil {
		logging.Warnf("failed to cache embeddings: %v", err)
	}

	return nil
}

// FilterSchema filters the schema by the query and expands the selection
// along foreign keys. Tables pulled in by expansion keep all of their
// columns, and the final foreign key list covers exactly the tables that
// made the cut.
func (l *SchemaLinker) FilterSchema(
	ctx context.Context,
	query string,
	opts FilterOptions,
) (*schema.Schema, error) {
	opts = l.withDefaults(opts)

	result, err := l.filterer.FilterByQuery(ctx, query, l.schema, filter.Options{
		TopKTables:          opts.TopKTables,
		TopKColumns:         opts.TopKColumns,
		SimilarityThreshold: opts.SimilarityThreshold,
	})
	if err != nil {
		return nil, err
	}

	filtered := result.Schema

	if opts.FKHops > 0 && len(result.Tables) > 0 {
		expanded := l.expander.Expand(result.Tables, opts.FKHops)

		for _, tableName := range expanded {
			if _, present := filtered.Tables[tableName]; present {
				continue
			}

			if original, ok := l.schema.Tables[tableName]; ok {
				filtered.Tables[tableName] = original
			}
		}
	}

	filtered.ForeignKeys = filtered.ForeignKeys[:0]

	for _, fk := range l.schema.ForeignKeys {
		if _, src := filtered.Tables[fk.SourceTable]; !src {
			continue
		}

		if _, ref := filtered.Tables[fk.RefTable]; ref {
			filtered.ForeignKeys = append(filtered.ForeignKeys, fk)
		}
	}

	return filtered, nil
}

// UpdateTable regenerates embeddings for one table after its definition
// changed. Existing records for the table are removed first so dropped
// columns do not linger in the index. An empty name refreshes everything.
func (l *SchemaLinker) UpdateTable(ctx context.Context, tableName string) error {
	if tableName == "" {
		return l.PrecomputeEmbeddings(ctx, true)
	}

	if _, ok := l.schema.Tables[tableName]; !ok {
		return apperrors.Newf(apperrors.ErrTypeNotFound, "table %s not found in schema", tableName)
	}

	records, err := l.embedder.TableRecords(ctx, l.schema, tableName)
	if err != nil {
		return err
	}

	if err := l.index.DeleteByTable(ctx, tableName); err != nil {
		return err
	}

	if err := l.index.Store(ctx, records); err != nil {
		return err
	}

	logging.Infof("updated embeddings for table %s (%d elements)", tableName, len(records))

	return nil
}

// Statistics reports the schema dimensions and what the index holds.
func (l *SchemaLinker) Statistics(ctx context.Context) (Statistics, error) {
	stats, err := l.index.Stats(ctx)
	if err != nil {
		return Statistics{}, err
	}

	storedTables, err := l.index.ListTableNames(ctx)
	if err != nil {
		return Statistics{}, err
	}

	return Statistics{
		NumTables:      l.schema.TableCount(),
		NumColumns:     l.schema.ColumnCount(),
		NumForeignKeys: len(l.schema.ForeignKeys),
		StoredElements: stats,
		StoredTables:   storedTables,
	}, nil
}

// Close releases the underlying index when it owns closable resources.
func (l *SchemaLinker) Close() error {
	if closer, ok := l.index.(io.Closer); ok {
		return closer.Close()
	}

	return nil
}

// withDefaults fills zero-valued options from the configuration.
func (l *SchemaLinker) withDefaults(opts FilterOptions) FilterOptions {
	if opts.TopKTables <= 0 {
		opts.TopKTables = l.cfg.Filter.TopKTables
	}

	if opts.TopKColumns <= 0 {
		opts.TopKColumns = l.cfg.Filter.TopKColumns
	}

	if opts.SimilarityThreshold <= 0 {
		opts.SimilarityThreshold = l.cfg.Filter.SimilarityThreshold
	}

	if opts.FKHops < 0 {
		opts.FKHops = 0
	}

	return opts
}
