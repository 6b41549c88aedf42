// Package vectorstore persists schema element embeddings in DuckDB and
// serves similarity searches over them.
package vectorstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	_ "github.com/marcboeker/go-duckdb" // DuckDB driver

	"github.com/schemalink/schemalink/internal/embedding"
	apperrors "github.com/schemalink/schemalink/internal/errors"
	"github.com/schemalink/schemalink/internal/logging"
)

// ErrNotInitialized is returned when a store operation runs before
// Initialize.
var ErrNotInitialized = apperrors.New(
	apperrors.ErrTypeVectorStore,
	"vector store not initialized",
).WithSuggestion("Run 'schemalink embed' first to build the index")

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SearchOptions controls a similarity search.
type SearchOptions struct {
	// TopK is the maximum number of candidates to return.
	TopK int

	// Threshold is the minimum similarity score in [0, 1].
	Threshold float64

	// ElementType restricts the search to "table" or "column" elements.
	// Empty searches everything.
	ElementType string
}

// Candidate is one search hit.
type Candidate struct {
	ID          string
	ElementType string
	TableName   string
	ColumnName  string
	Description string
	Metadata    map[string]any
	Score       float64
}

// Stats summarizes the contents of the store.
type Stats struct {
	Tables  int
	Columns int
	Total   int
}

// Store is a DuckDB-backed vector index over schema element embeddings.
type Store struct {
	db          *sql.DB
	path        string
	collection  string
	initialized bool
}

// New opens (or creates) the DuckDB database at the given path. The
// collection names the table the index lives in.
func New(path, collection string) (*Store, error) {
	if !identifierPattern.MatchString(collection) {
		return nil, apperrors.Newf(
			apperrors.ErrTypeVectorStore,
			"invalid collection name: %s",
			collection,
		)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrTypeVectorStore, "failed to create database directory")
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.ErrTypeVectorStore, "failed to open database at %s", path)
	}

	db.SetMaxOpenConns(4)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, apperrors.Wrap(err, apperrors.ErrTypeVectorStore, "failed to ping database")
	}

	return &Store{
		db:         db,
		path:       path,
		collection: collection,
	}, nil
}

// Initialize creates the index table. With reset, any existing collection is
// dropped first.
func (s *Store) Initialize(ctx context.Context, reset bool) error {
	if reset {
		dropSQL := fmt.Sprintf("DROP TABLE IF EXISTS %s", s.collection)
		if _, err := s.db.ExecContext(ctx, dropSQL); err != nil {
			return apperrors.Wrap(err, apperrors.ErrTypeVectorStore, "failed to drop collection")
		}

		logging.Infof("reset collection %s", s.collection)
	}

	createSQL := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %s (
		id VARCHAR PRIMARY KEY,
		element_type VARCHAR NOT NULL,
		table_name VARCHAR NOT NULL,
		column_name VARCHAR,
		description VARCHAR,
		metadata VARCHAR,
		embedding VARCHAR NOT NULL
	)`, s.collection)

	if _, err := s.db.ExecContext(ctx, createSQL); err != nil {
		return apperrors.Wrap(err, apperrors.ErrTypeVectorStore, "failed to create collection")
	}

	s.initialized = true

	return nil
}

// Store upserts embedding records into the collection.
func (s *Store) Store(ctx context.Context, records []embedding.Record) error {
	if !s.initialized {
		return ErrNotInitialized
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrTypeVectorStore, "failed to begin transaction")
	}

	defer func() { _ = tx.Rollback() }()

	upsertSQL := fmt.Sprintf(`
	INSERT OR REPLACE INTO %s
		(id, element_type, table_name, column_name, description, metadata, embedding)
	VALUES (?, ?, ?, ?, ?, ?, ?)`, s.collection)

	stmt, err := tx.PrepareContext(ctx, upsertSQL)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrTypeVectorStore, "failed to prepare upsert")
	}
	defer func() { _ = stmt.Close() }()

	for _, record := range records {
		metadataJSON, err := json.Marshal(record.Metadata)
		if err != nil {
			return apperrors.Wrapf(err, apperrors.ErrTypeVectorStore, "failed to marshal metadata for %s", record.ID)
		}

		embeddingJSON, err := json.Marshal(record.Embedding)
		if err != nil {
			return apperrors.Wrapf(err, apperrors.ErrTypeVectorStore, "failed to marshal embedding for %s", record.ID)
		}

		if _, err := stmt.ExecContext(ctx,
			record.ID,
			record.ElementType,
			record.TableName,
			record.ColumnName,
			record.Description,
			string(metadataJSON),
			string(embeddingJSON),
		); err != nil {
			return apperrors.Wrapf(err, apperrors.ErrTypeVectorStore, "failed to store record %s", record.ID)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.Wrap(err, apperrors.ErrTypeVectorStore, "failed to commit records")
	}

	logging.Debugf("stored %d records in collection %s", len(records), s.collection)

	return nil
}

// Search returns the elements most similar to the query vector, scored in
// [0, 1] and filtered by the options.
func (s *Store) Search(
	ctx context.Context,
	queryVector []float32,
	opts SearchOptions,
) ([]Candidate, error) {
	if !s.initialized {
		return nil, ErrNotInitialized
	}

	if opts.TopK <= 0 {
		return nil, nil
	}

	querySQL := fmt.Sprintf(
		"SELECT id, element_type, table_name, column_name, description, metadata, embedding FROM %s",
		s.collection,
	)

	var args []any

	if opts.ElementType != "" {
		querySQL += " WHERE element_type = ?"
		args = append(args, opts.ElementType)
	}

	rows, err := s.db.QueryContext(ctx, querySQL, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrTypeVectorStore, "search query failed")
	}
	defer func() { _ = rows.Close() }()

	var scored []scoredCandidate

	for rows.Next() {
		candidate, vector, err := scanCandidate(rows)
		if err != nil {
			return nil, err
		}

		// Zero vectors are failed-embedding placeholders; they sit at
		// distance 1 from every unit query and would otherwise score 0.5.
		score := 0.0
		if !embedding.IsZeroVector(vector) {
			score = similarityFromDistance(euclideanDistance(queryVector, vector))
		}

		scored = append(scored, scoredCandidate{
			candidate: candidate,
			score:     score,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrTypeVectorStore, "failed to iterate search results")
	}

	return rankCandidates(scored, opts.TopK, opts.Threshold), nil
}

// scanCandidate reads one row into a candidate plus its stored vector.
func scanCandidate(rows *sql.Rows) (Candidate, []float32, error) {
	var (
		candidate     Candidate
		columnName    sql.NullString
		metadataJSON  string
		embeddingJSON string
	)

	if err := rows.Scan(
		&candidate.ID,
		&candidate.ElementType,
		&candidate.TableName,
		&columnName,
		&candidate.Description,
		&metadataJSON,
		&embeddingJSON,
	); err != nil {
		return Candidate{}, nil, apperrors.Wrap(err, apperrors.ErrTypeVectorStore, "failed to scan row")
	}

	candidate.ColumnName = columnName.String

	if err := json.Unmarshal([]byte(metadataJSON), &candidate.Metadata); err != nil {
		return Candidate{}, nil, apperrors.Wrapf(
			err,
			apperrors.ErrTypeVectorStore,
			"corrupt metadata for %s",
			candidate.ID,
		)
	}

	var vector []float32
	if err := json.Unmarshal([]byte(embeddingJSON), &vector); err != nil {
		return Candidate{}, nil, apperrors.Wrapf(
			err,
			apperrors.ErrTypeVectorStore,
			"corrupt embedding for %s",
			candidate.ID,
		)
	}

	return candidate, vector, nil
}

// DeleteByTable removes every record belonging to the given table, including
// its column elements.
func (s *Store) DeleteByTable(ctx context.Context, tableName string) error {
	if !s.initialized {
		return ErrNotInitialized
	}

	deleteSQL := fmt.Sprintf("DELETE FROM %s WHERE table_name = ?", s.collection)

	result, err := s.db.ExecContext(ctx, deleteSQL, tableName)
	if err != nil {
		return apperrors.Wrapf(err, apperrors.ErrTypeVectorStore, "failed to delete records for table %s", tableName)
	}

	if affected, err := result.RowsAffected(); err == nil {
		logging.Debugf("deleted %d records for table %s", affected, tableName)
	}

	return nil
}

// ListTableNames returns the distinct table names indexed in the store.
func (s *Store) ListTableNames(ctx context.Context) ([]string, error) {
	if !s.initialized {
		return nil, ErrNotInitialized
	}

	querySQL := fmt.Sprintf(
		"SELECT DISTINCT table_name FROM %s WHERE element_type = ? ORDER BY table_name",
		s.collection,
	)

	rows, err := s.db.QueryContext(ctx, querySQL, embedding.ElementTypeTable)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrTypeVectorStore, "failed to list tables")
	}
	defer func() { _ = rows.Close() }()

	var names []string

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrTypeVectorStore, "failed to scan table name")
		}

		names = append(names, name)
	}

	return names, rows.Err()
}

// Stats reports how many elements the store holds by type.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	if !s.initialized {
		return Stats{}, ErrNotInitialized
	}

	querySQL := fmt.Sprintf(
		"SELECT element_type, COUNT(*) FROM %s GROUP BY element_type",
		s.collection,
	)

	rows, err := s.db.QueryContext(ctx, querySQL)
	if err != nil {
		return Stats{}, apperrors.Wrap(err, apperrors.ErrTypeVectorStore, "failed to collect stats")
	}
	defer func() { _ = rows.Close() }()

	var stats Stats

	for rows.Next() {
		var (
			elementType string
			count       int
		)

		if err := rows.Scan(&elementType, &count); err != nil {
			return Stats{}, apperrors.Wrap(err, apperrors.ErrTypeVectorStore, "failed to scan stats row")
		}

		switch elementType {
		case embedding.ElementTypeTable:
			stats.Tables = count
		case embedding.ElementTypeColumn:
			stats.Columns = count
		}

		stats.Total += count
	}

	return stats, rows.Err()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
