package embedding

import (
	"context"
	"fmt"

	apperrors "github.com/schemalink/schemalink/internal/errors"
	"github.com/schemalink/schemalink/internal/logging"
	"github.com/schemalink/schemalink/internal/schema"
)

// Element types stored alongside each record.
const (
	ElementTypeTable  = "table"
	ElementTypeColumn = "column"
)

// Record is one embedded schema element ready for storage.
type Record struct {
	ID          string         `json:"id"`
	ElementType string         `json:"element_type"`
	TableName   string         `json:"table_name"`
	ColumnName  string         `json:"column_name,omitempty"`
	Description string         `json:"description"`
	Metadata    map[string]any `json:"metadata"`
	Embedding   []float32      `json:"embedding"`
}

// TableID returns the storage identifier for a table element.
func TableID(tableName string) string {
	return "table_" + tableName
}

// ColumnID returns the storage identifier for a column element.
func ColumnID(tableName, columnName string) string {
	return fmt.Sprintf("column_%s_%s", tableName, columnName)
}

// SchemaEmbedder turns a parsed schema into embedding records.
type SchemaEmbedder struct {
	provider Provider
}

// NewSchemaEmbedder creates an embedder backed by the given provider.
func NewSchemaEmbedder(provider Provider) *SchemaEmbedder {
	return &SchemaEmbedder{provider: provider}
}

// EmbedSchema generates records for every table and column in the schema.
// Tables are processed in sorted order so record order is deterministic.
func (e *SchemaEmbedder) EmbedSchema(ctx context.Context, s *schema.Schema) ([]Record, error) {
	records := make([]Record, 0, s.ElementCount())
	texts := make([]string, 0, s.ElementCount())

	for _, tableName := range s.SortedTableNames() {
		table := s.Tables[tableName]

		tableRecords, tableTexts := buildTableRecords(tableName, table, s.ForeignKeys)
		records = append(records, tableRecords...)
		texts = append(texts, tableTexts...)
	}

	if err := e.fillEmbeddings(ctx, records, texts); err != nil {
		return nil, err
	}

	logging.Infof(
		"embedded schema: %d tables, %d columns",
		s.TableCount(),
		s.ColumnCount(),
	)

	return records, nil
}

// TableRecords generates records for a single table and its columns. Used by
// incremental updates after a table definition changes.
func (e *SchemaEmbedder) TableRecords(
	ctx context.Context,
	s *schema.Schema,
	tableName string,
) ([]Record, error) {
	table, ok := s.Tables[tableName]
	if !ok {
		return nil, apperrors.Newf(apperrors.ErrTypeNotFound, "table %s not found in schema", tableName)
	}

	records, texts := buildTableRecords(tableName, table, s.ForeignKeys)

	if err := e.fillEmbeddings(ctx, records, texts); err != nil {
		return nil, err
	}

	return records, nil
}

// buildTableRecords assembles the unfilled records and embeddable texts for a
// table element followed by its column elements in sorted order.
func buildTableRecords(
	tableName string,
	table schema.Table,
	foreignKeys []schema.ForeignKey,
) ([]Record, []string) {
	records := make([]Record, 0, len(table.Fields)+1)
	texts := make([]string, 0, len(table.Fields)+1)

	records = append(records, Record{
		ID:          TableID(tableName),
		ElementType: ElementTypeTable,
		TableName:   tableName,
		Description: table.Description,
		Metadata: map[string]any{
			"table_name":        tableName,
			"table_description": table.Description,
		},
	})
	texts = append(texts, schema.TableText(tableName, table, foreignKeys))

	for _, columnName := range table.SortedColumnNames() {
		column := table.Fields[columnName]

		records = append(records, Record{
			ID:          ColumnID(tableName, columnName),
			ElementType: ElementTypeColumn,
			TableName:   tableName,
			ColumnName:  columnName,
			Description: column.Description,
			Metadata: map[string]any{
				"table_name":         tableName,
				"column_name":        columnName,
				"type":               column.Type,
				"column_description": column.Description,
				"primary_key":        column.PrimaryKey,
			},
		})
		texts = append(texts, schema.ColumnText(tableName, columnName, column))
	}

	return records, texts
}

// fillEmbeddings embeds the texts and writes the vectors into the records.
func (e *SchemaEmbedder) fillEmbeddings(ctx context.Context, records []Record, texts []string) error {
	vectors, err := e.provider.EmbedBatch(ctx, texts)
	if err != nil {
		return err
	}

	if len(vectors) != len(records) {
		return apperrors.Newf(
			apperrors.ErrTypeEmbedding,
			"embedding count mismatch: %d vectors for %d records",
			len(vectors),
			len(records),
		)
	}

	zeroCount := 0

	for i := range records {
		records[i].Embedding = vectors[i]
		if IsZeroVector(vectors[i]) {
			zeroCount++
		}
	}

	if zeroCount > 0 {
		logging.Warnf("%d of %d schema elements received zero-vector placeholders", zeroCount, len(records))
	}

	return nil
}
