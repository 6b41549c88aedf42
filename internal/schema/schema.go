// Package schema loads M-Schema JSON documents and derives the text
// representations used for embedding tables and columns.
package schema

import (
	"encoding/json"
	"fmt"
	"os"

	apperrors "github.com/schemalink/schemalink/internal/errors"
)

// Column describes a single column of a table in an M-Schema document.
type Column struct {
	Type          string `json:"type"`
	Description   string `json:"column_description"`
	PrimaryKey    bool   `json:"primary_key,omitempty"`
	Nullable      bool   `json:"nullable,omitempty"`
	Default       any    `json:"default,omitempty"`
	AutoIncrement bool   `json:"autoincrement,omitempty"`
	Examples      []any  `json:"examples,omitempty"`
}

// Table describes a table and its columns.
type Table struct {
	Description string            `json:"table_description"`
	Fields      map[string]Column `json:"fields"`
	Examples    []any             `json:"examples,omitempty"`
}

// ForeignKey is the canonical form of an M-Schema foreign key entry.
// On the wire it is a five element array:
// [source_table, source_column, ref_schema, ref_table, ref_column].
type ForeignKey struct {
	SourceTable  string
	SourceColumn string
	RefSchema    string
	RefTable     string
	RefColumn    string
}

// UnmarshalJSON converts the five element array form into the struct form.
func (fk *ForeignKey) UnmarshalJSON(data []byte) error {
	var parts []string
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("foreign key entry is not an array of strings: %w", err)
	}

	if len(parts) < 5 {
		return fmt.Errorf("foreign key entry has %d elements, want 5", len(parts))
	}

	fk.SourceTable = parts[0]
	fk.SourceColumn = parts[1]
	fk.RefSchema = parts[2]
	fk.RefTable = parts[3]
	fk.RefColumn = parts[4]

	return nil
}

// MarshalJSON writes the foreign key back in its array form.
func (fk ForeignKey) MarshalJSON() ([]byte, error) {
	return json.Marshal([]string{
		fk.SourceTable,
		fk.SourceColumn,
		fk.RefSchema,
		fk.RefTable,
		fk.RefColumn,
	})
}

// Schema is a parsed M-Schema document.
type Schema struct {
	DBID        string           `json:"db_id"`
	SchemaName  string           `json:"schema"`
	Tables      map[string]Table `json:"tables"`
	ForeignKeys []ForeignKey     `json:"foreign_keys"`
}

// Load reads and parses an M-Schema JSON file.
func Load(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.ErrTypeSchema, "failed to read schema file %s", path)
	}

	return Parse(data, path)
}

// Parse parses M-Schema JSON bytes. The path is used for error context only.
func Parse(data []byte, path string) (*Schema, error) {
	var s Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrTypeSchema, "failed to parse schema JSON").
			WithSuggestion("Verify the file contains a valid M-Schema document")
	}

	if s.Tables == nil {
		return nil, apperrors.NewSchemaError("missing tables key", path)
	}

	return &s, nil
}

// TableCount returns the number of tables in the schema.
func (s *Schema) TableCount() int {
	return len(s.Tables)
}

// ColumnCount returns the total number of columns across all tables.
func (s *Schema) ColumnCount() int {
	count := 0
	for _, table := range s.Tables {
		count += len(table.Fields)
	}

	return count
}

// ElementCount returns the number of embeddable elements: one per table
// plus one per column.
func (s *Schema) ElementCount() int {
	return s.TableCount() + s.ColumnCount()
}
