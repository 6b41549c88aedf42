package schema

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/schemalink/schemalink/internal/errors"
)

const sampleSchema = `{
  "db_id": "sales",
  "schema": "public",
  "tables": {
    "orders": {
      "table_description": "Customer orders",
      "fields": {
        "id": {"type": "INTEGER", "column_description": "Order identifier", "primary_key": true},
        "customer_id": {"type": "INTEGER", "column_description": "Owning customer"},
        "total": {"type": "DECIMAL", "column_description": "Order total", "examples": [19.99, 42, "100.50"]}
      }
    },
    "customers": {
      "table_description": "Registered customers",
      "fields": {
        "id": {"type": "INTEGER", "column_description": "Customer identifier", "primary_key": true},
        "name": {"type": "VARCHAR", "column_description": "Full name"}
      }
    }
  },
  "foreign_keys": [
    ["orders", "customer_id", "public", "customers", "id"]
  ]
}`

func writeSchemaFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "schema.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	return path
}

func TestLoad(t *testing.T) {
	s, err := Load(writeSchemaFile(t, sampleSchema))
	require.NoError(t, err)

	assert.Equal(t, "sales", s.DBID)
	assert.Equal(t, "public", s.SchemaName)
	assert.Len(t, s.Tables, 2)
	assert.True(t, s.Tables["orders"].Fields["id"].PrimaryKey)

	require.Len(t, s.ForeignKeys, 1)
	fk := s.ForeignKeys[0]
	assert.Equal(t, "orders", fk.SourceTable)
	assert.Equal(t, "customer_id", fk.SourceColumn)
	assert.Equal(t, "public", fk.RefSchema)
	assert.Equal(t, "customers", fk.RefTable)
	assert.Equal(t, "id", fk.RefColumn)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeSchema))
}

func TestParseInvalidJSON(t *testing.T) {
	_, err := Parse([]byte("not json"), "schema.json")
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeSchema))
}

func TestParseMissingTables(t *testing.T) {
	_, err := Parse([]byte(`{"db_id": "sales"}`), "schema.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing tables key")
	assert.Contains(t, err.Error(), "schema.json")
}

func TestParseShortForeignKey(t *testing.T) {
	doc := `{"tables": {}, "foreign_keys": [["orders", "customer_id"]]}`

	_, err := Parse([]byte(doc), "schema.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "5")
}

func TestForeignKeyRoundTrip(t *testing.T) {
	s, err := Parse([]byte(sampleSchema), "schema.json")
	require.NoError(t, err)

	data, err := s.ForeignKeys[0].MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `["orders", "customer_id", "public", "customers", "id"]`, string(data))
}

func TestCounts(t *testing.T) {
	s, err := Parse([]byte(sampleSchema), "schema.json")
	require.NoError(t, err)

	assert.Equal(t, 2, s.TableCount())
	assert.Equal(t, 5, s.ColumnCount())
	assert.Equal(t, 7, s.ElementCount())
}
