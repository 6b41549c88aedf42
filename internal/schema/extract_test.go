package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testForeignKeys() []ForeignKey {
	return []ForeignKey{
		{SourceTable: "orders", SourceColumn: "customer_id", RefSchema: "public", RefTable: "customers", RefColumn: "id"},
		{SourceTable: "order_items", SourceColumn: "order_id", RefSchema: "public", RefTable: "orders", RefColumn: "id"},
	}
}

func TestRelatedTables(t *testing.T) {
	related := RelatedTables("orders", testForeignKeys())
	assert.Equal(t, []string{"customers", "order_items"}, related)

	assert.Empty(t, RelatedTables("unknown", testForeignKeys()))
}

func TestRelatedTablesDeduplicates(t *testing.T) {
	fks := []ForeignKey{
		{SourceTable: "orders", SourceColumn: "customer_id", RefTable: "customers", RefColumn: "id"},
		{SourceTable: "orders", SourceColumn: "billing_customer_id", RefTable: "customers", RefColumn: "id"},
	}

	assert.Equal(t, []string{"customers"}, RelatedTables("orders", fks))
}

func TestTableText(t *testing.T) {
	table := Table{Description: "Customer orders"}

	text := TableText("orders", table, testForeignKeys())
	assert.Equal(t, "orders: Customer orders. Related to: customers, order_items via foreign keys", text)
}

func TestTableTextNoForeignKeys(t *testing.T) {
	table := Table{Description: "Reference data"}

	assert.Equal(t, "lookup: Reference data", TableText("lookup", table, nil))
}

func TestColumnText(t *testing.T) {
	col := Column{
		Type:        "DECIMAL",
		Description: "Order total",
		Examples:    []any{19.99, "42", 100},
	}

	text := ColumnText("orders", "total", col)
	assert.Equal(t, "orders.total (DECIMAL): Order total. Examples: [19.99, 42, 100]", text)
}

func TestColumnTextNoExamples(t *testing.T) {
	col := Column{Type: "VARCHAR", Description: "Full name"}

	assert.Equal(t, "customers.name (VARCHAR): Full name", ColumnText("customers", "name", col))
}

func TestTableTextDeterministicUnderKeyOrder(t *testing.T) {
	// The neighbor list comes from a map, so run repeatedly to catch
	// ordering regressions.
	table := Table{Description: "Customer orders"}
	fks := []ForeignKey{
		{SourceTable: "orders", RefTable: "zones"},
		{SourceTable: "orders", RefTable: "customers"},
		{SourceTable: "addresses", RefTable: "orders"},
	}

	want := TableText("orders", table, fks)
	for range 20 {
		require.Equal(t, want, TableText("orders", table, fks))
	}
}

func TestSortedNames(t *testing.T) {
	s := Schema{
		Tables: map[string]Table{
			"zebra": {},
			"alpha": {Fields: map[string]Column{"z": {}, "a": {}, "m": {}}},
		},
	}

	assert.Equal(t, []string{"alpha", "zebra"}, s.SortedTableNames())
	assert.Equal(t, []string{"a", "m", "z"}, s.Tables["alpha"].SortedColumnNames())
}
