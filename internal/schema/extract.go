package schema

import (
	"fmt"
	"sort"
	"strings"
)

// RelatedTables returns the sorted set of table names connected to the given
// table by a foreign key, in either direction.
func RelatedTables(tableName string, foreignKeys []ForeignKey) []string {
	seen := make(map[string]bool)

	for _, fk := range foreignKeys {
		if fk.SourceTable == tableName && fk.RefTable != "" {
			seen[fk.RefTable] = true
		} else if fk.RefTable == tableName && fk.SourceTable != "" {
			seen[fk.SourceTable] = true
		}
	}

	related := make([]string, 0, len(seen))
	for name := range seen {
		related = append(related, name)
	}

	sort.Strings(related)

	return related
}

// TableText builds the embeddable text for a table. Foreign key neighbors are
// appended in sorted order so the text is deterministic for a given schema.
func TableText(tableName string, table Table, foreignKeys []ForeignKey) string {
	base := fmt.Sprintf("%s: %s", tableName, table.Description)

	related := RelatedTables(tableName, foreignKeys)
	if len(related) > 0 {
		return fmt.Sprintf("%s. Related to: %s via foreign keys", base, strings.Join(related, ", "))
	}

	return base
}

// ColumnText builds the embeddable text for a column. All example values are
// included without truncation.
func ColumnText(tableName, columnName string, column Column) string {
	base := fmt.Sprintf("%s.%s (%s): %s", tableName, columnName, column.Type, column.Description)

	if len(column.Examples) > 0 {
		return fmt.Sprintf("%s. Examples: [%s]", base, formatExamples(column.Examples))
	}

	return base
}

// formatExamples renders example values the way they appear in the source
// document, comma separated.
func formatExamples(examples []any) string {
	parts := make([]string, len(examples))
	for i, ex := range examples {
		parts[i] = fmt.Sprintf("%v", ex)
	}

	return strings.Join(parts, ", ")
}

// SortedTableNames returns the schema's table names in lexicographic order.
// Iteration over the Tables map is not deterministic, so callers that need a
// stable processing order go through this.
func (s *Schema) SortedTableNames() []string {
	names := make([]string, 0, len(s.Tables))
	for name := range s.Tables {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// SortedColumnNames returns a table's column names in lexicographic order.
func (t Table) SortedColumnNames() []string {
	names := make([]string, 0, len(t.Fields))
	for name := range t.Fields {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
