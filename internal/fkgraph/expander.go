// Package fkgraph expands a set of tables along foreign key relationships so
// join paths survive query-based filtering.
package fkgraph

import (
	"github.com/schemalink/schemalink/internal/logging"
	"github.com/schemalink/schemalink/internal/schema"
)

// Expander walks the undirected foreign key graph of a schema.
type Expander struct {
	adjacency map[string][]string
}

// NewExpander builds the adjacency structure from the schema's foreign keys.
// Edges are undirected: a referencing table and its referenced table are
// neighbors of each other. Edges naming a table the schema does not define
// are dropped, so phantom names never enter the graph.
func NewExpander(s *schema.Schema) *Expander {
	adjacency := make(map[string][]string)
	seen := make(map[[2]string]bool)

	addEdge := func(from, to string) {
		key := [2]string{from, to}
		if seen[key] {
			return
		}

		if _, ok := s.Tables[from]; !ok {
			return
		}

		if _, ok := s.Tables[to]; !ok {
			return
		}

		seen[key] = true
		adjacency[from] = append(adjacency[from], to)
	}

	for _, fk := range s.ForeignKeys {
		addEdge(fk.SourceTable, fk.RefTable)
		addEdge(fk.RefTable, fk.SourceTable)
	}

	return &Expander{adjacency: adjacency}
}

// Expand returns the input tables plus every table reachable within maxHops
// foreign key steps. Input order is preserved and discovered tables follow in
// breadth-first order. With maxHops <= 0 the input is returned unchanged.
func (e *Expander) Expand(tables []string, maxHops int) []string {
	if maxHops <= 0 || len(tables) == 0 {
		return tables
	}

	visited := make(map[string]bool, len(tables))
	result := make([]string, 0, len(tables))

	for _, table := range tables {
		if visited[table] {
			continue
		}

		visited[table] = true
		result = append(result, table)
	}

	// Simultaneous BFS from every input table.
	frontier := append([]string(nil), result...)

	for hop := 0; hop < maxHops && len(frontier) > 0; hop++ {
		var next []string

		for _, table := range frontier {
			for _, neighbor := range e.adjacency[table] {
				if visited[neighbor] {
					continue
				}

				visited[neighbor] = true
				result = append(result, neighbor)
				next = append(next, neighbor)
			}
		}

		frontier = next
	}

	if added := len(result) - len(tables); added > 0 {
		logging.Debugf("foreign key expansion added %d tables within %d hops", added, maxHops)
	}

	return result
}

// Neighbors returns the tables directly connected to the given table.
func (e *Expander) Neighbors(table string) []string {
	return e.adjacency[table]
}
