// Package schema declares the normalized target schema the mapping
// pipeline loads into. The declaration is static configuration, embedded
// at build time and read-only for the lifetime of the process.
package schema

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/hri/hri/internal/domain/mapping"
)

//go:embed schema.json
var schemaJSON []byte

// Registry exposes the target schema: table names and their expected
// column vocabularies.
type Registry struct {
	tables mapping.Schema
}

// Load parses the embedded schema declaration. It is called once at
// startup; a malformed declaration is a build defect, not a runtime
// condition.
func Load() (*Registry, error) {
	var tables mapping.Schema
	if err := json.Unmarshal(schemaJSON, &tables); err != nil {
		return nil, fmt.Errorf("parse embedded schema: %w", err)
	}
	if len(tables) == 0 {
		return nil, fmt.Errorf("embedded schema declares no tables")
	}
	return &Registry{tables: tables}, nil
}

// Tables returns the full schema declaration.
func (r *Registry) Tables() mapping.Schema {
	return r.tables
}

// Columns returns the expected columns of one table, or nil when the
// table is not part of the schema.
func (r *Registry) Columns(table string) []string {
	return r.tables[table]
}

// ExpectedColumns returns the sorted, deduplicated union of all column
// names across all tables.
func (r *Registry) ExpectedColumns() []string {
	set := r.tables.ExpectedColumns()
	cols := make([]string, 0, len(set))
	for c := range set {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}
