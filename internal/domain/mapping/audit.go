package mapping

import (
	"sort"
	"strings"
)

// Schema is the normalized target vocabulary: table name to its ordered
// expected column names.
type Schema map[string][]string

// ExpectedColumns returns the deduplicated union of column names across
// all tables. Two tables declaring the same column name collapse into
// one entry; coverage is tracked per bare column name.
func (s Schema) ExpectedColumns() map[string]bool {
	expected := make(map[string]bool)
	for _, cols := range s {
		for _, c := range cols {
			expected[c] = true
		}
	}
	return expected
}

// Report is the coverage snapshot produced by Audit. Field names are
// stable: they are persisted on the file upload log and exposed to
// callers verbatim.
type Report struct {
	MappedTables      []string `json:"mapped_tables"`
	MappedColumns     []string `json:"mapped_columns"`
	MissingColumns    []string `json:"missing_columns"`
	ExtraColumns      []string `json:"extra_columns"`
	EmptyCells        int      `json:"empty_cells"`
	TotalColumns      []string `json:"total_columns"`
	MappedColumnCount int      `json:"mapped_column_count"`
	TotalColumnCount  int      `json:"total_column_count"`
}

// Audit reconciles a candidate mapping against the target schema and the
// source file it claims to describe. It is pure and deterministic: same
// inputs, same report, no side effects.
func Audit(schema Schema, headers []string, m Mapping, rows []Row) Report {
	expected := schema.ExpectedColumns()

	// Tables with at least one non-empty spec, extras excluded.
	var mappedTables []string
	for table, cols := range m {
		if table == ExtrasTable {
			continue
		}
		for _, spec := range cols {
			if !spec.IsEmpty() {
				mappedTables = append(mappedTables, table)
				break
			}
		}
	}

	// Target columns recognized by the schema, with their source specs.
	// Specs from every table participate, mirroring the producer's flat
	// column vocabulary.
	mappedColumns := make(map[string][]string)
	for _, cols := range m {
		for target, spec := range cols {
			if expected[target] {
				mappedColumns[target] = spec.Sources()
			}
		}
	}

	// Target columns actually fed by a non-empty spec outside extras.
	fed := make(map[string]bool)
	for table, cols := range m {
		if table == ExtrasTable {
			continue
		}
		for target, spec := range cols {
			if !spec.IsEmpty() {
				fed[target] = true
			}
		}
	}

	var missing []string
	for col := range expected {
		if !fed[col] {
			missing = append(missing, col)
		}
	}

	// Source headers consumed by recognized target columns.
	used := make(map[string]bool)
	for _, sources := range mappedColumns {
		for _, src := range sources {
			used[src] = true
		}
	}

	extra := make(map[string]bool)
	for _, h := range headers {
		if !expected[h] && !used[h] {
			extra[h] = true
		}
	}
	for header := range m[ExtrasTable] {
		if !expected[header] {
			extra[header] = true
		}
	}

	emptyCells := 0
	for _, row := range rows {
		for _, val := range row {
			if strings.TrimSpace(val) == "" {
				emptyCells++
			}
		}
	}

	// Every source column referenced anywhere in the mapping, extras
	// included, flattened from list specs.
	total := make(map[string]bool)
	for _, cols := range m {
		for _, spec := range cols {
			for _, src := range spec.Sources() {
				total[src] = true
			}
		}
	}

	return Report{
		MappedTables:      sorted(mappedTables),
		MappedColumns:     sortedKeys(mappedColumns),
		MissingColumns:    sorted(missing),
		ExtraColumns:      sortedKeys(extra),
		EmptyCells:        emptyCells,
		TotalColumns:      sortedKeys(total),
		MappedColumnCount: len(mappedColumns),
		TotalColumnCount:  len(total),
	}
}

func sorted(s []string) []string {
	if s == nil {
		s = []string{}
	}
	sort.Strings(s)
	return s
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
