// Package mapping holds the pure core of the ingestion pipeline: the
// column-spec model for candidate mappings, the value extractor, and the
// coverage auditor. Nothing here touches the database or the network.
package mapping

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtrasTable is the reserved pseudo-table under which the mapping
// producer files source headers it considers schema-irrelevant.
const ExtrasTable = "extras"

type specKind int

const (
	kindAbsent specKind = iota
	kindSingle
	kindConcat
)

// ColumnSpec describes how one target column is fed from the source file:
// a single source header, an ordered list of headers whose values are
// concatenated, or nothing at all. The zero value is the absent spec.
type ColumnSpec struct {
	kind  specKind
	name  string
	names []string
}

// Single returns a spec reading one source header.
func Single(name string) ColumnSpec {
	if name == "" {
		return ColumnSpec{}
	}
	return ColumnSpec{kind: kindSingle, name: name}
}

// Concat returns a spec joining several source headers with a space.
func Concat(names ...string) ColumnSpec {
	if len(names) == 0 {
		return ColumnSpec{}
	}
	return ColumnSpec{kind: kindConcat, names: names}
}

// IsEmpty reports whether the spec references no source column at all.
// An empty string or empty list from the producer counts as empty.
func (s ColumnSpec) IsEmpty() bool {
	switch s.kind {
	case kindSingle:
		return s.name == ""
	case kindConcat:
		return len(s.names) == 0
	default:
		return true
	}
}

// Sources returns the source headers the spec references, skipping blanks.
func (s ColumnSpec) Sources() []string {
	switch s.kind {
	case kindSingle:
		if s.name == "" {
			return nil
		}
		return []string{s.name}
	case kindConcat:
		out := make([]string, 0, len(s.names))
		for _, n := range s.names {
			if n != "" {
				out = append(out, n)
			}
		}
		return out
	default:
		return nil
	}
}

// UnmarshalJSON accepts the producer's loose shapes: a bare string, a
// list of strings, or null.
func (s *ColumnSpec) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*s = ColumnSpec{}
		return nil
	}

	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*s = Single(single)
		return nil
	}

	var many []string
	if err := json.Unmarshal(data, &many); err == nil {
		*s = Concat(many...)
		return nil
	}

	return fmt.Errorf("column spec must be a string or a list of strings, got %s", trimmed)
}

// MarshalJSON emits the same shape the spec was built from.
func (s ColumnSpec) MarshalJSON() ([]byte, error) {
	switch s.kind {
	case kindSingle:
		return json.Marshal(s.name)
	case kindConcat:
		return json.Marshal(s.names)
	default:
		return []byte("null"), nil
	}
}

// TableColumns maps target column names to their source specs.
type TableColumns map[string]ColumnSpec

// Mapping is a candidate or final mapping: target table name to its
// column specs. It is untrusted input until audited against the schema.
type Mapping map[string]TableColumns

// Row is one source record, header name to raw cell value.
type Row map[string]string

// Tables returns the mapped table names, excluding the extras
// pseudo-table, without regard to whether their specs are empty.
func (m Mapping) Tables() []string {
	out := make([]string, 0, len(m))
	for table := range m {
		if table != ExtrasTable {
			out = append(out, table)
		}
	}
	return out
}
