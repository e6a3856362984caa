package mapping

import "strings"

// Extract resolves one cell value from a source row according to spec.
// The second return is false when the spec yields nothing: an absent
// spec, a missing header, or a value that is empty after handling.
//
// Concat specs trim each referenced value, drop the empties and join the
// survivors with a single space. Single specs pass the raw value through
// untouched so callers own any type coercion (date parsing in
// particular); only the empty string is normalized away. Extract never
// fails: malformed rows degrade to absent values.
func Extract(row Row, spec ColumnSpec) (string, bool) {
	switch spec.kind {
	case kindConcat:
		parts := make([]string, 0, len(spec.names))
		for _, col := range spec.names {
			v := strings.TrimSpace(row[col])
			if v != "" {
				parts = append(parts, v)
			}
		}
		if len(parts) == 0 {
			return "", false
		}
		return strings.Join(parts, " "), true

	case kindSingle:
		if spec.name == "" {
			return "", false
		}
		v, ok := row[spec.name]
		if !ok || v == "" {
			return "", false
		}
		return v, true

	default:
		return "", false
	}
}
