package index

import "github.com/poiesic/vectorium/core"

// Filter is a Mongo-style metadata filter. Keys are metadata fields mapping
// to either a literal value (equality) or an operator document such as
// {"$in": [...]}. The same shape is sent to Pinecone verbatim and evaluated
// in-process by the local provider.
type Filter map[string]any

// Eq matches records whose field equals value.
func Eq(field string, value any) Filter {
	return Filter{field: value}
}

// In matches records whose field equals any of the given values.
func In(field string, values ...any) Filter {
	return Filter{field: map[string]any{"$in": values}}
}

// Or matches records satisfying at least one of the given filters.
func Or(filters ...Filter) Filter {
	clauses := make([]any, len(filters))
	for i, f := range filters {
		clauses[i] = map[string]any(f)
	}
	return Filter{"$or": clauses}
}

// Matches evaluates the filter against a metadata map. A nil or empty
// filter matches everything.
func (f Filter) Matches(metadata map[string]any) bool {
	for field, condition := range f {
		if field == "$or" {
			if !matchesOr(condition, metadata) {
				return false
			}
			continue
		}
		if !matchesField(metadata[field], condition) {
			return false
		}
	}
	return true
}

func matchesOr(condition any, metadata map[string]any) bool {
	clauses, ok := condition.([]any)
	if !ok {
		return false
	}
	for _, clause := range clauses {
		doc, ok := clause.(map[string]any)
		if !ok {
			continue
		}
		if Filter(doc).Matches(metadata) {
			return true
		}
	}
	return false
}

func matchesField(value, condition any) bool {
	doc, ok := condition.(map[string]any)
	if !ok {
		return looseEqual(value, condition)
	}

	for op, operand := range doc {
		switch op {
		case "$eq":
			if !looseEqual(value, operand) {
				return false
			}
		case "$ne":
			if looseEqual(value, operand) {
				return false
			}
		case "$in":
			values, ok := operand.([]any)
			if !ok {
				return false
			}
			found := false
			for _, v := range values {
				if looseEqual(value, v) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// looseEqual compares metadata values tolerating the numeric widening that
// JSON round-trips introduce.
func looseEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a == b {
		return true
	}

	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if aok && bok {
		return af == bf
	}
	return false
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// OwnershipFilter selects every chunk derived from the given source ids:
// chunks split from the records themselves plus chunks of file content the
// records linked.
func OwnershipFilter(originalIDs []string) Filter {
	ids := make([]any, len(originalIDs))
	for i, id := range originalIDs {
		ids[i] = id
	}
	return Or(
		In(core.MetaOriginalID, ids...),
		In(core.MetaOriginalRecordID, ids...),
	)
}
