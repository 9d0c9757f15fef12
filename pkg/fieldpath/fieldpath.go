// Package fieldpath edits nested map records addressed by dot-delimited
// paths, e.g. "premium.ownDamage.basicOD". Writes never mutate the input
// map; callers always get a fresh copy so stale references stay valid.
package fieldpath

import "strings"

// Clone returns a deep copy of m. Nested maps and slices are copied;
// scalar leaves are shared (they are immutable values).
func Clone(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return Clone(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}

// Set returns a deep copy of m with the value written at path.
// Intermediate maps are created on demand; an intermediate segment that
// holds a non-map value is replaced by a fresh map. A nil input is
// treated as an empty record.
func Set(m map[string]any, path string, value any) map[string]any {
	out := Clone(m)
	if out == nil {
		out = make(map[string]any)
	}

	segments := strings.Split(path, ".")
	current := out
	for _, seg := range segments[:len(segments)-1] {
		next, ok := current[seg].(map[string]any)
		if !ok {
			next = make(map[string]any)
			current[seg] = next
		}
		current = next
	}
	current[segments[len(segments)-1]] = value

	return out
}

// Get reads the value at path. The second return reports whether the full
// path existed.
func Get(m map[string]any, path string) (any, bool) {
	segments := strings.Split(path, ".")
	current := any(m)
	for _, seg := range segments {
		node, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = node[seg]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// Clean strips nil and empty-string leaves from m recursively and drops
// containers that end up empty. Zero numbers and false booleans survive:
// an extracted zero must stay distinguishable from an absent field.
// Returns nil when nothing survives.
func Clean(m map[string]any) map[string]any {
	cleaned, ok := cleanValue(m).(map[string]any)
	if !ok {
		return nil
	}
	return cleaned
}

func cleanValue(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		if val == "" {
			return nil
		}
		return val
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			if cleaned := cleanValue(item); cleaned != nil {
				out[k] = cleaned
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	case []any:
		out := make([]any, 0, len(val))
		for _, item := range val {
			if cleaned := cleanValue(item); cleaned != nil {
				out = append(out, cleaned)
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	default:
		return v
	}
}
