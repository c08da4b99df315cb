package domain

import "strings"

// CumulativeContext is the growing map of merged step outputs threaded
// through a pipeline run. It wraps a plain map with typed accessors instead
// of exposing a raw map everywhere, per the Open Question resolution in
// SPEC_FULL.md §9: the source's dynamically-typed dictionaries are where
// silent key drift and nil propagation bugs live, and a typed wrapper is
// where Go avoids repeating them.
type CumulativeContext struct {
	values map[string]any
}

// NewCumulativeContext returns an empty context.
func NewCumulativeContext() CumulativeContext {
	return CumulativeContext{values: make(map[string]any)}
}

// CumulativeContextFrom wraps an existing map without copying it.
func CumulativeContextFrom(m map[string]any) CumulativeContext {
	if m == nil {
		m = make(map[string]any)
	}
	return CumulativeContext{values: m}
}

// Raw returns the underlying map, for JSON marshaling and persistence.
func (c CumulativeContext) Raw() map[string]any {
	return c.values
}

// Clone returns a deep-enough copy: top-level keys are copied, nested maps
// and slices are shared (they are never mutated in place by Merge).
func (c CumulativeContext) Clone() CumulativeContext {
	out := make(map[string]any, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return CumulativeContext{values: out}
}

// Merge deep-merges incoming into c with last-writer-wins on duplicate keys,
// per spec.md §4.6 step 8. Nested maps are merged recursively; any other
// type (including slices) is overwritten wholesale.
func (c CumulativeContext) Merge(incoming map[string]any) {
	mergeInto(c.values, incoming)
}

func mergeInto(dst, src map[string]any) {
	for k, v := range src {
		if v == nil {
			continue
		}
		if incomingMap, ok := v.(map[string]any); ok {
			if existing, ok := dst[k].(map[string]any); ok {
				merged := make(map[string]any, len(existing)+len(incomingMap))
				for ek, ev := range existing {
					merged[ek] = ev
				}
				mergeInto(merged, incomingMap)
				dst[k] = merged
				continue
			}
		}
		dst[k] = v
	}
}

// GetString returns the string value at key, trimmed, or ("", false) if
// absent, non-string, or empty after trimming.
func (c CumulativeContext) GetString(key string) (string, bool) {
	v, ok := c.values[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	return s, true
}

// GetInt returns the int value at key. Accepts int, int64, and float64 (the
// typical shape after JSON round-tripping).
func (c CumulativeContext) GetInt(key string) (int, bool) {
	v, ok := c.values[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

// GetFloat returns the float64 value at key. Accepts int and float64.
func (c CumulativeContext) GetFloat(key string) (float64, bool) {
	v, ok := c.values[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// GetBool returns the bool value at key.
func (c CumulativeContext) GetBool(key string) (bool, bool) {
	v, ok := c.values[key]
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// GetStringList returns a []string at key, preserving empty-vs-absent: an
// empty slice present in the map returns ([], true); an absent key returns
// (nil, false).
func (c CumulativeContext) GetStringList(key string) ([]string, bool) {
	v, ok := c.values[key]
	if !ok {
		return nil, false
	}
	switch list := v.(type) {
	case []string:
		return list, true
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out, true
	default:
		return nil, false
	}
}

// GetMap returns a nested map[string]any at key.
func (c CumulativeContext) GetMap(key string) (map[string]any, bool) {
	v, ok := c.values[key]
	if !ok {
		return nil, false
	}
	m, ok := v.(map[string]any)
	return m, ok
}

// Set assigns a value at key directly, used when materializing entity
// fields or fan-out child context.
func (c CumulativeContext) Set(key string, value any) {
	c.values[key] = value
}
