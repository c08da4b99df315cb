package adapter

import "strings"

// Input is the composed payload an executor receives: the step's own
// step_config merged with cumulative_context, per spec.md §4.6 step 2
// (`input_payload = {...step.step_config, cumulative_context: C}`).
type Input struct {
	Direct            map[string]any
	CumulativeContext map[string]any
	StepConfig        map[string]any
}

// NewInput builds an Input from a composed payload, pulling out the two
// well-known nested keys and treating everything else as direct input.
func NewInput(payload map[string]any) Input {
	in := Input{Direct: payload}
	if cc, ok := payload["cumulative_context"].(map[string]any); ok {
		in.CumulativeContext = cc
	}
	if sc, ok := payload["step_config"].(map[string]any); ok {
		in.StepConfig = sc
	}
	return in
}

// Extract searches, in priority order, direct key on the payload, then
// cumulative_context[key], then step_config[key] (spec.md §4.1). aliases
// are tried after key, in order, under the same three-tier search; the
// first non-empty result wins.
func (in Input) Extract(key string, aliases ...string) (string, bool) {
	for _, k := range append([]string{key}, aliases...) {
		if v, ok := lookupString(in.Direct, k); ok {
			return v, true
		}
		if v, ok := lookupString(in.CumulativeContext, k); ok {
			return v, true
		}
		if v, ok := lookupString(in.StepConfig, k); ok {
			return v, true
		}
	}
	return "", false
}

// ExtractInt is the int-typed variant of Extract.
func (in Input) ExtractInt(key string, aliases ...string) (int, bool) {
	for _, k := range append([]string{key}, aliases...) {
		if v, ok := lookupInt(in.Direct, k); ok {
			return v, true
		}
		if v, ok := lookupInt(in.CumulativeContext, k); ok {
			return v, true
		}
		if v, ok := lookupInt(in.StepConfig, k); ok {
			return v, true
		}
	}
	return 0, false
}

// ExtractFloat is the float64-typed variant of Extract.
func (in Input) ExtractFloat(key string, aliases ...string) (float64, bool) {
	for _, k := range append([]string{key}, aliases...) {
		if v, ok := lookupFloat(in.Direct, k); ok {
			return v, true
		}
		if v, ok := lookupFloat(in.CumulativeContext, k); ok {
			return v, true
		}
		if v, ok := lookupFloat(in.StepConfig, k); ok {
			return v, true
		}
	}
	return 0, false
}

// ExtractBool is the bool-typed variant of Extract.
func (in Input) ExtractBool(key string, aliases ...string) (bool, bool) {
	for _, k := range append([]string{key}, aliases...) {
		if v, ok := lookupBool(in.Direct, k); ok {
			return v, true
		}
		if v, ok := lookupBool(in.CumulativeContext, k); ok {
			return v, true
		}
		if v, ok := lookupBool(in.StepConfig, k); ok {
			return v, true
		}
	}
	return false, false
}

// ExtractStringList is the []string variant of Extract. Lists are preserved
// empty vs absent: an empty list present at a key returns ([], true).
func (in Input) ExtractStringList(key string, aliases ...string) ([]string, bool) {
	for _, k := range append([]string{key}, aliases...) {
		if v, ok := lookupStringList(in.Direct, k); ok {
			return v, true
		}
		if v, ok := lookupStringList(in.CumulativeContext, k); ok {
			return v, true
		}
		if v, ok := lookupStringList(in.StepConfig, k); ok {
			return v, true
		}
	}
	return nil, false
}

// ExtractMap is the nested-map variant of Extract.
func (in Input) ExtractMap(key string, aliases ...string) (map[string]any, bool) {
	for _, k := range append([]string{key}, aliases...) {
		if v, ok := lookupMap(in.Direct, k); ok {
			return v, true
		}
		if v, ok := lookupMap(in.CumulativeContext, k); ok {
			return v, true
		}
		if v, ok := lookupMap(in.StepConfig, k); ok {
			return v, true
		}
	}
	return nil, false
}

func lookupString(m map[string]any, key string) (string, bool) {
	if m == nil {
		return "", false
	}
	v, ok := m[key]
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

func lookupInt(m map[string]any, key string) (int, bool) {
	if m == nil {
		return 0, false
	}
	v, ok := m[key]
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

func lookupFloat(m map[string]any, key string) (float64, bool) {
	if m == nil {
		return 0, false
	}
	v, ok := m[key]
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

func lookupBool(m map[string]any, key string) (bool, bool) {
	if m == nil {
		return false, false
	}
	v, ok := m[key]
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

func lookupStringList(m map[string]any, key string) ([]string, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m[key]
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

func lookupMap(m map[string]any, key string) (map[string]any, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m[key]
	if !ok {
		return nil, false
	}
	nested, ok := v.(map[string]any)
	return nested, ok
}
