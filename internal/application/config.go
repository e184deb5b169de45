package application

import "fmt"

// Helpers for decoding the loosely typed configuration maps produced by
// the YAML decoder. Numeric YAML scalars arrive as int or float64
// depending on their spelling, so every accessor normalizes both.

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

// floatValue returns the required scalar entry under key.
func floatValue(config map[string]any, key string) (float64, error) {
	raw, ok := config[key]
	if !ok {
		return 0, fmt.Errorf("config requires a %q entry", key)
	}
	f, ok := asFloat(raw)
	if !ok {
		return 0, fmt.Errorf("%q must be a number, got %T", key, raw)
	}
	return f, nil
}

// floatSlice returns the required numeric array under key.
func floatSlice(config map[string]any, key string) ([]float64, error) {
	raw, ok := config[key]
	if !ok {
		return nil, fmt.Errorf("config requires a %q entry", key)
	}
	return toFloats(key, raw)
}

func toFloats(key string, raw any) ([]float64, error) {
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%q must be an array of numbers, got %T", key, raw)
	}
	out := make([]float64, len(items))
	for i, item := range items {
		f, ok := asFloat(item)
		if !ok {
			return nil, fmt.Errorf("%q[%d] must be a number, got %T", key, i, item)
		}
		out[i] = f
	}
	return out, nil
}

// floatColumns returns the required entry under key as coordinate
// columns: a flat numeric array becomes a single column, an array of
// arrays one column per inner array.
func floatColumns(config map[string]any, key string) ([][]float64, error) {
	raw, ok := config[key]
	if !ok {
		return nil, fmt.Errorf("config requires a %q entry", key)
	}
	items, ok := raw.([]any)
	if !ok || len(items) == 0 {
		return nil, fmt.Errorf("%q must be a non-empty array, got %T", key, raw)
	}
	if _, nested := items[0].([]any); !nested {
		col, err := toFloats(key, raw)
		if err != nil {
			return nil, err
		}
		return [][]float64{col}, nil
	}
	return floatMatrix(config, key)
}

// floatMatrix returns the required entry under key as an array of
// numeric arrays.
func floatMatrix(config map[string]any, key string) ([][]float64, error) {
	raw, ok := config[key]
	if !ok {
		return nil, fmt.Errorf("config requires a %q entry", key)
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%q must be an array of arrays, got %T", key, raw)
	}
	out := make([][]float64, len(items))
	for i, item := range items {
		row, err := toFloats(fmt.Sprintf("%s[%d]", key, i), item)
		if err != nil {
			return nil, err
		}
		out[i] = row
	}
	return out, nil
}

// stringSlice returns the string array under key, or nil when absent.
func stringSlice(config map[string]any, key string) []string {
	raw, ok := config[key]
	if !ok {
		return nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// stringValue returns the string under key, or "" when absent.
func stringValue(config map[string]any, key string) string {
	if s, ok := config[key].(string); ok {
		return s
	}
	return ""
}

// boolValue returns the bool under key, or false when absent.
func boolValue(config map[string]any, key string) bool {
	if b, ok := config[key].(bool); ok {
		return b
	}
	return false
}
