package matching

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

// toStringMap coerces map-shaped values into map[string]any.
func toStringMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[string]string:
		out := make(map[string]any, len(m))
		for k, val := range m {
			out[k] = val
		}
		return out, true
	}
	return nil, false
}

// lookupKey finds a key in a map, falling back to a case-insensitive scan
// unless the predicate is caseSensitive.
func lookupKey(m map[string]any, key string, mods modifiers) (any, bool) {
	if v, ok := m[key]; ok {
		return v, true
	}
	if mods.caseSensitive {
		return nil, false
	}
	for k, v := range m {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return nil, false
}

// stringify renders scalar values for comparison. JSON numbers arrive as
// float64; integral values render without a decimal point.
func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// isEmptyValue reports whether a field value counts as absent for exists.
func isEmptyValue(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	}
	return false
}

var (
	exceptMu    sync.RWMutex
	exceptCache = make(map[string]*regexp.Regexp)
)

// applyExcept strips every match of the except pattern from the actual
// value before comparison. Invalid patterns are caught by config
// validation; at runtime they leave the value untouched.
func applyExcept(s, except string) string {
	if except == "" {
		return s
	}

	exceptMu.RLock()
	re, ok := exceptCache[except]
	exceptMu.RUnlock()

	if !ok {
		var err error
		re, err = regexp.Compile(except)
		if err != nil {
			return s
		}
		exceptMu.Lock()
		exceptCache[except] = re
		exceptMu.Unlock()
	}
	return re.ReplaceAllString(s, "")
}
