package matching

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/getimposd/imposd/pkg/imposter"
)

// operator identifies a comparison operator.
type operator int

const (
	opEquals operator = iota
	opDeepEquals
	opContains
	opStartsWith
	opEndsWith
	opMatches
	opExists
)

// modifiers carry the per-predicate comparison parameters.
type modifiers struct {
	caseSensitive bool
	except        string
	jsonpath      *imposter.Selector
	xpath         *imposter.Selector
}

// operatorMatches checks every (field, expected) pair under one operator.
// All pairs must match.
func (e *Evaluator) operatorMatches(op operator, expected map[string]any, fields map[string]any, mods modifiers) bool {
	for name, want := range expected {
		actual, present := fields[name]
		if name == "body" && (mods.jsonpath != nil || mods.xpath != nil) {
			actual, present = selectBody(fields, mods)
		}

		if op == opExists {
			if !existsMatches(want, actual, present, mods) {
				return false
			}
			continue
		}

		if !present {
			// Scalar comparisons treat a missing field as empty string;
			// structured expectations cannot match an absent field.
			switch want.(type) {
			case map[string]any, []any:
				return false
			}
			actual = ""
		}

		if !compareValue(op, want, actual, mods) {
			return false
		}
	}
	return true
}

// selectBody narrows the request body through the predicate's jsonpath or
// xpath selector. Not-found selections report the field as absent.
func selectBody(fields map[string]any, mods modifiers) (any, bool) {
	body, _ := fields["body"].(string)
	if mods.jsonpath != nil {
		return selectJSONPath(mods.jsonpath.Selector, body)
	}
	return selectXPath(mods.xpath.Selector, body)
}

// existsMatches handles the exists operator: a boolean checks whole-field
// presence, a map checks key presence within a map-valued field.
func existsMatches(want, actual any, present bool, mods modifiers) bool {
	switch w := want.(type) {
	case bool:
		return present == w
	case map[string]any:
		am, ok := toStringMap(actual)
		for key, v := range w {
			wantExists, _ := v.(bool)
			has := false
			if ok {
				if av, found := lookupKey(am, key, mods); found && !isEmptyValue(av) {
					has = true
				}
			}
			if has != wantExists {
				return false
			}
		}
		return true
	default:
		return present
	}
}

// compareValue compares one expected value against one actual value under
// an operator, recursing through maps and arrays.
func compareValue(op operator, want, actual any, mods modifiers) bool {
	switch w := want.(type) {
	case map[string]any:
		am, ok := toStringMap(actual)
		if !ok {
			// A JSON body arrives as a string; compare structurally.
			if parsed, ok := parseJSONString(actual); ok {
				return compareValue(op, want, parsed, mods)
			}
			return false
		}
		if op == opDeepEquals {
			return deepEqualValues(w, am, mods)
		}
		for key, v := range w {
			av, has := lookupKey(am, key, mods)
			if !has {
				switch v.(type) {
				case map[string]any, []any:
					return false
				}
				av = ""
			}
			if !compareValue(op, v, av, mods) {
				return false
			}
		}
		return true

	case []any:
		aArr, ok := actual.([]any)
		if !ok {
			if parsed, ok := parseJSONString(actual); ok {
				if arr, isArr := parsed.([]any); isArr {
					return compareValue(op, want, arr, mods)
				}
			}
			if len(w) == 1 {
				return compareValue(op, w[0], actual, mods)
			}
			return false
		}
		if op == opDeepEquals {
			return deepEqualValues(w, aArr, mods)
		}
		// Every expected element must be matched by some actual element.
		for _, wantEl := range w {
			matched := false
			for _, actEl := range aArr {
				if compareValue(op, wantEl, actEl, mods) {
					matched = true
					break
				}
			}
			if !matched {
				return false
			}
		}
		return true

	default:
		// Multi-valued actuals match when any element matches.
		if aArr, ok := actual.([]any); ok {
			for _, el := range aArr {
				if compareValue(op, want, el, mods) {
					return true
				}
			}
			return false
		}
		if _, isMap := toStringMap(actual); isMap {
			return false
		}
		return compareScalar(op, stringify(want), stringify(actual), mods)
	}
}

// compareScalar applies one operator to stringified values with the
// predicate's except and caseSensitive parameters.
func compareScalar(op operator, want, actual string, mods modifiers) bool {
	actual = applyExcept(actual, mods.except)

	if op == opMatches {
		pattern := want
		if !mods.caseSensitive {
			pattern = "(?i)" + pattern
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return false
		}
		return re.MatchString(actual)
	}

	if !mods.caseSensitive {
		want = strings.ToLower(want)
		actual = strings.ToLower(actual)
	}

	switch op {
	case opEquals, opDeepEquals:
		return actual == want
	case opContains:
		return strings.Contains(actual, want)
	case opStartsWith:
		return strings.HasPrefix(actual, want)
	case opEndsWith:
		return strings.HasSuffix(actual, want)
	}
	return false
}

// deepEqualValues is structural equality: maps must have identical key
// sets, arrays identical lengths (order-independent, multi-valued fields
// carry no ordering guarantee), leaves compare like equals.
func deepEqualValues(want, actual any, mods modifiers) bool {
	switch w := want.(type) {
	case map[string]any:
		am, ok := toStringMap(actual)
		if !ok || len(am) != len(w) {
			return false
		}
		for key, v := range w {
			av, has := lookupKey(am, key, mods)
			if !has || !deepEqualValues(v, av, mods) {
				return false
			}
		}
		return true
	case []any:
		aArr, ok := actual.([]any)
		if !ok || len(aArr) != len(w) {
			return false
		}
		used := make([]bool, len(aArr))
		for _, wantEl := range w {
			found := false
			for i, actEl := range aArr {
				if used[i] {
					continue
				}
				if deepEqualValues(wantEl, actEl, mods) {
					used[i] = true
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
		return true
	default:
		return compareScalar(opEquals, stringify(want), stringify(actual), mods)
	}
}

// parseJSONString parses actual as JSON when it is a string holding an
// object or array.
func parseJSONString(actual any) (any, bool) {
	s, ok := actual.(string)
	if !ok {
		return nil, false
	}
	trimmed := strings.TrimSpace(s)
	if len(trimmed) == 0 || (trimmed[0] != '{' && trimmed[0] != '[') {
		return nil, false
	}
	var parsed any
	if err := json.Unmarshal([]byte(trimmed), &parsed); err != nil {
		return nil, false
	}
	return parsed, true
}
