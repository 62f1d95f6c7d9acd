package matching

import (
	"encoding/json"

	"github.com/ohler55/ojg/jp"
)

// selectJSONPath evaluates a jsonpath selector against a JSON body.
// A single result is returned as a scalar, multiple results as a slice.
// Returns (nil, false) when the body is not JSON or nothing matches.
func selectJSONPath(selector, body string) (any, bool) {
	if body == "" {
		return nil, false
	}

	var data any
	if err := json.Unmarshal([]byte(body), &data); err != nil {
		return nil, false
	}

	x, err := jp.ParseString(selector)
	if err != nil {
		return nil, false
	}

	results := x.Get(data)
	switch len(results) {
	case 0:
		return nil, false
	case 1:
		return results[0], true
	default:
		return results, true
	}
}
