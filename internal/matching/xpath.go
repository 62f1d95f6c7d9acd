package matching

import (
	"strings"

	"github.com/beevik/etree"
)

// selectXPath evaluates an xpath selector against an XML body. Element
// selections return trimmed text content; a trailing /@attr selects an
// attribute value. Returns (nil, false) when the body is not XML or
// nothing matches.
func selectXPath(selector, body string) (any, bool) {
	if body == "" {
		return nil, false
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromString(body); err != nil {
		return nil, false
	}

	if idx := strings.LastIndex(selector, "/@"); idx >= 0 {
		elemPath, attrName := selector[:idx], selector[idx+2:]
		path, err := etree.CompilePath(elemPath)
		if err != nil {
			return nil, false
		}
		elem := doc.FindElementPath(path)
		if elem == nil {
			return nil, false
		}
		attr := elem.SelectAttr(attrName)
		if attr == nil {
			return nil, false
		}
		return attr.Value, true
	}

	path, err := etree.CompilePath(selector)
	if err != nil {
		return nil, false
	}
	elems := doc.FindElementsPath(path)
	switch len(elems) {
	case 0:
		return nil, false
	case 1:
		return strings.TrimSpace(elems[0].Text()), true
	default:
		values := make([]any, len(elems))
		for i, elem := range elems {
			values[i] = strings.TrimSpace(elem.Text())
		}
		return values, true
	}
}
