// Package matching evaluates stub predicates against protocol-neutral
// requests. Stubs are tried in declared order and the first stub whose
// predicates all match wins; a stub with no predicates matches everything.
//
// Comparison is case-insensitive by default for both field keys and values,
// matching the behavior test authors expect from service-virtualization
// predicates; caseSensitive opts out per predicate. The except parameter
// strips a regex match from actual values before comparison, and
// jsonpath/xpath selectors narrow the request body before the operator
// applies.
package matching
