package matching

import (
	"fmt"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

var (
	injectMu    sync.RWMutex
	injectCache = make(map[string]*vm.Program)
)

// compileInject compiles an inject expression, caching by source text.
func compileInject(code string) (*vm.Program, error) {
	injectMu.RLock()
	program, ok := injectCache[code]
	injectMu.RUnlock()
	if ok {
		return program, nil
	}

	program, err := expr.Compile(code)
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", code, err)
	}

	injectMu.Lock()
	injectCache[code] = program
	injectMu.Unlock()
	return program, nil
}

// evalInjectPredicate evaluates an inject predicate expression with the
// request fields in scope as `request`. The expression must return a
// boolean.
func evalInjectPredicate(code string, fields map[string]any) (bool, error) {
	program, err := compileInject(code)
	if err != nil {
		return false, err
	}

	out, err := expr.Run(program, map[string]any{"request": fields})
	if err != nil {
		return false, fmt.Errorf("eval %q: %w", code, err)
	}

	result, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("inject predicate returned %T, want bool", out)
	}
	return result, nil
}

// EvalResponseInject evaluates an inject response expression with the
// request fields in scope as `request`. The expression must return a
// map of response fields (statusCode, headers, body, data).
func EvalResponseInject(code string, fields map[string]any) (map[string]any, error) {
	program, err := compileInject(code)
	if err != nil {
		return nil, err
	}

	out, err := expr.Run(program, map[string]any{"request": fields})
	if err != nil {
		return nil, fmt.Errorf("eval %q: %w", code, err)
	}

	result, ok := out.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("inject response returned %T, want map", out)
	}
	return result, nil
}
