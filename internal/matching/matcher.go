package matching

import (
	"log/slog"

	"github.com/getimposd/imposd/pkg/imposter"
	"github.com/getimposd/imposd/pkg/logging"
)

// Evaluator evaluates predicates against requests.
type Evaluator struct {
	// AllowInjection enables inject predicates. When disabled an inject
	// predicate never matches.
	AllowInjection bool

	log *slog.Logger
}

// NewEvaluator creates an evaluator.
func NewEvaluator(allowInjection bool, log *slog.Logger) *Evaluator {
	if log == nil {
		log = logging.Nop()
	}
	return &Evaluator{AllowInjection: allowInjection, log: log}
}

// Match returns the index of the first stub whose predicates all match the
// request. Evaluation stops at the first match.
func (e *Evaluator) Match(stubs []imposter.Stub, req *imposter.Request) (int, bool) {
	fields := req.Fields()
	for i := range stubs {
		if e.matchesFields(stubs[i].Predicates, fields) {
			return i, true
		}
	}
	return 0, false
}

// Matches reports whether every predicate matches the request. An empty
// predicate list matches everything.
func (e *Evaluator) Matches(predicates []imposter.Predicate, req *imposter.Request) bool {
	return e.matchesFields(predicates, req.Fields())
}

func (e *Evaluator) matchesFields(predicates []imposter.Predicate, fields map[string]any) bool {
	for i := range predicates {
		if !e.predicateMatches(&predicates[i], fields) {
			return false
		}
	}
	return true
}

// predicateMatches evaluates one predicate, including its logical
// combinators, against the request fields.
func (e *Evaluator) predicateMatches(p *imposter.Predicate, fields map[string]any) bool {
	mods := modifiers{
		caseSensitive: p.CaseSensitive,
		except:        p.Except,
		jsonpath:      p.JSONPath,
		xpath:         p.XPath,
	}

	if p.Not != nil {
		if e.predicateMatches(p.Not, fields) {
			return false
		}
	}
	for i := range p.And {
		if !e.predicateMatches(&p.And[i], fields) {
			return false
		}
	}
	if len(p.Or) > 0 {
		any := false
		for i := range p.Or {
			if e.predicateMatches(&p.Or[i], fields) {
				any = true
				break
			}
		}
		if !any {
			return false
		}
	}

	if p.Inject != "" {
		if !e.AllowInjection {
			e.log.Warn("inject predicate ignored, injection is disabled")
			return false
		}
		ok, err := evalInjectPredicate(p.Inject, fields)
		if err != nil {
			e.log.Warn("inject predicate failed", "error", err)
			return false
		}
		if !ok {
			return false
		}
	}

	for _, opEntry := range []struct {
		op     operator
		values map[string]any
	}{
		{opEquals, p.Equals},
		{opDeepEquals, p.DeepEquals},
		{opContains, p.Contains},
		{opStartsWith, p.StartsWith},
		{opEndsWith, p.EndsWith},
		{opMatches, p.Matches},
		{opExists, p.Exists},
	} {
		if opEntry.values == nil {
			continue
		}
		if !e.operatorMatches(opEntry.op, opEntry.values, fields, mods) {
			return false
		}
	}
	return true
}
