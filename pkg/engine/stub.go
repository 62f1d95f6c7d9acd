package engine

import (
	"sync"

	"github.com/getimposd/imposd/pkg/imposter"
)

// responseEntry is one declared response in a stub's sequence, plus the
// origin capture that supersedes a proxyOnce entry after its first
// successful forward.
type responseEntry struct {
	spec     imposter.Response
	captured *imposter.ISResponse
}

// stubRuntime is the live state of one configured stub: an immutable
// predicate list plus the response cursor and proxy recordings shared
// by every concurrent request that matches the stub. The mutex guards
// cursor reads and recording commits only; it is never held across a
// proxy network call.
type stubRuntime struct {
	mu         sync.Mutex
	predicates []imposter.Predicate
	entries    []*responseEntry
	cursor     int
	hits       int
	recorded   []imposter.ISResponse
}

func newStubRuntime(def imposter.Stub) *stubRuntime {
	entries := make([]*responseEntry, len(def.Responses))
	for i, r := range def.Responses {
		entries[i] = &responseEntry{spec: r}
	}
	return &stubRuntime{
		predicates: def.Predicates,
		entries:    entries,
	}
}

// selection is what the resolver needs from one cursor read, copied out
// under the stub lock so resolution itself runs lock-free.
type selection struct {
	kind      imposter.ResponseKind
	is        *imposter.ISResponse
	proxy     imposter.ProxyResponse
	inject    string
	behaviors *imposter.Behaviors
	entry     *responseEntry
}

// take returns the cursor entry and advances the cursor as one atomic
// unit: each entry is served repeat times (default one), then the
// cursor moves forward and sticks at the last entry once the sequence
// is exhausted. A stub with no responses yields an unknown kind, which
// resolves to the imposter default.
func (s *stubRuntime) take() selection {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.entries) == 0 {
		return selection{}
	}

	e := s.entries[s.cursor]
	s.hits++
	if s.hits >= repeatFor(e.spec.Behaviors) && s.cursor < len(s.entries)-1 {
		s.cursor++
		s.hits = 0
	}

	sel := selection{behaviors: e.spec.Behaviors, entry: e}
	if e.captured != nil {
		sel.kind = imposter.KindIs
		sel.is = e.captured.Clone()
		return sel
	}
	switch e.spec.Kind() {
	case imposter.KindIs:
		sel.kind = imposter.KindIs
		sel.is = e.spec.Is.Clone()
	case imposter.KindProxy:
		sel.kind = imposter.KindProxy
		sel.proxy = *e.spec.Proxy
	case imposter.KindInject:
		sel.kind = imposter.KindInject
		sel.inject = e.spec.Inject
	}
	return sel
}

// repeatFor returns how many matches an entry serves before the cursor
// may advance past it.
func repeatFor(b *imposter.Behaviors) int {
	if b != nil && b.Repeat > 1 {
		return b.Repeat
	}
	return 1
}

// recordOnce installs the origin response captured for a proxyOnce
// entry. The first completion wins; captures racing in from concurrent
// flights of the same entry are dropped.
func (s *stubRuntime) recordOnce(e *responseEntry, rec *imposter.ISResponse) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.captured != nil {
		return false
	}
	e.captured = rec
	return true
}

// recordAlways appends an origin response observed by a proxyAlways
// entry. Responses land in completion order, which under concurrency is
// not necessarily request-arrival order.
func (s *stubRuntime) recordAlways(rec *imposter.ISResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recorded = append(s.recorded, *rec)
}

// recordedCount reports how many proxyAlways responses the stub holds.
func (s *stubRuntime) recordedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.recorded)
}

// clearRecorded drops all proxy recordings, proxyAlways accumulations
// and proxyOnce captures both, so the stub's proxies record fresh
// again.
func (s *stubRuntime) clearRecorded() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recorded = nil
	for _, e := range s.entries {
		e.captured = nil
	}
}

// definition reconstructs the stub's wire shape. The plain form shows
// the current stored responses, so a converted proxyOnce entry appears
// as the is it captured. The replayable form additionally folds
// proxyAlways recordings in as is entries ahead of their proxy, letting
// a replay reproduce the observed sequence before forwarding live
// again; removeProxies then strips whatever proxy entries remain.
func (s *stubRuntime) definition(replayable, removeProxies bool) imposter.Stub {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := imposter.Stub{Predicates: s.predicates}
	folded := false
	for _, e := range s.entries {
		switch {
		case e.captured != nil:
			out.Responses = append(out.Responses, imposter.Response{
				Is:        e.captured.Clone(),
				Behaviors: e.spec.Behaviors,
			})
		case e.spec.Kind() == imposter.KindProxy:
			if replayable && !folded {
				for i := range s.recorded {
					out.Responses = append(out.Responses, imposter.Response{Is: s.recorded[i].Clone()})
				}
				folded = true
			}
			if !removeProxies {
				out.Responses = append(out.Responses, e.spec)
			}
		default:
			out.Responses = append(out.Responses, e.spec)
		}
	}
	return out
}
