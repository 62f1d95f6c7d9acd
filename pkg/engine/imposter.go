package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/getimposd/imposd/pkg/imposter"
	"github.com/getimposd/imposd/pkg/protocol"
)

// maxRecordedRequests caps the per-imposter request journal; the oldest
// entries fall off first.
const maxRecordedRequests = 1000

// Imposter is one live virtual server: the declared configuration, the
// protocol adapter bound to its port, and the stub and request state
// accumulated while serving. Imposters are created and owned by a
// Registry.
type Imposter struct {
	cfg      imposter.Config
	adapter  protocol.Adapter
	resolver *resolver
	log      *slog.Logger

	mu           sync.RWMutex
	stubs        []*stubRuntime
	requests     []imposter.Request
	requestCount uint64
}

var _ protocol.Responder = (*Imposter)(nil)

func newImposter(cfg imposter.Config, res *resolver, log *slog.Logger) *Imposter {
	imp := &Imposter{cfg: cfg, resolver: res, log: log}
	imp.stubs = make([]*stubRuntime, len(cfg.Stubs))
	for i, s := range cfg.Stubs {
		imp.stubs[i] = newStubRuntime(s)
	}
	return imp
}

// Port returns the bound port. For configs requesting an ephemeral port
// this is the assigned port, filled in once the adapter has bound.
func (imp *Imposter) Port() int {
	imp.mu.RLock()
	defer imp.mu.RUnlock()
	return imp.cfg.Port
}

// setPort records the assigned port after the adapter binds. The
// adapter may already be serving requests when this runs.
func (imp *Imposter) setPort(port int) {
	imp.mu.Lock()
	imp.cfg.Port = port
	imp.mu.Unlock()
}

// Protocol returns the wire protocol the imposter speaks.
func (imp *Imposter) Protocol() imposter.Protocol { return imp.cfg.Protocol }

// Name returns the display label, which may be empty.
func (imp *Imposter) Name() string { return imp.cfg.Name }

// NumberOfRequests returns how many requests the imposter has served
// since creation or the last journal clear.
func (imp *Imposter) NumberOfRequests() int {
	imp.mu.RLock()
	defer imp.mu.RUnlock()
	return int(imp.requestCount)
}

// Requests returns a copy of the recorded request journal. The journal
// is only populated when the imposter was created with recordRequests.
func (imp *Imposter) Requests() []imposter.Request {
	imp.mu.RLock()
	defer imp.mu.RUnlock()
	out := make([]imposter.Request, len(imp.requests))
	copy(out, imp.requests)
	return out
}

// DefaultResponse returns a copy of the configured default payload, or
// an empty response when none is set (adapters render an empty response
// as the protocol default).
func (imp *Imposter) DefaultResponse() *imposter.ISResponse {
	if imp.cfg.DefaultResponse == nil {
		return &imposter.ISResponse{}
	}
	return imp.cfg.DefaultResponse.Clone()
}

// binary reports whether tcp payloads travel base64-encoded.
func (imp *Imposter) binary() bool { return imp.cfg.Mode == imposter.ModeBinary }

// Config returns the declared configuration with current stub state.
// The replayable form folds recorded proxy responses into is entries;
// removeProxies additionally strips remaining live proxy entries.
func (imp *Imposter) Config(replayable, removeProxies bool) imposter.Config {
	imp.mu.RLock()
	cfg := imp.cfg
	stubs := imp.stubs
	imp.mu.RUnlock()

	cfg.Stubs = make([]imposter.Stub, len(stubs))
	for i, st := range stubs {
		cfg.Stubs[i] = st.definition(replayable, removeProxies)
	}
	return cfg
}

// Respond implements protocol.Responder: journal the request, pick the
// first stub whose predicates all match, and resolve its cursor entry.
// With no matching stub the imposter default is served and no stub
// state moves.
func (imp *Imposter) Respond(ctx context.Context, req *imposter.Request) (*imposter.ISResponse, error) {
	start := time.Now()
	imp.journal(req)
	port := imp.Port()

	imp.mu.RLock()
	stubs := imp.stubs
	imp.mu.RUnlock()

	var selected *stubRuntime
	for _, st := range stubs {
		if imp.resolver.eval.Matches(st.predicates, req) {
			selected = st
			break
		}
	}

	if selected == nil {
		recordMiss(imp.cfg.Protocol, port)
		recordServed(imp.cfg.Protocol, port, outcomeDefault, time.Since(start))
		return imp.DefaultResponse(), nil
	}

	out, err := imp.resolver.resolve(ctx, imp, selected, selected.take(), req)
	if err != nil {
		recordServed(imp.cfg.Protocol, port, outcomeError, time.Since(start))
		return nil, err
	}
	recordServed(imp.cfg.Protocol, port, outcomeMatched, time.Since(start))
	return out, nil
}

// journal counts every request and, when recordRequests is on, keeps a
// verbatim copy.
func (imp *Imposter) journal(req *imposter.Request) {
	imp.mu.Lock()
	defer imp.mu.Unlock()
	imp.requestCount++
	if !imp.cfg.RecordRequests {
		return
	}
	imp.requests = append(imp.requests, *req)
	if len(imp.requests) > maxRecordedRequests {
		imp.requests = imp.requests[len(imp.requests)-maxRecordedRequests:]
	}
}

// clearRequests drops the journal and resets the request counter.
func (imp *Imposter) clearRequests() {
	imp.mu.Lock()
	defer imp.mu.Unlock()
	imp.requests = nil
	imp.requestCount = 0
}

// clearProxyResponses drops every stub's proxy recordings so proxies
// record fresh again.
func (imp *Imposter) clearProxyResponses() {
	imp.mu.RLock()
	stubs := imp.stubs
	imp.mu.RUnlock()
	for _, st := range stubs {
		st.clearRecorded()
	}
}

// Stub mutations swap in a fresh slice so concurrent responders keep
// iterating their own consistent snapshot.

func (imp *Imposter) addStub(stub imposter.Stub, index int) error {
	imp.mu.Lock()
	defer imp.mu.Unlock()
	if index == -1 {
		index = len(imp.stubs)
	}
	if index < 0 || index > len(imp.stubs) {
		return &imposter.ValidationError{Field: "index", Message: fmt.Sprintf("index %d is outside the stubs array", index)}
	}
	next := make([]*stubRuntime, 0, len(imp.stubs)+1)
	next = append(next, imp.stubs[:index]...)
	next = append(next, newStubRuntime(stub))
	next = append(next, imp.stubs[index:]...)
	imp.stubs = next
	return nil
}

func (imp *Imposter) replaceAllStubs(stubs []imposter.Stub) {
	next := make([]*stubRuntime, len(stubs))
	for i, s := range stubs {
		next[i] = newStubRuntime(s)
	}
	imp.mu.Lock()
	imp.stubs = next
	imp.mu.Unlock()
}

func (imp *Imposter) replaceStub(index int, stub imposter.Stub) error {
	imp.mu.Lock()
	defer imp.mu.Unlock()
	if index < 0 || index >= len(imp.stubs) {
		return &imposter.ValidationError{Field: "index", Message: fmt.Sprintf("index %d is outside the stubs array", index)}
	}
	next := make([]*stubRuntime, len(imp.stubs))
	copy(next, imp.stubs)
	next[index] = newStubRuntime(stub)
	imp.stubs = next
	return nil
}

func (imp *Imposter) removeStub(index int) error {
	imp.mu.Lock()
	defer imp.mu.Unlock()
	if index < 0 || index >= len(imp.stubs) {
		return &imposter.ValidationError{Field: "index", Message: fmt.Sprintf("index %d is outside the stubs array", index)}
	}
	next := make([]*stubRuntime, 0, len(imp.stubs)-1)
	next = append(next, imp.stubs[:index]...)
	next = append(next, imp.stubs[index+1:]...)
	imp.stubs = next
	return nil
}
