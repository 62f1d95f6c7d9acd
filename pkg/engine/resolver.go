package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	mathrand "math/rand/v2"
	"time"

	"github.com/getimposd/imposd/internal/matching"
	"github.com/getimposd/imposd/pkg/imposter"
)

// resolver turns a cursor selection into a concrete response: literal
// payloads merge over the imposter default, proxy entries forward live
// and record per their mode, inject entries evaluate with the request
// in scope. One resolver is shared by all imposters in a registry.
type resolver struct {
	eval           *matching.Evaluator
	forward        *forwarder
	allowInjection bool
	log            *slog.Logger
}

func (r *resolver) resolve(ctx context.Context, imp *Imposter, st *stubRuntime, sel selection, req *imposter.Request) (*imposter.ISResponse, error) {
	out, err := r.resolveKind(ctx, imp, st, sel, req)
	if err != nil {
		return nil, err
	}
	if err := r.applyWait(ctx, sel.behaviors); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *resolver) resolveKind(ctx context.Context, imp *Imposter, st *stubRuntime, sel selection, req *imposter.Request) (*imposter.ISResponse, error) {
	switch sel.kind {
	case imposter.KindIs:
		return sel.is.Merge(imp.DefaultResponse()), nil
	case imposter.KindProxy:
		return r.resolveProxy(ctx, imp, st, sel, req)
	case imposter.KindInject:
		return r.resolveInject(imp, sel.inject, req)
	default:
		// Stub matched but has no response entries: serve the default.
		return imp.DefaultResponse(), nil
	}
}

// resolveProxy forwards to the origin with no stub lock held, then
// commits the recording according to the proxy mode. Concurrent flights
// commit in completion order.
func (r *resolver) resolveProxy(ctx context.Context, imp *Imposter, st *stubRuntime, sel selection, req *imposter.Request) (*imposter.ISResponse, error) {
	mode := sel.proxy.EffectiveMode()
	rec, err := r.forward.forward(ctx, imp.Protocol(), sel.proxy.To, req, imp.binary())
	if err != nil {
		recordProxied(mode, outcomeError)
		recordErrorKind("proxy")
		r.log.Warn("proxy forward failed",
			"port", imp.Port(), "target", sel.proxy.To, "error", err)
		return nil, fmt.Errorf("%w: %s: %v", ErrProxyUnreachable, sel.proxy.To, err)
	}
	recordProxied(mode, "ok")

	switch mode {
	case imposter.ProxyOnce:
		if st.recordOnce(sel.entry, rec.Clone()) {
			recordCapture()
		}
	case imposter.ProxyAlways:
		st.recordAlways(rec.Clone())
		recordCapture()
	case imposter.ProxyTransparent:
		// Never recorded.
	}
	return rec, nil
}

func (r *resolver) resolveInject(imp *Imposter, code string, req *imposter.Request) (*imposter.ISResponse, error) {
	if !r.allowInjection {
		return nil, ErrInjectionDisabled
	}
	fields, err := matching.EvalResponseInject(code, req.Fields())
	if err != nil {
		recordErrorKind("inject")
		return nil, fmt.Errorf("inject response: %w", err)
	}
	return injectedResponse(fields).Merge(imp.DefaultResponse()), nil
}

// applyWait injects the configured response latency, honoring request
// cancellation.
func (r *resolver) applyWait(ctx context.Context, b *imposter.Behaviors) error {
	if b == nil || b.Wait == nil {
		return nil
	}
	ms := b.Wait.Fixed
	if b.Wait.Max > 0 {
		ms = b.Wait.Min + mathrand.IntN(b.Wait.Max-b.Wait.Min+1)
	}
	if ms <= 0 {
		return nil
	}

	timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// injectedResponse maps the loose field map an inject expression
// returns onto the literal response shape.
func injectedResponse(fields map[string]any) *imposter.ISResponse {
	out := &imposter.ISResponse{}
	if v, ok := fields["statusCode"]; ok {
		out.StatusCode = asInt(v)
	}
	if v, ok := fields["headers"].(map[string]any); ok {
		out.Headers = make(map[string]string, len(v))
		for name, hv := range v {
			out.Headers[name] = fmt.Sprint(hv)
		}
	}
	if v, ok := fields["body"]; ok {
		switch body := v.(type) {
		case string:
			out.Body = body
		default:
			if raw, err := json.Marshal(body); err == nil {
				out.Body = string(raw)
			}
		}
	}
	if v, ok := fields["data"].(string); ok {
		out.Data = v
	}
	if v, ok := fields["_mode"].(string); ok {
		out.Mode = v
	}
	return out
}

func asInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case uint64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}
