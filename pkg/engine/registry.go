package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/getimposd/imposd/internal/matching"
	"github.com/getimposd/imposd/internal/storage"
	"github.com/getimposd/imposd/pkg/imposter"
	"github.com/getimposd/imposd/pkg/logging"
	"github.com/getimposd/imposd/pkg/protocol"
)

// defaultStopTimeout bounds how long a delete waits for an imposter's
// in-flight requests to drain before its socket is forced closed.
const defaultStopTimeout = 5 * time.Second

// Registry owns every live imposter, keyed by port. All lifecycle
// operations (create, delete, replace-all) are serialized; the
// per-request path never takes the registry lock.
type Registry struct {
	store    *storage.PortStore[*Imposter]
	resolver *resolver
	log      *slog.Logger

	allowInjection bool
	stopTimeout    time.Duration
	proxyTimeout   time.Duration

	mu sync.Mutex
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the operational logger.
func WithLogger(log *slog.Logger) Option {
	return func(r *Registry) {
		if log != nil {
			r.log = log
		}
	}
}

// WithInjection enables inject predicates and inject responses, which
// execute caller-supplied expressions. Off by default.
func WithInjection(allow bool) Option {
	return func(r *Registry) {
		r.allowInjection = allow
	}
}

// WithStopTimeout bounds how long deletes wait for in-flight requests.
func WithStopTimeout(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.stopTimeout = d
		}
	}
}

// WithProxyTimeout bounds one proxy forwarding round trip.
func WithProxyTimeout(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.proxyTimeout = d
		}
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		store:        storage.NewPortStore[*Imposter](),
		log:          logging.Nop(),
		stopTimeout:  defaultStopTimeout,
		proxyTimeout: defaultProxyTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.resolver = &resolver{
		eval:           matching.NewEvaluator(r.allowInjection, r.log),
		forward:        newForwarder(r.proxyTimeout),
		allowInjection: r.allowInjection,
		log:            r.log,
	}
	return r
}

// AllowsInjection reports whether inject expressions are enabled.
func (r *Registry) AllowsInjection() bool { return r.allowInjection }

// Create validates the config, starts a protocol adapter for it, and
// registers the imposter under its port. Port zero requests an
// ephemeral port, filled in on the returned imposter. A failed create
// leaves no partial state behind.
func (r *Registry) Create(ctx context.Context, cfg imposter.Config) (*Imposter, error) {
	if err := r.validate(&cfg); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.createLocked(ctx, cfg)
}

func (r *Registry) validate(cfg *imposter.Config) error {
	if !cfg.Protocol.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidProtocol, cfg.Protocol)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if !r.allowInjection && cfg.UsesInjection() {
		return ErrInjectionDisabled
	}
	return nil
}

func (r *Registry) createLocked(ctx context.Context, cfg imposter.Config) (*Imposter, error) {
	if cfg.Port != 0 && r.store.Exists(cfg.Port) {
		return nil, fmt.Errorf("port %d: %w", cfg.Port, ErrPortInUse)
	}

	imp := newImposter(cfg, r.resolver, r.log)
	adapter, err := protocol.New(&imp.cfg, imp, r.log)
	if err != nil {
		return nil, err
	}
	if err := adapter.Start(ctx); err != nil {
		recordErrorKind("bind")
		return nil, classifyBindError(cfg.Host, cfg.Port, err)
	}

	imp.setPort(adapter.Port())
	imp.adapter = adapter

	if !r.store.Put(imp.Port(), imp) {
		stopCtx, cancel := context.WithTimeout(context.Background(), r.stopTimeout)
		defer cancel()
		_ = adapter.Stop(stopCtx)
		return nil, fmt.Errorf("port %d: %w", imp.Port(), ErrPortInUse)
	}

	addImposterCount(imp.Protocol(), 1)
	r.log.Info("imposter created",
		"protocol", imp.Protocol(), "port", imp.Port(), "name", imp.Name())
	return imp, nil
}

// Get returns the imposter bound to port, or ErrNotFound.
func (r *Registry) Get(port int) (*Imposter, error) {
	imp, ok := r.store.Get(port)
	if !ok {
		return nil, fmt.Errorf("port %d: %w", port, ErrNotFound)
	}
	return imp, nil
}

// List returns all imposters in ascending port order.
func (r *Registry) List() []*Imposter { return r.store.List() }

// Count returns the number of live imposters.
func (r *Registry) Count() int { return r.store.Count() }

// Delete stops the imposter on port, waits for its in-flight requests
// to drain, and releases the socket before returning, so the port is
// immediately reusable. Deleting an unknown port is a no-op success
// returning a nil imposter.
func (r *Registry) Delete(ctx context.Context, port int) (*Imposter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.deleteLocked(ctx, port)
}

func (r *Registry) deleteLocked(ctx context.Context, port int) (*Imposter, error) {
	imp, ok := r.store.Delete(port)
	if !ok {
		return nil, nil
	}
	if err := r.stopImposter(ctx, imp); err != nil {
		return imp, err
	}
	return imp, nil
}

func (r *Registry) stopImposter(ctx context.Context, imp *Imposter) error {
	stopCtx := ctx
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		stopCtx, cancel = context.WithTimeout(ctx, r.stopTimeout)
		defer cancel()
	}

	err := imp.adapter.Stop(stopCtx)
	addImposterCount(imp.Protocol(), -1)
	if err != nil {
		r.log.Warn("imposter stop failed",
			"protocol", imp.Protocol(), "port", imp.Port(), "error", err)
		return fmt.Errorf("stop imposter on port %d: %w", imp.Port(), err)
	}
	r.log.Info("imposter deleted", "protocol", imp.Protocol(), "port", imp.Port())
	return nil
}

// DeleteAll deletes every imposter and returns the deleted set in port
// order.
func (r *Registry) DeleteAll(ctx context.Context) ([]*Imposter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.deleteAllLocked(ctx)
}

func (r *Registry) deleteAllLocked(ctx context.Context) ([]*Imposter, error) {
	imps := r.store.Clear()
	var firstErr error
	for _, imp := range imps {
		if err := r.stopImposter(ctx, imp); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return imps, firstErr
}

// ReplaceAll atomically swaps the registry contents for the given
// configs, the restore half of save/replay. Every config is validated
// and the document checked for internal port conflicts before any
// existing imposter is touched; only then is the old set stopped and
// the new set started. If a member still fails to bind, the members
// already started are stopped and the old set is re-created from its
// saved definitions, so a failed swap leaves prior state in place.
func (r *Registry) ReplaceAll(ctx context.Context, configs []imposter.Config) ([]*Imposter, error) {
	for i := range configs {
		if err := r.validate(&configs[i]); err != nil {
			return nil, fmt.Errorf("imposters[%d]: %w", i, err)
		}
	}
	claimed := make(map[int]struct{}, len(configs))
	for i := range configs {
		port := configs[i].Port
		if port == 0 {
			continue
		}
		if _, dup := claimed[port]; dup {
			return nil, fmt.Errorf("imposters[%d]: port %d requested twice: %w", i, port, ErrPortInUse)
		}
		claimed[port] = struct{}{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	prior := make([]imposter.Config, 0, r.store.Count())
	for _, imp := range r.store.List() {
		prior = append(prior, imp.Config(true, false))
	}

	if _, err := r.deleteAllLocked(ctx); err != nil {
		return nil, err
	}

	created := make([]*Imposter, 0, len(configs))
	for i := range configs {
		imp, err := r.createLocked(ctx, configs[i])
		if err != nil {
			for _, prev := range created {
				_, _ = r.deleteLocked(ctx, prev.Port())
			}
			r.rollbackLocked(ctx, prior)
			return nil, fmt.Errorf("imposters[%d]: %w", i, err)
		}
		created = append(created, imp)
	}
	return created, nil
}

// rollbackLocked re-creates imposters from definitions captured before a
// failed swap. Best effort: a port stolen by a foreign process between
// teardown and rollback is logged and skipped.
func (r *Registry) rollbackLocked(ctx context.Context, configs []imposter.Config) {
	for i := range configs {
		if _, err := r.createLocked(ctx, configs[i]); err != nil {
			r.log.Warn("rollback of replaced imposter failed",
				"port", configs[i].Port, "error", err)
		}
	}
}

// Close stops every imposter and is the registry's teardown.
func (r *Registry) Close(ctx context.Context) error {
	_, err := r.DeleteAll(ctx)
	return err
}

// AddStub inserts a stub into the imposter on port at index; index -1
// appends.
func (r *Registry) AddStub(port int, stub imposter.Stub, index int) error {
	imp, err := r.Get(port)
	if err != nil {
		return err
	}
	if err := r.validateStub(&stub, imp.Protocol()); err != nil {
		return err
	}
	return imp.addStub(stub, index)
}

// ReplaceAllStubs swaps the imposter's entire stub list.
func (r *Registry) ReplaceAllStubs(port int, stubs []imposter.Stub) error {
	imp, err := r.Get(port)
	if err != nil {
		return err
	}
	for i := range stubs {
		if err := r.validateStub(&stubs[i], imp.Protocol()); err != nil {
			return fmt.Errorf("stubs[%d]: %w", i, err)
		}
	}
	imp.replaceAllStubs(stubs)
	return nil
}

// ReplaceStub swaps the stub at index on the imposter bound to port.
func (r *Registry) ReplaceStub(port, index int, stub imposter.Stub) error {
	imp, err := r.Get(port)
	if err != nil {
		return err
	}
	if err := r.validateStub(&stub, imp.Protocol()); err != nil {
		return err
	}
	return imp.replaceStub(index, stub)
}

// RemoveStub deletes the stub at index on the imposter bound to port.
func (r *Registry) RemoveStub(port, index int) error {
	imp, err := r.Get(port)
	if err != nil {
		return err
	}
	return imp.removeStub(index)
}

// ClearRequests drops the request journal and counter of the imposter
// on port.
func (r *Registry) ClearRequests(port int) error {
	imp, err := r.Get(port)
	if err != nil {
		return err
	}
	imp.clearRequests()
	return nil
}

// ClearProxyResponses drops all recorded proxy responses of the
// imposter on port so its proxies record fresh again.
func (r *Registry) ClearProxyResponses(port int) error {
	imp, err := r.Get(port)
	if err != nil {
		return err
	}
	imp.clearProxyResponses()
	return nil
}

func (r *Registry) validateStub(stub *imposter.Stub, proto imposter.Protocol) error {
	if err := imposter.ValidateStub(stub, proto); err != nil {
		return err
	}
	if !r.allowInjection && stub.UsesInjection() {
		return ErrInjectionDisabled
	}
	return nil
}
