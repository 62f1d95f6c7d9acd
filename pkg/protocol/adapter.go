package protocol

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"

	"github.com/getimposd/imposd/pkg/imposter"
	"github.com/getimposd/imposd/pkg/logging"
)

// Responder resolves a decoded request into a response. It is implemented
// by the engine's imposter runtime and is safe for concurrent use.
//
// A nil response with a nil error means "no content": the adapter writes
// its protocol-specific empty response. A non-nil error means resolution
// failed in a way the stubbed service cannot express (typically an
// unreachable proxy target); the adapter translates it into the
// protocol's best-effort error shape.
type Responder interface {
	Respond(ctx context.Context, req *imposter.Request) (*imposter.ISResponse, error)
}

// ResponderFunc adapts a function to the Responder interface.
type ResponderFunc func(ctx context.Context, req *imposter.Request) (*imposter.ISResponse, error)

// Respond implements Responder.
func (f ResponderFunc) Respond(ctx context.Context, req *imposter.Request) (*imposter.ISResponse, error) {
	return f(ctx, req)
}

// Adapter is the capability contract every protocol variant implements.
type Adapter interface {
	// Protocol returns the wire protocol this adapter terminates.
	Protocol() imposter.Protocol

	// Port returns the bound port. For configs requesting port 0 the
	// value is only meaningful after Start.
	Port() int

	// Start binds the listener and begins serving in the background.
	// A bind failure is returned as-is so callers can distinguish
	// port-in-use from unassignable addresses.
	Start(ctx context.Context) error

	// Stop closes the listener, waits for in-flight requests bounded
	// by ctx, and releases the port before returning. It is idempotent.
	Stop(ctx context.Context) error
}

// New constructs the Adapter variant for cfg's protocol.
func New(cfg *imposter.Config, responder Responder, log *slog.Logger) (Adapter, error) {
	if responder == nil {
		return nil, ErrNilResponder
	}
	if log == nil {
		log = logging.Nop()
	}

	switch cfg.Protocol {
	case imposter.ProtocolHTTP:
		return newHTTPAdapter(cfg, responder, false, log), nil
	case imposter.ProtocolHTTPS:
		return newHTTPAdapter(cfg, responder, true, log), nil
	case imposter.ProtocolTCP:
		return newTCPAdapter(cfg, responder, log), nil
	case imposter.ProtocolSMTP:
		return newSMTPAdapter(cfg, responder, log), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProtocol, cfg.Protocol)
	}
}

// listenAddr builds the bind address for a config. An empty host means
// every local interface.
func listenAddr(cfg *imposter.Config) string {
	return net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
}

// boundPort extracts the concrete port from a listener, resolving
// ephemeral port requests.
func boundPort(ln net.Listener) int {
	if addr, ok := ln.Addr().(*net.TCPAddr); ok {
		return addr.Port
	}
	return 0
}
