package engine

import (
	"errors"
	"fmt"
	"syscall"
)

// Sentinel errors returned by Registry operations. Callers are expected
// to test with errors.Is; the admin layer maps these onto API error
// codes.
var (
	// ErrPortInUse means the requested port is already claimed, either
	// by another imposter or by a foreign process.
	ErrPortInUse = errors.New("port already in use")

	// ErrInvalidProtocol means the config names a protocol outside the
	// supported set.
	ErrInvalidProtocol = errors.New("invalid protocol")

	// ErrNotFound means no imposter is registered on the given port.
	ErrNotFound = errors.New("no such imposter")

	// ErrProxyUnreachable means a proxy origin could not be reached or
	// did not answer. The imposter keeps serving; only the single
	// request fails.
	ErrProxyUnreachable = errors.New("proxy origin unreachable")

	// ErrInjectionDisabled means a config or stub uses inject but the
	// server was started without injection enabled.
	ErrInjectionDisabled = errors.New("injection is not allowed unless the server is started with injection enabled")
)

// BindError reports a listen failure for a reason other than a port
// conflict, typically a host that is not locally assignable.
type BindError struct {
	Host string
	Port int
	Err  error
}

func (e *BindError) Error() string {
	if e.Host == "" {
		return fmt.Sprintf("cannot bind port %d: %v", e.Port, e.Err)
	}
	return fmt.Sprintf("cannot bind %s:%d: %v", e.Host, e.Port, e.Err)
}

func (e *BindError) Unwrap() error { return e.Err }

// classifyBindError turns a raw listen error into the engine taxonomy:
// address-in-use becomes ErrPortInUse, everything else a BindError
// carrying the OS cause.
func classifyBindError(host string, port int, err error) error {
	if errors.Is(err, syscall.EADDRINUSE) {
		return fmt.Errorf("port %d: %w", port, ErrPortInUse)
	}
	return &BindError{Host: host, Port: port, Err: err}
}
