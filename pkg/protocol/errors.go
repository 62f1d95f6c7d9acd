package protocol

// Error is a simple error type for adapter errors.
// It allows defining sentinel errors as constants.
type Error string

// Error implements the error interface.
func (e Error) Error() string { return string(e) }

// Sentinel errors for adapter lifecycle operations.
const (
	// ErrUnsupportedProtocol is returned by New for a protocol outside
	// the closed set of adapter variants.
	ErrUnsupportedProtocol = Error("unsupported protocol")

	// ErrAlreadyStarted is returned when starting an adapter that is
	// already serving.
	ErrAlreadyStarted = Error("adapter is already started")

	// ErrNilResponder is returned when constructing an adapter without
	// a responder to dispatch requests to.
	ErrNilResponder = Error("responder cannot be nil")
)
