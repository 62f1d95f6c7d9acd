package admin

import (
	"errors"
	"net/http"
	"strings"

	"github.com/getimposd/imposd/pkg/engine"
	"github.com/getimposd/imposd/pkg/imposter"
	"github.com/getimposd/imposd/pkg/snapshot"
)

// API error codes. The set is closed; clients switch on these.
const (
	codeBadData          = "bad data"
	codeResourceConflict = "resource conflict"
	codeNoSuchResource   = "no such resource"
	codeInvalidInjection = "invalid injection"
	codeCannotProxy      = "cannot proxy"
	codeError            = "error"
)

// mapRegistryError translates an engine failure into an HTTP status and
// API error code. Errors outside the engine taxonomy collapse to a
// sanitized 500 so internals never leak to clients.
func mapRegistryError(err error) (status int, code, message string) {
	var (
		verr *imposter.ValidationError
		berr *engine.BindError
		rerr *snapshot.RestoreError
	)

	switch {
	case errors.Is(err, engine.ErrPortInUse):
		return http.StatusConflict, codeResourceConflict, err.Error()
	case errors.Is(err, engine.ErrNotFound):
		return http.StatusNotFound, codeNoSuchResource, err.Error()
	case errors.Is(err, engine.ErrInjectionDisabled):
		return http.StatusBadRequest, codeInvalidInjection, err.Error()
	case errors.Is(err, engine.ErrInvalidProtocol):
		return http.StatusBadRequest, codeBadData, err.Error()
	case errors.As(err, &verr):
		// The proxy-incapable protocol rejection keeps its own code so
		// clients can tell an unsupported proxy from plain bad input.
		if strings.Contains(verr.Message, "cannot proxy") {
			return http.StatusBadRequest, codeCannotProxy, err.Error()
		}
		return http.StatusBadRequest, codeBadData, err.Error()
	case errors.As(err, &berr):
		return http.StatusBadRequest, codeBadData, err.Error()
	case errors.As(err, &rerr):
		return http.StatusBadRequest, codeBadData, err.Error()
	}
	return http.StatusInternalServerError, codeError, "an unexpected error occurred"
}

// writeRegistryError reports an engine failure as an error document.
func writeRegistryError(w http.ResponseWriter, err error) {
	status, code, message := mapRegistryError(err)
	writeError(w, status, code, message)
}
