package admin

import (
	"net/http"
	"time"

	"github.com/google/uuid"
)

// withMiddleware wraps the route mux with the ambient request plumbing:
// correlation IDs, request logging, and panic containment.
func (s *Server) withMiddleware(handler http.Handler) http.Handler {
	return requestID(s.logRequests(s.recoverPanics(handler)))
}

// requestID tags every request with a correlation id, echoed in the
// X-Request-Id response header. Client-supplied ids are kept so callers
// can stitch their own traces together.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the status code a handler writes.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		elapsed := time.Since(start)
		recordAdminRequest(r.Method, r.URL.Path, rec.status, elapsed)
		s.log.Info("admin request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", elapsed,
			"requestId", w.Header().Get("X-Request-Id"),
		)
	})
}

// recoverPanics converts a handler panic into a sanitized 500 so one bad
// request cannot take the admin port down.
func (s *Server) recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				s.log.Error("admin handler panic",
					"panic", v,
					"method", r.Method,
					"path", r.URL.Path,
				)
				writeError(w, http.StatusInternalServerError, codeError, "an unexpected error occurred")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
