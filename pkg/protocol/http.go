package protocol

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/getimposd/imposd/pkg/httputil"
	"github.com/getimposd/imposd/pkg/imposter"
	itls "github.com/getimposd/imposd/pkg/tls"
	"github.com/getimposd/imposd/pkg/util"
)

// httpAdapter serves http and https imposters. One instance owns one
// listener; requests are decoded per HTTP exchange and dispatched to the
// responder on the connection's goroutine.
type httpAdapter struct {
	cfg       *imposter.Config
	responder Responder
	secure    bool
	log       *slog.Logger

	mu       sync.Mutex
	running  bool
	port     int
	listener net.Listener
	server   *http.Server
}

func newHTTPAdapter(cfg *imposter.Config, responder Responder, secure bool, log *slog.Logger) *httpAdapter {
	return &httpAdapter{
		cfg:       cfg,
		responder: responder,
		secure:    secure,
		log:       log,
		port:      cfg.Port,
	}
}

// Protocol returns http or https.
func (a *httpAdapter) Protocol() imposter.Protocol {
	if a.secure {
		return imposter.ProtocolHTTPS
	}
	return imposter.ProtocolHTTP
}

// Port returns the bound port.
func (a *httpAdapter) Port() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.port
}

// Start binds the listener and begins serving in the background.
func (a *httpAdapter) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.running {
		return ErrAlreadyStarted
	}

	ln, err := net.Listen("tcp", listenAddr(a.cfg))
	if err != nil {
		return err
	}
	a.port = boundPort(ln)

	if a.secure {
		cert, err := itls.ServerCertificate(a.cfg.Host, []byte(a.cfg.Cert), []byte(a.cfg.Key))
		if err != nil {
			_ = ln.Close()
			return err
		}
		ln = tls.NewListener(ln, &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		})
	}

	a.listener = ln
	a.server = &http.Server{
		Handler:           http.HandlerFunc(a.handle),
		ReadHeaderTimeout: 10 * time.Second,
	}
	a.running = true

	srv, port := a.server, a.port
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			a.log.Error("imposter server stopped unexpectedly", "port", port, "error", err)
		}
	}()

	return nil
}

// Stop shuts the server down, waiting for in-flight requests bounded by
// ctx. The listener is closed immediately so the port is reusable as
// soon as Stop returns.
func (a *httpAdapter) Stop(ctx context.Context) error {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return nil
	}
	a.running = false
	srv := a.server
	a.mu.Unlock()

	if err := srv.Shutdown(ctx); err != nil {
		// Drain deadline hit: force-close remaining connections.
		_ = srv.Close()
		return err
	}
	return nil
}

func (a *httpAdapter) handle(w http.ResponseWriter, r *http.Request) {
	req := decodeHTTPRequest(r)
	a.log.Debug("request received", "port", a.Port(), "method", req.Method, "path", req.Path,
		"body", util.TruncateBody(req.Body, 0))

	resp, err := a.responder.Respond(r.Context(), req)
	if err != nil {
		a.log.Warn("request resolution failed", "port", a.Port(), "path", req.Path, "error", err)
		writeHTTPError(w, err)
		return
	}
	writeHTTPResponse(w, resp)
}

// decodeHTTPRequest converts an inbound HTTP exchange into the
// protocol-neutral request envelope.
func decodeHTTPRequest(r *http.Request) *imposter.Request {
	query := make(map[string]any)
	for key, values := range r.URL.Query() {
		if len(values) == 1 {
			query[key] = values[0]
		} else {
			vs := make([]any, len(values))
			for i, v := range values {
				vs[i] = v
			}
			query[key] = vs
		}
	}

	headers := make(map[string]string, len(r.Header))
	for key, values := range r.Header {
		headers[key] = strings.Join(values, ", ")
	}

	var body string
	if r.Body != nil {
		if raw, err := io.ReadAll(r.Body); err == nil {
			body = string(raw)
		}
	}

	return &imposter.Request{
		RequestFrom: r.RemoteAddr,
		Method:      r.Method,
		Path:        r.URL.Path,
		Query:       query,
		Headers:     headers,
		Body:        body,
		Timestamp:   time.Now().UTC(),
	}
}

func writeHTTPResponse(w http.ResponseWriter, resp *imposter.ISResponse) {
	if resp == nil {
		w.WriteHeader(http.StatusOK)
		return
	}

	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}

	status := resp.StatusCode
	if status == 0 {
		status = http.StatusOK
	}

	body := []byte(resp.Body)
	if resp.Mode == imposter.ModeBinary {
		if decoded, err := base64.StdEncoding.DecodeString(resp.Body); err == nil {
			body = decoded
		}
	}

	w.WriteHeader(status)
	if len(body) > 0 {
		_, _ = w.Write(body)
	}
}

// writeHTTPError reports a resolution failure as a 500 with the same
// error document shape the management API uses.
func writeHTTPError(w http.ResponseWriter, err error) {
	httputil.WriteError(w, http.StatusInternalServerError, "proxy error", err.Error())
}
