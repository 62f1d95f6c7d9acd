package engine

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/getimposd/imposd/pkg/imposter"
)

const (
	// maxProxyBodySize caps how much of an origin response body is
	// buffered and recorded (10MB).
	maxProxyBodySize = 10 * 1024 * 1024

	// defaultProxyTimeout bounds one forwarding round trip.
	defaultProxyTimeout = 30 * time.Second
)

// forwarder performs the live origin calls behind proxy responses. One
// forwarder is shared by all imposters in a registry.
type forwarder struct {
	client  *http.Client
	timeout time.Duration
}

func newForwarder(timeout time.Duration) *forwarder {
	if timeout <= 0 {
		timeout = defaultProxyTimeout
	}
	return &forwarder{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				//nolint:gosec // G402: proxy origins routinely present self-signed certificates
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		},
		timeout: timeout,
	}
}

// forward sends the request to the origin named by proxy.to using the
// imposter's own protocol and returns the origin's response as a
// recordable payload.
func (f *forwarder) forward(ctx context.Context, proto imposter.Protocol, target string, req *imposter.Request, binary bool) (*imposter.ISResponse, error) {
	switch proto {
	case imposter.ProtocolHTTP, imposter.ProtocolHTTPS:
		return f.forwardHTTP(ctx, target, req)
	case imposter.ProtocolTCP:
		return f.forwardTCP(ctx, target, req, binary)
	default:
		return nil, fmt.Errorf("%s imposters cannot proxy", proto)
	}
}

// forwardHTTP replays the decoded request against an http(s) origin.
func (f *forwarder) forwardHTTP(ctx context.Context, target string, req *imposter.Request) (*imposter.ISResponse, error) {
	base, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("parse proxy target %q: %w", target, err)
	}
	base.Path = joinURLPath(base.Path, req.Path)
	base.RawQuery = encodeQuery(req.Query)

	out, err := http.NewRequestWithContext(ctx, req.Method, base.String(), strings.NewReader(req.Body))
	if err != nil {
		return nil, fmt.Errorf("build proxy request: %w", err)
	}
	for name, value := range req.Headers {
		out.Header.Set(name, value)
	}
	removeHopByHopHeaders(out.Header)
	out.Header.Set("X-Forwarded-For", hostOnly(req.RequestFrom))
	out.Host = base.Host

	resp, err := f.client.Do(out)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProxyBodySize))
	if err != nil {
		return nil, fmt.Errorf("read origin response: %w", err)
	}

	rec := &imposter.ISResponse{
		StatusCode: resp.StatusCode,
		Headers:    make(map[string]string, len(resp.Header)),
	}
	for name, values := range resp.Header {
		rec.Headers[name] = strings.Join(values, ", ")
	}
	if utf8.Valid(body) {
		rec.Body = string(body)
	} else {
		rec.Body = base64.StdEncoding.EncodeToString(body)
		rec.Mode = imposter.ModeBinary
	}
	return rec, nil
}

// forwardTCP writes the request payload to a tcp origin and reads one
// response chunk back, mirroring the adapter's single-read framing.
func (f *forwarder) forwardTCP(ctx context.Context, target string, req *imposter.Request, binary bool) (*imposter.ISResponse, error) {
	if u, err := url.Parse(target); err == nil && u.Scheme == "tcp" {
		target = u.Host
	}

	dialer := net.Dialer{Timeout: f.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", target)
	if err != nil {
		return nil, err
	}
	defer func() { _ = conn.Close() }()
	_ = conn.SetDeadline(time.Now().Add(f.timeout))

	payload := []byte(req.Data)
	if binary {
		decoded, err := base64.StdEncoding.DecodeString(req.Data)
		if err != nil {
			return nil, fmt.Errorf("decode binary payload: %w", err)
		}
		payload = decoded
	}
	if _, err := conn.Write(payload); err != nil {
		return nil, fmt.Errorf("write to origin: %w", err)
	}

	buf := make([]byte, 64*1024)
	n, err := conn.Read(buf)
	if err != nil && n == 0 {
		return nil, fmt.Errorf("read origin response: %w", err)
	}

	rec := &imposter.ISResponse{}
	if binary {
		rec.Data = base64.StdEncoding.EncodeToString(buf[:n])
		rec.Mode = imposter.ModeBinary
	} else {
		rec.Data = string(buf[:n])
	}
	return rec, nil
}

// joinURLPath glues the origin base path and the request path without
// doubling slashes.
func joinURLPath(base, req string) string {
	switch {
	case base == "" || base == "/":
		return req
	case req == "":
		return base
	}
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(req, "/")
}

// encodeQuery rebuilds the raw query from the decoded scalar-or-list
// parameter map.
func encodeQuery(query map[string]any) string {
	if len(query) == 0 {
		return ""
	}
	values := url.Values{}
	for key, v := range query {
		switch val := v.(type) {
		case []any:
			for _, item := range val {
				values.Add(key, fmt.Sprint(item))
			}
		case []string:
			for _, item := range val {
				values.Add(key, item)
			}
		default:
			values.Add(key, fmt.Sprint(val))
		}
	}
	return values.Encode()
}

// hostOnly strips the port from a remote address when present.
func hostOnly(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

// removeHopByHopHeaders drops headers that must not travel past one
// hop.
func removeHopByHopHeaders(h http.Header) {
	for _, name := range []string{
		"Connection",
		"Keep-Alive",
		"Proxy-Authenticate",
		"Proxy-Authorization",
		"Proxy-Connection",
		"TE",
		"Trailers",
		"Transfer-Encoding",
		"Upgrade",
	} {
		h.Del(name)
	}
}
