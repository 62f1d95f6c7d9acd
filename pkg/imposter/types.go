// Package imposter defines the wire-shape types for imposters, stubs,
// predicates, and responses. These shapes are the management API contract
// and the snapshot document format.
package imposter

import (
	"encoding/json"
)

// Protocol identifies the wire protocol an imposter speaks.
type Protocol string

const (
	ProtocolHTTP  Protocol = "http"
	ProtocolHTTPS Protocol = "https"
	ProtocolTCP   Protocol = "tcp"
	ProtocolSMTP  Protocol = "smtp"
)

// Valid reports whether p is a supported protocol.
func (p Protocol) Valid() bool {
	switch p {
	case ProtocolHTTP, ProtocolHTTPS, ProtocolTCP, ProtocolSMTP:
		return true
	}
	return false
}

// Config is the declarative definition of one imposter. It is what callers
// POST to /imposters and what snapshots store per imposter.
type Config struct {
	// Protocol the imposter speaks (http, https, tcp, smtp).
	Protocol Protocol `json:"protocol"`

	// Port to bind. Zero requests an ephemeral port; the registry fills in
	// the assigned port before the imposter is visible.
	Port int `json:"port,omitempty"`

	// Host is an optional bind address. Empty means all interfaces.
	Host string `json:"host,omitempty"`

	// Name is a display label carried through unchanged.
	Name string `json:"name,omitempty"`

	// RecordRequests enables verbatim capture of every request the
	// imposter receives, independent of stub matching.
	RecordRequests bool `json:"recordRequests,omitempty"`

	// DefaultResponse is merged under every resolved `is` payload and used
	// when no stub matches.
	DefaultResponse *ISResponse `json:"defaultResponse,omitempty"`

	// Stubs in match-priority order.
	Stubs []Stub `json:"stubs"`

	// Mode selects text or binary payload handling for tcp imposters.
	// Binary payloads travel base64-encoded.
	Mode string `json:"mode,omitempty"`

	// EndOfRequest is the byte sequence terminating one tcp request. When
	// empty a single read is treated as a complete request.
	EndOfRequest string `json:"endOfRequest,omitempty"`

	// Key and Cert are PEM blocks for https imposters. When absent a
	// self-signed certificate is generated at start.
	Key  string `json:"key,omitempty"`
	Cert string `json:"cert,omitempty"`
}

// TCP payload modes.
const (
	ModeText   = "text"
	ModeBinary = "binary"
)

// Stub pairs an implicitly-ANDed predicate list with an ordered response
// sequence. An empty predicate list matches every request.
type Stub struct {
	Predicates []Predicate `json:"predicates,omitempty"`
	Responses  []Response  `json:"responses,omitempty"`
}

// UsesInjection reports whether any stub relies on inject expressions,
// either as a response or inside a predicate. Servers started without
// injection enabled reject such configs.
func (c *Config) UsesInjection() bool {
	for i := range c.Stubs {
		if c.Stubs[i].UsesInjection() {
			return true
		}
	}
	return false
}

// UsesInjection reports whether the stub has an inject response or an
// inject predicate.
func (s *Stub) UsesInjection() bool {
	for i := range s.Responses {
		if s.Responses[i].Inject != "" {
			return true
		}
	}
	for i := range s.Predicates {
		if s.Predicates[i].usesInjection() {
			return true
		}
	}
	return false
}

func (p *Predicate) usesInjection() bool {
	if p.Inject != "" {
		return true
	}
	if p.Not != nil && p.Not.usesInjection() {
		return true
	}
	for i := range p.And {
		if p.And[i].usesInjection() {
			return true
		}
	}
	for i := range p.Or {
		if p.Or[i].usesInjection() {
			return true
		}
	}
	return false
}

// Response is one entry in a stub's response sequence: a tagged variant
// holding exactly one of a literal payload (is), a forwarding instruction
// (proxy), or a computed response (inject).
type Response struct {
	Is        *ISResponse    `json:"is,omitempty"`
	Proxy     *ProxyResponse `json:"proxy,omitempty"`
	Inject    string         `json:"inject,omitempty"`
	Behaviors *Behaviors     `json:"_behaviors,omitempty"`
}

// ResponseKind discriminates the Response variant.
type ResponseKind int

const (
	KindUnknown ResponseKind = iota
	KindIs
	KindProxy
	KindInject
)

// Kind returns which variant this response holds.
func (r *Response) Kind() ResponseKind {
	switch {
	case r.Is != nil:
		return KindIs
	case r.Proxy != nil:
		return KindProxy
	case r.Inject != "":
		return KindInject
	default:
		return KindUnknown
	}
}

// ISResponse is a literal response payload. Field meaning is
// protocol-specific: http/https use StatusCode/Headers/Body, tcp uses Data,
// smtp uses StatusCode as the DATA reply code and Body as its text.
type ISResponse struct {
	StatusCode int               `json:"statusCode,omitempty"`
	Headers    map[string]string `json:"headers,omitempty"`
	Body       string            `json:"body,omitempty"`

	// Mode overrides the imposter-level payload mode for this response
	// (http body or tcp data; binary means base64).
	Mode string `json:"_mode,omitempty"`

	// Data is the tcp payload.
	Data string `json:"data,omitempty"`
}

// UnmarshalJSON accepts the body field as either a string or any JSON
// value. Object and array bodies are stored re-serialized, so config files
// can write body: {"id": 1} instead of escaping it into a string.
func (r *ISResponse) UnmarshalJSON(data []byte) error {
	var proxy struct {
		StatusCode int               `json:"statusCode"`
		Headers    map[string]string `json:"headers"`
		Body       json.RawMessage   `json:"body"`
		Mode       string            `json:"_mode"`
		Data       string            `json:"data"`
	}
	if err := json.Unmarshal(data, &proxy); err != nil {
		return err
	}

	r.StatusCode = proxy.StatusCode
	r.Headers = proxy.Headers
	r.Mode = proxy.Mode
	r.Data = proxy.Data

	if len(proxy.Body) == 0 {
		r.Body = ""
		return nil
	}

	var s string
	if err := json.Unmarshal(proxy.Body, &s); err == nil {
		r.Body = s
		return nil
	}

	// Object, array, number, or boolean: keep the raw JSON text.
	r.Body = string(proxy.Body)
	return nil
}

// Clone returns a deep copy.
func (r *ISResponse) Clone() *ISResponse {
	if r == nil {
		return nil
	}
	clone := *r
	if r.Headers != nil {
		clone.Headers = make(map[string]string, len(r.Headers))
		for k, v := range r.Headers {
			clone.Headers[k] = v
		}
	}
	return &clone
}

// Merge overlays r on top of defaults and returns the combined payload.
// Zero-valued fields of r fall back to the default's value.
func (r *ISResponse) Merge(defaults *ISResponse) *ISResponse {
	if defaults == nil {
		return r.Clone()
	}
	if r == nil {
		return defaults.Clone()
	}
	out := defaults.Clone()
	if r.StatusCode != 0 {
		out.StatusCode = r.StatusCode
	}
	if r.Body != "" {
		out.Body = r.Body
	}
	if r.Mode != "" {
		out.Mode = r.Mode
	}
	if r.Data != "" {
		out.Data = r.Data
	}
	if len(r.Headers) > 0 {
		if out.Headers == nil {
			out.Headers = make(map[string]string, len(r.Headers))
		}
		for k, v := range r.Headers {
			out.Headers[k] = v
		}
	}
	return out
}

// ProxyMode governs whether and how a live origin response is recorded
// into the stub for future replay.
type ProxyMode string

const (
	// ProxyOnce records the first live result and converts the stub's
	// response entry into an `is` thereafter.
	ProxyOnce ProxyMode = "proxyOnce"

	// ProxyAlways always forwards live and appends each origin response as
	// a newly recorded `is` entry.
	ProxyAlways ProxyMode = "proxyAlways"

	// ProxyTransparent always forwards live and never records.
	ProxyTransparent ProxyMode = "proxyTransparent"
)

// Valid reports whether m is a recognized proxy mode.
func (m ProxyMode) Valid() bool {
	switch m {
	case ProxyOnce, ProxyAlways, ProxyTransparent:
		return true
	}
	return false
}

// ProxyResponse forwards the request to a live origin.
type ProxyResponse struct {
	// To is the origin: a URL for http/https ("http://origin:8080"),
	// host:port for tcp.
	To string `json:"to"`

	// Mode defaults to proxyOnce when empty.
	Mode ProxyMode `json:"mode,omitempty"`
}

// EffectiveMode returns the configured mode, defaulting to proxyOnce.
func (p *ProxyResponse) EffectiveMode() ProxyMode {
	if p.Mode == "" {
		return ProxyOnce
	}
	return p.Mode
}

// Behaviors decorate a response entry with resolution-time effects.
type Behaviors struct {
	// Wait delays the response.
	Wait *Wait `json:"wait,omitempty"`

	// Repeat keeps the cursor on this entry for N matches before it
	// advances.
	Repeat int `json:"repeat,omitempty"`
}

// Wait is a latency injection: either a fixed duration or a uniformly
// random one from [Min, Max], all in milliseconds.
type Wait struct {
	Fixed int `json:"-"`
	Min   int `json:"min,omitempty"`
	Max   int `json:"max,omitempty"`
}

// UnmarshalJSON accepts either a bare number of milliseconds or a
// {"min": n, "max": m} range.
func (w *Wait) UnmarshalJSON(data []byte) error {
	var fixed int
	if err := json.Unmarshal(data, &fixed); err == nil {
		w.Fixed = fixed
		return nil
	}
	type waitAlias Wait
	return json.Unmarshal(data, (*waitAlias)(w))
}

// MarshalJSON emits the same shape that was parsed: a bare number for
// fixed waits, an object for ranges.
func (w Wait) MarshalJSON() ([]byte, error) {
	if w.Min == 0 && w.Max == 0 {
		return json.Marshal(w.Fixed)
	}
	type waitAlias Wait
	return json.Marshal(waitAlias(w))
}

// Predicate is one condition evaluated against a request. Operator fields
// map request field names to expected values; exactly one operator should
// be set per predicate (and/or/not/inject compose them).
type Predicate struct {
	Equals     map[string]any `json:"equals,omitempty"`
	DeepEquals map[string]any `json:"deepEquals,omitempty"`
	Contains   map[string]any `json:"contains,omitempty"`
	StartsWith map[string]any `json:"startsWith,omitempty"`
	EndsWith   map[string]any `json:"endsWith,omitempty"`
	Matches    map[string]any `json:"matches,omitempty"`
	Exists     map[string]any `json:"exists,omitempty"`

	Not *Predicate  `json:"not,omitempty"`
	And []Predicate `json:"and,omitempty"`
	Or  []Predicate `json:"or,omitempty"`

	// Inject is a boolean expression evaluated with the request in scope.
	Inject string `json:"inject,omitempty"`

	// JSONPath narrows the body to the selector's result before the
	// operator applies.
	JSONPath *Selector `json:"jsonpath,omitempty"`

	// XPath narrows the body the same way for XML payloads.
	XPath *Selector `json:"xpath,omitempty"`

	// CaseSensitive disables the default case-insensitive comparison.
	CaseSensitive bool `json:"caseSensitive,omitempty"`

	// Except is a regular expression stripped from actual values before
	// comparison.
	Except string `json:"except,omitempty"`
}

// Selector holds a jsonpath or xpath expression.
type Selector struct {
	Selector string `json:"selector"`
}

// Document is the snapshot format: the full set of imposters as plain
// structured text, round-trippable through save and replay.
type Document struct {
	Imposters []Config `json:"imposters"`
}
