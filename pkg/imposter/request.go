package imposter

import (
	"time"
)

// Request is the protocol-neutral envelope a Protocol Adapter decodes from
// the wire. Field population is protocol-specific: http/https fill Method
// through Body, tcp fills Data, smtp fills the envelope fields. Requests
// are recorded verbatim when the imposter has recordRequests set.
type Request struct {
	// RequestFrom is the remote address the request arrived from.
	RequestFrom string `json:"requestFrom,omitempty"`

	Method  string            `json:"method,omitempty"`
	Path    string            `json:"path,omitempty"`
	Query   map[string]any    `json:"query,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    string            `json:"body,omitempty"`

	// Data is the raw tcp payload (base64 when the imposter is binary mode).
	Data string `json:"data,omitempty"`

	// SMTP envelope.
	EnvelopeFrom string   `json:"envelopeFrom,omitempty"`
	EnvelopeTo   []string `json:"envelopeTo,omitempty"`
	From         string   `json:"from,omitempty"`
	To           []string `json:"to,omitempty"`
	Subject      string   `json:"subject,omitempty"`
	Text         string   `json:"text,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}

// Fields exposes the request as predicate-addressable fields keyed by the
// names predicates use (method, path, query, headers, body, data,
// envelopeFrom, ...). Only populated fields are present so that exists
// predicates can detect absence.
func (r *Request) Fields() map[string]any {
	fields := make(map[string]any)
	if r.RequestFrom != "" {
		fields["requestFrom"] = r.RequestFrom
	}
	if r.Method != "" {
		fields["method"] = r.Method
	}
	if r.Path != "" {
		fields["path"] = r.Path
	}
	if len(r.Query) > 0 {
		q := make(map[string]any, len(r.Query))
		for k, v := range r.Query {
			q[k] = v
		}
		fields["query"] = q
	}
	if len(r.Headers) > 0 {
		h := make(map[string]any, len(r.Headers))
		for k, v := range r.Headers {
			h[k] = v
		}
		fields["headers"] = h
	}
	if r.Body != "" {
		fields["body"] = r.Body
	}
	if r.Data != "" {
		fields["data"] = r.Data
	}
	if r.EnvelopeFrom != "" {
		fields["envelopeFrom"] = r.EnvelopeFrom
	}
	if len(r.EnvelopeTo) > 0 {
		fields["envelopeTo"] = anySlice(r.EnvelopeTo)
	}
	if r.From != "" {
		fields["from"] = r.From
	}
	if len(r.To) > 0 {
		fields["to"] = anySlice(r.To)
	}
	if r.Subject != "" {
		fields["subject"] = r.Subject
	}
	if r.Text != "" {
		fields["text"] = r.Text
	}
	return fields
}

func anySlice(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
