package protocol

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/getimposd/imposd/pkg/imposter"
)

// captureResponder records every request and returns a fixed response.
type captureResponder struct {
	mu   sync.Mutex
	reqs []*imposter.Request
	resp *imposter.ISResponse
	err  error
}

func (c *captureResponder) Respond(_ context.Context, req *imposter.Request) (*imposter.ISResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reqs = append(c.reqs, req)
	return c.resp, c.err
}

func (c *captureResponder) requests() []*imposter.Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*imposter.Request(nil), c.reqs...)
}

func TestNewAdapterVariants(t *testing.T) {
	responder := &captureResponder{}

	tests := []struct {
		protocol imposter.Protocol
		want     imposter.Protocol
	}{
		{imposter.ProtocolHTTP, imposter.ProtocolHTTP},
		{imposter.ProtocolHTTPS, imposter.ProtocolHTTPS},
		{imposter.ProtocolTCP, imposter.ProtocolTCP},
		{imposter.ProtocolSMTP, imposter.ProtocolSMTP},
	}
	for _, tt := range tests {
		t.Run(string(tt.protocol), func(t *testing.T) {
			a, err := New(&imposter.Config{Protocol: tt.protocol}, responder, nil)
			if err != nil {
				t.Fatalf("New() error: %v", err)
			}
			if a.Protocol() != tt.want {
				t.Errorf("Protocol() = %q, want %q", a.Protocol(), tt.want)
			}
		})
	}
}

func TestNewAdapterRejectsUnknownProtocol(t *testing.T) {
	_, err := New(&imposter.Config{Protocol: "mqtt"}, &captureResponder{}, nil)
	if !errors.Is(err, ErrUnsupportedProtocol) {
		t.Errorf("New() error = %v, want ErrUnsupportedProtocol", err)
	}
}

func TestNewAdapterRejectsNilResponder(t *testing.T) {
	_, err := New(&imposter.Config{Protocol: imposter.ProtocolHTTP}, nil, nil)
	if !errors.Is(err, ErrNilResponder) {
		t.Errorf("New() error = %v, want ErrNilResponder", err)
	}
}
