// Package client is a Go client for the imposd management API. It
// speaks the same JSON shapes the server serves, so a saved document
// can be fed straight back through RestoreImposters.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/getimposd/imposd/pkg/httputil"
	"github.com/getimposd/imposd/pkg/imposter"
	"github.com/getimposd/imposd/pkg/logging"
)

// Client talks to a running management API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the HTTP timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// New creates a client for the management API at baseURL, for example
// "http://localhost:2525".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Health checks whether the server answers on /health.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.get(ctx, "/health")
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

// Config returns the server's version, runtime options and process info.
func (c *Client) Config(ctx context.Context) (*ServerConfig, error) {
	resp, err := c.get(ctx, "/config")
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	var cfg ServerConfig
	if err := json.NewDecoder(resp.Body).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

// Logs returns retained server log entries. Pass a negative startIndex
// or endIndex to leave the bound open.
func (c *Client) Logs(ctx context.Context, startIndex, endIndex int) ([]logging.Entry, error) {
	q := url.Values{}
	if startIndex >= 0 {
		q.Set("startIndex", strconv.Itoa(startIndex))
	}
	if endIndex >= 0 {
		q.Set("endIndex", strconv.Itoa(endIndex))
	}
	path := "/logs"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	resp, err := c.get(ctx, path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	var result logsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode logs: %w", err)
	}
	return result.Logs, nil
}

// ListImposters returns summaries of all running imposters.
func (c *Client) ListImposters(ctx context.Context) ([]ImposterSummary, error) {
	resp, err := c.get(ctx, "/imposters")
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	var result summaryListResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode imposters: %w", err)
	}
	return result.Imposters, nil
}

// SaveImposters fetches all imposters in replayable form, suitable for
// writing to a config file and feeding back through RestoreImposters.
// With removeProxies set, proxy responses are dropped and only their
// recordings remain.
func (c *Client) SaveImposters(ctx context.Context, removeProxies bool) (*imposter.Document, error) {
	path := "/imposters?replayable=true"
	if removeProxies {
		path += "&removeProxies=true"
	}
	resp, err := c.get(ctx, path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	var doc imposter.Document
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode imposters: %w", err)
	}
	return &doc, nil
}

// RestoreImposters replaces every imposter on the server with the ones
// in the document.
func (c *Client) RestoreImposters(ctx context.Context, doc *imposter.Document) ([]ImposterDetail, error) {
	resp, err := c.put(ctx, "/imposters", doc)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	var result detailListResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode imposters: %w", err)
	}
	return result.Imposters, nil
}

// CreateImposter starts a new imposter from the given configuration and
// returns it with any server-assigned port filled in.
func (c *Client) CreateImposter(ctx context.Context, cfg imposter.Config) (*ImposterDetail, error) {
	resp, err := c.post(ctx, "/imposters", cfg)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusCreated {
		return nil, c.parseError(resp)
	}
	return decodeDetail(resp)
}

// GetImposter returns the full view of the imposter on the given port.
func (c *Client) GetImposter(ctx context.Context, port int) (*ImposterDetail, error) {
	resp, err := c.get(ctx, imposterPath(port))
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}
	return decodeDetail(resp)
}

// GetImposterConfig returns the imposter's replayable configuration.
func (c *Client) GetImposterConfig(ctx context.Context, port int, removeProxies bool) (*imposter.Config, error) {
	path := imposterPath(port) + "?replayable=true"
	if removeProxies {
		path += "&removeProxies=true"
	}
	resp, err := c.get(ctx, path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	var cfg imposter.Config
	if err := json.NewDecoder(resp.Body).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode imposter: %w", err)
	}
	return &cfg, nil
}

// DeleteImposter shuts down the imposter on the given port and returns
// its final configuration. Deleting an unknown port is not an error;
// the returned config is nil.
func (c *Client) DeleteImposter(ctx context.Context, port int) (*imposter.Config, error) {
	resp, err := c.delete(ctx, imposterPath(port))
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	var cfg imposter.Config
	if err := json.NewDecoder(resp.Body).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode imposter: %w", err)
	}
	if cfg.Protocol == "" {
		return nil, nil
	}
	return &cfg, nil
}

// DeleteAllImposters shuts down every imposter and returns what was
// deleted.
func (c *Client) DeleteAllImposters(ctx context.Context) (*imposter.Document, error) {
	resp, err := c.delete(ctx, "/imposters")
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	var doc imposter.Document
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode imposters: %w", err)
	}
	return &doc, nil
}

// AddStub adds a stub to the imposter on the given port. A negative
// index appends; otherwise the stub is inserted at that position.
func (c *Client) AddStub(ctx context.Context, port, index int, stub imposter.Stub) (*ImposterDetail, error) {
	body := struct {
		Stub  imposter.Stub `json:"stub"`
		Index *int          `json:"index,omitempty"`
	}{Stub: stub}
	if index >= 0 {
		body.Index = &index
	}
	resp, err := c.post(ctx, imposterPath(port)+"/stubs", body)
	if err != nil {
		return nil, err
	}
	return c.imposterResult(resp)
}

// ReplaceAllStubs swaps the imposter's entire stub list.
func (c *Client) ReplaceAllStubs(ctx context.Context, port int, stubs []imposter.Stub) (*ImposterDetail, error) {
	body := struct {
		Stubs []imposter.Stub `json:"stubs"`
	}{Stubs: stubs}
	resp, err := c.put(ctx, imposterPath(port)+"/stubs", body)
	if err != nil {
		return nil, err
	}
	return c.imposterResult(resp)
}

// ReplaceStub replaces the stub at the given index.
func (c *Client) ReplaceStub(ctx context.Context, port, index int, stub imposter.Stub) (*ImposterDetail, error) {
	resp, err := c.put(ctx, fmt.Sprintf("%s/stubs/%d", imposterPath(port), index), stub)
	if err != nil {
		return nil, err
	}
	return c.imposterResult(resp)
}

// RemoveStub removes the stub at the given index.
func (c *Client) RemoveStub(ctx context.Context, port, index int) (*ImposterDetail, error) {
	resp, err := c.delete(ctx, fmt.Sprintf("%s/stubs/%d", imposterPath(port), index))
	if err != nil {
		return nil, err
	}
	return c.imposterResult(resp)
}

// ClearRequests empties the imposter's request journal.
func (c *Client) ClearRequests(ctx context.Context, port int) (*ImposterDetail, error) {
	resp, err := c.delete(ctx, imposterPath(port)+"/requests")
	if err != nil {
		return nil, err
	}
	return c.imposterResult(resp)
}

// ClearProxyResponses drops every recorded proxy response so proxy
// stubs record fresh again.
func (c *Client) ClearProxyResponses(ctx context.Context, port int) (*ImposterDetail, error) {
	resp, err := c.delete(ctx, imposterPath(port)+"/proxy/responses")
	if err != nil {
		return nil, err
	}
	return c.imposterResult(resp)
}

// HTTP helpers

func (c *Client) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	return c.httpClient.Do(req)
}

func (c *Client) post(ctx context.Context, path string, body any) (*http.Response, error) {
	return c.send(ctx, http.MethodPost, path, body)
}

func (c *Client) put(ctx context.Context, path string, body any) (*http.Response, error) {
	return c.send(ctx, http.MethodPut, path, body)
}

func (c *Client) delete(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	return c.httpClient.Do(req)
}

func (c *Client) send(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.httpClient.Do(req)
}

// imposterResult handles the shared tail of the stub and journal
// mutations: 404 mapping, error documents, and the detail body.
func (c *Client) imposterResult(resp *http.Response) (*ImposterDetail, error) {
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}
	return decodeDetail(resp)
}

func (c *Client) parseError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	var doc httputil.ErrorDocument
	if json.Unmarshal(body, &doc) == nil && len(doc.Errors) > 0 {
		return &APIError{
			StatusCode: resp.StatusCode,
			Code:       doc.Errors[0].Code,
			Message:    doc.Errors[0].Message,
		}
	}
	return &APIError{StatusCode: resp.StatusCode}
}

func decodeDetail(resp *http.Response) (*ImposterDetail, error) {
	var detail ImposterDetail
	if err := json.NewDecoder(resp.Body).Decode(&detail); err != nil {
		return nil, fmt.Errorf("decode imposter: %w", err)
	}
	return &detail, nil
}

func imposterPath(port int) string {
	return "/imposters/" + strconv.Itoa(port)
}
