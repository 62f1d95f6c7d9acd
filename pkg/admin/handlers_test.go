package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getimposd/imposd/pkg/engine"
	"github.com/getimposd/imposd/pkg/httputil"
	"github.com/getimposd/imposd/pkg/logging"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	return newTestServerFor(t, engine.NewRegistry())
}

func newTestServerFor(t *testing.T, reg *engine.Registry, opts ...Option) *Server {
	t.Helper()
	t.Cleanup(func() { closeRegistry(t, reg) })
	return NewServer(reg, 0, opts...)
}

func closeRegistry(t *testing.T, reg *engine.Registry) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := reg.Close(ctx); err != nil {
		t.Errorf("close registry: %v", err)
	}
}

// do drives one request through the full middleware and routing chain.
func do(t *testing.T, srv *Server, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	case []byte:
		reader = bytes.NewReader(b)
	default:
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var doc httputil.ErrorDocument
	decode(t, rec, &doc)
	require.NotEmpty(t, doc.Errors)
	return doc.Errors[0].Code
}

func createImposter(t *testing.T, srv *Server, cfg map[string]any) int {
	t.Helper()
	rec := do(t, srv, http.MethodPost, "/imposters", cfg)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var body struct {
		Port int `json:"port"`
	}
	decode(t, rec, &body)
	require.NotZero(t, body.Port)
	return body.Port
}

// fetch hits a running imposter directly, outside the management API.
func fetch(t *testing.T, port int, path string) (int, string) {
	t.Helper()
	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d%s", port, path))
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(data)
}

func httpImposter(stubs ...map[string]any) map[string]any {
	ss := make([]map[string]any, 0, len(stubs))
	ss = append(ss, stubs...)
	return map[string]any{
		"protocol": "http",
		"host":     "127.0.0.1",
		"stubs":    ss,
	}
}

func pathStub(path string, status int, body string) map[string]any {
	return map[string]any{
		"predicates": []map[string]any{{"equals": map[string]any{"path": path}}},
		"responses":  []map[string]any{{"is": map[string]any{"statusCode": status, "body": body}}},
	}
}

func TestIndex(t *testing.T) {
	srv := newTestServer(t)

	rec := do(t, srv, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Links map[string]struct {
			Href string `json:"href"`
		} `json:"_links"`
	}
	decode(t, rec, &body)
	for _, name := range []string{"imposters", "config", "logs", "metrics", "health"} {
		assert.Contains(t, body.Links, name)
	}
	assert.Equal(t, "http://example.com/imposters", body.Links["imposters"].Href)
}

func TestCreateImposter(t *testing.T) {
	srv := newTestServer(t)

	rec := do(t, srv, http.MethodPost, "/imposters", httpImposter(pathStub("/hello", 201, "world")))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var body struct {
		Protocol         string           `json:"protocol"`
		Port             int              `json:"port"`
		NumberOfRequests int              `json:"numberOfRequests"`
		Requests         []map[string]any `json:"requests"`
		Stubs            []map[string]any `json:"stubs"`
	}
	decode(t, rec, &body)
	assert.Equal(t, "http", body.Protocol)
	require.NotZero(t, body.Port)
	assert.Zero(t, body.NumberOfRequests)
	assert.NotNil(t, body.Requests)
	assert.Len(t, body.Stubs, 1)
	assert.Equal(t, fmt.Sprintf("http://example.com/imposters/%d", body.Port), rec.Header().Get("Location"))

	status, text := fetch(t, body.Port, "/hello")
	assert.Equal(t, 201, status)
	assert.Equal(t, "world", text)
}

func TestCreateImposterErrors(t *testing.T) {
	srv := newTestServer(t)

	t.Run("unknown protocol", func(t *testing.T) {
		rec := do(t, srv, http.MethodPost, "/imposters", map[string]any{"protocol": "gopher"})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "bad data", errorCode(t, rec))
	})

	t.Run("malformed json", func(t *testing.T) {
		rec := do(t, srv, http.MethodPost, "/imposters", "{not json")
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "bad data", errorCode(t, rec))
	})

	t.Run("response with is and proxy", func(t *testing.T) {
		stub := map[string]any{"responses": []map[string]any{{
			"is":    map[string]any{"statusCode": 200},
			"proxy": map[string]any{"to": "http://origin.test"},
		}}}
		rec := do(t, srv, http.MethodPost, "/imposters", httpImposter(stub))
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "bad data", errorCode(t, rec))
	})

	t.Run("smtp cannot proxy", func(t *testing.T) {
		stub := map[string]any{"responses": []map[string]any{{
			"proxy": map[string]any{"to": "mail.test:25"},
		}}}
		cfg := map[string]any{"protocol": "smtp", "host": "127.0.0.1", "stubs": []map[string]any{stub}}
		rec := do(t, srv, http.MethodPost, "/imposters", cfg)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "cannot proxy", errorCode(t, rec))
	})

	t.Run("port conflict", func(t *testing.T) {
		port := createImposter(t, srv, httpImposter())
		rec := do(t, srv, http.MethodPost, "/imposters", map[string]any{
			"protocol": "http", "host": "127.0.0.1", "port": port,
		})
		require.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "resource conflict", errorCode(t, rec))
	})

	t.Run("injection disabled", func(t *testing.T) {
		stub := map[string]any{"responses": []map[string]any{{"inject": `{"statusCode": 200}`}}}
		rec := do(t, srv, http.MethodPost, "/imposters", httpImposter(stub))
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "invalid injection", errorCode(t, rec))
	})
}

func TestCreateImposterWithInjection(t *testing.T) {
	srv := newTestServerFor(t, engine.NewRegistry(engine.WithInjection(true)))

	stub := map[string]any{"responses": []map[string]any{{
		"inject": `{"statusCode": 202, "body": "made"}`,
	}}}
	port := createImposter(t, srv, httpImposter(stub))

	status, text := fetch(t, port, "/x")
	assert.Equal(t, 202, status)
	assert.Equal(t, "made", text)
}

func TestGetImposter(t *testing.T) {
	srv := newTestServer(t)

	t.Run("unknown port", func(t *testing.T) {
		rec := do(t, srv, http.MethodGet, "/imposters/49151", nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "no such resource", errorCode(t, rec))
	})

	t.Run("invalid port", func(t *testing.T) {
		rec := do(t, srv, http.MethodGet, "/imposters/nope", nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "bad data", errorCode(t, rec))
	})

	t.Run("records requests", func(t *testing.T) {
		cfg := httpImposter(pathStub("/a", 200, "a"))
		cfg["recordRequests"] = true
		port := createImposter(t, srv, cfg)

		fetch(t, port, "/a")
		fetch(t, port, "/b")

		rec := do(t, srv, http.MethodGet, fmt.Sprintf("/imposters/%d", port), nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			NumberOfRequests int `json:"numberOfRequests"`
			Requests         []struct {
				Method string `json:"method"`
				Path   string `json:"path"`
			} `json:"requests"`
		}
		decode(t, rec, &body)
		assert.Equal(t, 2, body.NumberOfRequests)
		require.Len(t, body.Requests, 2)
		assert.Equal(t, "/a", body.Requests[0].Path)
		assert.Equal(t, "/b", body.Requests[1].Path)
	})

	t.Run("replayable strips runtime state", func(t *testing.T) {
		port := createImposter(t, srv, httpImposter(pathStub("/x", 200, "x")))

		rec := do(t, srv, http.MethodGet, fmt.Sprintf("/imposters/%d?replayable=true", port), nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var raw map[string]any
		decode(t, rec, &raw)
		assert.NotContains(t, raw, "_links")
		assert.NotContains(t, raw, "numberOfRequests")
		assert.Contains(t, raw, "stubs")
	})
}

func TestDeleteImposter(t *testing.T) {
	srv := newTestServer(t)

	t.Run("unknown port yields empty object", func(t *testing.T) {
		rec := do(t, srv, http.MethodDelete, "/imposters/49151", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, "{}", rec.Body.String())
	})

	t.Run("returns config and frees the port", func(t *testing.T) {
		port := createImposter(t, srv, httpImposter(pathStub("/v", 200, "gone")))

		rec := do(t, srv, http.MethodDelete, fmt.Sprintf("/imposters/%d", port), nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var body struct {
			Protocol string `json:"protocol"`
			Port     int    `json:"port"`
		}
		decode(t, rec, &body)
		assert.Equal(t, "http", body.Protocol)
		assert.Equal(t, port, body.Port)

		rec = do(t, srv, http.MethodGet, fmt.Sprintf("/imposters/%d", port), nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)

		cfg := httpImposter(pathStub("/v", 200, "back"))
		cfg["port"] = port
		assert.Equal(t, port, createImposter(t, srv, cfg))
	})
}

func TestListImposters(t *testing.T) {
	srv := newTestServer(t)
	p1 := createImposter(t, srv, httpImposter())
	p2 := createImposter(t, srv, httpImposter())
	lo, hi := p1, p2
	if lo > hi {
		lo, hi = hi, lo
	}

	rec := do(t, srv, http.MethodGet, "/imposters", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Imposters []struct {
			Port  int `json:"port"`
			Links map[string]struct {
				Href string `json:"href"`
			} `json:"_links"`
		} `json:"imposters"`
	}
	decode(t, rec, &body)
	require.Len(t, body.Imposters, 2)
	assert.Equal(t, lo, body.Imposters[0].Port)
	assert.Equal(t, hi, body.Imposters[1].Port)
	assert.Contains(t, body.Imposters[0].Links, "self")
	assert.Contains(t, body.Imposters[0].Links, "stubs")

	t.Run("replayable returns full configs", func(t *testing.T) {
		rec := do(t, srv, http.MethodGet, "/imposters?replayable=true", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var doc struct {
			Imposters []map[string]any `json:"imposters"`
		}
		decode(t, rec, &doc)
		require.Len(t, doc.Imposters, 2)
		assert.NotContains(t, doc.Imposters[0], "_links")
		assert.Contains(t, doc.Imposters[0], "stubs")
	})
}

func TestDeleteAllImposters(t *testing.T) {
	srv := newTestServer(t)
	createImposter(t, srv, httpImposter())
	createImposter(t, srv, httpImposter())

	rec := do(t, srv, http.MethodDelete, "/imposters", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var doc struct {
		Imposters []map[string]any `json:"imposters"`
	}
	decode(t, rec, &doc)
	assert.Len(t, doc.Imposters, 2)

	rec = do(t, srv, http.MethodGet, "/imposters", nil)
	var listing struct {
		Imposters []any `json:"imposters"`
	}
	decode(t, rec, &listing)
	assert.Empty(t, listing.Imposters)
}

func TestReplaceAllImposters(t *testing.T) {
	srv := newTestServer(t)
	old := createImposter(t, srv, httpImposter(pathStub("/old", 200, "old")))

	doc := map[string]any{"imposters": []map[string]any{
		httpImposter(pathStub("/a", 200, "a")),
		httpImposter(pathStub("/b", 200, "b")),
	}}
	rec := do(t, srv, http.MethodPut, "/imposters", doc)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var out struct {
		Imposters []struct {
			Port int `json:"port"`
		} `json:"imposters"`
	}
	decode(t, rec, &out)
	require.Len(t, out.Imposters, 2)

	rec = do(t, srv, http.MethodGet, fmt.Sprintf("/imposters/%d", old), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	_, text := fetch(t, out.Imposters[0].Port, "/a")
	assert.Equal(t, "a", text)
	_, text = fetch(t, out.Imposters[1].Port, "/b")
	assert.Equal(t, "b", text)

	t.Run("malformed document", func(t *testing.T) {
		rec := do(t, srv, http.MethodPut, "/imposters", map[string]any{"imposters": "nope"})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "bad data", errorCode(t, rec))
	})

	t.Run("invalid member leaves state untouched", func(t *testing.T) {
		bad := map[string]any{"imposters": []map[string]any{{"protocol": "gopher"}}}
		rec := do(t, srv, http.MethodPut, "/imposters", bad)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "bad data", errorCode(t, rec))

		_, text := fetch(t, out.Imposters[0].Port, "/a")
		assert.Equal(t, "a", text)
	})
}

func TestStubEndpoints(t *testing.T) {
	srv := newTestServer(t)
	port := createImposter(t, srv, httpImposter(pathStub("/a", 200, "first")))
	base := fmt.Sprintf("/imposters/%d/stubs", port)

	t.Run("append", func(t *testing.T) {
		rec := do(t, srv, http.MethodPost, base, map[string]any{"stub": pathStub("/b", 200, "second")})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		_, text := fetch(t, port, "/b")
		assert.Equal(t, "second", text)
	})

	t.Run("insert at head shadows later stubs", func(t *testing.T) {
		shadow := map[string]any{"responses": []map[string]any{{
			"is": map[string]any{"statusCode": 200, "body": "shadow"},
		}}}
		rec := do(t, srv, http.MethodPost, base, map[string]any{"stub": shadow, "index": 0})
		require.Equal(t, http.StatusOK, rec.Code)

		_, text := fetch(t, port, "/a")
		assert.Equal(t, "shadow", text)
	})

	t.Run("index out of range", func(t *testing.T) {
		rec := do(t, srv, http.MethodPost, base, map[string]any{"stub": pathStub("/x", 200, "x"), "index": 99})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "bad data", errorCode(t, rec))
	})

	t.Run("replace one", func(t *testing.T) {
		repl := map[string]any{"responses": []map[string]any{{
			"is": map[string]any{"statusCode": 200, "body": "replaced"},
		}}}
		rec := do(t, srv, http.MethodPut, base+"/0", repl)
		require.Equal(t, http.StatusOK, rec.Code)

		_, text := fetch(t, port, "/anything")
		assert.Equal(t, "replaced", text)
	})

	t.Run("remove head", func(t *testing.T) {
		rec := do(t, srv, http.MethodDelete, base+"/0", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		_, text := fetch(t, port, "/a")
		assert.Equal(t, "first", text)
	})

	t.Run("replace all", func(t *testing.T) {
		rec := do(t, srv, http.MethodPut, base, map[string]any{
			"stubs": []map[string]any{pathStub("/z", 200, "fresh")},
		})
		require.Equal(t, http.StatusOK, rec.Code)

		_, text := fetch(t, port, "/z")
		assert.Equal(t, "fresh", text)

		status, _ := fetch(t, port, "/a")
		assert.Equal(t, http.StatusOK, status)
	})

	t.Run("bad index", func(t *testing.T) {
		rec := do(t, srv, http.MethodPut, base+"/abc", map[string]any{})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "bad data", errorCode(t, rec))
	})

	t.Run("unknown port", func(t *testing.T) {
		rec := do(t, srv, http.MethodPost, "/imposters/49151/stubs", map[string]any{"stub": pathStub("/x", 200, "x")})
		require.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "no such resource", errorCode(t, rec))
	})
}

func TestClearRequests(t *testing.T) {
	srv := newTestServer(t)
	cfg := httpImposter(pathStub("/a", 200, "a"))
	cfg["recordRequests"] = true
	port := createImposter(t, srv, cfg)

	fetch(t, port, "/a")
	fetch(t, port, "/a")

	rec := do(t, srv, http.MethodDelete, fmt.Sprintf("/imposters/%d/requests", port), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		NumberOfRequests int              `json:"numberOfRequests"`
		Requests         []map[string]any `json:"requests"`
	}
	decode(t, rec, &body)
	assert.Zero(t, body.NumberOfRequests)
	assert.Empty(t, body.Requests)

	t.Run("unknown port", func(t *testing.T) {
		rec := do(t, srv, http.MethodDelete, "/imposters/49151/requests", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestProxySaveReplayThroughAPI(t *testing.T) {
	var hits atomic.Int64
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "ORIGIN %d", hits.Add(1))
	}))
	defer origin.Close()

	srv := newTestServer(t)
	cfg := map[string]any{
		"protocol": "http",
		"host":     "127.0.0.1",
		"stubs": []map[string]any{{
			"responses": []map[string]any{{
				"proxy": map[string]any{"to": origin.URL, "mode": "proxyOnce"},
			}},
		}},
	}
	port := createImposter(t, srv, cfg)

	_, text := fetch(t, port, "/seed")
	require.Equal(t, "ORIGIN 1", text)

	save := do(t, srv, http.MethodGet, "/imposters?replayable=true&removeProxies=true", nil)
	require.Equal(t, http.StatusOK, save.Code)
	require.NotContains(t, save.Body.String(), `"proxy"`)

	rec := do(t, srv, http.MethodPut, "/imposters", save.Body.Bytes())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	_, text = fetch(t, port, "/replayed")
	assert.Equal(t, "ORIGIN 1", text)
	assert.EqualValues(t, 1, hits.Load())
}

func TestClearProxyResponses(t *testing.T) {
	var hits atomic.Int64
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "ORIGIN %d", hits.Add(1))
	}))
	defer origin.Close()

	srv := newTestServer(t)
	cfg := map[string]any{
		"protocol": "http",
		"host":     "127.0.0.1",
		"stubs": []map[string]any{{
			"responses": []map[string]any{{
				"proxy": map[string]any{"to": origin.URL, "mode": "proxyAlways"},
			}},
		}},
	}
	port := createImposter(t, srv, cfg)

	fetch(t, port, "/a")
	require.EqualValues(t, 1, hits.Load())

	replay := do(t, srv, http.MethodGet, fmt.Sprintf("/imposters/%d?replayable=true", port), nil)
	require.Contains(t, replay.Body.String(), "ORIGIN 1")

	rec := do(t, srv, http.MethodDelete, fmt.Sprintf("/imposters/%d/proxy/responses", port), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	replay = do(t, srv, http.MethodGet, fmt.Sprintf("/imposters/%d?replayable=true", port), nil)
	assert.NotContains(t, replay.Body.String(), "ORIGIN 1")

	t.Run("unknown port", func(t *testing.T) {
		rec := do(t, srv, http.MethodDelete, "/imposters/49151/proxy/responses", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestConfigEndpoint(t *testing.T) {
	srv := newTestServerFor(t, engine.NewRegistry(),
		WithVersion("1.2.3"),
		WithOptions(map[string]any{"allowInjection": true}))

	rec := do(t, srv, http.MethodGet, "/config", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Version string         `json:"version"`
		Options map[string]any `json:"options"`
		Process struct {
			Pid       int     `json:"pid"`
			GoVersion string  `json:"goVersion"`
			Uptime    float64 `json:"uptime"`
		} `json:"process"`
	}
	decode(t, rec, &body)
	assert.Equal(t, "1.2.3", body.Version)
	assert.Equal(t, true, body.Options["allowInjection"])
	assert.Equal(t, os.Getpid(), body.Process.Pid)
	assert.NotEmpty(t, body.Process.GoVersion)
}

func TestLogsEndpoint(t *testing.T) {
	ring := logging.NewRingHandler(100, slog.LevelDebug)
	log := slog.New(ring)
	log.Info("first")
	log.Info("second")
	log.Info("third")

	srv := newTestServerFor(t, engine.NewRegistry(), WithLogRing(ring))

	rec := do(t, srv, http.MethodGet, "/logs", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Logs []struct {
			Level   string `json:"level"`
			Message string `json:"message"`
		} `json:"logs"`
	}
	decode(t, rec, &body)
	require.Len(t, body.Logs, 3)
	assert.Equal(t, "first", body.Logs[0].Message)
	assert.Equal(t, "info", body.Logs[0].Level)

	rec = do(t, srv, http.MethodGet, "/logs?startIndex=1&endIndex=1", nil)
	decode(t, rec, &body)
	require.Len(t, body.Logs, 1)
	assert.Equal(t, "second", body.Logs[0].Message)

	t.Run("no ring configured", func(t *testing.T) {
		bare := newTestServer(t)
		rec := do(t, bare, http.MethodGet, "/logs", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"logs":[]`)
	})
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t)
	do(t, srv, http.MethodGet, "/health", nil)

	rec := do(t, srv, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	assert.Contains(t, rec.Body.String(), "imposd_admin_requests_total")
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t)

	rec := do(t, srv, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Status string `json:"status"`
	}
	decode(t, rec, &body)
	assert.Equal(t, "healthy", body.Status)
}

func TestRequestIDHeader(t *testing.T) {
	srv := newTestServer(t)

	rec := do(t, srv, http.MethodGet, "/health", nil)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-Id", "caller-id")
	out := httptest.NewRecorder()
	srv.Handler().ServeHTTP(out, req)
	assert.Equal(t, "caller-id", out.Header().Get("X-Request-Id"))
}
