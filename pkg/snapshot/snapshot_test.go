package snapshot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"github.com/getimposd/imposd/pkg/engine"
	"github.com/getimposd/imposd/pkg/imposter"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		filename string
		want     Format
	}{
		{"json extension", "", "imposters.json", FormatJSON},
		{"yaml extension", "", "imposters.yaml", FormatYAML},
		{"yml extension", "", "imposters.yml", FormatYAML},
		{"extension wins over content", "imposters: []", "doc.JSON", FormatJSON},
		{"object content", `{"imposters": []}`, "", FormatJSON},
		{"object content with leading space", "\n\t {\"imposters\": []}", "", FormatJSON},
		{"yaml content", "imposters:\n  - protocol: http\n", "", FormatYAML},
		{"empty", "", "", FormatYAML},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectFormat([]byte(tt.data), tt.filename); got != tt.want {
				t.Errorf("DetectFormat() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseJSON(t *testing.T) {
	doc, err := Parse([]byte(`{
		"imposters": [{
			"protocol": "http",
			"port": 4545,
			"name": "orders",
			"stubs": [{
				"predicates": [{"equals": {"path": "/orders"}}],
				"responses": [
					{"is": {"statusCode": 201, "body": "created"}, "_behaviors": {"wait": 500}},
					{"proxy": {"to": "http://origin:8080", "mode": "proxyAlways"}}
				]
			}]
		}]
	}`), FormatJSON)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if len(doc.Imposters) != 1 {
		t.Fatalf("imposters = %d, want 1", len(doc.Imposters))
	}
	imp := doc.Imposters[0]
	if imp.Protocol != imposter.ProtocolHTTP || imp.Port != 4545 || imp.Name != "orders" {
		t.Errorf("imposter = %+v", imp)
	}
	resp := imp.Stubs[0].Responses[0]
	if resp.Is.StatusCode != 201 || resp.Is.Body != "created" {
		t.Errorf("is response = %+v", resp.Is)
	}
	if resp.Behaviors == nil || resp.Behaviors.Wait == nil || resp.Behaviors.Wait.Fixed != 500 {
		t.Errorf("wait behavior not parsed: %+v", resp.Behaviors)
	}
	if p := imp.Stubs[0].Responses[1].Proxy; p == nil || p.To != "http://origin:8080" || p.Mode != imposter.ProxyAlways {
		t.Errorf("proxy response = %+v", p)
	}
}

func TestParseYAML(t *testing.T) {
	doc, err := Parse([]byte(`
imposters:
  - protocol: http
    port: 4545
    stubs:
      - predicates:
          - equals:
              path: /orders
        responses:
          - is:
              statusCode: 200
              body:
                id: 1
            _behaviors:
              wait:
                min: 100
                max: 200
`), FormatYAML)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	resp := doc.Imposters[0].Stubs[0].Responses[0]
	if resp.Is.StatusCode != 200 {
		t.Errorf("statusCode = %d, want 200", resp.Is.StatusCode)
	}
	if resp.Is.Body != `{"id":1}` {
		t.Errorf("structured body = %q, want JSON text", resp.Is.Body)
	}
	w := resp.Behaviors.Wait
	if w == nil || w.Min != 100 || w.Max != 200 {
		t.Errorf("ranged wait = %+v", w)
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	tests := []struct {
		name     string
		doc      string
		wantPath string
	}{
		{"not json", `{"imposters": }`, ""},
		{"missing imposters", `{"other": true}`, ""},
		{"imposters not an array", `{"imposters": {}}`, "/imposters"},
		{"imposter without protocol", `{"imposters": [{"port": 80}]}`, "/imposters/0"},
		{"port out of range", `{"imposters": [{"protocol": "http", "port": 70000}]}`, "/imposters/0/port"},
		{"proxy without target", `{"imposters": [{"protocol": "http", "stubs": [{"responses": [{"proxy": {"mode": "proxyOnce"}}]}]}]}`, ""},
		{"negative wait", `{"imposters": [{"protocol": "http", "stubs": [{"responses": [{"is": {}, "_behaviors": {"wait": -5}}]}]}]}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc), FormatJSON)
			if err == nil {
				t.Fatal("Parse() accepted a malformed document")
			}
			var rerr *RestoreError
			if !errors.As(err, &rerr) {
				t.Fatalf("error type = %T, want *RestoreError", err)
			}
			if tt.wantPath != "" && rerr.Path != tt.wantPath {
				t.Errorf("error path = %q, want %q", rerr.Path, tt.wantPath)
			}
		})
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	doc := &imposter.Document{Imposters: []imposter.Config{{
		Protocol: imposter.ProtocolHTTP,
		Port:     4545,
		Stubs: []imposter.Stub{{
			Predicates: []imposter.Predicate{{Equals: map[string]any{"path": "/x"}}},
			Responses: []imposter.Response{
				{
					Is:        &imposter.ISResponse{StatusCode: 201, Body: "made"},
					Behaviors: &imposter.Behaviors{Wait: &imposter.Wait{Fixed: 250}},
				},
				{Proxy: &imposter.ProxyResponse{To: "http://origin", Mode: imposter.ProxyOnce}},
			},
		}},
	}}}

	for _, format := range []Format{FormatJSON, FormatYAML} {
		data, err := Marshal(doc, format)
		if err != nil {
			t.Fatalf("Marshal(%v) error = %v", format, err)
		}
		got, err := Parse(data, format)
		if err != nil {
			t.Fatalf("Parse(%v) error = %v", format, err)
		}
		if !reflect.DeepEqual(got, doc) {
			t.Errorf("format %v round trip drifted:\ngot  %+v\nwant %+v", format, got, doc)
		}
	}
}

func TestMarshalWaitShape(t *testing.T) {
	doc := &imposter.Document{Imposters: []imposter.Config{{
		Protocol: imposter.ProtocolHTTP,
		Stubs: []imposter.Stub{{
			Responses: []imposter.Response{{
				Is:        &imposter.ISResponse{StatusCode: 200},
				Behaviors: &imposter.Behaviors{Wait: &imposter.Wait{Fixed: 500}},
			}},
		}},
	}}}

	data, err := Marshal(doc, FormatJSON)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	// A fixed wait serializes as a bare number, not an object.
	if !bytes.Contains(data, []byte(`"wait": 500`)) {
		t.Errorf("fixed wait not emitted as a number:\n%s", data)
	}
}

func TestSaveReplayFixedPoint(t *testing.T) {
	var hits atomic.Int64
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, "ORIGIN")
	}))
	defer origin.Close()

	reg := engine.NewRegistry()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = reg.Close(ctx)
	}()

	imp, err := reg.Create(context.Background(), imposter.Config{
		Protocol: imposter.ProtocolHTTP,
		Host:     "127.0.0.1",
		Stubs: []imposter.Stub{{
			Responses: []imposter.Response{{
				Proxy: &imposter.ProxyResponse{To: origin.URL, Mode: imposter.ProxyOnce},
			}},
		}},
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// Drive one request through so the proxy has something recorded.
	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/", imp.Port()))
	if err != nil {
		t.Fatalf("seed request error = %v", err)
	}
	_ = resp.Body.Close()
	if hits.Load() != 1 {
		t.Fatalf("origin hits = %d, want 1", hits.Load())
	}

	first := Save(reg)
	if n := hits.Load(); n != 1 {
		t.Fatalf("save contacted the origin: hits = %d", n)
	}
	for _, cfg := range first.Imposters {
		for _, stub := range cfg.Stubs {
			for _, r := range stub.Responses {
				if r.Proxy != nil {
					t.Fatal("saved document still contains a proxy entry")
				}
			}
		}
	}

	if _, err := Restore(context.Background(), reg, first); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	second := Save(reg)
	if hits.Load() != 1 {
		t.Fatal("restore or save contacted the origin")
	}

	a, _ := Marshal(first, FormatJSON)
	b, _ := Marshal(second, FormatJSON)
	if !bytes.Equal(a, b) {
		t.Errorf("save/restore/save is not a fixed point:\nfirst  %s\nsecond %s", a, b)
	}

	// The restored imposter still serves the recorded response.
	resp, err = http.Get(fmt.Sprintf("http://127.0.0.1:%d/", imp.Port()))
	if err != nil {
		t.Fatalf("replay request error = %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "ORIGIN" {
		t.Errorf("replayed body = %q, want %q", body, "ORIGIN")
	}
	if hits.Load() != 1 {
		t.Error("replay contacted the origin")
	}
}

func TestSaveAndLoadFile(t *testing.T) {
	reg := engine.NewRegistry()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = reg.Close(ctx)
	}()

	_, err := reg.Create(context.Background(), imposter.Config{
		Protocol: imposter.ProtocolHTTP,
		Host:     "127.0.0.1",
		Name:     "filed",
		Stubs: []imposter.Stub{{
			Responses: []imposter.Response{{Is: &imposter.ISResponse{StatusCode: 200, Body: "ok"}}},
		}},
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	for _, name := range []string{"imposters.json", "imposters.yaml"} {
		path := filepath.Join(t.TempDir(), name)
		if err := SaveFile(path, reg); err != nil {
			t.Fatalf("SaveFile(%s) error = %v", name, err)
		}
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("snapshot file missing: %v", err)
		}

		doc, err := LoadFile(path)
		if err != nil {
			t.Fatalf("LoadFile(%s) error = %v", name, err)
		}
		if len(doc.Imposters) != 1 || doc.Imposters[0].Name != "filed" {
			t.Errorf("loaded document = %+v", doc)
		}
	}
}
