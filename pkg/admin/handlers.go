package admin

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/getimposd/imposd/pkg/engine"
	"github.com/getimposd/imposd/pkg/httputil"
	"github.com/getimposd/imposd/pkg/imposter"
	"github.com/getimposd/imposd/pkg/logging"
	"github.com/getimposd/imposd/pkg/snapshot"
)

// maxRequestBodySize bounds admin request bodies (10 MB).
const maxRequestBodySize = 10 * 1024 * 1024

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	base := requestBaseURL(r)
	writeJSON(w, http.StatusOK, indexResponse{
		Links: map[string]link{
			"imposters": {Href: base + "/imposters"},
			"config":    {Href: base + "/config"},
			"logs":      {Href: base + "/logs"},
			"metrics":   {Href: base + "/metrics"},
			"health":    {Href: base + "/health"},
		},
	})
}

// handleListImposters lists summaries by default. Either the replayable
// or removeProxies flag switches the output to full configs, shaped for
// feeding back into PUT /imposters.
func (s *Server) handleListImposters(w http.ResponseWriter, r *http.Request) {
	replayable, removeProxies := replayFlags(r)
	imps := s.registry.List()

	if replayable || removeProxies {
		doc := imposter.Document{Imposters: make([]imposter.Config, len(imps))}
		for i, imp := range imps {
			doc.Imposters[i] = imp.Config(replayable, removeProxies)
		}
		writeJSON(w, http.StatusOK, doc)
		return
	}

	out := summaryListResponse{Imposters: make([]imposterSummary, len(imps))}
	for i, imp := range imps {
		out.Imposters[i] = s.summary(r, imp)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateImposter(w http.ResponseWriter, r *http.Request) {
	limitedBody(w, r)
	var cfg imposter.Config
	if err := decodeJSONBody(r, &cfg); err != nil {
		writeDecodeError(w, err)
		return
	}

	imp, err := s.registry.Create(r.Context(), cfg)
	if err != nil {
		writeRegistryError(w, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("%s/imposters/%d", requestBaseURL(r), imp.Port()))
	writeJSON(w, http.StatusCreated, s.detail(r, imp, false))
}

// handleReplaceAllImposters implements restore: the body travels through
// the snapshot parser, so it gets the same schema validation as a file
// restore, then atomically replaces the registry's contents.
func (s *Server) handleReplaceAllImposters(w http.ResponseWriter, r *http.Request) {
	limitedBody(w, r)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeDecodeError(w, err)
		return
	}

	doc, err := snapshot.Parse(data, snapshot.FormatJSON)
	if err != nil {
		writeRegistryError(w, err)
		return
	}

	imps, err := s.registry.ReplaceAll(r.Context(), doc.Imposters)
	if err != nil {
		writeRegistryError(w, err)
		return
	}

	out := detailListResponse{Imposters: make([]imposterDetail, len(imps))}
	for i, imp := range imps {
		out.Imposters[i] = s.detail(r, imp, false)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDeleteAllImposters(w http.ResponseWriter, r *http.Request) {
	replayable, removeProxies := replayFlags(r)
	imps, err := s.registry.DeleteAll(r.Context())
	if err != nil {
		writeRegistryError(w, err)
		return
	}

	doc := imposter.Document{Imposters: make([]imposter.Config, len(imps))}
	for i, imp := range imps {
		doc.Imposters[i] = imp.Config(replayable, removeProxies)
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleGetImposter(w http.ResponseWriter, r *http.Request) {
	port, ok := portValue(w, r)
	if !ok {
		return
	}

	imp, err := s.registry.Get(port)
	if err != nil {
		writeRegistryError(w, err)
		return
	}

	replayable, removeProxies := replayFlags(r)
	if replayable {
		writeJSON(w, http.StatusOK, imp.Config(true, removeProxies))
		return
	}
	writeJSON(w, http.StatusOK, s.detail(r, imp, removeProxies))
}

// handleDeleteImposter deletes idempotently: an unknown port answers 200
// with an empty object so teardown scripts can fire and forget.
func (s *Server) handleDeleteImposter(w http.ResponseWriter, r *http.Request) {
	port, ok := portValue(w, r)
	if !ok {
		return
	}

	replayable, removeProxies := replayFlags(r)
	imp, err := s.registry.Delete(r.Context(), port)
	if err != nil {
		writeRegistryError(w, err)
		return
	}
	if imp == nil {
		writeJSON(w, http.StatusOK, struct{}{})
		return
	}
	writeJSON(w, http.StatusOK, imp.Config(replayable, removeProxies))
}

func (s *Server) handleClearRequests(w http.ResponseWriter, r *http.Request) {
	port, ok := portValue(w, r)
	if !ok {
		return
	}
	if err := s.registry.ClearRequests(port); err != nil {
		writeRegistryError(w, err)
		return
	}
	s.writeImposterDetail(w, r, port)
}

func (s *Server) handleClearProxyResponses(w http.ResponseWriter, r *http.Request) {
	port, ok := portValue(w, r)
	if !ok {
		return
	}
	if err := s.registry.ClearProxyResponses(port); err != nil {
		writeRegistryError(w, err)
		return
	}
	s.writeImposterDetail(w, r, port)
}

func (s *Server) handleAddStub(w http.ResponseWriter, r *http.Request) {
	port, ok := portValue(w, r)
	if !ok {
		return
	}

	limitedBody(w, r)
	var req addStubRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	index := -1
	if req.Index != nil {
		index = *req.Index
	}
	if err := s.registry.AddStub(port, req.Stub, index); err != nil {
		writeRegistryError(w, err)
		return
	}
	s.writeImposterDetail(w, r, port)
}

func (s *Server) handleReplaceAllStubs(w http.ResponseWriter, r *http.Request) {
	port, ok := portValue(w, r)
	if !ok {
		return
	}

	limitedBody(w, r)
	var req replaceStubsRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	if err := s.registry.ReplaceAllStubs(port, req.Stubs); err != nil {
		writeRegistryError(w, err)
		return
	}
	s.writeImposterDetail(w, r, port)
}

func (s *Server) handleReplaceStub(w http.ResponseWriter, r *http.Request) {
	port, ok := portValue(w, r)
	if !ok {
		return
	}
	index, ok := indexValue(w, r)
	if !ok {
		return
	}

	limitedBody(w, r)
	var stub imposter.Stub
	if err := decodeJSONBody(r, &stub); err != nil {
		writeDecodeError(w, err)
		return
	}

	if err := s.registry.ReplaceStub(port, index, stub); err != nil {
		writeRegistryError(w, err)
		return
	}
	s.writeImposterDetail(w, r, port)
}

func (s *Server) handleRemoveStub(w http.ResponseWriter, r *http.Request) {
	port, ok := portValue(w, r)
	if !ok {
		return
	}
	index, ok := indexValue(w, r)
	if !ok {
		return
	}

	if err := s.registry.RemoveStub(port, index); err != nil {
		writeRegistryError(w, err)
		return
	}
	s.writeImposterDetail(w, r, port)
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	cwd, _ := os.Getwd()

	options := s.options
	if options == nil {
		options = map[string]any{}
	}

	writeJSON(w, http.StatusOK, configResponse{
		Version: s.version,
		Options: options,
		Process: processInfo{
			Pid:          os.Getpid(),
			GoVersion:    runtime.Version(),
			Architecture: runtime.GOARCH,
			Platform:     runtime.GOOS,
			RSS:          mem.Sys,
			HeapUsed:     mem.HeapAlloc,
			Uptime:       time.Since(s.startTime).Seconds(),
			Cwd:          cwd,
		},
	})
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	start := queryIndex(r, "startIndex", -1)
	end := queryIndex(r, "endIndex", -1)

	entries := []logging.Entry{}
	if s.ring != nil {
		entries = s.ring.Entries(start, end)
	}
	writeJSON(w, http.StatusOK, logsResponse{Logs: entries})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
	})
}

// --- payload builders ---

func (s *Server) summary(r *http.Request, imp *engine.Imposter) imposterSummary {
	self := fmt.Sprintf("%s/imposters/%d", requestBaseURL(r), imp.Port())
	return imposterSummary{
		Protocol:         imp.Protocol(),
		Port:             imp.Port(),
		Name:             imp.Name(),
		NumberOfRequests: imp.NumberOfRequests(),
		Links: map[string]link{
			"self":  {Href: self},
			"stubs": {Href: self + "/stubs"},
		},
	}
}

func (s *Server) detail(r *http.Request, imp *engine.Imposter, removeProxies bool) imposterDetail {
	self := fmt.Sprintf("%s/imposters/%d", requestBaseURL(r), imp.Port())
	return imposterDetail{
		Config:           imp.Config(false, removeProxies),
		NumberOfRequests: imp.NumberOfRequests(),
		Requests:         imp.Requests(),
		Links: map[string]link{
			"self":  {Href: self},
			"stubs": {Href: self + "/stubs"},
		},
	}
}

// writeImposterDetail answers a mutation with the imposter's fresh state.
func (s *Server) writeImposterDetail(w http.ResponseWriter, r *http.Request, port int) {
	imp, err := s.registry.Get(port)
	if err != nil {
		writeRegistryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.detail(r, imp, false))
}

// --- request helpers ---

// requestBaseURL reconstructs the externally visible base URL for
// hypermedia links. The admin port itself is always plain HTTP.
func requestBaseURL(r *http.Request) string {
	return "http://" + r.Host
}

func portValue(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.PathValue("port")
	port, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadData, fmt.Sprintf("invalid port %q", raw))
		return 0, false
	}
	return port, true
}

func indexValue(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.PathValue("index")
	index, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadData, fmt.Sprintf("invalid stub index %q", raw))
		return 0, false
	}
	return index, true
}

func replayFlags(r *http.Request) (replayable, removeProxies bool) {
	q := r.URL.Query()
	return q.Get("replayable") == "true", q.Get("removeProxies") == "true"
}

// queryIndex parses an integer query parameter; absent or malformed
// values fall back to def.
func queryIndex(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// limitedBody wraps r.Body with http.MaxBytesReader to enforce body size
// limits. Must be called before reading the body in any handler that
// accepts one.
func limitedBody(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
}

func decodeJSONBody(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func writeDecodeError(w http.ResponseWriter, err error) {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		writeError(w, http.StatusRequestEntityTooLarge, codeBadData, "request body too large")
		return
	}
	writeError(w, http.StatusBadRequest, codeBadData, "unable to parse body as JSON")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	httputil.WriteJSON(w, status, v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	httputil.WriteError(w, status, code, message)
}
