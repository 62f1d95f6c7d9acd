package admin

import (
	"time"

	"github.com/getimposd/imposd/pkg/imposter"
	"github.com/getimposd/imposd/pkg/logging"
)

// link is one hypermedia reference.
type link struct {
	Href string `json:"href"`
}

// indexResponse is the GET / document pointing at the API's resources.
type indexResponse struct {
	Links map[string]link `json:"_links"`
}

// imposterSummary is one entry in the default GET /imposters listing.
type imposterSummary struct {
	Protocol         imposter.Protocol `json:"protocol"`
	Port             int               `json:"port"`
	Name             string            `json:"name,omitempty"`
	NumberOfRequests int               `json:"numberOfRequests"`
	Links            map[string]link   `json:"_links"`
}

// imposterDetail is the full imposter document: the declared config plus
// runtime observations.
type imposterDetail struct {
	imposter.Config
	NumberOfRequests int                `json:"numberOfRequests"`
	Requests         []imposter.Request `json:"requests"`
	Links            map[string]link    `json:"_links,omitempty"`
}

// summaryListResponse wraps the GET /imposters summary listing.
type summaryListResponse struct {
	Imposters []imposterSummary `json:"imposters"`
}

// detailListResponse wraps responses carrying full imposter documents.
type detailListResponse struct {
	Imposters []imposterDetail `json:"imposters"`
}

// addStubRequest is the POST .../stubs payload. A nil index appends.
type addStubRequest struct {
	Stub  imposter.Stub `json:"stub"`
	Index *int          `json:"index,omitempty"`
}

// replaceStubsRequest is the PUT .../stubs payload.
type replaceStubsRequest struct {
	Stubs []imposter.Stub `json:"stubs"`
}

// configResponse is the GET /config document.
type configResponse struct {
	Version string         `json:"version"`
	Options map[string]any `json:"options"`
	Process processInfo    `json:"process"`
}

// processInfo is the process block of GET /config.
type processInfo struct {
	Pid          int     `json:"pid"`
	GoVersion    string  `json:"goVersion"`
	Architecture string  `json:"architecture"`
	Platform     string  `json:"platform"`
	RSS          uint64  `json:"rss"`
	HeapUsed     uint64  `json:"heapUsed"`
	Uptime       float64 `json:"uptime"`
	Cwd          string  `json:"cwd"`
}

// logsResponse wraps GET /logs.
type logsResponse struct {
	Logs []logging.Entry `json:"logs"`
}

// healthResponse is the GET /health document.
type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}
