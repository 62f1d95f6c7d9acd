package client

import (
	"errors"
	"fmt"

	"github.com/getimposd/imposd/pkg/imposter"
	"github.com/getimposd/imposd/pkg/logging"
)

// ErrNotFound is returned when the server knows nothing about the
// requested imposter.
var ErrNotFound = errors.New("no such resource")

// APIError is a non-2xx answer from the management API, carrying the
// error document's code and message.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("request failed: status %d", e.StatusCode)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ImposterSummary is one entry of the imposter listing.
type ImposterSummary struct {
	Protocol         string `json:"protocol"`
	Port             int    `json:"port"`
	Name             string `json:"name,omitempty"`
	NumberOfRequests int    `json:"numberOfRequests"`
}

// ImposterDetail is the full view of a single imposter: its
// configuration plus the recorded traffic.
type ImposterDetail struct {
	imposter.Config
	NumberOfRequests int                `json:"numberOfRequests"`
	Requests         []imposter.Request `json:"requests"`
}

// ProcessInfo describes the server process as reported by GET /config.
type ProcessInfo struct {
	Pid          int     `json:"pid"`
	GoVersion    string  `json:"goVersion"`
	Architecture string  `json:"architecture"`
	Platform     string  `json:"platform"`
	RSS          uint64  `json:"rss"`
	HeapUsed     uint64  `json:"heapUsed"`
	Uptime       float64 `json:"uptime"`
	Cwd          string  `json:"cwd"`
}

// ServerConfig is the GET /config response.
type ServerConfig struct {
	Version string         `json:"version"`
	Options map[string]any `json:"options"`
	Process ProcessInfo    `json:"process"`
}

type summaryListResponse struct {
	Imposters []ImposterSummary `json:"imposters"`
}

type detailListResponse struct {
	Imposters []ImposterDetail `json:"imposters"`
}

type logsResponse struct {
	Logs []logging.Entry `json:"logs"`
}
