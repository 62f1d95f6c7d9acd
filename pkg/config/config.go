// Package config holds the server's own settings and loads imposter
// config files at startup. Imposter documents reuse the snapshot
// serialization, so a file written by `imposd save` loads back
// unchanged through --configfile.
package config

import (
	"fmt"
	"os"
	"strings"
)

const (
	// DefaultAdminPort is the management API port when none is given.
	DefaultAdminPort = 2525

	// EnvAdminURL overrides the management API base URL for client
	// commands.
	EnvAdminURL = "IMPOSD_ADMIN_URL"
)

// ServerConfig collects the settings the serve daemon runs with.
type ServerConfig struct {
	// AdminPort is the management API listen port.
	AdminPort int

	// AdminHost is the management API bind address. Empty binds all
	// interfaces.
	AdminHost string

	// LogLevel is one of debug, info, warn, error.
	LogLevel string

	// LogFormat is text or json.
	LogFormat string

	// AllowInjection enables inject predicates and inject responses.
	AllowInjection bool

	// ConfigFiles are imposter files or glob patterns loaded at startup.
	ConfigFiles []string
}

// Default returns the configuration serve starts from before flags
// apply.
func Default() ServerConfig {
	return ServerConfig{
		AdminPort: DefaultAdminPort,
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// Options is the runtime options map echoed on GET /config.
func (c ServerConfig) Options() map[string]any {
	return map[string]any{
		"port":           c.AdminPort,
		"host":           c.AdminHost,
		"logLevel":       c.LogLevel,
		"logFormat":      c.LogFormat,
		"allowInjection": c.AllowInjection,
		"configFiles":    c.ConfigFiles,
	}
}

// AdminURL resolves the management API base URL for client commands.
// An explicit flag value wins, then IMPOSD_ADMIN_URL, then the local
// default port.
func AdminURL(flag string) string {
	if flag != "" {
		return strings.TrimRight(flag, "/")
	}
	if env := os.Getenv(EnvAdminURL); env != "" {
		return strings.TrimRight(env, "/")
	}
	return fmt.Sprintf("http://localhost:%d", DefaultAdminPort)
}
