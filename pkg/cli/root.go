// Package cli implements the imposd command line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/getimposd/imposd/pkg/client"
	"github.com/getimposd/imposd/pkg/config"
)

// BuildInfo carries version details injected at build time.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

var (
	// Persistent flags available to all subcommands.
	adminURL   string
	jsonOutput bool

	buildInfo = BuildInfo{Version: "dev", Commit: "none", Date: "unknown"}
)

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "imposd",
	Short: "imposd is a service virtualization server",
	Long: `imposd runs imposters: fake servers that speak HTTP, HTTPS, TCP or SMTP
on ports you choose, answer according to configured stubs, and can record
and replay traffic proxied to real origins.

The server is controlled over a REST management API (default port 2525).
Every subcommand except serve talks to a running server through it; set
IMPOSD_ADMIN_URL or pass --admin-url to reach a non-default server.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI with the given build information. It is called
// once from main.
func Execute(info BuildInfo) {
	if info.Version != "" {
		buildInfo = info
	}
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&adminURL, "admin-url", config.AdminURL(""), "management API base URL")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output command results in JSON format")
}

// apiClient builds a management API client for the configured server.
func apiClient() *client.Client {
	return client.New(config.AdminURL(adminURL))
}
