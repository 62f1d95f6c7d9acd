package cli

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/getimposd/imposd/pkg/cli/internal/output"
)

// versionDetails is the version command's JSON payload.
type versionDetails struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
	Go      string `json:"go"`
	OS      string `json:"os"`
	Arch    string `json:"arch"`
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show imposd version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		info := buildInfo
		if bi, ok := debug.ReadBuildInfo(); ok {
			if info.Version == "dev" {
				info.Version = bi.Main.Version
			}
			info = applyVCSSettings(info, bi.Settings)
		}

		details := versionDetails{
			Version: info.Version,
			Commit:  info.Commit,
			Date:    info.Date,
			Go:      runtime.Version(),
			OS:      runtime.GOOS,
			Arch:    runtime.GOARCH,
		}
		if jsonOutput {
			return output.JSON(details)
		}

		fmt.Printf("imposd %s (%s, %s)\n", displayVersion(details.Version), details.Commit, details.Date)
		fmt.Printf("%s %s/%s\n", details.Go, details.OS, details.Arch)
		return nil
	},
}

// applyVCSSettings fills ldflags defaults from the binary's embedded
// vcs metadata and marks locally modified builds.
func applyVCSSettings(info BuildInfo, settings []debug.BuildSetting) BuildInfo {
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			if info.Commit == "none" {
				info.Commit = s.Value
			}
		case "vcs.time":
			if info.Date == "unknown" {
				info.Date = s.Value
			}
		case "vcs.modified":
			if s.Value == "true" {
				info.Commit += "-dirty"
			}
		}
	}
	return info
}

// displayVersion normalizes release versions to a v prefix, leaving
// development pseudo-versions alone.
func displayVersion(v string) string {
	if v == "" || v == "dev" || v == "(devel)" || v[0] == 'v' {
		return v
	}
	return "v" + v
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
