package cli

import (
	"runtime/debug"
	"testing"
)

func TestApplyVCSSettings(t *testing.T) {
	settings := []debug.BuildSetting{
		{Key: "vcs.revision", Value: "abc1234"},
		{Key: "vcs.time", Value: "2025-11-03T10:00:00Z"},
		{Key: "vcs.modified", Value: "true"},
	}

	t.Run("fills ldflags defaults", func(t *testing.T) {
		got := applyVCSSettings(BuildInfo{Version: "dev", Commit: "none", Date: "unknown"}, settings)
		if got.Commit != "abc1234-dirty" {
			t.Errorf("commit: got %q, want abc1234-dirty", got.Commit)
		}
		if got.Date != "2025-11-03T10:00:00Z" {
			t.Errorf("date: got %q", got.Date)
		}
	})

	t.Run("ldflags values win over vcs metadata", func(t *testing.T) {
		got := applyVCSSettings(BuildInfo{Version: "1.2.3", Commit: "rel9876", Date: "2025-11-01"}, settings)
		if got.Commit != "rel9876-dirty" {
			t.Errorf("commit: got %q, want rel9876-dirty", got.Commit)
		}
		if got.Date != "2025-11-01" {
			t.Errorf("date: got %q", got.Date)
		}
	})

	t.Run("clean build keeps commit unsuffixed", func(t *testing.T) {
		clean := []debug.BuildSetting{
			{Key: "vcs.revision", Value: "abc1234"},
			{Key: "vcs.modified", Value: "false"},
		}
		got := applyVCSSettings(BuildInfo{Commit: "none"}, clean)
		if got.Commit != "abc1234" {
			t.Errorf("commit: got %q, want abc1234", got.Commit)
		}
	})
}

func TestDisplayVersion(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1.2.3", "v1.2.3"},
		{"v1.2.3", "v1.2.3"},
		{"dev", "dev"},
		{"(devel)", "(devel)"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := displayVersion(tt.in); got != tt.want {
			t.Errorf("displayVersion(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
