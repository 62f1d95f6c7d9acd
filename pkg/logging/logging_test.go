package logging

import (
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		{"debug", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},

		{"DEBUG", LevelDebug},
		{"INFO", LevelInfo},
		{"WARN", LevelWarn},
		{"WARNING", LevelWarn},
		{"ERROR", LevelError},

		{"Debug", LevelDebug},
		{"Info", LevelInfo},
		{"Warn", LevelWarn},
		{"dEbUg", LevelDebug},

		// Empty string defaults to Info
		{"", LevelInfo},

		// Unrecognized defaults to Info
		{"trace", LevelInfo},
		{"fatal", LevelInfo},
		{"unknown", LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := ParseLevel(tt.input)
			if result != tt.expected {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input    string
		expected Format
	}{
		{"json", FormatJSON},
		{"JSON", FormatJSON},
		{"Json", FormatJSON},
		{"text", FormatText},
		{"TEXT", FormatText},
		{"", FormatText},
		{"yaml", FormatText}, // unrecognized defaults to text
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := ParseFormat(tt.input)
			if result != tt.expected {
				t.Errorf("ParseFormat(%q) = %v, want %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestRingHandlerRetention(t *testing.T) {
	ring := NewRingHandler(3, LevelInfo)
	logger := New(Config{Level: LevelInfo, Ring: ring})

	logger.Info("one")
	logger.Debug("dropped") // below ring level
	logger.Info("two", "port", 4545)
	logger.Info("three")
	logger.Warn("four")

	if got := ring.Len(); got != 3 {
		t.Fatalf("Len() = %d, want 3", got)
	}

	entries := ring.Entries(-1, -1)
	if len(entries) != 3 {
		t.Fatalf("Entries(-1, -1) returned %d entries, want 3", len(entries))
	}
	// Oldest record ("one") was evicted.
	if entries[0].Message != "two port=4545" {
		t.Errorf("entries[0].Message = %q, want %q", entries[0].Message, "two port=4545")
	}
	if entries[2].Level != "warn" {
		t.Errorf("entries[2].Level = %q, want %q", entries[2].Level, "warn")
	}
}

func TestRingHandlerRange(t *testing.T) {
	ring := NewRingHandler(10, LevelDebug)
	logger := New(Config{Level: LevelDebug, Ring: ring})
	for _, msg := range []string{"a", "b", "c", "d"} {
		logger.Info(msg)
	}

	got := ring.Entries(1, 2)
	if len(got) != 2 || got[0].Message != "b" || got[1].Message != "c" {
		t.Errorf("Entries(1, 2) = %+v, want [b c]", got)
	}
	if got := ring.Entries(3, 1); len(got) != 0 {
		t.Errorf("Entries(3, 1) returned %d entries, want 0", len(got))
	}
}
