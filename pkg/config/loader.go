package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/getimposd/imposd/pkg/imposter"
	"github.com/getimposd/imposd/pkg/snapshot"
)

// Common errors for imposter file loading.
var (
	ErrFileNotFound     = errors.New("config file not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrEmptyFile        = errors.New("config file is empty")
)

// envVarPattern matches ${VAR_NAME} or ${VAR_NAME:-default}
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// LoadFile reads one imposter document from a JSON or YAML file.
// Environment variable references in the content are expanded before
// parsing.
func LoadFile(path string) (*imposter.Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		if os.IsPermission(err) {
			return nil, fmt.Errorf("%w: %s", ErrPermissionDenied, path)
		}
		return nil, fmt.Errorf("stat config file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("path is a directory, not a file: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsPermission(err) {
			return nil, fmt.Errorf("%w: %s", ErrPermissionDenied, path)
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyFile, path)
	}

	expanded := []byte(ExpandEnvVars(string(data)))
	doc, err := snapshot.Parse(expanded, snapshot.DetectFormat(expanded, path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// LoadImposters loads every file the patterns name and concatenates
// their imposters. A literal path must exist; a glob pattern matching
// nothing contributes nothing. Matches load in sorted path order so
// startup is deterministic.
func LoadImposters(patterns []string) (*imposter.Document, error) {
	paths, err := ExpandGlobs(patterns)
	if err != nil {
		return nil, err
	}

	doc := &imposter.Document{Imposters: []imposter.Config{}}
	for _, path := range paths {
		loaded, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		doc.Imposters = append(doc.Imposters, loaded.Imposters...)
	}
	return doc, nil
}

// ExpandGlobs resolves file patterns to concrete paths, sorted and
// deduplicated. Patterns without glob metacharacters pass through as
// literal paths whether or not they exist, so the loader can report
// the missing file by name.
func ExpandGlobs(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var paths []string
	for _, pattern := range patterns {
		if !isGlob(pattern) {
			if !seen[pattern] {
				seen[pattern] = true
				paths = append(paths, pattern)
			}
			continue
		}
		matches, err := expandGlob(pattern)
		if err != nil {
			return nil, fmt.Errorf("expanding glob pattern %q: %w", pattern, err)
		}
		for _, match := range matches {
			if !seen[match] {
				seen[match] = true
				paths = append(paths, match)
			}
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// SaveFile writes the document to path using an atomic rename, creating
// parent directories as needed. The format follows the file extension.
func SaveFile(path string, doc *imposter.Document) error {
	if doc == nil {
		return errors.New("document cannot be nil")
	}

	data, err := snapshot.Marshal(doc, snapshot.DetectFormat(nil, path))
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temporary file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temporary file: %w", err)
	}
	return nil
}

// ExpandEnvVars expands environment variables in the input string.
// Supports ${VAR_NAME} and ${VAR_NAME:-default} syntax.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		submatch := envVarPattern.FindStringSubmatch(match)
		if len(submatch) < 2 {
			return match
		}

		varName := submatch[1]
		defaultVal := ""
		if len(submatch) >= 3 {
			defaultVal = submatch[2]
		}

		if val := os.Getenv(varName); val != "" {
			return val
		}
		return defaultVal
	})
}

// expandGlob expands a glob pattern to matching file paths, using
// doublestar when the pattern asks for recursive matching.
func expandGlob(pattern string) ([]string, error) {
	if strings.Contains(pattern, "**") {
		// FilepathGlob returns matches using the OS path separator.
		return doublestar.FilepathGlob(pattern)
	}
	return filepath.Glob(pattern)
}

func isGlob(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[{")
}
