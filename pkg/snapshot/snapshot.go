// Package snapshot serializes the full imposter registry to a portable
// document and restores it again, the persistence half of save/replay.
// Documents are plain JSON or YAML, hand-editable and diffable; saving
// never contacts a proxy origin, it folds what was already recorded.
package snapshot

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/getimposd/imposd/pkg/engine"
	"github.com/getimposd/imposd/pkg/imposter"
)

//go:embed schema.json
var schemaJSON string

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

// RestoreError reports why a snapshot document was rejected before any
// imposter was touched. Path is a JSON pointer into the document, empty
// for document-level problems.
type RestoreError struct {
	Path    string
	Message string
}

func (e *RestoreError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("snapshot rejected at %s: %s", e.Path, e.Message)
	}
	return fmt.Sprintf("snapshot rejected: %s", e.Message)
}

// Format identifies the document serialization.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
)

// DetectFormat picks the serialization from the filename extension,
// falling back to sniffing the content. Anything that does not look
// like JSON is treated as YAML, of which JSON is a subset anyway.
func DetectFormat(data []byte, filename string) Format {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".json":
		return FormatJSON
	}
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		return FormatJSON
	}
	return FormatYAML
}

// Save captures the current registry state as a replayable document:
// recorded proxy responses become literal entries and live proxy
// entries are stripped, so replaying the document never depends on an
// origin being reachable.
func Save(reg *engine.Registry) *imposter.Document {
	imps := reg.List()
	doc := &imposter.Document{Imposters: make([]imposter.Config, 0, len(imps))}
	for _, imp := range imps {
		doc.Imposters = append(doc.Imposters, imp.Config(true, true))
	}
	return doc
}

// Restore swaps the registry contents for the document's imposters.
func Restore(ctx context.Context, reg *engine.Registry, doc *imposter.Document) ([]*engine.Imposter, error) {
	return reg.ReplaceAll(ctx, doc.Imposters)
}

// Marshal renders the document in the given format. YAML output is
// produced from the JSON form so both serializations carry identical
// field shapes.
func Marshal(doc *imposter.Document, format Format) ([]byte, error) {
	buf, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	if format != FormatYAML {
		return append(buf, '\n'), nil
	}

	var raw any
	if err := json.Unmarshal(buf, &raw); err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	return yaml.Marshal(raw)
}

// Parse decodes and validates a snapshot document. YAML input is
// bridged through JSON so the document's field codecs apply to both
// serializations. Structural problems come back as a RestoreError
// naming the offending location; nothing is applied to any registry.
func Parse(data []byte, format Format) (*imposter.Document, error) {
	jsonBytes, err := toJSON(data, format)
	if err != nil {
		return nil, &RestoreError{Message: fmt.Sprintf("parse document: %v", err)}
	}

	var raw any
	if err := json.Unmarshal(jsonBytes, &raw); err != nil {
		return nil, &RestoreError{Message: fmt.Sprintf("parse document: %v", err)}
	}
	if err := validateDocument(raw); err != nil {
		return nil, err
	}

	var doc imposter.Document
	if err := json.Unmarshal(jsonBytes, &doc); err != nil {
		return nil, &RestoreError{Message: fmt.Sprintf("decode document: %v", err)}
	}
	return &doc, nil
}

// SaveFile writes the registry snapshot to path, choosing the format
// from the file extension.
func SaveFile(path string, reg *engine.Registry) error {
	data, err := Marshal(Save(reg), DetectFormat(nil, path))
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// LoadFile reads and validates a snapshot document from path.
func LoadFile(path string) (*imposter.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return Parse(data, DetectFormat(data, path))
}

// RestoreFile loads a snapshot document from path and applies it.
func RestoreFile(ctx context.Context, reg *engine.Registry, path string) ([]*engine.Imposter, error) {
	doc, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	return Restore(ctx, reg, doc)
}

func toJSON(data []byte, format Format) ([]byte, error) {
	if format == FormatJSON {
		return data, nil
	}
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return json.Marshal(raw)
}

func validateDocument(raw any) error {
	compiled, err := documentSchema()
	if err != nil {
		return fmt.Errorf("compile snapshot schema: %w", err)
	}
	if err := compiled.Validate(raw); err != nil {
		return schemaRestoreError(err)
	}
	return nil
}

func documentSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		if err := compiler.AddResource("snapshot.json", strings.NewReader(schemaJSON)); err != nil {
			schemaErr = err
			return
		}
		schema, schemaErr = compiler.Compile("snapshot.json")
	})
	return schema, schemaErr
}

// schemaRestoreError reduces a schema validation tree to its deepest
// cause, which names the most specific offending location.
func schemaRestoreError(err error) error {
	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return &RestoreError{Message: err.Error()}
	}
	leaf := verr
	for len(leaf.Causes) > 0 {
		leaf = leaf.Causes[0]
	}
	return &RestoreError{Path: leaf.InstanceLocation, Message: leaf.Message}
}
