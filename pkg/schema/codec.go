package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

// ErrInvalidSchema is returned when an imported document fails structural
// validation. The document is rejected whole; nothing is partially loaded.
var ErrInvalidSchema = errors.New("invalid schema")

// Now returns the current time in the document timestamp format (RFC 3339
// with millisecond precision, UTC).
func Now() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

// Marshal serializes a document to pretty-printed JSON bytes.
func Marshal(d Diagram) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(d, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write encodes a document as JSON to w.
func Write(d Diagram, w io.Writer) error {
	if d.Nodes == nil {
		d.Nodes = []Node{}
	}
	if d.Edges == nil {
		d.Edges = []Edge{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(d); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// WriteFile writes a document to a JSON file with 0644 permissions.
func WriteFile(d Diagram, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return Write(d, f)
}

// Unmarshal decodes and validates a document from JSON bytes.
//
// A document is rejected with [ErrInvalidSchema] unless it has a non-empty
// name and both nodes and edges are present and array-typed. No deeper
// structural validation (field type correctness, dangling edge endpoints) is
// performed; such inconsistencies are tolerated and surface later, if at all,
// when a store loads the document.
func Unmarshal(data []byte) (Diagram, error) {
	var probe struct {
		Name  string          `json:"name"`
		Nodes json.RawMessage `json:"nodes"`
		Edges json.RawMessage `json:"edges"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return Diagram{}, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}
	if probe.Name == "" {
		return Diagram{}, fmt.Errorf("%w: missing name", ErrInvalidSchema)
	}
	if !isJSONArray(probe.Nodes) {
		return Diagram{}, fmt.Errorf("%w: nodes must be an array", ErrInvalidSchema)
	}
	if !isJSONArray(probe.Edges) {
		return Diagram{}, fmt.Errorf("%w: edges must be an array", ErrInvalidSchema)
	}

	var d Diagram
	if err := json.Unmarshal(data, &d); err != nil {
		return Diagram{}, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}
	if d.Nodes == nil {
		d.Nodes = []Node{}
	}
	if d.Edges == nil {
		d.Edges = []Edge{}
	}
	return d, nil
}

// Read decodes and validates a document from r.
func Read(r io.Reader) (Diagram, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Diagram{}, fmt.Errorf("read: %w", err)
	}
	return Unmarshal(data)
}

// ReadFile reads and validates a document from a JSON file.
func ReadFile(path string) (Diagram, error) {
	f, err := os.Open(path)
	if err != nil {
		return Diagram{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Read(f)
}

// isJSONArray reports whether raw is a present, array-typed JSON value.
func isJSONArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	return len(trimmed) > 0 && trimmed[0] == '['
}
