package persist

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/modata-dev/modata/pkg/schema"
)

// FileStore persists documents as JSON files in a directory, for CLI usage.
//
// Slot files are named by a hash of the diagram name so arbitrary names never
// escape the directory. A small index file carries the listing order and the
// last-opened pointer.
type FileStore struct {
	dir string
}

// fileIndex is the on-disk listing state.
type fileIndex struct {
	Diagrams []Meta `json:"diagrams"`
	Last     string `json:"lastDiagram,omitempty"`
}

// NewFileStore creates a file-backed store rooted at dir, creating the
// directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the storage directory.
func (s *FileStore) Dir() string { return s.dir }

// List returns saved metadata, most recently saved first.
func (s *FileStore) List(ctx context.Context) ([]Meta, error) {
	idx, err := s.readIndex()
	if err != nil {
		return nil, err
	}
	return idx.Diagrams, nil
}

// Save writes the document's slot file and updates the index.
func (s *FileStore) Save(ctx context.Context, d schema.Diagram) error {
	if err := schema.WriteFile(d, s.slotPath(d.Name)); err != nil {
		return err
	}
	idx, err := s.readIndex()
	if err != nil {
		return err
	}
	idx.Diagrams = promote(idx.Diagrams, Meta{Name: d.Name, UpdatedAt: d.UpdatedAt})
	idx.Last = d.Name
	return s.writeIndex(idx)
}

// Load reads the named slot file.
func (s *FileStore) Load(ctx context.Context, name string) (schema.Diagram, error) {
	d, err := schema.ReadFile(s.slotPath(name))
	if errors.Is(err, os.ErrNotExist) {
		return schema.Diagram{}, ErrNotFound
	}
	return d, err
}

// Delete removes the slot file and its index entry.
func (s *FileStore) Delete(ctx context.Context, name string) error {
	if err := os.Remove(s.slotPath(name)); err != nil && !os.IsNotExist(err) {
		return err
	}
	idx, err := s.readIndex()
	if err != nil {
		return err
	}
	idx.Diagrams = remove(idx.Diagrams, name)
	if idx.Last == name {
		idx.Last = ""
	}
	return s.writeIndex(idx)
}

// SetLastOpened records the last-opened name in the index.
func (s *FileStore) SetLastOpened(ctx context.Context, name string) error {
	idx, err := s.readIndex()
	if err != nil {
		return err
	}
	idx.Last = name
	return s.writeIndex(idx)
}

// LastOpened returns the last-opened name from the index.
func (s *FileStore) LastOpened(ctx context.Context) (string, error) {
	idx, err := s.readIndex()
	if err != nil {
		return "", err
	}
	if idx.Last == "" {
		return "", ErrNotFound
	}
	return idx.Last, nil
}

// Close does nothing for the file store.
func (s *FileStore) Close() error { return nil }

func (s *FileStore) slotPath(name string) string {
	sum := sha256.Sum256([]byte(name))
	return filepath.Join(s.dir, hex.EncodeToString(sum[:16])+".json")
}

func (s *FileStore) indexPath() string {
	return filepath.Join(s.dir, "index.json")
}

func (s *FileStore) readIndex() (fileIndex, error) {
	data, err := os.ReadFile(s.indexPath())
	if os.IsNotExist(err) {
		return fileIndex{}, nil
	}
	if err != nil {
		return fileIndex{}, err
	}
	var idx fileIndex
	if err := json.Unmarshal(data, &idx); err != nil {
		// Corrupt index: treat as empty rather than bricking the store.
		return fileIndex{}, nil
	}
	return idx, nil
}

func (s *FileStore) writeIndex(idx fileIndex) error {
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.indexPath(), data, 0644)
}

var _ Store = (*FileStore)(nil)
