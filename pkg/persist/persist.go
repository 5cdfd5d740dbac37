// Package persist provides named-slot persistence for diagram documents.
//
// A [Store] keeps whole serialized documents keyed by diagram name plus a
// single "last opened" pointer; there are no partial updates. Implementations
// exist for several backends:
//
//   - memory: in-memory storage for tests and embedding hosts
//   - file: a directory of JSON slot files for CLI usage
//   - redis: Redis-backed storage for shared deployments
//   - mongo: MongoDB document storage
//
// Saving a document also moves it to the front of the listing and updates the
// last-opened pointer; deleting a document clears the pointer when it names
// the deleted diagram.
package persist

import (
	"context"
	"errors"

	"github.com/modata-dev/modata/pkg/schema"
)

// ErrNotFound is returned when the named diagram does not exist.
var ErrNotFound = errors.New("diagram not found")

// Key layout shared by the redis backend and the file index.
const (
	keyIndex = "modata:diagrams"
	keyLast  = "modata:lastDiagram"
	keySlot  = "modata:diagram:" // + diagram name
)

// Meta describes a saved diagram in a listing.
type Meta struct {
	Name      string `json:"name"`
	UpdatedAt string `json:"updatedAt"`
}

// Store is the named-slot persistence contract. Implementations must be safe
// for use by a single logical owner; they are not required to support
// concurrent mutation of the same slot.
type Store interface {
	// List returns saved diagram metadata, most recently saved first.
	List(ctx context.Context) ([]Meta, error)

	// Save stores a whole document under its name, moves it to the front of
	// the listing, and updates the last-opened pointer.
	Save(ctx context.Context, d schema.Diagram) error

	// Load returns the document saved under name, or ErrNotFound.
	Load(ctx context.Context, name string) (schema.Diagram, error)

	// Delete removes the named document. Deleting an absent name is not an
	// error. The last-opened pointer is cleared if it referenced the name.
	Delete(ctx context.Context, name string) error

	// SetLastOpened records the last-opened diagram name.
	SetLastOpened(ctx context.Context, name string) error

	// LastOpened returns the last-opened diagram name, or ErrNotFound when
	// no pointer is set.
	LastOpened(ctx context.Context) (string, error)

	// Close releases backend resources.
	Close() error
}

// LoadLast is a convenience that resolves the last-opened pointer and loads
// the document it names. Returns ErrNotFound when no pointer is set or the
// document it names has been deleted.
func LoadLast(ctx context.Context, s Store) (schema.Diagram, error) {
	name, err := s.LastOpened(ctx)
	if err != nil {
		return schema.Diagram{}, err
	}
	return s.Load(ctx, name)
}

// promote moves name to the front of the meta listing, dropping any previous
// entry for it.
func promote(metas []Meta, m Meta) []Meta {
	out := make([]Meta, 0, len(metas)+1)
	out = append(out, m)
	for _, e := range metas {
		if e.Name != m.Name {
			out = append(out, e)
		}
	}
	return out
}

// remove drops name from the meta listing.
func remove(metas []Meta, name string) []Meta {
	out := metas[:0]
	for _, e := range metas {
		if e.Name != name {
			out = append(out, e)
		}
	}
	return out
}
