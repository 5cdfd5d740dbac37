// Package diagram implements the in-memory entity-relationship diagram
// aggregate: the authoritative graph of entities and relationships with an
// atomic, consistency-preserving mutation API.
//
// A [Store] is explicitly constructed with [New] and exclusively owns its
// node and edge collections; callers read them through deep-copied snapshots
// and mutate them only through Store operations. All operations are
// synchronous and leave the aggregate in a valid state: edge endpoints always
// reference existing nodes (removing an entity cascades to its edges in the
// same operation), field IDs are unique within their entity, and field order
// is preserved by every mutation except an explicit reorder.
//
// Store is not safe for concurrent use; it is designed for a single logical
// owner dispatching one operation at a time.
package diagram

import (
	"errors"
	"strconv"

	"github.com/google/uuid"

	"github.com/modata-dev/modata/pkg/schema"
)

// Sentinel errors for mutations referencing unknown graph elements. The
// aggregate is never left half-mutated when one of these is returned.
var (
	// ErrNodeNotFound is returned when a mutation references an entity ID
	// that is not in the diagram.
	ErrNodeNotFound = errors.New("entity not found")

	// ErrFieldNotFound is returned when a mutation references a field ID
	// that is not on the addressed entity.
	ErrFieldNotFound = errors.New("field not found")

	// ErrEdgeNotFound is returned when a mutation references a relationship
	// ID that is not in the diagram.
	ErrEdgeNotFound = errors.New("relationship not found")
)

// DefaultName is the diagram name of a freshly created or cleared store.
const DefaultName = "Untitled Diagram"

// Connection is the endpoint pair of a drag-to-connect gesture. The handles
// identify field-level attachment points and may be empty.
type Connection struct {
	Source       string
	Target       string
	SourceHandle string
	TargetHandle string
}

// Store is the diagram aggregate. The zero value is not usable; call [New].
type Store struct {
	name    string
	version string
	created string
	nodes   []schema.Node
	edges   []schema.Edge

	// count backs default entity names and palette colors. It only ever
	// increases, so names are never reused across delete/re-add.
	count int

	pending  *Connection
	onMutate func()
}

// New creates an empty store named "Untitled Diagram". Multiple stores are
// fully independent.
func New() *Store {
	return &Store{name: DefaultName, version: schema.Version}
}

// OnMutate registers a hook invoked after every successful schema-affecting
// mutation. Pending-connection changes do not fire it. Pass nil to remove.
func (s *Store) OnMutate(fn func()) { s.onMutate = fn }

func (s *Store) mutated() {
	if s.onMutate != nil {
		s.onMutate()
	}
}

// Name returns the diagram name.
func (s *Store) Name() string { return s.name }

// SetName sets the diagram name.
func (s *Store) SetName(name string) {
	s.name = name
	s.mutated()
}

// Nodes returns a deep-copied snapshot of the entities in insertion order.
func (s *Store) Nodes() []schema.Node {
	out := make([]schema.Node, len(s.nodes))
	for i, n := range s.nodes {
		out[i] = n.Clone()
	}
	return out
}

// Edges returns a copied snapshot of the relationships in insertion order.
func (s *Store) Edges() []schema.Edge {
	out := make([]schema.Edge, len(s.edges))
	copy(out, s.edges)
	return out
}

// NodeCount returns the number of entities.
func (s *Store) NodeCount() int { return len(s.nodes) }

// EdgeCount returns the number of relationships.
func (s *Store) EdgeCount() int { return len(s.edges) }

// =============================================================================
// Entity Operations
// =============================================================================

// AddEntity creates a new entity and returns its ID.
//
// The entity gets a generated unique ID, a default name Entity<N> from a
// monotonically increasing counter, a single default "id: uuid" field, and
// the next palette color. If pos is nil the position staggers diagonally from
// the previous entity so successive additions do not overlap.
func (s *Store) AddEntity(pos *schema.Position) string {
	id := uuid.NewString()
	s.count++

	p := schema.Position{X: 100 + float64(s.count)*40, Y: 100 + float64(s.count)*40}
	if pos != nil {
		p = *pos
	}

	s.nodes = append(s.nodes, schema.Node{
		ID:       id,
		Position: p,
		Data: schema.EntityData{
			Name:   defaultEntityName(s.count),
			Fields: []schema.FieldDef{schema.DefaultField(uuid.NewString())},
			Color:  schema.EntityColor(s.count - 1),
		},
	})
	s.mutated()
	return id
}

// UpdateEntityName renames an entity. The core does not reject empty names;
// that is a presentation-layer policy.
func (s *Store) UpdateEntityName(nodeID, name string) error {
	n := s.node(nodeID)
	if n == nil {
		return ErrNodeNotFound
	}
	n.Data.Name = name
	s.mutated()
	return nil
}

// UpdateEntityColor sets an entity's header color.
func (s *Store) UpdateEntityColor(nodeID, color string) error {
	n := s.node(nodeID)
	if n == nil {
		return ErrNodeNotFound
	}
	n.Data.Color = color
	s.mutated()
	return nil
}

// MoveEntity updates an entity's canvas position.
func (s *Store) MoveEntity(nodeID string, pos schema.Position) error {
	n := s.node(nodeID)
	if n == nil {
		return ErrNodeNotFound
	}
	n.Position = pos
	s.mutated()
	return nil
}

// RemoveEntity removes an entity and, in the same operation, every
// relationship that touches it. The entity counter is not decremented.
func (s *Store) RemoveEntity(nodeID string) error {
	if s.node(nodeID) == nil {
		return ErrNodeNotFound
	}

	nodes := s.nodes[:0]
	for _, n := range s.nodes {
		if n.ID != nodeID {
			nodes = append(nodes, n)
		}
	}
	s.nodes = nodes

	edges := s.edges[:0]
	for _, e := range s.edges {
		if e.Source != nodeID && e.Target != nodeID {
			edges = append(edges, e)
		}
	}
	s.edges = edges

	s.mutated()
	return nil
}

// =============================================================================
// Diagram Operations
// =============================================================================

// Load atomically replaces the entire aggregate with the document's content.
// This is a full-state replace, not a merge: the name, nodes, edges and
// timestamps all come from the document, and the entity counter is reset to
// the node count. Any pending connection is discarded.
func (s *Store) Load(d schema.Diagram) {
	d = d.Clone()
	s.name = d.Name
	s.version = d.Version
	s.created = d.CreatedAt
	s.nodes = d.Nodes
	s.edges = d.Edges
	s.count = len(d.Nodes)
	s.pending = nil
	if s.version == "" {
		s.version = schema.Version
	}
	s.mutated()
}

// Clear resets the store to its initial empty state.
func (s *Store) Clear() {
	s.name = DefaultName
	s.version = schema.Version
	s.created = ""
	s.nodes = nil
	s.edges = nil
	s.count = 0
	s.pending = nil
	s.mutated()
}

// ToSchema projects the current state into a portable document. The
// projection is pure with respect to graph content: UpdatedAt is stamped with
// the current time, and CreatedAt is generated on first projection and
// preserved afterwards.
func (s *Store) ToSchema() schema.Diagram {
	now := schema.Now()
	if s.created == "" {
		s.created = now
	}
	return schema.Diagram{
		Name:      s.name,
		Version:   s.version,
		CreatedAt: s.created,
		UpdatedAt: now,
		Nodes:     s.Nodes(),
		Edges:     s.Edges(),
	}
}

// =============================================================================
// Internal Lookups
// =============================================================================

func (s *Store) node(id string) *schema.Node {
	for i := range s.nodes {
		if s.nodes[i].ID == id {
			return &s.nodes[i]
		}
	}
	return nil
}

func (s *Store) edge(id string) *schema.Edge {
	for i := range s.edges {
		if s.edges[i].ID == id {
			return &s.edges[i]
		}
	}
	return nil
}

func defaultEntityName(n int) string {
	return "Entity" + strconv.Itoa(n)
}
