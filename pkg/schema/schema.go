// Package schema defines the portable document model for entity-relationship
// diagrams.
//
// A diagram is a graph of entities (nodes) connected by typed relationships
// (edges). Each entity carries an ordered list of typed fields; a field's type
// is either a primitive, an embedded sub-entity, or an enum. The [Diagram]
// type is the only form that crosses the persistence and export boundaries,
// and it round-trips losslessly through JSON: export → import → export
// produces identical node and edge content.
package schema

// =============================================================================
// Primitive Types
// =============================================================================

// PrimitiveType is a scalar field type tag.
type PrimitiveType string

// Supported primitive field types.
const (
	PrimitiveInt     PrimitiveType = "int"
	PrimitiveUUID    PrimitiveType = "uuid"
	PrimitiveDecimal PrimitiveType = "decimal"
	PrimitiveString  PrimitiveType = "string"
	PrimitiveBoolean PrimitiveType = "boolean"
)

// PrimitiveTypes lists all primitive type tags in display order.
var PrimitiveTypes = []PrimitiveType{
	PrimitiveInt,
	PrimitiveUUID,
	PrimitiveDecimal,
	PrimitiveString,
	PrimitiveBoolean,
}

// IsValid reports whether p is one of the supported primitive tags.
func (p PrimitiveType) IsValid() bool {
	switch p {
	case PrimitiveInt, PrimitiveUUID, PrimitiveDecimal, PrimitiveString, PrimitiveBoolean:
		return true
	}
	return false
}

// =============================================================================
// Fields
// =============================================================================

// FieldDef is a named, typed attribute of an entity.
//
// The ID is opaque, unique within the owning entity, and never changes after
// creation. Name is user-editable; the core does not enforce name uniqueness.
type FieldDef struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Type        FieldType `json:"type"`
	Array       bool      `json:"array,omitempty"`
	Description string    `json:"description,omitempty"`
}

// Clone returns a deep copy of the field, including any sub-entity or enum
// payload.
func (f FieldDef) Clone() FieldDef {
	f.Type = f.Type.Clone()
	return f
}

// SubEntityDef is an anonymous nested record type embedded inside a field.
// Its fields may themselves be sub-entities, though in practice nesting stops
// at depth one.
type SubEntityDef struct {
	Name   string     `json:"name"`
	Fields []FieldDef `json:"fields"`
}

// EnumDef is a closed set of string options for an enum-typed field.
type EnumDef struct {
	Options []string `json:"options"`
}

// =============================================================================
// Entities
// =============================================================================

// Position is a node's top-left corner on the canvas.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// EntityData is the payload of a diagram node: a display name, an ordered
// field list, and a header color drawn from [Palette].
//
// Field order is meaningful and user-controlled; every mutation except an
// explicit reorder preserves it.
type EntityData struct {
	Name   string     `json:"name"`
	Fields []FieldDef `json:"fields"`
	Color  string     `json:"color"`
}

// Clone returns a deep copy of the entity data.
func (d EntityData) Clone() EntityData {
	fields := make([]FieldDef, len(d.Fields))
	for i, f := range d.Fields {
		fields[i] = f.Clone()
	}
	d.Fields = fields
	return d
}

// Node is a serialized entity: identity, canvas position and payload.
type Node struct {
	ID       string     `json:"id"`
	Position Position   `json:"position"`
	Data     EntityData `json:"data"`
}

// Clone returns a deep copy of the node.
func (n Node) Clone() Node {
	n.Data = n.Data.Clone()
	return n
}

// =============================================================================
// Relationships
// =============================================================================

// RelationType is the cardinality of a relationship edge.
type RelationType string

// Supported relationship cardinalities.
const (
	OneToOne   RelationType = "oneToOne"
	OneToMany  RelationType = "oneToMany"
	ManyToMany RelationType = "manyToMany"
)

// RelationTypes lists all cardinalities in cycling order.
var RelationTypes = []RelationType{OneToOne, OneToMany, ManyToMany}

// IsValid reports whether r is a supported cardinality.
func (r RelationType) IsValid() bool {
	switch r {
	case OneToOne, OneToMany, ManyToMany:
		return true
	}
	return false
}

// Label returns the display label for the cardinality, e.g. "1 : N".
func (r RelationType) Label() string {
	switch r {
	case OneToOne:
		return "1 : 1"
	case OneToMany:
		return "1 : N"
	case ManyToMany:
		return "N : M"
	}
	return string(r)
}

// Next returns the following cardinality in cycling order, wrapping from
// manyToMany back to oneToOne. Cycling three times returns to the start.
func (r RelationType) Next() RelationType {
	for i, rt := range RelationTypes {
		if rt == r {
			return RelationTypes[(i+1)%len(RelationTypes)]
		}
	}
	return OneToOne
}

// RelationData is the payload of a relationship edge.
//
// Inverted swaps which endpoint is the "1" side; it is meaningful only for
// oneToMany relationships.
type RelationData struct {
	Type     RelationType `json:"relationType"`
	Inverted bool         `json:"inverted,omitempty"`
	Label    string       `json:"label,omitempty"`
}

// Edge is a serialized relationship between two entities.
//
// SourceHandle and TargetHandle identify the field-level attachment points on
// each entity. The handles are a cosmetic hint: an edge remains meaningful at
// entity level even when a handle references a field that has since been
// removed.
type Edge struct {
	ID           string       `json:"id"`
	Source       string       `json:"source"`
	Target       string       `json:"target"`
	SourceHandle string       `json:"sourceHandle,omitempty"`
	TargetHandle string       `json:"targetHandle,omitempty"`
	Data         RelationData `json:"data"`
}

// =============================================================================
// Diagram Document
// =============================================================================

// Version is the current document format version.
const Version = "1.0.0"

// Diagram is the portable, versioned document form of a full
// entity-relationship graph. It is the file format for export and import and
// the record format for persistence.
type Diagram struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
	Nodes     []Node `json:"nodes"`
	Edges     []Edge `json:"edges"`
}

// Clone returns a deep copy of the document.
func (d Diagram) Clone() Diagram {
	nodes := make([]Node, len(d.Nodes))
	for i, n := range d.Nodes {
		nodes[i] = n.Clone()
	}
	edges := make([]Edge, len(d.Edges))
	copy(edges, d.Edges)
	d.Nodes = nodes
	d.Edges = edges
	return d
}

// =============================================================================
// Entity Colors
// =============================================================================

// Palette is the fixed set of entity header colors. New entities cycle
// through it in order.
var Palette = []string{
	"#4f6df5", // blue
	"#8b5cf6", // purple
	"#06b6d4", // cyan
	"#10b981", // green
	"#f59e0b", // amber
	"#ef4444", // red
	"#ec4899", // pink
	"#6366f1", // indigo
}

// EntityColor returns the palette color for the i-th entity, cycling.
func EntityColor(i int) string {
	if i < 0 {
		i = -i
	}
	return Palette[i%len(Palette)]
}

// DefaultField returns the default field added to every new entity.
func DefaultField(id string) FieldDef {
	return FieldDef{ID: id, Name: "id", Type: Primitive(PrimitiveUUID)}
}
