package diagram

import (
	"github.com/google/uuid"

	"github.com/modata-dev/modata/pkg/schema"
)

// FieldPatch is a partial update for a field. Nil members are left untouched.
//
// Setting Type switches the field's kind: the new payload replaces the old
// one completely, so no sub-structure from the previous variant survives. The
// field's ID and Name are never affected by a type switch.
type FieldPatch struct {
	Name        *string
	Type        *schema.FieldType
	Array       *bool
	Description *string
}

func (p FieldPatch) apply(f *schema.FieldDef) {
	if p.Name != nil {
		f.Name = *p.Name
	}
	if p.Type != nil {
		f.Type = p.Type.Clone()
	}
	if p.Array != nil {
		f.Array = *p.Array
	}
	if p.Description != nil {
		f.Description = *p.Description
	}
}

// AddField appends a field with a generated ID, default name "newField" and
// type string to the end of the entity's field list. Returns the field ID.
func (s *Store) AddField(nodeID string) (string, error) {
	n := s.node(nodeID)
	if n == nil {
		return "", ErrNodeNotFound
	}
	id := uuid.NewString()
	n.Data.Fields = append(n.Data.Fields, schema.FieldDef{
		ID:   id,
		Name: "newField",
		Type: schema.Primitive(schema.PrimitiveString),
	})
	s.mutated()
	return id, nil
}

// UpdateField merges a patch into the addressed field.
func (s *Store) UpdateField(nodeID, fieldID string, patch FieldPatch) error {
	n := s.node(nodeID)
	if n == nil {
		return ErrNodeNotFound
	}
	f := findField(n.Data.Fields, fieldID)
	if f == nil {
		return ErrFieldNotFound
	}
	patch.apply(f)
	s.mutated()
	return nil
}

// RemoveField removes the addressed field. Relationships are not cascaded:
// edges attach at entity level, and a handle referencing the removed field is
// tolerated as a stale cosmetic hint.
func (s *Store) RemoveField(nodeID, fieldID string) error {
	n := s.node(nodeID)
	if n == nil {
		return ErrNodeNotFound
	}
	for i := range n.Data.Fields {
		if n.Data.Fields[i].ID == fieldID {
			n.Data.Fields = append(n.Data.Fields[:i], n.Data.Fields[i+1:]...)
			s.mutated()
			return nil
		}
	}
	return ErrFieldNotFound
}

// ReorderFields moves the field at from to position to, shifting the entries
// between them. Out-of-range indices are a programmer error: the calling
// layer supplies indices obtained from direct list iteration, so this panics
// rather than returning an error.
func (s *Store) ReorderFields(nodeID string, from, to int) error {
	n := s.node(nodeID)
	if n == nil {
		return ErrNodeNotFound
	}
	fields := n.Data.Fields
	moved := fields[from]
	fields = append(fields[:from], fields[from+1:]...)
	fields = append(fields[:to], append([]schema.FieldDef{moved}, fields[to:]...)...)
	n.Data.Fields = fields
	s.mutated()
	return nil
}

// =============================================================================
// Sub-Entity Fields
// =============================================================================

// AddSubEntityField appends a default "subField: string" field to the
// sub-entity payload of the addressed field.
//
// If the field is absent or its type is not a sub-entity the call is a silent
// no-op: the UI contract only reaches this operation through its own type
// switch, so there is no error to report. Returns the new sub-field ID, or
// the empty string when nothing was added.
func (s *Store) AddSubEntityField(nodeID, fieldID string) string {
	se := s.subEntity(nodeID, fieldID)
	if se == nil {
		return ""
	}
	id := uuid.NewString()
	se.Fields = append(se.Fields, schema.FieldDef{
		ID:   id,
		Name: "subField",
		Type: schema.Primitive(schema.PrimitiveString),
	})
	s.mutated()
	return id
}

// UpdateSubEntityField merges a patch into a field nested one level deep,
// addressed by (parentFieldID, subFieldID).
func (s *Store) UpdateSubEntityField(nodeID, parentFieldID, subFieldID string, patch FieldPatch) error {
	se := s.subEntity(nodeID, parentFieldID)
	if se == nil {
		return ErrFieldNotFound
	}
	f := findField(se.Fields, subFieldID)
	if f == nil {
		return ErrFieldNotFound
	}
	patch.apply(f)
	s.mutated()
	return nil
}

// RemoveSubEntityField removes a field nested one level deep.
func (s *Store) RemoveSubEntityField(nodeID, parentFieldID, subFieldID string) error {
	se := s.subEntity(nodeID, parentFieldID)
	if se == nil {
		return ErrFieldNotFound
	}
	for i := range se.Fields {
		if se.Fields[i].ID == subFieldID {
			se.Fields = append(se.Fields[:i], se.Fields[i+1:]...)
			s.mutated()
			return nil
		}
	}
	return ErrFieldNotFound
}

// =============================================================================
// Enum Options
// =============================================================================

// AddEnumOption appends an option to the enum payload of the addressed
// field. Like AddSubEntityField, it is a silent no-op when the field is
// absent or not enum-typed.
func (s *Store) AddEnumOption(nodeID, fieldID, option string) {
	e := s.enum(nodeID, fieldID)
	if e == nil {
		return
	}
	e.Options = append(e.Options, option)
	s.mutated()
}

// UpdateEnumOption replaces the option at index. The index is a precondition,
// supplied by direct iteration over the option list.
func (s *Store) UpdateEnumOption(nodeID, fieldID string, index int, value string) error {
	e := s.enum(nodeID, fieldID)
	if e == nil {
		return ErrFieldNotFound
	}
	e.Options[index] = value
	s.mutated()
	return nil
}

// RemoveEnumOption removes the option at index.
func (s *Store) RemoveEnumOption(nodeID, fieldID string, index int) error {
	e := s.enum(nodeID, fieldID)
	if e == nil {
		return ErrFieldNotFound
	}
	e.Options = append(e.Options[:index], e.Options[index+1:]...)
	s.mutated()
	return nil
}

// =============================================================================
// Lookups
// =============================================================================

func findField(fields []schema.FieldDef, id string) *schema.FieldDef {
	for i := range fields {
		if fields[i].ID == id {
			return &fields[i]
		}
	}
	return nil
}

// subEntity resolves a field's sub-entity payload, or nil when the node or
// field is absent or the field is not sub-entity typed.
func (s *Store) subEntity(nodeID, fieldID string) *schema.SubEntityDef {
	n := s.node(nodeID)
	if n == nil {
		return nil
	}
	f := findField(n.Data.Fields, fieldID)
	if f == nil || !f.Type.IsSubEntity() || f.Type.SubEntity == nil {
		return nil
	}
	return f.Type.SubEntity
}

// enum resolves a field's enum payload, or nil when absent or wrong kind.
func (s *Store) enum(nodeID, fieldID string) *schema.EnumDef {
	n := s.node(nodeID)
	if n == nil {
		return nil
	}
	f := findField(n.Data.Fields, fieldID)
	if f == nil || !f.Type.IsEnum() || f.Type.Enum == nil {
		return nil
	}
	return f.Type.Enum
}
