package schema

import (
	"encoding/json"
	"fmt"
)

// FieldKind discriminates the variants of a [FieldType].
type FieldKind string

// Field type kinds.
const (
	KindPrimitive FieldKind = "primitive"
	KindSubEntity FieldKind = "sub-entity"
	KindEnum      FieldKind = "enum"
)

// FieldType is a tagged union over the three field type variants. Exactly one
// payload is populated, selected by Kind:
//
//   - KindPrimitive: Primitive holds the scalar tag
//   - KindSubEntity: SubEntity holds the embedded record definition
//   - KindEnum: Enum holds the option list
//
// Switching a field between kinds must fully reconstruct the payload; the
// constructors [Primitive], [SubEntity] and [Enum] guarantee that no stale
// payload from another variant survives the switch.
//
// The JSON wire form is compact: a primitive serializes as a bare string
// ("uuid"), while sub-entities and enums serialize as objects carrying a
// "kind" discriminant.
type FieldType struct {
	Kind      FieldKind
	Primitive PrimitiveType
	SubEntity *SubEntityDef
	Enum      *EnumDef
}

// Primitive constructs a primitive field type.
func Primitive(p PrimitiveType) FieldType {
	return FieldType{Kind: KindPrimitive, Primitive: p}
}

// SubEntity constructs a sub-entity field type with the given name and
// fields. The fields slice is used as-is.
func SubEntity(name string, fields []FieldDef) FieldType {
	if fields == nil {
		fields = []FieldDef{}
	}
	return FieldType{Kind: KindSubEntity, SubEntity: &SubEntityDef{Name: name, Fields: fields}}
}

// Enum constructs an enum field type with the given options.
func Enum(options ...string) FieldType {
	if options == nil {
		options = []string{}
	}
	return FieldType{Kind: KindEnum, Enum: &EnumDef{Options: options}}
}

// IsPrimitive reports whether the type is a primitive.
func (t FieldType) IsPrimitive() bool { return t.Kind == KindPrimitive }

// IsSubEntity reports whether the type is an embedded sub-entity.
func (t FieldType) IsSubEntity() bool { return t.Kind == KindSubEntity }

// IsEnum reports whether the type is an enum.
func (t FieldType) IsEnum() bool { return t.Kind == KindEnum }

// Clone returns a deep copy of the type and its payload.
func (t FieldType) Clone() FieldType {
	switch t.Kind {
	case KindSubEntity:
		if t.SubEntity == nil {
			return SubEntity("", nil)
		}
		fields := make([]FieldDef, len(t.SubEntity.Fields))
		for i, f := range t.SubEntity.Fields {
			fields[i] = f.Clone()
		}
		return SubEntity(t.SubEntity.Name, fields)
	case KindEnum:
		if t.Enum == nil {
			return Enum()
		}
		opts := make([]string, len(t.Enum.Options))
		copy(opts, t.Enum.Options)
		return Enum(opts...)
	default:
		return t
	}
}

// String returns a short human-readable description, e.g. "uuid",
// "sub-entity(Address)" or "enum[3]".
func (t FieldType) String() string {
	switch t.Kind {
	case KindPrimitive:
		return string(t.Primitive)
	case KindSubEntity:
		name := ""
		if t.SubEntity != nil {
			name = t.SubEntity.Name
		}
		return fmt.Sprintf("sub-entity(%s)", name)
	case KindEnum:
		n := 0
		if t.Enum != nil {
			n = len(t.Enum.Options)
		}
		return fmt.Sprintf("enum[%d]", n)
	}
	return string(t.Kind)
}

// subEntityJSON is the wire form of a sub-entity payload.
type subEntityJSON struct {
	Kind   FieldKind  `json:"kind"`
	Name   string     `json:"name"`
	Fields []FieldDef `json:"fields"`
}

// enumJSON is the wire form of an enum payload.
type enumJSON struct {
	Kind    FieldKind `json:"kind"`
	Options []string  `json:"options"`
}

// MarshalJSON implements json.Marshaler. Primitives serialize as a bare
// string; structured variants serialize as objects with a "kind" field.
func (t FieldType) MarshalJSON() ([]byte, error) {
	switch t.Kind {
	case KindPrimitive:
		return json.Marshal(string(t.Primitive))
	case KindSubEntity:
		se := t.SubEntity
		if se == nil {
			se = &SubEntityDef{Fields: []FieldDef{}}
		}
		fields := se.Fields
		if fields == nil {
			fields = []FieldDef{}
		}
		return json.Marshal(subEntityJSON{Kind: KindSubEntity, Name: se.Name, Fields: fields})
	case KindEnum:
		e := t.Enum
		if e == nil {
			e = &EnumDef{Options: []string{}}
		}
		opts := e.Options
		if opts == nil {
			opts = []string{}
		}
		return json.Marshal(enumJSON{Kind: KindEnum, Options: opts})
	}
	return nil, fmt.Errorf("field type: unknown kind %q", t.Kind)
}

// UnmarshalJSON implements json.Unmarshaler for both wire forms.
func (t *FieldType) UnmarshalJSON(data []byte) error {
	var prim string
	if err := json.Unmarshal(data, &prim); err == nil {
		*t = Primitive(PrimitiveType(prim))
		return nil
	}

	var head struct {
		Kind FieldKind `json:"kind"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return fmt.Errorf("field type: %w", err)
	}

	switch head.Kind {
	case KindSubEntity:
		var se subEntityJSON
		if err := json.Unmarshal(data, &se); err != nil {
			return fmt.Errorf("field type: %w", err)
		}
		*t = SubEntity(se.Name, se.Fields)
	case KindEnum:
		var e enumJSON
		if err := json.Unmarshal(data, &e); err != nil {
			return fmt.Errorf("field type: %w", err)
		}
		*t = Enum(e.Options...)
	default:
		return fmt.Errorf("field type: unknown kind %q", head.Kind)
	}
	return nil
}
