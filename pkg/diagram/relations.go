package diagram

import (
	"github.com/google/uuid"

	"github.com/modata-dev/modata/pkg/schema"
)

// SetPendingConnection stores the in-progress drag-to-connect gesture, or
// clears it when conn is nil. The pending connection is a single-slot scratch
// register: it is consumed by [Store.AddRelation], never persisted, and does
// not count as a schema-affecting mutation.
func (s *Store) SetPendingConnection(conn *Connection) {
	if conn == nil {
		s.pending = nil
		return
	}
	c := *conn
	s.pending = &c
}

// PendingConnection returns the in-progress connection, or nil.
func (s *Store) PendingConnection() *Connection {
	if s.pending == nil {
		return nil
	}
	c := *s.pending
	return &c
}

// AddRelation creates a relationship edge for the given connection and
// clears any pending connection.
//
// The request is silently dropped — no edge, empty ID returned — when either
// endpoint is missing, references an unknown entity, or the connection is a
// self-loop.
func (s *Store) AddRelation(conn Connection, rt schema.RelationType) string {
	s.pending = nil

	if conn.Source == "" || conn.Target == "" || conn.Source == conn.Target {
		return ""
	}
	if s.node(conn.Source) == nil || s.node(conn.Target) == nil {
		return ""
	}

	id := uuid.NewString()
	s.edges = append(s.edges, schema.Edge{
		ID:           id,
		Source:       conn.Source,
		Target:       conn.Target,
		SourceHandle: conn.SourceHandle,
		TargetHandle: conn.TargetHandle,
		Data:         schema.RelationData{Type: rt},
	})
	s.mutated()
	return id
}

// UpdateRelationType sets the cardinality of an edge without touching its
// endpoints.
func (s *Store) UpdateRelationType(edgeID string, rt schema.RelationType) error {
	e := s.edge(edgeID)
	if e == nil {
		return ErrEdgeNotFound
	}
	e.Data.Type = rt
	s.mutated()
	return nil
}

// CycleRelationType advances an edge's cardinality to the next kind in
// cycling order (oneToOne → oneToMany → manyToMany → oneToOne).
func (s *Store) CycleRelationType(edgeID string) error {
	e := s.edge(edgeID)
	if e == nil {
		return ErrEdgeNotFound
	}
	e.Data.Type = e.Data.Type.Next()
	s.mutated()
	return nil
}

// ToggleRelationDirection flips the edge's inverted flag, swapping which
// endpoint is the "1" side. Only meaningful for oneToMany relationships; the
// flag is stored regardless.
func (s *Store) ToggleRelationDirection(edgeID string) error {
	e := s.edge(edgeID)
	if e == nil {
		return ErrEdgeNotFound
	}
	e.Data.Inverted = !e.Data.Inverted
	s.mutated()
	return nil
}

// UpdateRelationLabel sets an edge's display label.
func (s *Store) UpdateRelationLabel(edgeID, label string) error {
	e := s.edge(edgeID)
	if e == nil {
		return ErrEdgeNotFound
	}
	e.Data.Label = label
	s.mutated()
	return nil
}

// RemoveRelation deletes an edge. Nothing cascades.
func (s *Store) RemoveRelation(edgeID string) error {
	for i := range s.edges {
		if s.edges[i].ID == edgeID {
			s.edges = append(s.edges[:i], s.edges[i+1:]...)
			s.mutated()
			return nil
		}
	}
	return ErrEdgeNotFound
}
