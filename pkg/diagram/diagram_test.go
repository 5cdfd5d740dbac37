package diagram

import (
	"errors"
	"fmt"
	"testing"

	"github.com/modata-dev/modata/pkg/schema"
)

func TestNewStoreIsEmpty(t *testing.T) {
	s := New()
	if s.Name() != DefaultName {
		t.Errorf("Name() = %q, want %q", s.Name(), DefaultName)
	}
	if s.NodeCount() != 0 || s.EdgeCount() != 0 {
		t.Errorf("new store should be empty, got %d nodes, %d edges", s.NodeCount(), s.EdgeCount())
	}
}

func TestAddEntityDefaults(t *testing.T) {
	s := New()
	id := s.AddEntity(nil)
	if id == "" {
		t.Fatal("AddEntity() returned empty ID")
	}

	nodes := s.Nodes()
	if len(nodes) != 1 {
		t.Fatalf("NodeCount = %d, want 1", len(nodes))
	}
	n := nodes[0]
	if n.Data.Name != "Entity1" {
		t.Errorf("Name = %q, want %q", n.Data.Name, "Entity1")
	}
	if n.Data.Color != schema.Palette[0] {
		t.Errorf("Color = %q, want first palette color", n.Data.Color)
	}
	if len(n.Data.Fields) != 1 {
		t.Fatalf("got %d fields, want 1 default field", len(n.Data.Fields))
	}
	f := n.Data.Fields[0]
	if f.Name != "id" || !f.Type.IsPrimitive() || f.Type.Primitive != schema.PrimitiveUUID {
		t.Errorf("default field = %s %s, want id uuid", f.Name, f.Type)
	}
}

func TestAddEntitySequence(t *testing.T) {
	s := New()
	const n = 10

	ids := map[string]bool{}
	for i := 0; i < n; i++ {
		ids[s.AddEntity(nil)] = true
	}
	if len(ids) != n {
		t.Errorf("got %d distinct IDs, want %d", len(ids), n)
	}

	nodes := s.Nodes()
	for i, node := range nodes {
		wantName := fmt.Sprintf("Entity%d", i+1)
		if node.Data.Name != wantName {
			t.Errorf("node %d name = %q, want %q", i, node.Data.Name, wantName)
		}
		if node.Data.Color != schema.EntityColor(i) {
			t.Errorf("node %d color = %q, want palette cycle", i, node.Data.Color)
		}
	}

	// Default positions stagger so entities never stack exactly.
	seen := map[schema.Position]bool{}
	for _, node := range nodes {
		if seen[node.Position] {
			t.Errorf("position %+v assigned twice", node.Position)
		}
		seen[node.Position] = true
	}
}

func TestAddEntityExplicitPosition(t *testing.T) {
	s := New()
	id := s.AddEntity(&schema.Position{X: 7, Y: 9})
	n := s.Nodes()[0]
	if n.ID != id || n.Position.X != 7 || n.Position.Y != 9 {
		t.Errorf("position = %+v, want {7 9}", n.Position)
	}
}

func TestEntityNamesNeverReused(t *testing.T) {
	s := New()
	first := s.AddEntity(nil)
	s.AddEntity(nil)

	if err := s.RemoveEntity(first); err != nil {
		t.Fatalf("RemoveEntity() error = %v", err)
	}
	s.AddEntity(nil)

	names := map[string]bool{}
	for _, n := range s.Nodes() {
		if names[n.Data.Name] {
			t.Errorf("name %q reused after delete", n.Data.Name)
		}
		names[n.Data.Name] = true
	}
	if !names["Entity3"] {
		t.Error("counter should keep increasing past removed entities")
	}
}

func TestUpdateEntity(t *testing.T) {
	s := New()
	id := s.AddEntity(nil)

	if err := s.UpdateEntityName(id, "Customer"); err != nil {
		t.Fatalf("UpdateEntityName() error = %v", err)
	}
	if err := s.UpdateEntityColor(id, "#123456"); err != nil {
		t.Fatalf("UpdateEntityColor() error = %v", err)
	}
	if err := s.MoveEntity(id, schema.Position{X: 1, Y: 2}); err != nil {
		t.Fatalf("MoveEntity() error = %v", err)
	}

	n := s.Nodes()[0]
	if n.Data.Name != "Customer" || n.Data.Color != "#123456" || n.Position.X != 1 {
		t.Errorf("entity not updated: %+v", n)
	}
}

func TestEntityOpsUnknownID(t *testing.T) {
	s := New()
	if err := s.UpdateEntityName("ghost", "X"); !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("UpdateEntityName() error = %v, want ErrNodeNotFound", err)
	}
	if err := s.MoveEntity("ghost", schema.Position{}); !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("MoveEntity() error = %v, want ErrNodeNotFound", err)
	}
	if err := s.RemoveEntity("ghost"); !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("RemoveEntity() error = %v, want ErrNodeNotFound", err)
	}
}

func TestRemoveEntityCascadesRelations(t *testing.T) {
	s := New()
	a := s.AddEntity(nil)
	b := s.AddEntity(nil)
	c := s.AddEntity(nil)

	s.AddRelation(Connection{Source: a, Target: b}, schema.OneToMany)
	s.AddRelation(Connection{Source: b, Target: c}, schema.OneToOne)
	kept := s.AddRelation(Connection{Source: a, Target: c}, schema.ManyToMany)

	if err := s.RemoveEntity(b); err != nil {
		t.Fatalf("RemoveEntity() error = %v", err)
	}

	edges := s.Edges()
	if len(edges) != 1 {
		t.Fatalf("got %d edges after cascade, want 1", len(edges))
	}
	if edges[0].ID != kept {
		t.Errorf("surviving edge = %s, want %s", edges[0].ID, kept)
	}
	// No edge may reference the removed entity.
	for _, e := range edges {
		if e.Source == b || e.Target == b {
			t.Errorf("edge %s still references removed entity", e.ID)
		}
	}
}

func TestSnapshotsAreIsolated(t *testing.T) {
	s := New()
	s.AddEntity(nil)

	nodes := s.Nodes()
	nodes[0].Data.Name = "Hacked"
	nodes[0].Data.Fields[0].Name = "hacked"

	if got := s.Nodes()[0].Data.Name; got == "Hacked" {
		t.Error("mutating a snapshot should not affect the store")
	}
	if got := s.Nodes()[0].Data.Fields[0].Name; got == "hacked" {
		t.Error("snapshot fields should be deep copies")
	}
}

func TestLoadReplacesState(t *testing.T) {
	s := New()
	s.AddEntity(nil)
	s.AddEntity(nil)
	s.SetPendingConnection(&Connection{Source: "x", Target: "y"})

	doc := schema.Diagram{
		Name:    "Imported",
		Version: schema.Version,
		Nodes: []schema.Node{
			{ID: "n1", Data: schema.EntityData{Name: "Only", Fields: []schema.FieldDef{}}},
		},
		Edges: []schema.Edge{},
	}
	s.Load(doc)

	if s.Name() != "Imported" {
		t.Errorf("Name() = %q, want %q", s.Name(), "Imported")
	}
	if s.NodeCount() != 1 || s.EdgeCount() != 0 {
		t.Errorf("got %d nodes, %d edges; want 1, 0", s.NodeCount(), s.EdgeCount())
	}
	if s.PendingConnection() != nil {
		t.Error("Load should discard any pending connection")
	}

	// Counter resets to node count: the next entity is Entity2.
	s.AddEntity(nil)
	if got := s.Nodes()[1].Data.Name; got != "Entity2" {
		t.Errorf("post-load entity name = %q, want %q", got, "Entity2")
	}
}

func TestLoadDefaultsVersion(t *testing.T) {
	s := New()
	s.Load(schema.Diagram{Name: "Old"})
	if got := s.ToSchema().Version; got != schema.Version {
		t.Errorf("Version = %q, want %q", got, schema.Version)
	}
}

func TestClear(t *testing.T) {
	s := New()
	a := s.AddEntity(nil)
	b := s.AddEntity(nil)
	s.AddRelation(Connection{Source: a, Target: b}, schema.OneToOne)
	s.SetName("Work")

	s.Clear()

	if s.Name() != DefaultName || s.NodeCount() != 0 || s.EdgeCount() != 0 {
		t.Errorf("Clear() left state: %q, %d nodes, %d edges", s.Name(), s.NodeCount(), s.EdgeCount())
	}
	// Counter resets too: names start over.
	s.AddEntity(nil)
	if got := s.Nodes()[0].Data.Name; got != "Entity1" {
		t.Errorf("post-clear entity name = %q, want %q", got, "Entity1")
	}
}

func TestToSchemaLoadRoundTrip(t *testing.T) {
	s := New()
	s.SetName("Round Trip")
	a := s.AddEntity(nil)
	b := s.AddEntity(nil)
	fid, _ := s.AddField(a)
	enumType := schema.Enum("x", "y")
	_ = s.UpdateField(a, fid, FieldPatch{Type: &enumType})
	s.AddRelation(Connection{Source: a, Target: b}, schema.OneToMany)

	doc := s.ToSchema()

	other := New()
	other.Load(doc)
	doc2 := other.ToSchema()

	// Content equality, ignoring the refreshed UpdatedAt stamp.
	if doc2.Name != doc.Name || doc2.Version != doc.Version || doc2.CreatedAt != doc.CreatedAt {
		t.Errorf("header mismatch: %+v vs %+v", doc2, doc)
	}
	if len(doc2.Nodes) != len(doc.Nodes) || len(doc2.Edges) != len(doc.Edges) {
		t.Fatalf("shape mismatch: %d/%d vs %d/%d",
			len(doc2.Nodes), len(doc2.Edges), len(doc.Nodes), len(doc.Edges))
	}
	for i := range doc.Nodes {
		if doc2.Nodes[i].ID != doc.Nodes[i].ID {
			t.Errorf("node %d id mismatch", i)
		}
		if len(doc2.Nodes[i].Data.Fields) != len(doc.Nodes[i].Data.Fields) {
			t.Errorf("node %d field count mismatch", i)
		}
	}
	if doc2.Edges[0].Data.Type != schema.OneToMany {
		t.Errorf("edge type = %q, want %q", doc2.Edges[0].Data.Type, schema.OneToMany)
	}
}

func TestToSchemaTimestamps(t *testing.T) {
	s := New()
	first := s.ToSchema()
	if first.CreatedAt == "" || first.UpdatedAt == "" {
		t.Fatal("ToSchema should stamp both timestamps")
	}
	second := s.ToSchema()
	if second.CreatedAt != first.CreatedAt {
		t.Error("CreatedAt should be preserved across projections")
	}
}

func TestOnMutateFires(t *testing.T) {
	s := New()
	var fired int
	s.OnMutate(func() { fired++ })

	id := s.AddEntity(nil)
	_ = s.UpdateEntityName(id, "X")
	before := fired

	// Pending-connection changes are not schema-affecting.
	s.SetPendingConnection(&Connection{Source: id})
	if fired != before {
		t.Error("SetPendingConnection should not fire OnMutate")
	}

	if fired != 2 {
		t.Errorf("OnMutate fired %d times, want 2", fired)
	}
}
