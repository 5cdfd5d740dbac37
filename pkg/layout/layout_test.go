package layout

import (
	"testing"

	"github.com/modata-dev/modata/pkg/schema"
)

func entity(id string, fieldCount int) schema.Node {
	fields := make([]schema.FieldDef, fieldCount)
	for i := range fields {
		fields[i] = schema.FieldDef{
			ID:   id + "-f" + string(rune('a'+i)),
			Name: "field",
			Type: schema.Primitive(schema.PrimitiveString),
		}
	}
	return schema.Node{ID: id, Data: schema.EntityData{Name: id, Fields: fields}}
}

func relation(id, source, target string) schema.Edge {
	return schema.Edge{ID: id, Source: source, Target: target, Data: schema.RelationData{Type: schema.OneToMany}}
}

func TestEstimateHeight(t *testing.T) {
	plain := entity("a", 3)
	// base 90 + 3 rows of 32 + add button 34.
	if got := EstimateHeight(plain.Data); got != 90+3*32+34 {
		t.Errorf("EstimateHeight = %v, want %v", got, 90+3*32+34.0)
	}

	// Sub-entity and enum payloads contribute their rows plus one affordance
	// row each.
	rich := entity("b", 1)
	rich.Data.Fields = append(rich.Data.Fields,
		schema.FieldDef{ID: "s", Name: "addr", Type: schema.SubEntity("Address", []schema.FieldDef{
			{ID: "s1", Name: "street", Type: schema.Primitive(schema.PrimitiveString)},
			{ID: "s2", Name: "zip", Type: schema.Primitive(schema.PrimitiveInt)},
		})},
		schema.FieldDef{ID: "e", Name: "status", Type: schema.Enum("a", "b", "c")},
	)
	rows := 3 + (2 + 1) + (3 + 1)
	if got := EstimateHeight(rich.Data); got != 90+float64(rows)*32+34 {
		t.Errorf("EstimateHeight = %v, want %v", got, 90+float64(rows)*32+34.0)
	}
}

func TestEstimateHeightGrowsWithFields(t *testing.T) {
	small := EstimateHeight(entity("a", 1).Data)
	large := EstimateHeight(entity("b", 10).Data)
	if large <= small {
		t.Errorf("10-field entity (%v) should be taller than 1-field entity (%v)", large, small)
	}
	if large-small != 9*fieldRowHeight {
		t.Errorf("height delta = %v, want %v", large-small, 9*fieldRowHeight)
	}
}

func TestApplyEmpty(t *testing.T) {
	if got := Apply(nil, nil, Options{}); len(got) != 0 {
		t.Errorf("Apply(nil) = %v, want empty", got)
	}
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	nodes := []schema.Node{entity("a", 1), entity("b", 1)}
	nodes[0].Position = schema.Position{X: 999, Y: 999}
	edges := []schema.Edge{relation("e1", "a", "b")}

	out := Apply(nodes, edges, Options{})

	if nodes[0].Position.X != 999 {
		t.Error("Apply must not mutate its input")
	}
	if len(out) != 2 {
		t.Fatalf("got %d nodes, want 2", len(out))
	}
	// Everything but position is preserved.
	if out[0].ID != "a" || out[0].Data.Name != "a" || len(out[0].Data.Fields) != 1 {
		t.Errorf("node content changed: %+v", out[0])
	}
}

func TestApplyDeterministic(t *testing.T) {
	nodes := []schema.Node{entity("a", 2), entity("b", 4), entity("c", 1), entity("d", 3)}
	edges := []schema.Edge{
		relation("e1", "a", "b"),
		relation("e2", "a", "c"),
		relation("e3", "b", "d"),
		relation("e4", "c", "d"),
	}

	first := Apply(nodes, edges, Options{})
	for i := 0; i < 5; i++ {
		again := Apply(nodes, edges, Options{})
		for j := range first {
			if again[j].Position != first[j].Position {
				t.Fatalf("run %d: node %s moved from %+v to %+v",
					i, first[j].ID, first[j].Position, again[j].Position)
			}
		}
	}
}

func TestRelatedEntitiesTwoRanksApart(t *testing.T) {
	nodes := []schema.Node{entity("a", 1), entity("b", 1)}
	edges := []schema.Edge{relation("e1", "a", "b")}

	ranks := Ranks(nodes, edges)
	if ranks["b"]-ranks["a"] != relationMinLen {
		t.Errorf("rank distance = %d, want %d", ranks["b"]-ranks["a"], relationMinLen)
	}
}

func TestRankHonorsLongestPath(t *testing.T) {
	// a → b → c and a → c: c must sit below b, not beside it.
	nodes := []schema.Node{entity("a", 1), entity("b", 1), entity("c", 1)}
	edges := []schema.Edge{
		relation("e1", "a", "b"),
		relation("e2", "b", "c"),
		relation("e3", "a", "c"),
	}

	ranks := Ranks(nodes, edges)
	if ranks["c"] <= ranks["b"] {
		t.Errorf("ranks = %v; c must rank below b", ranks)
	}
	if ranks["c"]-ranks["a"] != 2*relationMinLen {
		t.Errorf("c rank = %d, want %d", ranks["c"]-ranks["a"], 2*relationMinLen)
	}
}

func TestCyclicGraphTerminates(t *testing.T) {
	nodes := []schema.Node{entity("a", 1), entity("b", 1), entity("c", 1)}
	edges := []schema.Edge{
		relation("e1", "a", "b"),
		relation("e2", "b", "c"),
		relation("e3", "c", "a"),
	}

	out := Apply(nodes, edges, Options{})
	if len(out) != 3 {
		t.Fatalf("got %d nodes, want 3", len(out))
	}
	// All nodes must land on distinct ranks despite the cycle.
	ranks := Ranks(nodes, edges)
	if len(ranks) != 3 {
		t.Errorf("ranks = %v", ranks)
	}
}

func TestDisconnectedEntitiesChained(t *testing.T) {
	nodes := []schema.Node{entity("a", 1), entity("b", 1), entity("c", 1)}

	ranks := Ranks(nodes, nil)
	// Isolated entities chain with minlen 1 in input order.
	if ranks["a"] != 0 || ranks["b"] != 1 || ranks["c"] != 2 {
		t.Errorf("ranks = %v, want a:0 b:1 c:2", ranks)
	}
}

func TestIgnoredEdges(t *testing.T) {
	nodes := []schema.Node{entity("a", 1), entity("b", 1)}
	edges := []schema.Edge{
		relation("self", "a", "a"),
		relation("ghost", "a", "zzz"),
	}

	// Both edges are ignored, leaving a and b disconnected and chained.
	ranks := Ranks(nodes, edges)
	if ranks["b"]-ranks["a"] != chainMinLen {
		t.Errorf("ranks = %v, want chain distance %d", ranks, chainMinLen)
	}
}

func TestApplyMarginsTopToBottom(t *testing.T) {
	nodes := []schema.Node{entity("a", 1), entity("b", 1)}
	edges := []schema.Edge{relation("e1", "a", "b")}

	out := Apply(nodes, edges, Options{Direction: TopToBottom})
	for _, n := range out {
		if n.Position.X < 0 || n.Position.Y < 0 {
			t.Errorf("node %s placed off-canvas at %+v", n.ID, n.Position)
		}
	}
	// First rank starts at the top margin.
	if out[0].Position.Y != marginY {
		t.Errorf("first rank Y = %v, want %v", out[0].Position.Y, marginY)
	}
	// b is on a lower rank.
	if out[1].Position.Y <= out[0].Position.Y {
		t.Errorf("b (%v) should be below a (%v)", out[1].Position.Y, out[0].Position.Y)
	}
}

func TestApplyLeftToRightTransposes(t *testing.T) {
	nodes := []schema.Node{entity("a", 1), entity("b", 1)}
	edges := []schema.Edge{relation("e1", "a", "b")}

	tb := Apply(nodes, edges, Options{Direction: TopToBottom})
	lr := Apply(nodes, edges, Options{Direction: LeftToRight})

	if !(tb[1].Position.Y > tb[0].Position.Y) {
		t.Error("TB should separate ranks vertically")
	}
	if !(lr[1].Position.X > lr[0].Position.X) {
		t.Error("LR should separate ranks horizontally")
	}
	if lr[1].Position.Y != lr[0].Position.Y {
		t.Errorf("LR same-height entities should share a row: %v vs %v",
			lr[0].Position.Y, lr[1].Position.Y)
	}
}

func TestSiblingSpacingAccountsForWidth(t *testing.T) {
	// One parent with two children: children share a rank.
	nodes := []schema.Node{entity("p", 1), entity("c1", 1), entity("c2", 1)}
	edges := []schema.Edge{
		relation("e1", "p", "c1"),
		relation("e2", "p", "c2"),
	}

	out := Apply(nodes, edges, Options{Direction: TopToBottom})
	byID := map[string]schema.Position{}
	for _, n := range out {
		byID[n.ID] = n.Position
	}

	gap := byID["c2"].X - byID["c1"].X
	if gap < 0 {
		gap = -gap
	}
	wantGap := NodeWidth + NodeWidth*0.4 // card width plus node separation
	if gap != wantGap {
		t.Errorf("sibling gap = %v, want %v", gap, wantGap)
	}
}
