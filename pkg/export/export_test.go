package export

import (
	"strings"
	"testing"

	"github.com/modata-dev/modata/pkg/layout"
	"github.com/modata-dev/modata/pkg/schema"
)

func TestFilename(t *testing.T) {
	tests := []struct {
		name string
		in   string
		ext  string
		want string
	}{
		{"simple", "Shop", ExtJSON, "shop.modata.json"},
		{"whitespace runs", "My  Shop\tDiagram", ExtSVG, "my-shop-diagram.modata.svg"},
		{"surrounding space", "  Orders  ", ExtPNG, "orders.modata.png"},
		{"empty", "", ExtJSON, "diagram.modata.json"},
		{"only whitespace", "   ", ExtSVG, "diagram.modata.svg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Filename(tt.in, tt.ext); got != tt.want {
				t.Errorf("Filename(%q, %q) = %q, want %q", tt.in, tt.ext, got, tt.want)
			}
		})
	}
}

func TestComputeGeometryEmpty(t *testing.T) {
	g := ComputeGeometry(nil)
	if len(g.Nodes) != 0 {
		t.Fatalf("expected no node rects, got %d", len(g.Nodes))
	}
	if g.Bounds != (Rect{}) {
		t.Errorf("expected zero bounds, got %+v", g.Bounds)
	}
}

func TestComputeGeometrySingleNode(t *testing.T) {
	data := schema.EntityData{Name: "Order", Fields: []schema.FieldDef{
		schema.DefaultField("f0"),
		{ID: "f1", Name: "status", Type: schema.Primitive(schema.PrimitiveString)},
	}}
	n := schema.Node{ID: "n1", Position: schema.Position{X: 100, Y: 50}, Data: data}

	g := ComputeGeometry([]schema.Node{n})

	wantH := layout.EstimateHeight(data)
	r, ok := g.Nodes["n1"]
	if !ok {
		t.Fatal("missing rect for n1")
	}
	want := Rect{X: 100, Y: 50, W: layout.NodeWidth, H: wantH}
	if r != want {
		t.Errorf("node rect = %+v, want %+v", r, want)
	}

	wantBounds := Rect{
		X: 100 - Margin,
		Y: 50 - Margin,
		W: layout.NodeWidth + 2*Margin,
		H: wantH + 2*Margin,
	}
	if g.Bounds != wantBounds {
		t.Errorf("bounds = %+v, want %+v", g.Bounds, wantBounds)
	}
}

func TestComputeGeometryUnionOfNodes(t *testing.T) {
	data := schema.EntityData{Name: "E", Fields: []schema.FieldDef{schema.DefaultField("f0")}}
	h := layout.EstimateHeight(data)
	nodes := []schema.Node{
		{ID: "a", Position: schema.Position{X: 0, Y: 0}, Data: data},
		{ID: "b", Position: schema.Position{X: 500, Y: 300}, Data: data},
	}

	g := ComputeGeometry(nodes)

	wantBounds := Rect{
		X: -Margin,
		Y: -Margin,
		W: 500 + layout.NodeWidth + 2*Margin,
		H: 300 + h + 2*Margin,
	}
	if g.Bounds != wantBounds {
		t.Errorf("bounds = %+v, want %+v", g.Bounds, wantBounds)
	}
}

func TestZoomToFit(t *testing.T) {
	tests := []struct {
		name         string
		bounds       Rect
		viewW, viewH float64
		want         float64
	}{
		{"exact fit", Rect{W: 800, H: 600}, 800, 600, 1},
		{"limited by width", Rect{W: 1000, H: 100}, 800, 600, 0.8},
		{"clamped low", Rect{W: 10000, H: 10000}, 800, 600, MinZoom},
		{"clamped high", Rect{W: 10, H: 10}, 800, 600, MaxZoom},
		{"degenerate bounds", Rect{W: 0, H: 0}, 800, 600, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ZoomToFit(tt.bounds, tt.viewW, tt.viewH); got != tt.want {
				t.Errorf("ZoomToFit(%+v) = %v, want %v", tt.bounds, got, tt.want)
			}
		})
	}
}

func dotDiagram() schema.Diagram {
	return schema.Diagram{
		Name:    "Shop",
		Version: schema.Version,
		Nodes: []schema.Node{
			{
				ID:       "n1",
				Position: schema.Position{X: 0, Y: 0},
				Data: schema.EntityData{
					Name:  "Order",
					Color: "#6366f1",
					Fields: []schema.FieldDef{
						{ID: "f1", Name: "id", Type: schema.Primitive(schema.PrimitiveUUID)},
						{ID: "f2", Name: "tags", Type: schema.Primitive(schema.PrimitiveString), Array: true},
						{ID: "f3", Name: "status", Type: schema.Enum("open", "closed")},
					},
				},
			},
			{
				ID:       "n2",
				Position: schema.Position{X: 400, Y: 0},
				Data: schema.EntityData{
					Name:   "Customer",
					Color:  "#f59e0b",
					Fields: []schema.FieldDef{{ID: "f4", Name: "id", Type: schema.Primitive(schema.PrimitiveUUID)}},
				},
			},
		},
		Edges: []schema.Edge{
			{ID: "e1", Source: "n2", Target: "n1", Data: schema.RelationData{Type: schema.OneToMany, Label: "places"}},
		},
	}
}

func TestDOTPinsNodePositions(t *testing.T) {
	d := dotDiagram()
	g := ComputeGeometry(d.Nodes)
	dot := DOT(d, g)

	// Positions are pinned node centers with the y axis flipped.
	r := g.Nodes["n1"]
	wantPos := `pos="` + formatCoord(r.X+r.W/2) + `,` + formatCoord(-(r.Y + r.H/2)) + `!"`
	if !strings.Contains(dot, wantPos) {
		t.Errorf("DOT missing pinned position %q:\n%s", wantPos, dot)
	}
	if !strings.Contains(dot, "layout=neato;") {
		t.Error("DOT missing neato layout directive")
	}
}

func TestDOTEntityLabels(t *testing.T) {
	d := dotDiagram()
	dot := DOT(d, ComputeGeometry(d.Nodes))

	for _, want := range []string{
		`BGCOLOR="#6366f1"`,
		"<B>Order</B>",
		"tags : <I>string[]</I>",
		"status : <I>enum[2]</I>",
		"&nbsp;&nbsp;open",
		"&nbsp;&nbsp;closed",
		"<B>Customer</B>",
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %q:\n%s", want, dot)
		}
	}
}

func TestDOTEscapesEntityNames(t *testing.T) {
	d := dotDiagram()
	d.Nodes[0].Data.Name = `A<B>&"C"`
	dot := DOT(d, ComputeGeometry(d.Nodes))

	if !strings.Contains(dot, "A&lt;B&gt;&amp;&quot;C&quot;") {
		t.Errorf("DOT did not escape HTML in entity name:\n%s", dot)
	}
}

func TestDOTEdgeCardinality(t *testing.T) {
	d := dotDiagram()
	dot := DOT(d, ComputeGeometry(d.Nodes))

	if !strings.Contains(dot, `"n2" -> "n1"`) {
		t.Errorf("DOT missing relationship edge:\n%s", dot)
	}
	if !strings.Contains(dot, `taillabel="1", headlabel="N"`) {
		t.Errorf("DOT missing oneToMany cardinality labels:\n%s", dot)
	}
	if !strings.Contains(dot, `label="places"`) {
		t.Errorf("DOT missing edge label:\n%s", dot)
	}
}

func TestCardinalitySymbols(t *testing.T) {
	tests := []struct {
		name       string
		data       schema.RelationData
		tail, head string
	}{
		{"one to one", schema.RelationData{Type: schema.OneToOne}, "1", "1"},
		{"one to many", schema.RelationData{Type: schema.OneToMany}, "1", "N"},
		{"one to many inverted", schema.RelationData{Type: schema.OneToMany, Inverted: true}, "N", "1"},
		{"many to many", schema.RelationData{Type: schema.ManyToMany}, "N", "M"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tail, head := cardinalitySymbols(tt.data)
			if tail != tt.tail || head != tt.head {
				t.Errorf("cardinalitySymbols = (%q, %q), want (%q, %q)", tail, head, tt.tail, tt.head)
			}
		})
	}
}

func TestJSONRoundTrips(t *testing.T) {
	d := dotDiagram()
	data, err := JSON(d)
	if err != nil {
		t.Fatalf("JSON: %v", err)
	}

	got, err := schema.Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.Name != d.Name || len(got.Nodes) != len(d.Nodes) || len(got.Edges) != len(d.Edges) {
		t.Errorf("round trip changed document: %+v", got)
	}
}

func TestNormalizeViewBox(t *testing.T) {
	in := []byte(`<svg width="5in" height="4in" viewBox="-10.5 -20.25 400.00 300.00" xmlns="http://www.w3.org/2000/svg"><g/></svg>`)
	out := string(normalizeViewBox(in))

	if !strings.Contains(out, `viewBox="0 0 400.00 300.00"`) {
		t.Errorf("viewBox not rebased to origin: %s", out)
	}
	if !strings.Contains(out, `width="400" height="300"`) {
		t.Errorf("pixel dimensions missing: %s", out)
	}

	// SVGs without a viewBox pass through untouched.
	plain := []byte(`<svg><g/></svg>`)
	if got := normalizeViewBox(plain); string(got) != string(plain) {
		t.Errorf("expected passthrough, got %s", got)
	}
}
