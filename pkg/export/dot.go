package export

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/modata-dev/modata/pkg/schema"
)

// pointsPerUnit converts canvas units to Graphviz points (1:1 keeps the
// canvas pixel grid).
const pointsPerUnit = 1.0

// DOT converts a document and its geometry to pinned-position neato DOT.
// Each entity becomes an HTML-label node with a colored header row and one
// row per field; relationship edges carry their cardinality symbols as tail
// and head labels. Positions are pinned so Graphviz reproduces the canvas
// layout instead of computing its own.
func DOT(d schema.Diagram, g Geometry) string {
	var buf bytes.Buffer
	buf.WriteString("digraph modata {\n")
	buf.WriteString("  layout=neato;\n")
	buf.WriteString("  splines=line;\n")
	buf.WriteString("  bgcolor=\"#ffffff\";\n")
	fmt.Fprintf(&buf, "  label=%q;\n", d.Name)
	buf.WriteString("  labelloc=t;\n")
	buf.WriteString("  fontname=\"Helvetica\";\n")
	buf.WriteString("  node [shape=plaintext, fontname=\"Helvetica\"];\n")
	buf.WriteString("  edge [fontname=\"Helvetica\", fontsize=11, color=\"#64748b\"];\n")
	buf.WriteString("\n")

	for _, n := range d.Nodes {
		r := g.Nodes[n.ID]
		// Graphviz pos is the node center with the y axis pointing up.
		cx := (r.X + r.W/2) * pointsPerUnit
		cy := -(r.Y + r.H/2) * pointsPerUnit
		fmt.Fprintf(&buf, "  %q [pos=\"%s,%s!\", label=<%s>];\n",
			n.ID, formatCoord(cx), formatCoord(cy), entityLabel(n.Data))
	}

	buf.WriteString("\n")
	for _, e := range d.Edges {
		tail, head := cardinalitySymbols(e.Data)
		attrs := []string{
			fmt.Sprintf("taillabel=%q", tail),
			fmt.Sprintf("headlabel=%q", head),
			"arrowhead=none",
		}
		if e.Data.Label != "" {
			attrs = append(attrs, fmt.Sprintf("label=%q", e.Data.Label))
		}
		fmt.Fprintf(&buf, "  %q -> %q [%s];\n", e.Source, e.Target, strings.Join(attrs, ", "))
	}

	buf.WriteString("}\n")
	return buf.String()
}

// cardinalitySymbols returns the tail (source) and head (target) markers for
// an edge. The inverted flag swaps which end of a oneToMany is the "1" side.
func cardinalitySymbols(d schema.RelationData) (tail, head string) {
	switch d.Type {
	case schema.OneToOne:
		return "1", "1"
	case schema.ManyToMany:
		return "N", "M"
	case schema.OneToMany:
		if d.Inverted {
			return "N", "1"
		}
		return "1", "N"
	}
	return "", ""
}

// entityLabel renders an entity card as an HTML-like Graphviz label: a
// colored header with the entity name, one row per field, and indented rows
// for sub-entity fields and enum options.
func entityLabel(d schema.EntityData) string {
	var b strings.Builder
	b.WriteString(`<TABLE BORDER="0" CELLBORDER="1" CELLSPACING="0" CELLPADDING="6">`)
	fmt.Fprintf(&b, `<TR><TD BGCOLOR="%s"><FONT COLOR="#ffffff"><B>%s</B></FONT></TD></TR>`,
		htmlEscape(d.Color), htmlEscape(d.Name))

	for _, f := range d.Fields {
		fmt.Fprintf(&b, `<TR><TD ALIGN="LEFT">%s</TD></TR>`, fieldRow(f, false))
		switch {
		case f.Type.IsSubEntity() && f.Type.SubEntity != nil:
			for _, sf := range f.Type.SubEntity.Fields {
				fmt.Fprintf(&b, `<TR><TD ALIGN="LEFT">%s</TD></TR>`, fieldRow(sf, true))
			}
		case f.Type.IsEnum() && f.Type.Enum != nil:
			for _, opt := range f.Type.Enum.Options {
				fmt.Fprintf(&b, `<TR><TD ALIGN="LEFT">&nbsp;&nbsp;%s</TD></TR>`, htmlEscape(opt))
			}
		}
	}

	b.WriteString(`</TABLE>`)
	return b.String()
}

func fieldRow(f schema.FieldDef, nested bool) string {
	typ := f.Type.String()
	if f.Array {
		typ += "[]"
	}
	indent := ""
	if nested {
		indent = "&nbsp;&nbsp;"
	}
	return fmt.Sprintf("%s%s : <I>%s</I>", indent, htmlEscape(f.Name), htmlEscape(typ))
}

func htmlEscape(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
	return r.Replace(s)
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// =============================================================================
// Graphviz Rendering
// =============================================================================

// baseDPI is the raster resolution at scale 1.
const baseDPI = 96.0

// SVG renders the document to SVG bytes sized to fit all nodes plus the
// export margin.
func SVG(ctx context.Context, d schema.Diagram) ([]byte, error) {
	return render(ctx, d, graphviz.SVG, 1)
}

// PNG renders the document to PNG bytes.
func PNG(ctx context.Context, d schema.Diagram) ([]byte, error) {
	return render(ctx, d, graphviz.PNG, 1)
}

// PNGScaled renders the document to PNG bytes at a raster scale multiplier.
// Scale 1 renders at 96 DPI; 2 doubles the pixel dimensions.
func PNGScaled(ctx context.Context, d schema.Diagram, scale float64) ([]byte, error) {
	if scale <= 0 {
		return nil, fmt.Errorf("export png: scale must be positive, got %g", scale)
	}
	return render(ctx, d, graphviz.PNG, scale)
}

func render(ctx context.Context, d schema.Diagram, format graphviz.Format, scale float64) ([]byte, error) {
	geo := ComputeGeometry(d.Nodes)
	dot := DOT(d, geo)

	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	graph, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer graph.Close()

	if scale != 1 {
		graph.SetDPI(baseDPI * scale)
	}

	var buf bytes.Buffer
	if err := gv.Render(ctx, graph, format, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	out := buf.Bytes()
	if format == graphviz.SVG {
		out = normalizeViewBox(out)
	}
	return out, nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.-]+)\s+([0-9.-]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox rewrites the generated <svg> tag to a zero-origin viewBox
// with explicit pixel dimensions, which embeds more predictably.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	tag := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(tag))
}
