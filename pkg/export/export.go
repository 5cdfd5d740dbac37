// Package export turns diagram documents into portable artifacts: JSON
// bytes, SVG markup and PNG rasters.
//
// The core supplies only node geometry (positions plus estimated card sizes);
// the actual drawing surface is Graphviz, driven through pinned-position
// neato DOT so the exported image reproduces the canvas layout exactly.
// Every artifact is sized to fit all nodes plus a fixed margin.
package export

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/modata-dev/modata/pkg/layout"
	"github.com/modata-dev/modata/pkg/schema"
)

// Artifact sizing and zoom clamps.
const (
	// Margin is the whitespace around the diagram bounds in canvas units.
	Margin = 40.0

	// MinZoom and MaxZoom clamp the scale used when fitting the diagram
	// into a fixed viewport.
	MinZoom = 0.5
	MaxZoom = 2.0
)

// File extensions for exported artifacts.
const (
	ExtJSON = ".modata.json"
	ExtSVG  = ".modata.svg"
	ExtPNG  = ".modata.png"
)

// Rect is an axis-aligned rectangle in canvas coordinates.
type Rect struct {
	X, Y, W, H float64
}

// Geometry is the visual footprint of a document: one rectangle per node and
// the overall bounds including the export margin.
type Geometry struct {
	Nodes  map[string]Rect
	Bounds Rect
}

// ComputeGeometry derives per-node rectangles from positions and estimated
// card sizes, and the bounding box of the whole diagram plus [Margin].
func ComputeGeometry(nodes []schema.Node) Geometry {
	g := Geometry{Nodes: make(map[string]Rect, len(nodes))}
	if len(nodes) == 0 {
		return g
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, n := range nodes {
		r := Rect{
			X: n.Position.X,
			Y: n.Position.Y,
			W: layout.NodeWidth,
			H: layout.EstimateHeight(n.Data),
		}
		g.Nodes[n.ID] = r
		minX = math.Min(minX, r.X)
		minY = math.Min(minY, r.Y)
		maxX = math.Max(maxX, r.X+r.W)
		maxY = math.Max(maxY, r.Y+r.H)
	}

	g.Bounds = Rect{
		X: minX - Margin,
		Y: minY - Margin,
		W: maxX - minX + 2*Margin,
		H: maxY - minY + 2*Margin,
	}
	return g
}

// ZoomToFit returns the scale at which bounds fit a viewport of the given
// size, clamped to [MinZoom, MaxZoom].
func ZoomToFit(bounds Rect, viewW, viewH float64) float64 {
	if bounds.W <= 0 || bounds.H <= 0 {
		return 1
	}
	zoom := math.Min(viewW/bounds.W, viewH/bounds.H)
	return math.Min(MaxZoom, math.Max(MinZoom, zoom))
}

var whitespaceRe = regexp.MustCompile(`\s+`)

// Filename derives a download filename from a diagram name: whitespace runs
// become dashes, the result is lowercased, and the namespaced extension is
// appended. An empty name falls back to "diagram".
func Filename(name, ext string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "diagram"
	}
	return strings.ToLower(whitespaceRe.ReplaceAllString(name, "-")) + ext
}

// JSON serializes the document itself as the export artifact.
func JSON(d schema.Diagram) ([]byte, error) {
	data, err := schema.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("export json: %w", err)
	}
	return data, nil
}
