// Package layout computes canvas positions for entity-relationship diagrams.
//
// The engine is a pure function over the diagram's topology: given the nodes
// and edges it returns a new node slice with updated positions and everything
// else untouched. Output is deterministic for a given input graph and
// direction.
//
// Placement is hierarchical: relationship edges become ranking constraints
// with a minimum rank distance of 2, ranks are assigned by a longest-path
// traversal, nodes within a rank are ordered by barycenter sweeps to reduce
// edge crossings, and final coordinates are derived from per-node estimated
// footprints. Entities with no relationships are chained together with weak
// minimum-length-1 constraints so they land in a coherent row instead of
// scattering; this is a layout-quality device, not a semantic edge.
package layout

import (
	"math"
	"sort"

	"github.com/modata-dev/modata/pkg/schema"
)

// Direction selects the rank axis.
type Direction string

// Layout directions.
const (
	// TopToBottom stacks ranks vertically.
	TopToBottom Direction = "TB"
	// LeftToRight stacks ranks horizontally.
	LeftToRight Direction = "LR"
)

// IsValid reports whether d is a supported direction.
func (d Direction) IsValid() bool { return d == TopToBottom || d == LeftToRight }

// Geometry constants for node footprints and spacing.
const (
	// NodeWidth is the fixed entity card width.
	NodeWidth = 280.0

	baseNodeHeight  = 90.0 // header chrome plus padding
	fieldRowHeight  = 32.0
	addButtonHeight = 34.0 // trailing "add field" affordance row

	minNodeSep = 80.0
	minRankSep = 100.0
	marginX    = 60.0
	marginY    = 60.0

	// relationMinLen keeps related entities at least two ranks apart so the
	// edge has room for its cardinality markers.
	relationMinLen = 2
	chainMinLen    = 1

	orderingPasses = 4
)

// EstimateHeight returns the estimated rendered height of an entity card.
// The height grows with the number of visible rows: one per field, plus the
// nested rows of each expanded sub-entity and the options of each enum (each
// with its trailing add-affordance row).
func EstimateHeight(d schema.EntityData) float64 {
	rows := len(d.Fields)
	for _, f := range d.Fields {
		switch {
		case f.Type.IsSubEntity() && f.Type.SubEntity != nil:
			rows += len(f.Type.SubEntity.Fields) + 1
		case f.Type.IsEnum() && f.Type.Enum != nil:
			rows += len(f.Type.Enum.Options) + 1
		}
	}
	return baseNodeHeight + float64(rows)*fieldRowHeight + addButtonHeight
}

// Options configures a layout run.
type Options struct {
	// Direction of rank stacking. Defaults to TopToBottom.
	Direction Direction
}

// Apply computes new positions for every node and returns a fresh node slice;
// the input is not mutated and all fields other than Position are preserved.
// An empty node set is returned unchanged.
//
// Edges whose endpoints are unknown, and self-loops, are ignored for layout
// purposes.
func Apply(nodes []schema.Node, edges []schema.Edge, opts Options) []schema.Node {
	if len(nodes) == 0 {
		return nodes
	}
	dir := opts.Direction
	if !dir.IsValid() {
		dir = TopToBottom
	}

	g := buildConstraints(nodes, edges)
	g.breakCycles()
	ranks := g.assignRanks()
	order := g.orderRanks(ranks)

	heights := make(map[string]float64, len(nodes))
	var totalH float64
	for _, n := range nodes {
		h := EstimateHeight(n.Data)
		heights[n.ID] = h
		totalH += h
	}
	avgH := totalH / float64(len(nodes))

	// Spacing scales with the average card height rather than the max, so one
	// giant entity does not blow up the whole grid.
	nodeSep := math.Max(minNodeSep, NodeWidth*0.4)
	rankSep := math.Max(minRankSep, avgH*0.6)

	centers := placeRanks(order, heights, dir, nodeSep, rankSep)

	out := make([]schema.Node, len(nodes))
	for i, n := range nodes {
		out[i] = n.Clone()
		c := centers[n.ID]
		h := heights[n.ID]
		out[i].Position = schema.Position{
			X: math.Round(c.x - NodeWidth/2),
			Y: math.Round(c.y - h/2),
		}
	}
	return out
}

type point struct{ x, y float64 }

// placeRanks assigns a center point to every node. Ranks advance along the
// flow axis using the largest extent in each rank plus the rank separation;
// nodes within a rank are laid out sequentially along the cross axis.
func placeRanks(order [][]string, heights map[string]float64, dir Direction, nodeSep, rankSep float64) map[string]point {
	centers := make(map[string]point)

	flow := marginFlow(dir)
	for _, rank := range order {
		extent := 0.0
		for _, id := range rank {
			extent = math.Max(extent, flowExtent(dir, heights[id]))
		}

		cross := marginCross(dir)
		for _, id := range rank {
			ce := crossExtent(dir, heights[id])
			c := point{}
			if dir == LeftToRight {
				c.x = flow + extent/2
				c.y = cross + ce/2
			} else {
				c.x = cross + ce/2
				c.y = flow + extent/2
			}
			centers[id] = c
			cross += ce + nodeSep
		}

		flow += extent + rankSep
	}
	return centers
}

// flowExtent is a node's size along the rank-stacking axis.
func flowExtent(dir Direction, height float64) float64 {
	if dir == LeftToRight {
		return NodeWidth
	}
	return height
}

// crossExtent is a node's size along the in-rank axis.
func crossExtent(dir Direction, height float64) float64 {
	if dir == LeftToRight {
		return height
	}
	return NodeWidth
}

func marginFlow(dir Direction) float64 {
	if dir == LeftToRight {
		return marginX
	}
	return marginY
}

func marginCross(dir Direction) float64 {
	if dir == LeftToRight {
		return marginY
	}
	return marginX
}

// =============================================================================
// Constraint Graph
// =============================================================================

type constraint struct {
	from, to int // node indices
	minlen   int
}

// constraintGraph is the ranking view of the diagram: nodes by input index
// plus directed minimum-length constraints.
type constraintGraph struct {
	ids  []string
	out  map[int][]int // adjacency over constraint indices
	in   map[int][]int
	cons []constraint
}

func buildConstraints(nodes []schema.Node, edges []schema.Edge) *constraintGraph {
	index := make(map[string]int, len(nodes))
	for i, n := range nodes {
		index[n.ID] = i
	}

	g := &constraintGraph{
		ids: make([]string, len(nodes)),
		out: make(map[int][]int),
		in:  make(map[int][]int),
	}
	for i, n := range nodes {
		g.ids[i] = n.ID
	}

	connected := make(map[int]bool)
	for _, e := range edges {
		from, okF := index[e.Source]
		to, okT := index[e.Target]
		if !okF || !okT || from == to {
			continue
		}
		g.addConstraint(from, to, relationMinLen)
		connected[from] = true
		connected[to] = true
	}

	// Chain isolated entities in input order so they form a row.
	prev := -1
	for i := range nodes {
		if connected[i] {
			continue
		}
		if prev >= 0 {
			g.addConstraint(prev, i, chainMinLen)
		}
		prev = i
	}

	return g
}

func (g *constraintGraph) addConstraint(from, to, minlen int) {
	ci := len(g.cons)
	g.cons = append(g.cons, constraint{from: from, to: to, minlen: minlen})
	g.out[from] = append(g.out[from], ci)
	g.in[to] = append(g.in[to], ci)
}

// breakCycles reverses back edges found by depth-first search so that the
// ranking traversal terminates. Reversal preserves the minimum-length
// requirement between the two endpoints.
func (g *constraintGraph) breakCycles() {
	const (
		white = iota
		gray
		black
	)
	color := make([]int, len(g.ids))
	var back []int

	var dfs func(n int)
	dfs = func(n int) {
		color[n] = gray
		for _, ci := range g.out[n] {
			child := g.cons[ci].to
			switch color[child] {
			case white:
				dfs(child)
			case gray:
				back = append(back, ci)
			}
		}
		color[n] = black
	}

	for n := range g.ids {
		if color[n] == white {
			dfs(n)
		}
	}

	if len(back) == 0 {
		return
	}

	reversed := make(map[int]bool, len(back))
	for _, ci := range back {
		reversed[ci] = true
	}
	g.out = make(map[int][]int)
	g.in = make(map[int][]int)
	for ci := range g.cons {
		if reversed[ci] {
			g.cons[ci].from, g.cons[ci].to = g.cons[ci].to, g.cons[ci].from
		}
		g.out[g.cons[ci].from] = append(g.out[g.cons[ci].from], ci)
		g.in[g.cons[ci].to] = append(g.in[g.cons[ci].to], ci)
	}
}

// assignRanks computes ranks by a longest-path traversal honoring each
// constraint's minimum length: rank(to) >= rank(from) + minlen.
func (g *constraintGraph) assignRanks() []int {
	ranks := make([]int, len(g.ids))
	degree := make([]int, len(g.ids))
	var queue []int

	for n := range g.ids {
		degree[n] = len(g.in[n])
		if degree[n] == 0 {
			queue = append(queue, n)
		}
	}

	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]
		for _, ci := range g.out[curr] {
			c := g.cons[ci]
			if r := ranks[curr] + c.minlen; r > ranks[c.to] {
				ranks[c.to] = r
			}
			degree[c.to]--
			if degree[c.to] == 0 {
				queue = append(queue, c.to)
			}
		}
	}

	return ranks
}

// orderRanks groups nodes by rank and runs alternating barycenter sweeps to
// reduce crossings. Ties keep their previous relative order, so the result is
// deterministic for a given input order.
func (g *constraintGraph) orderRanks(ranks []int) [][]string {
	byRank := make(map[int][]int)
	var rankKeys []int
	for n := range g.ids {
		r := ranks[n]
		if _, ok := byRank[r]; !ok {
			rankKeys = append(rankKeys, r)
		}
		byRank[r] = append(byRank[r], n)
	}
	sort.Ints(rankKeys)

	pos := make([]int, len(g.ids))
	updatePos := func() {
		for _, r := range rankKeys {
			for i, n := range byRank[r] {
				pos[n] = i
			}
		}
	}
	updatePos()

	barycenter := func(n int, down bool) (float64, bool) {
		var sum float64
		var cnt int
		cs := g.out[n]
		if down {
			cs = g.in[n]
		}
		for _, ci := range cs {
			other := g.cons[ci].from
			if !down {
				other = g.cons[ci].to
			}
			sum += float64(pos[other])
			cnt++
		}
		if cnt == 0 {
			return 0, false
		}
		return sum / float64(cnt), true
	}

	sweep := func(down bool) {
		keys := rankKeys
		if !down {
			keys = make([]int, len(rankKeys))
			copy(keys, rankKeys)
			sort.Sort(sort.Reverse(sort.IntSlice(keys)))
		}
		for _, r := range keys {
			row := byRank[r]
			weights := make(map[int]float64, len(row))
			for _, n := range row {
				if w, ok := barycenter(n, down); ok {
					weights[n] = w
				} else {
					weights[n] = float64(pos[n])
				}
			}
			sort.SliceStable(row, func(i, j int) bool {
				return weights[row[i]] < weights[row[j]]
			})
			updatePos()
		}
	}

	for pass := 0; pass < orderingPasses; pass++ {
		sweep(pass%2 == 0)
	}

	out := make([][]string, 0, len(rankKeys))
	for _, r := range rankKeys {
		row := make([]string, len(byRank[r]))
		for i, n := range byRank[r] {
			row[i] = g.ids[n]
		}
		out = append(out, row)
	}
	return out
}

// Ranks exposes the rank assignment for a graph, keyed by node ID. It is
// used by tests and diagnostic tooling.
func Ranks(nodes []schema.Node, edges []schema.Edge) map[string]int {
	if len(nodes) == 0 {
		return map[string]int{}
	}
	g := buildConstraints(nodes, edges)
	g.breakCycles()
	ranks := g.assignRanks()
	out := make(map[string]int, len(nodes))
	for i, id := range g.ids {
		out[id] = ranks[i]
	}
	return out
}
