// Package graph holds the undirected graph a coloring worker searches on,
// built from "id-id" edge tokens, plus the randomized 3-coloring candidate
// step and its conflict evaluation.
package graph

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
)

// Color is one of the three colors a node can take.
type Color uint8

// The three colors.
const (
	Red Color = iota
	Green
	Blue

	numColors = 3
)

// Node is a graph vertex with its current candidate color.
type Node struct {
	ID    int64
	Color Color
}

// Edge connects two nodes by index into the graph's node slice.
type Edge struct {
	A, B int
}

// Graph is an undirected graph under 3-coloring search. The node set is
// implicit: every id that occurs in an edge token becomes a node.
type Graph struct {
	Nodes []Node
	Edges []Edge

	index map[int64]int
}

// Parse builds a graph from command-line edge tokens of the form "id-id".
// At least one edge is required; ids are non-negative integers.
func Parse(tokens []string) (*Graph, error) {
	if len(tokens) == 0 {
		return nil, fmt.Errorf("at least one edge of the form ID-ID is required")
	}
	g := &Graph{index: make(map[int64]int)}
	for _, tok := range tokens {
		a, b, err := parseEdgeToken(tok)
		if err != nil {
			return nil, err
		}
		g.Edges = append(g.Edges, Edge{A: g.node(a), B: g.node(b)})
	}
	return g, nil
}

func parseEdgeToken(tok string) (int64, int64, error) {
	parts := strings.Split(tok, "-")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("malformed edge %q, want ID-ID", tok)
	}
	a, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("edge %q: node id %q is not an integer", tok, parts[0])
	}
	b, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("edge %q: node id %q is not an integer", tok, parts[1])
	}
	return a, b, nil
}

// node returns the index for an id, registering the node on first sight.
func (g *Graph) node(id int64) int {
	if i, ok := g.index[id]; ok {
		return i
	}
	i := len(g.Nodes)
	g.Nodes = append(g.Nodes, Node{ID: id})
	g.index[id] = i
	return i
}

// NodeByID returns the node with the given id.
func (g *Graph) NodeByID(id int64) (*Node, bool) {
	i, ok := g.index[id]
	if !ok {
		return nil, false
	}
	return &g.Nodes[i], true
}

// ColorRandomly assigns every node a uniformly random color.
func (g *Graph) ColorRandomly(rng *rand.Rand) {
	for i := range g.Nodes {
		g.Nodes[i].Color = Color(rng.Intn(numColors))
	}
}

// ConflictEdges appends the endpoint ids of every edge whose endpoints share
// a color to buf, interleaved a1,b1,a2,b2..., and returns the result. The
// number of conflicting edges is len(result)/2.
func (g *Graph) ConflictEdges(buf []int64) []int64 {
	buf = buf[:0]
	for _, e := range g.Edges {
		if g.Nodes[e.A].Color == g.Nodes[e.B].Color {
			buf = append(buf, g.Nodes[e.A].ID, g.Nodes[e.B].ID)
		}
	}
	return buf
}

// Clone returns an independent copy sharing no mutable state, so concurrent
// workers can color their own copies.
func (g *Graph) Clone() *Graph {
	out := &Graph{
		Nodes: append([]Node(nil), g.Nodes...),
		Edges: append([]Edge(nil), g.Edges...),
		index: make(map[int64]int, len(g.index)),
	}
	for id, i := range g.index {
		out.index[id] = i
	}
	return out
}
