package graph

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	g, err := Parse([]string{"0-1", "1-2", "2-0", "1-2"})
	require.NoError(t, err)
	assert.Len(t, g.Nodes, 3)
	assert.Len(t, g.Edges, 4)

	n, ok := g.NodeByID(2)
	require.True(t, ok)
	assert.Equal(t, int64(2), n.ID)

	_, ok = g.NodeByID(7)
	assert.False(t, ok)
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name   string
		tokens []string
	}{
		{"no edges", nil},
		{"missing separator", []string{"12"}},
		{"trailing separator", []string{"1-"}},
		{"not a number", []string{"a-2"}},
		{"too many parts", []string{"1-2-3"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.tokens)
			assert.Error(t, err)
		})
	}
}

func TestConflictEdges(t *testing.T) {
	g, err := Parse([]string{"10-20", "30-5", "20-30"})
	require.NoError(t, err)

	set := func(id int64, c Color) {
		n, ok := g.NodeByID(id)
		require.True(t, ok)
		n.Color = c
	}
	set(10, Red)
	set(20, Red)
	set(30, Green)
	set(5, Green)

	conflicts := g.ConflictEdges(nil)
	assert.Equal(t, []int64{10, 20, 30, 5}, conflicts)

	// A proper coloring yields no conflicts.
	set(20, Blue)
	set(5, Red)
	conflicts = g.ConflictEdges(conflicts)
	assert.Empty(t, conflicts)
}

func TestColorRandomlyCoversAllNodes(t *testing.T) {
	g, err := Parse([]string{"1-2", "2-3", "3-4", "4-1"})
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(1))
	seen := make(map[Color]bool)
	for i := 0; i < 100; i++ {
		g.ColorRandomly(rng)
		for _, n := range g.Nodes {
			assert.Less(t, uint8(n.Color), uint8(3))
			seen[n.Color] = true
		}
	}
	assert.Len(t, seen, 3)
}

func TestCloneIsIndependent(t *testing.T) {
	g, err := Parse([]string{"1-2"})
	require.NoError(t, err)

	c := g.Clone()
	rng := rand.New(rand.NewSource(42))
	c.ColorRandomly(rng)
	c.Nodes[0].Color = Blue
	g.Nodes[0].Color = Red

	assert.Equal(t, Red, g.Nodes[0].Color)
	assert.Equal(t, Blue, c.Nodes[0].Color)

	n, ok := c.NodeByID(2)
	require.True(t, ok)
	assert.Equal(t, int64(2), n.ID)
}
