package dag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(nodes []*Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.ID
	}
	return out
}

func TestGraph_AddNodeAndEdge(t *testing.T) {
	g := NewGraph()
	g.AddNode("ingest", 1)
	g.AddNode("profile", 2)
	g.AddNode("ingest", 3)

	assert.Equal(t, 2, g.Len())
	n, ok := g.Node("ingest")
	require.True(t, ok)
	assert.Equal(t, 3, n.Data, "re-adding replaces data")

	require.NoError(t, g.AddEdge("ingest", "profile"))
	require.NoError(t, g.AddEdge("ingest", "profile"), "duplicate edges are ignored")
	assert.Equal(t, []string{"profile"}, g.Children("ingest"))
	assert.Equal(t, []string{"ingest"}, g.Parents("profile"))
}

func TestGraph_AddEdge_Errors(t *testing.T) {
	g := NewGraph()
	g.AddNode("a", nil)

	assert.Error(t, g.AddEdge("a", "missing"))
	assert.Error(t, g.AddEdge("missing", "a"))
	assert.Error(t, g.AddEdge("a", "a"))
}

func TestGraph_HasCycle(t *testing.T) {
	tests := []struct {
		name      string
		edges     [][2]string
		wantCycle bool
		wantPath  []string
	}{
		{
			name:  "chain",
			edges: [][2]string{{"a", "b"}, {"b", "c"}},
		},
		{
			name:  "diamond",
			edges: [][2]string{{"a", "b"}, {"a", "c"}, {"b", "d"}, {"c", "d"}},
		},
		{
			name:      "triangle",
			edges:     [][2]string{{"a", "b"}, {"b", "c"}, {"c", "a"}},
			wantCycle: true,
			wantPath:  []string{"a", "b", "c", "a"},
		},
		{
			name:      "two node",
			edges:     [][2]string{{"b", "c"}, {"c", "b"}},
			wantCycle: true,
			wantPath:  []string{"b", "c", "b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGraph()
			for _, id := range []string{"a", "b", "c", "d"} {
				g.AddNode(id, nil)
			}
			for _, e := range tt.edges {
				require.NoError(t, g.AddEdge(e[0], e[1]))
			}
			cyclic, path := g.HasCycle()
			assert.Equal(t, tt.wantCycle, cyclic)
			assert.Equal(t, tt.wantPath, path)
		})
	}
}

func TestGraph_TopologicalSort(t *testing.T) {
	g := NewGraph()
	for _, id := range []string{"emit-sql", "finalize", "ingest", "model", "profile", "emit-erd"} {
		g.AddNode(id, nil)
	}
	require.NoError(t, g.AddEdge("ingest", "profile"))
	require.NoError(t, g.AddEdge("profile", "model"))
	require.NoError(t, g.AddEdge("model", "finalize"))
	require.NoError(t, g.AddEdge("finalize", "emit-sql"))
	require.NoError(t, g.AddEdge("finalize", "emit-erd"))

	sorted, err := g.TopologicalSort()
	require.NoError(t, err)
	assert.Equal(t, []string{"ingest", "profile", "model", "finalize", "emit-sql", "emit-erd"}, ids(sorted))
}

func TestGraph_TopologicalSort_Cycle(t *testing.T) {
	g := NewGraph()
	g.AddNode("a", nil)
	g.AddNode("b", nil)
	require.NoError(t, g.AddEdge("a", "b"))
	require.NoError(t, g.AddEdge("b", "a"))

	_, err := g.TopologicalSort()
	assert.ErrorContains(t, err, "cycle detected")
	_, err = g.Levels()
	assert.Error(t, err)
}

func TestGraph_Levels(t *testing.T) {
	g := NewGraph()
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		g.AddNode(id, nil)
	}
	require.NoError(t, g.AddEdge("a", "b"))
	require.NoError(t, g.AddEdge("a", "c"))
	require.NoError(t, g.AddEdge("b", "d"))
	require.NoError(t, g.AddEdge("c", "d"))

	levels, err := g.Levels()
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a", "e"}, {"b", "c"}, {"d"}}, levels)
}

func TestGraph_Downstream(t *testing.T) {
	g := NewGraph()
	for _, id := range []string{"a", "b", "c", "d"} {
		g.AddNode(id, nil)
	}
	require.NoError(t, g.AddEdge("a", "b"))
	require.NoError(t, g.AddEdge("b", "c"))

	assert.Equal(t, []string{"b", "c"}, g.Downstream("b"))
	assert.Equal(t, []string{"a", "b", "c"}, g.Downstream("a", "missing"))
	assert.Equal(t, []string{"d"}, g.Downstream("d"))
}
