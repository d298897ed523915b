// Package dag provides the directed graph operations used for pipeline
// step ordering and foreign-key cycle detection.
//
// Iteration follows node insertion order, so every result is deterministic
// without sorting by ID.
package dag

import (
	"fmt"
	"slices"
)

// Node represents a node in the graph.
type Node struct {
	// ID is the unique identifier (step or table name)
	ID string
	// Data holds arbitrary node data
	Data any
}

// Graph is a directed graph with insertion-ordered nodes.
type Graph struct {
	order   []string
	nodes   map[string]*Node
	edges   map[string][]string // parent -> children (dependents)
	parents map[string][]string // child -> parents (dependencies)
}

// NewGraph creates a new empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes:   make(map[string]*Node),
		edges:   make(map[string][]string),
		parents: make(map[string][]string),
	}
}

// AddNode adds a node, or replaces the data of an existing one.
func (g *Graph) AddNode(id string, data any) {
	if n, exists := g.nodes[id]; exists {
		n.Data = data
		return
	}
	g.nodes[id] = &Node{ID: id, Data: data}
	g.order = append(g.order, id)
}

// AddEdge adds a directed edge from parent to child (child depends on parent).
func (g *Graph) AddEdge(parentID, childID string) error {
	if _, exists := g.nodes[parentID]; !exists {
		return fmt.Errorf("parent node %q does not exist", parentID)
	}
	if _, exists := g.nodes[childID]; !exists {
		return fmt.Errorf("child node %q does not exist", childID)
	}
	if parentID == childID {
		return fmt.Errorf("self-loop detected: %s", parentID)
	}

	if !slices.Contains(g.edges[parentID], childID) {
		g.edges[parentID] = append(g.edges[parentID], childID)
	}
	if !slices.Contains(g.parents[childID], parentID) {
		g.parents[childID] = append(g.parents[childID], parentID)
	}
	return nil
}

// Node returns a node by ID.
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Parents returns the dependencies of a node.
func (g *Graph) Parents(id string) []string {
	return g.parents[id]
}

// Children returns the dependents of a node.
func (g *Graph) Children(id string) []string {
	return g.edges[id]
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.order)
}

// HasCycle reports whether the graph contains a cycle, with the cycle path
// starting and ending at the same node.
func (g *Graph) HasCycle() (bool, []string) {
	visited := make(map[string]bool)
	onStack := make(map[string]bool)
	from := make(map[string]string)

	var cycle []string
	var dfs func(id string) bool
	dfs = func(id string) bool {
		visited[id] = true
		onStack[id] = true
		for _, child := range g.edges[id] {
			if !visited[child] {
				from[child] = id
				if dfs(child) {
					return true
				}
			} else if onStack[child] {
				cycle = []string{child}
				for cur := id; cur != child; cur = from[cur] {
					cycle = append(cycle, cur)
				}
				cycle = append(cycle, child)
				slices.Reverse(cycle)
				return true
			}
		}
		onStack[id] = false
		return false
	}

	for _, id := range g.order {
		if !visited[id] && dfs(id) {
			return true, cycle
		}
	}
	return false, nil
}

// TopologicalSort returns nodes with dependencies before dependents.
// Independent nodes keep insertion order.
func (g *Graph) TopologicalSort() ([]*Node, error) {
	if cyclic, path := g.HasCycle(); cyclic {
		return nil, fmt.Errorf("cycle detected: %v", path)
	}

	visited := make(map[string]bool)
	result := make([]*Node, 0, len(g.order))
	var visit func(id string)
	visit = func(id string) {
		if visited[id] {
			return
		}
		visited[id] = true
		for _, p := range g.parents[id] {
			visit(p)
		}
		result = append(result, g.nodes[id])
	}
	for _, id := range g.order {
		visit(id)
	}
	return result, nil
}

// Levels groups node IDs by depth. Level 0 has no dependencies; nodes at
// level N only depend on lower levels.
func (g *Graph) Levels() ([][]string, error) {
	sorted, err := g.TopologicalSort()
	if err != nil {
		return nil, err
	}

	depth := make(map[string]int, len(sorted))
	var levels [][]string
	for _, n := range sorted {
		d := 0
		for _, p := range g.parents[n.ID] {
			d = max(d, depth[p]+1)
		}
		depth[n.ID] = d
		if d == len(levels) {
			levels = append(levels, nil)
		}
		levels[d] = append(levels[d], n.ID)
	}
	return levels, nil
}

// Downstream returns the given nodes and everything depending on them,
// in insertion order.
func (g *Graph) Downstream(ids ...string) []string {
	marked := make(map[string]bool)
	var mark func(id string)
	mark = func(id string) {
		if marked[id] {
			return
		}
		marked[id] = true
		for _, c := range g.edges[id] {
			mark(c)
		}
	}
	for _, id := range ids {
		if _, ok := g.nodes[id]; ok {
			mark(id)
		}
	}

	var out []string
	for _, id := range g.order {
		if marked[id] {
			out = append(out, id)
		}
	}
	return out
}
