package analysis

import "github.com/trustify/trustify/pkg/graph"

// Tree is one node of a Collect result: the node itself plus the
// subtrees reached by the edges the traversal followed from it.
type Tree struct {
	Node     *PackageNode
	Edge     graph.Relationship // the relationship that reached Node; zero value at the root
	Children []*Tree
}

// Collect walks start's subgraph in direction for up to depth levels,
// counting start itself as the first (depth 1 returns start alone, depth
// 0 returns nil), optionally restricted to relationships (spec.md §4.8's
// collect). A
// shared visited set is threaded through the whole call so a diamond
// dependency is only ever expanded once and a cycle can't recurse
// forever — the "FixedBitSet... to guarantee termination" the spec
// calls for, implemented as a map since the pack carries no bitset type.
func Collect(g *PackageGraph, start string, direction Direction, depth int, relationships []graph.Relationship) *Tree {
	visited := make(map[string]bool, len(g.Nodes))
	filter := relationshipSet(relationships)
	return collect(g, start, direction, depth, filter, visited)
}

func collect(g *PackageGraph, nodeID string, direction Direction, depth int, filter map[graph.Relationship]bool, visited map[string]bool) *Tree {
	if depth == 0 {
		return nil
	}
	if visited[nodeID] {
		return nil
	}
	visited[nodeID] = true

	node, ok := g.Nodes[nodeID]
	if !ok {
		return nil
	}
	tree := &Tree{Node: node}

	for _, e := range g.edges(nodeID, direction) {
		if len(filter) > 0 && !filter[e.Relationship] {
			continue
		}
		if child := collect(g, e.NodeID, direction, depth-1, filter, visited); child != nil {
			child.Edge = e.Relationship
			tree.Children = append(tree.Children, child)
		}
	}
	return tree
}

func relationshipSet(rels []graph.Relationship) map[graph.Relationship]bool {
	if len(rels) == 0 {
		return nil
	}
	out := make(map[graph.Relationship]bool, len(rels))
	for _, r := range rels {
		out[r] = true
	}
	return out
}
