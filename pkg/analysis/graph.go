// Package analysis is the in-memory graph engine over one SBOM's
// dependency data (spec.md §4.8): it builds a PackageGraph once per
// SBOM from the sbom_node/sbom_package/refs/package_relates_to_package
// tables, caches it in a bounded LRU, and answers traversal and
// component-lookup queries against it without touching the database
// again until the entry is evicted.
package analysis

import (
	"github.com/google/uuid"

	"github.com/trustify/trustify/pkg/graph"
)

// PackageNode is one sbom_node's addressable identity for traversal and
// lookup purposes: its name/version plus every pURL and CPE it was
// matched to (a node may carry several of each, or none).
type PackageNode struct {
	SbomID  uuid.UUID
	NodeID  string
	Name    string
	Version string
	Purl    []string
	Cpe     []string
}

// Edge is one package_relates_to_package row, already resolved to the
// node on the other end.
type Edge struct {
	Relationship graph.Relationship
	NodeID       string
}

// PackageGraph is a directed graph over one SBOM's nodes, held as an
// adjacency list rather than through a general-purpose graph library:
// no library in the retrieved pack models a directed multigraph with
// per-edge relationship labels the way Trustify's dependency edges
// need, so the node/edge maps and the DFS below are hand-written.
type PackageGraph struct {
	SbomID uuid.UUID
	Nodes  map[string]*PackageNode
	out    map[string][]Edge
	in     map[string][]Edge

	// Acyclic is false when the initial DFS found a back-edge; queries
	// against such a graph still run (spec.md §4.8: "return the
	// discovered components as-is") but Warnings names the cycle.
	Acyclic  bool
	Warnings []string
}

func newPackageGraph(sbomID uuid.UUID) *PackageGraph {
	return &PackageGraph{
		SbomID:  sbomID,
		Nodes:   make(map[string]*PackageNode),
		out:     make(map[string][]Edge),
		in:      make(map[string][]Edge),
		Acyclic: true,
	}
}

func (g *PackageGraph) addEdge(left string, rel graph.Relationship, right string) {
	g.out[left] = append(g.out[left], Edge{Relationship: rel, NodeID: right})
	g.in[right] = append(g.in[right], Edge{Relationship: rel, NodeID: left})
}

// Direction selects which adjacency a traversal walks.
type Direction int

const (
	Outgoing Direction = iota
	Incoming
)

func (g *PackageGraph) edges(nodeID string, dir Direction) []Edge {
	if dir == Incoming {
		return g.in[nodeID]
	}
	return g.out[nodeID]
}
