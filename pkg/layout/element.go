package layout

import (
	"fmt"

	"github.com/nodemedic/nodemedic/pkg/graph"
)

// Element groups, matching the group names graph widgets conventionally use.
const (
	GroupNodes = "nodes"
	GroupEdges = "edges"
)

// Element is one renderable item. Exactly one of Node and Edge is set.
type Element struct {
	Group string
	ID    string
	Node  *graph.Node
	Edge  *graph.Edge
}

// Elements translates g into engine elements: all nodes in graph order,
// then all edges in graph order. Node attributes are carried unmodified.
// Edge ids are "source->target#i" where i is the edge's index, so parallel
// edges stay distinct.
func Elements(g *graph.Graph) []Element {
	if g == nil {
		return nil
	}
	nodes := g.Nodes()
	edges := g.Edges()
	out := make([]Element, 0, len(nodes)+len(edges))
	for i := range nodes {
		out = append(out, Element{Group: GroupNodes, ID: nodes[i].ID, Node: &nodes[i]})
	}
	for i := range edges {
		e := &edges[i]
		out = append(out, Element{
			Group: GroupEdges,
			ID:    fmt.Sprintf("%s->%s#%d", e.Source, e.Target, i),
			Edge:  e,
		})
	}
	return out
}

// SplitElements separates nodes from edges, preserving order.
func SplitElements(els []Element) (nodes []*graph.Node, edges []*graph.Edge) {
	for _, el := range els {
		switch {
		case el.Node != nil:
			nodes = append(nodes, el.Node)
		case el.Edge != nil:
			edges = append(edges, el.Edge)
		}
	}
	return nodes, edges
}
