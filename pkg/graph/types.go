package graph

import (
	"slices"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Node is a package in the dependency graph.
type Node struct {
	ID                 string          `json:"id" yaml:"id"`
	Label              string          `json:"label,omitempty" yaml:"label,omitempty"`
	Version            string          `json:"version,omitempty" yaml:"version,omitempty"`
	MaintainerCount    int             `json:"maintainer_count" yaml:"maintainer_count"`
	Maintainers        []string        `json:"maintainers,omitempty" yaml:"maintainers,omitempty"`
	VulnerabilityCount int             `json:"vulnerability_count" yaml:"vulnerability_count"`
	Vulnerabilities    []Vulnerability `json:"vulnerabilities,omitempty" yaml:"vulnerabilities,omitempty"`
	Repository         *Repository     `json:"repository,omitempty" yaml:"repository,omitempty"`
	Degree             int             `json:"degree" yaml:"degree"`
	Depth              *int            `json:"depth,omitempty" yaml:"depth,omitempty"` // Distance from the queried root
}

// DisplayLabel returns the label if set, otherwise the ID.
func (n *Node) DisplayLabel() string {
	if n.Label != "" {
		return n.Label
	}
	return n.ID
}

// HasVulnerabilities reports whether any known advisory affects the package.
func (n *Node) HasVulnerabilities() bool { return n.VulnerabilityCount > 0 }

func (n *Node) clone() Node {
	c := *n
	c.Maintainers = slices.Clone(n.Maintainers)
	c.Vulnerabilities = slices.Clone(n.Vulnerabilities)
	if n.Repository != nil {
		r := *n.Repository
		r.Contributors = slices.Clone(n.Repository.Contributors)
		c.Repository = &r
	}
	if n.Depth != nil {
		d := *n.Depth
		c.Depth = &d
	}
	return c
}

// Vulnerability is a published advisory affecting a package.
type Vulnerability struct {
	ID      string `json:"id" yaml:"id"`
	Summary string `json:"summary,omitempty" yaml:"summary,omitempty"`
}

// Repository holds source repository statistics for a package.
type Repository struct {
	Name         string        `json:"name,omitempty" yaml:"name,omitempty"`
	URL          string        `json:"url,omitempty" yaml:"url,omitempty"`
	Stars        int           `json:"stars" yaml:"stars"`
	Forks        int           `json:"forks" yaml:"forks"`
	Contributors []Contributor `json:"contributors,omitempty" yaml:"contributors,omitempty"`
}

// Contributor is a repository contributor with their commit count.
type Contributor struct {
	Login       string `json:"login" yaml:"login"`
	AvatarURL   string `json:"avatar_url,omitempty" yaml:"avatar_url,omitempty"`
	ProfileURL  string `json:"profile_url,omitempty" yaml:"profile_url,omitempty"`
	CommitCount int    `json:"commit_count" yaml:"commit_count"`
}

// Edge is a directed dependency: Source depends on Target.
type Edge struct {
	Source string `json:"source" yaml:"source"`
	Target string `json:"target" yaml:"target"`
}

// Touches reports whether id is one of the edge endpoints.
func (e Edge) Touches(id string) bool { return e.Source == id || e.Target == id }

// Other returns the endpoint opposite to id. For a self-loop it returns id.
func (e Edge) Other(id string) string {
	if e.Source == id {
		return e.Target
	}
	return e.Source
}

// Graph is a canonical dependency graph produced by [Normalize].
type Graph struct {
	nodes   *orderedmap.OrderedMap[string, *Node]
	edges   []Edge
	dropped int
}

// Empty returns a graph without nodes or edges.
func Empty() *Graph {
	return &Graph{nodes: orderedmap.New[string, *Node]()}
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return g.nodes.Len() }

// EdgeCount returns the number of retained edges.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// DroppedEdges returns how many payload edges were discarded because an
// endpoint was missing from the node mapping.
func (g *Graph) DroppedEdges() int { return g.dropped }

// HasNode reports whether id is a key of the node mapping.
func (g *Graph) HasNode(id string) bool {
	_, ok := g.nodes.Get(id)
	return ok
}

// Node returns a copy of the node with the given id.
func (g *Graph) Node(id string) (Node, bool) {
	n, ok := g.nodes.Get(id)
	if !ok {
		return Node{}, false
	}
	return n.clone(), true
}

// Nodes returns copies of all nodes in mapping order.
func (g *Graph) Nodes() []Node {
	out := make([]Node, 0, g.nodes.Len())
	for p := g.nodes.Oldest(); p != nil; p = p.Next() {
		out = append(out, p.Value.clone())
	}
	return out
}

// NodeIDs returns all node ids in mapping order.
func (g *Graph) NodeIDs() []string {
	out := make([]string, 0, g.nodes.Len())
	for p := g.nodes.Oldest(); p != nil; p = p.Next() {
		out = append(out, p.Key)
	}
	return out
}

// Edges returns a copy of the retained edges in payload order.
func (g *Graph) Edges() []Edge { return slices.Clone(g.edges) }

// Degree returns the degree of id, or 0 if the node does not exist.
func (g *Graph) Degree(id string) int {
	if n, ok := g.nodes.Get(id); ok {
		return n.Degree
	}
	return 0
}
