package deps

import (
	"encoding/json"
	"slices"

	errs "github.com/nodemedic/nodemedic/pkg/errors"
	"github.com/nodemedic/nodemedic/pkg/graph"
)

const treeRoot = "root"

// treeEntry is one level of `npm ls --json` output.
type treeEntry struct {
	Name         string               `json:"name"`
	Version      string               `json:"version"`
	Dependencies map[string]treeEntry `json:"dependencies"`
}

// IsTree reports whether data looks like `npm ls --json` output rather than
// a graph payload.
func IsTree(data []byte) bool {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return false
	}
	_, hasNodes := top["nodes"]
	_, hasDeps := top["dependencies"]
	return !hasNodes && hasDeps
}

// FromTree converts `npm ls --json` output into a graph. Every package
// becomes a node and every nesting level an edge; a package listed under
// several parents is one node. A tree without a name is rooted at "root".
func FromTree(data []byte) (*graph.Graph, error) {
	var root treeEntry
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, errs.Wrap(errs.ErrCodeMalformedPayload, err, "dependency tree must be a JSON object")
	}
	if root.Name == "" {
		root.Name = treeRoot
	}

	w := &treeWalker{seen: make(map[string]int)}
	w.walk(root.Name, root)
	w.assignDepths(root.Name)

	data, err := json.Marshal(struct {
		Nodes []graph.Node `json:"nodes"`
		Edges []graph.Edge `json:"edges"`
	}{w.nodes, w.edges})
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInternal, err, "encode dependency tree")
	}
	return graph.Normalize(data)
}

// treeWalker collects nodes and edges from every occurrence of a package.
// npm ls prints a shared package in full once and as a bare "deduped"
// entry elsewhere, and the full entry may be the deeper one.
type treeWalker struct {
	nodes []graph.Node
	edges []graph.Edge
	seen  map[string]int
}

func (w *treeWalker) walk(name string, e treeEntry) {
	if i, ok := w.seen[name]; ok {
		if w.nodes[i].Version == "" {
			w.nodes[i].Version = e.Version
		}
	} else {
		w.seen[name] = len(w.nodes)
		w.nodes = append(w.nodes, graph.Node{ID: name, Label: name, Version: e.Version})
	}

	// Map iteration order is random; sorting keeps node order stable.
	names := make([]string, 0, len(e.Dependencies))
	for dep := range e.Dependencies {
		names = append(names, dep)
	}
	slices.Sort(names)
	for _, dep := range names {
		if !w.hasEdge(name, dep) {
			w.edges = append(w.edges, graph.Edge{Source: name, Target: dep})
		}
		w.walk(dep, e.Dependencies[dep])
	}
}

func (w *treeWalker) hasEdge(src, tgt string) bool {
	return slices.Contains(w.edges, graph.Edge{Source: src, Target: tgt})
}

// assignDepths sets each node's depth to its shortest distance from root.
func (w *treeWalker) assignDepths(root string) {
	children := make(map[string][]string, len(w.nodes))
	for _, e := range w.edges {
		children[e.Source] = append(children[e.Source], e.Target)
	}
	depth := map[string]int{root: 0}
	queue := []string{root}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range children[cur] {
			if _, ok := depth[next]; !ok {
				depth[next] = depth[cur] + 1
				queue = append(queue, next)
			}
		}
	}
	for i := range w.nodes {
		d := depth[w.nodes[i].ID]
		w.nodes[i].Depth = &d
	}
}
