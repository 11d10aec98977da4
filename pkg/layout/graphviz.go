package layout

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/goccy/go-graphviz"

	"github.com/nodemedic/nodemedic/pkg/graph"
)

// DOTOptions configures DOT generation.
type DOTOptions struct {
	// Detailed adds version and risk counts to node labels.
	Detailed bool
}

// Fill colors by vulnerability count.
const (
	fillClean    = "white"
	fillWarning  = "#fde68a"
	fillCritical = "#fca5a5"
)

// ToDOT converts g to Graphviz DOT source. Nodes with known vulnerabilities
// are filled amber, or red from three vulnerabilities up.
func ToDOT(g *graph.Graph, opts DOTOptions) string {
	nodes, edges := SplitElements(Elements(g))
	return elementsDOT(nodes, edges, opts)
}

func elementsDOT(nodes []*graph.Node, edges []*graph.Edge, opts DOTOptions) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	for _, n := range nodes {
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, strings.Join(nodeAttrs(n, opts.Detailed), ", "))
	}

	buf.WriteString("\n")
	for _, e := range edges {
		fmt.Fprintf(&buf, "  %q -> %q;\n", e.Source, e.Target)
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeLabel(n *graph.Node, detailed bool) string {
	label := n.DisplayLabel()
	if !detailed {
		return label
	}
	parts := []string{label}
	if n.Version != "" {
		parts = append(parts, "v"+n.Version)
	}
	parts = append(parts,
		fmt.Sprintf("maintainers: %d", n.MaintainerCount),
		fmt.Sprintf("vulnerabilities: %d", n.VulnerabilityCount))
	return strings.Join(parts, "\n")
}

func nodeAttrs(n *graph.Node, detailed bool) []string {
	attrs := []string{fmt.Sprintf("label=%q", nodeLabel(n, detailed))}
	switch {
	case n.VulnerabilityCount >= 3:
		attrs = append(attrs, "fillcolor=\""+fillCritical+"\"")
	case n.VulnerabilityCount > 0:
		attrs = append(attrs, "fillcolor=\""+fillWarning+"\"")
	}
	if n.Repository != nil && n.Repository.URL != "" {
		attrs = append(attrs, fmt.Sprintf("URL=%q", n.Repository.URL))
	}
	return attrs
}

// RenderSVG lays out and renders DOT source as SVG.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}

// Point is a node center in Graphviz points.
type Point struct {
	X, Y float64
}

// GraphvizEngine is an [Engine] that computes a static Graphviz layout.
// It has no pointer input of its own; callers forward taps through
// [GraphvizInstance.TapNode] and [GraphvizInstance.TapBackground].
type GraphvizEngine struct {
	Options DOTOptions
}

// Mount lays out els and returns a [*GraphvizInstance].
func (e GraphvizEngine) Mount(ctx context.Context, els []Element, h Handler) (Instance, error) {
	nodes, edges := SplitElements(els)
	dot := elementsDOT(nodes, edges, e.Options)

	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		gv.Close()
		return nil, fmt.Errorf("parse DOT: %w", err)
	}

	var laid bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.XDOT, &laid); err != nil {
		g.Close()
		gv.Close()
		return nil, fmt.Errorf("layout: %w", err)
	}

	ids := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		ids[n.ID] = true
	}

	return &GraphvizInstance{
		gv:        gv,
		g:         g,
		dot:       dot,
		positions: parsePositions(laid.String()),
		ids:       ids,
		handler:   h,
	}, nil
}

// GraphvizInstance is a laid-out graph.
type GraphvizInstance struct {
	gv        *graphviz.Graphviz
	g         *graphviz.Graph
	dot       string
	positions map[string]Point
	ids       map[string]bool
	handler   Handler

	mu     sync.Mutex
	closed bool
}

// DOT returns the DOT source the instance was built from.
func (i *GraphvizInstance) DOT() string { return i.dot }

// Position returns the laid-out center of a node.
func (i *GraphvizInstance) Position(id string) (Point, bool) {
	p, ok := i.positions[id]
	return p, ok
}

// SVG renders the mounted graph.
func (i *GraphvizInstance) SVG(ctx context.Context) ([]byte, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return nil, fmt.Errorf("render: instance closed")
	}
	var buf bytes.Buffer
	if err := i.gv.Render(ctx, i.g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}

// TapNode reports a tap on id. Unknown ids are treated as background taps.
func (i *GraphvizInstance) TapNode(id string) {
	if !i.ids[id] {
		i.handler.BackgroundTapped()
		return
	}
	i.handler.NodeTapped(id)
}

// TapBackground reports a tap on empty canvas.
func (i *GraphvizInstance) TapBackground() {
	i.handler.BackgroundTapped()
}

// Close frees the Graphviz graph and context. Later calls are no-ops.
func (i *GraphvizInstance) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return nil
	}
	i.closed = true
	gerr := i.g.Close()
	cerr := i.gv.Close()
	if gerr != nil {
		return gerr
	}
	return cerr
}

var nodePosRe = regexp.MustCompile(`(?m)^\s*("(?:[^"\\]|\\.)*"|[A-Za-z_0-9.]+)\s+\[[^\]]*?\bpos="([-0-9.e]+),([-0-9.e]+)"`)

// parsePositions extracts node centers from laid-out DOT output.
func parsePositions(dot string) map[string]Point {
	out := make(map[string]Point)
	for _, m := range nodePosRe.FindAllStringSubmatch(dot, -1) {
		id := m[1]
		if strings.HasPrefix(id, `"`) {
			uq, err := strconv.Unquote(id)
			if err != nil {
				continue
			}
			id = uq
		}
		switch id {
		case "graph", "node", "edge":
			continue
		}
		x, errX := strconv.ParseFloat(m[2], 64)
		y, errY := strconv.ParseFloat(m[3], 64)
		if errX != nil || errY != nil {
			continue
		}
		out[id] = Point{X: x, Y: y}
	}
	return out
}
