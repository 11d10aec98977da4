package graph

import (
	"bytes"
	"encoding/json"
	"io"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	errs "github.com/nodemedic/nodemedic/pkg/errors"
)

// Normalize validates a raw graph payload and returns its canonical form.
//
// The payload is never modified and every call returns a new Graph. Shape
// violations fail with errors.ErrCodeMalformedPayload; dangling edges are
// dropped without error and counted in [Graph.DroppedEdges].
func Normalize(data []byte) (*Graph, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, errs.Wrap(errs.ErrCodeMalformedPayload, err, "payload must be a JSON object")
	}
	if top == nil {
		return nil, errs.New(errs.ErrCodeMalformedPayload, "payload must be a JSON object")
	}

	rawNodes, ok := top["nodes"]
	if !ok || isNull(rawNodes) {
		return nil, errs.New(errs.ErrCodeMalformedPayload, "payload has no nodes")
	}
	nodeRecs, err := splitArray(rawNodes)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeMalformedPayload, err, "nodes must be an array")
	}

	var edgeRecs []json.RawMessage
	if rawEdges, ok := top["edges"]; ok && !isNull(rawEdges) {
		if edgeRecs, err = splitArray(rawEdges); err != nil {
			return nil, errs.Wrap(errs.ErrCodeMalformedPayload, err, "edges must be an array")
		}
	}

	nodes := orderedmap.New[string, *Node]()
	for i, raw := range nodeRecs {
		n, err := decodeNode(raw)
		if err != nil {
			return nil, errs.Wrap(errs.ErrCodeMalformedPayload, err, "node %d", i)
		}
		// Set keeps the first position and stores the last value.
		nodes.Set(n.ID, n)
	}

	g := &Graph{nodes: nodes, edges: make([]Edge, 0, len(edgeRecs))}
	for _, raw := range edgeRecs {
		e, ok := decodeEdge(raw)
		if !ok || !g.HasNode(e.Source) || !g.HasNode(e.Target) {
			g.dropped++
			continue
		}
		g.edges = append(g.edges, e)
	}

	computeDegrees(g)
	return g, nil
}

// Decode reads a payload from r and normalizes it.
func Decode(r io.Reader) (*Graph, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeMalformedPayload, err, "read payload")
	}
	return Normalize(data)
}

// computeDegrees counts retained edges per node. A self-loop is one edge
// and contributes one to its node.
func computeDegrees(g *Graph) {
	for p := g.nodes.Oldest(); p != nil; p = p.Next() {
		p.Value.Degree = 0
	}
	for _, e := range g.edges {
		src, _ := g.nodes.Get(e.Source)
		src.Degree++
		if e.Target != e.Source {
			tgt, _ := g.nodes.Get(e.Target)
			tgt.Degree++
		}
	}
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func splitArray(raw json.RawMessage) ([]json.RawMessage, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, err
	}
	return items, nil
}
