// Package selection owns the explorer's current node selection.
//
// A [Controller] holds at most one [Selection]: the selected node id plus its
// neighborhood in the canonical graph. Observers registered with
// [Controller.Subscribe] receive one [Change] per transition, so replacing a
// selection never exposes an intermediate empty state.
package selection

import (
	"slices"
	"sync"

	errs "github.com/nodemedic/nodemedic/pkg/errors"
	"github.com/nodemedic/nodemedic/pkg/graph"
)

// Selection is a selected node and its immediate neighborhood.
type Selection struct {
	NodeID string

	// ConnectedNodeIDs holds the opposite endpoint of each connected edge,
	// in edge order. Parallel edges repeat the neighbor.
	ConnectedNodeIDs []string

	// ConnectedEdges holds every canonical edge touching NodeID, in graph order.
	ConnectedEdges []graph.Edge
}

// UniqueNeighbors returns ConnectedNodeIDs without repeats, keeping first
// occurrence order.
func (s Selection) UniqueNeighbors() []string {
	seen := make(map[string]bool, len(s.ConnectedNodeIDs))
	out := make([]string, 0, len(s.ConnectedNodeIDs))
	for _, id := range s.ConnectedNodeIDs {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// Dependencies returns the targets of edges where NodeID is the source.
func (s Selection) Dependencies() []string {
	var out []string
	for _, e := range s.ConnectedEdges {
		if e.Source == s.NodeID {
			out = append(out, e.Target)
		}
	}
	return out
}

// Dependents returns the sources of edges where NodeID is the target.
func (s Selection) Dependents() []string {
	var out []string
	for _, e := range s.ConnectedEdges {
		if e.Target == s.NodeID {
			out = append(out, e.Source)
		}
	}
	return out
}

func (s Selection) clone() Selection {
	return Selection{
		NodeID:           s.NodeID,
		ConnectedNodeIDs: slices.Clone(s.ConnectedNodeIDs),
		ConnectedEdges:   slices.Clone(s.ConnectedEdges),
	}
}

// Neighborhood computes the selection for nodeID in g.
// It fails with errors.ErrCodeUnknownNode when nodeID is not in g.
func Neighborhood(g *graph.Graph, nodeID string) (Selection, error) {
	if g == nil || !g.HasNode(nodeID) {
		return Selection{}, errs.New(errs.ErrCodeUnknownNode, "node %q is not in the graph", nodeID)
	}
	sel := Selection{NodeID: nodeID}
	for _, e := range g.Edges() {
		if e.Touches(nodeID) {
			sel.ConnectedEdges = append(sel.ConnectedEdges, e)
			sel.ConnectedNodeIDs = append(sel.ConnectedNodeIDs, e.Other(nodeID))
		}
	}
	return sel, nil
}

// Change describes a selection transition. Prev or Next is nil when there
// was, or is, no selection.
type Change struct {
	Prev *Selection
	Next *Selection
}

// Cleared reports whether the transition left nothing selected.
func (c Change) Cleared() bool { return c.Next == nil }

// Controller holds the current selection. It is safe for concurrent use;
// observers are called outside the lock, in subscription order.
type Controller struct {
	mu      sync.Mutex
	current *Selection
	subs    []subscriber
	nextSub int
}

type subscriber struct {
	id int
	fn func(Change)
}

// NewController returns a controller with nothing selected.
func NewController() *Controller {
	return &Controller{}
}

// Select makes nodeID the current selection, replacing any previous one in a
// single transition. When nodeID is not in g it fails with
// errors.ErrCodeUnknownNode and the previous selection is left unchanged.
func (c *Controller) Select(g *graph.Graph, nodeID string) (Selection, error) {
	sel, err := Neighborhood(g, nodeID)
	if err != nil {
		return Selection{}, err
	}

	c.mu.Lock()
	prev := c.current
	next := sel.clone()
	c.current = &next
	subs := slices.Clone(c.subs)
	c.mu.Unlock()

	notify(subs, Change{Prev: prev, Next: &next})
	return sel, nil
}

// Clear removes the current selection. It is a no-op when nothing is
// selected.
func (c *Controller) Clear() {
	c.mu.Lock()
	prev := c.current
	if prev == nil {
		c.mu.Unlock()
		return
	}
	c.current = nil
	subs := slices.Clone(c.subs)
	c.mu.Unlock()

	notify(subs, Change{Prev: prev})
}

// Current returns a copy of the current selection.
func (c *Controller) Current() (Selection, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return Selection{}, false
	}
	return c.current.clone(), true
}

// SelectedID returns the id of the selected node.
func (c *Controller) SelectedID() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return "", false
	}
	return c.current.NodeID, true
}

// Subscribe registers fn for selection changes and returns a function that
// removes it.
func (c *Controller) Subscribe(fn func(Change)) (cancel func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextSub++
	id := c.nextSub
	c.subs = append(c.subs, subscriber{id: id, fn: fn})
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.subs = slices.DeleteFunc(c.subs, func(s subscriber) bool { return s.id == id })
	}
}

func notify(subs []subscriber, ch Change) {
	for _, s := range subs {
		s.fn(ch)
	}
}
