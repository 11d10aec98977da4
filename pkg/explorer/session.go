package explorer

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	errs "github.com/nodemedic/nodemedic/pkg/errors"
	"github.com/nodemedic/nodemedic/pkg/graph"
	"github.com/nodemedic/nodemedic/pkg/layout"
	"github.com/nodemedic/nodemedic/pkg/observability"
	"github.com/nodemedic/nodemedic/pkg/selection"
	"github.com/nodemedic/nodemedic/pkg/typosquat"
)

// Options configures a [Session].
type Options struct {
	Logger *log.Logger

	// Finder answers typosquat lookups. Without one every lookup fails and
	// the overlay shows no suggestions.
	Finder typosquat.Finder

	// Dispatch runs typosquat lookups; see [typosquat.Options].
	Dispatch typosquat.Dispatcher
}

// Session owns the single active graph together with its rendering
// instance, selection and typosquat overlay.
type Session struct {
	logger  *log.Logger
	adapter *layout.Adapter
	ctrl    *selection.Controller
	overlay *typosquat.Overlay
	unbind  func()

	// loadMu serializes loads so two replacements never interleave.
	loadMu sync.Mutex

	mu     sync.Mutex
	graph  *graph.Graph
	loadID string
	source string
	closed bool
}

// New creates a session rendering through engine. Lookups issued by the
// overlay run with ctx.
func New(ctx context.Context, engine layout.Engine, opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	ctrl := selection.NewController()
	s := &Session{
		logger:  logger,
		adapter: layout.NewAdapter(engine, layout.NewBus(), logger),
		ctrl:    ctrl,
		overlay: typosquat.NewOverlay(ctx, opts.Finder, ctrl, typosquat.Options{
			Logger:   logger,
			Dispatch: opts.Dispatch,
		}),
	}
	s.unbind = s.adapter.Events().Subscribe(s.onEvent)
	return s
}

func (s *Session) onEvent(ev layout.Event) {
	switch ev.Type {
	case layout.NodeTapped:
		if _, err := s.Select(ev.NodeID); err != nil {
			s.logger.Error("selecting tapped node", "node", ev.NodeID, "err", err)
		}
	case layout.BackgroundTapped:
		s.ctrl.Clear()
	}
}

// Load fetches a payload from src and installs it. When fetching or
// normalizing fails the previous graph stays installed and the error is
// returned.
func (s *Session) Load(ctx context.Context, src Source) (*graph.Graph, error) {
	start := time.Now()
	data, err := src.Fetch(ctx)
	if err != nil {
		observability.Graph().OnLoad(ctx, src.Kind(), 0, 0, 0, time.Since(start), err)
		s.logger.Warn("load failed", "source", src.String(), "err", err)
		return nil, err
	}
	return s.load(ctx, src.Kind(), src.String(), data, start)
}

// LoadPayload normalizes data and installs the result.
func (s *Session) LoadPayload(ctx context.Context, data []byte) (*graph.Graph, error) {
	return s.load(ctx, "bytes", "payload", data, time.Now())
}

// load replaces the active graph. Normalization runs first so a malformed
// payload leaves the session untouched. The old instance is released and
// the selection cleared before the new graph is installed and mounted. A
// mount failure returns the installed graph with an ErrCodeNotMounted error.
func (s *Session) load(ctx context.Context, kind, desc string, data []byte, start time.Time) (*graph.Graph, error) {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	g, err := graph.Normalize(data)
	if err != nil {
		observability.Graph().OnLoad(ctx, kind, 0, 0, 0, time.Since(start), err)
		s.logger.Warn("rejected payload", "source", desc, "err", err)
		return nil, err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, errs.New(errs.ErrCodeInternal, "session closed")
	}
	s.mu.Unlock()

	s.adapter.Release()
	s.ctrl.Clear()

	id := uuid.NewString()
	s.mu.Lock()
	s.graph = g
	s.loadID = id
	s.source = desc
	s.mu.Unlock()

	observability.Graph().OnLoad(ctx, kind, g.NodeCount(), g.EdgeCount(), g.DroppedEdges(), time.Since(start), nil)
	s.logger.Info("loaded graph", "source", desc, "nodes", g.NodeCount(), "edges", g.EdgeCount(), "dropped", g.DroppedEdges(), "load", id)

	if _, err := s.adapter.Attach(ctx, g); err != nil {
		s.logger.Error("mounting graph", "load", id, "err", err)
		return g, errs.Wrap(errs.ErrCodeNotMounted, err, "graph loaded but not mounted")
	}
	return g, nil
}

// Select selects nodeID in the active graph.
func (s *Session) Select(nodeID string) (selection.Selection, error) {
	return s.ctrl.Select(s.Graph(), nodeID)
}

// Clear removes the current selection.
func (s *Session) Clear() { s.ctrl.Clear() }

// Graph returns the active graph, or nil before the first load.
func (s *Session) Graph() *graph.Graph {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graph
}

// LoadID identifies the active graph. It changes on every successful load.
func (s *Session) LoadID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadID
}

// Source describes where the active graph came from.
func (s *Session) Source() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.source
}

func (s *Session) Controller() *selection.Controller { return s.ctrl }
func (s *Session) Overlay() *typosquat.Overlay        { return s.overlay }
func (s *Session) Adapter() *layout.Adapter           { return s.adapter }

// Inspect returns the selected node with its neighborhood.
func (s *Session) Inspect() (graph.Node, selection.Selection, bool) {
	sel, ok := s.ctrl.Current()
	if !ok {
		return graph.Node{}, selection.Selection{}, false
	}
	g := s.Graph()
	if g == nil {
		return graph.Node{}, selection.Selection{}, false
	}
	n, ok := g.Node(sel.NodeID)
	return n, sel, ok
}

// Close releases the rendering instance and stops following events. It is
// safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.unbind()
	s.overlay.Close()
	s.adapter.Release()
}
