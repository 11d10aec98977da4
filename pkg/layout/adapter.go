package layout

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/nodemedic/nodemedic/pkg/graph"
)

// Handler receives taps from a mounted instance.
type Handler interface {
	NodeTapped(nodeID string)
	BackgroundTapped()
}

// Instance is a mounted rendering of one graph.
type Instance interface {
	Close() error
}

// Engine mounts element lists. Mount must not call h before it returns.
type Engine interface {
	Mount(ctx context.Context, els []Element, h Handler) (Instance, error)
}

// ErrSuperseded is returned by Attach when the adapter was released or
// attached again while the engine was mounting.
var ErrSuperseded = errors.New("layout: attach superseded")

// Adapter owns at most one live [Instance] and relays its taps to a [Bus].
type Adapter struct {
	engine Engine
	bus    *Bus
	logger *log.Logger

	mu   sync.Mutex
	inst Instance
	gen  uint64
}

// NewAdapter returns an adapter mounting on e and publishing to bus.
// A nil logger discards output.
func NewAdapter(e Engine, bus *Bus, logger *log.Logger) *Adapter {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Adapter{engine: e, bus: bus, logger: logger}
}

// Events returns the bus taps are published on.
func (a *Adapter) Events() *Bus { return a.bus }

// Instance returns the live instance, or nil.
func (a *Adapter) Instance() Instance {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.inst
}

// Attach releases any live instance and mounts g. When mounting fails no
// instance is live afterwards.
func (a *Adapter) Attach(ctx context.Context, g *graph.Graph) (Instance, error) {
	a.Release()

	a.mu.Lock()
	a.gen++
	gen := a.gen
	a.mu.Unlock()

	els := Elements(g)
	inst, err := a.engine.Mount(ctx, els, &relay{adapter: a, gen: gen})
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	if a.gen != gen {
		a.mu.Unlock()
		inst.Close()
		return nil, ErrSuperseded
	}
	a.inst = inst
	a.mu.Unlock()

	a.logger.Debug("mounted graph", "elements", len(els), "generation", gen)
	return inst, nil
}

// Release closes the live instance. It is safe to call repeatedly.
func (a *Adapter) Release() {
	a.mu.Lock()
	inst := a.inst
	a.inst = nil
	a.gen++
	a.mu.Unlock()

	if inst == nil {
		return
	}
	if err := inst.Close(); err != nil {
		a.logger.Warn("closing render instance", "err", err)
	}
}

func (a *Adapter) live(gen uint64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.gen == gen && a.inst != nil
}

// relay forwards taps from one instance generation.
type relay struct {
	adapter *Adapter
	gen     uint64
}

func (r *relay) NodeTapped(nodeID string) {
	if !r.adapter.live(r.gen) {
		r.adapter.logger.Debug("ignoring tap from released instance", "node", nodeID)
		return
	}
	r.adapter.bus.Publish(Event{Type: NodeTapped, NodeID: nodeID})
}

func (r *relay) BackgroundTapped() {
	if !r.adapter.live(r.gen) {
		return
	}
	r.adapter.bus.Publish(Event{Type: BackgroundTapped})
}
