package deps

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	errs "github.com/nodemedic/nodemedic/pkg/errors"
	"github.com/nodemedic/nodemedic/pkg/graph"
	"github.com/nodemedic/nodemedic/pkg/observability"
)

const workers = 20

// Resolver builds a dependency graph starting from a root package.
type Resolver interface {
	// Resolve fetches the package and its transitive dependencies,
	// returning a graph with a node per package and an edge per dependency.
	Resolve(ctx context.Context, pkg string, opts Options) (*graph.Graph, error)
	// Name returns the resolver's identifier (e.g., "npm").
	Name() string
}

// Registry implements Resolver by wrapping a Fetcher with concurrent crawling.
type Registry struct {
	name    string
	fetcher Fetcher
}

// NewRegistry creates a Resolver that crawls dependencies using the given Fetcher.
func NewRegistry(name string, fetcher Fetcher) *Registry {
	return &Registry{name: name, fetcher: fetcher}
}

// Name returns the registry name.
func (r *Registry) Name() string { return r.name }

// Resolve crawls dependencies starting from pkg, respecting Options limits.
// A failure to fetch the root is returned; failures below the root leave a
// bare node for the package.
func (r *Registry) Resolve(ctx context.Context, pkg string, opts Options) (*graph.Graph, error) {
	opts = opts.WithDefaults()
	start := time.Now()

	c := &crawler{
		ctx:     ctx,
		opts:    opts,
		fetch:   r.fetcher.Fetch,
		nodes:   make(map[string]*graph.Node),
		visited: make(map[string]bool),
		jobs:    make(chan job, workers*2),
		results: make(chan result, workers*2),
	}
	g, err := c.run(pkg)

	nodes := 0
	if g != nil {
		nodes = g.NodeCount()
	}
	observability.Graph().OnResolve(ctx, pkg, opts.MaxDepth, nodes, time.Since(start), err)
	return g, err
}

type crawler struct {
	ctx   context.Context
	opts  Options
	fetch func(context.Context, string, bool) (*Package, error)

	// order and edges are only touched by the collecting goroutine.
	order []string
	nodes map[string]*graph.Node
	edges []graph.Edge

	jobs    chan job
	results chan result
	wg      sync.WaitGroup

	mu        sync.Mutex
	visited   map[string]bool
	pending   int64
	nodeCount int32
}

type job struct {
	name  string
	depth int
}

type result struct {
	job
	pkg  *Package
	node graph.Node
	err  error
}

func (c *crawler) run(root string) (*graph.Graph, error) {
	if err := c.ctx.Err(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(c.ctx)
	defer cancel()
	c.ctx = ctx

	for range workers {
		c.wg.Add(1)
		go c.worker()
	}

	c.enqueue(job{name: root})
	err := c.collect(root)
	cancel()
	c.wg.Wait()
	if err != nil {
		return nil, err
	}
	return c.build()
}

// worker fetches and enriches packages. Enrichment happens here so the
// OSV and GitHub calls for different packages overlap.
func (c *crawler) worker() {
	defer c.wg.Done()
	for {
		var j job
		select {
		case j = <-c.jobs:
		case <-c.ctx.Done():
			return
		}
		pkg, err := c.fetch(c.ctx, j.name, c.opts.Refresh)
		r := result{job: j, pkg: pkg, err: err}
		if err == nil {
			r.node = c.enrich(pkg, j.depth)
		}
		select {
		case c.results <- r:
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *crawler) enqueue(j job) bool {
	c.mu.Lock()
	if c.visited[j.name] {
		c.mu.Unlock()
		return false
	}
	c.visited[j.name] = true
	c.mu.Unlock()

	atomic.AddInt64(&c.pending, 1)

	go func() {
		select {
		case c.jobs <- j:
		case <-c.ctx.Done():
		}
	}()
	return true
}

func (c *crawler) collect(root string) error {
	for {
		select {
		case r := <-c.results:
			if err := c.handle(r, root); err != nil {
				return err
			}
			if atomic.AddInt64(&c.pending, -1) == 0 {
				return nil
			}
		case <-c.ctx.Done():
			return c.ctx.Err()
		}
	}
}

func (c *crawler) handle(r result, root string) error {
	if r.err != nil {
		if r.name == root {
			return r.err
		}
		c.opts.Logger.Warn("fetch failed", "package", r.name, "err", r.err)
		return nil
	}

	n := r.node
	c.addNode(&n)
	atomic.AddInt32(&c.nodeCount, 1)

	c.enqueueDeps(r)
	return nil
}

func (c *crawler) enqueueDeps(r result) {
	if r.depth >= c.opts.MaxDepth || len(r.pkg.Dependencies) == 0 {
		return
	}

	next := r.depth + 1
	count := atomic.LoadInt32(&c.nodeCount)

	for _, dep := range r.pkg.Dependencies {
		d := next
		c.addNode(&graph.Node{ID: dep, Label: dep, Depth: &d})
		c.edges = append(c.edges, graph.Edge{Source: r.name, Target: dep})

		if int(count) < c.opts.MaxNodes {
			c.enqueue(job{name: dep, depth: next})
		}
	}
}

// addNode keeps the first position of id and the smallest depth seen. A
// fetched node replaces the placeholder created when a parent listed it.
func (c *crawler) addNode(n *graph.Node) {
	existing, ok := c.nodes[n.ID]
	if !ok {
		c.order = append(c.order, n.ID)
		c.nodes[n.ID] = n
		return
	}
	if existing.Depth != nil && (n.Depth == nil || *existing.Depth < *n.Depth) {
		n.Depth = existing.Depth
	}
	if n.Version != "" || existing.Version == "" {
		c.nodes[n.ID] = n
		return
	}
	existing.Depth = n.Depth
}

func (c *crawler) enrich(pkg *Package, depth int) graph.Node {
	n := pkg.Node(depth)
	for _, e := range c.opts.Enrichers {
		if err := e.Enrich(c.ctx, pkg, &n, c.opts.Refresh); err != nil {
			c.opts.Logger.Debug("enrich failed", "enricher", e.Name(), "package", pkg.Name, "err", err)
		}
	}
	return n
}

// build serializes the crawl into a payload and normalizes it, so resolved
// graphs go through the same validation as any uploaded payload.
func (c *crawler) build() (*graph.Graph, error) {
	doc := struct {
		Nodes []*graph.Node `json:"nodes"`
		Edges []graph.Edge  `json:"edges"`
	}{
		Nodes: make([]*graph.Node, 0, len(c.order)),
		Edges: c.edges,
	}
	for _, id := range c.order {
		doc.Nodes = append(doc.Nodes, c.nodes[id])
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInternal, err, "encode resolved graph")
	}
	return graph.Normalize(data)
}
