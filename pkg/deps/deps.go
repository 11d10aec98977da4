package deps

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/nodemedic/nodemedic/pkg/graph"
)

const (
	DefaultMaxDepth = 2              // Default dependency depth below the root
	DefaultMaxNodes = 500            // Default maximum packages to fetch
	DefaultCacheTTL = 24 * time.Hour // Default HTTP cache duration
)

// Options configures dependency resolution behavior.
type Options struct {
	MaxDepth  int           // Maximum depth to traverse (default: 2)
	MaxNodes  int           // Maximum packages to fetch (default: 500)
	CacheTTL  time.Duration // HTTP cache duration (default: 24h)
	Refresh   bool          // Bypass cache for fresh data
	Enrichers []Enricher    // Sources for node annotations (OSV, GitHub)
	Logger    *log.Logger   // Progress and failure log (optional)
}

// WithDefaults returns a copy of Options with zero values replaced by defaults.
func (o Options) WithDefaults() Options {
	opts := o
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	if opts.MaxNodes <= 0 {
		opts.MaxNodes = DefaultMaxNodes
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	if opts.Logger == nil {
		opts.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return opts
}

// Fetcher retrieves package metadata from a registry.
type Fetcher interface {
	// Fetch retrieves the latest release of name. If refresh is true,
	// cached data is bypassed.
	Fetch(ctx context.Context, name string, refresh bool) (*Package, error)
}

// Enricher annotates a resolved node with data from an external source.
// Implementations write only the fields they own; a returned error leaves
// the node as it was and is logged by the resolver.
type Enricher interface {
	// Name returns the enricher identifier (e.g., "osv", "github").
	Name() string
	// Enrich fills fields of n for pkg.
	Enrich(ctx context.Context, pkg *Package, n *graph.Node, refresh bool) error
}

// Package holds metadata fetched from a package registry.
type Package struct {
	Name         string   // Package name
	Version      string   // Latest version
	Dependencies []string // Direct dependency names
	Maintainers  []string // Publisher accounts
	Description  string   // Package summary
	License      string   // License identifier
	Repository   string   // Source repository URL
	HomePage     string   // Project homepage URL
}

// Node converts the registry fields of p into a graph node at depth.
func (p *Package) Node(depth int) graph.Node {
	d := depth
	return graph.Node{
		ID:              p.Name,
		Label:           p.Name,
		Version:         p.Version,
		Maintainers:     p.Maintainers,
		MaintainerCount: len(p.Maintainers),
		Depth:           &d,
	}
}
