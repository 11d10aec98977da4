package metadata

import (
	"context"

	"github.com/nodemedic/nodemedic/pkg/deps"
	"github.com/nodemedic/nodemedic/pkg/graph"
)

// Composite applies enrichers in order. A failing enricher is skipped and
// the remaining ones still run, so one unreachable service never blanks
// the data contributed by the others.
type Composite struct {
	enrichers []deps.Enricher
}

func NewComposite(enrichers ...deps.Enricher) *Composite {
	return &Composite{enrichers}
}

func (c *Composite) Name() string { return "composite" }

func (c *Composite) Enrich(ctx context.Context, pkg *deps.Package, n *graph.Node, refresh bool) error {
	for _, e := range c.enrichers {
		scratch := *n
		if err := e.Enrich(ctx, pkg, &scratch, refresh); err == nil {
			*n = scratch
		}
	}
	return nil
}
