package metadata

import (
	"context"

	"github.com/nodemedic/nodemedic/pkg/deps"
	"github.com/nodemedic/nodemedic/pkg/graph"
	"github.com/nodemedic/nodemedic/pkg/integrations/osv"
)

// OSV adds the advisories affecting the resolved version.
type OSV struct {
	client *osv.Client
}

func NewOSV(client *osv.Client) *OSV {
	return &OSV{client}
}

func (o *OSV) Name() string { return "osv" }

func (o *OSV) Enrich(ctx context.Context, pkg *deps.Package, n *graph.Node, refresh bool) error {
	vulns, err := o.client.Query(ctx, pkg.Name, pkg.Version, refresh)
	if err != nil {
		return err
	}
	n.Vulnerabilities = make([]graph.Vulnerability, 0, len(vulns))
	for _, v := range vulns {
		n.Vulnerabilities = append(n.Vulnerabilities, graph.Vulnerability{ID: v.ID, Summary: v.Summary})
	}
	n.VulnerabilityCount = len(n.Vulnerabilities)
	return nil
}
