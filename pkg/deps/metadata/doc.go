// Package metadata provides [deps.Enricher] implementations that annotate
// resolved npm packages with data from services other than the registry:
// advisories from OSV and repository statistics from GitHub.
//
// [deps.Enricher]: github.com/nodemedic/nodemedic/pkg/deps.Enricher
package metadata
