// Package deps resolves npm dependency trees into nodemedic graphs.
//
// # Resolving
//
// A [Registry] wraps a [Fetcher] with a concurrent crawler:
//
//	reg := deps.NewNPM(npm.NewClient(c, 24*time.Hour))
//	g, err := reg.Resolve(ctx, "express", deps.Options{MaxDepth: 2})
//
// The crawler fetches the root package, then its dependencies concurrently up
// to MaxDepth levels below the root and at most MaxNodes fetches. Every
// package is fetched once no matter how many parents list it. A failure to
// fetch the root is returned; a failure below the root leaves a bare node
// carrying only its name.
//
// The result is serialized and passed through [graph.Normalize], so resolved
// graphs obey the same invariants as uploaded payloads.
//
// # Enrichment
//
// [Enricher] implementations in the metadata subpackage annotate each
// fetched node with data from other services (OSV advisories, GitHub
// repository statistics). An enricher that fails leaves the node as it was;
// the failure is logged at debug level and never fails the resolution.
//
// # npm ls output
//
// [FromTree] turns the nested output of `npm ls --json --all` into a graph,
// which lets users explore a locally installed project without a registry
// crawl.
//
// [graph.Normalize]: github.com/nodemedic/nodemedic/pkg/graph.Normalize
package deps
