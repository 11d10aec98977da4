// Package graph provides the canonical dependency graph and the normalizer
// that produces it from raw server payloads.
//
// # Canonical Graph
//
// A [Graph] is the deduplicated, edge-validated form of a payload and the
// only form other packages consume. It holds an ordered mapping from package
// name to [Node] and an ordered list of [Edge] values, where an edge means
// "source depends on target". Every edge endpoint is guaranteed to be a key
// of the node mapping.
//
// Graphs are immutable once returned by [Normalize]; accessors hand out
// copies so callers cannot corrupt derived values such as [Node.Degree].
//
// # Normalization
//
// [Normalize] accepts the payload shapes produced by the different backend
// deployments:
//
//	{"nodes": [{"id": "express", "version": "4.19.2"}],
//	 "edges": [{"from": "express", "to": "qs"}]}
//
//	{"nodes": [{"data": {"id": "express"}}],
//	 "edges": [{"data": {"source": "express", "target": "qs"}}]}
//
// The rules are:
//
//   - nodes must be an array; edges may be omitted but otherwise must be an array
//   - every node record needs a non-empty string id
//   - duplicate ids: the last record wins, the first occurrence keeps its position
//   - edges whose endpoints are missing from the node mapping are dropped silently
//   - degree is recomputed from the retained edges; server values are ignored
//
// Violations of the first two rules fail with an error carrying
// errors.ErrCodeMalformedPayload.
//
// # Serialization
//
// [Graph] marshals to the flat canonical shape, which [Normalize] accepts
// again unchanged. [WriteJSON] and [WriteYAML] export graphs to files or
// terminals.
package graph
