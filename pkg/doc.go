// Package pkg holds the libraries behind nodemedic, an explorer for npm
// dependency graphs.
//
// # Overview
//
// A graph payload (fetched for a package, uploaded as a file or pasted)
// flows through these packages:
//
//	npm registry ──[integrations/npm]──► [deps] resolve + enrich (OSV, GitHub)
//	                                          │
//	                                        [api] JSON over HTTP, cached in [cache]
//	                                          │
//	                                       [client]
//	                                          │
//	payload ──► [graph] normalize ──► [layout] mount ──► [explorer] session
//	                                                        │
//	                                       [selection] + [typosquat] overlay
//
// # Packages
//
// [graph] validates and normalizes payloads into an immutable graph:
// duplicate nodes merged, dangling edges dropped, counts filled in.
//
// [selection] computes the neighborhood of a selected package and tracks
// the single current selection.
//
// [typosquat] finds registry names one or two edits away from a package and
// keeps an overlay of suggestions for the current selection, discarding
// lookups that finish after the selection moved on.
//
// [layout] adapts a graph to a rendering engine, relaying taps back to the
// session, and exports DOT and SVG through Graphviz.
//
// [explorer] ties these together: load a source, mount it, react to taps.
//
// [deps] resolves npm packages breadth-first to a depth, converts
// "npm ls --json" trees, and annotates nodes through enrichers.
//
// [api] serves dependency graphs, uploads and typosquat lookups; [client]
// talks to it.
//
// [cache] stores registry responses and graphs in files, Redis or MongoDB.
//
// [config], [errors], [observability], [httputil] and [buildinfo] carry
// the settings, coded errors, metrics hooks, retries and version shared by
// the CLI and the backend.
package pkg
