// Package layout connects a canonical dependency graph to a rendering engine.
//
// An [Engine] receives the whole graph as a flat list of [Element] values
// (every node, then every edge) and reports user taps through a [Handler].
// [Adapter] owns the single live engine instance: [Adapter.Attach] always
// releases the previous instance before mounting the next one, and taps from
// a released instance are ignored. Accepted taps are published on a [Bus] as
// [Event] values.
//
// [GraphvizEngine] lays graphs out with Graphviz and renders SVG; the
// terminal explorer in internal/cli is the interactive engine.
package layout
