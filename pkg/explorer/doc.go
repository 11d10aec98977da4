// Package explorer ties the engine together into one application session.
//
// A [Session] holds the active graph and wires the layout adapter's tap
// events to the selection controller, which in turn drives the typosquat
// overlay:
//
//	engine tap -> layout.Adapter -> Bus -> Session -> selection.Controller -> typosquat.Overlay
//
// Loads are all-or-nothing. A payload is normalized before anything is
// touched; only a valid graph releases the previous rendering instance,
// clears the selection and replaces the graph. Fetch and normalization
// failures are returned to the caller and leave the previous graph in place.
package explorer
