// Package typosquat finds package names that may be impersonating another
// package, and tracks those suggestions for the explorer's current selection.
//
// # Overlay
//
// [Overlay] keeps the visible suggestion list in step with a
// [selection.Controller]. Every new selection resets the list to a pending
// state and issues a [Lookup]. Lookups complete in any order; when one is
// delivered, its token (the node id it was issued for) is compared with the
// live selection and the result is discarded unless they match. A failed
// lookup leaves an empty list marked Failed and never touches the selection.
//
// # Detection
//
// [Detector] implements [Finder] against a local [Index] of registry names.
// A candidate is reported when it is a near miss of the queried name: one or
// two edits apart, at most one character longer or shorter, sharing most of
// its characters, and not a scoped or hyphenated name. See [Match].
//
// [SQLiteIndex] stores the names in a SQLite database; [MemoryIndex] keeps
// them in memory for tests and small lists.
package typosquat
