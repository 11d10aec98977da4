// Package client is the HTTP client for the nodemedic backend contract:
//
//	GET  /api/dependencies/{package}?depth=N
//	POST /api/upload            (multipart field "file")
//	GET  /api/typosquats/{package}
//	GET  /api/ping
//
// Graph payloads are returned as raw bytes for [graph.Normalize]; the
// client does not interpret them. Transient failures (transport errors,
// 5xx and 429 responses) are retried with exponential backoff. Error
// responses carrying a {"error", "code"} body become coded errors from
// pkg/errors, so callers can branch with errors.Is.
//
// [*Client] implements [typosquat.Finder].
//
// [graph.Normalize]: github.com/nodemedic/nodemedic/pkg/graph.Normalize
// [typosquat.Finder]: github.com/nodemedic/nodemedic/pkg/typosquat.Finder
package client
