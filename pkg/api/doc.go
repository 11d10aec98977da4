// Package api serves the nodemedic backend over HTTP.
//
// Routes:
//
//	GET  /api/ping                     health check
//	GET  /api/dependencies/{pkg}       resolved graph for an npm package (?depth=, ?refresh=)
//	POST /api/upload                   normalize an uploaded graph or `npm ls --json` tree
//	GET  /api/typosquats/{pkg}         typosquat suggestions for a package name
//	GET  /metrics                      Prometheus metrics
//
// Scoped package names may be sent escaped (@types%2Fnode) or as two path
// segments. Errors are answered with a JSON body {"error": ..., "code": ...}
// whose status follows the error code.
package api
