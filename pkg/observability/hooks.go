// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers register hooks at startup
// to receive events about graph loads, typosquat lookups, cache operations
// and API calls.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// [Prometheus] is the bundled implementation used by `nodemedic serve`.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    prom := observability.NewPrometheus(prometheus.DefaultRegisterer)
//	    prom.Install()
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Typosquat().OnLookupStart(ctx, nodeID)
//	// ... await result ...
//	observability.Typosquat().OnStaleDiscard(ctx, nodeID, currentID)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Graph Hooks
// =============================================================================

// GraphHooks receives events from graph loading and normalization.
type GraphHooks interface {
	// OnLoad records a completed load attempt. nodes, edges and dropped are
	// zero when err is non-nil.
	OnLoad(ctx context.Context, source string, nodes, edges, dropped int, duration time.Duration, err error)

	// OnResolve records a server-side dependency resolution.
	OnResolve(ctx context.Context, pkg string, depth, nodes int, duration time.Duration, err error)
}

// =============================================================================
// Typosquat Hooks
// =============================================================================

// TyposquatHooks receives events from the typosquat overlay.
type TyposquatHooks interface {
	// OnLookupStart records a lookup issued for a selected node.
	OnLookupStart(ctx context.Context, nodeID string)

	// OnDelivered records a result that matched the live selection.
	OnDelivered(ctx context.Context, nodeID string, suggestions int)

	// OnStaleDiscard records a result dropped because the selection moved on.
	// current is empty when nothing is selected.
	OnStaleDiscard(ctx context.Context, token, current string)

	// OnLookupFailed records a failed lookup.
	OnLookupFailed(ctx context.Context, nodeID string, err error)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// HTTP Hooks
// =============================================================================

// HTTPHooks receives events from HTTP client operations.
type HTTPHooks interface {
	// OnRequest records an outgoing HTTP request.
	OnRequest(ctx context.Context, method, host, path string)

	// OnResponse records an HTTP response.
	OnResponse(ctx context.Context, method, host, path string, statusCode int, duration time.Duration)

	// OnError records an HTTP error (network failure, timeout).
	OnError(ctx context.Context, method, host, path string, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopGraphHooks is a no-op implementation of GraphHooks.
type NoopGraphHooks struct{}

func (NoopGraphHooks) OnLoad(context.Context, string, int, int, int, time.Duration, error) {}
func (NoopGraphHooks) OnResolve(context.Context, string, int, int, time.Duration, error)   {}

// NoopTyposquatHooks is a no-op implementation of TyposquatHooks.
type NoopTyposquatHooks struct{}

func (NoopTyposquatHooks) OnLookupStart(context.Context, string)          {}
func (NoopTyposquatHooks) OnDelivered(context.Context, string, int)       {}
func (NoopTyposquatHooks) OnStaleDiscard(context.Context, string, string) {}
func (NoopTyposquatHooks) OnLookupFailed(context.Context, string, error)  {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, string, int, time.Duration) {}
func (NoopHTTPHooks) OnError(context.Context, string, string, string, error)                 {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	graphHooks     GraphHooks     = NoopGraphHooks{}
	typosquatHooks TyposquatHooks = NoopTyposquatHooks{}
	cacheHooks     CacheHooks     = NoopCacheHooks{}
	httpHooks      HTTPHooks      = NoopHTTPHooks{}
	hooksMu        sync.RWMutex
)

// SetGraphHooks registers custom graph hooks.
// This should be called once at application startup before any graph loads.
func SetGraphHooks(h GraphHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		graphHooks = h
	}
}

// SetTyposquatHooks registers custom typosquat hooks.
func SetTyposquatHooks(h TyposquatHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		typosquatHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetHTTPHooks registers custom HTTP hooks.
// This should be called once at application startup before any HTTP operations.
func SetHTTPHooks(h HTTPHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		httpHooks = h
	}
}

// Graph returns the registered graph hooks.
func Graph() GraphHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return graphHooks
}

// Typosquat returns the registered typosquat hooks.
func Typosquat() TyposquatHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return typosquatHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// HTTP returns the registered HTTP hooks.
func HTTP() HTTPHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return httpHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	graphHooks = NoopGraphHooks{}
	typosquatHooks = NoopTyposquatHooks{}
	cacheHooks = NoopCacheHooks{}
	httpHooks = NoopHTTPHooks{}
}
