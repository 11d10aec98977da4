package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	labelSource  = "source"
	labelResult  = "result"
	labelKeyType = "key_type"
	labelMethod  = "method"
	labelHost    = "host"
	labelStatus  = "status"
)

// Prometheus implements every hook interface by updating collectors
// registered on a single registerer.
type Prometheus struct {
	graphLoads     *prometheus.CounterVec
	graphNodes     prometheus.Histogram
	droppedEdges   prometheus.Counter
	resolveSeconds *prometheus.HistogramVec

	lookups      prometheus.Counter
	delivered    prometheus.Counter
	staleDiscard prometheus.Counter
	lookupFailed prometheus.Counter

	cacheEvents *prometheus.CounterVec
	cacheBytes  prometheus.Counter

	httpRequests *prometheus.CounterVec
	httpSeconds  *prometheus.HistogramVec
	httpErrors   *prometheus.CounterVec
}

// NewPrometheus creates the collectors and registers them on reg.
// A nil reg leaves them unregistered, which is convenient in tests.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	p := &Prometheus{
		graphLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nodemedic_graph_loads_total",
			Help: "Graph load attempts by source kind and result",
		}, []string{labelSource, labelResult}),
		graphNodes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "nodemedic_graph_nodes",
			Help:    "Number of nodes in successfully normalized graphs",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		}),
		droppedEdges: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nodemedic_graph_dropped_edges_total",
			Help: "Edges dropped because an endpoint was missing",
		}),
		resolveSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "nodemedic_resolve_duration_seconds",
			Help:    "Dependency resolution latency",
			Buckets: prometheus.DefBuckets,
		}, []string{labelResult}),
		lookups: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nodemedic_typosquat_lookups_total",
			Help: "Typosquat lookups issued for a selection",
		}),
		delivered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nodemedic_typosquat_delivered_total",
			Help: "Typosquat results applied to the live selection",
		}),
		staleDiscard: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nodemedic_typosquat_stale_discards_total",
			Help: "Typosquat results discarded because the selection changed",
		}),
		lookupFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nodemedic_typosquat_failures_total",
			Help: "Typosquat lookups that failed",
		}),
		cacheEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nodemedic_cache_events_total",
			Help: "Cache hits, misses and writes by key type",
		}, []string{labelKeyType, labelResult}),
		cacheBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nodemedic_cache_written_bytes_total",
			Help: "Bytes written to the cache",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nodemedic_http_requests_total",
			Help: "Outgoing HTTP requests by host and status",
		}, []string{labelMethod, labelHost, labelStatus}),
		httpSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "nodemedic_http_request_duration_seconds",
			Help:    "Outgoing HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{labelHost}),
		httpErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nodemedic_http_errors_total",
			Help: "Outgoing HTTP requests that failed before a response",
		}, []string{labelHost}),
	}
	if reg != nil {
		reg.MustRegister(p.collectors()...)
	}
	return p
}

func (p *Prometheus) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		p.graphLoads, p.graphNodes, p.droppedEdges, p.resolveSeconds,
		p.lookups, p.delivered, p.staleDiscard, p.lookupFailed,
		p.cacheEvents, p.cacheBytes,
		p.httpRequests, p.httpSeconds, p.httpErrors,
	}
}

// Install registers p as the global hook implementation for every category.
func (p *Prometheus) Install() {
	SetGraphHooks(p)
	SetTyposquatHooks(p)
	SetCacheHooks(p)
	SetHTTPHooks(p)
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (p *Prometheus) OnLoad(_ context.Context, source string, nodes, _, dropped int, _ time.Duration, err error) {
	p.graphLoads.WithLabelValues(source, result(err)).Inc()
	if err != nil {
		return
	}
	p.graphNodes.Observe(float64(nodes))
	p.droppedEdges.Add(float64(dropped))
}

func (p *Prometheus) OnResolve(_ context.Context, _ string, _, _ int, d time.Duration, err error) {
	p.resolveSeconds.WithLabelValues(result(err)).Observe(d.Seconds())
}

func (p *Prometheus) OnLookupStart(context.Context, string)          { p.lookups.Inc() }
func (p *Prometheus) OnDelivered(context.Context, string, int)       { p.delivered.Inc() }
func (p *Prometheus) OnStaleDiscard(context.Context, string, string) { p.staleDiscard.Inc() }
func (p *Prometheus) OnLookupFailed(context.Context, string, error)  { p.lookupFailed.Inc() }

func (p *Prometheus) OnCacheHit(_ context.Context, keyType string) {
	p.cacheEvents.WithLabelValues(keyType, "hit").Inc()
}

func (p *Prometheus) OnCacheMiss(_ context.Context, keyType string) {
	p.cacheEvents.WithLabelValues(keyType, "miss").Inc()
}

func (p *Prometheus) OnCacheSet(_ context.Context, keyType string, size int) {
	p.cacheEvents.WithLabelValues(keyType, "set").Inc()
	p.cacheBytes.Add(float64(size))
}

// OnRequest is a no-op; requests are counted once the status is known.
func (p *Prometheus) OnRequest(context.Context, string, string, string) {}

func (p *Prometheus) OnResponse(_ context.Context, method, host, _ string, status int, d time.Duration) {
	p.httpRequests.WithLabelValues(method, host, statusClass(status)).Inc()
	p.httpSeconds.WithLabelValues(host).Observe(d.Seconds())
}

func (p *Prometheus) OnError(_ context.Context, _, host, _ string, _ error) {
	p.httpErrors.WithLabelValues(host).Inc()
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
