// metrics.go mirrors the teacher's pkg/metrics.go: a small metricsSink
// interface with a zero-cost noop implementation and a Prometheus-backed
// one, selected by whether WithMetrics was given a registry. The hot path
// only ever calls through the interface, so enabling metrics never changes
// Dispatch's control flow — only whether the counters underneath it are
// real or discarded.
//
// © 2025 flowdispatch authors. MIT License.
package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/shreeshjha/flowdispatch/internal/flowpath"
)

// metricsSink receives the dispatcher's hot-path events. Every method must
// be cheap enough to call unconditionally on every packet.
type metricsSink interface {
	ObservePath(p flowpath.Path)
	ObserveFlowCreated()
	ObserveArenaExhaustion()
	ObserveCacheHit()
	ObserveCacheMiss()
	ObserveBurstPromotion()
	ObserveQueueDrop()
}

type noopMetrics struct{}

func (noopMetrics) ObservePath(flowpath.Path)  {}
func (noopMetrics) ObserveFlowCreated()        {}
func (noopMetrics) ObserveArenaExhaustion()    {}
func (noopMetrics) ObserveCacheHit()           {}
func (noopMetrics) ObserveCacheMiss()          {}
func (noopMetrics) ObserveBurstPromotion()     {}
func (noopMetrics) ObserveQueueDrop()          {}

// promMetrics registers a small set of counters on the supplied registry.
// Labels are kept to path name only — cardinality stays bounded at six.
type promMetrics struct {
	pathTotal          *prometheus.CounterVec
	flowsCreatedTotal  prometheus.Counter
	arenaExhaustedTotal prometheus.Counter
	cacheHitsTotal     prometheus.Counter
	cacheMissesTotal   prometheus.Counter
	burstPromotions    prometheus.Counter
	queueDropsTotal    prometheus.Counter
}

func newPromMetrics(reg *prometheus.Registry) *promMetrics {
	m := &promMetrics{
		pathTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flowdispatch",
			Name:      "path_total",
			Help:      "Packets dispatched per path.",
		}, []string{"path"}),
		flowsCreatedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flowdispatch",
			Name:      "flows_created_total",
			Help:      "Flow entries allocated.",
		}),
		arenaExhaustedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flowdispatch",
			Name:      "arena_exhausted_total",
			Help:      "Packets served without a flow record due to arena exhaustion.",
		}),
		cacheHitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flowdispatch",
			Name:      "prediction_cache_hits_total",
			Help:      "Prediction-cache short-circuits.",
		}),
		cacheMissesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flowdispatch",
			Name:      "prediction_cache_misses_total",
			Help:      "Prediction-cache misses requiring a full Predict.",
		}),
		burstPromotions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flowdispatch",
			Name:      "burst_promotions_total",
			Help:      "Flows promoted while a burst was active.",
		}),
		queueDropsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flowdispatch",
			Name:      "queue_drops_total",
			Help:      "Packets dropped by the priority queue on overflow.",
		}),
	}
	reg.MustRegister(
		m.pathTotal,
		m.flowsCreatedTotal,
		m.arenaExhaustedTotal,
		m.cacheHitsTotal,
		m.cacheMissesTotal,
		m.burstPromotions,
		m.queueDropsTotal,
	)
	return m
}

func (m *promMetrics) ObservePath(p flowpath.Path)  { m.pathTotal.WithLabelValues(p.String()).Inc() }
func (m *promMetrics) ObserveFlowCreated()          { m.flowsCreatedTotal.Inc() }
func (m *promMetrics) ObserveArenaExhaustion()      { m.arenaExhaustedTotal.Inc() }
func (m *promMetrics) ObserveCacheHit()             { m.cacheHitsTotal.Inc() }
func (m *promMetrics) ObserveCacheMiss()            { m.cacheMissesTotal.Inc() }
func (m *promMetrics) ObserveBurstPromotion()       { m.burstPromotions.Inc() }
func (m *promMetrics) ObserveQueueDrop()            { m.queueDropsTotal.Inc() }
