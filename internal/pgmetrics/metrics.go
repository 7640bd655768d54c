// Package pgmetrics exposes the connection FSM's Prometheus collectors.
// Registration is opt-in: constructing a Collector and never registering it
// costs nothing, and a process running several connections can share one
// Collector across all of them.
package pgmetrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds the metrics a Conn reports to when configured with
// pgasync.Metrics. The zero value is not usable; construct with New.
type Collector struct {
	Transitions   *prometheus.CounterVec
	QueryDuration *prometheus.HistogramVec
	PreparedCache *prometheus.CounterVec
}

// New builds a Collector with fresh, unregistered metric vectors.
func New() *Collector {
	return &Collector{
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pgasync",
			Subsystem: "fsm",
			Name:      "transitions_total",
			Help:      "Number of connection FSM state transitions.",
		}, []string{"from", "to", "event"}),

		QueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "pgasync",
			Name:      "query_duration_seconds",
			Help:      "Time from issuing a query to its terminal callback.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),

		PreparedCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pgasync",
			Subsystem: "prepared_cache",
			Name:      "total",
			Help:      "Prepared statement cache lookups, by result.",
		}, []string{"result"}),
	}
}

// MustRegister registers every collector in c against reg. Call once per
// process; registering the same Collector twice panics, matching
// prometheus.Registerer's own contract.
func (c *Collector) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(c.Transitions, c.QueryDuration, c.PreparedCache)
}

// Transition records a from->to FSM move triggered by event.
func (c *Collector) Transition(from, to, event string) {
	if c == nil {
		return
	}
	c.Transitions.WithLabelValues(from, to, event).Inc()
}

// ObserveQuery records how long a query of the given kind ("simple" or
// "prepared") took from issue to terminal callback.
func (c *Collector) ObserveQuery(kind string, seconds float64) {
	if c == nil {
		return
	}
	c.QueryDuration.WithLabelValues(kind).Observe(seconds)
}

// CacheHit and CacheMiss record a prepared-statement cache lookup outcome.
func (c *Collector) CacheHit()  { c.cacheResult("hit") }
func (c *Collector) CacheMiss() { c.cacheResult("miss") }

func (c *Collector) cacheResult(result string) {
	if c == nil {
		return
	}
	c.PreparedCache.WithLabelValues(result).Inc()
}
