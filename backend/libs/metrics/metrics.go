package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	metricPrefix = "tolls_"

	resultSuccess  = "success"
	resultRejected = "rejected"
	resultError    = "error"

	cacheHit  = "hit"
	cacheMiss = "miss"
)

var (
	registerOnce sync.Once

	passthroughEvents   *prometheus.CounterVec
	segmentCloseLatency *prometheus.HistogramVec
	segmentsOpened      prometheus.Counter
	segmentsClosed      prometheus.Counter
	segmentCost         prometheus.Histogram

	billingRuns    *prometheus.CounterVec
	billingLatency *prometheus.HistogramVec

	stationCache *prometheus.CounterVec

	feedClients prometheus.Gauge
)

// Init registers the collectors with the default registry. Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		passthroughEvents = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "passthrough_events_total",
				Help: "Passthrough events by type and result",
			},
			[]string{"type", "result"},
		)
		segmentCloseLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "segment_close_latency_seconds",
				Help:    "Ledger transaction latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "result"},
		)
		segmentsOpened = prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "segments_opened_total",
			Help: "Segments opened by entrance events",
		})
		segmentsClosed = prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "segments_closed_total",
			Help: "Segments closed and priced",
		})
		segmentCost = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    metricPrefix + "segment_cost",
			Help:    "Distribution of priced segment costs",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		})

		billingRuns = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "billing_runs_total",
				Help: "Billing aggregations by trigger and result",
			},
			[]string{"trigger", "result"},
		)
		billingLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "billing_latency_seconds",
				Help:    "Billing aggregation latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"trigger"},
		)

		stationCache = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "station_cache_lookups_total",
				Help: "Station coordinate cache lookups by result",
			},
			[]string{"result"},
		)

		feedClients = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "feed_clients",
			Help: "Connected live feed websocket clients",
		})

		prometheus.MustRegister(
			passthroughEvents,
			segmentCloseLatency,
			segmentsOpened,
			segmentsClosed,
			segmentCost,
			billingRuns,
			billingLatency,
			stationCache,
			feedClients,
		)
	})
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// IncPassthroughEvent counts a dispatched event.
func IncPassthroughEvent(eventType, result string) {
	if eventType == "" {
		eventType = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if passthroughEvents != nil {
		passthroughEvents.WithLabelValues(eventType, result).Inc()
	}
}

// ObserveLedger records how long a ledger transaction took.
func ObserveLedger(operation, result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if segmentCloseLatency != nil {
		segmentCloseLatency.WithLabelValues(operation, result).Observe(duration.Seconds())
	}
}

// IncSegmentOpened counts a new open segment.
func IncSegmentOpened() {
	if segmentsOpened != nil {
		segmentsOpened.Inc()
	}
}

// ObserveSegmentClosed counts a closed segment and its cost.
func ObserveSegmentClosed(cost float64) {
	if segmentsClosed != nil {
		segmentsClosed.Inc()
	}
	if segmentCost != nil {
		segmentCost.Observe(cost)
	}
}

// ObserveBilling records a billing aggregation.
func ObserveBilling(trigger, result string, duration time.Duration) {
	if trigger == "" {
		trigger = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if billingRuns != nil {
		billingRuns.WithLabelValues(trigger, result).Inc()
	}
	if billingLatency != nil {
		billingLatency.WithLabelValues(trigger).Observe(duration.Seconds())
	}
}

// IncStationCache counts a cache lookup.
func IncStationCache(hit bool) {
	if stationCache == nil {
		return
	}
	if hit {
		stationCache.WithLabelValues(cacheHit).Inc()
		return
	}
	stationCache.WithLabelValues(cacheMiss).Inc()
}

// AddFeedClients moves the connected client gauge by delta.
func AddFeedClients(delta int) {
	if feedClients != nil {
		feedClients.Add(float64(delta))
	}
}

// Exported result labels.
const (
	ResultSuccess  = resultSuccess
	ResultRejected = resultRejected
	ResultError    = resultError
)
