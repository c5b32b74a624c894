package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels operations that completed normally.
	OutcomeSuccess = "success"
	// OutcomeError labels failed operations (provider or dependency issues).
	OutcomeError = "error"

	// ResultHit and ResultMiss label cache lookups.
	ResultHit  = "hit"
	ResultMiss = "miss"
)

var (
	cacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "partner_metrics",
			Name:      "cache_lookups_total",
			Help:      "Response cache lookups, partitioned by result.",
		},
		[]string{"result"},
	)

	upstreamRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "partner_metrics",
			Name:      "upstream_requests_total",
			Help:      "Requests sent to the provider API, partitioned by entity and outcome.",
		},
		[]string{"entity", "outcome"},
	)

	upstreamDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "partner_metrics",
			Name:      "upstream_request_seconds",
			Help:      "Provider API latency in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8, 15, 30},
		},
		[]string{"entity"},
	)

	zoneResolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "partner_metrics",
			Name:      "zone_resolutions_total",
			Help:      "Zone discovery calls, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	reportBuildsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "partner_metrics",
			Name:      "report_builds_total",
			Help:      "Sales reports built, partitioned by data source.",
		},
		[]string{"source"},
	)

	reportDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "partner_metrics",
			Name:      "report_build_seconds",
			Help:      "Sales report build latency in seconds.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 3, 5, 8, 13, 20},
		},
	)
)

// Register attaches partner-metrics collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		cacheLookupsTotal,
		upstreamRequestsTotal,
		upstreamDurationSeconds,
		zoneResolutionsTotal,
		reportBuildsTotal,
		reportDurationSeconds,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveCacheLookup counts a response cache hit or miss.
func ObserveCacheLookup(hit bool) {
	if hit {
		cacheLookupsTotal.WithLabelValues(ResultHit).Inc()
		return
	}
	cacheLookupsTotal.WithLabelValues(ResultMiss).Inc()
}

// ObserveUpstream records one provider request.
func ObserveUpstream(entity string, duration time.Duration, err error) {
	upstreamRequestsTotal.WithLabelValues(entity, outcome(err)).Inc()
	upstreamDurationSeconds.WithLabelValues(entity).Observe(seconds(duration))
}

// ObserveZoneResolution counts a zone discovery attempt.
func ObserveZoneResolution(err error) {
	zoneResolutionsTotal.WithLabelValues(outcome(err)).Inc()
}

// ObserveReport records a report build and where its data came from.
func ObserveReport(duration time.Duration, source string) {
	reportBuildsTotal.WithLabelValues(source).Inc()
	reportDurationSeconds.Observe(seconds(duration))
}

func outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeSuccess
}

func seconds(d time.Duration) float64 {
	if d < 0 {
		return 0
	}
	return d.Seconds()
}
