package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hooksink/hooksink/internal/cache"
)

// Set holds the exporter's own instrumentation. Registered on the scrape
// registry only when exporter_metrics is enabled.
type Set struct {
	EventsReceived     prometheus.Counter
	EventsMatched      prometheus.Counter
	ExtractionFailures prometheus.Counter
	ValidationFailures prometheus.Counter
}

func NewSet() *Set {
	return &Set{
		EventsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "webhook_events_received_total",
			Help: "Webhook events received, matched or not.",
		}),
		EventsMatched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "webhook_events_matched_total",
			Help: "Webhook events matched to a configured event handler.",
		}),
		ExtractionFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "webhook_extraction_failures_total",
			Help: "Extractor pipelines that yielded no result.",
		}),
		ValidationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "webhook_validation_failures_total",
			Help: "Metric records discarded for type or value mismatches.",
		}),
	}
}

// Register adds the counter set and the cache gauges to reg.
func (s *Set) Register(reg prometheus.Registerer, c *cache.SeriesCache) {
	reg.MustRegister(
		s.EventsReceived,
		s.EventsMatched,
		s.ExtractionFailures,
		s.ValidationFailures,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "webhook_cached_series",
			Help: "Series currently held in the cache.",
		}, func() float64 {
			return float64(c.Stats().Size)
		}),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "webhook_cache_capacity_evictions_total",
			Help: "Series evicted because the cache was full.",
		}, func() float64 {
			return float64(c.Stats().CapacityEvictions)
		}),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "webhook_cache_expired_evictions_total",
			Help: "Series evicted because their TTL elapsed.",
		}, func() float64 {
			return float64(c.Stats().ExpiredEvictions)
		}),
	)
}
