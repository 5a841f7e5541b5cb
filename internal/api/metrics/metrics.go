// Package metrics defines the custom Prometheus series of the classroom API. It
// is the single source of truth for metric names, labels and help strings.
//
// Build one Metrics per registry with New; tests pass a fresh
// prometheus.NewRegistry() so nothing collides with the default registerer.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "classroom"

type Metrics struct {
	// WeatherCacheLookups counts cache reads.
	// Labels:
	//   - kind: "current" or "forecast"
	//   - result: "hit" or "miss"
	WeatherCacheLookups *prometheus.CounterVec

	// WeatherCacheEntries is the number of entries currently held.
	WeatherCacheEntries prometheus.Gauge

	// UpstreamDuration measures calls to the weather upstream.
	// Labels:
	//   - endpoint: "geocoding", "current" or "forecast"
	//   - outcome: "ok", "error" or "throttled"
	UpstreamDuration *prometheus.HistogramVec

	// RateLimitRejections counts requests answered with 429.
	RateLimitRejections prometheus.Counter

	// LoginsTotal counts login attempts.
	// Label:
	//   - outcome: "success" or "failure"
	LoginsTotal *prometheus.CounterVec

	// PostsCreatedTotal counts newly created posts.
	PostsCreatedTotal prometheus.Counter

	// IdempotencyTotal counts Idempotency-Key decisions.
	// Label:
	//   - result: "new", "replay", "mismatch" or "in_progress"
	IdempotencyTotal *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		WeatherCacheLookups: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "weather_cache_lookups_total",
				Help:      "Total number of weather cache lookups, by kind and result.",
			},
			[]string{"kind", "result"},
		),
		WeatherCacheEntries: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "weather_cache_entries",
			Help:      "Current number of entries in the weather cache.",
		}),
		UpstreamDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "weather_upstream_duration_seconds",
				Help:      "Duration of calls to the weather upstream.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"endpoint", "outcome"},
		),
		RateLimitRejections: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_rejections_total",
			Help:      "Total number of requests rejected by the inbound rate limiter.",
		}),
		LoginsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "logins_total",
				Help:      "Total number of login attempts, by outcome.",
			},
			[]string{"outcome"},
		),
		PostsCreatedTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "posts_created_total",
			Help:      "Total number of posts created.",
		}),
		IdempotencyTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "idempotency_keys_total",
				Help:      "Total number of Idempotency-Key decisions, by result.",
			},
			[]string{"result"},
		),
	}
}

func (m *Metrics) CacheLookup(kind string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.WeatherCacheLookups.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) CacheSize(n int) {
	m.WeatherCacheEntries.Set(float64(n))
}

func (m *Metrics) UpstreamRequest(endpoint, outcome string, took time.Duration) {
	m.UpstreamDuration.WithLabelValues(endpoint, outcome).Observe(took.Seconds())
}

func (m *Metrics) RateLimited() {
	m.RateLimitRejections.Inc()
}

func (m *Metrics) Login(success bool) {
	outcome := "failure"
	if success {
		outcome = "success"
	}
	m.LoginsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) PostCreated() {
	m.PostsCreatedTotal.Inc()
}

func (m *Metrics) Idempotency(result string) {
	m.IdempotencyTotal.WithLabelValues(result).Inc()
}
