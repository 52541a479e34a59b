// Package metrics exposes Prometheus collectors for searches, quota decisions, RSVP writes
// and guest list refreshes.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "nikah"

// Metrics holds the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	searches        *prometheus.CounterVec
	searchResults   prometheus.Histogram
	searchLatency   prometheus.Histogram
	quotaDecisions  *prometheus.CounterVec
	rsvpSubmissions *prometheus.CounterVec
	rsvpGuests      *prometheus.CounterVec
	refreshes       *prometheus.CounterVec
	refreshLatency  prometheus.Histogram
	directoryGuests prometheus.Gauge
}

// New creates collectors on a private registry that also carries the Go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		searches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_total",
			Help:      "Guest searches by query language and outcome.",
		}, []string{"language", "outcome"}),
		searchResults: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_result_guests",
			Help:      "Number of guests returned per successful search.",
			Buckets:   []float64{0, 1, 2, 4, 8, 16, 32},
		}),
		searchLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Search latency including any guest list refresh.",
			Buckets:   prometheus.DefBuckets,
		}),
		quotaDecisions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quota_decisions_total",
			Help:      "Search quota checks by result.",
		}, []string{"result"}),
		rsvpSubmissions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rsvp_submissions_total",
			Help:      "RSVP submissions by outcome.",
		}, []string{"outcome"}),
		rsvpGuests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rsvp_guests_total",
			Help:      "Guests recorded by attendance decision.",
		}, []string{"attending"}),
		refreshes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "guestlist_refreshes_total",
			Help:      "Guest list rebuild attempts by result.",
		}, []string{"result"}),
		refreshLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "guestlist_refresh_duration_seconds",
			Help:      "Time to fetch and rebuild the guest list.",
			Buckets:   prometheus.DefBuckets,
		}),
		directoryGuests: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "guestlist_guests",
			Help:      "Guests in the current directory snapshot.",
		}),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveSearch records one search. outcome is "ok", "empty", "rate_limited" or "error".
func (m *Metrics) ObserveSearch(language, outcome string, guests int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.searches.WithLabelValues(language, outcome).Inc()
	m.searchLatency.Observe(elapsed.Seconds())
	if outcome == "ok" || outcome == "empty" {
		m.searchResults.Observe(float64(guests))
	}
}

// ObserveQuota records a quota check: "allowed", "denied", "refunded" or "error".
func (m *Metrics) ObserveQuota(result string) {
	if m == nil {
		return
	}
	m.quotaDecisions.WithLabelValues(result).Inc()
}

// ObserveSubmission records one RSVP submission and, on success, the guests it covered.
func (m *Metrics) ObserveSubmission(outcome string, attending bool, guests int) {
	if m == nil {
		return
	}
	m.rsvpSubmissions.WithLabelValues(outcome).Inc()
	if outcome == "ok" {
		label := "no"
		if attending {
			label = "yes"
		}
		m.rsvpGuests.WithLabelValues(label).Add(float64(guests))
	}
}

// ObserveRefresh records a guest list rebuild attempt.
func (m *Metrics) ObserveRefresh(changed bool, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	result := "unchanged"
	switch {
	case err != nil:
		result = "error"
	case changed:
		result = "changed"
	}
	m.refreshes.WithLabelValues(result).Inc()
	m.refreshLatency.Observe(elapsed.Seconds())
}

// SetDirectorySize records the number of guests in the current snapshot.
func (m *Metrics) SetDirectorySize(n int) {
	if m == nil {
		return
	}
	m.directoryGuests.Set(float64(n))
}
