package client

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics собирает счетчики синхронизации и размера зеркала.
// Все методы допускают nil-получатель.
type Metrics struct {
	syncDuration  *prometheus.HistogramVec
	updateChecks  *prometheus.CounterVec
	persistErrors prometheus.Counter
	reloads       prometheus.Counter
	cachedBooks   prometheus.Gauge
	lastSync      prometheus.Gauge
}

// NewMetrics registers the client collectors. A nil registerer gets a throwaway registry,
// so several stores can live in one process (tests); App passes the registry it serves.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.NewRegistry()
	}
	factory := promauto.With(registerer)

	return &Metrics{
		syncDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stefabooks_client_sync_duration_seconds",
				Help:    "Duration of catalog synchronizations in seconds",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"status"},
		),
		updateChecks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stefabooks_client_update_checks_total",
				Help: "Total number of fingerprint checks by outcome",
			},
			[]string{"outcome"},
		),
		persistErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "stefabooks_client_persist_errors_total",
			Help: "Total number of failed writes to the local cache storage",
		}),
		reloads: factory.NewCounter(prometheus.CounterOpts{
			Name: "stefabooks_client_reloads_total",
			Help: "Total number of reloads caused by another process writing the cache",
		}),
		cachedBooks: factory.NewGauge(prometheus.GaugeOpts{
			Name: "stefabooks_client_cached_books",
			Help: "Number of books in the local mirror",
		}),
		lastSync: factory.NewGauge(prometheus.GaugeOpts{
			Name: "stefabooks_client_last_sync_timestamp_seconds",
			Help: "Unix time of the last successful synchronization",
		}),
	}
}

func (m *Metrics) ObserveSync(duration time.Duration, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.syncDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// ObserveCheck outcome: "stale", "fresh" or "error".
func (m *Metrics) ObserveCheck(outcome string) {
	if m == nil {
		return
	}
	m.updateChecks.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncPersistErrors() {
	if m == nil {
		return
	}
	m.persistErrors.Inc()
}

func (m *Metrics) IncReloads() {
	if m == nil {
		return
	}
	m.reloads.Inc()
}

func (m *Metrics) SetState(books int, lastSyncMs *int64) {
	if m == nil {
		return
	}
	m.cachedBooks.Set(float64(books))
	if lastSyncMs != nil {
		m.lastSync.Set(float64(*lastSyncMs) / 1000)
	} else {
		m.lastSync.Set(0)
	}
}
