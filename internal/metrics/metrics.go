// Package metrics содержит Prometheus-метрики синхронизации подписок.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/magabrotheeeer/subscription-sync/internal/models"
)

// Исходы обращения к внешнему сервису.
const (
	LookupFound    = "found"
	LookupNotFound = "not_found"
	LookupError    = "error"
)

// Metrics хранит коллекторы для прогонов синхронизации и запросов к внешнему API.
// Все методы безопасны для nil-получателя.
type Metrics struct {
	runs     *prometheus.CounterVec
	users    *prometheus.CounterVec
	duration prometheus.Histogram
	lookups  *prometheus.CounterVec
	lastRun  prometheus.Gauge
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// New регистрирует метрики в registerer. При nil используется
// prometheus.DefaultRegisterer, причём регистрация выполняется один раз.
func New(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		defaultOnce.Do(func() {
			defaultMetrics = build(prometheus.DefaultRegisterer)
		})
		return defaultMetrics
	}
	return build(registerer)
}

// ObserveRun учитывает завершённый прогон синхронизации.
func (m *Metrics) ObserveRun(summary models.SyncRunSummary, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(string(summary.Status)).Inc()
	m.users.WithLabelValues("synced").Add(float64(summary.UsersSynced))
	m.users.WithLabelValues("failed").Add(float64(summary.UsersFailed))
	m.duration.Observe(elapsed.Seconds())
	m.lastRun.SetToCurrentTime()
}

// ObserveLookup учитывает один запрос к внешнему сервису.
func (m *Metrics) ObserveLookup(outcome string) {
	if m == nil {
		return
	}
	m.lookups.WithLabelValues(outcome).Inc()
}

func build(registerer prometheus.Registerer) *Metrics {
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "subscription_sync_runs_total",
		Help: "Total sync runs partitioned by final status.",
	}, []string{"status"})
	users := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "subscription_sync_users_total",
		Help: "Users processed by sync runs partitioned by result.",
	}, []string{"result"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "subscription_sync_run_duration_seconds",
		Help:    "Duration in seconds of whole-fleet sync runs.",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
	})
	lookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "subscription_remote_lookups_total",
		Help: "Remote subscription lookups partitioned by outcome.",
	}, []string{"outcome"})
	lastRun := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "subscription_sync_last_run_timestamp_seconds",
		Help: "Unix time of the last finished sync run.",
	})
	registerer.MustRegister(runs, users, duration, lookups, lastRun)
	return &Metrics{runs: runs, users: users, duration: duration, lookups: lookups, lastRun: lastRun}
}
