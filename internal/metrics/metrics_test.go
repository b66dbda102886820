package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/magabrotheeeer/subscription-sync/internal/models"
)

func TestMetrics_ObserveRun(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveRun(models.SyncRunSummary{Status: models.SyncPartial, UsersSynced: 3, UsersFailed: 1}, 2*time.Second)
	m.ObserveRun(models.SyncRunSummary{Status: models.SyncSuccess, UsersSynced: 2}, time.Second)

	assert.InDelta(t, 1, testutil.ToFloat64(m.runs.WithLabelValues("PARTIAL")), 0.001)
	assert.InDelta(t, 1, testutil.ToFloat64(m.runs.WithLabelValues("SUCCESS")), 0.001)
	assert.InDelta(t, 5, testutil.ToFloat64(m.users.WithLabelValues("synced")), 0.001)
	assert.InDelta(t, 1, testutil.ToFloat64(m.users.WithLabelValues("failed")), 0.001)
	assert.Equal(t, 1, testutil.CollectAndCount(m.duration))
	assert.Positive(t, testutil.ToFloat64(m.lastRun))
}

func TestMetrics_ObserveLookup(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveLookup(LookupFound)
	m.ObserveLookup(LookupFound)
	m.ObserveLookup(LookupError)

	assert.InDelta(t, 2, testutil.ToFloat64(m.lookups.WithLabelValues(LookupFound)), 0.001)
	assert.InDelta(t, 1, testutil.ToFloat64(m.lookups.WithLabelValues(LookupError)), 0.001)
	assert.InDelta(t, 0, testutil.ToFloat64(m.lookups.WithLabelValues(LookupNotFound)), 0.001)
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRun(models.SyncRunSummary{Status: models.SyncFailed}, time.Second)
		m.ObserveLookup(LookupNotFound)
	})
}
