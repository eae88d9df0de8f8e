package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsAreNoOps(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.TaskSubmitted(1)
		m.TaskCompleted(0, true)
		m.FileIndexed(false)
		m.PageCrawled(true)
		m.QueryHandled("evaluated")
		m.SearchObserved("exact", 0.01, 3)
		m.CacheLookup(true)
		m.IndexSize(10, 2)
		m.BreakerState("redis", 1)
	})
}

func TestRecordingHelpers(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.TaskSubmitted(3)
	m.TaskCompleted(2, false)
	m.TaskCompleted(1, true)
	m.IndexSize(42, 7)

	families, err := reg.Gather()
	require.NoError(t, err)
	byName := make(map[string]float64)
	for _, f := range families {
		for _, metric := range f.GetMetric() {
			switch {
			case metric.GetCounter() != nil:
				byName[f.GetName()] += metric.GetCounter().GetValue()
			case metric.GetGauge() != nil:
				byName[f.GetName()] = metric.GetGauge().GetValue()
			}
		}
	}
	assert.Equal(t, 1.0, byName["workqueue_tasks_submitted_total"])
	assert.Equal(t, 2.0, byName["workqueue_tasks_completed_total"])
	assert.Equal(t, 1.0, byName["workqueue_pending_tasks"])
	assert.Equal(t, 42.0, byName["index_words"])
	assert.Equal(t, 7.0, byName["index_locations"])
}

func TestMux(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg).IndexSize(5, 1)
	srv := httptest.NewServer(NewMux(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "index_words 5")

	resp, err = http.Get(srv.URL + "/")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), "<li>index_words</li>")

	resp, err = http.Get(srv.URL + "/nothing")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
