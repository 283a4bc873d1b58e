package metrics

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveRun()

	handler := m.Handler()
	require.NotNil(t, handler)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "armsuite_runs_total")
}

func TestObserveCase(t *testing.T) {
	m := New()

	m.ObserveCase("passed", 2*time.Millisecond)
	m.ObserveCase("passed", 3*time.Millisecond)
	m.ObserveCase("failed", time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CasesTotal.WithLabelValues("passed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CasesTotal.WithLabelValues("failed")))
}

func TestObserveAssertion(t *testing.T) {
	m := New()

	m.ObserveAssertion("near")
	m.ObserveAssertion("near")
	m.ObserveAssertion("exact")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.AssertionFailuresTotal.WithLabelValues("near")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AssertionFailuresTotal.WithLabelValues("exact")))
}

func TestObserveHistoryWrite(t *testing.T) {
	m := New()

	m.ObserveHistoryWrite("memory", nil)
	m.ObserveHistoryWrite("postgres", errors.New("down"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.HistoryWrites.WithLabelValues("memory", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HistoryWrites.WithLabelValues("postgres", "error")))
}

func TestWriteText(t *testing.T) {
	m := New()
	m.ObserveCase("passed", time.Millisecond)
	m.ObserveRun()

	var buf bytes.Buffer
	require.NoError(t, m.WriteText(&buf))

	out := buf.String()
	assert.Contains(t, out, `armsuite_cases_total{outcome="passed"} 1`)
	assert.Contains(t, out, "armsuite_runs_total 1")
	assert.Contains(t, out, "# TYPE armsuite_case_duration_seconds histogram")
}

func TestNew_IndependentRegistries(t *testing.T) {
	a := New()
	b := New()

	a.ObserveRun()

	assert.Equal(t, 1.0, testutil.ToFloat64(a.RunsTotal))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.RunsTotal))
}

func TestRecordRequest(t *testing.T) {
	m := New()

	m.RecordRequest("GET", "/health", 200, 5*time.Millisecond)
	m.RecordRequest("GET", "/health", 200, 3*time.Millisecond)
	m.RecordRequest("POST", "/api/v1/runs", 500, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/health", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("POST", "/api/v1/runs", "500")))
}
