package metrics

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quant-systemv1/internal/model"
)

func newTestMetrics(t *testing.T) (*Metrics, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	return New(reg), reg
}

func TestObserver_CountsOutcomesAndKinds(t *testing.T) {
	m, _ := newTestMetrics(t)
	obs := m.Observer()

	obs("factor", nil, time.Millisecond)
	obs("factor", nil, time.Millisecond)
	obs("factor", &model.InsufficientDataError{Need: 20, Have: 3}, time.Millisecond)
	obs("factor", context.Canceled, 0)
	obs("backtest", errors.New("boom"), 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.StageItems.WithLabelValues("factor", "ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.StageItems.WithLabelValues("factor", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Failures.WithLabelValues("factor", model.KindInsufficientData)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Failures.WithLabelValues("factor", model.KindCanceled)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Failures.WithLabelValues("backtest", model.KindInternal)))
}

func TestRecordScore(t *testing.T) {
	m, _ := newTestMetrics(t)
	score := &model.CompositeScore{
		Strategy: "value",
		Ranked:   []model.RankedScore{{Instrument: "A"}, {Instrument: "B"}},
		Decisions: map[string]model.Eligibility{
			"A": {Included: true},
			"B": {Included: true},
			"C": {Included: false, Reason: model.ReasonRiskWarning},
			"D": {Included: false, Reason: model.ReasonRiskWarning},
		},
		Failures: []model.Failure{{Instrument: "E", Stage: "scoring", Kind: model.KindInvalidInput}},
	}
	m.RecordScore(score)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SelectionRuns.WithLabelValues("value")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Selected.WithLabelValues("value")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Excluded.WithLabelValues("value", string(model.ReasonRiskWarning))))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Failures.WithLabelValues("scoring", model.KindInvalidInput)))
}

func TestRecordBacktest_SkipsUndefinedSharpe(t *testing.T) {
	m, _ := newTestMetrics(t)
	m.RecordBacktest("macd_cross", []*model.BacktestResult{
		{Sharpe: 1.0}, {Sharpe: math.NaN()}, {Sharpe: 2.0},
	})
	assert.Equal(t, 1.5, testutil.ToFloat64(m.BacktestSharpe.WithLabelValues("macd_cross")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BacktestRuns.WithLabelValues("macd_cross")))
}

func TestSetBreakerState(t *testing.T) {
	m, _ := newTestMetrics(t)
	m.SetBreakerState(2)
	m.SetBreakerState(1)
	m.SetBreakerState(2)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RedisCircuitBreakerState))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RedisCircuitBreakerTrips))
}

func TestServer_Routes(t *testing.T) {
	m, reg := newTestMetrics(t)
	m.PanelCacheHits.Inc()

	health := NewHealthStatus()
	health.DBOK = true
	srv := NewServer(":0", reg, health)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "quant_panel_cache_hits_total 1"))

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"healthy"`)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/healthz", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHealth_Degraded(t *testing.T) {
	h := NewHealthStatus()
	h.DBOK = false

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"degraded"`)

	h.RedisEnabled = true
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Contains(t, rec.Body.String(), `"status":"unhealthy"`)
}
