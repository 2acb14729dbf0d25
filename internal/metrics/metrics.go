// Package metrics exposes Prometheus metrics and a health endpoint for the
// screening and backtest runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"quant-systemv1/internal/batch"
	"quant-systemv1/internal/model"
)

// Metrics holds all Prometheus metrics for the quant pipeline.
type Metrics struct {
	// Per-stage batch throughput
	StageItems    *prometheus.CounterVec   // labels: stage, outcome=ok|failed
	StageDuration *prometheus.HistogramVec // labels: stage
	Failures      *prometheus.CounterVec   // labels: stage, kind

	// Selection results
	SelectionRuns *prometheus.CounterVec // labels: strategy
	Selected      *prometheus.GaugeVec   // labels: strategy
	Excluded      *prometheus.CounterVec // labels: strategy, reason

	// Backtests
	BacktestRuns   *prometheus.CounterVec // labels: strategy
	BacktestSharpe *prometheus.GaugeVec   // labels: strategy; mean over instruments

	// Panel cache
	PanelCacheHits   prometheus.Counter
	PanelCacheMisses prometheus.Counter

	// Storage latency
	SQLWriteDur   prometheus.Histogram
	RedisWriteDur prometheus.Histogram

	// Circuit breaker metrics
	RedisCircuitBreakerState prometheus.Gauge // 0=closed, 1=half-open, 2=open
	RedisCircuitBreakerTrips prometheus.Counter
}

// New creates all metrics and registers them with reg. Pass
// prometheus.DefaultRegisterer in binaries and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		StageItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quant_stage_items_total",
			Help: "Instruments processed per pipeline stage",
		}, []string{"stage", "outcome"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "quant_stage_item_duration_seconds",
			Help:    "Per-instrument compute latency per stage",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}, []string{"stage"}),
		Failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quant_failures_total",
			Help: "Per-instrument failures by stage and kind",
		}, []string{"stage", "kind"}),

		SelectionRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quant_selection_runs_total",
			Help: "Completed screening runs",
		}, []string{"strategy"}),
		Selected: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "quant_selected_instruments",
			Help: "Instruments selected by the latest run",
		}, []string{"strategy"}),
		Excluded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quant_excluded_instruments_total",
			Help: "Instruments excluded from ranking by reason",
		}, []string{"strategy", "reason"}),

		BacktestRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quant_backtest_runs_total",
			Help: "Completed backtest runs",
		}, []string{"strategy"}),
		BacktestSharpe: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "quant_backtest_mean_sharpe",
			Help: "Mean annualised Sharpe over instruments in the latest backtest",
		}, []string{"strategy"}),

		PanelCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quant_panel_cache_hits_total",
			Help: "Factor panels served from Redis",
		}),
		PanelCacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quant_panel_cache_misses_total",
			Help: "Factor panels rebuilt because the cache had none",
		}),

		SQLWriteDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "quant_sql_write_duration_seconds",
			Help:    "SQL result write latency",
			Buckets: prometheus.DefBuckets,
		}),
		RedisWriteDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "quant_redis_write_duration_seconds",
			Help:    "Redis write latency",
			Buckets: prometheus.DefBuckets,
		}),

		RedisCircuitBreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "quant_redis_circuit_breaker_state",
			Help: "Redis circuit breaker state (0=closed, 1=half-open, 2=open)",
		}),
		RedisCircuitBreakerTrips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quant_redis_circuit_breaker_trips_total",
			Help: "Times the Redis circuit breaker tripped open",
		}),
	}

	reg.MustRegister(
		m.StageItems,
		m.StageDuration,
		m.Failures,
		m.SelectionRuns,
		m.Selected,
		m.Excluded,
		m.BacktestRuns,
		m.BacktestSharpe,
		m.PanelCacheHits,
		m.PanelCacheMisses,
		m.SQLWriteDur,
		m.RedisWriteDur,
		m.RedisCircuitBreakerState,
		m.RedisCircuitBreakerTrips,
	)

	return m
}

// Observer returns a batch hook that counts items, failures by kind and
// per-item latency.
func (m *Metrics) Observer() batch.Observer {
	return func(stage string, err error, elapsed time.Duration) {
		m.StageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
		if err != nil {
			m.StageItems.WithLabelValues(stage, "failed").Inc()
			m.Failures.WithLabelValues(stage, model.ErrKind(err)).Inc()
			return
		}
		m.StageItems.WithLabelValues(stage, "ok").Inc()
	}
}

// RecordScore updates the selection metrics from a finished score.
func (m *Metrics) RecordScore(score *model.CompositeScore) {
	m.SelectionRuns.WithLabelValues(score.Strategy).Inc()
	m.Selected.WithLabelValues(score.Strategy).Set(float64(len(score.Ranked)))
	for _, d := range score.Decisions {
		if !d.Included {
			m.Excluded.WithLabelValues(score.Strategy, string(d.Reason)).Inc()
		}
	}
	for _, f := range score.Failures {
		m.Failures.WithLabelValues(f.Stage, f.Kind).Inc()
	}
}

// RecordBacktest updates the backtest metrics. Undefined Sharpe ratios are
// left out of the mean.
func (m *Metrics) RecordBacktest(strategy string, results []*model.BacktestResult) {
	m.BacktestRuns.WithLabelValues(strategy).Inc()
	var sum float64
	n := 0
	for _, r := range results {
		if !model.IsUndefined(r.Sharpe) {
			sum += r.Sharpe
			n++
		}
	}
	if n > 0 {
		m.BacktestSharpe.WithLabelValues(strategy).Set(sum / float64(n))
	}
}

// SetBreakerState records a breaker transition. State values follow
// gobreaker: 0=closed, 1=half-open, 2=open.
func (m *Metrics) SetBreakerState(state int) {
	m.RedisCircuitBreakerState.Set(float64(state))
	if state == 2 {
		m.RedisCircuitBreakerTrips.Inc()
	}
}
