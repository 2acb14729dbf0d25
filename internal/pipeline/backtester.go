package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"quant-systemv1/internal/backtest"
	"quant-systemv1/internal/logger"
	"quant-systemv1/internal/model"
	"quant-systemv1/internal/strategy"
)

// BacktestRequest describes one signal-strategy backtest.
type BacktestRequest struct {
	Strategy    string
	Instruments []string // empty runs the whole universe
	From, To    time.Time
	Horizon     int // forward-return horizon in bars, default 1
	AllowShort  bool
}

// SelectionBacktestRequest backtests a scoring preset: the universe is
// re-selected every Step trading days and held while selected.
type SelectionBacktestRequest struct {
	Strategy string
	From, To time.Time
	Step     int // trading days between rebalances, default 20
	Horizon  int
}

// BacktestReport is the outcome of one backtest run.
type BacktestReport struct {
	RunID    string                  `json:"run_id"`
	Strategy string                  `json:"strategy"`
	Results  []*model.BacktestResult `json:"results"`
	Failures []model.Failure         `json:"failures,omitempty"`
}

// Backtester evaluates strategies over stored history.
type Backtester struct {
	stores Stores
	engine *strategy.Engine
	opts   Options
}

// NewBacktester validates the wiring and returns a Backtester. A nil
// engine uses strategy.DefaultEngine.
func NewBacktester(stores Stores, engine *strategy.Engine, opts Options) (*Backtester, error) {
	if stores.Series == nil {
		return nil, errors.New("pipeline: series reader is required")
	}
	if engine == nil {
		engine = strategy.DefaultEngine()
	}
	return &Backtester{stores: stores, engine: engine, opts: opts.withDefaults()}, nil
}

// Run generates the strategy's signals per instrument, converts them to
// positions and backtests each instrument independently.
func (b *Backtester) Run(ctx context.Context, req BacktestRequest) (*BacktestReport, error) {
	ctx, runID := ensureRunID(ctx)
	if req.Horizon == 0 {
		req.Horizon = 1
	}
	if _, ok := b.engine.Get(req.Strategy); !ok {
		return nil, fmt.Errorf("pipeline: unknown strategy %q (have %v)", req.Strategy, b.engine.Names())
	}

	instruments, err := b.universe(ctx, req.Instruments)
	if err != nil {
		return nil, err
	}
	series, failures := b.loadSeries(ctx, instruments, req.From, req.To)

	results, sigFailures, err := b.engine.Run(ctx, req.Strategy, series, b.opts.batch("strategy"))
	if err != nil {
		return nil, err
	}
	failures = append(failures, sigFailures...)

	byCode := make(map[string]model.Series, len(series))
	for _, s := range series {
		byCode[s.Instrument] = s
	}
	jobs := make([]backtest.Job, len(results))
	for i, r := range results {
		jobs[i] = backtest.Job{
			Series:   byCode[r.Instrument],
			Signals:  strategy.Positions(r.Signals, req.AllowShort),
			Strategy: req.Strategy,
		}
	}
	return b.finish(ctx, runID, req.Strategy, jobs, req.Horizon, failures)
}

// RunSelection backtests a scoring preset with the screener's selections on
// every rebalance date between From and To.
func (b *Backtester) RunSelection(ctx context.Context, screener *Screener, req SelectionBacktestRequest) (*BacktestReport, error) {
	ctx, runID := ensureRunID(ctx)
	if req.Horizon == 0 {
		req.Horizon = 1
	}
	if req.Step == 0 {
		req.Step = 20
	}
	dates, err := b.opts.Calendar.RebalanceDates(req.From, req.To, req.Step)
	if err != nil {
		return nil, err
	}
	if len(dates) == 0 {
		return nil, fmt.Errorf("pipeline: no trading days between %s and %s",
			req.From.Format("2006-01-02"), req.To.Format("2006-01-02"))
	}

	var failures []model.Failure
	scores := make([]*model.CompositeScore, 0, len(dates))
	held := map[string]bool{}
	var codes []string
	for _, d := range dates {
		sc, err := screener.score(ctx, day(d), req.Strategy)
		if err != nil {
			return nil, err
		}
		scores = append(scores, sc)
		failures = append(failures, sc.Failures...)
		for _, code := range sc.Selected() {
			if !held[code] {
				held[code] = true
				codes = append(codes, code)
			}
		}
	}
	rebalances := strategy.RebalancesFrom(scores)

	instruments := make([]model.Instrument, len(codes))
	for i, c := range codes {
		instruments[i] = model.Instrument{Code: c}
	}
	series, loadFailures := b.loadSeries(ctx, instruments, req.From, req.To)
	failures = append(failures, loadFailures...)

	name := "selection:" + req.Strategy
	jobs := make([]backtest.Job, len(series))
	for i, s := range series {
		jobs[i] = backtest.Job{
			Series:   s,
			Signals:  strategy.Positions(strategy.SelectionSignals(s, rebalances), false),
			Strategy: name,
		}
	}
	return b.finish(ctx, runID, name, jobs, req.Horizon, failures)
}

func (b *Backtester) finish(ctx context.Context, runID, name string, jobs []backtest.Job, h int, failures []model.Failure) (*BacktestReport, error) {
	start := time.Now()
	results, btFailures := backtest.RunBatch(ctx, jobs, h, b.opts.batch("backtest"))
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	report := &BacktestReport{
		RunID:    runID,
		Strategy: name,
		Results:  results,
		Failures: append(failures, btFailures...),
	}

	if w := b.stores.Results; w != nil {
		for _, r := range results {
			if err := w.WriteBacktest(ctx, runID, r); err != nil {
				return nil, fmt.Errorf("pipeline: write backtest %s: %w", r.Instrument, err)
			}
		}
	}
	if b.opts.Metrics != nil {
		b.opts.Metrics.RecordBacktest(name, results)
	}

	slog.Info("backtest complete", append(logger.LogWithRun(ctx),
		"strategy", name,
		"instruments", len(results),
		"failures", len(report.Failures),
		"elapsed", time.Since(start),
	)...)
	return report, nil
}

// universe resolves the instruments to backtest.
func (b *Backtester) universe(ctx context.Context, codes []string) ([]model.Instrument, error) {
	if len(codes) > 0 {
		out := make([]model.Instrument, len(codes))
		for i, c := range codes {
			out[i] = model.Instrument{Code: c}
		}
		return out, nil
	}
	if b.stores.Universe == nil {
		return nil, errors.New("pipeline: no instruments given and no universe reader")
	}
	instruments, err := b.stores.Universe.ReadInstruments(ctx)
	if err != nil {
		return nil, fmt.Errorf("pipeline: read universe: %w", err)
	}
	return instruments, nil
}

func (b *Backtester) loadSeries(ctx context.Context, instruments []model.Instrument, from, to time.Time) ([]model.Series, []model.Failure) {
	st := Stores{Series: b.stores.Series}
	opts := b.opts
	opts.Benchmark = ""
	inputs, failures := loadInputs(ctx, st, instruments, from, to, opts)
	out := make([]model.Series, len(inputs))
	for i, in := range inputs {
		out[i] = in.Series
	}
	return out, failures
}
