// Package pipeline runs end-to-end selections and backtests over the
// storage ports: load history, fan out per instrument, barrier, score or
// backtest, persist.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"quant-systemv1/internal/batch"
	"quant-systemv1/internal/calendar"
	"quant-systemv1/internal/factor"
	"quant-systemv1/internal/logger"
	"quant-systemv1/internal/metrics"
	"quant-systemv1/internal/model"
)

// Stores bundles the ports a pipeline reads from and writes to. Results,
// Cache and Publisher are optional.
type Stores struct {
	Series       model.SeriesReader
	Universe     model.UniverseReader
	Fundamentals model.FundamentalsReader
	Results      model.ResultWriter
	Cache        model.PanelCache
	Publisher    model.SelectionPublisher
}

// Options tunes a pipeline.
type Options struct {
	Workers   int           // per-instrument concurrency, ≤0 uses NumCPU
	Lookback  int           // calendar days of history loaded before the date (default 400)
	Benchmark string        // market index code for IVOL and CORR; optional
	Params    factor.Params // zero value uses factor.DefaultParams
	Calendar  *calendar.Calendar
	Metrics   *metrics.Metrics
}

func (o Options) withDefaults() Options {
	if o.Lookback <= 0 {
		o.Lookback = 400
	}
	if o.Params == (factor.Params{}) {
		o.Params = factor.DefaultParams()
	}
	if o.Calendar == nil {
		o.Calendar = calendar.Default()
	}
	return o
}

func (o Options) batch(stage string) batch.Options {
	bo := batch.Options{Workers: o.Workers, Stage: stage}
	if o.Metrics != nil {
		bo.Observer = o.Metrics.Observer()
	}
	return bo
}

// ensureRunID returns ctx carrying a run id, creating one when absent.
func ensureRunID(ctx context.Context) (context.Context, string) {
	if id := logger.RunID(ctx); id != "" {
		return ctx, id
	}
	id := logger.NewRunID()
	return logger.WithRunID(ctx, id), id
}

// day normalises t to UTC midnight of its own calendar date.
func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// loadInputs reads series and fundamentals for every instrument with bars
// in [from, to]. Instruments that cannot be loaded are reported.
func loadInputs(ctx context.Context, st Stores, instruments []model.Instrument, from, to time.Time, opts Options) ([]factor.Inputs, []model.Failure) {
	var market model.Series
	if opts.Benchmark != "" {
		m, err := st.Series.ReadSeries(ctx, opts.Benchmark, from, to)
		if err != nil {
			slog.Warn("benchmark unavailable", append(logger.LogWithRun(ctx), "benchmark", opts.Benchmark, "error", err)...)
		} else {
			market = m
		}
	}

	bo := opts.batch("load")
	rows, errs := batch.Map(ctx, instruments, bo, func(ctx context.Context, in model.Instrument) (factor.Inputs, error) {
		s, err := st.Series.ReadSeries(ctx, in.Code, from, to)
		if err != nil {
			return factor.Inputs{}, err
		}
		if s.Len() == 0 {
			return factor.Inputs{}, &model.InsufficientDataError{Instrument: in.Code, What: "bars", Need: 1}
		}
		s.Instrument = in.Code
		out := factor.Inputs{Instrument: in, Series: s, Market: market}
		if st.Fundamentals != nil {
			if out.Fundamentals, err = st.Fundamentals.ReadFundamentals(ctx, in.Code); err != nil {
				return factor.Inputs{}, err
			}
		}
		return out, nil
	})

	inputs := make([]factor.Inputs, 0, len(instruments))
	var failures []model.Failure
	for i, in := range instruments {
		if errs[i] != nil {
			failures = append(failures, model.NewFailure(in.Code, to, bo.Stage, errs[i]))
			continue
		}
		inputs = append(inputs, rows[i])
	}
	return inputs, failures
}
