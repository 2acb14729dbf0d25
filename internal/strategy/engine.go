// Package strategy provides the strategy engine for generating trading signals.
//
// A Strategy receives one instrument's daily history and emits one signal per
// bar (BUY/SELL/HOLD). Signals are events: BUY on the bar a setup fires,
// SELL on the bar it reverses, HOLD otherwise. Positions turns events into
// the held exposure the backtester consumes.
// The Engine manages registration and runs a strategy over a universe.
package strategy

import (
	"context"
	"fmt"
	"sort"
	"time"

	"quant-systemv1/internal/batch"
	"quant-systemv1/internal/model"
)

// Strategy is the interface that all signal generators must implement.
type Strategy interface {
	// Name returns the unique name of the strategy.
	Name() string

	// Generate returns one signal per bar of s, aligned by date. The signal
	// at bar t may only depend on bars 0..t.
	Generate(s model.Series) ([]model.Signal, error)
}

// Result is one instrument's signal series.
type Result struct {
	Instrument string
	Strategy   string
	Signals    []model.Signal
}

// Engine manages registered strategies.
type Engine struct {
	strategies map[string]Strategy
}

// NewEngine creates an engine with the given strategies registered.
func NewEngine(strategies ...Strategy) *Engine {
	e := &Engine{strategies: make(map[string]Strategy, len(strategies))}
	for _, s := range strategies {
		e.Register(s)
	}
	return e
}

// DefaultEngine registers every built-in strategy with default parameters.
func DefaultEngine() *Engine {
	return NewEngine(
		NewMACDCross(12, 26, 9),
		NewKDJCross(9, 3, 3),
		NewSMACrossover(5, 20, true, 14),
		NewTechnicalScore(4, 2),
		NewPatternReversal(nil),
	)
}

// Register adds a strategy, replacing any with the same name.
func (e *Engine) Register(s Strategy) {
	e.strategies[s.Name()] = s
}

// Get returns the named strategy.
func (e *Engine) Get(name string) (Strategy, bool) {
	s, ok := e.strategies[name]
	return s, ok
}

// Names returns the registered strategy names, sorted.
func (e *Engine) Names() []string {
	out := make([]string, 0, len(e.strategies))
	for name := range e.strategies {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Run generates signals for every series with the named strategy. Results
// keep universe order; instruments that fail are reported, not fatal.
func (e *Engine) Run(ctx context.Context, name string, universe []model.Series, opts batch.Options) ([]Result, []model.Failure, error) {
	strat, ok := e.Get(name)
	if !ok {
		return nil, nil, fmt.Errorf("strategy: unknown strategy %q", name)
	}
	if opts.Stage == "" {
		opts.Stage = "strategy"
	}
	out, errs := batch.Map(ctx, universe, opts, func(_ context.Context, s model.Series) ([]model.Signal, error) {
		return strat.Generate(s)
	})

	results := make([]Result, 0, len(universe))
	var failures []model.Failure
	for i, s := range universe {
		if errs[i] != nil {
			failures = append(failures, model.NewFailure(s.Instrument, lastDate(s), opts.Stage, errs[i]))
			continue
		}
		results = append(results, Result{Instrument: s.Instrument, Strategy: name, Signals: out[i]})
	}
	return results, failures, nil
}

// Positions converts event signals into held exposure: +1 from a BUY until
// the next SELL. After a SELL the position is -1 when allowShort, else flat.
func Positions(signals []model.Signal, allowShort bool) []model.Signal {
	out := make([]model.Signal, len(signals))
	pos := model.ActionHold
	for i, sig := range signals {
		switch sig.Action {
		case model.ActionBuy:
			pos = model.ActionBuy
		case model.ActionSell:
			if allowShort {
				pos = model.ActionSell
			} else {
				pos = model.ActionHold
			}
		}
		out[i] = sig
		out[i].Action = pos
	}
	return out
}

func hold(s model.Series) []model.Signal { return model.HoldSignals(s) }

func lastDate(s model.Series) time.Time {
	if n := s.Len(); n > 0 {
		return s.Bars[n-1].Date
	}
	return time.Time{}
}
