package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"quant-systemv1/config"
	"quant-systemv1/internal/calendar"
	"quant-systemv1/internal/factor"
	"quant-systemv1/internal/logger"
	"quant-systemv1/internal/model"
	"quant-systemv1/internal/scoring"
)

// Screener ranks the universe on a date with a named scoring preset.
type Screener struct {
	stores     Stores
	strategies map[string]scoring.Config
	opts       Options
}

// NewScreener validates the wiring and returns a Screener.
func NewScreener(stores Stores, strategies map[string]scoring.Config, opts Options) (*Screener, error) {
	if stores.Series == nil || stores.Universe == nil {
		return nil, errors.New("pipeline: series and universe readers are required")
	}
	if len(strategies) == 0 {
		return nil, errors.New("pipeline: no strategies configured")
	}
	return &Screener{stores: stores, strategies: strategies, opts: opts.withDefaults()}, nil
}

// Select scores the universe on date with strategy, then persists and
// publishes the result. Per-instrument problems are returned inside the
// score as failures; the error is reserved for an unknown strategy,
// unreadable universe, cancellation or a failed result write.
func (s *Screener) Select(ctx context.Context, date time.Time, strategy string) (*model.CompositeScore, error) {
	ctx, runID := ensureRunID(ctx)
	start := time.Now()

	score, err := s.score(ctx, date, strategy)
	if err != nil {
		return nil, err
	}

	if s.stores.Results != nil {
		if err := s.stores.Results.WriteScore(ctx, runID, score); err != nil {
			return nil, fmt.Errorf("pipeline: write score: %w", err)
		}
	}
	if s.stores.Publisher != nil {
		if err := s.stores.Publisher.PublishSelection(ctx, runID, score); err != nil {
			slog.Warn("selection publish failed", append(logger.LogWithRun(ctx), "error", err)...)
		}
	}
	if s.opts.Metrics != nil {
		s.opts.Metrics.RecordScore(score)
	}

	slog.Info("selection complete", append(logger.LogWithRun(ctx),
		"strategy", strategy,
		"date", score.Date.Format("2006-01-02"),
		"selected", len(score.Ranked),
		"failures", len(score.Failures),
		"elapsed", time.Since(start),
	)...)
	return score, nil
}

// score runs the selection without side effects.
func (s *Screener) score(ctx context.Context, date time.Time, strategy string) (*model.CompositeScore, error) {
	cfg, ok := s.strategies[strategy]
	if !ok {
		return nil, fmt.Errorf("pipeline: unknown strategy %q", strategy)
	}
	engine, err := scoring.NewEngine(cfg)
	if err != nil {
		return nil, fmt.Errorf("pipeline: strategy %s: %w", strategy, err)
	}

	date = day(date)
	instruments, err := s.stores.Universe.ReadInstruments(ctx)
	if err != nil {
		return nil, fmt.Errorf("pipeline: read universe: %w", err)
	}

	inputs, failures := loadInputs(ctx, s.stores, instruments, date.AddDate(0, 0, -s.opts.Lookback), date, s.opts)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	panel, panelFailures := s.panel(ctx, date, config.FactorNames(cfg), inputs)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	score := engine.Score(panel, Candidates(date, inputs, s.opts.Calendar), strategy)
	failures = append(failures, panelFailures...)
	score.Failures = append(failures, score.Failures...)
	return score, nil
}

// panel returns the factor panel for date, from the cache when possible.
// Cache errors only cost a rebuild.
//
// The cached panel only holds instruments that built cleanly, so on a hit
// the absent inputs are rebuilt to report their failures again.
func (s *Screener) panel(ctx context.Context, date time.Time, names []string, inputs []factor.Inputs) (*model.FactorPanel, []model.Failure) {
	key := panelKey(date, names, panelFingerprint(inputs, s.opts.Benchmark, s.opts.Params))
	if c := s.stores.Cache; c != nil {
		p, err := c.GetPanel(ctx, key)
		switch {
		case err != nil:
			slog.Warn("panel cache read failed", append(logger.LogWithRun(ctx), "key", key, "error", err)...)
		case p != nil:
			slog.Debug("panel cache hit", append(logger.LogWithRun(ctx), "key", key)...)
			return p, s.refill(ctx, p, date, names, inputs)
		}
	}

	p, failures := s.build(ctx, date, names, inputs)
	if c := s.stores.Cache; c != nil && ctx.Err() == nil {
		if err := c.PutPanel(ctx, key, p); err != nil {
			slog.Warn("panel cache write failed", append(logger.LogWithRun(ctx), "key", key, "error", err)...)
		}
	}
	return p, failures
}

func (s *Screener) build(ctx context.Context, date time.Time, names []string, inputs []factor.Inputs) (*model.FactorPanel, []model.Failure) {
	p, failures := factor.BuildPanel(ctx, date, inputs, names, s.opts.Params, s.opts.batch("factor"))
	if wantsMidCap(names) {
		factor.MidCapPreference(p)
	}
	return p, failures
}

// refill recomputes the inputs missing from a cached panel. Rows that now
// build are merged into p; the rest come back as failures.
func (s *Screener) refill(ctx context.Context, p *model.FactorPanel, date time.Time, names []string, inputs []factor.Inputs) []model.Failure {
	var missing []factor.Inputs
	for _, in := range inputs {
		if _, ok := p.Values[in.Instrument.Code]; !ok {
			missing = append(missing, in)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	extra, failures := factor.BuildPanel(ctx, date, missing, names, s.opts.Params, s.opts.batch("factor"))
	for inst, row := range extra.Values {
		p.AddInstrument(inst)
		for name, v := range row {
			p.Set(inst, name, v)
		}
	}
	if len(extra.Values) > 0 && wantsMidCap(names) {
		factor.MidCapPreference(p)
	}
	return failures
}

func wantsMidCap(names []string) bool {
	for _, n := range names {
		if n == factor.MidCap {
			return true
		}
	}
	return false
}

func panelKey(date time.Time, names []string, fingerprint string) string {
	return date.Format("20060102") + ":" + strings.Join(names, ",") + ":" + fingerprint
}

// panelInput is the part of one instrument's inputs a panel depends on.
type panelInput struct {
	Code        string    `json:"code"`
	Bars        int       `json:"bars"`
	LastDate    time.Time `json:"last_date"`
	LastClose   float64   `json:"last_close"`
	Reports     int       `json:"reports"`
	LastPublish time.Time `json:"last_publish"`
	FloatShares float64   `json:"float_shares"`
	MarketBars  int       `json:"market_bars"`
}

// panelFingerprint hashes what the panel was built from: the universe,
// each instrument's latest bar and report, the benchmark and the factor
// windows. Importing an instrument or a report changes the key.
func panelFingerprint(inputs []factor.Inputs, benchmark string, params factor.Params) string {
	rows := make([]panelInput, 0, len(inputs))
	for _, in := range inputs {
		r := panelInput{
			Code:       in.Instrument.Code,
			Bars:       in.Series.Len(),
			Reports:    len(in.Fundamentals),
			MarketBars: in.Market.Len(),
		}
		if fs := in.Instrument.FloatShares; !model.IsUndefined(fs) {
			r.FloatShares = fs
		}
		if n := len(in.Series.Bars); n > 0 {
			r.LastDate = in.Series.Bars[n-1].Date
			r.LastClose = in.Series.Bars[n-1].Close
		}
		for _, f := range in.Fundamentals {
			if f.PublishDate.After(r.LastPublish) {
				r.LastPublish = f.PublishDate
			}
		}
		rows = append(rows, r)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Code < rows[j].Code })

	data, err := json.Marshal(struct {
		Benchmark string        `json:"benchmark"`
		Params    factor.Params `json:"params"`
		Inputs    []panelInput  `json:"inputs"`
	}{benchmark, params, rows})
	if err != nil {
		// NaN closes do not encode; validated series never carry them
		data = []byte(fmt.Sprintf("%s|%+v|%+v", benchmark, params, rows))
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8])
}

// Candidates derives the eligibility inputs on date for every instrument
// with a bar on that date.
//
// ListedDays counts trading days from the listing date through date, or the
// loaded bars when the listing date is unknown. Without float shares the
// bar volume stands in for turnover, so only zero-volume bars read as
// suspended.
func Candidates(date time.Time, inputs []factor.Inputs, cal *calendar.Calendar) []model.Candidate {
	if cal == nil {
		cal = calendar.Default()
	}
	out := make([]model.Candidate, 0, len(inputs))
	for _, in := range inputs {
		t := in.Series.IndexOf(date)
		if t < 0 {
			continue
		}
		bar := in.Series.Bars[t]
		c := model.Candidate{Instrument: in.Instrument, PctChange: model.Undefined(), ListedDays: t + 1}
		if !in.Instrument.ListDate.IsZero() {
			c.ListedDays = cal.TradingDaysBetween(in.Instrument.ListDate, bar.Date) + 1
		}
		if t > 0 && in.Series.Bars[t-1].Close > 0 {
			c.PctChange = (bar.Close/in.Series.Bars[t-1].Close - 1) * 100
		}
		if fs := in.Instrument.FloatShares; fs > 0 {
			c.Turnover = bar.Volume / fs * 100
		} else {
			c.Turnover = bar.Volume
		}
		out = append(out, c)
	}
	return out
}
