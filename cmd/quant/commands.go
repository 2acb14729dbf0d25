package main

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"quant-systemv1/internal/analysis"
	"quant-systemv1/internal/factor"
	"quant-systemv1/internal/indicator"
	"quant-systemv1/internal/logger"
	"quant-systemv1/internal/model"
	"quant-systemv1/internal/notification"
	"quant-systemv1/internal/pattern"
	"quant-systemv1/internal/pipeline"
	"quant-systemv1/internal/strategy"
)

func rangeFlags(cmd *cobra.Command) {
	cmd.Flags().String("from", "", "First date, YYYY-MM-DD (default: all history)")
	cmd.Flags().String("to", "", "Last date, YYYY-MM-DD (default: latest bar)")
}

// loadSeries reads one instrument's bars in the flagged range.
func (a *app) loadSeries(cmd *cobra.Command, code string) (model.Series, error) {
	from, to, err := parseRange(cmd)
	if err != nil {
		return model.Series{}, err
	}
	s, err := a.store.ReadSeries(cmd.Context(), code, from, to)
	if err != nil {
		return model.Series{}, err
	}
	if s.Len() == 0 {
		return model.Series{}, fmt.Errorf("no bars stored for %s", code)
	}
	return s, nil
}

func indicatorsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "indicators CODE",
		Short: "Compute the daily indicator catalogue for one instrument",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			s, err := a.loadSeries(cmd, args[0])
			if err != nil {
				return err
			}
			last, _ := cmd.Flags().GetInt("last")
			results, failures := indicator.NewEngine(indicator.DefaultConfigs()).Process(s)
			for _, f := range failures {
				slog.Warn("indicator skipped", "instrument", f.Instrument, "error", f.Err)
			}

			var rows []record
			for _, r := range results {
				start := len(r.Dates) - last
				if start < 0 || last <= 0 {
					start = 0
				}
				for t := start; t < len(r.Dates); t++ {
					for _, l := range r.Lines {
						rows = append(rows, record{
							"date":      r.Dates[t],
							"indicator": r.Name,
							"line":      l.Name,
							"value":     num(l.Values[t]),
						})
					}
				}
			}
			return emit(cmd, []string{"date", "indicator", "line", "value"}, rows)
		},
	}
	rangeFlags(cmd)
	cmd.Flags().Int("last", 1, "Bars to print per line, 0 for all")
	return cmd
}

func patternsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patterns CODE",
		Short: "Detect candlestick and chart patterns for one instrument",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			s, err := a.loadSeries(cmd, args[0])
			if err != nil {
				return err
			}
			events := pattern.NewDetector(pattern.DefaultConfig()).Detect(s)
			rows := make([]record, len(events))
			for i, e := range events {
				rows[i] = record{"date": e.Date, "kind": string(e.Kind), "direction": string(e.Direction)}
			}
			return emit(cmd, []string{"date", "kind", "direction"}, rows)
		},
	}
	rangeFlags(cmd)
	return cmd
}

func analyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze CODE",
		Short: "Technical report with signal classification and score for the last bar",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			s, err := a.loadSeries(cmd, args[0])
			if err != nil {
				return err
			}
			r, err := analysis.Analyze(s)
			if err != nil {
				return err
			}
			fields := []struct {
				name  string
				value any
			}{
				{"date", r.Date},
				{"price", num(r.Price)},
				{"change_pct", num(r.ChangePct)},
				{"trend", string(r.Trend)},
				{"support", num(r.Support)},
				{"resistance", num(r.Resistance)},
				{"pivot", num(r.Pivot)},
				{"macd", fmt.Sprintf("%s (DIF %s, DEA %s)", r.Signals.MACD, cell(num(r.DIF)), cell(num(r.DEA)))},
				{"kdj", fmt.Sprintf("%s (K %s, D %s, J %s)", r.Signals.KDJ, cell(num(r.K)), cell(num(r.D)), cell(num(r.J)))},
				{"rsi", fmt.Sprintf("%s (%s)", r.Signals.RSI, cell(num(r.RSI)))},
				{"boll", fmt.Sprintf("%s (%s / %s / %s)", r.Signals.BOLL, cell(num(r.Upper)), cell(num(r.Mid)), cell(num(r.Lower)))},
				{"atr", num(r.ATR)},
				{"score", r.Score.Value},
				{"stars", r.Score.Stars},
				{"rating", string(r.Score.Rating)},
			}
			rows := make([]record, len(fields))
			for i, f := range fields {
				rows[i] = record{"field": f.name, "value": f.value}
			}
			return emit(cmd, []string{"field", "value"}, rows)
		},
	}
	rangeFlags(cmd)
	return cmd
}

func factorsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "factors CODE...",
		Short: "Evaluate catalogued factors for instruments as of a date",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()
			ctx := cmd.Context()

			dateFlag, _ := cmd.Flags().GetString("date")
			date, err := parseDate(dateFlag)
			if err != nil {
				return err
			}
			names := factor.Names()
			if n, _ := cmd.Flags().GetString("names"); n != "" {
				names = splitList(n)
			}
			lookback, _ := cmd.Flags().GetInt("lookback")
			from := date.AddDate(0, 0, -lookback)

			universe, err := a.store.ReadInstruments(ctx)
			if err != nil {
				return err
			}
			meta := make(map[string]model.Instrument, len(universe))
			for _, inst := range universe {
				meta[inst.Code] = inst
			}
			var market model.Series
			if bench, _ := cmd.Flags().GetString("benchmark"); bench != "" {
				if market, err = a.store.ReadSeries(ctx, bench, from, date); err != nil {
					return err
				}
			}

			var rows []record
			for _, code := range args {
				inst, ok := meta[code]
				if !ok {
					inst = model.Instrument{Code: code, FloatShares: model.Undefined()}
				}
				s, err := a.store.ReadSeries(ctx, code, from, date)
				if err != nil {
					return err
				}
				if s.Len() == 0 {
					slog.Warn("no bars in range", "instrument", code)
					continue
				}
				fund, err := a.store.ReadFundamentals(ctx, code)
				if err != nil {
					return err
				}
				in := factor.Inputs{Instrument: inst, Series: s, Market: market, Fundamentals: fund}
				vals, err := factor.ComputeAt(in, s.Len()-1, names, factor.DefaultParams())
				if err != nil {
					return err
				}
				keys := make([]string, 0, len(vals))
				for k := range vals {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				for _, k := range keys {
					rows = append(rows, record{
						"instrument": code,
						"date":       s.Bars[s.Len()-1].Date,
						"factor":     k,
						"value":      num(vals[k]),
					})
				}
			}
			return emit(cmd, []string{"instrument", "date", "factor", "value"}, rows)
		},
	}
	cmd.Flags().String("date", "", "As-of date, YYYY-MM-DD (default: today)")
	cmd.Flags().String("names", "", "Comma-separated factor names (default: all)")
	cmd.Flags().Int("lookback", 400, "Calendar days of history to load")
	cmd.Flags().String("benchmark", "", "Benchmark index code for market-relative factors")
	return cmd
}

func selectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "select",
		Short: "Run a multi-factor selection preset for one date",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			name, _ := cmd.Flags().GetString("strategy")
			dateFlag, _ := cmd.Flags().GetString("date")
			date, err := parseDate(dateFlag)
			if err != nil {
				return err
			}
			sc, err := pipeline.NewScreener(a.stores(), a.strategies, a.options(cmd))
			if err != nil {
				return err
			}
			runID := logger.NewRunID()
			ctx := logger.WithRunID(cmd.Context(), runID)
			score, err := sc.Select(ctx, date, name)
			if err != nil {
				return err
			}
			a.health.SetRun(runID, time.Now())
			if notify, _ := cmd.Flags().GetBool("notify"); notify {
				if err := a.notifier().Send(ctx, notification.SelectionAlert(score)); err != nil {
					slog.Warn("selection alert not delivered", "error", err)
				}
			}
			for _, f := range score.Failures {
				slog.Debug("instrument skipped", "instrument", f.Instrument, "stage", f.Stage, "error", f.Err)
			}

			rows := make([]record, len(score.Ranked))
			for i, r := range score.Ranked {
				rows[i] = record{"rank": r.Rank, "instrument": r.Instrument, "score": num(r.Score)}
			}
			return emit(cmd, []string{"rank", "instrument", "score"}, rows)
		},
	}
	cmd.Flags().String("strategy", "multi_factor", "Selection preset name")
	cmd.Flags().String("date", "", "Selection date, YYYY-MM-DD (default: today)")
	cmd.Flags().String("benchmark", "", "Benchmark index code for market-relative factors")
	cmd.Flags().Bool("notify", false, "Send the selection to the configured webhook/Telegram")
	return cmd
}

func backtestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Backtest a signal strategy or a selection preset",
		Long: "A signal strategy (see `quant strategies`) is backtested per instrument. " +
			"A selection preset is re-run every --step trading days and its picks held until the next rebalance.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			name, _ := cmd.Flags().GetString("strategy")
			horizon, _ := cmd.Flags().GetInt("horizon")
			from, to, err := parseRange(cmd)
			if err != nil {
				return err
			}
			ctx := logger.WithRunID(cmd.Context(), logger.NewRunID())

			bt, err := pipeline.NewBacktester(a.stores(), strategy.DefaultEngine(), a.options(cmd))
			if err != nil {
				return err
			}
			var report *pipeline.BacktestReport
			if _, ok := a.strategies[name]; ok {
				if from.IsZero() || to.IsZero() {
					return fmt.Errorf("selection backtest %q needs --from and --to", name)
				}
				sc, err := pipeline.NewScreener(a.stores(), a.strategies, a.options(cmd))
				if err != nil {
					return err
				}
				step, _ := cmd.Flags().GetInt("step")
				report, err = bt.RunSelection(ctx, sc, pipeline.SelectionBacktestRequest{
					Strategy: name, From: from, To: to, Step: step, Horizon: horizon,
				})
				if err != nil {
					return err
				}
			} else {
				list, _ := cmd.Flags().GetString("instruments")
				short, _ := cmd.Flags().GetBool("allow-short")
				report, err = bt.Run(ctx, pipeline.BacktestRequest{
					Strategy:    name,
					Instruments: splitList(list),
					From:        from,
					To:          to,
					Horizon:     horizon,
					AllowShort:  short,
				})
				if err != nil {
					return err
				}
			}
			a.health.SetRun(report.RunID, time.Now())
			if len(report.Failures) > 0 {
				slog.Warn("instruments skipped", "count", len(report.Failures))
			}

			rows := make([]record, len(report.Results))
			for i, r := range report.Results {
				rows[i] = record{
					"instrument":   r.Instrument,
					"total_return": num(r.TotalReturn),
					"sharpe":       num(r.Sharpe),
					"max_drawdown": num(r.MaxDrawdown),
					"win_rate":     num(r.WinRate),
					"trades":       r.Trades,
					"observations": r.Observations,
				}
			}
			return emit(cmd, []string{"instrument", "total_return", "sharpe", "max_drawdown", "win_rate", "trades", "observations"}, rows)
		},
	}
	rangeFlags(cmd)
	cmd.Flags().String("strategy", "macd_cross", "Signal strategy or selection preset")
	cmd.Flags().Int("horizon", 1, "Forward-return horizon in bars")
	cmd.Flags().String("instruments", "", "Comma-separated codes (default: whole universe)")
	cmd.Flags().Bool("allow-short", false, "Hold short positions on sell signals")
	cmd.Flags().Int("step", 20, "Trading days between rebalances for selection presets")
	cmd.Flags().String("benchmark", "", "Benchmark index code for market-relative factors")
	return cmd
}

func strategiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "strategies",
		Short: "List selection presets and signal strategies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			var rows []record
			for _, name := range a.strategies.Names() {
				cfg := a.strategies[name]
				factors := make([]string, len(cfg.Factors))
				for i, f := range cfg.Factors {
					factors[i] = fmt.Sprintf("%s:%g", f.Name, f.Weight)
				}
				rows = append(rows, record{"name": name, "kind": "selection", "detail": fmt.Sprint(factors)})
			}
			for _, name := range strategy.DefaultEngine().Names() {
				rows = append(rows, record{"name": name, "kind": "signal", "detail": "-"})
			}
			return emit(cmd, []string{"name", "kind", "detail"}, rows)
		},
	}
}
