package sqldb

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"quant-systemv1/internal/model"
)

// UpsertInstruments inserts or replaces instrument metadata.
func (s *Store) UpsertInstruments(ctx context.Context, instruments []model.Instrument) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		stmt, err := tx.PreparexContext(ctx, tx.Rebind(`
			INSERT INTO instruments (code, name, special_treatment, list_date, float_shares)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (code) DO UPDATE SET
				name = excluded.name,
				special_treatment = excluded.special_treatment,
				list_date = excluded.list_date,
				float_shares = excluded.float_shares`))
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, in := range instruments {
			var listDate any
			if !in.ListDate.IsZero() {
				listDate = day(in.ListDate)
			}
			if _, err := stmt.ExecContext(ctx, in.Code, in.Name, in.SpecialTreatment, listDate, nullable(in.FloatShares)); err != nil {
				return fmt.Errorf("instrument %s: %w", in.Code, err)
			}
		}
		return nil
	})
}

// UpsertSeries inserts or replaces the bars of s. The series is validated first.
func (s *Store) UpsertSeries(ctx context.Context, series model.Series) error {
	if err := series.Validate(); err != nil {
		return err
	}
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		stmt, err := tx.PreparexContext(ctx, tx.Rebind(`
			INSERT INTO bars (code, date, open, high, low, close, volume)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (code, date) DO UPDATE SET
				open = excluded.open,
				high = excluded.high,
				low = excluded.low,
				close = excluded.close,
				volume = excluded.volume`))
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, b := range series.Bars {
			if _, err := stmt.ExecContext(ctx, series.Instrument, day(b.Date), b.Open, b.High, b.Low, b.Close, b.Volume); err != nil {
				return fmt.Errorf("bar %s %s: %w", series.Instrument, b.Date.Format("2006-01-02"), err)
			}
		}
		return nil
	})
}

// UpsertFundamentals inserts or replaces report records.
func (s *Store) UpsertFundamentals(ctx context.Context, records []model.Fundamentals) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		stmt, err := tx.PreparexContext(ctx, tx.Rebind(`
			INSERT INTO fundamentals (instrument, report_date, publish_date, total_shares, net_profit,
				book_value, revenue, operating_cash_flow, dividend_per_share, equity, nopat,
				invested_capital, cogs, total_assets, actual_eps, expected_eps, std_eps)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (instrument, report_date) DO UPDATE SET
				publish_date = excluded.publish_date,
				total_shares = excluded.total_shares,
				net_profit = excluded.net_profit,
				book_value = excluded.book_value,
				revenue = excluded.revenue,
				operating_cash_flow = excluded.operating_cash_flow,
				dividend_per_share = excluded.dividend_per_share,
				equity = excluded.equity,
				nopat = excluded.nopat,
				invested_capital = excluded.invested_capital,
				cogs = excluded.cogs,
				total_assets = excluded.total_assets,
				actual_eps = excluded.actual_eps,
				expected_eps = excluded.expected_eps,
				std_eps = excluded.std_eps`))
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, f := range records {
			_, err := stmt.ExecContext(ctx, f.Instrument, day(f.ReportDate), day(f.PublishDate),
				nullable(f.TotalShares), nullable(f.NetProfit), nullable(f.BookValue), nullable(f.Revenue),
				nullable(f.OperatingCashFlow), nullable(f.DividendPerShare), nullable(f.Equity), nullable(f.NOPAT),
				nullable(f.InvestedCapital), nullable(f.COGS), nullable(f.TotalAssets),
				nullable(f.ActualEPS), nullable(f.ExpectedEPS), nullable(f.StdEPS))
			if err != nil {
				return fmt.Errorf("fundamentals %s %s: %w", f.Instrument, f.ReportDate.Format("2006-01-02"), err)
			}
		}
		return nil
	})
}

// WriteScore stores a selection run, replacing any earlier write of runID.
func (s *Store) WriteScore(ctx context.Context, runID string, score *model.CompositeScore) error {
	decisions, err := json.Marshal(score.Decisions)
	if err != nil {
		return fmt.Errorf("marshal decisions: %w", err)
	}
	failures, err := json.Marshal(score.Failures)
	if err != nil {
		return fmt.Errorf("marshal failures: %w", err)
	}

	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO score_runs (run_id, strategy, date, decisions, failures, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (run_id) DO UPDATE SET
				strategy = excluded.strategy,
				date = excluded.date,
				decisions = excluded.decisions,
				failures = excluded.failures,
				created_at = excluded.created_at`),
			runID, score.Strategy, day(score.Date), string(decisions), string(failures), time.Now().UTC())
		if err != nil {
			return fmt.Errorf("score run %s: %w", runID, err)
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM scores WHERE run_id = ?`), runID); err != nil {
			return err
		}

		stmt, err := tx.PreparexContext(ctx, tx.Rebind(`
			INSERT INTO scores (run_id, instrument, rank, score, contributions) VALUES (?, ?, ?, ?, ?)`))
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, r := range score.Ranked {
			contrib, err := json.Marshal(r.Contributions)
			if err != nil {
				return fmt.Errorf("marshal contributions %s: %w", r.Instrument, err)
			}
			if _, err := stmt.ExecContext(ctx, runID, r.Instrument, r.Rank, r.Score, string(contrib)); err != nil {
				return fmt.Errorf("score %s: %w", r.Instrument, err)
			}
		}
		return nil
	})
}

// WriteBacktest stores one instrument's backtest summary under runID.
func (s *Store) WriteBacktest(ctx context.Context, runID string, res *model.BacktestResult) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO backtests (run_id, instrument, strategy, horizon, total_return, sharpe,
				max_drawdown, win_rate, observations, trades, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (run_id, instrument, strategy) DO UPDATE SET
				horizon = excluded.horizon,
				total_return = excluded.total_return,
				sharpe = excluded.sharpe,
				max_drawdown = excluded.max_drawdown,
				win_rate = excluded.win_rate,
				observations = excluded.observations,
				trades = excluded.trades,
				created_at = excluded.created_at`),
			runID, res.Instrument, res.Strategy, res.Horizon, nullable(res.TotalReturn), nullable(res.Sharpe),
			nullable(res.MaxDrawdown), nullable(res.WinRate), res.Observations, res.Trades, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("backtest %s/%s: %w", res.Instrument, res.Strategy, err)
		}
		return nil
	})
}

// inTx runs fn in a transaction, rolling back on error.
func (s *Store) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqldb begin: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return fmt.Errorf("sqldb write: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqldb commit: %w", err)
	}
	if s.ObserveWrite != nil {
		s.ObserveWrite(time.Since(start))
	}
	return nil
}

func decodeJSON(s string, v any) error {
	if s == "" || s == "null" {
		return nil
	}
	if err := json.Unmarshal([]byte(s), v); err != nil {
		return fmt.Errorf("sqldb decode: %w", err)
	}
	return nil
}
