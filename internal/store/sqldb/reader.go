package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"quant-systemv1/internal/model"
)

func nan() float64 { return math.NaN() }

type barRow struct {
	Date   time.Time `db:"date"`
	Open   float64   `db:"open"`
	High   float64   `db:"high"`
	Low    float64   `db:"low"`
	Close  float64   `db:"close"`
	Volume float64   `db:"volume"`
}

// ReadSeries returns the bars of instrument with from ≤ date ≤ to, ordered
// by date. A zero from or to leaves that side open.
func (s *Store) ReadSeries(ctx context.Context, instrument string, from, to time.Time) (model.Series, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	q := `SELECT date, open, high, low, close, volume FROM bars WHERE code = ?`
	args := []any{instrument}
	if !from.IsZero() {
		q += ` AND date >= ?`
		args = append(args, day(from))
	}
	if !to.IsZero() {
		q += ` AND date <= ?`
		args = append(args, day(to))
	}
	q += ` ORDER BY date ASC`

	var rows []barRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(q), args...); err != nil {
		return model.Series{}, fmt.Errorf("sqldb read bars %s: %w", instrument, err)
	}
	out := model.Series{Instrument: instrument, Bars: make([]model.Bar, len(rows))}
	for i, r := range rows {
		out.Bars[i] = model.Bar{Date: r.Date.UTC(), Open: r.Open, High: r.High, Low: r.Low, Close: r.Close, Volume: r.Volume}
	}
	return out, nil
}

type instrumentRow struct {
	Code             string          `db:"code"`
	Name             string          `db:"name"`
	SpecialTreatment bool            `db:"special_treatment"`
	ListDate         sql.NullTime    `db:"list_date"`
	FloatShares      sql.NullFloat64 `db:"float_shares"`
}

// ReadInstruments returns every instrument ordered by code.
func (s *Store) ReadInstruments(ctx context.Context) ([]model.Instrument, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var rows []instrumentRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT code, name, special_treatment, list_date, float_shares FROM instruments ORDER BY code ASC`)
	if err != nil {
		return nil, fmt.Errorf("sqldb read instruments: %w", err)
	}
	out := make([]model.Instrument, len(rows))
	for i, r := range rows {
		out[i] = model.Instrument{
			Code:             r.Code,
			Name:             r.Name,
			SpecialTreatment: r.SpecialTreatment,
			FloatShares:      orUndefined(r.FloatShares),
		}
		if r.ListDate.Valid {
			out[i].ListDate = r.ListDate.Time.UTC()
		}
	}
	return out, nil
}

type fundamentalsRow struct {
	Instrument        string          `db:"instrument"`
	ReportDate        time.Time       `db:"report_date"`
	PublishDate       time.Time       `db:"publish_date"`
	TotalShares       sql.NullFloat64 `db:"total_shares"`
	NetProfit         sql.NullFloat64 `db:"net_profit"`
	BookValue         sql.NullFloat64 `db:"book_value"`
	Revenue           sql.NullFloat64 `db:"revenue"`
	OperatingCashFlow sql.NullFloat64 `db:"operating_cash_flow"`
	DividendPerShare  sql.NullFloat64 `db:"dividend_per_share"`
	Equity            sql.NullFloat64 `db:"equity"`
	NOPAT             sql.NullFloat64 `db:"nopat"`
	InvestedCapital   sql.NullFloat64 `db:"invested_capital"`
	COGS              sql.NullFloat64 `db:"cogs"`
	TotalAssets       sql.NullFloat64 `db:"total_assets"`
	ActualEPS         sql.NullFloat64 `db:"actual_eps"`
	ExpectedEPS       sql.NullFloat64 `db:"expected_eps"`
	StdEPS            sql.NullFloat64 `db:"std_eps"`
}

func (r fundamentalsRow) model() model.Fundamentals {
	return model.Fundamentals{
		Instrument:        r.Instrument,
		ReportDate:        r.ReportDate.UTC(),
		PublishDate:       r.PublishDate.UTC(),
		TotalShares:       orUndefined(r.TotalShares),
		NetProfit:         orUndefined(r.NetProfit),
		BookValue:         orUndefined(r.BookValue),
		Revenue:           orUndefined(r.Revenue),
		OperatingCashFlow: orUndefined(r.OperatingCashFlow),
		DividendPerShare:  orUndefined(r.DividendPerShare),
		Equity:            orUndefined(r.Equity),
		NOPAT:             orUndefined(r.NOPAT),
		InvestedCapital:   orUndefined(r.InvestedCapital),
		COGS:              orUndefined(r.COGS),
		TotalAssets:       orUndefined(r.TotalAssets),
		ActualEPS:         orUndefined(r.ActualEPS),
		ExpectedEPS:       orUndefined(r.ExpectedEPS),
		StdEPS:            orUndefined(r.StdEPS),
	}
}

// ReadFundamentals returns the report history of instrument sorted for
// as-of lookups.
func (s *Store) ReadFundamentals(ctx context.Context, instrument string) ([]model.Fundamentals, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var rows []fundamentalsRow
	err := s.db.SelectContext(ctx, &rows, s.db.Rebind(`
		SELECT instrument, report_date, publish_date, total_shares, net_profit, book_value,
		       revenue, operating_cash_flow, dividend_per_share, equity, nopat,
		       invested_capital, cogs, total_assets, actual_eps, expected_eps, std_eps
		FROM fundamentals
		WHERE instrument = ?`), instrument)
	if err != nil {
		return nil, fmt.Errorf("sqldb read fundamentals %s: %w", instrument, err)
	}
	out := make([]model.Fundamentals, len(rows))
	for i, r := range rows {
		out[i] = r.model()
	}
	model.SortFundamentals(out)
	return out, nil
}

type scoreRunRow struct {
	Strategy  string    `db:"strategy"`
	Date      time.Time `db:"date"`
	Decisions string    `db:"decisions"`
	Failures  string    `db:"failures"`
}

type scoreRow struct {
	Instrument    string  `db:"instrument"`
	Rank          int     `db:"rank"`
	Score         float64 `db:"score"`
	Contributions string  `db:"contributions"`
}

// ReadScore loads a stored selection run. A missing run returns nil, nil.
func (s *Store) ReadScore(ctx context.Context, runID string) (*model.CompositeScore, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var run scoreRunRow
	err := s.db.GetContext(ctx, &run, s.db.Rebind(
		`SELECT strategy, date, decisions, failures FROM score_runs WHERE run_id = ?`), runID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqldb read score run %s: %w", runID, err)
	}

	out := &model.CompositeScore{Date: run.Date.UTC(), Strategy: run.Strategy}
	if err := decodeJSON(run.Decisions, &out.Decisions); err != nil {
		return nil, err
	}
	if err := decodeJSON(run.Failures, &out.Failures); err != nil {
		return nil, err
	}

	var rows []scoreRow
	err = s.db.SelectContext(ctx, &rows, s.db.Rebind(
		`SELECT instrument, rank, score, contributions FROM scores WHERE run_id = ? ORDER BY rank ASC`), runID)
	if err != nil {
		return nil, fmt.Errorf("sqldb read scores %s: %w", runID, err)
	}
	out.Ranked = make([]model.RankedScore, len(rows))
	for i, r := range rows {
		out.Ranked[i] = model.RankedScore{Instrument: r.Instrument, Rank: r.Rank, Score: r.Score}
		if err := decodeJSON(r.Contributions, &out.Ranked[i].Contributions); err != nil {
			return nil, err
		}
	}
	return out, nil
}

type backtestRow struct {
	Instrument   string          `db:"instrument"`
	Strategy     string          `db:"strategy"`
	Horizon      int             `db:"horizon"`
	TotalReturn  sql.NullFloat64 `db:"total_return"`
	Sharpe       sql.NullFloat64 `db:"sharpe"`
	MaxDrawdown  sql.NullFloat64 `db:"max_drawdown"`
	WinRate      sql.NullFloat64 `db:"win_rate"`
	Observations int             `db:"observations"`
	Trades       int             `db:"trades"`
}

// ReadBacktests returns the summaries stored under runID, by instrument.
func (s *Store) ReadBacktests(ctx context.Context, runID string) ([]*model.BacktestResult, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var rows []backtestRow
	err := s.db.SelectContext(ctx, &rows, s.db.Rebind(`
		SELECT instrument, strategy, horizon, total_return, sharpe, max_drawdown, win_rate, observations, trades
		FROM backtests WHERE run_id = ? ORDER BY instrument ASC, strategy ASC`), runID)
	if err != nil {
		return nil, fmt.Errorf("sqldb read backtests %s: %w", runID, err)
	}
	out := make([]*model.BacktestResult, len(rows))
	for i, r := range rows {
		out[i] = &model.BacktestResult{
			Instrument:   r.Instrument,
			Strategy:     r.Strategy,
			Horizon:      r.Horizon,
			TotalReturn:  orUndefined(r.TotalReturn),
			Sharpe:       orUndefined(r.Sharpe),
			MaxDrawdown:  orUndefined(r.MaxDrawdown),
			WinRate:      orUndefined(r.WinRate),
			Observations: r.Observations,
			Trades:       r.Trades,
		}
	}
	return out, nil
}
