package model

import (
	"context"
	"time"
)

// ── Storage Port Interfaces ──
// These interfaces decouple the screening and backtest pipelines from the
// concrete stores (SQL, Redis). Each store satisfies one or more of them.

// SeriesReader loads daily bar history.
type SeriesReader interface {
	// ReadSeries returns bars for instrument with from ≤ date ≤ to, in date order.
	ReadSeries(ctx context.Context, instrument string, from, to time.Time) (Series, error)
}

// UniverseReader loads instrument metadata and per-date eligibility inputs.
type UniverseReader interface {
	// ReadInstruments returns every known instrument ordered by code.
	ReadInstruments(ctx context.Context) ([]Instrument, error)
}

// FundamentalsReader loads financial report history.
type FundamentalsReader interface {
	// ReadFundamentals returns reports for instrument ordered by publish date.
	ReadFundamentals(ctx context.Context, instrument string) ([]Fundamentals, error)
}

// ResultWriter persists selections and backtest statistics.
type ResultWriter interface {
	WriteScore(ctx context.Context, runID string, score *CompositeScore) error
	WriteBacktest(ctx context.Context, runID string, result *BacktestResult) error
}

// PanelCache caches factor panels keyed by date and factor set.
// A miss returns nil, nil.
type PanelCache interface {
	GetPanel(ctx context.Context, key string) (*FactorPanel, error)
	PutPanel(ctx context.Context, key string, panel *FactorPanel) error
}

// SelectionPublisher announces a finished selection to downstream consumers.
type SelectionPublisher interface {
	PublishSelection(ctx context.Context, runID string, score *CompositeScore) error
}
