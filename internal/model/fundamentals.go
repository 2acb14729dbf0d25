package model

import (
	"sort"
	"time"
)

// Fundamentals is one reported financial statement snapshot.
// ReportDate is the period end; PublishDate is when it became public and
// is the date used for as-of lookups.
type Fundamentals struct {
	Instrument        string    `json:"instrument" db:"instrument"`
	ReportDate        time.Time `json:"report_date" db:"report_date"`
	PublishDate       time.Time `json:"publish_date" db:"publish_date"`
	TotalShares       float64   `json:"total_shares" db:"total_shares"`
	NetProfit         float64   `json:"net_profit" db:"net_profit"`
	BookValue         float64   `json:"book_value" db:"book_value"`
	Revenue           float64   `json:"revenue" db:"revenue"`
	OperatingCashFlow float64   `json:"operating_cash_flow" db:"operating_cash_flow"`
	DividendPerShare  float64   `json:"dividend_per_share" db:"dividend_per_share"`
	Equity            float64   `json:"equity" db:"equity"`
	NOPAT             float64   `json:"nopat" db:"nopat"`
	InvestedCapital   float64   `json:"invested_capital" db:"invested_capital"`
	COGS              float64   `json:"cogs" db:"cogs"`
	TotalAssets       float64   `json:"total_assets" db:"total_assets"`
	ActualEPS         float64   `json:"actual_eps" db:"actual_eps"`
	ExpectedEPS       float64   `json:"expected_eps" db:"expected_eps"`
	StdEPS            float64   `json:"std_eps" db:"std_eps"`
}

// SortFundamentals orders records by publish date, then report date.
func SortFundamentals(h []Fundamentals) {
	sort.SliceStable(h, func(i, j int) bool {
		if !h[i].PublishDate.Equal(h[j].PublishDate) {
			return h[i].PublishDate.Before(h[j].PublishDate)
		}
		return h[i].ReportDate.Before(h[j].ReportDate)
	})
}

// AsOf returns the position of the latest record published on or before
// date within a history sorted by SortFundamentals, or -1.
func AsOf(h []Fundamentals, date time.Time) int {
	idx := sort.Search(len(h), func(i int) bool { return h[i].PublishDate.After(date) })
	return idx - 1
}
