package model

import (
	"strings"
	"time"
)

// Instrument carries the static eligibility metadata of one equity.
type Instrument struct {
	Code             string    `json:"code" db:"code"`
	Name             string    `json:"name" db:"name"`
	SpecialTreatment bool      `json:"special_treatment" db:"special_treatment"`
	ListDate         time.Time `json:"list_date" db:"list_date"`
	FloatShares      float64   `json:"float_shares" db:"float_shares"`
}

// RiskWarning reports whether the instrument is flagged special-treatment
// (ST, *ST) or is in delisting, either explicitly or by its display name.
func (i Instrument) RiskWarning() bool {
	return i.SpecialTreatment || strings.Contains(i.Name, "ST") || strings.Contains(i.Name, "退")
}

// Candidate holds the per-date inputs to the eligibility filter.
type Candidate struct {
	Instrument Instrument `json:"instrument"`
	ListedDays int        `json:"listed_days"` // trading days since listing, inclusive of the date
	PctChange  float64    `json:"pct_change"`  // same-date close change in percent
	Turnover   float64    `json:"turnover"`    // same-date volume / float shares, percent
}
