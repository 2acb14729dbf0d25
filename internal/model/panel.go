package model

import (
	"sort"
	"time"
)

// FactorPanel is the cross-section of factor values for one rebalance date.
// Undefined values are never stored: absence means undefined.
type FactorPanel struct {
	Date   time.Time                     `json:"date"`
	Values map[string]map[string]float64 `json:"values"` // instrument → factor → value
}

// NewFactorPanel returns an empty panel for date.
func NewFactorPanel(date time.Time) *FactorPanel {
	return &FactorPanel{Date: date, Values: make(map[string]map[string]float64)}
}

// Set stores v for (instrument, factor). Undefined values are dropped but
// the instrument row is still created so the instrument stays visible.
func (p *FactorPanel) Set(instrument, factor string, v float64) {
	row, ok := p.Values[instrument]
	if !ok {
		row = make(map[string]float64)
		p.Values[instrument] = row
	}
	if IsUndefined(v) {
		return
	}
	row[factor] = v
}

// AddInstrument registers an instrument with no factor values yet.
func (p *FactorPanel) AddInstrument(instrument string) {
	if _, ok := p.Values[instrument]; !ok {
		p.Values[instrument] = make(map[string]float64)
	}
}

// Get returns the value and whether it is defined.
func (p *FactorPanel) Get(instrument, factor string) (float64, bool) {
	v, ok := p.Values[instrument][factor]
	return v, ok
}

// Instruments returns the panel's instruments in ascending order.
func (p *FactorPanel) Instruments() []string {
	out := make([]string, 0, len(p.Values))
	for k := range p.Values {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Column returns the defined values of one factor keyed by instrument.
func (p *FactorPanel) Column(factor string) map[string]float64 {
	out := make(map[string]float64, len(p.Values))
	for inst, row := range p.Values {
		if v, ok := row[factor]; ok {
			out[inst] = v
		}
	}
	return out
}

// Without returns a copy of the panel minus the given instrument.
func (p *FactorPanel) Without(instrument string) *FactorPanel {
	cp := NewFactorPanel(p.Date)
	for inst, row := range p.Values {
		if inst == instrument {
			continue
		}
		r := make(map[string]float64, len(row))
		for k, v := range row {
			r[k] = v
		}
		cp.Values[inst] = r
	}
	return cp
}
