package factor

import (
	"math"

	"quant-systemv1/internal/model"
)

func init() {
	register("ROE", CategoryQuality, model.Descending, fromReport(func(r model.Fundamentals) float64 {
		return ratio(r.NetProfit, r.Equity)
	}))
	register("ROIC", CategoryQuality, model.Descending, fromReport(func(r model.Fundamentals) float64 {
		return ratio(r.NOPAT, r.InvestedCapital)
	}))
	register("GP", CategoryQuality, model.Descending, fromReport(func(r model.Fundamentals) float64 {
		return ratio(r.Revenue-r.COGS, r.Revenue)
	}))
	register("ACCRUAL", CategoryQuality, model.Ascending, fromReport(func(r model.Fundamentals) float64 {
		return ratio(r.NetProfit-r.OperatingCashFlow, r.TotalAssets)
	}))

	register("SUE", CategoryGrowth, model.Descending, fromReport(func(r model.Fundamentals) float64 {
		return ratio(r.ActualEPS-r.ExpectedEPS, r.StdEPS)
	}))
	register("REVG", CategoryGrowth, model.Descending, growth(func(r model.Fundamentals) float64 { return r.Revenue }))
	register("EPG", CategoryGrowth, model.Descending, growth(func(r model.Fundamentals) float64 { return r.NetProfit }))
}

func fromReport(fn func(model.Fundamentals) float64) func(*frame, int, Params) float64 {
	return func(f *frame, t int, _ Params) float64 {
		r, ok := f.report(t)
		if !ok {
			return math.NaN()
		}
		return fn(r)
	}
}

// growth is the change against the report GrowthLag positions earlier,
// divided by that base's magnitude so a shrinking loss reads as growth.
func growth(field func(model.Fundamentals) float64) func(*frame, int, Params) float64 {
	return func(f *frame, t int, p Params) float64 {
		now, prev, ok := f.reportLag(t, p.GrowthLag)
		if !ok {
			return math.NaN()
		}
		base := field(prev)
		if base == 0 {
			return math.NaN()
		}
		return (field(now) - base) / math.Abs(base)
	}
}
