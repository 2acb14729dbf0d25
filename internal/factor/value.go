package factor

import (
	"math"

	"quant-systemv1/internal/model"
)

func init() {
	register("EP", CategoryValue, model.Descending, fundOverCap(func(r model.Fundamentals) float64 { return r.NetProfit }))
	register("BP", CategoryValue, model.Descending, fundOverCap(func(r model.Fundamentals) float64 { return r.BookValue }))
	register("SP", CategoryValue, model.Descending, fundOverCap(func(r model.Fundamentals) float64 { return r.Revenue }))
	register("CFP", CategoryValue, model.Descending, fundOverCap(func(r model.Fundamentals) float64 { return r.OperatingCashFlow }))
	register("DP", CategoryValue, model.Descending, dividendYield)
	register("PE", CategoryValue, model.Ascending, priceToEarnings)
	register("PB", CategoryValue, model.Ascending, priceToBook)
	register("IMPLIED_ROE", CategoryQuality, model.Descending, impliedROE)

	register("SIZE", CategorySize, model.Descending, func(f *frame, t int, _ Params) float64 {
		return -math.Log(f.marketCap(t))
	})
	register("NLSIZE", CategorySize, model.Ascending, func(f *frame, t int, _ Params) float64 {
		return math.Cbrt(f.marketCap(t))
	})
}

// fundOverCap builds a yield factor: field / market cap.
func fundOverCap(field func(model.Fundamentals) float64) func(*frame, int, Params) float64 {
	return func(f *frame, t int, _ Params) float64 {
		r, ok := f.report(t)
		if !ok {
			return math.NaN()
		}
		return ratio(field(r), f.marketCap(t))
	}
}

func dividendYield(f *frame, t int, _ Params) float64 {
	r, ok := f.report(t)
	if !ok {
		return math.NaN()
	}
	return ratio(r.DividendPerShare, f.close[t])
}

// priceToEarnings is undefined for loss-making instruments.
func priceToEarnings(f *frame, t int, _ Params) float64 {
	r, ok := f.report(t)
	if !ok {
		return math.NaN()
	}
	return ratio(f.marketCap(t), r.NetProfit)
}

func priceToBook(f *frame, t int, _ Params) float64 {
	r, ok := f.report(t)
	if !ok {
		return math.NaN()
	}
	return ratio(f.marketCap(t), r.BookValue)
}

// impliedROE approximates ROE from valuation multiples: 1/(PE·PB + 0.01).
func impliedROE(f *frame, t int, p Params) float64 {
	pe, pb := priceToEarnings(f, t, p), priceToBook(f, t, p)
	if math.IsNaN(pe) || math.IsNaN(pb) {
		return math.NaN()
	}
	return 1 / (pe*pb + 0.01)
}
