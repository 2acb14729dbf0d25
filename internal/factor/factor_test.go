package factor

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quant-systemv1/internal/batch"
	"quant-systemv1/internal/model"
)

var start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func day(i int) time.Time { return start.AddDate(0, 0, i) }

// series builds daily bars with the given closes; high/low are ±1%.
func series(code string, closes []float64) model.Series {
	bars := make([]model.Bar, len(closes))
	for i, c := range closes {
		bars[i] = model.Bar{Date: day(i), Open: c, High: c * 1.01, Low: c * 0.99, Close: c, Volume: 1e5 + float64(i)*1e3}
	}
	return model.Series{Instrument: code, Bars: bars}
}

func linear(n int, from, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = from + step*float64(i)
	}
	return out
}

func inputs(code string, closes []float64, reports ...model.Fundamentals) Inputs {
	return Inputs{
		Instrument:   model.Instrument{Code: code, Name: "Test " + code, FloatShares: 1e6},
		Series:       series(code, closes),
		Fundamentals: reports,
	}
}

func TestValueFactors(t *testing.T) {
	rep := model.Fundamentals{
		Instrument:        "A",
		PublishDate:       day(2),
		TotalShares:       1e6,
		NetProfit:         2e6,
		BookValue:         4e6,
		Revenue:           1e7,
		OperatingCashFlow: 3e6,
		DividendPerShare:  0.5,
	}
	closes := make([]float64, 10)
	for i := range closes {
		closes[i] = 20
	}
	in := inputs("A", closes, rep)

	got, err := ComputeAt(in, 5, []string{"EP", "BP", "SP", "CFP", "DP", "PE", "PB", "IMPLIED_ROE", "SIZE", "NLSIZE"}, DefaultParams())
	require.NoError(t, err)

	// market cap = 20 × 1e6 = 2e7
	assert.InDelta(t, 0.1, got["EP"], 1e-12)
	assert.InDelta(t, 0.2, got["BP"], 1e-12)
	assert.InDelta(t, 0.5, got["SP"], 1e-12)
	assert.InDelta(t, 0.15, got["CFP"], 1e-12)
	assert.InDelta(t, 0.025, got["DP"], 1e-12)
	assert.InDelta(t, 10, got["PE"], 1e-9)
	assert.InDelta(t, 5, got["PB"], 1e-9)
	assert.InDelta(t, 1/(50+0.01), got["IMPLIED_ROE"], 1e-12)
	assert.InDelta(t, -math.Log(2e7), got["SIZE"], 1e-9)
	assert.InDelta(t, math.Cbrt(2e7), got["NLSIZE"], 1e-6)
}

func TestValueFactors_NoLookahead(t *testing.T) {
	rep := model.Fundamentals{PublishDate: day(5), TotalShares: 1e6, NetProfit: 1e6, BookValue: 1e6}
	in := inputs("A", linear(10, 10, 0), rep)

	before, err := ComputeAt(in, 4, []string{"EP"}, DefaultParams())
	require.NoError(t, err)
	assert.True(t, math.IsNaN(before["EP"]), "report published after the bar must not be visible")

	on, err := ComputeAt(in, 5, []string{"EP"}, DefaultParams())
	require.NoError(t, err)
	assert.InDelta(t, 0.1, on["EP"], 1e-12)
}

func TestValueFactors_Degenerate(t *testing.T) {
	loss := model.Fundamentals{PublishDate: day(0), TotalShares: 1e6, NetProfit: -5e5, BookValue: 0}
	in := inputs("A", linear(5, 10, 0), loss)

	got, err := ComputeAt(in, 3, []string{"EP", "PE", "PB", "IMPLIED_ROE"}, DefaultParams())
	require.NoError(t, err)
	assert.InDelta(t, -0.05, got["EP"], 1e-12) // negative yield stays defined
	assert.True(t, math.IsNaN(got["PE"]))
	assert.True(t, math.IsNaN(got["PB"]))
	assert.True(t, math.IsNaN(got["IMPLIED_ROE"]))

	noShares := model.Fundamentals{PublishDate: day(0), NetProfit: 1e6}
	got, err = ComputeAt(inputs("B", linear(5, 10, 0), noShares), 3, []string{"EP", "SIZE"}, DefaultParams())
	require.NoError(t, err)
	assert.True(t, math.IsNaN(got["EP"]), "zero market cap")
	assert.True(t, math.IsNaN(got["SIZE"]))
}

func TestMomentumFactors(t *testing.T) {
	closes := linear(30, 10, 0.5) // 10, 10.5, ... 24.5
	in := inputs("A", closes)
	p := DefaultParams()

	got, err := ComputeAt(in, 25, []string{"MOM", "REV", "PCT_CHG", "AMPLITUDE"}, p)
	require.NoError(t, err)
	assert.InDelta(t, closes[25]/closes[5]-1, got["MOM"], 1e-12)
	assert.InDelta(t, -(closes[25]/closes[20] - 1), got["REV"], 1e-12)
	assert.InDelta(t, (closes[25]/closes[24]-1)*100, got["PCT_CHG"], 1e-9)
	assert.InDelta(t, (closes[25]*0.02)/closes[24]*100, got["AMPLITUDE"], 1e-9)

	early, err := ComputeAt(in, 10, []string{"MOM"}, p)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(early["MOM"]), "MOM needs 20 bars of history")
}

func TestVolumeFactors(t *testing.T) {
	in := inputs("A", linear(30, 10, 0))
	for i := range in.Series.Bars {
		in.Series.Bars[i].Volume = 100
	}
	in.Series.Bars[29].Volume = 300

	got, err := ComputeAt(in, 29, []string{"VOL_MOM", "VOL_RATIO", "TURN", "TURNOVER"}, DefaultParams())
	require.NoError(t, err)
	// short mean (4×100+300)/5 = 140, long mean (19×100+300)/20 = 110
	assert.InDelta(t, 140.0/110.0, got["VOL_MOM"], 1e-12)
	assert.InDelta(t, 3.0, got["VOL_RATIO"], 1e-12)
	assert.InDelta(t, 110.0/1e6, got["TURN"], 1e-15)
	assert.InDelta(t, 300.0/1e6*100, got["TURNOVER"], 1e-12)
}

func TestRSRS_Slope(t *testing.T) {
	in := inputs("A", linear(25, 10, 0.3))
	for i := range in.Series.Bars {
		b := &in.Series.Bars[i]
		b.Low = b.Close - 0.5
		b.High = 2*b.Low + 1
	}
	s, err := Series(in, "RSRS", DefaultParams())
	require.NoError(t, err)
	for i := 0; i < 17; i++ {
		assert.True(t, math.IsNaN(s[i]), "index %d inside warm-up", i)
	}
	for i := 17; i < len(s); i++ {
		assert.InDelta(t, 2.0, s[i], 1e-9)
	}
}

func TestVolatilityFactors(t *testing.T) {
	market := linear(80, 100, 0)
	closes := make([]float64, 80)
	closes[0], market[0] = 10, 100
	for i := 1; i < 80; i++ {
		m := 0.01 * math.Sin(float64(i))
		market[i] = market[i-1] * (1 + m)
		closes[i] = closes[i-1] * (1 + 1.5*m)
	}
	in := inputs("A", closes)
	in.Market = series("MKT", market)

	got, err := ComputeAt(in, 79, []string{"VOL", "IVOL", "CORR", "SKEW"}, DefaultParams())
	require.NoError(t, err)
	assert.Greater(t, got["VOL"], 0.0)
	assert.InDelta(t, 0.0, got["IVOL"], 1e-9, "returns are an exact multiple of the market's")
	assert.InDelta(t, 1.0, got["CORR"], 1e-9)
	assert.False(t, math.IsNaN(got["SKEW"]))

	// market history missing → undefined, not zero
	in.Market = model.Series{}
	got, err = ComputeAt(in, 79, []string{"IVOL", "CORR"}, DefaultParams())
	require.NoError(t, err)
	assert.True(t, math.IsNaN(got["IVOL"]))
	assert.True(t, math.IsNaN(got["CORR"]))
}

func TestVOL_ConstantReturns(t *testing.T) {
	closes := make([]float64, 25)
	closes[0] = 10
	for i := 1; i < len(closes); i++ {
		closes[i] = closes[i-1] * 1.02
	}
	got, err := ComputeAt(inputs("A", closes), 24, []string{"VOL"}, DefaultParams())
	require.NoError(t, err)
	assert.InDelta(t, 0.0, got["VOL"], 1e-12)
}

func TestSkewness(t *testing.T) {
	assert.InDelta(t, -0.2537231153975986, Skewness([]float64{0.01, -0.02, 0.03, 0.015, -0.005}), 1e-12)
	assert.True(t, math.IsNaN(Skewness([]float64{1, 1, 1, 1})))
	assert.True(t, math.IsNaN(Skewness([]float64{1, 2})))
}

func TestILLIQ_ZeroVolume(t *testing.T) {
	in := inputs("A", linear(30, 10, 0.1))
	got, err := ComputeAt(in, 29, []string{"ILLIQ"}, DefaultParams())
	require.NoError(t, err)
	assert.Greater(t, got["ILLIQ"], 0.0)

	in.Series.Bars[25].Volume = 0
	got, err = ComputeAt(in, 29, []string{"ILLIQ"}, DefaultParams())
	require.NoError(t, err)
	assert.True(t, math.IsNaN(got["ILLIQ"]))
}

func TestQualityAndGrowth(t *testing.T) {
	var reports []model.Fundamentals
	for q := 0; q < 5; q++ {
		reports = append(reports, model.Fundamentals{
			ReportDate:        day(q * 2),
			PublishDate:       day(q*2 + 1),
			TotalShares:       1e6,
			Revenue:           100 + 5*float64(q),
			NetProfit:         -10 + 1.25*float64(q),
			Equity:            50,
			NOPAT:             12,
			InvestedCapital:   48,
			COGS:              60,
			OperatingCashFlow: 4,
			TotalAssets:       200,
			ActualEPS:         1.2,
			ExpectedEPS:       1.0,
			StdEPS:            0.1,
		})
	}
	// reverse the order to prove sorting happens on use
	for i, j := 0, len(reports)-1; i < j; i, j = i+1, j-1 {
		reports[i], reports[j] = reports[j], reports[i]
	}
	in := inputs("A", linear(12, 10, 0), reports...)

	got, err := ComputeAt(in, 10, []string{"ROE", "ROIC", "GP", "ACCRUAL", "SUE", "REVG", "EPG"}, DefaultParams())
	require.NoError(t, err)
	// as-of report is q=4: revenue 120, net profit -5
	assert.InDelta(t, -5.0/50, got["ROE"], 1e-12)
	assert.InDelta(t, 0.25, got["ROIC"], 1e-12)
	assert.InDelta(t, 0.5, got["GP"], 1e-12)
	assert.InDelta(t, (-5.0-4)/200, got["ACCRUAL"], 1e-12)
	assert.InDelta(t, 2.0, got["SUE"], 1e-9)
	assert.InDelta(t, 0.2, got["REVG"], 1e-12)
	assert.InDelta(t, 0.5, got["EPG"], 1e-12, "loss shrinking from -10 to -5 is growth")

	// only four reports visible at bar 7 → no year-ago base
	early, err := ComputeAt(in, 7, []string{"REVG"}, DefaultParams())
	require.NoError(t, err)
	assert.True(t, math.IsNaN(early["REVG"]))
}

func TestComputeAt_Errors(t *testing.T) {
	in := inputs("A", linear(5, 10, 1))

	_, err := ComputeAt(in, 2, []string{"NOPE"}, DefaultParams())
	require.Error(t, err)
	assert.Equal(t, model.KindInvalidInput, model.ErrKind(err))

	_, err = ComputeAt(in, 9, []string{"MOM"}, DefaultParams())
	require.Error(t, err)

	in.Series.Bars[3].Close = -1
	_, err = ComputeAt(in, 2, []string{"MOM"}, DefaultParams())
	require.Error(t, err)
	assert.Equal(t, model.KindInvalidInput, model.ErrKind(err))
}

func TestSeries_Causal(t *testing.T) {
	closes := make([]float64, 70)
	for i := range closes {
		closes[i] = 10 + math.Sin(float64(i)/3) + 0.05*float64(i)
	}
	in := inputs("A", closes)
	names := []string{"MOM", "REV", "VOL", "SKEW", "RSRS", "VOL_MOM", "ILLIQ", "AMPLITUDE"}

	for _, name := range names {
		full, err := Series(in, name, DefaultParams())
		require.NoError(t, err)
		for _, t0 := range []int{25, 40, 69} {
			trunc := in
			trunc.Series = in.Series.Upto(t0)
			v, err := ComputeAt(trunc, t0, []string{name}, DefaultParams())
			require.NoError(t, err)
			if math.IsNaN(full[t0]) {
				assert.True(t, math.IsNaN(v[name]), "%s@%d", name, t0)
				continue
			}
			assert.Equal(t, full[t0], v[name], "%s@%d must not depend on later bars", name, t0)
		}
	}
}

func TestBuildPanel(t *testing.T) {
	rep := func(shares float64) model.Fundamentals {
		return model.Fundamentals{PublishDate: day(0), TotalShares: shares, NetProfit: 1e6, BookValue: 2e6}
	}
	universe := []Inputs{
		inputs("A", linear(30, 10, 0), rep(1e7)),
		inputs("B", linear(30, 10, 0), rep(1e8)),
		inputs("C", linear(10, 10, 0), rep(1e9)), // no bar on the panel date
		inputs("D", linear(30, 10, 0)),            // no fundamentals
	}
	date := day(25)

	panel, failures := BuildPanel(context.Background(), date, universe, []string{"EP", "MOM", "SIZE"}, DefaultParams(), batch.Options{Workers: 2})

	require.Len(t, failures, 1)
	assert.Equal(t, "C", failures[0].Instrument)
	assert.Equal(t, model.KindInsufficientData, failures[0].Kind)
	assert.Equal(t, "factor", failures[0].Stage)

	assert.Equal(t, []string{"A", "B", "D"}, panel.Instruments())
	ep, ok := panel.Get("A", "EP")
	require.True(t, ok)
	assert.InDelta(t, 1e6/(10*1e7), ep, 1e-15)

	_, ok = panel.Get("D", "EP")
	assert.False(t, ok, "undefined values are absent, not zero")
	mom, ok := panel.Get("D", "MOM")
	require.True(t, ok)
	assert.InDelta(t, 0.0, mom, 1e-12)
}

func TestMidCapPreference(t *testing.T) {
	panel := model.NewFactorPanel(day(0))
	panel.Set("S", "SIZE", -math.Log(1e8))
	panel.Set("M", "SIZE", -math.Log(1e9))
	panel.Set("L", "SIZE", -math.Log(1e10))
	panel.AddInstrument("X") // no size

	MidCapPreference(panel)

	m, ok := panel.Get("M", MidCap)
	require.True(t, ok)
	assert.InDelta(t, 0.0, m, 1e-12)
	s, _ := panel.Get("S", MidCap)
	l, _ := panel.Get("L", MidCap)
	assert.InDelta(t, -math.Log(10), s, 1e-9)
	assert.InDelta(t, -math.Log(10), l, 1e-9)
	_, ok = panel.Get("X", MidCap)
	assert.False(t, ok)
}

func TestCatalog(t *testing.T) {
	for _, name := range []string{"EP", "BP", "SP", "CFP", "DP", "MOM", "REV", "VOL_MOM", "RSRS", "ROE", "ROIC", "GP", "ACCRUAL",
		"SIZE", "NLSIZE", "VOL", "IVOL", "SKEW", "TURN", "ILLIQ", "CORR", "SUE", "REVG", "EPG"} {
		s, ok := Lookup(name)
		require.True(t, ok, name)
		assert.True(t, s.Direction.Valid(), name)
		assert.NotEmpty(t, s.Category, name)
	}
	pe, _ := Lookup("PE")
	assert.Equal(t, model.Ascending, pe.Direction)
	assert.Contains(t, Names(), MidCap)
}
