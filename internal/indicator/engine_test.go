package indicator

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quant-systemv1/internal/model"
)

func makeSeries(instrument string, closes []float64) model.Series {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]model.Bar, len(closes))
	for i, c := range closes {
		bars[i] = model.Bar{
			Date:   start.AddDate(0, 0, i),
			Open:   c,
			High:   c + 0.5,
			Low:    c - 0.5,
			Close:  c,
			Volume: 1000 + float64(i),
		}
	}
	return model.Series{Instrument: instrument, Bars: bars}
}

func TestEngine_SMA20(t *testing.T) {
	engine := NewEngine([]Config{{Type: "SMA", Period: 20}})

	closes := make([]float64, 25)
	for i := range closes {
		closes[i] = 100
	}
	results, failures := engine.Process(makeSeries("600519", closes))
	require.Empty(t, failures)
	require.Len(t, results, 1)

	r := results[0]
	assert.Equal(t, "SMA_20", r.Name)
	assert.Equal(t, "600519", r.Instrument)
	assert.Len(t, r.Dates, 25)
	sma := r.Line("SMA")
	for i := 0; i < 19; i++ {
		assert.True(t, math.IsNaN(sma[i]), "warm-up index %d must be undefined", i)
	}
	for i := 19; i < 25; i++ {
		assert.InDelta(t, 100.0, sma[i], 1e-9)
	}
}

func TestEngine_DefaultCatalogue(t *testing.T) {
	closes := make([]float64, 130)
	for i := range closes {
		closes[i] = 10 + math.Sin(float64(i)/5)
	}
	results, failures := NewEngine(nil).Process(makeSeries("000001", closes))
	require.Empty(t, failures)

	names := make([]string, len(results))
	for i, r := range results {
		names[i] = r.Name
	}
	assert.Equal(t, []string{"MA", "VOLMA", "MACD_12_26_9", "KDJ_9_3_3", "RSI_14", "WR_14", "BOLL_20_2", "ATR_14", "OBV"}, names)

	for _, r := range results {
		for _, l := range r.Lines {
			assert.Len(t, l.Values, len(closes), "%s/%s must align with the series", r.Name, l.Name)
		}
	}
}

func TestEngine_FailureIsolation(t *testing.T) {
	engine := NewEngine([]Config{
		{Type: "SMA", Period: 5},
		{Type: "MACD", Fast: 12, Slow: 26, Signal: 9},
		{Type: "RSI", Period: 3},
	})

	results, failures := engine.Process(makeSeries("000002", []float64{1, 2, 3, 4, 5, 6}))
	require.Len(t, results, 2)
	require.Len(t, failures, 1)

	f := failures[0]
	assert.Equal(t, model.KindInsufficientData, f.Kind)
	assert.Equal(t, "000002", f.Instrument)
	assert.Equal(t, "indicator", f.Stage)

	var ins *model.InsufficientDataError
	require.ErrorAs(t, f, &ins)
	assert.Equal(t, 26, ins.Need)
	assert.Equal(t, 6, ins.Have)
}

func TestEngine_NonPositiveLookback(t *testing.T) {
	engine := NewEngine([]Config{
		{Type: "KDJ", Period: 0, Fast: 3, Slow: 3},
		{Type: "KDJ", Period: 9, Fast: 0, Slow: 3},
		{Type: "WR"},
		{Type: "MACD", Fast: 12},
		{Type: "SMA", Period: -2},
		{Type: "EMA"},
		{Type: "STD"},
		{Type: "RSI"},
		{Type: "BOLL", K: 2},
		{Type: "ATR", Period: -1},
		{Type: "SMA", Period: 3},
	})

	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 10 + float64(i%7)
	}
	var (
		results  []model.IndicatorResult
		failures []model.Failure
	)
	require.NotPanics(t, func() { results, failures = engine.Process(makeSeries("000003", closes)) })

	require.Len(t, results, 1)
	assert.Equal(t, "SMA_3", results[0].Name)
	require.Len(t, failures, 10)
	for _, f := range failures {
		assert.Equal(t, model.KindInvalidInput, f.Kind)
		var inv *model.InvalidInputError
		require.ErrorAs(t, f, &inv)
		assert.Equal(t, "000003", inv.Instrument)
		assert.Contains(t, inv.Reason, "lookback must be at least 1")
	}

	_, err := MACD(closes, 12, 26, 0)
	assert.Equal(t, model.KindInvalidInput, model.ErrKind(err))
	_, err = SupportResistance(closes, closes, closes, 0)
	assert.Equal(t, model.KindInvalidInput, model.ErrKind(err))
}

func TestEngine_InvalidSeries(t *testing.T) {
	s := makeSeries("BAD", []float64{1, 2, 3})
	s.Bars[2].Date = s.Bars[0].Date

	results, failures := NewEngine(nil).Process(s)
	assert.Empty(t, results)
	require.Len(t, failures, 1)
	assert.Equal(t, model.KindInvalidInput, failures[0].Kind)
}

func TestCompute_UnknownType(t *testing.T) {
	_, err := Compute(makeSeries("X", []float64{1, 2, 3}), Config{Type: "FOO", Period: 2})
	require.Error(t, err)
	assert.Equal(t, model.KindInvalidInput, model.ErrKind(err))
}

func TestCompute_Deterministic(t *testing.T) {
	closes := []float64{10, 10.4, 10.1, 10.8, 11.2, 10.9, 11.5, 11.1, 11.9, 12.3, 12.0, 12.6, 12.2, 12.9, 13.4, 13.0}
	s := makeSeries("X", closes)
	cfg := Config{Type: "KDJ", Period: 9, Fast: 3, Slow: 3}

	a, err := Compute(s, cfg)
	require.NoError(t, err)
	b, err := Compute(s, cfg)
	require.NoError(t, err)
	for i := range a.Lines {
		for j := range a.Lines[i].Values {
			x, y := a.Lines[i].Values[j], b.Lines[i].Values[j]
			if math.IsNaN(x) {
				assert.True(t, math.IsNaN(y))
				continue
			}
			assert.Equal(t, x, y)
		}
	}
}

func TestConfig_Name(t *testing.T) {
	cases := []struct {
		cfg  Config
		want string
	}{
		{Config{Type: "sma", Period: 20}, "SMA_20"},
		{Config{Type: "MACD", Fast: 12, Slow: 26, Signal: 9}, "MACD_12_26_9"},
		{Config{Type: "BOLL", Period: 20, K: 2.5}, "BOLL_20_2.5"},
		{Config{Type: "OBV"}, "OBV"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.cfg.Name())
	}
}
