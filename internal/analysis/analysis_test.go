package analysis

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quant-systemv1/internal/indicator"
	"quant-systemv1/internal/model"
)

func risingSeries(n int) model.Series {
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]model.Bar, n)
	for i := range bars {
		c := 100 + float64(i)
		bars[i] = model.Bar{Date: day.AddDate(0, 0, i), Open: c - 0.5, High: c + 1, Low: c - 1, Close: c, Volume: 1e6}
	}
	return model.Series{Instrument: "600519", Bars: bars}
}

func TestClassifyMACD(t *testing.T) {
	nan := math.NaN()
	tests := []struct {
		name     string
		dif, dea []float64
		want     MACDSignal
	}{
		{"golden", []float64{0, 1}, []float64{0.5, 0.5}, MACDGoldenCross},
		{"death", []float64{1, 0.2}, []float64{0.5, 0.5}, MACDDeathCross},
		{"strong bullish", []float64{1, 2}, []float64{0.5, 0.5}, MACDStrongBullish},
		{"early bullish", []float64{-2, -1}, []float64{-3, -3}, MACDEarlyBullish},
		{"strong bearish", []float64{-1, -2}, []float64{0, 0}, MACDStrongBearish},
		{"early bearish", []float64{0.2, 0.3}, []float64{0.5, 0.5}, MACDEarlyBearish},
		{"warm-up", []float64{nan, nan}, []float64{nan, nan}, MACDUnavailable},
		{"first defined bar", []float64{nan, 1}, []float64{nan, 0.5}, MACDStrongBullish},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyMACD(tt.dif, tt.dea, 1))
		})
	}
}

func TestClassifyKDJ(t *testing.T) {
	tests := []struct {
		name string
		k, d []float64
		want KDJSignal
	}{
		{"oversold golden", []float64{10, 15}, []float64{12, 14}, KDJStrongBuy},
		{"golden", []float64{30, 40}, []float64{35, 38}, KDJBuy},
		{"high golden", []float64{55, 60}, []float64{58, 59}, KDJHighCross},
		{"overbought death", []float64{90, 85}, []float64{88, 86}, KDJStrongSell},
		{"death", []float64{70, 60}, []float64{65, 62}, KDJSell},
		{"low death", []float64{45, 40}, []float64{42, 41}, KDJLowCross},
		{"overbought zone", []float64{85, 86}, []float64{80, 81}, KDJOverbought},
		{"oversold zone", []float64{10, 12}, []float64{15, 16}, KDJOversold},
		{"neutral", []float64{50, 50}, []float64{50, 50}, KDJNeutral},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyKDJ(tt.k, tt.d, 1))
		})
	}
}

func TestClassifyRSI(t *testing.T) {
	assert.Equal(t, RSISeverelyOverbought, ClassifyRSI(85))
	assert.Equal(t, RSIOverbought, ClassifyRSI(80))
	assert.Equal(t, RSIOverbought, ClassifyRSI(75))
	assert.Equal(t, RSINeutral, ClassifyRSI(70))
	assert.Equal(t, RSINeutral, ClassifyRSI(30))
	assert.Equal(t, RSIOversold, ClassifyRSI(25))
	assert.Equal(t, RSISeverelyOversold, ClassifyRSI(10))
	assert.Equal(t, RSIUnavailable, ClassifyRSI(math.NaN()))
}

func TestClassifyBOLL(t *testing.T) {
	assert.Equal(t, BOLLOverbought, ClassifyBOLL(12, 11, 10, 9))
	assert.Equal(t, BOLLOversold, ClassifyBOLL(8, 11, 10, 9))
	assert.Equal(t, BOLLBullish, ClassifyBOLL(10.5, 11, 10, 9))
	assert.Equal(t, BOLLBearish, ClassifyBOLL(10, 11, 10, 9))
	assert.Equal(t, BOLLUnavailable, ClassifyBOLL(10, math.NaN(), 10, 9))
}

func TestTechnicalScore(t *testing.T) {
	bull := TechnicalScore(Signals{MACDGoldenCross, KDJStrongBuy, RSIOversold, BOLLOversold, indicator.TrendUp})
	assert.Equal(t, Score{Raw: 115, Value: 100, Stars: 5, Rating: RatingStrongBuy}, bull)

	bear := TechnicalScore(Signals{MACDDeathCross, KDJStrongSell, RSISeverelyOverbought, BOLLOverbought, indicator.TrendDown})
	assert.Equal(t, Score{Raw: -15, Value: 0, Stars: 1, Rating: RatingStrongSell}, bear)

	// KDJ high cross and neutral RSI add nothing
	mixed := TechnicalScore(Signals{MACDEarlyBullish, KDJHighCross, RSINeutral, BOLLBearish, indicator.TrendRanging})
	assert.Equal(t, 60, mixed.Raw)
	assert.Equal(t, 3, mixed.Stars)

	none := TechnicalScore(Signals{MACDUnavailable, KDJUnavailable, RSIUnavailable, BOLLUnavailable, indicator.TrendUnknown})
	assert.Equal(t, BaseScore, none.Raw)
}

func TestTier(t *testing.T) {
	tests := []struct {
		raw   int
		stars int
		want  Rating
	}{
		{80, 5, RatingStrongBuy},
		{79, 4, RatingBuy},
		{65, 4, RatingBuy},
		{64, 3, RatingNeutral},
		{50, 3, RatingNeutral},
		{49, 2, RatingSell},
		{35, 2, RatingSell},
		{34, 1, RatingStrongSell},
	}
	for _, tt := range tests {
		stars, rating := Tier(tt.raw)
		assert.Equal(t, tt.stars, stars, "raw %d", tt.raw)
		assert.Equal(t, tt.want, rating, "raw %d", tt.raw)
	}
}

func TestAnalyze_RisingSeries(t *testing.T) {
	r, err := Analyze(risingSeries(80))
	require.NoError(t, err)

	assert.Equal(t, 179.0, r.Price)
	assert.InDelta(t, (179.0/178-1)*100, r.ChangePct, 1e-12)
	assert.Equal(t, indicator.TrendUp, r.Trend)
	assert.Equal(t, 159.0, r.Support)
	assert.Equal(t, 180.0, r.Resistance)
	assert.InDelta(t, 179.0, r.Pivot, 1e-12)
	assert.InDelta(t, 2.0, r.ATR, 1e-12)
	assert.InDelta(t, 169.5, r.Mid, 1e-9)

	assert.Equal(t, MACDStrongBullish, r.Signals.MACD)
	assert.Equal(t, KDJOverbought, r.Signals.KDJ)
	assert.Equal(t, RSISeverelyOverbought, r.Signals.RSI)
	assert.Equal(t, BOLLBullish, r.Signals.BOLL)

	// 50 + 15 (MACD) + 0 (KDJ) - 10 (RSI) + 5 (BOLL) + 15 (trend)
	assert.Equal(t, 75, r.Score.Value)
	assert.Equal(t, 4, r.Score.Stars)
	assert.Equal(t, RatingBuy, r.Score.Rating)
}

func TestFrame_AtIsCausal(t *testing.T) {
	s := risingSeries(80)
	s.Bars[70].Close = 150 // disturb a later bar
	s.Bars[70].Low = 149

	f, err := NewFrame(s)
	require.NoError(t, err)

	prefix, err := Analyze(s.Upto(65))
	require.NoError(t, err)
	at := f.At(65)
	assert.Equal(t, prefix.Score, at.Score)
	assert.Equal(t, prefix.Signals, at.Signals)
	assert.Equal(t, prefix.DIF, at.DIF)
	assert.Equal(t, prefix.K, at.K)
}

func TestAnalyze_Insufficient(t *testing.T) {
	_, err := Analyze(risingSeries(MinBars - 1))
	var ins *model.InsufficientDataError
	require.ErrorAs(t, err, &ins)
	assert.Equal(t, MinBars, ins.Need)
	assert.Equal(t, "600519", ins.Instrument)
}

func TestFrame_WarmUpSignalsUnavailable(t *testing.T) {
	f, err := NewFrame(risingSeries(30))
	require.NoError(t, err)
	r := f.At(5)
	assert.Equal(t, MACDUnavailable, r.Signals.MACD)
	assert.Equal(t, KDJUnavailable, r.Signals.KDJ)
	assert.Equal(t, RSIUnavailable, r.Signals.RSI)
	assert.Equal(t, BOLLUnavailable, r.Signals.BOLL)
	assert.Equal(t, indicator.TrendUnknown, r.Trend)
	assert.Equal(t, BaseScore, r.Score.Raw)
}
