package pattern

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quant-systemv1/internal/model"
)

var day0 = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

// ohlc builds a series from {open, high, low, close} rows.
func ohlc(rows ...[4]float64) model.Series {
	bars := make([]model.Bar, len(rows))
	for i, r := range rows {
		bars[i] = model.Bar{Date: day0.AddDate(0, 0, i), Open: r[0], High: r[1], Low: r[2], Close: r[3], Volume: 1000}
	}
	return model.Series{Instrument: "000001", Bars: bars}
}

func kinds(events []model.PatternEvent) []model.PatternKind {
	out := make([]model.PatternKind, len(events))
	for i, e := range events {
		out[i] = e.Kind
	}
	return out
}

func TestThreeWhiteSoldiers(t *testing.T) {
	s := ohlc(
		[4]float64{9, 10.2, 8.9, 10},
		[4]float64{10, 11.2, 9.9, 11},
		[4]float64{11, 12.2, 10.9, 12},
	)
	d := NewDetector(DefaultConfig())

	events := d.DetectAt(s, 2)
	require.Contains(t, kinds(events), model.PatternThreeWhiteSoldiers)
	for _, e := range events {
		if e.Kind == model.PatternThreeWhiteSoldiers {
			assert.Equal(t, 2, e.Index)
			assert.Equal(t, model.Bullish, e.Direction)
			assert.Equal(t, s.Bars[2].Date, e.Date)
			assert.Equal(t, "000001", e.Instrument)
		}
	}
	// the window does not fit at earlier bars
	assert.NotContains(t, kinds(d.DetectAt(s, 1)), model.PatternThreeWhiteSoldiers)
}

func TestThreeBlackCrows(t *testing.T) {
	s := ohlc(
		[4]float64{12, 12.1, 10.8, 11},
		[4]float64{11, 11.1, 9.8, 10},
		[4]float64{10, 10.1, 8.8, 9},
	)
	assert.Contains(t, kinds(NewDetector(DefaultConfig()).DetectAt(s, 2)), model.PatternThreeBlackCrows)
}

func TestHammer_AfterDecline(t *testing.T) {
	// six falling bars then a hammer: body 0.2, lower shadow 1.0, upper 0
	rows := [][4]float64{
		{20, 20.2, 19.8, 20}, {19.5, 19.7, 19.3, 19.5}, {19, 19.2, 18.8, 19},
		{18.5, 18.7, 18.3, 18.5}, {18, 18.2, 17.8, 18}, {17.5, 17.7, 17.3, 17.5},
		{17.0, 17.2, 16.0, 17.2},
	}
	s := ohlc(rows...)
	d := NewDetector(DefaultConfig())
	events := d.DetectAt(s, 6)
	require.Contains(t, kinds(events), model.PatternHammer)
	assert.NotContains(t, kinds(events), model.PatternShootingStar)

	// same geometry without enough history to judge the decline
	short := model.Series{Instrument: s.Instrument, Bars: s.Bars[2:]}
	assert.NotContains(t, kinds(d.DetectAt(short, 4)), model.PatternHammer)
}

func TestShootingStar_AfterAdvance(t *testing.T) {
	rows := [][4]float64{
		{10, 10.2, 9.8, 10}, {10.5, 10.7, 10.3, 10.5}, {11, 11.2, 10.8, 11},
		{11.5, 11.7, 11.3, 11.5}, {12, 12.2, 11.8, 12}, {12.5, 12.7, 12.3, 12.5},
		{13.0, 14.2, 12.8, 12.8},
	}
	events := NewDetector(DefaultConfig()).DetectAt(ohlc(rows...), 6)
	assert.Contains(t, kinds(events), model.PatternShootingStar)
	assert.NotContains(t, kinds(events), model.PatternHammer)
}

func TestZeroBodyGeometry(t *testing.T) {
	d := NewDetector(DefaultConfig())

	// O=H=L=C: every shadow test reduces to 0 ≤ 0 and both shapes match.
	flatBar := model.Bar{Open: 10, High: 10, Low: 10, Close: 10}
	assert.True(t, d.Hammer(flatBar))
	assert.True(t, d.ShootingStar(flatBar))
	assert.True(t, d.Doji(flatBar))

	// dragonfly doji: long lower shadow only
	dragonfly := model.Bar{Open: 10, High: 10, Low: 9, Close: 10}
	assert.True(t, d.Hammer(dragonfly))
	assert.False(t, d.ShootingStar(dragonfly))
	assert.True(t, d.Doji(dragonfly))

	// gravestone doji: long upper shadow only
	gravestone := model.Bar{Open: 10, High: 11, Low: 10, Close: 10}
	assert.False(t, d.Hammer(gravestone))
	assert.True(t, d.ShootingStar(gravestone))
}

func TestMorningAndEveningStar(t *testing.T) {
	d := NewDetector(DefaultConfig())

	morning := ohlc(
		[4]float64{12, 12.1, 9.9, 10}, // large bearish body 2 of range 2.2
		[4]float64{9.8, 10.0, 9.5, 9.9},
		[4]float64{10, 11.6, 9.9, 11.5}, // closes above 11 midpoint
	)
	assert.Contains(t, kinds(d.DetectAt(morning, 2)), model.PatternMorningStar)

	evening := ohlc(
		[4]float64{10, 12.1, 9.9, 12},
		[4]float64{12.1, 12.4, 12.0, 12.2},
		[4]float64{12, 12.1, 10.4, 10.5}, // closes below 11 midpoint
	)
	assert.Contains(t, kinds(d.DetectAt(evening, 2)), model.PatternEveningStar)

	// third bar fails to reach the midpoint
	weak := ohlc(
		[4]float64{12, 12.1, 9.9, 10},
		[4]float64{9.8, 10.0, 9.5, 9.9},
		[4]float64{10, 10.9, 9.9, 10.8},
	)
	assert.NotContains(t, kinds(d.DetectAt(weak, 2)), model.PatternMorningStar)
}

func TestAscendingTriangle(t *testing.T) {
	rows := make([][4]float64, 20)
	for i := range rows {
		low := 9 + 0.04*float64(i)
		rows[i] = [4]float64{low + 0.1, 10.0 + 0.001*float64(i%3), low, low + 0.2}
	}
	s := ohlc(rows...)
	d := NewDetector(DefaultConfig())
	assert.Contains(t, kinds(d.DetectAt(s, 19)), model.PatternAscendingTriangle)
	assert.NotContains(t, kinds(d.DetectAt(s, 18)), model.PatternAscendingTriangle)
}

func TestDescendingTriangle(t *testing.T) {
	rows := make([][4]float64, 20)
	for i := range rows {
		high := 12 - 0.05*float64(i)
		rows[i] = [4]float64{high - 0.3, high, 10.0, high - 0.5}
	}
	assert.Contains(t, kinds(NewDetector(DefaultConfig()).DetectAt(ohlc(rows...), 19)), model.PatternDescendingTriangle)
}

func TestGaps_Strict(t *testing.T) {
	s := ohlc(
		[4]float64{10, 10.5, 9.5, 10},
		[4]float64{11, 11.5, 10.8, 11},  // low 10.8 > 10.5: up gap 0.3
		[4]float64{11, 11.5, 11.5, 11.5}, // low 11.5 == prev high: not a gap
		[4]float64{10, 11.0, 9.8, 10},    // high 11.0 < prev low 11.5: down gap 0.5
	)
	gaps := Gaps(s)
	require.Len(t, gaps, 2)
	assert.Equal(t, 1, gaps[0].Index)
	assert.Equal(t, model.Bullish, gaps[0].Direction)
	assert.InDelta(t, 0.3, gaps[0].Size, 1e-9)
	assert.Equal(t, 3, gaps[1].Index)
	assert.Equal(t, model.Bearish, gaps[1].Direction)
	assert.InDelta(t, 0.5, gaps[1].Size, 1e-9)

	d := NewDetector(DefaultConfig())
	assert.Contains(t, kinds(d.DetectAt(s, 1)), model.PatternGapUp)
	assert.NotContains(t, kinds(d.DetectAt(s, 2)), model.PatternGapUp)
	assert.Contains(t, kinds(d.DetectAt(s, 3)), model.PatternGapDown)
}

func TestDetect_Deterministic(t *testing.T) {
	rows := make([][4]float64, 60)
	p := 10.0
	for i := range rows {
		step := []float64{0.4, -0.3, 0.2, -0.6, 0.5, 0.1, -0.2}[i%7]
		rows[i] = [4]float64{p, p + 0.6, p - 0.7, p + step}
		p += step
	}
	s := ohlc(rows...)
	d := NewDetector(DefaultConfig())

	first := d.Detect(s)
	for n := 0; n < 5; n++ {
		require.Equal(t, first, d.Detect(s))
	}
	for i := 1; i < len(first); i++ {
		assert.LessOrEqual(t, first[i-1].Index, first[i].Index, "events must be ordered by index")
	}
}

func TestDetectAt_OutOfRange(t *testing.T) {
	s := ohlc([4]float64{1, 1, 1, 1})
	d := NewDetector(DefaultConfig())
	assert.Empty(t, d.DetectAt(s, -1))
	assert.Empty(t, d.DetectAt(s, 5))
	assert.Empty(t, d.Detect(model.Series{}))
}
