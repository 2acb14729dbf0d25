package indicator

import (
	"math"
	"testing"
)

// ────────────────────────────────────────────────────────────
// Helper
// ────────────────────────────────────────────────────────────

func assertClose(t *testing.T, label string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s: got %.6f, want %.6f (tol=%.6f, diff=%.6f)", label, got, want, tol, math.Abs(got-want))
	}
}

func assertUndefined(t *testing.T, label string, got float64) {
	t.Helper()
	if !math.IsNaN(got) {
		t.Errorf("%s: got %.6f, want undefined", label, got)
	}
}

// ────────────────────────────────────────────────────────────
// SMA Correctness
// ────────────────────────────────────────────────────────────

func TestSMA_Correctness_Period3(t *testing.T) {
	// Prices: 100, 102, 104, 103, 105
	// SMA after value 3: (100+102+104)/3 = 102.0000
	// SMA after value 4: (102+104+103)/3 = 103.0000
	// SMA after value 5: (104+103+105)/3 = 104.0000
	got := SMAValues([]float64{100, 102, 104, 103, 105}, 3)
	assertUndefined(t, "SMA(3)[0]", got[0])
	assertUndefined(t, "SMA(3)[1]", got[1])
	for i, want := range []float64{102, 103, 104} {
		assertClose(t, "SMA(3)", got[i+2], want, 1e-9)
	}
}

func TestValues_RestartsAfterNaN(t *testing.T) {
	got := SMAValues([]float64{1, 2, math.NaN(), 4, 5, 6}, 2)
	assertClose(t, "SMA[1]", got[1], 1.5, 1e-9)
	assertUndefined(t, "SMA[2]", got[2])
	assertUndefined(t, "SMA[3]", got[3]) // window restarted at index 3
	assertClose(t, "SMA[4]", got[4], 4.5, 1e-9)
	assertClose(t, "SMA[5]", got[5], 5.5, 1e-9)
}

// ────────────────────────────────────────────────────────────
// EMA Correctness
// ────────────────────────────────────────────────────────────

func TestEMA_SeededWithFirstValue(t *testing.T) {
	// EMA(3): multiplier = 2/(3+1) = 0.5, seed = first value
	// 100 → 100; 102 → 101; 104 → 102.5; 103 → 102.75
	ema := NewEMA(3)
	want := []float64{100, 101, 102.5, 102.75}
	for i, p := range []float64{100, 102, 104, 103} {
		ema.Update(p)
		assertClose(t, "EMA(3)", ema.Value(), want[i], 1e-9)
		if ema.Ready() != (i >= 2) {
			t.Errorf("value %d: Ready()=%v", i, ema.Ready())
		}
	}
}

// ────────────────────────────────────────────────────────────
// MACD
// ────────────────────────────────────────────────────────────

func TestMACD_ShortSpans_DIFSign(t *testing.T) {
	closes := []float64{10, 10.2, 10.5, 10.3, 10.6}
	m, err := MACD(closes, 2, 3, 2)
	if err != nil {
		t.Fatal(err)
	}
	// Hand-computed: EMA2 = 10, 10.1333, 10.3778, 10.3259, 10.5086
	//                EMA3 = 10, 10.1,    10.3,    10.3,    10.45
	short := []float64{10, 10.133333, 10.377778, 10.325926, 10.508642}
	long := []float64{10, 10.1, 10.3, 10.3, 10.45}

	assertUndefined(t, "DIF[0]", m.DIF[0])
	assertUndefined(t, "DIF[1]", m.DIF[1])
	for i := 2; i < len(closes); i++ {
		assertClose(t, "DIF", m.DIF[i], short[i]-long[i], 1e-5)
		if (m.DIF[i] > 0) != (short[i] > long[i]) {
			t.Errorf("index %d: DIF=%.6f positive mismatch with short>long", i, m.DIF[i])
		}
		assertClose(t, "HIST", m.Hist[i], 2*(m.DIF[i]-m.DEA[i]), 1e-12)
	}
}

func TestMACD_Insufficient(t *testing.T) {
	if _, err := MACD([]float64{1, 2, 3}, 12, 26, 9); err == nil {
		t.Fatal("expected insufficient data error")
	}
}

func TestCrosses_Logic(t *testing.T) {
	a := []float64{1, 2, 3, 2, 2, 1, math.NaN(), 5}
	b := []float64{2, 2, 2, 2, 2, 2, 2, 2}
	got := Crosses(a, b)
	want := []Cross{NoCross, NoCross, GoldenCross, NoCross, NoCross, DeathCross, NoCross, NoCross}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: got %d, want %d", i, got[i], want[i])
		}
	}
	// every golden cross satisfies the defining inequalities
	for i, c := range got {
		if c == GoldenCross && !(a[i-1] <= b[i-1] && a[i] > b[i]) {
			t.Errorf("index %d: golden cross without crossing", i)
		}
		if c == DeathCross && !(a[i-1] >= b[i-1] && a[i] < b[i]) {
			t.Errorf("index %d: death cross without crossing", i)
		}
	}
}

// ────────────────────────────────────────────────────────────
// KDJ
// ────────────────────────────────────────────────────────────

func TestKDJ_Correctness(t *testing.T) {
	high := []float64{10, 11, 12, 11, 13, 14}
	low := []float64{8, 9, 10, 9, 11, 12}
	close := []float64{9, 10, 11, 10, 12, 13}

	k, err := KDJ(high, low, close, 3, 3, 3)
	if err != nil {
		t.Fatal(err)
	}
	// RSV = -, -, 75, 33.33, 75, 80; K/D seeded at 50 with α = 1/3
	wantK := []float64{58.333333, 50.0, 58.333333, 65.555556}
	wantD := []float64{52.777778, 51.851852, 54.012346, 57.860082}
	assertUndefined(t, "K[1]", k.K[1])
	for i := range wantK {
		assertClose(t, "K", k.K[i+2], wantK[i], 1e-5)
		assertClose(t, "D", k.D[i+2], wantD[i], 1e-5)
		assertClose(t, "J", k.J[i+2], 3*wantK[i]-2*wantD[i], 1e-4)
	}
}

func TestKDJ_FlatRangeIs50(t *testing.T) {
	flat := []float64{5, 5, 5, 5}
	k, err := KDJ(flat, flat, flat, 3, 3, 3)
	if err != nil {
		t.Fatal(err)
	}
	assertClose(t, "K flat", k.K[3], 50, 1e-9)
	assertClose(t, "D flat", k.D[3], 50, 1e-9)
}

func TestKDJZone(t *testing.T) {
	if KDJZone(85) != ZoneOverbought || KDJZone(15) != ZoneOversold || KDJZone(50) != ZoneNeutral {
		t.Fatal("zone thresholds wrong")
	}
	if KDJZone(80) != ZoneNeutral || KDJZone(20) != ZoneNeutral {
		t.Fatal("zone bounds must be strict")
	}
}

// ────────────────────────────────────────────────────────────
// RSI
// ────────────────────────────────────────────────────────────

func TestRSI_Correctness_Period5(t *testing.T) {
	closes := []float64{44.34, 44.09, 44.15, 43.61, 44.33, 44.83, 45.10, 45.42, 45.84}
	got, err := RSIValues(closes, 5)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		assertUndefined(t, "RSI warm-up", got[i])
	}
	assertClose(t, "RSI[5]", got[5], 61.835749, 1e-4)
	assertClose(t, "RSI[6]", got[6], 74.162679, 1e-4)
	assertClose(t, "RSI[7]", got[7], 77.021277, 1e-4)
	assertClose(t, "RSI[8] zero loss", got[8], 100, 1e-9)
}

func TestRSI_Bounds(t *testing.T) {
	closes := make([]float64, 300)
	p := 100.0
	for i := range closes {
		// deterministic zig-zag with drift
		switch i % 7 {
		case 0, 3, 5:
			p -= 1.3
		default:
			p += 0.9
		}
		closes[i] = p
	}
	got, err := RSIValues(closes, 14)
	if err != nil {
		t.Fatal(err)
	}
	for i := 14; i < len(got); i++ {
		if got[i] < 0 || got[i] > 100 {
			t.Fatalf("RSI[%d]=%.4f out of [0,100]", i, got[i])
		}
	}
}

func TestRSI_AllFlat_Is100(t *testing.T) {
	got, err := RSIValues([]float64{7, 7, 7, 7}, 3)
	if err != nil {
		t.Fatal(err)
	}
	assertClose(t, "RSI flat", got[3], 100, 1e-9)
}

// ────────────────────────────────────────────────────────────
// WR / BOLL / ATR / OBV
// ────────────────────────────────────────────────────────────

func TestWR(t *testing.T) {
	high := []float64{10, 12, 11}
	low := []float64{8, 9, 7}
	close := []float64{9, 11, 10}
	got, err := WR(high, low, close, 3)
	if err != nil {
		t.Fatal(err)
	}
	// HH=12, LL=7 → -100*(12-10)/5 = -40
	assertClose(t, "WR", got[2], -40, 1e-9)

	flat := []float64{3, 3, 3}
	got, _ = WR(flat, flat, flat, 3)
	assertClose(t, "WR flat", got[2], 0, 1e-9)
}

func TestBOLL_Invariant(t *testing.T) {
	closes := []float64{1, 2, 3, 4, 5, 5, 5, 5, 9, 2}
	b, err := BOLL(closes, 3, 2)
	if err != nil {
		t.Fatal(err)
	}
	// closes 1,2,3 → mid 2, sample std 1
	assertClose(t, "BOLL mid", b.Mid[2], 2, 1e-9)
	assertClose(t, "BOLL upper", b.Upper[2], 4, 1e-9)
	assertClose(t, "BOLL lower", b.Lower[2], 0, 1e-9)
	for i := 2; i < len(closes); i++ {
		if !(b.Upper[i] >= b.Mid[i] && b.Mid[i] >= b.Lower[i]) {
			t.Errorf("index %d: upper=%.4f mid=%.4f lower=%.4f", i, b.Upper[i], b.Mid[i], b.Lower[i])
		}
	}
	// flat window collapses the bands
	assertClose(t, "BOLL flat width", b.Upper[7]-b.Lower[7], 0, 1e-9)
}

func TestATR(t *testing.T) {
	high := []float64{10, 12, 11}
	low := []float64{9, 10, 8}
	close := []float64{9.5, 11, 9}
	// TR = 1, max(2, 2.5, 0.5)=2.5, max(3, 0, 3)=3
	tr := TrueRange(high, low, close)
	assertClose(t, "TR[1]", tr[1], 2.5, 1e-9)
	got, err := ATR(high, low, close, 2)
	if err != nil {
		t.Fatal(err)
	}
	assertClose(t, "ATR[2]", got[2], 2.75, 1e-9)
}

func TestOBV(t *testing.T) {
	got := OBV([]float64{10, 11, 11, 9}, []float64{100, 200, 300, 400})
	want := []float64{0, 200, 200, -200}
	for i := range want {
		assertClose(t, "OBV", got[i], want[i], 1e-9)
	}
}

// ────────────────────────────────────────────────────────────
// Trend / levels
// ────────────────────────────────────────────────────────────

func TestTrend(t *testing.T) {
	up := []float64{1, 2, 3, 4, 5}
	got := Trend(up, 2, 4)
	if got[2] != TrendUnknown {
		t.Errorf("warm-up: got %s", got[2])
	}
	if got[4] != TrendUp {
		t.Errorf("rising series: got %s", got[4])
	}
	down := []float64{5, 4, 3, 2, 1}
	if s := Trend(down, 2, 4)[4]; s != TrendDown {
		t.Errorf("falling series: got %s", s)
	}
	flat := []float64{3, 3, 3, 3, 3}
	if s := Trend(flat, 2, 4)[4]; s != TrendRanging {
		t.Errorf("flat series: got %s", s)
	}
}

func TestSupportResistance(t *testing.T) {
	high := []float64{10, 12, 11, 13}
	low := []float64{8, 9, 7, 10}
	close := []float64{9, 11, 10, 12}
	lv, err := SupportResistance(high, low, close, 3)
	if err != nil {
		t.Fatal(err)
	}
	assertClose(t, "support", lv.Support[3], 7, 1e-9)
	assertClose(t, "resistance", lv.Resistance[3], 13, 1e-9)
	assertClose(t, "pivot", lv.Pivot, (13+10+12)/3.0, 1e-9)
}

func TestRollingMinMax_Evicts(t *testing.T) {
	mx := NewMax(3)
	mn := NewMin(3)
	for _, v := range []float64{5, 9, 1, 4} {
		mx.Update(v)
		mn.Update(v)
	}
	// 5 has left the window: {9, 1, 4}
	assertClose(t, "max", mx.Value(), 9, 1e-9)
	assertClose(t, "min", mn.Value(), 1, 1e-9)
	mx.Update(2)
	assertClose(t, "max after 9 leaves", mx.Value(), 4, 1e-9)
}

// ────────────────────────────────────────────────────────────
// OLS
// ────────────────────────────────────────────────────────────

func TestOLS_ExactLine(t *testing.T) {
	x := []float64{1, 2, 3, 4}
	y := []float64{3, 5, 7, 9} // y = 1 + 2x
	f, ok := OLS(x, y)
	if !ok {
		t.Fatal("expected a fit")
	}
	assertClose(t, "slope", f.Slope, 2, 1e-12)
	assertClose(t, "intercept", f.Intercept, 1, 1e-12)
	assertClose(t, "resid std", f.ResidStd, 0, 1e-12)
}

func TestOLS_Residuals(t *testing.T) {
	// y = 0, 2, 1, 3 on x = 0..3: slope 0.8, intercept 0.3
	// residuals -0.3, 0.9, -0.9, 0.3 → SSR 1.8, /(n-2) = 0.9
	f, ok := OLS([]float64{0, 1, 2, 3}, []float64{0, 2, 1, 3})
	if !ok {
		t.Fatal("expected a fit")
	}
	assertClose(t, "slope", f.Slope, 0.8, 1e-12)
	assertClose(t, "intercept", f.Intercept, 0.3, 1e-12)
	assertClose(t, "resid std", f.ResidStd, math.Sqrt(0.9), 1e-12)
}

func TestOLS_Degenerate(t *testing.T) {
	if _, ok := OLS([]float64{1, 1, 1}, []float64{1, 2, 3}); ok {
		t.Error("zero x variance must not fit")
	}
	if _, ok := OLS([]float64{1}, []float64{1}); ok {
		t.Error("single point must not fit")
	}
	if s, ok := TrendSlope([]float64{1, 2, 3}); !ok || s != 1 {
		t.Errorf("TrendSlope = %v, %v", s, ok)
	}
}
