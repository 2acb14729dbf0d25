package analysis

import (
	"quant-systemv1/internal/indicator"
	"quant-systemv1/internal/model"
)

// MACDSignal classifies DIF against DEA at one bar.
type MACDSignal string

const (
	MACDGoldenCross   MACDSignal = "golden_cross"
	MACDDeathCross    MACDSignal = "death_cross"
	MACDStrongBullish MACDSignal = "strong_bullish" // DIF above DEA and above zero
	MACDEarlyBullish  MACDSignal = "early_bullish"
	MACDStrongBearish MACDSignal = "strong_bearish" // DIF below DEA and below zero
	MACDEarlyBearish  MACDSignal = "early_bearish"
	MACDUnavailable   MACDSignal = "unavailable"
)

// ClassifyMACD classifies index t. Crosses take precedence over the
// DIF/DEA regime.
func ClassifyMACD(dif, dea []float64, t int) MACDSignal {
	if t < 0 || t >= len(dif) || t >= len(dea) || model.IsUndefined(dif[t]) || model.IsUndefined(dea[t]) {
		return MACDUnavailable
	}
	switch indicator.CrossAt(dif, dea, t) {
	case indicator.GoldenCross:
		return MACDGoldenCross
	case indicator.DeathCross:
		return MACDDeathCross
	}
	if dif[t] > dea[t] {
		if dif[t] > 0 {
			return MACDStrongBullish
		}
		return MACDEarlyBullish
	}
	if dif[t] < 0 {
		return MACDStrongBearish
	}
	return MACDEarlyBearish
}

// KDJSignal classifies K against D at one bar.
type KDJSignal string

const (
	KDJStrongBuy   KDJSignal = "strong_buy"  // golden cross below 20
	KDJBuy         KDJSignal = "buy"         // golden cross below 50
	KDJHighCross   KDJSignal = "high_cross"  // golden cross at 50 or above
	KDJStrongSell  KDJSignal = "strong_sell" // death cross above 80
	KDJSell        KDJSignal = "sell"        // death cross above 50
	KDJLowCross    KDJSignal = "low_cross"   // death cross at 50 or below
	KDJOverbought  KDJSignal = "overbought"
	KDJOversold    KDJSignal = "oversold"
	KDJNeutral     KDJSignal = "neutral"
	KDJUnavailable KDJSignal = "unavailable"
)

// ClassifyKDJ classifies index t.
func ClassifyKDJ(k, d []float64, t int) KDJSignal {
	if t < 0 || t >= len(k) || t >= len(d) || model.IsUndefined(k[t]) || model.IsUndefined(d[t]) {
		return KDJUnavailable
	}
	kv := k[t]
	switch indicator.CrossAt(k, d, t) {
	case indicator.GoldenCross:
		switch {
		case kv < indicator.KDJOversold:
			return KDJStrongBuy
		case kv < 50:
			return KDJBuy
		}
		return KDJHighCross
	case indicator.DeathCross:
		switch {
		case kv > indicator.KDJOverbought:
			return KDJStrongSell
		case kv > 50:
			return KDJSell
		}
		return KDJLowCross
	}
	switch indicator.KDJZone(kv) {
	case indicator.ZoneOverbought:
		return KDJOverbought
	case indicator.ZoneOversold:
		return KDJOversold
	}
	return KDJNeutral
}

// RSISignal classifies an RSI reading.
type RSISignal string

const (
	RSISeverelyOverbought RSISignal = "severely_overbought"
	RSIOverbought         RSISignal = "overbought"
	RSISeverelyOversold   RSISignal = "severely_oversold"
	RSIOversold           RSISignal = "oversold"
	RSINeutral            RSISignal = "neutral"
	RSIUnavailable        RSISignal = "unavailable"
)

// ClassifyRSI uses the 80/70/30/20 bands. Bounds are exclusive.
func ClassifyRSI(v float64) RSISignal {
	switch {
	case model.IsUndefined(v):
		return RSIUnavailable
	case v > 80:
		return RSISeverelyOverbought
	case v > 70:
		return RSIOverbought
	case v < 20:
		return RSISeverelyOversold
	case v < 30:
		return RSIOversold
	}
	return RSINeutral
}

// BOLLSignal locates a price within the Bollinger bands.
type BOLLSignal string

const (
	BOLLOverbought  BOLLSignal = "overbought" // above upper band
	BOLLOversold    BOLLSignal = "oversold"   // below lower band
	BOLLBullish     BOLLSignal = "bullish"    // above mid
	BOLLBearish     BOLLSignal = "bearish"    // at or below mid
	BOLLUnavailable BOLLSignal = "unavailable"
)

// ClassifyBOLL classifies price against the bands.
func ClassifyBOLL(price, upper, mid, lower float64) BOLLSignal {
	switch {
	case model.IsUndefined(upper) || model.IsUndefined(mid) || model.IsUndefined(lower):
		return BOLLUnavailable
	case price > upper:
		return BOLLOverbought
	case price < lower:
		return BOLLOversold
	case price > mid:
		return BOLLBullish
	}
	return BOLLBearish
}

// Rating is the five-tier verdict derived from the technical score.
type Rating string

const (
	RatingStrongBuy  Rating = "strong_buy"
	RatingBuy        Rating = "buy"
	RatingNeutral    Rating = "neutral"
	RatingSell       Rating = "sell"
	RatingStrongSell Rating = "strong_sell"
)

// BaseScore is the technical score with every signal neutral.
const BaseScore = 50

// Score is the additive technical score of one bar.
type Score struct {
	Raw    int    `json:"raw"`   // unclamped sum
	Value  int    `json:"score"` // Raw clamped to [0,100]
	Stars  int    `json:"stars"`
	Rating Rating `json:"rating"`
}

// Signals bundles the per-indicator classifications scored together.
type Signals struct {
	MACD  MACDSignal           `json:"macd"`
	KDJ   KDJSignal            `json:"kdj"`
	RSI   RSISignal            `json:"rsi"`
	BOLL  BOLLSignal           `json:"boll"`
	Trend indicator.TrendState `json:"trend"`
}

// TechnicalScore adds the signal points to BaseScore. The tier is taken
// from the unclamped sum.
func TechnicalScore(sig Signals) Score {
	raw := BaseScore + macdPoints(sig.MACD) + kdjPoints(sig.KDJ) +
		rsiPoints(sig.RSI) + bollPoints(sig.BOLL) + trendPoints(sig.Trend)

	v := raw
	if v < 0 {
		v = 0
	}
	if v > 100 {
		v = 100
	}
	stars, rating := Tier(raw)
	return Score{Raw: raw, Value: v, Stars: stars, Rating: rating}
}

// Tier maps a raw score to stars and rating: ≥80, ≥65, ≥50, ≥35, else.
func Tier(raw int) (int, Rating) {
	switch {
	case raw >= 80:
		return 5, RatingStrongBuy
	case raw >= 65:
		return 4, RatingBuy
	case raw >= 50:
		return 3, RatingNeutral
	case raw >= 35:
		return 2, RatingSell
	}
	return 1, RatingStrongSell
}

func macdPoints(s MACDSignal) int {
	switch s {
	case MACDGoldenCross, MACDStrongBullish, MACDEarlyBullish:
		return 15
	case MACDDeathCross, MACDStrongBearish, MACDEarlyBearish:
		return -15
	}
	return 0
}

func kdjPoints(s KDJSignal) int {
	switch s {
	case KDJStrongBuy:
		return 15
	case KDJBuy:
		return 10
	case KDJStrongSell:
		return -15
	case KDJSell:
		return -10
	}
	return 0
}

func rsiPoints(s RSISignal) int {
	switch s {
	case RSIOversold, RSISeverelyOversold:
		return 10
	case RSIOverbought, RSISeverelyOverbought:
		return -10
	}
	return 0
}

func bollPoints(s BOLLSignal) int {
	switch s {
	case BOLLOversold:
		return 10
	case BOLLOverbought:
		return -10
	case BOLLBullish:
		return 5
	case BOLLBearish:
		return -5
	}
	return 0
}

func trendPoints(s indicator.TrendState) int {
	switch s {
	case indicator.TrendUp:
		return 15
	case indicator.TrendDown:
		return -15
	}
	return 0
}
