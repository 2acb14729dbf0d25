package strategy

import (
	"fmt"

	"quant-systemv1/internal/analysis"
	"quant-systemv1/internal/indicator"
	"quant-systemv1/internal/model"
)

// MACDCross buys on a DIF/DEA golden cross and sells on a death cross.
type MACDCross struct {
	fast, slow, signal int
}

// NewMACDCross creates a MACD crossover strategy (e.g. 12, 26, 9).
func NewMACDCross(fast, slow, signal int) *MACDCross {
	return &MACDCross{fast: fast, slow: slow, signal: signal}
}

func (m *MACDCross) Name() string { return "macd_cross" }

func (m *MACDCross) Generate(s model.Series) ([]model.Signal, error) {
	res, err := indicator.MACD(s.Closes(), m.fast, m.slow, m.signal)
	if err != nil {
		return nil, withInstrument(err, s.Instrument)
	}
	out := hold(s)
	for t, c := range indicator.Crosses(res.DIF, res.DEA) {
		switch c {
		case indicator.GoldenCross:
			out[t].Action = model.ActionBuy
			out[t].Reason = "MACD golden cross"
		case indicator.DeathCross:
			out[t].Action = model.ActionSell
			out[t].Reason = "MACD death cross"
		}
	}
	return out, nil
}

// KDJCross trades K/D crosses away from the extreme that the cross points
// toward: golden crosses with K below 50 buy, death crosses with K above
// 50 sell. High golden and low death crosses are ignored.
type KDJCross struct {
	n, m1, m2 int
}

// NewKDJCross creates a KDJ crossover strategy (e.g. 9, 3, 3).
func NewKDJCross(n, m1, m2 int) *KDJCross {
	return &KDJCross{n: n, m1: m1, m2: m2}
}

func (k *KDJCross) Name() string { return "kdj_cross" }

func (k *KDJCross) Generate(s model.Series) ([]model.Signal, error) {
	res, err := indicator.KDJ(s.Highs(), s.Lows(), s.Closes(), k.n, k.m1, k.m2)
	if err != nil {
		return nil, withInstrument(err, s.Instrument)
	}
	out := hold(s)
	for t := range out {
		switch sig := analysis.ClassifyKDJ(res.K, res.D, t); sig {
		case analysis.KDJStrongBuy, analysis.KDJBuy:
			out[t].Action = model.ActionBuy
			out[t].Reason = fmt.Sprintf("KDJ %s (K=%.1f)", sig, res.K[t])
		case analysis.KDJStrongSell, analysis.KDJSell:
			out[t].Action = model.ActionSell
			out[t].Reason = fmt.Sprintf("KDJ %s (K=%.1f)", sig, res.K[t])
		}
	}
	return out, nil
}

func withInstrument(err error, inst string) error {
	switch e := err.(type) {
	case *model.InsufficientDataError:
		e.Instrument = inst
	case *model.InvalidInputError:
		e.Instrument = inst
	}
	return err
}
