package strategy

import (
	"quant-systemv1/internal/model"
	"quant-systemv1/internal/pattern"
)

// PatternReversal buys on bullish candlestick or chart patterns and sells on
// bearish ones. A bar with both holds.
type PatternReversal struct {
	det *pattern.Detector
}

// NewPatternReversal uses det, or a default detector when nil.
func NewPatternReversal(det *pattern.Detector) *PatternReversal {
	if det == nil {
		det = pattern.NewDetector(pattern.DefaultConfig())
	}
	return &PatternReversal{det: det}
}

func (p *PatternReversal) Name() string { return "pattern_reversal" }

func (p *PatternReversal) Generate(s model.Series) ([]model.Signal, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	out := hold(s)
	for t := range out {
		var bull, bear model.PatternKind
		for _, ev := range p.det.DetectAt(s, t) {
			switch ev.Direction {
			case model.Bullish:
				if bull == "" {
					bull = ev.Kind
				}
			case model.Bearish:
				if bear == "" {
					bear = ev.Kind
				}
			}
		}
		switch {
		case bull != "" && bear == "":
			out[t].Action = model.ActionBuy
			out[t].Reason = string(bull)
		case bear != "" && bull == "":
			out[t].Action = model.ActionSell
			out[t].Reason = string(bear)
		}
	}
	return out, nil
}
