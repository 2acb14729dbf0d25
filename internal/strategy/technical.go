package strategy

import (
	"fmt"

	"quant-systemv1/internal/analysis"
	"quant-systemv1/internal/model"
)

// TechnicalScore trades the star rating of the additive technical score:
// BUY at or above buyStars, SELL at or below sellStars.
type TechnicalScore struct {
	buyStars  int
	sellStars int
}

// NewTechnicalScore creates the strategy (e.g. 4 and 2).
func NewTechnicalScore(buyStars, sellStars int) *TechnicalScore {
	return &TechnicalScore{buyStars: buyStars, sellStars: sellStars}
}

func (ts *TechnicalScore) Name() string { return "technical_score" }

func (ts *TechnicalScore) Generate(s model.Series) ([]model.Signal, error) {
	f, err := analysis.NewFrame(s)
	if err != nil {
		return nil, err
	}
	out := hold(s)
	for t := range out {
		sc := f.At(t).Score
		switch {
		case sc.Stars >= ts.buyStars:
			out[t].Action = model.ActionBuy
		case sc.Stars <= ts.sellStars:
			out[t].Action = model.ActionSell
		default:
			continue
		}
		out[t].Reason = fmt.Sprintf("technical score %d (%s)", sc.Value, sc.Rating)
	}
	return out, nil
}
