package strategy

import (
	"sort"
	"time"

	"quant-systemv1/internal/model"
)

// Rebalance is the selected set on one rebalance date.
type Rebalance struct {
	Date     time.Time
	Selected []string
}

// SelectionSignals turns top-N membership into event signals for one
// instrument: BUY on the first bar on or after a rebalance date where it
// enters the selection, SELL where it leaves. Rebalances need not be sorted.
func SelectionSignals(s model.Series, rebalances []Rebalance) []model.Signal {
	rbs := append([]Rebalance(nil), rebalances...)
	sort.Slice(rbs, func(i, j int) bool { return rbs[i].Date.Before(rbs[j].Date) })

	out := hold(s)
	held := false
	r := 0
	for t, bar := range s.Bars {
		// apply the latest rebalance effective at this bar
		var due *Rebalance
		for r < len(rbs) && !rbs[r].Date.After(bar.Date) {
			due = &rbs[r]
			r++
		}
		if due == nil {
			continue
		}
		in := contains(due.Selected, s.Instrument)
		switch {
		case in && !held:
			out[t].Action = model.ActionBuy
			out[t].Reason = "entered selection " + due.Date.Format("2006-01-02")
		case !in && held:
			out[t].Action = model.ActionSell
			out[t].Reason = "left selection " + due.Date.Format("2006-01-02")
		}
		held = in
	}
	return out
}

// RebalancesFrom collects the selected instruments of each score.
func RebalancesFrom(scores []*model.CompositeScore) []Rebalance {
	out := make([]Rebalance, 0, len(scores))
	for _, sc := range scores {
		out = append(out, Rebalance{Date: sc.Date, Selected: sc.Selected()})
	}
	return out
}

func contains(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
