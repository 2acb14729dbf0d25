// Package scoring turns a cross-sectional factor panel into a ranked,
// filtered selection.
package scoring

import (
	"errors"
	"math"
	"sort"

	"quant-systemv1/internal/model"
)

const stage = "scoring"

// Engine scores panels with one fixed Config. It keeps no state between
// calls.
type Engine struct {
	cfg Config
}

// NewEngine validates cfg and returns an engine for it.
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg}, nil
}

// Config returns the engine's recipe.
func (e *Engine) Config() Config { return e.cfg }

var errMissingMetadata = errors.New("no eligibility metadata for instrument")

// Score filters the panel's instruments, ranks every configured factor
// among the eligible ones and returns the composite ranking.
//
// An undefined factor value contributes nothing to that instrument's
// composite; weights are not renormalised. Ties in the composite are
// broken by instrument code.
func (e *Engine) Score(panel *model.FactorPanel, candidates []model.Candidate, strategy string) *model.CompositeScore {
	out := &model.CompositeScore{
		Date:      panel.Date,
		Strategy:  strategy,
		Decisions: make(map[string]model.Eligibility),
	}

	meta := make(map[string]model.Candidate, len(candidates))
	for _, c := range candidates {
		meta[c.Instrument.Code] = c
	}

	var eligible []string
	for _, inst := range panel.Instruments() {
		c, ok := meta[inst]
		if !ok {
			out.Decisions[inst] = model.Eligibility{Reason: model.ReasonMissingMetadata}
			out.Failures = append(out.Failures, model.NewFailure(inst, panel.Date, stage,
				&model.InvalidInputError{Instrument: inst, Index: -1, Reason: errMissingMetadata.Error()}))
			continue
		}
		d := e.eligibility(panel, c)
		out.Decisions[inst] = d
		if d.Included {
			eligible = append(eligible, inst)
		}
	}

	scores := make(map[string]*model.RankedScore, len(eligible))
	for _, inst := range eligible {
		scores[inst] = &model.RankedScore{Instrument: inst, Contributions: make(map[string]float64, len(e.cfg.Factors))}
	}
	for _, fw := range e.cfg.Factors {
		for inst, pct := range PercentileRanks(panel, fw.Name, eligible, fw.Direction) {
			c := fw.Weight * pct
			scores[inst].Contributions[fw.Name] = c
			scores[inst].Score += c
		}
	}

	ranked := make([]model.RankedScore, 0, len(scores))
	for _, inst := range eligible {
		ranked = append(ranked, *scores[inst])
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Instrument < ranked[j].Instrument
	})
	if e.cfg.TopN > 0 && len(ranked) > e.cfg.TopN {
		ranked = ranked[:e.cfg.TopN]
	}
	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	out.Ranked = ranked
	return out
}

func (e *Engine) eligibility(panel *model.FactorPanel, c model.Candidate) model.Eligibility {
	f := e.cfg.Filter
	inst := c.Instrument.Code
	switch {
	case f.ExcludeSpecialTreatment && c.Instrument.RiskWarning():
		return model.Eligibility{Reason: model.ReasonRiskWarning, Detail: c.Instrument.Name}
	case c.ListedDays < f.MinListedDays:
		return model.Eligibility{Reason: model.ReasonRecentlyListed}
	case f.LimitMovePct > 0 && math.Abs(c.PctChange) >= f.LimitMovePct:
		return model.Eligibility{Reason: model.ReasonLimitMove}
	case f.ExcludeSuspended && !(c.Turnover > 0):
		return model.Eligibility{Reason: model.ReasonSuspended}
	}
	if f.RequireProfit {
		if _, ok := panel.Get(inst, "PE"); !ok {
			return model.Eligibility{Reason: model.ReasonUnprofitable}
		}
	}
	for _, t := range e.cfg.Thresholds {
		if !t.admits(panel.Get(inst, t.Factor)) {
			return model.Eligibility{Reason: model.ReasonThreshold, Detail: t.Factor}
		}
	}
	return model.Eligibility{Included: true}
}

// PercentileRanks ranks factor among instruments (those with a defined
// value only). Ties share the average rank and pct = rank/n, so the best
// value for dir scores 1. Instruments without a value are absent.
func PercentileRanks(panel *model.FactorPanel, factor string, instruments []string, dir model.RankDirection) map[string]float64 {
	type entry struct {
		inst string
		v    float64
	}
	vals := make([]entry, 0, len(instruments))
	for _, inst := range instruments {
		if v, ok := panel.Get(inst, factor); ok {
			vals = append(vals, entry{inst, v})
		}
	}
	sort.Slice(vals, func(i, j int) bool {
		if vals[i].v != vals[j].v {
			return vals[i].v < vals[j].v
		}
		return vals[i].inst < vals[j].inst
	})

	n := float64(len(vals))
	out := make(map[string]float64, len(vals))
	for i := 0; i < len(vals); {
		j := i
		for j+1 < len(vals) && vals[j+1].v == vals[i].v {
			j++
		}
		// 1-based ranks i+1..j+1 share their average
		rank := float64(i+j+2) / 2
		if dir == model.Ascending {
			rank = n + 1 - rank
		}
		for k := i; k <= j; k++ {
			out[vals[k].inst] = rank / n
		}
		i = j + 1
	}
	return out
}
