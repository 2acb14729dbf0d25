package model

import "time"

// ExclusionReason explains why an instrument left the eligible universe.
type ExclusionReason string

const (
	ReasonNone            ExclusionReason = ""
	ReasonRiskWarning     ExclusionReason = "special_treatment"
	ReasonRecentlyListed  ExclusionReason = "recently_listed"
	ReasonLimitMove       ExclusionReason = "limit_move"
	ReasonSuspended       ExclusionReason = "suspended"
	ReasonUnprofitable    ExclusionReason = "unprofitable"
	ReasonThreshold       ExclusionReason = "threshold"
	ReasonMissingMetadata ExclusionReason = "missing_metadata"
)

// Eligibility is the per-instrument filter decision for one date.
type Eligibility struct {
	Included bool            `json:"included"`
	Reason   ExclusionReason `json:"reason,omitempty"`
	Detail   string          `json:"detail,omitempty"`
}

// RankedScore is one instrument's composite score and rank (1 = best).
type RankedScore struct {
	Instrument    string             `json:"instrument"`
	Score         float64            `json:"score"`
	Rank          int                `json:"rank"`
	Contributions map[string]float64 `json:"contributions"` // factor → weight·percentile
}

// CompositeScore is the ranked selection for one date and strategy.
type CompositeScore struct {
	Date      time.Time              `json:"date"`
	Strategy  string                 `json:"strategy"`
	Ranked    []RankedScore          `json:"ranked"`
	Decisions map[string]Eligibility `json:"decisions"`
	Failures  []Failure              `json:"failures,omitempty"`
}

// Selected returns the instrument codes in rank order.
func (c *CompositeScore) Selected() []string {
	out := make([]string, len(c.Ranked))
	for i, r := range c.Ranked {
		out[i] = r.Instrument
	}
	return out
}

// RankDirection says which end of a factor's cross-section is preferred.
type RankDirection string

const (
	Descending RankDirection = "descending" // higher raw value is better
	Ascending  RankDirection = "ascending"  // lower raw value is better
)

// Valid reports whether d is one of the two directions.
func (d RankDirection) Valid() bool { return d == Descending || d == Ascending }
