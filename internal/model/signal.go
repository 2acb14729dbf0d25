package model

import "time"

// Action is the trading direction of a Signal, encoded as +1/0/-1.
type Action int

const (
	ActionSell Action = -1
	ActionHold Action = 0
	ActionBuy  Action = 1
)

func (a Action) String() string {
	switch a {
	case ActionBuy:
		return "BUY"
	case ActionSell:
		return "SELL"
	default:
		return "HOLD"
	}
}

// Signal is one instrument's trading direction on one date.
type Signal struct {
	Instrument string    `json:"instrument"`
	Date       time.Time `json:"date"`
	Action     Action    `json:"action"`
	Reason     string    `json:"reason,omitempty"`
}

// HoldSignals returns a hold signal for every bar of s.
func HoldSignals(s Series) []Signal {
	out := make([]Signal, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = Signal{Instrument: s.Instrument, Date: b.Date, Action: ActionHold}
	}
	return out
}
