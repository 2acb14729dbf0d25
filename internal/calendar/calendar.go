// Package calendar knows the Shanghai/Shenzhen exchange trading calendar.
package calendar

import (
	"fmt"
	"time"
)

// CST is China Standard Time (UTC+8). Exchange dates are CST dates.
var CST = time.FixedZone("CST", 8*3600)

// Continuous auction sessions in CST.
const (
	MorningOpenHour    = 9
	MorningOpenMinute  = 30
	MorningCloseHour   = 11
	MorningCloseMinute = 30

	AfternoonOpenHour  = 13
	AfternoonCloseHour = 15
)

// Calendar is a weekday calendar minus a holiday set.
type Calendar struct {
	holidays map[string]bool
}

// New builds a calendar with the given exchange holidays.
func New(holidays ...time.Time) *Calendar {
	c := &Calendar{holidays: make(map[string]bool, len(holidays))}
	for _, h := range holidays {
		c.holidays[dateKey(h)] = true
	}
	return c
}

var std = New(sseHolidays()...)

// Default returns the calendar with the built-in holiday table.
func Default() *Calendar { return std }

// IsHoliday returns true if the CST date of t is an exchange holiday.
func (c *Calendar) IsHoliday(t time.Time) bool {
	return c.holidays[dateKey(t)]
}

// IsTradingDay returns true if t is a weekday and not a holiday.
func (c *Calendar) IsTradingDay(t time.Time) bool {
	return IsWeekday(t) && !c.IsHoliday(t)
}

// IsMarketOpen returns true if t falls within a continuous session
// (9:30–11:30 and 13:00–15:00 CST) on a trading day.
func (c *Calendar) IsMarketOpen(t time.Time) bool {
	if !c.IsTradingDay(t) {
		return false
	}
	cst := t.In(CST)
	hm := cst.Hour()*60 + cst.Minute()
	morning := hm >= MorningOpenHour*60+MorningOpenMinute && hm < MorningCloseHour*60+MorningCloseMinute
	afternoon := hm >= AfternoonOpenHour*60 && hm < AfternoonCloseHour*60
	return morning || afternoon
}

// TradingDaysBetween counts trading days d with from < d ≤ to, by CST date.
// It is 0 when to is not after from.
func (c *Calendar) TradingDaysBetween(from, to time.Time) int {
	d := midnight(from).AddDate(0, 0, 1)
	end := midnight(to)
	n := 0
	for !d.After(end) {
		if c.IsTradingDay(d) {
			n++
		}
		d = d.AddDate(0, 0, 1)
	}
	return n
}

// NextTradingDay returns the first trading day strictly after t, at CST midnight.
func (c *Calendar) NextTradingDay(t time.Time) time.Time {
	d := midnight(t).AddDate(0, 0, 1)
	for i := 0; i < 30; i++ { // longest closure is well under a month
		if c.IsTradingDay(d) {
			return d
		}
		d = d.AddDate(0, 0, 1)
	}
	return d
}

// PrevTradingDay returns the last trading day on or before t, at CST midnight.
func (c *Calendar) PrevTradingDay(t time.Time) time.Time {
	d := midnight(t)
	for i := 0; i < 30; i++ {
		if c.IsTradingDay(d) {
			return d
		}
		d = d.AddDate(0, 0, -1)
	}
	return d
}

// RebalanceDates returns every step-th trading day in [from, to], starting
// with the first trading day on or after from.
func (c *Calendar) RebalanceDates(from, to time.Time, step int) ([]time.Time, error) {
	if step < 1 {
		return nil, fmt.Errorf("calendar: rebalance step must be positive, got %d", step)
	}
	var out []time.Time
	end := midnight(to)
	i := 0
	for d := midnight(from); !d.After(end); d = d.AddDate(0, 0, 1) {
		if !c.IsTradingDay(d) {
			continue
		}
		if i%step == 0 {
			out = append(out, d)
		}
		i++
	}
	return out, nil
}

// IsWeekday returns true if the CST date of t is Mon–Fri.
func IsWeekday(t time.Time) bool {
	wd := t.In(CST).Weekday()
	return wd >= time.Monday && wd <= time.Friday
}

// IsTradingDay reports whether t is a trading day on the default calendar.
func IsTradingDay(t time.Time) bool { return std.IsTradingDay(t) }

// TradingDaysBetween counts trading days on the default calendar.
func TradingDaysBetween(from, to time.Time) int { return std.TradingDaysBetween(from, to) }

// StatusString returns a human-readable market status.
func StatusString(t time.Time) string {
	if std.IsMarketOpen(t) {
		return "Market Open"
	}
	next := std.NextTradingDay(t)
	return fmt.Sprintf("Market Closed (next session %s %s)", next.Weekday().String()[:3], next.Format("2006-01-02"))
}

func midnight(t time.Time) time.Time {
	cst := t.In(CST)
	return time.Date(cst.Year(), cst.Month(), cst.Day(), 0, 0, 0, 0, CST)
}

func dateKey(t time.Time) string {
	return t.In(CST).Format("2006-01-02")
}
