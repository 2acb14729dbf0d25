package calendar

import "time"

// Weekday exchange closures for 2026.
// Source: SSE/SZSE holiday notice following the State Council schedule.
var sseHolidays2026 = []struct {
	month time.Month
	day   int
}{
	{time.January, 1},    // New Year
	{time.January, 2},    // New Year
	{time.February, 16},  // Spring Festival
	{time.February, 17},  // Spring Festival
	{time.February, 18},  // Spring Festival
	{time.February, 19},  // Spring Festival
	{time.February, 20},  // Spring Festival
	{time.February, 23},  // Spring Festival
	{time.April, 6},      // Qingming
	{time.May, 1},        // Labour Day
	{time.May, 4},        // Labour Day
	{time.May, 5},        // Labour Day
	{time.June, 19},      // Dragon Boat
	{time.September, 25}, // Mid-Autumn
	{time.October, 1},    // National Day
	{time.October, 2},    // National Day
	{time.October, 5},    // National Day
	{time.October, 6},    // National Day
	{time.October, 7},    // National Day
}

func sseHolidays() []time.Time {
	out := make([]time.Time, 0, len(sseHolidays2026))
	for _, h := range sseHolidays2026 {
		out = append(out, time.Date(2026, h.month, h.day, 0, 0, 0, 0, CST))
	}
	return out
}
