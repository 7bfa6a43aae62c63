// Package dates provides the calendar arithmetic the engine is built on:
// month clamping, weekend bumping, and dominant-month derivation. Everything
// here is pure; the only clock access is the current-month fallback in
// DeriveMonth for empty payloads.
package dates

import (
	"time"

	"paycal/internal/core"
)

// MonthBounds returns the first and last day of the month containing d.
func MonthBounds(d core.Date) (core.Date, core.Date) {
	first := core.NewDate(d.Year(), int(d.Month()), 1)
	// Day zero of the next month is the last day of this one.
	last := core.Date{Time: time.Date(d.Year(), d.Month()+1, 0, 0, 0, 0, 0, time.UTC)}
	return first, last
}

// ClampToMonth intersects [start, end] with the calendar month containing
// anchor. An empty intersection collapses both endpoints to the anchor, so
// the returned window never spans a month boundary.
func ClampToMonth(anchor, start, end core.Date) core.Window {
	monthStart, monthEnd := MonthBounds(anchor)
	s, e := start, end
	if s.Before(monthStart.Time) {
		s = monthStart
	}
	if e.After(monthEnd.Time) {
		e = monthEnd
	}
	if e.Before(s.Time) {
		s, e = anchor, anchor
	}
	return core.Window{Start: s, End: e}
}

// BumpToBusinessDay advances Saturday by 2 days and Sunday by 1 day. It is
// idempotent on weekdays.
func BumpToBusinessDay(d core.Date) core.Date {
	switch d.Weekday() {
	case time.Saturday:
		return d.AddDays(2)
	case time.Sunday:
		return d.AddDays(1)
	default:
		return d
	}
}

// DeriveMonth returns the (year, month) with the highest event count across
// the payload's outflows and income, ties broken by first encounter. An
// empty payload yields the current month.
func DeriveMonth(p *core.Payload) (int, time.Month) {
	type monthKey struct {
		year  int
		month time.Month
	}
	counts := make(map[monthKey]int)
	var order []monthKey

	count := func(events []core.CashflowEvent) {
		for _, ev := range events {
			if ev.Date.IsZero() {
				continue
			}
			key := monthKey{year: ev.Date.Year(), month: ev.Date.Month()}
			if _, seen := counts[key]; !seen {
				order = append(order, key)
			}
			counts[key]++
		}
	}
	count(p.CashOut)
	count(p.CashIn)

	if len(order) == 0 {
		now := time.Now()
		return now.Year(), now.Month()
	}

	best := order[0]
	for _, key := range order[1:] {
		if counts[key] > counts[best] {
			best = key
		}
	}
	return best.year, best.month
}
