package balance

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Timeframe selects the calendar window a series is clipped to.
type Timeframe string

const (
	Weekly  Timeframe = "Weekly"
	Monthly Timeframe = "Monthly"
	Yearly  Timeframe = "Yearly"
)

// ParseTimeframe validates a timeframe received from a query parameter or flag.
func ParseTimeframe(s string) (Timeframe, error) {
	switch tf := Timeframe(s); tf {
	case Weekly, Monthly, Yearly:
		return tf, nil
	}
	return "", fmt.Errorf("unknown timeframe %q (want Weekly, Monthly or Yearly)", s)
}

// windowFor computes the inclusive [start, end] window for tf anchored at
// ref. Weekly is the Monday-to-Sunday week containing ref. Monthly and
// Yearly windows cap at today when they contain it: future dates have no
// data and must never appear on the chart.
func windowFor(tf Timeframe, ref, today time.Time) (start, end time.Time) {
	switch tf {
	case Weekly:
		back := int(ref.Weekday()) - 1
		if ref.Weekday() == time.Sunday {
			back = 6
		}
		start = ref.AddDate(0, 0, -back)
		end = start.AddDate(0, 0, 6)
	case Monthly:
		start = time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, ref.Location())
		end = start.AddDate(0, 1, -1)
		if end.After(today) && !today.Before(start) {
			end = today
		}
	case Yearly:
		start = time.Date(ref.Year(), time.January, 1, 0, 0, 0, 0, ref.Location())
		end = time.Date(ref.Year(), time.December, 31, 0, 0, 0, 0, ref.Location())
		if end.After(today) && !today.Before(start) {
			end = today
		}
	}
	return start, end
}

// Window clips an aggregated series to the timeframe window anchored at
// ref. The window is left-padded with a synthetic point at its start
// carrying the last balance known before it, and right-padded with a
// synthetic point at its end carrying the last in-window balance, so the
// chart shows a flat continuation instead of starting from nothing or
// stopping short. A window with no in-window data and no prior balance is
// legitimately empty.
func Window(agg Aggregated, tf Timeframe, ref, today time.Time, loc *time.Location) Aggregated {
	startT, endT := windowFor(tf, dayIn(ref, loc), dayIn(today, loc))
	start := startT.Format(dateLayout)
	end := endT.Format(dateLayout)

	// Locate the first in-window point and the last balance before the
	// window. Date strings compare lexicographically in calendar order.
	first := -1
	var prior decimal.Decimal
	hasPrior := false
	for i, date := range agg.Dates {
		if date < start {
			prior = agg.Balances[i]
			hasPrior = true
			continue
		}
		if date <= end {
			first = i
		}
		break
	}

	var out Aggregated
	if first == -1 {
		if !hasPrior {
			return Aggregated{}
		}
		// Fully flat window: only older data exists, carry it across.
		out.Dates = append(out.Dates, start)
		out.Balances = append(out.Balances, prior)
		if end > start {
			out.Dates = append(out.Dates, end)
			out.Balances = append(out.Balances, prior)
		}
		return out
	}

	if agg.Dates[first] > start && hasPrior {
		out.Dates = append(out.Dates, start)
		out.Balances = append(out.Balances, prior)
	}
	for i := first; i < len(agg.Dates) && agg.Dates[i] <= end; i++ {
		out.Dates = append(out.Dates, agg.Dates[i])
		out.Balances = append(out.Balances, agg.Balances[i])
	}
	if lastDate := out.Dates[len(out.Dates)-1]; lastDate < end {
		out.Dates = append(out.Dates, end)
		out.Balances = append(out.Balances, out.Balances[len(out.Balances)-1])
	}
	return out
}

// dayIn truncates t to midnight in loc.
func dayIn(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
