package balance

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Aggregated is the cross-account series: ascending unique dates and the
// summed balance across the selected accounts on each date. Dates run
// ascending because the chart consumes them chronologically.
type Aggregated struct {
	Dates    []string
	Balances []decimal.Decimal
}

// Aggregate sums per-account daily balances over the union of dates any
// selected account has an entry for. On a date where an account has no
// entry its last known balance carries forward; before an account's
// earliest entry it contributes nothing. Selected IDs with no map entry
// contribute nothing at all.
//
// Carry-forward is what keeps the chart honest: accounts do not transact
// daily, and treating a quiet day as zero would draw a sawtooth instead of
// the real balance trend.
func Aggregate(daily map[string]DailyBalances, selected []string) Aggregated {
	var maps []DailyBalances
	dateSet := make(map[string]struct{})
	for _, id := range selected {
		m, ok := daily[id]
		if !ok {
			continue
		}
		maps = append(maps, m)
		for date := range m {
			dateSet[date] = struct{}{}
		}
	}
	if len(dateSet) == 0 {
		return Aggregated{}
	}

	dates := make([]string, 0, len(dateSet))
	for date := range dateSet {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	last := make([]decimal.Decimal, len(maps))
	seen := make([]bool, len(maps))

	out := Aggregated{Dates: dates, Balances: make([]decimal.Decimal, len(dates))}
	for i, date := range dates {
		total := decimal.Zero
		for j, m := range maps {
			if v, ok := m[date]; ok {
				last[j] = v
				seen[j] = true
			}
			if seen[j] {
				total = total.Add(last[j])
			}
		}
		out.Balances[i] = total.Round(2)
	}
	return out
}
