// Package balance turns savings-account transaction histories into a
// chartable time series: one aggregated total balance per calendar day.
//
// Historical balances are reconstructed by working backward from each
// account's authoritative current balance, reversing transaction effects
// day by day, never by summing transactions forward from zero. Days with
// no activity carry the last known balance forward. Everything here is a
// pure function of its inputs; the clock and time zone are injected.
package balance

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dmoroney/saverdash/internal/upbank"
)

const dateLayout = "2006-01-02"

// DailyBalances maps a calendar date (YYYY-MM-DD) to one account's balance
// at the end of that date.
type DailyBalances map[string]decimal.Decimal

// IntegrityError marks account data the engine refuses to chart: an
// unparseable amount, timestamp, or balance string. The whole account
// fails rather than skipping the bad record; a wrong-but-plausible chart
// is worse than a visible error.
type IntegrityError struct {
	AccountID string
	Field     string
	Value     string
	Err       error
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("account %s: unparseable %s %q: %v", e.AccountID, e.Field, e.Value, e.Err)
}

func (e *IntegrityError) Unwrap() error { return e.Err }

// ReconstructDaily derives an account's end-of-day balance for every date
// it had activity on, plus today. With no transactions at all the result
// is a single entry pinning the current balance to today.
//
// The walk runs newest date to oldest. The newest date holds the current
// balance exactly; each earlier date's balance is reached by reversing the
// summed transactions of the date one step after it, since those are the
// movements that happened between the two end-of-day points. Each recorded
// value is rounded to 2 decimal places to match currency precision.
func ReconstructDaily(acct upbank.Account, txs []upbank.Transaction, today time.Time, loc *time.Location) (DailyBalances, error) {
	current, err := decimal.NewFromString(acct.Balance.Value)
	if err != nil {
		return nil, &IntegrityError{AccountID: acct.ID, Field: "balance", Value: acct.Balance.Value, Err: err}
	}

	todayKey := today.In(loc).Format(dateLayout)

	if len(txs) == 0 {
		return DailyBalances{todayKey: current.Round(2)}, nil
	}

	// Sum amounts per calendar date, bucketed in the engine's time zone.
	sumByDate := make(map[string]decimal.Decimal)
	dates := make([]string, 0, len(txs))
	for _, tx := range txs {
		at, err := time.Parse(time.RFC3339, tx.CreatedAt)
		if err != nil {
			return nil, &IntegrityError{AccountID: acct.ID, Field: "createdAt", Value: tx.CreatedAt, Err: err}
		}
		amount, err := decimal.NewFromString(tx.Amount.Value)
		if err != nil {
			return nil, &IntegrityError{AccountID: acct.ID, Field: "amount", Value: tx.Amount.Value, Err: err}
		}

		date := at.In(loc).Format(dateLayout)
		if _, seen := sumByDate[date]; !seen {
			dates = append(dates, date)
		}
		sumByDate[date] = sumByDate[date].Add(amount)
	}

	// Today anchors the walk even when it had no transactions.
	if _, seen := sumByDate[todayKey]; !seen {
		dates = append(dates, todayKey)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))

	daily := make(DailyBalances, len(dates))
	running := current
	for i, date := range dates {
		if i > 0 {
			running = running.Sub(sumByDate[dates[i-1]]).Round(2)
		}
		daily[date] = running.Round(2)
	}
	return daily, nil
}
