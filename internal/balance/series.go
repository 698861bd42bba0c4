package balance

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/dmoroney/saverdash/internal/upbank"
)

// Series is the chart payload: ascending unique dates with the aggregate
// balance for each, rounded to 2 decimal places. Floats appear only here,
// at the output boundary; everything upstream is exact decimal math.
type Series struct {
	Dates    []string  `json:"dates"`
	Balances []float64 `json:"balances"`
}

// Option configures BuildSeries.
type Option func(*config)

type config struct {
	now func() time.Time
	loc *time.Location
	log zerolog.Logger
}

// WithNow injects the clock used for the today fallback and the
// cap-at-today window rules. With a fixed clock the whole pipeline is
// deterministic.
func WithNow(now func() time.Time) Option {
	return func(c *config) { c.now = now }
}

// WithLocation sets the time zone transactions are bucketed into calendar
// dates with. One zone applies to every stage; the default is UTC.
func WithLocation(loc *time.Location) Option {
	return func(c *config) { c.loc = loc }
}

// WithLogger attaches a structured logger. The default discards everything.
func WithLogger(log zerolog.Logger) Option {
	return func(c *config) { c.log = log }
}

// BuildSeries is the engine's public entry point. It reconstructs each
// selected account's daily balances, aggregates them with carry-forward,
// and clips the result to the timeframe window anchored at ref.
//
// An empty selection or empty account list yields an empty series, not an
// error: "nothing selected" is a state the caller renders distinctly from
// failure. Selection IDs matching no account contribute nothing. A
// selected account with no fetched transactions contributes its current
// balance pinned to today.
func BuildSeries(
	accounts []upbank.Account,
	txsByAccount map[string][]upbank.Transaction,
	selected []string,
	tf Timeframe,
	ref time.Time,
	opts ...Option,
) (Series, error) {
	cfg := config{now: time.Now, loc: time.UTC, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(&cfg)
	}

	// Callers construct Timeframe values freely; a typo must not silently
	// window against the zero year.
	if _, err := ParseTimeframe(string(tf)); err != nil {
		return Series{}, err
	}

	empty := Series{Dates: []string{}, Balances: []float64{}}
	if len(selected) == 0 || len(accounts) == 0 {
		return empty, nil
	}

	want := make(map[string]bool, len(selected))
	for _, id := range selected {
		want[id] = true
	}

	today := cfg.now()

	daily := make(map[string]DailyBalances)
	ids := make([]string, 0, len(selected))
	for _, acct := range accounts {
		if !want[acct.ID] {
			continue
		}
		m, err := ReconstructDaily(acct, txsByAccount[acct.ID], today, cfg.loc)
		if err != nil {
			return Series{}, err
		}
		daily[acct.ID] = m
		ids = append(ids, acct.ID)
		cfg.log.Debug().Str("account_id", acct.ID).Int("days", len(m)).Msg("Reconstructed daily balances")
	}

	windowed := Window(Aggregate(daily, ids), tf, ref, today, cfg.loc)
	if len(windowed.Dates) == 0 {
		return empty, nil
	}

	out := Series{Dates: windowed.Dates, Balances: make([]float64, len(windowed.Balances))}
	for i, b := range windowed.Balances {
		out.Balances[i], _ = b.Round(2).Float64()
	}
	return out, nil
}
