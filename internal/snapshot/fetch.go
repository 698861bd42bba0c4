package snapshot

import (
	"context"
	"fmt"
	"time"

	"github.com/dmoroney/saverdash/internal/upbank"
)

// Fetcher is the part of the bank client a refresh needs.
type Fetcher interface {
	Accounts(ctx context.Context) ([]upbank.Account, error)
	Transactions(ctx context.Context, accountID string, opts upbank.TransactionOptions) ([]upbank.Transaction, error)
}

// Option configures Fetch.
type Option func(*config)

type config struct {
	now func() time.Time
}

// WithNow injects the clock that stamps FetchedAt. The default is time.Now.
func WithNow(now func() time.Time) Option {
	return func(c *config) { c.now = now }
}

// Fetch pulls the saver accounts and each one's full transaction history.
// Any failed fetch fails the whole snapshot; handing a partially fetched
// account set to the chart would silently understate the balance.
func Fetch(ctx context.Context, client Fetcher, opts upbank.TransactionOptions, fetchOpts ...Option) (*Snapshot, error) {
	cfg := config{now: time.Now}
	for _, opt := range fetchOpts {
		opt(&cfg)
	}

	accounts, err := client.Accounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot: fetch accounts: %w", err)
	}

	savers := upbank.SaverAccounts(accounts)
	txs := make(map[string][]upbank.Transaction, len(savers))
	for _, acct := range savers {
		history, err := client.Transactions(ctx, acct.ID, opts)
		if err != nil {
			return nil, fmt.Errorf("snapshot: fetch transactions for account %s: %w", acct.ID, err)
		}
		txs[acct.ID] = history
	}

	return &Snapshot{
		Accounts:     savers,
		Transactions: txs,
		FetchedAt:    cfg.now(),
	}, nil
}
