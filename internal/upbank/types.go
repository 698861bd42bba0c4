package upbank

// AccountTypeSaver marks savings accounts, the only account type charted.
const AccountTypeSaver = "SAVER"

// Money is an amount as the API serialises it: an exact decimal string plus
// an ISO currency code. Values are never parsed to floats here; callers that
// do arithmetic parse them with shopspring/decimal.
type Money struct {
	Value        string `json:"value"`
	CurrencyCode string `json:"currencyCode"`
}

// Account is one account as returned by GET /accounts. Balance is the
// authoritative balance as of now; historical balances are derived from it.
type Account struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	AccountType string `json:"accountType"`
	Balance     Money  `json:"balance"`
}

// IsSaver reports whether the account is a savings account.
func (a Account) IsSaver() bool {
	return a.AccountType == AccountTypeSaver
}

// Transaction is one posted movement on an account. Amount is signed:
// negative for debits, positive for credits. BalanceAfter is the optional
// post-transaction snapshot the API sometimes includes; it is carried for
// completeness but balance reconstruction never relies on it.
type Transaction struct {
	ID           string `json:"id"`
	Description  string `json:"description"`
	Amount       Money  `json:"amount"`
	CreatedAt    string `json:"createdAt"`
	BalanceAfter *Money `json:"balanceAfter,omitempty"`
}

// SaverAccounts filters a fetched account list down to savings accounts.
func SaverAccounts(accounts []Account) []Account {
	savers := make([]Account, 0, len(accounts))
	for _, a := range accounts {
		if a.IsSaver() {
			savers = append(savers, a)
		}
	}
	return savers
}
