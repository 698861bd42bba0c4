// Package upbank is a minimal client for the Up banking API
// (https://developer.up.com.au). It covers the endpoints the balance chart
// needs: token validation, the account list, and paginated per-account
// transaction history.
package upbank

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// DefaultBaseURL is the production Up API endpoint.
const DefaultBaseURL = "https://api.up.com.au/api/v1"

const defaultPageSize = 100

// Personal access tokens look like "up:yeah:" followed by an alphanumeric secret.
var tokenPattern = regexp.MustCompile(`^up:yeah:[a-zA-Z0-9]+$`)

// Client talks to the Up API with a single personal access token.
// It is safe for concurrent use.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	pageSize   int
	log        zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint, mainly for tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimSuffix(u, "/") }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// WithPageSize sets the transactions page size (the API caps it at 100).
func WithPageSize(n int) Option {
	return func(c *Client) { c.pageSize = n }
}

// WithLogger attaches a structured logger. The default discards everything.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// NewClient validates the token format and returns a client. The token is
// cleaned of whitespace first; a pasted token often carries a stray newline.
func NewClient(token string, opts ...Option) (*Client, error) {
	token = CleanToken(token)
	if !tokenPattern.MatchString(token) {
		return nil, ErrInvalidTokenFormat
	}

	c := &Client{
		baseURL:    DefaultBaseURL,
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		pageSize:   defaultPageSize,
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// CleanToken strips all whitespace from a token.
func CleanToken(token string) string {
	return strings.Join(strings.Fields(token), "")
}

// Ping verifies the token against the API's ping endpoint. Returns an
// *APIError with status 401 for an invalid or revoked token.
func (c *Client) Ping(ctx context.Context) error {
	var resp struct {
		Meta struct {
			ID          string `json:"id"`
			StatusEmoji string `json:"statusEmoji"`
		} `json:"meta"`
	}
	if err := c.get(ctx, c.baseURL+"/util/ping", &resp); err != nil {
		return err
	}
	if resp.Meta.ID == "" {
		return fmt.Errorf("upbank: unexpected ping response")
	}
	return nil
}

// Accounts fetches every account visible to the token.
func (c *Client) Accounts(ctx context.Context) ([]Account, error) {
	var resp struct {
		Data []accountResource `json:"data"`
	}
	if err := c.get(ctx, c.baseURL+"/accounts", &resp); err != nil {
		return nil, fmt.Errorf("upbank: fetch accounts: %w", err)
	}

	accounts := make([]Account, 0, len(resp.Data))
	for _, r := range resp.Data {
		accounts = append(accounts, Account{
			ID:          r.ID,
			DisplayName: r.Attributes.DisplayName,
			AccountType: r.Attributes.AccountType,
			Balance:     r.Attributes.Balance,
		})
	}
	return accounts, nil
}

// TransactionOptions narrows a transaction fetch. Zero times mean no bound.
type TransactionOptions struct {
	Since time.Time
	Until time.Time
}

// Transactions fetches the full transaction history for one account,
// following the API's next-page links until exhausted and concatenating the
// pages. An error on any page fails the whole fetch; a partial history
// would reconstruct wrong balances downstream.
func (c *Client) Transactions(ctx context.Context, accountID string, opts TransactionOptions) ([]Transaction, error) {
	query := url.Values{}
	query.Set("page[size]", strconv.Itoa(c.pageSize))
	if !opts.Since.IsZero() {
		query.Set("filter[since]", opts.Since.Format(time.RFC3339))
	}
	if !opts.Until.IsZero() {
		query.Set("filter[until]", opts.Until.Format(time.RFC3339))
	}

	next := c.baseURL + "/accounts/" + url.PathEscape(accountID) + "/transactions?" + query.Encode()

	var all []Transaction
	for next != "" {
		var page struct {
			Data  []transactionResource `json:"data"`
			Links struct {
				Next string `json:"next"`
			} `json:"links"`
		}
		if err := c.get(ctx, next, &page); err != nil {
			return nil, fmt.Errorf("upbank: fetch transactions for account %s: %w", accountID, err)
		}

		for _, r := range page.Data {
			all = append(all, Transaction{
				ID:           r.ID,
				Description:  r.Attributes.Description,
				Amount:       r.Attributes.Amount,
				CreatedAt:    r.Attributes.CreatedAt,
				BalanceAfter: r.Attributes.BalanceAfter,
			})
		}
		next = page.Links.Next
	}

	c.log.Debug().Str("account_id", accountID).Int("transactions", len(all)).Msg("Fetched transaction history")
	return all, nil
}

func (c *Client) get(ctx context.Context, rawURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Wire envelopes. The API wraps every resource in {id, attributes}.

type accountResource struct {
	ID         string `json:"id"`
	Attributes struct {
		DisplayName string `json:"displayName"`
		AccountType string `json:"accountType"`
		Balance     Money  `json:"balance"`
	} `json:"attributes"`
}

type transactionResource struct {
	ID         string `json:"id"`
	Attributes struct {
		Description  string `json:"description"`
		Amount       Money  `json:"amount"`
		CreatedAt    string `json:"createdAt"`
		BalanceAfter *Money `json:"balanceAfter"`
	} `json:"attributes"`
}
