package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/dmoroney/saverdash/internal/snapshot"
	"github.com/dmoroney/saverdash/internal/upbank"
)

func testSnapshot() *snapshot.Snapshot {
	return &snapshot.Snapshot{
		Accounts: []upbank.Account{
			{
				ID:          "acc-1",
				DisplayName: "Rainy Day",
				AccountType: upbank.AccountTypeSaver,
				Balance:     upbank.Money{Value: "100.00", CurrencyCode: "AUD"},
			},
		},
		Transactions: map[string][]upbank.Transaction{
			"acc-1": {
				{
					ID:        "tx-1",
					Amount:    upbank.Money{Value: "-20.00", CurrencyCode: "AUD"},
					CreatedAt: "2024-05-10T08:00:00Z",
				},
			},
		},
		FetchedAt: time.Date(2024, 5, 15, 8, 0, 0, 0, time.UTC),
	}
}

func TestListAccounts_LoadingBeforeFirstSnapshot(t *testing.T) {
	h := NewAccountsHandler(snapshot.NewStore(), zerolog.Nop())

	rec := httptest.NewRecorder()
	h.ListAccounts(rec, httptest.NewRequest(http.MethodGet, "/api/accounts", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if body["status"] != statusLoading {
		t.Errorf("status field = %q, want %q", body["status"], statusLoading)
	}
}

func TestListAccounts(t *testing.T) {
	store := snapshot.NewStore()
	store.Replace(testSnapshot())
	h := NewAccountsHandler(store, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.ListAccounts(rec, httptest.NewRequest(http.MethodGet, "/api/accounts", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		Accounts []AccountView `json:"accounts"`
		Count    int           `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if body.Count != 1 || len(body.Accounts) != 1 {
		t.Fatalf("unexpected body: %+v", body)
	}
	if body.Accounts[0].Transactions != 1 || body.Accounts[0].Balance != "100.00" {
		t.Errorf("unexpected account view: %+v", body.Accounts[0])
	}
}

func newSeriesHandler(store *snapshot.Store) *SeriesHandler {
	h := NewSeriesHandler(store, time.UTC, zerolog.Nop())
	h.now = func() time.Time { return time.Date(2024, 5, 15, 9, 0, 0, 0, time.UTC) }
	return h
}

func TestGetSeries(t *testing.T) {
	store := snapshot.NewStore()
	store.Replace(testSnapshot())
	h := newSeriesHandler(store)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/series?timeframe=Weekly&reference=2024-05-15", nil)
	h.GetSeries(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var series struct {
		Dates    []string  `json:"dates"`
		Balances []float64 `json:"balances"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &series); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	// Activity sits before the week, so the carried balance pads the window
	// start, today anchors a point mid-window, and the end pads flat.
	wantDates := []string{"2024-05-13", "2024-05-15", "2024-05-19"}
	if len(series.Dates) != len(wantDates) {
		t.Fatalf("unexpected dates: %v", series.Dates)
	}
	for i, want := range wantDates {
		if series.Dates[i] != want {
			t.Errorf("dates[%d] = %s, want %s", i, series.Dates[i], want)
		}
		if series.Balances[i] != 100 {
			t.Errorf("balances[%d] = %v, want 100", i, series.Balances[i])
		}
	}
}

func TestGetSeries_EmptySelection(t *testing.T) {
	store := snapshot.NewStore()
	store.Replace(testSnapshot())
	h := newSeriesHandler(store)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/series?accounts=&timeframe=Weekly", nil)
	h.GetSeries(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var series struct {
		Dates    []string  `json:"dates"`
		Balances []float64 `json:"balances"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &series); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if series.Dates == nil || len(series.Dates) != 0 {
		t.Errorf("expected empty dates array, got %v", series.Dates)
	}
}

func TestGetSeries_BadParams(t *testing.T) {
	store := snapshot.NewStore()
	store.Replace(testSnapshot())
	h := newSeriesHandler(store)

	tests := []struct {
		name string
		url  string
	}{
		{name: "bad timeframe", url: "/api/series?timeframe=Fortnightly"},
		{name: "bad reference", url: "/api/series?reference=15-05-2024"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.GetSeries(rec, httptest.NewRequest(http.MethodGet, tt.url, nil))
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestGetSeries_IntegrityFault(t *testing.T) {
	snap := testSnapshot()
	snap.Transactions["acc-1"][0].Amount.Value = "not-a-number"
	store := snapshot.NewStore()
	store.Replace(snap)
	h := newSeriesHandler(store)

	rec := httptest.NewRecorder()
	h.GetSeries(rec, httptest.NewRequest(http.MethodGet, "/api/series?timeframe=Weekly", nil))

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422: %s", rec.Code, rec.Body.String())
	}
}
