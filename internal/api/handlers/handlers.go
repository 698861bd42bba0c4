package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dmoroney/saverdash/internal/api/middleware"
	"github.com/dmoroney/saverdash/internal/balance"
	"github.com/dmoroney/saverdash/internal/jobs"
	"github.com/dmoroney/saverdash/internal/snapshot"
	"github.com/dmoroney/saverdash/internal/upbank"
)

// statusLoading marks the "no snapshot yet" state so a client can render
// it distinctly from an error or an empty chart.
const statusLoading = "loading"

// AccountView is one saver account as the API exposes it.
type AccountView struct {
	ID           string `json:"id"`
	DisplayName  string `json:"display_name"`
	Balance      string `json:"balance"`
	CurrencyCode string `json:"currency_code"`
	Transactions int    `json:"transactions"`
}

// AccountsHandler serves the saver account list from the snapshot.
type AccountsHandler struct {
	snap *snapshot.Store
	log  zerolog.Logger
}

// NewAccountsHandler creates a new accounts handler.
func NewAccountsHandler(snap *snapshot.Store, log zerolog.Logger) *AccountsHandler {
	return &AccountsHandler{snap: snap, log: log}
}

// ListAccounts handles GET /api/accounts
func (h *AccountsHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snap.Get()
	if !ok {
		middleware.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": statusLoading})
		return
	}

	views := make([]AccountView, 0, len(snap.Accounts))
	for _, acct := range snap.Accounts {
		views = append(views, AccountView{
			ID:           acct.ID,
			DisplayName:  acct.DisplayName,
			Balance:      acct.Balance.Value,
			CurrencyCode: acct.Balance.CurrencyCode,
			Transactions: snap.TransactionCount(acct.ID),
		})
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"accounts":   views,
		"count":      len(views),
		"fetched_at": snap.FetchedAt.Format(time.RFC3339),
	})
}

// SeriesHandler computes windowed balance series from the snapshot.
type SeriesHandler struct {
	snap *snapshot.Store
	loc  *time.Location
	now  func() time.Time
	log  zerolog.Logger
}

// NewSeriesHandler creates a new series handler. loc is the calendar-date
// bucketing zone shared with the engine; now defaults to time.Now.
func NewSeriesHandler(snap *snapshot.Store, loc *time.Location, log zerolog.Logger) *SeriesHandler {
	return &SeriesHandler{snap: snap, loc: loc, now: time.Now, log: log}
}

// GetSeries handles GET /api/series
//
// Query parameters:
//
//	accounts   comma-separated account IDs; omitted means every saver,
//	           present but empty means nothing selected
//	timeframe  Weekly | Monthly | Yearly (default Monthly)
//	reference  YYYY-MM-DD anchor date (default today)
func (h *SeriesHandler) GetSeries(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snap.Get()
	if !ok {
		middleware.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": statusLoading})
		return
	}

	query := r.URL.Query()

	tf := balance.Monthly
	if s := query.Get("timeframe"); s != "" {
		var err error
		tf, err = balance.ParseTimeframe(s)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	ref := h.now().In(h.loc)
	if s := query.Get("reference"); s != "" {
		parsed, err := time.ParseInLocation("2006-01-02", s, h.loc)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid reference date, want YYYY-MM-DD")
			return
		}
		ref = parsed
	}

	selected := selectedAccounts(query, snap.Accounts)

	series, err := balance.BuildSeries(
		snap.Accounts,
		snap.Transactions,
		selected,
		tf,
		ref,
		balance.WithNow(h.now),
		balance.WithLocation(h.loc),
		balance.WithLogger(h.log),
	)
	if err != nil {
		var integrity *balance.IntegrityError
		if errors.As(err, &integrity) {
			h.log.Error().Err(err).Str("account_id", integrity.AccountID).Msg("Account data failed reconstruction")
			middleware.WriteError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		h.log.Error().Err(err).Msg("Failed to build series")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to build series")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, series)
}

// selectedAccounts resolves the accounts query parameter against the
// snapshot. No parameter selects every saver account.
func selectedAccounts(query map[string][]string, accounts []upbank.Account) []string {
	values, present := query["accounts"]
	if !present {
		ids := make([]string, 0, len(accounts))
		for _, acct := range accounts {
			ids = append(ids, acct.ID)
		}
		return ids
	}

	var ids []string
	for _, v := range values {
		for _, id := range strings.Split(v, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
	}
	return ids
}

// RefreshHandler enqueues snapshot refresh jobs.
type RefreshHandler struct {
	publisher jobs.Publisher
	log       zerolog.Logger
}

// NewRefreshHandler creates a new refresh handler.
func NewRefreshHandler(publisher jobs.Publisher, log zerolog.Logger) *RefreshHandler {
	return &RefreshHandler{publisher: publisher, log: log}
}

// EnqueueRefresh handles POST /api/refresh
func (h *RefreshHandler) EnqueueRefresh(w http.ResponseWriter, r *http.Request) {
	job := &jobs.RefreshJob{}

	if err := h.publisher.PublishRefresh(r.Context(), job); err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue refresh job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue refresh job")
		return
	}

	h.log.Info().Str("job_id", job.JobID).Msg("Refresh job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.JobID,
		"status": string(job.Status),
	})
}

// JobsHandler handles job-related endpoints.
type JobsHandler struct {
	store jobs.JobStore
	log   zerolog.Logger
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.JobStore, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{store: store, log: log}
}

// GetJob handles GET /api/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request, jobID string) {
	job, err := h.store.GetJob(r.Context(), jobID)
	if err != nil {
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := jobs.JobFilter{
		Status: jobs.JobStatus(query.Get("status")),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}

	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	jobsList, err := h.store.ListJobs(r.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}
