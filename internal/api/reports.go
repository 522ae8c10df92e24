package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/perse/carbon-dashboard/internal/pkg/httputil"
	"github.com/perse/carbon-dashboard/internal/report"
)

// CreateReport generates and archives a report for the posted recipients.
func (h *Handlers) CreateReport(w http.ResponseWriter, r *http.Request) {
	var req report.Request
	if !httputil.Decode(w, r, &req) {
		return
	}

	run, err := h.reports.Generate(r.Context(), req)
	var invalid *report.InvalidRecipientsError
	switch {
	case errors.Is(err, report.ErrNoRecipients), errors.As(err, &invalid):
		httputil.BadRequest(w, err.Error())
	case err != nil && run != nil:
		// The failed run is recorded; report it with its id.
		httputil.JSON(w, http.StatusBadGateway, run)
	case err != nil:
		httputil.InternalError(w, err)
	default:
		httputil.JSON(w, http.StatusCreated, run)
	}
}

// GetReport returns one run.
func (h *Handlers) GetReport(w http.ResponseWriter, r *http.Request) {
	run, err := h.reports.Runs().Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, report.ErrNotFound) {
		httputil.NotFound(w, "report run not found")
		return
	}
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, run)
}

// ListReports returns recent runs, newest first.
func (h *Handlers) ListReports(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 200 {
			httputil.BadRequest(w, "limit must be between 1 and 200")
			return
		}
		limit = n
	}
	runs, err := h.reports.Runs().List(r.Context(), limit)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, runs)
}
