// Package api serves the dashboard's aggregated views over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/perse/carbon-dashboard/internal/calendar"
	"github.com/perse/carbon-dashboard/internal/domain"
	"github.com/perse/carbon-dashboard/internal/labrador"
	"github.com/perse/carbon-dashboard/internal/pkg/httputil"
	"github.com/perse/carbon-dashboard/internal/report"
	"github.com/perse/carbon-dashboard/internal/stats"
)

// SiteSource supplies the current snapshot and collector state.
type SiteSource interface {
	Records(ctx context.Context) ([]domain.SiteRecord, time.Time, error)
	Status() labrador.Status
}

// ReportService generates reports and exposes the run ledger.
type ReportService interface {
	Generate(ctx context.Context, req report.Request) (*report.Run, error)
	Runs() report.RunStore
}

// Handlers contains all HTTP handlers
type Handlers struct {
	source  SiteSource
	asm     *stats.Assembler
	reports ReportService
}

// NewHandlers creates handlers. reports may be nil, which disables the
// report endpoints.
func NewHandlers(source SiteSource, asm *stats.Assembler, reports ReportService) *Handlers {
	return &Handlers{source: source, asm: asm, reports: reports}
}

// records loads the snapshot or writes an error response.
func (h *Handlers) records(w http.ResponseWriter, r *http.Request) ([]domain.SiteRecord, bool) {
	records, _, err := h.source.Records(r.Context())
	if errors.Is(err, labrador.ErrNoSnapshot) {
		httputil.Unavailable(w, "site data not loaded yet")
		return nil, false
	}
	if err != nil {
		httputil.InternalError(w, err)
		return nil, false
	}
	return records, true
}

func (h *Handlers) dimension(w http.ResponseWriter, r *http.Request) (stats.Dimension, bool) {
	dim, err := stats.ParseDimension(r.URL.Query().Get("view"))
	if err != nil || (dim != stats.DimIndividual && dim != stats.DimTeam) {
		httputil.BadRequest(w, "view must be individual or team")
		return "", false
	}
	return dim, true
}

// HealthCheck reports liveness plus snapshot age
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	st := h.source.Status()
	status := "healthy"
	resp := map[string]interface{}{
		"timestamp":  time.Now().UTC(),
		"is_running": st.Running,
		"sites":      st.Sites,
	}
	if st.LastFetch.IsZero() {
		status = "starting"
	} else {
		resp["last_fetch"] = st.LastFetch
		resp["snapshot_age_seconds"] = int(time.Since(st.LastFetch).Seconds())
	}
	if st.LastError != "" {
		status = "degraded"
		resp["last_error"] = st.LastError
	}
	resp["status"] = status
	httputil.OK(w, resp)
}

// resolveAgentRange maps the agents view window to a date range. A nil
// range means all time.
func (h *Handlers) resolveAgentRange(r *http.Request) (*calendar.DateRange, error) {
	q := r.URL.Query()
	switch window := strings.ToLower(q.Get("window")); window {
	case "", "all", string(stats.WindowTotal):
		return nil, nil
	case "custom":
		loc := h.asm.Calendar().Location()
		from, err := time.ParseInLocation("2006-01-02", q.Get("from"), loc)
		if err != nil {
			return nil, errors.New("from must be YYYY-MM-DD")
		}
		to, err := time.ParseInLocation("2006-01-02", q.Get("to"), loc)
		if err != nil {
			return nil, errors.New("to must be YYYY-MM-DD")
		}
		if to.Before(from) {
			return nil, errors.New("from must not be after to")
		}
		rng := calendar.DayRange(from, to)
		return &rng, nil
	default:
		w, err := stats.ParseWindow(window)
		if err != nil {
			return nil, err
		}
		return h.asm.Range(w), nil
	}
}

// GetAgents returns per-agent or per-team rows for a window
func (h *Handlers) GetAgents(w http.ResponseWriter, r *http.Request) {
	dim, ok := h.dimension(w, r)
	if !ok {
		return
	}
	rng, err := h.resolveAgentRange(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	records, ok := h.records(w, r)
	if !ok {
		return
	}
	rows, err := h.asm.ByAgent(records, dim, rng)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	httputil.OK(w, map[string]interface{}{
		"view":  dim,
		"range": rng,
		"rows":  rows,
	})
}

// GetOverview returns organisation totals for the standard windows
func (h *Handlers) GetOverview(w http.ResponseWriter, r *http.Request) {
	records, ok := h.records(w, r)
	if !ok {
		return
	}
	httputil.OK(w, h.asm.Overview(records))
}

// organisationWindow accepts only the organisation tabs.
func organisationWindow(w http.ResponseWriter, r *http.Request) (stats.Window, bool) {
	win, err := stats.ParseWindow(chi.URLParam(r, "window"))
	switch win {
	case stats.WindowLast7Days, stats.WindowCurrentMonth, stats.WindowPreviousMonth, stats.WindowTotal:
	default:
		err = errors.New("window must be last7days, current_month, previous_month or total")
	}
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return "", false
	}
	return win, true
}

// GetOrganisationSummary returns everything shown for one organisation tab
func (h *Handlers) GetOrganisationSummary(w http.ResponseWriter, r *http.Request) {
	win, ok := organisationWindow(w, r)
	if !ok {
		return
	}
	records, ok := h.records(w, r)
	if !ok {
		return
	}
	httputil.OK(w, h.asm.Summary(records, win))
}

// GetOrganisationDaily returns the daily series, or monthly rows for total
func (h *Handlers) GetOrganisationDaily(w http.ResponseWriter, r *http.Request) {
	win, ok := organisationWindow(w, r)
	if !ok {
		return
	}
	records, ok := h.records(w, r)
	if !ok {
		return
	}
	rng := h.asm.Range(win)
	if rng == nil {
		httputil.OK(w, h.asm.MonthlyStats(records))
		return
	}
	httputil.OK(w, h.asm.DailyStats(records, *rng))
}

// GetOrganisationWeekly returns the weekly series of a bounded window
func (h *Handlers) GetOrganisationWeekly(w http.ResponseWriter, r *http.Request) {
	win, ok := organisationWindow(w, r)
	if !ok {
		return
	}
	rng := h.asm.Range(win)
	if rng == nil {
		httputil.BadRequest(w, "weekly series needs a bounded window")
		return
	}
	records, ok := h.records(w, r)
	if !ok {
		return
	}
	httputil.OK(w, h.asm.WeeklyStats(records, *rng))
}

// GetOrganisationTypes returns the recommendation-type roll-up of a window
func (h *Handlers) GetOrganisationTypes(w http.ResponseWriter, r *http.Request) {
	win, ok := organisationWindow(w, r)
	if !ok {
		return
	}
	records, ok := h.records(w, r)
	if !ok {
		return
	}
	httputil.OK(w, h.asm.ByRecommendationType(records, h.asm.Range(win)))
}

// GetDailyBreakdown returns (day, agent|team) rows
func (h *Handlers) GetDailyBreakdown(w http.ResponseWriter, r *http.Request) {
	dim, ok := h.dimension(w, r)
	if !ok {
		return
	}
	records, ok := h.records(w, r)
	if !ok {
		return
	}
	rows, err := h.asm.DailyBreakdown(records, dim)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	httputil.OK(w, rows)
}

// GetWeeklyTrend returns (week, agent|team) rows
func (h *Handlers) GetWeeklyTrend(w http.ResponseWriter, r *http.Request) {
	dim, ok := h.dimension(w, r)
	if !ok {
		return
	}
	records, ok := h.records(w, r)
	if !ok {
		return
	}
	rows, err := h.asm.WeeklyTrend(records, dim)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	httputil.OK(w, rows)
}

// GetSites returns the per-site table
func (h *Handlers) GetSites(w http.ResponseWriter, r *http.Request) {
	records, ok := h.records(w, r)
	if !ok {
		return
	}
	httputil.OK(w, stats.SiteTable(records, h.asm.Calendar().Location()))
}

// GetTeams returns the configured roster
func (h *Handlers) GetTeams(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, h.asm.Resolver().Teams())
}
