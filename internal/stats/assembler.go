package stats

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/perse/carbon-dashboard/internal/calendar"
	"github.com/perse/carbon-dashboard/internal/domain"
	"github.com/perse/carbon-dashboard/internal/teams"
	"github.com/shopspring/decimal"
)

// Dimension is a grouping axis.
type Dimension string

const (
	DimIndividual Dimension = "individual"
	DimTeam       Dimension = "team"
	DimType       Dimension = "type"
	DimNone       Dimension = "none"
)

// AllKey names the single bucket of the DimNone dimension.
const AllKey = "All"

// ParseDimension validates a dimension name. Empty means individual.
func ParseDimension(s string) (Dimension, error) {
	switch d := Dimension(strings.ToLower(strings.TrimSpace(s))); d {
	case "":
		return DimIndividual, nil
	case DimIndividual, DimTeam, DimType, DimNone:
		return d, nil
	default:
		return "", fmt.Errorf("unknown dimension %q", s)
	}
}

// Window is a named time window.
type Window string

const (
	WindowToday         Window = "today"
	WindowYesterday     Window = "yesterday"
	WindowThisWeek      Window = "this_week"
	WindowLast7Days     Window = "last7days"
	WindowCurrentMonth  Window = "current_month"
	WindowPreviousMonth Window = "previous_month"
	WindowTotal         Window = "total"
)

// ParseWindow validates a window name.
func ParseWindow(s string) (Window, error) {
	switch w := Window(strings.ToLower(strings.TrimSpace(s))); w {
	case WindowToday, WindowYesterday, WindowThisWeek, WindowLast7Days,
		WindowCurrentMonth, WindowPreviousMonth, WindowTotal:
		return w, nil
	default:
		return "", fmt.Errorf("unknown window %q", s)
	}
}

// Assembler shapes grouped output for the dashboard and the report.
// It holds configuration only and is safe for concurrent use.
type Assembler struct {
	cal      *calendar.Calendar
	filter   Filter
	resolver *teams.Resolver
	now      func() time.Time
	live     bool
	shards   int
}

// AssemblerOption configures an Assembler.
type AssemblerOption func(*Assembler)

// WithClock overrides the source of "now".
func WithClock(now func() time.Time) AssemblerOption {
	return func(a *Assembler) { a.now = now }
}

// WithFullDayBounds makes "today" end at 23:59:59.999 instead of now.
func WithFullDayBounds() AssemblerOption {
	return func(a *Assembler) { a.live = false }
}

// WithShards folds ByAgent groups over n parallel shards.
func WithShards(n int) AssemblerOption {
	return func(a *Assembler) { a.shards = n }
}

// NewAssembler returns an Assembler using the live-dashboard bounds.
func NewAssembler(cal *calendar.Calendar, filter Filter, resolver *teams.Resolver, opts ...AssemblerOption) *Assembler {
	if cal == nil {
		cal = calendar.New()
	}
	a := &Assembler{
		cal:      cal,
		filter:   filter,
		resolver: resolver,
		now:      time.Now,
		live:     true,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// WithOptions returns a copy of a with opts applied.
func (a *Assembler) WithOptions(opts ...AssemblerOption) *Assembler {
	cp := *a
	for _, opt := range opts {
		opt(&cp)
	}
	return &cp
}

// Calendar returns the calendar in use.
func (a *Assembler) Calendar() *calendar.Calendar { return a.cal }

// Resolver returns the team roster in use.
func (a *Assembler) Resolver() *teams.Resolver { return a.resolver }

// Now returns the assembler's current time in the calendar's location.
func (a *Assembler) Now() time.Time { return a.cal.In(a.now()) }

// Ranges returns the named windows for the current time.
func (a *Assembler) Ranges() calendar.Ranges { return a.cal.Ranges(a.now(), a.live) }

// Range resolves a window. The total window has no bounds and returns nil.
func (a *Assembler) Range(w Window) *calendar.DateRange {
	r := a.Ranges()
	var out calendar.DateRange
	switch w {
	case WindowToday:
		out = r.Today
	case WindowYesterday:
		out = r.Yesterday
	case WindowThisWeek:
		out = r.ThisWeek
	case WindowLast7Days:
		out = r.Last7Days
	case WindowCurrentMonth:
		out = r.ThisMonth
	case WindowPreviousMonth:
		out = r.PreviousMonth
	default:
		return nil
	}
	return &out
}

func (a *Assembler) selection(rng *calendar.DateRange) Selection {
	return Selection{Eligible: a.filter.Eligible, Range: rng, Location: a.cal.Location()}
}

// ErrUnsupportedDimension is returned when a dimension has no per-record key.
var ErrUnsupportedDimension = errors.New("dimension cannot group records")

// KeyFor returns the per-record grouping key of dim. DimType has none: a
// record carries several recommendations, so type roll-ups go through
// ByRecommendationType.
func (a *Assembler) KeyFor(dim Dimension) (KeyFunc, error) {
	switch dim {
	case DimIndividual:
		return ByIndividual, nil
	case DimTeam:
		return ByTeam(a.resolver), nil
	case DimNone:
		return All(AllKey), nil
	case DimType:
		return nil, fmt.Errorf("%w: %q is served by ByRecommendationType", ErrUnsupportedDimension, dim)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDimension, dim)
	}
}

// PeriodRow is one calendar bucket of a time series.
type PeriodRow struct {
	Date          string          `json:"date"`
	Start         string          `json:"start"`
	Sites         int             `json:"sites"`
	Customers     int             `json:"customers"`
	Interactions  int             `json:"interactions"`
	Savings       decimal.Decimal `json:"savings"`
	CarbonSavings decimal.Decimal `json:"carbonSavings"`
	Cost          decimal.Decimal `json:"cost"`
}

func periodRow(label string, start time.Time, b *Bucket) PeriodRow {
	return PeriodRow{
		Date:          label,
		Start:         start.Format("2006-01-02"),
		Sites:         b.Sites,
		Customers:     b.UniqueContacts(),
		Interactions:  b.Interactions,
		Savings:       b.Amounts.Savings,
		CarbonSavings: b.Amounts.CarbonSavings,
		Cost:          b.Amounts.Cost,
	}
}

// series groups the selected records by bucketOf and emits one row per
// element of starts, zero-filling empty buckets.
func (a *Assembler) series(records []domain.SiteRecord, rng *calendar.DateRange, starts []time.Time,
	bucketOf func(time.Time) time.Time, label func(time.Time) string) []PeriodRow {
	loc := a.cal.Location()
	key := func(r domain.SiteRecord) (string, bool) {
		t, ok := r.OnboardTime(loc)
		if !ok {
			return "", false
		}
		return a.cal.DayKey(bucketOf(t)), true
	}
	g := GroupBy(records, key, a.selection(rng))

	rows := make([]PeriodRow, 0, len(starts))
	for _, s := range starts {
		b, ok := g[a.cal.DayKey(s)]
		if !ok {
			b = NewBucket()
		}
		rows = append(rows, periodRow(label(s), s, b))
	}
	return rows
}

// DailyStats returns one row per day of rng, including days with no records.
func (a *Assembler) DailyStats(records []domain.SiteRecord, rng calendar.DateRange) []PeriodRow {
	return a.series(records, &rng, a.cal.Days(rng), calendar.StartOfDay, a.cal.DayLabel)
}

// WeeklyStats returns one row per calendar week touched by rng.
func (a *Assembler) WeeklyStats(records []domain.SiteRecord, rng calendar.DateRange) []PeriodRow {
	return a.series(records, &rng, a.cal.Weeks(rng), a.cal.StartOfWeek, a.cal.WeekLabel)
}

// MonthlyStats returns one row per month from the earliest eligible record
// to the current month, skipping excluded months.
func (a *Assembler) MonthlyStats(records []domain.SiteRecord) []PeriodRow {
	loc := a.cal.Location()
	var first, last time.Time
	for _, r := range records {
		if !a.filter.Eligible(r) {
			continue
		}
		t, ok := r.OnboardTime(loc)
		if !ok {
			continue
		}
		if first.IsZero() || t.Before(first) {
			first = t
		}
		if t.After(last) {
			last = t
		}
	}
	if first.IsZero() {
		return []PeriodRow{}
	}
	if now := a.Now(); now.After(last) {
		last = now
	}
	rng := calendar.DayRange(first, last)
	return a.series(records, &rng, a.cal.Months(rng), a.cal.StartOfMonth, a.cal.MonthLabel)
}

// Totals is the single aggregate row of a window.
type Totals struct {
	TotalSites         int             `json:"totalSites"`
	UniqueCustomers    int             `json:"uniqueCustomers"`
	TotalInteractions  int             `json:"totalInteractions"`
	TotalSavings       decimal.Decimal `json:"totalSavings"`
	TotalCarbonSavings decimal.Decimal `json:"totalCarbonSavings"`
	TotalCost          decimal.Decimal `json:"totalCost"`
}

// Totals aggregates every eligible record in rng. A nil rng also counts
// records without an onboard date.
func (a *Assembler) Totals(records []domain.SiteRecord, rng *calendar.DateRange) Totals {
	b, ok := GroupBy(records, All(AllKey), a.selection(rng))[AllKey]
	if !ok {
		b = NewBucket()
	}
	return Totals{
		TotalSites:         b.Sites,
		UniqueCustomers:    b.UniqueContacts(),
		TotalInteractions:  b.Interactions,
		TotalSavings:       b.Amounts.Savings,
		TotalCarbonSavings: b.Amounts.CarbonSavings,
		TotalCost:          b.Amounts.Cost,
	}
}

// ByRecommendationType rolls up recommendations of eligible records in rng.
func (a *Assembler) ByRecommendationType(records []domain.SiteRecord, rng *calendar.DateRange) []TypeTotals {
	sel := a.selection(rng)
	g := make(TypeGroups)
	for _, r := range records {
		if sel.match(r) {
			g.Add(r.Recommendations)
		}
	}
	return g.TypeRows()
}

// ByAgent groups eligible records in rng by dim.
func (a *Assembler) ByAgent(records []domain.SiteRecord, dim Dimension, rng *calendar.DateRange) ([]Row, error) {
	key, err := a.KeyFor(dim)
	if err != nil {
		return nil, err
	}
	return a.groupRows(records, key, rng), nil
}

func (a *Assembler) groupRows(records []domain.SiteRecord, key KeyFunc, rng *calendar.DateRange) []Row {
	sel := a.selection(rng)
	if a.shards > 1 {
		// Background context: GroupConcurrent only fails on cancellation.
		if g, err := GroupConcurrent(context.Background(), records, key, sel, a.shards); err == nil {
			return g.Rows()
		}
	}
	return GroupBy(records, key, sel).Rows()
}

// WeeklyTrend groups eligible records by week and dim.
func (a *Assembler) WeeklyTrend(records []domain.SiteRecord, dim Dimension) ([]WeeklyRow, error) {
	key, err := a.KeyFor(dim)
	if err != nil {
		return nil, err
	}
	return GroupByWeek(records, a.cal, key, a.selection(nil)), nil
}

// BreakdownRow is one (day, group) row of the daily breakdown.
type BreakdownRow struct {
	Date               string          `json:"date"`
	Name               string          `json:"name"`
	TeamLeader         string          `json:"teamLeader,omitempty"`
	Sites              int             `json:"sites"`
	UniqueCustomers    int             `json:"uniqueCustomers"`
	Interactions       int             `json:"interactions"`
	InteractionPercent int             `json:"interactionPercent"`
	TotalSavings       decimal.Decimal `json:"totalSavings"`
	TotalCarbonSavings decimal.Decimal `json:"totalCarbonSavings"`
	TotalCost          decimal.Decimal `json:"totalCost"`
}

// InteractionPercent is round(interactions / customers * 100), 0 without customers.
func InteractionPercent(interactions, customers int) int {
	if customers <= 0 {
		return 0
	}
	return int(math.Round(float64(interactions) / float64(customers) * 100))
}

// DailyBreakdown groups dated records by (day, dim), newest day first.
// Agents matching a status exemption keep their inactive records here.
// The team view leaves out agents on no team rather than collecting them
// under an "Unknown" team, so its site counts can sum to less than the
// individual view's.
func (a *Assembler) DailyBreakdown(records []domain.SiteRecord, dim Dimension) ([]BreakdownRow, error) {
	loc := a.cal.Location()
	group, err := a.KeyFor(dim)
	if err != nil {
		return nil, err
	}
	leads := make(map[string]string)
	key := func(r domain.SiteRecord) (string, bool) {
		t, ok := r.OnboardTime(loc)
		if !ok {
			return "", false
		}
		name, ok := group(r)
		if !ok {
			return "", false
		}
		if dim == DimIndividual {
			if _, seen := leads[name]; !seen {
				leads[name] = a.resolver.Lead(r.AgentName)
			}
		}
		return compositeKey(a.cal.DayKey(t), name), true
	}
	g := GroupBy(records, key, Selection{Eligible: a.filter.EligibleExempt, Location: loc})

	rows := make([]BreakdownRow, 0, len(g))
	for k, b := range g {
		day, name := splitKey(k)
		rows = append(rows, BreakdownRow{
			Date:               day,
			Name:               name,
			TeamLeader:         leads[name],
			Sites:              b.Sites,
			UniqueCustomers:    b.UniqueContacts(),
			Interactions:       b.Interactions,
			InteractionPercent: InteractionPercent(b.Interactions, b.UniqueContacts()),
			TotalSavings:       b.Amounts.Savings,
			TotalCarbonSavings: b.Amounts.CarbonSavings,
			TotalCost:          b.Amounts.Cost,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Date != rows[j].Date {
			return rows[i].Date > rows[j].Date
		}
		return rows[i].Name < rows[j].Name
	})
	return rows, nil
}

// Overview holds the organisation totals of the standard windows.
type Overview struct {
	Last7Days     Totals `json:"last7Days"`
	CurrentMonth  Totals `json:"currentMonth"`
	PreviousMonth Totals `json:"previousMonth"`
	Total         Totals `json:"total"`
}

// Overview computes the organisation totals.
func (a *Assembler) Overview(records []domain.SiteRecord) Overview {
	r := a.Ranges()
	return Overview{
		Last7Days:     a.Totals(records, &r.Last7Days),
		CurrentMonth:  a.Totals(records, &r.ThisMonth),
		PreviousMonth: a.Totals(records, &r.PreviousMonth),
		Total:         a.Totals(records, nil),
	}
}

// WindowSummary is everything shown for one window.
type WindowSummary struct {
	Window  Window              `json:"window"`
	Range   *calendar.DateRange `json:"range,omitempty"`
	Totals  Totals              `json:"totals"`
	Daily   []PeriodRow         `json:"daily"`
	Weekly  []PeriodRow         `json:"weekly"`
	Monthly []PeriodRow         `json:"monthly"`
	Types   []TypeTotals        `json:"types"`
	Agents  []Row               `json:"agents"`
	Teams   []Row               `json:"teams"`
}

// Summary assembles a window. Bounded windows get daily and weekly series;
// the total window gets the monthly series.
func (a *Assembler) Summary(records []domain.SiteRecord, w Window) WindowSummary {
	rng := a.Range(w)
	s := WindowSummary{
		Window:  w,
		Range:   rng,
		Totals:  a.Totals(records, rng),
		Daily:   []PeriodRow{},
		Weekly:  []PeriodRow{},
		Monthly: []PeriodRow{},
		Types:   a.ByRecommendationType(records, rng),
		Agents:  a.groupRows(records, ByIndividual, rng),
		Teams:   a.groupRows(records, ByTeam(a.resolver), rng),
	}
	if rng == nil {
		s.Monthly = a.MonthlyStats(records)
		return s
	}
	s.Daily = a.DailyStats(records, *rng)
	s.Weekly = a.WeeklyStats(records, *rng)
	return s
}
