package stats

import (
	"context"
	"sort"
	"time"

	"github.com/perse/carbon-dashboard/internal/calendar"
	"github.com/perse/carbon-dashboard/internal/domain"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// KeyFunc maps a record to its group. ok=false drops the record from the
// aggregation.
type KeyFunc func(domain.SiteRecord) (key string, ok bool)

// Selection scopes an aggregation: an eligibility predicate and an optional
// onboard-date window.
type Selection struct {
	Eligible Predicate
	Range    *calendar.DateRange
	Location *time.Location
}

func (s Selection) match(r domain.SiteRecord) bool {
	if s.Eligible != nil && !s.Eligible(r) {
		return false
	}
	if s.Range != nil && !HasDateIn(r, *s.Range, s.Location) {
		return false
	}
	return true
}

// Bucket accumulates one group. The zero value is not usable; use NewBucket.
type Bucket struct {
	Sites        int
	Interactions int
	Amounts      Savings
	contacts     map[string]struct{}
}

// NewBucket returns an empty bucket.
func NewBucket() *Bucket {
	return &Bucket{contacts: make(map[string]struct{})}
}

// Add folds one record into the bucket.
func (b *Bucket) Add(r domain.SiteRecord) {
	b.Sites++
	if key, ok := r.ContactKey(); ok {
		b.contacts[key] = struct{}{}
	}
	if r.Interacted() {
		b.Interactions++
	}
	for _, rec := range r.Recommendations {
		b.Amounts.Add(rec)
	}
}

// Merge folds other into b. Contacts are combined by set union.
func (b *Bucket) Merge(other *Bucket) {
	b.Sites += other.Sites
	b.Interactions += other.Interactions
	b.Amounts.Merge(other.Amounts)
	for c := range other.contacts {
		b.contacts[c] = struct{}{}
	}
}

// UniqueContacts is the number of distinct contact identifiers.
func (b *Bucket) UniqueContacts() int { return len(b.contacts) }

// Contacts returns the distinct contact identifiers, sorted.
func (b *Bucket) Contacts() []string {
	out := make([]string, 0, len(b.contacts))
	for c := range b.contacts {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Row projects the bucket under name.
func (b *Bucket) Row(name string) Row {
	return Row{
		Name:                name,
		Sites:               b.Sites,
		UniqueContacts:      b.UniqueContacts(),
		CustomerInteraction: b.Interactions,
		TotalSavings:        b.Amounts.Savings,
		TotalCarbonSavings:  b.Amounts.CarbonSavings,
		TotalCost:           b.Amounts.Cost,
	}
}

// Row is the projection of one group.
type Row struct {
	Name                string          `json:"name"`
	Sites               int             `json:"sites"`
	UniqueContacts      int             `json:"uniqueContacts"`
	CustomerInteraction int             `json:"customerInteraction"`
	TotalSavings        decimal.Decimal `json:"totalSavings"`
	TotalCarbonSavings  decimal.Decimal `json:"totalCarbonSavings"`
	TotalCost           decimal.Decimal `json:"totalCost"`
}

// Groups maps a group key to its bucket.
type Groups map[string]*Bucket

// Add folds r into the bucket for key.
func (g Groups) Add(key string, r domain.SiteRecord) {
	b, ok := g[key]
	if !ok {
		b = NewBucket()
		g[key] = b
	}
	b.Add(r)
}

// Merge folds every bucket of other into g.
func (g Groups) Merge(other Groups) {
	for key, ob := range other {
		b, ok := g[key]
		if !ok {
			b = NewBucket()
			g[key] = b
		}
		b.Merge(ob)
	}
}

// Rows projects g sorted by sites descending, then name ascending.
func (g Groups) Rows() []Row {
	rows := make([]Row, 0, len(g))
	for key, b := range g {
		rows = append(rows, b.Row(key))
	}
	sortRows(rows)
	return rows
}

func sortRows(rows []Row) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Sites != rows[j].Sites {
			return rows[i].Sites > rows[j].Sites
		}
		return rows[i].Name < rows[j].Name
	})
}

// GroupBy folds the selected records into buckets by key.
func GroupBy(records []domain.SiteRecord, key KeyFunc, sel Selection) Groups {
	g := make(Groups)
	for _, r := range records {
		if !sel.match(r) {
			continue
		}
		k, ok := key(r)
		if !ok {
			continue
		}
		g.Add(k, r)
	}
	return g
}

// GroupConcurrent is GroupBy over shards of records folded in parallel.
// The result is identical to GroupBy for any shard count.
func GroupConcurrent(ctx context.Context, records []domain.SiteRecord, key KeyFunc, sel Selection, shards int) (Groups, error) {
	if shards < 1 {
		shards = 1
	}
	if shards > len(records) {
		shards = len(records)
	}
	if shards <= 1 {
		return GroupBy(records, key, sel), nil
	}

	partials := make([]Groups, shards)
	size := (len(records) + shards - 1) / shards
	eg, ctx := errgroup.WithContext(ctx)
	for i := 0; i < shards; i++ {
		i := i
		lo := i * size
		hi := lo + size
		if hi > len(records) {
			hi = len(records)
		}
		if lo >= hi {
			partials[i] = make(Groups)
			continue
		}
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			partials[i] = GroupBy(records[lo:hi], key, sel)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	out := make(Groups)
	for _, p := range partials {
		out.Merge(p)
	}
	return out, nil
}

// WeeklyRow is a Row bucketed by calendar week.
type WeeklyRow struct {
	Week string `json:"week"`
	Row
}

// GroupByWeek groups selected records by (week, key). Rows are ordered by
// week start, then name. Undated records are skipped.
func GroupByWeek(records []domain.SiteRecord, cal *calendar.Calendar, key KeyFunc, sel Selection) []WeeklyRow {
	weekly := func(r domain.SiteRecord) (string, bool) {
		t, ok := r.OnboardTime(cal.Location())
		if !ok {
			return "", false
		}
		k, ok := key(r)
		if !ok {
			return "", false
		}
		return compositeKey(cal.DayKey(cal.StartOfWeek(t)), k), true
	}
	if sel.Location == nil {
		sel.Location = cal.Location()
	}

	g := GroupBy(records, weekly, sel)
	keys := make([]string, 0, len(g))
	for k := range g {
		keys = append(keys, k)
	}
	// Day keys are zero-padded, so lexical order is chronological.
	sort.Strings(keys)

	rows := make([]WeeklyRow, 0, len(keys))
	for _, k := range keys {
		start, name := splitKey(k)
		t, _ := time.ParseInLocation("2006-01-02", start, cal.Location())
		rows = append(rows, WeeklyRow{Week: cal.WeekLabel(t), Row: g[k].Row(name)})
	}
	return rows
}
