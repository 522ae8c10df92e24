package stats

import (
	"sort"

	"github.com/perse/carbon-dashboard/internal/domain"
	"github.com/shopspring/decimal"
)

// UnknownType is the bucket for recommendations without a type.
const UnknownType = "Unknown"

// Savings is the financial roll-up of a recommendation list.
type Savings struct {
	Savings       decimal.Decimal
	CarbonSavings decimal.Decimal
	Cost          decimal.Decimal
}

// Add folds one recommendation in. Savings and carbon savings only count
// strictly positive values; cost counts every value.
func (s *Savings) Add(rec domain.Recommendation) {
	if rec.PotentialSavings.IsPositive() {
		s.Savings = s.Savings.Add(rec.PotentialSavings)
	}
	if rec.PotentialCarbonSavings.IsPositive() {
		s.CarbonSavings = s.CarbonSavings.Add(rec.PotentialCarbonSavings)
	}
	s.Cost = s.Cost.Add(rec.Cost())
}

// Merge adds other into s.
func (s *Savings) Merge(other Savings) {
	s.Savings = s.Savings.Add(other.Savings)
	s.CarbonSavings = s.CarbonSavings.Add(other.CarbonSavings)
	s.Cost = s.Cost.Add(other.Cost)
}

// ExtractSavings sums a record's recommendations.
func ExtractSavings(recs []domain.Recommendation) Savings {
	var s Savings
	for _, rec := range recs {
		s.Add(rec)
	}
	return s
}

// TypeTotals is the per-type roll-up. Count is per recommendation, not per site.
type TypeTotals struct {
	Type               string          `json:"type"`
	TotalSavings       decimal.Decimal `json:"totalSavings"`
	TotalCost          decimal.Decimal `json:"totalCost"`
	TotalCarbonSavings decimal.Decimal `json:"totalCarbonSavings"`
	Count              int             `json:"count"`
}

// TypeGroups accumulates TypeTotals keyed by recommendation type.
type TypeGroups map[string]*TypeTotals

// Add folds recs into g.
func (g TypeGroups) Add(recs []domain.Recommendation) {
	for _, rec := range recs {
		typ := rec.Type
		if typ == "" {
			typ = UnknownType
		}
		t, ok := g[typ]
		if !ok {
			t = &TypeTotals{Type: typ}
			g[typ] = t
		}
		var s Savings
		s.Add(rec)
		t.TotalSavings = t.TotalSavings.Add(s.Savings)
		t.TotalCarbonSavings = t.TotalCarbonSavings.Add(s.CarbonSavings)
		t.TotalCost = t.TotalCost.Add(s.Cost)
		t.Count++
	}
}

// Merge adds other into g.
func (g TypeGroups) Merge(other TypeGroups) {
	for typ, o := range other {
		t, ok := g[typ]
		if !ok {
			t = &TypeTotals{Type: typ}
			g[typ] = t
		}
		t.TotalSavings = t.TotalSavings.Add(o.TotalSavings)
		t.TotalCarbonSavings = t.TotalCarbonSavings.Add(o.TotalCarbonSavings)
		t.TotalCost = t.TotalCost.Add(o.TotalCost)
		t.Count += o.Count
	}
}

// ExtractByType groups a recommendation list by type.
func ExtractByType(recs []domain.Recommendation) TypeGroups {
	g := make(TypeGroups)
	g.Add(recs)
	return g
}

// TypeRows projects g sorted by savings descending, then type ascending.
func (g TypeGroups) TypeRows() []TypeTotals {
	rows := make([]TypeTotals, 0, len(g))
	for _, t := range g {
		rows = append(rows, *t)
	}
	sort.Slice(rows, func(i, j int) bool {
		if c := rows[i].TotalSavings.Cmp(rows[j].TotalSavings); c != 0 {
			return c > 0
		}
		return rows[i].Type < rows[j].Type
	})
	return rows
}
