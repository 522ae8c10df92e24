package report

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"time"

	"github.com/perse/carbon-dashboard/internal/stats"
	"github.com/shopspring/decimal"
)

// Sheet is one tabular export.
type Sheet struct {
	Name   string
	Header []string
	Rows   [][]string
}

// CSV renders the sheet with a header line.
func (s Sheet) CSV() ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(s.Header); err != nil {
		return nil, err
	}
	if err := w.WriteAll(s.Rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func money(d decimal.Decimal) string { return d.StringFixed(2) }

func itoa(n int) string { return strconv.Itoa(n) }

var periodHeader = []string{
	"Period", "Sites", "Unique Customers", "Interactions",
	"Total Savings (£)", "Carbon Savings (kg)", "Investment/Opportunity (£)",
}

func periodSheet(name string, rows []stats.PeriodRow) Sheet {
	s := Sheet{Name: name, Header: periodHeader, Rows: make([][]string, 0, len(rows))}
	for _, r := range rows {
		s.Rows = append(s.Rows, []string{
			r.Date, itoa(r.Sites), itoa(r.Customers), itoa(r.Interactions),
			money(r.Savings), money(r.CarbonSavings), money(r.Cost),
		})
	}
	return s
}

func totalsSheet(name string, o stats.Overview) Sheet {
	s := Sheet{Name: name, Header: []string{
		"Window", "Sites", "Unique Customers", "Interactions",
		"Total Savings (£)", "Carbon Savings (kg)", "Investment/Opportunity (£)",
	}}
	add := func(label string, t stats.Totals) {
		s.Rows = append(s.Rows, []string{
			label, itoa(t.TotalSites), itoa(t.UniqueCustomers), itoa(t.TotalInteractions),
			money(t.TotalSavings), money(t.TotalCarbonSavings), money(t.TotalCost),
		})
	}
	add("Last 7 Days", o.Last7Days)
	add("Current Month", o.CurrentMonth)
	add("Previous Month", o.PreviousMonth)
	add("All Time", o.Total)
	return s
}

func typesSheet(name string, rows []stats.TypeTotals) Sheet {
	s := Sheet{Name: name, Header: []string{
		"Recommendation Type", "Count", "Total Savings (£)", "Carbon Savings (kg)", "Investment/Opportunity (£)",
	}, Rows: make([][]string, 0, len(rows))}
	for _, r := range rows {
		s.Rows = append(s.Rows, []string{
			r.Type, itoa(r.Count), money(r.TotalSavings), money(r.TotalCarbonSavings), money(r.TotalCost),
		})
	}
	return s
}

func groupSheet(name, label string, rows []stats.Row) Sheet {
	s := Sheet{Name: name, Header: []string{
		label, "Sites", "Unique Customers", "Customer Interactions",
		"Total Savings (£)", "Carbon Savings (kg)", "Investment/Opportunity (£)",
	}, Rows: make([][]string, 0, len(rows))}
	for _, r := range rows {
		s.Rows = append(s.Rows, []string{
			r.Name, itoa(r.Sites), itoa(r.UniqueContacts), itoa(r.CustomerInteraction),
			money(r.TotalSavings), money(r.TotalCarbonSavings), money(r.TotalCost),
		})
	}
	return s
}

// exportDate turns a YYYY-MM-DD key into DD/MM/YYYY.
func exportDate(day string) string {
	t, err := time.Parse("2006-01-02", day)
	if err != nil {
		return day
	}
	return t.Format("02/01/2006")
}

func breakdownSheet(name, label string, rows []stats.BreakdownRow, withLead bool) Sheet {
	header := []string{"Date", label}
	if withLead {
		header = append(header, "Team Leader")
	}
	header = append(header, "Sites", "Unique Customers", "Interactions", "Interaction %",
		"Total Savings (£)", "Carbon Savings (kg)", "Investment/Opportunity (£)")

	s := Sheet{Name: name, Header: header, Rows: make([][]string, 0, len(rows))}
	for _, r := range rows {
		row := []string{exportDate(r.Date), r.Name}
		if withLead {
			row = append(row, r.TeamLeader)
		}
		row = append(row,
			itoa(r.Sites), itoa(r.UniqueCustomers), itoa(r.Interactions), itoa(r.InteractionPercent)+"%",
			money(r.TotalSavings), money(r.TotalCarbonSavings), money(r.TotalCost),
		)
		s.Rows = append(s.Rows, row)
	}
	return s
}

func siteSheet(name string, rows []stats.SiteRow) Sheet {
	s := Sheet{Name: name, Header: []string{
		"Site Address", "Agent", "Onboard Date", "Status", "MPAN", "MPRN", "Company",
	}, Rows: make([][]string, 0, len(rows))}
	for _, r := range rows {
		s.Rows = append(s.Rows, []string{
			r.Address, r.AgentName, r.OnboardDate, r.Status, r.MPAN, r.MPRN, r.CompanyName,
		})
	}
	return s
}
