package report

import (
	"fmt"

	"github.com/osteele/liquid"
	"github.com/perse/carbon-dashboard/internal/storage"
)

// MessageFile is the archived HTML body an external mailer sends with a run.
const MessageFile = "message.html"

const messageTemplate = `<h1>Daily Carbon Data Report</h1>
<p>Please find attached your daily carbon data report.</p>
<table>
  <tr><th>Window</th><th>Sites</th><th>Unique Customers</th><th>Savings (£)</th><th>Carbon Savings (kg)</th></tr>
{% for w in windows %}
  <tr><td>{{ w.label }}</td><td>{{ w.sites }}</td><td>{{ w.customers }}</td><td>{{ w.savings }}</td><td>{{ w.carbon }}</td></tr>
{% endfor %}
</table>
<p>Attachments:</p>
<ul>
{% for f in attachments %}
  <li>{{ f | escape }}</li>
{% endfor %}
</ul>
<p>Report generated on: {{ generated_at }}</p>
<p>Total sites analysed: {{ site_count }}</p>
`

var messageEngine = liquid.NewEngine()

// Message renders the HTML body listing attachments.
func (r *Report) Message(attachments []string) ([]byte, error) {
	o := r.Overview
	windows := []map[string]interface{}{}
	for _, w := range []struct {
		label string
		sites int
		cust  int
		sav   string
		co2   string
	}{
		{"Last 7 Days", o.Last7Days.TotalSites, o.Last7Days.UniqueCustomers, money(o.Last7Days.TotalSavings), money(o.Last7Days.TotalCarbonSavings)},
		{"Current Month", o.CurrentMonth.TotalSites, o.CurrentMonth.UniqueCustomers, money(o.CurrentMonth.TotalSavings), money(o.CurrentMonth.TotalCarbonSavings)},
		{"Previous Month", o.PreviousMonth.TotalSites, o.PreviousMonth.UniqueCustomers, money(o.PreviousMonth.TotalSavings), money(o.PreviousMonth.TotalCarbonSavings)},
		{"All Time", o.Total.TotalSites, o.Total.UniqueCustomers, money(o.Total.TotalSavings), money(o.Total.TotalCarbonSavings)},
	} {
		windows = append(windows, map[string]interface{}{
			"label": w.label, "sites": w.sites, "customers": w.cust, "savings": w.sav, "carbon": w.co2,
		})
	}

	out, err := messageEngine.ParseAndRenderString(messageTemplate, map[string]interface{}{
		"windows":      windows,
		"attachments":  attachments,
		"generated_at": r.GeneratedAt.Format("02/01/2006 15:04"),
		"site_count":   r.SiteCount,
	})
	if err != nil {
		return nil, fmt.Errorf("rendering message: %w", err)
	}
	return []byte(out), nil
}

func messageObject(r *Report, files []storage.Object) (storage.Object, error) {
	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, f.Key)
	}
	body, err := r.Message(names)
	if err != nil {
		return storage.Object{}, err
	}
	return storage.Object{Key: MessageFile, ContentType: "text/html; charset=utf-8", Body: body}, nil
}
