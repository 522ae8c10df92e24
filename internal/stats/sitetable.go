package stats

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/perse/carbon-dashboard/internal/domain"
)

const notAvailable = "N/A"

// SiteRow is one line of the per-site table.
type SiteRow struct {
	Address     string `json:"address"`
	AgentName   string `json:"agentName"`
	OnboardDate string `json:"onboardDate"`
	Status      string `json:"status"`
	MPAN        string `json:"mpan"`
	MPRN        string `json:"mprn"`
	CompanyName string `json:"companyName"`
}

// SiteTable lists every record, eligible or not, newest onboard date first.
// Records without a date go last in input order.
func SiteTable(records []domain.SiteRecord, loc *time.Location) []SiteRow {
	type dated struct {
		row SiteRow
		at  time.Time
		ok  bool
	}
	items := make([]dated, 0, len(records))
	for _, r := range records {
		at, ok := r.OnboardTime(loc)
		row := SiteRow{
			Address:     firstNonEmpty(r.SiteAddress, r.DisplayName),
			AgentName:   FormatAgentName(orDefault(r.AgentName, "Unknown")),
			OnboardDate: notAvailable,
			Status:      orDefault(r.SiteStatus, notAvailable),
			MPAN:        meterList(r.ElecMeter),
			MPRN:        meterList(r.GasMeter),
			CompanyName: orDefault(r.CompanyName, notAvailable),
		}
		if ok {
			row.OnboardDate = at.Format("02/01/2006")
		}
		items = append(items, dated{row: row, at: at, ok: ok})
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].ok != items[j].ok {
			return items[i].ok
		}
		return items[i].at.After(items[j].at)
	})

	rows := make([]SiteRow, len(items))
	for i, it := range items {
		rows[i] = it.row
	}
	return rows
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return notAvailable
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func meterList(meters map[string]json.RawMessage) string {
	ids := domain.MeterIDs(meters)
	if len(ids) == 0 {
		return notAvailable
	}
	return strings.Join(ids, ", ")
}
