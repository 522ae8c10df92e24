package domain

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Amounts are emitted as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// StatusActive is the only site status counted by default.
const StatusActive = "ACTIVE"

// SiteRecord is one site/customer account as returned by the site-activity API.
// Records are treated as immutable once fetched.
type SiteRecord struct {
	AgentName        string                     `json:"agent_name,omitempty"`
	SiteStatus       string                     `json:"site_status,omitempty"`
	OnboardDate      string                     `json:"onboard_date,omitempty"`
	CreatedAt        string                     `json:"created_at,omitempty"`
	ContactEmail     string                     `json:"contact_email,omitempty"`
	LoggedInContacts int                        `json:"logged_in_contacts,omitempty"`
	Recommendations  []Recommendation           `json:"recommendations,omitempty"`
	SiteAddress      string                     `json:"siteAddress,omitempty"`
	DisplayName      string                     `json:"display_name,omitempty"`
	CompanyName      string                     `json:"company_name,omitempty"`
	ElecMeter        map[string]json.RawMessage `json:"elecMeter,omitempty"`
	GasMeter         map[string]json.RawMessage `json:"gasMeter,omitempty"`
}

// Recommendation is a single savings opportunity attached to a site.
// Savings and carbon fields default to zero when absent.
type Recommendation struct {
	Type                   string              `json:"type,omitempty"`
	PotentialSavings       decimal.Decimal     `json:"potential_savings"`
	PotentialCarbonSavings decimal.Decimal     `json:"potential_carbon_savings"`
	UpgradeCost            decimal.NullDecimal `json:"upgrade_cost"`
	PotentialCost          decimal.NullDecimal `json:"potential_cost"`
}

// Cost returns the upgrade cost, falling back to the potential cost.
// Neither value is filtered for sign.
func (r Recommendation) Cost() decimal.Decimal {
	if r.UpgradeCost.Valid {
		return r.UpgradeCost.Decimal
	}
	if r.PotentialCost.Valid {
		return r.PotentialCost.Decimal
	}
	return decimal.Zero
}

// dateLayouts are tried in order; zoneless layouts are read in the caller's location.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseDate parses an ISO-shaped date string. Values without an explicit
// offset are interpreted in loc (UTC when loc is nil).
func ParseDate(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// OnboardTime returns the parsed onboard date in loc. ok is false when the
// field is missing or unparseable.
func (s SiteRecord) OnboardTime(loc *time.Location) (time.Time, bool) {
	t, ok := ParseDate(s.OnboardDate, loc)
	if !ok {
		return time.Time{}, false
	}
	if loc != nil {
		t = t.In(loc)
	}
	return t, true
}

// ContactKey is the lower-cased contact identifier used for uniqueness.
func (s SiteRecord) ContactKey() (string, bool) {
	key := strings.ToLower(strings.TrimSpace(s.ContactEmail))
	return key, key != ""
}

// Interacted reports whether any contact on the site has logged in.
func (s SiteRecord) Interacted() bool {
	return s.LoggedInContacts > 0
}

// MeterIDs returns the sorted meter identifiers of a meter map (MPANs or MPRNs).
func MeterIDs(meters map[string]json.RawMessage) []string {
	ids := make([]string, 0, len(meters))
	for id := range meters {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
