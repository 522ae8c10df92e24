package stats

import (
	"strings"
	"time"

	"github.com/perse/carbon-dashboard/internal/calendar"
	"github.com/perse/carbon-dashboard/internal/domain"
)

// Predicate selects records for an aggregation.
type Predicate func(domain.SiteRecord) bool

// Filter decides which records belong to the organisation.
type Filter struct {
	// Domain is the organisation's email domain, without the "@".
	Domain string
	// StatusExemptions are agent substrings whose records skip the status
	// check in the daily breakdown.
	StatusExemptions []string
}

// NewFilter returns a Filter for domain. Exemptions are matched
// case-insensitively; blanks are dropped.
func NewFilter(domain string, exemptions ...string) Filter {
	f := Filter{Domain: strings.TrimPrefix(strings.TrimSpace(domain), "@")}
	for _, e := range exemptions {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			f.StatusExemptions = append(f.StatusExemptions, e)
		}
	}
	return f
}

// InDomain reports whether the record's agent belongs to the organisation.
func (f Filter) InDomain(r domain.SiteRecord) bool {
	agent := strings.ToLower(strings.TrimSpace(r.AgentName))
	if agent == "" {
		return false
	}
	return strings.Contains(agent, "@"+strings.ToLower(f.Domain))
}

// Eligible is the default rule: ACTIVE status and an organisation agent.
func (f Filter) Eligible(r domain.SiteRecord) bool {
	return r.SiteStatus == domain.StatusActive && f.InDomain(r)
}

// Exempt reports whether the record's agent matches a status exemption.
func (f Filter) Exempt(r domain.SiteRecord) bool {
	agent := strings.ToLower(r.AgentName)
	for _, e := range f.StatusExemptions {
		if strings.Contains(agent, e) {
			return true
		}
	}
	return false
}

// EligibleExempt is Eligible, except that exempted agents keep their
// records regardless of status.
func (f Filter) EligibleExempt(r domain.SiteRecord) bool {
	if !f.InDomain(r) {
		return false
	}
	return r.SiteStatus == domain.StatusActive || f.Exempt(r)
}

// HasDateIn reports whether the record's onboard date parses and falls in rng.
func HasDateIn(r domain.SiteRecord, rng calendar.DateRange, loc *time.Location) bool {
	t, ok := r.OnboardTime(loc)
	if !ok {
		return false
	}
	return rng.Contains(t)
}
