package stats

import (
	"testing"
	"time"

	"github.com/perse/carbon-dashboard/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), append([]interface{}{"want %s, got %s", want, got.String()}, msgAndArgs...)...)
}

func rec(typ string, savings, carbon, cost string) domain.Recommendation {
	r := domain.Recommendation{Type: typ}
	if savings != "" {
		r.PotentialSavings = dec(savings)
	}
	if carbon != "" {
		r.PotentialCarbonSavings = dec(carbon)
	}
	if cost != "" {
		r.UpgradeCost = decimal.NewNullDecimal(dec(cost))
	}
	return r
}

func site(agent, status, onboard, contact string, recs ...domain.Recommendation) domain.SiteRecord {
	return domain.SiteRecord{
		AgentName:       agent,
		SiteStatus:      status,
		OnboardDate:     onboard,
		ContactEmail:    contact,
		Recommendations: recs,
	}
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
