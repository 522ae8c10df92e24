package report

import (
	"context"
	"errors"
	"time"

	"github.com/perse/carbon-dashboard/internal/calendar"
	"github.com/perse/carbon-dashboard/internal/domain"
	"github.com/perse/carbon-dashboard/internal/stats"
	"github.com/perse/carbon-dashboard/internal/storage"
	"github.com/perse/carbon-dashboard/internal/teams"
	"github.com/shopspring/decimal"
)

// 2025-03-12 is a Wednesday.
var testNow = time.Date(2025, time.March, 12, 9, 30, 0, 0, time.UTC)

func testAssembler(now time.Time) *stats.Assembler {
	resolver := teams.NewResolver([]teams.Team{{
		Name:    "North",
		Lead:    "Nora Lead",
		Members: []teams.Member{{Name: "Ann Agent", Email: "ann.agent@edf.com"}},
	}})
	return stats.NewAssembler(calendar.New(), stats.NewFilter("edf.com"), resolver,
		stats.WithClock(func() time.Time { return now }))
}

func testRecords() []domain.SiteRecord {
	return []domain.SiteRecord{
		{
			AgentName:        "ann.agent@edf.com",
			SiteStatus:       domain.StatusActive,
			OnboardDate:      "2025-03-12T08:00:00Z",
			ContactEmail:     "c1@example.com",
			LoggedInContacts: 1,
			SiteAddress:      "1 High Street",
			Recommendations: []domain.Recommendation{{
				Type:                   "LED",
				PotentialSavings:       decimal.RequireFromString("100.5"),
				PotentialCarbonSavings: decimal.RequireFromString("20"),
				UpgradeCost:            decimal.NewNullDecimal(decimal.RequireFromString("300")),
			}},
		},
		{
			AgentName:    "bob.agent@edf.com",
			SiteStatus:   domain.StatusActive,
			OnboardDate:  "2025-02-20",
			ContactEmail: "c2@example.com",
		},
		{
			AgentName:   "outsider@other.com",
			SiteStatus:  domain.StatusActive,
			OnboardDate: "2025-03-11",
		},
	}
}

type fakeSource struct {
	records []domain.SiteRecord
	err     error
}

func (f *fakeSource) Records(ctx context.Context) ([]domain.SiteRecord, time.Time, error) {
	if f.err != nil {
		return nil, time.Time{}, f.err
	}
	return f.records, testNow.Add(-time.Hour), nil
}

type failingArchive struct{}

func (failingArchive) Put(ctx context.Context, obj storage.Object) error {
	return errors.New("bucket unavailable")
}

func (failingArchive) Get(ctx context.Context, key string) ([]byte, error) {
	return nil, storage.ErrNotFound
}

func (failingArchive) Location(key string) string { return key }
