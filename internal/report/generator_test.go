package report

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/perse/carbon-dashboard/internal/stats"
	"github.com/perse/carbon-dashboard/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readCSV(t *testing.T, data []byte) [][]string {
	t.Helper()
	rows, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestSheetCSV(t *testing.T) {
	s := Sheet{Name: "x", Header: []string{"Name", "Note"}, Rows: [][]string{{"Ann", "says, hi"}}}
	data, err := s.CSV()
	require.NoError(t, err)
	assert.Equal(t, "Name,Note\nAnn,\"says, hi\"\n", string(data))

	empty, err := Sheet{Header: []string{"A"}}.CSV()
	require.NoError(t, err)
	assert.Equal(t, "A\n", string(empty))
}

func TestBuild(t *testing.T) {
	asm := testAssembler(testNow).WithOptions(stats.WithFullDayBounds())
	rep, err := Build(asm, testRecords())
	require.NoError(t, err)

	assert.Equal(t, 3, rep.SiteCount)
	require.Len(t, rep.Windows, 4)
	assert.Equal(t, stats.WindowLast7Days, rep.Windows[0].Window)
	assert.Equal(t, stats.WindowTotal, rep.Windows[3].Window)
	assert.Nil(t, rep.Windows[3].Range)

	// Outsider domain is excluded from every aggregate but listed in the site table.
	assert.Equal(t, 2, rep.Overview.Total.TotalSites)
	assert.Equal(t, 1, rep.Overview.CurrentMonth.TotalSites)
	assert.Equal(t, 1, rep.Overview.PreviousMonth.TotalSites)
	assert.Len(t, rep.Sites, 3)

	require.Len(t, rep.TeamBreakdown, 1)
	assert.Equal(t, "North", rep.TeamBreakdown[0].Name)
	require.Len(t, rep.IndividualBreakdown, 2)
	assert.Equal(t, "Nora Lead", rep.IndividualBreakdown[0].TeamLeader)
}

func TestReportSheets(t *testing.T) {
	asm := testAssembler(testNow).WithOptions(stats.WithFullDayBounds())
	rep, err := Build(asm, testRecords())
	require.NoError(t, err)

	byName := map[string]Sheet{}
	for _, s := range rep.Sheets() {
		byName[s.Name] = s
	}
	for _, name := range []string{
		"overview", "last7days-daily", "last7days-weekly", "current_month-types",
		"previous_month-agents", "total-monthly", "total-teams",
		"daily-breakdown-agents", "daily-breakdown-teams", "sites",
	} {
		assert.Contains(t, byName, name)
	}
	assert.NotContains(t, byName, "total-daily")

	overview := byName["overview"]
	require.Len(t, overview.Rows, 4)
	assert.Equal(t, []string{"All Time", "2", "2", "1", "100.50", "20.00", "300.00"}, overview.Rows[3])

	agents := byName["daily-breakdown-agents"]
	assert.Equal(t, "Team Leader", agents.Header[2])
	require.NotEmpty(t, agents.Rows)
	assert.Equal(t, "12/03/2025", agents.Rows[0][0])
	assert.Equal(t, "Ann Agent", agents.Rows[0][1])
	assert.Equal(t, "100%", agents.Rows[0][6])

	teamsSheet := byName["daily-breakdown-teams"]
	assert.Equal(t, "Sites", teamsSheet.Header[2])

	assert.Len(t, byName["last7days-daily"].Rows, 7)
}

func TestGenerator_Generate(t *testing.T) {
	archive, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	runs := NewMemoryRunStore()

	gen := NewGenerator(&fakeSource{records: testRecords()}, testAssembler(testNow), archive, runs, "reports")
	gen.newID = func() string { return "run-1" }

	run, err := gen.Generate(context.Background(), Request{Recipients: []string{" ops@example.com "}})
	require.NoError(t, err)

	assert.Equal(t, "run-1", run.ID)
	assert.Equal(t, StatusArchived, run.Status)
	assert.Equal(t, []string{"ops@example.com"}, run.Recipients)
	assert.Equal(t, 3, run.SiteCount)
	assert.Equal(t, "reports/2025-03-12/run-1", run.ArchivePrefix)
	assert.Contains(t, run.Files, "reports/2025-03-12/run-1/summary.json")
	assert.Contains(t, run.Files, "reports/2025-03-12/run-1/sites.csv")

	stored, err := runs.Get(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, run.Files, stored.Files)

	data, err := archive.Get(context.Background(), "reports/2025-03-12/run-1/summary.json")
	require.NoError(t, err)
	var summary struct {
		SiteCount int `json:"siteCount"`
		Overview  struct {
			Total struct {
				TotalSavings float64 `json:"totalSavings"`
			} `json:"total"`
		} `json:"overview"`
	}
	require.NoError(t, json.Unmarshal(data, &summary))
	assert.Equal(t, 3, summary.SiteCount)
	assert.Equal(t, 100.5, summary.Overview.Total.TotalSavings)

	sites, err := archive.Get(context.Background(), "reports/2025-03-12/run-1/sites.csv")
	require.NoError(t, err)
	rows := readCSV(t, sites)
	require.Len(t, rows, 4)
	assert.Equal(t, "Site Address", rows[0][0])
	assert.Equal(t, "1 High Street", rows[1][0])

	msg, err := archive.Get(context.Background(), "reports/2025-03-12/run-1/message.html")
	require.NoError(t, err)
	html := string(msg)
	assert.Contains(t, html, "Total sites analysed: 3")
	assert.Contains(t, html, "Report generated on: 12/03/2025")
	assert.Contains(t, html, "<td>All Time</td><td>2</td><td>2</td><td>100.50</td><td>20.00</td>")
	assert.Contains(t, html, "<li>summary.json</li>")
	assert.Contains(t, html, "<li>sites.csv</li>")
	assert.NotContains(t, html, "message.html")
	assert.Contains(t, run.Files, "reports/2025-03-12/run-1/message.html")
}

func TestReportMessage(t *testing.T) {
	asm := testAssembler(testNow).WithOptions(stats.WithFullDayBounds())
	rep, err := Build(asm, testRecords())
	require.NoError(t, err)

	body, err := rep.Message([]string{"overview.csv", "<b>odd</b>.csv"})
	require.NoError(t, err)
	html := string(body)
	assert.Contains(t, html, "<h1>Daily Carbon Data Report</h1>")
	assert.Contains(t, html, "<li>overview.csv</li>")
	assert.Contains(t, html, "<li>&lt;b&gt;odd&lt;/b&gt;.csv</li>")
	assert.Contains(t, html, "<td>Last 7 Days</td>")
}

func TestGenerator_UsesFullDayBounds(t *testing.T) {
	gen := NewGenerator(&fakeSource{}, testAssembler(testNow), nil, NewMemoryRunStore(), "reports")
	today := gen.asm.Range(stats.WindowToday)
	require.NotNil(t, today)
	assert.Equal(t, 23, today.End.Hour())
}

func TestGenerator_RejectsRecipients(t *testing.T) {
	runs := NewMemoryRunStore()
	gen := NewGenerator(&fakeSource{records: testRecords()}, testAssembler(testNow), failingArchive{}, runs, "reports")

	_, err := gen.Generate(context.Background(), Request{Recipients: []string{""}})
	assert.ErrorIs(t, err, ErrNoRecipients)

	list, err := runs.List(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestGenerator_RecordsFailure(t *testing.T) {
	runs := NewMemoryRunStore()
	gen := NewGenerator(&fakeSource{records: testRecords()}, testAssembler(testNow), failingArchive{}, runs, "reports")
	gen.newID = func() string { return "run-2" }

	run, err := gen.Generate(context.Background(), Request{Recipients: []string{"ops@example.com"}})
	require.Error(t, err)
	require.NotNil(t, run)
	assert.Equal(t, StatusFailed, run.Status)
	assert.Contains(t, run.Error, "bucket unavailable")

	stored, err := runs.Get(context.Background(), "run-2")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, stored.Status)
}

func TestGenerator_SourceError(t *testing.T) {
	runs := NewMemoryRunStore()
	gen := NewGenerator(&fakeSource{err: errors.New("no snapshot")}, testAssembler(testNow), failingArchive{}, runs, "reports")

	run, err := gen.Generate(context.Background(), Request{Recipients: []string{"ops@example.com"}})
	require.Error(t, err)
	assert.Equal(t, StatusFailed, run.Status)
	assert.Contains(t, run.Error, "no snapshot")
}
