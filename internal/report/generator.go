package report

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/perse/carbon-dashboard/internal/domain"
	"github.com/perse/carbon-dashboard/internal/pkg/logger"
	"github.com/perse/carbon-dashboard/internal/stats"
	"github.com/perse/carbon-dashboard/internal/storage"
)

// RecordSource supplies the current site snapshot.
type RecordSource interface {
	Records(ctx context.Context) ([]domain.SiteRecord, time.Time, error)
}

// reportWindows are the windows every report covers, in sheet order.
var reportWindows = []stats.Window{
	stats.WindowLast7Days,
	stats.WindowCurrentMonth,
	stats.WindowPreviousMonth,
	stats.WindowTotal,
}

// Report is the assembled content of one report run.
type Report struct {
	GeneratedAt         time.Time             `json:"generatedAt"`
	DataFetchedAt       time.Time             `json:"dataFetchedAt"`
	SiteCount           int                   `json:"siteCount"`
	Overview            stats.Overview        `json:"overview"`
	Windows             []stats.WindowSummary `json:"windows"`
	IndividualBreakdown []stats.BreakdownRow  `json:"individualBreakdown"`
	TeamBreakdown       []stats.BreakdownRow  `json:"teamBreakdown"`
	Sites               []stats.SiteRow       `json:"-"`
}

// Build assembles a report from records. asm should use full-day bounds.
func Build(asm *stats.Assembler, records []domain.SiteRecord) (*Report, error) {
	individual, err := asm.DailyBreakdown(records, stats.DimIndividual)
	if err != nil {
		return nil, err
	}
	team, err := asm.DailyBreakdown(records, stats.DimTeam)
	if err != nil {
		return nil, err
	}
	r := &Report{
		GeneratedAt:         asm.Now(),
		SiteCount:           len(records),
		Overview:            asm.Overview(records),
		Windows:             make([]stats.WindowSummary, 0, len(reportWindows)),
		IndividualBreakdown: individual,
		TeamBreakdown:       team,
		Sites:               stats.SiteTable(records, asm.Calendar().Location()),
	}
	for _, w := range reportWindows {
		r.Windows = append(r.Windows, asm.Summary(records, w))
	}
	return r, nil
}

// Sheets lays the report out as tabular exports.
func (r *Report) Sheets() []Sheet {
	sheets := []Sheet{totalsSheet("overview", r.Overview)}
	for _, w := range r.Windows {
		name := string(w.Window)
		if w.Range == nil {
			sheets = append(sheets, periodSheet(name+"-monthly", w.Monthly))
		} else {
			sheets = append(sheets,
				periodSheet(name+"-daily", w.Daily),
				periodSheet(name+"-weekly", w.Weekly),
			)
		}
		sheets = append(sheets,
			typesSheet(name+"-types", w.Types),
			groupSheet(name+"-agents", "Agent", w.Agents),
			groupSheet(name+"-teams", "Team", w.Teams),
		)
	}
	sheets = append(sheets,
		breakdownSheet("daily-breakdown-agents", "Agent", r.IndividualBreakdown, true),
		breakdownSheet("daily-breakdown-teams", "Team", r.TeamBreakdown, false),
		siteSheet("sites", r.Sites),
	)
	return sheets
}

// Files renders every sheet as CSV plus a JSON summary, followed by the
// HTML message listing them.
func (r *Report) Files() ([]storage.Object, error) {
	sheets := r.Sheets()
	files := make([]storage.Object, 0, len(sheets)+2)

	summary, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding summary: %w", err)
	}
	files = append(files, storage.Object{Key: "summary.json", ContentType: "application/json", Body: summary})

	for _, s := range sheets {
		body, err := s.CSV()
		if err != nil {
			return nil, fmt.Errorf("rendering sheet %s: %w", s.Name, err)
		}
		files = append(files, storage.Object{Key: s.Name + ".csv", ContentType: "text/csv", Body: body})
	}

	msg, err := messageObject(r, files)
	if err != nil {
		return nil, err
	}
	return append(files, msg), nil
}

// Request asks for one report.
type Request struct {
	Recipients []string `json:"recipients"`
}

// Generator produces, archives and records reports.
type Generator struct {
	source  RecordSource
	asm     *stats.Assembler
	archive storage.Archive
	runs    RunStore
	prefix  string
	newID   func() string
	log     *logger.Logger
}

// NewGenerator creates a generator. The assembler is switched to full-day
// bounds so "today" covers the whole day.
func NewGenerator(source RecordSource, asm *stats.Assembler, archive storage.Archive, runs RunStore, prefix string) *Generator {
	return &Generator{
		source:  source,
		asm:     asm.WithOptions(stats.WithFullDayBounds()),
		archive: archive,
		runs:    runs,
		prefix:  prefix,
		newID:   uuid.NewString,
		log:     logger.With("component", "report"),
	}
}

// Runs exposes the run ledger.
func (g *Generator) Runs() RunStore { return g.runs }

// Generate builds and archives a report for req. Invalid recipients fail
// before anything is recorded; later failures are recorded as a failed run,
// which is returned along with the error.
func (g *Generator) Generate(ctx context.Context, req Request) (*Run, error) {
	recipients, err := ParseRecipients(req.Recipients)
	if err != nil {
		return nil, err
	}

	now := g.asm.Now()
	id := g.newID()
	run := &Run{
		ID:            id,
		GeneratedAt:   now.UTC(),
		Recipients:    recipients,
		ArchivePrefix: storage.Key(g.prefix, now.Format("2006-01-02"), id),
		Files:         []string{},
		Status:        StatusArchived,
	}
	log := g.log.With("run_id", id)

	if err := g.produce(ctx, run); err != nil {
		run.Status = StatusFailed
		run.Error = err.Error()
		log.Error("report generation failed", "error", err.Error())
		if cerr := g.runs.Create(ctx, run); cerr != nil {
			log.Error("recording failed run", "error", cerr.Error())
		}
		return run, err
	}

	if err := g.runs.Create(ctx, run); err != nil {
		return run, fmt.Errorf("recording run: %w", err)
	}
	log.Info("report archived", "sites", run.SiteCount, "files", len(run.Files), "prefix", run.ArchivePrefix,
		"recipients", len(recipients))
	return run, nil
}

func (g *Generator) produce(ctx context.Context, run *Run) error {
	records, fetchedAt, err := g.source.Records(ctx)
	if err != nil {
		return fmt.Errorf("loading site records: %w", err)
	}

	rep, err := Build(g.asm, records)
	if err != nil {
		return err
	}
	rep.DataFetchedAt = fetchedAt
	run.SiteCount = rep.SiteCount

	files, err := rep.Files()
	if err != nil {
		return err
	}
	for _, f := range files {
		f.Key = storage.Key(run.ArchivePrefix, f.Key)
		if err := g.archive.Put(ctx, f); err != nil {
			return fmt.Errorf("archiving %s: %w", f.Key, err)
		}
		run.Files = append(run.Files, f.Key)
	}
	return nil
}
