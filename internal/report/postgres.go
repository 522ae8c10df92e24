package report

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

// PostgresRunStore implements RunStore against the report_runs table.
type PostgresRunStore struct{ db *sql.DB }

// NewPostgresRunStore creates a Postgres-backed run ledger.
func NewPostgresRunStore(db *sql.DB) *PostgresRunStore { return &PostgresRunStore{db: db} }

func (s *PostgresRunStore) Create(ctx context.Context, run *Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO report_runs
			(id, generated_at, recipients, site_count, archive_prefix, files, status, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''))
	`, run.ID, run.GeneratedAt, pq.Array(run.Recipients), run.SiteCount,
		run.ArchivePrefix, pq.Array(run.Files), run.Status, run.Error)
	if err != nil {
		return fmt.Errorf("insert report run: %w", err)
	}
	return nil
}

const runColumns = `id, generated_at, recipients, site_count, archive_prefix, files, status, COALESCE(error, '')`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row scanner) (*Run, error) {
	r := &Run{}
	err := row.Scan(&r.ID, &r.GeneratedAt, pq.Array(&r.Recipients), &r.SiteCount,
		&r.ArchivePrefix, pq.Array(&r.Files), &r.Status, &r.Error)
	if err != nil {
		return nil, err
	}
	if r.Recipients == nil {
		r.Recipients = []string{}
	}
	if r.Files == nil {
		r.Files = []string{}
	}
	return r, nil
}

func (s *PostgresRunStore) Get(ctx context.Context, id string) (*Run, error) {
	r, err := scanRun(s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM report_runs WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get report run: %w", err)
	}
	return r, nil
}

// List returns the newest runs first.
func (s *PostgresRunStore) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM report_runs ORDER BY generated_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list report runs: %w", err)
	}
	defer rows.Close()

	out := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan report run: %w", err)
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}
