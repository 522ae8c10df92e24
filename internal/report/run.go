// Package report builds the daily carbon report, archives its files and
// records each run in a ledger an external mailer can pick up.
package report

import (
	"context"
	"errors"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"
)

// Run statuses.
const (
	StatusArchived = "archived"
	StatusFailed   = "failed"
)

var (
	// ErrNotFound is returned when a run id is unknown.
	ErrNotFound = errors.New("report: run not found")
	// ErrNoRecipients is returned when no valid recipient address remains.
	ErrNoRecipients = errors.New("report: at least one valid recipient is required")
)

// Run is one report generation.
type Run struct {
	ID            string    `json:"id"`
	GeneratedAt   time.Time `json:"generatedAt"`
	Recipients    []string  `json:"recipients"`
	SiteCount     int       `json:"siteCount"`
	ArchivePrefix string    `json:"archivePrefix"`
	Files         []string  `json:"files"`
	Status        string    `json:"status"`
	Error         string    `json:"error,omitempty"`
}

// RunStore persists runs.
type RunStore interface {
	Create(ctx context.Context, run *Run) error
	Get(ctx context.Context, id string) (*Run, error)
	List(ctx context.Context, limit int) ([]Run, error)
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ParseRecipients trims and drops blank entries, then validates the rest.
// Every remaining address must be valid and at least one must remain.
func ParseRecipients(raw []string) ([]string, error) {
	out := make([]string, 0, len(raw))
	var invalid []string
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		if !emailPattern.MatchString(r) {
			invalid = append(invalid, r)
			continue
		}
		out = append(out, r)
	}
	if len(invalid) > 0 {
		return nil, &InvalidRecipientsError{Addresses: invalid}
	}
	if len(out) == 0 {
		return nil, ErrNoRecipients
	}
	return out, nil
}

// InvalidRecipientsError lists addresses that failed validation.
type InvalidRecipientsError struct {
	Addresses []string
}

func (e *InvalidRecipientsError) Error() string {
	return "report: invalid recipient address(es): " + strings.Join(e.Addresses, ", ")
}

// MemoryRunStore keeps runs in process, for deployments without PostgreSQL.
type MemoryRunStore struct {
	mu   sync.RWMutex
	runs map[string]Run
}

// NewMemoryRunStore returns an empty store.
func NewMemoryRunStore() *MemoryRunStore {
	return &MemoryRunStore{runs: make(map[string]Run)}
}

func (s *MemoryRunStore) Create(ctx context.Context, run *Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = *run
	return nil
}

func (s *MemoryRunStore) Get(ctx context.Context, id string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &run, nil
}

// List returns the newest runs first.
func (s *MemoryRunStore) List(ctx context.Context, limit int) ([]Run, error) {
	s.mu.RLock()
	out := make([]Run, 0, len(s.runs))
	for _, r := range s.runs {
		out = append(out, r)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].GeneratedAt.After(out[j].GeneratedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
