package report

import (
	"context"
	"errors"
	"time"

	"github.com/perse/carbon-dashboard/internal/pkg/distlock"
	"github.com/perse/carbon-dashboard/internal/pkg/logger"
)

// Scheduler generates one report per day at a fixed local hour. A
// distributed lock plus the run ledger keep replicas from producing
// duplicates.
type Scheduler struct {
	gen        *Generator
	lock       distlock.DistLock
	hour       int
	recipients []string
	loc        *time.Location
	now        func() time.Time
	log        *logger.Logger
}

// NewScheduler creates a scheduler firing at hour (0-23) in the
// generator's calendar location.
func NewScheduler(gen *Generator, lock distlock.DistLock, hour int, recipients []string) *Scheduler {
	return &Scheduler{
		gen:        gen,
		lock:       lock,
		hour:       hour,
		recipients: recipients,
		loc:        gen.asm.Calendar().Location(),
		now:        time.Now,
		log:        logger.With("component", "report-scheduler"),
	}
}

// NextRun returns the first firing time strictly after now.
func (s *Scheduler) NextRun(now time.Time) time.Time {
	now = now.In(s.loc)
	next := time.Date(now.Year(), now.Month(), now.Day(), s.hour, 0, 0, 0, s.loc)
	if !next.After(now) {
		next = time.Date(now.Year(), now.Month(), now.Day()+1, s.hour, 0, 0, 0, s.loc)
	}
	return next
}

// Start blocks, generating a report at each firing time until ctx ends.
func (s *Scheduler) Start(ctx context.Context) {
	s.log.Info("starting report scheduler", "hour", s.hour, "next", s.NextRun(s.now()).Format(time.RFC3339))
	for {
		timer := time.NewTimer(time.Until(s.NextRun(s.now())))
		select {
		case <-ctx.Done():
			timer.Stop()
			s.log.Info("stopping report scheduler")
			return
		case <-timer.C:
			if _, err := s.RunOnce(ctx); err != nil {
				s.log.Error("scheduled report failed", "error", err.Error())
			}
		}
	}
}

// RunOnce generates today's report unless another replica holds the lock
// or a successful run for today is already recorded. It returns nil, nil
// when skipped.
func (s *Scheduler) RunOnce(ctx context.Context) (*Run, error) {
	var run *Run
	err := distlock.Run(ctx, s.lock, func(ctx context.Context) error {
		done, err := s.ranToday(ctx)
		if err != nil {
			return err
		}
		if done {
			s.log.Info("report already generated today, skipping")
			return nil
		}
		run, err = s.gen.Generate(ctx, Request{Recipients: s.recipients})
		return err
	})
	if errors.Is(err, distlock.ErrNotAcquired) {
		s.log.Info("report lock held by another replica, skipping")
		return nil, nil
	}
	return run, err
}

func (s *Scheduler) ranToday(ctx context.Context) (bool, error) {
	runs, err := s.gen.runs.List(ctx, 20)
	if err != nil {
		return false, err
	}
	today := s.now().In(s.loc).Format("2006-01-02")
	for _, r := range runs {
		if r.Status == StatusArchived && r.GeneratedAt.In(s.loc).Format("2006-01-02") == today {
			return true, nil
		}
	}
	return false, nil
}
