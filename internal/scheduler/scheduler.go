// Package scheduler runs reconciliation jobs on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/roach88/badgify/internal/engine"
)

// Job is one scheduled unit of work.
type Job func(ctx context.Context) error

// Entry describes a registered job.
type Entry struct {
	Name     string
	Schedule string
	Next     time.Time
}

type entry struct {
	id       cron.EntryID
	schedule string
}

// Scheduler manages cron-based job execution. A job never overlaps
// itself: a tick that fires while the previous run is still going is
// skipped.
type Scheduler struct {
	cron    *cron.Cron
	logger  *slog.Logger
	mu      sync.Mutex
	entries map[string]entry
	ctx     context.Context
	cancel  context.CancelFunc
}

// New creates a stopped scheduler.
func New(logger *slog.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		logger:  logger,
		entries: make(map[string]entry),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Add registers job under name. Adding an existing name replaces it.
func (s *Scheduler) Add(name, schedule string, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.entries[name]; ok {
		s.cron.Remove(old.id)
		delete(s.entries, name)
	}

	id, err := s.cron.AddFunc(schedule, func() { s.run(name, job) })
	if err != nil {
		return fmt.Errorf("invalid schedule %q for %s: %w", schedule, name, err)
	}
	s.entries[name] = entry{id: id, schedule: schedule}
	s.logger.Info("scheduled job", "job", name, "schedule", schedule)
	return nil
}

// Remove unregisters name. No-op if absent.
func (s *Scheduler) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[name]; ok {
		s.cron.Remove(e.id)
		delete(s.entries, name)
	}
}

// Entries lists registered jobs ordered by name.
func (s *Scheduler) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Entry, 0, len(s.entries))
	for name, e := range s.entries {
		out = append(out, Entry{
			Name:     name,
			Schedule: e.schedule,
			Next:     s.cron.Entry(e.id).Next,
		})
	}
	slices.SortFunc(out, func(a, b Entry) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// Start begins firing jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.Entries()))
}

// Stop cancels running jobs and waits for them to return, or for ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.cancel()
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) run(name string, job Job) {
	start := time.Now()
	s.logger.Info("job started", "job", name)
	if err := job(s.ctx); err != nil {
		s.logger.Error("job failed", "job", name, "error", err, "duration", time.Since(start))
		return
	}
	s.logger.Info("job finished", "job", name, "duration", time.Since(start))
}

// SyncJob returns a job running the full badge, award and count pipeline.
func SyncJob(e *engine.Engine, opts engine.AllOptions) Job {
	return func(ctx context.Context) error {
		report, err := e.SyncAll(ctx, opts)
		if err != nil {
			return err
		}
		if n := len(report.Awards.Failed); n > 0 {
			return fmt.Errorf("%d recipes failed award sync", n)
		}
		return nil
	}
}
