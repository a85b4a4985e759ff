package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// JobFunc is the function signature for scheduled jobs
type JobFunc func(ctx context.Context)

// Parser accepts standard five-field cron expressions
var Parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Scheduler runs named prune jobs on cron schedules. A job never overlaps with
// its own previous run: a tick that fires while the job is still running is skipped.
type Scheduler struct {
	cron    *cron.Cron
	jobs    map[string]cron.EntryID
	timeout time.Duration
	ctx     context.Context
	cancel  context.CancelFunc
	mu      sync.RWMutex
}

// Option configures a Scheduler
type Option func(*Scheduler)

// WithTimeout bounds the duration of every job run
func WithTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		s.timeout = d
	}
}

// New creates a new scheduler
func New(opts ...Option) *Scheduler {
	logger := slogLogger{}
	ctx, cancel := context.WithCancel(context.Background())

	s := &Scheduler{
		cron: cron.New(
			cron.WithParser(Parser),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		jobs:   make(map[string]cron.EntryID),
		ctx:    ctx,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	slog.Info("scheduler started")
}

// Stop cancels running jobs and returns a context that is done once they returned
func (s *Scheduler) Stop() context.Context {
	s.cancel()
	return s.cron.Stop()
}

// AddJob schedules a job under the given name, replacing any job with the same name
func (s *Scheduler) AddJob(name, schedule string, job JobFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entryID, exists := s.jobs[name]; exists {
		s.cron.Remove(entryID)
		delete(s.jobs, name)
	}

	entryID, err := s.cron.AddFunc(schedule, func() {
		s.run(name, job)
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}

	s.jobs[name] = entryID
	slog.Debug("added scheduled job", "job", name, "schedule", schedule)

	return nil
}

func (s *Scheduler) run(name string, job JobFunc) {
	ctx := s.ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	slog.Debug("scheduled job started", "job", name)
	job(ctx)
	slog.Debug("scheduled job finished", "job", name, "duration", time.Since(start))
}

// RemoveJob removes a scheduled job
func (s *Scheduler) RemoveJob(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entryID, exists := s.jobs[name]; exists {
		s.cron.Remove(entryID)
		delete(s.jobs, name)
		slog.Debug("removed scheduled job", "job", name)
	}
}

// HasJob checks if a job with the given name is scheduled
func (s *Scheduler) HasJob(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.jobs[name]
	return exists
}

// JobCount returns the number of scheduled jobs
func (s *Scheduler) JobCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.jobs)
}

// JobInfo contains information about a scheduled job
type JobInfo struct {
	Name    string
	NextRun time.Time
}

// ListJobs returns information about all scheduled jobs, sorted by name
func (s *Scheduler) ListJobs() []JobInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]JobInfo, 0, len(s.jobs))
	for name, entryID := range s.jobs {
		result = append(result, JobInfo{
			Name:    name,
			NextRun: s.cron.Entry(entryID).Next,
		})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// NextRun returns when the schedule fires next after from
func NextRun(schedule string, from time.Time) (time.Time, error) {
	sched, err := Parser.Parse(schedule)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}
	return sched.Next(from), nil
}

// slogLogger adapts cron's logger to the default slog logger
type slogLogger struct{}

func (slogLogger) Info(msg string, keysAndValues ...interface{}) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (slogLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	slog.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
