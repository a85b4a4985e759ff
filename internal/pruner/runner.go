package pruner

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shyim/backup-pruner/internal/report"
)

// ErrRunInProgress is returned when a run is requested while another one is active
var ErrRunInProgress = errors.New("a prune run is already in progress")

// Status describes the current and the last run of a Runner
type Status struct {
	Running      bool             `json:"running"`
	Runs         int              `json:"runs"`
	LastRun      time.Time        `json:"lastRun,omitzero"`
	LastDuration time.Duration    `json:"lastDuration,omitempty"`
	LastDryRun   bool             `json:"lastDryRun"`
	LastError    string           `json:"lastError,omitempty"`
	Failed       int              `json:"failed"`
	Groups       []report.Summary `json:"groups,omitempty"`
}

// Runner serializes runs of a pruner and remembers the outcome of the last one
type Runner struct {
	pruner  *Pruner
	options Options

	run    sync.Mutex
	mu     sync.RWMutex
	status Status
}

// NewRunner creates a runner that executes p with opts
func NewRunner(p *Pruner, opts Options) *Runner {
	return &Runner{
		pruner:  p,
		options: opts,
	}
}

// Run executes a prune unless one is already running. A dry run can be
// requested on top of the configured options; a configured dry run is never
// turned into a real one.
func (r *Runner) Run(ctx context.Context, dryRun bool) (*Result, error) {
	if !r.run.TryLock() {
		return nil, ErrRunInProgress
	}
	defer r.run.Unlock()

	opts := r.options
	opts.DryRun = opts.DryRun || dryRun

	r.mu.Lock()
	r.status.Running = true
	r.mu.Unlock()

	start := time.Now()
	result, err := r.pruner.Run(ctx, opts)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.status = Status{
		Runs:         r.status.Runs + 1,
		LastRun:      start,
		LastDuration: time.Since(start),
		LastDryRun:   opts.DryRun,
	}
	if err != nil {
		r.status.LastError = err.Error()
	}
	if result != nil {
		r.status.Failed = result.Failed()
		r.status.Groups = result.Summaries()
	}

	return result, err
}

// Status returns a snapshot of the runner state
func (r *Runner) Status() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()

	status := r.status
	status.Groups = append([]report.Summary(nil), r.status.Groups...)
	return status
}
