// Package pruner runs a retention pipeline over the backups found in a storage.
package pruner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/shyim/backup-pruner/internal/config"
	"github.com/shyim/backup-pruner/internal/discovery"
	"github.com/shyim/backup-pruner/internal/grouping"
	"github.com/shyim/backup-pruner/internal/metrics"
	"github.com/shyim/backup-pruner/internal/notification"
	"github.com/shyim/backup-pruner/internal/report"
	"github.com/shyim/backup-pruner/internal/retention"
	"github.com/shyim/backup-pruner/internal/storage"
)

// Notifier receives one event per pruned group
type Notifier interface {
	NotifyAll(ctx context.Context, event notification.Event)
}

// Pruner discovers backups, groups them and applies a retention pipeline to each group
type Pruner struct {
	store    storage.Storage
	grouper  grouping.Grouper
	pipeline retention.Pipeline
	notifier Notifier
	location *time.Location
	now      func() time.Time
}

// Option configures a Pruner
type Option func(*Pruner)

// WithNotifier sends a notification for every processed group
func WithNotifier(n Notifier) Option {
	return func(p *Pruner) {
		p.notifier = n
	}
}

// WithLocation sets the time zone used for timestamps and calendar buckets
func WithLocation(loc *time.Location) Option {
	return func(p *Pruner) {
		p.location = loc
	}
}

// Options controls a single run
type Options struct {
	Discovery  discovery.Options
	TimeSource string
	DryRun     bool
}

// GroupResult is the outcome of pruning one backup group
type GroupResult struct {
	Name    string
	Set     *retention.Set
	Steps   []retention.StrategyResult
	Commit  retention.CommitResult
	Summary report.Summary
}

// Result is the outcome of a run
type Result struct {
	Groups   []GroupResult
	DryRun   bool
	Duration time.Duration
}

// Failed returns the number of backups that could not be deleted
func (r *Result) Failed() int {
	failed := 0
	for _, g := range r.Groups {
		failed += g.Commit.Failed()
	}
	return failed
}

// Err joins the deletion errors of all groups
func (r *Result) Err() error {
	var errs []error
	for _, g := range r.Groups {
		if err := g.Commit.Err(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Summaries returns the report summary of every group in order
func (r *Result) Summaries() []report.Summary {
	summaries := make([]report.Summary, len(r.Groups))
	for i, g := range r.Groups {
		summaries[i] = g.Summary
	}
	return summaries
}

// New creates a pruner
func New(store storage.Storage, grouper grouping.Grouper, pipeline retention.Pipeline, opts ...Option) *Pruner {
	p := &Pruner{
		store:    store,
		grouper:  grouper,
		pipeline: pipeline,
		location: time.Local,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes one prune. Discovery failures abort the run before any group
// is formed. Failed deletions are collected in the result and never abort it.
func (p *Pruner) Run(ctx context.Context, opts Options) (*Result, error) {
	start := p.now()

	files, err := discovery.Find(ctx, p.store, opts.Discovery)
	if err != nil {
		metrics.RecordRun(false, p.now().Sub(start))
		p.notify(ctx, notification.Event{
			Type:      notification.EventPruneFailed,
			Group:     opts.Discovery.Prefix,
			Policy:    p.pipeline.String(),
			DryRun:    opts.DryRun,
			Error:     err,
			Timestamp: p.now(),
		})
		return nil, err
	}

	groups := p.buildGroups(files, opts.TimeSource)

	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	result := &Result{
		Groups: make([]GroupResult, 0, len(names)),
		DryRun: opts.DryRun,
	}

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			metrics.RecordRun(false, p.now().Sub(start))
			return result, fmt.Errorf("prune interrupted before group %s: %w", name, err)
		}

		groupStart := p.now()
		group := p.pruneGroup(ctx, name, groups[name], opts.DryRun)
		result.Groups = append(result.Groups, group)

		p.notify(ctx, notification.Event{
			Type:      notification.EventPruneCompleted,
			Group:     name,
			Policy:    p.pipeline.String(),
			Total:     group.Summary.Total,
			Kept:      group.Summary.Keep,
			Deleted:   group.Summary.Delete,
			Failed:    group.Summary.Failed,
			Size:      group.Summary.Size,
			SizeAfter: group.Summary.SizeAfter,
			DryRun:    opts.DryRun,
			Duration:  p.now().Sub(groupStart),
			Error:     group.Commit.Err(),
			Timestamp: p.now(),
		})
	}

	result.Duration = p.now().Sub(start)
	metrics.RecordRun(result.Failed() == 0, result.Duration)

	slog.Info("prune finished",
		"groups", len(result.Groups),
		"failed", result.Failed(),
		"dry_run", opts.DryRun,
		"duration", result.Duration,
	)

	return result, nil
}

func (p *Pruner) pruneGroup(ctx context.Context, name string, set *retention.Set, dryRun bool) GroupResult {
	steps := p.pipeline.Apply(set)

	summary := report.Summarize(name, set)
	summary.DryRun = dryRun

	var commit retention.CommitResult
	if !dryRun {
		commit = set.CommitAll(ctx, p.store)
		summary = summary.WithCommit(commit)

		var reclaimed int64
		for _, e := range commit.Deleted {
			reclaimed += e.Size
		}
		metrics.RecordDeletions(len(commit.Deleted), commit.Failed(), reclaimed)
	}

	metrics.RecordGroup(name, summary.Keep, summary.Delete, summary.Untouched, summary.SizeAfter)

	slog.Info("pruned backup group",
		"group", name,
		"total", summary.Total,
		"keep", summary.Keep,
		"delete", summary.Delete,
		"untouched", summary.Untouched,
		"failed", summary.Failed,
		"dry_run", dryRun,
	)

	return GroupResult{
		Name:    name,
		Set:     set,
		Steps:   steps,
		Commit:  commit,
		Summary: summary,
	}
}

// buildGroups partitions the discovered files into one set per group key
func (p *Pruner) buildGroups(files []storage.BackupFile, timeSource string) map[string]*retention.Set {
	groups := make(map[string]*retention.Set)

	for _, f := range files {
		name := p.grouper.Group(f.Key)
		set, ok := groups[name]
		if !ok {
			set = retention.NewSet()
			groups[name] = set
		}
		set.Insert(retention.NewEntry(f.Key, f.Size, p.timestamp(f, timeSource)))
	}

	return groups
}

func (p *Pruner) timestamp(f storage.BackupFile, timeSource string) time.Time {
	if timeSource == config.TimeSourceName {
		if ts, ok := grouping.ParseTimestamp(f.Key, p.location); ok {
			return ts
		}
		slog.Debug("no timestamp in backup name, using modification time", "key", f.Key)
	}
	return f.LastModified.In(p.location)
}

func (p *Pruner) notify(ctx context.Context, event notification.Event) {
	if p.notifier == nil {
		return
	}
	p.notifier.NotifyAll(ctx, event)
}
