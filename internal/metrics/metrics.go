// Package metrics provides Prometheus metrics for the pruner.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Runs tracks the total number of prune runs.
	Runs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "backup_pruner_runs_total",
		Help: "Total number of prune runs",
	}, []string{"status"})

	// RunDuration tracks the duration of prune runs.
	RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "backup_pruner_run_duration_seconds",
		Help:    "Duration of prune runs in seconds",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms to ~100s
	})

	// Entries tracks the number of backups by final action in the last run.
	Entries = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "backup_pruner_entries",
		Help: "Number of backups per group and action in the last run",
	}, []string{"group", "action"})

	// Deletions tracks backup deletions.
	Deletions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "backup_pruner_deletions_total",
		Help: "Total number of backup deletions",
	}, []string{"status"})

	// BytesReclaimed tracks the bytes freed by committed deletions.
	BytesReclaimed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "backup_pruner_reclaimed_bytes_total",
		Help: "Total number of bytes freed by deleting backups",
	})

	// GroupSize tracks the size of each group after the last run.
	GroupSize = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "backup_pruner_group_size_bytes",
		Help: "Size of the backups kept per group after the last run",
	}, []string{"group"})

	// LastSuccessTimestamp tracks when the last successful run finished.
	LastSuccessTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "backup_pruner_last_success_timestamp",
		Help: "Unix timestamp of the last successful prune run",
	})
)

// RecordRun records a finished run with its outcome and duration.
func RecordRun(success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "failure"
	}
	Runs.WithLabelValues(status).Inc()
	RunDuration.Observe(duration.Seconds())
	if success {
		LastSuccessTimestamp.SetToCurrentTime()
	}
}

// RecordGroup records the decision counts and resulting size of one group.
func RecordGroup(group string, keep, del, unset int, sizeAfter int64) {
	Entries.WithLabelValues(group, "keep").Set(float64(keep))
	Entries.WithLabelValues(group, "delete").Set(float64(del))
	Entries.WithLabelValues(group, "unset").Set(float64(unset))
	GroupSize.WithLabelValues(group).Set(float64(sizeAfter))
}

// RecordDeletions records the outcome of committing a group's deletions.
func RecordDeletions(deleted, failed int, reclaimed int64) {
	Deletions.WithLabelValues("success").Add(float64(deleted))
	Deletions.WithLabelValues("failure").Add(float64(failed))
	if reclaimed > 0 {
		BytesReclaimed.Add(float64(reclaimed))
	}
}
