// Package report summarizes retention decisions for humans and machines.
package report

import (
	"github.com/shyim/backup-pruner/internal/retention"
)

// Summary holds the counts and sizes of one backup group
type Summary struct {
	Group     string `json:"group"`
	Total     int    `json:"total"`
	Modified  int    `json:"modified"`
	Untouched int    `json:"untouched"`
	Keep      int    `json:"keep"`
	Delete    int    `json:"delete"`
	Deleted   int    `json:"deleted"`
	Failed    int    `json:"failed"`
	Size      int64  `json:"size"`
	SizeAfter int64  `json:"sizeAfter"`
	DryRun    bool   `json:"dryRun"`
}

// Summarize computes the summary of a group after its strategies ran
func Summarize(group string, set *retention.Set) Summary {
	return Summary{
		Group:     group,
		Total:     set.Len(),
		Modified:  set.Modified().Len(),
		Untouched: set.Unset().Len(),
		Keep:      set.Keep().Len(),
		Delete:    set.Delete().Len(),
		Size:      set.TotalSize(),
		SizeAfter: set.SizeExcludingDeleted(),
	}
}

// WithCommit records the outcome of committing the group's deletions
func (s Summary) WithCommit(result retention.CommitResult) Summary {
	s.Deleted = len(result.Deleted)
	s.Failed = result.Failed()
	return s
}

// Reduction returns how many times smaller the group gets once deletions are
// committed. It reports false when nothing would remain, in which case the
// ratio is undefined.
func (s Summary) Reduction() (float64, bool) {
	if s.SizeAfter == 0 {
		return 0, false
	}
	return float64(s.Size) / float64(s.SizeAfter), true
}

// Reclaimed returns the number of bytes freed by the deletions
func (s Summary) Reclaimed() int64 {
	return s.Size - s.SizeAfter
}

// Totals aggregates several summaries into one
func Totals(summaries []Summary) Summary {
	total := Summary{Group: "total"}
	for _, s := range summaries {
		total.Total += s.Total
		total.Modified += s.Modified
		total.Untouched += s.Untouched
		total.Keep += s.Keep
		total.Delete += s.Delete
		total.Deleted += s.Deleted
		total.Failed += s.Failed
		total.Size += s.Size
		total.SizeAfter += s.SizeAfter
		total.DryRun = total.DryRun || s.DryRun
	}
	return total
}
