package retention

import (
	"context"
	"errors"
	"log/slog"
	"sort"
)

// Set is a collection of entries kept in ascending timestamp order.
// Entries sharing a timestamp stay in insertion order. Sets returned by
// Filter, Exclude, GroupBy and strategies share their entries with the source.
type Set struct {
	entries []*Entry
}

// NewSet creates a set and inserts the given entries
func NewSet(entries ...*Entry) *Set {
	s := &Set{entries: make([]*Entry, 0, len(entries))}
	for _, e := range entries {
		s.Insert(e)
	}
	return s
}

// fromSorted wraps entries that are already in order
func fromSorted(entries []*Entry) *Set {
	return &Set{entries: entries}
}

// Insert adds an entry after every entry with an equal or earlier timestamp
func (s *Set) Insert(e *Entry) {
	i := sort.Search(len(s.entries), func(i int) bool {
		return s.entries[i].Timestamp.After(e.Timestamp)
	})

	s.entries = append(s.entries, nil)
	copy(s.entries[i+1:], s.entries[i:])
	s.entries[i] = e
}

// Len returns the number of entries
func (s *Set) Len() int {
	return len(s.entries)
}

// At returns the i-th entry in timestamp order
func (s *Set) At(i int) *Entry {
	return s.entries[i]
}

// Entries returns the entries in timestamp order
func (s *Set) Entries() []*Entry {
	out := make([]*Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Filter returns the entries whose action is in actions
func (s *Set) Filter(actions ActionSet) *Set {
	out := make([]*Entry, 0, len(s.entries))
	for _, e := range s.entries {
		if actions.Contains(e.action) {
			out = append(out, e)
		}
	}
	return fromSorted(out)
}

// Exclude returns the entries whose action is not in actions
func (s *Set) Exclude(actions ActionSet) *Set {
	return s.Filter(actions.Complement())
}

// Unset returns the entries no strategy has claimed
func (s *Set) Unset() *Set {
	return s.Filter(Actions(ActionUnset))
}

// Keep returns the entries marked to keep
func (s *Set) Keep() *Set {
	return s.Filter(Actions(ActionKeep))
}

// Delete returns the entries marked for deletion
func (s *Set) Delete() *Set {
	return s.Filter(Actions(ActionDelete))
}

// Modified returns every entry that has been claimed
func (s *Set) Modified() *Set {
	return s.Exclude(Actions(ActionUnset))
}

// TotalSize is the size of every entry in the set
func (s *Set) TotalSize() int64 {
	var total int64
	for _, e := range s.entries {
		total += e.Size
	}
	return total
}

// SizeExcludingDeleted is the size left on disk once deletions are committed
func (s *Set) SizeExcludingDeleted() int64 {
	var total int64
	for _, e := range s.entries {
		if e.action != ActionDelete {
			total += e.Size
		}
	}
	return total
}

// CommitResult collects the outcome of CommitAll
type CommitResult struct {
	Deleted []*Entry
	Errors  []*CommitError
}

// Failed returns the number of artifacts that could not be removed
func (r CommitResult) Failed() int {
	return len(r.Errors)
}

// Err joins all commit errors, or returns nil when every deletion succeeded
func (r CommitResult) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	errs := make([]error, len(r.Errors))
	for i, err := range r.Errors {
		errs[i] = err
	}
	return errors.Join(errs...)
}

// CommitAll commits every entry in order. A failed deletion is recorded and
// the remaining entries are still processed.
func (s *Set) CommitAll(ctx context.Context, remover Remover) CommitResult {
	var result CommitResult

	for _, e := range s.entries {
		wasCommitted := e.committed

		if err := e.Commit(ctx, remover); err != nil {
			var commitErr *CommitError
			if !errors.As(err, &commitErr) {
				commitErr = &CommitError{Location: e.Location, Err: err}
			}
			slog.Warn("failed to delete backup",
				"key", e.Location,
				"error", commitErr.Err,
			)
			result.Errors = append(result.Errors, commitErr)
			continue
		}

		if e.committed && !wasCommitted {
			slog.Debug("deleted backup",
				"key", e.Location,
				"size", e.Size,
			)
			result.Deleted = append(result.Deleted, e)
		}
	}

	return result
}
