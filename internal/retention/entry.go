package retention

import (
	"context"
	"fmt"
	"time"
)

// Remover deletes the artifact behind an entry. storage.Storage satisfies it.
type Remover interface {
	Delete(ctx context.Context, key string) error
}

// Entry is a single backup artifact and the decision taken for it
type Entry struct {
	Location  string
	Size      int64
	Timestamp time.Time

	action    Action
	committed bool
}

// NewEntry creates an unset entry. Negative sizes are treated as zero.
func NewEntry(location string, size int64, timestamp time.Time) *Entry {
	if size < 0 {
		size = 0
	}
	return &Entry{
		Location:  location,
		Size:      size,
		Timestamp: timestamp,
	}
}

// Action returns the current decision
func (e *Entry) Action() Action {
	return e.action
}

// TrySetAction assigns an action to the entry.
//
// Without force, only an unset entry can be claimed, and claiming it with
// ActionUnset is not a change. The first strategy to claim an entry wins and
// every later non-forced attempt returns false. With force the action is
// always overwritten and the call returns true.
func (e *Entry) TrySetAction(action Action, force bool) bool {
	if force {
		e.action = action
		return true
	}

	if e.action != ActionUnset {
		return false
	}

	if action == ActionUnset {
		return false
	}

	e.action = action
	return true
}

// Committed reports whether the artifact has already been removed by Commit
func (e *Entry) Committed() bool {
	return e.committed
}

// Commit removes the underlying artifact when the entry is marked for deletion.
// Calling it again after a successful removal is a no-op.
func (e *Entry) Commit(ctx context.Context, remover Remover) error {
	if e.action != ActionDelete || e.committed {
		return nil
	}

	if err := remover.Delete(ctx, e.Location); err != nil {
		return &CommitError{Location: e.Location, Err: err}
	}

	e.committed = true
	return nil
}

func (e *Entry) String() string {
	return fmt.Sprintf("%s (%s, %d bytes, %s)", e.Location, e.Timestamp.Format(time.RFC3339), e.Size, e.action)
}

// CommitError is returned when an artifact marked for deletion could not be removed
type CommitError struct {
	Location string
	Err      error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("failed to delete %s: %v", e.Location, e.Err)
}

func (e *CommitError) Unwrap() error {
	return e.Err
}
