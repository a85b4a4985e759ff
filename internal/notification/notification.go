package notification

import (
	"context"
	"time"
)

// Event describes the outcome of pruning one backup group
type Event struct {
	Type      EventType
	Group     string
	Policy    string
	Total     int
	Kept      int
	Deleted   int
	Failed    int
	Size      int64
	SizeAfter int64
	DryRun    bool
	Duration  time.Duration
	Error     error
	Timestamp time.Time
}

// EventType represents the type of prune event
type EventType string

const (
	EventPruneCompleted EventType = "prune_completed"
	EventPruneFailed    EventType = "prune_failed"
)

// Reclaimed returns the number of bytes the prune freed (or would free on a dry run)
func (e Event) Reclaimed() int64 {
	return e.Size - e.SizeAfter
}

// Notifier defines the interface for notification providers
type Notifier interface {
	// Name returns the notifier instance name
	Name() string

	// Type returns the notifier type (e.g., "telegram", "discord")
	Type() string

	// Send sends a notification for the given event
	Send(ctx context.Context, event Event) error
}

// NotifierType creates Notifier instances from configuration
type NotifierType interface {
	// Name returns the type identifier ("telegram", "discord", etc.)
	Name() string

	// Create instantiates a notifier from configuration options
	Create(name string, options map[string]string) (Notifier, error)
}
