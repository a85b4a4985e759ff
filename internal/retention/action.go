package retention

import "fmt"

// Action is the decision attached to a backup entry
type Action int

const (
	// ActionUnset means no strategy has claimed the entry yet. The artifact stays on disk.
	ActionUnset Action = iota
	// ActionKeep marks the entry to be kept.
	ActionKeep
	// ActionDelete marks the entry for removal on commit.
	ActionDelete
)

func (a Action) String() string {
	switch a {
	case ActionUnset:
		return "unset"
	case ActionKeep:
		return "keep"
	case ActionDelete:
		return "delete"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// ActionSet is a set of actions used to filter a Set
type ActionSet uint8

// Predefined action sets
const (
	NoActions  ActionSet = 0
	AllActions ActionSet = 1<<ActionUnset | 1<<ActionKeep | 1<<ActionDelete
)

// Actions builds an ActionSet from the given actions
func Actions(actions ...Action) ActionSet {
	var s ActionSet
	for _, a := range actions {
		s |= 1 << a
	}
	return s
}

// Contains reports whether a is a member of the set
func (s ActionSet) Contains(a Action) bool {
	if a < ActionUnset || a > ActionDelete {
		return false
	}
	return s&(1<<a) != 0
}

// Complement returns every action not in s
func (s ActionSet) Complement() ActionSet {
	return AllActions &^ s
}
