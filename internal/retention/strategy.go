package retention

import "fmt"

// Strategy assigns actions to entries of a set.
//
// Apply returns the entries whose action it actually changed. Entries already
// claimed by an earlier strategy are left untouched, so the order in which
// strategies run decides which one wins an entry.
type Strategy interface {
	Name() string
	Apply(s *Set) *Set
}

// claim tries to set action on every candidate and returns the ones it changed
func claim(candidates []*Entry, action Action) *Set {
	changed := make([]*Entry, 0, len(candidates))
	for _, e := range candidates {
		if e.TrySetAction(action, false) {
			changed = append(changed, e)
		}
	}
	return fromSorted(changed)
}

// KeepEverything keeps every entry
type KeepEverything struct{}

func (KeepEverything) Name() string { return "keep-everything" }

func (KeepEverything) Apply(s *Set) *Set {
	return claim(s.entries, ActionKeep)
}

// DeleteEverything deletes every entry
type DeleteEverything struct{}

func (DeleteEverything) Name() string { return "delete-everything" }

func (DeleteEverything) Apply(s *Set) *Set {
	return claim(s.entries, ActionDelete)
}

// DeleteUnset deletes every entry no earlier strategy has claimed
type DeleteUnset struct{}

func (DeleteUnset) Name() string { return "delete-unset" }

func (DeleteUnset) Apply(s *Set) *Set {
	return claim(s.Unset().entries, ActionDelete)
}

// LastN keeps the N most recent unset entries
type LastN struct {
	N int
}

func (l LastN) Name() string { return fmt.Sprintf("last-n=%d", l.N) }

func (l LastN) Apply(s *Set) *Set {
	if l.N <= 0 {
		return NewSet()
	}

	unset := s.Unset().entries
	if len(unset) > l.N {
		unset = unset[len(unset)-l.N:]
	}
	return claim(unset, ActionKeep)
}

// DayOfMonth keeps every entry taken on the given day of its month.
// Months without that day contribute nothing.
type DayOfMonth struct {
	Day int
}

func (d DayOfMonth) Name() string { return fmt.Sprintf("day-of-month=%d", d.Day) }

func (d DayOfMonth) Apply(s *Set) *Set {
	var candidates []*Entry

	months := s.GroupBy(GranularityMonth)
	for _, month := range months.SortedKeys() {
		for _, e := range months.Get(month).entries {
			if e.Timestamp.Day() == d.Day {
				candidates = append(candidates, e)
			}
		}
	}

	return claim(candidates, ActionKeep)
}

// LastOfNMonths keeps the last entry of each of the N most recent months
type LastOfNMonths struct {
	N int
}

func (l LastOfNMonths) Name() string { return fmt.Sprintf("last-of-n-months=%d", l.N) }

func (l LastOfNMonths) Apply(s *Set) *Set {
	if l.N <= 0 {
		return NewSet()
	}

	months := s.GroupBy(GranularityMonth)
	keys := months.SortedKeys()
	if len(keys) > l.N {
		keys = keys[len(keys)-l.N:]
	}

	candidates := make([]*Entry, 0, len(keys))
	for _, key := range keys {
		month := months.Get(key)
		candidates = append(candidates, month.At(month.Len()-1))
	}

	return claim(candidates, ActionKeep)
}
