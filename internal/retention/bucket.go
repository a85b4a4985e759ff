package retention

import (
	"fmt"
	"sort"
)

// Granularity is the width of a time bucket
type Granularity int

const (
	GranularityYear Granularity = iota
	GranularityMonth
	GranularityDay
)

// layout returns the time format of the bucket key. Keys are zero padded so
// their lexicographic order matches chronological order.
func (g Granularity) layout() string {
	switch g {
	case GranularityYear:
		return "2006"
	case GranularityMonth:
		return "2006-01"
	case GranularityDay:
		return "2006-01-02"
	default:
		panic(fmt.Sprintf("retention: unknown granularity %d", int(g)))
	}
}

func (g Granularity) String() string {
	switch g {
	case GranularityYear:
		return "year"
	case GranularityMonth:
		return "month"
	case GranularityDay:
		return "day"
	default:
		return fmt.Sprintf("granularity(%d)", int(g))
	}
}

// Buckets maps a time bucket key to the entries falling into it.
//
// Keys iterate in the order their first entry was seen, which is not a
// sorting guarantee. Use SortedKeys when chronological order matters.
type Buckets struct {
	keys   []string
	groups map[string]*Set
}

// GroupBy splits the set into time buckets of the given granularity.
// Each bucket keeps the relative order of its entries.
func (s *Set) GroupBy(g Granularity) *Buckets {
	layout := g.layout()
	b := &Buckets{groups: make(map[string]*Set)}

	for _, e := range s.entries {
		key := e.Timestamp.Format(layout)
		group, ok := b.groups[key]
		if !ok {
			group = &Set{}
			b.groups[key] = group
			b.keys = append(b.keys, key)
		}
		// entries arrive sorted, appending keeps the bucket sorted
		group.entries = append(group.entries, e)
	}

	return b
}

// Keys returns bucket keys in first-seen order
func (b *Buckets) Keys() []string {
	out := make([]string, len(b.keys))
	copy(out, b.keys)
	return out
}

// SortedKeys returns bucket keys in ascending order
func (b *Buckets) SortedKeys() []string {
	out := b.Keys()
	sort.Strings(out)
	return out
}

// Get returns the entries of a bucket, or nil if the bucket does not exist
func (b *Buckets) Get(key string) *Set {
	return b.groups[key]
}

// Len returns the number of buckets
func (b *Buckets) Len() int {
	return len(b.keys)
}
