package retention

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func locations(s *Set) []string {
	out := make([]string, 0, s.Len())
	for _, e := range s.Entries() {
		out = append(out, e.Location)
	}
	return out
}

func TestSet_InsertKeepsOrder(t *testing.T) {
	s := NewSet()
	s.Insert(NewEntry("c", 1, day(3)))
	s.Insert(NewEntry("a", 1, day(1)))
	s.Insert(NewEntry("d", 1, day(4)))
	s.Insert(NewEntry("b", 1, day(2)))

	assert.Equal(t, []string{"a", "b", "c", "d"}, locations(s))
}

func TestSet_InsertTiesKeepInsertionOrder(t *testing.T) {
	s := NewSet(
		NewEntry("first", 1, day(1)),
		NewEntry("later", 1, day(2)),
		NewEntry("second", 1, day(1)),
		NewEntry("third", 1, day(1)),
	)

	assert.Equal(t, []string{"first", "second", "third", "later"}, locations(s))
}

func TestSet_OrderInvariantRandomInsertions(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	s := NewSet()

	for i := 0; i < 500; i++ {
		offset := time.Duration(rng.Intn(1000)) * time.Hour
		s.Insert(NewEntry("x", 1, day(0).Add(offset)))

		for j := 1; j < s.Len(); j++ {
			require.False(t, s.At(j).Timestamp.Before(s.At(j-1).Timestamp),
				"set out of order after insertion %d", i)
		}
	}
	assert.Equal(t, 500, s.Len())
}

func TestSet_EntriesReturnsCopy(t *testing.T) {
	s := NewSet(NewEntry("a", 1, day(0)))
	entries := s.Entries()
	entries[0] = nil

	assert.NotNil(t, s.At(0))
}

func TestSet_FilterAndExclude(t *testing.T) {
	keep := NewEntry("keep", 1, day(0))
	keep.TrySetAction(ActionKeep, false)
	del := NewEntry("delete", 1, day(1))
	del.TrySetAction(ActionDelete, false)
	unset := NewEntry("unset", 1, day(2))

	s := NewSet(keep, del, unset)

	assert.Equal(t, []string{"keep"}, locations(s.Keep()))
	assert.Equal(t, []string{"delete"}, locations(s.Delete()))
	assert.Equal(t, []string{"unset"}, locations(s.Unset()))
	assert.Equal(t, []string{"keep", "delete"}, locations(s.Modified()))
	assert.Equal(t, []string{"keep", "unset"}, locations(s.Exclude(Actions(ActionDelete))))
	assert.Equal(t, 3, s.Filter(AllActions).Len())
	assert.Equal(t, 0, s.Filter(NoActions).Len())
}

func TestSet_FilterSharesEntries(t *testing.T) {
	s := NewSet(NewEntry("a", 1, day(0)))

	unset := s.Unset()
	unset.At(0).TrySetAction(ActionKeep, false)

	assert.Equal(t, ActionKeep, s.At(0).Action())
}

func TestSet_PartitionCompleteness(t *testing.T) {
	s := NewSet()
	for i := 0; i < 40; i++ {
		s.Insert(NewEntry("x", int64(i), day(i*3)))
	}

	check := func() {
		seen := make(map[*Entry]int)
		for _, part := range []*Set{s.Keep(), s.Delete(), s.Unset()} {
			for _, e := range part.Entries() {
				seen[e]++
			}
		}
		require.Len(t, seen, s.Len())
		for _, e := range s.Entries() {
			require.Equal(t, 1, seen[e])
		}
	}

	pipeline := Pipeline{LastN{N: 5}, DayOfMonth{Day: 10}, LastOfNMonths{N: 3}, DeleteUnset{}}

	check()
	for _, strategy := range pipeline {
		strategy.Apply(s)
		check()
	}
}

func TestSet_GroupBy(t *testing.T) {
	s := NewSet(
		NewEntry("a", 1, time.Date(2023, 12, 31, 23, 0, 0, 0, time.UTC)),
		NewEntry("b", 1, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)),
		NewEntry("c", 1, time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC)),
		NewEntry("d", 1, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)),
	)

	years := s.GroupBy(GranularityYear)
	assert.Equal(t, []string{"2023", "2024"}, years.Keys())
	assert.Equal(t, []string{"b", "c", "d"}, locations(years.Get("2024")))

	months := s.GroupBy(GranularityMonth)
	assert.Equal(t, []string{"2023-12", "2024-01", "2024-03"}, months.Keys())
	assert.Equal(t, 3, months.Len())
	assert.Nil(t, months.Get("2024-02"))

	days := s.GroupBy(GranularityDay)
	assert.Equal(t, []string{"2023-12-31", "2024-01-05", "2024-03-01"}, days.SortedKeys())
	assert.Equal(t, []string{"b", "c"}, locations(days.Get("2024-01-05")))
}

func TestSet_GroupByMonthKeysSortChronologically(t *testing.T) {
	s := NewSet()
	for m := 1; m <= 12; m++ {
		s.Insert(NewEntry("x", 1, time.Date(2024, time.Month(m), 1, 0, 0, 0, 0, time.UTC)))
	}

	months := s.GroupBy(GranularityMonth)
	keys := months.SortedKeys()
	assert.Equal(t, "2024-01", keys[0])
	assert.Equal(t, "2024-09", keys[8])
	assert.Equal(t, "2024-10", keys[9], "zero padding keeps October after September")
}

func TestSet_Sizes(t *testing.T) {
	keep := NewEntry("keep", 100, day(0))
	keep.TrySetAction(ActionKeep, false)
	del := NewEntry("delete", 250, day(1))
	del.TrySetAction(ActionDelete, false)
	unset := NewEntry("unset", 50, day(2))

	s := NewSet(keep, del, unset)

	assert.Equal(t, int64(400), s.TotalSize())
	assert.Equal(t, int64(150), s.SizeExcludingDeleted())
	assert.Equal(t, int64(0), NewSet().TotalSize())
}

func TestSet_CommitAll(t *testing.T) {
	permErr := errors.New("permission denied")
	remover := &fakeRemover{failures: map[string]error{"b": permErr}}

	s := NewSet()
	for i, name := range []string{"a", "b", "c", "d"} {
		s.Insert(NewEntry(name, 10, day(i)))
	}
	DeleteEverything{}.Apply(s)
	s.At(3).TrySetAction(ActionKeep, true)

	result := s.CommitAll(context.Background(), remover)

	assert.Equal(t, []string{"a", "c"}, remover.deleted, "failure on b does not stop c")
	assert.Len(t, result.Deleted, 2)
	assert.Equal(t, 1, result.Failed())
	assert.Equal(t, "b", result.Errors[0].Location)
	assert.ErrorIs(t, result.Err(), permErr)
}

func TestSet_CommitAllIdempotent(t *testing.T) {
	remover := &fakeRemover{}
	ctx := context.Background()

	s := NewSet(NewEntry("a", 1, day(0)), NewEntry("b", 1, day(1)))
	DeleteEverything{}.Apply(s)

	first := s.CommitAll(ctx, remover)
	second := s.CommitAll(ctx, remover)

	assert.Len(t, first.Deleted, 2)
	assert.Empty(t, second.Deleted)
	assert.Equal(t, 0, second.Failed())
	assert.NoError(t, second.Err())
	assert.Len(t, remover.deleted, 2)
}
