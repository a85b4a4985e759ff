package retention

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipeline_KeepLastFiveDeleteRest(t *testing.T) {
	s := dailySet(20)

	results := Pipeline{LastN{N: 5}, DeleteUnset{}}.Apply(s)

	require.Len(t, results, 2)
	assert.Equal(t, "last-n=5", results[0].Strategy)
	assert.Equal(t, 5, results[0].Changed.Len())
	assert.Equal(t, 15, results[1].Changed.Len())

	assert.Equal(t, 5, s.Keep().Len())
	assert.Equal(t, 15, s.Delete().Len())
	assert.Equal(t, 0, s.Unset().Len())
	for i := 15; i < 20; i++ {
		assert.Equal(t, ActionKeep, s.At(i).Action())
	}
}

func TestPipeline_OrderDecidesWinner(t *testing.T) {
	keepFirst := dailySet(3)
	Pipeline{KeepEverything{}, DeleteEverything{}}.Apply(keepFirst)
	assert.Equal(t, 3, keepFirst.Keep().Len())

	deleteFirst := dailySet(3)
	Pipeline{DeleteEverything{}, KeepEverything{}}.Apply(deleteFirst)
	assert.Equal(t, 3, deleteFirst.Delete().Len())
}

func TestDefaultPipeline(t *testing.T) {
	s := dailySet(90) // 2024-01-01 .. 2024-03-30

	results := DefaultPipeline().Apply(s)

	require.Len(t, results, 3)
	assert.Equal(t, 7, results[0].Changed.Len())
	// March is already covered by the last 7 days
	assert.Equal(t, []string{"2024-01-31", "2024-02-29"}, locations(results[1].Changed))
	assert.Equal(t, 81, results[2].Changed.Len())
	assert.Equal(t, 9, s.Keep().Len())
}

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		expr     string
		expected Strategy
	}{
		{"keep-everything", KeepEverything{}},
		{"delete-everything", DeleteEverything{}},
		{"delete-unset", DeleteUnset{}},
		{" Delete-Unset ", DeleteUnset{}},
		{"last-n=7", LastN{N: 7}},
		{"last-n = 0", LastN{N: 0}},
		{"last-of-n-months=12", LastOfNMonths{N: 12}},
		{"day-of-month=31", DayOfMonth{Day: 31}},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			s, err := ParseStrategy(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, s)
		})
	}
}

func TestParseStrategy_Invalid(t *testing.T) {
	invalid := []string{
		"",
		"keep-some",
		"last-n",
		"last-n=abc",
		"last-n=-1",
		"last-of-n-months=-3",
		"day-of-month=0",
		"day-of-month=32",
		"delete-unset=1",
	}

	for _, expr := range invalid {
		t.Run(expr, func(t *testing.T) {
			_, err := ParseStrategy(expr)
			assert.Error(t, err)
		})
	}
}

func TestParsePipeline(t *testing.T) {
	p, err := ParsePipeline([]string{"last-n=7", "last-of-n-months=12", "delete-unset"})
	require.NoError(t, err)

	assert.Equal(t, DefaultPipeline(), p)
	assert.Equal(t, "last-n=7, last-of-n-months=12, delete-unset", p.String())
}

func TestParsePipeline_Errors(t *testing.T) {
	_, err := ParsePipeline(nil)
	assert.Error(t, err)

	_, err = ParsePipeline([]string{"last-n=7", "bogus"})
	assert.Error(t, err)
}
