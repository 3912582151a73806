package view

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/newthinker/breakwatch/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomBreakouts(r *rand.Rand, n int) []core.Breakout {
	horizons := core.Horizons()
	symbols := []string{"AAA", "AAB", "BBB", "RELIANCE", "TCS", "INFY", "HDFC"}
	out := make([]core.Breakout, n)
	for i := range out {
		out[i] = core.Breakout{
			Symbol:        symbols[r.Intn(len(symbols))],
			Exchange:      "NSE",
			Horizon:       horizons[r.Intn(len(horizons))],
			ClosePrice:    float64(r.Intn(5000)),
			BreakoutLevel: float64(r.Intn(5000)),
			BreakoutPct:   float64(r.Intn(11) - 5),
			Volume:        int64(i),
		}
	}
	return out
}

func TestFilter_Scenario(t *testing.T) {
	breakouts := []core.Breakout{
		{Symbol: "AAA", Horizon: core.HorizonToday, BreakoutPct: 2.1},
		{Symbol: "BBB", Horizon: core.HorizonToday, BreakoutPct: -1.3},
	}

	got := ForGroup(breakouts, core.HorizonToday, Filter{Direction: core.DirectionBull})
	require.Len(t, got, 1)
	assert.Equal(t, "AAA", got[0].Symbol)

	got = ForGroup(breakouts, core.HorizonToday, Filter{Direction: core.DirectionBear})
	require.Len(t, got, 1)
	assert.Equal(t, "BBB", got[0].Symbol)

	assert.Empty(t, ForGroup(breakouts, core.HorizonW52, Filter{}))
}

func TestFilter_SearchCaseInsensitive(t *testing.T) {
	breakouts := []core.Breakout{
		{Symbol: "RELIANCE", Horizon: core.HorizonD2},
		{Symbol: "TCS", Horizon: core.HorizonD2},
	}

	for _, term := range []string{"rel", "REL", " Rel ", "IANC"} {
		got := ForGroup(breakouts, core.HorizonD2, Filter{Search: term})
		require.Len(t, got, 1, term)
		assert.Equal(t, "RELIANCE", got[0].Symbol)
	}
	assert.Len(t, ForGroup(breakouts, core.HorizonD2, Filter{Search: ""}), 2)
}

func TestPartition_UnionRecoversSet(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for round := 0; round < 25; round++ {
		input := randomBreakouts(r, r.Intn(60))
		parts := Partition(input)

		assert.Len(t, parts, len(core.Horizons()))
		total := 0
		seen := make(map[int64]bool)
		for h, rows := range parts {
			for _, b := range rows {
				assert.Equal(t, h, b.Horizon)
				assert.False(t, seen[b.Volume], "breakout appears in two partitions")
				seen[b.Volume] = true
			}
			total += len(rows)
		}
		assert.Equal(t, len(input), total)
	}
}

func TestSearch_Idempotent(t *testing.T) {
	r := rand.New(rand.NewSource(11))
	for _, term := range []string{"a", "AA", "b", "tc", "zzz", ""} {
		input := randomBreakouts(r, 40)
		once := Search(input, term)
		twice := Search(once, term)
		assert.Equal(t, once, twice, term)
		assert.Equal(t, Search(input, term), Search(input, fmt.Sprintf("  %s ", term)))
	}
}

func TestDirection_DisjointPartition(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	input := randomBreakouts(r, 80)

	for _, h := range core.Horizons() {
		bull := ForGroup(input, h, Filter{Direction: core.DirectionBull})
		bear := ForGroup(input, h, Filter{Direction: core.DirectionBear})
		all := ForGroup(input, h, Filter{})

		neither := 0
		for _, b := range all {
			if b.BreakoutPct == 0 {
				neither++
			}
		}
		assert.Equal(t, len(all), len(bull)+len(bear)+neither)

		for _, b := range bull {
			assert.Greater(t, b.BreakoutPct, 0.0)
		}
		for _, b := range bear {
			assert.Less(t, b.BreakoutPct, 0.0)
		}
	}
}

func TestSortState_ToggleSequence(t *testing.T) {
	var s SortState

	_, ok := s.Directive()
	assert.False(t, ok)

	assert.Equal(t, Directive{Key: core.SortByPct, Order: core.SortDesc}, s.Toggle(core.SortByPct))
	assert.Equal(t, Directive{Key: core.SortByPct, Order: core.SortAsc}, s.Toggle(core.SortByPct))
	assert.Equal(t, Directive{Key: core.SortByPct, Order: core.SortDesc}, s.Toggle(core.SortByPct))
	assert.Equal(t, Directive{Key: core.SortByPrice, Order: core.SortDesc}, s.Toggle(core.SortByPrice))

	s.Clear()
	_, ok = s.Directive()
	assert.False(t, ok)
}

func TestSortState_Apply(t *testing.T) {
	rows := []core.Breakout{
		{Symbol: "A", ClosePrice: 10, BreakoutPct: 1},
		{Symbol: "B", ClosePrice: 30, BreakoutPct: 1},
		{Symbol: "C", ClosePrice: 20, BreakoutPct: 2},
	}
	symbols := func(rows []core.Breakout) []string {
		out := make([]string, len(rows))
		for i, r := range rows {
			out[i] = r.Symbol
		}
		return out
	}

	var s SortState
	assert.Equal(t, []string{"A", "B", "C"}, symbols(s.Apply(rows)))

	s.Toggle(core.SortByPrice)
	assert.Equal(t, []string{"B", "C", "A"}, symbols(s.Apply(rows)))
	s.Toggle(core.SortByPrice)
	assert.Equal(t, []string{"A", "C", "B"}, symbols(s.Apply(rows)))

	// ties on pct keep input order
	s.Toggle(core.SortByPct)
	assert.Equal(t, []string{"C", "A", "B"}, symbols(s.Apply(rows)))

	assert.Equal(t, []string{"A", "B", "C"}, symbols(rows), "input must not be reordered")
}

func TestSorts_Toggle(t *testing.T) {
	sorts := NewSorts()

	d, err := sorts.Toggle("52w", core.SortByLevel)
	require.NoError(t, err)
	assert.Equal(t, core.SortDesc, d.Order)

	d, err = sorts.Toggle("W52", core.SortByLevel)
	require.NoError(t, err)
	assert.Equal(t, core.SortAsc, d.Order)

	_, ok := sorts.State("1d").Directive()
	assert.False(t, ok, "buckets sort independently")

	_, err = sorts.Toggle("d50", core.SortByLevel)
	assert.True(t, errors.Is(err, core.ErrUnknownGroup))
}

func TestBuild(t *testing.T) {
	breakouts := []core.Breakout{
		{Symbol: "AAA", Horizon: core.HorizonToday, ClosePrice: 10, BreakoutPct: 2},
		{Symbol: "BBB", Horizon: core.HorizonToday, ClosePrice: 20, BreakoutPct: -1},
		{Symbol: "CCC", Horizon: core.HorizonToday, ClosePrice: 30, BreakoutPct: 3},
		{Symbol: "DDD", Horizon: core.HorizonD50, ClosePrice: 40, BreakoutPct: 1},
		{Symbol: "EEE", Horizon: core.HorizonAllTime, ClosePrice: 50, BreakoutPct: 4},
	}

	sorts := NewSorts()
	_, err := sorts.Toggle("1d", core.SortByPrice)
	require.NoError(t, err)

	board := Build("NSE", breakouts, Filter{Direction: core.DirectionBull}, sorts)
	require.Len(t, board.Buckets, 7)
	assert.Equal(t, "NSE", board.Exchange)
	assert.Equal(t, 5, board.Total, "total counts the whole snapshot, D50 included")
	assert.Equal(t, 3, board.Shown, "D50 has no bucket and BBB is bearish")

	day, ok := board.Bucket("1d")
	require.True(t, ok)
	require.Len(t, day.Rows, 2)
	assert.Equal(t, "CCC", day.Rows[0].Symbol)
	assert.Equal(t, "AAA", day.Rows[1].Symbol)
	require.NotNil(t, day.Sort)
	assert.Equal(t, core.SortByPrice, day.Sort.Key)

	all, ok := board.Bucket("all")
	require.True(t, ok)
	assert.Len(t, all.Rows, 1)
	assert.Nil(t, all.Sort)

	_, ok = board.Bucket("50d")
	assert.False(t, ok)
}

func TestBuild_NilSorts(t *testing.T) {
	board := Build("BSE", nil, Filter{}, nil)
	require.Len(t, board.Buckets, 7)
	for _, b := range board.Buckets {
		assert.NotNil(t, b.Rows)
		assert.Empty(t, b.Rows)
	}
}
