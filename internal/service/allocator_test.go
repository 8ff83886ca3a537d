package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/table-reservation/internal/model"
)

func numbers(tables []model.Table) []int {
	out := make([]int, 0, len(tables))
	for _, t := range tables {
		out = append(out, t.Number)
	}
	return out
}

func TestAllocate(t *testing.T) {
	a := model.Table{ID: 1, Number: 1, Seats: 6}
	b := model.Table{ID: 2, Number: 2, Seats: 4}
	c := model.Table{ID: 3, Number: 3, Seats: 2}
	b2 := model.Table{ID: 4, Number: 4, Seats: 4}

	cases := []struct {
		name      string
		available []model.Table
		guests    int
		want      []int
		fail      bool
	}{
		{name: "two tables needed", available: []model.Table{c, b}, guests: 5, want: []int{2, 3}},
		{name: "not enough seats", available: []model.Table{b, c}, guests: 7, fail: true},
		{name: "single table overshoots", available: []model.Table{c, b, a}, guests: 3, want: []int{1}},
		{name: "greedy keeps largest", available: []model.Table{b2, a, b}, guests: 7, want: []int{1, 2}},
		{name: "ties by number", available: []model.Table{b2, b}, guests: 4, want: []int{2}},
		{name: "exact fit", available: []model.Table{a, b, c}, guests: 12, want: []int{1, 2, 3}},
		{name: "nothing free", available: nil, guests: 1, fail: true},
		{name: "no guests", available: []model.Table{a}, guests: 0, fail: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Allocate(tc.available, tc.guests)
			if tc.fail {
				require.ErrorIs(t, err, ErrAllocationFailed)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, numbers(got))
			assert.GreaterOrEqual(t, model.TotalSeats(got), tc.guests)
		})
	}
}

func TestAllocateIsDeterministicAndLeavesInputAlone(t *testing.T) {
	in := []model.Table{
		{ID: 9, Number: 9, Seats: 2},
		{ID: 5, Number: 5, Seats: 4},
		{ID: 7, Number: 7, Seats: 4},
		{ID: 1, Number: 1, Seats: 2},
	}
	before := append([]model.Table(nil), in...)

	first, err := Allocate(in, 9)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := Allocate(in, 9)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
	assert.Equal(t, []int{5, 7, 1}, numbers(first))
	assert.Equal(t, before, in)
}

func TestAllocateFailsExactlyWhenCapacityShort(t *testing.T) {
	tables := []model.Table{
		{ID: 1, Number: 1, Seats: 3},
		{ID: 2, Number: 2, Seats: 5},
		{ID: 3, Number: 3, Seats: 1},
	}
	total := model.TotalSeats(tables)
	for guests := 1; guests <= total+3; guests++ {
		got, err := Allocate(tables, guests)
		if guests > total {
			assert.ErrorIs(t, err, ErrAllocationFailed, "guests=%d", guests)
			continue
		}
		require.NoError(t, err, "guests=%d", guests)
		assert.NotEmpty(t, got)
		assert.GreaterOrEqual(t, model.TotalSeats(got), guests)
	}
}
