package service

import (
	"errors"

	"github.com/iliyamo/table-reservation/internal/model"
)

// ErrAllocationFailed means the candidate tables cannot seat the party.
var ErrAllocationFailed = errors.New("allocation failed")

// Allocate picks tables for guests greedily: candidates are taken largest
// first (ties by lower table number) until their seats cover the party.
// The input slice is not modified. The result is deterministic for a given
// candidate set but not optimal; 6+4 may be chosen for 7 guests where 4+4
// would also do.
func Allocate(available []model.Table, guests int) ([]model.Table, error) {
	if guests < 1 {
		return nil, ErrAllocationFailed
	}
	candidates := make([]model.Table, len(available))
	copy(candidates, available)
	model.SortBySeatsDesc(candidates)

	var picked []model.Table
	seats := 0
	for _, t := range candidates {
		if t.Seats <= 0 {
			continue
		}
		picked = append(picked, t)
		seats += t.Seats
		if seats >= guests {
			return picked, nil
		}
	}
	return nil, ErrAllocationFailed
}

func tableIDs(tables []model.Table) []uint64 {
	ids := make([]uint64, 0, len(tables))
	for _, t := range tables {
		ids = append(ids, t.ID)
	}
	return ids
}
