package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/table-reservation/internal/model"
)

// CapacityIndex materializes the bookable tables of a location.
type CapacityIndex struct {
	locations LocationRepository
	tables    TableRepository
}

func NewCapacityIndex(locations LocationRepository, tables TableRepository) *CapacityIndex {
	return &CapacityIndex{locations: locations, tables: tables}
}

// Load returns the location and its active tables ordered by table number.
// A missing or inactive location is reported as ErrNotFound.
func (ci *CapacityIndex) Load(ctx context.Context, locationID uint64) (*model.Location, []model.Table, error) {
	loc, err := ci.locations.GetByID(ctx, locationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, notFoundf("location %d not found", locationID)
		}
		return nil, nil, err
	}
	if !loc.IsActive {
		return nil, nil, notFoundf("location %d not found", locationID)
	}
	tables, err := ci.tables.ListActive(ctx, locationID)
	if err != nil {
		return nil, nil, err
	}
	active := make([]model.Table, 0, len(tables))
	for _, t := range tables {
		if t.IsActive && t.LocationID == locationID {
			active = append(active, t)
		}
	}
	model.SortByNumber(active)
	return loc, active, nil
}

// ActiveTables returns the active tables of an active location.
func (ci *CapacityIndex) ActiveTables(ctx context.Context, locationID uint64) ([]model.Table, error) {
	_, tables, err := ci.Load(ctx, locationID)
	return tables, err
}
