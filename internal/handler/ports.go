package handler

import (
	"context"
	"time"

	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/service"
)

// Bookings is the reservation write and read path (service.Manager).
type Bookings interface {
	Create(ctx context.Context, req service.CreateRequest) (*model.Reservation, error)
	ChangeStatus(ctx context.Context, id uint64, next model.ReservationStatus, actor, reason string) (*model.Reservation, error)
	Update(ctx context.Context, id uint64, req service.UpdateRequest) (*model.Reservation, error)
	Get(ctx context.Context, id uint64) (*model.Reservation, error)
	List(ctx context.Context, f model.ReservationFilter) ([]model.Reservation, error)
	Delete(ctx context.Context, id uint64) error
}

// Availability renders the slot grid (service.GridBuilder).
type Availability interface {
	Build(ctx context.Context, locationID uint64, date time.Time, guests int) ([]service.AvailabilitySlot, error)
}

// LocationStore is implemented by repository.LocationRepo.
type LocationStore interface {
	GetByID(ctx context.Context, id uint64) (*model.Location, error)
	List(ctx context.Context, includeInactive bool) ([]model.Location, error)
	Create(ctx context.Context, l *model.Location) error
	Update(ctx context.Context, l *model.Location) error
	SetHours(ctx context.Context, locationID uint64, hours []model.OpeningHours) error
}

// TableStore is implemented by repository.TableRepo.
type TableStore interface {
	ListActive(ctx context.Context, locationID uint64) ([]model.Table, error)
	ListByLocation(ctx context.Context, locationID uint64) ([]model.Table, error)
	GetByID(ctx context.Context, id uint64) (*model.Table, error)
	Create(ctx context.Context, t *model.Table) error
	Update(ctx context.Context, t *model.Table) error
	Deactivate(ctx context.Context, id uint64) error
}

// UserStore is implemented by repository.UserRepo.
type UserStore interface {
	Create(ctx context.Context, email, password, role string, cost int) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// TokenStore is implemented by repository.TokenRepo.
type TokenStore interface {
	StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error)
	Rotate(ctx context.Context, userID uint64, oldHash, newHash string, exp time.Time) error
	RevokeByHash(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID uint64) error
}

// CachePurger drops cached public responses after catalogue writes.
type CachePurger interface {
	Purge(ctx context.Context) error
}
