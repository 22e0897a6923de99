package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"gitlab.ozon.dev/qwestard/cutoff-delivery/internal/cutoff"
	"gitlab.ozon.dev/qwestard/cutoff-delivery/internal/models"
)

// Lookups return nil, nil when the row does not exist.

type WarehouseStore interface {
	Create(ctx context.Context, w *models.Warehouse) error
	GetByID(ctx context.Context, id int64) (*models.Warehouse, error)
	UpdateCutoff(ctx context.Context, id int64, cutoffTime decimal.Decimal) error
	List(ctx context.Context) ([]*models.Warehouse, error)
}

type LocationStore interface {
	Create(ctx context.Context, l *models.Location) error
	GetByID(ctx context.Context, id int64) (*models.Location, error)
	ResolveWarehouse(ctx context.Context, locationID int64) (*models.Warehouse, error)
	WarehousesByLocation(ctx context.Context) (map[int64]*models.Warehouse, error)
	LocationsOfWarehouse(ctx context.Context, warehouseID int64) ([]int64, error)
}

type PickingStore interface {
	Create(ctx context.Context, p *models.Picking) error
	GetByID(ctx context.Context, id int64) (*models.Picking, error)
	Update(ctx context.Context, p *models.Picking) error
	List(ctx context.Context, cursor, limit int64) ([]*models.Picking, error)
	ListByFilter(ctx context.Context, f cutoff.Filter, activeOnly bool, limit int64) ([]*models.Picking, error)
	SearchIDs(ctx context.Context, q cutoff.Query) ([]int64, error)
	SetCutoffTimeHMS(ctx context.Context, locationIDs []int64, hms string) (int64, error)
}

const defaultLimit = 100
