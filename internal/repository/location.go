package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gitlab.ozon.dev/qwestard/cutoff-delivery/internal/models"
)

type LocationRepository struct {
	db *sql.DB
}

func NewLocationRepository(db *sql.DB) *LocationRepository {
	return &LocationRepository{db: db}
}

func (r *LocationRepository) Create(ctx context.Context, l *models.Location) error {
	query := `INSERT INTO locations (name, parent_id, warehouse_id) VALUES ($1, $2, $3) RETURNING id`
	if err := conn(ctx, r.db).QueryRowContext(ctx, query, l.Name, l.ParentID, l.WarehouseID).Scan(&l.ID); err != nil {
		return fmt.Errorf("create location: %w", err)
	}
	return nil
}

func (r *LocationRepository) GetByID(ctx context.Context, id int64) (*models.Location, error) {
	query := `SELECT id, name, parent_id, warehouse_id FROM locations WHERE id = $1`
	l := &models.Location{}
	var parentID, warehouseID sql.NullInt64
	err := conn(ctx, r.db).QueryRowContext(ctx, query, id).Scan(&l.ID, &l.Name, &parentID, &warehouseID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get location by id: %w", err)
	}
	if parentID.Valid {
		l.ParentID = &parentID.Int64
	}
	if warehouseID.Valid {
		l.WarehouseID = &warehouseID.Int64
	}
	return l, nil
}

// ResolveWarehouse walks up the parent chain to the nearest location that
// belongs to a warehouse.
func (r *LocationRepository) ResolveWarehouse(ctx context.Context, locationID int64) (*models.Warehouse, error) {
	query := `
		WITH RECURSIVE chain AS (
			SELECT id, parent_id, warehouse_id, 0 AS depth
			FROM locations WHERE id = $1
			UNION ALL
			SELECT l.id, l.parent_id, l.warehouse_id, c.depth + 1
			FROM locations l
			JOIN chain c ON l.id = c.parent_id
			WHERE c.warehouse_id IS NULL
		)
		SELECT w.id, w.name, w.cutoff_time
		FROM chain c
		JOIN warehouses w ON w.id = c.warehouse_id
		ORDER BY c.depth
		LIMIT 1
	`
	w := &models.Warehouse{}
	err := conn(ctx, r.db).QueryRowContext(ctx, query, locationID).Scan(&w.ID, &w.Name, &w.CutoffTime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve warehouse of location %d: %w", locationID, err)
	}
	return w, nil
}

// WarehousesByLocation resolves every location that has a warehouse in one
// query.
func (r *LocationRepository) WarehousesByLocation(ctx context.Context) (map[int64]*models.Warehouse, error) {
	query := `
		WITH RECURSIVE tree AS (
			SELECT id, warehouse_id
			FROM locations WHERE warehouse_id IS NOT NULL
			UNION ALL
			SELECT l.id, t.warehouse_id
			FROM locations l
			JOIN tree t ON l.parent_id = t.id
			WHERE l.warehouse_id IS NULL
		)
		SELECT t.id, w.id, w.name, w.cutoff_time
		FROM tree t
		JOIN warehouses w ON w.id = t.warehouse_id
	`
	rows, err := conn(ctx, r.db).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("resolve warehouses: %w", err)
	}
	defer rows.Close()

	warehouses := make(map[int64]*models.Warehouse)
	res := make(map[int64]*models.Warehouse)
	for rows.Next() {
		var locationID int64
		w := &models.Warehouse{}
		if err := rows.Scan(&locationID, &w.ID, &w.Name, &w.CutoffTime); err != nil {
			return nil, fmt.Errorf("scan location warehouse: %w", err)
		}
		if known, ok := warehouses[w.ID]; ok {
			w = known
		} else {
			warehouses[w.ID] = w
		}
		res[locationID] = w
	}
	return res, rows.Err()
}

// LocationsOfWarehouse lists the locations resolving to warehouseID.
func (r *LocationRepository) LocationsOfWarehouse(ctx context.Context, warehouseID int64) ([]int64, error) {
	query := `
		WITH RECURSIVE tree AS (
			SELECT id FROM locations WHERE warehouse_id = $1
			UNION ALL
			SELECT l.id
			FROM locations l
			JOIN tree t ON l.parent_id = t.id
			WHERE l.warehouse_id IS NULL
		)
		SELECT id FROM tree ORDER BY id
	`
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, warehouseID)
	if err != nil {
		return nil, fmt.Errorf("locations of warehouse %d: %w", warehouseID, err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan location id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
