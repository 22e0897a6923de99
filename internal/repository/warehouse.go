package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"gitlab.ozon.dev/qwestard/cutoff-delivery/internal/models"
)

type WarehouseRepository struct {
	db *sql.DB
}

func NewWarehouseRepository(db *sql.DB) *WarehouseRepository {
	return &WarehouseRepository{db: db}
}

func (r *WarehouseRepository) Create(ctx context.Context, w *models.Warehouse) error {
	query := `INSERT INTO warehouses (name, cutoff_time) VALUES ($1, $2) RETURNING id`
	if err := conn(ctx, r.db).QueryRowContext(ctx, query, w.Name, w.CutoffTime).Scan(&w.ID); err != nil {
		return fmt.Errorf("create warehouse: %w", err)
	}
	return nil
}

func (r *WarehouseRepository) GetByID(ctx context.Context, id int64) (*models.Warehouse, error) {
	query := `SELECT id, name, cutoff_time FROM warehouses WHERE id = $1`
	w := &models.Warehouse{}
	err := conn(ctx, r.db).QueryRowContext(ctx, query, id).Scan(&w.ID, &w.Name, &w.CutoffTime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get warehouse by id: %w", err)
	}
	return w, nil
}

func (r *WarehouseRepository) UpdateCutoff(ctx context.Context, id int64, cutoffTime decimal.Decimal) error {
	query := `UPDATE warehouses SET cutoff_time = $1 WHERE id = $2`
	res, err := conn(ctx, r.db).ExecContext(ctx, query, cutoffTime, id)
	if err != nil {
		return fmt.Errorf("update warehouse cutoff: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("warehouse %d not found", id)
	}
	return nil
}

func (r *WarehouseRepository) List(ctx context.Context) ([]*models.Warehouse, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, `SELECT id, name, cutoff_time FROM warehouses ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list warehouses: %w", err)
	}
	defer rows.Close()

	var res []*models.Warehouse
	for rows.Next() {
		w := &models.Warehouse{}
		if err := rows.Scan(&w.ID, &w.Name, &w.CutoffTime); err != nil {
			return nil, fmt.Errorf("scan warehouse: %w", err)
		}
		res = append(res, w)
	}
	return res, rows.Err()
}
