package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"gitlab.ozon.dev/qwestard/cutoff-delivery/internal/audit"
	"gitlab.ozon.dev/qwestard/cutoff-delivery/internal/cache"
	"gitlab.ozon.dev/qwestard/cutoff-delivery/internal/cutoff"
	"gitlab.ozon.dev/qwestard/cutoff-delivery/internal/models"
	"gitlab.ozon.dev/qwestard/cutoff-delivery/internal/repository"
)

type WarehouseService struct {
	warehouses repository.WarehouseStore
	locations  repository.LocationStore
	pickings   repository.PickingStore
	cache      *cache.WarehouseCache
	tx         repository.Transactor
	outbox     repository.EventOutbox
	audit      audit.Logger
}

func NewWarehouseService(
	warehouses repository.WarehouseStore,
	locations repository.LocationStore,
	pickings repository.PickingStore,
	warehouseCache *cache.WarehouseCache,
	tx repository.Transactor,
	outbox repository.EventOutbox,
	auditLogger audit.Logger,
) *WarehouseService {
	return &WarehouseService{
		warehouses: warehouses,
		locations:  locations,
		pickings:   pickings,
		cache:      warehouseCache,
		tx:         tx,
		outbox:     outbox,
		audit:      auditLogger,
	}
}

func validateCutoff(v decimal.Decimal) error {
	if !models.ValidCutoff(v) {
		return fmt.Errorf("cutoff_time %s is not a time of day before 24:00", v)
	}
	return nil
}

func (s *WarehouseService) CreateWarehouse(ctx context.Context, w *models.Warehouse) error {
	var errs []error
	if w.Name == "" {
		errs = append(errs, errors.New("name is required"))
	}
	if err := validateCutoff(w.CutoffTime); err != nil {
		errs = append(errs, err)
	}
	if err := validationError(errs...); err != nil {
		return err
	}
	return s.warehouses.Create(ctx, w)
}

func (s *WarehouseService) GetWarehouse(ctx context.Context, id int64) (*models.Warehouse, error) {
	w, err := s.warehouses.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, fmt.Errorf("warehouse %d: %w", id, ErrNotFound)
	}
	return w, nil
}

func (s *WarehouseService) ListWarehouses(ctx context.Context) ([]*models.Warehouse, error) {
	return s.warehouses.List(ctx)
}

// UpdateCutoff changes the warehouse cutoff and rewrites the stored cutoff
// text of every picking located in that warehouse. Both changes and the
// warehouse cutoff event commit together or not at all.
func (s *WarehouseService) UpdateCutoff(ctx context.Context, id int64, cutoffTime decimal.Decimal) (*models.Warehouse, error) {
	if err := validationError(validateCutoff(cutoffTime)); err != nil {
		return nil, err
	}
	var w *models.Warehouse
	var oldText, newText string
	var n int64
	err := s.cache.ChangeCutoff(id, func() error {
		return s.tx.InTx(ctx, func(ctx context.Context) error {
			var err error
			if w, err = s.GetWarehouse(ctx, id); err != nil {
				return err
			}
			if err := s.warehouses.UpdateCutoff(ctx, id, cutoffTime); err != nil {
				return err
			}
			oldText = cutoff.TimeText(w.CutoffTime)
			newText = cutoff.TimeText(cutoffTime)
			w.CutoffTime = cutoffTime

			locationIDs, err := s.locations.LocationsOfWarehouse(ctx, id)
			if err != nil {
				return err
			}
			if n, err = s.pickings.SetCutoffTimeHMS(ctx, locationIDs, newText); err != nil {
				return err
			}
			return s.outbox.Enqueue(ctx, models.CutoffEvent{
				Kind:        models.EventWarehouseCutoff,
				WarehouseID: id,
				OldCutoff:   oldText,
				NewCutoff:   newText,
				Pickings:    n,
				OccurredAt:  time.Now().UTC(),
			})
		})
	})
	if err != nil {
		return nil, err
	}
	s.audit.Log(audit.AuditLog{
		Timestamp: time.Now().UTC(),
		Field:     fieldCutoffTimeHMS,
		OldValue:  oldText,
		NewValue:  newText,
		Message:   fmt.Sprintf("warehouse %d cutoff changed, %d pickings updated", id, n),
	})
	return w, nil
}

func (s *WarehouseService) CreateLocation(ctx context.Context, l *models.Location) error {
	var errs []error
	if l.Name == "" {
		errs = append(errs, errors.New("name is required"))
	}
	if l.ParentID == nil && l.WarehouseID == nil {
		errs = append(errs, errors.New("parent_id or warehouse_id is required"))
	}
	if err := validationError(errs...); err != nil {
		return err
	}

	if l.ParentID != nil {
		parent, err := s.locations.GetByID(ctx, *l.ParentID)
		if err != nil {
			return err
		}
		if parent == nil {
			return fmt.Errorf("parent location %d: %w", *l.ParentID, ErrNotFound)
		}
	}
	if l.WarehouseID != nil {
		if _, err := s.GetWarehouse(ctx, *l.WarehouseID); err != nil {
			return err
		}
	}
	return s.locations.Create(ctx, l)
}
