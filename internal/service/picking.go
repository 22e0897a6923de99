package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gitlab.ozon.dev/qwestard/cutoff-delivery/internal/audit"
	"gitlab.ozon.dev/qwestard/cutoff-delivery/internal/cache"
	"gitlab.ozon.dev/qwestard/cutoff-delivery/internal/cutoff"
	"gitlab.ozon.dev/qwestard/cutoff-delivery/internal/models"
	"gitlab.ozon.dev/qwestard/cutoff-delivery/internal/repository"
)

const fieldCutoffTimeHMS = "cutoff_time_hms"

type PickingService struct {
	pickings   repository.PickingStore
	locations  repository.LocationStore
	warehouses *cache.WarehouseCache
	classifier *cutoff.Classifier
	tx         repository.Transactor
	outbox     repository.EventOutbox
	audit      audit.Logger
}

func NewPickingService(
	pickings repository.PickingStore,
	locations repository.LocationStore,
	warehouses *cache.WarehouseCache,
	classifier *cutoff.Classifier,
	tx repository.Transactor,
	outbox repository.EventOutbox,
	auditLogger audit.Logger,
) *PickingService {
	return &PickingService{
		pickings:   pickings,
		locations:  locations,
		warehouses: warehouses,
		classifier: classifier,
		tx:         tx,
		outbox:     outbox,
		audit:      auditLogger,
	}
}

// warehouseOf must run inside warehouses.ReadCutoff.
func (s *PickingService) warehouseOf(ctx context.Context, locationID int64) (*models.Warehouse, error) {
	if w, ok := s.warehouses.Get(locationID); ok {
		return w, nil
	}
	w, err := s.locations.ResolveWarehouse(ctx, locationID)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, fmt.Errorf("location %d: %w", locationID, ErrWarehouseNotFound)
	}
	s.warehouses.Set(locationID, w)
	return w, nil
}

func (s *PickingService) cutoffText(ctx context.Context, locationID int64) (string, error) {
	w, err := s.warehouseOf(ctx, locationID)
	if err != nil {
		return "", err
	}
	return cutoff.TimeText(w.CutoffTime), nil
}

// ComputeCutoffTimeText returns the "HH:MM:SS" cutoff of the picking's warehouse.
func (s *PickingService) ComputeCutoffTimeText(ctx context.Context, p *models.Picking) (string, error) {
	var text string
	err := s.warehouses.ReadCutoff(func() error {
		var err error
		text, err = s.cutoffText(ctx, p.LocationID)
		return err
	})
	return text, err
}

// ComputeCutoffDiff classifies the picking against the current cutoff window.
func (s *PickingService) ComputeCutoffDiff(ctx context.Context, p *models.Picking) (int, error) {
	cp := *p
	if err := s.withDiff(ctx, &cp); err != nil {
		return 0, err
	}
	return cp.CutoffTimeDiff, nil
}

func (s *PickingService) withDiff(ctx context.Context, pickings ...*models.Picking) error {
	return s.warehouses.ReadCutoff(func() error {
		for _, p := range pickings {
			w, err := s.warehouseOf(ctx, p.LocationID)
			if err != nil {
				return fmt.Errorf("picking %d: %w", p.ID, err)
			}
			p.CutoffTimeDiff = s.classifier.Diff(p.ScheduledDate, w.CutoffTime)
		}
		return nil
	})
}

func validatePicking(p *models.Picking) error {
	var errs []error
	if p.Name == "" {
		errs = append(errs, errors.New("name is required"))
	}
	if p.LocationID <= 0 {
		errs = append(errs, errors.New("location_id is required"))
	}
	if p.ScheduledDate.IsZero() {
		errs = append(errs, errors.New("scheduled_date is required"))
	}
	if !p.State.Valid() {
		errs = append(errs, fmt.Errorf("unknown state %q", p.State))
	}
	return validationError(errs...)
}

func (s *PickingService) CreatePicking(ctx context.Context, p *models.Picking) error {
	if p.State == "" {
		p.State = models.PickingStateDraft
	}
	if err := validatePicking(p); err != nil {
		return err
	}
	err := s.warehouses.ReadCutoff(func() error {
		hms, err := s.cutoffText(ctx, p.LocationID)
		if err != nil {
			return err
		}
		p.CutoffTimeHMS = hms
		return s.pickings.Create(ctx, p)
	})
	if err != nil {
		return err
	}
	return s.withDiff(ctx, p)
}

func (s *PickingService) GetPicking(ctx context.Context, id int64) (*models.Picking, error) {
	p, err := s.pickings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("picking %d: %w", id, ErrNotFound)
	}
	if err := s.withDiff(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// UpdatePicking stores p. The cutoff text is recomputed only when the
// location changes; any value sent by the caller is ignored. A changed text
// is published as a picking cutoff event.
func (s *PickingService) UpdatePicking(ctx context.Context, p *models.Picking) error {
	if err := validatePicking(p); err != nil {
		return err
	}
	var oldText string
	err := s.warehouses.ReadCutoff(func() error {
		return s.tx.InTx(ctx, func(ctx context.Context) error {
			current, err := s.pickings.GetByID(ctx, p.ID)
			if err != nil {
				return err
			}
			if current == nil {
				return fmt.Errorf("picking %d: %w", p.ID, ErrNotFound)
			}
			oldText = current.CutoffTimeHMS
			p.CutoffTimeHMS = current.CutoffTimeHMS
			if p.LocationID != current.LocationID {
				if p.CutoffTimeHMS, err = s.cutoffText(ctx, p.LocationID); err != nil {
					return err
				}
			}
			if err := s.pickings.Update(ctx, p); err != nil {
				return err
			}
			if p.CutoffTimeHMS == oldText {
				return nil
			}
			return s.outbox.Enqueue(ctx, models.CutoffEvent{
				Kind:       models.EventPickingCutoff,
				PickingID:  p.ID,
				LocationID: p.LocationID,
				OldCutoff:  oldText,
				NewCutoff:  p.CutoffTimeHMS,
				OccurredAt: time.Now().UTC(),
			})
		})
	})
	if err != nil {
		return err
	}
	if p.CutoffTimeHMS != oldText {
		s.audit.Log(audit.AuditLog{
			Timestamp: time.Now().UTC(),
			PickingID: p.ID,
			Field:     fieldCutoffTimeHMS,
			OldValue:  oldText,
			NewValue:  p.CutoffTimeHMS,
			Message:   fmt.Sprintf("cutoff recomputed after move to location %d", p.LocationID),
		})
	}
	return s.withDiff(ctx, p)
}

// RecomputeCutoffText rewrites the stored cutoff text of every picking at
// locationID from a fresh warehouse lookup and returns how many were updated.
func (s *PickingService) RecomputeCutoffText(ctx context.Context, locationID int64) (int64, error) {
	var text string
	var n int64
	err := s.warehouses.ReadCutoff(func() error {
		w, err := s.locations.ResolveWarehouse(ctx, locationID)
		if err != nil {
			return err
		}
		if w == nil {
			return fmt.Errorf("location %d: %w", locationID, ErrWarehouseNotFound)
		}
		s.warehouses.Set(locationID, w)
		text = cutoff.TimeText(w.CutoffTime)
		n, err = s.pickings.SetCutoffTimeHMS(ctx, []int64{locationID}, text)
		return err
	})
	if err != nil {
		return 0, err
	}
	s.audit.Log(audit.AuditLog{
		Timestamp: time.Now().UTC(),
		Field:     fieldCutoffTimeHMS,
		NewValue:  text,
		Message:   fmt.Sprintf("location %d cutoff recomputed, %d pickings updated", locationID, n),
	})
	return n, nil
}

func (s *PickingService) ListPickings(ctx context.Context, cursor, limit int64) ([]*models.Picking, error) {
	pickings, err := s.pickings.List(ctx, cursor, limit)
	if err != nil {
		return nil, err
	}
	if err := s.withDiff(ctx, pickings...); err != nil {
		return nil, err
	}
	return pickings, nil
}

// SearchByCutoffDiff translates "cutoff_time_diff operator value" into an
// id filter.
func (s *PickingService) SearchByCutoffDiff(ctx context.Context, operator string, value int) (cutoff.Filter, error) {
	q, err := s.classifier.Predicate(operator, value)
	if err != nil {
		return cutoff.Filter{}, err
	}
	ids, err := s.pickings.SearchIDs(ctx, q)
	if err != nil {
		return cutoff.Filter{}, err
	}
	return q.Filter(ids), nil
}

// FilterPickings returns the active pickings matching the cutoff search.
func (s *PickingService) FilterPickings(ctx context.Context, operator string, value int, limit int64) ([]*models.Picking, error) {
	f, err := s.SearchByCutoffDiff(ctx, operator, value)
	if err != nil {
		return nil, err
	}
	pickings, err := s.pickings.ListByFilter(ctx, f, true, limit)
	if err != nil {
		return nil, err
	}
	if err := s.withDiff(ctx, pickings...); err != nil {
		return nil, err
	}
	return pickings, nil
}
