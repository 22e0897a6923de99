package cache

import (
	"context"
	"log"
	"sync"
	"time"

	"gitlab.ozon.dev/qwestard/cutoff-delivery/internal/models"
)

type WarehouseResolver interface {
	WarehousesByLocation(ctx context.Context) (map[int64]*models.Warehouse, error)
}

// WarehouseCache maps location ids to the warehouse they resolve to.
//
// A cutoff change runs under ChangeCutoff and excludes Refresh and every
// ReadCutoff section, so nothing read before the change is written back
// after it.
type WarehouseCache struct {
	mu         sync.RWMutex
	byLocation map[int64]*models.Warehouse

	cutoffMu sync.RWMutex
}

func NewWarehouseCache() *WarehouseCache {
	return &WarehouseCache{
		byLocation: make(map[int64]*models.Warehouse),
	}
}

func (c *WarehouseCache) Refresh(ctx context.Context, repo WarehouseResolver) error {
	c.cutoffMu.RLock()
	defer c.cutoffMu.RUnlock()
	byLocation, err := repo.WarehousesByLocation(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.byLocation = byLocation
	c.mu.Unlock()
	return nil
}

func (c *WarehouseCache) Get(locationID int64) (*models.Warehouse, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	w, ok := c.byLocation[locationID]
	return w, ok
}

func (c *WarehouseCache) Set(locationID int64, w *models.Warehouse) {
	c.mu.Lock()
	c.byLocation[locationID] = w
	c.mu.Unlock()
}

// ReadCutoff runs fn, which may resolve and store cutoffs, while no cutoff
// change is in progress. fn must not call ReadCutoff or ChangeCutoff.
func (c *WarehouseCache) ReadCutoff(fn func() error) error {
	c.cutoffMu.RLock()
	defer c.cutoffMu.RUnlock()
	return fn()
}

// ChangeCutoff runs fn exclusively and, when it succeeds, drops the
// locations of warehouseID.
func (c *WarehouseCache) ChangeCutoff(warehouseID int64, fn func() error) error {
	c.cutoffMu.Lock()
	defer c.cutoffMu.Unlock()
	if err := fn(); err != nil {
		return err
	}
	c.InvalidateWarehouse(warehouseID)
	return nil
}

// InvalidateWarehouse drops every location resolving to warehouseID.
func (c *WarehouseCache) InvalidateWarehouse(warehouseID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for locationID, w := range c.byLocation {
		if w.ID == warehouseID {
			delete(c.byLocation, locationID)
		}
	}
}

func (c *WarehouseCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byLocation)
}

func (c *WarehouseCache) StartAutoRefresh(ctx context.Context, repo WarehouseResolver, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := c.Refresh(ctx, repo); err != nil {
				log.Printf("Warehouse cache refresh failed: %v", err)
			}
		case <-ctx.Done():
			return
		}
	}
}
