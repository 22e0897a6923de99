package service

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"gitlab.ozon.dev/qwestard/cutoff-delivery/internal/audit"
	"gitlab.ozon.dev/qwestard/cutoff-delivery/internal/cutoff"
	"gitlab.ozon.dev/qwestard/cutoff-delivery/internal/models"
	"gitlab.ozon.dev/qwestard/cutoff-delivery/internal/repository"
)

type fakeWarehouses struct {
	rows map[int64]*models.Warehouse
	seq  int64
}

func newFakeWarehouses() *fakeWarehouses {
	return &fakeWarehouses{rows: make(map[int64]*models.Warehouse)}
}

func (f *fakeWarehouses) Create(_ context.Context, w *models.Warehouse) error {
	f.seq++
	w.ID = f.seq
	cp := *w
	f.rows[w.ID] = &cp
	return nil
}

func (f *fakeWarehouses) GetByID(_ context.Context, id int64) (*models.Warehouse, error) {
	w, ok := f.rows[id]
	if !ok {
		return nil, nil
	}
	cp := *w
	return &cp, nil
}

func (f *fakeWarehouses) UpdateCutoff(_ context.Context, id int64, v decimal.Decimal) error {
	w, ok := f.rows[id]
	if !ok {
		return errors.New("warehouse not found")
	}
	w.CutoffTime = v
	return nil
}

func (f *fakeWarehouses) List(context.Context) ([]*models.Warehouse, error) {
	var res []*models.Warehouse
	for _, w := range f.rows {
		res = append(res, w)
	}
	return res, nil
}

type fakeLocations struct {
	rows       map[int64]*models.Location
	warehouses *fakeWarehouses
	seq        int64
	resolves   int
}

func newFakeLocations(w *fakeWarehouses) *fakeLocations {
	return &fakeLocations{rows: make(map[int64]*models.Location), warehouses: w}
}

func (f *fakeLocations) Create(_ context.Context, l *models.Location) error {
	f.seq++
	l.ID = f.seq
	cp := *l
	f.rows[l.ID] = &cp
	return nil
}

func (f *fakeLocations) GetByID(_ context.Context, id int64) (*models.Location, error) {
	l, ok := f.rows[id]
	if !ok {
		return nil, nil
	}
	cp := *l
	return &cp, nil
}

func (f *fakeLocations) warehouseID(id int64) (int64, bool) {
	for l, ok := f.rows[id]; ok; l, ok = f.rows[*l.ParentID] {
		if l.WarehouseID != nil {
			return *l.WarehouseID, true
		}
		if l.ParentID == nil {
			break
		}
	}
	return 0, false
}

func (f *fakeLocations) ResolveWarehouse(ctx context.Context, id int64) (*models.Warehouse, error) {
	f.resolves++
	wid, ok := f.warehouseID(id)
	if !ok {
		return nil, nil
	}
	return f.warehouses.GetByID(ctx, wid)
}

func (f *fakeLocations) WarehousesByLocation(ctx context.Context) (map[int64]*models.Warehouse, error) {
	res := make(map[int64]*models.Warehouse)
	for id := range f.rows {
		if wid, ok := f.warehouseID(id); ok {
			res[id], _ = f.warehouses.GetByID(ctx, wid)
		}
	}
	return res, nil
}

func (f *fakeLocations) LocationsOfWarehouse(_ context.Context, warehouseID int64) ([]int64, error) {
	var ids []int64
	for id := range f.rows {
		if wid, ok := f.warehouseID(id); ok && wid == warehouseID {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

type fakePickings struct {
	rows         map[int64]*models.Picking
	seq          int64
	searchIDs    []int64
	lastQuery    cutoff.Query
	setCutoffErr error
}

func newFakePickings() *fakePickings {
	return &fakePickings{rows: make(map[int64]*models.Picking)}
}

func (f *fakePickings) Create(_ context.Context, p *models.Picking) error {
	f.seq++
	p.ID = f.seq
	cp := *p
	f.rows[p.ID] = &cp
	return nil
}

func (f *fakePickings) GetByID(_ context.Context, id int64) (*models.Picking, error) {
	p, ok := f.rows[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (f *fakePickings) Update(_ context.Context, p *models.Picking) error {
	if _, ok := f.rows[p.ID]; !ok {
		return errors.New("picking not found")
	}
	cp := *p
	f.rows[p.ID] = &cp
	return nil
}

func (f *fakePickings) sorted() []*models.Picking {
	var res []*models.Picking
	for _, p := range f.rows {
		cp := *p
		res = append(res, &cp)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res
}

func (f *fakePickings) List(_ context.Context, cursor, _ int64) ([]*models.Picking, error) {
	var res []*models.Picking
	for _, p := range f.sorted() {
		if p.ID > cursor {
			res = append(res, p)
		}
	}
	return res, nil
}

func (f *fakePickings) ListByFilter(_ context.Context, flt cutoff.Filter, activeOnly bool, _ int64) ([]*models.Picking, error) {
	in := make(map[int64]bool)
	for _, id := range flt.IDs {
		in[id] = true
	}
	var res []*models.Picking
	for _, p := range f.sorted() {
		if activeOnly && !p.State.Active() {
			continue
		}
		if in[p.ID] == (flt.Operator == cutoff.OperatorIn) {
			res = append(res, p)
		}
	}
	return res, nil
}

func (f *fakePickings) SearchIDs(_ context.Context, q cutoff.Query) ([]int64, error) {
	f.lastQuery = q
	return f.searchIDs, nil
}

func (f *fakePickings) SetCutoffTimeHMS(_ context.Context, locationIDs []int64, hms string) (int64, error) {
	if f.setCutoffErr != nil {
		return 0, f.setCutoffErr
	}
	var n int64
	for _, p := range f.rows {
		for _, id := range locationIDs {
			if p.LocationID == id {
				p.CutoffTimeHMS = hms
				n++
			}
		}
	}
	return n, nil
}

type fakeOutbox struct {
	events []models.CutoffEvent
}

func (f *fakeOutbox) Enqueue(_ context.Context, e models.CutoffEvent) error {
	f.events = append(f.events, e)
	return nil
}

// fakeTx restores the fake stores when fn fails.
type fakeTx struct {
	warehouses *fakeWarehouses
	pickings   *fakePickings
	outbox     *fakeOutbox
}

func (f *fakeTx) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	warehouses := make(map[int64]*models.Warehouse, len(f.warehouses.rows))
	for id, w := range f.warehouses.rows {
		cp := *w
		warehouses[id] = &cp
	}
	pickings := make(map[int64]*models.Picking, len(f.pickings.rows))
	for id, p := range f.pickings.rows {
		cp := *p
		pickings[id] = &cp
	}
	events := len(f.outbox.events)

	if err := fn(ctx); err != nil {
		f.warehouses.rows = warehouses
		f.pickings.rows = pickings
		f.outbox.events = f.outbox.events[:events]
		return err
	}
	return nil
}

var (
	_ repository.WarehouseStore = (*fakeWarehouses)(nil)
	_ repository.LocationStore  = (*fakeLocations)(nil)
	_ repository.PickingStore   = (*fakePickings)(nil)
	_ repository.EventOutbox    = (*fakeOutbox)(nil)
	_ repository.Transactor     = (*fakeTx)(nil)
)

type fakeAudit struct {
	mu   sync.Mutex
	logs []audit.AuditLog
}

func (f *fakeAudit) Log(rec audit.AuditLog) {
	f.mu.Lock()
	f.logs = append(f.logs, rec)
	f.mu.Unlock()
}
