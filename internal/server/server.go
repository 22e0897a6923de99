package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"gitlab.ozon.dev/qwestard/cutoff-delivery/internal/audit"
	"gitlab.ozon.dev/qwestard/cutoff-delivery/internal/config"
	"gitlab.ozon.dev/qwestard/cutoff-delivery/internal/cutoff"
	"gitlab.ozon.dev/qwestard/cutoff-delivery/internal/middleware"
	"gitlab.ozon.dev/qwestard/cutoff-delivery/internal/models"
	"gitlab.ozon.dev/qwestard/cutoff-delivery/internal/service"
)

type PickingService interface {
	CreatePicking(ctx context.Context, p *models.Picking) error
	GetPicking(ctx context.Context, id int64) (*models.Picking, error)
	UpdatePicking(ctx context.Context, p *models.Picking) error
	ListPickings(ctx context.Context, cursor, limit int64) ([]*models.Picking, error)
	SearchByCutoffDiff(ctx context.Context, operator string, value int) (cutoff.Filter, error)
	FilterPickings(ctx context.Context, operator string, value int, limit int64) ([]*models.Picking, error)
	RecomputeCutoffText(ctx context.Context, locationID int64) (int64, error)
}

type WarehouseService interface {
	CreateWarehouse(ctx context.Context, w *models.Warehouse) error
	GetWarehouse(ctx context.Context, id int64) (*models.Warehouse, error)
	ListWarehouses(ctx context.Context) ([]*models.Warehouse, error)
	UpdateCutoff(ctx context.Context, id int64, cutoffTime decimal.Decimal) (*models.Warehouse, error)
	CreateLocation(ctx context.Context, l *models.Location) error
}

type Server struct {
	pickings   PickingService
	warehouses WarehouseService
	audit      audit.Logger
	user       string
	password   string
	addr       string
	srv        *http.Server
}

func NewServer(pickings PickingService, warehouses WarehouseService, auditLogger audit.Logger, cfg *config.Config) *Server {
	return &Server{
		pickings:   pickings,
		warehouses: warehouses,
		audit:      auditLogger,
		user:       cfg.Username,
		password:   cfg.Password,
		addr:       cfg.Addr(),
		srv: &http.Server{
			Addr:              cfg.Addr(),
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	s.handleWith(mux, "/warehouses", s.handleWarehouses,
		[]string{"POST"}, []string{"POST"},
	)

	s.handleWith(mux, "/warehouses/", s.handleWarehouseOne,
		[]string{"PUT"}, []string{"PUT"},
	)

	s.handleWith(mux, "/locations", s.handleLocations,
		[]string{"POST"}, []string{"POST"},
	)

	s.handleWith(mux, "/locations/", s.handleRecomputeCutoff,
		[]string{"POST"}, []string{"POST"},
	)

	s.handleWith(mux, "/pickings", s.handlePickings,
		[]string{"POST"}, []string{"POST"},
	)

	s.handleWith(mux, "/pickings/", s.handlePickingOne,
		[]string{"PUT"}, []string{"PUT"},
	)

	mux.HandleFunc("/pickings-search", s.handleSearch)
}

func (s *Server) Run() error {
	mux := http.NewServeMux()

	s.RegisterRoutes(mux)

	s.srv.Handler = mux
	log.Printf("Server listen on %s...", s.addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleWith(mux *http.ServeMux, path string,
	handlerFunc http.HandlerFunc,
	logMethods []string, authMethods []string,
) {
	finalHandler := middleware.LogMiddleware(s.audit, logMethods...)(
		middleware.BasicAuthMiddleware(s.user, s.password, authMethods...)(
			handlerFunc,
		),
	)
	mux.Handle(path, finalHandler)
}

func (s *Server) handleWarehouses(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
	case http.MethodGet:
		list, err := s.warehouses.ListWarehouses(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
		return
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var wh models.Warehouse
	if err := json.NewDecoder(r.Body).Decode(&wh); err != nil {
		http.Error(w, "bad JSON", http.StatusBadRequest)
		return
	}
	if err := s.warehouses.CreateWarehouse(r.Context(), &wh); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, wh)
}

type cutoffUpdate struct {
	CutoffTime *decimal.Decimal `json:"cutoff_time"`
}

func (s *Server) handleWarehouseOne(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "/warehouses/")
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		wh, err := s.warehouses.GetWarehouse(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, wh)
	case http.MethodPut:
		var upd cutoffUpdate
		if err := json.NewDecoder(r.Body).Decode(&upd); err != nil || upd.CutoffTime == nil {
			http.Error(w, "bad JSON", http.StatusBadRequest)
			return
		}
		wh, err := s.warehouses.UpdateCutoff(r.Context(), id, *upd.CutoffTime)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, wh)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleLocations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var l models.Location
	if err := json.NewDecoder(r.Body).Decode(&l); err != nil {
		http.Error(w, "bad JSON", http.StatusBadRequest)
		return
	}
	if err := s.warehouses.CreateLocation(r.Context(), &l); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, l)
}

// handleRecomputeCutoff serves POST /locations/{id}/recompute-cutoff.
func (s *Server) handleRecomputeCutoff(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	rest, ok := strings.CutSuffix(r.URL.Path, "/recompute-cutoff")
	if !ok {
		http.NotFound(w, r)
		return
	}
	r.URL.Path = rest
	id, ok := pathID(w, r, "/locations/")
	if !ok {
		return
	}
	n, err := s.pickings.RecomputeCutoffText(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"location_id": id, "updated": n})
}

func (s *Server) handlePickings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreatePicking(w, r)
	case http.MethodGet:
		s.handleListPickings(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handlePickingOne(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "/pickings/")
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		s.handleGetPicking(w, r, id)
	case http.MethodPut:
		s.handleUpdatePicking(w, r, id)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleCreatePicking(w http.ResponseWriter, r *http.Request) {
	var p models.Picking
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, "bad JSON", http.StatusBadRequest)
		return
	}
	if err := s.pickings.CreatePicking(r.Context(), &p); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// handleListPickings lists pickings by cursor, or filters active pickings
// when cutoff_diff is given.
func (s *Server) handleListPickings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := strconv.ParseInt(q.Get("limit"), 10, 64)
	if err != nil {
		limit = 10
	}

	if raw := q.Get("cutoff_diff"); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, "cutoff_diff must be an integer", http.StatusBadRequest)
			return
		}
		op := q.Get("cutoff_op")
		if op == "" {
			op = "="
		}
		pickings, err := s.pickings.FilterPickings(r.Context(), op, value, limit)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, pickings)
		return
	}

	cursor, _ := strconv.ParseInt(q.Get("cursor"), 10, 64)
	pickings, err := s.pickings.ListPickings(r.Context(), cursor, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pickings)
}

func (s *Server) handleGetPicking(w http.ResponseWriter, r *http.Request, id int64) {
	p, err := s.pickings.GetPicking(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleUpdatePicking(w http.ResponseWriter, r *http.Request, id int64) {
	var updated models.Picking
	if err := json.NewDecoder(r.Body).Decode(&updated); err != nil {
		http.Error(w, "bad JSON", http.StatusBadRequest)
		return
	}
	if updated.ID != 0 && updated.ID != id {
		http.Error(w, "ID mismatch", http.StatusBadRequest)
		return
	}
	updated.ID = id
	if err := s.pickings.UpdatePicking(r.Context(), &updated); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	value, err := strconv.Atoi(q.Get("value"))
	if err != nil {
		http.Error(w, "value must be an integer", http.StatusBadRequest)
		return
	}
	f, err := s.pickings.SearchByCutoffDiff(r.Context(), q.Get("op"), value)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func pathID(w http.ResponseWriter, r *http.Request, prefix string) (int64, bool) {
	raw := strings.TrimPrefix(r.URL.Path, prefix)
	if raw == "" {
		http.Error(w, "missing ID", http.StatusBadRequest)
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "bad ID", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, cutoff.ErrUnsupportedSearchOperator),
		errors.Is(err, cutoff.ErrUnsupportedSearchValue),
		errors.Is(err, service.ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, service.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, service.ErrWarehouseNotFound):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		log.Printf("Request failed: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(data)
}
