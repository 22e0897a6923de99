package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"gitlab.ozon.dev/qwestard/cutoff-delivery/internal/cutoff"
	"gitlab.ozon.dev/qwestard/cutoff-delivery/internal/models"
)

const pickingColumns = `id, name, location_id, scheduled_date, state, cutoff_time_hms`

type PickingRepository struct {
	db *sql.DB
}

func NewPickingRepository(db *sql.DB) *PickingRepository {
	return &PickingRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPicking(row rowScanner) (*models.Picking, error) {
	p := &models.Picking{}
	var hms sql.NullString
	if err := row.Scan(&p.ID, &p.Name, &p.LocationID, &p.ScheduledDate, &p.State, &hms); err != nil {
		return nil, err
	}
	// TIMESTAMP columns hold UTC wall clock
	p.ScheduledDate = p.ScheduledDate.UTC()
	p.CutoffTimeHMS = hms.String
	return p, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (r *PickingRepository) Create(ctx context.Context, p *models.Picking) error {
	query := `INSERT INTO pickings (name, location_id, scheduled_date, state, cutoff_time_hms)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`
	err := conn(ctx, r.db).QueryRowContext(ctx, query,
		p.Name, p.LocationID, p.ScheduledDate.UTC(), p.State, nullString(p.CutoffTimeHMS),
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("create picking: %w", err)
	}
	return nil
}

func (r *PickingRepository) GetByID(ctx context.Context, id int64) (*models.Picking, error) {
	query := `SELECT ` + pickingColumns + ` FROM pickings WHERE id = $1`
	p, err := scanPicking(conn(ctx, r.db).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get picking by id: %w", err)
	}
	return p, nil
}

func (r *PickingRepository) Update(ctx context.Context, p *models.Picking) error {
	query := `UPDATE pickings SET
			name = $1, location_id = $2, scheduled_date = $3, state = $4, cutoff_time_hms = $5
		WHERE id = $6`
	res, err := conn(ctx, r.db).ExecContext(ctx, query,
		p.Name, p.LocationID, p.ScheduledDate.UTC(), p.State, nullString(p.CutoffTimeHMS),
		p.ID,
	)
	if err != nil {
		return fmt.Errorf("update picking: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("picking %d not found", p.ID)
	}
	return nil
}

func (r *PickingRepository) List(ctx context.Context, cursor, limit int64) ([]*models.Picking, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	var filters []string
	var args []any
	idx := 1

	query := `SELECT ` + pickingColumns + ` FROM pickings`
	if cursor > 0 {
		filters = append(filters, fmt.Sprintf("id > $%d", idx))
		args = append(args, cursor)
		idx++
	}
	if len(filters) > 0 {
		query += " WHERE " + strings.Join(filters, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY id ASC LIMIT $%d", idx)
	args = append(args, limit)

	return r.query(ctx, query, args...)
}

// ListByFilter applies a translated cutoff filter. activeOnly drops done and
// cancelled pickings, which "not in" would otherwise always match.
func (r *PickingRepository) ListByFilter(ctx context.Context, f cutoff.Filter, activeOnly bool, limit int64) ([]*models.Picking, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	var filters []string
	switch f.Operator {
	case cutoff.OperatorIn:
		filters = append(filters, "id = ANY($1)")
	case cutoff.OperatorNotIn:
		filters = append(filters, "NOT (id = ANY($1))")
	default:
		return nil, fmt.Errorf("list pickings: unknown filter operator %q", f.Operator)
	}
	if activeOnly {
		filters = append(filters, "state NOT IN ('cancel', 'done')")
	}
	query := `SELECT ` + pickingColumns + ` FROM pickings WHERE ` +
		strings.Join(filters, " AND ") + ` ORDER BY id ASC LIMIT $2`

	return r.query(ctx, query, pq.Array(f.IDs), limit)
}

// SearchIDs runs a native cutoff query and collects the picking ids.
func (r *PickingRepository) SearchIDs(ctx context.Context, q cutoff.Query) ([]int64, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, q.SQL, q.Args...)
	if err != nil {
		return nil, fmt.Errorf("search pickings by cutoff: %w", err)
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan picking id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SetCutoffTimeHMS stores hms on every picking at the given locations.
func (r *PickingRepository) SetCutoffTimeHMS(ctx context.Context, locationIDs []int64, hms string) (int64, error) {
	if len(locationIDs) == 0 {
		return 0, nil
	}
	query := `UPDATE pickings SET cutoff_time_hms = $1 WHERE location_id = ANY($2)`
	res, err := conn(ctx, r.db).ExecContext(ctx, query, nullString(hms), pq.Array(locationIDs))
	if err != nil {
		return 0, fmt.Errorf("set cutoff time: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (r *PickingRepository) query(ctx context.Context, query string, args ...any) ([]*models.Picking, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list pickings: %w", err)
	}
	defer rows.Close()

	var res []*models.Picking
	for rows.Next() {
		p, err := scanPicking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan picking: %w", err)
		}
		res = append(res, p)
	}
	return res, rows.Err()
}
