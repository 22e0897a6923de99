package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"gitlab.ozon.dev/qwestard/cutoff-delivery/internal/models"
)

// The outbox holds cutoff events until they are published to Kafka. Events
// are enqueued in the same transaction as the change they describe.

type OutboxStatus string

const (
	OutboxPending    OutboxStatus = "PENDING"
	OutboxPublishing OutboxStatus = "PUBLISHING"
	OutboxFailed     OutboxStatus = "FAILED"
	// OutboxDead entries ran out of attempts and are kept for inspection.
	OutboxDead OutboxStatus = "DEAD"
)

type OutboxEntry struct {
	ID            int64
	Event         models.CutoffEvent
	Status        OutboxStatus
	AttemptCount  int
	NextAttemptAt sql.NullTime
	CreatedAt     time.Time
}

type EventOutbox interface {
	Enqueue(ctx context.Context, e models.CutoffEvent) error
}

type OutboxStore interface {
	EventOutbox
	Claim(ctx context.Context, limit, maxAttempts int) ([]*OutboxEntry, error)
	Delete(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, attemptCount int, status OutboxStatus, nextAttemptAt time.Time) error
}

// claimTimeout releases entries left PUBLISHING by a relay that died.
const claimTimeout = time.Minute

type OutboxRepository struct {
	db *sql.DB
}

func NewOutboxRepository(db *sql.DB) *OutboxRepository {
	return &OutboxRepository{db: db}
}

func (r *OutboxRepository) Enqueue(ctx context.Context, e models.CutoffEvent) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", e.Kind, err)
	}
	query := `
		INSERT INTO cutoff_outbox (kind, event_key, payload, status)
		VALUES ($1, $2, $3, $4)
	`
	// jsonb takes text; pq would send []byte as bytea
	if _, err := conn(ctx, r.db).ExecContext(ctx, query, e.Kind, e.Key(), string(payload), OutboxPending); err != nil {
		return fmt.Errorf("enqueue %s event: %w", e.Kind, err)
	}
	return nil
}

// Claim marks up to limit due entries as PUBLISHING and returns them oldest
// first. Concurrent relays never claim the same entry.
func (r *OutboxRepository) Claim(ctx context.Context, limit, maxAttempts int) ([]*OutboxEntry, error) {
	query := `
		UPDATE cutoff_outbox SET status = $1, updated_at = NOW()
		WHERE id IN (
			SELECT id FROM cutoff_outbox
			WHERE attempt_count < $4
			  AND (
			    (status IN ($2, $3) AND (next_attempt_at IS NULL OR next_attempt_at <= NOW()))
			    OR (status = $1 AND updated_at < NOW() - make_interval(secs => $5))
			  )
			ORDER BY id
			LIMIT $6
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, payload, status, attempt_count, next_attempt_at, created_at
	`
	rows, err := conn(ctx, r.db).QueryContext(ctx, query,
		OutboxPublishing, OutboxPending, OutboxFailed, maxAttempts, claimTimeout.Seconds(), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("claim outbox: %w", err)
	}
	defer rows.Close()

	var entries []*OutboxEntry
	for rows.Next() {
		e := &OutboxEntry{}
		var payload []byte
		if err := rows.Scan(&e.ID, &payload, &e.Status, &e.AttemptCount, &e.NextAttemptAt, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox entry: %w", err)
		}
		if err := json.Unmarshal(payload, &e.Event); err != nil {
			return nil, fmt.Errorf("outbox entry %d: %w", e.ID, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries, nil
}

func (r *OutboxRepository) Delete(ctx context.Context, id int64) error {
	if _, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM cutoff_outbox WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete outbox entry %d: %w", id, err)
	}
	return nil
}

func (r *OutboxRepository) MarkFailed(ctx context.Context, id int64, attemptCount int, status OutboxStatus, nextAttemptAt time.Time) error {
	query := `
		UPDATE cutoff_outbox
		SET status = $1, attempt_count = $2, next_attempt_at = $3, updated_at = NOW()
		WHERE id = $4
	`
	if _, err := conn(ctx, r.db).ExecContext(ctx, query, status, attemptCount, nextAttemptAt, id); err != nil {
		return fmt.Errorf("mark outbox entry %d failed: %w", id, err)
	}
	return nil
}
