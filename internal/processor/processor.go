package taskprocessor

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"gitlab.ozon.dev/qwestard/cutoff-delivery/internal/repository"
)

type Publisher interface {
	Publish(topic, key string, message []byte) error
}

// OutboxRelay publishes cutoff events from the outbox to Kafka, keyed by the
// picking or warehouse they concern.
type OutboxRelay struct {
	outbox       repository.OutboxStore
	producer     Publisher
	topic        string
	pollInterval time.Duration
	limit        int
	maxAttempts  int
	backoff      time.Duration
	now          func() time.Time
}

func NewOutboxRelay(outbox repository.OutboxStore, producer Publisher, topic string, pollInterval time.Duration, limit int) *OutboxRelay {
	return &OutboxRelay{
		outbox:       outbox,
		producer:     producer,
		topic:        topic,
		pollInterval: pollInterval,
		limit:        limit,
		maxAttempts:  5,
		backoff:      2 * time.Second,
		now:          time.Now,
	}
}

func (r *OutboxRelay) Start(ctx context.Context) {
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.relay(ctx)
		}
	}
}

// relay publishes one claimed batch. It returns the number of events sent.
func (r *OutboxRelay) relay(ctx context.Context) int {
	entries, err := r.outbox.Claim(ctx, r.limit, r.maxAttempts)
	if err != nil {
		log.Printf("Error claiming cutoff events: %v", err)
		return 0
	}
	sent := 0
	// later events of a key that failed wait with it, so they cannot overtake it
	blocked := make(map[string]time.Time)
	for _, entry := range entries {
		key := entry.Event.Key()
		if next, ok := blocked[key]; ok {
			r.hold(ctx, entry, next)
			continue
		}
		payload, err := json.Marshal(entry.Event)
		if err == nil {
			err = r.producer.Publish(r.topic, key, payload)
		}
		if err != nil {
			blocked[key] = r.fail(ctx, entry, err)
			continue
		}
		sent++
		if err := r.outbox.Delete(ctx, entry.ID); err != nil {
			log.Printf("Error deleting cutoff event %d after publish: %v", entry.ID, err)
		}
	}
	return sent
}

// fail schedules entry for another attempt with a linear back-off and
// returns when that attempt is due.
func (r *OutboxRelay) fail(ctx context.Context, entry *repository.OutboxEntry, err error) time.Time {
	attempt := entry.AttemptCount + 1
	status := repository.OutboxFailed
	if attempt >= r.maxAttempts {
		status = repository.OutboxDead
	}
	next := r.now().Add(time.Duration(attempt) * r.backoff)
	if errUpd := r.outbox.MarkFailed(ctx, entry.ID, attempt, status, next); errUpd != nil {
		log.Printf("Error rescheduling cutoff event %d: %v", entry.ID, errUpd)
	}
	if status == repository.OutboxDead {
		log.Printf("Cutoff event %d (%s %s) dropped after %d attempts: %v", entry.ID, entry.Event.Kind, entry.Event.Key(), attempt, err)
	} else {
		log.Printf("Failed to publish cutoff event %d, attempt %d: %v", entry.ID, attempt, err)
	}
	return next
}

// hold puts entry back without spending an attempt.
func (r *OutboxRelay) hold(ctx context.Context, entry *repository.OutboxEntry, next time.Time) {
	if err := r.outbox.MarkFailed(ctx, entry.ID, entry.AttemptCount, repository.OutboxFailed, next); err != nil {
		log.Printf("Error rescheduling cutoff event %d: %v", entry.ID, err)
	}
}
