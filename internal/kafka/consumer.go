package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/IBM/sarama"

	"gitlab.ozon.dev/qwestard/cutoff-delivery/internal/models"
)

// CutoffEventHandler decodes cutoff events and hands them to Handle. A message
// is committed once Handle returns nil; undecodable messages are skipped.
type CutoffEventHandler struct {
	Handle func(ctx context.Context, e models.CutoffEvent) error
}

func (CutoffEventHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (CutoffEventHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h CutoffEventHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		var e models.CutoffEvent
		if err := json.Unmarshal(msg.Value, &e); err != nil {
			log.Printf("Skipping malformed cutoff event %s/%d@%d: %v", msg.Topic, msg.Partition, msg.Offset, err)
			session.MarkMessage(msg, "")
			continue
		}
		if err := h.Handle(session.Context(), e); err != nil {
			// leave the offset so the event is redelivered after a rebalance
			return fmt.Errorf("handle %s event %s: %w", e.Kind, string(msg.Key), err)
		}
		session.MarkMessage(msg, "")
	}
	return nil
}

func NewConsumerConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_1_0_0
	cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	cfg.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	return cfg
}

// StartSaramaConsumer consumes topics until ctx is cancelled.
func StartSaramaConsumer(ctx context.Context, cfg *sarama.Config, brokers []string, groupID string, topics []string, handler CutoffEventHandler) error {
	consumerGroup, err := sarama.NewConsumerGroup(brokers, groupID, cfg)
	if err != nil {
		return fmt.Errorf("create consumer group: %w", err)
	}
	defer func() {
		if err := consumerGroup.Close(); err != nil {
			log.Printf("Error closing consumer group: %v", err)
		}
	}()

	for {
		if err := consumerGroup.Consume(ctx, topics, handler); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			log.Printf("Error from consumer: %v", err)
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}
