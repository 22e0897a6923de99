package kafka

import (
	"fmt"
	"log"
	"time"

	"github.com/IBM/sarama"
)

// SaramaProducer publishes cutoff events. Messages with the same key land on
// the same partition, so a consumer sees one picking's changes in order.
type SaramaProducer struct {
	producer sarama.SyncProducer
}

func NewProducerConfig() *sarama.Config {
	config := sarama.NewConfig()
	config.Version = sarama.V2_1_0_0
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Partitioner = sarama.NewHashPartitioner
	// retries must not reorder a key
	config.Producer.Idempotent = true
	config.Net.MaxOpenRequests = 1
	config.Producer.Retry.Max = 3
	config.Producer.Timeout = 5 * time.Second
	return config
}

func NewSaramaProducer(brokers []string) (*SaramaProducer, error) {
	prod, err := sarama.NewSyncProducer(brokers, NewProducerConfig())
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return &SaramaProducer{producer: prod}, nil
}

func newProducer(p sarama.SyncProducer) *SaramaProducer {
	return &SaramaProducer{producer: p}
}

func (p *SaramaProducer) Publish(topic, key string, message []byte) error {
	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(message),
		Headers: []sarama.RecordHeader{
			{Key: []byte("content-type"), Value: []byte("application/json")},
		},
	}
	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("send %s to %s: %w", key, topic, err)
	}
	log.Printf("Cutoff event %s stored in %s/%d@%d", key, topic, partition, offset)
	return nil
}

func (p *SaramaProducer) Close() error {
	return p.producer.Close()
}
