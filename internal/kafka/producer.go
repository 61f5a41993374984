// Package kafka publishes stats events for downstream consumers.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/IBM/sarama"

	"github.com/siege-stats/internal/config"
	"github.com/siege-stats/internal/domain"
)

// Producer publishes stats events to a Kafka topic. Delivery is
// asynchronous; failures are logged, never surfaced to the request
// path.
type Producer struct {
	producer sarama.AsyncProducer
	topic    string
	logger   *slog.Logger
	wg       sync.WaitGroup
}

// NewProducer creates a Kafka producer from the configuration
func NewProducer(cfg *config.KafkaConfig, logger *slog.Logger) (*Producer, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Version = sarama.V3_0_0_0
	saramaConfig.Producer.RequiredAcks = sarama.WaitForLocal
	saramaConfig.Producer.Compression = sarama.CompressionSnappy
	saramaConfig.Producer.Flush.Frequency = 100 * time.Millisecond
	saramaConfig.Producer.Return.Successes = false
	saramaConfig.Producer.Return.Errors = true

	asyncProducer, err := sarama.NewAsyncProducer(cfg.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("creating kafka producer: %w", err)
	}

	p := &Producer{
		producer: asyncProducer,
		topic:    cfg.Topic,
		logger:   logger,
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for err := range asyncProducer.Errors() {
			p.logger.Error("kafka delivery failed", "error", err)
		}
	}()

	return p, nil
}

// PublishStatsEvent enqueues a stats event keyed by the cache key so
// events for one player land on one partition in order.
func (p *Producer) PublishStatsEvent(ctx context.Context, event domain.StatsEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling stats event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(fmt.Sprintf("%s:%s", event.Platform, event.Username)),
		Value: sarama.ByteEncoder(data),
	}

	select {
	case p.producer.Input() <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close flushes pending messages and shuts the producer down
func (p *Producer) Close() error {
	err := p.producer.Close()
	p.wg.Wait()
	return err
}
