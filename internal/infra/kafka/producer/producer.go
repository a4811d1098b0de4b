// Package producer queues enrichment tasks on Kafka.
package producer

import (
	"context"
	"encoding/json"
	"fmt"

	wbfkafka "github.com/wb-go/wbf/kafka"
	"github.com/wb-go/wbf/retry"

	"github.com/aliskhannn/retro-booth/internal/config"
	"github.com/aliskhannn/retro-booth/internal/model"
)

// Producer publishes enrichment tasks to the topic the consumer group drains.
type Producer struct {
	client   *wbfkafka.Producer
	strategy retry.Strategy
}

// New opens a writer on the enrichment topic. Sends are retried with s.
func New(cfg *config.Kafka, s retry.Strategy) *Producer {
	return &Producer{
		client:   wbfkafka.NewProducer(cfg.Brokers, cfg.Topic),
		strategy: s,
	}
}

// Enqueue serializes the task to JSON and sends it to Kafka.
// The photo id is the message key, so tasks for one photo stay on one partition.
func (p *Producer) Enqueue(ctx context.Context, task model.EnrichTask) error {
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	if err = p.client.SendWithRetry(ctx, p.strategy, []byte(task.PhotoID), data); err != nil {
		return fmt.Errorf("failed to send task: %w", err)
	}

	return nil
}

// Close flushes and closes the underlying writer.
func (p *Producer) Close() error {
	return p.client.Close()
}
