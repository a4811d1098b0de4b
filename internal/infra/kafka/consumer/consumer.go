// Package consumer drains the enrichment topic and feeds each task to the photo handler.
package consumer

import (
	"context"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	wbfkafka "github.com/wb-go/wbf/kafka"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/retro-booth/internal/config"
)

// idlePause is how long the loop backs off after the broker stays unreachable.
const idlePause = 500 * time.Millisecond

type taskHandler interface {
	Handle(ctx context.Context, msg kafka.Message) error
}

// source is the subset of the wbf consumer the loop drives.
type source interface {
	Fetch(ctx context.Context) (kafka.Message, error)
	Commit(ctx context.Context, msg kafka.Message) error
	Close() error
}

// Consumer commits every enrichment task once the handler has seen it.
// Smart crop is best effort, so a task the handler rejects is not redelivered.
type Consumer struct {
	src      source
	handler  taskHandler
	topic    string
	strategy retry.Strategy
	pause    time.Duration
}

// New joins the consumer group of the enrichment topic.
func New(cfg *config.Kafka, s retry.Strategy, h taskHandler) *Consumer {
	return newConsumer(wbfkafka.NewConsumer(cfg.Brokers, cfg.Topic, cfg.GroupID), cfg.Topic, s, h)
}

func newConsumer(src source, topic string, s retry.Strategy, h taskHandler) *Consumer {
	return &Consumer{src: src, handler: h, topic: topic, strategy: s, pause: idlePause}
}

// Consume runs until ctx is cancelled, then closes the group connection.
func (c *Consumer) Consume(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	defer c.close()

	zlog.Logger.Info().Str("topic", c.topic).Msg("enrichment consumer started")

	for ctx.Err() == nil {
		if !c.next(ctx) {
			select {
			case <-ctx.Done():
			case <-time.After(c.pause):
			}
		}
	}

	zlog.Logger.Info().Str("topic", c.topic).Msg("enrichment consumer stopping")
}

// next fetches, handles and commits one task. It reports false when nothing could be fetched.
func (c *Consumer) next(ctx context.Context) bool {
	var msg kafka.Message
	err := retry.Do(func() error {
		var err error
		msg, err = c.src.Fetch(ctx)
		return err
	}, c.strategy)
	if err != nil {
		if ctx.Err() == nil {
			zlog.Logger.Err(err).Str("topic", c.topic).Msg("fetch enrichment task")
		}
		return false
	}

	photoID := string(msg.Key)
	if err := c.handler.Handle(ctx, msg); err != nil {
		zlog.Logger.Warn().Err(err).Str("photo_id", photoID).Msg("enrichment skipped")
	}

	if err := retry.Do(func() error { return c.src.Commit(ctx, msg) }, c.strategy); err != nil {
		zlog.Logger.Err(err).Str("photo_id", photoID).Int64("offset", msg.Offset).Msg("commit enrichment task")
		return true
	}

	zlog.Logger.Debug().Str("photo_id", photoID).Int64("offset", msg.Offset).Msg("enrichment task done")
	return true
}

func (c *Consumer) close() {
	if err := c.src.Close(); err != nil {
		zlog.Logger.Err(err).Msg("close enrichment consumer")
	}
}
