// Package queue consumes extraction jobs from RabbitMQ.
package queue

import (
	"context"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Handler processes one raw message body. A non-nil error requeues the
// delivery once; redelivered messages are acked regardless to avoid
// poison-message loops.
type Handler func(ctx context.Context, body []byte) error

type Config struct {
	URL       string
	QueueName string
	Prefetch  int
}

// Consumer owns the AMQP connection and a single consuming channel.
type Consumer struct {
	cfg  Config
	conn *amqp.Connection
	ch   *amqp.Channel
	log  *slog.Logger
}

// Dial connects, opens a channel, and declares the durable job queue.
func Dial(cfg Config, logger *slog.Logger) (*Consumer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = 1
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(cfg.QueueName, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue %q: %w", cfg.QueueName, err)
	}
	if err := ch.Qos(cfg.Prefetch, 0, false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("set prefetch: %w", err)
	}

	logger.Info("queue.connected", "queue", cfg.QueueName, "prefetch", cfg.Prefetch)
	return &Consumer{cfg: cfg, conn: conn, ch: ch, log: logger}, nil
}

// Consume blocks delivering messages to handle until ctx is cancelled or the
// broker drops the connection. OCR jobs run long, so deliveries are handled
// one at a time under the channel prefetch rather than fanned out.
func (c *Consumer) Consume(ctx context.Context, handle Handler) error {
	deliveries, err := c.ch.Consume(c.cfg.QueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("register consumer: %w", err)
	}
	c.log.Info("queue.consuming", "queue", c.cfg.QueueName)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel closed for queue %q", c.cfg.QueueName)
			}
			c.dispatch(ctx, d, handle)
		}
	}
}

func (c *Consumer) dispatch(ctx context.Context, d amqp.Delivery, handle Handler) {
	if err := handle(ctx, d.Body); err != nil {
		if d.Redelivered {
			c.log.Error("queue.message.dropped", "error", err)
			_ = d.Ack(false)
			return
		}
		c.log.Warn("queue.message.requeued", "error", err)
		_ = d.Nack(false, true)
		return
	}
	if err := d.Ack(false); err != nil {
		c.log.Error("queue.ack_failed", "error", err)
	}
}

func (c *Consumer) Close() error {
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil && !c.conn.IsClosed() {
		return c.conn.Close()
	}
	return nil
}
