package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/booking-service/internal/logger"
	"github.com/iliyamo/booking-service/internal/model"
)

// ConsumerConfig names the broker objects the notifier binds to.
type ConsumerConfig struct {
	URL      string
	Exchange string
	Queue    string
	Prefetch int
}

// Consumer turns booking events into mail.
type Consumer struct {
	cfg    ConsumerConfig
	mailer Mailer
	log    logger.Logger
}

// NewConsumer returns a consumer delivering through mailer.
func NewConsumer(cfg ConsumerConfig, mailer Mailer, log logger.Logger) *Consumer {
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = 50
	}
	return &Consumer{cfg: cfg, mailer: mailer, log: log}
}

// Run connects to the broker and consumes until ctx is cancelled.  Lost
// connections are re-dialled with exponential backoff capped at 30s.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return nil
		}
		conn, err := amqp.Dial(c.cfg.URL)
		if err != nil {
			c.log.Warn("notification consumer: dial failed", "error", err, "retryIn", backoff.String())
			if !sleep(ctx, backoff) {
				return nil
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return nil
		}
		c.log.Warn("notification consumer: consume loop ended, reconnecting", "error", err)
		if !sleep(ctx, 2*time.Second) {
			return nil
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(c.cfg.Prefetch, 0, false); err != nil {
		c.log.Warn("notification consumer: set QoS failed", "error", err)
	}
	if err := ch.ExchangeDeclare(c.cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	q, err := ch.QueueDeclare(c.cfg.Queue, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	for _, key := range []string{RoutingBookingCreated, RoutingBookingCancelled} {
		if err := ch.QueueBind(q.Name, key, c.cfg.Exchange, false, nil); err != nil {
			return fmt.Errorf("bind %s: %w", key, err)
		}
	}

	msgs, err := ch.ConsumeWithContext(ctx, q.Name, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}
	c.log.Info("notification consumer started", "queue", q.Name, "exchange", c.cfg.Exchange)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.Handle(ctx, d.RoutingKey, d.Body); err != nil {
				c.log.Error("notification consumer: handle message failed", "routingKey", d.RoutingKey, "error", err)
				// reject without requeue to avoid tight loops
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// Handle renders and sends the mail for one delivery.  Unknown routing
// keys are acknowledged and skipped.
func (c *Consumer) Handle(ctx context.Context, routingKey string, body []byte) error {
	var render func(model.BookingEvent) Mail
	switch routingKey {
	case RoutingBookingCreated:
		render = RenderCreated
	case RoutingBookingCancelled:
		render = RenderCancelled
	default:
		c.log.Warn("notification consumer: skip unknown routing key", "routingKey", routingKey)
		return nil
	}

	var ev model.BookingEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if err := c.mailer.Send(ctx, render(ev)); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	c.log.Info("notification sent", "routingKey", routingKey, "bookingID", ev.BookingID, "to", ev.Email)
	return nil
}
