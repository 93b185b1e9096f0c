package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/booking-service/internal/logger"
	"github.com/iliyamo/booking-service/internal/model"
)

// Publisher publishes booking events to a durable topic exchange.  The
// connection is opened lazily and re-dialled after the broker drops it,
// so a broker outage only fails the publishes made during the outage.
type Publisher struct {
	url      string
	exchange string
	log      logger.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewPublisher returns a publisher for exchange on the broker at url.  It
// does not dial until the first publish.
func NewPublisher(url, exchange string, log logger.Logger) *Publisher {
	return &Publisher{url: url, exchange: exchange, log: log}
}

// NotifyCreated publishes ev under booking.created.
func (p *Publisher) NotifyCreated(ctx context.Context, ev model.BookingEvent) error {
	return p.PublishJSON(ctx, RoutingBookingCreated, ev)
}

// NotifyCancelled publishes ev under booking.cancelled.
func (p *Publisher) NotifyCancelled(ctx context.Context, ev model.BookingEvent) error {
	return p.PublishJSON(ctx, RoutingBookingCancelled, ev)
}

// PublishJSON marshals v and publishes it as a persistent message.
func (p *Publisher) PublishJSON(ctx context.Context, key string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if err != nil {
		p.log.Error("rabbitmq connect failed", "error", err)
		return err
	}
	err = ch.PublishWithContext(ctx, p.exchange, key, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		p.log.Error("rabbitmq publish failed", "routingKey", key, "error", err)
		p.reset()
		return fmt.Errorf("publish %s: %w", key, err)
	}
	return nil
}

// channel returns an open channel, dialling when needed.  Callers hold mu.
func (p *Publisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() && p.conn != nil && !p.conn.IsClosed() {
		return p.ch, nil
	}
	p.reset()

	conn, err := amqp.Dial(p.url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(p.exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	p.conn, p.ch = conn, ch
	return ch, nil
}

func (p *Publisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

// Close releases the broker connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
	return nil
}
