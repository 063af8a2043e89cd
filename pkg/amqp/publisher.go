// Package amqp publishes outbox messages to a RabbitMQ topic exchange.
package amqp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/communityhub/marketplace-backend/pkg/config"
	"github.com/communityhub/marketplace-backend/pkg/logger"
	"github.com/communityhub/marketplace-backend/pkg/outbox"
	"github.com/streadway/amqp"
)

// channel is the subset of *amqp.Channel the publisher needs.
type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type Publisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	channel  channel
	exchange string
}

// NewPublisher dials the broker and declares a durable topic exchange.
func NewPublisher(cfg config.AMQPConfig, logg *logger.Logger) (*Publisher, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("amqp url is required")
	}
	if strings.TrimSpace(cfg.Exchange) == "" {
		return nil, errors.New("amqp exchange is required")
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

	p, err := newPublisher(ch, cfg.Exchange)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	p.conn = conn

	if logg != nil {
		logg.Info(logg.WithField(context.Background(), "exchange", cfg.Exchange), "amqp publisher initialized")
	}
	return p, nil
}

func newPublisher(ch channel, exchange string) (*Publisher, error) {
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &Publisher{channel: ch, exchange: exchange}, nil
}

// Name identifies the broker in logs and metrics.
func (p *Publisher) Name() string {
	return config.BrokerAMQP
}

// Publish routes msg to the exchange using its routing key. Messages are
// persistent so they survive a broker restart.
func (p *Publisher) Publish(ctx context.Context, msg outbox.Message) error {
	if p == nil || p.channel == nil {
		return errors.New("amqp publisher not initialized")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	headers := amqp.Table{}
	for k, v := range msg.Attributes {
		headers[k] = v
	}
	publishing := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		MessageId:    msg.Attributes["event_id"],
		Type:         msg.RoutingKey,
		Headers:      headers,
		Body:         msg.Data,
	}

	// amqp channels are not safe for concurrent publishes
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.channel.Publish(p.exchange, msg.RoutingKey, false, false, publishing); err != nil {
		return fmt.Errorf("publish %s: %w", msg.RoutingKey, err)
	}
	return nil
}

// Ping reports whether the underlying connection is still open.
func (p *Publisher) Ping(context.Context) error {
	if p == nil || p.channel == nil {
		return errors.New("amqp publisher not initialized")
	}
	if p.conn != nil && p.conn.IsClosed() {
		return errors.New("amqp connection closed")
	}
	return nil
}

// Close releases the channel and connection.
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	var err error
	if p.channel != nil {
		err = p.channel.Close()
	}
	if p.conn != nil {
		if cerr := p.conn.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
