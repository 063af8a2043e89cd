package amqp

import (
	"context"
	"errors"
	"testing"

	"github.com/communityhub/marketplace-backend/pkg/config"
	"github.com/communityhub/marketplace-backend/pkg/outbox"
	"github.com/streadway/amqp"
)

type fakeChannel struct {
	declared  []string
	published []published
	declErr   error
	pubErr    error
	closed    bool
}

type published struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

func (f *fakeChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	f.declared = append(f.declared, name+":"+kind)
	return f.declErr
}

func (f *fakeChannel) Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	if f.pubErr != nil {
		return f.pubErr
	}
	f.published = append(f.published, published{exchange: exchange, key: key, msg: msg})
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func TestPublisherRoutesByKey(t *testing.T) {
	ch := &fakeChannel{}
	p, err := newPublisher(ch, "marketplace.events")
	if err != nil {
		t.Fatalf("new publisher: %v", err)
	}
	if len(ch.declared) != 1 || ch.declared[0] != "marketplace.events:topic" {
		t.Fatalf("unexpected exchange declarations %v", ch.declared)
	}

	err = p.Publish(context.Background(), outbox.Message{
		RoutingKey: "payment.recorded",
		Data:       []byte(`{"version":1}`),
		Attributes: map[string]string{"event_id": "evt-1"},
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(ch.published) != 1 {
		t.Fatalf("expected one publish, got %d", len(ch.published))
	}
	got := ch.published[0]
	if got.exchange != "marketplace.events" || got.key != "payment.recorded" {
		t.Fatalf("unexpected routing %+v", got)
	}
	if got.msg.MessageId != "evt-1" || got.msg.DeliveryMode != amqp.Persistent {
		t.Fatalf("unexpected publishing %+v", got.msg)
	}
	if p.Name() != config.BrokerAMQP {
		t.Fatalf("unexpected broker name %q", p.Name())
	}
}

func TestPublisherErrors(t *testing.T) {
	ch := &fakeChannel{declErr: errors.New("denied")}
	if _, err := newPublisher(ch, "x"); err == nil || !ch.closed {
		t.Fatalf("expected declare failure to close channel, err=%v", err)
	}

	ch = &fakeChannel{pubErr: errors.New("blocked")}
	p, err := newPublisher(ch, "x")
	if err != nil {
		t.Fatalf("new publisher: %v", err)
	}
	if err := p.Publish(context.Background(), outbox.Message{RoutingKey: "k"}); err == nil {
		t.Fatal("expected publish error")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.Publish(ctx, outbox.Message{RoutingKey: "k"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error, got %v", err)
	}
}

func TestNewPublisherValidatesConfig(t *testing.T) {
	if _, err := NewPublisher(config.AMQPConfig{Exchange: "x"}, nil); err == nil {
		t.Fatal("expected url error")
	}
	if _, err := NewPublisher(config.AMQPConfig{URL: "amqp://localhost"}, nil); err == nil {
		t.Fatal("expected exchange error")
	}
}
