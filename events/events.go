// SPDX-License-Identifier: GPL-3.0-only

package events

import (
	"encoding/json"
	"sync"
	"time"

	"newsdesk-server/commons"

	amqp "github.com/rabbitmq/amqp091-go"
)

const Exchange = "newsdesk.events"

// Routing keys for lifecycle events consumed by downstream workers.
const (
	SubscriptionCreated   = "subscription.created"
	SubscriptionCancelled = "subscription.cancelled"
	SubscriptionExpired   = "subscription.expired"
	PostPinned            = "post.pinned"
	PostUnpinned          = "post.unpinned"
	PaymentSucceeded      = "payment.succeeded"
	PaymentFailed         = "payment.failed"
)

type Event struct {
	Key       string         `json:"key"`
	Timestamp time.Time      `json:"timestamp"`
	Payload   map[string]any `json:"payload,omitempty"`
}

type Publisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	mu      sync.Mutex
}

var (
	defaultPublisher *Publisher
	initOnce         sync.Once
)

// Default returns the process-wide publisher, or nil when AMQP_URL is
// not configured. Publishing is best-effort: a missing broker never
// fails the operation that emitted the event.
func Default() *Publisher {
	initOnce.Do(func() {
		url := commons.GetEnv("AMQP_URL")
		if url == "" {
			commons.Logger.Debug("AMQP_URL not set, lifecycle events will not be published")
			return
		}
		p, err := NewPublisher(url)
		if err != nil {
			commons.Logger.Errorf("Failed to connect event publisher: %v", err)
			return
		}
		defaultPublisher = p
	})
	return defaultPublisher
}

func NewPublisher(url string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if err := ch.ExchangeDeclare(Exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	commons.Logger.Infof("Event publisher connected, exchange: %s", Exchange)
	return &Publisher{conn: conn, channel: ch}, nil
}

func (p *Publisher) Publish(key string, payload map[string]any) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	body, err := json.Marshal(Event{Key: key, Timestamp: time.Now().UTC(), Payload: payload})
	if err != nil {
		return err
	}
	return p.channel.Publish(Exchange, key, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
}

func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}

// Publish emits an event through the default publisher. Failures are
// logged and swallowed so callers never couple state changes to broker
// availability.
func Publish(key string, payload map[string]any) {
	p := Default()
	if p == nil {
		return
	}
	if err := p.Publish(key, payload); err != nil {
		commons.Logger.Errorf("Failed to publish event %s: %v", key, err)
	}
}
