// Package events publishes ledger change notifications to a RabbitMQ topic
// exchange.
package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/mmynk/hearth/internal/ledger"
)

const (
	publishTimeout = 5 * time.Second
	queueSize      = 256
)

// Channel is the subset of *amqp091.Channel the publisher uses.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

// Publisher implements ledger.Notifier. Notify never blocks the caller:
// messages are queued and published by a background goroutine, and dropped
// with a warning when the queue is full.
type Publisher struct {
	conn     *amqp091.Connection
	channel  Channel
	exchange string
	logger   *slog.Logger

	queue     chan *ChangeMessage
	done      chan struct{}
	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

// Dial connects to url and declares exchange as a durable topic exchange.
func Dial(url, exchange string, logger *slog.Logger) (*Publisher, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	p := NewPublisher(channel, exchange, logger)
	p.conn = conn
	return p, nil
}

// NewPublisher starts a publisher on an open channel.
func NewPublisher(ch Channel, exchange string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Publisher{
		channel:  ch,
		exchange: exchange,
		logger:   logger,
		queue:    make(chan *ChangeMessage, queueSize),
		done:     make(chan struct{}),
	}
	go p.run()
	return p
}

// Notify implements ledger.Notifier.
func (p *Publisher) Notify(_ context.Context, c ledger.Change) {
	msg := NewChangeMessage(c)

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return
	}
	select {
	case p.queue <- msg:
	default:
		p.logger.Warn("Change queue full, dropping event",
			"household_id", msg.HouseholdID,
			"collection", msg.Collection,
			"document_id", msg.DocumentID)
	}
}

func (p *Publisher) run() {
	defer close(p.done)
	for msg := range p.queue {
		if err := p.Publish(context.Background(), msg); err != nil {
			p.logger.Error("Failed to publish change",
				"error", err,
				"household_id", msg.HouseholdID,
				"collection", msg.Collection,
				"document_id", msg.DocumentID)
		}
	}
}

// Publish sends one message synchronously.
func (p *Publisher) Publish(ctx context.Context, msg *ChangeMessage) error {
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = p.channel.PublishWithContext(
		ctx,
		p.exchange,       // exchange
		msg.RoutingKey(), // routing key
		false,            // mandatory
		false,            // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    msg.Timestamp,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	p.logger.Debug("Published change",
		"routing_key", msg.RoutingKey(),
		"exchange", p.exchange)
	return nil
}

// Close flushes queued messages and closes the channel and connection.
func (p *Publisher) Close() error {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.queue)
		p.mu.Unlock()
	})
	<-p.done

	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
