// Package rabbitmq publishes task events to a durable RabbitMQ queue.
package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/phrazzld/taskflow-api/internal/events"
	"github.com/phrazzld/taskflow-api/internal/platform/logger"
	amqp "github.com/rabbitmq/amqp091-go"
)

// channel is the subset of *amqp.Channel used by the Publisher.
type channel interface {
	PublishWithContext(
		ctx context.Context,
		exchange, key string,
		mandatory, immediate bool,
		msg amqp.Publishing,
	) error
	Close() error
}

// Publisher is an events.EventHandler that sends each event as a
// persistent JSON message to the configured queue.
type Publisher struct {
	conn    io.Closer
	channel channel
	queue   string
	mu      sync.Mutex
	logger  *slog.Logger
}

// Dial connects to url and declares queue as durable.
func Dial(url, queue string, l *slog.Logger) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open rabbitmq channel: %w", err)
	}

	q, err := ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare queue %q: %w", queue, err)
	}

	return newPublisher(conn, ch, q.Name, l), nil
}

func newPublisher(conn io.Closer, ch channel, queue string, l *slog.Logger) *Publisher {
	if l == nil {
		l = slog.Default()
	}
	return &Publisher{
		conn:    conn,
		channel: ch,
		queue:   queue,
		logger:  l.With(slog.String("component", "rabbitmq_publisher"), slog.String("queue", queue)),
	}
}

var _ events.EventHandler = (*Publisher)(nil)

// HandleEvent implements events.EventHandler.
func (p *Publisher) HandleEvent(ctx context.Context, event *events.TaskEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	p.mu.Lock()
	err = p.channel.PublishWithContext(
		ctx,
		"",      // exchange
		p.queue, // routing key
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    event.ID.String(),
			Type:         event.Type,
			Timestamp:    event.OccurredAt,
			Body:         body,
		},
	)
	p.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to publish event %s: %w", event.ID, err)
	}

	logger.FromContextOrDefault(ctx, p.logger).Debug("published task event",
		slog.String("event_id", event.ID.String()),
		slog.String("event_type", event.Type))
	return nil
}

// Close closes the channel and the connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	if p.channel != nil {
		firstErr = p.channel.Close()
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
