package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/streadway/amqp"

	"renthub/internal/models"
)

// DefaultAMQPQueue is used when no queue name is configured.
const DefaultAMQPQueue = "renthub_audit_events"

// AMQPSink publishes events as JSON to a durable RabbitMQ queue for downstream consumers.
type AMQPSink struct {
	conn    *amqp.Connection
	mu      sync.Mutex // amqp.Channel is not safe for concurrent publishing
	channel *amqp.Channel
	queue   string
}

// NewAMQPSink dials the broker and declares the queue.
func NewAMQPSink(url, queue string) (*AMQPSink, error) {
	if queue == "" {
		queue = DefaultAMQPQueue
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}
	slog.Info("audit events will be published to RabbitMQ", "queue", queue)
	return &AMQPSink{conn: conn, channel: ch, queue: queue}, nil
}

func (s *AMQPSink) Record(_ context.Context, ev *models.EventLog) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal audit event: %w", err)
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    ev.CreatedAt,
		Type:         string(ev.EventType),
		Body:         body,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.channel.Publish("", s.queue, false, false, msg); err != nil {
		return fmt.Errorf("failed to publish audit event: %w", err)
	}
	return nil
}

// Close releases the channel and connection.
func (s *AMQPSink) Close() error {
	if err := s.channel.Close(); err != nil {
		s.conn.Close()
		return err
	}
	return s.conn.Close()
}
