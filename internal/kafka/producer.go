package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Domenick1991/haven/internal/domain"
	"github.com/segmentio/kafka-go"
)

const (
	EventBookingCreated   = "booking_created"
	EventBookingConfirmed = "booking_confirmed"
	EventBookingCancelled = "booking_cancelled"
	EventBookingExpired   = "booking_expired"
	EventPaymentFailed    = "payment_failed"
)

type BookingEvent struct {
	Type          string     `json:"type"`
	BookingID     string     `json:"booking_id"`
	Reference     string     `json:"reference"`
	Kind          string     `json:"kind"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	Status        string     `json:"status"`
	PaymentStatus string     `json:"payment_status"`
	TotalAmount   int64      `json:"total_amount"`
	Currency      string     `json:"currency"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	Reason        string     `json:"reason,omitempty"`
	OccurredAt    time.Time  `json:"occurred_at"`
}

func NewBookingEvent(eventType string, b *domain.Booking, at time.Time) BookingEvent {
	return BookingEvent{
		Type:          eventType,
		BookingID:     b.ID.String(),
		Reference:     b.Reference,
		Kind:          string(b.Kind),
		Name:          b.Contact.Name,
		Email:         b.Contact.Email,
		Status:        string(b.Status),
		PaymentStatus: string(b.PaymentStatus),
		TotalAmount:   int64(b.Price.TotalAmountDue),
		Currency:      b.Price.Currency,
		ExpiresAt:     b.ExpiresAt,
		OccurredAt:    at,
	}
}

type Producer struct {
	brokers []string
	writer  *kafka.Writer
	logger  *slog.Logger
}

func NewProducer(brokers []string, logger *slog.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}

	return &Producer{
		brokers: brokers,
		writer:  writer,
		logger:  logger,
	}
}

// Publish keys messages by booking so events for one booking stay ordered.
func (p *Producer) Publish(ctx context.Context, topic, key string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	message := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: data,
		Time:  time.Now(),
	}

	if err := p.writer.WriteMessages(ctx, message); err != nil {
		return fmt.Errorf("failed to write message to Kafka: %w", err)
	}

	p.logger.Debug("published event", "topic", topic, "key", key)
	return nil
}

func (p *Producer) PublishWithRetry(ctx context.Context, topic, key string, payload interface{}, maxRetries int) error {
	var lastErr error

	for i := 0; i < maxRetries; i++ {
		err := p.Publish(ctx, topic, key, payload)
		if err == nil {
			return nil
		}

		lastErr = err
		p.logger.Warn("publish attempt failed", "topic", topic, "attempt", i+1, "error", err)

		if i < maxRetries-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(i+1) * 500 * time.Millisecond):
			}
		}
	}

	return fmt.Errorf("failed after %d retries: %w", maxRetries, lastErr)
}

func (p *Producer) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}

func (p *Producer) CheckConnection(ctx context.Context) error {
	if len(p.brokers) == 0 {
		return fmt.Errorf("no kafka brokers configured")
	}
	conn, err := kafka.DialContext(ctx, "tcp", p.brokers[0])
	if err != nil {
		return fmt.Errorf("failed to connect to Kafka: %w", err)
	}
	defer conn.Close()

	if _, err := conn.Brokers(); err != nil {
		return fmt.Errorf("failed to read brokers: %w", err)
	}
	return nil
}

// EventPublisher fans booking lifecycle events out to the events topic and,
// for the ones a guest should hear about, the notifications topic.
type EventPublisher struct {
	producer           *Producer
	eventsTopic        string
	notificationsTopic string
}

func NewEventPublisher(producer *Producer, eventsTopic, notificationsTopic string) *EventPublisher {
	return &EventPublisher{producer: producer, eventsTopic: eventsTopic, notificationsTopic: notificationsTopic}
}

func (p *EventPublisher) PublishBookingEvent(ctx context.Context, event BookingEvent) error {
	if err := p.producer.PublishWithRetry(ctx, p.eventsTopic, event.BookingID, event, 3); err != nil {
		return err
	}
	if !notifiable(event.Type) || p.notificationsTopic == "" {
		return nil
	}
	return p.producer.PublishWithRetry(ctx, p.notificationsTopic, event.BookingID, event, 3)
}

func notifiable(eventType string) bool {
	switch eventType {
	case EventBookingCreated, EventBookingConfirmed, EventBookingCancelled, EventBookingExpired:
		return true
	default:
		return false
	}
}
