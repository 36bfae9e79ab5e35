package email

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Domenick1991/haven/internal/kafka"
	kafkaGo "github.com/segmentio/kafka-go"
)

// Sender writes notifications to the log. It stands in for a mail provider.
type Sender struct {
	logger *slog.Logger
}

func NewSender(logger *slog.Logger) *Sender {
	return &Sender{logger: logger}
}

func (s *Sender) Send(ctx context.Context, event kafka.BookingEvent) error {
	if event.Email == "" {
		return fmt.Errorf("booking %s: no recipient", event.Reference)
	}
	s.logger.InfoContext(ctx, "sending email",
		"to", event.Email,
		"subject", Subject(event),
		"reference", event.Reference,
		"status", event.Status,
	)
	return nil
}

// Handle consumes one notification message. Messages that cannot be decoded
// or sent are logged and skipped so one bad event does not stop the consumer.
func (s *Sender) Handle(ctx context.Context, msg kafkaGo.Message) error {
	event, err := kafka.DecodeBookingEvent(msg)
	if err != nil {
		s.logger.WarnContext(ctx, "skipping undecodable notification", "offset", msg.Offset, "error", err)
		return nil
	}
	if err := s.Send(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "skipping unsendable notification",
			"offset", msg.Offset,
			"type", event.Type,
			"reference", event.Reference,
			"error", err,
		)
	}
	return nil
}

func Subject(event kafka.BookingEvent) string {
	switch event.Type {
	case kafka.EventBookingCreated:
		return fmt.Sprintf("Complete your payment for booking %s", event.Reference)
	case kafka.EventBookingConfirmed:
		return fmt.Sprintf("Booking %s confirmed", event.Reference)
	case kafka.EventBookingCancelled:
		return fmt.Sprintf("Booking %s cancelled", event.Reference)
	case kafka.EventBookingExpired:
		return fmt.Sprintf("Booking %s expired before payment", event.Reference)
	default:
		return fmt.Sprintf("Update on booking %s", event.Reference)
	}
}
