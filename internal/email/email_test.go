package email

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/Domenick1991/haven/internal/kafka"
	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
)

func TestSend(t *testing.T) {
	s := NewSender(slog.New(slog.NewTextHandler(io.Discard, nil)))

	assert.NoError(t, s.Send(context.Background(), kafka.BookingEvent{Type: kafka.EventBookingConfirmed, Email: "a@b.com", Reference: "BK-1"}))
	assert.Error(t, s.Send(context.Background(), kafka.BookingEvent{Type: kafka.EventBookingConfirmed, Reference: "BK-1"}))
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "Booking BK-1 confirmed", Subject(kafka.BookingEvent{Type: kafka.EventBookingConfirmed, Reference: "BK-1"}))
	assert.Equal(t, "Booking BK-1 expired before payment", Subject(kafka.BookingEvent{Type: kafka.EventBookingExpired, Reference: "BK-1"}))
	assert.Equal(t, "Update on booking BK-1", Subject(kafka.BookingEvent{Type: "other", Reference: "BK-1"}))
}

func TestHandle(t *testing.T) {
	var buf bytes.Buffer
	s := NewSender(slog.New(slog.NewTextHandler(&buf, nil)))

	testCases := []struct {
		name   string
		value  string
		logged string
	}{
		{name: "sent", value: `{"type":"booking.confirmed","reference":"BK-1","email":"a@b.com"}`, logged: "sending email"},
		{name: "no recipient", value: `{"type":"booking.created","reference":"BK-2","email":""}`, logged: "skipping unsendable notification"},
		{name: "garbage", value: `{"type":`, logged: "skipping undecodable notification"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			buf.Reset()

			err := s.Handle(context.Background(), kafkaGo.Message{Value: []byte(tc.value), Offset: 7})

			assert.NoError(t, err)
			assert.Contains(t, buf.String(), tc.logged)
		})
	}
}
