package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Domenick1991/haven/internal/domain"
	"github.com/Domenick1991/haven/internal/gateway"
	"github.com/Domenick1991/haven/internal/kafka"
	"github.com/Domenick1991/haven/internal/repository"
	"github.com/google/uuid"
)

// CodeCancelled is the failure code the checkout widget reports when the
// user closes it.
const CodeCancelled = "PAYMENT_CANCELLED"

// CodeCapturedAfterRelease marks a capture that arrived after its booking
// was expired or cancelled.
const CodeCapturedAfterRelease = "CAPTURED_AFTER_RELEASE"

const (
	ActionSignatureMismatch   = "payment_signature_mismatch"
	ActionAmountMismatch      = "payment_amount_mismatch"
	ActionCaptureAfterRelease = "payment_captured_after_release"

	maxFailureMessage = 500
)

type PaymentUseCase interface {
	Initiate(ctx context.Context, input InitiateInput) (*Checkout, error)
	OnGatewaySuccess(ctx context.Context, input VerifyInput) (*Confirmation, error)
	OnGatewayFailure(ctx context.Context, input FailureInput) (*domain.PaymentFailure, error)
}

type Gateway interface {
	CreateOrder(ctx context.Context, amount domain.Money, currency, receipt string, notes map[string]string) (*gateway.Order, error)
	FetchPayment(ctx context.Context, paymentID string) (*gateway.Payment, error)
	VerifySignature(orderID, paymentID, signature string) bool
}

type DiscountConsumer interface {
	Use(ctx context.Context, code string) error
}

type SecurityRecorder interface {
	RecordSecurityEvent(ctx context.Context, identifier, action, detail string)
}

type EventPublisher interface {
	PublishBookingEvent(ctx context.Context, event kafka.BookingEvent) error
}

// InitiateInput.Amount is what the client believes it owes, in minor units.
// It must match the booking total exactly; zero skips the check.
type InitiateInput struct {
	BookingID string       `json:"booking_id" binding:"required,uuid"`
	Amount    domain.Money `json:"amount"`
	Currency  string       `json:"currency"`
}

// Checkout is everything the client needs to open the gateway widget.
type Checkout struct {
	OrderID   string              `json:"order_id"`
	KeyID     string              `json:"key_id"`
	Amount    domain.Money        `json:"amount"`
	Currency  string              `json:"currency"`
	Reference string              `json:"booking_reference"`
	Prefill   domain.GuestContact `json:"prefill"`
}

type VerifyInput struct {
	OrderID   string `json:"razorpay_order_id" binding:"required"`
	PaymentID string `json:"razorpay_payment_id" binding:"required"`
	Signature string `json:"razorpay_signature" binding:"required"`
}

type Confirmation struct {
	Booking  *domain.Booking
	Replayed bool
}

type FailureInput struct {
	OrderID string `json:"order_id" binding:"required"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type PaymentService struct {
	bookings  repository.BookingRepository
	payments  repository.PaymentRepository
	gateway   Gateway
	keyID     string
	discounts DiscountConsumer
	security  SecurityRecorder
	events    EventPublisher
	logger    *slog.Logger
	now       func() time.Time
}

type PaymentServiceOption func(*PaymentService)

func WithDiscounts(d DiscountConsumer) PaymentServiceOption {
	return func(s *PaymentService) {
		s.discounts = d
	}
}

func WithSecurityRecorder(r SecurityRecorder) PaymentServiceOption {
	return func(s *PaymentService) {
		s.security = r
	}
}

func WithEventPublisher(p EventPublisher) PaymentServiceOption {
	return func(s *PaymentService) {
		s.events = p
	}
}

func WithLogger(logger *slog.Logger) PaymentServiceOption {
	return func(s *PaymentService) {
		s.logger = logger
	}
}

func WithClock(now func() time.Time) PaymentServiceOption {
	return func(s *PaymentService) {
		s.now = now
	}
}

// NewPaymentService wires the orchestrator. keyID is the public gateway key
// handed to the checkout widget; the secret stays inside gw.
func NewPaymentService(
	bookings repository.BookingRepository,
	payments repository.PaymentRepository,
	gw Gateway,
	keyID string,
	opts ...PaymentServiceOption,
) *PaymentService {
	s := &PaymentService{
		bookings: bookings,
		payments: payments,
		gateway:  gw,
		keyID:    keyID,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initiate opens a gateway order for the booking's frozen total. A booking
// may have several orders over time; each failed attempt can be retried with
// a fresh one.
func (s *PaymentService) Initiate(ctx context.Context, input InitiateInput) (*Checkout, error) {
	bookingID, err := parseID(input.BookingID)
	if err != nil {
		return nil, err
	}
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := payable(b); err != nil {
		return nil, err
	}

	total := b.Price.TotalAmountDue
	currency := b.Price.Currency
	var problems []string
	if input.Amount != 0 && input.Amount != total {
		problems = append(problems, fmt.Sprintf("amount %s does not match the booking total %s", input.Amount, total))
	}
	if input.Currency != "" && !strings.EqualFold(input.Currency, currency) {
		problems = append(problems, fmt.Sprintf("currency %s does not match the booking currency %s", input.Currency, currency))
	}
	if len(problems) > 0 {
		return nil, domain.NewValidationError(problems...)
	}

	order, err := s.gateway.CreateOrder(ctx, total, currency, b.Reference, map[string]string{
		"booking_id":   b.ID.String(),
		"booking_type": string(b.Kind),
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "gateway order creation failed", "booking_id", b.ID, "error", err)
		return nil, err
	}

	if err := s.payments.SaveOrder(ctx, &domain.PaymentOrder{
		OrderID:   order.ID,
		BookingID: b.ID,
		Amount:    total,
		Currency:  currency,
	}); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "payment order created",
		"booking_id", b.ID,
		"reference", b.Reference,
		"order_id", order.ID,
		"amount", total.String(),
	)
	return &Checkout{
		OrderID:   order.ID,
		KeyID:     s.keyID,
		Amount:    total,
		Currency:  currency,
		Reference: b.Reference,
		Prefill:   b.Contact,
	}, nil
}

// OnGatewaySuccess confirms a booking from the checkout callback. The client
// only supplies identifiers; the amount and status come from the gateway.
// Replaying the same callback returns the confirmed booking unchanged.
func (s *PaymentService) OnGatewaySuccess(ctx context.Context, input VerifyInput) (*Confirmation, error) {
	if !s.gateway.VerifySignature(input.OrderID, input.PaymentID, input.Signature) {
		s.recordSecurity(ctx, input.OrderID, ActionSignatureMismatch,
			fmt.Sprintf("order %s payment %s", input.OrderID, input.PaymentID))
		return nil, fmt.Errorf("order %s: %w", input.OrderID, domain.ErrSignatureVerification)
	}

	existing, err := s.payments.FindSuccessful(ctx, input.PaymentID)
	switch {
	case err == nil:
		if existing.GatewayOrderID != input.OrderID {
			return nil, fmt.Errorf("payment %s belongs to another order: %w", input.PaymentID, domain.ErrPaymentVerification)
		}
		b, err := s.bookings.GetByID(ctx, existing.BookingID)
		if err != nil {
			return nil, err
		}
		s.logger.InfoContext(ctx, "payment already verified", "booking_id", b.ID, "payment_id", input.PaymentID)
		return &Confirmation{Booking: b, Replayed: true}, nil
	case !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}

	order, err := s.payments.GetOrder(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	b, err := s.bookings.GetByID(ctx, order.BookingID)
	if err != nil {
		return nil, err
	}

	gp, err := s.gateway.FetchPayment(ctx, input.PaymentID)
	if err != nil {
		s.logger.ErrorContext(ctx, "gateway payment lookup failed", "payment_id", input.PaymentID, "error", err)
		return nil, err
	}
	if err := s.checkCaptured(ctx, b, input.OrderID, gp); err != nil {
		return nil, err
	}

	confirmed, replayed, err := s.bookings.Confirm(ctx, domain.Payment{
		BookingID:        b.ID,
		GatewayOrderID:   input.OrderID,
		GatewayPaymentID: gp.ID,
		Amount:           gp.Amount,
		Currency:         strings.ToUpper(gp.Currency),
		Method:           gp.Method,
		Status:           domain.PaymentSuccessful,
	}, s.now())
	if errors.Is(err, domain.ErrInvalidState) {
		s.recordOrphanedCapture(ctx, b, input.OrderID, gp)
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	if replayed {
		return &Confirmation{Booking: confirmed, Replayed: true}, nil
	}

	s.logger.InfoContext(ctx, "booking confirmed",
		"booking_id", confirmed.ID,
		"reference", confirmed.Reference,
		"payment_id", gp.ID,
		"amount", gp.Amount.String(),
	)
	s.consumeDiscount(ctx, confirmed)
	s.publish(ctx, kafka.NewBookingEvent(kafka.EventBookingConfirmed, confirmed, s.now()))
	return &Confirmation{Booking: confirmed}, nil
}

func (s *PaymentService) checkCaptured(ctx context.Context, b *domain.Booking, orderID string, gp *gateway.Payment) error {
	var mismatch []string
	if gp.OrderID != orderID {
		mismatch = append(mismatch, "order")
	}
	if gp.Status != gateway.StatusCaptured {
		mismatch = append(mismatch, "status "+gp.Status)
	}
	if gp.Amount != b.Price.TotalAmountDue {
		mismatch = append(mismatch, "amount")
	}
	if !strings.EqualFold(gp.Currency, b.Price.Currency) {
		mismatch = append(mismatch, "currency")
	}
	if len(mismatch) == 0 {
		return nil
	}
	detail := fmt.Sprintf("booking %s payment %s: %s", b.Reference, gp.ID, strings.Join(mismatch, ", "))
	s.recordSecurity(ctx, orderID, ActionAmountMismatch, detail)
	return fmt.Errorf("%s: %w", detail, domain.ErrPaymentVerification)
}

// OnGatewayFailure records a failed or abandoned attempt. The booking stays
// Pending Payment so the client can open a new order.
func (s *PaymentService) OnGatewayFailure(ctx context.Context, input FailureInput) (*domain.PaymentFailure, error) {
	order, err := s.payments.GetOrder(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}

	code := strings.ToUpper(strings.TrimSpace(input.Code))
	failure := &domain.PaymentFailure{
		BookingID: order.BookingID,
		OrderID:   order.OrderID,
		Code:      code,
		Message:   truncate(strings.TrimSpace(input.Message), maxFailureMessage),
		Cancelled: code == CodeCancelled,
	}
	if err := s.payments.RecordFailure(ctx, failure); err != nil {
		return nil, err
	}

	if failure.Cancelled {
		s.logger.InfoContext(ctx, "payment cancelled by user", "booking_id", order.BookingID, "order_id", order.OrderID)
	} else {
		s.logger.WarnContext(ctx, "payment failed at gateway",
			"booking_id", order.BookingID,
			"order_id", order.OrderID,
			"code", code,
		)
	}

	if b, err := s.bookings.GetByID(ctx, order.BookingID); err == nil {
		event := kafka.NewBookingEvent(kafka.EventPaymentFailed, b, s.now())
		event.Reason = code
		s.publish(ctx, event)
	}
	return failure, nil
}

// recordOrphanedCapture keeps a trace of money captured for a booking that
// expired or was cancelled before the callback arrived. It needs a refund.
func (s *PaymentService) recordOrphanedCapture(ctx context.Context, b *domain.Booking, orderID string, gp *gateway.Payment) {
	detail := fmt.Sprintf("booking %s released before capture, payment %s captured %s %s", b.Reference, gp.ID, gp.Amount, strings.ToUpper(gp.Currency))
	s.logger.ErrorContext(ctx, "payment captured for released booking, refund required",
		"booking_id", b.ID,
		"order_id", orderID,
		"payment_id", gp.ID,
		"amount", gp.Amount.String(),
	)
	if err := s.payments.RecordFailure(ctx, &domain.PaymentFailure{
		BookingID: b.ID,
		OrderID:   orderID,
		Code:      CodeCapturedAfterRelease,
		Message:   truncate(detail, maxFailureMessage),
	}); err != nil {
		s.logger.ErrorContext(ctx, "orphaned capture not recorded", "payment_id", gp.ID, "error", err)
	}
	s.recordSecurity(ctx, orderID, ActionCaptureAfterRelease, detail)
}

func (s *PaymentService) consumeDiscount(ctx context.Context, b *domain.Booking) {
	if s.discounts == nil || b.Price.DiscountCode == "" {
		return
	}
	if err := s.discounts.Use(ctx, b.Price.DiscountCode); err != nil {
		s.logger.WarnContext(ctx, "discount usage not recorded", "code", b.Price.DiscountCode, "booking_id", b.ID, "error", err)
	}
}

func (s *PaymentService) recordSecurity(ctx context.Context, identifier, action, detail string) {
	if s.security == nil {
		s.logger.WarnContext(ctx, "security event", "identifier", identifier, "action", action, "detail", detail)
		return
	}
	s.security.RecordSecurityEvent(ctx, identifier, action, detail)
}

func (s *PaymentService) publish(ctx context.Context, event kafka.BookingEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishBookingEvent(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to publish booking event", "type", event.Type, "reference", event.Reference, "error", err)
	}
}

func payable(b *domain.Booking) error {
	switch {
	case b.IsPayable():
		return nil
	case b.PaymentStatus == domain.PaymentStatusPaid:
		return fmt.Errorf("booking %s: %w", b.Reference, domain.ErrAlreadyPaid)
	default:
		return fmt.Errorf("booking %s is %s: %w", b.Reference, b.Status, domain.ErrInvalidState)
	}
}

func parseID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, domain.NewValidationError("booking_id must be a valid id")
	}
	return id, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

var _ PaymentUseCase = (*PaymentService)(nil)
