package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Domenick1991/haven/internal/cache"
	"github.com/Domenick1991/haven/internal/domain"
	"github.com/Domenick1991/haven/internal/kafka"
	"github.com/Domenick1991/haven/internal/repository"
	"github.com/Domenick1991/haven/internal/service/availability"
	"github.com/Domenick1991/haven/internal/service/pricing"
	"github.com/google/uuid"
)

const (
	ActionGuestBooking = "guest_booking"

	maxReferenceAttempts = 3
)

type BookingUseCase interface {
	CreateBooking(ctx context.Context, user User, input CreateBookingInput) (*domain.Booking, error)
	CreateGuestBooking(ctx context.Context, input CreateGuestBookingInput) (*domain.Booking, error)
	GetBooking(ctx context.Context, id uuid.UUID) (*domain.Booking, error)
	CancelBooking(ctx context.Context, user User, id uuid.UUID) (*domain.Booking, error)
	CancelGuestBooking(ctx context.Context, input CancelGuestBookingInput) (*domain.Booking, error)
	ExpirePendingBookings(ctx context.Context) ([]domain.Booking, error)
}

type Limiter interface {
	Allow(ctx context.Context, identifier, action string, limit int, window time.Duration) (cache.Decision, error)
}

type FailureRecorder interface {
	RecordRateLimit(ctx context.Context, identifier, action string, retryAfter time.Duration)
}

type EventPublisher interface {
	PublishBookingEvent(ctx context.Context, event kafka.BookingEvent) error
}

// User is the authenticated caller, taken from the bearer token.
type User struct {
	ID    uuid.UUID
	Name  string
	Email string
	Phone string
}

type CreateBookingInput struct {
	Type         domain.BookingKind      `json:"type" validate:"required,oneof=property experience"`
	PropertyID   uuid.UUID               `json:"property_id"`
	CheckIn      string                  `json:"check_in" validate:"omitempty,datetime=2006-01-02"`
	CheckOut     string                  `json:"check_out" validate:"omitempty,datetime=2006-01-02"`
	Guests       int                     `json:"guests"`
	Addons       []domain.AddonSelection `json:"addons" validate:"omitempty,dive"`
	InstanceID   uuid.UUID               `json:"instance_id"`
	Attendees    int                     `json:"attendees"`
	DiscountCode string                  `json:"discount_code" validate:"omitempty,max=64"`
}

type CreateGuestBookingInput struct {
	CreateBookingInput
	GuestName  string `json:"guest_name" validate:"required,min=2,max=100"`
	GuestEmail string `json:"guest_email" validate:"required,email"`
	GuestPhone string `json:"guest_phone" validate:"required,min=7,max=20"`
}

// CancelGuestBookingInput proves a guest holds the booking: the reference and
// email from the confirmation must both match.
type CancelGuestBookingInput struct {
	BookingID uuid.UUID `json:"-"`
	Reference string    `json:"booking_reference" validate:"required,max=32"`
	Email     string    `json:"email" validate:"required,email"`
}

// Policy bounds what a booking request may ask for.
type Policy struct {
	HoldTTL           time.Duration
	GuestLimitPerHour int
	MaxAmount         domain.Money
	MaxAdvanceYears   int
	MaxAttendees      int
}

func DefaultPolicy() Policy {
	return Policy{
		GuestLimitPerHour: 3,
		MaxAmount:         domain.Rupees(1_000_000),
		MaxAdvanceYears:   2,
		MaxAttendees:      20,
	}
}

type BookingService struct {
	bookings     repository.BookingRepository
	properties   repository.PropertyRepository
	availability availability.AvailabilityUseCase
	pricing      pricing.PricingUseCase
	limiter      Limiter
	failures     FailureRecorder
	events       EventPublisher
	policy       Policy
	logger       *slog.Logger
	now          func() time.Time
	newReference func(time.Time) (string, error)
}

type BookingServiceOption func(*BookingService)

func WithPolicy(p Policy) BookingServiceOption {
	return func(s *BookingService) {
		s.policy = p
	}
}

func WithLimiter(l Limiter) BookingServiceOption {
	return func(s *BookingService) {
		s.limiter = l
	}
}

func WithFailureRecorder(f FailureRecorder) BookingServiceOption {
	return func(s *BookingService) {
		s.failures = f
	}
}

func WithEventPublisher(p EventPublisher) BookingServiceOption {
	return func(s *BookingService) {
		s.events = p
	}
}

func WithLogger(logger *slog.Logger) BookingServiceOption {
	return func(s *BookingService) {
		s.logger = logger
	}
}

func WithClock(now func() time.Time) BookingServiceOption {
	return func(s *BookingService) {
		s.now = now
	}
}

func NewBookingService(
	bookings repository.BookingRepository,
	properties repository.PropertyRepository,
	checker availability.AvailabilityUseCase,
	pricer pricing.PricingUseCase,
	opts ...BookingServiceOption,
) *BookingService {
	s := &BookingService{
		bookings:     bookings,
		properties:   properties,
		availability: checker,
		pricing:      pricer,
		policy:       DefaultPolicy(),
		logger:       slog.Default(),
		now:          time.Now,
		newReference: NewReference,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *BookingService) CreateBooking(ctx context.Context, user User, input CreateBookingInput) (*domain.Booking, error) {
	problems := s.checkInput(input)
	if user.ID == uuid.Nil {
		problems = append(problems, "user is required")
	}
	email := strings.ToLower(strings.TrimSpace(user.Email))
	if email == "" {
		problems = append(problems, "user email is required")
	}
	if len(problems) > 0 {
		return nil, domain.NewValidationError(problems...)
	}

	owner := domain.Owner{UserID: &user.ID}
	contact := domain.GuestContact{Name: strings.TrimSpace(user.Name), Email: email, Phone: strings.TrimSpace(user.Phone)}
	return s.create(ctx, owner, contact, input)
}

// CreateGuestBooking rate-limits by email before anything is written.
func (s *BookingService) CreateGuestBooking(ctx context.Context, input CreateGuestBookingInput) (*domain.Booking, error) {
	problems := append(structProblems(input), s.checkRules(input.CreateBookingInput)...)
	if len(problems) > 0 {
		return nil, domain.NewValidationError(problems...)
	}

	email := strings.ToLower(strings.TrimSpace(input.GuestEmail))
	if err := s.checkRateLimit(ctx, email); err != nil {
		return nil, err
	}

	guest := &domain.GuestContact{Name: strings.TrimSpace(input.GuestName), Email: email, Phone: strings.TrimSpace(input.GuestPhone)}
	return s.create(ctx, domain.Owner{Guest: guest}, *guest, input.CreateBookingInput)
}

func (s *BookingService) checkRateLimit(ctx context.Context, email string) error {
	if s.limiter == nil || s.policy.GuestLimitPerHour <= 0 {
		return nil
	}
	d, err := s.limiter.Allow(ctx, email, ActionGuestBooking, s.policy.GuestLimitPerHour, time.Hour)
	if err != nil {
		return fmt.Errorf("guest rate limit: %w", err)
	}
	if d.Allowed {
		return nil
	}
	if s.failures != nil {
		s.failures.RecordRateLimit(ctx, email, ActionGuestBooking, d.RetryAfter)
	}
	return &domain.RateLimitError{Identifier: email, Action: ActionGuestBooking, RetryAfter: d.RetryAfter}
}

func (s *BookingService) checkInput(input CreateBookingInput) []string {
	return append(structProblems(input), s.checkRules(input)...)
}

// checkRules covers what struct tags cannot express. Every violation is
// reported, not just the first.
func (s *BookingService) checkRules(input CreateBookingInput) []string {
	var problems []string
	switch input.Type {
	case domain.KindProperty:
		if input.PropertyID == uuid.Nil {
			problems = append(problems, "property_id is required")
		}
		if input.InstanceID != uuid.Nil || input.Attendees != 0 {
			problems = append(problems, "instance_id and attendees are only allowed on experience bookings")
		}
		if input.Guests < 1 {
			problems = append(problems, "guests must be at least 1")
		}
		problems = append(problems, s.checkDates(input.CheckIn, input.CheckOut)...)
		seen := make(map[uuid.UUID]struct{}, len(input.Addons))
		for _, a := range input.Addons {
			if _, dup := seen[a.InstanceID]; dup {
				problems = append(problems, fmt.Sprintf("add-on %s is listed more than once", a.InstanceID))
			}
			seen[a.InstanceID] = struct{}{}
			if a.Attendees < 1 || a.Attendees > s.policy.MaxAttendees {
				problems = append(problems, fmt.Sprintf("add-on %s attendees must be between 1 and %d", a.InstanceID, s.policy.MaxAttendees))
			}
		}
	case domain.KindExperience:
		if input.InstanceID == uuid.Nil {
			problems = append(problems, "instance_id is required")
		}
		if input.PropertyID != uuid.Nil || input.CheckIn != "" || input.CheckOut != "" || len(input.Addons) > 0 {
			problems = append(problems, "property fields are only allowed on property bookings")
		}
		if input.Attendees < 1 || input.Attendees > s.policy.MaxAttendees {
			problems = append(problems, fmt.Sprintf("attendees must be between 1 and %d", s.policy.MaxAttendees))
		}
	}
	return problems
}

func (s *BookingService) checkDates(checkInRaw, checkOutRaw string) []string {
	if checkInRaw == "" || checkOutRaw == "" {
		var problems []string
		if checkInRaw == "" {
			problems = append(problems, "check_in is required")
		}
		if checkOutRaw == "" {
			problems = append(problems, "check_out is required")
		}
		return problems
	}
	checkIn, okIn := parseDate(checkInRaw)
	checkOut, okOut := parseDate(checkOutRaw)
	if !okIn || !okOut {
		// already reported by the datetime tag
		return nil
	}

	var problems []string
	if !checkIn.Before(checkOut) {
		problems = append(problems, "check_out must be after check_in")
	}
	now := s.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if checkIn.Before(today) {
		problems = append(problems, "check_in cannot be in the past")
	}
	if checkIn.After(today.AddDate(s.policy.MaxAdvanceYears, 0, 0)) {
		problems = append(problems, fmt.Sprintf("check_in cannot be more than %d years ahead", s.policy.MaxAdvanceYears))
	}
	return problems
}

func (s *BookingService) create(ctx context.Context, owner domain.Owner, contact domain.GuestContact, input CreateBookingInput) (*domain.Booking, error) {
	b := &domain.Booking{
		Kind:          input.Type,
		Owner:         owner,
		Contact:       contact,
		Status:        domain.BookingStatusPendingPayment,
		PaymentStatus: domain.PaymentStatusUnpaid,
	}

	var (
		price *domain.PriceBreakdown
		err   error
	)
	switch input.Type {
	case domain.KindProperty:
		stay := &domain.PropertyStay{PropertyID: input.PropertyID, Guests: input.Guests, Addons: input.Addons}
		stay.CheckIn, _ = parseDate(input.CheckIn)
		stay.CheckOut, _ = parseDate(input.CheckOut)
		b.Property = stay
		if err := s.precheckStay(ctx, stay); err != nil {
			return nil, err
		}
		price, err = s.pricing.QuoteProperty(ctx, pricing.PropertyQuote{
			PropertyID:   stay.PropertyID,
			CheckIn:      stay.CheckIn,
			CheckOut:     stay.CheckOut,
			Addons:       stay.Addons,
			DiscountCode: input.DiscountCode,
			Email:        contact.Email,
		})
	case domain.KindExperience:
		slot := &domain.ExperienceSlot{InstanceID: input.InstanceID, Attendees: input.Attendees}
		b.Experience = slot
		if err := s.precheckSeats(ctx, slot.InstanceID, slot.Attendees); err != nil {
			return nil, err
		}
		price, err = s.pricing.QuoteExperience(ctx, pricing.ExperienceQuote{
			InstanceID:   slot.InstanceID,
			Attendees:    slot.Attendees,
			DiscountCode: input.DiscountCode,
			Email:        contact.Email,
		})
	default:
		return nil, domain.NewValidationError(fmt.Sprintf("unknown booking type %q", input.Type))
	}
	if err != nil {
		return nil, err
	}

	switch {
	case price.TotalAmountDue <= 0:
		return nil, domain.NewValidationError("total amount must be greater than zero")
	case price.TotalAmountDue > s.policy.MaxAmount:
		return nil, domain.NewValidationError(fmt.Sprintf("total amount exceeds the maximum of ₹%s", s.policy.MaxAmount))
	}
	b.Price = *price

	if s.policy.HoldTTL > 0 {
		expires := s.now().Add(s.policy.HoldTTL)
		b.ExpiresAt = &expires
	}

	if err := s.insert(ctx, b); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "booking created",
		"booking_id", b.ID,
		"reference", b.Reference,
		"kind", b.Kind,
		"total", b.Price.TotalAmountDue.String(),
	)
	s.publish(ctx, kafka.EventBookingCreated, b)
	return b, nil
}

// insert retries only on a reference collision; the unique index is the
// real guarantee.
func (s *BookingService) insert(ctx context.Context, b *domain.Booking) error {
	var err error
	for attempt := 0; attempt < maxReferenceAttempts; attempt++ {
		b.Reference, err = s.newReference(s.now())
		if err != nil {
			return err
		}
		err = s.bookings.CreatePending(ctx, b)
		if !errors.Is(err, domain.ErrDuplicateReference) {
			return err
		}
		s.logger.WarnContext(ctx, "booking reference collision", "reference", b.Reference, "attempt", attempt+1)
	}
	return err
}

func (s *BookingService) precheckStay(ctx context.Context, stay *domain.PropertyStay) error {
	property, err := s.properties.GetByID(ctx, stay.PropertyID)
	if err != nil {
		return err
	}
	var problems []string
	if !property.IsActive {
		problems = append(problems, "property is not accepting bookings")
	}
	if stay.Guests > property.MaxGuests {
		problems = append(problems, fmt.Sprintf("guests must not exceed %d for this property", property.MaxGuests))
	}
	if len(problems) > 0 {
		return domain.NewValidationError(problems...)
	}

	free, err := s.availability.CheckProperty(ctx, stay.PropertyID, stay.CheckIn, stay.CheckOut)
	if err != nil {
		return err
	}
	if !free {
		return fmt.Errorf("property %s: %w", stay.PropertyID, domain.ErrAvailabilityConflict)
	}
	for _, a := range stay.Addons {
		if err := s.precheckSeats(ctx, a.InstanceID, a.Attendees); err != nil {
			return err
		}
	}
	return nil
}

func (s *BookingService) precheckSeats(ctx context.Context, instanceID uuid.UUID, attendees int) error {
	free, err := s.availability.CheckExperience(ctx, instanceID, attendees)
	if err != nil {
		return err
	}
	if !free {
		return fmt.Errorf("experience instance %s: %w", instanceID, domain.ErrAvailabilityConflict)
	}
	return nil
}

func (s *BookingService) GetBooking(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	return s.bookings.GetByID(ctx, id)
}

// CancelBooking lets an authenticated user cancel a booking they own. A
// booking owned by someone else is reported as not found.
func (s *BookingService) CancelBooking(ctx context.Context, user User, id uuid.UUID) (*domain.Booking, error) {
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.Owner.UserID == nil || user.ID == uuid.Nil || *b.Owner.UserID != user.ID {
		return nil, fmt.Errorf("booking %s: %w", id, domain.ErrNotFound)
	}
	return s.cancel(ctx, id, domain.BookingStatusPendingPayment, domain.BookingStatusConfirmed, domain.BookingStatusCheckedIn)
}

// CancelGuestBooking releases an unpaid guest booking. Paid guest bookings go
// through support.
func (s *BookingService) CancelGuestBooking(ctx context.Context, input CancelGuestBookingInput) (*domain.Booking, error) {
	if problems := structProblems(input); len(problems) > 0 {
		return nil, domain.NewValidationError(problems...)
	}
	b, err := s.bookings.GetByID(ctx, input.BookingID)
	if err != nil {
		return nil, err
	}
	g := b.Owner.Guest
	if g == nil ||
		!strings.EqualFold(strings.TrimSpace(input.Reference), b.Reference) ||
		!strings.EqualFold(strings.TrimSpace(input.Email), g.Email) {
		return nil, fmt.Errorf("booking %s: %w", input.BookingID, domain.ErrNotFound)
	}
	return s.cancel(ctx, input.BookingID, domain.BookingStatusPendingPayment)
}

func (s *BookingService) cancel(ctx context.Context, id uuid.UUID, from ...domain.BookingStatus) (*domain.Booking, error) {
	b, err := s.bookings.Cancel(ctx, id, from)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "booking cancelled", "booking_id", b.ID, "reference", b.Reference)
	s.publish(ctx, kafka.EventBookingCancelled, b)
	return b, nil
}

// ExpirePendingBookings cancels unpaid bookings whose hold has run out.
// Bookings created while the hold TTL was 0 have no expiry and are left alone.
func (s *BookingService) ExpirePendingBookings(ctx context.Context) ([]domain.Booking, error) {
	expired, err := s.bookings.ExpirePendingBefore(ctx, s.now())
	if err != nil {
		return nil, err
	}
	for i := range expired {
		s.publish(ctx, kafka.EventBookingExpired, &expired[i])
	}
	if len(expired) > 0 {
		s.logger.InfoContext(ctx, "expired unpaid bookings", "count", len(expired))
	}
	return expired, nil
}

func (s *BookingService) publish(ctx context.Context, eventType string, b *domain.Booking) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishBookingEvent(ctx, kafka.NewBookingEvent(eventType, b, s.now())); err != nil {
		s.logger.WarnContext(ctx, "failed to publish booking event", "type", eventType, "reference", b.Reference, "error", err)
	}
}

var _ BookingUseCase = (*BookingService)(nil)
