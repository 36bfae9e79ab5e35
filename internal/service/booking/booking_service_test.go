package booking

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/Domenick1991/haven/internal/cache"
	"github.com/Domenick1991/haven/internal/domain"
	"github.com/Domenick1991/haven/internal/kafka"
	"github.com/Domenick1991/haven/internal/repository/mocks"
	"github.com/Domenick1991/haven/internal/service/pricing"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockAvailability struct {
	mock.Mock
}

func (m *MockAvailability) CheckProperty(ctx context.Context, propertyID uuid.UUID, checkIn, checkOut time.Time) (bool, error) {
	args := m.Called(ctx, propertyID, checkIn, checkOut)
	return args.Bool(0), args.Error(1)
}

func (m *MockAvailability) CheckExperience(ctx context.Context, instanceID uuid.UUID, attendees int) (bool, error) {
	args := m.Called(ctx, instanceID, attendees)
	return args.Bool(0), args.Error(1)
}

type MockPricing struct {
	mock.Mock
}

func (m *MockPricing) QuoteProperty(ctx context.Context, q pricing.PropertyQuote) (*domain.PriceBreakdown, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PriceBreakdown), args.Error(1)
}

func (m *MockPricing) QuoteExperience(ctx context.Context, q pricing.ExperienceQuote) (*domain.PriceBreakdown, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PriceBreakdown), args.Error(1)
}

type MockLimiter struct {
	mock.Mock
}

func (m *MockLimiter) Allow(ctx context.Context, identifier, action string, limit int, window time.Duration) (cache.Decision, error) {
	args := m.Called(ctx, identifier, action, limit, window)
	return args.Get(0).(cache.Decision), args.Error(1)
}

type MockFailureRecorder struct {
	mock.Mock
}

func (m *MockFailureRecorder) RecordRateLimit(ctx context.Context, identifier, action string, retryAfter time.Duration) {
	m.Called(ctx, identifier, action, retryAfter)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishBookingEvent(ctx context.Context, event kafka.BookingEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

var now = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	bookings     *mocks.BookingRepository
	properties   *mocks.PropertyRepository
	availability *MockAvailability
	pricing      *MockPricing
	limiter      *MockLimiter
	failures     *MockFailureRecorder
	events       *MockPublisher
	svc          *BookingService
}

func newFixture(opts ...BookingServiceOption) *fixture {
	f := &fixture{
		bookings:     &mocks.BookingRepository{},
		properties:   &mocks.PropertyRepository{},
		availability: &MockAvailability{},
		pricing:      &MockPricing{},
		limiter:      &MockLimiter{},
		failures:     &MockFailureRecorder{},
		events:       &MockPublisher{},
	}
	base := []BookingServiceOption{
		WithLimiter(f.limiter),
		WithFailureRecorder(f.failures),
		WithEventPublisher(f.events),
		WithLogger(quietLogger()),
		WithClock(func() time.Time { return now }),
	}
	f.svc = NewBookingService(f.bookings, f.properties, f.availability, f.pricing, append(base, opts...)...)
	return f
}

func stayInput(propertyID uuid.UUID) CreateBookingInput {
	return CreateBookingInput{
		Type:       domain.KindProperty,
		PropertyID: propertyID,
		CheckIn:    "2026-05-10",
		CheckOut:   "2026-05-13",
		Guests:     2,
	}
}

func guestInput(propertyID uuid.UUID) CreateGuestBookingInput {
	return CreateGuestBookingInput{
		CreateBookingInput: stayInput(propertyID),
		GuestName:          "Asha Rao",
		GuestEmail:         "Asha@Example.com",
		GuestPhone:         "+919876543210",
	}
}

func member() User {
	return User{ID: uuid.New(), Name: "Dev", Email: "dev@example.com"}
}

func quote(total domain.Money) *domain.PriceBreakdown {
	return &domain.PriceBreakdown{Currency: "INR", BasePrice: total, SubtotalAfterDiscount: total, TotalAmountDue: total}
}

func TestCreateGuestBooking_Success(t *testing.T) {
	f := newFixture(WithPolicy(Policy{HoldTTL: 30 * time.Minute, GuestLimitPerHour: 3, MaxAmount: domain.Rupees(1_000_000), MaxAdvanceYears: 2, MaxAttendees: 20}))
	ctx := context.Background()
	propertyID := uuid.New()
	checkIn := time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)
	checkOut := time.Date(2026, 5, 13, 0, 0, 0, 0, time.UTC)

	f.limiter.On("Allow", ctx, "asha@example.com", ActionGuestBooking, 3, time.Hour).Return(cache.Decision{Allowed: true}, nil).Once()
	f.properties.On("GetByID", ctx, propertyID).Return(&domain.Property{ID: propertyID, MaxGuests: 4, IsActive: true}, nil).Once()
	f.availability.On("CheckProperty", ctx, propertyID, checkIn, checkOut).Return(true, nil).Once()
	f.pricing.On("QuoteProperty", ctx, pricing.PropertyQuote{
		PropertyID: propertyID, CheckIn: checkIn, CheckOut: checkOut, Email: "asha@example.com",
	}).Return(quote(domain.Rupees(14160)), nil).Once()
	f.bookings.On("CreatePending", ctx, mock.AnythingOfType("*domain.Booking")).Return(nil).Once()
	f.events.On("PublishBookingEvent", ctx, mock.MatchedBy(func(e kafka.BookingEvent) bool {
		return e.Type == kafka.EventBookingCreated && e.Email == "asha@example.com"
	})).Return(nil).Once()

	b, err := f.svc.CreateGuestBooking(ctx, guestInput(propertyID))

	assert.NoError(t, err)
	if assert.NotNil(t, b) {
		assert.Equal(t, domain.BookingStatusPendingPayment, b.Status)
		assert.Equal(t, domain.PaymentStatusUnpaid, b.PaymentStatus)
		assert.Nil(t, b.Owner.UserID)
		assert.Equal(t, "asha@example.com", b.Owner.Guest.Email)
		assert.Regexp(t, referencePattern, b.Reference)
		assert.Equal(t, domain.Rupees(14160), b.Price.TotalAmountDue)
		if assert.NotNil(t, b.ExpiresAt) {
			assert.Equal(t, now.Add(30*time.Minute), *b.ExpiresAt)
		}
		assert.NoError(t, b.CheckShape())
	}
	f.limiter.AssertExpectations(t)
	f.bookings.AssertExpectations(t)
	f.events.AssertExpectations(t)
}

func TestCreateGuestBooking_RateLimited(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.limiter.On("Allow", ctx, "asha@example.com", ActionGuestBooking, 3, time.Hour).
		Return(cache.Decision{Allowed: false, RetryAfter: 20 * time.Minute}, nil).Once()
	f.failures.On("RecordRateLimit", ctx, "asha@example.com", ActionGuestBooking, 20*time.Minute).Once()

	b, err := f.svc.CreateGuestBooking(ctx, guestInput(uuid.New()))

	assert.Nil(t, b)
	var rerr *domain.RateLimitError
	if assert.ErrorAs(t, err, &rerr) {
		assert.Equal(t, 20*time.Minute, rerr.RetryAfter)
	}
	f.failures.AssertExpectations(t)
	f.bookings.AssertNotCalled(t, "CreatePending", mock.Anything, mock.Anything)
	f.pricing.AssertNotCalled(t, "QuoteProperty", mock.Anything, mock.Anything)
}

func TestCreateGuestBooking_LimiterDown(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.limiter.On("Allow", ctx, "asha@example.com", ActionGuestBooking, 3, time.Hour).
		Return(cache.Decision{}, errors.New("redis: connection refused")).Once()

	_, err := f.svc.CreateGuestBooking(ctx, guestInput(uuid.New()))

	assert.Error(t, err)
	f.bookings.AssertNotCalled(t, "CreatePending", mock.Anything, mock.Anything)
}

func TestCreateGuestBooking_ValidationCollectsEverything(t *testing.T) {
	f := newFixture()

	input := CreateGuestBookingInput{
		CreateBookingInput: CreateBookingInput{
			Type:     domain.KindProperty,
			CheckIn:  "2026-02-20",
			CheckOut: "2026-02-18",
		},
		GuestEmail: "not-an-email",
	}

	b, err := f.svc.CreateGuestBooking(context.Background(), input)

	assert.Nil(t, b)
	var verr *domain.ValidationError
	if assert.ErrorAs(t, err, &verr) {
		assert.Contains(t, verr.Problems, "guest_name is required")
		assert.Contains(t, verr.Problems, "guest_email must be a valid email address")
		assert.Contains(t, verr.Problems, "guest_phone is required")
		assert.Contains(t, verr.Problems, "property_id is required")
		assert.Contains(t, verr.Problems, "guests must be at least 1")
		assert.Contains(t, verr.Problems, "check_out must be after check_in")
		assert.Contains(t, verr.Problems, "check_in cannot be in the past")
	}
	f.limiter.AssertNotCalled(t, "Allow", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateBooking_ValidationCases(t *testing.T) {
	f := newFixture()
	user := User{ID: uuid.New(), Email: "u@example.com"}

	testCases := []struct {
		name        string
		input       CreateBookingInput
		expectedErr string
	}{
		{
			name:        "missing type",
			input:       CreateBookingInput{},
			expectedErr: "type is required",
		},
		{
			name:        "unknown type",
			input:       CreateBookingInput{Type: "room"},
			expectedErr: "type must be one of: property experience",
		},
		{
			name:        "bad date format",
			input:       CreateBookingInput{Type: domain.KindProperty, PropertyID: uuid.New(), CheckIn: "10/05/2026", CheckOut: "2026-05-13", Guests: 1},
			expectedErr: "check_in must be a date in YYYY-MM-DD format",
		},
		{
			name:        "too far ahead",
			input:       CreateBookingInput{Type: domain.KindProperty, PropertyID: uuid.New(), CheckIn: "2029-05-10", CheckOut: "2029-05-12", Guests: 1},
			expectedErr: "check_in cannot be more than 2 years ahead",
		},
		{
			name:        "experience without attendees",
			input:       CreateBookingInput{Type: domain.KindExperience, InstanceID: uuid.New()},
			expectedErr: "attendees must be between 1 and 20",
		},
		{
			name:        "experience over attendee cap",
			input:       CreateBookingInput{Type: domain.KindExperience, InstanceID: uuid.New(), Attendees: 21},
			expectedErr: "attendees must be between 1 and 20",
		},
		{
			name:        "mixed shape",
			input:       CreateBookingInput{Type: domain.KindExperience, InstanceID: uuid.New(), Attendees: 2, PropertyID: uuid.New()},
			expectedErr: "property fields are only allowed on property bookings",
		},
		{
			name: "duplicate add-on",
			input: func() CreateBookingInput {
				in := stayInput(uuid.New())
				id := uuid.New()
				in.Addons = []domain.AddonSelection{{InstanceID: id, Attendees: 1}, {InstanceID: id, Attendees: 2}}
				return in
			}(),
			expectedErr: "is listed more than once",
		},
		{
			name: "add-on without attendees",
			input: func() CreateBookingInput {
				in := stayInput(uuid.New())
				in.Addons = []domain.AddonSelection{{InstanceID: uuid.New()}}
				return in
			}(),
			expectedErr: "attendees must be between 1 and 20",
		},
		{
			name: "add-on over attendee cap",
			input: func() CreateBookingInput {
				in := stayInput(uuid.New())
				in.Addons = []domain.AddonSelection{{InstanceID: uuid.New(), Attendees: 21}}
				return in
			}(),
			expectedErr: "attendees must be between 1 and 20",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			b, err := f.svc.CreateBooking(context.Background(), user, tc.input)
			assert.Error(t, err)
			assert.Nil(t, b)
			assert.Contains(t, err.Error(), tc.expectedErr)
		})
	}
	f.bookings.AssertNotCalled(t, "CreatePending", mock.Anything, mock.Anything)
}

func TestCreateBooking_RequiresUser(t *testing.T) {
	f := newFixture()

	_, err := f.svc.CreateBooking(context.Background(), User{}, stayInput(uuid.New()))

	assert.ErrorContains(t, err, "user is required")
}

func TestCreateBooking_RequiresEmail(t *testing.T) {
	f := newFixture()

	b, err := f.svc.CreateBooking(context.Background(), User{ID: uuid.New(), Email: "  "}, stayInput(uuid.New()))

	assert.Nil(t, b)
	var verr *domain.ValidationError
	if assert.ErrorAs(t, err, &verr) {
		assert.Contains(t, verr.Problems, "user email is required")
	}
	f.bookings.AssertNotCalled(t, "CreatePending", mock.Anything, mock.Anything)
}

func TestCreateBooking_Experience(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	user := User{ID: uuid.New(), Name: "Dev", Email: "dev@example.com"}
	instanceID := uuid.New()

	f.availability.On("CheckExperience", ctx, instanceID, 2).Return(true, nil).Once()
	f.pricing.On("QuoteExperience", ctx, pricing.ExperienceQuote{InstanceID: instanceID, Attendees: 2, Email: "dev@example.com"}).
		Return(quote(domain.Rupees(2950)), nil).Once()
	f.bookings.On("CreatePending", ctx, mock.AnythingOfType("*domain.Booking")).Return(nil).Once()
	f.events.On("PublishBookingEvent", ctx, mock.Anything).Return(errors.New("broker down")).Once()

	b, err := f.svc.CreateBooking(ctx, user, CreateBookingInput{Type: domain.KindExperience, InstanceID: instanceID, Attendees: 2})

	assert.NoError(t, err, "publish failures must not fail the booking")
	if assert.NotNil(t, b) {
		assert.Equal(t, user.ID, *b.Owner.UserID)
		assert.Nil(t, b.Owner.Guest)
		assert.Equal(t, "dev@example.com", b.Contact.Email)
		assert.Nil(t, b.ExpiresAt)
		assert.Equal(t, []domain.CapacityHold{{InstanceID: instanceID, Attendees: 2}}, b.Holds())
	}
	f.limiter.AssertNotCalled(t, "Allow", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateBooking_ExperienceFull(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	instanceID := uuid.New()

	// capacity 8 with 7 taken, asking for 2
	f.availability.On("CheckExperience", ctx, instanceID, 2).Return(false, nil).Once()

	b, err := f.svc.CreateBooking(ctx, member(), CreateBookingInput{Type: domain.KindExperience, InstanceID: instanceID, Attendees: 2})

	assert.Nil(t, b)
	assert.ErrorIs(t, err, domain.ErrAvailabilityConflict)
	f.pricing.AssertNotCalled(t, "QuoteExperience", mock.Anything, mock.Anything)
	f.bookings.AssertNotCalled(t, "CreatePending", mock.Anything, mock.Anything)
}

func TestCreateBooking_PropertyChecks(t *testing.T) {
	ctx := context.Background()
	propertyID := uuid.New()

	t.Run("too many guests", func(t *testing.T) {
		f := newFixture()
		f.properties.On("GetByID", ctx, propertyID).Return(&domain.Property{ID: propertyID, MaxGuests: 1, IsActive: true}, nil).Once()

		_, err := f.svc.CreateBooking(ctx, member(), stayInput(propertyID))

		var verr *domain.ValidationError
		assert.ErrorAs(t, err, &verr)
		assert.ErrorContains(t, err, "guests must not exceed 1")
	})

	t.Run("dates taken", func(t *testing.T) {
		f := newFixture()
		f.properties.On("GetByID", ctx, propertyID).Return(&domain.Property{ID: propertyID, MaxGuests: 4, IsActive: true}, nil).Once()
		f.availability.On("CheckProperty", ctx, propertyID, mock.Anything, mock.Anything).Return(false, nil).Once()

		_, err := f.svc.CreateBooking(ctx, member(), stayInput(propertyID))

		assert.ErrorIs(t, err, domain.ErrAvailabilityConflict)
	})

	t.Run("availability check fails", func(t *testing.T) {
		f := newFixture()
		f.properties.On("GetByID", ctx, propertyID).Return(&domain.Property{ID: propertyID, MaxGuests: 4, IsActive: true}, nil).Once()
		f.availability.On("CheckProperty", ctx, propertyID, mock.Anything, mock.Anything).Return(false, domain.ErrAvailabilityCheck).Once()

		_, err := f.svc.CreateBooking(ctx, member(), stayInput(propertyID))

		assert.ErrorIs(t, err, domain.ErrAvailabilityCheck)
		f.bookings.AssertNotCalled(t, "CreatePending", mock.Anything, mock.Anything)
	})

	t.Run("add-on full", func(t *testing.T) {
		f := newFixture()
		addon := uuid.New()
		in := stayInput(propertyID)
		in.Addons = []domain.AddonSelection{{InstanceID: addon, Attendees: 3}}
		f.properties.On("GetByID", ctx, propertyID).Return(&domain.Property{ID: propertyID, MaxGuests: 4, IsActive: true}, nil).Once()
		f.availability.On("CheckProperty", ctx, propertyID, mock.Anything, mock.Anything).Return(true, nil).Once()
		f.availability.On("CheckExperience", ctx, addon, 3).Return(false, nil).Once()

		_, err := f.svc.CreateBooking(ctx, member(), in)

		assert.ErrorIs(t, err, domain.ErrAvailabilityConflict)
	})
}

func TestCreateBooking_AmountBounds(t *testing.T) {
	ctx := context.Background()
	instanceID := uuid.New()

	for name, total := range map[string]domain.Money{
		"zero":   0,
		"absurd": domain.Rupees(1_000_001),
	} {
		t.Run(name, func(t *testing.T) {
			f := newFixture()
			f.availability.On("CheckExperience", ctx, instanceID, 1).Return(true, nil).Once()
			f.pricing.On("QuoteExperience", ctx, mock.Anything).Return(quote(total), nil).Once()

			_, err := f.svc.CreateBooking(ctx, member(), CreateBookingInput{Type: domain.KindExperience, InstanceID: instanceID, Attendees: 1})

			var verr *domain.ValidationError
			assert.ErrorAs(t, err, &verr)
			f.bookings.AssertNotCalled(t, "CreatePending", mock.Anything, mock.Anything)
		})
	}
}

func TestCreateBooking_PriceFailureBlocks(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	instanceID := uuid.New()
	f.availability.On("CheckExperience", ctx, instanceID, 1).Return(true, nil).Once()
	f.pricing.On("QuoteExperience", ctx, mock.Anything).Return(nil, domain.ErrPriceCalculation).Once()

	_, err := f.svc.CreateBooking(ctx, member(), CreateBookingInput{Type: domain.KindExperience, InstanceID: instanceID, Attendees: 1})

	assert.ErrorIs(t, err, domain.ErrPriceCalculation)
	f.bookings.AssertNotCalled(t, "CreatePending", mock.Anything, mock.Anything)
}

func TestCreateBooking_RetriesReferenceCollision(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	instanceID := uuid.New()
	refs := []string{"BK-260301-AAAA0001", "BK-260301-AAAA0002"}
	calls := 0
	f.svc.newReference = func(time.Time) (string, error) {
		ref := refs[calls]
		calls++
		return ref, nil
	}

	f.availability.On("CheckExperience", ctx, instanceID, 1).Return(true, nil).Once()
	f.pricing.On("QuoteExperience", ctx, mock.Anything).Return(quote(domain.Rupees(100)), nil).Once()
	f.bookings.On("CreatePending", ctx, mock.AnythingOfType("*domain.Booking")).Return(domain.ErrDuplicateReference).Once()
	f.bookings.On("CreatePending", ctx, mock.AnythingOfType("*domain.Booking")).Return(nil).Once()
	f.events.On("PublishBookingEvent", ctx, mock.Anything).Return(nil).Once()

	b, err := f.svc.CreateBooking(ctx, member(), CreateBookingInput{Type: domain.KindExperience, InstanceID: instanceID, Attendees: 1})

	assert.NoError(t, err)
	assert.Equal(t, "BK-260301-AAAA0002", b.Reference)
	f.bookings.AssertNumberOfCalls(t, "CreatePending", 2)
}

func TestCreateBooking_StoreConflictSurfaces(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	instanceID := uuid.New()
	f.availability.On("CheckExperience", ctx, instanceID, 1).Return(true, nil).Once()
	f.pricing.On("QuoteExperience", ctx, mock.Anything).Return(quote(domain.Rupees(100)), nil).Once()
	f.bookings.On("CreatePending", ctx, mock.Anything).Return(domain.ErrAvailabilityConflict).Once()

	_, err := f.svc.CreateBooking(ctx, member(), CreateBookingInput{Type: domain.KindExperience, InstanceID: instanceID, Attendees: 1})

	assert.ErrorIs(t, err, domain.ErrAvailabilityConflict)
	f.events.AssertNotCalled(t, "PublishBookingEvent", mock.Anything, mock.Anything)
}

var userCancellable = []domain.BookingStatus{
	domain.BookingStatusPendingPayment, domain.BookingStatusConfirmed, domain.BookingStatusCheckedIn,
}

func TestCancelBooking(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	owner := member()
	id := uuid.New()
	f.bookings.On("GetByID", ctx, id).Return(&domain.Booking{ID: id, Owner: domain.Owner{UserID: &owner.ID}, Status: domain.BookingStatusConfirmed}, nil).Once()
	cancelled := &domain.Booking{ID: id, Reference: "BK-1", Status: domain.BookingStatusCancelled}
	f.bookings.On("Cancel", ctx, id, userCancellable).Return(cancelled, nil).Once()
	f.events.On("PublishBookingEvent", ctx, mock.MatchedBy(func(e kafka.BookingEvent) bool {
		return e.Type == kafka.EventBookingCancelled
	})).Return(nil).Once()

	b, err := f.svc.CancelBooking(ctx, owner, id)

	assert.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCancelled, b.Status)
	f.bookings.AssertExpectations(t)
	f.events.AssertExpectations(t)
}

func TestCancelBooking_InvalidState(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	owner := member()
	id := uuid.New()
	f.bookings.On("GetByID", ctx, id).Return(&domain.Booking{ID: id, Owner: domain.Owner{UserID: &owner.ID}, Status: domain.BookingStatusCancelled}, nil).Once()
	f.bookings.On("Cancel", ctx, id, userCancellable).Return(nil, domain.ErrInvalidState).Once()

	_, err := f.svc.CancelBooking(ctx, owner, id)

	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestCancelBooking_NotOwner(t *testing.T) {
	ownerID := uuid.New()
	guest := &domain.GuestContact{Name: "Asha", Email: "asha@example.com"}

	testCases := []struct {
		name    string
		user    User
		booking domain.Booking
	}{
		{name: "another user", user: member(), booking: domain.Booking{Owner: domain.Owner{UserID: &ownerID}}},
		{name: "guest booking", user: member(), booking: domain.Booking{Owner: domain.Owner{Guest: guest}}},
		{name: "no user", user: User{}, booking: domain.Booking{Owner: domain.Owner{UserID: &ownerID}}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture()
			ctx := context.Background()
			id := uuid.New()
			tc.booking.ID = id
			f.bookings.On("GetByID", ctx, id).Return(&tc.booking, nil).Once()

			_, err := f.svc.CancelBooking(ctx, tc.user, id)

			assert.ErrorIs(t, err, domain.ErrNotFound)
			f.bookings.AssertNotCalled(t, "Cancel", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestCancelGuestBooking(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	id := uuid.New()
	f.bookings.On("GetByID", ctx, id).Return(&domain.Booking{
		ID: id, Reference: "BK-260301-7Q2K9X12", Owner: domain.Owner{Guest: &domain.GuestContact{Name: "Asha", Email: "asha@example.com"}},
	}, nil).Once()
	cancelled := &domain.Booking{ID: id, Reference: "BK-260301-7Q2K9X12", Status: domain.BookingStatusCancelled}
	f.bookings.On("Cancel", ctx, id, []domain.BookingStatus{domain.BookingStatusPendingPayment}).Return(cancelled, nil).Once()
	f.events.On("PublishBookingEvent", ctx, mock.Anything).Return(nil).Once()

	b, err := f.svc.CancelGuestBooking(ctx, CancelGuestBookingInput{BookingID: id, Reference: "bk-260301-7q2k9x12", Email: "Asha@Example.com"})

	assert.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCancelled, b.Status)
	f.bookings.AssertExpectations(t)
}

func TestCancelGuestBooking_Rejected(t *testing.T) {
	userID := uuid.New()
	guestOwned := domain.Owner{Guest: &domain.GuestContact{Name: "Asha", Email: "asha@example.com"}}

	testCases := []struct {
		name    string
		input   CancelGuestBookingInput
		owner   domain.Owner
		wantErr error
	}{
		{name: "wrong email", input: CancelGuestBookingInput{Reference: "BK-260301-7Q2K9X12", Email: "other@example.com"}, owner: guestOwned, wantErr: domain.ErrNotFound},
		{name: "wrong reference", input: CancelGuestBookingInput{Reference: "BK-260301-00000000", Email: "asha@example.com"}, owner: guestOwned, wantErr: domain.ErrNotFound},
		{name: "user booking", input: CancelGuestBookingInput{Reference: "BK-260301-7Q2K9X12", Email: "asha@example.com"}, owner: domain.Owner{UserID: &userID}, wantErr: domain.ErrNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture()
			ctx := context.Background()
			id := uuid.New()
			tc.input.BookingID = id
			f.bookings.On("GetByID", ctx, id).Return(&domain.Booking{ID: id, Reference: "BK-260301-7Q2K9X12", Owner: tc.owner}, nil).Once()

			_, err := f.svc.CancelGuestBooking(ctx, tc.input)

			assert.ErrorIs(t, err, tc.wantErr)
			f.bookings.AssertNotCalled(t, "Cancel", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestCancelGuestBooking_Validation(t *testing.T) {
	f := newFixture()

	_, err := f.svc.CancelGuestBooking(context.Background(), CancelGuestBookingInput{BookingID: uuid.New()})

	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
	f.bookings.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestExpirePendingBookings(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	expired := []domain.Booking{{ID: uuid.New(), Reference: "BK-1"}, {ID: uuid.New(), Reference: "BK-2"}}
	f.bookings.On("ExpirePendingBefore", ctx, now).Return(expired, nil).Once()
	f.events.On("PublishBookingEvent", ctx, mock.MatchedBy(func(e kafka.BookingEvent) bool {
		return e.Type == kafka.EventBookingExpired
	})).Return(nil).Twice()

	got, err := f.svc.ExpirePendingBookings(ctx)

	assert.NoError(t, err)
	assert.Len(t, got, 2)
	f.events.AssertExpectations(t)
}
