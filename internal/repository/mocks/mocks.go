// Package mocks holds testify mocks for the repository interfaces.
package mocks

import (
	"context"
	"time"

	"github.com/Domenick1991/haven/internal/domain"
	"github.com/Domenick1991/haven/internal/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type BookingRepository struct {
	mock.Mock
}

func (m *BookingRepository) HasOverlap(ctx context.Context, propertyID uuid.UUID, checkIn, checkOut time.Time) (bool, error) {
	args := m.Called(ctx, propertyID, checkIn, checkOut)
	return args.Bool(0), args.Error(1)
}

func (m *BookingRepository) CreatePending(ctx context.Context, booking *domain.Booking) error {
	args := m.Called(ctx, booking)
	return args.Error(0)
}

func (m *BookingRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *BookingRepository) CountConfirmedByEmail(ctx context.Context, email string) (int, error) {
	args := m.Called(ctx, email)
	return args.Int(0), args.Error(1)
}

func (m *BookingRepository) Confirm(ctx context.Context, payment domain.Payment, at time.Time) (*domain.Booking, bool, error) {
	args := m.Called(ctx, payment, at)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*domain.Booking), args.Bool(1), args.Error(2)
}

func (m *BookingRepository) Cancel(ctx context.Context, id uuid.UUID, from []domain.BookingStatus) (*domain.Booking, error) {
	args := m.Called(ctx, id, from)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *BookingRepository) ExpirePendingBefore(ctx context.Context, deadline time.Time) ([]domain.Booking, error) {
	args := m.Called(ctx, deadline)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Booking), args.Error(1)
}

type PropertyRepository struct {
	mock.Mock
}

func (m *PropertyRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Property, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Property), args.Error(1)
}

func (m *PropertyRepository) ActiveRules(ctx context.Context, propertyID uuid.UUID, at time.Time) ([]domain.PricingRule, error) {
	args := m.Called(ctx, propertyID, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PricingRule), args.Error(1)
}

func (m *PropertyRepository) ExternalRates(ctx context.Context, propertyID uuid.UUID) ([]domain.ExternalRate, error) {
	args := m.Called(ctx, propertyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ExternalRate), args.Error(1)
}

type ExperienceRepository struct {
	mock.Mock
}

func (m *ExperienceRepository) GetInstance(ctx context.Context, id uuid.UUID) (*domain.ExperienceInstance, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ExperienceInstance), args.Error(1)
}

type PaymentRepository struct {
	mock.Mock
}

func (m *PaymentRepository) SaveOrder(ctx context.Context, order *domain.PaymentOrder) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *PaymentRepository) GetOrder(ctx context.Context, orderID string) (*domain.PaymentOrder, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PaymentOrder), args.Error(1)
}

func (m *PaymentRepository) FindSuccessful(ctx context.Context, gatewayPaymentID string) (*domain.Payment, error) {
	args := m.Called(ctx, gatewayPaymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *PaymentRepository) RecordFailure(ctx context.Context, failure *domain.PaymentFailure) error {
	args := m.Called(ctx, failure)
	return args.Error(0)
}

type DiscountRepository struct {
	mock.Mock
}

func (m *DiscountRepository) GetByCode(ctx context.Context, code string) (*domain.DiscountCode, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DiscountCode), args.Error(1)
}

func (m *DiscountRepository) IncrementUsage(ctx context.Context, code string) (bool, error) {
	args := m.Called(ctx, code)
	return args.Bool(0), args.Error(1)
}

type AuditRepository struct {
	mock.Mock
}

func (m *AuditRepository) Record(ctx context.Context, event *domain.AuditEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

var (
	_ repository.BookingRepository    = (*BookingRepository)(nil)
	_ repository.PropertyRepository   = (*PropertyRepository)(nil)
	_ repository.ExperienceRepository = (*ExperienceRepository)(nil)
	_ repository.PaymentRepository    = (*PaymentRepository)(nil)
	_ repository.DiscountRepository   = (*DiscountRepository)(nil)
	_ repository.AuditRepository      = (*AuditRepository)(nil)
)
