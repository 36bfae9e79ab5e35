package repository

import (
	"context"

	"github.com/Domenick1991/haven/internal/domain"
)

type PaymentRepository interface {
	SaveOrder(ctx context.Context, order *domain.PaymentOrder) error
	GetOrder(ctx context.Context, orderID string) (*domain.PaymentOrder, error)
	FindSuccessful(ctx context.Context, gatewayPaymentID string) (*domain.Payment, error)
	RecordFailure(ctx context.Context, failure *domain.PaymentFailure) error
}

type PGPaymentRepository struct {
	db DB
}

func NewPaymentRepository(db DB) PaymentRepository {
	return &PGPaymentRepository{db: db}
}

func (r *PGPaymentRepository) SaveOrder(ctx context.Context, order *domain.PaymentOrder) error {
	err := r.db.QueryRow(ctx, `INSERT INTO payment_orders (order_id, booking_id, amount, currency)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`, order.OrderID, order.BookingID, int64(order.Amount), order.Currency).Scan(&order.CreatedAt)
	return translate("save payment order", err)
}

func (r *PGPaymentRepository) GetOrder(ctx context.Context, orderID string) (*domain.PaymentOrder, error) {
	var (
		o      domain.PaymentOrder
		amount int64
	)
	err := r.db.QueryRow(ctx, `SELECT order_id, booking_id, amount, currency, created_at FROM payment_orders WHERE order_id=$1`, orderID).
		Scan(&o.OrderID, &o.BookingID, &amount, &o.Currency, &o.CreatedAt)
	if err != nil {
		return nil, translate("get payment order", err)
	}
	o.Amount = domain.Money(amount)
	return &o, nil
}

func (r *PGPaymentRepository) FindSuccessful(ctx context.Context, gatewayPaymentID string) (*domain.Payment, error) {
	var (
		p              domain.Payment
		amount         int64
		status, method string
	)
	err := r.db.QueryRow(ctx, `SELECT id, booking_id, gateway_order_id, gateway_payment_id, amount, currency, method, status, created_at
		FROM payments WHERE gateway_payment_id=$1 AND status=$2`, gatewayPaymentID, string(domain.PaymentSuccessful)).
		Scan(&p.ID, &p.BookingID, &p.GatewayOrderID, &p.GatewayPaymentID, &amount, &p.Currency, &method, &status, &p.CreatedAt)
	if err != nil {
		return nil, translate("find payment", err)
	}
	p.Amount = domain.Money(amount)
	p.Method = method
	p.Status = domain.PaymentRecordStatus(status)
	return &p, nil
}

func (r *PGPaymentRepository) RecordFailure(ctx context.Context, failure *domain.PaymentFailure) error {
	err := r.db.QueryRow(ctx, `INSERT INTO payment_failures (booking_id, order_id, code, message, cancelled)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`, failure.BookingID, failure.OrderID, failure.Code, failure.Message, failure.Cancelled).
		Scan(&failure.ID, &failure.CreatedAt)
	return translate("record payment failure", err)
}

var _ PaymentRepository = (*PGPaymentRepository)(nil)
