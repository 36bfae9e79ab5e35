package gateway

import (
	"context"
	"fmt"

	"github.com/Domenick1991/haven/internal/domain"
	"github.com/razorpay/razorpay-go"
)

const StatusCaptured = "captured"

type Order struct {
	ID       string
	Amount   domain.Money
	Currency string
	Status   string
}

type Payment struct {
	ID       string
	OrderID  string
	Amount   domain.Money
	Currency string
	Status   string
	Method   string
}

// orderAPI and paymentAPI are the slices of the Razorpay SDK this package calls.
type orderAPI interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

type paymentAPI interface {
	Fetch(paymentID string, queryParams map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

type Razorpay struct {
	orders    orderAPI
	payments  paymentAPI
	keySecret string
}

func NewRazorpay(keyID, keySecret string) *Razorpay {
	client := razorpay.NewClient(keyID, keySecret)
	return &Razorpay{orders: client.Order, payments: client.Payment, keySecret: keySecret}
}

// CreateOrder reserves amount with the gateway. The receipt is our booking
// reference and shows up on the gateway dashboard.
func (r *Razorpay) CreateOrder(ctx context.Context, amount domain.Money, currency, receipt string, notes map[string]string) (*Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	body := map[string]interface{}{
		"amount":   int64(amount),
		"currency": currency,
		"receipt":  receipt,
	}
	if len(notes) > 0 {
		body["notes"] = notes
	}
	res, err := r.orders.Create(body, nil)
	if err != nil {
		return nil, fmt.Errorf("create order: %w: %w", domain.ErrGateway, err)
	}
	order := &Order{
		ID:       str(res["id"]),
		Amount:   money(res["amount"]),
		Currency: str(res["currency"]),
		Status:   str(res["status"]),
	}
	if order.ID == "" {
		return nil, fmt.Errorf("create order: %w: response without id", domain.ErrGateway)
	}
	return order, nil
}

func (r *Razorpay) FetchPayment(ctx context.Context, paymentID string) (*Payment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res, err := r.payments.Fetch(paymentID, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch payment %s: %w: %w", paymentID, domain.ErrGateway, err)
	}
	if str(res["id"]) == "" {
		return nil, fmt.Errorf("fetch payment %s: %w: response without id", paymentID, domain.ErrGateway)
	}
	return &Payment{
		ID:       str(res["id"]),
		OrderID:  str(res["order_id"]),
		Amount:   money(res["amount"]),
		Currency: str(res["currency"]),
		Status:   str(res["status"]),
		Method:   str(res["method"]),
	}, nil
}

func (r *Razorpay) VerifySignature(orderID, paymentID, signature string) bool {
	return VerifySignature(r.keySecret, orderID, paymentID, signature)
}

func str(v interface{}) string {
	s, _ := v.(string)
	return s
}

// money accepts the numeric shapes a decoded JSON body can carry.
func money(v interface{}) domain.Money {
	switch n := v.(type) {
	case float64:
		return domain.Money(int64(n))
	case int64:
		return domain.Money(n)
	case int:
		return domain.Money(n)
	default:
		return 0
	}
}
