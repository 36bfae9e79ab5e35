package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/Domenick1991/haven/internal/domain"
	"github.com/Domenick1991/haven/internal/service/payment"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockPaymentUseCase struct {
	mock.Mock
}

func (m *MockPaymentUseCase) Initiate(ctx context.Context, input payment.InitiateInput) (*payment.Checkout, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Checkout), args.Error(1)
}

func (m *MockPaymentUseCase) OnGatewaySuccess(ctx context.Context, input payment.VerifyInput) (*payment.Confirmation, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Confirmation), args.Error(1)
}

func (m *MockPaymentUseCase) OnGatewayFailure(ctx context.Context, input payment.FailureInput) (*domain.PaymentFailure, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PaymentFailure), args.Error(1)
}

func TestPaymentHandler_initiate(t *testing.T) {
	mockService := &MockPaymentUseCase{}
	handler := NewPaymentHandler(mockService, quietLogger())
	input := payment.InitiateInput{BookingID: uuid.NewString(), Amount: domain.Rupees(14160), Currency: "INR"}

	c, w := jsonContext(t, http.MethodPost, "/payments/orders", input)
	mockService.On("Initiate", c.Request.Context(), input).Return(&payment.Checkout{
		OrderID: "order_1", KeyID: "rzp_test_key", Amount: domain.Rupees(14160), Currency: "INR",
	}, nil)

	handler.initiate(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	body := decode(t, w)
	assert.Equal(t, "order_1", body["order_id"])
	assert.Equal(t, "rzp_test_key", body["key_id"])
	assert.Equal(t, float64(1416000), body["amount"])
}

func TestPaymentHandler_initiateBinding(t *testing.T) {
	mockService := &MockPaymentUseCase{}
	handler := NewPaymentHandler(mockService, quietLogger())

	c, w := jsonContext(t, http.MethodPost, "/payments/orders", map[string]string{"booking_id": "not-a-uuid"})
	handler.initiate(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "booking_id is invalid")
	mockService.AssertNotCalled(t, "Initiate", mock.Anything, mock.Anything)
}

func TestPaymentHandler_verify(t *testing.T) {
	mockService := &MockPaymentUseCase{}
	handler := NewPaymentHandler(mockService, quietLogger())
	input := payment.VerifyInput{OrderID: "order_1", PaymentID: "pay_1", Signature: "abc"}
	b := stayBooking()
	b.Status = domain.BookingStatusConfirmed
	b.PaymentStatus = domain.PaymentStatusPaid

	c, w := jsonContext(t, http.MethodPost, "/payments/verify", input)
	mockService.On("OnGatewaySuccess", c.Request.Context(), input).Return(&payment.Confirmation{Booking: b, Replayed: true}, nil)

	handler.verify(c)

	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["replayed"])
	assert.Equal(t, "Paid", body["booking"].(map[string]interface{})["payment_status"])
}

func TestPaymentHandler_verifyErrors(t *testing.T) {
	testCases := []struct {
		name   string
		err    error
		status int
	}{
		{name: "bad signature", err: domain.ErrSignatureVerification, status: http.StatusBadRequest},
		{name: "not captured", err: domain.ErrPaymentVerification, status: http.StatusBadRequest},
		{name: "gateway down", err: domain.ErrGateway, status: http.StatusBadGateway},
		{name: "unknown order", err: domain.ErrNotFound, status: http.StatusNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mockService := &MockPaymentUseCase{}
			handler := NewPaymentHandler(mockService, quietLogger())
			input := payment.VerifyInput{OrderID: "order_1", PaymentID: "pay_1", Signature: "abc"}
			c, w := jsonContext(t, http.MethodPost, "/payments/verify", input)
			mockService.On("OnGatewaySuccess", c.Request.Context(), input).Return(nil, tc.err)

			handler.verify(c)

			assert.Equal(t, tc.status, w.Code)
		})
	}
}

func TestPaymentHandler_verifyRequiresAllFields(t *testing.T) {
	mockService := &MockPaymentUseCase{}
	handler := NewPaymentHandler(mockService, quietLogger())

	c, w := jsonContext(t, http.MethodPost, "/payments/verify", map[string]string{"razorpay_order_id": "order_1"})
	handler.verify(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "razorpay_payment_id is required")
	assert.Contains(t, w.Body.String(), "razorpay_signature is required")
}

func TestPaymentHandler_failure(t *testing.T) {
	mockService := &MockPaymentUseCase{}
	handler := NewPaymentHandler(mockService, quietLogger())
	input := payment.FailureInput{OrderID: "order_1", Code: payment.CodeCancelled}
	bookingID := uuid.New()

	c, w := jsonContext(t, http.MethodPost, "/payments/failure", input)
	mockService.On("OnGatewayFailure", c.Request.Context(), input).Return(&domain.PaymentFailure{
		BookingID: bookingID, OrderID: "order_1", Code: payment.CodeCancelled, Cancelled: true,
	}, nil)

	handler.failure(c)

	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["cancelled"])
	assert.Equal(t, bookingID.String(), body["booking_id"])
	assert.Equal(t, true, body["retryable"])
}
