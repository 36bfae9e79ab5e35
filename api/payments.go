package api

import (
	"log/slog"
	"net/http"

	"github.com/Domenick1991/haven/internal/service/payment"
	"github.com/gin-gonic/gin"
)

type PaymentHandler struct {
	service payment.PaymentUseCase
	logger  *slog.Logger
}

func NewPaymentHandler(service payment.PaymentUseCase, logger *slog.Logger) *PaymentHandler {
	return &PaymentHandler{service: service, logger: logger}
}

func (h *PaymentHandler) Register(router *gin.RouterGroup) {
	router.POST("/orders", h.initiate)
	router.POST("/verify", h.verify)
	router.POST("/failure", h.failure)
}

func (h *PaymentHandler) initiate(c *gin.Context) {
	var req payment.InitiateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, bindProblems(err)...)
		return
	}

	checkout, err := h.service.Initiate(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, checkout)
}

func (h *PaymentHandler) verify(c *gin.Context) {
	var req payment.VerifyInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, bindProblems(err)...)
		return
	}

	res, err := h.service.OnGatewaySuccess(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"verified": true,
		"replayed": res.Replayed,
		"booking":  toBookingResponse(res.Booking),
	})
}

// failure always answers 200 once recorded: a cancelled or declined payment
// is a normal end to a checkout attempt.
func (h *PaymentHandler) failure(c *gin.Context) {
	var req payment.FailureInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, bindProblems(err)...)
		return
	}

	f, err := h.service.OnGatewayFailure(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	message := "Payment failed. You can try again with the same booking."
	if f.Cancelled {
		message = "Payment was cancelled. You can retry whenever you are ready."
	}
	c.JSON(http.StatusOK, gin.H{
		"recorded":   true,
		"cancelled":  f.Cancelled,
		"booking_id": f.BookingID.String(),
		"retryable":  true,
		"message":    message,
	})
}
