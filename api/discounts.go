package api

import (
	"log/slog"
	"net/http"

	"github.com/Domenick1991/haven/internal/domain"
	"github.com/Domenick1991/haven/internal/service/discount"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type DiscountHandler struct {
	service discount.DiscountUseCase
	logger  *slog.Logger
}

// The amount is the subtotal the client is about to discount. The result is
// advisory; bookings re-validate the code against their own price.
type validateDiscountRequest struct {
	Code   string             `json:"code" binding:"required,max=64"`
	Type   domain.BookingKind `json:"type" binding:"required,oneof=property experience"`
	ItemID uuid.UUID          `json:"item_id" binding:"required"`
	Amount domain.Money       `json:"amount" binding:"min=0"`
	Email  string             `json:"email" binding:"omitempty,email"`
}

func NewDiscountHandler(service discount.DiscountUseCase, logger *slog.Logger) *DiscountHandler {
	return &DiscountHandler{service: service, logger: logger}
}

func (h *DiscountHandler) Register(router *gin.RouterGroup) {
	router.POST("/validate", h.validate)
}

func (h *DiscountHandler) validate(c *gin.Context) {
	var req validateDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, bindProblems(err)...)
		return
	}

	res, err := h.service.Validate(c.Request.Context(), discount.Request{
		Code:      req.Code,
		Kind:      req.Type,
		ItemID:    req.ItemID,
		Candidate: req.Amount,
		Email:     req.Email,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
