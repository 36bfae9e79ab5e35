package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/Domenick1991/haven/internal/domain"
	"github.com/Domenick1991/haven/internal/service/availability"
	"github.com/Domenick1991/haven/internal/service/pricing"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type QuoteHandler struct {
	pricing      pricing.PricingUseCase
	availability availability.AvailabilityUseCase
	logger       *slog.Logger
}

type propertyQuoteRequest struct {
	PropertyID   uuid.UUID               `json:"property_id" binding:"required"`
	CheckIn      string                  `json:"check_in" binding:"required,datetime=2006-01-02"`
	CheckOut     string                  `json:"check_out" binding:"required,datetime=2006-01-02"`
	Addons       []domain.AddonSelection `json:"addons"`
	DiscountCode string                  `json:"discount_code" binding:"omitempty,max=64"`
	Email        string                  `json:"email" binding:"omitempty,email"`
}

type experienceQuoteRequest struct {
	InstanceID   uuid.UUID `json:"instance_id" binding:"required"`
	Attendees    int       `json:"attendees" binding:"required,min=1"`
	DiscountCode string    `json:"discount_code" binding:"omitempty,max=64"`
	Email        string    `json:"email" binding:"omitempty,email"`
}

type propertyAvailabilityQuery struct {
	PropertyID string `form:"property_id" binding:"required,uuid"`
	CheckIn    string `form:"check_in" binding:"required,datetime=2006-01-02"`
	CheckOut   string `form:"check_out" binding:"required,datetime=2006-01-02"`
}

type experienceAvailabilityQuery struct {
	InstanceID string `form:"instance_id" binding:"required,uuid"`
	Attendees  int    `form:"attendees" binding:"required,min=1"`
}

func NewQuoteHandler(pricer pricing.PricingUseCase, checker availability.AvailabilityUseCase, logger *slog.Logger) *QuoteHandler {
	return &QuoteHandler{pricing: pricer, availability: checker, logger: logger}
}

// Register mounts quote routes on quotes and availability routes on avail.
func (h *QuoteHandler) Register(quotes, avail *gin.RouterGroup) {
	quotes.POST("/property", h.quoteProperty)
	quotes.POST("/experience", h.quoteExperience)
	avail.GET("/property", h.propertyAvailability)
	avail.GET("/experience", h.experienceAvailability)
}

func (h *QuoteHandler) quoteProperty(c *gin.Context) {
	var req propertyQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, bindProblems(err)...)
		return
	}
	checkIn, _ := time.Parse(dateLayout, req.CheckIn)
	checkOut, _ := time.Parse(dateLayout, req.CheckOut)

	quote, err := h.pricing.QuoteProperty(c.Request.Context(), pricing.PropertyQuote{
		PropertyID:   req.PropertyID,
		CheckIn:      checkIn,
		CheckOut:     checkOut,
		Addons:       req.Addons,
		DiscountCode: req.DiscountCode,
		Email:        req.Email,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, quote)
}

func (h *QuoteHandler) quoteExperience(c *gin.Context) {
	var req experienceQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, bindProblems(err)...)
		return
	}

	quote, err := h.pricing.QuoteExperience(c.Request.Context(), pricing.ExperienceQuote{
		InstanceID:   req.InstanceID,
		Attendees:    req.Attendees,
		DiscountCode: req.DiscountCode,
		Email:        req.Email,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, quote)
}

func (h *QuoteHandler) propertyAvailability(c *gin.Context) {
	var q propertyAvailabilityQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, bindProblems(err)...)
		return
	}
	propertyID := uuid.MustParse(q.PropertyID)
	checkIn, _ := time.Parse(dateLayout, q.CheckIn)
	checkOut, _ := time.Parse(dateLayout, q.CheckOut)

	free, err := h.availability.CheckProperty(c.Request.Context(), propertyID, checkIn, checkOut)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"available": free})
}

func (h *QuoteHandler) experienceAvailability(c *gin.Context) {
	var q experienceAvailabilityQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, bindProblems(err)...)
		return
	}

	free, err := h.availability.CheckExperience(c.Request.Context(), uuid.MustParse(q.InstanceID), q.Attendees)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"available": free})
}
