package api

import (
	"log/slog"
	"net/http"

	"github.com/Domenick1991/haven/internal/domain"
	"github.com/Domenick1991/haven/internal/middleware"
	"github.com/Domenick1991/haven/internal/service/booking"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type BookingHandler struct {
	service booking.BookingUseCase
	logger  *slog.Logger
}

type addonResponse struct {
	InstanceID string `json:"instance_id"`
	Attendees  int    `json:"attendees"`
}

type bookingResponse struct {
	ID            string                `json:"id"`
	Reference     string                `json:"booking_reference"`
	Type          string                `json:"type"`
	Status        string                `json:"booking_status"`
	PaymentStatus string                `json:"payment_status"`
	PropertyID    string                `json:"property_id,omitempty"`
	CheckIn       string                `json:"check_in,omitempty"`
	CheckOut      string                `json:"check_out,omitempty"`
	Guests        int                   `json:"guests,omitempty"`
	Addons        []addonResponse       `json:"addons,omitempty"`
	InstanceID    string                `json:"instance_id,omitempty"`
	Attendees     int                   `json:"attendees,omitempty"`
	Contact       domain.GuestContact   `json:"contact"`
	Price         domain.PriceBreakdown `json:"price_breakdown"`
	AmountPaid    domain.Money          `json:"amount_paid"`
	PaymentID     *string               `json:"payment_id,omitempty"`
	ExpiresAt     *string               `json:"expires_at,omitempty"`
	ConfirmedAt   *string               `json:"confirmed_at,omitempty"`
}

func toBookingResponse(b *domain.Booking) bookingResponse {
	res := bookingResponse{
		ID:            b.ID.String(),
		Reference:     b.Reference,
		Type:          string(b.Kind),
		Status:        string(b.Status),
		PaymentStatus: string(b.PaymentStatus),
		Contact:       b.Contact,
		Price:         b.Price,
		AmountPaid:    b.AmountPaid,
		PaymentID:     b.PaymentID,
		ExpiresAt:     optionalTime(b.ExpiresAt),
		ConfirmedAt:   optionalTime(b.ConfirmedAt),
	}
	switch b.Kind {
	case domain.KindProperty:
		res.PropertyID = b.Property.PropertyID.String()
		res.CheckIn = b.Property.CheckIn.Format(dateLayout)
		res.CheckOut = b.Property.CheckOut.Format(dateLayout)
		res.Guests = b.Property.Guests
		for _, a := range b.Property.Addons {
			res.Addons = append(res.Addons, addonResponse{InstanceID: a.InstanceID.String(), Attendees: a.Attendees})
		}
	case domain.KindExperience:
		res.InstanceID = b.Experience.InstanceID.String()
		res.Attendees = b.Experience.Attendees
	}
	return res
}

func NewBookingHandler(service booking.BookingUseCase, logger *slog.Logger) *BookingHandler {
	return &BookingHandler{service: service, logger: logger}
}

// Register mounts the public routes on public and the token-protected
// routes on authed. Guests cancel with their reference and email instead of
// a token.
func (h *BookingHandler) Register(public, authed *gin.RouterGroup) {
	public.POST("/guest", h.createGuest)
	public.GET("/:id", h.get)
	public.POST("/:id/cancel", h.cancelGuest)
	authed.POST("", h.create)
	authed.DELETE("/:id", h.cancel)
}

func (h *BookingHandler) create(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		respondError(c, h.logger, domain.ErrUnauthorized)
		return
	}
	var req booking.CreateBookingInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, msgBadBody)
		return
	}

	b, err := h.service.CreateBooking(c.Request.Context(), user, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, toBookingResponse(b))
}

func (h *BookingHandler) createGuest(c *gin.Context) {
	var req booking.CreateGuestBookingInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, msgBadBody)
		return
	}

	b, err := h.service.CreateGuestBooking(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, toBookingResponse(b))
}

func (h *BookingHandler) get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	b, err := h.service.GetBooking(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(b))
}

func (h *BookingHandler) cancel(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		respondError(c, h.logger, domain.ErrUnauthorized)
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	b, err := h.service.CancelBooking(c.Request.Context(), user, id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(b))
}

func (h *BookingHandler) cancelGuest(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req booking.CancelGuestBookingInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, msgBadBody)
		return
	}
	req.BookingID = id

	b, err := h.service.CancelGuestBooking(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(b))
}

func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "id must be a valid booking id")
		return uuid.Nil, false
	}
	return id, true
}
