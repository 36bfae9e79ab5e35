package failure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/Domenick1991/haven/internal/cache"
	"github.com/Domenick1991/haven/internal/domain"
	"github.com/Domenick1991/haven/internal/repository"
)

type Category string

const (
	CategoryValidation  Category = "validation"
	CategoryConstraint  Category = "constraint"
	CategoryNetwork     Category = "network"
	CategoryRateLimited Category = "rate_limited"
	CategoryNotFound    Category = "not_found"
	CategoryPayment     Category = "payment"
	CategoryCancelled   Category = "cancelled"
	CategoryAuth        Category = "unauthorized"
	CategoryGeneric     Category = "generic"
)

const GenericMessage = "An unexpected error occurred. Please try again or contact support."

// Classification is what a caller may show an end user. It never carries
// the text of the underlying error.
type Classification struct {
	Category   Category
	Message    string
	Problems   []string
	Retryable  bool
	RetryAfter time.Duration
}

func Classify(err error) Classification {
	var (
		verr *domain.ValidationError
		rerr *domain.RateLimitError
		nerr net.Error
	)
	switch {
	case err == nil:
		return Classification{}
	case errors.As(err, &verr):
		return Classification{Category: CategoryValidation, Message: "Please correct the highlighted fields.", Problems: verr.Problems}
	case errors.Is(err, domain.ErrInvalidRange):
		return Classification{Category: CategoryValidation, Message: "Check-out must be after check-in.", Problems: []string{domain.ErrInvalidRange.Error()}}
	case errors.As(err, &rerr):
		return Classification{
			Category:   CategoryRateLimited,
			Message:    fmt.Sprintf("Too many attempts. Please try again in %s.", humanize(rerr.RetryAfter)),
			Retryable:  true,
			RetryAfter: rerr.RetryAfter,
		}
	case errors.Is(err, domain.ErrAvailabilityConflict):
		return Classification{Category: CategoryConstraint, Message: "Those dates or spots are no longer available. Please choose different dates or another session."}
	case errors.Is(err, domain.ErrDuplicateReference):
		return Classification{Category: CategoryConstraint, Message: "We could not reserve a booking reference. Please try again.", Retryable: true}
	case errors.Is(err, domain.ErrAlreadyPaid), errors.Is(err, domain.ErrInvalidState):
		return Classification{Category: CategoryConstraint, Message: "This booking can no longer be paid for or changed."}
	case errors.Is(err, domain.ErrNotFound):
		return Classification{Category: CategoryNotFound, Message: "We could not find what you were looking for."}
	case errors.Is(err, domain.ErrSignatureVerification), errors.Is(err, domain.ErrPaymentVerification):
		return Classification{Category: CategoryPayment, Message: "We could not verify this payment. If money was deducted, contact support with your payment ID."}
	case errors.Is(err, domain.ErrPaymentCancelled):
		return Classification{Category: CategoryCancelled, Message: "Payment was cancelled. You can retry whenever you are ready.", Retryable: true}
	case errors.Is(err, domain.ErrGateway), errors.Is(err, context.DeadlineExceeded), errors.As(err, &nerr):
		return Classification{Category: CategoryNetwork, Message: "We could not reach the payment service. Please check your connection and try again.", Retryable: true}
	case errors.Is(err, domain.ErrPriceCalculation):
		return Classification{Category: CategoryGeneric, Message: "We could not calculate a price right now. Please try again shortly.", Retryable: true}
	case errors.Is(err, domain.ErrAvailabilityCheck):
		return Classification{Category: CategoryGeneric, Message: "We could not check availability right now. Please try again shortly.", Retryable: true}
	case errors.Is(err, domain.ErrUnauthorized):
		return Classification{Category: CategoryAuth, Message: "Please sign in to continue."}
	}
	return classifyText(err.Error())
}

// classifyText catches driver and transport errors that arrive unwrapped.
func classifyText(text string) Classification {
	lower := strings.ToLower(text)
	switch {
	case containsAny(lower, "violates", "constraint", "duplicate key"):
		return Classification{Category: CategoryConstraint, Message: "This request conflicts with existing data. Please review and try again."}
	case containsAny(lower, "timeout", "timed out", "network", "connection refused", "connection reset"):
		return Classification{Category: CategoryNetwork, Message: "The connection timed out. Please try again.", Retryable: true}
	default:
		return Classification{Category: CategoryGeneric, Message: GenericMessage}
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func humanize(d time.Duration) string {
	if d < time.Minute {
		return "a minute"
	}
	mins := int((d + time.Minute - 1) / time.Minute)
	if mins == 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", mins)
}

type Limiter interface {
	Allow(ctx context.Context, identifier, action string, limit int, window time.Duration) (cache.Decision, error)
}

// Handler records rate-limit and security events for audit and watches for
// identities that trip them repeatedly.
type Handler struct {
	audit     repository.AuditRepository
	limiter   Limiter
	logger    *slog.Logger
	threshold int
	now       func() time.Time
}

type HandlerOption func(*Handler)

func WithSuspicionThreshold(n int) HandlerOption {
	return func(h *Handler) {
		h.threshold = n
	}
}

func WithClock(now func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.now = now
	}
}

func NewHandler(audit repository.AuditRepository, limiter Limiter, logger *slog.Logger, opts ...HandlerOption) *Handler {
	h := &Handler{audit: audit, limiter: limiter, logger: logger, threshold: 5, now: time.Now}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) RecordRateLimit(ctx context.Context, identifier, action string, retryAfter time.Duration) {
	h.logger.WarnContext(ctx, "rate limit exceeded",
		"identifier", identifier,
		"action", action,
		"retry_after", retryAfter.String(),
		"at", h.now().UTC(),
	)
	h.persist(ctx, identifier, "rate_limited:"+action, fmt.Sprintf("retry after %s", retryAfter))
	h.watch(ctx, identifier)
}

// RecordSecurityEvent must never be passed secrets or signatures in detail.
func (h *Handler) RecordSecurityEvent(ctx context.Context, identifier, action, detail string) {
	h.logger.WarnContext(ctx, "security event",
		"identifier", identifier,
		"action", action,
		"detail", detail,
		"at", h.now().UTC(),
	)
	h.persist(ctx, identifier, "security:"+action, detail)
	h.watch(ctx, identifier)
}

func (h *Handler) persist(ctx context.Context, identifier, action, detail string) {
	if h.audit == nil {
		return
	}
	if err := h.audit.Record(ctx, &domain.AuditEvent{Identifier: identifier, Action: action, Detail: detail}); err != nil {
		h.logger.ErrorContext(ctx, "audit write failed", "identifier", identifier, "action", action, "error", err)
	}
}

// watch counts events per identifier over an hour and raises an alert once
// the count passes the threshold.
func (h *Handler) watch(ctx context.Context, identifier string) {
	if h.limiter == nil || h.threshold <= 0 {
		return
	}
	d, err := h.limiter.Allow(ctx, identifier, "security_events", h.threshold, time.Hour)
	if err != nil {
		h.logger.ErrorContext(ctx, "suspicious activity counter failed", "identifier", identifier, "error", err)
		return
	}
	if !d.Allowed {
		h.logger.ErrorContext(ctx, "suspicious activity detected",
			"identifier", identifier,
			"threshold", h.threshold,
			"window", time.Hour.String(),
		)
		h.persist(ctx, identifier, "security:suspicious_activity", fmt.Sprintf("more than %d events in an hour", h.threshold))
	}
}
