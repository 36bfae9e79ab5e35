package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNotFound              = errors.New("not found")
	ErrInvalidRange          = errors.New("check-out must be after check-in")
	ErrAvailabilityConflict  = errors.New("requested dates or capacity are no longer available")
	ErrAvailabilityCheck     = errors.New("availability check failed")
	ErrPriceCalculation      = errors.New("price calculation failed")
	ErrPersistence           = errors.New("persistence failure")
	ErrSignatureVerification = errors.New("payment signature verification failed")
	ErrPaymentVerification   = errors.New("payment could not be verified with the gateway")
	ErrGateway               = errors.New("payment gateway failure")
	ErrPaymentCancelled      = errors.New("payment cancelled by user")
	ErrDuplicateReference    = errors.New("booking reference already exists")
	ErrInvalidState          = errors.New("booking is not in a payable state")
	ErrAlreadyPaid           = errors.New("booking already has a successful payment")
	ErrUnauthorized          = errors.New("unauthorized")
)

// ValidationError lists every rule an input violated.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Problems, "; ")
}

func NewValidationError(problems ...string) *ValidationError {
	return &ValidationError{Problems: problems}
}

// RateLimitError is returned before any write when an identity exceeded its quota.
type RateLimitError struct {
	Identifier string
	Action     string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s, retry after %s", e.Action, e.RetryAfter.Round(time.Second))
}
