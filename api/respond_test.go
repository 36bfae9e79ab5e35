package api

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/Domenick1991/haven/internal/domain"
	"github.com/Domenick1991/haven/internal/service/failure"
	"github.com/stretchr/testify/assert"
)

func TestStatusFor(t *testing.T) {
	testCases := []struct {
		class  failure.Classification
		status int
	}{
		{failure.Classification{Category: failure.CategoryValidation}, http.StatusBadRequest},
		{failure.Classification{Category: failure.CategoryNotFound}, http.StatusNotFound},
		{failure.Classification{Category: failure.CategoryConstraint}, http.StatusConflict},
		{failure.Classification{Category: failure.CategoryRateLimited, Retryable: true}, http.StatusTooManyRequests},
		{failure.Classification{Category: failure.CategoryPayment}, http.StatusBadRequest},
		{failure.Classification{Category: failure.CategoryNetwork, Retryable: true}, http.StatusBadGateway},
		{failure.Classification{Category: failure.CategoryAuth}, http.StatusUnauthorized},
		{failure.Classification{Category: failure.CategoryGeneric, Retryable: true}, http.StatusServiceUnavailable},
		{failure.Classification{Category: failure.CategoryGeneric}, http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		t.Run(string(tc.class.Category), func(t *testing.T) {
			assert.Equal(t, tc.status, statusFor(tc.class))
		})
	}
}

func TestRespondError_RoundsRetryAfterUp(t *testing.T) {
	c, w := jsonContext(t, http.MethodGet, "/", nil)

	respondError(c, quietLogger(), &domain.RateLimitError{Action: "guest_booking", RetryAfter: 1500 * time.Millisecond})

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "2", w.Header().Get("Retry-After"))
}

func TestRespondError_HidesUnknownErrors(t *testing.T) {
	c, w := jsonContext(t, http.MethodGet, "/", nil)

	respondError(c, quietLogger(), errors.New("pq: relation \"bookings\" does not exist"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, failure.GenericMessage, decode(t, w)["error"])
	assert.NotContains(t, w.Body.String(), "relation")
}

func TestHealthHandler(t *testing.T) {
	ok := PingFunc(func(context.Context) error { return nil })
	down := PingFunc(func(context.Context) error { return errors.New("dial tcp: refused") })

	c, w := jsonContext(t, http.MethodGet, "/health", nil)
	NewHealthHandler(map[string]Pinger{"postgres": ok, "redis": ok}, quietLogger()).health(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", decode(t, w)["status"])

	c, w = jsonContext(t, http.MethodGet, "/health", nil)
	NewHealthHandler(map[string]Pinger{"postgres": ok, "kafka": down}, quietLogger()).health(c)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	body := decode(t, w)
	assert.Equal(t, "DEGRADED", body["status"])
	assert.Equal(t, map[string]interface{}{"postgres": "up", "kafka": "down"}, body["dependencies"])
	assert.NotContains(t, w.Body.String(), "refused")
}
