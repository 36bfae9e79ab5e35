package bootstrap

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Domenick1991/haven/api"
	"github.com/Domenick1991/haven/config"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func testRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := config.Default()
	cfg.Auth.JWTSecret = "test-secret"
	return NewRouter(cfg, Services{Health: map[string]api.Pinger{}}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestNewRouter_Routes(t *testing.T) {
	r := testRouter()

	got := make(map[string]bool)
	for _, route := range r.Routes() {
		got[route.Method+" "+route.Path] = true
	}
	for _, want := range []string{
		"GET /api/v1/health",
		"POST /api/v1/quotes/property",
		"POST /api/v1/quotes/experience",
		"GET /api/v1/availability/property",
		"GET /api/v1/availability/experience",
		"POST /api/v1/discounts/validate",
		"POST /api/v1/bookings",
		"POST /api/v1/bookings/guest",
		"GET /api/v1/bookings/:id",
		"DELETE /api/v1/bookings/:id",
		"POST /api/v1/bookings/:id/cancel",
		"POST /api/v1/payments/orders",
		"POST /api/v1/payments/verify",
		"POST /api/v1/payments/failure",
	} {
		assert.True(t, got[want], "missing route %s", want)
	}
}

func TestNewRouter_AuthGuardsBookingCreation(t *testing.T) {
	r := testRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestNewRouter_AuthGuardsBookingCancellation(t *testing.T) {
	r := testRouter()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/v1/bookings/"+uuid.NewString(), nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestNewRouter_Health(t *testing.T) {
	r := testRouter()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"OK"`)
}
