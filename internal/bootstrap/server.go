package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Domenick1991/haven/api"
	"github.com/Domenick1991/haven/config"
	"github.com/Domenick1991/haven/internal/middleware"
	"github.com/Domenick1991/haven/internal/service/availability"
	"github.com/Domenick1991/haven/internal/service/booking"
	"github.com/Domenick1991/haven/internal/service/discount"
	"github.com/Domenick1991/haven/internal/service/payment"
	"github.com/Domenick1991/haven/internal/service/pricing"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Services struct {
	Availability availability.AvailabilityUseCase
	Pricing      pricing.PricingUseCase
	Discounts    discount.DiscountUseCase
	Bookings     booking.BookingUseCase
	Payments     payment.PaymentUseCase
	Health       map[string]api.Pinger
}

// Run serves the HTTP API and blocks until ctx is cancelled or the server fails.
func Run(ctx context.Context, cfg *config.Config, svc Services, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      NewRouter(cfg, svc, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server starting", "address", cfg.HTTP.Address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Info("http server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	}
}

func NewRouter(cfg *config.Config, svc Services, logger *slog.Logger) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.HTTP.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", "Retry-After", middleware.RequestIDHeader},
		AllowCredentials: true,
	}))
	r.Use(middleware.RequestID())
	r.Use(middleware.StructuredLogger(logger))
	r.Use(gin.Recovery())

	v1 := r.Group("/api/v1")
	api.NewHealthHandler(svc.Health, logger).Register(v1)
	api.NewQuoteHandler(svc.Pricing, svc.Availability, logger).Register(v1.Group("/quotes"), v1.Group("/availability"))
	api.NewDiscountHandler(svc.Discounts, logger).Register(v1.Group("/discounts"))

	bookings := v1.Group("/bookings")
	authed := bookings.Group("", middleware.Auth(cfg.Auth.JWTSecret, logger))
	api.NewBookingHandler(svc.Bookings, logger).Register(bookings, authed)

	api.NewPaymentHandler(svc.Payments, logger).Register(v1.Group("/payments"))
	return r
}
