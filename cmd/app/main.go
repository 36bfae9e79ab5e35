package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/haven/api"
	"github.com/Domenick1991/haven/config"
	"github.com/Domenick1991/haven/internal/bootstrap"
	"github.com/Domenick1991/haven/internal/cache"
	"github.com/Domenick1991/haven/internal/domain"
	"github.com/Domenick1991/haven/internal/gateway"
	"github.com/Domenick1991/haven/internal/kafka"
	"github.com/Domenick1991/haven/internal/repository"
	"github.com/Domenick1991/haven/internal/service/availability"
	"github.com/Domenick1991/haven/internal/service/booking"
	"github.com/Domenick1991/haven/internal/service/discount"
	"github.com/Domenick1991/haven/internal/service/failure"
	"github.com/Domenick1991/haven/internal/service/payment"
	"github.com/Domenick1991/haven/internal/service/pricing"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load(".env.local")

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	logger := config.NewLogger(cfg)
	logger.Info("starting haven api", "environment", cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		logger.Error("connect postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	redisCache := cache.NewRedisCache(cfg.Redis, time.Duration(cfg.Pricing.ExternalRateTTLSecs)*time.Second)
	defer redisCache.Close()
	limiter := cache.NewRateLimiter(redisCache.Client())

	producer := kafka.NewProducer(cfg.Kafka.Brokers, logger)
	defer producer.Close()
	events := kafka.NewEventPublisher(producer, cfg.Kafka.BookingEventsTopic, cfg.Kafka.NotificationsTopic)

	bookingRepo := repository.NewBookingRepository(pool)
	propertyRepo := repository.NewPropertyRepository(pool)
	experienceRepo := repository.NewExperienceRepository(pool)
	paymentRepo := repository.NewPaymentRepository(pool)
	discountRepo := repository.NewDiscountRepository(pool)
	auditRepo := repository.NewAuditRepository(pool)

	failures := failure.NewHandler(auditRepo, limiter, logger,
		failure.WithSuspicionThreshold(cfg.Booking.SecurityAlertThreshold),
	)
	discountService := discount.NewDiscountService(discountRepo, bookingRepo)
	availabilityService := availability.NewAvailabilityService(bookingRepo, experienceRepo)
	pricingService := pricing.NewPricingService(propertyRepo, experienceRepo, discountService,
		pricing.WithTaxRate(cfg.Pricing.TaxRatePercent),
		pricing.WithInterState(cfg.Pricing.InterState),
		pricing.WithRateCache(redisCache),
		pricing.WithLogger(logger),
	)
	bookingService := booking.NewBookingService(bookingRepo, propertyRepo, availabilityService, pricingService,
		booking.WithPolicy(booking.Policy{
			HoldTTL:           cfg.Booking.HoldTTL(),
			GuestLimitPerHour: cfg.Booking.GuestLimitPerHour,
			MaxAmount:         domain.Money(cfg.Booking.MaxAmountPaise),
			MaxAdvanceYears:   cfg.Booking.MaxAdvanceYears,
			MaxAttendees:      cfg.Booking.MaxAttendees,
		}),
		booking.WithLimiter(limiter),
		booking.WithFailureRecorder(failures),
		booking.WithEventPublisher(events),
		booking.WithLogger(logger),
	)
	paymentService := payment.NewPaymentService(bookingRepo, paymentRepo,
		gateway.NewRazorpay(cfg.Payment.KeyID, cfg.Payment.KeySecret),
		cfg.Payment.KeyID,
		payment.WithDiscounts(discountService),
		payment.WithSecurityRecorder(failures),
		payment.WithEventPublisher(events),
		payment.WithLogger(logger),
	)

	err = bootstrap.Run(ctx, cfg, bootstrap.Services{
		Availability: availabilityService,
		Pricing:      pricingService,
		Discounts:    discountService,
		Bookings:     bookingService,
		Payments:     paymentService,
		Health: map[string]api.Pinger{
			"postgres": pool,
			"redis":    redisCache,
			"kafka":    api.PingFunc(producer.CheckConnection),
		},
	}, logger)
	if err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
	logger.Info("server exited")
}
