package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/haven/config"
	"github.com/Domenick1991/haven/internal/email"
	"github.com/Domenick1991/haven/internal/kafka"
	"github.com/Domenick1991/haven/internal/repository"
	"github.com/Domenick1991/haven/internal/service/availability"
	"github.com/Domenick1991/haven/internal/service/booking"
	"github.com/Domenick1991/haven/internal/service/discount"
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
	logger := config.NewLogger(cfg).With("process", "worker")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		logger.Error("connect postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	producer := kafka.NewProducer(cfg.Kafka.Brokers, logger)
	defer producer.Close()
	events := kafka.NewEventPublisher(producer, cfg.Kafka.BookingEventsTopic, cfg.Kafka.NotificationsTopic)

	bookingRepo := repository.NewBookingRepository(pool)
	propertyRepo := repository.NewPropertyRepository(pool)
	experienceRepo := repository.NewExperienceRepository(pool)
	bookingService := booking.NewBookingService(
		bookingRepo,
		propertyRepo,
		availability.NewAvailabilityService(bookingRepo, experienceRepo),
		pricing.NewPricingService(propertyRepo, experienceRepo,
			discount.NewDiscountService(repository.NewDiscountRepository(pool), bookingRepo)),
		booking.WithEventPublisher(events),
		booking.WithLogger(logger),
	)

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic)
	defer consumer.Close()
	sender := email.NewSender(logger)

	go func() {
		err := consumer.Consume(ctx, sender.Handle)
		if err != nil && ctx.Err() == nil {
			logger.Error("consumer stopped", "error", err)
		}
	}()

	if cfg.Booking.HoldTTL() == 0 {
		logger.Info("booking hold expiry disabled")
	}

	every := time.Duration(cfg.Worker.ExpirationSweepMinutes) * time.Minute
	sweep := time.NewTicker(every)
	defer sweep.Stop()

	logger.Info("worker started", "sweep_every", every.String())
	for {
		select {
		case <-sweep.C:
			expired, err := bookingService.ExpirePendingBookings(ctx)
			if err != nil {
				logger.Error("expire bookings", "error", err)
				continue
			}
			if len(expired) > 0 {
				logger.Info("released expired holds", "count", len(expired))
			}
		case <-ctx.Done():
			logger.Info("worker shutting down")
			return
		}
	}
}
