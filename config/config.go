package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string         `yaml:"environment"`
	HTTP        HTTPConfig     `yaml:"http"`
	Database    DatabaseConfig `yaml:"database"`
	Redis       RedisConfig    `yaml:"redis"`
	Kafka       KafkaConfig    `yaml:"kafka"`
	Booking     BookingConfig  `yaml:"booking"`
	Pricing     PricingConfig  `yaml:"pricing"`
	Payment     PaymentConfig  `yaml:"payment"`
	Auth        AuthConfig     `yaml:"auth"`
	Log         LogConfig      `yaml:"log"`
	Worker      WorkerConfig   `yaml:"worker"`
}

type HTTPConfig struct {
	Address        string   `yaml:"address"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Brokers            []string `yaml:"brokers"`
	BookingEventsTopic string   `yaml:"booking_events_topic"`
	NotificationsTopic string   `yaml:"notifications_topic"`
	GroupID            string   `yaml:"group_id"`
}

type BookingConfig struct {
	// HoldTTLMinutes is how long an unpaid booking keeps its dates/capacity. 0 disables expiry.
	HoldTTLMinutes         int   `yaml:"hold_ttl_minutes"`
	GuestLimitPerHour      int   `yaml:"guest_limit_per_hour"`
	MaxAmountPaise         int64 `yaml:"max_amount_paise"`
	MaxAdvanceYears        int   `yaml:"max_advance_years"`
	MaxAttendees           int   `yaml:"max_attendees"`
	SecurityAlertThreshold int   `yaml:"security_alert_threshold"`
}

func (b BookingConfig) HoldTTL() time.Duration {
	return time.Duration(b.HoldTTLMinutes) * time.Minute
}

type PricingConfig struct {
	Currency            string `yaml:"currency"`
	TaxRatePercent      int64  `yaml:"tax_rate_percent"`
	InterState          bool   `yaml:"inter_state"`
	ExternalRateTTLSecs int    `yaml:"external_rate_ttl_seconds"`
}

type PaymentConfig struct {
	KeyID     string `yaml:"key_id"`
	KeySecret string `yaml:"key_secret"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type WorkerConfig struct {
	ExpirationSweepMinutes int `yaml:"expiration_sweep_minutes"`
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnv()
	cfg.Pricing.Currency = strings.ToUpper(cfg.Pricing.Currency)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the values used for any key the YAML file leaves out.
func Default() *Config {
	return &Config{
		Environment: "development",
		HTTP:        HTTPConfig{Address: ":8080", AllowedOrigins: []string{"http://localhost:3000"}},
		Database:    DatabaseConfig{Host: "localhost", Port: 5432, User: "postgres", Name: "haven", SSLMode: "disable"},
		Redis:       RedisConfig{Addr: "localhost:6379"},
		Kafka: KafkaConfig{
			BookingEventsTopic: "booking-events",
			NotificationsTopic: "booking-notifications",
			GroupID:            "haven-worker",
		},
		Booking: BookingConfig{
			GuestLimitPerHour:      3,
			MaxAmountPaise:         100_000_000,
			MaxAdvanceYears:        2,
			MaxAttendees:           20,
			SecurityAlertThreshold: 5,
		},
		Pricing: PricingConfig{Currency: "INR", TaxRatePercent: 18, ExternalRateTTLSecs: 900},
		Log:     LogConfig{Level: "info"},
		Worker:  WorkerConfig{ExpirationSweepMinutes: 5},
	}
}

func (c *Config) applyEnv() {
	override := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	override(&c.Database.Password, "DATABASE_PASSWORD")
	override(&c.Redis.Password, "REDIS_PASSWORD")
	override(&c.Payment.KeyID, "RAZORPAY_KEY_ID")
	override(&c.Payment.KeySecret, "RAZORPAY_KEY_SECRET")
	override(&c.Auth.JWTSecret, "JWT_SECRET")
	override(&c.Environment, "ENVIRONMENT")
}

func (c *Config) Validate() error {
	var errs []error
	if c.Payment.KeyID == "" || c.Payment.KeySecret == "" {
		errs = append(errs, errors.New("payment key_id and key_secret are required"))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth jwt_secret is required"))
	}
	if len(c.Pricing.Currency) != 3 {
		errs = append(errs, fmt.Errorf("pricing currency must be a 3-letter code, got %q", c.Pricing.Currency))
	}
	if c.Pricing.TaxRatePercent < 0 {
		errs = append(errs, errors.New("pricing tax_rate_percent cannot be negative"))
	}
	if c.Booking.GuestLimitPerHour <= 0 {
		errs = append(errs, errors.New("booking guest_limit_per_hour must be positive"))
	}
	if c.Booking.MaxAmountPaise <= 0 {
		errs = append(errs, errors.New("booking max_amount_paise must be positive"))
	}
	if c.Booking.MaxAttendees <= 0 {
		errs = append(errs, errors.New("booking max_attendees must be positive"))
	}
	if c.Booking.HoldTTLMinutes < 0 {
		errs = append(errs, errors.New("booking hold_ttl_minutes cannot be negative"))
	}
	if c.Worker.ExpirationSweepMinutes <= 0 {
		errs = append(errs, errors.New("worker expiration_sweep_minutes must be positive"))
	}
	return errors.Join(errs...)
}
