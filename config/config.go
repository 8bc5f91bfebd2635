package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	GRPC      GRPCConfig      `yaml:"grpc"`
	Storage   StorageConfig   `yaml:"storage"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Booking   BookingConfig   `yaml:"booking"`
	Search    SearchConfig    `yaml:"search"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Payment   PaymentConfig   `yaml:"payment"`
	Log       LogConfig       `yaml:"log"`
	Worker    WorkerConfig    `yaml:"worker"`
}

type HTTPConfig struct {
	Address        string   `yaml:"address"`
	SwaggerDir     string   `yaml:"swagger_dir"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type GRPCConfig struct {
	Address string `yaml:"address"`
}

type StorageConfig struct {
	// Driver is "postgres" or "memory".
	Driver string `yaml:"driver"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int32  `yaml:"max_conns"`
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

type FeesConfig struct {
	BookingFee         int64 `yaml:"booking_fee"`
	CheckedBag         int64 `yaml:"checked_bag"`
	ExtraBag           int64 `yaml:"extra_bag"`
	SpecialMeal        int64 `yaml:"special_meal"`
	UnaccompaniedMinor int64 `yaml:"unaccompanied_minor"`
	PetTransport       int64 `yaml:"pet_transport"`
}

type BookingConfig struct {
	Currency           string     `yaml:"currency"`
	Fees               FeesConfig `yaml:"fees"`
	ReferenceAttempts  int        `yaml:"reference_attempts"`
	HardDeleteOnCancel bool       `yaml:"hard_delete_on_cancel"`
	MaxPassengers      int        `yaml:"max_passengers"`
	IdempotencyTTLMins int        `yaml:"idempotency_ttl_minutes"`
}

type SearchConfig struct {
	Timezone          string `yaml:"timezone"`
	MinLayoverMinutes int    `yaml:"min_layover_minutes"`
	MaxLayoverMinutes int    `yaml:"max_layover_minutes"`
	ScheduleCacheTTL  int    `yaml:"schedule_cache_ttl_seconds"`
	MaxRangeDays      int    `yaml:"max_range_days"`
	SuggestWindowDays int    `yaml:"suggest_window_days"`
	MaxSuggestWindow  int    `yaml:"max_suggest_window_days"`
}

func (s SearchConfig) Location() (*time.Location, error) {
	return time.LoadLocation(s.Timezone)
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	Issuer    string `yaml:"issuer"`
}

type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute"`
	Burst             int `yaml:"burst"`
}

type PaymentConfig struct {
	// Provider is "stripe" or "fake".
	Provider  string `yaml:"provider"`
	StripeKey string `yaml:"stripe_key"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

type WorkerConfig struct {
	CompletionSchedule string `yaml:"completion_schedule"`
}

// LoadConfig reads .env (if present), the YAML file at path, environment overrides and defaults.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyEnv(&cfg)
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("DATABASE_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("DATABASE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("DATABASE_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("DATABASE_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("STRIPE_KEY"); v != "" {
		cfg.Payment.StripeKey = v
	}
}

func (c *Config) applyDefaults() {
	if c.HTTP.Address == "" {
		c.HTTP.Address = ":8080"
	}
	if c.GRPC.Address == "" {
		c.GRPC.Address = ":9090"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "postgres"
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Booking.Currency == "" {
		c.Booking.Currency = "EUR"
	}
	if c.Booking.Fees == (FeesConfig{}) {
		c.Booking.Fees = FeesConfig{
			BookingFee:         1000,
			CheckedBag:         3000,
			ExtraBag:           5000,
			SpecialMeal:        1500,
			UnaccompaniedMinor: 7500,
			PetTransport:       10000,
		}
	}
	if c.Booking.ReferenceAttempts <= 0 {
		c.Booking.ReferenceAttempts = 10
	}
	if c.Booking.MaxPassengers <= 0 {
		c.Booking.MaxPassengers = 9
	}
	if c.Booking.IdempotencyTTLMins <= 0 {
		c.Booking.IdempotencyTTLMins = 24 * 60
	}
	if c.Search.Timezone == "" {
		c.Search.Timezone = "UTC"
	}
	if c.Search.MinLayoverMinutes <= 0 {
		c.Search.MinLayoverMinutes = 120
	}
	if c.Search.MaxLayoverMinutes <= 0 {
		c.Search.MaxLayoverMinutes = 12 * 60
	}
	if c.Search.MaxRangeDays <= 0 {
		c.Search.MaxRangeDays = 31
	}
	if c.Search.SuggestWindowDays <= 0 {
		c.Search.SuggestWindowDays = 3
	}
	if c.Search.MaxSuggestWindow <= 0 {
		c.Search.MaxSuggestWindow = 15
	}
	if c.Auth.Issuer == "" {
		c.Auth.Issuer = "flightbooking"
	}
	if c.RateLimit.RequestsPerMinute <= 0 {
		c.RateLimit.RequestsPerMinute = 60
	}
	if c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = 10
	}
	if c.Payment.Provider == "" {
		c.Payment.Provider = "fake"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Worker.CompletionSchedule == "" {
		c.Worker.CompletionSchedule = "@every 5m"
	}
}

func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	switch c.Payment.Provider {
	case "fake":
	case "stripe":
		if c.Payment.StripeKey == "" {
			return errors.New("payment.stripe_key is required for the stripe provider")
		}
	default:
		return fmt.Errorf("unknown payment provider %q", c.Payment.Provider)
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required")
	}
	if c.Search.MinLayoverMinutes > c.Search.MaxLayoverMinutes {
		return errors.New("search.min_layover_minutes exceeds max_layover_minutes")
	}
	if _, err := c.Search.Location(); err != nil {
		return fmt.Errorf("search.timezone: %w", err)
	}
	return nil
}
