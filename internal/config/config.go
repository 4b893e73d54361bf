package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// devJWTSecret lets a local server start without configuration. It is
// rejected in production.
const devJWTSecret = "gardem-dev-secret"

type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	JWT           JWTConfig
	CORS          CORSConfig
	RateLimit     RateLimitConfig
	Kafka         KafkaConfig
	Orders        OrdersConfig
	Observability ObservabilityConfig

	// taxRateErr keeps an unparseable ORDER_TAX_RATE for Validate.
	taxRateErr error
}

type ServerConfig struct {
	Port          string
	Env           string
	MigrationsDir string
}

type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Database        string
	Schema          string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DSN renders a pgx connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable&search_path=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.Schema)
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

type JWTConfig struct {
	Secret    string
	ExpiresIn time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type RateLimitConfig struct {
	Window      time.Duration
	MaxRequests int
}

// KafkaConfig enables order event publishing when Brokers is non-empty.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type OrdersConfig struct {
	TaxRate           decimal.Decimal
	DeliveryDays      int
	LowStockThreshold int
}

type ObservabilityConfig struct {
	ServiceName string
	LogLevel    string
}

// IsProduction reports whether the server runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	if c.IsProduction() && (c.JWT.Secret == "" || c.JWT.Secret == devJWTSecret) {
		return errors.New("JWT_SECRET must be set in production")
	}
	if c.taxRateErr != nil {
		return c.taxRateErr
	}
	if c.JWT.ExpiresIn <= 0 {
		return errors.New("JWT_EXPIRES_IN must be positive")
	}
	if c.Orders.TaxRate.IsNegative() {
		return errors.New("ORDER_TAX_RATE must not be negative")
	}
	if c.Orders.DeliveryDays < 0 {
		return errors.New("ORDER_DELIVERY_DAYS must not be negative")
	}
	if c.RateLimit.MaxRequests <= 0 {
		return errors.New("RATE_LIMIT_MAX_REQUESTS must be positive")
	}
	return nil
}

func Load() *Config {
	// A local .env is optional; real deployments inject the environment.
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Could not read .env file: %v", err)
	}

	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("SERVER_PORT", "3000")
	viper.SetDefault("SERVER_ENV", "development")
	viper.SetDefault("MIGRATIONS_DIR", "migrations")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "postgres")
	viper.SetDefault("DB_NAME", "gardem")
	viper.SetDefault("DB_SCHEMA", "public")
	viper.SetDefault("DB_MAX_OPEN_CONNS", 10)
	viper.SetDefault("DB_MAX_IDLE_CONNS", 5)
	viper.SetDefault("DB_CONN_MAX_LIFETIME", "30m")
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("JWT_SECRET", devJWTSecret)
	viper.SetDefault("JWT_EXPIRES_IN", "24h")
	viper.SetDefault("CORS_ORIGIN", "http://localhost:3000")
	viper.SetDefault("RATE_LIMIT_WINDOW", "15m")
	viper.SetDefault("RATE_LIMIT_MAX_REQUESTS", 100)
	viper.SetDefault("KAFKA_BROKERS", "")
	viper.SetDefault("KAFKA_TOPIC", "order-events")
	viper.SetDefault("ORDER_TAX_RATE", "0.19")
	viper.SetDefault("ORDER_DELIVERY_DAYS", 7)
	viper.SetDefault("LOW_STOCK_THRESHOLD", 5)
	viper.SetDefault("SERVICE_NAME", "gardem-api")

	rawTaxRate := viper.GetString("ORDER_TAX_RATE")
	taxRate, err := decimal.NewFromString(rawTaxRate)
	if err != nil {
		err = fmt.Errorf("invalid ORDER_TAX_RATE %q: %w", rawTaxRate, err)
	}

	return &Config{
		taxRateErr: err,
		Server: ServerConfig{
			Port:          viper.GetString("SERVER_PORT"),
			Env:           viper.GetString("SERVER_ENV"),
			MigrationsDir: viper.GetString("MIGRATIONS_DIR"),
		},
		Database: DatabaseConfig{
			Host:            viper.GetString("DB_HOST"),
			Port:            viper.GetString("DB_PORT"),
			User:            viper.GetString("DB_USER"),
			Password:        viper.GetString("DB_PASSWORD"),
			Database:        viper.GetString("DB_NAME"),
			Schema:          viper.GetString("DB_SCHEMA"),
			MaxOpenConns:    viper.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    viper.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: viper.GetDuration("DB_CONN_MAX_LIFETIME"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			Secret:    viper.GetString("JWT_SECRET"),
			ExpiresIn: viper.GetDuration("JWT_EXPIRES_IN"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(viper.GetString("CORS_ORIGIN")),
		},
		RateLimit: RateLimitConfig{
			Window:      viper.GetDuration("RATE_LIMIT_WINDOW"),
			MaxRequests: viper.GetInt("RATE_LIMIT_MAX_REQUESTS"),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(viper.GetString("KAFKA_BROKERS")),
			Topic:   viper.GetString("KAFKA_TOPIC"),
		},
		Orders: OrdersConfig{
			TaxRate:           taxRate,
			DeliveryDays:      viper.GetInt("ORDER_DELIVERY_DAYS"),
			LowStockThreshold: viper.GetInt("LOW_STOCK_THRESHOLD"),
		},
		Observability: ObservabilityConfig{
			ServiceName: viper.GetString("SERVICE_NAME"),
			LogLevel:    viper.GetString("LOG_LEVEL"),
		},
	}
}

// splitList turns "a, b,,c" into [a b c].
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
