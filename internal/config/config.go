package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config is the runtime configuration of the order service.
type Config struct {
	AppPort string

	OrderDBDriver string
	OrderDBDSN    string

	UserDBDriver string
	UserDBDSN    string
	UserDBName   string

	CatalogBaseURL string

	PaymentGateway     string
	CashfreeBaseURL    string
	CashfreeAppID      string
	CashfreeSecretKey  string
	CashfreeAPIVersion string
	CashfreeReturnURL  string
	RazorpayBaseURL    string
	RazorpayKeyID      string
	RazorpayKeySecret  string

	GSTRate        float64
	DeliveryCharge float64
	HandlingCharge float64
	PlatformCharge float64
	MinOrderAmount float64
	CODMaxAmount   float64

	OutboundTimeout  time.Duration
	MirrorTimeout    time.Duration
	DeliveryTimezone string

	RedisAddr      string
	RedisPassword  string
	IdempotencyTTL time.Duration
	StatusCacheTTL time.Duration

	RabbitMQURL string

	LogLevel string
	LogFile  string
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("ORDER_DB_DRIVER", "sqlite")
	v.SetDefault("ORDER_DB_DSN", "file:orders.db")
	v.SetDefault("USER_DB_DRIVER", "sqlite")
	v.SetDefault("USER_DB_DSN", "file:users.db")
	v.SetDefault("USER_DB_NAME", "users")
	v.SetDefault("CATALOG_BASE_URL", "http://localhost:4000/api/products")
	v.SetDefault("PAYMENT_GATEWAY", "cashfree")
	v.SetDefault("CASHFREE_BASE_URL", "https://sandbox.cashfree.com/pg")
	v.SetDefault("CASHFREE_API_VERSION", "2025-01-01")
	v.SetDefault("CASHFREE_RETURN_URL", "http://localhost:3001/payment-status?order_id={order_id}")
	v.SetDefault("RAZORPAY_BASE_URL", "https://api.razorpay.com")
	v.SetDefault("GST_RATE", 0.05)
	v.SetDefault("DELIVERY_CHARGE", 20.0)
	v.SetDefault("HANDLING_CHARGE", 5.0)
	v.SetDefault("PLATFORM_CHARGE", 2.0)
	v.SetDefault("MIN_ORDER_AMOUNT", 10.0)
	v.SetDefault("COD_MAX_AMOUNT", 100.0)
	v.SetDefault("OUTBOUND_TIMEOUT", 10*time.Second)
	v.SetDefault("MIRROR_TIMEOUT", 5*time.Second)
	v.SetDefault("DELIVERY_TIMEZONE", "Asia/Kolkata")
	v.SetDefault("IDEMPOTENCY_TTL", 24*time.Hour)
	v.SetDefault("STATUS_CACHE_TTL", 10*time.Second)
	v.SetDefault("LOG_LEVEL", "info")

	// Keys without a default still have to be known to viper for AutomaticEnv.
	for _, key := range []string{
		"CASHFREE_APP_ID", "CASHFREE_SECRET_KEY", "RAZORPAY_KEY_ID", "RAZORPAY_KEY_SECRET",
		"REDIS_ADDR", "REDIS_PASSWORD", "RABBITMQ_URL", "LOG_FILE",
	} {
		v.SetDefault(key, "")
	}
}

// Load reads the configuration from the environment on top of the defaults.
func Load() (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	v.AutomaticEnv()
	return FromViper(v)
}

// FromViper builds and validates a Config from an already populated viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		AppPort:            v.GetString("APP_PORT"),
		OrderDBDriver:      v.GetString("ORDER_DB_DRIVER"),
		OrderDBDSN:         v.GetString("ORDER_DB_DSN"),
		UserDBDriver:       v.GetString("USER_DB_DRIVER"),
		UserDBDSN:          v.GetString("USER_DB_DSN"),
		UserDBName:         v.GetString("USER_DB_NAME"),
		CatalogBaseURL:     v.GetString("CATALOG_BASE_URL"),
		PaymentGateway:     v.GetString("PAYMENT_GATEWAY"),
		CashfreeBaseURL:    v.GetString("CASHFREE_BASE_URL"),
		CashfreeAppID:      v.GetString("CASHFREE_APP_ID"),
		CashfreeSecretKey:  v.GetString("CASHFREE_SECRET_KEY"),
		CashfreeAPIVersion: v.GetString("CASHFREE_API_VERSION"),
		CashfreeReturnURL:  v.GetString("CASHFREE_RETURN_URL"),
		RazorpayBaseURL:    v.GetString("RAZORPAY_BASE_URL"),
		RazorpayKeyID:      v.GetString("RAZORPAY_KEY_ID"),
		RazorpayKeySecret:  v.GetString("RAZORPAY_KEY_SECRET"),
		GSTRate:            v.GetFloat64("GST_RATE"),
		DeliveryCharge:     v.GetFloat64("DELIVERY_CHARGE"),
		HandlingCharge:     v.GetFloat64("HANDLING_CHARGE"),
		PlatformCharge:     v.GetFloat64("PLATFORM_CHARGE"),
		MinOrderAmount:     v.GetFloat64("MIN_ORDER_AMOUNT"),
		CODMaxAmount:       v.GetFloat64("COD_MAX_AMOUNT"),
		OutboundTimeout:    v.GetDuration("OUTBOUND_TIMEOUT"),
		MirrorTimeout:      v.GetDuration("MIRROR_TIMEOUT"),
		DeliveryTimezone:   v.GetString("DELIVERY_TIMEZONE"),
		RedisAddr:          v.GetString("REDIS_ADDR"),
		RedisPassword:      v.GetString("REDIS_PASSWORD"),
		IdempotencyTTL:     v.GetDuration("IDEMPOTENCY_TTL"),
		StatusCacheTTL:     v.GetDuration("STATUS_CACHE_TTL"),
		RabbitMQURL:        v.GetString("RABBITMQ_URL"),
		LogLevel:           v.GetString("LOG_LEVEL"),
		LogFile:            v.GetString("LOG_FILE"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the service cannot start with.
func (c *Config) Validate() error {
	if c.AppPort == "" {
		return fmt.Errorf("APP_PORT is required")
	}
	switch c.OrderDBDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported ORDER_DB_DRIVER %q", c.OrderDBDriver)
	}
	switch c.UserDBDriver {
	case "postgres", "sqlite", "mongo":
	default:
		return fmt.Errorf("unsupported USER_DB_DRIVER %q", c.UserDBDriver)
	}
	if c.OrderDBDSN == "" || c.UserDBDSN == "" {
		return fmt.Errorf("ORDER_DB_DSN and USER_DB_DSN are required")
	}
	if c.CatalogBaseURL == "" {
		return fmt.Errorf("CATALOG_BASE_URL is required")
	}
	switch c.PaymentGateway {
	case "cashfree", "razorpay":
	default:
		return fmt.Errorf("unsupported PAYMENT_GATEWAY %q", c.PaymentGateway)
	}
	if c.GSTRate < 0 || c.DeliveryCharge < 0 || c.HandlingCharge < 0 || c.PlatformCharge < 0 {
		return fmt.Errorf("charges and GST_RATE must not be negative")
	}
	if c.CODMaxAmount < 0 {
		return fmt.Errorf("COD_MAX_AMOUNT must not be negative")
	}
	if c.OutboundTimeout <= 0 || c.MirrorTimeout <= 0 {
		return fmt.Errorf("OUTBOUND_TIMEOUT and MIRROR_TIMEOUT must be positive")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves DeliveryTimezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.DeliveryTimezone)
	if err != nil {
		return nil, fmt.Errorf("invalid DELIVERY_TIMEZONE %q: %w", c.DeliveryTimezone, err)
	}
	return loc, nil
}
