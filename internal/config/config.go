package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ストアの種類
const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// 決済プロバイダー
const (
	PaymentProviderTapPay = "tappay"
	PaymentProviderStripe = "stripe"
)

// Config はアプリケーション設定を表す
type Config struct {
	Env         string
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	RabbitMQ    RabbitMQConfig
	Payment     PaymentConfig
	Reservation ReservationConfig
	Auth        AuthConfig
	Log         LogConfig
}

// ServerConfig はサーバー設定
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig はデータベース設定
type DatabaseConfig struct {
	Driver         string
	Host           string
	Port           string
	User           string
	Password       string
	DBName         string
	SSLMode        string
	LockTimeout    time.Duration
	MaxOpenConns   int
	MigrationsPath string
}

// RedisConfig はRedis設定
type RedisConfig struct {
	Enabled    bool
	Host       string
	Port       string
	Password   string
	DB         int
	SeatMapTTL time.Duration
}

// RabbitMQConfig はRabbitMQ設定
// URL が空の場合はイベントを配信しない
type RabbitMQConfig struct {
	URL      string
	Exchange string
}

// PaymentConfig は決済設定
type PaymentConfig struct {
	Provider string
	TapPay   TapPayConfig
	Stripe   StripeConfig
}

// TapPayConfig はTapPay設定
type TapPayConfig struct {
	Endpoint   string
	PartnerKey string
	MerchantID string
	Timeout    time.Duration
}

// StripeConfig はStripe設定
type StripeConfig struct {
	SecretKey string
	Currency  string
}

// ReservationConfig は座席予約の設定
type ReservationConfig struct {
	HoldTTL       time.Duration
	MaxHoldTTL    time.Duration
	SweepInterval time.Duration
}

// AuthConfig は認証設定
// 管理APIと /metrics はそれぞれ Basic 認証で保護する
type AuthConfig struct {
	JWTSecret       string
	AdminUser       string
	AdminPassword   string
	MetricsUser     string
	MetricsPassword string
}

// LogConfig はログ設定
type LogConfig struct {
	Level string
}

// Load は環境変数から設定を読み込む
// .env ファイルがあれば先に読み込む（既存の環境変数は上書きしない）
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		Env: getEnv("APP_ENV", "development"),
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			Driver:         getEnv("STORE_DRIVER", StoreDriverPostgres),
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           getEnv("DB_PORT", "5432"),
			User:           getEnv("DB_USER", "postgres"),
			Password:       getEnv("DB_PASSWORD", "postgres"),
			DBName:         getEnv("DB_NAME", "seat_reservation"),
			SSLMode:        getEnv("DB_SSLMODE", "disable"),
			LockTimeout:    getDurationEnv("DB_LOCK_TIMEOUT", 5*time.Second),
			MaxOpenConns:   getIntEnv("DB_MAX_OPEN_CONNS", 25),
			MigrationsPath: getEnv("MIGRATIONS_PATH", "migrations"),
		},
		Redis: RedisConfig{
			Enabled:    getBoolEnv("REDIS_ENABLED", true),
			Host:       getEnv("REDIS_HOST", "localhost"),
			Port:       getEnv("REDIS_PORT", "6379"),
			Password:   getEnv("REDIS_PASSWORD", ""),
			DB:         getIntEnv("REDIS_DB", 0),
			SeatMapTTL: getDurationEnv("SEAT_MAP_CACHE_TTL", 5*time.Second),
		},
		RabbitMQ: RabbitMQConfig{
			URL:      getEnv("RABBITMQ_URL", ""),
			Exchange: getEnv("RABBITMQ_EXCHANGE", "seat_reservation.events"),
		},
		Payment: PaymentConfig{
			Provider: getEnv("PAYMENT_PROVIDER", PaymentProviderTapPay),
			TapPay: TapPayConfig{
				Endpoint:   getEnv("TAPPAY_ENDPOINT", "https://sandbox.tappaysdk.com/tpc/payment/pay-by-prime"),
				PartnerKey: getEnv("TAPPAY_PARTNER_KEY", ""),
				MerchantID: getEnv("TAPPAY_MERCHANT_ID", ""),
				Timeout:    getDurationEnv("TAPPAY_TIMEOUT", 15*time.Second),
			},
			Stripe: StripeConfig{
				SecretKey: getEnv("STRIPE_SECRET_KEY", ""),
				Currency:  getEnv("STRIPE_CURRENCY", "twd"),
			},
		},
		Reservation: ReservationConfig{
			HoldTTL:       getDurationEnv("HOLD_TTL", 10*time.Minute),
			MaxHoldTTL:    getDurationEnv("MAX_HOLD_TTL", time.Hour),
			SweepInterval: getDurationEnv("SWEEP_INTERVAL", time.Minute),
		},
		Auth: AuthConfig{
			JWTSecret:       getEnv("JWT_SECRET", ""),
			AdminUser:       getEnv("ADMIN_USER", ""),
			AdminPassword:   getEnv("ADMIN_PASSWORD", ""),
			MetricsUser:     getEnv("METRICS_USER", ""),
			MetricsPassword: getEnv("METRICS_PASSWORD", ""),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", ""),
		},
	}

	// DATABASE_URL / REDIS_URL（PaaS形式）が指定されていれば優先する
	if raw := os.Getenv("DATABASE_URL"); raw != "" {
		applyDatabaseURL(&cfg.Database, raw)
	}
	if raw := os.Getenv("REDIS_URL"); raw != "" {
		applyRedisURL(&cfg.Redis, raw)
	}
	return cfg
}

// Validate は設定値の組み合わせを検証する
func (c *Config) Validate() error {
	var errs []error
	switch c.Database.Driver {
	case StoreDriverPostgres, StoreDriverMemory:
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER が不正です: %q", c.Database.Driver))
	}
	switch c.Payment.Provider {
	case PaymentProviderTapPay:
		if c.Payment.TapPay.PartnerKey == "" || c.Payment.TapPay.MerchantID == "" {
			errs = append(errs, errors.New("TAPPAY_PARTNER_KEY と TAPPAY_MERCHANT_ID は必須です"))
		}
	case PaymentProviderStripe:
		if c.Payment.Stripe.SecretKey == "" {
			errs = append(errs, errors.New("STRIPE_SECRET_KEY は必須です"))
		}
	default:
		errs = append(errs, fmt.Errorf("PAYMENT_PROVIDER が不正です: %q", c.Payment.Provider))
	}
	if c.Reservation.HoldTTL <= 0 {
		errs = append(errs, errors.New("HOLD_TTL は正の値である必要があります"))
	}
	if c.Reservation.MaxHoldTTL < c.Reservation.HoldTTL {
		errs = append(errs, errors.New("MAX_HOLD_TTL は HOLD_TTL 以上である必要があります"))
	}
	if c.Reservation.SweepInterval <= 0 {
		errs = append(errs, errors.New("SWEEP_INTERVAL は正の値である必要があります"))
	}
	return errors.Join(errs...)
}

// IsProduction は本番環境かを返す
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// DSN はPostgreSQL接続文字列を返す
func (c *DatabaseConfig) DSN() string {
	return "host=" + c.Host +
		" port=" + c.Port +
		" user=" + c.User +
		" password=" + c.Password +
		" dbname=" + c.DBName +
		" sslmode=" + c.SSLMode
}

// Addr はRedis接続アドレスを返す
func (c *RedisConfig) Addr() string {
	return c.Host + ":" + c.Port
}

func applyDatabaseURL(c *DatabaseConfig, raw string) {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return
	}
	c.Host = u.Hostname()
	if p := u.Port(); p != "" {
		c.Port = p
	}
	if u.User != nil {
		c.User = u.User.Username()
		if pw, ok := u.User.Password(); ok {
			c.Password = pw
		}
	}
	if name := strings.TrimPrefix(u.Path, "/"); name != "" {
		c.DBName = name
	}
	// URL形式はマネージドDBを想定するため sslmode の既定は require
	c.SSLMode = "require"
	if mode := u.Query().Get("sslmode"); mode != "" {
		c.SSLMode = mode
	}
}

func applyRedisURL(c *RedisConfig, raw string) {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return
	}
	c.Host = u.Hostname()
	if p := u.Port(); p != "" {
		c.Port = p
	}
	if u.User != nil {
		if pw, ok := u.User.Password(); ok {
			c.Password = pw
		}
	}
	if db, err := strconv.Atoi(strings.TrimPrefix(u.Path, "/")); err == nil {
		c.DB = db
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
