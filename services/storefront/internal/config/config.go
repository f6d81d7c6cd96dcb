// Package config содержит конфигурацию storefront gateway.
package config

import (
	"fmt"
	"strings"
	"time"

	pkgconfig "example.com/topup-storefront/pkg/config"
)

// Config содержит полную конфигурацию storefront gateway.
type Config struct {
	App        pkgconfig.AppConfig
	HTTP       pkgconfig.HTTPConfig
	Backend    BackendConfig
	Storefront StorefrontConfig
	Auth       AuthConfig
	Redis      pkgconfig.RedisConfig
	MySQL      pkgconfig.MySQLConfig
	Kafka      pkgconfig.KafkaConfig
	RateLimit  RateLimitConfig
	Jaeger     pkgconfig.JaegerConfig
	Metrics    pkgconfig.MetricsConfig
}

// BackendConfig — внешний backend API.
type BackendConfig struct {
	BaseURL string        `env:"BACKEND_BASE_URL,required,notEmpty"`
	Timeout time.Duration `env:"BACKEND_TIMEOUT" envDefault:"15s"`
	// ReadRetries — повторы только для GET запросов. POST не повторяются никогда.
	ReadRetries int `env:"BACKEND_READ_RETRIES" envDefault:"2"`
}

// StorefrontConfig — поведение витрины.
type StorefrontConfig struct {
	// PublicBaseURL — адрес фронтенда для redirectUrl и ссылок навигации.
	PublicBaseURL   string `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:3000"`
	StatusPagePath  string `env:"STATUS_PAGE_PATH" envDefault:"/payment/status"`
	OrderListPath   string `env:"ORDER_LIST_PATH" envDefault:"/orders"`
	GamePagePath    string `env:"GAME_PAGE_PATH" envDefault:"/games"`
	WalletPagePath  string `env:"WALLET_PAGE_PATH" envDefault:"/wallet"`
	SupportContact  string `env:"SUPPORT_CONTACT" envDefault:"support@topup.example"`
	MaintenanceMode bool   `env:"MAINTENANCE_MODE" envDefault:"false"`

	// AllowedOrigins — origin фронтенда для CORS с credentials. Пусто — любой origin без cookie.
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`

	PollInterval    time.Duration `env:"POLL_INTERVAL" envDefault:"3s"`
	PollMaxAttempts int           `env:"POLL_MAX_ATTEMPTS" envDefault:"60"`
	ActionTimeout   time.Duration `env:"ACTION_TIMEOUT" envDefault:"30s"`
	CatalogTTL      time.Duration `env:"CATALOG_TTL" envDefault:"5m"`
	VerificationTTL time.Duration `env:"VERIFICATION_TTL" envDefault:"30m"`
}

// StatusPageURL — страница статуса, куда шлюз возвращает покупателя.
func (c StorefrontConfig) StatusPageURL() string {
	return c.url(c.StatusPagePath)
}

// OrderListURL — страница списка заказов.
func (c StorefrontConfig) OrderListURL() string {
	return c.url(c.OrderListPath)
}

// WalletPageURL — куда платёжный шлюз возвращает после пополнения кошелька.
func (c StorefrontConfig) WalletPageURL() string {
	return c.url(c.WalletPagePath)
}

// GamePageURL — страница игры по slug.
func (c StorefrontConfig) GamePageURL(slug string) string {
	return c.url(strings.TrimRight(c.GamePagePath, "/") + "/" + slug)
}

func (c StorefrontConfig) url(path string) string {
	return strings.TrimRight(c.PublicBaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

// AuthConfig — cookie с токеном.
type AuthConfig struct {
	CookieName   string        `env:"AUTH_COOKIE_NAME" envDefault:"auth_token"`
	CookieDomain string        `env:"AUTH_COOKIE_DOMAIN" envDefault:""`
	CookieSecure bool          `env:"AUTH_COOKIE_SECURE" envDefault:"false"`
	CookieMaxAge time.Duration `env:"AUTH_COOKIE_MAX_AGE" envDefault:"720h"`

	OTPMaxFailures int           `env:"OTP_MAX_FAILURES" envDefault:"5"`
	OTPLockWindow  time.Duration `env:"OTP_LOCK_WINDOW" envDefault:"15m"`
}

// RateLimitConfig — настройки ограничения запросов.
type RateLimitConfig struct {
	Enabled       bool          `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	RequestsLimit int           `env:"RATE_LIMIT_REQUESTS" envDefault:"100"`
	AuthLimit     int           `env:"RATE_LIMIT_AUTH_REQUESTS" envDefault:"10"` // Отправка и ввод OTP
	Window        time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`
}

// Load загружает конфигурацию из переменных окружения.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Storefront.PollInterval <= 0 {
		return fmt.Errorf("POLL_INTERVAL должен быть больше нуля")
	}
	if c.Storefront.PollMaxAttempts <= 0 {
		return fmt.Errorf("POLL_MAX_ATTEMPTS должен быть больше нуля")
	}
	if c.Storefront.ActionTimeout <= 0 {
		return fmt.Errorf("ACTION_TIMEOUT должен быть больше нуля")
	}
	return nil
}

// IsDevelopment возвращает true в режиме разработки.
func (c *Config) IsDevelopment() bool {
	return c.App.IsDevelopment()
}
