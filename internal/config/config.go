package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port      string
	DbHost    string
	DbPort    string
	DbUser    string
	DbPass    string
	DbName    string
	DbSSLMode string

	JWTSecret          string
	JWTExpiresIn       string
	JWTCookieExpiresIn string // в днях

	PasswordResetTTLMin string
	PasswordMinLen      string

	Log      string
	LogLevel string
	Env      string // dev|prod

	SMTPHost     string
	SMTPUser     string
	SMTPPassword string
	EmailFrom    string

	SiteURL string
}

// LoadConfig загружает .env, читает переменные окружения и выставляет дефолты.
// Ничего не логирует: logger ещё не инициализирован.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load(".env")

	def := func(v, d string) string {
		v = strings.TrimSpace(v)
		if v == "" {
			return d
		}
		return v
	}

	cfg := &Config{
		Port:      def(os.Getenv("PORT"), "8080"),
		DbHost:    os.Getenv("DB_HOST"),
		DbPort:    def(os.Getenv("DB_PORT"), "5432"),
		DbUser:    os.Getenv("DB_USER"),
		DbPass:    os.Getenv("DB_PASSWORD"),
		DbName:    os.Getenv("DB_NAME"),
		DbSSLMode: def(os.Getenv("DB_SSLMODE"), "disable"),

		JWTSecret:          os.Getenv("JWT_SECRET"),
		JWTExpiresIn:       def(os.Getenv("JWT_EXPIRES_IN"), "2160h"),
		JWTCookieExpiresIn: def(os.Getenv("JWT_COOKIE_EXPIRES_IN"), "90"),

		PasswordResetTTLMin: def(os.Getenv("PASSWORD_RESET_TTL_MIN"), "10"),
		PasswordMinLen:      def(os.Getenv("PASSWORD_MIN_LEN"), "8"),

		Log:      os.Getenv("LOG"),
		LogLevel: strings.ToLower(def(os.Getenv("LOGLEVEL"), "info")),
		Env:      strings.ToLower(def(os.Getenv("ENV"), "prod")),

		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPUser:     os.Getenv("SMTP_USER"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		EmailFrom:    def(os.Getenv("EMAIL_FROM"), "Natours <no-reply@natours.dev>"),

		SiteURL: strings.TrimRight(os.Getenv("SITEURL"), "/"),
	}

	return cfg, nil
}

// Validate возвращает предупреждения и фатальную ошибку (если критично).
func (c *Config) Validate() (warnings []string, err error) {
	// Критичные: БД
	if c.DbHost == "" || c.DbUser == "" || c.DbName == "" {
		return nil, fmt.Errorf("incomplete DB config (DB_HOST/DB_USER/DB_NAME)")
	}

	// Без ключа подписи сервис не может выдавать токены
	if strings.TrimSpace(c.JWTSecret) == "" {
		return nil, fmt.Errorf("JWT_SECRET is empty")
	}

	if _, err := time.ParseDuration(c.JWTExpiresIn); err != nil {
		return nil, fmt.Errorf("invalid JWT_EXPIRES_IN %q: %w", c.JWTExpiresIn, err)
	}
	if n, err := strconv.Atoi(c.JWTCookieExpiresIn); err != nil || n <= 0 {
		return nil, fmt.Errorf("invalid JWT_COOKIE_EXPIRES_IN %q", c.JWTCookieExpiresIn)
	}
	if n, err := strconv.Atoi(c.PasswordResetTTLMin); err != nil || n <= 0 {
		return nil, fmt.Errorf("invalid PASSWORD_RESET_TTL_MIN %q", c.PasswordResetTTLMin)
	}

	// SMTP — предупреждение, письма просто не уйдут
	if c.SMTPHost == "" || c.SMTPUser == "" {
		warnings = append(warnings, "SMTP is not fully configured")
	}

	// Ссылки в письмах строятся только от SITEURL, Host запроса не используется
	if c.SiteURL == "" {
		if c.Env == "prod" {
			return nil, fmt.Errorf("SITEURL is required in prod")
		}
		warnings = append(warnings, "SITEURL is empty, links will point to "+c.BaseURL())
	}

	return warnings, nil
}

// TokenTTL — время жизни JWT. Некорректное значение ловит Validate.
func (c *Config) TokenTTL() time.Duration {
	d, err := time.ParseDuration(c.JWTExpiresIn)
	if err != nil {
		return 90 * 24 * time.Hour
	}
	return d
}

func (c *Config) CookieTTL() time.Duration {
	days, err := strconv.Atoi(c.JWTCookieExpiresIn)
	if err != nil || days <= 0 {
		days = 90
	}
	return time.Duration(days) * 24 * time.Hour
}

func (c *Config) ResetTTL() time.Duration {
	min, err := strconv.Atoi(c.PasswordResetTTLMin)
	if err != nil || min <= 0 {
		min = 10
	}
	return time.Duration(min) * time.Minute
}

func (c *Config) MinPasswordLen() int {
	n, err := strconv.Atoi(c.PasswordMinLen)
	if err != nil || n <= 0 {
		return 8
	}
	return n
}

// BaseURL — адрес сайта для ссылок в письмах. Без SITEURL это локальный адрес.
func (c *Config) BaseURL() string {
	if c.SiteURL != "" {
		return c.SiteURL
	}
	port := c.Port
	if port == "" {
		port = "8080"
	}
	return "http://localhost:" + port
}

// SecureCookies — в prod cookie всегда с флагом Secure.
func (c *Config) SecureCookies() bool {
	return c.Env == "prod"
}

// GetDSN — полная DSN (с паролем)
func (c *Config) GetDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DbUser, c.DbPass, c.DbHost, c.DbPort, c.DbName, c.DbSSLMode,
	)
}

// GetDSNSafe — DSN без пароля (для логов)
func (c *Config) GetDSNSafe() string {
	return fmt.Sprintf(
		"postgres://%s:***@%s:%s/%s?sslmode=%s",
		c.DbUser, c.DbHost, c.DbPort, c.DbName, c.DbSSLMode,
	)
}
