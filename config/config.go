package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var (
	ErrMissingToken  = errors.New("TELEGRAM_TOKEN not set")
	ErrMissingAdmins = errors.New("ADMIN_TELEGRAM_ID not set")
)

type Config struct {
	DB              DBConfig
	Telegram        TelegramConfig
	Session         SessionConfig
	Admins          AdminSet
	DefaultLanguage string
	AutoMigrate     bool
	MetricsAddr     string
	LogLevel        string
}

type DBConfig struct {
	URL      string // DATABASE_URL; takes precedence over the individual fields
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

// ConnString returns the pgx connection string for the storage location.
func (c DBConfig) ConnString() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s",
		c.User, c.Password, c.Host, c.Port, c.Database,
	)
}

type TelegramConfig struct {
	Token string
	Rate  float64 // outbound messages per second
}

type SessionConfig struct {
	FlowTimeout time.Duration // idle time after which an unfinished flow is reset
	TTL         time.Duration // idle time after which the whole session is dropped
}

// Load reads .env (if present) and the process environment. Startup must abort
// on error: the bot cannot run without a token and a valid admin list.
func Load() (*Config, error) {
	_ = godotenv.Load()

	token := getEnv("TELEGRAM_TOKEN", "")
	if token == "" {
		return nil, ErrMissingToken
	}
	rawAdmins := getEnv("ADMIN_TELEGRAM_ID", "")
	if strings.TrimSpace(rawAdmins) == "" {
		return nil, ErrMissingAdmins
	}
	admins, err := ParseAdmins(rawAdmins)
	if err != nil {
		return nil, err
	}

	port, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("DB_PORT: %w", err)
	}
	flowTimeout, err := getDuration("FLOW_TIMEOUT", 30*time.Minute)
	if err != nil {
		return nil, err
	}
	ttl, err := getDuration("SESSION_TTL", 24*time.Hour)
	if err != nil {
		return nil, err
	}
	rate, err := strconv.ParseFloat(getEnv("TELEGRAM_RATE", "25"), 64)
	if err != nil || rate <= 0 {
		return nil, fmt.Errorf("TELEGRAM_RATE must be a positive number")
	}

	return &Config{
		DB: DBConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     port,
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "market"),
		},
		Telegram: TelegramConfig{
			Token: token,
			Rate:  rate,
		},
		Session: SessionConfig{
			FlowTimeout: flowTimeout,
			TTL:         ttl,
		},
		Admins:          admins,
		DefaultLanguage: strings.ToLower(getEnv("DEFAULT_LANGUAGE", "lt")),
		AutoMigrate:     isTrue(getEnv("AUTO_MIGRATE", "")),
		MetricsAddr:     getEnv("METRICS_ADDR", ""),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
	}, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func isTrue(v string) bool {
	v = strings.TrimSpace(v)
	return v == "1" || strings.EqualFold(v, "true")
}
