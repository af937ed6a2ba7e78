package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DB       DBConfig
	HTTP     HTTPConfig
	Redis    RedisConfig
	Rabbit   RabbitConfig
	Telegram TelegramConfig
	Auth     AuthConfig
	Payment  PaymentConfig
	Log      LogConfig

	AutoMigrate bool
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

// ConnString returns the pgx connection URL with credentials escaped.
func (c DBConfig) ConnString() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   "/" + c.Database,
	}
	return u.String()
}

type HTTPConfig struct {
	Addr        string
	CORSOrigins []string
}

type RedisConfig struct {
	Addr string // empty: sessions are kept in process memory
}

type RabbitConfig struct {
	URL      string // empty: events are dropped
	Exchange string
}

type TelegramConfig struct {
	KitchenToken  string
	KitchenChatID int64
}

type AuthConfig struct {
	SessionTTL         time.Duration
	StaffEmails        []string
	LoyaltyVoucherCost int
}

type PaymentConfig struct {
	Delay time.Duration
}

type LogConfig struct {
	Level  string
	Format string // console or json
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	port, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("DB_PORT: %w", err)
	}
	var chatID int64
	if v := getEnv("KITCHEN_CHAT_ID", ""); v != "" {
		chatID, err = strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("KITCHEN_CHAT_ID: %w", err)
		}
	}
	sessionTTL, err := time.ParseDuration(getEnv("SESSION_TTL", "24h"))
	if err != nil {
		return nil, fmt.Errorf("SESSION_TTL: %w", err)
	}
	voucherCost, err := strconv.Atoi(getEnv("LOYALTY_VOUCHER_COST", "50"))
	if err != nil {
		return nil, fmt.Errorf("LOYALTY_VOUCHER_COST: %w", err)
	}
	payDelay, err := time.ParseDuration(getEnv("PAYMENT_DELAY", "1s"))
	if err != nil {
		return nil, fmt.Errorf("PAYMENT_DELAY: %w", err)
	}

	return &Config{
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     port,
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "terracafe"),
		},
		HTTP: HTTPConfig{
			Addr:        getEnv("HTTP_ADDR", ":8000"),
			CORSOrigins: splitList(getEnv("CORS_ORIGINS", "*")),
		},
		Redis: RedisConfig{
			Addr: getEnv("REDIS_ADDR", ""),
		},
		Rabbit: RabbitConfig{
			URL:      getEnv("RABBIT_URL", ""),
			Exchange: getEnv("RABBIT_EXCHANGE", "cafe_events"),
		},
		Telegram: TelegramConfig{
			KitchenToken:  getEnv("KITCHEN_BOT_TOKEN", ""),
			KitchenChatID: chatID,
		},
		Auth: AuthConfig{
			SessionTTL:         sessionTTL,
			StaffEmails:        splitList(strings.ToLower(getEnv("STAFF_EMAILS", ""))),
			LoyaltyVoucherCost: voucherCost,
		},
		Payment: PaymentConfig{
			Delay: payDelay,
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "console"),
		},
		AutoMigrate: isTrue(getEnv("AUTO_MIGRATE", "")),
	}, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func isTrue(v string) bool {
	v = strings.TrimSpace(v)
	return v == "1" || strings.EqualFold(v, "true")
}
