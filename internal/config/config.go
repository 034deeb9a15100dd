// Package config holds the moderation constants and the environment-driven
// runtime configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	// DedupWindow is the rolling window within which a repeated forward
	// fingerprint counts as a duplicate.
	DedupWindow = 24 * time.Hour

	// FilterNoticeTTL is how long channel/regex deletion notices stay
	// visible before the bot removes its own message.
	FilterNoticeTTL = 30 * time.Second
	// ForwardNoticeTTL is shorter: dedup notices are higher-frequency and
	// less important to leave visible.
	ForwardNoticeTTL = 6 * time.Second

	// TransportTimeout bounds every Bot API call.
	TransportTimeout = 10 * time.Second

	// TelegramServiceUserID is Telegram's own relay account. Forwards
	// attributed to it are linked-channel posts, not user-initiated spam.
	TelegramServiceUserID = 777000
)

// Config is the runtime configuration, loaded from the environment.
type Config struct {
	BotToken    string
	PostgresDSN string
	RedisAddr   string
	RedisDB     int

	// OwnerIDs are the Telegram user IDs allowed to run the bot-owner
	// diagnostics commands.
	OwnerIDs []int64

	// HTTPAddr is the admin API listen address.
	HTTPAddr string
	// AdminSecret is exchanged for a JWT on the admin API.
	AdminSecret string
	// JWTSecret signs admin API tokens.
	JWTSecret string
}

// Load reads the configuration from environment variables. TELEGRAM_BOT_TOKEN
// is the only hard requirement; everything else has a local-dev default.
func Load() (*Config, error) {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is not set")
	}

	cfg := &Config{
		BotToken:    token,
		PostgresDSN: getEnv("POSTGRES_DSN", "host=localhost user=user password=password dbname=janitordb port=5432 sslmode=disable"),
		RedisAddr:   getEnv("REDIS_ADDR", "localhost:6379"),
		HTTPAddr:    getEnv("HTTP_ADDR", ":8080"),
		AdminSecret: os.Getenv("ADMIN_SECRET"),
		JWTSecret:   getEnv("JWT_SECRET", "change-me-in-production"),
	}

	if v := os.Getenv("REDIS_DB"); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_DB %q: %w", v, err)
		}
		cfg.RedisDB = db
	}

	owners, err := ParseOwnerIDs(os.Getenv("OWNER_IDS"))
	if err != nil {
		return nil, err
	}
	cfg.OwnerIDs = owners

	return cfg, nil
}

// ParseOwnerIDs parses a comma-separated list of Telegram user IDs.
func ParseOwnerIDs(raw string) ([]int64, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid owner ID %q: %w", p, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
