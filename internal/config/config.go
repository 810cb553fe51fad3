// Package config loads runtime settings from the environment (and an
// optional .env file) into a typed Config.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/lib/pq"
)

type Config struct {
	Host string `env:"HOST,default=0.0.0.0"`
	Port int    `env:"PORT,default=8080"`

	DatabaseURL string `env:"DATABASE_URL,required=true"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB,default=0"`

	JWTSecret      string        `env:"JWT_SECRET,required=true"`
	JWTIssuer      string        `env:"JWT_ISSUER,default=campusconnect"`
	AccessTokenTTL time.Duration `env:"ACCESS_TOKEN_TTL,default=30m"`

	CORSOrigins string `env:"CORS_ORIGINS,default=*"`
	LogLevel    string `env:"LOG_LEVEL,default=info"`

	MaxGroupNameLength   int `env:"CHAT_MAX_GROUP_NAME_LENGTH,default=255"`
	MaxDescriptionLength int `env:"CHAT_MAX_DESCRIPTION_LENGTH,default=1000"`
	MaxMessageLength     int `env:"CHAT_MAX_MESSAGE_LENGTH,default=5000"`
	DefaultHistoryLimit  int `env:"CHAT_DEFAULT_HISTORY_LIMIT,default=50"`
	MaxHistoryLimit      int `env:"CHAT_MAX_HISTORY_LIMIT,default=100"`

	WSSendBuffer    int           `env:"WS_SEND_BUFFER,default=256"`
	WSMaxFrameBytes int64         `env:"WS_MAX_FRAME_BYTES"`
	WSRateBurst     int           `env:"WS_RATE_BURST,default=10"`
	WSRateInterval  time.Duration `env:"WS_RATE_INTERVAL,default=1s"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
}

// Load reads .env (if present) and the process environment.
func Load(log *slog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Warn("no .env file loaded", "error", err)
	}

	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects limits that would make the chat core misbehave.
func (c *Config) Validate() error {
	var errs []error
	positive := map[string]int{
		"CHAT_MAX_GROUP_NAME_LENGTH":  c.MaxGroupNameLength,
		"CHAT_MAX_DESCRIPTION_LENGTH": c.MaxDescriptionLength,
		"CHAT_MAX_MESSAGE_LENGTH":     c.MaxMessageLength,
		"CHAT_DEFAULT_HISTORY_LIMIT":  c.DefaultHistoryLimit,
		"CHAT_MAX_HISTORY_LIMIT":      c.MaxHistoryLimit,
		"WS_SEND_BUFFER":              c.WSSendBuffer,
		"WS_RATE_BURST":               c.WSRateBurst,
	}
	for name, v := range positive {
		if v <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %d", name, v))
		}
	}
	if c.DefaultHistoryLimit > c.MaxHistoryLimit {
		errs = append(errs, fmt.Errorf("CHAT_DEFAULT_HISTORY_LIMIT (%d) exceeds CHAT_MAX_HISTORY_LIMIT (%d)", c.DefaultHistoryLimit, c.MaxHistoryLimit))
	}
	// Zero derives the read limit from CHAT_MAX_MESSAGE_LENGTH.
	if minFrame := FrameBytesFor(c.MaxMessageLength); c.WSMaxFrameBytes < 0 || (c.WSMaxFrameBytes > 0 && c.WSMaxFrameBytes < minFrame) {
		errs = append(errs, fmt.Errorf("WS_MAX_FRAME_BYTES (%d) must be at least %d to fit a CHAT_MAX_MESSAGE_LENGTH message", c.WSMaxFrameBytes, minFrame))
	}
	if c.WSRateInterval <= 0 {
		errs = append(errs, errors.New("WS_RATE_INTERVAL must be positive"))
	}
	if strings.TrimSpace(c.DatabaseURL) == "" {
		errs = append(errs, errors.New("DATABASE_URL must not be blank"))
	}
	if strings.TrimSpace(c.JWTSecret) == "" {
		errs = append(errs, errors.New("JWT_SECRET must not be blank"))
	}
	return errors.Join(errs...)
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// PostgresDSN accepts either a postgres:// URL or a key/value DSN.
func (c *Config) PostgresDSN() (string, error) {
	if strings.HasPrefix(c.DatabaseURL, "postgres://") || strings.HasPrefix(c.DatabaseURL, "postgresql://") {
		dsn, err := pq.ParseURL(c.DatabaseURL)
		if err != nil {
			return "", fmt.Errorf("invalid DATABASE_URL: %w", err)
		}
		return dsn, nil
	}
	return c.DatabaseURL, nil
}

// AllowedOrigins splits CORS_ORIGINS into trimmed, non-empty entries.
func (c *Config) AllowedOrigins() []string {
	var out []string
	for _, part := range strings.Split(c.CORSOrigins, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func (c *Config) ChatLimits() ChatLimits {
	return ChatLimits{
		MaxGroupNameLength:   c.MaxGroupNameLength,
		MaxDescriptionLength: c.MaxDescriptionLength,
		MaxMessageLength:     c.MaxMessageLength,
		DefaultHistoryLimit:  c.DefaultHistoryLimit,
		MaxHistoryLimit:      c.MaxHistoryLimit,
	}
}

func (c *Config) Gateway() GatewayConfig {
	return GatewayConfig{
		SendBuffer:    c.WSSendBuffer,
		MaxFrameBytes: c.maxFrameBytes(),
		RateBurst:     c.WSRateBurst,
		RateInterval:  c.WSRateInterval,
		WriteWait:     DefaultWriteWait,
		PongWait:      DefaultPongWait,
	}
}

func (c *Config) maxFrameBytes() int64 {
	if c.WSMaxFrameBytes == 0 {
		return FrameBytesFor(c.MaxMessageLength)
	}
	return c.WSMaxFrameBytes
}
