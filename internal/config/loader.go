package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config captures environment driven configuration values for the seminar service.
type Config struct {
	HTTPPort   int
	SQLitePath string

	JWTSecret     string
	TokenTTL      time.Duration
	AdminUsername string
	AdminPassword string

	CoordinatorEmail string
	SMTP             SMTPConfig

	AMQPURL     string
	NotifyQueue string

	Redis   RedisConfig
	LockTTL time.Duration

	LogLevel string
	Location *time.Location
}

// SMTPConfig describes the outgoing mail relay. An empty Host disables email.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Timeout  time.Duration
}

// RedisConfig describes the shared lock server. An empty Addr keeps locks in process.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// EmailEnabled reports whether notifications should go out over SMTP.
func (c Config) EmailEnabled() bool {
	return c.SMTP.Host != ""
}

// QueueEnabled reports whether notifications should be queued on RabbitMQ.
func (c Config) QueueEnabled() bool {
	return c.AMQPURL != ""
}

// DistributedLocking reports whether slot locks should be held in Redis.
func (c Config) DistributedLocking() bool {
	return c.Redis.Addr != ""
}

// LoadEnvFile merges a dotenv file into the process environment without
// overriding variables that are already set. A missing file is not an error.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load parses configuration values from the current process environment.
//
// Optional values fall back to defaults. Every missing or malformed variable
// is reported in a single error.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:      8080,
		SQLitePath:    "seminars.db",
		TokenTTL:      12 * time.Hour,
		AdminUsername: "admin",
		AdminPassword: "nimda1234",
		SMTP: SMTPConfig{
			Port:    587,
			Timeout: 10 * time.Second,
		},
		NotifyQueue: "seminar.notifications",
		LockTTL:     15 * time.Second,
		LogLevel:    "info",
		Location:    time.Local,
	}

	missing := make([]string, 0, 1)
	invalid := make([]string, 0, 4)

	positiveInt := func(key string, dst *int) {
		if value := env(key); value != "" {
			n, err := strconv.Atoi(value)
			if err != nil || n <= 0 {
				invalid = append(invalid, key)
				return
			}
			*dst = n
		}
	}
	positiveDuration := func(key string, dst *time.Duration) {
		if value := env(key); value != "" {
			d, err := time.ParseDuration(value)
			if err != nil || d <= 0 {
				invalid = append(invalid, key)
				return
			}
			*dst = d
		}
	}
	text := func(key string, dst *string) {
		if value := env(key); value != "" {
			*dst = value
		}
	}

	positiveInt("SEMINAR_HTTP_PORT", &cfg.HTTPPort)
	text("SEMINAR_SQLITE_PATH", &cfg.SQLitePath)

	if secret := env("SEMINAR_JWT_SECRET"); secret == "" {
		missing = append(missing, "SEMINAR_JWT_SECRET")
	} else {
		cfg.JWTSecret = secret
	}
	positiveDuration("SEMINAR_TOKEN_TTL", &cfg.TokenTTL)
	text("SEMINAR_ADMIN_USERNAME", &cfg.AdminUsername)
	if password, ok := os.LookupEnv("SEMINAR_ADMIN_PASSWORD"); ok && password != "" {
		cfg.AdminPassword = password
	}

	text("SEMINAR_COORDINATOR_EMAIL", &cfg.CoordinatorEmail)
	text("SEMINAR_SMTP_HOST", &cfg.SMTP.Host)
	positiveInt("SEMINAR_SMTP_PORT", &cfg.SMTP.Port)
	text("SEMINAR_SMTP_USERNAME", &cfg.SMTP.Username)
	if password, ok := os.LookupEnv("SEMINAR_SMTP_PASSWORD"); ok {
		cfg.SMTP.Password = password
	}
	text("SEMINAR_SMTP_FROM", &cfg.SMTP.From)
	positiveDuration("SEMINAR_SMTP_TIMEOUT", &cfg.SMTP.Timeout)
	if cfg.SMTP.Host != "" && cfg.SMTP.From == "" {
		missing = append(missing, "SEMINAR_SMTP_FROM")
	}

	text("SEMINAR_AMQP_URL", &cfg.AMQPURL)
	text("SEMINAR_NOTIFY_QUEUE", &cfg.NotifyQueue)

	text("SEMINAR_REDIS_ADDR", &cfg.Redis.Addr)
	if password, ok := os.LookupEnv("SEMINAR_REDIS_PASSWORD"); ok {
		cfg.Redis.Password = password
	}
	if value := env("SEMINAR_REDIS_DB"); value != "" {
		db, err := strconv.Atoi(value)
		if err != nil || db < 0 {
			invalid = append(invalid, "SEMINAR_REDIS_DB")
		} else {
			cfg.Redis.DB = db
		}
	}
	positiveDuration("SEMINAR_LOCK_TTL", &cfg.LockTTL)

	if level := env("SEMINAR_LOG_LEVEL"); level != "" {
		switch strings.ToLower(level) {
		case "debug", "info", "warn", "error":
			cfg.LogLevel = strings.ToLower(level)
		default:
			invalid = append(invalid, "SEMINAR_LOG_LEVEL")
		}
	}
	if zone := env("SEMINAR_TIMEZONE"); zone != "" {
		loc, err := time.LoadLocation(zone)
		if err != nil {
			invalid = append(invalid, "SEMINAR_TIMEZONE")
		} else {
			cfg.Location = loc
		}
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables are not set: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("environment variables have invalid values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}
