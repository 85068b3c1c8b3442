package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const defaultJWTSecret = "development-insecure-secret-change-me"

// Config holds every runtime setting of the API.
type Config struct {
	HTTPAddr    string
	Environment string

	LogLevel  string
	LogFormat string

	DBDriver    string
	DatabaseDSN string

	JWTSecret   string
	JWTIssuer   string
	JWTAudience string
	JWTTTL      time.Duration

	RedisAddr     string
	RedisPassword string
	RedisChannel  string

	KafkaBrokers []string
	KafkaTopic   string

	RateLimitRPS   float64
	RateLimitBurst int

	LoginMaxAttempts int
	LoginLockout     time.Duration

	OutboxSweep       time.Duration
	OutboxBatch       int
	OutboxMaxAttempts int

	NotificationRetention time.Duration
	SwipePageSize         int
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http_addr", ":8008")
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("db_driver", "sqlite")
	v.SetDefault("database_dsn", "riteswipe.db")
	v.SetDefault("jwt_secret", defaultJWTSecret)
	v.SetDefault("jwt_issuer", "riteswipe-api")
	v.SetDefault("jwt_audience", "riteswipe-clients")
	v.SetDefault("jwt_ttl", "24h")
	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_channel", "riteswipe:realtime")
	v.SetDefault("kafka_brokers", "")
	v.SetDefault("kafka_topic", "riteswipe.events")
	v.SetDefault("rate_limit_rps", 20)
	v.SetDefault("rate_limit_burst", 40)
	v.SetDefault("login_max_attempts", 5)
	v.SetDefault("login_lockout", "10m")
	v.SetDefault("outbox_sweep", "15s")
	v.SetDefault("outbox_batch", 100)
	v.SetDefault("outbox_max_attempts", 5)
	v.SetDefault("notification_retention", "720h")
	v.SetDefault("swipe_page_size", 10)
}

// Load reads .env (if present), an optional config file and the environment.
// Environment variables win over the file.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("config: ignoring .env: %v", err)
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &Config{
		HTTPAddr:              v.GetString("http_addr"),
		Environment:           strings.ToLower(v.GetString("environment")),
		LogLevel:              v.GetString("log_level"),
		LogFormat:             v.GetString("log_format"),
		DBDriver:              strings.ToLower(v.GetString("db_driver")),
		DatabaseDSN:           v.GetString("database_dsn"),
		JWTSecret:             v.GetString("jwt_secret"),
		JWTIssuer:             v.GetString("jwt_issuer"),
		JWTAudience:           v.GetString("jwt_audience"),
		JWTTTL:                v.GetDuration("jwt_ttl"),
		RedisAddr:             v.GetString("redis_addr"),
		RedisPassword:         v.GetString("redis_password"),
		RedisChannel:          v.GetString("redis_channel"),
		KafkaBrokers:          splitList(v.GetString("kafka_brokers")),
		KafkaTopic:            v.GetString("kafka_topic"),
		RateLimitRPS:          v.GetFloat64("rate_limit_rps"),
		RateLimitBurst:        v.GetInt("rate_limit_burst"),
		LoginMaxAttempts:      v.GetInt("login_max_attempts"),
		LoginLockout:          v.GetDuration("login_lockout"),
		OutboxSweep:           v.GetDuration("outbox_sweep"),
		OutboxBatch:           v.GetInt("outbox_batch"),
		OutboxMaxAttempts:     v.GetInt("outbox_max_attempts"),
		NotificationRetention: v.GetDuration("notification_retention"),
		SwipePageSize:         v.GetInt("swipe_page_size"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// IsDevelopment reports whether internal error detail may be exposed.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	var errs []error

	switch c.DBDriver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver))
	}
	if c.DatabaseDSN == "" {
		errs = append(errs, errors.New("DATABASE_DSN is required"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.Environment == "production" && c.JWTSecret == defaultJWTSecret {
		errs = append(errs, errors.New("JWT_SECRET must be set in production"))
	}
	if c.JWTTTL <= 0 {
		errs = append(errs, errors.New("JWT_TTL must be positive"))
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive"))
	}
	if c.LoginMaxAttempts <= 0 || c.LoginLockout <= 0 {
		errs = append(errs, errors.New("LOGIN_MAX_ATTEMPTS and LOGIN_LOCKOUT must be positive"))
	}
	if c.OutboxSweep <= 0 || c.OutboxBatch <= 0 || c.OutboxMaxAttempts <= 0 {
		errs = append(errs, errors.New("OUTBOX_SWEEP, OUTBOX_BATCH and OUTBOX_MAX_ATTEMPTS must be positive"))
	}
	if c.NotificationRetention <= 0 {
		errs = append(errs, errors.New("NOTIFICATION_RETENTION must be positive"))
	}
	if c.SwipePageSize <= 0 {
		errs = append(errs, errors.New("SWIPE_PAGE_SIZE must be positive"))
	}
	if len(c.KafkaBrokers) > 0 && c.KafkaTopic == "" {
		errs = append(errs, errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set"))
	}

	return errors.Join(errs...)
}
