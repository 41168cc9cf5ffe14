// Package config loads process configuration from the environment. A .env
// file in the working directory, when present, is loaded first and never
// overrides variables that are already set.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	strutil "procura/pkg/platform/strings"
)

// Config is the full process configuration.
type Config struct {
	Server   Server
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	SMTP     SMTPConfig
	Sweeps   SweepConfig
	Log      LogConfig
}

// Server captures ops HTTP server and public link configuration.
type Server struct {
	Addr       string        `env:"PROCURA_ADDR" envDefault:":8080"`
	AppBaseURL string        `env:"APP_BASE_URL" envDefault:"http://localhost:3000"`
	ShutdownIn time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
	// The ops batch endpoints can run for a while; WriteTimeout bounds them.
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"2m"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`
	// AdminToken guards the /ops triggers. Unset, they reject every call.
	AdminToken string `env:"ADMIN_TOKEN"`
}

type DatabaseConfig struct {
	URL             string        `env:"DATABASE_URL,required,notEmpty"`
	MaxOpenConns    int           `env:"DATABASE_MAX_OPEN_CONNS" envDefault:"20"`
	MaxIdleConns    int           `env:"DATABASE_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"DATABASE_CONN_MAX_LIFETIME" envDefault:"30m"`
	ApplySchema     bool          `env:"DATABASE_APPLY_SCHEMA" envDefault:"true"`
}

// RedisConfig is optional; an empty URL disables real-time push.
type RedisConfig struct {
	URL          string        `env:"REDIS_URL"`
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
}

// KafkaConfig is optional; no brokers disables the audit stream.
type KafkaConfig struct {
	Brokers          []string `env:"KAFKA_BROKERS" envSeparator:","`
	AuditTopic       string   `env:"KAFKA_AUDIT_TOPIC" envDefault:"procura.audit"`
	AuditPartitions  int32    `env:"KAFKA_AUDIT_PARTITIONS" envDefault:"3"`
	AuditReplication int16    `env:"KAFKA_AUDIT_REPLICATION" envDefault:"1"`
	StreamBuffer     int      `env:"KAFKA_AUDIT_BUFFER" envDefault:"256"`
}

// Enabled reports whether an audit stream should be started.
func (k KafkaConfig) Enabled() bool { return len(k.Brokers) > 0 }

type SMTPConfig struct {
	Host        string        `env:"SMTP_HOST" envDefault:"localhost"`
	Port        int           `env:"SMTP_PORT" envDefault:"587"`
	Username    string        `env:"SMTP_USERNAME"`
	Password    string        `env:"SMTP_PASSWORD"`
	From        string        `env:"SMTP_FROM" envDefault:"noreply@procura.local"`
	FromName    string        `env:"SMTP_FROM_NAME" envDefault:"Procura"`
	SendTimeout time.Duration `env:"SMTP_SEND_TIMEOUT" envDefault:"10s"`
	// Consecutive rejected sends before the relay is treated as down, and
	// how long to wait before probing it again.
	BreakerThreshold int           `env:"SMTP_BREAKER_THRESHOLD" envDefault:"5"`
	BreakerCooldown  time.Duration `env:"SMTP_BREAKER_COOLDOWN" envDefault:"1m"`
}

// SweepConfig schedules the periodic background passes. A zero interval
// disables the sweep.
type SweepConfig struct {
	AssignmentInterval time.Duration `env:"SWEEP_ASSIGNMENT_INTERVAL" envDefault:"15m"`
	ExpiryInterval     time.Duration `env:"SWEEP_EXPIRY_INTERVAL" envDefault:"1h"`
	RetryInterval      time.Duration `env:"SWEEP_EMAIL_RETRY_INTERVAL" envDefault:"0s"`
	RetryBatch         int           `env:"SWEEP_EMAIL_RETRY_BATCH" envDefault:"100"`
}

type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

// Load reads .env (if present) and parses the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return Parse()
}

// Parse reads configuration from the current environment only.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.Kafka.Brokers = strutil.DedupeAndTrim(cfg.Kafka.Brokers)
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	var errs []error
	if c.SMTP.SendTimeout <= 0 {
		errs = append(errs, errors.New("SMTP_SEND_TIMEOUT must be positive"))
	}
	if c.SMTP.Port <= 0 || c.SMTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("SMTP_PORT %d out of range", c.SMTP.Port))
	}
	if c.Sweeps.AssignmentInterval < 0 || c.Sweeps.ExpiryInterval < 0 || c.Sweeps.RetryInterval < 0 {
		errs = append(errs, errors.New("sweep intervals must not be negative"))
	}
	if c.Kafka.Enabled() && c.Kafka.AuditTopic == "" {
		errs = append(errs, errors.New("KAFKA_AUDIT_TOPIC is required when KAFKA_BROKERS is set"))
	}
	return errors.Join(errs...)
}
