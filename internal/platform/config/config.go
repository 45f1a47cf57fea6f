// Package config assembles runtime configuration from defaults, an
// optional YAML file, and environment variables, in that order of
// precedence (later wins). main stays lean; everything tunable lives
// here.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full runtime configuration.
type Config struct {
	Server    Server    `yaml:"server"`
	Logging   Logging   `yaml:"logging"`
	Chain     Chain     `yaml:"chain"`
	Session   Session   `yaml:"session"`
	Admin     Admin     `yaml:"admin"`
	Snapshot  Snapshot  `yaml:"snapshot"`
	Redis     Redis     `yaml:"redis"`
	Audit     Audit     `yaml:"audit"`
	RateLimit RateLimit `yaml:"rate_limit"`
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr           string        `yaml:"addr"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// Logging selects handler format and verbosity.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Chain tunes the ledger engine.
type Chain struct {
	Difficulty int `yaml:"difficulty"`
}

// Session configures the vault session tokens.
type Session struct {
	SigningKey string        `yaml:"signing_key"`
	TTL        time.Duration `yaml:"ttl"`
}

// Admin guards the revocation endpoint. TokenHash is a bcrypt hash of
// the admin token; the plaintext never appears in configuration.
type Admin struct {
	TokenHash string `yaml:"token_hash"`
}

// Snapshot selects where the serialized chain lands.
type Snapshot struct {
	Backend     string `yaml:"backend"` // memory, file, redis, postgres
	Path        string `yaml:"path"`
	PostgresDSN string `yaml:"postgres_dsn"`
	Name        string `yaml:"name"`
	Passphrase  string `yaml:"passphrase"` // non-empty seals snapshots at rest
}

// Redis connection settings, shared by the snapshot store when the
// redis backend is selected.
type Redis struct {
	URL          string        `yaml:"url"`
	PoolSize     int           `yaml:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// Audit configures the event pipeline.
type Audit struct {
	Backend     string `yaml:"backend"` // memory, postgres
	PostgresDSN string `yaml:"postgres_dsn"`
	BufferSize  int    `yaml:"buffer_size"`
	Kafka       Kafka  `yaml:"kafka"`
	AMQP        AMQP   `yaml:"amqp"`
}

// Kafka enables the streaming audit publisher when brokers are set.
type Kafka struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// AMQP enables the queue audit publisher when a URL is set.
type AMQP struct {
	URL   string `yaml:"url"`
	Queue string `yaml:"queue"`
}

// RateLimit throttles unauthenticated callers per client IP.
type RateLimit struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

func defaults() Config {
	return Config{
		Server:  Server{Addr: ":8080", RequestTimeout: 30 * time.Second},
		Logging: Logging{Level: "info", Format: "json"},
		Chain:   Chain{Difficulty: 4},
		Session: Session{
			// Development fallback; override in any real deployment.
			SigningKey: "dev-secret-key-change-in-production",
			TTL:        30 * time.Minute,
		},
		Snapshot: Snapshot{Backend: "memory", Name: "default"},
		Redis: Redis{
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Audit:     Audit{Backend: "memory", BufferSize: 256, Kafka: Kafka{Topic: "credchain.audit"}, AMQP: AMQP{Queue: "credchain.audit"}},
		RateLimit: RateLimit{RequestsPerSecond: 20, Burst: 40},
	}
}

// Load builds the configuration. path may be empty; otherwise it
// names a YAML file layered over the defaults. Environment variables
// override both.
func Load(path string) (Config, error) {
	cfg := defaults()

	if path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(content, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// FromEnv builds the configuration without a file, honouring
// CREDCHAIN_CONFIG when set.
func FromEnv() (Config, error) {
	return Load(os.Getenv("CREDCHAIN_CONFIG"))
}

func applyEnv(cfg *Config) {
	setString(&cfg.Server.Addr, "CREDCHAIN_ADDR")
	setDuration(&cfg.Server.RequestTimeout, "CREDCHAIN_REQUEST_TIMEOUT")
	setString(&cfg.Logging.Level, "CREDCHAIN_LOG_LEVEL")
	setString(&cfg.Logging.Format, "CREDCHAIN_LOG_FORMAT")
	setInt(&cfg.Chain.Difficulty, "CREDCHAIN_DIFFICULTY")
	setString(&cfg.Session.SigningKey, "CREDCHAIN_JWT_SIGNING_KEY")
	setDuration(&cfg.Session.TTL, "CREDCHAIN_SESSION_TTL")
	setString(&cfg.Admin.TokenHash, "CREDCHAIN_ADMIN_TOKEN_HASH")
	setString(&cfg.Snapshot.Backend, "CREDCHAIN_SNAPSHOT_BACKEND")
	setString(&cfg.Snapshot.Path, "CREDCHAIN_SNAPSHOT_PATH")
	setString(&cfg.Snapshot.PostgresDSN, "CREDCHAIN_SNAPSHOT_POSTGRES_DSN")
	setString(&cfg.Snapshot.Name, "CREDCHAIN_SNAPSHOT_NAME")
	setString(&cfg.Snapshot.Passphrase, "CREDCHAIN_SNAPSHOT_PASSPHRASE")
	setString(&cfg.Redis.URL, "CREDCHAIN_REDIS_URL")
	setString(&cfg.Audit.Backend, "CREDCHAIN_AUDIT_BACKEND")
	setString(&cfg.Audit.PostgresDSN, "CREDCHAIN_AUDIT_POSTGRES_DSN")
	setInt(&cfg.Audit.BufferSize, "CREDCHAIN_AUDIT_BUFFER_SIZE")
	setStrings(&cfg.Audit.Kafka.Brokers, "CREDCHAIN_KAFKA_BROKERS")
	setString(&cfg.Audit.Kafka.Topic, "CREDCHAIN_KAFKA_TOPIC")
	setString(&cfg.Audit.AMQP.URL, "CREDCHAIN_AMQP_URL")
	setString(&cfg.Audit.AMQP.Queue, "CREDCHAIN_AMQP_QUEUE")
	setFloat(&cfg.RateLimit.RequestsPerSecond, "CREDCHAIN_RATE_LIMIT_RPS")
	setInt(&cfg.RateLimit.Burst, "CREDCHAIN_RATE_LIMIT_BURST")
}

func (c Config) validate() error {
	switch c.Snapshot.Backend {
	case "memory", "file", "redis", "postgres":
	default:
		return fmt.Errorf("unknown snapshot backend %q", c.Snapshot.Backend)
	}
	switch c.Audit.Backend {
	case "memory", "postgres":
	default:
		return fmt.Errorf("unknown audit backend %q", c.Audit.Backend)
	}
	if c.Snapshot.Backend == "file" && c.Snapshot.Path == "" {
		return fmt.Errorf("snapshot backend file requires a path")
	}
	if c.Snapshot.Backend == "redis" && c.Redis.URL == "" {
		return fmt.Errorf("snapshot backend redis requires a redis URL")
	}
	if c.Snapshot.Backend == "postgres" && c.Snapshot.PostgresDSN == "" {
		return fmt.Errorf("snapshot backend postgres requires a DSN")
	}
	if c.Audit.Backend == "postgres" && c.Audit.PostgresDSN == "" {
		return fmt.Errorf("audit backend postgres requires a DSN")
	}
	if c.Chain.Difficulty < 0 || c.Chain.Difficulty > 16 {
		return fmt.Errorf("chain difficulty %d out of range [0, 16]", c.Chain.Difficulty)
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setStrings(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		*dst = parts
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
