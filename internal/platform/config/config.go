package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const (
	EnvironmentProduction  = "production"
	EnvironmentDevelopment = "development"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	SessionBackendMemory = "memory"
	SessionBackendRedis  = "redis"
)

// Config is centralized process configuration.
// Defaults come from Default(), then the optional YAML file named by
// EVOTING_CONFIG, then EVOTING_* environment variables.
type Config struct {
	ServiceName string `yaml:"serviceName" split_words:"true"`
	Environment string `yaml:"environment"`
	HTTPPort    string `yaml:"httpPort"    envconfig:"HTTP_PORT"`
	LogLevel    string `yaml:"logLevel"    split_words:"true"`

	DatabaseDriver string `yaml:"databaseDriver" split_words:"true"`
	PostgresDSN    string `yaml:"postgresDsn"    envconfig:"POSTGRES_DSN"`
	SQLitePath     string `yaml:"sqlitePath"     envconfig:"SQLITE_PATH"`

	SessionBackend string        `yaml:"sessionBackend" split_words:"true"`
	SessionTTL     time.Duration `yaml:"sessionTtl"     envconfig:"SESSION_TTL"`
	RedisAddr      string        `yaml:"redisAddr"      split_words:"true"`
	RedisDB        int           `yaml:"redisDb"        envconfig:"REDIS_DB"`

	RingCTURL         string        `yaml:"ringctUrl"         envconfig:"RINGCT_URL"`
	SignerCallTimeout time.Duration `yaml:"signerCallTimeout" split_words:"true"`

	WebAuthnRPID          string        `yaml:"webauthnRpId"          envconfig:"WEBAUTHN_RP_ID"`
	WebAuthnRPDisplayName string        `yaml:"webauthnRpDisplayName" envconfig:"WEBAUTHN_RP_DISPLAY_NAME"`
	WebAuthnOrigin        string        `yaml:"webauthnOrigin"        envconfig:"WEBAUTHN_ORIGIN"`
	PasskeyChallengeTTL   time.Duration `yaml:"passkeyChallengeTtl"   envconfig:"PASSKEY_CHALLENGE_TTL"`

	DefaultVoterCount int `yaml:"defaultVoterCount" split_words:"true"`

	LoadTestBypass bool   `yaml:"loadTestBypass" split_words:"true"`
	LoadTestToken  string `yaml:"loadTestToken"  split_words:"true"`

	WorkerPollInterval time.Duration `yaml:"workerPollInterval" split_words:"true"`

	TracingEnabled bool   `yaml:"tracingEnabled" split_words:"true"`
	OTLPEndpoint   string `yaml:"otlpEndpoint"   envconfig:"OTLP_ENDPOINT"`
}

func Default() Config {
	return Config{
		ServiceName:           "evoting",
		Environment:           EnvironmentDevelopment,
		HTTPPort:              "8080",
		LogLevel:              "info",
		DatabaseDriver:        DriverPostgres,
		SQLitePath:            "evoting.db",
		SessionBackend:        SessionBackendMemory,
		SessionTTL:            8 * time.Hour,
		RingCTURL:             "localhost:50051",
		SignerCallTimeout:     5 * time.Second,
		WebAuthnRPID:          "localhost",
		WebAuthnRPDisplayName: "Online Election",
		WebAuthnOrigin:        "http://localhost:8080",
		PasskeyChallengeTTL:   5 * time.Minute,
		DefaultVoterCount:     20,
		WorkerPollInterval:    5 * time.Second,
	}
}

func Load() (Config, error) {
	cfg := Default()

	if path := strings.TrimSpace(os.Getenv("EVOTING_CONFIG")); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := envconfig.Process("evoting", &cfg); err != nil {
		return Config{}, fmt.Errorf("process environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c Config) Validate() error {
	var errs []error

	switch c.DatabaseDriver {
	case DriverPostgres, DriverSQLite:
	default:
		errs = append(errs, fmt.Errorf("unsupported database driver %q", c.DatabaseDriver))
	}
	switch c.SessionBackend {
	case SessionBackendMemory:
	case SessionBackendRedis:
		if strings.TrimSpace(c.RedisAddr) == "" {
			errs = append(errs, errors.New("redis address is required for the redis session backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported session backend %q", c.SessionBackend))
	}
	if strings.TrimSpace(c.WebAuthnRPID) == "" || strings.TrimSpace(c.WebAuthnOrigin) == "" {
		errs = append(errs, errors.New("webauthn relying party id and origin are required"))
	}
	if c.DefaultVoterCount <= 0 {
		errs = append(errs, errors.New("default voter count must be positive"))
	}
	if c.SignerCallTimeout <= 0 || c.PasskeyChallengeTTL <= 0 || c.SessionTTL <= 0 {
		errs = append(errs, errors.New("timeouts and ttls must be positive"))
	}
	if c.LoadTestBypass {
		if c.IsProduction() {
			errs = append(errs, errors.New("load test bypass cannot be enabled in production"))
		}
		if len(c.LoadTestToken) < 16 {
			errs = append(errs, errors.New("load test token must be at least 16 characters"))
		}
	}
	return errors.Join(errs...)
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), EnvironmentProduction)
}
