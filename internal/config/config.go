package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"

	BlobDriverMemory = "memory"
	BlobDriverS3     = "s3"
)

type Config struct {
	Port              string        `mapstructure:"PORT"`
	Env               string        `mapstructure:"ENV"`
	StorageDriver     string        `mapstructure:"STORAGE_DRIVER"`
	DatabaseURL       string        `mapstructure:"DATABASE_URL"`
	DBMaxConns        int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns        int32         `mapstructure:"DB_MIN_CONNS"`
	CORSOrigins       []string      `mapstructure:"CORS_ORIGINS"`
	RequestTimeout    time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	BodyLimit         string        `mapstructure:"BODY_LIMIT"`
	RateLimitRPS      float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst    int           `mapstructure:"RATE_LIMIT_BURST"`
	BcryptCost        int           `mapstructure:"BCRYPT_COST"`
	BlobDriver        string        `mapstructure:"BLOB_DRIVER"`
	S3Bucket          string        `mapstructure:"S3_BUCKET"`
	S3Endpoint        string        `mapstructure:"S3_ENDPOINT"`
	S3PublicURL       string        `mapstructure:"S3_PUBLIC_URL"`
	FirebaseProjectID string        `mapstructure:"FIREBASE_PROJECT_ID"`
	InferenceURL      string        `mapstructure:"INFERENCE_URL"`
	InferenceTimeout  time.Duration `mapstructure:"INFERENCE_TIMEOUT"`
	RedisURL          string        `mapstructure:"REDIS_URL"`
	KafkaBrokers      []string      `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic        string        `mapstructure:"KAFKA_TOPIC"`
}

var keys = []string{
	"PORT", "ENV", "STORAGE_DRIVER", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"CORS_ORIGINS", "REQUEST_TIMEOUT", "BODY_LIMIT", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
	"BCRYPT_COST", "BLOB_DRIVER", "S3_BUCKET", "S3_ENDPOINT", "S3_PUBLIC_URL",
	"FIREBASE_PROJECT_ID", "INFERENCE_URL", "INFERENCE_TIMEOUT", "REDIS_URL",
	"KAFKA_BROKERS", "KAFKA_TOPIC",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "5000")
	v.SetDefault("ENV", "development")
	v.SetDefault("STORAGE_DRIVER", StorageDriverPostgres)
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("CORS_ORIGINS", "http://localhost:5173")
	v.SetDefault("REQUEST_TIMEOUT", "15s")
	v.SetDefault("BODY_LIMIT", "30M")
	v.SetDefault("RATE_LIMIT_RPS", 50)
	v.SetDefault("RATE_LIMIT_BURST", 100)
	v.SetDefault("BCRYPT_COST", 10)
	v.SetDefault("BLOB_DRIVER", BlobDriverMemory)
	v.SetDefault("INFERENCE_URL", "http://localhost:5001")
	v.SetDefault("INFERENCE_TIMEOUT", "60s")
	v.SetDefault("KAFKA_TOPIC", "portal-events")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range keys {
		v.BindEnv(k)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.CORSOrigins = splitList(cfg.CORSOrigins, v.GetString("CORS_ORIGINS"))
	cfg.KafkaBrokers = splitList(cfg.KafkaBrokers, v.GetString("KAFKA_BROKERS"))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// splitList normalises comma separated values that arrive either as a
// single env string or as an already-split slice.
func splitList(current []string, raw string) []string {
	if len(current) == 1 && strings.Contains(current[0], ",") {
		raw = current[0]
		current = nil
	}
	if len(current) == 0 && raw != "" {
		current = strings.Split(raw, ",")
	}
	out := current[:0]
	for _, s := range current {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// UsesPostgres reports whether the relational backend is selected.
func (c *Config) UsesPostgres() bool {
	return c.StorageDriver == StorageDriverPostgres
}

// Validate checks that the configuration is safe to run. The in-memory
// storage and blob drivers are refused in production.
func (c *Config) Validate() error {
	switch c.StorageDriver {
	case StorageDriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORAGE_DRIVER is %q", StorageDriverPostgres)
		}
	case StorageDriverMemory:
		if c.IsProduction() {
			return fmt.Errorf("STORAGE_DRIVER %q is not allowed in production", StorageDriverMemory)
		}
	default:
		return fmt.Errorf("STORAGE_DRIVER must be %q or %q, got %q", StorageDriverPostgres, StorageDriverMemory, c.StorageDriver)
	}

	switch c.BlobDriver {
	case BlobDriverS3:
		if c.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required when BLOB_DRIVER is %q", BlobDriverS3)
		}
	case BlobDriverMemory:
	default:
		return fmt.Errorf("BLOB_DRIVER must be %q or %q, got %q", BlobDriverMemory, BlobDriverS3, c.BlobDriver)
	}

	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("BCRYPT_COST must be between 4 and 31, got %d", c.BcryptCost)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}
	return nil
}
