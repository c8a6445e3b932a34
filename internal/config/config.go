package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config is resolved in three layers: built-in defaults, then an optional
// YAML file named by CONFIG_FILE, then environment variables.
type Config struct {
	AppPort    string `envconfig:"APP_PORT" yaml:"appPort"`
	AppEnv     string `envconfig:"APP_ENV" yaml:"appEnv"`
	AppBaseURL string `envconfig:"APP_BASE_URL" yaml:"appBaseURL"`
	LogLevel   string `envconfig:"LOG_LEVEL" yaml:"logLevel"`

	DBDSN string `envconfig:"DB_DSN" yaml:"dbDSN"`

	JWTSecret     string `envconfig:"JWT_SECRET" yaml:"jwtSecret"`
	JWTExpiresMin int    `envconfig:"JWT_EXPIRES_MIN" yaml:"jwtExpiresMin"`
	CookieName    string `envconfig:"COOKIE_NAME" yaml:"cookieName"`

	FrontendBaseURL string `envconfig:"FRONTEND_BASE_URL" yaml:"frontendBaseURL"`

	RedisAddr          string `envconfig:"REDIS_ADDR" yaml:"redisAddr"`
	RedisPassword      string `envconfig:"REDIS_PASSWORD" yaml:"redisPassword"`
	RateLimitPerMinute int    `envconfig:"RATE_LIMIT_PER_MINUTE" yaml:"rateLimitPerMinute"`

	AMQPURL      string `envconfig:"AMQP_URL" yaml:"amqpURL"`
	AMQPExchange string `envconfig:"AMQP_EXCHANGE" yaml:"amqpExchange"`

	MinioEndpoint      string `envconfig:"MINIO_ENDPOINT" yaml:"minioEndpoint"`
	MinioAccessKey     string `envconfig:"MINIO_ACCESS_KEY" yaml:"minioAccessKey"`
	MinioSecretKey     string `envconfig:"MINIO_SECRET_KEY" yaml:"minioSecretKey"`
	MinioBucket        string `envconfig:"MINIO_BUCKET" yaml:"minioBucket"`
	MinioUseSSL        bool   `envconfig:"MINIO_USE_SSL" yaml:"minioUseSSL"`
	MediaPublicBaseURL string `envconfig:"MEDIA_PUBLIC_BASE_URL" yaml:"mediaPublicBaseURL"`
	UploadDir          string `envconfig:"UPLOAD_DIR" yaml:"uploadDir"`

	GoogleClientID string `envconfig:"GOOGLE_CLIENT_ID" yaml:"googleClientID"`
	GoogleSecret   string `envconfig:"GOOGLE_CLIENT_SECRET" yaml:"googleClientSecret"`
	GoogleRedirect string `envconfig:"GOOGLE_REDIRECT_URL" yaml:"googleRedirectURL"`
}

// minProductionSecret is the HS256 key size floor outside development.
const minProductionSecret = 32

func defaults() Config {
	return Config{
		AppPort:            "8080",
		AppEnv:             "development",
		LogLevel:           "info",
		JWTExpiresMin:      10080,
		CookieName:         "auth-token",
		FrontendBaseURL:    "http://localhost:3000",
		RateLimitPerMinute: 10,
		AMQPExchange:       "skillhub.events",
		UploadDir:          "./uploads",
	}
}

func Load() (Config, error) {
	cfg := defaults()
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, err
		}
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, fmt.Errorf("config: env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

func (c Config) validate() error {
	if strings.TrimSpace(c.DBDSN) == "" {
		return errors.New("config: DB_DSN is required")
	}
	if strings.TrimSpace(c.JWTSecret) == "" {
		return errors.New("config: JWT_SECRET is required")
	}
	if c.IsProduction() && len(c.JWTSecret) < minProductionSecret {
		return fmt.Errorf("config: JWT_SECRET must be at least %d bytes in production", minProductionSecret)
	}
	if c.JWTExpiresMin <= 0 {
		return errors.New("config: JWT_EXPIRES_MIN must be > 0")
	}
	if c.RateLimitPerMinute < 0 {
		return errors.New("config: RATE_LIMIT_PER_MINUTE must be >= 0")
	}
	if c.MinioEndpoint != "" {
		var missing []string
		for name, v := range map[string]string{
			"MINIO_ACCESS_KEY": c.MinioAccessKey,
			"MINIO_SECRET_KEY": c.MinioSecretKey,
			"MINIO_BUCKET":     c.MinioBucket,
		} {
			if strings.TrimSpace(v) == "" {
				missing = append(missing, name)
			}
		}
		if len(missing) > 0 {
			sort.Strings(missing)
			return fmt.Errorf("config: MINIO_ENDPOINT is set but %s missing", strings.Join(missing, ", "))
		}
	}
	if c.AMQPURL != "" && strings.TrimSpace(c.AMQPExchange) == "" {
		return errors.New("config: AMQP_URL is set but AMQP_EXCHANGE is empty")
	}
	return nil
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// CookieSecure marks the session cookie Secure outside local development.
func (c Config) CookieSecure() bool { return c.IsProduction() }

func (c Config) TokenTTL() time.Duration {
	return time.Duration(c.JWTExpiresMin) * time.Minute
}

func (c Config) Addr() string { return ":" + c.AppPort }
