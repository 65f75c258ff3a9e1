// config - источник загрузки конфигурации backoffice-console.
//
// Источники (по убыванию приоритета):
//  1. явный путь --config;
//  2. CONFIG_PATH;
//  3. ./local.yaml;
//  4. только ENV (cleanenv).
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Драйверы постоянного хранилища сессии.
const (
	StorageFile   = "file"
	StorageRedis  = "redis"
	StorageMemory = "memory"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Env      string        `yaml:"env" env:"ENV" env-default:"local"`
	HTTP     HTTPConfig    `yaml:"http"`
	API      APIConfig     `yaml:"api"`
	GRPC     GRPCConfig    `yaml:"grpc"`
	Session  SessionConfig `yaml:"session"`
	Storage  StorageConfig `yaml:"storage"`
	Timeouts TimeoutConfig `yaml:"timeouts"`
}

// TimeoutConfig — таймаут исходящих вызовов и запросов консоли.
type TimeoutConfig struct {
	Service time.Duration `yaml:"service" env:"TIMEOUT_SERVICE" env-default:"15s"`
}

// HTTPConfig — локальный HTTP-сервер консоли.
type HTTPConfig struct {
	Host string `yaml:"host" env:"HTTP_HOST" env-default:"127.0.0.1"`
	Port string `yaml:"port" env:"HTTP_PORT" env-default:"50095"`
}

func (h HTTPConfig) Addr() string { return net.JoinHostPort(h.Host, h.Port) }

// APIConfig — адреса back-office API.
type APIConfig struct {
	BaseURL     string `yaml:"base_url"      env:"API_BASE_URL"      env-default:"http://localhost:8080"`
	AuthBaseURL string `yaml:"auth_base_url" env:"API_AUTH_BASE_URL"`
	UserAgent   string `yaml:"user_agent"    env:"API_USER_AGENT"    env-default:"backoffice-console"`
}

// AuthURL — адрес auth API; пустой AuthBaseURL означает «тот же, что BaseURL».
func (a APIConfig) AuthURL() string {
	if a.AuthBaseURL != "" {
		return a.AuthBaseURL
	}

	return a.BaseURL
}

// GRPCConfig — адрес gRPC back-office сервиса (опционально).
// HealthService — имя сервиса для grpc.health.v1 ("" — сервер целиком).
type GRPCConfig struct {
	BackofficeAddr string `yaml:"backoffice_addr" env:"GRPC_BACKOFFICE_ADDR"`
	HealthService  string `yaml:"health_service"  env:"GRPC_HEALTH_SERVICE"`
}

// SessionConfig — параметры жизненного цикла сессии.
type SessionConfig struct {
	StorageKey       string        `yaml:"storage_key"       env:"SESSION_STORAGE_KEY"       env-default:"token"`
	RefreshThreshold time.Duration `yaml:"refresh_threshold" env:"SESSION_REFRESH_THRESHOLD" env-default:"60s"`
	LoginRoute       string        `yaml:"login_route"       env:"SESSION_LOGIN_ROUTE"       env-default:"login"`
	LandingRoute     string        `yaml:"landing_route"     env:"SESSION_LANDING_ROUTE"     env-default:"dashboard"`
	// Timeout ограничивает общую загрузку/обновление сессии, отвязанную от
	// отмены отдельного вызывающего. 0 — без ограничения.
	Timeout time.Duration `yaml:"timeout" env:"SESSION_TIMEOUT" env-default:"15s"`
}

// StorageConfig — постоянное хранилище пары токенов.
type StorageConfig struct {
	Driver      string `yaml:"driver"       env:"STORAGE_DRIVER"       env-default:"file"`
	Path        string `yaml:"path"         env:"STORAGE_PATH"`
	RedisURL    string `yaml:"redis_url"    env:"STORAGE_REDIS_URL"`
	RedisPrefix string `yaml:"redis_prefix" env:"STORAGE_REDIS_PREFIX" env-default:"backoffice:session:"`
}

// Validate проверяет согласованность значений после загрузки.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case StorageFile, StorageMemory:
	case StorageRedis:
		if c.Storage.RedisURL == "" {
			return fmt.Errorf("%w: storage.redis_url is required for driver %q", ErrInvalidConfig, StorageRedis)
		}
	default:
		return fmt.Errorf("%w: unknown storage driver %q", ErrInvalidConfig, c.Storage.Driver)
	}

	if c.Session.RefreshThreshold < 0 {
		return fmt.Errorf("%w: session.refresh_threshold must be >= 0", ErrInvalidConfig)
	}

	if c.Session.Timeout < 0 {
		return fmt.Errorf("%w: session.timeout must be >= 0", ErrInvalidConfig)
	}

	if c.Session.LoginRoute == "" || c.Session.LandingRoute == "" {
		return fmt.Errorf("%w: session routes must be set", ErrInvalidConfig)
	}

	if c.API.BaseURL == "" {
		return fmt.Errorf("%w: api.base_url is required", ErrInvalidConfig)
	}

	return nil
}

// MustLoad — паника при ошибке загрузки.
func MustLoad(path string) *Config {
	cfg, err := Load(path)

	if err != nil {
		panic(err)
	}

	return cfg
}

func Load(path string) (*Config, error) {
	cfg, err := load(path)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func load(path string) (*Config, error) {
	var cfg Config

	tryRead := func(p string) (*Config, error) {
		if p == "" {
			return nil, fmt.Errorf("empty config path")
		}

		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("config file %q stat failed: %w", p, err)
		}

		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}

		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to overlay env: %w", err)
		}

		return &cfg, nil
	}

	// 1) --config
	if path != "" {
		return tryRead(path)
	}

	// 2) CONFIG_PATH
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		return tryRead(envPath)
	}

	// 3) ./local.yaml
	if _, err := os.Stat("local.yaml"); err == nil {
		return tryRead("local.yaml")
	}

	// 4) только ENV
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml or env vars: %w", err)
	}

	return &cfg, nil
}
