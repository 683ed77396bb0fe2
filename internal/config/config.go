// config - источник загрузки конфигурации порталов.
//
// Источники (по убыванию приоритета):
//  1. явный путь --config;
//  2. CONFIG_PATH;
//  3. ./local.yaml;
//  4. только ENV (cleanenv).
package config

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env      string        `yaml:"env" env:"ENV" env-default:"local"`
	HTTP     HTTPConfig    `yaml:"http"`
	Metrics  MetricsConfig `yaml:"metrics"`
	Backend  BackendConfig `yaml:"backend"`
	Cookies  CookieConfig  `yaml:"cookies"`
	Cache    CacheConfig   `yaml:"cache"`
	Timeouts TimeoutConfig `yaml:"timeouts"`
}

// TimeoutConfig — общий дедлайн обработки запроса.
type TimeoutConfig struct {
	Service time.Duration `yaml:"service" env:"SERVICE" env-default:"15s"`
}

// HTTPConfig — публичный REST-сервер портала.
type HTTPConfig struct {
	Host string `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
}

func (h HTTPConfig) Addr() string { return net.JoinHostPort(h.Host, h.Port) }

// MetricsConfig — отдельный HTTP для Prometheus.
type MetricsConfig struct {
	Host string `yaml:"host"   env:"METRICS_HOST"   env-default:"0.0.0.0"`
	Port string `yaml:"port"   env:"METRICS_PORT"   env-default:"9090"`
}

func (m MetricsConfig) Addr() string { return net.JoinHostPort(m.Host, m.Port) }

// BackendConfig — вышестоящий REST API zen-cat.
type BackendConfig struct {
	BaseURL   string        `yaml:"base_url"   env:"BACKEND_BASE_URL"   env-default:"http://localhost:8098"`
	Timeout   time.Duration `yaml:"timeout"    env:"BACKEND_TIMEOUT"    env-default:"10s"`
	UserAgent string        `yaml:"user_agent" env:"BACKEND_USER_AGENT" env-default:"zen-cat-portal"`
}

// CookieConfig — атрибуты cookie, в которых живёт пара токенов.
type CookieConfig struct {
	Path     string        `yaml:"path"      env:"COOKIE_PATH"      env-default:"/"`
	Domain   string        `yaml:"domain"    env:"COOKIE_DOMAIN"    env-default:""`
	Secure   bool          `yaml:"secure"    env:"COOKIE_SECURE"    env-default:"false"`
	SameSite string        `yaml:"same_site" env:"COOKIE_SAMESITE"  env-default:"lax"`
	MaxAge   time.Duration `yaml:"max_age"   env:"COOKIE_MAX_AGE"   env-default:"720h"`
}

// CacheConfig — кеш профилей /me/ в Redis; пустой URL выключает кеш.
type CacheConfig struct {
	RedisURL string        `yaml:"redis_url" env:"CACHE_REDIS_URL" env-default:""`
	TTL      time.Duration `yaml:"ttl"       env:"CACHE_TTL"       env-default:"5m"`
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
		if err := cleanenv.ReadConfig("local.yaml", &cfg); err != nil {
			return nil, fmt.Errorf("failed to read local.yaml: %w", err)
		}

		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to overlay env: %w", err)
		}

		return &cfg, nil
	}

	// 4) только ENV
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml or env vars: %w", err)
	}
	return &cfg, nil
}
