// config предоставляет структуру конфигурации сервиса погашений и функции
// загрузки из файла/переменных окружения с предсказуемым приоритетом.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Драйверы хранилища и бэкенды счётчиков лимитов.
const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"

	RateLimitBackendStorage = "storage"
	RateLimitBackendRedis   = "redis"
)

// Config — корневая конфигурация сервиса.
// Источники значений (по убыванию приоритета):
//  1. явный путь через флаг --config;
//  2. путь в переменной окружения CONFIG_PATH;
//  3. файл local.yaml из рабочей директории;
//  4. переменные окружения (cleanenv).
type Config struct {
	Env        string           `yaml:"env" env:"ENV" env-default:"local"`
	HTTP       HTTPConfig       `yaml:"http"`
	GRPC       GRPCConfig       `yaml:"grpc"`
	Auth       AuthConfig       `yaml:"auth"`
	DB         DBConfig         `yaml:"db"`
	Redis      RedisConfig      `yaml:"redis"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Storage    StorageConfig    `yaml:"storage"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	Redemption RedemptionConfig `yaml:"redemption"`
	Janitor    JanitorConfig    `yaml:"janitor"`
	Timeouts   TimeoutConfig    `yaml:"timeouts"`
}

// TimeoutConfig — таймауты сервиса.
type TimeoutConfig struct {
	Service  time.Duration `yaml:"service" env:"SERVICE_TIMEOUT" env-default:"5s"`
	Shutdown time.Duration `yaml:"shutdown" env:"SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// HTTPConfig — сетевые настройки HTTP-сервера.
type HTTPConfig struct {
	Host string `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
}

// GRPCConfig описывает сетевые настройки gRPC-сервера.
type GRPCConfig struct {
	Host string `yaml:"host" env:"GRPC_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"GRPC_PORT" env-default:"50061"`
}

// Addr возвращает адрес в формате host:port.
func (g HTTPConfig) Addr() string {
	return net.JoinHostPort(g.Host, g.Port)
}

// Addr возвращает адрес в формате host:port.
func (g GRPCConfig) Addr() string {
	return net.JoinHostPort(g.Host, g.Port)
}

// AuthConfig — проверка access-токенов акторов, выпущенных auth-сервисом платформы.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" env:"JWT_SECRET" env-required:"true"`
	Issuer    string `yaml:"issuer" env:"JWT_ISSUER" env-default:"auth-service"`
	Audience  string `yaml:"audience" env:"JWT_AUDIENCE" env-default:"redemption-service"`
}

// DBConfig — настройки подключения к базе данных.
type DBConfig struct {
	DatabaseURL string `yaml:"db_url" env:"DATABASE_URL"`
}

// RedisConfig — Redis для счётчиков лимитов (rate_limit.backend=redis).
type RedisConfig struct {
	RedisURL string `yaml:"redis_url" env:"REDIS_URL"`
	Prefix   string `yaml:"prefix" env:"REDIS_PREFIX" env-default:"redemption:rl:"`
}

// KafkaConfig — публикация доменных событий. Пустой список брокеров отключает публикацию.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers" env:"KAFKA_BROKERS" env-separator:","`
	Topic   string   `yaml:"topic" env:"KAFKA_TOPIC" env-default:"redemption-events"`
}

// StorageConfig выбирает реализацию хранилища.
type StorageConfig struct {
	Driver string `yaml:"driver" env:"STORAGE_DRIVER" env-default:"postgres"`
}

// RateLimitConfig выбирает, где живут счётчики лимитов.
type RateLimitConfig struct {
	Backend string `yaml:"backend" env:"RATE_LIMIT_BACKEND" env-default:"storage"`
}

// RedemptionConfig — параметры протокола погашения.
type RedemptionConfig struct {
	TokenSecret    string        `yaml:"token_secret" env:"REDEMPTION_TOKEN_SECRET" env-required:"true"`
	TokenTTL       time.Duration `yaml:"token_ttl" env:"REDEMPTION_TOKEN_TTL" env-default:"60s"`
	MaxPinAttempts int           `yaml:"max_pin_attempts" env:"REDEMPTION_MAX_PIN_ATTEMPTS" env-default:"3"`
	// Timezone задаёт границы календарного месяца для запрета повторного погашения.
	Timezone string `yaml:"timezone" env:"REDEMPTION_TIMEZONE" env-default:"UTC"`
	// ForbidNegativeBalance запрещает списание ниже нуля (по умолчанию баланс может уйти в минус).
	ForbidNegativeBalance bool          `yaml:"forbid_negative_balance" env:"REDEMPTION_FORBID_NEGATIVE_BALANCE"`
	IssueLimit            int           `yaml:"issue_limit" env:"REDEMPTION_ISSUE_LIMIT" env-default:"10"`
	ValidateLimit         int           `yaml:"validate_limit" env:"REDEMPTION_VALIDATE_LIMIT" env-default:"50"`
	LimitWindow           time.Duration `yaml:"limit_window" env:"REDEMPTION_LIMIT_WINDOW" env-default:"1h"`
}

// Location возвращает часовой пояс месячных границ (UTC, если не разбирается).
func (r RedemptionConfig) Location() *time.Location {
	loc, err := time.LoadLocation(r.Timezone)
	if err != nil {
		return time.UTC
	}

	return loc
}

// JanitorConfig — очистка просроченных непогашенных токенов.
type JanitorConfig struct {
	Period    time.Duration `yaml:"period" env:"JANITOR_PERIOD" env-default:"30m"`
	Retention time.Duration `yaml:"retention" env:"JANITOR_RETENTION" env-default:"24h"`
}

// MustLoad — обёртка над Load с panic при ошибке.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}

	return cfg
}

// Load загружает конфигурацию по приоритету:
// 1) явный путь; 2) CONFIG_PATH; 3) ./local.yaml; 4) ENV,
// и проверяет её согласованность.
// ВАЖНО: после чтения файла накладываем ENV-переменные поверх значений из YAML.
func Load(path string) (*Config, error) {
	cfg, err := read(path)
	if err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func read(path string) (*Config, error) {
	var cfg Config

	// чтение файла + overlay ENV.
	tryRead := func(p string) (*Config, error) {
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

	// 1) Явный путь.
	if path != "" {
		return tryRead(path)
	}

	// 2) CONFIG_PATH.
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		return tryRead(envPath)
	}

	// 3) ./local.yaml.
	if _, err := os.Stat("local.yaml"); err == nil {
		return tryRead("local.yaml")
	}

	// 4) Только ENV.
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml or env vars: %w", err)
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	var errs []error

	r := c.Redemption
	if r.TokenSecret == "" {
		errs = append(errs, errors.New("redemption.token_secret is empty"))
	}
	if r.TokenTTL <= 0 {
		errs = append(errs, errors.New("redemption.token_ttl must be positive"))
	}
	if r.MaxPinAttempts <= 0 {
		errs = append(errs, errors.New("redemption.max_pin_attempts must be positive"))
	}
	if r.IssueLimit <= 0 || r.ValidateLimit <= 0 || r.LimitWindow <= 0 {
		errs = append(errs, errors.New("redemption limits must be positive"))
	}
	if _, err := time.LoadLocation(r.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("redemption.timezone: %w", err))
	}

	switch c.Storage.Driver {
	case StorageDriverPostgres:
		if c.DB.DatabaseURL == "" {
			errs = append(errs, errors.New("db.db_url is required for postgres storage"))
		}
	case StorageDriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown storage.driver %q", c.Storage.Driver))
	}

	switch c.RateLimit.Backend {
	case RateLimitBackendRedis:
		if c.Redis.RedisURL == "" {
			errs = append(errs, errors.New("redis.redis_url is required for redis rate limit backend"))
		}
	case RateLimitBackendStorage:
	default:
		errs = append(errs, fmt.Errorf("unknown rate_limit.backend %q", c.RateLimit.Backend))
	}

	if c.Janitor.Period <= 0 || c.Janitor.Retention < 0 {
		errs = append(errs, errors.New("janitor.period must be positive and janitor.retention non-negative"))
	}

	return errors.Join(errs...)
}
