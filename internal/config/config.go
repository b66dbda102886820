// Package config предоставляет структуры и функции для загрузки настроек сервиса.
// Настройки читаются из YAML-файла (CONFIG_PATH), любое значение можно
// переопределить переменной окружения.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек
type Config struct {
	Env                     string `yaml:"env" env:"ENVIRONMENT" env-default:"development"`
	StorageConnectionString string `yaml:"storage_connection_string" env:"DATABASE_URL"`
	MigrationsPath          string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"./migrations"`
	HTTPServer              `yaml:"http_server"`
	Beag                    `yaml:"beag"`
	Worker                  `yaml:"worker"`
	RedisConnection         `yaml:"redis_connection"`
	RabbitMQ                `yaml:"rabbitmq"`
	CORS                    `yaml:"cors"`
	RateLimit               `yaml:"rate_limit"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env:"HTTP_ADDRESS" env-default:":8000"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env:"HTTP_TIMEOUT" env-default:"30s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
}

// Beag структура для подключения к внешнему биллинговому API
type Beag struct {
	APIURL      string        `yaml:"api_url" env:"BEAG_API_URL" env-default:"https://my-saas-basic-api-d5e3hpgdf0gnh2em.eastus-01.azurewebsites.net/api/v1/saas"`
	APIKey      string        `yaml:"api_key" env:"BEAG_API_KEY"`
	TimeoutBeag time.Duration `yaml:"timeout" env:"BEAG_TIMEOUT" env-default:"30s"`
}

// Worker структура для настройки фоновой синхронизации
type Worker struct {
	SyncIntervalHours int  `yaml:"sync_interval_hours" env:"SYNC_INTERVAL_HOURS" env-default:"6"`
	WorkerDisabled    bool `yaml:"disabled" env:"WORKER_DISABLED"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis" env:"REDIS_ADDRESS"`
	Password     string        `yaml:"password" env:"REDIS_PASSWORD"`
	User         string        `yaml:"user" env:"REDIS_USER"`
	DB           int           `yaml:"db" env:"REDIS_DB"`
	MaxRetries   int           `yaml:"max_retries" env:"REDIS_MAX_RETRIES" env-default:"3"`
	DialTimeout  time.Duration `yaml:"dial_timeout" env:"REDIS_DIAL_TIMEOUT" env-default:"5s"`
	TimeoutRedis time.Duration `yaml:"timeoutredis" env:"REDIS_TIMEOUT" env-default:"3s"`
	CacheTTL     time.Duration `yaml:"cache_ttl" env:"REDIS_CACHE_TTL" env-default:"1h"`
}

// RabbitMQ структура для публикации событий о завершении синхронизации
type RabbitMQ struct {
	RabbitMQURL        string        `yaml:"url" env:"RABBITMQ_URL"`
	Exchange           string        `yaml:"exchange" env:"RABBITMQ_EXCHANGE" env-default:"subscriptions"`
	RabbitMQMaxRetries int           `yaml:"max_retries" env:"RABBITMQ_MAX_RETRIES" env-default:"5"`
	RabbitMQRetryDelay time.Duration `yaml:"retry_delay" env:"RABBITMQ_RETRY_DELAY" env-default:"2s"`
}

// CORS структура с адресами фронтенда и админки
type CORS struct {
	FrontendURL string `yaml:"frontend_url" env:"FRONTEND_URL" env-default:"http://localhost:3000"`
	AdminURL    string `yaml:"admin_url" env:"ADMIN_URL" env-default:"http://localhost:3001"`
}

// RateLimit структура для ограничения ручных запусков синхронизации
type RateLimit struct {
	RPS   float64 `yaml:"rps" env:"SYNC_RATE_LIMIT_RPS" env-default:"1"`
	Burst int     `yaml:"burst" env:"SYNC_RATE_LIMIT_BURST" env-default:"3"`
}

// Load читает конфиг из файла path и переменных окружения.
// Если path пустой, используются только переменные окружения.
func Load(path string) (*Config, error) {
	const op = "config.Load"

	var cfg Config
	if path == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	} else {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: file %s does not exist", op, path)
		}
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &cfg, nil
}

// MustLoad функция для загрузки конфига, завершает процесс при ошибке
func MustLoad() *Config {
	cfg, err := Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return cfg
}

func (c *Config) validate() error {
	if c.StorageConnectionString == "" {
		return errors.New("storage_connection_string (DATABASE_URL) is required")
	}
	if c.SyncIntervalHours <= 0 {
		return fmt.Errorf("sync_interval_hours must be positive, got %d", c.SyncIntervalHours)
	}
	return nil
}

// SyncInterval возвращает интервал между прогонами синхронизации.
func (c *Config) SyncInterval() time.Duration {
	return time.Duration(c.SyncIntervalHours) * time.Hour
}

// CORSOrigins возвращает список разрешённых источников для CORS.
func (c *Config) CORSOrigins() []string {
	return []string{c.FrontendURL, c.AdminURL}
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"StorageConnectionString: %s\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"  IdleTimeout: %s\n"+
			"Beag:\n"+
			"  APIURL: %s\n"+
			"  APIKey: %s\n"+
			"Worker:\n"+
			"  SyncIntervalHours: %d\n"+
			"  Disabled: %t\n"+
			"RedisConnection:\n"+
			"  Addr: %s\n"+
			"  DB: %d\n"+
			"RabbitMQ:\n"+
			"  Exchange: %s\n",
		c.Env,
		mask(c.StorageConnectionString),
		c.AddressHTTP,
		c.TimeoutHTTP,
		c.IdleTimeout,
		c.APIURL,
		mask(c.APIKey),
		c.SyncIntervalHours,
		c.WorkerDisabled,
		c.AddressRedis,
		c.DB,
		c.Exchange,
	)
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "***"
}
