package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Server    ServerConfig    `json:"server"`
	Database  DatabaseConfig  `json:"database"`
	Redis     RedisConfig     `json:"redis"`
	Cache     CacheConfig     `json:"cache"`
	Auth      AuthConfig      `json:"auth"`
	Telemetry TelemetryConfig `json:"telemetry"`
}

type ServerConfig struct {
	Host            string        `json:"host" env:"HOST" envDefault:"localhost"`
	Port            string        `json:"port" env:"PORT" envDefault:"8080"`
	ReadTimeout     time.Duration `json:"read_timeout" env:"READ_TIMEOUT" envDefault:"30s"`
	WriteTimeout    time.Duration `json:"write_timeout" env:"WRITE_TIMEOUT" envDefault:"30s"`
	IdleTimeout     time.Duration `json:"idle_timeout" env:"IDLE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	Environment     string        `json:"environment" env:"ENVIRONMENT" envDefault:"development"`
	AllowedOrigins  []string      `json:"allowed_origins" env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
}

type DatabaseConfig struct {
	Driver          string        `json:"driver" env:"DB_DRIVER" envDefault:"postgres"`
	Host            string        `json:"host" env:"DB_HOST" envDefault:"localhost"`
	Port            string        `json:"port" env:"DB_PORT" envDefault:"5432"`
	User            string        `json:"user" env:"DB_USER" envDefault:"postgres"`
	Password        string        `json:"password" env:"DB_PASSWORD"`
	Name            string        `json:"name" env:"DB_NAME" envDefault:"todo_list"`
	SSLMode         string        `json:"ssl_mode" env:"DB_SSL_MODE" envDefault:"disable"`
	SQLitePath      string        `json:"sqlite_path" env:"DB_SQLITE_PATH" envDefault:"todo.db"`
	MaxOpenConns    int           `json:"max_open_conns" env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns    int           `json:"max_idle_conns" env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME" envDefault:"1h"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time" env:"DB_CONN_MAX_IDLE_TIME" envDefault:"30m"`
	LogLevel        string        `json:"log_level" env:"DB_LOG_LEVEL" envDefault:"warn"`
}

// RedisConfig is optional; an empty Host keeps the task cache in-process.
type RedisConfig struct {
	Host         string        `json:"host" env:"REDIS_HOST"`
	Port         string        `json:"port" env:"REDIS_PORT" envDefault:"6379"`
	Password     string        `json:"password" env:"REDIS_PASSWORD"`
	DB           int           `json:"db" env:"REDIS_DB" envDefault:"0"`
	PoolSize     int           `json:"pool_size" env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `json:"min_idle_conns" env:"REDIS_MIN_IDLE_CONNS" envDefault:"5"`
	MaxRetries   int           `json:"max_retries" env:"REDIS_MAX_RETRIES" envDefault:"3"`
	DialTimeout  time.Duration `json:"dial_timeout" env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `json:"read_timeout" env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `json:"write_timeout" env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
}

type CacheConfig struct {
	Enabled bool          `json:"enabled" env:"CACHE_ENABLED" envDefault:"true"`
	TTL     time.Duration `json:"ttl" env:"CACHE_TTL" envDefault:"5m"`
}

type AuthConfig struct {
	JWTSecret  string        `json:"-" env:"JWT_SECRET"`
	Issuer     string        `json:"issuer" env:"JWT_ISSUER" envDefault:"ToDoListAPI"`
	Audience   string        `json:"audience" env:"JWT_AUDIENCE" envDefault:"ToDoListAPI"`
	TokenTTL   time.Duration `json:"token_ttl" env:"ACCESS_TOKEN_TTL" envDefault:"1h"`
	BCryptCost int           `json:"bcrypt_cost" env:"BCRYPT_COST" envDefault:"10"`
}

type TelemetryConfig struct {
	OTLPEndpoint string `json:"otlp_endpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName  string `json:"service_name" env:"OTEL_SERVICE_NAME" envDefault:"todo-list-api"`
}

var (
	ErrMissingJWTSecret  = errors.New("JWT secret is required")
	ErrMissingDBPassword = errors.New("database password is required in production")
)

// LoadConfig reads the optional dotenv and YAML files, then parses the
// environment. Variables already present in the environment always win.
func LoadConfig() (*Config, error) {
	if err := loadDotEnv(getEnv("ENV_FILE", ".env")); err != nil {
		return nil, err
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadYAMLFile(path); err != nil {
			return nil, err
		}
	}

	config := &Config{}
	if err := env.Parse(config); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return ErrMissingJWTSecret
	}

	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.Password == "" && c.IsProduction() {
			return ErrMissingDBPassword
		}
	case DriverSQLite:
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}

	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("token TTL must be positive, got %s", c.Auth.TokenTTL)
	}

	return nil
}

func (c *Config) GetDatabaseDSN() string {
	if c.Database.Driver == DriverSQLite {
		return c.Database.SQLitePath
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}

func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

func (c *Config) RedisEnabled() bool {
	return c.Redis.Host != ""
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// loadYAMLFile exports a flat KEY: value YAML document into the process
// environment without overriding variables that are already set.
func loadYAMLFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	values := map[string]interface{}{}
	if err := yaml.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("error parsing config file: %w", err)
	}

	for key, value := range values {
		if _, set := os.LookupEnv(key); set {
			continue
		}
		if err := os.Setenv(key, fmt.Sprint(value)); err != nil {
			return fmt.Errorf("set %s: %w", key, err)
		}
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
