package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"     validate:"required"`
	Database   DatabaseConfig   `mapstructure:"database"   validate:"required"`
	Auth       AuthConfig       `mapstructure:"auth"       validate:"required"`
	Cache      CacheConfig      `mapstructure:"cache"      validate:"required"`
	Redis      RedisConfig      `mapstructure:"redis"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit" validate:"required"`
	Events     EventsConfig     `mapstructure:"events"`
	Pagination PaginationConfig `mapstructure:"pagination" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port                   int    `mapstructure:"port"                     validate:"required,gt=0,lt=65536"`
	LogLevel               string `mapstructure:"log_level"                validate:"required,oneof=debug info warn error"`
	ShutdownTimeoutSeconds int    `mapstructure:"shutdown_timeout_seconds" validate:"gt=0"`
}

// ShutdownTimeout returns the graceful shutdown budget.
func (c ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL                    string `mapstructure:"url"                       validate:"required,url"`
	MaxOpenConns           int    `mapstructure:"max_open_conns"            validate:"gt=0"`
	MaxIdleConns           int    `mapstructure:"max_idle_conns"            validate:"gte=0"`
	ConnMaxLifetimeMinutes int    `mapstructure:"conn_max_lifetime_minutes" validate:"gt=0"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret                   string `mapstructure:"jwt_secret"                     validate:"required,min=32"`
	TokenLifetimeMinutes        int    `mapstructure:"token_lifetime_minutes"         validate:"required,gt=0,lt=44640"`
	RefreshTokenLifetimeMinutes int    `mapstructure:"refresh_token_lifetime_minutes" validate:"required,gt=0,lt=44640,gtfield=TokenLifetimeMinutes"`
	BcryptCost                  int    `mapstructure:"bcrypt_cost"                    validate:"gte=4,lte=31"`
}

// CacheConfig selects the task cache backend.
type CacheConfig struct {
	Backend    string `mapstructure:"backend"     validate:"required,oneof=memory redis"`
	TTLSeconds int    `mapstructure:"ttl_seconds" validate:"gte=0"`
	KeyPrefix  string `mapstructure:"key_prefix"`
}

// TTL returns the entry lifetime. Zero means entries live until evicted.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// RedisConfig is shared by every Redis-backed component.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"     validate:"required_with=Password"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"       validate:"gte=0"`
}

// RateLimitConfig configures the per-client fixed-window limiter.
type RateLimitConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	RequestsPerWindow int    `mapstructure:"requests_per_window" validate:"gt=0"`
	WindowSeconds     int    `mapstructure:"window_seconds"      validate:"gt=0"`
	Backend           string `mapstructure:"backend"             validate:"required,oneof=memory redis"`
}

// Window returns the length of one counting window.
func (c RateLimitConfig) Window() time.Duration {
	return time.Duration(c.WindowSeconds) * time.Second
}

// EventsConfig configures asynchronous delivery of task lifecycle events.
type EventsConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	AMQPURL     string `mapstructure:"amqp_url"     validate:"omitempty,url"`
	Queue       string `mapstructure:"queue"        validate:"required_with=AMQPURL"`
	WorkerCount int    `mapstructure:"worker_count" validate:"gt=0"`
	QueueSize   int    `mapstructure:"queue_size"   validate:"gt=0"`
}

// PaginationConfig bounds list page sizes.
type PaginationConfig struct {
	DefaultSize int `mapstructure:"default_size" validate:"gt=0"`
	MaxSize     int `mapstructure:"max_size"     validate:"gtefield=DefaultSize"`
}
