package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. TASKFLOW_SERVER_PORT.
const EnvPrefix = "TASKFLOW"

var defaults = map[string]any{
	"server.port":                         8080,
	"server.log_level":                    "info",
	"server.shutdown_timeout_seconds":     10,
	"database.url":                        "",
	"database.max_open_conns":             10,
	"database.max_idle_conns":             5,
	"database.conn_max_lifetime_minutes":  5,
	"auth.jwt_secret":                     "",
	"auth.token_lifetime_minutes":         60,
	"auth.refresh_token_lifetime_minutes": 10080,
	"auth.bcrypt_cost":                    10,
	"cache.backend":                       "memory",
	"cache.ttl_seconds":                   0,
	"cache.key_prefix":                    "taskflow:task:",
	"redis.addr":                          "localhost:6379",
	"redis.password":                      "",
	"redis.db":                            0,
	"rate_limit.enabled":                  true,
	"rate_limit.requests_per_window":      50,
	"rate_limit.window_seconds":           60,
	"rate_limit.backend":                  "memory",
	"events.enabled":                      true,
	"events.amqp_url":                     "",
	"events.queue":                        "task_events",
	"events.worker_count":                 2,
	"events.queue_size":                   256,
	"pagination.default_size":             10,
	"pagination.max_size":                 100,
}

// Load configuration from environment variables and optionally a config.yaml
// in the working directory. Environment variables take precedence over
// values from the file. Returns a populated Config or an error if loading
// or validation fails.
func Load() (*Config, error) {
	v := viper.New()

	// Every key needs a default so AutomaticEnv can see it during Unmarshal.
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate runs the struct tag rules over cfg.
func Validate(cfg *Config) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	if cfg.Events.AMQPURL != "" && !strings.HasPrefix(cfg.Events.AMQPURL, "amqp") {
		return fmt.Errorf("config validation failed: events.amqp_url must use the amqp or amqps scheme")
	}
	return nil
}
