// Package config loads the service configuration from configs/config.yaml
// and TODO_-prefixed environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Riya-023/collaborative-todo-board/pkg/auth"
	"github.com/Riya-023/collaborative-todo-board/pkg/common/cache"
	"github.com/Riya-023/collaborative-todo-board/pkg/observability"
)

// APIConfig defines the HTTP server configuration
type APIConfig struct {
	ListenAddress  string        `mapstructure:"listen_address"`
	CORSAllowed    string        `mapstructure:"cors_allowed"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	EnableCORS     bool          `mapstructure:"enable_cors"`
	TaskCacheTTL   time.Duration `mapstructure:"task_cache_ttl"`
	ActivityLimit  int           `mapstructure:"activity_limit"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// DatabaseConfig contains Postgres connection settings
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	Migrate         bool          `mapstructure:"migrate"`
}

// WebSocketConfig holds realtime channel configuration
type WebSocketConfig struct {
	MaxConnections int           `mapstructure:"max_connections"`
	PingInterval   time.Duration `mapstructure:"ping_interval"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	MaxMessageSize int64         `mapstructure:"max_message_size"`
	SendBufferSize int           `mapstructure:"send_buffer_size"`
	RateLimit      RateLimit     `mapstructure:"rate_limit"`
}

// RateLimit holds token-bucket settings for the realtime channel
type RateLimit struct {
	Rate  float64 `mapstructure:"rate"`
	Burst int     `mapstructure:"burst"`
	PerIP bool    `mapstructure:"per_ip"`
}

// Config holds the complete application configuration
type Config struct {
	Environment string                      `mapstructure:"environment"`
	API         APIConfig                   `mapstructure:"api"`
	Database    DatabaseConfig              `mapstructure:"database"`
	Cache       cache.RedisConfig           `mapstructure:"cache"`
	CacheMode   string                      `mapstructure:"cache_mode"`
	Auth        auth.ServiceConfig          `mapstructure:"auth"`
	WebSocket   WebSocketConfig             `mapstructure:"websocket"`
	Logging     observability.LoggingConfig `mapstructure:"logging"`
	Metrics     observability.MetricsConfig `mapstructure:"metrics"`
	Tracing     observability.TracingConfig `mapstructure:"tracing"`
}

// Load loads configuration from file and environment variables
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	configFile := os.Getenv("TODO_CONFIG_FILE")
	if configFile == "" {
		configFile = "configs/config.yaml"
	}
	v.SetConfigFile(configFile)

	v.SetEnvPrefix("TODO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Common Docker environment aliases
	_ = v.BindEnv("database.dsn", "DATABASE_URL")
	_ = v.BindEnv("cache.address", "REDIS_ADDR")
	_ = v.BindEnv("auth.jwt_secret", "JWT_SECRET")
	v.AllowEmptyEnv(true)

	if err := v.ReadInConfig(); err != nil {
		// Config file is optional when environment variables are set
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	processEnvExpansion(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("api.listen_address", ":8080")
	v.SetDefault("api.read_timeout", 15*time.Second)
	v.SetDefault("api.write_timeout", 15*time.Second)
	v.SetDefault("api.idle_timeout", 60*time.Second)
	v.SetDefault("api.request_timeout", 10*time.Second)
	v.SetDefault("api.enable_cors", true)
	v.SetDefault("api.cors_allowed", "*")
	v.SetDefault("api.task_cache_ttl", 10*time.Second)
	v.SetDefault("api.activity_limit", 50)

	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.migrate", true)

	v.SetDefault("cache_mode", "memory")
	v.SetDefault("cache.address", "localhost:6379")
	v.SetDefault("cache.dial_timeout", 5)
	v.SetDefault("cache.read_timeout", 3)
	v.SetDefault("cache.write_timeout", 3)
	v.SetDefault("cache.pool_size", 10)

	v.SetDefault("auth.jwt_expiration", 7*24*time.Hour)
	v.SetDefault("auth.cache_size", 1024)
	v.SetDefault("auth.cache_ttl", 5*time.Minute)

	v.SetDefault("websocket.max_connections", 1000)
	v.SetDefault("websocket.ping_interval", 30*time.Second)
	v.SetDefault("websocket.write_timeout", 10*time.Second)
	v.SetDefault("websocket.max_message_size", 1048576)
	v.SetDefault("websocket.send_buffer_size", 64)
	v.SetDefault("websocket.rate_limit.rate", 1000.0/60.0)
	v.SetDefault("websocket.rate_limit.burst", 100)
	v.SetDefault("websocket.rate_limit.per_ip", true)

	v.SetDefault("logging.level", "INFO")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.namespace", "todoboard")
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "todoboard-server")
}

// processEnvExpansion processes ${VAR} and ${VAR:-default} references in
// config values, matching the syntax used in docker-compose files.
func processEnvExpansion(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		value := v.GetString(key)
		if value == "" {
			continue
		}

		if strings.Contains(value, "${") && strings.Contains(value, "}") {
			expanded := expandEnvVars(value)
			if expanded != value {
				v.Set(key, expanded)
			}
		}
	}
}

// expandEnvVars expands environment variables in a string
func expandEnvVars(value string) string {
	result := value

	for {
		start := strings.Index(result, "${")
		if start == -1 {
			break
		}

		end := strings.Index(result[start:], "}")
		if end == -1 {
			break
		}
		end += start

		varRef := result[start+2 : end]

		var envVar, defaultVal string
		if strings.Contains(varRef, ":-") {
			parts := strings.SplitN(varRef, ":-", 2)
			envVar = parts[0]
			defaultVal = parts[1]
		} else {
			envVar = varRef
		}

		envVal := os.Getenv(envVar)
		if envVal == "" && defaultVal != "" {
			envVal = defaultVal
		}

		result = result[:start] + envVal + result[end+1:]
	}

	return result
}
