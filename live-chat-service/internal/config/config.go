package config

import (
	"time"

	pkgconfig "github.com/weiawesome/wes-live-chat/pkg/config"
	"github.com/weiawesome/wes-live-chat/pkg/pubsub"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    pubsub.RedisConfig
	Cache    CacheConfig
	Relay    RelayConfig
	Stream   StreamConfig
	Chat     ChatConfig
	Shutdown ShutdownConfig
	Log      LogConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	FilePath        string `mapstructure:"file_path"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
	LogLevel        string `mapstructure:"log_level"`
}

type CacheConfig struct {
	Enabled bool
	Prefix  string
	TTL     time.Duration
}

type RelayConfig struct {
	Enabled   bool
	Namespace string
}

type StreamConfig struct {
	PingInterval time.Duration `mapstructure:"ping_interval"`
	BufferSize   int           `mapstructure:"buffer_size"`
}

type ChatConfig struct {
	MaxMessageLength    int `mapstructure:"max_message_length"`
	DefaultHistoryLimit int `mapstructure:"default_history_limit"`
	MaxHistoryLimit     int `mapstructure:"max_history_limit"`
}

type ShutdownConfig struct {
	Timeout time.Duration
}

type LogConfig struct {
	Level  string
	Pretty bool
}

func Load() (*Config, error) {
	v, err := pkgconfig.Load(pkgconfig.GetEnv("CONFIG_PATH", "./config"), "config")
	if err != nil {
		return nil, err
	}

	// Set defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8090)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "live_chat")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.file_path", "./data/chat.db")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", 60)
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.read_timeout", "3s")
	v.SetDefault("redis.write_timeout", "3s")
	v.SetDefault("redis.buffer_size", 100)
	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.prefix", "chat:transcript")
	v.SetDefault("cache.ttl", "10s")
	v.SetDefault("relay.enabled", false)
	v.SetDefault("relay.namespace", "")
	v.SetDefault("stream.ping_interval", "15s")
	v.SetDefault("stream.buffer_size", 16)
	v.SetDefault("chat.max_message_length", 500)
	v.SetDefault("chat.default_history_limit", 40)
	v.SetDefault("chat.max_history_limit", 100)
	v.SetDefault("shutdown.timeout", "30s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	// Bind environment variables
	v.BindEnv("server.port", "PORT")
	v.BindEnv("database.driver", "DB_DRIVER")
	v.BindEnv("database.host", "DB_HOST")
	v.BindEnv("database.port", "DB_PORT")
	v.BindEnv("database.user", "DB_USER")
	v.BindEnv("database.password", "DB_PASSWORD")
	v.BindEnv("database.dbname", "DB_NAME")
	v.BindEnv("database.sslmode", "DB_SSLMODE")
	v.BindEnv("database.file_path", "DB_FILE_PATH")
	v.BindEnv("database.max_idle_conns", "DB_MAX_IDLE_CONNS")
	v.BindEnv("database.max_open_conns", "DB_MAX_OPEN_CONNS")
	v.BindEnv("database.conn_max_lifetime", "DB_CONN_MAX_LIFETIME")
	v.BindEnv("database.log_level", "DB_LOG_LEVEL")
	v.BindEnv("redis.address", "REDIS_ADDRESS")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("redis.db", "REDIS_DB")
	v.BindEnv("cache.enabled", "CACHE_ENABLED")
	v.BindEnv("cache.ttl", "CACHE_TTL")
	v.BindEnv("relay.enabled", "RELAY_ENABLED")
	v.BindEnv("relay.namespace", "RELAY_NAMESPACE")
	v.BindEnv("stream.ping_interval", "STREAM_PING_INTERVAL")
	v.BindEnv("stream.buffer_size", "STREAM_BUFFER_SIZE")
	v.BindEnv("chat.max_message_length", "CHAT_MAX_MESSAGE_LENGTH")
	v.BindEnv("shutdown.timeout", "SHUTDOWN_TIMEOUT")
	v.BindEnv("log.level", "LOG_LEVEL")
	v.BindEnv("log.pretty", "LOG_PRETTY")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Parse durations
	cfg.Redis.ReadTimeout = pkgconfig.Duration(v, "redis.read_timeout", 3*time.Second)
	cfg.Redis.WriteTimeout = pkgconfig.Duration(v, "redis.write_timeout", 3*time.Second)
	cfg.Cache.TTL = pkgconfig.Duration(v, "cache.ttl", 10*time.Second)
	cfg.Stream.PingInterval = pkgconfig.Duration(v, "stream.ping_interval", 15*time.Second)
	cfg.Shutdown.Timeout = pkgconfig.Duration(v, "shutdown.timeout", 30*time.Second)

	if cfg.Stream.BufferSize < 1 {
		cfg.Stream.BufferSize = 1
	}

	return &cfg, nil
}
