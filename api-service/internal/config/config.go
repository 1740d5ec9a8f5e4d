package config

import (
	"time"

	pkgconfig "github.com/weiawesome/campus-live/pkg/config"
	"github.com/weiawesome/campus-live/pkg/database"
	pkglog "github.com/weiawesome/campus-live/pkg/log"
	"github.com/weiawesome/campus-live/pkg/pubsub"
)

type Config struct {
	Server       ServerConfig
	Database     database.Config
	MessageStore MessageStoreConfig `mapstructure:"message_store"`
	Cassandra    CassandraConfig
	Redis        pubsub.RedisConfig
	Cache        CacheConfig
	JWT          JWTConfig
	Realtime     RealtimeConfig
	IDGen        IDGenConfig `mapstructure:"idgen"`
	Log          pkglog.Config
}

type ServerConfig struct {
	Host string
	Port int
}

// MessageStoreConfig selects the message backend: "gorm" or "cassandra".
type MessageStoreConfig struct {
	Driver       string `mapstructure:"driver"`
	DefaultLimit int    `mapstructure:"default_limit"`
	MaxLimit     int    `mapstructure:"max_limit"`
}

type CassandraConfig struct {
	Hosts          []string      `mapstructure:"hosts"`
	Keyspace       string        `mapstructure:"keyspace"`
	Consistency    string        `mapstructure:"consistency"`
	Username       string        `mapstructure:"username"`
	Password       string        `mapstructure:"password"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Prefix  string        `mapstructure:"prefix"`
	TTL     time.Duration `mapstructure:"ttl"`
}

type JWTConfig struct {
	Issuer          string        `mapstructure:"issuer"`
	PrivateKeyFile  string        `mapstructure:"private_key_file"`
	AccessDuration  time.Duration `mapstructure:"access_duration"`
	RefreshDuration time.Duration `mapstructure:"refresh_duration"`
}

type RealtimeConfig struct {
	TokenTTL time.Duration `mapstructure:"token_ttl"`
}

type IDGenConfig struct {
	MachineID int64 `mapstructure:"machine_id"`
}

func Load() (*Config, error) {
	v, err := pkgconfig.Load("./config", "config")
	if err != nil {
		return nil, err
	}

	// Set defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "campus_live")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.time_zone", "UTC")
	v.SetDefault("database.file_path", "./data/campus.db")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", 60)
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("message_store.driver", "gorm")
	v.SetDefault("message_store.default_limit", 100)
	v.SetDefault("message_store.max_limit", 500)
	v.SetDefault("cassandra.hosts", []string{"localhost"})
	v.SetDefault("cassandra.keyspace", "campus_chat")
	v.SetDefault("cassandra.consistency", "LOCAL_ONE")
	v.SetDefault("cassandra.connect_timeout", "10s")
	v.SetDefault("cassandra.timeout", "5s")
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.read_timeout", "3s")
	v.SetDefault("redis.write_timeout", "3s")
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.prefix", "history")
	v.SetDefault("cache.ttl", "30s")
	v.SetDefault("jwt.issuer", "campus-live")
	v.SetDefault("jwt.private_key_file", "")
	v.SetDefault("jwt.access_duration", "15m")
	v.SetDefault("jwt.refresh_duration", "168h")
	v.SetDefault("realtime.token_ttl", "1h")
	v.SetDefault("idgen.machine_id", 1)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("log.service_name", "api-service")

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
	v.BindEnv("message_store.driver", "MESSAGE_STORE_DRIVER")
	v.BindEnv("cassandra.hosts", "CASSANDRA_HOSTS")
	v.BindEnv("cassandra.keyspace", "CASSANDRA_KEYSPACE")
	v.BindEnv("cassandra.username", "CASSANDRA_USERNAME")
	v.BindEnv("cassandra.password", "CASSANDRA_PASSWORD")
	v.BindEnv("redis.address", "REDIS_ADDRESS")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("cache.enabled", "CACHE_ENABLED")
	v.BindEnv("jwt.private_key_file", "JWT_PRIVATE_KEY_FILE")
	v.BindEnv("idgen.machine_id", "MACHINE_ID")
	v.BindEnv("log.level", "LOG_LEVEL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
