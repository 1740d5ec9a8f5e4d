package config

import (
	"time"

	pkgconfig "github.com/weiawesome/campus-live/pkg/config"
	pkglog "github.com/weiawesome/campus-live/pkg/log"
	"github.com/weiawesome/campus-live/pkg/pubsub"
)

type Config struct {
	API      APIConfig      `mapstructure:"api"`
	Account  AccountConfig  `mapstructure:"account"`
	Redis    pubsub.RedisConfig
	Realtime RealtimeConfig `mapstructure:"realtime"`
	Session  SessionConfig  `mapstructure:"session"`
	Log      pkglog.Config
}

type APIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type AccountConfig struct {
	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`
}

// RealtimeConfig configures the Redis transport. PublicKeyFile enables
// verification of the credential handed out by api-service.
type RealtimeConfig struct {
	PublicKeyFile     string        `mapstructure:"public_key_file"`
	Issuer            string        `mapstructure:"issuer"`
	PresenceTTL       time.Duration `mapstructure:"presence_ttl"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
	TypingTimeout     time.Duration `mapstructure:"typing_timeout"`
}

type SessionConfig struct {
	Room           string        `mapstructure:"room"`
	HistoryLimit   int           `mapstructure:"history_limit"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	TypingIdle     time.Duration `mapstructure:"typing_idle"`
}

// Load reads ./config/chat.yaml (optional) and the environment.
func Load() (*Config, error) {
	v, err := pkgconfig.Load("./config", "chat")
	if err != nil {
		return nil, err
	}

	// Set defaults
	v.SetDefault("api.base_url", "http://localhost:8080")
	v.SetDefault("api.timeout", "10s")
	v.SetDefault("account.email", "")
	v.SetDefault("account.password", "")
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.read_timeout", "3s")
	v.SetDefault("redis.write_timeout", "3s")
	v.SetDefault("realtime.public_key_file", "")
	v.SetDefault("realtime.issuer", "campus-live")
	v.SetDefault("realtime.presence_ttl", "30s")
	v.SetDefault("realtime.heartbeat_interval", "10s")
	v.SetDefault("realtime.typing_timeout", "3s")
	v.SetDefault("session.room", "lobby")
	v.SetDefault("session.history_limit", 100)
	v.SetDefault("session.connect_timeout", "15s")
	v.SetDefault("session.typing_idle", "3s")
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.pretty", true)
	v.SetDefault("log.service_name", "chat-client")

	// Bind environment variables
	v.BindEnv("api.base_url", "CAMPUS_API_URL")
	v.BindEnv("account.email", "CAMPUS_EMAIL")
	v.BindEnv("account.password", "CAMPUS_PASSWORD")
	v.BindEnv("redis.address", "REDIS_ADDRESS")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("realtime.public_key_file", "REALTIME_PUBLIC_KEY_FILE")
	v.BindEnv("session.room", "CAMPUS_ROOM")
	v.BindEnv("log.level", "LOG_LEVEL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
