package realtime

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/weiawesome/campus-live/pkg/idgen"
	"github.com/weiawesome/campus-live/pkg/jwt"
	"github.com/weiawesome/campus-live/pkg/log"
	"github.com/weiawesome/campus-live/pkg/pubsub"
)

const (
	DefaultPresenceTTL       = 30 * time.Second
	DefaultHeartbeatInterval = 10 * time.Second
	DefaultTypingTimeout     = 3 * time.Second
)

// Options configures the Redis transport.
type Options struct {
	Redis pubsub.RedisConfig
	// Verifier, when set, checks the credential signature and takes the
	// client id from its claims.
	Verifier *jwt.Verifier
	// PresenceTTL drops members whose heartbeat is older than this.
	PresenceTTL       time.Duration
	HeartbeatInterval time.Duration
	// TypingTimeout is how long a typing start lasts without renewal.
	TypingTimeout time.Duration
	Logger        zerolog.Logger
}

func (o Options) withDefaults() Options {
	if o.PresenceTTL <= 0 {
		o.PresenceTTL = DefaultPresenceTTL
	}
	if o.HeartbeatInterval <= 0 {
		o.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if o.TypingTimeout <= 0 {
		o.TypingTimeout = DefaultTypingTimeout
	}
	return o
}

// RedisConnector opens Redis-backed connections.
type RedisConnector struct {
	opts Options
}

// NewRedisConnector creates a connector.
func NewRedisConnector(opts Options) *RedisConnector {
	return &RedisConnector{opts: opts.withDefaults()}
}

// Connect obtains a credential and opens a Redis client, pinging it within ctx.
func (c *RedisConnector) Connect(ctx context.Context, creds CredentialSource) (Connection, error) {
	cred, err := creds.Credential(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to obtain credential: %w", err)
	}

	clientID := cred.ClientID
	if c.opts.Verifier != nil {
		claims, err := c.opts.Verifier.ValidateRealtime(cred.Token)
		if err != nil {
			return nil, fmt.Errorf("invalid realtime credential: %w", err)
		}
		clientID = claims.ClientID
	}
	if clientID == "" {
		return nil, ErrMissingClientID
	}

	client, err := pubsub.NewRedisClient(ctx, c.opts.Redis)
	if err != nil {
		return nil, err
	}

	l := c.opts.Logger
	l.Debug().Str(log.FieldClientID, clientID).Msg("realtime connection established")
	return newRedisConnection(client, clientID, c.opts), nil
}

type redisConnection struct {
	client   *redis.Client
	health   *linkHealth
	ps       *pubsub.RedisPubSub
	clientID string
	opts     Options
	serials  *idgen.ULID
	now      func() time.Time

	mu     sync.Mutex
	rooms  map[string]*redisRoom
	closed bool
}

func newRedisConnection(client *redis.Client, clientID string, opts Options) *redisConnection {
	health := newLinkHealth(opts.Logger.With().Str(log.FieldClientID, clientID).Logger())
	client.AddHook(health)
	return &redisConnection{
		client:   client,
		health:   health,
		ps:       pubsub.NewRedisPubSubWithClient(client),
		clientID: clientID,
		opts:     opts,
		serials:  idgen.NewULID(),
		now:      time.Now,
		rooms:    make(map[string]*redisRoom),
	}
}

func (c *redisConnection) State() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return StateClosed
	}
	if c.health.isDown() {
		return StateDisconnected
	}
	return StateConnected
}

func (c *redisConnection) ClientID() string {
	return c.clientID
}

func (c *redisConnection) Room(key string) Room {
	c.mu.Lock()
	defer c.mu.Unlock()
	if r, ok := c.rooms[key]; ok {
		return r
	}
	r := newRedisRoom(c, key)
	c.rooms[key] = r
	return r
}

// Close detaches every room and closes the Redis client.
func (c *redisConnection) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	rooms := make([]*redisRoom, 0, len(c.rooms))
	for _, r := range c.rooms {
		rooms = append(rooms, r)
	}
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for _, r := range rooms {
		if err := r.Detach(ctx); err != nil {
			l := c.opts.Logger
			l.Warn().Err(err).Str(log.FieldRoom, r.key).Msg("failed to detach room on close")
		}
	}

	_ = c.ps.Close()
	return c.client.Close()
}

func (c *redisConnection) isClosed() bool {
	return c.State() == StateClosed
}
