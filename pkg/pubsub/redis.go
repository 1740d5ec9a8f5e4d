package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/weiawesome/campus-live/pkg/log"
)

const defaultBufferSize = 100

// ErrClosed is returned by operations on a closed RedisPubSub.
var ErrClosed = errors.New("pubsub closed")

// RedisPubSub implements PubSub interface using Redis.
type RedisPubSub struct {
	client        *redis.Client
	ownsClient    bool
	bufferSize    int
	subscriptions map[*redisSubscription]struct{}
	closed        bool
	mu            sync.Mutex
}

// NewRedisPubSub creates a new Redis-based PubSub instance with its own client.
func NewRedisPubSub(ctx context.Context, cfg RedisConfig) (*RedisPubSub, error) {
	client, err := NewRedisClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	ps := NewRedisPubSubWithClient(client)
	ps.ownsClient = true
	return ps, nil
}

// NewRedisPubSubWithClient wraps an existing client. Close does not close
// the client.
func NewRedisPubSubWithClient(client *redis.Client) *RedisPubSub {
	return &RedisPubSub{
		client:        client,
		bufferSize:    defaultBufferSize,
		subscriptions: make(map[*redisSubscription]struct{}),
	}
}

// Publish publishes an event to the specified channel.
func (r *RedisPubSub) Publish(ctx context.Context, channel string, event *Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	return r.client.Publish(ctx, channel, data).Err()
}

// Subscribe subscribes to one or more channels. It returns once Redis has
// confirmed the subscription, so events published afterwards are delivered.
func (r *RedisPubSub) Subscribe(ctx context.Context, channels ...string) (Subscription, error) {
	if len(channels) == 0 {
		return nil, fmt.Errorf("at least one channel is required")
	}
	return r.subscribe(ctx, r.client.Subscribe(ctx, channels...))
}

// SubscribePattern subscribes to channels matching a pattern.
func (r *RedisPubSub) SubscribePattern(ctx context.Context, pattern string) (Subscription, error) {
	return r.subscribe(ctx, r.client.PSubscribe(ctx, pattern))
}

func (r *RedisPubSub) subscribe(ctx context.Context, ps *redis.PubSub) (Subscription, error) {
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		ps.Close()
		return nil, ErrClosed
	}

	sub := &redisSubscription{
		parent: r,
		ps:     ps,
		events: make(chan *Event, r.bufferSize),
		done:   make(chan struct{}),
	}
	r.subscriptions[sub] = struct{}{}

	go sub.processMessages(ctx)

	return sub, nil
}

// Close closes all subscriptions and, when owned, the Redis client.
func (r *RedisPubSub) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	subs := make([]*redisSubscription, 0, len(r.subscriptions))
	for sub := range r.subscriptions {
		subs = append(subs, sub)
	}
	r.mu.Unlock()

	for _, sub := range subs {
		sub.Close()
	}

	if r.ownsClient {
		return r.client.Close()
	}
	return nil
}

// GetClient returns the underlying Redis client for advanced operations.
func (r *RedisPubSub) GetClient() *redis.Client {
	return r.client
}

func (r *RedisPubSub) forget(sub *redisSubscription) {
	r.mu.Lock()
	delete(r.subscriptions, sub)
	r.mu.Unlock()
}

type redisSubscription struct {
	parent *RedisPubSub
	ps     *redis.PubSub
	events chan *Event
	done   chan struct{}
	once   sync.Once
	err    error
}

func (s *redisSubscription) Events() <-chan *Event {
	return s.events
}

func (s *redisSubscription) Close() error {
	s.once.Do(func() {
		close(s.done)
		s.err = s.ps.Close()
		s.parent.forget(s)
	})
	return s.err
}

// processMessages reads messages from the Redis pubsub and forwards them to
// the event channel until the subscription is closed or ctx is done.
func (s *redisSubscription) processMessages(ctx context.Context) {
	defer close(s.events)

	ch := s.ps.Channel()
	l := log.L()

	for {
		select {
		case <-ctx.Done():
			s.Close()
			return
		case <-s.done:
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}

			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				l.Warn().Err(err).Str("channel", msg.Channel).Msg("pubsub: dropping undecodable message")
				continue
			}

			select {
			case s.events <- &event:
			case <-s.done:
				return
			case <-ctx.Done():
				s.Close()
				return
			}
		}
	}
}
