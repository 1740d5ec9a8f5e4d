package realtime

import (
	"context"
	"errors"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/weiawesome/campus-live/pkg/log"
	"github.com/weiawesome/campus-live/pkg/pubsub"
)

type redisTyping struct {
	room *redisRoom

	mu     sync.Mutex
	typing bool
	timer  *time.Timer
}

// Start marks the client as typing until TypingTimeout passes without
// another Start, then broadcasts the typing set.
func (t *redisTyping) Start(ctx context.Context) error {
	if _, err := t.room.lifetimeCtx(); err != nil {
		return err
	}

	timeout := t.room.conn.opts.TypingTimeout
	expires := t.room.conn.now().Add(timeout).UnixMilli()
	err := t.room.conn.client.ZAdd(ctx, typingKey(t.room.key), redis.Z{
		Score:  float64(expires),
		Member: t.room.conn.clientID,
	}).Err()
	if err != nil {
		return err
	}

	t.mu.Lock()
	t.typing = true
	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = time.AfterFunc(timeout, t.expire)
	t.mu.Unlock()

	return t.broadcast(ctx)
}

// Stop removes the client from the typing set and broadcasts the change.
func (t *redisTyping) Stop(ctx context.Context) error {
	if _, err := t.room.lifetimeCtx(); err != nil {
		return err
	}

	t.mu.Lock()
	t.typing = false
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.mu.Unlock()

	if err := t.room.conn.client.ZRem(ctx, typingKey(t.room.key), t.room.conn.clientID).Err(); err != nil {
		return err
	}
	return t.broadcast(ctx)
}

// Current returns the clients typing right now, sorted, pruning expired
// entries.
func (t *redisTyping) Current(ctx context.Context) ([]string, error) {
	key := typingKey(t.room.key)
	now := strconv.FormatInt(t.room.conn.now().UnixMilli(), 10)

	pipe := t.room.conn.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "-inf", now)
	members := pipe.ZRangeByScore(ctx, key, &redis.ZRangeBy{Min: "(" + now, Max: "+inf"})
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}

	ids := members.Val()
	slices.Sort(ids)
	return ids, nil
}

func (t *redisTyping) Subscribe(handler func(TypingEvent)) (Subscription, error) {
	return t.room.subscribe(pubsub.RoomTypingChannel(t.room.key), func(ev *pubsub.Event) {
		if typing, ok := decode[TypingEvent](t.room, ev); ok {
			handler(typing)
		}
	})
}

func (t *redisTyping) broadcast(ctx context.Context) error {
	current, err := t.Current(ctx)
	if err != nil {
		return err
	}
	return t.room.publish(ctx, pubsub.RoomTypingChannel(t.room.key), pubsub.EventTypingChanged, TypingEvent{CurrentlyTyping: current})
}

func (t *redisTyping) expire() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := t.Stop(ctx); err != nil && !errors.Is(err, ErrNotAttached) {
		l := t.room.conn.opts.Logger
		l.Debug().Err(err).Str(log.FieldRoom, t.room.key).Msg("failed to expire typing")
	}
}

func (t *redisTyping) stopIfTyping(ctx context.Context) error {
	t.mu.Lock()
	typing := t.typing
	t.mu.Unlock()
	if !typing {
		return nil
	}
	return t.Stop(ctx)
}
