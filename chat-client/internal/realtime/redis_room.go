package realtime

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/weiawesome/campus-live/pkg/log"
	"github.com/weiawesome/campus-live/pkg/pubsub"
)

// Redis key patterns (pub/sub channels are listed in pkg/pubsub):
// chat:room:{room}:typing          ZSET<client_id> score=expiry ms
// chat:room:{room}:presence        HASH client_id -> PresenceMember JSON
// chat:room:{room}:presence:seen   ZSET<client_id> score=last heartbeat ms

func typingKey(room string) string {
	return fmt.Sprintf("chat:room:%s:typing", room)
}

func presenceKey(room string) string {
	return fmt.Sprintf("chat:room:%s:presence", room)
}

func presenceSeenKey(room string) string {
	return fmt.Sprintf("chat:room:%s:presence:seen", room)
}

type redisRoom struct {
	conn *redisConnection
	key  string

	messages  *redisMessages
	reactions *redisReactions
	typing    *redisTyping
	presence  *redisPresence

	mu       sync.Mutex
	attached bool
	// lifetime ends every subscription and loop when the room detaches.
	lifetime context.Context
	cancel   context.CancelFunc
}

func newRedisRoom(conn *redisConnection, key string) *redisRoom {
	r := &redisRoom{conn: conn, key: key}
	r.messages = &redisMessages{room: r}
	r.reactions = &redisReactions{room: r}
	r.typing = &redisTyping{room: r}
	r.presence = &redisPresence{room: r}
	return r
}

func (r *redisRoom) Key() string { return r.key }

func (r *redisRoom) Messages() Messages { return r.messages }
func (r *redisRoom) Reactions() Reactions { return r.reactions }
func (r *redisRoom) Typing() Typing { return r.typing }
func (r *redisRoom) Presence() Presence { return r.presence }

// Attach verifies the connection and opens the room for use. Attaching an
// attached room is a no-op.
func (r *redisRoom) Attach(ctx context.Context) error {
	if r.conn.isClosed() {
		return ErrConnectionClosed
	}
	if err := r.conn.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to attach room %s: %w", r.key, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.attached {
		return nil
	}
	r.lifetime, r.cancel = context.WithCancel(context.Background())
	r.attached = true
	return nil
}

// Detach stops typing, leaves presence and ends all subscriptions.
func (r *redisRoom) Detach(ctx context.Context) error {
	r.mu.Lock()
	if !r.attached {
		r.mu.Unlock()
		return nil
	}
	r.mu.Unlock()

	var errs []error
	if err := r.typing.stopIfTyping(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := r.presence.leaveIfEntered(ctx); err != nil {
		errs = append(errs, err)
	}

	r.mu.Lock()
	r.attached = false
	r.cancel()
	r.mu.Unlock()

	return errors.Join(errs...)
}

// lifetimeCtx returns the context of the current attachment.
func (r *redisRoom) lifetimeCtx() (context.Context, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.attached {
		return nil, ErrNotAttached
	}
	return r.lifetime, nil
}

func (r *redisRoom) publish(ctx context.Context, channel, eventType string, payload any) error {
	if _, err := r.lifetimeCtx(); err != nil {
		return err
	}
	event, err := pubsub.NewEvent(eventType, r.key, r.conn.clientID, payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", eventType, err)
	}
	return r.conn.ps.Publish(ctx, channel, event)
}

// subscribe delivers decoded events of one channel to handle, in arrival
// order, on a dedicated goroutine.
func (r *redisRoom) subscribe(channel string, handle func(*pubsub.Event)) (Subscription, error) {
	lifetime, err := r.lifetimeCtx()
	if err != nil {
		return nil, err
	}

	sub, err := r.conn.ps.Subscribe(lifetime, channel)
	if err != nil {
		return nil, err
	}

	go func() {
		for ev := range sub.Events() {
			handle(ev)
		}
	}()
	return &redisSubscription{sub: sub}, nil
}

type redisSubscription struct {
	sub pubsub.Subscription
}

func (s *redisSubscription) Cancel() {
	_ = s.sub.Close()
}

// decode unmarshals an event payload, logging and dropping malformed ones.
func decode[T any](r *redisRoom, ev *pubsub.Event) (T, bool) {
	var v T
	if err := ev.UnmarshalPayload(&v); err != nil {
		l := r.conn.opts.Logger
		l.Warn().Err(err).Str(log.FieldRoom, r.key).Str("type", ev.Type).Msg("dropping malformed event")
		return v, false
	}
	return v, true
}

type redisMessages struct {
	room *redisRoom
}

// Publish sends a message, stamping it with a ULID serial and the time.
func (m *redisMessages) Publish(ctx context.Context, text string, metadata map[string]string) error {
	serial, err := m.room.conn.serials.Generate()
	if err != nil {
		return err
	}
	msg := Message{
		Serial:    serial,
		ClientID:  m.room.conn.clientID,
		Text:      text,
		Metadata:  metadata,
		Timestamp: m.room.conn.now().UTC(),
	}
	return m.room.publish(ctx, pubsub.RoomMessagesChannel(m.room.key), pubsub.EventMessageCreated, msg)
}

func (m *redisMessages) Subscribe(handler func(Message)) (Subscription, error) {
	return m.room.subscribe(pubsub.RoomMessagesChannel(m.room.key), func(ev *pubsub.Event) {
		if msg, ok := decode[Message](m.room, ev); ok {
			handler(msg)
		}
	})
}

type redisReactions struct {
	room *redisRoom
}

func (x *redisReactions) Publish(ctx context.Context, messageID, emoji string) error {
	reaction := Reaction{
		MessageID: messageID,
		Emoji:     emoji,
		ClientID:  x.room.conn.clientID,
		Timestamp: x.room.conn.now().UTC(),
	}
	return x.room.publish(ctx, pubsub.RoomReactionsChannel(x.room.key), pubsub.EventReactionAdded, reaction)
}

func (x *redisReactions) Subscribe(handler func(Reaction)) (Subscription, error) {
	return x.room.subscribe(pubsub.RoomReactionsChannel(x.room.key), func(ev *pubsub.Event) {
		if reaction, ok := decode[Reaction](x.room, ev); ok {
			handler(reaction)
		}
	})
}
