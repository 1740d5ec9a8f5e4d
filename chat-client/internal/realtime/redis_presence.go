package realtime

import (
	"context"
	"encoding/json"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/weiawesome/campus-live/pkg/log"
	"github.com/weiawesome/campus-live/pkg/pubsub"
)

type redisPresence struct {
	room *redisRoom

	mu        sync.Mutex
	entered   bool
	data      PresenceData
	heartbeat context.CancelFunc
}

// Enter registers the client in the room's presence set, keeps it fresh with
// a heartbeat and announces the entry.
func (p *redisPresence) Enter(ctx context.Context, data PresenceData) error {
	lifetime, err := p.room.lifetimeCtx()
	if err != nil {
		return err
	}

	member, err := p.write(ctx, data)
	if err != nil {
		return err
	}

	p.mu.Lock()
	if p.heartbeat != nil {
		p.heartbeat()
	}
	hbCtx, cancel := context.WithCancel(lifetime)
	p.entered = true
	p.data = data
	p.heartbeat = cancel
	p.mu.Unlock()

	go p.heartbeatLoop(hbCtx)

	return p.room.publish(ctx, pubsub.RoomPresenceChannel(p.room.key), pubsub.EventPresenceChanged, PresenceEvent{
		Action: PresenceEnter,
		Member: member,
	})
}

// Leave removes the client from the presence set and announces it.
func (p *redisPresence) Leave(ctx context.Context) error {
	if _, err := p.room.lifetimeCtx(); err != nil {
		return err
	}

	p.mu.Lock()
	if p.heartbeat != nil {
		p.heartbeat()
		p.heartbeat = nil
	}
	data := p.data
	p.entered = false
	p.mu.Unlock()

	clientID := p.room.conn.clientID
	pipe := p.room.conn.client.TxPipeline()
	pipe.HDel(ctx, presenceKey(p.room.key), clientID)
	pipe.ZRem(ctx, presenceSeenKey(p.room.key), clientID)
	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}

	return p.room.publish(ctx, pubsub.RoomPresenceChannel(p.room.key), pubsub.EventPresenceChanged, PresenceEvent{
		Action: PresenceLeave,
		Member: PresenceMember{ClientID: clientID, Data: data, UpdatedAt: p.room.conn.now().UTC()},
	})
}

// Query returns the live members sorted by client id. Members whose last
// heartbeat is older than PresenceTTL are pruned.
func (p *redisPresence) Query(ctx context.Context) ([]PresenceMember, error) {
	hashKey := presenceKey(p.room.key)
	seenKey := presenceSeenKey(p.room.key)
	cutoff := strconv.FormatInt(p.room.conn.now().Add(-p.room.conn.opts.PresenceTTL).UnixMilli(), 10)

	stale, err := p.room.conn.client.ZRangeByScore(ctx, seenKey, &redis.ZRangeBy{Min: "-inf", Max: cutoff}).Result()
	if err != nil {
		return nil, err
	}
	if len(stale) > 0 {
		pipe := p.room.conn.client.TxPipeline()
		pipe.HDel(ctx, hashKey, stale...)
		pipe.ZRemRangeByScore(ctx, seenKey, "-inf", cutoff)
		if _, err := pipe.Exec(ctx); err != nil {
			return nil, err
		}
	}

	live, err := p.room.conn.client.ZRangeByScore(ctx, seenKey, &redis.ZRangeBy{Min: "(" + cutoff, Max: "+inf"}).Result()
	if err != nil {
		return nil, err
	}
	if len(live) == 0 {
		return nil, nil
	}

	values, err := p.room.conn.client.HMGet(ctx, hashKey, live...).Result()
	if err != nil {
		return nil, err
	}

	members := make([]PresenceMember, 0, len(values))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var m PresenceMember
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			l := p.room.conn.opts.Logger
			l.Warn().Err(err).Str(log.FieldClientID, live[i]).Msg("skipping malformed presence entry")
			continue
		}
		members = append(members, m)
	}

	slices.SortFunc(members, func(a, b PresenceMember) int {
		return strings.Compare(a.ClientID, b.ClientID)
	})
	return members, nil
}

func (p *redisPresence) Subscribe(handler func(PresenceEvent)) (Subscription, error) {
	return p.room.subscribe(pubsub.RoomPresenceChannel(p.room.key), func(ev *pubsub.Event) {
		if event, ok := decode[PresenceEvent](p.room, ev); ok {
			handler(event)
		}
	})
}

func (p *redisPresence) write(ctx context.Context, data PresenceData) (PresenceMember, error) {
	now := p.room.conn.now()
	member := PresenceMember{
		ClientID:  p.room.conn.clientID,
		Data:      data,
		UpdatedAt: now.UTC(),
	}
	raw, err := json.Marshal(member)
	if err != nil {
		return member, err
	}

	pipe := p.room.conn.client.TxPipeline()
	pipe.HSet(ctx, presenceKey(p.room.key), member.ClientID, raw)
	pipe.ZAdd(ctx, presenceSeenKey(p.room.key), redis.Z{Score: float64(now.UnixMilli()), Member: member.ClientID})
	_, err = pipe.Exec(ctx)
	return member, err
}

// heartbeatLoop refreshes the member's last-seen score until ctx ends.
func (p *redisPresence) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(p.room.conn.opts.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.refresh(ctx)
		}
	}
}

func (p *redisPresence) refresh(ctx context.Context) {
	p.mu.Lock()
	data := p.data
	p.mu.Unlock()

	if _, err := p.write(ctx, data); err != nil && ctx.Err() == nil {
		l := p.room.conn.opts.Logger
		l.Warn().Err(err).Str(log.FieldRoom, p.room.key).Msg("failed to refresh presence")
	}
}

func (p *redisPresence) leaveIfEntered(ctx context.Context) error {
	p.mu.Lock()
	entered := p.entered
	p.mu.Unlock()
	if !entered {
		return nil
	}
	return p.Leave(ctx)
}
