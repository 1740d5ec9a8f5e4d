package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/weiawesome/campus-live/chat-client/internal/realtime"
	"github.com/weiawesome/campus-live/pkg/log"
)

// Manager owns one connection and one room for a single surface. It is safe
// for concurrent use; transport callbacks arrive on transport goroutines.
type Manager struct {
	connector realtime.Connector
	creds     realtime.CredentialSource
	store     MessageStore
	names     NameResolver
	cfg       Config
	logger    zerolog.Logger
	changes   chan struct{}

	mu       sync.Mutex
	state    State
	identity Identity
	// gen identifies the current activation. Handlers and in-flight
	// activations holding an older value are ignored.
	gen            uint64
	lastErr        error
	conn           realtime.Connection
	room           realtime.Room
	subs           []realtime.Subscription
	typingSignaled bool

	messages []*ViewMessage
	index    map[string]int
	seen     map[string]struct{}
	presence []PresenceMember
	typing   []string
}

// NewManager creates a Manager in StateUninitialized.
func NewManager(connector realtime.Connector, creds realtime.CredentialSource, store MessageStore, names NameResolver, cfg Config) *Manager {
	cfg = cfg.withDefaults()
	return &Manager{
		connector: connector,
		creds:     creds,
		store:     store,
		names:     names,
		cfg:       cfg,
		logger:    cfg.Logger.With().Str(log.FieldRoom, cfg.Room).Logger(),
		changes:   make(chan struct{}, 1),
		state:     StateUninitialized,
		index:     make(map[string]int),
		seen:      make(map[string]struct{}),
	}
}

// Activate connects, attaches the room, subscribes to live events, enters
// presence and loads history. Calling it while an activation for the same
// identity is running or done is a no-op. On failure the manager returns to
// StateUninitialized and may be activated again.
func (m *Manager) Activate(ctx context.Context, id Identity) error {
	id.AccountID = strings.TrimSpace(id.AccountID)
	if id.AccountID == "" {
		return ErrMissingIdentity
	}

	m.mu.Lock()
	if m.state.inProgress() {
		same := m.identity.AccountID == id.AccountID
		m.mu.Unlock()
		if same {
			return nil
		}
		return ErrIdentityChanged
	}
	m.gen++
	gen := m.gen
	m.state = StateConnecting
	m.identity = id
	m.lastErr = nil
	m.resetViewLocked()
	conn := m.conn
	m.mu.Unlock()
	m.notify()

	if conn == nil || conn.State() != realtime.StateConnected || conn.ClientID() != id.AccountID {
		if conn != nil {
			m.mu.Lock()
			if m.conn == conn {
				m.conn = nil
			}
			m.mu.Unlock()
			_ = conn.Close()
		}
		var err error
		conn, err = m.connect(ctx)
		if err != nil {
			return m.fail(gen, err)
		}
		if !m.adopt(gen, conn) {
			return ErrActivationCanceled
		}
	} else {
		m.logger.Debug().Str(log.FieldClientID, conn.ClientID()).Msg("reusing realtime connection")
	}

	if !m.advance(gen, StateRoomJoining) {
		return ErrActivationCanceled
	}

	room := conn.Room(m.cfg.Room)
	if err := room.Attach(ctx); err != nil {
		return m.fail(gen, fmt.Errorf("%w: %w", ErrAttachFailed, err))
	}

	subs, err := m.subscribe(room, gen)
	if err != nil {
		m.release(ctx, room, subs, false)
		return m.fail(gen, fmt.Errorf("%w: %w", ErrAttachFailed, err))
	}

	displayName := strings.TrimSpace(id.DisplayName)
	if displayName == "" {
		displayName = m.names.Resolve(ctx, id.AccountID)
	} else {
		m.names.Seed(id.AccountID, displayName)
	}
	if err := room.Presence().Enter(ctx, realtime.PresenceData{DisplayName: displayName}); err != nil {
		m.logger.Warn().Err(err).Str(log.FieldAccount, id.AccountID).Msg("failed to enter presence")
	}

	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		m.release(ctx, room, subs, false)
		return ErrActivationCanceled
	}
	m.room = room
	m.subs = subs
	m.state = StateActive
	m.mu.Unlock()
	m.notify()

	m.logger.Info().Str(log.FieldAccount, id.AccountID).Msg("room session active")

	// Failures are logged inside; the view proceeds with what it has.
	_ = m.LoadHistory(ctx)
	m.refreshPresence(ctx, gen)
	return nil
}

func (m *Manager) connect(ctx context.Context) (realtime.Connection, error) {
	connectCtx, cancel := context.WithTimeout(ctx, m.cfg.ConnectTimeout)
	defer cancel()

	conn, err := m.connector.Connect(connectCtx, m.creds)
	if err != nil {
		if ctx.Err() == nil && errors.Is(connectCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s: %w", ErrConnectTimeout, m.cfg.ConnectTimeout, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrConnectFailed, err)
	}
	return conn, nil
}

// adopt makes conn the manager's connection and reports whether gen is still
// the current activation. A connection from a superseded activation is kept
// only while no other connection is held. The connection that loses is closed.
func (m *Manager) adopt(gen uint64, conn realtime.Connection) bool {
	m.mu.Lock()
	current := m.gen == gen
	prev := m.conn
	keep := current || prev == nil
	if keep {
		m.conn = conn
	}
	m.mu.Unlock()

	switch {
	case prev == conn:
	case !keep:
		_ = conn.Close()
	case prev != nil:
		_ = prev.Close()
	}
	return current
}

// subscribe registers the four delivery handlers, bound to gen.
func (m *Manager) subscribe(room realtime.Room, gen uint64) ([]realtime.Subscription, error) {
	var subs []realtime.Subscription

	sub, err := room.Messages().Subscribe(func(msg realtime.Message) { m.onMessage(gen, msg) })
	if err != nil {
		return subs, err
	}
	subs = append(subs, sub)

	sub, err = room.Reactions().Subscribe(func(r realtime.Reaction) { m.onReaction(gen, r) })
	if err != nil {
		return subs, err
	}
	subs = append(subs, sub)

	sub, err = room.Typing().Subscribe(func(ev realtime.TypingEvent) { m.onTyping(gen, ev) })
	if err != nil {
		return subs, err
	}
	subs = append(subs, sub)

	sub, err = room.Presence().Subscribe(func(realtime.PresenceEvent) { m.onPresence(gen) })
	if err != nil {
		return subs, err
	}
	return append(subs, sub), nil
}

// advance moves to next unless the activation gen was superseded.
func (m *Manager) advance(gen uint64, next State) bool {
	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		return false
	}
	m.state = next
	m.mu.Unlock()
	m.notify()
	return true
}

// fail records err for the activation gen and reverts to StateUninitialized.
func (m *Manager) fail(gen uint64, err error) error {
	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		return ErrActivationCanceled
	}
	m.state = StateUninitialized
	m.lastErr = err
	m.mu.Unlock()
	m.notify()

	m.logger.Error().Err(err).Msg("room session activation failed")
	return err
}

// Deactivate tears the surface down: handlers of the current activation are
// invalidated, subscriptions cancelled and the room detached. The connection
// stays open so a later Activate can reuse it.
func (m *Manager) Deactivate(ctx context.Context) {
	m.mu.Lock()
	if !m.state.inProgress() {
		m.mu.Unlock()
		return
	}
	m.gen++
	room, subs := m.room, m.subs
	signaled := m.typingSignaled
	m.room = nil
	m.subs = nil
	m.typingSignaled = false
	m.state = StateDetached
	m.mu.Unlock()
	m.notify()

	if room != nil {
		m.release(ctx, room, subs, signaled)
	}
	m.logger.Info().Msg("room session detached")
}

// release cancels subs and detaches room.
func (m *Manager) release(ctx context.Context, room realtime.Room, subs []realtime.Subscription, typing bool) {
	for _, sub := range subs {
		sub.Cancel()
	}
	if typing {
		if err := room.Typing().Stop(ctx); err != nil {
			m.logger.Warn().Err(err).Msg("failed to stop typing")
		}
	}
	if err := room.Presence().Leave(ctx); err != nil {
		m.logger.Debug().Err(err).Msg("failed to leave presence")
	}
	if err := room.Detach(ctx); err != nil {
		m.logger.Warn().Err(err).Msg("failed to detach room")
	}
}

// Close deactivates and closes the connection. The manager must not be
// used afterwards.
func (m *Manager) Close(ctx context.Context) error {
	m.Deactivate(ctx)

	m.mu.Lock()
	conn := m.conn
	m.conn = nil
	m.mu.Unlock()

	if conn == nil {
		return nil
	}
	return conn.Close()
}
