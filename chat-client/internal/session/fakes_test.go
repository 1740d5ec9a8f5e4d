package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/weiawesome/campus-live/chat-client/internal/identity"
	"github.com/weiawesome/campus-live/chat-client/internal/realtime"
)

// mockStore is a testify double for MessageStore.
type mockStore struct {
	mock.Mock
}

func (s *mockStore) ListRecentMessages(ctx context.Context, room string, limit int) ([]StoredMessage, error) {
	args := s.Called(ctx, room, limit)
	msgs, _ := args.Get(0).([]StoredMessage)
	return msgs, args.Error(1)
}

func (s *mockStore) CreateMessage(ctx context.Context, room string, msg NewMessage) (*CreatedMessage, error) {
	args := s.Called(ctx, room, msg)
	created, _ := args.Get(0).(*CreatedMessage)
	return created, args.Error(1)
}

// directory is an identity store backed by a map.
type directory map[string]string

func (d directory) FindDisplayName(ctx context.Context, accountID string) (string, error) {
	if name, ok := d[accountID]; ok {
		return name, nil
	}
	return "", identity.ErrNotFound
}

// fakeConnector hands out conn, or the next queued connection when any are
// queued. When gate is set, Connect waits for it to close or for ctx.
type fakeConnector struct {
	mu       sync.Mutex
	attempts int
	gate     chan struct{}
	err      error
	conn     *fakeConn
	queued   []*fakeConn
}

func newFakeConnector(clientID string) *fakeConnector {
	room := newFakeRoom("lobby")
	room.clientID = clientID
	return &fakeConnector{conn: &fakeConn{clientID: clientID, room: room}}
}

func (c *fakeConnector) Connect(ctx context.Context, creds realtime.CredentialSource) (realtime.Connection, error) {
	c.mu.Lock()
	c.attempts++
	gate, err, conn := c.gate, c.err, c.conn
	if len(c.queued) > 0 {
		conn, c.queued = c.queued[0], c.queued[1:]
	}
	c.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	conn.reopen()
	return conn, nil
}

func (c *fakeConnector) setGate(gate chan struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gate = gate
}

func (c *fakeConnector) queue(conn *fakeConn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queued = append(c.queued, conn)
}

func (c *fakeConnector) Attempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts
}

type fakeConn struct {
	clientID string
	room     *fakeRoom

	mu     sync.Mutex
	closed bool
	down   bool
}

func (c *fakeConn) State() realtime.ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.closed:
		return realtime.StateClosed
	case c.down:
		return realtime.StateDisconnected
	}
	return realtime.StateConnected
}

func (c *fakeConn) dropLink() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.down = true
}

func (c *fakeConn) ClientID() string { return c.clientID }
func (c *fakeConn) Room(string) realtime.Room { return c.room }

func (c *fakeConn) reopen() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = false
	c.down = false
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// fakeRoom records calls and lets tests emit deliveries. Emitting reaches
// every handler ever registered, including cancelled ones, the way a
// callback already in flight would.
type fakeRoom struct {
	key string

	mu         sync.Mutex
	attachErr  error
	publishErr error
	enterErr   error
	queryErr   error
	echo       bool
	serial     int
	attaches   int
	detaches   int
	leaves     int
	cancels    int
	entered    []realtime.PresenceData
	published  []realtime.Message
	reactions  []realtime.Reaction
	typing     []bool
	members    []realtime.PresenceMember
	clientID   string

	onMessage  []func(realtime.Message)
	onReaction []func(realtime.Reaction)
	onTyping   []func(realtime.TypingEvent)
	onPresence []func(realtime.PresenceEvent)
}

func newFakeRoom(key string) *fakeRoom {
	return &fakeRoom{key: key}
}

func (r *fakeRoom) Key() string { return r.key }

func (r *fakeRoom) Attach(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attaches++
	return r.attachErr
}

func (r *fakeRoom) Detach(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.detaches++
	return nil
}

func (r *fakeRoom) Messages() realtime.Messages { return fakeMessages{r} }
func (r *fakeRoom) Reactions() realtime.Reactions { return fakeReactions{r} }
func (r *fakeRoom) Typing() realtime.Typing { return fakeTyping{r} }
func (r *fakeRoom) Presence() realtime.Presence { return fakePresence{r} }

func (r *fakeRoom) set(f func(r *fakeRoom)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f(r)
}

func (r *fakeRoom) emitMessage(msg realtime.Message) {
	r.mu.Lock()
	handlers := append([]func(realtime.Message){}, r.onMessage...)
	r.mu.Unlock()
	for _, h := range handlers {
		h(msg)
	}
}

func (r *fakeRoom) emitReaction(reaction realtime.Reaction) {
	r.mu.Lock()
	handlers := append([]func(realtime.Reaction){}, r.onReaction...)
	r.mu.Unlock()
	for _, h := range handlers {
		h(reaction)
	}
}

func (r *fakeRoom) emitTyping(ev realtime.TypingEvent) {
	r.mu.Lock()
	handlers := append([]func(realtime.TypingEvent){}, r.onTyping...)
	r.mu.Unlock()
	for _, h := range handlers {
		h(ev)
	}
}

func (r *fakeRoom) emitPresence() {
	r.mu.Lock()
	handlers := append([]func(realtime.PresenceEvent){}, r.onPresence...)
	r.mu.Unlock()
	for _, h := range handlers {
		h(realtime.PresenceEvent{Action: realtime.PresenceEnter})
	}
}

type fakeSub struct{ room *fakeRoom }

func (s fakeSub) Cancel() { s.room.set(func(r *fakeRoom) { r.cancels++ }) }

type fakeMessages struct{ r *fakeRoom }

func (m fakeMessages) Publish(ctx context.Context, text string, metadata map[string]string) error {
	m.r.mu.Lock()
	if m.r.publishErr != nil {
		err := m.r.publishErr
		m.r.mu.Unlock()
		return err
	}
	m.r.serial++
	msg := realtime.Message{
		Serial:    fmt.Sprintf("s-%d", m.r.serial),
		ClientID:  m.r.clientID,
		Text:      text,
		Metadata:  metadata,
		Timestamp: time.Now(),
	}
	m.r.published = append(m.r.published, msg)
	echo := m.r.echo
	m.r.mu.Unlock()

	if echo {
		m.r.emitMessage(msg)
	}
	return nil
}

func (m fakeMessages) Subscribe(h func(realtime.Message)) (realtime.Subscription, error) {
	m.r.set(func(r *fakeRoom) { r.onMessage = append(r.onMessage, h) })
	return fakeSub{m.r}, nil
}

type fakeReactions struct{ r *fakeRoom }

func (x fakeReactions) Publish(ctx context.Context, messageID, emoji string) error {
	x.r.set(func(r *fakeRoom) {
		r.reactions = append(r.reactions, realtime.Reaction{MessageID: messageID, Emoji: emoji, ClientID: r.clientID})
	})
	return nil
}

func (x fakeReactions) Subscribe(h func(realtime.Reaction)) (realtime.Subscription, error) {
	x.r.set(func(r *fakeRoom) { r.onReaction = append(r.onReaction, h) })
	return fakeSub{x.r}, nil
}

type fakeTyping struct{ r *fakeRoom }

func (t fakeTyping) Start(ctx context.Context) error {
	t.r.set(func(r *fakeRoom) { r.typing = append(r.typing, true) })
	return nil
}

func (t fakeTyping) Stop(ctx context.Context) error {
	t.r.set(func(r *fakeRoom) { r.typing = append(r.typing, false) })
	return nil
}

func (t fakeTyping) Current(ctx context.Context) ([]string, error) { return nil, nil }

func (t fakeTyping) Subscribe(h func(realtime.TypingEvent)) (realtime.Subscription, error) {
	t.r.set(func(r *fakeRoom) { r.onTyping = append(r.onTyping, h) })
	return fakeSub{t.r}, nil
}

type fakePresence struct{ r *fakeRoom }

func (p fakePresence) Enter(ctx context.Context, data realtime.PresenceData) error {
	p.r.mu.Lock()
	defer p.r.mu.Unlock()
	p.r.entered = append(p.r.entered, data)
	return p.r.enterErr
}

func (p fakePresence) Leave(ctx context.Context) error {
	p.r.set(func(r *fakeRoom) { r.leaves++ })
	return nil
}

func (p fakePresence) Query(ctx context.Context) ([]realtime.PresenceMember, error) {
	p.r.mu.Lock()
	defer p.r.mu.Unlock()
	if p.r.queryErr != nil {
		return nil, p.r.queryErr
	}
	return append([]realtime.PresenceMember(nil), p.r.members...), nil
}

func (p fakePresence) Subscribe(h func(realtime.PresenceEvent)) (realtime.Subscription, error) {
	p.r.set(func(r *fakeRoom) { r.onPresence = append(r.onPresence, h) })
	return fakeSub{p.r}, nil
}

// fakeClock fires AfterFunc callbacks only when Advance passes their deadline.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now + d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	var due []func()
	for _, t := range c.timers {
		if !t.stopped && !t.fired && t.at <= c.now {
			t.fired = true
			due = append(due, t.f)
		}
	}
	c.mu.Unlock()

	for _, f := range due {
		f()
	}
}

// recordingTarget is a ComposerTarget that records calls.
type recordingTarget struct {
	mu      sync.Mutex
	typing  []bool
	sent    []string
	sendErr error
}

func (t *recordingTarget) SetTyping(ctx context.Context, typing bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.typing = append(t.typing, typing)
}

func (t *recordingTarget) Send(ctx context.Context, text string) (*SendReceipt, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sendErr != nil {
		return nil, t.sendErr
	}
	t.sent = append(t.sent, text)
	return &SendReceipt{MessageID: fmt.Sprintf("m%d", len(t.sent))}, nil
}

func (t *recordingTarget) typingCalls() []bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]bool(nil), t.typing...)
}
