// Package realtime defines the transport capabilities a chat room session
// needs (connect, room attach, message and reaction fan-out, typing and
// presence) and implements them on Redis.
package realtime

import (
	"context"
	"errors"
	"time"
)

var (
	ErrConnectionClosed = errors.New("connection closed")
	ErrNotAttached      = errors.New("room not attached")
	ErrMissingClientID  = errors.New("credential carries no client id")
)

// ConnectionState reports the health of a Connection.
type ConnectionState string

const (
	StateConnected ConnectionState = "connected"
	// StateDisconnected means the link to the server failed and has not
	// recovered yet. The connection may still come back on its own.
	StateDisconnected ConnectionState = "disconnected"
	StateClosed       ConnectionState = "closed"
)

// Credential identifies the caller to the transport.
type Credential struct {
	Token     string
	ClientID  string
	ExpiresAt time.Time
}

// CredentialSource hands out credentials, typically by asking api-service.
type CredentialSource interface {
	Credential(ctx context.Context) (*Credential, error)
}

// CredentialFunc adapts a function to CredentialSource.
type CredentialFunc func(ctx context.Context) (*Credential, error)

func (f CredentialFunc) Credential(ctx context.Context) (*Credential, error) {
	return f(ctx)
}

// Connector opens connections. Connect blocks until the connection is usable,
// ctx is done, or it fails.
type Connector interface {
	Connect(ctx context.Context, creds CredentialSource) (Connection, error)
}

// Connection is one authenticated link to the transport.
type Connection interface {
	State() ConnectionState
	// ClientID is the identity the transport attributes to everything
	// published on this connection.
	ClientID() string
	// Room returns the handle for key, creating it on first use.
	Room(key string) Room
	Close() error
}

// Room is a chat room handle. Publishing and subscribing require Attach.
type Room interface {
	Key() string
	Attach(ctx context.Context) error
	// Detach ends every subscription of the room and leaves presence. The
	// room may be attached again.
	Detach(ctx context.Context) error
	Messages() Messages
	Reactions() Reactions
	Typing() Typing
	Presence() Presence
}

// Subscription is an active listener registration.
type Subscription interface {
	Cancel()
}

// Message is a live chat message. Serial is assigned by the transport.
type Message struct {
	Serial    string            `json:"serial"`
	ClientID  string            `json:"client_id"`
	Text      string            `json:"text"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

type Messages interface {
	Publish(ctx context.Context, text string, metadata map[string]string) error
	Subscribe(handler func(Message)) (Subscription, error)
}

// Reaction is an ephemeral reaction to a message.
type Reaction struct {
	MessageID string    `json:"message_id"`
	Emoji     string    `json:"emoji"`
	ClientID  string    `json:"client_id"`
	Timestamp time.Time `json:"timestamp"`
}

type Reactions interface {
	Publish(ctx context.Context, messageID, emoji string) error
	Subscribe(handler func(Reaction)) (Subscription, error)
}

// TypingEvent carries the full set of clients typing at the time of the
// change.
type TypingEvent struct {
	CurrentlyTyping []string `json:"currently_typing"`
}

type Typing interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Current(ctx context.Context) ([]string, error)
	Subscribe(handler func(TypingEvent)) (Subscription, error)
}

// PresenceData is the payload a member enters presence with.
type PresenceData struct {
	DisplayName string `json:"display_name,omitempty"`
}

// PresenceMember is one member of a room's presence set.
type PresenceMember struct {
	ClientID  string       `json:"client_id"`
	Data      PresenceData `json:"data"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// Presence actions carried in PresenceEvent.Action.
const (
	PresenceEnter = "enter"
	PresenceLeave = "leave"
)

// PresenceEvent notifies that the presence set changed. It is a hint; Query
// returns the authoritative set.
type PresenceEvent struct {
	Action string         `json:"action"`
	Member PresenceMember `json:"member"`
}

type Presence interface {
	Enter(ctx context.Context, data PresenceData) error
	Leave(ctx context.Context) error
	Query(ctx context.Context) ([]PresenceMember, error)
	Subscribe(handler func(PresenceEvent)) (Subscription, error)
}
