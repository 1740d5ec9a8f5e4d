// Package session manages one chat room session: a realtime connection, one
// attached room, and the view model merged from persisted history and live
// deliveries.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

var (
	ErrMissingIdentity    = errors.New("identity is required")
	ErrIdentityChanged    = errors.New("session is bound to another identity")
	ErrConnectTimeout     = errors.New("connection timed out")
	ErrConnectFailed      = errors.New("connection failed")
	ErrAttachFailed       = errors.New("room attach failed")
	ErrActivationCanceled = errors.New("activation canceled by deactivate")
	ErrNotActive          = errors.New("session is not active")
	ErrEmptyMessage       = errors.New("message text is empty")
	ErrPublishFailed      = errors.New("message not sent")
)

// State is the lifecycle state of a Manager.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateConnecting    State = "connecting"
	StateRoomJoining   State = "room_joining"
	StateActive        State = "active"
	StateDetached      State = "detached"
)

// inProgress reports whether an activation is running or done.
func (s State) inProgress() bool {
	return s == StateConnecting || s == StateRoomJoining || s == StateActive
}

// Identity is the account a session acts as. DisplayName is optional.
type Identity struct {
	AccountID   string
	DisplayName string
}

// StoredMessage is a message as returned by the persisted store.
type StoredMessage struct {
	ID          string
	Text        string
	AuthorID    string
	AuthorName  string
	CreatedAtMs int64
}

// NewMessage is the input of MessageStore.CreateMessage.
type NewMessage struct {
	AuthorID   string
	AuthorName string
	Text       string
}

// CreatedMessage is what the store assigned to a new message.
type CreatedMessage struct {
	ID          string
	CreatedAtMs int64
}

// MessageStore persists room messages.
type MessageStore interface {
	// ListRecentMessages returns up to limit of the newest messages, oldest first.
	ListRecentMessages(ctx context.Context, room string, limit int) ([]StoredMessage, error)
	CreateMessage(ctx context.Context, room string, msg NewMessage) (*CreatedMessage, error)
}

// NameResolver maps account ids to display names. Resolve never fails.
type NameResolver interface {
	Resolve(ctx context.Context, accountID string) string
	Seed(accountID, name string)
}

const (
	DefaultRoom           = "lobby"
	DefaultHistoryLimit   = 100
	DefaultConnectTimeout = 15 * time.Second
	DefaultLookupTimeout  = 5 * time.Second
)

// Config configures a Manager. Zero values take the defaults.
type Config struct {
	Room           string
	HistoryLimit   int
	ConnectTimeout time.Duration
	// LookupTimeout bounds name lookups made from delivery handlers.
	LookupTimeout time.Duration
	Logger        zerolog.Logger
}

func (c Config) withDefaults() Config {
	if c.Room == "" {
		c.Room = DefaultRoom
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = DefaultHistoryLimit
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.LookupTimeout <= 0 {
		c.LookupTimeout = DefaultLookupTimeout
	}
	return c
}

// Metadata keys carried on published messages.
const (
	metaMessageID  = "message_id"
	metaAuthorName = "author_name"
)

// SendReceipt reports the outcome of a Send whose publish succeeded.
type SendReceipt struct {
	// MessageID is the persisted id, empty when persistence failed.
	MessageID string
	// PersistErr is set when the message was delivered live but not stored.
	PersistErr error
}
