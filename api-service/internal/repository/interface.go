package repository

import (
	"context"
	"errors"

	"github.com/weiawesome/campus-live/api-service/internal/domain"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrEmailExists    = errors.New("email already exists")
	ErrUsernameExists = errors.New("username already exists")
)

// UserRepository defines the interface for user data persistence.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
}

// MessageRepository persists chat messages. The caller assigns ID and
// CreatedAt before Create.
type MessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) error
	// ListRecent returns up to limit of the newest messages in a room,
	// ordered oldest first.
	ListRecent(ctx context.Context, roomID string, limit int) ([]domain.Message, error)
	Close() error
}
