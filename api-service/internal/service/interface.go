package service

import (
	"context"

	"github.com/weiawesome/campus-live/api-service/internal/domain"
)

// UserService defines the interface for user business logic.
type UserService interface {
	Register(ctx context.Context, req *domain.RegisterRequest) (*domain.AuthResponse, error)
	Login(ctx context.Context, req *domain.LoginRequest) (*domain.AuthResponse, error)
	RefreshToken(ctx context.Context, req *domain.RefreshTokenRequest) (*domain.AuthResponse, error)
	Logout(ctx context.Context, userID string) error
	GetUser(ctx context.Context, userID string) (*domain.UserResponse, error)
	UpdateUser(ctx context.Context, userID string, req *domain.UpdateUserRequest) (*domain.UserResponse, error)
	// FindDisplayName returns the stored display name of an account (email).
	// A missing user or a blank name is ErrUserNotFound.
	FindDisplayName(ctx context.Context, account string) (string, error)
}

// MessageService reads and writes room history.
type MessageService interface {
	// ListRecent returns up to limit of the newest messages, oldest first.
	// limit <= 0 selects the default, larger values are capped.
	ListRecent(ctx context.Context, roomID string, limit int) (*domain.MessageListResponse, error)
	Create(ctx context.Context, roomID, authorID string, req *domain.CreateMessageRequest) (*domain.CreatedMessageResponse, error)
}

// TokenService issues realtime transport credentials.
type TokenService interface {
	IssueRealtimeToken(ctx context.Context, userID, clientID string) (*domain.RealtimeTokenResponse, error)
}
