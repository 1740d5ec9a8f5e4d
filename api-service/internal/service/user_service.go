package service

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/weiawesome/campus-live/api-service/internal/audit"
	"github.com/weiawesome/campus-live/api-service/internal/domain"
	"github.com/weiawesome/campus-live/api-service/internal/repository"
	"github.com/weiawesome/campus-live/pkg/jwt"
	"github.com/weiawesome/campus-live/pkg/log"
	"github.com/weiawesome/campus-live/pkg/names"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
)

// userServiceImpl implements UserService interface.
type userServiceImpl struct {
	repo   repository.UserRepository
	tokens *jwt.Manager
}

// NewUserService creates a new user service.
func NewUserService(repo repository.UserRepository, tokens *jwt.Manager) UserService {
	return &userServiceImpl{
		repo:   repo,
		tokens: tokens,
	}
}

// Register registers a new user. Accounts registered without a display name
// get the generated fallback name of their email.
func (s *userServiceImpl) Register(ctx context.Context, req *domain.RegisterRequest) (*domain.AuthResponse, error) {
	l := log.Ctx(ctx)

	// Hash password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		l.Error().Err(err).Msg("failed to hash password")
		return nil, err
	}

	email := normalizeEmail(req.Email)
	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		displayName = names.Generate(email)
	}

	user := &domain.User{
		Email:        email,
		Username:     req.Username,
		DisplayName:  displayName,
		PasswordHash: string(hashedPassword),
		Roles:        []string{"user"},
	}

	if err := s.repo.Create(ctx, user); err != nil {
		l.Error().Err(err).Msg("failed to create user")
		return nil, err
	}

	resp, err := s.issue(user)
	if err != nil {
		l.Error().Err(err).Str(log.FieldUserID, user.ID).Msg("failed to generate tokens after register")
		return nil, err
	}

	audit.Log(ctx, audit.ActionRegister, user.ID, "user registered")
	return resp, nil
}

// Login authenticates a user.
func (s *userServiceImpl) Login(ctx context.Context, req *domain.LoginRequest) (*domain.AuthResponse, error) {
	l := log.Ctx(ctx)
	email := normalizeEmail(req.Email)

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			audit.Record(ctx, audit.Event{Action: audit.ActionLoginFailed, Account: email}, "login failed: user not found")
			return nil, ErrInvalidCredentials
		}
		l.Error().Err(err).Msg("failed to get user by email")
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		audit.Record(ctx, audit.Event{Action: audit.ActionLoginFailed, UserID: user.ID, Account: email}, "login failed: wrong password")
		return nil, ErrInvalidCredentials
	}

	resp, err := s.issue(user)
	if err != nil {
		l.Error().Err(err).Str(log.FieldUserID, user.ID).Msg("failed to generate tokens after login")
		return nil, err
	}

	audit.Log(ctx, audit.ActionLogin, user.ID, "user logged in")
	return resp, nil
}

// RefreshToken exchanges a refresh token for a new pair.
func (s *userServiceImpl) RefreshToken(ctx context.Context, req *domain.RefreshTokenRequest) (*domain.AuthResponse, error) {
	l := log.Ctx(ctx)

	claims, err := s.tokens.ValidateToken(req.RefreshToken)
	if err != nil || claims.Type != jwt.TypeRefresh {
		l.Warn().Err(err).Msg("failed to refresh token")
		return nil, ErrInvalidCredentials
	}

	// Reload so the new tokens carry the current profile.
	user, err := s.repo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		l.Error().Err(err).Str(log.FieldUserID, claims.UserID).Msg("failed to get user after token refresh")
		return nil, err
	}

	resp, err := s.issue(user)
	if err != nil {
		l.Error().Err(err).Str(log.FieldUserID, user.ID).Msg("failed to generate tokens after refresh")
		return nil, err
	}

	audit.Log(ctx, audit.ActionRefreshToken, user.ID, "token refreshed")
	return resp, nil
}

// Logout revokes every token issued to the user so far.
func (s *userServiceImpl) Logout(ctx context.Context, userID string) error {
	s.tokens.RevokeUserTokens(userID)
	audit.Log(ctx, audit.ActionLogout, userID, "user logged out")
	return nil
}

// GetUser retrieves a user by ID.
func (s *userServiceImpl) GetUser(ctx context.Context, userID string) (*domain.UserResponse, error) {
	l := log.Ctx(ctx)

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		l.Error().Err(err).Str(log.FieldUserID, userID).Msg("failed to get user")
		return nil, err
	}

	resp := user.ToResponse()
	return &resp, nil
}

// UpdateUser updates a user. Clearing the display name restores the
// generated fallback.
func (s *userServiceImpl) UpdateUser(ctx context.Context, userID string, req *domain.UpdateUserRequest) (*domain.UserResponse, error) {
	l := log.Ctx(ctx)

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		l.Error().Err(err).Str(log.FieldUserID, userID).Msg("failed to get user for update")
		return nil, err
	}

	if req.DisplayName != nil {
		user.DisplayName = strings.TrimSpace(*req.DisplayName)
		if user.DisplayName == "" {
			user.DisplayName = names.Generate(user.Email)
		}
	}

	if err := s.repo.Update(ctx, user); err != nil {
		l.Error().Err(err).Str(log.FieldUserID, userID).Msg("failed to update user")
		return nil, err
	}

	audit.Log(ctx, audit.ActionUpdateProfile, userID, "profile updated")

	resp := user.ToResponse()
	return &resp, nil
}

func (s *userServiceImpl) FindDisplayName(ctx context.Context, account string) (string, error) {
	user, err := s.repo.GetByEmail(ctx, normalizeEmail(account))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return "", ErrUserNotFound
		}
		l := log.Ctx(ctx)
		l.Error().Err(err).Str(log.FieldAccount, account).Msg("failed to look up display name")
		return "", err
	}

	name := strings.TrimSpace(user.DisplayName)
	if name == "" {
		return "", ErrUserNotFound
	}
	return name, nil
}

func (s *userServiceImpl) issue(user *domain.User) (*domain.AuthResponse, error) {
	access, refresh, accessExp, _, err := s.tokens.GenerateTokenPair(user.ID, user.Email, user.Username, user.Roles)
	if err != nil {
		return nil, err
	}
	return &domain.AuthResponse{
		User:         user.ToResponse(),
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    accessExp,
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
