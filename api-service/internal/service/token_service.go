package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/weiawesome/campus-live/api-service/internal/audit"
	"github.com/weiawesome/campus-live/api-service/internal/domain"
	"github.com/weiawesome/campus-live/pkg/jwt"
	"github.com/weiawesome/campus-live/pkg/log"
)

var ErrMissingClientID = errors.New("client id is required")

// RealtimeScope is granted to every realtime credential. Room membership is
// not restricted.
var RealtimeScope = []string{"room:*"}

type tokenServiceImpl struct {
	tokens *jwt.Manager
	ttl    time.Duration
}

// NewTokenService creates a token service issuing credentials valid for ttl.
func NewTokenService(tokens *jwt.Manager, ttl time.Duration) TokenService {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &tokenServiceImpl{tokens: tokens, ttl: ttl}
}

func (s *tokenServiceImpl) IssueRealtimeToken(ctx context.Context, userID, clientID string) (*domain.RealtimeTokenResponse, error) {
	clientID = strings.ToLower(strings.TrimSpace(clientID))
	if clientID == "" {
		return nil, ErrMissingClientID
	}

	token, exp, err := s.tokens.GenerateRealtimeToken(userID, clientID, RealtimeScope, s.ttl)
	if err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Str(log.FieldUserID, userID).Msg("failed to sign realtime token")
		return nil, err
	}

	audit.Record(ctx, audit.Event{
		Action:   audit.ActionRealtimeToken,
		UserID:   userID,
		ClientID: clientID,
	}, "realtime token issued")

	return &domain.RealtimeTokenResponse{
		Token:     token,
		ClientID:  clientID,
		Scope:     RealtimeScope,
		ExpiresAt: exp,
	}, nil
}
