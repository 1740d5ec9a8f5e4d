package service

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/weiawesome/campus-live/api-service/internal/cache"
	"github.com/weiawesome/campus-live/api-service/internal/domain"
	"github.com/weiawesome/campus-live/pkg/jwt"
)

type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	if args.Error(0) == nil {
		user.ID = "u-1"
	}
	return args.Error(0)
}

func (m *mockUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*domain.User)
	return user, args.Error(1)
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	user, _ := args.Get(0).(*domain.User)
	return user, args.Error(1)
}

func (m *mockUserRepo) Update(ctx context.Context, user *domain.User) error {
	return m.Called(ctx, user).Error(0)
}

type mockMessageRepo struct {
	mock.Mock
}

func (m *mockMessageRepo) Create(ctx context.Context, msg *domain.Message) error {
	return m.Called(ctx, msg).Error(0)
}

func (m *mockMessageRepo) ListRecent(ctx context.Context, roomID string, limit int) ([]domain.Message, error) {
	args := m.Called(ctx, roomID, limit)
	msgs, _ := args.Get(0).([]domain.Message)
	return msgs, args.Error(1)
}

func (m *mockMessageRepo) Close() error {
	return nil
}

type mockCache struct {
	mock.Mock
}

func (m *mockCache) Get(ctx context.Context, key string) (*cache.MessageCacheResult, error) {
	args := m.Called(ctx, key)
	res, _ := args.Get(0).(*cache.MessageCacheResult)
	return res, args.Error(1)
}

func (m *mockCache) Set(ctx context.Context, roomID, key string, result *cache.MessageCacheResult, ttl time.Duration) error {
	return m.Called(ctx, roomID, key, result, ttl).Error(0)
}

func (m *mockCache) InvalidateRoom(ctx context.Context, roomID string) error {
	return m.Called(ctx, roomID).Error(0)
}

func (m *mockCache) BuildKey(roomID string, limit int) string {
	return fmt.Sprintf("test:%s:%d", roomID, limit)
}

func (m *mockCache) Close() error {
	return nil
}

type sequenceIDs struct {
	n atomic.Int64
}

func (g *sequenceIDs) Generate() (string, error) {
	return fmt.Sprintf("m%d", g.n.Add(1)), nil
}

func newTestTokens(t *testing.T) *jwt.Manager {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 1024)
	require.NoError(t, err)
	return jwt.NewManagerWithKey(key, 15*time.Minute, 24*time.Hour, "campus-live")
}
