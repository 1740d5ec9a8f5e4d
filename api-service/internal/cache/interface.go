package cache

import (
	"context"
	"time"

	"github.com/weiawesome/campus-live/api-service/internal/domain"
)

type MessageCacheResult struct {
	Messages []domain.Message `json:"messages"`
}

// MessageCache caches recent-history pages per room.
type MessageCache interface {
	Get(ctx context.Context, key string) (*MessageCacheResult, error)
	Set(ctx context.Context, roomID, key string, result *MessageCacheResult, ttl time.Duration) error
	// InvalidateRoom drops every cached page of a room.
	InvalidateRoom(ctx context.Context, roomID string) error
	BuildKey(roomID string, limit int) string
	Close() error
}
