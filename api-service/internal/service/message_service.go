package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
	"golang.org/x/sync/singleflight"

	"github.com/weiawesome/campus-live/api-service/internal/audit"
	"github.com/weiawesome/campus-live/api-service/internal/cache"
	"github.com/weiawesome/campus-live/api-service/internal/domain"
	"github.com/weiawesome/campus-live/api-service/internal/repository"
	"github.com/weiawesome/campus-live/pkg/idgen"
	"github.com/weiawesome/campus-live/pkg/log"
	"github.com/weiawesome/campus-live/pkg/names"
)

var (
	ErrEmptyMessage = errors.New("message text is required")
	ErrInvalidRoom  = errors.New("room is required")
)

const (
	DefaultHistoryLimit = 100
	MaxHistoryLimit     = 500
)

// MessageServiceConfig tunes history reads.
type MessageServiceConfig struct {
	DefaultLimit int
	MaxLimit     int
	CacheTTL     time.Duration
}

type messageServiceImpl struct {
	repo  repository.MessageRepository
	cache cache.MessageCache
	ids   idgen.Generator
	cfg   MessageServiceConfig
	sf    singleflight.Group
	now   func() time.Time
}

// NewMessageService creates a message service. msgCache may be nil, in which
// case every read goes to the repository.
func NewMessageService(
	repo repository.MessageRepository,
	msgCache cache.MessageCache,
	ids idgen.Generator,
	cfg MessageServiceConfig,
) MessageService {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = DefaultHistoryLimit
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = MaxHistoryLimit
	}
	return &messageServiceImpl{
		repo:  repo,
		cache: msgCache,
		ids:   ids,
		cfg:   cfg,
		now:   time.Now,
	}
}

func (s *messageServiceImpl) ListRecent(ctx context.Context, roomID string, limit int) (*domain.MessageListResponse, error) {
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return nil, ErrInvalidRoom
	}
	ctx = log.WithRoom(ctx, roomID)
	if limit <= 0 {
		limit = s.cfg.DefaultLimit
	}
	if limit > s.cfg.MaxLimit {
		limit = s.cfg.MaxLimit
	}

	var messages []domain.Message
	if s.cache == nil {
		fetched, err := s.repo.ListRecent(ctx, roomID, limit)
		if err != nil {
			return nil, fmt.Errorf("failed to get messages from repository: %w", err)
		}
		messages = fetched
	} else {
		cacheKey := s.cache.BuildKey(roomID, limit)

		// Concurrent readers of the same page share one fetch.
		result, err, _ := s.sf.Do(cacheKey, func() (interface{}, error) {
			return s.fetchWithCache(ctx, roomID, limit, cacheKey)
		})
		if err != nil {
			return nil, err
		}

		cacheResult, ok := result.(*cache.MessageCacheResult)
		if !ok {
			return nil, fmt.Errorf("unexpected result type from singleflight")
		}
		messages = cacheResult.Messages
	}

	return &domain.MessageListResponse{
		Room: roomID,
		Messages: lo.Map(messages, func(m domain.Message, _ int) domain.MessageResponse {
			return m.ToResponse()
		}),
	}, nil
}

func (s *messageServiceImpl) fetchWithCache(ctx context.Context, roomID string, limit int, cacheKey string) (*cache.MessageCacheResult, error) {
	cached, err := s.cache.Get(ctx, cacheKey)
	if err == nil {
		return cached, nil
	}

	if !errors.Is(err, cache.ErrCacheMiss) {
		// Log error but continue to fetch from DB
		l := log.Ctx(ctx)
		l.Warn().Err(err).Msg("cache get error")
	}

	messages, err := s.repo.ListRecent(ctx, roomID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get messages from repository: %w", err)
	}

	result := &cache.MessageCacheResult{Messages: messages}

	// Store in cache (async to avoid blocking response)
	go func() {
		cacheCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.cache.Set(cacheCtx, roomID, cacheKey, result, s.cfg.CacheTTL); err != nil {
			l := log.L()
			l.Warn().Err(err).Str(log.FieldRoom, roomID).Msg("cache set error")
		}
	}()

	return result, nil
}

// Create persists a message. A blank author name is replaced by the
// generated fallback name of the author.
func (s *messageServiceImpl) Create(ctx context.Context, roomID, authorID string, req *domain.CreateMessageRequest) (*domain.CreatedMessageResponse, error) {
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return nil, ErrInvalidRoom
	}
	ctx = log.WithRoom(ctx, roomID)
	l := log.Ctx(ctx)

	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	authorName := strings.TrimSpace(req.AuthorName)
	if authorName == "" {
		authorName = names.Generate(authorID)
	}

	id, err := s.ids.Generate()
	if err != nil {
		l.Error().Err(err).Msg("failed to generate message id")
		return nil, err
	}

	msg := &domain.Message{
		ID:         id,
		RoomID:     roomID,
		AuthorID:   authorID,
		AuthorName: authorName,
		Text:       text,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.repo.Create(ctx, msg); err != nil {
		l.Error().Err(err).Msg("failed to create message")
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.InvalidateRoom(ctx, roomID); err != nil {
			l.Warn().Err(err).Msg("cache invalidate error")
		}
	}

	audit.Record(ctx, audit.Event{
		Action:    audit.ActionMessageCreated,
		Account:   authorID,
		MessageID: msg.ID,
	}, "message created")

	return &domain.CreatedMessageResponse{
		ID:          msg.ID,
		CreatedAtMs: msg.CreatedAt.UnixMilli(),
	}, nil
}
