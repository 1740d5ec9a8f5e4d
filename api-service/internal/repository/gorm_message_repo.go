package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/weiawesome/campus-live/api-service/internal/domain"
)

// GormMessageRepository implements MessageRepository using GORM.
type GormMessageRepository struct {
	db *gorm.DB
}

// NewGormMessageRepository creates a new GORM-based message repository.
func NewGormMessageRepository(db *gorm.DB) *GormMessageRepository {
	return &GormMessageRepository{db: db}
}

// Create inserts a message.
func (r *GormMessageRepository) Create(ctx context.Context, msg *domain.Message) error {
	if err := r.db.WithContext(ctx).Create(domain.MessageToModel(msg)).Error; err != nil {
		return fmt.Errorf("failed to save message: %w", err)
	}
	return nil
}

// ListRecent returns the newest messages of a room, oldest first.
func (r *GormMessageRepository) ListRecent(ctx context.Context, roomID string, limit int) ([]domain.Message, error) {
	var models []domain.MessageModel
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	messages := make([]domain.Message, len(models))
	for i := range models {
		// reverse into ascending order
		messages[len(models)-1-i] = *models[i].ToDomain()
	}
	return messages, nil
}

// Close is a no-op; the connection pool is owned by the caller.
func (r *GormMessageRepository) Close() error {
	return nil
}
