package domain

import (
	"time"

	"gorm.io/gorm"

	"github.com/weiawesome/campus-live/pkg/database"
)

// UserModel is the GORM model for users table.
type UserModel struct {
	ID           string               `gorm:"type:varchar(36);primaryKey"`
	Email        string               `gorm:"type:varchar(255);uniqueIndex;not null"`
	Username     string               `gorm:"type:varchar(50);uniqueIndex;not null"`
	DisplayName  string               `gorm:"type:varchar(100)"`
	PasswordHash string               `gorm:"type:varchar(255);not null"`
	Roles        database.StringArray `gorm:"type:text"`
	CreatedAt    time.Time            `gorm:"autoCreateTime"`
	UpdatedAt    time.Time            `gorm:"autoUpdateTime"`
	DeletedAt    gorm.DeletedAt       `gorm:"index"`
}

// TableName specifies the table name for UserModel.
func (UserModel) TableName() string {
	return "users"
}

// ToDomain converts UserModel to domain User.
func (m *UserModel) ToDomain() *User {
	return &User{
		ID:           m.ID,
		Email:        m.Email,
		Username:     m.Username,
		DisplayName:  m.DisplayName,
		PasswordHash: m.PasswordHash,
		Roles:        []string(m.Roles),
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

// UserToModel converts domain User to UserModel.
func UserToModel(u *User) *UserModel {
	return &UserModel{
		ID:           u.ID,
		Email:        u.Email,
		Username:     u.Username,
		DisplayName:  u.DisplayName,
		PasswordHash: u.PasswordHash,
		Roles:        database.StringArray(u.Roles),
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

// MessageModel is the GORM model for the messages table. Recent-history
// reads scan (room_id, created_at) backwards.
type MessageModel struct {
	ID         string    `gorm:"type:varchar(32);primaryKey"`
	RoomID     string    `gorm:"type:varchar(64);not null;index:idx_messages_room_created,priority:1"`
	AuthorID   string    `gorm:"type:varchar(255);not null"`
	AuthorName string    `gorm:"type:varchar(100)"`
	Text       string    `gorm:"type:text;not null"`
	CreatedAt  time.Time `gorm:"not null;index:idx_messages_room_created,priority:2"`
}

// TableName specifies the table name for MessageModel.
func (MessageModel) TableName() string {
	return "messages"
}

// ToDomain converts MessageModel to domain Message.
func (m *MessageModel) ToDomain() *Message {
	return &Message{
		ID:         m.ID,
		RoomID:     m.RoomID,
		AuthorID:   m.AuthorID,
		AuthorName: m.AuthorName,
		Text:       m.Text,
		CreatedAt:  m.CreatedAt,
	}
}

// MessageToModel converts domain Message to MessageModel.
func MessageToModel(msg *Message) *MessageModel {
	return &MessageModel{
		ID:         msg.ID,
		RoomID:     msg.RoomID,
		AuthorID:   msg.AuthorID,
		AuthorName: msg.AuthorName,
		Text:       msg.Text,
		CreatedAt:  msg.CreatedAt,
	}
}
