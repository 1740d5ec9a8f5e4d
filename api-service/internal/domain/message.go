package domain

import "time"

// Message is a persisted chat message.
type Message struct {
	ID         string    `json:"id"`
	RoomID     string    `json:"room_id"`
	AuthorID   string    `json:"author_id"`
	AuthorName string    `json:"author_name"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"created_at"`
}

// CreateMessageRequest is the body of a message write. The author id comes
// from the caller's token.
type CreateMessageRequest struct {
	Text       string `json:"text" binding:"required,max=4000"`
	AuthorName string `json:"author_name" binding:"max=100"`
}

// MessageResponse is the wire form of a message, timestamps in epoch ms.
type MessageResponse struct {
	ID          string `json:"id"`
	Text        string `json:"text"`
	AuthorID    string `json:"author_id"`
	AuthorName  string `json:"author_name"`
	CreatedAtMs int64  `json:"created_at_ms"`
}

// CreatedMessageResponse acknowledges a message write.
type CreatedMessageResponse struct {
	ID          string `json:"id"`
	CreatedAtMs int64  `json:"created_at_ms"`
}

// MessageListResponse holds recent messages, oldest first.
type MessageListResponse struct {
	Room     string            `json:"room"`
	Messages []MessageResponse `json:"messages"`
}

// ToResponse converts Message to MessageResponse.
func (m *Message) ToResponse() MessageResponse {
	return MessageResponse{
		ID:          m.ID,
		Text:        m.Text,
		AuthorID:    m.AuthorID,
		AuthorName:  m.AuthorName,
		CreatedAtMs: m.CreatedAt.UnixMilli(),
	}
}

// RealtimeTokenResponse carries a credential for the realtime transport.
type RealtimeTokenResponse struct {
	Token     string   `json:"token"`
	ClientID  string   `json:"client_id"`
	Scope     []string `json:"scope"`
	ExpiresAt int64    `json:"expires_at"`
}
