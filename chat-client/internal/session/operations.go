package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/weiawesome/campus-live/chat-client/internal/realtime"
	"github.com/weiawesome/campus-live/pkg/log"
)

// LoadHistory appends the most recent persisted messages that are not in the
// view yet and seeds the name cache from their embedded author names. A
// failure is logged and returned; the view keeps what it has. It returns
// ErrNotActive unless the session is active.
func (m *Manager) LoadHistory(ctx context.Context) error {
	m.mu.Lock()
	gen, state := m.gen, m.state
	m.mu.Unlock()
	if state != StateActive {
		return ErrNotActive
	}

	stored, err := m.store.ListRecentMessages(ctx, m.cfg.Room, m.cfg.HistoryLimit)
	if err != nil {
		m.logger.Warn().Err(err).Msg("failed to load message history")
		return err
	}

	loaded := make([]ViewMessage, 0, len(stored))
	for _, s := range stored {
		m.names.Seed(s.AuthorID, s.AuthorName)
		name := strings.TrimSpace(s.AuthorName)
		if name == "" {
			name = m.names.Resolve(ctx, s.AuthorID)
		}
		loaded = append(loaded, ViewMessage{
			ID:          s.ID,
			Text:        s.Text,
			AuthorID:    s.AuthorID,
			AuthorName:  name,
			CreatedAtMs: s.CreatedAtMs,
		})
	}

	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		return ErrNotActive
	}
	added := 0
	for _, msg := range loaded {
		if _, dup := m.seen[msg.ID]; dup {
			continue
		}
		m.seen[msg.ID] = struct{}{}
		m.appendLocked(msg)
		added++
	}
	m.mu.Unlock()

	if added > 0 {
		m.notify()
	}
	m.logger.Debug().Int("loaded", len(stored)).Int("added", added).Msg("message history loaded")
	return nil
}

// Send persists text and then publishes it live. A persistence failure does
// not stop the publish; it is reported in the receipt. A publish failure
// returns ErrPublishFailed and the caller should keep the input for a retry.
func (m *Manager) Send(ctx context.Context, text string) (*SendReceipt, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	room, id, err := m.activeRoom()
	if err != nil {
		return nil, err
	}

	authorName := strings.TrimSpace(id.DisplayName)
	if authorName == "" {
		authorName = m.names.Resolve(ctx, id.AccountID)
	}

	receipt := &SendReceipt{}
	created, err := m.store.CreateMessage(ctx, m.cfg.Room, NewMessage{
		AuthorID:   id.AccountID,
		AuthorName: authorName,
		Text:       text,
	})
	if err != nil {
		m.logger.Warn().Err(err).Str(log.FieldAccount, id.AccountID).Msg("failed to persist message, publishing anyway")
		receipt.PersistErr = err
	} else {
		receipt.MessageID = created.ID
	}

	metadata := map[string]string{metaAuthorName: authorName}
	if receipt.MessageID != "" {
		metadata[metaMessageID] = receipt.MessageID
	}
	if err := room.Messages().Publish(ctx, text, metadata); err != nil {
		m.logger.Error().Err(err).Str(log.FieldMessageID, receipt.MessageID).Msg("failed to publish message")
		return nil, fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return receipt, nil
}

// AddReaction publishes an ephemeral reaction. Failures are logged only.
func (m *Manager) AddReaction(ctx context.Context, messageID, emoji string) {
	room, _, err := m.activeRoom()
	if err != nil {
		m.logger.Debug().Err(err).Str(log.FieldMessageID, messageID).Msg("reaction dropped")
		return
	}
	if err := room.Reactions().Publish(ctx, messageID, emoji); err != nil {
		m.logger.Warn().Err(err).Str(log.FieldMessageID, messageID).Msg("failed to publish reaction")
	}
}

// SetTyping signals typing start or stop. Failures are logged only.
func (m *Manager) SetTyping(ctx context.Context, typing bool) {
	room, _, err := m.activeRoom()
	if err != nil {
		return
	}

	m.mu.Lock()
	m.typingSignaled = typing
	m.mu.Unlock()

	if typing {
		err = room.Typing().Start(ctx)
	} else {
		err = room.Typing().Stop(ctx)
	}
	if err != nil {
		m.logger.Warn().Err(err).Bool("typing", typing).Msg("failed to signal typing")
	}
}

func (m *Manager) activeRoom() (realtime.Room, Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateActive || m.room == nil {
		return nil, Identity{}, ErrNotActive
	}
	return m.room, m.identity, nil
}
