package session

import (
	"context"
	"strings"

	"github.com/samber/lo"

	"github.com/weiawesome/campus-live/chat-client/internal/realtime"
	"github.com/weiawesome/campus-live/pkg/log"
)

// messageIdentity is the persisted id when the publisher stored the message
// first, else the transport serial. History and live copies of a persisted
// message therefore share one identity.
func messageIdentity(msg realtime.Message) string {
	if id := msg.Metadata[metaMessageID]; id != "" {
		return id
	}
	return msg.Serial
}

func (m *Manager) onMessage(gen uint64, msg realtime.Message) {
	id := messageIdentity(msg)
	if id == "" {
		m.logger.Warn().Str(log.FieldClientID, msg.ClientID).Msg("dropping message without identity")
		return
	}

	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		return
	}
	if _, dup := m.seen[id]; dup {
		m.mu.Unlock()
		return
	}
	m.seen[id] = struct{}{}
	// The slot is taken now so the view keeps arrival order while the
	// author name is resolved.
	pos := m.appendLocked(ViewMessage{
		ID:          id,
		Text:        msg.Text,
		AuthorID:    msg.ClientID,
		CreatedAtMs: msg.Timestamp.UnixMilli(),
	})
	m.mu.Unlock()

	m.names.Seed(msg.ClientID, msg.Metadata[metaAuthorName])
	name := m.resolve(msg.ClientID)

	m.mu.Lock()
	if m.gen == gen && pos < len(m.messages) && m.messages[pos].ID == id {
		m.messages[pos].AuthorName = name
	}
	m.mu.Unlock()
	m.notify()
}

func (m *Manager) onReaction(gen uint64, r realtime.Reaction) {
	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		return
	}
	pos, ok := m.index[r.MessageID]
	if !ok {
		m.mu.Unlock()
		m.logger.Debug().Str(log.FieldMessageID, r.MessageID).Msg("reaction for unknown message ignored")
		return
	}
	msg := m.messages[pos]
	if lo.Contains(msg.Reactions[r.Emoji], r.ClientID) {
		m.mu.Unlock()
		return
	}
	msg.Reactions[r.Emoji] = append(msg.Reactions[r.Emoji], r.ClientID)
	m.mu.Unlock()
	m.notify()
}

// onTyping replaces the typing set with the event's set minus the local user.
func (m *Manager) onTyping(gen uint64, ev realtime.TypingEvent) {
	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		return
	}
	self := m.identity.AccountID
	m.mu.Unlock()

	others := lo.Uniq(lo.Filter(ev.CurrentlyTyping, func(id string, _ int) bool {
		return id != "" && id != self
	}))
	typing := lo.Map(others, func(id string, _ int) string {
		return m.resolve(id)
	})

	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		return
	}
	m.typing = typing
	m.mu.Unlock()
	m.notify()
}

// onPresence ignores the event payload and re-queries the full set.
func (m *Manager) onPresence(gen uint64) {
	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.LookupTimeout)
	defer cancel()
	m.refreshPresence(ctx, gen)
}

func (m *Manager) refreshPresence(ctx context.Context, gen uint64) {
	m.mu.Lock()
	room := m.room
	if m.gen != gen || room == nil {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	members, err := room.Presence().Query(ctx)
	if err != nil {
		m.logger.Warn().Err(err).Msg("failed to query presence, keeping previous set")
		return
	}

	presence := lo.Map(members, func(member realtime.PresenceMember, _ int) PresenceMember {
		m.names.Seed(member.ClientID, member.Data.DisplayName)
		name := strings.TrimSpace(member.Data.DisplayName)
		if name == "" {
			name = m.names.Resolve(ctx, member.ClientID)
		}
		return PresenceMember{AccountID: member.ClientID, DisplayName: name}
	})

	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		return
	}
	m.presence = presence
	m.mu.Unlock()
	m.notify()
}

func (m *Manager) resolve(accountID string) string {
	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.LookupTimeout)
	defer cancel()
	return m.names.Resolve(ctx, accountID)
}
