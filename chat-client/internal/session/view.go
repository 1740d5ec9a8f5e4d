package session

import (
	"maps"
	"slices"

	"github.com/samber/lo"
)

// ViewMessage is one rendered message.
type ViewMessage struct {
	ID          string
	Text        string
	AuthorID    string
	AuthorName  string
	CreatedAtMs int64
	// Reactions maps an emoji to the accounts that reacted with it, in
	// arrival order.
	Reactions map[string][]string
}

// PresenceMember is one rendered presence entry.
type PresenceMember struct {
	AccountID   string
	DisplayName string
}

// View is a point-in-time copy of the session's view model.
type View struct {
	State     State
	Messages  []ViewMessage
	Presence  []PresenceMember
	Typing    []string
	LastError error
}

// Snapshot returns a copy of the current view that the caller may keep.
func (m *Manager) Snapshot() View {
	m.mu.Lock()
	defer m.mu.Unlock()

	return View{
		State: m.state,
		Messages: lo.Map(m.messages, func(msg *ViewMessage, _ int) ViewMessage {
			cp := *msg
			cp.Reactions = make(map[string][]string, len(msg.Reactions))
			for emoji, who := range msg.Reactions {
				cp.Reactions[emoji] = slices.Clone(who)
			}
			return cp
		}),
		Presence:  slices.Clone(m.presence),
		Typing:    slices.Clone(m.typing),
		LastError: m.lastErr,
	}
}

// State returns the lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// HasMessage reports whether id is in the dedup set of the current activation.
func (m *Manager) HasMessage(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.seen[id]
	return ok
}

// Changes signals after the view changed. Signals coalesce; a receiver
// should take a Snapshot after each one.
func (m *Manager) Changes() <-chan struct{} {
	return m.changes
}

func (m *Manager) notify() {
	select {
	case m.changes <- struct{}{}:
	default:
	}
}

// resetViewLocked clears per-activation state. The name cache lives in the
// resolver and survives.
func (m *Manager) resetViewLocked() {
	m.messages = nil
	m.index = make(map[string]int)
	clear(m.seen)
	m.presence = nil
	m.typing = nil
}

// appendLocked adds a message whose identity is already marked seen.
func (m *Manager) appendLocked(msg ViewMessage) int {
	if msg.Reactions == nil {
		msg.Reactions = make(map[string][]string)
	}
	m.index[msg.ID] = len(m.messages)
	m.messages = append(m.messages, &msg)
	return len(m.messages) - 1
}

// Emojis returns the reaction emojis in sorted order.
func (v ViewMessage) Emojis() []string {
	return slices.Sorted(maps.Keys(v.Reactions))
}
