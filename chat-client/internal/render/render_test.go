package render

import (
	"bytes"
	"strings"
	"testing"

	"github.com/gookit/color"
	"github.com/stretchr/testify/assert"

	"github.com/weiawesome/campus-live/chat-client/internal/session"
)

func init() {
	color.Disable()
}

func TestTypingLine(t *testing.T) {
	assert.Equal(t, "", TypingLine(nil))
	assert.Equal(t, "Bob is typing...", TypingLine([]string{"Bob"}))
	assert.Equal(t, "Bob and Carol are typing...", TypingLine([]string{"Bob", "Carol"}))
	assert.Equal(t, "Bob, Carol and 2 others are typing...", TypingLine([]string{"Bob", "Carol", "Dan", "Eve"}))
}

func TestFormatMessage(t *testing.T) {
	msg := session.ViewMessage{
		ID:         "m1",
		Text:       "hello",
		AuthorID:   "bob@campus.edu",
		AuthorName: "Bob",
		Reactions:  map[string][]string{"👍": {"a", "b"}, "🎉": {"c"}},
	}
	line := FormatMessage(msg, "alice@campus.edu")
	assert.Contains(t, line, "Bob: hello")
	assert.Contains(t, line, "#m1")
	assert.Contains(t, line, "👍 2")

	msg.AuthorName = ""
	assert.Contains(t, FormatMessage(msg, "alice@campus.edu"), "bob@campus.edu: hello")
}

func TestRenderer_PrintsOnlyChanges(t *testing.T) {
	var out bytes.Buffer
	r := New(&out, "alice@campus.edu")

	view := session.View{
		State: session.StateActive,
		Messages: []session.ViewMessage{
			{ID: "m1", Text: "hi", AuthorID: "bob@campus.edu", AuthorName: "Bob"},
		},
		Presence: []session.PresenceMember{{AccountID: "bob@campus.edu", DisplayName: "Bob"}},
		Typing:   []string{"Bob"},
	}
	r.Render(view)
	first := out.String()
	assert.Contains(t, first, "active")
	assert.Contains(t, first, "Bob: hi")
	assert.Contains(t, first, "here (1): Bob")
	assert.Contains(t, first, "Bob is typing...")

	out.Reset()
	r.Render(view)
	assert.Empty(t, out.String())

	view.Messages = append(view.Messages, session.ViewMessage{ID: "m2", Text: "yo", AuthorID: "alice@campus.edu", AuthorName: "Alice"})
	view.Messages[0].Reactions = map[string][]string{"👍": {"alice@campus.edu"}}
	r.Render(view)
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Len(t, lines, 2)
	assert.Contains(t, out.String(), "Alice: yo")
	assert.Contains(t, out.String(), "↳ m1 👍 1")
}
