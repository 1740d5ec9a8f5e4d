// Package render prints a session view to a terminal incrementally.
package render

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gookit/color"
	"github.com/samber/lo"

	"github.com/weiawesome/campus-live/chat-client/internal/session"
)

var (
	selfStyle   = color.New(color.FgGreen, color.OpBold)
	authorStyle = color.New(color.FgCyan, color.OpBold)
	metaStyle   = color.New(color.FgGray)
	statusStyle = color.New(color.BgBlack, color.FgYellow)
	errorStyle  = color.New(color.FgRed)
)

// Renderer prints what changed since the previous Render.
type Renderer struct {
	out  io.Writer
	self string

	state     session.State
	printed   int
	reactions map[string]string
	presence  string
	typing    string
}

// New creates a renderer. self is the local account id, highlighted in
// the output.
func New(out io.Writer, self string) *Renderer {
	return &Renderer{out: out, self: self, reactions: make(map[string]string)}
}

// Render prints state changes, new messages, changed reactions and changed
// presence or typing lines.
func (r *Renderer) Render(v session.View) {
	if v.State != r.state {
		r.state = v.State
		line := statusStyle.Render(fmt.Sprintf(" %s ", v.State))
		if v.LastError != nil {
			line += " " + errorStyle.Render(v.LastError.Error())
		}
		fmt.Fprintln(r.out, line)
	}

	// The view starts over on reactivation.
	if len(v.Messages) < r.printed {
		r.printed = 0
		clear(r.reactions)
	}
	for _, msg := range v.Messages[r.printed:] {
		fmt.Fprintln(r.out, FormatMessage(msg, r.self))
		r.reactions[msg.ID] = FormatReactions(msg)
	}
	for _, msg := range v.Messages[:r.printed] {
		if line := FormatReactions(msg); line != r.reactions[msg.ID] {
			r.reactions[msg.ID] = line
			fmt.Fprintln(r.out, metaStyle.Render(fmt.Sprintf("  ↳ %s %s", msg.ID, line)))
		}
	}
	r.printed = len(v.Messages)

	if line := PresenceLine(v.Presence); line != r.presence {
		r.presence = line
		fmt.Fprintln(r.out, metaStyle.Render(line))
	}
	if line := TypingLine(v.Typing); line != r.typing {
		r.typing = line
		if line != "" {
			fmt.Fprintln(r.out, metaStyle.Render(line))
		}
	}
}

// FormatMessage renders one message line.
func FormatMessage(msg session.ViewMessage, self string) string {
	name := msg.AuthorName
	if name == "" {
		name = msg.AuthorID
	}
	style := authorStyle
	if msg.AuthorID == self {
		style = selfStyle
	}

	var b strings.Builder
	if msg.CreatedAtMs > 0 {
		b.WriteString(metaStyle.Render(time.UnixMilli(msg.CreatedAtMs).Format("15:04")))
		b.WriteByte(' ')
	}
	b.WriteString(style.Render(name))
	b.WriteString(": ")
	b.WriteString(msg.Text)
	b.WriteString(metaStyle.Render(fmt.Sprintf("  #%s", msg.ID)))
	if reactions := FormatReactions(msg); reactions != "" {
		b.WriteString("  ")
		b.WriteString(reactions)
	}
	return b.String()
}

// FormatReactions renders reaction counts, e.g. "👍 2 🎉 1".
func FormatReactions(msg session.ViewMessage) string {
	parts := lo.Map(msg.Emojis(), func(emoji string, _ int) string {
		return fmt.Sprintf("%s %d", emoji, len(msg.Reactions[emoji]))
	})
	return strings.Join(parts, " ")
}

// PresenceLine lists who is in the room.
func PresenceLine(members []session.PresenceMember) string {
	if len(members) == 0 {
		return "nobody else here"
	}
	names := lo.Map(members, func(m session.PresenceMember, _ int) string { return m.DisplayName })
	return fmt.Sprintf("here (%d): %s", len(members), strings.Join(names, ", "))
}

// TypingLine describes who is typing, or "" when nobody is.
func TypingLine(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0] + " is typing..."
	case 2:
		return names[0] + " and " + names[1] + " are typing..."
	default:
		return fmt.Sprintf("%s, %s and %d others are typing...", names[0], names[1], len(names)-2)
	}
}
