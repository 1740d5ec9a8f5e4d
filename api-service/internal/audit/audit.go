// Package audit writes security and chat audit records to the context
// logger, tagged so they can be routed apart from ordinary request logs.
package audit

import (
	"context"

	"github.com/weiawesome/campus-live/pkg/log"
)

// Audit actions for api-service.
const (
	ActionRegister       = "user.register"
	ActionLogin          = "user.login"
	ActionLoginFailed    = "user.login_failed"
	ActionLogout         = "user.logout"
	ActionRefreshToken   = "user.refresh_token"
	ActionUpdateProfile  = "user.update_profile"
	ActionRealtimeToken  = "realtime.token_issued"
	ActionMessageCreated = "message.created"
)

const FieldAction = "action"

// Event is one audit record. Empty fields are left out of the entry; the room
// comes from the context logger.
type Event struct {
	Action    string
	UserID    string
	Account   string
	ClientID  string
	MessageID string
}

// Record emits e at info level.
func Record(ctx context.Context, e Event, msg string) {
	l := log.Ctx(ctx)
	entry := l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, e.Action)

	for _, f := range [...]struct{ key, value string }{
		{log.FieldUserID, e.UserID},
		{log.FieldAccount, e.Account},
		{log.FieldClientID, e.ClientID},
		{log.FieldMessageID, e.MessageID},
	} {
		if f.value != "" {
			entry = entry.Str(f.key, f.value)
		}
	}
	entry.Msg(msg)
}

// Log records an action attributed to a user.
func Log(ctx context.Context, action, userID, msg string) {
	Record(ctx, Event{Action: action, UserID: userID}, msg)
}
