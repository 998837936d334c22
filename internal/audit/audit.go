package audit

import (
	"context"

	"github.com/weiawesome/watch-party/pkg/log"
)

// Audit actions for the relay.
const (
	ActionJoinRoom    = "party.join_room"
	ActionLeaveRoom   = "party.leave_room"
	ActionSendMessage = "party.send_message"
	ActionPlayback    = "party.playback"
	ActionDisconnect  = "party.disconnect"
	ActionCreateRoom  = "party.create_room"
	ActionCreateLobby = "party.create_lobby"
	ActionCreateUser  = "party.create_user"
)

// Field constants for audit entries.
const (
	FieldAction  = "audit_action"
	FieldActorID = "actor_id"
	FieldDetail  = "detail"
)

// Log emits a structured audit log entry via the context logger.
func Log(ctx context.Context, action string, actorID string, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(FieldActorID, actorID).
		Msg(msg)
}

// LogWithDetail emits an audit log with extra detail field.
func LogWithDetail(ctx context.Context, action string, actorID string, detail string, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(FieldActorID, actorID).
		Str(FieldDetail, detail).
		Msg(msg)
}
