package handler

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/weiawesome/watch-party/internal/audit"
	"github.com/weiawesome/watch-party/internal/domain"
	"github.com/weiawesome/watch-party/internal/hub"
	"github.com/weiawesome/watch-party/internal/metrics"
	"github.com/weiawesome/watch-party/internal/service"
	"github.com/weiawesome/watch-party/internal/syncstore"
	"github.com/weiawesome/watch-party/pkg/log"
	"github.com/weiawesome/watch-party/pkg/pubsub"
)

const publishTimeout = 2 * time.Second

// Session is a connection as seen by the router: a registrable handle that
// remembers which room it joined.
type Session interface {
	hub.Handle
	Membership() hub.Membership
	SetMembership(m hub.Membership)
}

// EventRouter decodes inbound frames and applies them to the registry, the
// message pipeline and the sync store. Failures are logged and the frame is
// dropped; senders never receive error frames.
type EventRouter struct {
	hub       *hub.Hub
	messages  service.MessageService
	sync      syncstore.Store
	publisher pubsub.Publisher
	now       func() time.Time
}

func NewEventRouter(h *hub.Hub, messages service.MessageService, sync syncstore.Store, publisher pubsub.Publisher) *EventRouter {
	if publisher == nil {
		publisher = pubsub.NoopPublisher{}
	}
	return &EventRouter{
		hub:       h,
		messages:  messages,
		sync:      sync,
		publisher: publisher,
		now:       time.Now,
	}
}

// Route handles one frame from s. It returns once the frame is fully
// processed, so frames of one connection are applied in order.
func (r *EventRouter) Route(ctx context.Context, s Session, frame []byte) {
	l := log.Ctx(ctx)

	ev, err := domain.DecodeEvent(frame)
	if err != nil {
		metrics.EventsRejected.Inc()
		l.Warn().Err(err).Int("size", len(frame)).Msg("dropping malformed frame")
		return
	}
	if !ev.Action.Known() {
		l.Debug().Str(log.FieldAction, string(ev.Action)).Msg("ignoring unknown action")
		return
	}
	metrics.EventsTotal.WithLabelValues(string(ev.Action)).Inc()

	switch p := ev.Payload.(type) {
	case *domain.MemberJoined:
		r.join(ctx, s, p)
	case *domain.ChatSent:
		r.chat(ctx, p)
	case *domain.PlaybackChanged:
		r.playback(ctx, p)
	case *domain.MemberLeft:
		r.leave(ctx, s, p)
	}
}

// Disconnect evicts the registration held by s, if it still owns it.
func (r *EventRouter) Disconnect(ctx context.Context, s Session) {
	m := s.Membership()
	if m.Empty() {
		return
	}
	s.SetMembership(hub.Membership{})

	ctx = log.WithStr(ctx, log.FieldRoomID, m.RoomID, log.FieldMemberID, m.MemberID)
	if !r.hub.Release(m.RoomID, m.MemberID, s) {
		return
	}
	audit.Log(ctx, audit.ActionDisconnect, m.MemberID, "member disconnected")
	r.announceLeft(ctx, m)
}

func (r *EventRouter) join(ctx context.Context, s Session, p *domain.MemberJoined) {
	ctx = log.WithStr(ctx, log.FieldRoomID, p.RoomID, log.FieldMemberID, p.MemberID)
	l := log.Ctx(ctx)

	target := hub.Membership{RoomID: p.RoomID, MemberID: p.MemberID}
	if prev := s.Membership(); !prev.Empty() && prev != target {
		// One room per connection: leave the previous one first.
		if r.hub.Release(prev.RoomID, prev.MemberID, s) {
			audit.LogWithDetail(ctx, audit.ActionLeaveRoom, prev.MemberID, prev.RoomID, "member switched rooms")
			r.announceLeft(ctx, prev)
		}
		s.SetMembership(hub.Membership{})
	}

	if err := r.messages.JoinRoom(ctx, p.RoomID, p.MemberID); err != nil {
		l.Error().Err(err).Msg("join failed")
		return
	}

	snapshot, err := r.sync.Get(ctx, p.RoomID)
	if err != nil {
		l.Warn().Err(err).Msg("failed to read playback snapshot, sending none")
		snapshot = nil
	}
	if err := sendJSON(s, domain.JoinedResponse(snapshot)); err != nil {
		l.Warn().Err(err).Msg("catch-up send failed")
	}

	if prev := r.hub.Register(p.RoomID, p.MemberID, s); prev != nil && prev.ID() != s.ID() {
		l.Info().Str("replaced_conn_id", prev.ID()).Msg("member re-joined from a new connection")
	}
	s.SetMembership(target)
	r.resendIfChanged(ctx, s, p.RoomID, snapshot)

	audit.Log(ctx, audit.ActionJoinRoom, p.MemberID, "member joined room")
	r.publish(ctx, pubsub.EventMemberJoined, p.RoomID, domain.MemberRef{MemberID: p.MemberID})
}

// resendIfChanged covers a playback update stored after the catch-up read
// but broadcast before s was registered.
func (r *EventRouter) resendIfChanged(ctx context.Context, s Session, roomID string, sent *domain.SyncSnapshot) {
	latest, err := r.sync.Get(ctx, roomID)
	if err != nil || latest == nil {
		return
	}
	if sent != nil && *sent == *latest {
		return
	}
	if err := sendJSON(s, domain.VideoActionResponse(latest)); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Msg("playback resend failed")
	}
}

func (r *EventRouter) chat(ctx context.Context, p *domain.ChatSent) {
	ctx = log.WithStr(ctx, log.FieldRoomID, p.RoomID, log.FieldMemberID, p.MemberID)
	l := log.Ctx(ctx)

	msg, err := r.messages.AddMessage(ctx, p.RoomID, p.MemberID, p.Text)
	if err != nil {
		evt := l.Error()
		if errors.Is(err, service.ErrInvalidMessage) {
			evt = l.Warn()
		}
		evt.Err(err).Msg("chat message dropped")
		return
	}

	res, err := r.hub.BroadcastJSON(p.RoomID, domain.MessageResponse(msg))
	if err != nil {
		l.Error().Err(err).Msg("failed to encode chat broadcast")
		return
	}
	l.Debug().Int("delivered", res.Delivered).Int("failed", len(res.Failed)).Msg("chat message broadcast")

	audit.Log(ctx, audit.ActionSendMessage, p.MemberID, "chat message sent")
	r.publish(ctx, pubsub.EventChatSent, p.RoomID, msg)
}

func (r *EventRouter) playback(ctx context.Context, p *domain.PlaybackChanged) {
	ctx = log.WithStr(ctx, log.FieldRoomID, p.RoomID, log.FieldMemberID, p.UpdatedBy)
	l := log.Ctx(ctx)

	snapshot := domain.SyncSnapshot{
		LastAction: p.Action,
		Time:       p.Time,
		UpdatedAt:  p.UpdatedAt,
		UpdatedBy:  p.UpdatedBy,
	}
	if snapshot.UpdatedAt == 0 {
		snapshot.UpdatedAt = r.now().UnixMilli()
	}

	if err := r.sync.Set(ctx, p.RoomID, snapshot); err != nil {
		l.Error().Err(err).Msg("failed to store playback snapshot")
		return
	}

	res, err := r.hub.BroadcastJSON(p.RoomID, domain.VideoActionResponse(&snapshot))
	if err != nil {
		l.Error().Err(err).Msg("failed to encode playback broadcast")
		return
	}
	l.Debug().Str("last_action", string(snapshot.LastAction)).Int("delivered", res.Delivered).Msg("playback broadcast")

	audit.LogWithDetail(ctx, audit.ActionPlayback, p.UpdatedBy, string(snapshot.LastAction), "playback changed")
	r.publish(ctx, pubsub.EventPlaybackChanged, p.RoomID, snapshot)
}

// leave releases only registrations held by s, so a connection cannot
// evict another connection's member.
func (r *EventRouter) leave(ctx context.Context, s Session, p *domain.MemberLeft) {
	current := s.Membership()
	m := hub.Membership{RoomID: p.RoomID, MemberID: p.MemberID}
	if m.RoomID == "" {
		m.RoomID = current.RoomID
	}
	if m.MemberID == "" {
		m.MemberID = current.MemberID
	}

	ctx = log.WithStr(ctx, log.FieldRoomID, m.RoomID, log.FieldMemberID, m.MemberID)
	if m.Empty() {
		l := log.Ctx(ctx)
		l.Debug().Msg("leave from a connection that joined no room")
		return
	}

	if m == current {
		s.SetMembership(hub.Membership{})
	}
	if !r.hub.Release(m.RoomID, m.MemberID, s) {
		l := log.Ctx(ctx)
		l.Debug().Msg("leave for a registration this connection does not hold")
		return
	}

	audit.Log(ctx, audit.ActionLeaveRoom, m.MemberID, "member left room")
	r.announceLeft(ctx, m)
}

func (r *EventRouter) announceLeft(ctx context.Context, m hub.Membership) {
	if _, err := r.hub.BroadcastJSON(m.RoomID, domain.LeftResponse(m.MemberID)); err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Msg("failed to encode leave broadcast")
	}
	r.publish(ctx, pubsub.EventMemberLeft, m.RoomID, domain.MemberRef{MemberID: m.MemberID})
}

// publish mirrors an event to the activity feed. Failures are only logged.
func (r *EventRouter) publish(ctx context.Context, eventType, roomID string, payload interface{}) {
	l := log.Ctx(ctx)

	event, err := pubsub.NewEvent(eventType, roomID, payload)
	if err != nil {
		l.Error().Err(err).Str("event_type", eventType).Msg("failed to build activity event")
		return
	}

	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := r.publisher.Publish(pubCtx, pubsub.RoomEventsChannel(roomID), event); err != nil {
		l.Warn().Err(err).Str("event_type", eventType).Msg("failed to publish activity event")
	}
}

func sendJSON(h hub.Handle, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return h.Send(data)
}
