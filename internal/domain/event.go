package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedEvent is returned for frames that cannot be decoded or whose
// payload does not match the declared action.
var ErrMalformedEvent = errors.New("malformed event")

// Action is the envelope action of an inbound frame.
type Action string

const (
	ActionUserJoined Action = "user_joined"
	ActionUserLeft   Action = "user_left"
	ActionMessage    Action = "message"
	ActionPlay       Action = "play"
	ActionPause      Action = "pause"
	ActionSkip       Action = "skip"
)

// Payload types carried in payload.type.
const (
	PayloadUserJoined  = "UserJoined"
	PayloadUserLeft    = "UserLeft"
	PayloadChatMessage = "ChatMessage"
	PayloadVideoAction = "VideoAction"
)

// expectedPayload maps every known action to the only payload type it may carry.
var expectedPayload = map[Action]string{
	ActionUserJoined: PayloadUserJoined,
	ActionUserLeft:   PayloadUserLeft,
	ActionMessage:    PayloadChatMessage,
	ActionPlay:       PayloadVideoAction,
	ActionPause:      PayloadVideoAction,
	ActionSkip:       PayloadVideoAction,
}

// Known reports whether the router has a handler for a.
func (a Action) Known() bool {
	_, ok := expectedPayload[a]
	return ok
}

// Playback converts a playback action to its PlaybackAction.
func (a Action) Playback() (PlaybackAction, bool) {
	switch a {
	case ActionPlay:
		return PlaybackPlay, true
	case ActionPause:
		return PlaybackPause, true
	case ActionSkip:
		return PlaybackSkip, true
	}
	return "", false
}

// Payload is implemented by *MemberJoined, *MemberLeft, *ChatSent and
// *PlaybackChanged. An Event with an unknown action has a nil Payload.
type Payload interface {
	payloadType() string
}

type MemberJoined struct {
	MemberID string
	RoomID   string
}

type MemberLeft struct {
	MemberID string
	RoomID   string
}

type ChatSent struct {
	MemberID string
	RoomID   string
	Text     string
}

// PlaybackChanged carries the fields of a SyncSnapshot. UpdatedAt is zero
// when the client did not send one.
type PlaybackChanged struct {
	RoomID    string
	Action    PlaybackAction
	Time      float64
	UpdatedAt int64
	UpdatedBy string
}

func (*MemberJoined) payloadType() string    { return PayloadUserJoined }
func (*MemberLeft) payloadType() string      { return PayloadUserLeft }
func (*ChatSent) payloadType() string        { return PayloadChatMessage }
func (*PlaybackChanged) payloadType() string { return PayloadVideoAction }

// Event is a decoded, validated inbound frame.
type Event struct {
	Action   Action
	RoomID   string
	MemberID string
	Payload  Payload
}

type rawEvent struct {
	Action   string      `json:"action"`
	RoomID   string      `json:"room_id"`
	MemberID string      `json:"member_id"`
	UserID   string      `json:"user_id"`
	Payload  *rawPayload `json:"payload"`
}

type rawPayload struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type memberData struct {
	MemberID string `json:"member_id"`
	UserID   string `json:"user_id"`
	RoomID   string `json:"room_id"`
}

type chatData struct {
	memberData
	Text    string `json:"text"`
	Message string `json:"message"`
}

type videoData struct {
	LastAction *string  `json:"last_action"`
	Time       *float64 `json:"time"`
	UpdatedAt  *int64   `json:"updated_at"`
	UpdatedBy  string   `json:"updated_by"`
}

// DecodeEvent parses a frame and validates that its payload matches its
// action. Payload identities fall back to the envelope's room_id and
// member_id. Frames with an unknown action decode without error and carry
// no payload.
func DecodeEvent(data []byte) (*Event, error) {
	var raw rawEvent
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	ev := &Event{
		Action:   Action(strings.ToLower(strings.TrimSpace(raw.Action))),
		RoomID:   raw.RoomID,
		MemberID: firstNonEmpty(raw.MemberID, raw.UserID),
	}

	want, known := expectedPayload[ev.Action]
	if !known {
		return ev, nil
	}

	if raw.Payload == nil {
		if ev.Action == ActionUserLeft {
			ev.Payload = &MemberLeft{MemberID: ev.MemberID, RoomID: ev.RoomID}
			return ev, nil
		}
		return nil, fmt.Errorf("%w: action %q without payload", ErrMalformedEvent, ev.Action)
	}
	if raw.Payload.Type != want {
		return nil, fmt.Errorf("%w: action %q cannot carry payload %q", ErrMalformedEvent, ev.Action, raw.Payload.Type)
	}

	var err error
	switch want {
	case PayloadUserJoined:
		var d memberData
		if err = unmarshalData(raw.Payload.Data, &d); err == nil {
			ev.Payload = &MemberJoined{
				MemberID: firstNonEmpty(d.MemberID, d.UserID, ev.MemberID),
				RoomID:   firstNonEmpty(d.RoomID, ev.RoomID),
			}
		}
	case PayloadUserLeft:
		var d memberData
		if err = unmarshalData(raw.Payload.Data, &d); err == nil {
			ev.Payload = &MemberLeft{
				MemberID: firstNonEmpty(d.MemberID, d.UserID, ev.MemberID),
				RoomID:   firstNonEmpty(d.RoomID, ev.RoomID),
			}
		}
	case PayloadChatMessage:
		var d chatData
		if err = unmarshalData(raw.Payload.Data, &d); err == nil {
			ev.Payload = &ChatSent{
				MemberID: firstNonEmpty(d.MemberID, d.UserID, ev.MemberID),
				RoomID:   firstNonEmpty(d.RoomID, ev.RoomID),
				Text:     firstNonEmpty(d.Text, d.Message),
			}
		}
	case PayloadVideoAction:
		ev.Payload, err = decodeVideo(ev, raw.Payload.Data)
	}
	if err != nil {
		return nil, err
	}
	if err := validate(ev); err != nil {
		return nil, err
	}
	return ev, nil
}

func decodeVideo(ev *Event, data json.RawMessage) (*PlaybackChanged, error) {
	var d videoData
	if err := unmarshalData(data, &d); err != nil {
		return nil, err
	}
	action, _ := ev.Action.Playback()
	if d.LastAction != nil {
		last, err := ParsePlaybackAction(*d.LastAction)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
		}
		if last != action {
			return nil, fmt.Errorf("%w: last_action %q does not match action %q", ErrMalformedEvent, last, ev.Action)
		}
	}
	if d.Time == nil {
		return nil, fmt.Errorf("%w: playback event without time", ErrMalformedEvent)
	}
	if *d.Time < 0 {
		return nil, fmt.Errorf("%w: negative playback time", ErrMalformedEvent)
	}
	p := &PlaybackChanged{
		RoomID:    ev.RoomID,
		Action:    action,
		Time:      *d.Time,
		UpdatedBy: firstNonEmpty(d.UpdatedBy, ev.MemberID),
	}
	if d.UpdatedAt != nil {
		p.UpdatedAt = *d.UpdatedAt
	}
	return p, nil
}

func unmarshalData(data json.RawMessage, v interface{}) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	return nil
}

func validate(ev *Event) error {
	var room, member string
	switch p := ev.Payload.(type) {
	case *MemberJoined:
		room, member = p.RoomID, p.MemberID
	case *MemberLeft:
		// Leave may omit both; the router falls back to the connection's membership.
		return nil
	case *ChatSent:
		room, member = p.RoomID, p.MemberID
	case *PlaybackChanged:
		room, member = p.RoomID, p.UpdatedBy
	}
	if room == "" {
		return fmt.Errorf("%w: %s without room_id", ErrMalformedEvent, ev.Action)
	}
	if member == "" {
		return fmt.Errorf("%w: %s without member_id", ErrMalformedEvent, ev.Action)
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
