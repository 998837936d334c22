package pubsub

import (
	"fmt"
	"strings"
)

// ChannelRoomEvents is the per-room activity channel.
const ChannelRoomEvents = "watchparty:room:%s:events"

// Event types published on a room channel.
const (
	EventMemberJoined    = "member_joined"
	EventMemberLeft      = "member_left"
	EventChatSent        = "chat_sent"
	EventPlaybackChanged = "playback_changed"
)

// RoomEventsChannel returns the activity channel name for a room.
func RoomEventsChannel(roomID string) string {
	return fmt.Sprintf(ChannelRoomEvents, roomID)
}

// RoomFromChannel extracts the room id from a room channel name.
//
//	"watchparty:room:lofi-42:events" → "lofi-42"
//
// Room ids may themselves contain ':'.
func RoomFromChannel(channel string) (string, error) {
	const prefix, suffix = "watchparty:room:", ":events"
	if !strings.HasPrefix(channel, prefix) || !strings.HasSuffix(channel, suffix) {
		return "", fmt.Errorf("invalid channel format: %s", channel)
	}
	roomID := strings.TrimSuffix(strings.TrimPrefix(channel, prefix), suffix)
	if roomID == "" {
		return "", fmt.Errorf("invalid channel format: %s", channel)
	}
	return roomID, nil
}
