package domain

import (
	"fmt"
	"strings"
)

// PlaybackAction is the last playback transition of a room.
type PlaybackAction string

const (
	PlaybackPlay  PlaybackAction = "Play"
	PlaybackPause PlaybackAction = "Pause"
	PlaybackSkip  PlaybackAction = "Skip"
)

// ParsePlaybackAction accepts any casing of Play, Pause or Skip.
func ParsePlaybackAction(s string) (PlaybackAction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "play":
		return PlaybackPlay, nil
	case "pause":
		return PlaybackPause, nil
	case "skip":
		return PlaybackSkip, nil
	}
	return "", fmt.Errorf("unknown playback action %q", s)
}

// SyncSnapshot is the latest playback state of a room. Time is the playback
// position in seconds; UpdatedAt is unix milliseconds.
type SyncSnapshot struct {
	LastAction PlaybackAction `json:"last_action"`
	Time       float64        `json:"time"`
	UpdatedAt  int64          `json:"updated_at"`
	UpdatedBy  string         `json:"updated_by"`
}
