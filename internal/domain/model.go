package domain

import "time"

type Room struct {
	RoomID    string        `json:"room_id"`
	Platform  string        `json:"platform"`
	Members   []string      `json:"members"`
	Messages  []ChatMessage `json:"messages"`
	CreatedAt time.Time     `json:"created_at"`
}

type Lobby struct {
	ID        string    `json:"id"`
	Platform  string    `json:"platform"`
	Members   []string  `json:"members"`
	CreatedAt time.Time `json:"created_at"`
}

type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Name      string    `json:"name"`
	Avatar    string    `json:"avatar"`
	CreatedAt time.Time `json:"created_at"`
}

// Profile is the part of a user shown next to chat messages.
type Profile struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Avatar      string `json:"avatar"`
}

func (u *User) Profile() Profile {
	return Profile{Username: u.Username, DisplayName: u.Name, Avatar: u.Avatar}
}

type ChatMessage struct {
	MemberID  string    `json:"member_id"`
	RoomID    string    `json:"room_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatBroadcast is a persisted chat message enriched with its sender's profile.
type ChatBroadcast struct {
	MemberID    string `json:"member_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Avatar      string `json:"avatar"`
	Text        string `json:"text"`
}
