package domain

import (
	"time"

	"github.com/weiawesome/watch-party/pkg/database"
)

// RoomModel is the GORM model for rooms table.
type RoomModel struct {
	RoomID    string    `gorm:"type:varchar(128);primaryKey"`
	Platform  string    `gorm:"type:varchar(64)"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (RoomModel) TableName() string {
	return "rooms"
}

// RoomMemberModel stores a room's member set; the composite key makes a
// repeated join a no-op.
type RoomMemberModel struct {
	RoomID   string    `gorm:"type:varchar(128);primaryKey"`
	MemberID string    `gorm:"type:varchar(64);primaryKey"`
	JoinedAt time.Time `gorm:"autoCreateTime"`
}

func (RoomMemberModel) TableName() string {
	return "room_members"
}

// MessageModel is one entry of a room's append-only message log.
type MessageModel struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	RoomID    string    `gorm:"type:varchar(128);index;not null"`
	MemberID  string    `gorm:"type:varchar(64);not null"`
	Text      string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (MessageModel) TableName() string {
	return "room_messages"
}

func (m *MessageModel) ToDomain() ChatMessage {
	return ChatMessage{
		MemberID:  m.MemberID,
		RoomID:    m.RoomID,
		Text:      m.Text,
		CreatedAt: m.CreatedAt,
	}
}

// UserModel is the GORM model for users table.
type UserModel struct {
	ID        string    `gorm:"type:varchar(36);primaryKey"`
	Username  string    `gorm:"type:varchar(64);uniqueIndex;not null"`
	Name      string    `gorm:"type:varchar(128)"`
	Avatar    string    `gorm:"type:varchar(512)"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (UserModel) TableName() string {
	return "users"
}

func (m *UserModel) ToDomain() *User {
	return &User{
		ID:        m.ID,
		Username:  m.Username,
		Name:      m.Name,
		Avatar:    m.Avatar,
		CreatedAt: m.CreatedAt,
	}
}

func UserToModel(u *User) *UserModel {
	return &UserModel{
		ID:        u.ID,
		Username:  u.Username,
		Name:      u.Name,
		Avatar:    u.Avatar,
		CreatedAt: u.CreatedAt,
	}
}

// LobbyModel is the GORM model for lobbies table.
type LobbyModel struct {
	ID        string               `gorm:"type:varchar(128);primaryKey"`
	Platform  string               `gorm:"type:varchar(64)"`
	Users     database.StringArray `gorm:"type:text"`
	CreatedAt time.Time            `gorm:"autoCreateTime"`
}

func (LobbyModel) TableName() string {
	return "lobbies"
}

func (m *LobbyModel) ToDomain() *Lobby {
	members := []string(m.Users)
	if members == nil {
		members = []string{}
	}
	return &Lobby{
		ID:        m.ID,
		Platform:  m.Platform,
		Members:   members,
		CreatedAt: m.CreatedAt,
	}
}

func LobbyToModel(l *Lobby) *LobbyModel {
	return &LobbyModel{
		ID:        l.ID,
		Platform:  l.Platform,
		Users:     database.StringArray(l.Members),
		CreatedAt: l.CreatedAt,
	}
}

// Models lists every GORM model for auto-migration.
func Models() []interface{} {
	return []interface{}{
		&RoomModel{},
		&RoomMemberModel{},
		&MessageModel{},
		&UserModel{},
		&LobbyModel{},
	}
}
