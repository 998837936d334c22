package repository

import (
	"context"
	"errors"

	"github.com/weiawesome/watch-party/internal/domain"
)

var (
	ErrRoomNotFound  = errors.New("room not found")
	ErrUserNotFound  = errors.New("user not found")
	ErrLobbyNotFound = errors.New("lobby not found")
	ErrDuplicate     = errors.New("duplicate key")
)

// RoomRepository persists rooms, their member sets and message logs.
type RoomRepository interface {
	CreateRoom(ctx context.Context, room *domain.Room) error
	GetRoom(ctx context.Context, roomID string) (*domain.Room, error)
	// AddMember has set semantics; adding an existing member is a no-op.
	AddMember(ctx context.Context, roomID, memberID string) error
	InsertMessage(ctx context.Context, msg *domain.ChatMessage) error
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUser(ctx context.Context, id string) (*domain.User, error)
	FindProfile(ctx context.Context, id string) (*domain.Profile, error)
}

type LobbyRepository interface {
	CreateLobby(ctx context.Context, lobby *domain.Lobby) error
	GetLobby(ctx context.Context, id string) (*domain.Lobby, error)
}

// Repository is the durable store behind the relay.
type Repository interface {
	RoomRepository
	UserRepository
	LobbyRepository
	Close() error
}
