package service

import (
	"context"
	"errors"

	"github.com/weiawesome/watch-party/internal/domain"
)

var (
	ErrPersistence    = errors.New("persistence failed")
	ErrProfileLookup  = errors.New("profile lookup failed")
	ErrInvalidMessage = errors.New("invalid message")

	ErrRoomExists    = errors.New("room already exists")
	ErrRoomNotFound  = errors.New("room not found")
	ErrLobbyExists   = errors.New("lobby already exists")
	ErrLobbyNotFound = errors.New("lobby not found")
	ErrUserNotFound  = errors.New("user not found")
)

// MessageService persists chat messages and room membership. It never
// broadcasts; callers notify the room only after a successful return.
type MessageService interface {
	AddMessage(ctx context.Context, roomID, memberID, text string) (*domain.ChatBroadcast, error)
	JoinRoom(ctx context.Context, roomID, memberID string) error
}

// RoomService handles room and lobby creation and lookup.
type RoomService interface {
	CreateRoom(ctx context.Context, req *domain.CreateRoomRequest) (*domain.Room, error)
	GetRoom(ctx context.Context, roomID string) (*domain.Room, error)
	CreateLobby(ctx context.Context, req *domain.CreateLobbyRequest) (*domain.Lobby, error)
	GetLobby(ctx context.Context, lobbyID string) (*domain.Lobby, error)
}

// UserService handles user creation and lookup.
type UserService interface {
	CreateUser(ctx context.Context, req *domain.CreateUserRequest) (*domain.User, error)
	GetUser(ctx context.Context, userID string) (*domain.User, error)
}
