package service

import (
	"context"
	"errors"
	"time"

	"github.com/weiawesome/watch-party/internal/cache"
	"github.com/weiawesome/watch-party/internal/domain"
	"github.com/weiawesome/watch-party/internal/repository"
	"github.com/weiawesome/watch-party/pkg/log"
)

// roomServiceImpl implements RoomService interface.
type roomServiceImpl struct {
	rooms    repository.RoomRepository
	lobbies  repository.LobbyRepository
	cache    cache.Cache
	cacheTTL time.Duration
}

// NewRoomService creates a new room service.
func NewRoomService(rooms repository.RoomRepository, lobbies repository.LobbyRepository, c cache.Cache, cacheTTL time.Duration) RoomService {
	return &roomServiceImpl{
		rooms:    rooms,
		lobbies:  lobbies,
		cache:    c,
		cacheTTL: cacheTTL,
	}
}

// CreateRoom creates a room and primes the cache with it.
func (s *roomServiceImpl) CreateRoom(ctx context.Context, req *domain.CreateRoomRequest) (*domain.Room, error) {
	room := &domain.Room{
		RoomID:   req.ID,
		Platform: req.Platform,
		Members:  req.Users,
		Messages: []domain.ChatMessage{},
	}
	if room.Members == nil {
		room.Members = []string{}
	}

	if err := s.rooms.CreateRoom(ctx, room); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrRoomExists
		}
		return nil, err
	}

	s.setCache(ctx, s.cache.RoomKey(room.RoomID), room)
	return room, nil
}

// GetRoom retrieves a room through the cache.
func (s *roomServiceImpl) GetRoom(ctx context.Context, roomID string) (*domain.Room, error) {
	key := s.cache.RoomKey(roomID)

	var cached domain.Room
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		return &cached, nil
	}

	room, err := s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}

	s.setCache(ctx, key, room)
	return room, nil
}

func (s *roomServiceImpl) CreateLobby(ctx context.Context, req *domain.CreateLobbyRequest) (*domain.Lobby, error) {
	lobby := &domain.Lobby{
		ID:       req.ID,
		Platform: req.Platform,
		Members:  req.Users,
	}
	if lobby.Members == nil {
		lobby.Members = []string{}
	}

	if err := s.lobbies.CreateLobby(ctx, lobby); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrLobbyExists
		}
		return nil, err
	}

	s.setCache(ctx, s.cache.LobbyKey(lobby.ID), lobby)
	return lobby, nil
}

func (s *roomServiceImpl) GetLobby(ctx context.Context, lobbyID string) (*domain.Lobby, error) {
	key := s.cache.LobbyKey(lobbyID)

	var cached domain.Lobby
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		return &cached, nil
	}

	lobby, err := s.lobbies.GetLobby(ctx, lobbyID)
	if err != nil {
		if errors.Is(err, repository.ErrLobbyNotFound) {
			return nil, ErrLobbyNotFound
		}
		return nil, err
	}

	s.setCache(ctx, key, lobby)
	return lobby, nil
}

func (s *roomServiceImpl) setCache(ctx context.Context, key string, v interface{}) {
	if err := s.cache.Set(ctx, key, v, s.cacheTTL); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}
