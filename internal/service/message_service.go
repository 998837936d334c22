package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/weiawesome/watch-party/internal/cache"
	"github.com/weiawesome/watch-party/internal/domain"
	"github.com/weiawesome/watch-party/internal/metrics"
	"github.com/weiawesome/watch-party/internal/repository"
	"github.com/weiawesome/watch-party/pkg/log"
)

// messageServiceImpl implements MessageService interface.
type messageServiceImpl struct {
	rooms     repository.RoomRepository
	users     repository.UserRepository
	cache     cache.Cache
	cacheTTL  time.Duration
	maxLength int
}

// NewMessageService creates the message pipeline. maxLength <= 0 disables
// the length check.
func NewMessageService(rooms repository.RoomRepository, users repository.UserRepository, c cache.Cache, cacheTTL time.Duration, maxLength int) MessageService {
	return &messageServiceImpl{
		rooms:     rooms,
		users:     users,
		cache:     c,
		cacheTTL:  cacheTTL,
		maxLength: maxLength,
	}
}

// AddMessage appends text to the room log, then resolves the sender's
// profile. A profile failure leaves the message persisted.
func (s *messageServiceImpl) AddMessage(ctx context.Context, roomID, memberID, text string) (*domain.ChatBroadcast, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty text", ErrInvalidMessage)
	}
	if s.maxLength > 0 && utf8.RuneCountInString(text) > s.maxLength {
		return nil, fmt.Errorf("%w: text longer than %d characters", ErrInvalidMessage, s.maxLength)
	}

	msg := &domain.ChatMessage{RoomID: roomID, MemberID: memberID, Text: text}
	if err := s.rooms.InsertMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	metrics.MessagesPersisted.Inc()
	s.invalidateRoom(ctx, roomID)

	profile, err := s.profile(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProfileLookup, err)
	}

	return &domain.ChatBroadcast{
		MemberID:    memberID,
		Username:    profile.Username,
		DisplayName: profile.DisplayName,
		Avatar:      profile.Avatar,
		Text:        text,
	}, nil
}

func (s *messageServiceImpl) JoinRoom(ctx context.Context, roomID, memberID string) error {
	if err := s.rooms.AddMember(ctx, roomID, memberID); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	s.invalidateRoom(ctx, roomID)
	return nil
}

// profile reads through the cache; cache errors only cost a store lookup.
func (s *messageServiceImpl) profile(ctx context.Context, memberID string) (*domain.Profile, error) {
	l := log.Ctx(ctx)
	key := s.cache.UserKey(memberID)

	var cached domain.Profile
	err := s.cache.Get(ctx, key, &cached)
	if err == nil {
		return &cached, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		l.Warn().Err(err).Str(log.FieldMemberID, memberID).Msg("profile cache read failed")
	}

	profile, err := s.users.FindProfile(ctx, memberID)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, key, profile, s.cacheTTL); err != nil {
		l.Warn().Err(err).Str(log.FieldMemberID, memberID).Msg("profile cache write failed")
	}
	return profile, nil
}

func (s *messageServiceImpl) invalidateRoom(ctx context.Context, roomID string) {
	if err := s.cache.Delete(ctx, s.cache.RoomKey(roomID)); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Str(log.FieldRoomID, roomID).Msg("room cache invalidation failed")
	}
}
