package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/weiawesome/watch-party/internal/domain"
	"github.com/weiawesome/watch-party/pkg/database"
	"github.com/weiawesome/watch-party/pkg/log"
)

// GormRepository implements Repository using GORM.
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository creates a new GORM-based repository.
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

// Migrate creates or updates the tables.
func (r *GormRepository) Migrate() error {
	return database.AutoMigrate(r.db, domain.Models()...)
}

func (r *GormRepository) Close() error {
	return database.Close(r.db)
}

// CreateRoom creates a room with its initial member set.
func (r *GormRepository) CreateRoom(ctx context.Context, room *domain.Room) error {
	l := log.Ctx(ctx)

	room.Members = dedupe(room.Members)
	model := &domain.RoomModel{RoomID: room.RoomID, Platform: room.Platform}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&domain.RoomModel{}).Where("room_id = ?", room.RoomID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrDuplicate
		}
		if err := tx.Create(model).Error; err != nil {
			return translate(err)
		}
		return insertMembers(tx, room.RoomID, room.Members)
	})
	if err != nil {
		if !errors.Is(err, ErrDuplicate) {
			l.Error().Err(err).Str(log.FieldRoomID, room.RoomID).Msg("failed to create room in db")
		}
		return err
	}

	room.CreatedAt = model.CreatedAt
	l.Debug().Str(log.FieldRoomID, room.RoomID).Msg("room created in db")
	return nil
}

func insertMembers(tx *gorm.DB, roomID string, members []string) error {
	if len(members) == 0 {
		return nil
	}
	rows := make([]domain.RoomMemberModel, 0, len(members))
	for _, m := range members {
		rows = append(rows, domain.RoomMemberModel{RoomID: roomID, MemberID: m})
	}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
}

// GetRoom loads a room with its members in join order and its message log
// in append order.
func (r *GormRepository) GetRoom(ctx context.Context, roomID string) (*domain.Room, error) {
	l := log.Ctx(ctx)
	db := r.db.WithContext(ctx)

	var model domain.RoomModel
	if err := db.First(&model, "room_id = ?", roomID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		l.Error().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to get room")
		return nil, err
	}

	var members []domain.RoomMemberModel
	if err := db.Where("room_id = ?", roomID).Order("joined_at ASC, member_id ASC").Find(&members).Error; err != nil {
		l.Error().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to get room members")
		return nil, err
	}

	var messages []domain.MessageModel
	if err := db.Where("room_id = ?", roomID).Order("id ASC").Find(&messages).Error; err != nil {
		l.Error().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to get room messages")
		return nil, err
	}

	room := &domain.Room{
		RoomID:    model.RoomID,
		Platform:  model.Platform,
		Members:   make([]string, len(members)),
		Messages:  make([]domain.ChatMessage, len(messages)),
		CreatedAt: model.CreatedAt,
	}
	for i, m := range members {
		room.Members[i] = m.MemberID
	}
	for i := range messages {
		room.Messages[i] = messages[i].ToDomain()
	}
	return room, nil
}

func (r *GormRepository) roomExists(tx *gorm.DB, roomID string) error {
	var count int64
	if err := tx.Model(&domain.RoomModel{}).Where("room_id = ?", roomID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrRoomNotFound
	}
	return nil
}

func (r *GormRepository) AddMember(ctx context.Context, roomID, memberID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.roomExists(tx, roomID); err != nil {
			return err
		}
		return insertMembers(tx, roomID, []string{memberID})
	})
}

func (r *GormRepository) InsertMessage(ctx context.Context, msg *domain.ChatMessage) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.roomExists(tx, msg.RoomID); err != nil {
			return err
		}
		model := &domain.MessageModel{RoomID: msg.RoomID, MemberID: msg.MemberID, Text: msg.Text}
		if err := tx.Create(model).Error; err != nil {
			return err
		}
		msg.CreatedAt = model.CreatedAt
		return nil
	})
}

func (r *GormRepository) CreateUser(ctx context.Context, user *domain.User) error {
	model := domain.UserToModel(user)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return translate(err)
	}
	user.CreatedAt = model.CreatedAt
	return nil
}

func (r *GormRepository) GetUser(ctx context.Context, id string) (*domain.User, error) {
	var model domain.UserModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

func (r *GormRepository) FindProfile(ctx context.Context, id string) (*domain.Profile, error) {
	var model domain.UserModel
	err := r.db.WithContext(ctx).
		Select("id", "username", "name", "avatar").
		First(&model, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	p := model.ToDomain().Profile()
	return &p, nil
}

func (r *GormRepository) CreateLobby(ctx context.Context, lobby *domain.Lobby) error {
	model := domain.LobbyToModel(lobby)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return translate(err)
	}
	lobby.CreatedAt = model.CreatedAt
	return nil
}

func (r *GormRepository) GetLobby(ctx context.Context, id string) (*domain.Lobby, error) {
	var model domain.LobbyModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLobbyNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// translate maps unique violations to ErrDuplicate. The message check
// covers drivers built without an error translator.
func translate(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}

var _ Repository = (*GormRepository)(nil)
