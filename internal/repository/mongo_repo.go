package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/weiawesome/watch-party/internal/domain"
	"github.com/weiawesome/watch-party/pkg/log"
)

const (
	collectionRooms   = "rooms"
	collectionUsers   = "users"
	collectionLobbies = "lobbies"
)

type roomDocument struct {
	RoomID    string            `bson:"room_id"`
	Platform  string            `bson:"platform"`
	Users     []string          `bson:"users"`
	Messages  []messageDocument `bson:"messages"`
	CreatedAt time.Time         `bson:"created_at"`
}

type messageDocument struct {
	MemberID  string    `bson:"member_id"`
	Text      string    `bson:"text"`
	CreatedAt time.Time `bson:"created_at"`
}

type userDocument struct {
	ID        string    `bson:"_id"`
	Username  string    `bson:"username"`
	Name      string    `bson:"name"`
	Avatar    string    `bson:"avatar"`
	CreatedAt time.Time `bson:"created_at"`
}

type lobbyDocument struct {
	ID        string    `bson:"_id"`
	Platform  string    `bson:"platform"`
	Users     []string  `bson:"users"`
	CreatedAt time.Time `bson:"created_at"`
}

// MongoRepository implements Repository on MongoDB. A room is one document
// holding its member set and message log.
type MongoRepository struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewMongoRepository connects, pings and ensures the unique indexes.
func NewMongoRepository(ctx context.Context, uri, dbName string) (*MongoRepository, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	r := &MongoRepository{client: client, db: client.Database(dbName)}
	if err := r.ensureIndexes(connectCtx); err != nil {
		client.Disconnect(context.Background())
		return nil, err
	}
	return r, nil
}

func (r *MongoRepository) ensureIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)
	if _, err := r.db.Collection(collectionRooms).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "room_id", Value: 1}}, Options: unique,
	}); err != nil {
		return fmt.Errorf("failed to create rooms index: %w", err)
	}
	if _, err := r.db.Collection(collectionUsers).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "username", Value: 1}}, Options: unique,
	}); err != nil {
		return fmt.Errorf("failed to create users index: %w", err)
	}
	return nil
}

func (r *MongoRepository) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return r.client.Disconnect(ctx)
}

func (r *MongoRepository) CreateRoom(ctx context.Context, room *domain.Room) error {
	now := time.Now().UTC()
	users := dedupe(room.Members)
	doc := roomDocument{
		RoomID:    room.RoomID,
		Platform:  room.Platform,
		Users:     users,
		Messages:  []messageDocument{},
		CreatedAt: now,
	}
	if _, err := r.db.Collection(collectionRooms).InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %v", ErrDuplicate, err)
		}
		l := log.Ctx(ctx)
		l.Error().Err(err).Str(log.FieldRoomID, room.RoomID).Msg("failed to create room in mongodb")
		return err
	}
	room.Members = users
	room.CreatedAt = now
	return nil
}

func (r *MongoRepository) GetRoom(ctx context.Context, roomID string) (*domain.Room, error) {
	var doc roomDocument
	err := r.db.Collection(collectionRooms).FindOne(ctx, bson.M{"room_id": roomID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}

	room := &domain.Room{
		RoomID:    doc.RoomID,
		Platform:  doc.Platform,
		Members:   doc.Users,
		Messages:  make([]domain.ChatMessage, len(doc.Messages)),
		CreatedAt: doc.CreatedAt,
	}
	if room.Members == nil {
		room.Members = []string{}
	}
	for i, m := range doc.Messages {
		room.Messages[i] = domain.ChatMessage{
			MemberID:  m.MemberID,
			RoomID:    doc.RoomID,
			Text:      m.Text,
			CreatedAt: m.CreatedAt,
		}
	}
	return room, nil
}

func (r *MongoRepository) AddMember(ctx context.Context, roomID, memberID string) error {
	res, err := r.db.Collection(collectionRooms).UpdateOne(ctx,
		bson.M{"room_id": roomID},
		bson.M{"$addToSet": bson.M{"users": memberID}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrRoomNotFound
	}
	return nil
}

func (r *MongoRepository) InsertMessage(ctx context.Context, msg *domain.ChatMessage) error {
	msg.CreatedAt = time.Now().UTC()
	res, err := r.db.Collection(collectionRooms).UpdateOne(ctx,
		bson.M{"room_id": msg.RoomID},
		bson.M{"$push": bson.M{"messages": messageDocument{
			MemberID:  msg.MemberID,
			Text:      msg.Text,
			CreatedAt: msg.CreatedAt,
		}}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrRoomNotFound
	}
	return nil
}

func (r *MongoRepository) CreateUser(ctx context.Context, user *domain.User) error {
	user.CreatedAt = time.Now().UTC()
	doc := userDocument{
		ID:        user.ID,
		Username:  user.Username,
		Name:      user.Name,
		Avatar:    user.Avatar,
		CreatedAt: user.CreatedAt,
	}
	if _, err := r.db.Collection(collectionUsers).InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %v", ErrDuplicate, err)
		}
		return err
	}
	return nil
}

func (r *MongoRepository) GetUser(ctx context.Context, id string) (*domain.User, error) {
	var doc userDocument
	if err := r.db.Collection(collectionUsers).FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &domain.User{
		ID:        doc.ID,
		Username:  doc.Username,
		Name:      doc.Name,
		Avatar:    doc.Avatar,
		CreatedAt: doc.CreatedAt,
	}, nil
}

func (r *MongoRepository) FindProfile(ctx context.Context, id string) (*domain.Profile, error) {
	opts := options.FindOne().SetProjection(bson.M{"username": 1, "name": 1, "avatar": 1})
	var doc userDocument
	if err := r.db.Collection(collectionUsers).FindOne(ctx, bson.M{"_id": id}, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &domain.Profile{Username: doc.Username, DisplayName: doc.Name, Avatar: doc.Avatar}, nil
}

func (r *MongoRepository) CreateLobby(ctx context.Context, lobby *domain.Lobby) error {
	lobby.CreatedAt = time.Now().UTC()
	doc := lobbyDocument{
		ID:        lobby.ID,
		Platform:  lobby.Platform,
		Users:     lobby.Members,
		CreatedAt: lobby.CreatedAt,
	}
	if doc.Users == nil {
		doc.Users = []string{}
	}
	if _, err := r.db.Collection(collectionLobbies).InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %v", ErrDuplicate, err)
		}
		return err
	}
	return nil
}

func (r *MongoRepository) GetLobby(ctx context.Context, id string) (*domain.Lobby, error) {
	var doc lobbyDocument
	if err := r.db.Collection(collectionLobbies).FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrLobbyNotFound
		}
		return nil, err
	}
	members := doc.Users
	if members == nil {
		members = []string{}
	}
	return &domain.Lobby{ID: doc.ID, Platform: doc.Platform, Members: members, CreatedAt: doc.CreatedAt}, nil
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

var _ Repository = (*MongoRepository)(nil)
