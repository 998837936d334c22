package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/weiawesome/watch-party/internal/domain"
)

func newMockMongo(t *testing.T) *mtest.T {
	return mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock).DatabaseName("lofi-party"))
}

func mongoRepo(mt *mtest.T) *MongoRepository {
	return &MongoRepository{client: mt.Client, db: mt.DB}
}

func duplicateKey() bson.D {
	return mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 11000, Message: "E11000 duplicate key error"})
}

func TestMongoRepository_AddMember(t *testing.T) {
	mt := newMockMongo(t)

	mt.Run("unknown room", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}))

		err := mongoRepo(mt).AddMember(context.Background(), "missing", "a")
		assert.ErrorIs(mt, err, ErrRoomNotFound)
	})

	mt.Run("existing member is a no-op", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 0}))

		require.NoError(mt, mongoRepo(mt).AddMember(context.Background(), "lofi-42", "a"))
		assert.Equal(mt, "update", mt.GetStartedEvent().CommandName)
	})
}

func TestMongoRepository_InsertMessage(t *testing.T) {
	mt := newMockMongo(t)

	mt.Run("unknown room", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}))

		msg := &domain.ChatMessage{RoomID: "missing", MemberID: "a", Text: "hi"}
		err := mongoRepo(mt).InsertMessage(context.Background(), msg)
		assert.ErrorIs(mt, err, ErrRoomNotFound)
	})

	mt.Run("appends", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}))

		msg := &domain.ChatMessage{RoomID: "lofi-42", MemberID: "a", Text: "hi"}
		require.NoError(mt, mongoRepo(mt).InsertMessage(context.Background(), msg))
		assert.False(mt, msg.CreatedAt.IsZero())
	})
}

func TestMongoRepository_DuplicateKeys(t *testing.T) {
	mt := newMockMongo(t)

	mt.Run("room", func(mt *mtest.T) {
		mt.AddMockResponses(duplicateKey())
		err := mongoRepo(mt).CreateRoom(context.Background(), &domain.Room{RoomID: "lofi-42"})
		assert.ErrorIs(mt, err, ErrDuplicate)
	})

	mt.Run("user", func(mt *mtest.T) {
		mt.AddMockResponses(duplicateKey())
		err := mongoRepo(mt).CreateUser(context.Background(), &domain.User{ID: "u1", Username: "taken"})
		assert.ErrorIs(mt, err, ErrDuplicate)
	})

	mt.Run("lobby", func(mt *mtest.T) {
		mt.AddMockResponses(duplicateKey())
		err := mongoRepo(mt).CreateLobby(context.Background(), &domain.Lobby{ID: "l1"})
		assert.ErrorIs(mt, err, ErrDuplicate)
	})
}

func TestMongoRepository_CreateRoomDedupesMembers(t *testing.T) {
	mt := newMockMongo(t)

	mt.Run("create", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		room := &domain.Room{RoomID: "lofi-42", Members: []string{"a", "b", "a"}}
		require.NoError(mt, mongoRepo(mt).CreateRoom(context.Background(), room))
		assert.Equal(mt, []string{"a", "b"}, room.Members)
		assert.False(mt, room.CreatedAt.IsZero())
	})
}

func TestMongoRepository_GetRoom(t *testing.T) {
	mt := newMockMongo(t)
	ns := "lofi-party.rooms"

	mt.Run("not found", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		_, err := mongoRepo(mt).GetRoom(context.Background(), "missing")
		assert.ErrorIs(mt, err, ErrRoomNotFound)
	})

	mt.Run("found", func(mt *mtest.T) {
		created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{
			{Key: "room_id", Value: "lofi-42"},
			{Key: "platform", Value: "youtube"},
			{Key: "users", Value: bson.A{"a", "b"}},
			{Key: "messages", Value: bson.A{
				bson.D{{Key: "member_id", Value: "a"}, {Key: "text", Value: "first"}, {Key: "created_at", Value: created}},
				bson.D{{Key: "member_id", Value: "b"}, {Key: "text", Value: "second"}, {Key: "created_at", Value: created}},
			}},
			{Key: "created_at", Value: created},
		}))

		room, err := mongoRepo(mt).GetRoom(context.Background(), "lofi-42")
		require.NoError(mt, err)
		assert.Equal(mt, "youtube", room.Platform)
		assert.Equal(mt, []string{"a", "b"}, room.Members)
		require.Len(mt, room.Messages, 2)
		assert.Equal(mt, "first", room.Messages[0].Text)
		assert.Equal(mt, "lofi-42", room.Messages[1].RoomID)
		assert.True(mt, created.Equal(room.CreatedAt))
	})
}

func TestMongoRepository_Profiles(t *testing.T) {
	mt := newMockMongo(t)
	ns := "lofi-party.users"

	mt.Run("found", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{
			{Key: "_id", Value: "u1"},
			{Key: "username", Value: "calm-otter-0042"},
			{Key: "name", Value: "Alice"},
			{Key: "avatar", Value: "https://a/1.png"},
		}))

		profile, err := mongoRepo(mt).FindProfile(context.Background(), "u1")
		require.NoError(mt, err)
		assert.Equal(mt, &domain.Profile{Username: "calm-otter-0042", DisplayName: "Alice", Avatar: "https://a/1.png"}, profile)
	})

	mt.Run("missing user", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		_, err := mongoRepo(mt).FindProfile(context.Background(), "ghost")
		assert.ErrorIs(mt, err, ErrUserNotFound)
	})

	mt.Run("missing lobby", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "lofi-party.lobbies", mtest.FirstBatch))

		_, err := mongoRepo(mt).GetLobby(context.Background(), "none")
		assert.ErrorIs(mt, err, ErrLobbyNotFound)
	})
}
