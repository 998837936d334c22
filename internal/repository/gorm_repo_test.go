package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiawesome/watch-party/internal/config"
	"github.com/weiawesome/watch-party/internal/domain"
)

func newTestRepo(t *testing.T) Repository {
	t.Helper()
	repo, err := New(context.Background(), config.DatabaseConfig{
		Driver:   "sqlite",
		FilePath: filepath.Join(t.TempDir(), "watch_party.db"),
		LogLevel: "silent",
	})
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestGormRepository_CreateAndGetRoom(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	room := &domain.Room{RoomID: "lofi-42", Platform: "youtube", Members: []string{"a", "b", "a"}}
	require.NoError(t, repo.CreateRoom(ctx, room))
	assert.Equal(t, []string{"a", "b"}, room.Members)
	assert.False(t, room.CreatedAt.IsZero())

	got, err := repo.GetRoom(ctx, "lofi-42")
	require.NoError(t, err)
	assert.Equal(t, "youtube", got.Platform)
	assert.ElementsMatch(t, []string{"a", "b"}, got.Members)
	assert.Empty(t, got.Messages)

	err = repo.CreateRoom(ctx, &domain.Room{RoomID: "lofi-42"})
	assert.ErrorIs(t, err, ErrDuplicate)

	_, err = repo.GetRoom(ctx, "missing")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestGormRepository_AddMemberSetSemantics(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.CreateRoom(ctx, &domain.Room{RoomID: "r"}))

	require.NoError(t, repo.AddMember(ctx, "r", "alice"))
	require.NoError(t, repo.AddMember(ctx, "r", "alice"))
	require.NoError(t, repo.AddMember(ctx, "r", "bob"))

	got, err := repo.GetRoom(ctx, "r")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alice", "bob"}, got.Members)

	assert.ErrorIs(t, repo.AddMember(ctx, "missing", "alice"), ErrRoomNotFound)
}

func TestGormRepository_MessageLogOrder(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.CreateRoom(ctx, &domain.Room{RoomID: "r"}))

	for _, text := range []string{"first", "second", "third"} {
		msg := &domain.ChatMessage{RoomID: "r", MemberID: "alice", Text: text}
		require.NoError(t, repo.InsertMessage(ctx, msg))
		assert.False(t, msg.CreatedAt.IsZero())
	}

	got, err := repo.GetRoom(ctx, "r")
	require.NoError(t, err)
	require.Len(t, got.Messages, 3)
	assert.Equal(t, "first", got.Messages[0].Text)
	assert.Equal(t, "second", got.Messages[1].Text)
	assert.Equal(t, "third", got.Messages[2].Text)

	err = repo.InsertMessage(ctx, &domain.ChatMessage{RoomID: "missing", MemberID: "a", Text: "x"})
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestGormRepository_Users(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	user := &domain.User{ID: "u1", Username: "calm-otter-0042", Name: "Ada", Avatar: "https://a/1.png"}
	require.NoError(t, repo.CreateUser(ctx, user))

	got, err := repo.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.Name)

	profile, err := repo.FindProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.Profile{Username: "calm-otter-0042", DisplayName: "Ada", Avatar: "https://a/1.png"}, *profile)

	err = repo.CreateUser(ctx, &domain.User{ID: "u2", Username: "calm-otter-0042"})
	assert.ErrorIs(t, err, ErrDuplicate)

	_, err = repo.FindProfile(ctx, "nobody")
	assert.ErrorIs(t, err, ErrUserNotFound)
	_, err = repo.GetUser(ctx, "nobody")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestGormRepository_Lobbies(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.CreateLobby(ctx, &domain.Lobby{ID: "l1", Platform: "netflix", Members: []string{"a", "b"}}))

	got, err := repo.GetLobby(ctx, "l1")
	require.NoError(t, err)
	assert.Equal(t, "netflix", got.Platform)
	assert.Equal(t, []string{"a", "b"}, got.Members)

	err = repo.CreateLobby(ctx, &domain.Lobby{ID: "l1"})
	assert.ErrorIs(t, err, ErrDuplicate)

	_, err = repo.GetLobby(ctx, "missing")
	assert.ErrorIs(t, err, ErrLobbyNotFound)
}

func TestDedupe(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, dedupe([]string{"a", "b", "a"}))
	assert.Equal(t, []string{}, dedupe(nil))
}
