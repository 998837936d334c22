package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiawesome/watch-party/internal/cache"
	"github.com/weiawesome/watch-party/internal/config"
	"github.com/weiawesome/watch-party/internal/domain"
	"github.com/weiawesome/watch-party/internal/hub"
	"github.com/weiawesome/watch-party/internal/repository"
	"github.com/weiawesome/watch-party/internal/service"
	"github.com/weiawesome/watch-party/internal/syncstore"
	"github.com/weiawesome/watch-party/pkg/log"
)

// stack is the relay wired over a temporary sqlite database.
type stack struct {
	repo     repository.Repository
	hub      *hub.Hub
	sync     syncstore.Store
	rooms    service.RoomService
	users    service.UserService
	messages service.MessageService
	router   *EventRouter
	ws       *WSHandler
}

func newStack(t *testing.T) *stack {
	t.Helper()
	repo, err := repository.New(context.Background(), config.DatabaseConfig{
		Driver:   "sqlite",
		FilePath: filepath.Join(t.TempDir(), "watch_party.db"),
		LogLevel: "silent",
	})
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	c := cache.NoopCache{}
	s := &stack{
		repo:  repo,
		hub:   hub.NewHub(),
		sync:  syncstore.NewMemoryStore(),
		rooms: service.NewRoomService(repo, repo, c, time.Minute),
		users: service.NewUserService(repo, c, time.Minute, service.NewUsernameGenerator(7)),
	}
	s.messages = service.NewMessageService(repo, repo, c, time.Minute, 2000)
	s.router = NewEventRouter(s.hub, s.messages, s.sync, nil)
	s.ws = NewWSHandler(s.router, config.WebSocketConfig{
		PingInterval:   time.Second,
		PongWait:       5 * time.Second,
		WriteWait:      time.Second,
		MaxMessageSize: 8192,
		SendBuffer:     64,
	})
	return s
}

func (s *stack) createUser(t *testing.T, name string) *domain.User {
	t.Helper()
	u, err := s.users.CreateUser(context.Background(), &domain.CreateUserRequest{Name: name})
	require.NoError(t, err)
	return u
}

func (s *stack) serveWS(t *testing.T) string {
	t.Helper()
	mux := http.NewServeMux()
	s.ws.RegisterRoutes(mux)
	srv := httptest.NewServer(log.HTTPMiddleware(zerolog.Nop())(mux))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func write(t *testing.T, conn *websocket.Conn, frame string) {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(frame)))
}

func read(t *testing.T, conn *websocket.Conn) domain.Response {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var resp domain.Response
	require.NoError(t, json.Unmarshal(data, &resp))
	return resp
}

func TestWSHandler_WatchParty(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()
	_, err := s.rooms.CreateRoom(ctx, &domain.CreateRoomRequest{ID: "lofi-42", Platform: "youtube"})
	require.NoError(t, err)
	alice, bob, carol := s.createUser(t, "Alice"), s.createUser(t, "Bob"), s.createUser(t, "Carol")

	url := s.serveWS(t)
	a, b, c := dial(t, url), dial(t, url), dial(t, url)

	write(t, a, joinFrame("lofi-42", alice.ID))
	joined := read(t, a)
	assert.Equal(t, domain.ResponseUserJoined, joined.ResponseType)
	assert.Nil(t, joined.Data)

	write(t, b, joinFrame("lofi-42", bob.ID))
	assert.Nil(t, read(t, b).Data)

	write(t, b, playFrame("lofi-42", bob.ID, 12.5))
	for _, conn := range []*websocket.Conn{a, b} {
		resp := read(t, conn)
		assert.Equal(t, domain.ResponseVideoAction, resp.ResponseType)
		snap := snapshotOf(t, resp)
		assert.Equal(t, domain.PlaybackPlay, snap.LastAction)
		assert.Equal(t, 12.5, snap.Time)
		assert.Equal(t, bob.ID, snap.UpdatedBy)
	}

	write(t, c, joinFrame("lofi-42", carol.ID))
	catchUp := snapshotOf(t, read(t, c))
	assert.Equal(t, 12.5, catchUp.Time)
	assert.Equal(t, bob.ID, catchUp.UpdatedBy)

	write(t, a, chatFrame("lofi-42", alice.ID, "hello"))
	for _, conn := range []*websocket.Conn{a, b, c} {
		resp := read(t, conn)
		require.Equal(t, domain.ResponseMessage, resp.ResponseType)
		data := resp.Data.(map[string]interface{})
		assert.Equal(t, "hello", data["text"])
		assert.Equal(t, alice.Username, data["username"])
		assert.Equal(t, "Alice", data["display_name"])
	}

	room, err := s.rooms.GetRoom(ctx, "lofi-42")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{alice.ID, bob.ID, carol.ID}, room.Members)
	require.Len(t, room.Messages, 1)
	assert.Equal(t, "hello", room.Messages[0].Text)
}

func TestWSHandler_DisconnectEvicts(t *testing.T) {
	s := newStack(t)
	_, err := s.rooms.CreateRoom(context.Background(), &domain.CreateRoomRequest{ID: "r"})
	require.NoError(t, err)

	url := s.serveWS(t)
	a, b := dial(t, url), dial(t, url)
	write(t, a, joinFrame("r", "A"))
	read(t, a)
	write(t, b, joinFrame("r", "B"))
	read(t, b)
	require.Equal(t, 2, s.hub.MemberCount("r"))

	require.NoError(t, a.Close())

	left := read(t, b)
	assert.Equal(t, domain.ResponseUserLeft, left.ResponseType)
	assert.Equal(t, map[string]interface{}{"member_id": "A"}, left.Data)
	assert.Eventually(t, func() bool {
		return s.hub.MemberCount("r") == 1 && s.ws.ActiveConnections() == 1
	}, 3*time.Second, 20*time.Millisecond)
}

func TestWSHandler_MalformedFrameKeepsConnection(t *testing.T) {
	s := newStack(t)
	_, err := s.rooms.CreateRoom(context.Background(), &domain.CreateRoomRequest{ID: "r"})
	require.NoError(t, err)

	conn := dial(t, s.serveWS(t))
	write(t, conn, `{"action":`)
	write(t, conn, `{"action":"play","room_id":"r","payload":{"type":"VideoAction","data":{"time":-1}}}`)
	write(t, conn, joinFrame("r", "A"))

	assert.Equal(t, domain.ResponseUserJoined, read(t, conn).ResponseType)
}

func TestWSHandler_CloseAll(t *testing.T) {
	s := newStack(t)
	url := s.serveWS(t)
	conns := []*websocket.Conn{dial(t, url), dial(t, url)}

	require.Eventually(t, func() bool { return s.ws.ActiveConnections() == 2 }, 3*time.Second, 20*time.Millisecond)
	s.ws.CloseAll()

	for _, conn := range conns {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
		_, _, err := conn.ReadMessage()
		assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway), "unexpected error: %v", err)
	}
	assert.Eventually(t, func() bool { return s.ws.ActiveConnections() == 0 }, 3*time.Second, 20*time.Millisecond)
}
