package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/weiawesome/watch-party/internal/audit"
	"github.com/weiawesome/watch-party/internal/domain"
	"github.com/weiawesome/watch-party/internal/hub"
	"github.com/weiawesome/watch-party/internal/metrics"
	"github.com/weiawesome/watch-party/internal/service"
	"github.com/weiawesome/watch-party/internal/syncstore"
	"github.com/weiawesome/watch-party/pkg/log"
	"github.com/weiawesome/watch-party/pkg/response"
)

// HTTPHandler serves the directory API and the operational endpoints.
type HTTPHandler struct {
	rooms service.RoomService
	users service.UserService
	hub   *hub.Hub
	sync  syncstore.Store
}

func NewHTTPHandler(rooms service.RoomService, users service.UserService, h *hub.Hub, sync syncstore.Store) *HTTPHandler {
	return &HTTPHandler{
		rooms: rooms,
		users: users,
		hub:   h,
		sync:  sync,
	}
}

// RegisterRoutes registers all routes.
func (h *HTTPHandler) RegisterRoutes(r *gin.Engine) {
	room := r.Group("/room")
	{
		room.POST("/create", h.CreateRoom)
		room.GET("/:id", h.GetRoom)
		room.GET("/:id/live", h.GetLiveRoom)
	}

	lobby := r.Group("/lobby")
	{
		lobby.POST("/create", h.CreateLobby)
		lobby.GET("/:id", h.GetLobby)
	}

	user := r.Group("/user")
	{
		user.POST("/create", h.CreateUser)
		user.GET("/:id", h.GetUser)
	}

	r.GET("/health", h.Health)
	r.GET("/stats", h.Stats)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
}

// CreateRoom creates a new room.
func (h *HTTPHandler) CreateRoom(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	var req domain.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("failed to bind create room request")
		response.BadRequest(c, err.Error())
		return
	}

	room, err := h.rooms.CreateRoom(ctx, &req)
	if err != nil {
		if errors.Is(err, service.ErrRoomExists) {
			response.Conflict(c, "room already exists")
			return
		}
		l.Error().Err(err).Str(log.FieldRoomID, req.ID).Msg("failed to create room")
		response.InternalError(c, "failed to create room")
		return
	}

	audit.LogWithDetail(ctx, audit.ActionCreateRoom, "", room.RoomID, "room created")
	response.Success(c, room)
}

// GetRoom retrieves a room with its members and message log.
func (h *HTTPHandler) GetRoom(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	roomID := c.Param("id")

	room, err := h.rooms.GetRoom(ctx, roomID)
	if err != nil {
		if errors.Is(err, service.ErrRoomNotFound) {
			response.NotFound(c, "room not found")
			return
		}
		l.Error().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to get room")
		response.InternalError(c, "failed to get room")
		return
	}

	response.Success(c, room)
}

// GetLiveRoom reports the connected members and current playback snapshot.
func (h *HTTPHandler) GetLiveRoom(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	roomID := c.Param("id")

	snapshot, err := h.sync.Get(ctx, roomID)
	if err != nil {
		l.Error().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to read playback snapshot")
		response.InternalError(c, "failed to read playback state")
		return
	}

	response.Success(c, domain.LiveRoomResponse{
		RoomID:        roomID,
		MembersOnline: h.hub.Members(roomID),
		Snapshot:      snapshot,
	})
}

func (h *HTTPHandler) CreateLobby(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	var req domain.CreateLobbyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("failed to bind create lobby request")
		response.BadRequest(c, err.Error())
		return
	}

	lobby, err := h.rooms.CreateLobby(ctx, &req)
	if err != nil {
		if errors.Is(err, service.ErrLobbyExists) {
			response.Conflict(c, "lobby already exists")
			return
		}
		l.Error().Err(err).Str("lobby_id", req.ID).Msg("failed to create lobby")
		response.InternalError(c, "failed to create lobby")
		return
	}

	audit.LogWithDetail(ctx, audit.ActionCreateLobby, "", lobby.ID, "lobby created")
	response.Success(c, lobby)
}

func (h *HTTPHandler) GetLobby(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	lobbyID := c.Param("id")

	lobby, err := h.rooms.GetLobby(ctx, lobbyID)
	if err != nil {
		if errors.Is(err, service.ErrLobbyNotFound) {
			response.NotFound(c, "lobby not found")
			return
		}
		l.Error().Err(err).Str("lobby_id", lobbyID).Msg("failed to get lobby")
		response.InternalError(c, "failed to get lobby")
		return
	}

	response.Success(c, lobby)
}

// CreateUser registers a user under a generated username.
func (h *HTTPHandler) CreateUser(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	var req domain.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("failed to bind create user request")
		response.BadRequest(c, err.Error())
		return
	}

	user, err := h.users.CreateUser(ctx, &req)
	if err != nil {
		l.Error().Err(err).Msg("failed to create user")
		response.InternalError(c, "failed to create user")
		return
	}

	audit.LogWithDetail(ctx, audit.ActionCreateUser, user.ID, user.Username, "user created")
	response.Success(c, user)
}

func (h *HTTPHandler) GetUser(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	userID := c.Param("id")

	user, err := h.users.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			response.NotFound(c, "user not found")
			return
		}
		l.Error().Err(err).Str(log.FieldMemberID, userID).Msg("failed to get user")
		response.InternalError(c, "failed to get user")
		return
	}

	response.Success(c, user)
}

func (h *HTTPHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Stats reports live rooms and registered clients.
func (h *HTTPHandler) Stats(c *gin.Context) {
	rooms, clients := h.hub.Stats()
	response.Success(c, gin.H{"rooms": rooms, "clients": clients})
}
