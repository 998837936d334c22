package handler

import (
	"context"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/weiawesome/watch-party/internal/config"
	"github.com/weiawesome/watch-party/internal/hub"
	"github.com/weiawesome/watch-party/internal/metrics"
	"github.com/weiawesome/watch-party/pkg/log"
)

// WSHandler upgrades socket requests and runs one read loop per connection.
type WSHandler struct {
	router   *EventRouter
	wsCfg    config.WebSocketConfig
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[string]*hub.Client
}

func NewWSHandler(router *EventRouter, wsCfg config.WebSocketConfig) *WSHandler {
	return &WSHandler{
		router: router,
		wsCfg:  wsCfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		clients: make(map[string]*hub.Client),
	}
}

// HandleWebSocket serves one connection until its read loop ends, then
// evicts its registration and closes it.
func (h *WSHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	l := log.Ctx(r.Context())

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already answered with an HTTP error.
		l.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := hub.NewClient(uuid.New().String(), conn, h.wsCfg)
	ctx := log.WithStr(r.Context(), log.FieldConnID, client.ID())
	l = log.Ctx(ctx)

	h.track(client)
	metrics.ConnectionsActive.Inc()
	l.Info().Msg("connection opened")

	defer func() {
		h.router.Disconnect(ctx, client)
		client.Close()
		h.untrack(client)
		metrics.ConnectionsActive.Dec()
		l.Info().Msg("connection closed")
	}()

	go client.WritePump()
	client.ReadPump(ctx, func(ctx context.Context, frame []byte) {
		h.router.Route(ctx, client, frame)
	})
}

func (h *WSHandler) track(c *hub.Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.ID()] = c
}

func (h *WSHandler) untrack(c *hub.Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c.ID())
}

// CloseAll sends a close frame to every open connection. Their read loops
// then end and run the usual eviction.
func (h *WSHandler) CloseAll() {
	h.mu.Lock()
	clients := make([]*hub.Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.Close()
	}
}

func (h *WSHandler) ActiveConnections() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// RegisterRoutes serves the socket on every path; clients connect to
// ws://host:port/ and older ones to /ws.
func (h *WSHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/", h.HandleWebSocket)
}
