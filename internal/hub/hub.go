package hub

import (
	"encoding/json"
	"sort"
	"sync"

	"github.com/weiawesome/watch-party/internal/metrics"
	"github.com/weiawesome/watch-party/pkg/log"
)

// Handle is the send side of one connection.
type Handle interface {
	ID() string
	Send(data []byte) error
}

// PublishResult reports the outcome of one broadcast.
type PublishResult struct {
	Delivered int
	Failed    []string // member ids whose send failed
}

type room struct {
	mu      sync.RWMutex
	members map[string]Handle // memberID -> handle
	removed bool
}

// Hub maps rooms to their connected members. The hub lock guards only the
// room map; each room guards its own members, so rooms never contend with
// each other. Lock order is hub then room.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]*room
}

func NewHub() *Hub {
	return &Hub{
		rooms: make(map[string]*room),
	}
}

func (h *Hub) lookup(roomID string) *room {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rooms[roomID]
}

func (h *Hub) getOrCreate(roomID string) *room {
	if r := h.lookup(roomID); r != nil {
		return r
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.rooms[roomID]
	if !ok {
		r = &room{members: make(map[string]Handle)}
		h.rooms[roomID] = r
	}
	return r
}

// Register inserts or replaces the handle of (roomID, memberID) and
// returns the handle it replaced, if any.
func (h *Hub) Register(roomID, memberID string, handle Handle) Handle {
	for {
		r := h.getOrCreate(roomID)

		r.mu.Lock()
		if r.removed {
			// Lost a race with removal of the emptied room; retry on a fresh one.
			r.mu.Unlock()
			continue
		}
		prev := r.members[memberID]
		r.members[memberID] = handle
		count := len(r.members)
		r.mu.Unlock()

		l := log.L()
		l.Debug().
			Str(log.FieldRoomID, roomID).
			Str(log.FieldMemberID, memberID).
			Str(log.FieldConnID, handle.ID()).
			Int("members", count).
			Msg("member registered")
		return prev
	}
}

// Unregister removes (roomID, memberID) regardless of which handle holds it.
func (h *Hub) Unregister(roomID, memberID string) bool {
	return h.remove(roomID, memberID, "")
}

// Release removes (roomID, memberID) only if it is still held by handle.
// A newer connection of the same member is left in place.
func (h *Hub) Release(roomID, memberID string, handle Handle) bool {
	return h.remove(roomID, memberID, handle.ID())
}

func (h *Hub) remove(roomID, memberID, connID string) bool {
	r := h.lookup(roomID)
	if r == nil {
		return false
	}

	r.mu.Lock()
	current, ok := r.members[memberID]
	if ok && connID != "" && current.ID() != connID {
		ok = false
	}
	if ok {
		delete(r.members, memberID)
	}
	empty := len(r.members) == 0
	r.mu.Unlock()

	if empty {
		h.removeIfEmpty(roomID, r)
	}
	if ok {
		l := log.L()
		l.Debug().Str(log.FieldRoomID, roomID).Str(log.FieldMemberID, memberID).Msg("member unregistered")
	}
	return ok
}

func (h *Hub) removeIfEmpty(roomID string, r *room) {
	h.mu.Lock()
	defer h.mu.Unlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.members) == 0 && h.rooms[roomID] == r {
		r.removed = true
		delete(h.rooms, roomID)
	}
}

type recipient struct {
	memberID string
	handle   Handle
}

// Broadcast sends data to every member registered in roomID at call time.
// Handles are collected under the room's read lock and sent to outside it.
// A failed send is logged and counted; it never stops delivery to the rest
// and never unregisters the recipient.
func (h *Hub) Broadcast(roomID string, data []byte) PublishResult {
	var result PublishResult

	r := h.lookup(roomID)
	if r == nil {
		return result
	}

	r.mu.RLock()
	recipients := make([]recipient, 0, len(r.members))
	for memberID, handle := range r.members {
		recipients = append(recipients, recipient{memberID: memberID, handle: handle})
	}
	r.mu.RUnlock()

	for _, rc := range recipients {
		if err := rc.handle.Send(data); err != nil {
			l := log.L()
			l.Warn().Err(err).
				Str(log.FieldRoomID, roomID).
				Str(log.FieldMemberID, rc.memberID).
				Str(log.FieldConnID, rc.handle.ID()).
				Msg("broadcast send failed")
			result.Failed = append(result.Failed, rc.memberID)
			metrics.BroadcastDeliveries.WithLabelValues(metrics.ResultFailed).Inc()
			continue
		}
		result.Delivered++
		metrics.BroadcastDeliveries.WithLabelValues(metrics.ResultDelivered).Inc()
	}
	return result
}

// BroadcastJSON marshals v and broadcasts it to roomID.
func (h *Hub) BroadcastJSON(roomID string, v interface{}) (PublishResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return PublishResult{}, err
	}
	return h.Broadcast(roomID, data), nil
}

func (h *Hub) MemberCount(roomID string) int {
	r := h.lookup(roomID)
	if r == nil {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}

// Members returns the sorted member ids currently registered in roomID.
func (h *Hub) Members(roomID string) []string {
	r := h.lookup(roomID)
	if r == nil {
		return []string{}
	}
	r.mu.RLock()
	members := make([]string, 0, len(r.members))
	for memberID := range r.members {
		members = append(members, memberID)
	}
	r.mu.RUnlock()
	sort.Strings(members)
	return members
}

// Stats returns the number of live rooms and registered members.
func (h *Hub) Stats() (rooms, members int) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, r := range h.rooms {
		r.mu.RLock()
		members += len(r.members)
		r.mu.RUnlock()
	}
	return len(h.rooms), members
}
