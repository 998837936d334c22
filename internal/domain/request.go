package domain

// CreateRoomRequest is the body of POST /room/create.
type CreateRoomRequest struct {
	ID       string   `json:"id" binding:"required,max=128"`
	Users    []string `json:"users"`
	Platform string   `json:"platform" binding:"max=64"`
}

// CreateLobbyRequest is the body of POST /lobby/create.
type CreateLobbyRequest struct {
	ID       string   `json:"id" binding:"required,max=128"`
	Users    []string `json:"users"`
	Platform string   `json:"platform" binding:"max=64"`
}

// CreateUserRequest is the body of POST /user/create.
type CreateUserRequest struct {
	Name   string `json:"name" binding:"required,max=128"`
	Avatar string `json:"avatar" binding:"max=512"`
}

// LiveRoomResponse describes who is connected to a room right now.
type LiveRoomResponse struct {
	RoomID        string        `json:"room_id"`
	MembersOnline []string      `json:"members_online"`
	Snapshot      *SyncSnapshot `json:"snapshot"`
}
