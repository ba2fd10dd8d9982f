package models

import (
	"time"

	"github.com/google/uuid"
)

// Room is the owning scope for game sessions. The owner's client is the only
// party trusted to start, cancel, and finalize a session.
type Room struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   uuid.UUID `json:"owner_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// RoomMember is one user's membership in a room, with a connectivity flag
// maintained by the presence collaborator.
type RoomMember struct {
	RoomID   uuid.UUID `json:"room_id"`
	UserID   uuid.UUID `json:"user_id"`
	Online   bool      `json:"online"`
	JoinedAt time.Time `json:"joined_at"`
}
