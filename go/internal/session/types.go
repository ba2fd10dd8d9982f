package session

import (
	"github.com/google/uuid"
	"github.com/mcdev12/playroom/go/internal/models"
)

// CreateSessionRequest carries everything the repository needs to insert a
// new session row.
type CreateSessionRequest struct {
	ID       uuid.UUID              `json:"id"`
	RoomID   uuid.UUID              `json:"room_id"`
	GameKind models.GameKind        `json:"game_kind"`
	Status   models.SessionStatus   `json:"status"`
	Settings models.SessionSettings `json:"settings"`
}
