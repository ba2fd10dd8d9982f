package rooms

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mcdev12/playroom/go/internal/models"
)

// ErrRoomNotFound is returned when a room id resolves to nothing.
var ErrRoomNotFound = errors.New("room not found")

// Repository is the read model for rooms and membership. Room CRUD itself is
// owned by the surrounding application; the game engine only needs the
// owner, the member list, and the online-member count.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const getRoomQuery = `
SELECT id, owner_id, name, created_at
FROM rooms
WHERE id = $1`

func (r *Repository) GetRoom(ctx context.Context, id uuid.UUID) (*models.Room, error) {
	var room models.Room
	err := r.db.QueryRowContext(ctx, getRoomQuery, id).
		Scan(&room.ID, &room.OwnerID, &room.Name, &room.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}
	return &room, nil
}

const listMembersQuery = `
SELECT room_id, user_id, online, joined_at
FROM room_members
WHERE room_id = $1
ORDER BY joined_at`

func (r *Repository) ListMembers(ctx context.Context, roomID uuid.UUID) ([]models.RoomMember, error) {
	rows, err := r.db.QueryContext(ctx, listMembersQuery, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to list room members: %w", err)
	}
	defer rows.Close()

	var members []models.RoomMember
	for rows.Next() {
		var m models.RoomMember
		if err := rows.Scan(&m.RoomID, &m.UserID, &m.Online, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan room member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate room members: %w", err)
	}
	return members, nil
}

const onlineMemberCountQuery = `
SELECT COUNT(*)
FROM room_members
WHERE room_id = $1 AND online`

// OnlineMemberCount is the one fact the presence collaborator supplies to
// the engine: how many members are currently connected.
func (r *Repository) OnlineMemberCount(ctx context.Context, roomID uuid.UUID) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, onlineMemberCountQuery, roomID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count online members: %w", err)
	}
	return count, nil
}

const setMemberOnlineQuery = `
UPDATE room_members
SET online = $3
WHERE room_id = $1 AND user_id = $2`

// SetMemberOnline flips a member's connectivity flag. Called by the gateway
// when a client's socket opens or closes.
func (r *Repository) SetMemberOnline(ctx context.Context, roomID, userID uuid.UUID, online bool) error {
	if _, err := r.db.ExecContext(ctx, setMemberOnlineQuery, roomID, userID, online); err != nil {
		return fmt.Errorf("failed to update member online flag: %w", err)
	}
	return nil
}
