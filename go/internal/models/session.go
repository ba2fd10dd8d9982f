package models

import (
	"time"

	"github.com/google/uuid"
)

// GameKind selects which mini-game logic a session runs.
type GameKind string

const (
	GameKindNumberGuess GameKind = "NUMBER_GUESS"
	GameKindWordGuess   GameKind = "WORD_GUESS"
	GameKindTrivia      GameKind = "TRIVIA"
)

// SessionStatus defines the lifecycle state of a game session.
type SessionStatus string

const (
	SessionStatusWaiting   SessionStatus = "WAITING"
	SessionStatusPlaying   SessionStatus = "PLAYING"
	SessionStatusCompleted SessionStatus = "COMPLETED"
	SessionStatusCancelled SessionStatus = "CANCELLED"
)

// Active reports whether the status is non-terminal. At most one active
// session may exist per room.
func (s SessionStatus) Active() bool {
	return s == SessionStatusWaiting || s == SessionStatusPlaying
}

// SessionSettings holds JSONB configuration for a game session.
type SessionSettings struct {
	TimeLimitSec  int `json:"time_limit_sec"`
	MaxAttempts   int `json:"max_attempts,omitempty"`   // word-guess: allowed wrong letters
	QuestionCount int `json:"question_count,omitempty"` // trivia
}

// GameSession represents a persisted mini-game session. Its ID doubles as the
// deterministic content seed and the broadcast subject suffix.
type GameSession struct {
	ID        uuid.UUID       `json:"id"`
	RoomID    uuid.UUID       `json:"room_id"`
	GameKind  GameKind        `json:"game_kind"`
	Status    SessionStatus   `json:"status"`
	Settings  SessionSettings `json:"settings"`
	StartedAt *time.Time      `json:"started_at,omitempty"`
	EndedAt   *time.Time      `json:"ended_at,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Seed returns the string all clients feed into the content generator.
func (g *GameSession) Seed() string {
	return g.ID.String()
}

// GameResult is one participant's final outcome for one session. At most one
// row exists per (user, session).
type GameResult struct {
	UserID        uuid.UUID `json:"user_id"`
	GameSessionID uuid.UUID `json:"game_session_id"`
	Score         int       `json:"score"`
	Won           bool      `json:"won"`
	Position      int       `json:"position"`
	CreatedAt     time.Time `json:"created_at"`
}
