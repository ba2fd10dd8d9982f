package broadcast

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType identifies a game broadcast event. The strings are wire format
// shared with clients and must not change.
type EventType string

const (
	EventTypeGameStart      EventType = "game-start"
	EventTypeScoreUpdate    EventType = "score-update"
	EventTypePlayerFinished EventType = "player-finished"
	EventTypeGameEnd        EventType = "game-end"
	EventTypeGameCancelled  EventType = "game-cancelled"
)

// EventTypes lists every game event, in no particular order.
var EventTypes = []EventType{
	EventTypeGameStart,
	EventTypeScoreUpdate,
	EventTypePlayerFinished,
	EventTypeGameEnd,
	EventTypeGameCancelled,
}

// Event is the envelope carried on a per-session topic.
type Event struct {
	ID        string          `json:"id"`
	SessionID string          `json:"sessionId"`
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// Bind unmarshals the event payload into v.
func (e Event) Bind(v any) error {
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("failed to unmarshal %s payload: %w", e.Type, err)
	}
	return nil
}

// NewEvent builds an envelope with a fresh event ID and marshaled payload.
func NewEvent(sessionID string, eventType EventType, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}
	return Event{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}, nil
}

// GameStartPayload carries nothing beyond the session id.
type GameStartPayload struct {
	SessionID string `json:"sessionId"`
}

// ScoreUpdatePayload informs peers of a live or final score. Later updates
// for the same userId override earlier ones; consumers never sum them.
type ScoreUpdatePayload struct {
	UserID string `json:"userId"`
	Score  int    `json:"score"`
}

// PlayerFinishedPayload marks a participant as done. Idempotent on receipt.
type PlayerFinishedPayload struct {
	UserID string `json:"userId"`
}

// ResultEntry is one ranked row of the authoritative final results.
type ResultEntry struct {
	UserID   string `json:"userId"`
	Score    int    `json:"score"`
	Won      bool   `json:"won"`
	Position int    `json:"position"`
}

// GameEndPayload is the authoritative final ranked result list, published
// exactly once by the coordinator.
type GameEndPayload struct {
	Results []ResultEntry `json:"results"`
}

// GameCancelledPayload tells runtimes to discard local state for the session.
type GameCancelledPayload struct {
	SessionID string `json:"sessionId"`
}
