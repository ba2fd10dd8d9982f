package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mcdev12/playroom/go/internal/broadcast"
	"github.com/mcdev12/playroom/go/internal/models"
	"github.com/rs/zerolog/log"
)

// SessionRepository defines what the app layer needs from persistence.
type SessionRepository interface {
	CreateSession(ctx context.Context, req CreateSessionRequest) (*models.GameSession, error)
	GetSession(ctx context.Context, id uuid.UUID) (*models.GameSession, error)
	GetActiveSessionForRoom(ctx context.Context, roomID uuid.UUID) (*models.GameSession, error)
	StartSession(ctx context.Context, id uuid.UUID) (*models.GameSession, error)
	FinalizeSession(ctx context.Context, id uuid.UUID, results []models.GameResult) error
	DeleteSession(ctx context.Context, id uuid.UUID) error
	ListResults(ctx context.Context, sessionID uuid.UUID) ([]models.GameResult, error)
}

// RoomDirectory defines what the app layer needs from the room collaborator:
// ownership, membership, and the presence fact.
type RoomDirectory interface {
	GetRoom(ctx context.Context, id uuid.UUID) (*models.Room, error)
	ListMembers(ctx context.Context, roomID uuid.UUID) ([]models.RoomMember, error)
	OnlineMemberCount(ctx context.Context, roomID uuid.UUID) (int, error)
}

// App owns the session lifecycle: create/start/finalize/cancel with the
// authorization, capacity, and status guards. Callers receive plain errors;
// nothing here panics across the boundary.
type App struct {
	repo   SessionRepository
	rooms  RoomDirectory
	broker broadcast.Broker
	rules  map[models.GameKind]models.GameRules
}

func NewApp(repo SessionRepository, rooms RoomDirectory, broker broadcast.Broker, rules map[models.GameKind]models.GameRules) *App {
	return &App{
		repo:   repo,
		rooms:  rooms,
		broker: broker,
		rules:  rules,
	}
}

// Rules returns the configured rules for a kind.
func (a *App) Rules(kind models.GameKind) (models.GameRules, error) {
	rules, ok := a.rules[kind]
	if !ok {
		return models.GameRules{}, fmt.Errorf("%w: %s", ErrUnknownGameKind, kind)
	}
	return rules, nil
}

// CreateSession creates a waiting session for the room. Fails if the room
// already has an active session or its member count is outside the kind's
// bounds.
func (a *App) CreateSession(ctx context.Context, roomID uuid.UUID, kind models.GameKind) (*models.GameSession, error) {
	rules, err := a.Rules(kind)
	if err != nil {
		return nil, err
	}

	members, err := a.rooms.ListMembers(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	if len(members) < rules.MinPlayers || len(members) > rules.MaxPlayers {
		return nil, fmt.Errorf("%w: %s needs %d-%d players, room has %d",
			ErrCapacity, kind, rules.MinPlayers, rules.MaxPlayers, len(members))
	}

	if _, err := a.repo.GetActiveSessionForRoom(ctx, roomID); err == nil {
		return nil, ErrActiveSessionExists
	} else if !errors.Is(err, ErrSessionNotFound) {
		return nil, err
	}

	sess, err := a.repo.CreateSession(ctx, CreateSessionRequest{
		ID:       uuid.New(),
		RoomID:   roomID,
		GameKind: kind,
		Status:   models.SessionStatusWaiting,
		Settings: models.SessionSettings{
			TimeLimitSec:  rules.TimeLimitSec,
			MaxAttempts:   rules.MaxAttempts,
			QuestionCount: rules.QuestionCount,
		},
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("session_id", sess.ID.String()).
		Str("room_id", roomID.String()).
		Str("game_kind", string(kind)).
		Msg("created game session")
	return sess, nil
}

// StartSession transitions waiting → playing and publishes game-start.
// Only the room owner may start, and only with enough members online.
func (a *App) StartSession(ctx context.Context, id, callerID uuid.UUID) (*models.GameSession, error) {
	sess, err := a.repo.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := a.requireOwner(ctx, sess.RoomID, callerID); err != nil {
		return nil, err
	}

	rules, err := a.Rules(sess.GameKind)
	if err != nil {
		return nil, err
	}
	online, err := a.rooms.OnlineMemberCount(ctx, sess.RoomID)
	if err != nil {
		return nil, fmt.Errorf("failed to count online members: %w", err)
	}
	if online < rules.MinPlayers {
		return nil, fmt.Errorf("%w: need at least %d online players to start, have %d",
			ErrCapacity, rules.MinPlayers, online)
	}

	started, err := a.repo.StartSession(ctx, id)
	if err != nil {
		return nil, err
	}

	topic := a.broker.Topic(id.String())
	if err := topic.Publish(ctx, broadcast.EventTypeGameStart, broadcast.GameStartPayload{SessionID: id.String()}); err != nil {
		// The transition is persisted; without the signal nobody begins,
		// so surface the failure and leave cancel as the way out.
		log.Error().Err(err).Str("session_id", id.String()).Msg("failed to publish game-start")
		return started, fmt.Errorf("session started but start signal failed: %w", err)
	}

	log.Info().
		Str("session_id", id.String()).
		Int("online", online).
		Msg("game session started")
	return started, nil
}

// FinalizeSession atomically persists the ranked results and completes the
// session. Idempotent: finalizing an already-completed session succeeds
// without writing anything.
func (a *App) FinalizeSession(ctx context.Context, id, callerID uuid.UUID, results []models.GameResult) error {
	sess, err := a.repo.GetSession(ctx, id)
	if err != nil {
		return err
	}
	if err := a.requireOwner(ctx, sess.RoomID, callerID); err != nil {
		return err
	}

	err = a.repo.FinalizeSession(ctx, id, results)
	if errors.Is(err, errAlreadyCompleted) {
		log.Debug().Str("session_id", id.String()).Msg("finalize on completed session; no-op")
		return nil
	}
	if err != nil {
		return err
	}

	log.Info().
		Str("session_id", id.String()).
		Int("results", len(results)).
		Msg("game session finalized")
	return nil
}

// CancelSession deletes the session from any status (including completed, so
// the owner can start fresh) and broadcasts game-cancelled so every runtime
// abandons its local state.
func (a *App) CancelSession(ctx context.Context, id, callerID uuid.UUID) error {
	sess, err := a.repo.GetSession(ctx, id)
	if err != nil {
		return err
	}
	if err := a.requireOwner(ctx, sess.RoomID, callerID); err != nil {
		return err
	}

	if err := a.repo.DeleteSession(ctx, id); err != nil {
		return err
	}

	topic := a.broker.Topic(id.String())
	if err := topic.Publish(ctx, broadcast.EventTypeGameCancelled, broadcast.GameCancelledPayload{SessionID: id.String()}); err != nil {
		log.Error().Err(err).Str("session_id", id.String()).Msg("failed to publish game-cancelled")
	}

	log.Info().Str("session_id", id.String()).Msg("game session cancelled")
	return nil
}

// GetSession retrieves a session by id.
func (a *App) GetSession(ctx context.Context, id uuid.UUID) (*models.GameSession, error) {
	return a.repo.GetSession(ctx, id)
}

// ListResults returns the persisted ranked results for a session.
func (a *App) ListResults(ctx context.Context, sessionID uuid.UUID) ([]models.GameResult, error) {
	return a.repo.ListResults(ctx, sessionID)
}

func (a *App) requireOwner(ctx context.Context, roomID, callerID uuid.UUID) error {
	room, err := a.rooms.GetRoom(ctx, roomID)
	if err != nil {
		return fmt.Errorf("failed to get room: %w", err)
	}
	if room.OwnerID != callerID {
		return ErrNotOwner
	}
	return nil
}
