package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mcdev12/playroom/go/internal/models"
	"github.com/mcdev12/playroom/go/internal/sqlutil"
	"github.com/sqlc-dev/pqtype"
)

// Repository persists game sessions and results. Start and finalize are
// conditioned on the current status so two concurrent coordinators cannot
// double-apply a transition.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const createSessionQuery = `
INSERT INTO game_sessions (id, room_id, game_kind, status, settings)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, room_id, game_kind, status, settings, started_at, ended_at, created_at`

func (r *Repository) CreateSession(ctx context.Context, req CreateSessionRequest) (*models.GameSession, error) {
	settingsBytes, err := json.Marshal(req.Settings)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session settings: %w", err)
	}
	settings := pqtype.NullRawMessage{RawMessage: settingsBytes, Valid: true}

	row := r.db.QueryRowContext(ctx, createSessionQuery,
		req.ID, req.RoomID, string(req.GameKind), string(req.Status), settings)
	sess, err := scanSession(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return sess, nil
}

const getSessionQuery = `
SELECT id, room_id, game_kind, status, settings, started_at, ended_at, created_at
FROM game_sessions
WHERE id = $1`

func (r *Repository) GetSession(ctx context.Context, id uuid.UUID) (*models.GameSession, error) {
	row := r.db.QueryRowContext(ctx, getSessionQuery, id)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return sess, nil
}

const getActiveSessionQuery = `
SELECT id, room_id, game_kind, status, settings, started_at, ended_at, created_at
FROM game_sessions
WHERE room_id = $1 AND status IN ('WAITING', 'PLAYING')`

// GetActiveSessionForRoom returns the room's non-terminal session, or
// ErrSessionNotFound if there is none.
func (r *Repository) GetActiveSessionForRoom(ctx context.Context, roomID uuid.UUID) (*models.GameSession, error) {
	row := r.db.QueryRowContext(ctx, getActiveSessionQuery, roomID)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active session: %w", err)
	}
	return sess, nil
}

const startSessionQuery = `
UPDATE game_sessions
SET status = 'PLAYING', started_at = NOW()
WHERE id = $1 AND status = 'WAITING'
RETURNING id, room_id, game_kind, status, settings, started_at, ended_at, created_at`

// StartSession transitions waiting → playing. Returns ErrWrongStatus if the
// session is not in waiting (the row update is conditioned on it).
func (r *Repository) StartSession(ctx context.Context, id uuid.UUID) (*models.GameSession, error) {
	row := r.db.QueryRowContext(ctx, startSessionQuery, id)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		// Either missing or not WAITING; look again to tell the two apart.
		if _, getErr := r.GetSession(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, ErrWrongStatus
	}
	if err != nil {
		return nil, fmt.Errorf("failed to start session: %w", err)
	}
	return sess, nil
}

const completeSessionQuery = `
UPDATE game_sessions
SET status = 'COMPLETED', ended_at = NOW()
WHERE id = $1 AND status = 'PLAYING'`

const insertResultQuery = `
INSERT INTO game_results (user_id, game_session_id, score, won, position)
VALUES ($1, $2, $3, $4, $5)`

// FinalizeSession atomically writes all result rows and transitions the
// session to completed. The status condition makes a second finalize a
// no-op: it surfaces as errAlreadyCompleted, which the app maps to success.
func (r *Repository) FinalizeSession(ctx context.Context, id uuid.UUID, results []models.GameResult) error {
	return sqlutil.Run(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, completeSessionQuery, id)
		if err != nil {
			return fmt.Errorf("failed to complete session: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read rows affected: %w", err)
		}
		if affected == 0 {
			sess, err := r.getSessionTx(ctx, tx, id)
			if err != nil {
				return err
			}
			if sess.Status == models.SessionStatusCompleted {
				return errAlreadyCompleted
			}
			return ErrWrongStatus
		}
		for _, result := range results {
			_, err := tx.ExecContext(ctx, insertResultQuery,
				result.UserID, id, result.Score, result.Won, result.Position)
			if err != nil {
				return fmt.Errorf("failed to insert result for user %s: %w", result.UserID, err)
			}
		}
		return nil
	})
}

const deleteSessionQuery = `
DELETE FROM game_sessions
WHERE id = $1`

// DeleteSession removes a session from any status. Result rows cascade.
func (r *Repository) DeleteSession(ctx context.Context, id uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, deleteSessionQuery, id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

const listResultsQuery = `
SELECT user_id, game_session_id, score, won, position, created_at
FROM game_results
WHERE game_session_id = $1
ORDER BY position`

func (r *Repository) ListResults(ctx context.Context, sessionID uuid.UUID) ([]models.GameResult, error) {
	rows, err := r.db.QueryContext(ctx, listResultsQuery, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	defer rows.Close()

	var results []models.GameResult
	for rows.Next() {
		var res models.GameResult
		if err := rows.Scan(&res.UserID, &res.GameSessionID, &res.Score, &res.Won, &res.Position, &res.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate results: %w", err)
	}
	return results, nil
}

func (r *Repository) getSessionTx(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*models.GameSession, error) {
	row := tx.QueryRowContext(ctx, getSessionQuery, id)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return sess, nil
}

func scanSession(row *sql.Row) (*models.GameSession, error) {
	var (
		sess      models.GameSession
		kind      string
		status    string
		settings  pqtype.NullRawMessage
		startedAt sql.NullTime
		endedAt   sql.NullTime
	)
	err := row.Scan(&sess.ID, &sess.RoomID, &kind, &status, &settings, &startedAt, &endedAt, &sess.CreatedAt)
	if err != nil {
		return nil, err
	}
	sess.GameKind = models.GameKind(kind)
	sess.Status = models.SessionStatus(status)
	if settings.Valid {
		if err := json.Unmarshal(settings.RawMessage, &sess.Settings); err != nil {
			return nil, fmt.Errorf("failed to unmarshal session settings: %w", err)
		}
	}
	sess.StartedAt = sqlutil.FromSqlTime(startedAt)
	sess.EndedAt = sqlutil.FromSqlTime(endedAt)
	return &sess, nil
}
