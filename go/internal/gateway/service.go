package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/mcdev12/playroom/go/internal/broadcast"
	"github.com/mcdev12/playroom/go/internal/engine"
	"github.com/mcdev12/playroom/go/internal/models"
	"github.com/mcdev12/playroom/go/internal/rooms"
	"github.com/mcdev12/playroom/go/internal/session"
	"github.com/rs/zerolog/log"
)

// ClientMessage is the envelope clients send over the socket.
type ClientMessage struct {
	Action string `json:"action"` // "start", "submit", "cancel"
	Input  string `json:"input,omitempty"`
}

// ServerMessage is the envelope pushed to clients.
type ServerMessage struct {
	Type     string           `json:"type"` // "snapshot", "error"
	Snapshot *engine.Snapshot `json:"snapshot,omitempty"`
	Error    string           `json:"error,omitempty"`
}

// Service hosts one game runtime per connected player and, while the room
// owner is connected, the session's result coordinator. Runtimes and
// coordinators talk to each other only through the broadcast topic; the
// service just parks them next to the sockets.
type Service struct {
	sessions *session.App
	rooms    *rooms.Repository
	broker   broadcast.Broker
	cm       *ConnectionManager

	mu           sync.Mutex
	runtimes     map[*Connection]*engine.Runtime
	coordinators map[uuid.UUID]*engine.Coordinator
}

// NewService wires the service and its connection manager.
func NewService(sessions *session.App, roomRepo *rooms.Repository, broker broadcast.Broker, config ConnectionConfig) *Service {
	s := &Service{
		sessions:     sessions,
		rooms:        roomRepo,
		broker:       broker,
		runtimes:     make(map[*Connection]*engine.Runtime),
		coordinators: make(map[uuid.UUID]*engine.Coordinator),
	}
	s.cm = NewConnectionManager(config, s.handleClientMessage, s.handleDisconnect)
	return s
}

// ConnectionManager exposes the underlying manager for stats endpoints.
func (s *Service) ConnectionManager() *ConnectionManager {
	return s.cm
}

// Connect attaches a player to a session: marks them online, upgrades the
// socket, builds their runtime, and — for the room owner — the coordinator.
func (s *Service) Connect(w http.ResponseWriter, r *http.Request, userID, sessionID uuid.UUID) error {
	ctx := r.Context()

	sess, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	rules, err := s.sessions.Rules(sess.GameKind)
	if err != nil {
		return err
	}
	room, err := s.rooms.GetRoom(ctx, sess.RoomID)
	if err != nil {
		return err
	}
	if err := s.rooms.SetMemberOnline(ctx, sess.RoomID, userID, true); err != nil {
		return err
	}

	conn, err := s.cm.UpgradeConnection(w, r, userID, sessionID)
	if err != nil {
		return err
	}

	runtime, err := engine.NewRuntime(engine.RuntimeConfig{
		SessionID: sessionID,
		UserID:    userID,
		GameKind:  sess.GameKind,
		Rules:     rules,
		Topic:     s.broker.Topic(sessionID.String()),
		OnChange: func(snap engine.Snapshot) {
			conn.Push(ServerMessage{Type: "snapshot", Snapshot: &snap})
		},
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.runtimes[conn] = runtime
	s.mu.Unlock()

	if room.OwnerID == userID {
		if err := s.ensureCoordinator(ctx, sess, room); err != nil {
			log.Error().Err(err).
				Str("session_id", sessionID.String()).
				Msg("failed to start result coordinator")
		}
	}

	// Initial snapshot so the client renders without waiting for an event.
	conn.Push(ServerMessage{Type: "snapshot", Snapshot: ptr(runtime.Snapshot())})
	return nil
}

func ptr(s engine.Snapshot) *engine.Snapshot { return &s }

// ensureCoordinator starts the session's coordinator if it is not already
// running. Only called for the room owner; re-connects reuse the existing one.
func (s *Service) ensureCoordinator(ctx context.Context, sess *models.GameSession, room *models.Room) error {
	s.mu.Lock()
	if _, ok := s.coordinators[sess.ID]; ok {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	members, err := s.rooms.ListMembers(ctx, sess.RoomID)
	if err != nil {
		return err
	}
	ids := make([]uuid.UUID, len(members))
	for i, m := range members {
		ids[i] = m.UserID
	}

	coord, err := engine.NewCoordinator(engine.CoordinatorConfig{
		SessionID: sess.ID,
		OwnerID:   room.OwnerID,
		Members:   ids,
		Topic:     s.broker.Topic(sess.ID.String()),
		Finalizer: s.sessions,
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	if _, ok := s.coordinators[sess.ID]; ok {
		// Lost the race to another owner connection.
		s.mu.Unlock()
		coord.Close()
		return nil
	}
	s.coordinators[sess.ID] = coord
	s.mu.Unlock()

	log.Info().
		Str("session_id", sess.ID.String()).
		Int("members", len(ids)).
		Msg("result coordinator started")
	return nil
}

func (s *Service) handleClientMessage(conn *Connection, data []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		conn.Push(ServerMessage{Type: "error", Error: "malformed message"})
		return
	}

	ctx := context.Background()
	switch msg.Action {
	case "start":
		if _, err := s.sessions.StartSession(ctx, conn.SessionID, conn.UserID); err != nil {
			conn.Push(ServerMessage{Type: "error", Error: err.Error()})
		}

	case "cancel":
		if err := s.sessions.CancelSession(ctx, conn.SessionID, conn.UserID); err != nil {
			conn.Push(ServerMessage{Type: "error", Error: err.Error()})
			return
		}
		s.mu.Lock()
		coord, ok := s.coordinators[conn.SessionID]
		delete(s.coordinators, conn.SessionID)
		s.mu.Unlock()
		if ok {
			coord.Close()
		}

	case "submit":
		s.mu.Lock()
		runtime, ok := s.runtimes[conn]
		s.mu.Unlock()
		if !ok {
			conn.Push(ServerMessage{Type: "error", Error: "no active game"})
			return
		}
		if _, err := runtime.Submit(msg.Input); err != nil {
			conn.Push(ServerMessage{Type: "error", Error: err.Error()})
		}
		// State changes reach the client via the runtime's OnChange.

	default:
		conn.Push(ServerMessage{Type: "error", Error: "unknown action: " + msg.Action})
	}
}

// handleDisconnect tears down the player's runtime and marks them offline.
// For a regular player the coordinator stops waiting on them; for the owner
// the coordinator goes away with them and the session stays in playing until
// someone cancels it.
func (s *Service) handleDisconnect(conn *Connection) {
	s.mu.Lock()
	runtime, ok := s.runtimes[conn]
	delete(s.runtimes, conn)
	coord := s.coordinators[conn.SessionID]
	s.mu.Unlock()

	if ok {
		runtime.Close()
	}

	ctx := context.Background()
	sess, err := s.sessions.GetSession(ctx, conn.SessionID)
	if err != nil {
		log.Debug().Err(err).
			Str("session_id", conn.SessionID.String()).
			Msg("session gone at disconnect")
		return
	}
	if err := s.rooms.SetMemberOnline(ctx, sess.RoomID, conn.UserID, false); err != nil {
		log.Error().Err(err).
			Str("user_id", conn.UserID.String()).
			Msg("failed to mark member offline")
	}

	if coord == nil {
		return
	}
	room, err := s.rooms.GetRoom(ctx, sess.RoomID)
	if err != nil {
		log.Error().Err(err).Str("room_id", sess.RoomID.String()).Msg("failed to get room at disconnect")
		return
	}
	if room.OwnerID == conn.UserID {
		s.mu.Lock()
		delete(s.coordinators, conn.SessionID)
		s.mu.Unlock()
		coord.Close()
		log.Warn().
			Str("session_id", conn.SessionID.String()).
			Msg("owner disconnected, coordinator stopped")
		return
	}
	coord.MarkDisconnected(conn.UserID)
}
