package engine

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/mcdev12/playroom/go/internal/broadcast"
	"github.com/mcdev12/playroom/go/internal/models"
	"github.com/rs/zerolog/log"
)

// Finalizer persists the authoritative outcome. Satisfied by session.App.
type Finalizer interface {
	FinalizeSession(ctx context.Context, id, callerID uuid.UUID, results []models.GameResult) error
}

// CoordinatorConfig wires the owner-side aggregation.
type CoordinatorConfig struct {
	SessionID uuid.UUID
	OwnerID   uuid.UUID
	Members   []uuid.UUID // the room's full member list, fixed at start
	Topic     broadcast.Topic
	Finalizer Finalizer
}

// Coordinator converges every participant's score-update/player-finished
// broadcasts into one ranked, persisted outcome, exactly once. It runs only
// in the owner's process and is fed purely by the broadcast topic, the
// owner's own publishes included.
//
// If the owner goes away before completion the session stays in playing
// until cancelled; no other client is promoted.
type Coordinator struct {
	sessionID uuid.UUID
	ownerID   uuid.UUID
	members   []uuid.UUID
	topic     broadcast.Topic
	finalizer Finalizer

	mu        sync.Mutex
	required  map[string]struct{} // participants still expected to finish
	scores    map[string]int
	finished  map[string]struct{}
	finalized bool
	unsubs    []func()
}

// NewCoordinator builds the coordinator and subscribes it to the topic.
func NewCoordinator(cfg CoordinatorConfig) (*Coordinator, error) {
	c := &Coordinator{
		sessionID: cfg.SessionID,
		ownerID:   cfg.OwnerID,
		members:   cfg.Members,
		topic:     cfg.Topic,
		finalizer: cfg.Finalizer,
		required:  make(map[string]struct{}, len(cfg.Members)),
		scores:    make(map[string]int),
		finished:  make(map[string]struct{}),
	}
	for _, m := range cfg.Members {
		c.required[m.String()] = struct{}{}
	}

	unsubScore, err := cfg.Topic.Subscribe(broadcast.EventTypeScoreUpdate, c.onScoreUpdate)
	if err != nil {
		return nil, err
	}
	c.unsubs = append(c.unsubs, unsubScore)

	unsubFinished, err := cfg.Topic.Subscribe(broadcast.EventTypePlayerFinished, c.onPlayerFinished)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.unsubs = append(c.unsubs, unsubFinished)
	return c, nil
}

// MarkDisconnected drops a participant from the set the coordinator waits
// on. They still appear in the final results, defaulted to score 0, ranked
// last. Completeness is re-evaluated since this may have been the holdout.
func (c *Coordinator) MarkDisconnected(userID uuid.UUID) {
	c.mu.Lock()
	delete(c.required, userID.String())
	c.mu.Unlock()
	c.maybeFinalize()
}

// Close unsubscribes the coordinator. It does not finalize.
func (c *Coordinator) Close() {
	c.mu.Lock()
	unsubs := c.unsubs
	c.unsubs = nil
	c.mu.Unlock()
	for _, unsub := range unsubs {
		unsub()
	}
}

func (c *Coordinator) onScoreUpdate(ev broadcast.Event) {
	var p broadcast.ScoreUpdatePayload
	if err := ev.Bind(&p); err != nil {
		log.Error().Err(err).Msg("coordinator: bad score-update payload")
		return
	}
	c.mu.Lock()
	if c.finalized {
		c.mu.Unlock()
		return
	}
	c.scores[p.UserID] = p.Score
	c.mu.Unlock()

	// A score can arrive after its finished marker; re-evaluate.
	c.maybeFinalize()
}

func (c *Coordinator) onPlayerFinished(ev broadcast.Event) {
	var p broadcast.PlayerFinishedPayload
	if err := ev.Bind(&p); err != nil {
		log.Error().Err(err).Msg("coordinator: bad player-finished payload")
		return
	}
	c.mu.Lock()
	c.finished[p.UserID] = struct{}{} // duplicate markers collapse here
	c.mu.Unlock()
	c.maybeFinalize()
}

func (c *Coordinator) maybeFinalize() {
	c.mu.Lock()
	if c.finalized || !c.completeLocked() {
		c.mu.Unlock()
		return
	}
	c.finalized = true
	results := c.buildResultsLocked()
	c.mu.Unlock()

	ctx := context.Background()
	if err := c.finalizer.FinalizeSession(ctx, c.sessionID, c.ownerID, results); err != nil {
		// Persistence failure is logged, not retried; the broadcast below
		// still goes out so clients converge on a final view.
		log.Error().Err(err).
			Str("session_id", c.sessionID.String()).
			Msg("failed to persist final results")
	}

	entries := make([]broadcast.ResultEntry, len(results))
	for i, res := range results {
		entries[i] = broadcast.ResultEntry{
			UserID:   res.UserID.String(),
			Score:    res.Score,
			Won:      res.Won,
			Position: res.Position,
		}
	}
	if err := c.topic.Publish(ctx, broadcast.EventTypeGameEnd, broadcast.GameEndPayload{Results: entries}); err != nil {
		log.Error().Err(err).
			Str("session_id", c.sessionID.String()).
			Msg("failed to publish game-end")
	}

	log.Info().
		Str("session_id", c.sessionID.String()).
		Int("participants", len(results)).
		Msg("session results finalized")
}

// completeLocked reports whether every still-required participant has
// finished. Caller holds c.mu.
func (c *Coordinator) completeLocked() bool {
	for u := range c.required {
		if _, ok := c.finished[u]; !ok {
			return false
		}
	}
	return true
}

// buildResultsLocked ranks the room's full member list — not just the users
// who sent scores — so a member who never finished still appears, scored 0,
// at the bottom. Caller holds c.mu.
func (c *Coordinator) buildResultsLocked() []models.GameResult {
	type entry struct {
		id    uuid.UUID
		score int
	}
	list := make([]entry, len(c.members))
	for i, m := range c.members {
		list[i] = entry{id: m, score: c.scores[m.String()]}
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].score > list[j].score
	})

	results := make([]models.GameResult, len(list))
	for i, e := range list {
		results[i] = models.GameResult{
			UserID:        e.id,
			GameSessionID: c.sessionID,
			Score:         e.score,
			// A room where everyone scores 0 has no winner.
			Won:      i == 0 && e.score > 0,
			Position: i + 1,
		}
	}
	return results
}
