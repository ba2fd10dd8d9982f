package engine

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/playroom/go/internal/broadcast"
	"github.com/mcdev12/playroom/go/internal/models"
	"github.com/rs/zerolog/log"
)

// Phase is a runtime's local state machine position.
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseRunning  Phase = "running"
	PhaseFinished Phase = "finished"
)

// ErrNotRunning is returned for player actions outside the running phase.
var ErrNotRunning = errors.New("game is not running")

// Snapshot is the read-only view the rendering layer observes.
type Snapshot struct {
	SessionID     string                  `json:"sessionId"`
	UserID        string                  `json:"userId"`
	Phase         Phase                   `json:"phase"`
	TimeRemaining int                     `json:"timeRemaining"`
	LocalScore    int                     `json:"localScore"`
	PeerScores    map[string]int          `json:"peerScores"`
	Finished      []string                `json:"finished"`
	View          GameView                `json:"view"`
	Feedback      string                  `json:"feedback,omitempty"`
	FinalResults  []broadcast.ResultEntry `json:"finalResults,omitempty"`
}

// RuntimeConfig wires one client's runtime.
type RuntimeConfig struct {
	SessionID uuid.UUID
	UserID    uuid.UUID
	GameKind  models.GameKind
	Rules     models.GameRules
	Topic     broadcast.Topic
	Clock     clockwork.Clock
	OnChange  func(Snapshot) // called after every observable state change
}

// Runtime is the per-client state machine: idle → running → finished. It
// enters running only on receipt of game-start (never on local state alone),
// and every state change — the local player's own included — arrives through
// the broadcast topic, keeping one code path for local and remote updates.
type Runtime struct {
	sessionID uuid.UUID
	userID    uuid.UUID
	rules     models.GameRules
	topic     broadcast.Topic
	clock     clockwork.Clock
	onChange  func(Snapshot)

	mu            sync.Mutex
	game          Game
	phase         Phase
	timeRemaining int
	localScore    int
	lastFeedback  string
	peerScores    map[string]int
	finished      map[string]struct{}
	finalResults  []broadcast.ResultEntry
	alive         bool
	stopTicker    func()
	unsubs        []func()
}

// NewRuntime builds a runtime and subscribes it to the session topic.
func NewRuntime(cfg RuntimeConfig) (*Runtime, error) {
	game, err := NewGame(cfg.GameKind, cfg.Rules)
	if err != nil {
		return nil, err
	}
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	r := &Runtime{
		sessionID:  cfg.SessionID,
		userID:     cfg.UserID,
		rules:      cfg.Rules,
		topic:      cfg.Topic,
		clock:      clock,
		onChange:   cfg.OnChange,
		game:       game,
		phase:      PhaseIdle,
		peerScores: make(map[string]int),
		finished:   make(map[string]struct{}),
		alive:      true,
	}

	subs := []struct {
		t broadcast.EventType
		h broadcast.Handler
	}{
		{broadcast.EventTypeGameStart, r.onGameStart},
		{broadcast.EventTypeScoreUpdate, r.onScoreUpdate},
		{broadcast.EventTypePlayerFinished, r.onPlayerFinished},
		{broadcast.EventTypeGameEnd, r.onGameEnd},
		{broadcast.EventTypeGameCancelled, r.onGameCancelled},
	}
	for _, s := range subs {
		unsub, err := cfg.Topic.Subscribe(s.t, s.h)
		if err != nil {
			r.Close()
			return nil, err
		}
		r.unsubs = append(r.unsubs, unsub)
	}
	return r, nil
}

// Submit applies one player action (a guess or an answer).
func (r *Runtime) Submit(input string) (SubmitResult, error) {
	r.mu.Lock()
	if !r.alive || r.phase != PhaseRunning {
		r.mu.Unlock()
		return SubmitResult{}, ErrNotRunning
	}
	res, err := r.game.Submit(input)
	if err != nil {
		r.mu.Unlock()
		return SubmitResult{}, err
	}
	r.lastFeedback = res.Feedback
	score := r.game.Score()
	finishedNow := false
	if res.Done {
		r.finishLocked()
		finishedNow = true
		score = r.localScore
	}
	r.mu.Unlock()

	if finishedNow {
		r.publishFinish(score)
	} else if res.LiveScore {
		r.publishScore(score)
	}
	r.notify()
	return res, nil
}

// Snapshot returns a copy of the current observable state.
func (r *Runtime) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	peers := make(map[string]int, len(r.peerScores))
	for k, v := range r.peerScores {
		peers[k] = v
	}
	finished := make([]string, 0, len(r.finished))
	for k := range r.finished {
		finished = append(finished, k)
	}
	sort.Strings(finished)

	return Snapshot{
		SessionID:     r.sessionID.String(),
		UserID:        r.userID.String(),
		Phase:         r.phase,
		TimeRemaining: r.timeRemaining,
		LocalScore:    r.localScore,
		PeerScores:    peers,
		Finished:      finished,
		View:          r.game.View(),
		Feedback:      r.lastFeedback,
		FinalResults:  r.finalResults,
	}
}

// Close tears the runtime down. A countdown tick firing afterwards is a
// guaranteed no-op.
func (r *Runtime) Close() {
	r.mu.Lock()
	if !r.alive {
		r.mu.Unlock()
		return
	}
	r.alive = false
	r.stopCountdownLocked()
	unsubs := r.unsubs
	r.unsubs = nil
	r.mu.Unlock()

	for _, unsub := range unsubs {
		unsub()
	}
}

func (r *Runtime) onGameStart(ev broadcast.Event) {
	r.mu.Lock()
	if !r.alive || r.phase != PhaseIdle {
		// Duplicate start signals are absorbed.
		r.mu.Unlock()
		return
	}
	r.game.Begin(r.sessionID.String())
	r.phase = PhaseRunning
	r.timeRemaining = r.rules.TimeLimitSec
	r.startCountdownLocked()
	r.mu.Unlock()

	log.Debug().
		Str("session_id", r.sessionID.String()).
		Str("user_id", r.userID.String()).
		Msg("runtime entered running")
	r.notify()
}

func (r *Runtime) onScoreUpdate(ev broadcast.Event) {
	var p broadcast.ScoreUpdatePayload
	if err := ev.Bind(&p); err != nil {
		log.Error().Err(err).Msg("bad score-update payload")
		return
	}
	r.mu.Lock()
	if !r.alive {
		r.mu.Unlock()
		return
	}
	// Later updates override earlier ones; never summed.
	r.peerScores[p.UserID] = p.Score
	r.mu.Unlock()
	r.notify()
}

func (r *Runtime) onPlayerFinished(ev broadcast.Event) {
	var p broadcast.PlayerFinishedPayload
	if err := ev.Bind(&p); err != nil {
		log.Error().Err(err).Msg("bad player-finished payload")
		return
	}
	r.mu.Lock()
	if !r.alive {
		r.mu.Unlock()
		return
	}
	r.finished[p.UserID] = struct{}{}
	r.mu.Unlock()
	r.notify()
}

func (r *Runtime) onGameEnd(ev broadcast.Event) {
	var p broadcast.GameEndPayload
	if err := ev.Bind(&p); err != nil {
		log.Error().Err(err).Msg("bad game-end payload")
		return
	}
	r.mu.Lock()
	if !r.alive {
		r.mu.Unlock()
		return
	}
	r.finalResults = p.Results
	if r.phase != PhaseFinished {
		// The broadcast beat local completion; converge to it.
		r.phase = PhaseFinished
		r.localScore = r.game.Score()
		r.stopCountdownLocked()
	}
	r.mu.Unlock()
	r.notify()
}

func (r *Runtime) onGameCancelled(ev broadcast.Event) {
	var p broadcast.GameCancelledPayload
	if err := ev.Bind(&p); err != nil {
		log.Error().Err(err).Msg("bad game-cancelled payload")
		return
	}
	if p.SessionID != r.sessionID.String() {
		return
	}
	r.mu.Lock()
	if !r.alive {
		r.mu.Unlock()
		return
	}
	r.phase = PhaseIdle
	r.timeRemaining = 0
	r.localScore = 0
	r.lastFeedback = ""
	r.peerScores = make(map[string]int)
	r.finished = make(map[string]struct{})
	r.finalResults = nil
	r.stopCountdownLocked()
	game, err := NewGame(r.game.Kind(), r.rules)
	if err == nil {
		r.game = game
	}
	r.mu.Unlock()

	log.Info().
		Str("session_id", r.sessionID.String()).
		Str("user_id", r.userID.String()).
		Msg("runtime discarded cancelled game")
	r.notify()
}

// tick advances the countdown by one second. Reaching zero finalizes with
// whatever score is accumulated; a timeout is not a failure.
func (r *Runtime) tick() {
	r.mu.Lock()
	if !r.alive || r.phase != PhaseRunning {
		r.mu.Unlock()
		return
	}
	r.timeRemaining--
	finishedNow := false
	var score int
	if r.timeRemaining <= 0 {
		r.timeRemaining = 0
		r.finishLocked()
		finishedNow = true
		score = r.localScore
	}
	r.mu.Unlock()

	if finishedNow {
		r.publishFinish(score)
	}
	r.notify()
}

// finishLocked moves to finished and fixes the local score. Caller holds r.mu.
func (r *Runtime) finishLocked() {
	r.phase = PhaseFinished
	r.localScore = r.game.Score()
	r.stopCountdownLocked()
}

func (r *Runtime) startCountdownLocked() {
	ticker := r.clock.NewTicker(time.Second)
	done := make(chan struct{})
	r.stopTicker = func() {
		ticker.Stop()
		close(done)
	}
	go func() {
		for {
			select {
			case <-done:
				return
			case <-ticker.Chan():
				r.tick()
			}
		}
	}()
}

func (r *Runtime) stopCountdownLocked() {
	if r.stopTicker != nil {
		r.stopTicker()
		r.stopTicker = nil
	}
}

// publishFinish announces the final score, then the finished marker. The
// order matters: the score should be visible before the marker, though
// consumers tolerate the reverse.
func (r *Runtime) publishFinish(score int) {
	r.publishScore(score)
	ctx := context.Background()
	err := r.topic.Publish(ctx, broadcast.EventTypePlayerFinished,
		broadcast.PlayerFinishedPayload{UserID: r.userID.String()})
	if err != nil {
		log.Error().Err(err).
			Str("session_id", r.sessionID.String()).
			Str("user_id", r.userID.String()).
			Msg("failed to publish player-finished")
	}
}

func (r *Runtime) publishScore(score int) {
	err := r.topic.Publish(context.Background(), broadcast.EventTypeScoreUpdate,
		broadcast.ScoreUpdatePayload{UserID: r.userID.String(), Score: score})
	if err != nil {
		log.Error().Err(err).
			Str("session_id", r.sessionID.String()).
			Str("user_id", r.userID.String()).
			Msg("failed to publish score-update")
	}
}

func (r *Runtime) notify() {
	if r.onChange != nil {
		r.onChange(r.Snapshot())
	}
}
