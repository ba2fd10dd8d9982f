package engine

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/playroom/go/internal/broadcast"
	"github.com/mcdev12/playroom/go/internal/content"
	"github.com/mcdev12/playroom/go/internal/models"
)

func testRuntime(t *testing.T, broker *broadcast.MemoryBroker, sessionID uuid.UUID, kind models.GameKind, rules models.GameRules) *Runtime {
	t.Helper()
	r, err := NewRuntime(RuntimeConfig{
		SessionID: sessionID,
		UserID:    uuid.New(),
		GameKind:  kind,
		Rules:     rules,
		Topic:     broker.Topic(sessionID.String()),
		Clock:     clockwork.NewFakeClock(), // ticks driven directly in tests
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(r.Close)
	return r
}

func publishStart(t *testing.T, broker *broadcast.MemoryBroker, sessionID uuid.UUID) {
	t.Helper()
	topic := broker.Topic(sessionID.String())
	err := topic.Publish(context.Background(), broadcast.EventTypeGameStart,
		broadcast.GameStartPayload{SessionID: sessionID.String()})
	if err != nil {
		t.Fatal(err)
	}
}

func numberRules() models.GameRules {
	r, _ := models.DefaultRules(models.GameKindNumberGuess)
	return r
}

func TestRuntime_IdleUntilGameStart(t *testing.T) {
	broker := broadcast.NewMemoryBroker()
	sessionID := uuid.New()
	r := testRuntime(t, broker, sessionID, models.GameKindNumberGuess, numberRules())

	if got := r.Snapshot().Phase; got != PhaseIdle {
		t.Fatalf("phase = %s, want idle", got)
	}
	if _, err := r.Submit("50"); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("Submit before start: err = %v, want ErrNotRunning", err)
	}

	publishStart(t, broker, sessionID)
	snap := r.Snapshot()
	if snap.Phase != PhaseRunning {
		t.Fatalf("phase = %s, want running after game-start", snap.Phase)
	}
	if snap.TimeRemaining != numberRules().TimeLimitSec {
		t.Errorf("timeRemaining = %d, want %d", snap.TimeRemaining, numberRules().TimeLimitSec)
	}
}

func TestRuntime_DuplicateGameStartAbsorbed(t *testing.T) {
	broker := broadcast.NewMemoryBroker()
	sessionID := uuid.New()
	rules := numberRules()
	rules.TimeLimitSec = 10
	r := testRuntime(t, broker, sessionID, models.GameKindNumberGuess, rules)

	publishStart(t, broker, sessionID)
	r.tick()
	publishStart(t, broker, sessionID) // duplicate must not reset the countdown
	if got := r.Snapshot().TimeRemaining; got != 9 {
		t.Errorf("timeRemaining = %d, want 9", got)
	}
}

func TestRuntime_TimeoutFinalizesWithPartialScore(t *testing.T) {
	broker := broadcast.NewMemoryBroker()
	sessionID := uuid.New()
	rules := numberRules()
	rules.TimeLimitSec = 2
	r := testRuntime(t, broker, sessionID, models.GameKindNumberGuess, rules)

	var order []broadcast.EventType
	observer := broker.Topic(sessionID.String())
	for _, et := range []broadcast.EventType{broadcast.EventTypeScoreUpdate, broadcast.EventTypePlayerFinished} {
		et := et
		if _, err := observer.Subscribe(et, func(broadcast.Event) { order = append(order, et) }); err != nil {
			t.Fatal(err)
		}
	}

	publishStart(t, broker, sessionID)
	r.tick()
	r.tick()

	snap := r.Snapshot()
	if snap.Phase != PhaseFinished {
		t.Fatalf("phase = %s, want finished after timeout", snap.Phase)
	}
	if snap.LocalScore != 0 {
		t.Errorf("localScore = %d, want 0 (timed out without guessing)", snap.LocalScore)
	}
	want := []broadcast.EventType{broadcast.EventTypeScoreUpdate, broadcast.EventTypePlayerFinished}
	if len(order) != 2 || order[0] != want[0] || order[1] != want[1] {
		t.Errorf("publish order = %v, want score-update then player-finished", order)
	}

	// A dangling tick after finish must be a no-op.
	r.tick()
	if got := r.Snapshot().Phase; got != PhaseFinished {
		t.Errorf("phase = %s after stray tick, want finished", got)
	}
}

func TestRuntime_WinningGuessFinishesEarly(t *testing.T) {
	broker := broadcast.NewMemoryBroker()
	sessionID := uuid.New()
	r := testRuntime(t, broker, sessionID, models.GameKindNumberGuess, numberRules())

	publishStart(t, broker, sessionID)
	target := content.TargetNumber(sessionID.String(), 1, 100)
	res, err := r.Submit(strconv.Itoa(target))
	if err != nil {
		t.Fatal(err)
	}
	if !res.Done || !res.Won {
		t.Fatalf("res = %+v, want done and won", res)
	}

	snap := r.Snapshot()
	if snap.Phase != PhaseFinished {
		t.Fatalf("phase = %s, want finished", snap.Phase)
	}
	if snap.LocalScore != 90 {
		t.Errorf("localScore = %d, want 90 for first-attempt guess", snap.LocalScore)
	}
	// Self-delivery is the canonical update path: the runtime's own score
	// entry comes back through the broadcast and must match localScore.
	if got := snap.PeerScores[snap.UserID]; got != snap.LocalScore {
		t.Errorf("own peerScores entry = %d, want localScore %d", got, snap.LocalScore)
	}
	if len(snap.Finished) != 1 || snap.Finished[0] != snap.UserID {
		t.Errorf("finished = %v, want own user id", snap.Finished)
	}
}

func TestRuntime_PeerScoreOverridesNotSums(t *testing.T) {
	broker := broadcast.NewMemoryBroker()
	sessionID := uuid.New()
	r := testRuntime(t, broker, sessionID, models.GameKindTrivia, func() models.GameRules {
		rules, _ := models.DefaultRules(models.GameKindTrivia)
		return rules
	}())

	publishStart(t, broker, sessionID)
	topic := broker.Topic(sessionID.String())
	for _, score := range []int{1, 2, 3} {
		err := topic.Publish(context.Background(), broadcast.EventTypeScoreUpdate,
			broadcast.ScoreUpdatePayload{UserID: "peer-1", Score: score})
		if err != nil {
			t.Fatal(err)
		}
	}
	if got := r.Snapshot().PeerScores["peer-1"]; got != 3 {
		t.Errorf("peer score = %d, want 3 (latest wins, never summed)", got)
	}
}

func TestRuntime_GameEndBeatsLocalCompletion(t *testing.T) {
	broker := broadcast.NewMemoryBroker()
	sessionID := uuid.New()
	r := testRuntime(t, broker, sessionID, models.GameKindNumberGuess, numberRules())

	publishStart(t, broker, sessionID)
	results := []broadcast.ResultEntry{{UserID: "peer-1", Score: 70, Won: true, Position: 1}}
	topic := broker.Topic(sessionID.String())
	err := topic.Publish(context.Background(), broadcast.EventTypeGameEnd,
		broadcast.GameEndPayload{Results: results})
	if err != nil {
		t.Fatal(err)
	}

	snap := r.Snapshot()
	if snap.Phase != PhaseFinished {
		t.Fatalf("phase = %s, want finished after game-end", snap.Phase)
	}
	if len(snap.FinalResults) != 1 || snap.FinalResults[0].UserID != "peer-1" {
		t.Errorf("finalResults = %+v", snap.FinalResults)
	}
}

func TestRuntime_CancelDiscardsState(t *testing.T) {
	broker := broadcast.NewMemoryBroker()
	sessionID := uuid.New()
	r := testRuntime(t, broker, sessionID, models.GameKindNumberGuess, numberRules())

	publishStart(t, broker, sessionID)
	if _, err := r.Submit("50"); err != nil {
		t.Fatal(err)
	}

	topic := broker.Topic(sessionID.String())
	err := topic.Publish(context.Background(), broadcast.EventTypeGameCancelled,
		broadcast.GameCancelledPayload{SessionID: sessionID.String()})
	if err != nil {
		t.Fatal(err)
	}

	snap := r.Snapshot()
	if snap.Phase != PhaseIdle {
		t.Fatalf("phase = %s, want idle after cancel", snap.Phase)
	}
	if len(snap.PeerScores) != 0 || len(snap.Finished) != 0 || snap.LocalScore != 0 {
		t.Errorf("state not discarded: %+v", snap)
	}
	if snap.View.Attempts != 0 {
		t.Errorf("game state not reset, attempts = %d", snap.View.Attempts)
	}
}

func TestRuntime_CancelForOtherSessionIgnored(t *testing.T) {
	broker := broadcast.NewMemoryBroker()
	sessionID := uuid.New()
	r := testRuntime(t, broker, sessionID, models.GameKindNumberGuess, numberRules())

	publishStart(t, broker, sessionID)
	topic := broker.Topic(sessionID.String())
	err := topic.Publish(context.Background(), broadcast.EventTypeGameCancelled,
		broadcast.GameCancelledPayload{SessionID: uuid.New().String()})
	if err != nil {
		t.Fatal(err)
	}
	if got := r.Snapshot().Phase; got != PhaseRunning {
		t.Errorf("phase = %s, want running (cancel was for another session)", got)
	}
}

func TestRuntime_ClosedRuntimeIgnoresEverything(t *testing.T) {
	broker := broadcast.NewMemoryBroker()
	sessionID := uuid.New()
	r := testRuntime(t, broker, sessionID, models.GameKindNumberGuess, numberRules())

	publishStart(t, broker, sessionID)
	r.Close()
	r.tick() // must be a guaranteed no-op, not a crash or stale write

	if _, err := r.Submit("50"); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Submit after close: err = %v, want ErrNotRunning", err)
	}
}
