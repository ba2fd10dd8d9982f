// Package engine hosts the per-client game runtime: the state machine each
// connected player runs, the mini-game implementations, and the score
// aggregation coordinator that runs only for the room owner.
package engine

import (
	"fmt"

	"github.com/mcdev12/playroom/go/internal/models"
)

// SubmitResult is the outcome of one player action.
type SubmitResult struct {
	Feedback  string // per-kind hint for the UI ("higher", "lower", masked word, ...)
	Done      bool   // the game reached a terminal condition
	Won       bool   // the terminal condition was a winning one
	LiveScore bool   // broadcast the current score now even though not finished
}

// GameView is what the rendering layer may see. It never contains the
// solution.
type GameView struct {
	Prompt   string   `json:"prompt"`
	Options  []string `json:"options,omitempty"`
	Masked   string   `json:"masked,omitempty"`
	Attempts int      `json:"attempts"`
	Progress string   `json:"progress,omitempty"`
}

// Game is one mini-game variant's local logic. Implementations are not
// safe for concurrent use; the Runtime serializes access.
type Game interface {
	Kind() models.GameKind

	// Begin derives the deterministic content for the session seed. Every
	// client calls this with the same seed and gets the same puzzle.
	Begin(seed string)

	// Submit consumes one player action. Returns an error only for
	// malformed input; a wrong guess is a valid submission.
	Submit(input string) (SubmitResult, error)

	// Score returns the current score under the kind's formula.
	Score() int

	View() GameView
}

// NewGame builds the variant for a kind. The kind set is closed; there is no
// runtime-mutable registry.
func NewGame(kind models.GameKind, rules models.GameRules) (Game, error) {
	switch kind {
	case models.GameKindNumberGuess:
		return newNumberGuess(), nil
	case models.GameKindWordGuess:
		return newWordGuess(rules.MaxAttempts), nil
	case models.GameKindTrivia:
		return newTrivia(rules.QuestionCount), nil
	default:
		return nil, fmt.Errorf("no game implementation for kind %q", kind)
	}
}
