package engine

import (
	"fmt"
	"strconv"

	"github.com/mcdev12/playroom/go/internal/content"
	"github.com/mcdev12/playroom/go/internal/models"
)

const (
	numberGuessMin = 1
	numberGuessMax = 100
)

// numberGuess: guess the target in 1..100. Score is max(0, 100 - 10*attempts)
// when guessed, 0 otherwise.
type numberGuess struct {
	target   int
	attempts int
	guessed  bool
	done     bool
}

func newNumberGuess() *numberGuess {
	return &numberGuess{}
}

func (g *numberGuess) Kind() models.GameKind {
	return models.GameKindNumberGuess
}

func (g *numberGuess) Begin(seed string) {
	g.target = content.TargetNumber(seed, numberGuessMin, numberGuessMax)
}

func (g *numberGuess) Submit(input string) (SubmitResult, error) {
	n, err := strconv.Atoi(input)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("guess %q is not a number", input)
	}
	if n < numberGuessMin || n > numberGuessMax {
		return SubmitResult{}, fmt.Errorf("guess must be between %d and %d", numberGuessMin, numberGuessMax)
	}
	g.attempts++
	switch {
	case n == g.target:
		g.guessed = true
		g.done = true
		return SubmitResult{Feedback: "correct", Done: true, Won: true}, nil
	case n < g.target:
		return SubmitResult{Feedback: "higher"}, nil
	default:
		return SubmitResult{Feedback: "lower"}, nil
	}
}

func (g *numberGuess) Score() int {
	if !g.guessed {
		return 0
	}
	score := 100 - 10*g.attempts
	if score < 0 {
		return 0
	}
	return score
}

func (g *numberGuess) View() GameView {
	return GameView{
		Prompt:   fmt.Sprintf("Guess the number between %d and %d", numberGuessMin, numberGuessMax),
		Attempts: g.attempts,
	}
}
