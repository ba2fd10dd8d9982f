package engine

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/mcdev12/playroom/go/internal/content"
	"github.com/mcdev12/playroom/go/internal/models"
)

// wordGuess: hangman-style letter guessing. Winning within the allowed
// wrong-letter budget scores maxWrong - wrong + 1; failing scores 0.
type wordGuess struct {
	word     string
	guessed  map[rune]bool
	wrong    int
	maxWrong int
	done     bool
	won      bool
}

func newWordGuess(maxWrong int) *wordGuess {
	return &wordGuess{
		guessed:  make(map[rune]bool),
		maxWrong: maxWrong,
	}
}

func (g *wordGuess) Kind() models.GameKind {
	return models.GameKindWordGuess
}

func (g *wordGuess) Begin(seed string) {
	g.word = content.TargetWord(seed)
}

func (g *wordGuess) Submit(input string) (SubmitResult, error) {
	runes := []rune(strings.ToLower(strings.TrimSpace(input)))
	if len(runes) != 1 || !unicode.IsLetter(runes[0]) {
		return SubmitResult{}, fmt.Errorf("guess %q is not a single letter", input)
	}
	letter := runes[0]
	if g.guessed[letter] {
		// No penalty for repeating a guess; just show the board again.
		return SubmitResult{Feedback: g.masked()}, nil
	}
	g.guessed[letter] = true

	if !strings.ContainsRune(g.word, letter) {
		g.wrong++
		if g.wrong > g.maxWrong {
			g.done = true
			return SubmitResult{Feedback: g.masked(), Done: true}, nil
		}
		return SubmitResult{Feedback: g.masked()}, nil
	}

	if g.revealed() {
		g.done = true
		g.won = true
		return SubmitResult{Feedback: g.word, Done: true, Won: true}, nil
	}
	return SubmitResult{Feedback: g.masked()}, nil
}

func (g *wordGuess) Score() int {
	if !g.won {
		return 0
	}
	return g.maxWrong - g.wrong + 1
}

func (g *wordGuess) View() GameView {
	return GameView{
		Prompt:   "Guess the word, one letter at a time",
		Masked:   g.masked(),
		Attempts: g.wrong,
	}
}

func (g *wordGuess) revealed() bool {
	for _, r := range g.word {
		if !g.guessed[r] {
			return false
		}
	}
	return true
}

func (g *wordGuess) masked() string {
	var b strings.Builder
	for _, r := range g.word {
		if g.guessed[r] {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}
