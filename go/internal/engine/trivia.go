package engine

import (
	"fmt"
	"strconv"

	"github.com/mcdev12/playroom/go/internal/content"
	"github.com/mcdev12/playroom/go/internal/models"
)

// trivia: answer K questions, one point per correct answer, no partial
// credit, no penalty for wrong answers. Exhausting the list finishes the
// game early.
type trivia struct {
	count     int
	questions []content.Question
	index     int
	correct   int
	done      bool
}

func newTrivia(count int) *trivia {
	return &trivia{count: count}
}

func (g *trivia) Kind() models.GameKind {
	return models.GameKindTrivia
}

func (g *trivia) Begin(seed string) {
	g.questions = content.Questions(seed, g.count)
}

func (g *trivia) Submit(input string) (SubmitResult, error) {
	if g.index >= len(g.questions) {
		return SubmitResult{}, fmt.Errorf("no questions left")
	}
	q := g.questions[g.index]
	choice, err := strconv.Atoi(input)
	if err != nil || choice < 0 || choice >= len(q.Options) {
		return SubmitResult{}, fmt.Errorf("answer %q is not an option index", input)
	}
	if choice == q.Answer {
		g.correct++
	}
	g.index++

	res := SubmitResult{LiveScore: true}
	if g.index >= len(g.questions) {
		g.done = true
		res.Done = true
	}
	return res, nil
}

func (g *trivia) Score() int {
	return g.correct
}

func (g *trivia) View() GameView {
	if g.index >= len(g.questions) {
		return GameView{
			Prompt:   "All questions answered",
			Progress: fmt.Sprintf("%d/%d", g.index, len(g.questions)),
		}
	}
	q := g.questions[g.index]
	return GameView{
		Prompt:   q.Prompt,
		Options:  q.Options,
		Progress: fmt.Sprintf("%d/%d", g.index, len(g.questions)),
	}
}
