package models

// GameRules holds the per-kind parameters a session is created with.
type GameRules struct {
	MinPlayers    int `yaml:"min_players" json:"min_players"`
	MaxPlayers    int `yaml:"max_players" json:"max_players"`
	TimeLimitSec  int `yaml:"time_limit_sec" json:"time_limit_sec"`
	MaxAttempts   int `yaml:"max_attempts" json:"max_attempts"`       // word-guess: allowed wrong letters
	QuestionCount int `yaml:"question_count" json:"question_count"`   // trivia
}

// DefaultRules returns the built-in rules for a game kind. The second return
// is false for unknown kinds.
func DefaultRules(kind GameKind) (GameRules, bool) {
	switch kind {
	case GameKindNumberGuess:
		return GameRules{MinPlayers: 2, MaxPlayers: 8, TimeLimitSec: 60}, true
	case GameKindWordGuess:
		return GameRules{MinPlayers: 2, MaxPlayers: 8, TimeLimitSec: 90, MaxAttempts: 6}, true
	case GameKindTrivia:
		return GameRules{MinPlayers: 2, MaxPlayers: 8, TimeLimitSec: 60, QuestionCount: 5}, true
	default:
		return GameRules{}, false
	}
}
