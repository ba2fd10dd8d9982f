// Package content derives game content deterministically from a session
// seed so every connected client computes identical puzzles with no network
// round trip.
//
// The seed-to-sequence mapping is a deployment contract: the hash is a
// polynomial rolling hash over UTF-8 bytes (h = h*31 + b, uint32 wraparound)
// and the sequence is the Numerical Recipes LCG
// (s = s*1664525 + 1013904223 mod 2^32), with floats produced as s / 2^32.
// Language-native seeded PRNGs are deliberately avoided since their
// seed-to-sequence mappings are not portable across runtimes.
package content

// Question is one trivia question. Answer indexes into Options.
type Question struct {
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
	Answer  int      `json:"answer"`
}

func hashSeed(seed string) uint32 {
	var h uint32
	for _, b := range []byte(seed) {
		h = h*31 + uint32(b)
	}
	return h
}

// Sequence is a reproducible pseudo-random sequence derived from a seed.
type Sequence struct {
	state uint32
}

func NewSequence(seed string) *Sequence {
	return &Sequence{state: hashSeed(seed)}
}

// Next returns the next pseudo-random float in [0,1).
func (s *Sequence) Next() float64 {
	s.state = s.state*1664525 + 1013904223
	return float64(s.state) / (1 << 32)
}

// Intn returns the next pseudo-random int in [0,n). n must be positive.
func (s *Sequence) Intn(n int) int {
	return int(s.Next() * float64(n))
}

// TargetNumber picks the session's target in [min, max].
func TargetNumber(seed string, min, max int) int {
	seq := NewSequence(seed)
	return min + seq.Intn(max-min+1)
}

// TargetWord picks the session's target word from the fixed pool.
func TargetWord(seed string) string {
	seq := NewSequence(seed)
	return wordPool[seq.Intn(len(wordPool))]
}

// Questions shuffles the fixed question pool (Fisher-Yates) and returns the
// first count entries. If count exceeds the pool size the entire pool is
// returned unshuffled.
func Questions(seed string, count int) []Question {
	if count > len(questionPool) {
		out := make([]Question, len(questionPool))
		copy(out, questionPool)
		return out
	}
	if count < 0 {
		count = 0
	}
	shuffled := make([]Question, len(questionPool))
	copy(shuffled, questionPool)
	seq := NewSequence(seed)
	for i := len(shuffled) - 1; i > 0; i-- {
		j := seq.Intn(i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}
	return shuffled[:count]
}
