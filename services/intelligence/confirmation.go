package ai

import "strings"

// Confirmation classifies a reply to a pending action.
type Confirmation int

const (
	Neither Confirmation = iota
	Affirmative
	Negative
)

func (c Confirmation) String() string {
	switch c {
	case Affirmative:
		return "affirmative"
	case Negative:
		return "negative"
	default:
		return "neither"
	}
}

var affirmativePhrases = []string{"sim", "confirmar", "ok", "concordo", "aceito", "pode ser", "claro", "certo"}

var negativePhrases = []string{"não", "nao", "cancela", "cancelar", "desisto", "não quero", "nao quero"}

// Classify matches utterance case-insensitively against the phrase sets.
// Negative phrases are checked first, so "sim, pode cancelar" is Negative.
func Classify(utterance string) Confirmation {
	lower := strings.ToLower(utterance)
	if containsAny(lower, negativePhrases) {
		return Negative
	}
	if containsAny(lower, affirmativePhrases) {
		return Affirmative
	}
	return Neither
}

func containsAny(s string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
