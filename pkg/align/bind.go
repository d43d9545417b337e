package align

import (
	"strings"

	"riddlecut/pkg/model"
)

// BoundToken is a display token paired with the word spoken at the same
// ordinal position. Word is nil when the narration has fewer words than the
// display text, in which case the token is shown without highlighting.
type BoundToken struct {
	Text    string
	Ordinal int
	Word    *model.Word
}

// Tokens splits display text into whitespace-separated tokens.
func Tokens(displayText string) []string {
	return strings.Fields(displayText)
}

// Bind pairs tokens with words strictly by position. Text is never compared:
// repeated words ("go go go") must each keep their own timestamps.
func Bind(tokens []string, words []model.Word) []BoundToken {
	out := make([]BoundToken, len(tokens))
	for i, tok := range tokens {
		out[i] = BoundToken{Text: tok, Ordinal: i}
		if i < len(words) {
			w := words[i]
			out[i].Word = &w
		}
	}
	return out
}
