package validation

import (
	"regexp"
	"strings"
)

var nonWord = regexp.MustCompile(`[^\w\s]`)

// TokenSet lower-cases text, strips non-word characters and splits on whitespace.
// Both the selection overlap and the grounding overlap use it.
func TokenSet(text string) map[string]struct{} {
	cleaned := nonWord.ReplaceAllString(strings.ToLower(text), "")
	fields := strings.Fields(cleaned)

	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

// intersectionSize counts tokens of a that also appear in b
func intersectionSize(a, b map[string]struct{}) int {
	n := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			n++
		}
	}
	return n
}
