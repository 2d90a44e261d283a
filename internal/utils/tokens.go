package utils

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
)

var (
	tokenPattern      = regexp.MustCompile(`[\p{L}\p{N}']+`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// FoldCase lowercases text with Unicode case folding. Casers are stateful, so
// one is created per call.
func FoldCase(text string) string {
	return cases.Fold().String(text)
}

// NormalizeText prepares a message for whole-message matching: case folded,
// trimmed, inner whitespace collapsed and surrounding punctuation, symbols and
// emoji removed.
func NormalizeText(text string) string {
	folded := FoldCase(strings.TrimSpace(text))
	folded = whitespacePattern.ReplaceAllString(folded, " ")
	return strings.TrimFunc(folded, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r)
	})
}

// Tokenize splits text into case folded word tokens
func Tokenize(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return tokenPattern.FindAllString(FoldCase(text), -1)
}

// RuneLength returns the number of characters of the trimmed text
func RuneLength(text string) int {
	return len([]rune(strings.TrimSpace(text)))
}
