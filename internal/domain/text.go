package domain

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// NormalizeText trims, collapses inner whitespace and applies NFC.
func NormalizeText(s string) string {
	return norm.NFC.String(strings.Join(strings.Fields(s), " "))
}

// FoldText is NormalizeText followed by Unicode case folding; use it for comparisons.
func FoldText(s string) string {
	return cases.Fold().String(NormalizeText(s))
}

// EqualFolded compares two strings after FoldText.
func EqualFolded(a, b string) bool {
	return FoldText(a) == FoldText(b)
}

// TruncateRunes cuts s to at most n runes without splitting a character.
func TruncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

const (
	maxQuizzableWords = 4
	maxQuizzableRunes = 64
)

// IsQuizzable reports whether a phrase is shaped like vocabulary rather than a sentence,
// a number, a URL or an e-mail address.
func IsQuizzable(text string) bool {
	text = NormalizeText(text)
	if text == "" || len([]rune(text)) > maxQuizzableRunes {
		return false
	}
	if len(strings.Fields(text)) > maxQuizzableWords {
		return false
	}
	if strings.Contains(text, "://") || strings.Contains(text, "@") || strings.HasPrefix(text, "www.") {
		return false
	}
	for _, r := range text {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
