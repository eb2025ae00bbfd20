package service

import (
	"strings"

	"golang.org/x/text/language"
)

// leadingArticles lists the articles stripped before the second comparison tier, keyed by base language.
var leadingArticles = map[string][]string{
	"en": {"the", "a", "an"},
	"de": {"der", "die", "das", "den", "dem", "des", "ein", "eine", "einen", "einem", "einer", "eines"},
	"fr": {"le", "la", "les", "un", "une", "des", "du"},
	"es": {"el", "la", "los", "las", "un", "una", "unos", "unas"},
	"it": {"il", "lo", "la", "i", "gli", "le", "un", "uno", "una"},
	"pt": {"o", "a", "os", "as", "um", "uma", "uns", "umas"},
	"nl": {"de", "het", "een"},
}

// elidedArticles attach to the next word without a space.
var elidedArticles = map[string][]string{
	"fr": {"l'", "l’"},
	"it": {"l'", "l’", "un'", "un’"},
}

// baseLanguage maps a tag such as "en-US" to "en". Unknown tags fall back to English.
func baseLanguage(tag string) string {
	if tag == "" {
		return "en"
	}
	base, _ := language.Make(tag).Base()
	if _, ok := leadingArticles[base.String()]; !ok {
		return "en"
	}
	return base.String()
}

// stripArticle removes one leading article from an already case-folded answer.
func stripArticle(folded, lang string) string {
	base := baseLanguage(lang)
	for _, prefix := range elidedArticles[base] {
		if rest := strings.TrimPrefix(folded, prefix); rest != folded && strings.TrimSpace(rest) != "" {
			return strings.TrimSpace(rest)
		}
	}
	first, rest, ok := strings.Cut(folded, " ")
	if !ok {
		return folded
	}
	for _, article := range leadingArticles[base] {
		if first == article {
			return strings.TrimSpace(rest)
		}
	}
	return folded
}
