package domain

import "time"

// Phrase is a unique (normalized text, source language) pair that users have searched.
type Phrase struct {
	ID             string    `json:"id"`
	Text           string    `json:"text"`
	NormalizedText string    `json:"normalized_text"`
	SourceLanguage string    `json:"source_language"`
	Quizzable      bool      `json:"quizzable"`
	SearchCount    int       `json:"search_count"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewPhrase derives the normalized key and the quizzable flag from raw input.
func NewPhrase(id, text, sourceLanguage string, now time.Time) *Phrase {
	display := NormalizeText(text)
	return &Phrase{
		ID:             id,
		Text:           display,
		NormalizedText: FoldText(display),
		SourceLanguage: sourceLanguage,
		Quizzable:      IsQuizzable(display),
		SearchCount:    1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// TranslationEntry is one sense of a phrase in the target language.
type TranslationEntry struct {
	Word  string `json:"word"`
	Tag   string `json:"tag,omitempty"`
	Gloss string `json:"gloss,omitempty"`
}

// TranslationRecord is the shared, cached translation of a phrase into one language.
type TranslationRecord struct {
	ID             string             `json:"id"`
	PhraseID       string             `json:"phrase_id"`
	TargetLanguage string             `json:"target_language"`
	Entries        []TranslationEntry `json:"entries"`
	Model          string             `json:"model"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// Words returns the distinct non-empty translation words in entry order.
func (t *TranslationRecord) Words() []string {
	if t == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(t.Entries))
	words := make([]string, 0, len(t.Entries))
	for _, e := range t.Entries {
		w := NormalizeText(e.Word)
		if w == "" {
			continue
		}
		key := FoldText(w)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		words = append(words, w)
	}
	return words
}
